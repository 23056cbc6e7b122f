// Command mnist-overfit trains two dense networks on MNIST, one with 25
// hidden units and one with 2000, and compares their train/test accuracy
// to show the larger model overfitting.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"mnist-overfit/internal/config"
	"mnist-overfit/internal/metrics"
	"mnist-overfit/internal/mnist"
	"mnist-overfit/internal/report"
	"mnist-overfit/internal/trainer"
)

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (defaults used when empty)")
	dataDir := flag.String("data-dir", "", "Override MNIST data directory")
	steps := flag.Int("steps", 0, "Number of training steps per run")
	batchSize := flag.Int("batch-size", 0, "Batch size")
	seed := flag.Int64("seed", 0, "PRNG seed")
	plotPath := flag.String("plot", "", "Override accuracy plot output path")
	smallOnly := flag.Bool("small-only", false, "Run only the 25-unit model")
	largeOnly := flag.Bool("large-only", false, "Run only the 2000-unit model")

	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}

	cfg.ApplyOverrides(config.Overrides{
		DataDir:   *dataDir,
		Steps:     *steps,
		BatchSize: *batchSize,
		Seed:      *seed,
		PlotPath:  *plotPath,
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if *smallOnly && *largeOnly {
		log.Fatalf("-small-only and -large-only are mutually exclusive")
	}

	if err := mnist.EnsureDownloaded(cfg.DataDir); err != nil {
		log.Fatalf("fetch MNIST: %v", err)
	}
	ds, err := mnist.Load(cfg.DataDir, cfg.Seed)
	if err != nil {
		log.Fatalf("load MNIST: %v", err)
	}
	log.Printf("dataset loaded train=%d test=%d", ds.TrainLen(), ds.TestLen())

	runs := []trainer.RunConfig{
		{
			Name:         "hidden-25",
			HiddenUnits:  25,
			LearningRate: 0.01,
			Steps:        cfg.Steps,
			BatchSize:    cfg.BatchSize,
			EvalEvery:    cfg.SmallEvalEvery,
			Seed:         cfg.Seed,
		},
		{
			Name:         "hidden-2000",
			HiddenUnits:  2000,
			LearningRate: 0.1,
			Steps:        cfg.Steps,
			BatchSize:    cfg.BatchSize,
			EvalEvery:    cfg.LargeEvalEvery,
			Seed:         cfg.Seed + 1,
		},
	}
	if *smallOnly {
		runs = runs[:1]
	}
	if *largeOnly {
		runs = runs[1:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var trajectories []*metrics.Trajectory
	for _, run := range runs {
		log.Printf("run=%s hidden=%d lr=%g steps=%d batch=%d eval_every=%d",
			run.Name, run.HiddenUnits, run.LearningRate, run.Steps, run.BatchSize, run.EvalEvery)
		tr, err := trainer.New(run, ds)
		if err != nil {
			log.Fatalf("run %s: %v", run.Name, err)
		}
		result, err := tr.Run(ctx)
		if err != nil {
			log.Fatalf("run %s: %v", run.Name, err)
		}
		report.LogFinalCounts(run.Name, result.TrainCorrect, result.TrainTotal, result.TestCorrect, result.TestTotal)
		trajectories = append(trajectories, result.Trajectory)
	}

	if err := report.Plot(cfg.PlotPath, trajectories...); err != nil {
		log.Fatalf("plot: %v", err)
	}
	log.Printf("wrote %s", cfg.PlotPath)
}
