// Package trainer drives the fixed-iteration training loop: fetch a batch,
// run the forward/backward step, and periodically sweep the full training
// split for the accuracy trajectory.
package trainer

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"mnist-overfit/internal/metrics"
	"mnist-overfit/internal/nn"
	"mnist-overfit/internal/report"
)

// Provider supplies training batches and the full splits for evaluation.
type Provider interface {
	NextBatch(size int) (inputs, labels *mat.Dense)
	AllTrain() (inputs, labels *mat.Dense)
	AllTest() (inputs, labels *mat.Dense)
}

// RunConfig captures the knobs of one training run.
type RunConfig struct {
	Name         string
	HiddenUnits  int
	LearningRate float64
	Steps        int
	BatchSize    int
	EvalEvery    int
	Seed         int64
}

// State tracks the trainer through its three-phase lifecycle.
type State int

const (
	Initialized State = iota
	Running
	Finished
)

// Result holds the completed run's trajectory and final sweep counts.
type Result struct {
	Trajectory   *metrics.Trajectory
	TrainCorrect int
	TrainTotal   int
	TestCorrect  int
	TestTotal    int
}

// Trainer owns one model and runs it to completion. It is strictly
// sequential: every step fetches, forwards, and updates before the next
// begins, and nothing else mutates the model parameters.
type Trainer struct {
	cfg      RunConfig
	provider Provider
	model    *nn.Model
	state    State
}

// New builds a trainer with freshly initialized parameters.
func New(cfg RunConfig, provider Provider) (*Trainer, error) {
	if cfg.Steps <= 0 {
		return nil, errors.New("trainer: steps must be > 0")
	}
	if cfg.BatchSize <= 0 {
		return nil, errors.New("trainer: batch size must be > 0")
	}
	if cfg.EvalEvery <= 0 {
		return nil, errors.New("trainer: eval interval must be > 0")
	}
	if cfg.HiddenUnits <= 0 {
		return nil, errors.New("trainer: hidden units must be > 0")
	}
	if provider == nil {
		return nil, errors.New("trainer: nil provider")
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	return &Trainer{
		cfg:      cfg,
		provider: provider,
		model:    nn.New(cfg.HiddenUnits, cfg.LearningRate, rng),
		state:    Initialized,
	}, nil
}

// State returns the trainer's lifecycle phase.
func (t *Trainer) State() State { return t.state }

// Model exposes the trained parameters, mainly for tests.
func (t *Trainer) Model() *nn.Model { return t.model }

// Run executes the configured number of steps and the final full-split
// sweeps. Any shape or numeric error is fatal to the run; there are no
// retries. Context cancellation aborts between steps.
func (t *Trainer) Run(ctx context.Context) (*Result, error) {
	if t.state != Initialized {
		return nil, errors.New("trainer: already run")
	}
	t.state = Running

	trainX, trainY := t.provider.AllTrain()
	trainTotal, _ := trainX.Dims()
	trajectory := metrics.NewTrajectory(t.cfg.Name, trainTotal)
	var window metrics.Window

	for step := 1; step <= t.cfg.Steps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		startFetch := time.Now()
		inputs, labels := t.provider.NextBatch(t.cfg.BatchSize)
		fetchTime := time.Since(startFetch)

		startStep := time.Now()
		loss, err := t.model.Step(inputs, labels)
		stepTime := time.Since(startStep)
		if err != nil {
			return nil, err
		}

		window.Record(t.cfg.BatchSize, fetchTime, stepTime, loss)

		if step%t.cfg.EvalEvery == 0 {
			batchCorrect, err := t.countCorrect(inputs, labels)
			if err != nil {
				return nil, err
			}
			trainCorrect, err := t.sweep(trainX, trainY)
			if err != nil {
				return nil, err
			}
			trajectory.Append(step, trainCorrect)

			snap := window.Snapshot()
			report.LogProgress(t.cfg.Name, step, batchCorrect, t.cfg.BatchSize, trainCorrect, trainTotal, snap.LastLoss)
			log.Printf("run=%s step=%d examples_per_sec=%.1f fetch_ms=%.2f step_ms=%.2f",
				t.cfg.Name, step, snap.ExamplesPerSec, snap.AvgFetchMS, snap.AvgStepMS)
		}
	}

	trainCorrect, err := t.sweep(trainX, trainY)
	if err != nil {
		return nil, err
	}
	testX, testY := t.provider.AllTest()
	testCorrect, err := t.sweep(testX, testY)
	if err != nil {
		return nil, err
	}
	testTotal, _ := testX.Dims()

	t.state = Finished
	return &Result{
		Trajectory:   trajectory,
		TrainCorrect: trainCorrect,
		TrainTotal:   trainTotal,
		TestCorrect:  testCorrect,
		TestTotal:    testTotal,
	}, nil
}

// countCorrect scores one batch in a single forward pass.
func (t *Trainer) countCorrect(inputs, labels *mat.Dense) (int, error) {
	scores, err := t.model.Forward(inputs)
	if err != nil {
		return 0, err
	}
	flags, err := nn.Correct(scores, labels)
	if err != nil {
		return 0, err
	}
	return nn.CountCorrect(flags), nil
}

// sweep evaluates a whole split example by example.
func (t *Trainer) sweep(inputs, labels *mat.Dense) (int, error) {
	rows, _ := inputs.Dims()
	correct := 0
	for i := 0; i < rows; i++ {
		x := mat.NewDense(1, nn.InputSize, inputs.RawRowView(i))
		y := mat.NewDense(1, nn.NumClasses, labels.RawRowView(i))
		n, err := t.countCorrect(x, y)
		if err != nil {
			return 0, err
		}
		correct += n
	}
	return correct, nil
}
