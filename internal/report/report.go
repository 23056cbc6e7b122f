// Package report prints training progress and renders the accuracy
// trajectories of completed runs as overlaid line series.
package report

import (
	"log"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"mnist-overfit/internal/metrics"
)

// LogProgress emits one progress line per evaluation checkpoint.
func LogProgress(run string, step, batchCorrect, batchSize, trainCorrect, trainTotal int, loss float64) {
	log.Printf("run=%s step=%d loss=%.4f batch_acc=%.3f train_correct=%d/%d",
		run, step, loss,
		float64(batchCorrect)/float64(batchSize),
		trainCorrect, trainTotal)
}

// LogFinalCounts reports the end-of-run sweeps over both splits.
func LogFinalCounts(run string, trainCorrect, trainTotal, testCorrect, testTotal int) {
	log.Printf("run=%s final train_correct=%d/%d (%.4f) test_correct=%d/%d (%.4f)",
		run,
		trainCorrect, trainTotal, float64(trainCorrect)/float64(trainTotal),
		testCorrect, testTotal, float64(testCorrect)/float64(testTotal))
}

// Plot writes the trajectories to path as a PNG, one line per run, with
// correct counts converted to accuracy fractions.
func Plot(path string, trajectories ...*metrics.Trajectory) error {
	p := plot.New()
	p.Title.Text = "Training accuracy"
	p.X.Label.Text = "step"
	p.Y.Label.Text = "accuracy"
	p.Y.Max = 1.0
	p.Legend.Top = false

	for i, tr := range trajectories {
		if tr.Len() == 0 {
			continue
		}
		xys := make(plotter.XYs, tr.Len())
		for j := range xys {
			step, correct := tr.At(j)
			xys[j].X = float64(step)
			xys[j].Y = float64(correct) / float64(tr.Total())
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return errors.Wrapf(err, "series %s", tr.Name())
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(tr.Name(), line)
	}

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "save %q", path)
	}
	return nil
}
