package metrics

import "time"

// Window accumulates per-step timing and loss between progress reports.
type Window struct {
	samples  int
	fetch    time.Duration
	step     time.Duration
	steps    int
	lastLoss float64
}

// Record adds one training step to the window.
func (w *Window) Record(batchSize int, fetchTime, stepTime time.Duration, loss float64) {
	w.samples += batchSize
	w.fetch += fetchTime
	w.step += stepTime
	w.steps++
	w.lastLoss = loss
}

// Snapshot returns aggregated metrics and resets the window.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{}
	total := w.fetch + w.step
	if total > 0 {
		snap.ExamplesPerSec = float64(w.samples) / total.Seconds()
	}
	if w.steps > 0 {
		snap.AvgFetchMS = (w.fetch.Seconds() * 1000) / float64(w.steps)
		snap.AvgStepMS = (w.step.Seconds() * 1000) / float64(w.steps)
	}
	snap.LastLoss = w.lastLoss

	w.samples = 0
	w.fetch = 0
	w.step = 0
	w.steps = 0
	return snap
}

// Snapshot represents loggable training-throughput metrics.
type Snapshot struct {
	ExamplesPerSec float64
	AvgFetchMS     float64
	AvgStepMS      float64
	LastLoss       float64
}
