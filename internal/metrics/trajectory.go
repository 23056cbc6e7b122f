package metrics

// Trajectory is an append-only series of full-train correct counts, one
// per evaluation checkpoint, recorded for plotting.
type Trajectory struct {
	name   string
	total  int
	steps  []int
	counts []int
}

// NewTrajectory creates a trajectory for a run evaluated against total
// examples per checkpoint.
func NewTrajectory(name string, total int) *Trajectory {
	return &Trajectory{name: name, total: total}
}

// Append records the correct count measured at the given step.
func (t *Trajectory) Append(step, correct int) {
	t.steps = append(t.steps, step)
	t.counts = append(t.counts, correct)
}

// Name returns the label used when plotting the series.
func (t *Trajectory) Name() string { return t.name }

// Total returns the number of examples each checkpoint was scored against.
func (t *Trajectory) Total() int { return t.total }

// Len returns the number of recorded checkpoints.
func (t *Trajectory) Len() int { return len(t.counts) }

// At returns the step and correct count of checkpoint i.
func (t *Trajectory) At(i int) (step, correct int) { return t.steps[i], t.counts[i] }
