package metrics

import "testing"

func TestTrajectoryAppendOnly(t *testing.T) {
	tr := NewTrajectory("hidden-25", 100)
	if tr.Len() != 0 {
		t.Fatalf("new trajectory has %d points", tr.Len())
	}
	tr.Append(20000, 80)
	tr.Append(40000, 91)
	if tr.Len() != 2 {
		t.Fatalf("expected 2 points, got %d", tr.Len())
	}
	step, correct := tr.At(1)
	if step != 40000 || correct != 91 {
		t.Fatalf("point 1 = (%d, %d), want (40000, 91)", step, correct)
	}
	if tr.Name() != "hidden-25" || tr.Total() != 100 {
		t.Fatalf("metadata lost: %q %d", tr.Name(), tr.Total())
	}
}
