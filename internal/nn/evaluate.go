package nn

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrBadLabel reports a label row that is not one-hot.
var ErrBadLabel = errors.New("label row is not one-hot")

// Loss computes the mean softmax cross-entropy between a (B, 10) score
// matrix and one-hot labels of the same shape, using the numerically
// stable formulation (row max subtracted before exponentiating). The value
// is invariant to any additive shift applied to a whole score row.
func Loss(scores, labels *mat.Dense) (float64, error) {
	rows, cols := scores.Dims()
	lr, lc := labels.Dims()
	if rows != lr || cols != lc {
		return 0, errors.Wrapf(ErrShapeMismatch, "scores %dx%d vs labels %dx%d", rows, cols, lr, lc)
	}
	total := 0.0
	for r := 0; r < rows; r++ {
		row := scores.RawRowView(r)
		truth, err := oneHotIndex(labels.RawRowView(r))
		if err != nil {
			return 0, errors.Wrapf(err, "row %d", r)
		}
		total += -math.Log(math.Max(softmaxProb(row, truth), 1e-12))
	}
	return total / float64(rows), nil
}

// Correct compares the predicted class of every score row against the
// one-hot label row and returns one flag per example. Labels that are not
// one-hot are rejected.
func Correct(scores, labels *mat.Dense) ([]bool, error) {
	rows, cols := scores.Dims()
	lr, lc := labels.Dims()
	if rows != lr || cols != lc {
		return nil, errors.Wrapf(ErrShapeMismatch, "scores %dx%d vs labels %dx%d", rows, cols, lr, lc)
	}
	flags := make([]bool, rows)
	for r := 0; r < rows; r++ {
		truth, err := oneHotIndex(labels.RawRowView(r))
		if err != nil {
			return nil, errors.Wrapf(err, "row %d", r)
		}
		flags[r] = Argmax(scores.RawRowView(r)) == truth
	}
	return flags, nil
}

// CountCorrect returns the number of true flags.
func CountCorrect(flags []bool) int {
	n := 0
	for _, ok := range flags {
		if ok {
			n++
		}
	}
	return n
}

// Argmax returns the first index attaining the row maximum, matching the
// conventional framework tie-break.
func Argmax(row []float64) int {
	best := 0
	for i := 1; i < len(row); i++ {
		if row[i] > row[best] {
			best = i
		}
	}
	return best
}

// oneHotIndex returns the index of the single 1 entry, or ErrBadLabel when
// the row contains anything other than exactly one 1 and zeros elsewhere.
func oneHotIndex(row []float64) (int, error) {
	idx := -1
	for i, v := range row {
		switch v {
		case 0:
		case 1:
			if idx >= 0 {
				return 0, errors.Wrap(ErrBadLabel, "multiple hot entries")
			}
			idx = i
		default:
			return 0, errors.Wrapf(ErrBadLabel, "entry %d is %v", i, v)
		}
	}
	if idx < 0 {
		return 0, errors.Wrap(ErrBadLabel, "no hot entry")
	}
	return idx, nil
}

// softmaxProb returns the softmax probability assigned to class truth,
// with the row maximum subtracted before exponentiation.
func softmaxProb(row []float64, truth int) float64 {
	maxv := row[0]
	for _, v := range row[1:] {
		if v > maxv {
			maxv = v
		}
	}
	sum := 0.0
	for _, v := range row {
		sum += math.Exp(v - maxv)
	}
	return math.Exp(row[truth]-maxv) / sum
}
