// Package nn implements the two-layer fully connected network used by the
// overfitting demo: forward pass, softmax cross-entropy evaluation, and a
// plain SGD step with an explicit backward pass for this fixed graph.
package nn

import (
	"math/rand"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	// InputSize is the flattened 28x28 pixel grid.
	InputSize = 784
	// NumClasses is the number of digit classes.
	NumClasses = 10

	initStddev = 0.1
	initBias   = 0.1
)

// ErrShapeMismatch reports an input whose dimensions do not match the
// network parameters.
var ErrShapeMismatch = errors.New("shape mismatch")

// Model holds the parameters of a two-layer dense network
// (784 -> hidden -> 10). A Model is built once per experiment; there is no
// shared or global graph state.
type Model struct {
	hidden int
	lr     float64

	w1 *mat.Dense // InputSize x hidden
	b1 []float64  // hidden
	w2 *mat.Dense // hidden x NumClasses
	b2 []float64  // NumClasses
}

// New constructs a model with hidden units drawn from a truncated normal
// distribution (stddev 0.1, redrawn beyond two stddev) and all biases set
// to 0.1. lr is the fixed learning rate used by Step.
func New(hidden int, lr float64, rng *rand.Rand) *Model {
	m := &Model{
		hidden: hidden,
		lr:     lr,
		w1:     mat.NewDense(InputSize, hidden, nil),
		b1:     make([]float64, hidden),
		w2:     mat.NewDense(hidden, NumClasses, nil),
		b2:     make([]float64, NumClasses),
	}
	fillTruncNorm(m.w1, rng)
	fillTruncNorm(m.w2, rng)
	for i := range m.b1 {
		m.b1[i] = initBias
	}
	for i := range m.b2 {
		m.b2[i] = initBias
	}
	return m
}

// HiddenUnits returns the hidden layer width.
func (m *Model) HiddenUnits() int { return m.hidden }

// LearningRate returns the fixed SGD learning rate.
func (m *Model) LearningRate() float64 { return m.lr }

// Forward maps a (B, 784) input batch to a (B, 10) score matrix. Both
// layers apply ReLU; the activation on the output layer is a deliberate
// property of the experiment being reproduced and is kept as-is, even
// though logits ahead of a softmax loss usually carry none.
// Parameters are not modified.
func (m *Model) Forward(inputs *mat.Dense) (*mat.Dense, error) {
	_, z2, err := m.forward(inputs)
	if err != nil {
		return nil, err
	}
	reluInPlace(z2)
	return z2, nil
}

// forward returns both pre-activation matrices; callers apply ReLU to z2
// themselves. z1 comes back already rectified since the backward pass only
// needs its mask, which survives rectification (h > 0 iff z1 > 0).
func (m *Model) forward(inputs *mat.Dense) (h, z2 *mat.Dense, err error) {
	rows, cols := inputs.Dims()
	if cols != InputSize {
		return nil, nil, errors.Wrapf(ErrShapeMismatch, "input is %dx%d, want %d columns", rows, cols, InputSize)
	}
	if rows < 1 {
		return nil, nil, errors.Wrapf(ErrShapeMismatch, "input has no rows")
	}

	h = mat.NewDense(rows, m.hidden, nil)
	h.Mul(inputs, m.w1)
	addRowVector(h, m.b1)
	reluInPlace(h)

	z2 = mat.NewDense(rows, NumClasses, nil)
	z2.Mul(h, m.w2)
	addRowVector(z2, m.b2)
	return h, z2, nil
}

func fillTruncNorm(w *mat.Dense, rng *rand.Rand) {
	raw := w.RawMatrix()
	for i := range raw.Data {
		raw.Data[i] = truncNorm(rng)
	}
}

// truncNorm samples N(0, initStddev) discarding draws beyond two standard
// deviations, matching the usual truncated-normal initializer.
func truncNorm(rng *rand.Rand) float64 {
	for {
		v := rng.NormFloat64() * initStddev
		if v > -2*initStddev && v < 2*initStddev {
			return v
		}
	}
}

func reluInPlace(m *mat.Dense) {
	raw := m.RawMatrix()
	for i := range raw.Data {
		if raw.Data[i] < 0 {
			raw.Data[i] = 0
		}
	}
}

// addRowVector adds vec to every row of m.
func addRowVector(m *mat.Dense, vec []float64) {
	rows, cols := m.Dims()
	raw := m.RawMatrix()
	for r := 0; r < rows; r++ {
		row := raw.Data[r*raw.Stride : r*raw.Stride+cols]
		for c := range row {
			row[c] += vec[c]
		}
	}
}
