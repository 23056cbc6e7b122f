package nn

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Step runs one forward pass over the batch, backpropagates the mean
// softmax cross-entropy through the fixed two-layer graph, and applies a
// vanilla gradient-descent update at the model's learning rate. It returns
// the pre-update loss.
//
// The output-layer ReLU takes part in the backward pass: its mask gates
// the usual softmax-minus-one-hot gradient before it reaches the weights.
func (m *Model) Step(inputs, labels *mat.Dense) (float64, error) {
	h, z2, err := m.forward(inputs)
	if err != nil {
		return 0, err
	}
	batch, _ := inputs.Dims()
	lr, lc := labels.Dims()
	if lr != batch || lc != NumClasses {
		return 0, errors.Wrapf(ErrShapeMismatch, "labels %dx%d, want %dx%d", lr, lc, batch, NumClasses)
	}

	reluInPlace(z2) // z2 is now the network output; a2 > 0 iff pre-activation > 0

	// dZ2 = (softmax(a2) - y) / B, gated by the output ReLU mask.
	dZ2 := mat.NewDense(batch, NumClasses, nil)
	loss := 0.0
	invB := 1.0 / float64(batch)
	for r := 0; r < batch; r++ {
		out := z2.RawRowView(r)
		truth, err := oneHotIndex(labels.RawRowView(r))
		if err != nil {
			return 0, errors.Wrapf(err, "row %d", r)
		}
		probs := softmaxRow(out)
		loss += -math.Log(math.Max(probs[truth], 1e-12))
		grad := dZ2.RawRowView(r)
		for c := 0; c < NumClasses; c++ {
			g := probs[c]
			if c == truth {
				g -= 1
			}
			if out[c] <= 0 {
				g = 0
			}
			grad[c] = g * invB
		}
	}
	loss *= invB

	// dW2 = h' * dZ2, db2 = column sums of dZ2.
	dW2 := mat.NewDense(m.hidden, NumClasses, nil)
	dW2.Mul(h.T(), dZ2)
	db2 := columnSums(dZ2)

	// dH = dZ2 * W2', gated by the hidden ReLU mask.
	dH := mat.NewDense(batch, m.hidden, nil)
	dH.Mul(dZ2, m.w2.T())
	maskByPositive(dH, h)

	// dW1 = x' * dH, db1 = column sums of dH.
	dW1 := mat.NewDense(InputSize, m.hidden, nil)
	dW1.Mul(inputs.T(), dH)
	db1 := columnSums(dH)

	axpyDense(m.w1, dW1, -m.lr)
	axpyDense(m.w2, dW2, -m.lr)
	axpySlice(m.b1, db1, -m.lr)
	axpySlice(m.b2, db2, -m.lr)

	return loss, nil
}

func softmaxRow(row []float64) []float64 {
	maxv := row[0]
	for _, v := range row[1:] {
		if v > maxv {
			maxv = v
		}
	}
	out := make([]float64, len(row))
	sum := 0.0
	for i, v := range row {
		e := math.Exp(v - maxv)
		out[i] = e
		sum += e
	}
	inv := 1.0 / sum
	for i := range out {
		out[i] *= inv
	}
	return out
}

func columnSums(m *mat.Dense) []float64 {
	rows, cols := m.Dims()
	sums := make([]float64, cols)
	for r := 0; r < rows; r++ {
		row := m.RawRowView(r)
		for c := 0; c < cols; c++ {
			sums[c] += row[c]
		}
	}
	return sums
}

// maskByPositive zeroes entries of grad wherever act is not positive.
func maskByPositive(grad, act *mat.Dense) {
	rows, cols := grad.Dims()
	for r := 0; r < rows; r++ {
		g := grad.RawRowView(r)
		a := act.RawRowView(r)
		for c := 0; c < cols; c++ {
			if a[c] <= 0 {
				g[c] = 0
			}
		}
	}
}

// axpyDense adds alpha*delta to dst in place.
func axpyDense(dst, delta *mat.Dense, alpha float64) {
	d := dst.RawMatrix().Data
	s := delta.RawMatrix().Data
	for i := range d {
		d[i] += alpha * s[i]
	}
}

func axpySlice(dst, delta []float64, alpha float64) {
	for i := range dst {
		dst[i] += alpha * delta[i]
	}
}
