package nn

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func randomBatch(rng *rand.Rand, size int) (*mat.Dense, *mat.Dense) {
	inputs := mat.NewDense(size, InputSize, nil)
	labels := mat.NewDense(size, NumClasses, nil)
	for i := 0; i < size; i++ {
		row := inputs.RawRowView(i)
		for j := range row {
			row[j] = rng.Float64()
		}
		labels.Set(i, rng.Intn(NumClasses), 1)
	}
	return inputs, labels
}

func lossOn(t *testing.T, m *Model, inputs, labels *mat.Dense) float64 {
	t.Helper()
	scores, err := m.Forward(inputs)
	require.NoError(t, err)
	loss, err := Loss(scores, labels)
	require.NoError(t, err)
	return loss
}

func TestStepReducesLossOnFixedBatch(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	m := New(16, 0.1, rng)
	inputs, labels := randomBatch(rng, 8)

	first := lossOn(t, m, inputs, labels)
	var last float64
	for i := 0; i < 50; i++ {
		loss, err := m.Step(inputs, labels)
		require.NoError(t, err)
		last = loss
	}
	assert.Less(t, last, first, "repeated SGD on one batch should reduce its loss")
}

func TestStepReturnsPreUpdateLoss(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	m := New(8, 0.05, rng)
	inputs, labels := randomBatch(rng, 4)

	want := lossOn(t, m, inputs, labels)
	got, err := m.Step(inputs, labels)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-12)
}

func TestStepShapeMismatch(t *testing.T) {
	m := New(4, 0.01, rand.New(rand.NewSource(1)))
	_, err := m.Step(mat.NewDense(2, 50, nil), mat.NewDense(2, NumClasses, nil))
	require.Error(t, err)

	_, err = m.Step(mat.NewDense(2, InputSize, nil), mat.NewDense(3, NumClasses, nil))
	require.Error(t, err)
}

// TestStepGradientsMatchFiniteDifference recovers the applied gradient from
// the parameter delta of one Step and checks it against a central finite
// difference of the forward loss.
func TestStepGradientsMatchFiniteDifference(t *testing.T) {
	const lr = 1.0 // delta == -gradient
	const eps = 1e-6

	rng := rand.New(rand.NewSource(13))
	m := New(3, lr, rng)
	inputs, labels := randomBatch(rng, 4)

	w1Before := mat.DenseCopyOf(m.w1)
	w2Before := mat.DenseCopyOf(m.w2)
	b1Before := append([]float64(nil), m.b1...)
	b2Before := append([]float64(nil), m.b2...)

	ref := New(3, lr, rand.New(rand.NewSource(0)))
	ref.w1.Copy(w1Before)
	ref.w2.Copy(w2Before)
	copy(ref.b1, b1Before)
	copy(ref.b2, b2Before)

	_, err := m.Step(inputs, labels)
	require.NoError(t, err)

	checkEntry := func(name string, got float64, perturb func(delta float64)) {
		perturb(eps)
		up := lossOn(t, ref, inputs, labels)
		perturb(-2 * eps)
		down := lossOn(t, ref, inputs, labels)
		perturb(eps)
		want := (up - down) / (2 * eps)
		assert.InDelta(t, want, got, 1e-5, name)
	}

	for h := 0; h < 3; h++ {
		for c := 0; c < NumClasses; c++ {
			h, c := h, c
			grad := w2Before.At(h, c) - m.w2.At(h, c)
			checkEntry("w2", grad, func(d float64) { ref.w2.Set(h, c, ref.w2.At(h, c)+d) })
		}
	}
	for c := 0; c < NumClasses; c++ {
		c := c
		grad := b2Before[c] - m.b2[c]
		checkEntry("b2", grad, func(d float64) { ref.b2[c] += d })
	}
	for h := 0; h < 3; h++ {
		h := h
		grad := b1Before[h] - m.b1[h]
		checkEntry("b1", grad, func(d float64) { ref.b1[h] += d })
	}
	for _, j := range []int{0, 17, 311, 783} {
		for h := 0; h < 3; h++ {
			j, h := j, h
			grad := w1Before.At(j, h) - m.w1.At(j, h)
			checkEntry("w1", grad, func(d float64) { ref.w1.Set(j, h, ref.w1.At(j, h)+d) })
		}
	}
}
