// Package mnist loads the MNIST handwritten digit dataset and serves it in
// shuffled minibatches: images as (N, 784) matrices of [0,1] floats, labels
// as (N, 10) one-hot rows.
package mnist

import (
	"compress/gzip"
	"io"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// trainSplit is the conventional size of the training split; the remaining
// 5000 training-file examples form the validation split, which this demo
// does not use.
const trainSplit = 55000

// Dataset holds both splits in memory and deals out training batches.
type Dataset struct {
	trainX, trainY *mat.Dense
	testX, testY   *mat.Dense

	rng    *rand.Rand
	perm   []int
	cursor int
}

// Load reads the four gzipped IDX files from dir. seed drives the batch
// shuffling only.
func Load(dir string, seed int64) (*Dataset, error) {
	trainX, err := loadMatrix(filepath.Join(dir, trainImagesFile), decodeImages)
	if err != nil {
		return nil, err
	}
	trainY, err := loadMatrix(filepath.Join(dir, trainLabelsFile), decodeLabels)
	if err != nil {
		return nil, err
	}
	testX, err := loadMatrix(filepath.Join(dir, testImagesFile), decodeImages)
	if err != nil {
		return nil, err
	}
	testY, err := loadMatrix(filepath.Join(dir, testLabelsFile), decodeLabels)
	if err != nil {
		return nil, err
	}

	xr, _ := trainX.Dims()
	yr, _ := trainY.Dims()
	if xr != yr {
		return nil, errors.Errorf("train file has %d images but %d labels", xr, yr)
	}
	tr, _ := testX.Dims()
	tl, _ := testY.Dims()
	if tr != tl {
		return nil, errors.Errorf("test file has %d images but %d labels", tr, tl)
	}
	if tr == 0 {
		return nil, errors.New("empty test split")
	}

	// The canonical train file carries 60000 examples; the tail past the
	// split is the conventional validation set, unused here. Smaller files
	// (tests) are used whole.
	split := trainSplit
	if xr < split {
		split = xr
	}

	ds := &Dataset{
		trainX: trainX.Slice(0, split, 0, PixelCount).(*mat.Dense),
		trainY: trainY.Slice(0, split, 0, NumClasses).(*mat.Dense),
		testX:  testX,
		testY:  testY,
		rng:    rand.New(rand.NewSource(seed)),
	}
	ds.reshuffle()
	return ds, nil
}

func loadMatrix(path string, decode func(r io.Reader) (*mat.Dense, error)) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %q", path)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "gunzip %q", path)
	}
	defer gz.Close()
	m, err := decode(gz)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %q", path)
	}
	return m, nil
}

// NextBatch returns a fresh (size, 784) input matrix and (size, 10) label
// matrix drawn from the shuffled training split. The split is cycled and
// reshuffled when exhausted, so a full batch is always returned.
func (ds *Dataset) NextBatch(size int) (*mat.Dense, *mat.Dense) {
	inputs := mat.NewDense(size, PixelCount, nil)
	labels := mat.NewDense(size, NumClasses, nil)
	for i := 0; i < size; i++ {
		if ds.cursor >= len(ds.perm) {
			ds.reshuffle()
		}
		src := ds.perm[ds.cursor]
		ds.cursor++
		copy(inputs.RawRowView(i), ds.trainX.RawRowView(src))
		copy(labels.RawRowView(i), ds.trainY.RawRowView(src))
	}
	return inputs, labels
}

// AllTrain returns the full training split. Callers must not modify it.
func (ds *Dataset) AllTrain() (*mat.Dense, *mat.Dense) { return ds.trainX, ds.trainY }

// AllTest returns the full test split. Callers must not modify it.
func (ds *Dataset) AllTest() (*mat.Dense, *mat.Dense) { return ds.testX, ds.testY }

// TrainLen returns the number of training examples.
func (ds *Dataset) TrainLen() int { r, _ := ds.trainX.Dims(); return r }

// TestLen returns the number of test examples.
func (ds *Dataset) TestLen() int { r, _ := ds.testX.Dims(); return r }

func (ds *Dataset) reshuffle() {
	if ds.perm == nil {
		ds.perm = make([]int, ds.TrainLen())
		for i := range ds.perm {
			ds.perm[i] = i
		}
	}
	ds.rng.Shuffle(len(ds.perm), func(i, j int) {
		ds.perm[i], ds.perm[j] = ds.perm[j], ds.perm[i]
	})
	ds.cursor = 0
}
