package mnist

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// IDX file magics, per the canonical MNIST distribution.
const (
	imageMagic = 0x00000803
	labelMagic = 0x00000801
)

const (
	imageWidth  = 28
	imageHeight = 28
	// PixelCount is the flattened image size.
	PixelCount = imageWidth * imageHeight
	// NumClasses is the number of digit labels.
	NumClasses = 10
)

// decodeImages reads an IDX image file into a (count, 784) matrix with
// pixel values scaled to [0, 1].
func decodeImages(r io.Reader) (*mat.Dense, error) {
	var header struct {
		Magic  int32
		Count  int32
		Height int32
		Width  int32
	}
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, errors.Wrap(err, "read image header")
	}
	if header.Magic != imageMagic {
		return nil, errors.Errorf("image magic is 0x%08x, want 0x%08x", header.Magic, imageMagic)
	}
	if header.Height != imageHeight || header.Width != imageWidth {
		return nil, errors.Errorf("images are %dx%d, want %dx%d", header.Height, header.Width, imageHeight, imageWidth)
	}
	count := int(header.Count)
	if count <= 0 {
		return nil, errors.Errorf("image count %d", count)
	}

	images := mat.NewDense(count, PixelCount, nil)
	buf := make([]byte, PixelCount)
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, errors.Wrapf(err, "read image %d", i)
		}
		row := images.RawRowView(i)
		for j, b := range buf {
			row[j] = float64(b) / 255.0
		}
	}
	return images, nil
}

// decodeLabels reads an IDX label file into a (count, 10) one-hot matrix.
func decodeLabels(r io.Reader) (*mat.Dense, error) {
	var header struct {
		Magic int32
		Count int32
	}
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, errors.Wrap(err, "read label header")
	}
	if header.Magic != labelMagic {
		return nil, errors.Errorf("label magic is 0x%08x, want 0x%08x", header.Magic, labelMagic)
	}
	count := int(header.Count)
	if count <= 0 {
		return nil, errors.Errorf("label count %d", count)
	}

	raw := make([]byte, count)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, errors.Wrap(err, "read label data")
	}
	labels := mat.NewDense(count, NumClasses, nil)
	for i, b := range raw {
		if int(b) >= NumClasses {
			return nil, errors.Errorf("label %d is %d, want 0..%d", i, b, NumClasses-1)
		}
		labels.Set(i, int(b), 1)
	}
	return labels, nil
}
