package mnist

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func imageFile(count int, pixel func(img, idx int) byte) []byte {
	buf := &bytes.Buffer{}
	binary.Write(buf, binary.BigEndian, int32(imageMagic))
	binary.Write(buf, binary.BigEndian, int32(count))
	binary.Write(buf, binary.BigEndian, int32(imageHeight))
	binary.Write(buf, binary.BigEndian, int32(imageWidth))
	for i := 0; i < count; i++ {
		for j := 0; j < PixelCount; j++ {
			buf.WriteByte(pixel(i, j))
		}
	}
	return buf.Bytes()
}

func labelFile(labels []byte) []byte {
	buf := &bytes.Buffer{}
	binary.Write(buf, binary.BigEndian, int32(labelMagic))
	binary.Write(buf, binary.BigEndian, int32(len(labels)))
	buf.Write(labels)
	return buf.Bytes()
}

func TestDecodeImages(t *testing.T) {
	raw := imageFile(3, func(img, idx int) byte {
		if idx == img {
			return 255
		}
		return 0
	})
	images, err := decodeImages(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decodeImages: %v", err)
	}
	rows, cols := images.Dims()
	if rows != 3 || cols != PixelCount {
		t.Fatalf("got %dx%d, want 3x%d", rows, cols, PixelCount)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < PixelCount; j++ {
			want := 0.0
			if j == i {
				want = 1.0
			}
			if got := images.At(i, j); got != want {
				t.Fatalf("image %d pixel %d = %v, want %v", i, j, got, want)
			}
		}
	}
}

func TestDecodeImagesBadMagic(t *testing.T) {
	raw := imageFile(1, func(int, int) byte { return 0 })
	raw[3] = 0x42
	if _, err := decodeImages(bytes.NewReader(raw)); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestDecodeImagesTruncated(t *testing.T) {
	raw := imageFile(2, func(int, int) byte { return 0 })
	if _, err := decodeImages(bytes.NewReader(raw[:len(raw)-100])); err == nil {
		t.Fatal("expected error for truncated file")
	}
}

func TestDecodeLabelsOneHot(t *testing.T) {
	labels, err := decodeLabels(bytes.NewReader(labelFile([]byte{0, 7, 9})))
	if err != nil {
		t.Fatalf("decodeLabels: %v", err)
	}
	rows, cols := labels.Dims()
	if rows != 3 || cols != NumClasses {
		t.Fatalf("got %dx%d, want 3x%d", rows, cols, NumClasses)
	}
	want := []int{0, 7, 9}
	for i := 0; i < rows; i++ {
		hot := -1
		for j := 0; j < cols; j++ {
			switch labels.At(i, j) {
			case 0:
			case 1:
				if hot >= 0 {
					t.Fatalf("row %d has multiple hot entries", i)
				}
				hot = j
			default:
				t.Fatalf("row %d entry %d is %v", i, j, labels.At(i, j))
			}
		}
		if hot != want[i] {
			t.Fatalf("row %d hot at %d, want %d", i, hot, want[i])
		}
	}
}

func TestDecodeLabelsOutOfRange(t *testing.T) {
	if _, err := decodeLabels(bytes.NewReader(labelFile([]byte{10}))); err == nil {
		t.Fatal("expected error for label 10")
	}
}
