// Package imageio loads and decodes component photographs for analysis.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/tiff"

	"gocv.io/x/gocv"
)

// ErrInvalidInput indicates an image that could not be decoded. It is the
// only fatal error in a single authentication run: no partial results are
// produced from an unreadable image.
var ErrInvalidInput = errors.New("invalid input image")

// maxDimension bounds the working image size. Photographs larger than this
// are downscaled once before preprocessing to keep OCR cost predictable.
const maxDimension = 4000

// Load reads an image file from disk and returns it as a Mat.
func Load(path string) (gocv.Mat, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("%w: %s: %v", ErrInvalidInput, path, err)
	}
	img, err := Decode(data)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("%w: %s", ErrInvalidInput, path)
	}
	return img, nil
}

// Decode decodes raw image bytes into a Mat. OpenCV handles the common
// formats; scanner output in TIFF falls back to the Go decoders.
func Decode(data []byte) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.NewMat(), fmt.Errorf("%w: empty buffer", ErrInvalidInput)
	}

	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err == nil && !img.Empty() {
		return bounded(img), nil
	}
	if err == nil {
		img.Close()
	}

	src, _, derr := image.Decode(bytes.NewReader(data))
	if derr != nil {
		return gocv.NewMat(), fmt.Errorf("%w: cannot decode buffer", ErrInvalidInput)
	}
	mat, cerr := gocv.ImageToMatRGB(src)
	if cerr != nil || mat.Empty() {
		return gocv.NewMat(), fmt.Errorf("%w: cannot convert decoded image", ErrInvalidInput)
	}
	return bounded(mat), nil
}

// bounded downscales img in place if it exceeds maxDimension.
func bounded(img gocv.Mat) gocv.Mat {
	h, w := img.Rows(), img.Cols()
	longest := max(h, w)
	if longest <= maxDimension {
		return img
	}

	scale := float64(maxDimension) / float64(longest)
	scaled := gocv.NewMat()
	gocv.Resize(img, &scaled, image.Point{}, scale, scale, gocv.InterpolationArea)
	img.Close()
	return scaled
}
