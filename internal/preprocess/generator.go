// Package preprocess produces deterministic image transform variants for
// OCR. Each variant is an independent buffer; no variant mutates another.
package preprocess

import (
	"fmt"
	"image"

	"chipauth/internal/imageio"

	"gocv.io/x/gocv"
)

// Variant is one preprocessed rendition of the input image.
type Variant struct {
	ID        int
	Technique string
	Mat       gocv.Mat
}

// Close releases the variant's buffer.
func (v *Variant) Close() {
	if !v.Mat.Empty() {
		v.Mat.Close()
	}
}

// CloseAll releases every variant in the list.
func CloseAll(variants []Variant) {
	for i := range variants {
		variants[i].Close()
	}
}

// Generator builds the preprocessing variant list.
type Generator struct {
	// CLAHEClipLimit and CLAHETileSize tune contrast-limited adaptive
	// equalization. Defaults match what works for molded IC packages.
	CLAHEClipLimit float64
	CLAHETileSize  int

	// MinDimension: images smaller than this are upscaled before
	// preprocessing, small package crops OCR poorly at native size.
	MinDimension int
}

// NewGenerator returns a generator with default parameters.
func NewGenerator() *Generator {
	return &Generator{
		CLAHEClipLimit: 2.0,
		CLAHETileSize:  8,
		MinDimension:   150,
	}
}

// Generate produces the ordered variant list for one image. The input is
// read only; every variant owns its buffer. An undecodable (empty) input
// fails fast with no partial list.
func (g *Generator) Generate(img gocv.Mat) ([]Variant, error) {
	if img.Empty() {
		return nil, fmt.Errorf("%w: empty image", imageio.ErrInvalidInput)
	}

	gray := g.grayscale(img)

	variants := make([]Variant, 0, 6)
	add := func(technique string, m gocv.Mat) {
		variants = append(variants, Variant{ID: len(variants), Technique: technique, Mat: m})
	}

	add("gray", gray.Clone())
	add("clahe", g.clahe(gray))

	enhanced := g.clahe(gray)
	add("clahe-otsu", binarizeOtsu(enhanced))
	enhanced.Close()

	add("adaptive", adaptiveThreshold(gray))
	add("denoise-clahe", g.denoiseCLAHE(gray))
	add("unsharp", unsharpMask(gray))

	gray.Close()
	return variants, nil
}

// grayscale converts to gray and upscales small crops for OCR.
func (g *Generator) grayscale(img gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	if img.Channels() > 1 {
		gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	} else {
		gray = img.Clone()
	}

	minDim := min(gray.Rows(), gray.Cols())
	if minDim > 0 && minDim < g.MinDimension {
		scale := float64(g.MinDimension) / float64(minDim)
		scaled := gocv.NewMat()
		gocv.Resize(gray, &scaled, image.Point{}, scale, scale, gocv.InterpolationCubic)
		gray.Close()
		return scaled
	}
	return gray
}

// clahe applies contrast-limited adaptive histogram equalization.
func (g *Generator) clahe(gray gocv.Mat) gocv.Mat {
	c := gocv.NewCLAHEWithParams(g.CLAHEClipLimit, image.Point{X: g.CLAHETileSize, Y: g.CLAHETileSize})
	defer c.Close()

	out := gocv.NewMat()
	c.Apply(gray, &out)
	return out
}

// binarizeOtsu applies global automatic thresholding. Marking text is
// often light on a dark package; when the white ratio says so, the binary
// image is inverted so OCR sees dark text on light background.
func binarizeOtsu(gray gocv.Mat) gocv.Mat {
	binary := gocv.NewMat()
	gocv.Threshold(gray, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	whiteCount := gocv.CountNonZero(binary)
	totalPixels := binary.Rows() * binary.Cols()
	if totalPixels > 0 && float64(whiteCount)/float64(totalPixels) > 0.5 {
		gocv.BitwiseNot(binary, &binary)
	}
	return binary
}

// adaptiveThreshold applies local mean thresholding, which copes with
// uneven lighting across the package surface.
func adaptiveThreshold(gray gocv.Mat) gocv.Mat {
	binary := gocv.NewMat()
	gocv.AdaptiveThreshold(gray, &binary, 255,
		gocv.AdaptiveThresholdMean, gocv.ThresholdBinary, 31, 10)
	return binary
}

// denoiseCLAHE runs an edge-preserving bilateral filter before contrast
// enhancement, for grainy photographs.
func (g *Generator) denoiseCLAHE(gray gocv.Mat) gocv.Mat {
	denoised := gocv.NewMat()
	gocv.BilateralFilter(gray, &denoised, 9, 75, 75)

	out := g.clahe(denoised)
	denoised.Close()
	return out
}

// unsharpMask sharpens laser-etched markings: subtract a Gaussian blur
// from the original with overshoot.
func unsharpMask(gray gocv.Mat) gocv.Mat {
	blurred := gocv.NewMat()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: 0, Y: 0}, 3, 3, gocv.BorderDefault)

	out := gocv.NewMat()
	gocv.AddWeighted(gray, 1.5, blurred, -0.5, 0, &out)
	blurred.Close()
	return out
}
