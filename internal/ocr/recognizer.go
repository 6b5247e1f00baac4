// Package ocr defines the text-recognition contract and normalizes raw
// recognition output into per-variant readings.
package ocr

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"chipauth/pkg/geometry"

	"gocv.io/x/gocv"
)

// Span is one recognized word with its confidence and location.
// Confidence is normalized to [0,1].
type Span struct {
	Text       string
	Confidence float64
	Box        geometry.RectInt
}

// Recognizer is the text-recognition capability: one image in, recognized
// spans out. Implementations must be callable independently per
// preprocessed variant; errors are per call and recoverable.
type Recognizer interface {
	Recognize(img gocv.Mat) ([]Span, error)
}

// Collate assembles spans into a full-text reading and a mean confidence.
// Spans are grouped into horizontal bands by vertical position: spans whose
// centers fall within half the median span height of a band belong to that
// band. Bands become lines top to bottom; within a band spans are ordered
// left to right and joined with spaces.
func Collate(spans []Span) (text string, meanConfidence float64) {
	if len(spans) == 0 {
		return "", 0
	}

	confidences := make([]float64, len(spans))
	heights := make([]float64, len(spans))
	for i, s := range spans {
		confidences[i] = s.Confidence
		heights[i] = float64(s.Box.Height)
	}
	meanConfidence = stat.Mean(confidences, nil)

	sort.Float64s(heights)
	tolerance := int(heights[len(heights)/2] / 2)
	if tolerance < 4 {
		tolerance = 4
	}

	ordered := make([]Span, len(spans))
	copy(ordered, spans)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Box.CenterY() < ordered[j].Box.CenterY()
	})

	var bands [][]Span
	for _, s := range ordered {
		placed := false
		if len(bands) > 0 {
			last := bands[len(bands)-1]
			if abs(s.Box.CenterY()-last[0].Box.CenterY()) <= tolerance {
				bands[len(bands)-1] = append(last, s)
				placed = true
			}
		}
		if !placed {
			bands = append(bands, []Span{s})
		}
	}

	var sb []byte
	for bi, band := range bands {
		sort.SliceStable(band, func(i, j int) bool {
			return band[i].Box.X < band[j].Box.X
		})
		if bi > 0 {
			sb = append(sb, '\n')
		}
		for si, s := range band {
			if si > 0 {
				sb = append(sb, ' ')
			}
			sb = append(sb, s.Text...)
		}
	}

	return string(sb), meanConfidence
}

// AlnumDensity scores text for the orientation probe: the count of
// alphanumeric characters weighted by their share of all non-space
// characters. Correctly oriented markings read as dense alphanumeric text,
// rotated ones as sparse noise.
func AlnumDensity(text string) float64 {
	total, alnum := 0, 0
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' {
			continue
		}
		total++
		if (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
			alnum++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(alnum) * float64(alnum) / float64(total)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
