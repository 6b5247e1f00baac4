package preprocess

import (
	"image"

	"gocv.io/x/gocv"
)

// ProbeFunc scores a candidate orientation; higher means more readable
// text. Probes read the image only, they never keep a reference to it.
type ProbeFunc func(img gocv.Mat) float64

// probeMaxDimension bounds the probe image size. Orientation only needs a
// rough reading, so probing runs on a downscaled copy.
const probeMaxDimension = 900

// Orient finds the canonical orientation of a marking photograph. All four
// cardinal rotations get a quick contrast normalization and are scored by
// the probe; the rotation with the highest alphanumeric density wins, ties
// keep the earlier rotation. The returned Mat is always a new buffer owned
// by the caller. A nil probe returns the input unrotated.
func (g *Generator) Orient(img gocv.Mat, probe ProbeFunc) gocv.Mat {
	if probe == nil || img.Empty() {
		return img.Clone()
	}

	bestRotation := 0
	bestScore := -1.0
	for _, rotation := range []int{0, 90, 180, 270} {
		rotated := rotate(img, rotation)

		probeImg := shrinkForProbe(rotated)
		gray := g.grayscale(probeImg)
		probeImg.Close()
		normalized := g.clahe(gray)
		gray.Close()

		score := probe(normalized)
		normalized.Close()
		rotated.Close()

		if score > bestScore {
			bestScore = score
			bestRotation = rotation
		}
	}

	return rotate(img, bestRotation)
}

// rotate returns a new Mat rotated by 0, 90, 180 or 270 degrees clockwise.
func rotate(img gocv.Mat, degrees int) gocv.Mat {
	out := gocv.NewMat()
	switch degrees {
	case 90:
		gocv.Rotate(img, &out, gocv.Rotate90Clockwise)
	case 180:
		gocv.Rotate(img, &out, gocv.Rotate180Clockwise)
	case 270:
		gocv.Rotate(img, &out, gocv.Rotate90CounterClockwise)
	default:
		out.Close()
		return img.Clone()
	}
	return out
}

// shrinkForProbe downscales an image for the orientation probe.
func shrinkForProbe(img gocv.Mat) gocv.Mat {
	longest := max(img.Rows(), img.Cols())
	if longest <= probeMaxDimension {
		return img.Clone()
	}

	scale := float64(probeMaxDimension) / float64(longest)
	out := gocv.NewMat()
	gocv.Resize(img, &out, image.Point{}, scale, scale, gocv.InterpolationArea)
	return out
}
