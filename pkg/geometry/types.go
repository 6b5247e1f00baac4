// Package geometry provides basic geometric types used throughout the application.
package geometry

// RectInt represents a rectangle with integer coordinates.
type RectInt struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewRectInt creates a new RectInt.
func NewRectInt(x, y, width, height int) RectInt {
	return RectInt{X: x, Y: y, Width: width, Height: height}
}

// CenterY returns the vertical center of the rectangle.
func (r RectInt) CenterY() int {
	return r.Y + r.Height/2
}
