package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRectInt(t *testing.T) {
	r := NewRectInt(5, 10, 40, 20)
	assert.Equal(t, RectInt{X: 5, Y: 10, Width: 40, Height: 20}, r)
}

func TestCenterY(t *testing.T) {
	assert.Equal(t, 20, NewRectInt(5, 10, 40, 20).CenterY())
	assert.Equal(t, 10, NewRectInt(0, 10, 40, 0).CenterY())
	assert.Equal(t, 17, NewRectInt(0, 10, 0, 15).CenterY())
}
