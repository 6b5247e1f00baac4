package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"chipauth/internal/docs"
	"chipauth/internal/imageio"
	"chipauth/internal/ocr"
	"chipauth/internal/scheme"
	"chipauth/internal/validate"
	"chipauth/pkg/geometry"
)

// fakeRecognizer returns the same canned spans for every image.
type fakeRecognizer struct {
	mu    sync.Mutex
	spans []ocr.Span
	err   error
	calls int
}

func (f *fakeRecognizer) Recognize(gocv.Mat) ([]ocr.Span, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.spans, nil
}

func (f *fakeRecognizer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// lineSpans lays words out on a single line with the given confidence.
func lineSpans(confidence float64, words ...string) []ocr.Span {
	spans := make([]ocr.Span, len(words))
	x := 5
	for i, w := range words {
		width := 12 * len(w)
		spans[i] = ocr.Span{
			Text:       w,
			Confidence: confidence,
			Box:        geometry.RectInt{X: x, Y: 10, Width: width, Height: 20},
		}
		x += width + 8
	}
	return spans
}

func testEngineOptions() Options {
	opts := DefaultOptions()
	opts.OrientationProbe = false
	opts.Validation.Now = time.Date(2012, time.June, 1, 0, 0, 0, 0, time.UTC)
	return opts
}

func newTestEngine(t *testing.T, rec ocr.Recognizer, lookup docs.Lookup, opts Options) *Engine {
	t.Helper()
	table, err := scheme.Default()
	require.NoError(t, err)
	eng, err := New(rec, lookup, table, opts, nil)
	require.NoError(t, err)
	return eng
}

func testMat(t *testing.T) gocv.Mat {
	t.Helper()
	mat := gocv.NewMatWithSize(200, 400, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { mat.Close() })
	return mat
}

func TestNewRequiresCollaborators(t *testing.T) {
	table, err := scheme.Default()
	require.NoError(t, err)

	_, err = New(nil, nil, table, DefaultOptions(), nil)
	assert.Error(t, err)

	_, err = New(&fakeRecognizer{}, nil, nil, DefaultOptions(), nil)
	assert.Error(t, err)

	// A nil lookup is allowed and degrades to not found.
	eng, err := New(&fakeRecognizer{}, nil, table, DefaultOptions(), nil)
	require.NoError(t, err)
	assert.NotNil(t, eng)
}

func TestAuthenticateGenuineMarking(t *testing.T) {
	rec := &fakeRecognizer{spans: lineSpans(0.9, "ATMEL", "ATMEGA328P", "1004", "20AU")}
	lookup := docs.Static{"ATMEGA328P": {Found: true, Tier: docs.TierManufacturer}}
	eng := newTestEngine(t, rec, lookup, testEngineOptions())

	result, err := eng.Authenticate(context.Background(), testMat(t))
	require.NoError(t, err)

	assert.Equal(t, VerdictAuthentic, result.Verdict)
	assert.Equal(t, "ATMEGA328P", result.Extracted.PartNumber())
	assert.Equal(t, 40, result.Breakdown.MarkingScore)
	assert.Equal(t, 30, result.Breakdown.DocumentationScore)
	assert.Equal(t, 10, result.Breakdown.DateBonus)
	assert.GreaterOrEqual(t, result.Breakdown.OCRScore, 15)
	assert.GreaterOrEqual(t, result.Confidence, 70)
	assert.Empty(t, result.Issues)
	assert.True(t, result.Documentation.Found)
}

func TestAuthenticateCriticalOverridesDocumentation(t *testing.T) {
	// Misspelled manufacturer plus an off-format date escalates to
	// CRITICAL, which outweighs any score.
	rec := &fakeRecognizer{spans: lineSpans(0.9, "AMEL", "ATMEGA328P", "2010")}
	lookup := docs.Static{"ATMEGA328P": {Found: true, Tier: docs.TierManufacturer}}
	eng := newTestEngine(t, rec, lookup, testEngineOptions())

	result, err := eng.Authenticate(context.Background(), testMat(t))
	require.NoError(t, err)

	assert.Equal(t, VerdictCounterfeit, result.Verdict)
	assert.Equal(t, 0, result.Breakdown.MarkingScore)
	assert.Equal(t, "AMEL", result.Extracted.Misspelling)

	critical := false
	for _, is := range result.Issues {
		if is.Severity == validate.SeverityCritical {
			critical = true
		}
	}
	assert.True(t, critical)
}

func TestAuthenticateNoTextRecognized(t *testing.T) {
	rec := &fakeRecognizer{}
	eng := newTestEngine(t, rec, nil, testEngineOptions())

	result, err := eng.Authenticate(context.Background(), testMat(t))
	require.NoError(t, err)

	assert.Equal(t, VerdictCounterfeit, result.Verdict)
	assert.Equal(t, 25, result.Confidence)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, validate.CodeNoMarkings, result.Issues[0].Code)
	assert.False(t, result.Documentation.Found)
}

func TestAuthenticateRecognizerFailureDegrades(t *testing.T) {
	rec := &fakeRecognizer{err: errors.New("engine not initialized")}
	eng := newTestEngine(t, rec, nil, testEngineOptions())

	result, err := eng.Authenticate(context.Background(), testMat(t))
	require.NoError(t, err)

	assert.Equal(t, VerdictCounterfeit, result.Verdict)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, validate.CodeNoMarkings, result.Issues[0].Code)
}

func TestAuthenticateDeterministic(t *testing.T) {
	rec := &fakeRecognizer{spans: lineSpans(0.85, "CYPRESS", "CY8C29666", "1025")}
	lookup := docs.Static{"CY8C29666": {Found: true, Tier: docs.TierDistributor}}
	eng := newTestEngine(t, rec, lookup, testEngineOptions())

	first, err := eng.Authenticate(context.Background(), testMat(t))
	require.NoError(t, err)
	second, err := eng.Authenticate(context.Background(), testMat(t))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAuthenticateEarlyExitSkipsVariants(t *testing.T) {
	confident := &fakeRecognizer{spans: lineSpans(0.95, "ATMEL", "ATMEGA328P", "1004", "20AU")}
	eng := newTestEngine(t, confident, nil, testEngineOptions())
	_, err := eng.Authenticate(context.Background(), testMat(t))
	require.NoError(t, err)
	assert.Equal(t, 1, confident.callCount())

	hesitant := &fakeRecognizer{spans: lineSpans(0.5, "ATMEL", "ATMEGA328P", "1004", "20AU")}
	eng = newTestEngine(t, hesitant, nil, testEngineOptions())
	_, err = eng.Authenticate(context.Background(), testMat(t))
	require.NoError(t, err)
	assert.Greater(t, hesitant.callCount(), 1)
}

func TestAuthenticateEmptyImage(t *testing.T) {
	eng := newTestEngine(t, &fakeRecognizer{}, nil, testEngineOptions())

	empty := gocv.NewMat()
	defer empty.Close()

	_, err := eng.Authenticate(context.Background(), empty)
	assert.ErrorIs(t, err, imageio.ErrInvalidInput)
}

func TestAuthenticateCancelledContext(t *testing.T) {
	eng := newTestEngine(t, &fakeRecognizer{}, nil, testEngineOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.Authenticate(ctx, testMat(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func writeTestPNG(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.Gray{Y: uint8((x + y) % 256)})
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestAuthenticateFilesPreservesOrder(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeTestPNG(t, dir, "a.png"),
		filepath.Join(dir, "missing.png"),
		writeTestPNG(t, dir, "b.png"),
	}

	rec := &fakeRecognizer{spans: lineSpans(0.9, "ATMEL", "ATMEGA328P", "1004")}
	opts := testEngineOptions()
	opts.BatchWorkers = 2
	eng := newTestEngine(t, rec, nil, opts)

	items := eng.AuthenticateFiles(context.Background(), paths)
	require.Len(t, items, 3)

	for i, item := range items {
		assert.Equal(t, i, item.Index)
	}
	require.NoError(t, items[0].Err)
	assert.NotNil(t, items[0].Result)
	assert.Error(t, items[1].Err)
	assert.Nil(t, items[1].Result)
	require.NoError(t, items[2].Err)
	assert.NotNil(t, items[2].Result)
}

func TestAuthenticateFilesCancelledUpFront(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 4; i++ {
		paths = append(paths, writeTestPNG(t, dir, fmt.Sprintf("chip%d.png", i)))
	}

	eng := newTestEngine(t, &fakeRecognizer{}, nil, testEngineOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := eng.AuthenticateFiles(ctx, paths)
	require.Len(t, items, 4)
	for _, item := range items {
		assert.ErrorIs(t, item.Err, context.Canceled)
	}
}
