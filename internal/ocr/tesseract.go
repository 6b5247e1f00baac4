package ocr

import (
	"fmt"
	"strings"
	"sync"

	"chipauth/pkg/geometry"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// ElectronicsChars is the character set for IC package OCR.
// Excludes lowercase to reduce confusion (0/O, 1/I, etc.)
const ElectronicsChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ-/."

// Tesseract recognizes text using the Tesseract engine via gosseract.
// A single client is serialized with a mutex: Tesseract does not support
// concurrent recognition on one handle, so only one extraction is in
// flight at a time.
type Tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseract creates a Tesseract-backed recognizer tuned for component
// markings.
func NewTesseract() (*Tesseract, error) {
	client := gosseract.NewClient()

	if err := client.SetLanguage("eng"); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}

	// Disable dictionary-based word correction - part numbers aren't
	// English words and must not be "corrected" into them.
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")
	_ = client.SetVariable("language_model_penalty_non_dict_word", "0")
	_ = client.SetVariable("language_model_penalty_non_freq_dict_word", "0")

	return &Tesseract{client: client}, nil
}

// Close releases OCR resources.
func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client != nil {
		err := t.client.Close()
		t.client = nil
		return err
	}
	return nil
}

// Recognize runs word-level OCR over the whole image and returns the
// detected spans with confidences normalized to [0,1].
func (t *Tesseract) Recognize(img gocv.Mat) ([]Span, error) {
	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	buf, err := gocv.IMEncode(gocv.PNGFileExt, img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client == nil {
		return nil, fmt.Errorf("recognizer closed")
	}

	// PSM sparse text: marking lines are scattered blocks, not a page.
	if err := t.client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		return nil, fmt.Errorf("failed to set PSM: %w", err)
	}
	if err := t.client.SetWhitelist(ElectronicsChars); err != nil {
		return nil, fmt.Errorf("failed to set whitelist: %w", err)
	}
	if err := t.client.SetImageFromBytes(buf.GetBytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	var spans []Span
	for _, box := range boxes {
		text := strings.ToUpper(strings.TrimSpace(box.Word))
		if text == "" {
			continue
		}

		spans = append(spans, Span{
			Text:       text,
			Confidence: box.Confidence / 100.0,
			Box:        geometry.NewRectInt(box.Box.Min.X, box.Box.Min.Y, box.Box.Dx(), box.Box.Dy()),
		})
	}

	return spans, nil
}
