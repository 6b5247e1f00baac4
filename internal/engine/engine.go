// Package engine orchestrates the authentication pipeline: preprocessing
// variants, text extraction, reading selection, marking parsing,
// scheme validation, documentation lookup, and the scored verdict.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"chipauth/internal/docs"
	"chipauth/internal/imageio"
	"chipauth/internal/logging"
	"chipauth/internal/marking"
	"chipauth/internal/ocr"
	"chipauth/internal/preprocess"
	"chipauth/internal/reading"
	"chipauth/internal/scheme"
	"chipauth/internal/validate"
)

// Result is the complete outcome of one authentication run. It carries no
// run-scoped identifiers: identical inputs and collaborator responses
// produce identical results.
type Result struct {
	Verdict       Verdict           `json:"verdict"`
	Confidence    int               `json:"confidence"` // 0-100
	Breakdown     ScoreBreakdown    `json:"breakdown"`
	Issues        []validate.Issue  `json:"issues"`
	Extracted     marking.Extracted `json:"extracted"`
	Reading       reading.Selected  `json:"reading"`
	Documentation docs.Result       `json:"documentation"`
}

// Options tune engine behavior.
type Options struct {
	// Validation policy passed through to the marking validator.
	Validation validate.Options

	// EarlyExitQuality stops extracting further variants once a reading
	// scores at least this high. Zero picks the default cutoff;
	// a value > 1 disables early exit.
	EarlyExitQuality float64

	// OrientationProbe enables the rotation pass before preprocessing.
	OrientationProbe bool

	// BatchWorkers bounds image-level concurrency in AuthenticateMany.
	BatchWorkers int
}

// DefaultOptions returns the default engine configuration.
func DefaultOptions() Options {
	return Options{
		Validation:       validate.DefaultOptions(),
		EarlyExitQuality: reading.EarlyExitQuality,
		OrientationProbe: true,
		BatchWorkers:     2,
	}
}

// Engine runs authentication requests. Safe for sequential use; batch
// parallelism is managed internally and bounded. The scheme table is
// read-only for the engine's lifetime.
type Engine struct {
	recognizer ocr.Recognizer
	lookup     docs.Lookup
	schemes    *scheme.Table
	gen        *preprocess.Generator
	opts       Options
	log        *slog.Logger
}

// New creates an Engine. recognizer and schemes are required; a nil lookup
// degrades every documentation result to not found.
func New(recognizer ocr.Recognizer, lookup docs.Lookup, schemes *scheme.Table, opts Options, log *slog.Logger) (*Engine, error) {
	if recognizer == nil {
		return nil, fmt.Errorf("recognizer is required")
	}
	if schemes == nil {
		return nil, fmt.Errorf("scheme table is required")
	}
	if lookup == nil {
		lookup = docs.Static{}
	}
	if log == nil {
		log = logging.Discard()
	}
	if opts.EarlyExitQuality == 0 {
		opts.EarlyExitQuality = reading.EarlyExitQuality
	}
	if opts.BatchWorkers <= 0 {
		opts.BatchWorkers = 2
	}

	return &Engine{
		recognizer: recognizer,
		lookup:     lookup,
		schemes:    schemes,
		gen:        preprocess.NewGenerator(),
		opts:       opts,
		log:        log,
	}, nil
}

// Authenticate runs the full pipeline for one image. Only an unreadable
// image is fatal; every other failure degrades into issues and lower
// scores in the returned result.
func (e *Engine) Authenticate(ctx context.Context, img gocv.Mat) (*Result, error) {
	requestID := uuid.NewString()
	log := e.log.With("request_id", requestID)

	if img.Empty() {
		return nil, fmt.Errorf("%w: empty image", imageio.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	oriented := e.orient(img)
	defer oriented.Close()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	variants, err := e.gen.Generate(oriented)
	if err != nil {
		return nil, err
	}
	defer preprocess.CloseAll(variants)
	log.Debug("variants generated", "count", len(variants))

	candidates, err := e.extract(ctx, variants, log)
	if err != nil {
		return nil, err
	}

	sel, readable := reading.Select(candidates)
	log.Debug("reading selected", "variant", sel.VariantID, "quality", sel.Quality)

	var extracted marking.Extracted
	if readable {
		extracted = marking.Parse(sel.Text, e.schemes)
	}

	// Documentation lookup depends only on the part number candidates,
	// so it runs speculatively while validation continues.
	docCh := make(chan docs.Result, 1)
	go func() {
		docCh <- e.lookupDocumentation(ctx, &extracted)
	}()

	report := validate.Validate(&extracted, e.schemes, e.opts.Validation)
	doc := <-docCh

	breakdown := ScoreBreakdown{
		MarkingScore:       report.MarkingScore(),
		DocumentationScore: doc.Tier.Score(),
		OCRScore:           ocrScore(sel.Quality),
		DateBonus:          dateBonus(report.ValidDateCode),
	}
	total := WeightedTotal(breakdown)
	verdict := Decide(total, report.HasCritical(), doc.Found)

	log.Info("authentication complete",
		"verdict", verdict,
		"confidence", total,
		"part", extracted.PartNumber(),
		"issues", len(report.Issues))

	return &Result{
		Verdict:       verdict,
		Confidence:    total,
		Breakdown:     breakdown,
		Issues:        report.Issues,
		Extracted:     extracted,
		Reading:       sel,
		Documentation: doc,
	}, nil
}

// AuthenticateFile loads an image from disk and authenticates it.
func (e *Engine) AuthenticateFile(ctx context.Context, path string) (*Result, error) {
	img, err := imageio.Load(path)
	if err != nil {
		return nil, err
	}
	defer img.Close()
	return e.Authenticate(ctx, img)
}

// BatchItem pairs one batch slot with its result or failure. A failed
// image never affects the other slots.
type BatchItem struct {
	Index  int
	Result *Result
	Err    error
}

// AuthenticateFiles authenticates a list of image files with a bounded
// worker pool, preserving input order in the returned slice. Cancellation
// is cooperative: workers stop picking up new images once ctx is done, and
// already-completed results remain valid.
func (e *Engine) AuthenticateFiles(ctx context.Context, paths []string) []BatchItem {
	items := make([]BatchItem, len(paths))
	jobs := make(chan int)

	workers := min(e.opts.BatchWorkers, len(paths))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				res, err := e.AuthenticateFile(ctx, paths[idx])
				items[idx] = BatchItem{Index: idx, Result: res, Err: err}
			}
		}()
	}

	for i := range paths {
		if ctx.Err() != nil {
			for j := i; j < len(paths); j++ {
				items[j] = BatchItem{Index: j, Err: ctx.Err()}
			}
			break
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return items
}

// orient applies the orientation pass when enabled.
func (e *Engine) orient(img gocv.Mat) gocv.Mat {
	if !e.opts.OrientationProbe {
		return img.Clone()
	}
	probe := func(m gocv.Mat) float64 {
		spans, err := e.recognizer.Recognize(m)
		if err != nil {
			return 0
		}
		text, _ := ocr.Collate(spans)
		return ocr.AlnumDensity(text)
	}
	return e.gen.Orient(img, probe)
}

// extract runs text extraction per variant. A failed variant records an
// empty candidate and the pipeline continues; once a reading passes the
// early-exit cutoff the remaining variants are skipped.
func (e *Engine) extract(ctx context.Context, variants []preprocess.Variant, log *slog.Logger) ([]reading.Candidate, error) {
	candidates := make([]reading.Candidate, 0, len(variants))
	for _, v := range variants {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cand := reading.Candidate{VariantID: v.ID, Technique: v.Technique}
		spans, err := e.recognizer.Recognize(v.Mat)
		if err != nil {
			log.Warn("variant extraction failed", "variant", v.ID, "technique", v.Technique, "error", err)
			cand.Failed = true
		} else {
			cand.Spans = spans
			cand.Text, cand.MeanConfidence = ocr.Collate(spans)
		}
		candidates = append(candidates, cand)

		if reading.Score(cand) >= e.opts.EarlyExitQuality {
			log.Debug("early exit after high-quality reading", "variant", v.ID)
			break
		}
	}
	return candidates, nil
}

// lookupDocumentation tries part number candidates in priority order and
// stops at the first hit.
func (e *Engine) lookupDocumentation(ctx context.Context, extracted *marking.Extracted) docs.Result {
	for _, part := range extracted.PartNumbers {
		if ctx.Err() != nil {
			break
		}
		if r := e.lookup.Lookup(ctx, part, extracted.ManufacturerHint); r.Found {
			return r
		}
	}
	return docs.NotFound()
}
