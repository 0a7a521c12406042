// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert drives batch document-to-text conversion. For every file
// matched by a pattern it extracts metadata, honors the skip-converted mode,
// probes PDFs for a text layer, extracts text directly and falls back to
// rasterize-then-OCR when a PDF yields too little text.
//
// Files are processed one at a time in directory-traversal order. External
// tools and services are injected as interfaces.
package convert

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pdiddy/textextract/pkg/types"
)

// Extractor is the text- and metadata-extraction service.
type Extractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
	ExtractMetadata(ctx context.Context, path string, w io.Writer) error
}

// FontInspector lists a PDF's fonts, one line per font after two header lines.
type FontInspector interface {
	ListFonts(ctx context.Context, pdfPath string) (string, error)
}

// Rasterizer renders a PDF into a TIFF image.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath, imagePath string) error
}

// OCREngine recognizes an image and writes outputBase + ".txt" itself.
type OCREngine interface {
	Recognize(ctx context.Context, imagePath, outputBase string) error
}

// Recorder receives the report of every processed document.
type Recorder interface {
	Record(ctx context.Context, r types.Report) error
}

// Config wires a Driver.
type Config struct {
	Service    Extractor
	Fonts      FontInspector
	Rasterizer Rasterizer
	OCR        OCREngine

	// Policy decides whether direct extraction succeeded
	// (default WordCountPolicy{Min: DefaultMinWords}).
	Policy SuccessPolicy

	// Recorder is optional.
	Recorder Recorder

	// SkipConverted leaves documents with an existing .txt output alone.
	// Their metadata is still regenerated.
	SkipConverted bool

	// Logger for progress and warnings (default slog.Default()).
	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Policy == nil {
		c.Policy = WordCountPolicy{Min: DefaultMinWords}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Driver runs documents through the conversion pipeline.
type Driver struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Driver. Service, Fonts, Rasterizer and OCR are required.
func New(cfg Config) (*Driver, error) {
	cfg.defaults()

	var missing []string
	if cfg.Service == nil {
		missing = append(missing, "Service")
	}
	if cfg.Fonts == nil {
		missing = append(missing, "Fonts")
	}
	if cfg.Rasterizer == nil {
		missing = append(missing, "Rasterizer")
	}
	if cfg.OCR == nil {
		missing = append(missing, "OCR")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("convert: missing %s", strings.Join(missing, ", "))
	}

	return &Driver{cfg: cfg, logger: cfg.Logger}, nil
}

// BatchResult holds the outcome counts of a batch run.
type BatchResult struct {
	Converted int
	OCR       int
	Skipped   int
	Failed    int
}

// Total returns the number of documents processed.
func (r BatchResult) Total() int {
	return r.Converted + r.OCR + r.Skipped + r.Failed
}

// HasFailures reports whether any document failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

func (r *BatchResult) add(o types.Outcome) {
	switch o {
	case types.OutcomeConverted:
		r.Converted++
	case types.OutcomeOCR:
		r.OCR++
	case types.OutcomeSkipped:
		r.Skipped++
	case types.OutcomeFailed:
		r.Failed++
	}
}

func (r *BatchResult) merge(o BatchResult) {
	r.Converted += o.Converted
	r.OCR += o.OCR
	r.Skipped += o.Skipped
	r.Failed += o.Failed
}

// ProcessDocuments converts every file matched by each pattern, in order.
// It stops early only when ctx is done or a pattern is malformed.
func (d *Driver) ProcessDocuments(ctx context.Context, patterns []string) (BatchResult, error) {
	var total BatchResult
	for _, pattern := range patterns {
		res, err := d.ConvertDocuments(ctx, pattern)
		total.merge(res)
		if err != nil {
			return total, err
		}
	}
	d.logger.Info("batch finished",
		"converted", total.Converted,
		"ocr", total.OCR,
		"skipped", total.Skipped,
		"failed", total.Failed,
		"total", total.Total(),
	)
	return total, nil
}

// ConvertDocuments converts every file matched by pattern.
func (d *Driver) ConvertDocuments(ctx context.Context, pattern string) (BatchResult, error) {
	var result BatchResult

	paths, err := Expand(pattern)
	if err != nil {
		return result, err
	}
	if len(paths) == 0 {
		d.logger.Warn("pattern matched no files", "pattern", pattern)
		return result, nil
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		rep, err := d.ConvertDocument(ctx, path)
		result.add(rep.Outcome)
		d.record(ctx, rep)

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			d.logger.Error("conversion failed", "path", path, "error", err)
		}
	}
	return result, nil
}

// ConvertDocument runs one document through the pipeline. The returned error
// is non-nil only when the report's outcome is failed.
func (d *Driver) ConvertDocument(ctx context.Context, path string) (types.Report, error) {
	doc := types.NewDocument(path)
	rep := types.Report{Path: path}
	log := d.logger.With("path", path)

	// Metadata is regenerated even for documents that are skipped below.
	d.extractMetadata(ctx, doc, log)
	if err := ctx.Err(); err != nil {
		return d.fail(rep, err)
	}

	if d.cfg.SkipConverted && doc.HasText() {
		log.Info("already converted")
		rep.Outcome = types.OutcomeSkipped
		return rep, nil
	}

	var text string
	succeeded := false
	rep.TextBearing = d.CheckForText(ctx, doc.Path, doc.Extension)
	if rep.TextBearing {
		text = d.docToText(ctx, doc, log)
		if err := ctx.Err(); err != nil {
			return d.fail(rep, err)
		}
		rep.Words = WordCount(text)
		succeeded = d.cfg.Policy.Succeeded(text)
	}

	if !succeeded && doc.IsPDF() {
		if err := d.fallbackOCR(ctx, doc, log); err != nil {
			return d.fail(rep, err)
		}
		rep.Outcome = types.OutcomeOCR
		return rep, nil
	}

	if !succeeded {
		log.Warn("extracted text below threshold, saving as is", "words", rep.Words)
	}
	if err := os.WriteFile(doc.TextPath(), []byte(text), 0o644); err != nil {
		return d.fail(rep, fmt.Errorf("saving %s: %w", doc.TextPath(), err))
	}
	rep.Outcome = types.OutcomeConverted
	return rep, nil
}

// CheckForText reports whether a document likely carries a text layer. PDFs
// are text-bearing when the font listing has more than two lines; every
// other format is assumed text-bearing. A failing inspector counts as no
// fonts.
func (d *Driver) CheckForText(ctx context.Context, path, extension string) bool {
	if !strings.EqualFold(extension, ".pdf") {
		return true
	}
	listing, err := d.cfg.Fonts.ListFonts(ctx, path)
	if err != nil {
		d.logger.Warn("font inspection failed", "path", path, "error", err)
	}
	return strings.Count(listing, "\n") > 2
}

func (d *Driver) extractMetadata(ctx context.Context, doc types.Document, log *slog.Logger) {
	f, err := os.Create(doc.MetadataPath())
	if err != nil {
		log.Warn("metadata extraction failed", "error", err)
		return
	}
	defer f.Close()

	if err := d.cfg.Service.ExtractMetadata(ctx, doc.Path, f); err != nil {
		log.Warn("metadata extraction failed", "error", err)
		return
	}
	log.Debug("metadata extracted", "output", doc.MetadataPath())
}

// docToText returns the service's text, or whatever arrived before a failure.
func (d *Driver) docToText(ctx context.Context, doc types.Document, log *slog.Logger) string {
	text, err := d.cfg.Service.ExtractText(ctx, doc.Path)
	if err != nil {
		log.Warn("text extraction failed", "error", err)
		return text
	}
	log.Info("converted to text from document")
	return text
}

// fallbackOCR rasterizes the PDF next to it and OCRs the image. The OCR
// engine writes the .txt output.
func (d *Driver) fallbackOCR(ctx context.Context, doc types.Document, log *slog.Logger) error {
	img := doc.ImagePath()
	if err := d.cfg.Rasterizer.Rasterize(ctx, doc.Path, img); err != nil {
		return err
	}
	log.Info("converted to tiff image", "image", img)

	if err := d.cfg.OCR.Recognize(ctx, img, doc.BasePath()); err != nil {
		return err
	}
	log.Info("converted to text from image", "image", img)
	return nil
}

func (d *Driver) fail(rep types.Report, err error) (types.Report, error) {
	rep.Outcome = types.OutcomeFailed
	rep.Error = err.Error()
	return rep, err
}

func (d *Driver) record(ctx context.Context, rep types.Report) {
	if d.cfg.Recorder == nil {
		return
	}
	// The report of the document that saw cancellation is still recorded.
	if err := d.cfg.Recorder.Record(context.WithoutCancel(ctx), rep); err != nil {
		d.logger.Warn("recording outcome failed", "path", rep.Path, "error", err)
	}
}
