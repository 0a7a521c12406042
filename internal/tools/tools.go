// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tools wraps the external programs the pipeline delegates to: a
// font inspector that probes PDFs for a text layer, a rasterizer that turns
// PDFs into TIFF images, and an OCR engine that turns images into text.
//
// Each concern has an exec-backed default (pdffonts, Ghostscript, Tesseract)
// and an in-process alternative selected by name from configuration.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/textextract/internal/toolexec"
	"github.com/pdiddy/textextract/pkg/types"
)

// Runner executes external commands. *toolexec.Runner satisfies it.
type Runner interface {
	Run(ctx context.Context, c toolexec.Command) (toolexec.Result, error)
	LookPath(name string) (string, error)
}

// Tool is implemented by every backend.
type Tool interface {
	// Name returns the backend name used in configuration.
	Name() string
}

// FontInspector lists the fonts of a PDF in pdffonts' textual layout: two
// header lines followed by one line per font.
type FontInspector interface {
	Tool
	ListFonts(ctx context.Context, pdfPath string) (string, error)
}

// Rasterizer renders a PDF into a TIFF image at imagePath.
type Rasterizer interface {
	Tool
	Rasterize(ctx context.Context, pdfPath, imagePath string) error
}

// OCREngine recognizes the text of the image at imagePath and writes it to
// outputBase + ".txt".
type OCREngine interface {
	Tool
	Recognize(ctx context.Context, imagePath, outputBase string) error
}

// binaryTool is implemented by backends that shell out to a binary.
type binaryTool interface {
	Binary() string
}

// ErrUnknownBackend is returned for a backend name nothing is registered under.
var ErrUnknownBackend = errors.New("unknown backend")

type (
	fontFactory   func(Runner, types.ToolConfig) FontInspector
	rasterFactory func(Runner, types.ToolConfig) Rasterizer
	ocrFactory    func(Runner, types.ToolConfig) OCREngine
)

var (
	fontBackends   = map[string]fontFactory{}
	rasterBackends = map[string]rasterFactory{}
	ocrBackends    = map[string]ocrFactory{}
)

func registerFontInspector(name string, f fontFactory) { fontBackends[name] = f }
func registerRasterizer(name string, f rasterFactory)  { rasterBackends[name] = f }
func registerOCR(name string, f ocrFactory)            { ocrBackends[name] = f }

// NewFontInspector returns the font inspector registered under cfg.FontInspector.
func NewFontInspector(r Runner, cfg types.ToolConfig) (FontInspector, error) {
	f, ok := fontBackends[cfg.FontInspector]
	if !ok {
		return nil, unknown("font inspector", cfg.FontInspector, fontBackends)
	}
	return f(r, cfg), nil
}

// NewRasterizer returns the rasterizer registered under cfg.Rasterizer.
func NewRasterizer(r Runner, cfg types.ToolConfig) (Rasterizer, error) {
	f, ok := rasterBackends[cfg.Rasterizer]
	if !ok {
		return nil, unknown("rasterizer", cfg.Rasterizer, rasterBackends)
	}
	return f(r, cfg), nil
}

// NewOCREngine returns the OCR engine registered under cfg.OCR.
func NewOCREngine(r Runner, cfg types.ToolConfig) (OCREngine, error) {
	f, ok := ocrBackends[cfg.OCR]
	if !ok {
		return nil, unknown("OCR engine", cfg.OCR, ocrBackends)
	}
	return f(r, cfg), nil
}

func unknown[T any](kind, name string, registry map[string]T) error {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return fmt.Errorf("%w: %s %q (available: %s)", ErrUnknownBackend, kind, name, strings.Join(names, ", "))
}

// Preflight verifies that every exec-backed tool's binary is on PATH.
func Preflight(r Runner, ts ...Tool) error {
	var missing []string
	for _, t := range ts {
		bt, ok := t.(binaryTool)
		if !ok {
			continue
		}
		if _, err := r.LookPath(bt.Binary()); err != nil {
			missing = append(missing, fmt.Sprintf("%s (%s)", bt.Binary(), t.Name()))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required tools not available: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ErrIncompatibleBackends is returned by CheckPairing.
var ErrIncompatibleBackends = errors.New("incompatible backends")

// firstPageReader is implemented by OCR engines that read only the first
// image of a multi-page TIFF.
type firstPageReader interface {
	FirstPageOnly() bool
}

// singleImageWriter is implemented by rasterizers that put every page into
// one image.
type singleImageWriter interface {
	SingleImage() bool
}

// CheckPairing rejects an OCR engine that would drop pages of the images
// the rasterizer writes.
func CheckPairing(r Rasterizer, o OCREngine) error {
	fp, ok := o.(firstPageReader)
	if !ok || !fp.FirstPageOnly() {
		return nil
	}
	if si, ok := r.(singleImageWriter); ok && si.SingleImage() {
		return nil
	}
	return fmt.Errorf("%w: OCR engine %s reads only the first page of the TIFF written by rasterizer %s; use a single-image rasterizer such as fitz",
		ErrIncompatibleBackends, o.Name(), r.Name())
}

// pathArg keeps a path from being read as an option by the callee.
func pathArg(p string) string {
	if strings.HasPrefix(p, "-") {
		return "./" + p
	}
	return p
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
