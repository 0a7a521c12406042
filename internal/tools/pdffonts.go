// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tools

import (
	"context"
	"fmt"

	"github.com/pdiddy/textextract/internal/toolexec"
	"github.com/pdiddy/textextract/pkg/types"
)

const binPdffonts = "pdffonts"

func init() {
	registerFontInspector("pdffonts", func(r Runner, cfg types.ToolConfig) FontInspector {
		return NewPdffonts(r, cfg.PdffontsBin)
	})
}

// Pdffonts lists fonts with poppler's pdffonts.
type Pdffonts struct {
	bin string
	run Runner
}

// NewPdffonts creates a font inspector running bin (default "pdffonts").
func NewPdffonts(r Runner, bin string) *Pdffonts {
	return &Pdffonts{bin: orDefault(bin, binPdffonts), run: r}
}

func (p *Pdffonts) Name() string   { return "pdffonts" }
func (p *Pdffonts) Binary() string { return p.bin }

// ListFonts returns pdffonts' stdout. On failure whatever was printed before
// the error is returned alongside it.
func (p *Pdffonts) ListFonts(ctx context.Context, pdfPath string) (string, error) {
	res, err := p.run.Run(ctx, toolexec.Command{Name: p.bin, Args: []string{pathArg(pdfPath)}})
	if err != nil {
		return string(res.Stdout), fmt.Errorf("listing fonts of %s: %w", pdfPath, err)
	}
	return string(res.Stdout), nil
}
