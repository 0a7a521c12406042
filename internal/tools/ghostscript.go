// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tools

import (
	"context"
	"fmt"

	"github.com/pdiddy/textextract/internal/toolexec"
	"github.com/pdiddy/textextract/pkg/types"
)

const binGhostscript = "gs"

func init() {
	registerRasterizer("ghostscript", func(r Runner, cfg types.ToolConfig) Rasterizer {
		return NewGhostscript(r, cfg.GhostscriptBin)
	})
}

// Ghostscript renders every page of a PDF into one G4-compressed TIFF.
type Ghostscript struct {
	bin string
	run Runner
}

// NewGhostscript creates a rasterizer running bin (default "gs").
func NewGhostscript(r Runner, bin string) *Ghostscript {
	return &Ghostscript{bin: orDefault(bin, binGhostscript), run: r}
}

func (g *Ghostscript) Name() string   { return "ghostscript" }
func (g *Ghostscript) Binary() string { return g.bin }

// Args returns the argument list passed to gs.
func (g *Ghostscript) Args(pdfPath, imagePath string) []string {
	return []string{
		"-dNOPAUSE",
		"-dBATCH",
		"-sDEVICE=tiffg4",
		"-sOutputFile=" + imagePath,
		pathArg(pdfPath),
	}
}

func (g *Ghostscript) Rasterize(ctx context.Context, pdfPath, imagePath string) error {
	_, err := g.run.Run(ctx, toolexec.Command{Name: g.bin, Args: g.Args(pdfPath, imagePath)})
	if err != nil {
		return fmt.Errorf("rasterizing %s: %w", pdfPath, err)
	}
	return nil
}
