// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build gosseract

package tools

import (
	"context"
	"fmt"
	"os"

	"github.com/otiai10/gosseract/v2"

	"github.com/pdiddy/textextract/pkg/types"
)

// The gosseract backend links libtesseract through cgo, so it is only
// compiled with -tags gosseract.
func init() {
	registerOCR("gosseract", func(_ Runner, cfg types.ToolConfig) OCREngine {
		return &Gosseract{languages: cfg.OCRLanguages, clientFactory: gosseract.NewClient}
	})
}

// Gosseract recognizes text in-process. Leptonica reads only the first
// image of a multi-page TIFF, so CheckPairing limits it to single-image
// rasterizers.
type Gosseract struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

func (g *Gosseract) Name() string { return "gosseract" }

func (g *Gosseract) FirstPageOnly() bool { return true }

func (g *Gosseract) Recognize(ctx context.Context, imagePath, outputBase string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c := g.clientFactory()
	defer c.Close()

	if len(g.languages) > 0 {
		if err := c.SetLanguage(g.languages...); err != nil {
			return fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetImage(imagePath); err != nil {
		return fmt.Errorf("set image %s: %w", imagePath, err)
	}
	text, err := c.Text()
	if err != nil {
		return fmt.Errorf("recognizing %s: %w", imagePath, err)
	}
	return os.WriteFile(outputBase+types.TextSuffix, []byte(text), 0o644)
}
