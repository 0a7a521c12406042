// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/textextract/internal/toolexec"
	"github.com/pdiddy/textextract/pkg/types"
)

const binTesseract = "tesseract"

func init() {
	registerOCR("tesseract", func(r Runner, cfg types.ToolConfig) OCREngine {
		return NewTesseract(r, cfg.TesseractBin, cfg.OCRLanguages...)
	})
}

// Tesseract runs the tesseract CLI, which writes <outputBase>.txt itself.
type Tesseract struct {
	bin       string
	languages []string
	run       Runner
}

// NewTesseract creates an OCR engine running bin (default "tesseract").
func NewTesseract(r Runner, bin string, languages ...string) *Tesseract {
	return &Tesseract{bin: orDefault(bin, binTesseract), languages: languages, run: r}
}

func (t *Tesseract) Name() string   { return "tesseract" }
func (t *Tesseract) Binary() string { return t.bin }

// Args returns the argument list passed to tesseract.
func (t *Tesseract) Args(imagePath, outputBase string) []string {
	args := []string{pathArg(imagePath), pathArg(outputBase)}
	if len(t.languages) > 0 {
		args = append(args, "-l", strings.Join(t.languages, "+"))
	}
	return args
}

func (t *Tesseract) Recognize(ctx context.Context, imagePath, outputBase string) error {
	_, err := t.run.Run(ctx, toolexec.Command{Name: t.bin, Args: t.Args(imagePath, outputBase)})
	if err != nil {
		return fmt.Errorf("recognizing %s: %w", imagePath, err)
	}
	return nil
}
