// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tools

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/pdiddy/textextract/pkg/types"
)

func init() {
	registerFontInspector("pdfcpu", func(Runner, types.ToolConfig) FontInspector {
		return &PDFCPUFonts{}
	})
}

// PDFCPUFonts inspects fonts in-process with pdfcpu and renders the result
// in pdffonts' layout, so the same line-count rule applies to both backends.
type PDFCPUFonts struct{}

func (PDFCPUFonts) Name() string { return "pdfcpu" }

// FontEntry is one font resource of a PDF.
type FontEntry struct {
	Name    string
	Subtype string
	ObjNr   int
}

func (p PDFCPUFonts) ListFonts(ctx context.Context, pdfPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f, err := os.Open(pdfPath)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", pdfPath, err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	pctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return "", fmt.Errorf("pdfcpu read %s: %w", pdfPath, err)
	}

	return FormatFontListing(fontEntries(pctx)), nil
}

func fontEntries(pctx *model.Context) []FontEntry {
	if pctx.Optimize == nil {
		return nil
	}
	entries := make([]FontEntry, 0, len(pctx.Optimize.FontObjects))
	for objNr, fo := range pctx.Optimize.FontObjects {
		e := FontEntry{Name: fo.FontName, ObjNr: objNr}
		if st := fo.FontDict.NameEntry("Subtype"); st != nil {
			e.Subtype = *st
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ObjNr < entries[j].ObjNr })
	return entries
}

const (
	fontHeader = "name                                 type              object ID"
	fontRule   = "------------------------------------ ----------------- ---------"
)

// FormatFontListing renders fonts like pdffonts: header, rule, one row each.
func FormatFontListing(fonts []FontEntry) string {
	var b strings.Builder
	b.WriteString(fontHeader + "\n")
	b.WriteString(fontRule + "\n")
	for _, f := range fonts {
		fmt.Fprintf(&b, "%-36s %-17s %6d 0\n", f.Name, f.Subtype, f.ObjNr)
	}
	return b.String()
}
