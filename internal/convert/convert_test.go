// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/textextract/pkg/types"
)

// loremTen has eleven words but only ten runs of three or more letters.
const (
	loremTen    = "lorem ipsum dolor sit amet consectetur adipiscing elit sed do eiusmod"
	loremEleven = loremTen + " tempor"
)

// fakeService returns canned text per path and records calls.
type fakeService struct {
	texts     map[string]string
	textErr   map[string]error
	metadata  string
	metaErr   error
	textCalls []string
	metaCalls []string
}

func (f *fakeService) ExtractText(_ context.Context, path string) (string, error) {
	f.textCalls = append(f.textCalls, path)
	return f.texts[path], f.textErr[path]
}

func (f *fakeService) ExtractMetadata(_ context.Context, path string, w io.Writer) error {
	f.metaCalls = append(f.metaCalls, path)
	if f.metaErr != nil {
		return f.metaErr
	}
	meta := f.metadata
	if meta == "" {
		meta = `{"resourceName":"` + filepath.Base(path) + `"}`
	}
	_, err := io.WriteString(w, meta)
	return err
}

// fakeFonts returns a listing per path; unknown paths have no fonts.
type fakeFonts struct {
	listings map[string]string
	err      error
	calls    []string
}

func (f *fakeFonts) ListFonts(_ context.Context, path string) (string, error) {
	f.calls = append(f.calls, path)
	return f.listings[path], f.err
}

// fakeRasterizer writes a placeholder image.
type fakeRasterizer struct {
	err   error
	calls []string
}

func (f *fakeRasterizer) Rasterize(_ context.Context, pdfPath, imagePath string) error {
	f.calls = append(f.calls, pdfPath+" -> "+imagePath)
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(imagePath, []byte("II*\x00"), 0o644)
}

// fakeOCR writes outputBase.txt the way tesseract does.
type fakeOCR struct {
	text  string
	err   error
	calls []string
}

func (f *fakeOCR) Recognize(_ context.Context, imagePath, outputBase string) error {
	f.calls = append(f.calls, imagePath+" -> "+outputBase)
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outputBase+".txt", []byte(f.text), 0o644)
}

// recorder collects reports.
type recorder struct {
	reports []types.Report
}

func (r *recorder) Record(_ context.Context, rep types.Report) error {
	r.reports = append(r.reports, rep)
	return nil
}

const (
	noFonts  = "name type\n---- ----\n"
	oneFont  = "name type\n---- ----\nHelvetica Type1\n"
	ocrBody  = "recognized from image"
	fakeTIFF = "II*\x00"
)

type harness struct {
	service *fakeService
	fonts   *fakeFonts
	raster  *fakeRasterizer
	ocr     *fakeOCR
	rec     *recorder
	logs    *bytes.Buffer
	driver  *Driver
}

func newHarness(t *testing.T, skip bool) *harness {
	t.Helper()
	h := &harness{
		service: &fakeService{texts: map[string]string{}, textErr: map[string]error{}},
		fonts:   &fakeFonts{listings: map[string]string{}},
		raster:  &fakeRasterizer{},
		ocr:     &fakeOCR{text: ocrBody},
		rec:     &recorder{},
		logs:    &bytes.Buffer{},
	}
	d, err := New(Config{
		Service:       h.service,
		Fonts:         h.fonts,
		Rasterizer:    h.raster,
		OCR:           h.ocr,
		Recorder:      h.rec,
		SkipConverted: skip,
		Logger:        slog.New(slog.NewTextHandler(h.logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	})
	require.NoError(t, err)
	h.driver = d
	return h
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestWordCount(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a an the", 1},
		{"don't stop", 2},
		{"abcdef", 1},
		{"123 4567 ab-cd", 0},
		{"héllo wörld", 2},
		{"naïve résumé", 1},
		{"x1abc2defg", 2},
		{loremTen, 10},
		{loremEleven, 11},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, WordCount(tt.text))
		})
	}
}

func TestWordCountPolicy_Boundary(t *testing.T) {
	p := WordCountPolicy{Min: DefaultMinWords}
	ten := strings.Repeat("word ", 10)
	eleven := strings.Repeat("word ", 11)

	assert.Equal(t, 10, WordCount(ten))
	assert.False(t, p.Succeeded(ten), "exactly 10 words must not succeed")
	assert.True(t, p.Succeeded(eleven), "11 words must succeed")
}

func TestPolicyFunc(t *testing.T) {
	var p SuccessPolicy = PolicyFunc(func(text string) bool { return strings.Contains(text, "ok") })
	assert.True(t, p.Succeeded("ok"))
	assert.False(t, p.Succeeded("no"))
}

func TestCheckForText(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		ext       string
		listing   string
		err       error
		want      bool
		wantProbe bool
	}{
		{name: "spreadsheet always text-bearing", path: "a.xls", ext: ".xls", want: true},
		{name: "image always text-bearing", path: "scan.png", ext: ".png", listing: "", want: true},
		{name: "pdf with header only", path: "a.pdf", ext: ".pdf", listing: noFonts, want: false, wantProbe: true},
		{name: "pdf with one font", path: "a.pdf", ext: ".pdf", listing: oneFont, want: true, wantProbe: true},
		{name: "pdf with empty output", path: "a.pdf", ext: ".pdf", want: false, wantProbe: true},
		{name: "upper-case pdf extension", path: "A.PDF", ext: ".PDF", listing: oneFont, want: true, wantProbe: true},
		{name: "inspector failure counts as no fonts", path: "a.pdf", ext: ".pdf", err: errors.New("exit 1"), want: false, wantProbe: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, false)
			h.fonts.listings[tt.path] = tt.listing
			h.fonts.err = tt.err

			assert.Equal(t, tt.want, h.driver.CheckForText(context.Background(), tt.path, tt.ext))
			assert.Equal(t, tt.wantProbe, len(h.fonts.calls) == 1)
		})
	}
}

func TestConvertDocument_TextBearingPDF(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "report.pdf")
	writeFile(t, pdf, "%PDF")

	h := newHarness(t, true)
	h.fonts.listings[pdf] = oneFont
	h.service.texts[pdf] = loremEleven

	rep, err := h.driver.ConvertDocument(context.Background(), pdf)
	require.NoError(t, err)

	assert.Equal(t, types.OutcomeConverted, rep.Outcome)
	assert.True(t, rep.TextBearing)
	assert.Equal(t, loremEleven, readFile(t, filepath.Join(dir, "report.txt")))
	assert.Empty(t, h.raster.calls)
	assert.Empty(t, h.ocr.calls)
	assert.FileExists(t, filepath.Join(dir, "report_metadata_.json"))
	assert.Contains(t, h.logs.String(), "converted to text from document")
}

func TestConvertDocument_NoFontsPDFFallsBackToOCR(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "scan.pdf")
	writeFile(t, pdf, "%PDF")

	h := newHarness(t, true)
	h.fonts.listings[pdf] = noFonts
	h.service.texts[pdf] = loremEleven

	rep, err := h.driver.ConvertDocument(context.Background(), pdf)
	require.NoError(t, err)

	assert.Equal(t, types.OutcomeOCR, rep.Outcome)
	assert.False(t, rep.TextBearing)
	assert.Empty(t, h.service.textCalls, "text service must not run for a PDF without fonts")
	require.Len(t, h.raster.calls, 1)
	assert.Equal(t, pdf+" -> "+filepath.Join(dir, "scan.tiff"), h.raster.calls[0])
	require.Len(t, h.ocr.calls, 1)
	assert.Equal(t, filepath.Join(dir, "scan.tiff")+" -> "+filepath.Join(dir, "scan"), h.ocr.calls[0])

	// Only the OCR engine wrote the text output.
	assert.Equal(t, ocrBody, readFile(t, filepath.Join(dir, "scan.txt")))
	assert.Equal(t, fakeTIFF, readFile(t, filepath.Join(dir, "scan.tiff")))

	logs := h.logs.String()
	assert.Contains(t, logs, "converted to tiff image")
	assert.Contains(t, logs, "converted to text from image")
}

func TestConvertDocument_TenWordPDFFallsBackToOCR(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "lorem.pdf")
	writeFile(t, pdf, "%PDF")

	h := newHarness(t, false)
	h.fonts.listings[pdf] = oneFont
	h.service.texts[pdf] = loremTen

	rep, err := h.driver.ConvertDocument(context.Background(), pdf)
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeOCR, rep.Outcome)
	assert.Equal(t, 10, rep.Words)
}

func TestConvertDocument_ShortPDFTextFallsBackToOCR(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "thin.pdf")
	writeFile(t, pdf, "%PDF")

	h := newHarness(t, false)
	h.fonts.listings[pdf] = oneFont
	h.service.texts[pdf] = strings.Repeat("word ", 10)

	rep, err := h.driver.ConvertDocument(context.Background(), pdf)
	require.NoError(t, err)

	assert.Equal(t, types.OutcomeOCR, rep.Outcome)
	assert.Equal(t, 10, rep.Words)
	assert.Len(t, h.service.textCalls, 1)
	assert.Len(t, h.ocr.calls, 1)
	assert.Equal(t, ocrBody, readFile(t, filepath.Join(dir, "thin.txt")))
}

func TestConvertDocument_ServiceFailureOnPDFFallsBackToOCR(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "a.pdf")
	writeFile(t, pdf, "%PDF")

	h := newHarness(t, false)
	h.fonts.listings[pdf] = oneFont
	h.service.textErr[pdf] = errors.New("connection refused")

	rep, err := h.driver.ConvertDocument(context.Background(), pdf)
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeOCR, rep.Outcome)
	assert.Contains(t, h.logs.String(), "text extraction failed")
}

func TestConvertDocument_NonPDF(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		err      error
		wantText string
		wantWarn bool
	}{
		{name: "enough words", text: loremEleven, wantText: loremEleven},
		{name: "short text saved verbatim", text: "Q1 sum", wantText: "Q1 sum", wantWarn: true},
		{name: "service failure saves empty text", err: errors.New("reset by peer"), wantText: "", wantWarn: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			xls := filepath.Join(dir, "budget.xls")
			writeFile(t, xls, "xls bytes")

			h := newHarness(t, false)
			h.service.texts[xls] = tt.text
			if tt.err != nil {
				h.service.textErr[xls] = tt.err
			}

			rep, err := h.driver.ConvertDocument(context.Background(), xls)
			require.NoError(t, err)

			assert.Equal(t, types.OutcomeConverted, rep.Outcome)
			assert.True(t, rep.TextBearing)
			assert.Equal(t, tt.wantText, readFile(t, filepath.Join(dir, "budget.txt")))
			assert.Empty(t, h.fonts.calls)
			assert.Empty(t, h.raster.calls)
			assert.Empty(t, h.ocr.calls)
			assert.Equal(t, tt.wantWarn, strings.Contains(h.logs.String(), "below threshold"))
		})
	}
}

func TestConvertDocument_SkipConverted(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "done.pdf")
	writeFile(t, pdf, "%PDF")
	writeFile(t, filepath.Join(dir, "done.txt"), "")
	writeFile(t, filepath.Join(dir, "done_metadata_.json"), "stale")

	h := newHarness(t, true)
	h.fonts.listings[pdf] = noFonts
	h.service.metadata = `{"fresh":true}`

	rep, err := h.driver.ConvertDocument(context.Background(), pdf)
	require.NoError(t, err)

	assert.Equal(t, types.OutcomeSkipped, rep.Outcome)
	assert.Empty(t, h.service.textCalls)
	assert.Empty(t, h.fonts.calls)
	assert.Empty(t, h.raster.calls)
	assert.Empty(t, h.ocr.calls)
	assert.Equal(t, []string{pdf}, h.service.metaCalls)
	assert.Equal(t, `{"fresh":true}`, readFile(t, filepath.Join(dir, "done_metadata_.json")))
	assert.Equal(t, "", readFile(t, filepath.Join(dir, "done.txt")), "existing output is left as is, even if empty")
	assert.Contains(t, h.logs.String(), "already converted")
}

func TestConvertDocument_SkippedStillGetsMetadata(t *testing.T) {
	dir := t.TempDir()
	sheet := filepath.Join(dir, "budget.xlsx")
	writeFile(t, sheet, "xlsx")
	writeFile(t, filepath.Join(dir, "budget.txt"), "done")

	doc := types.NewDocument(sheet)
	require.False(t, doc.HasMetadata())

	h := newHarness(t, true)
	h.service.metadata = `{"Content-Type":"application/vnd.ms-excel"}`

	rep, err := h.driver.ConvertDocument(context.Background(), sheet)
	require.NoError(t, err)

	assert.Equal(t, types.OutcomeSkipped, rep.Outcome)
	assert.True(t, doc.HasMetadata())
	assert.True(t, doc.HasText())
	assert.Equal(t, "done", readFile(t, doc.TextPath()))
}

func TestConvertDocument_ReprocessWhenSkipDisabled(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "notes.docx")
	writeFile(t, doc, "docx")
	writeFile(t, filepath.Join(dir, "notes.txt"), "old")

	h := newHarness(t, false)
	h.service.texts[doc] = loremEleven

	rep, err := h.driver.ConvertDocument(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeConverted, rep.Outcome)
	assert.Equal(t, loremEleven, readFile(t, filepath.Join(dir, "notes.txt")))
}

func TestConvertDocument_MetadataFailureIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "a.csv")
	writeFile(t, doc, "a,b")

	h := newHarness(t, false)
	h.service.metaErr = errors.New("connection refused")
	h.service.texts[doc] = loremEleven

	rep, err := h.driver.ConvertDocument(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeConverted, rep.Outcome)
	assert.Contains(t, h.logs.String(), "metadata extraction failed")
}

func TestConvertDocument_OCRFailure(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "scan.pdf")
	writeFile(t, pdf, "%PDF")

	h := newHarness(t, false)
	h.ocr.err = errors.New("tesseract exited with code 1")

	rep, err := h.driver.ConvertDocument(context.Background(), pdf)
	require.Error(t, err)
	assert.Equal(t, types.OutcomeFailed, rep.Outcome)
	assert.Contains(t, rep.Error, "tesseract")
	assert.NoFileExists(t, filepath.Join(dir, "scan.txt"))
	assert.FileExists(t, filepath.Join(dir, "scan.tiff"), "intermediate image is left behind")
}

func TestConvertDocument_UpperCaseExtension(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "in.pdf.d")
	pdf := filepath.Join(dir, "SCAN.PDF")
	writeFile(t, pdf, "%PDF")

	h := newHarness(t, false)

	rep, err := h.driver.ConvertDocument(context.Background(), pdf)
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeOCR, rep.Outcome)
	assert.FileExists(t, filepath.Join(dir, "SCAN_metadata_.json"))
	assert.FileExists(t, filepath.Join(dir, "SCAN.tiff"))
	assert.Equal(t, "%PDF", readFile(t, pdf), "source must never be overwritten")
}

func TestProcessDocuments(t *testing.T) {
	dir := t.TempDir()
	text := filepath.Join(dir, "a", "text.pdf")
	scan := filepath.Join(dir, "a", "scan.pdf")
	done := filepath.Join(dir, "b", "done.pdf")
	broken := filepath.Join(dir, "b", "broken.pdf")
	sheet := filepath.Join(dir, "b", "sheet.xls")
	for _, p := range []string{text, scan, done, broken, sheet} {
		writeFile(t, p, "bytes")
	}
	writeFile(t, filepath.Join(dir, "b", "done.txt"), "already here")

	h := newHarness(t, true)
	h.fonts.listings[text] = oneFont
	h.service.texts[text] = loremEleven
	h.service.texts[sheet] = loremEleven

	// broken.pdf: rasterizer fails only for it.
	failing := &selectiveRasterizer{fail: broken, inner: h.raster}
	h.driver.cfg.Rasterizer = failing

	res, err := h.driver.ProcessDocuments(context.Background(), []string{
		filepath.Join(dir, "**", "*.pdf"),
		filepath.Join(dir, "*", "*.xls"),
		filepath.Join(dir, "nothing", "*.doc"),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Converted)
	assert.Equal(t, 1, res.OCR)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 5, res.Total())
	assert.True(t, res.HasFailures())

	// Metadata runs for every match in traversal order, patterns in order.
	assert.Equal(t, []string{scan, text, broken, done, sheet}, h.service.metaCalls)

	require.Len(t, h.rec.reports, 5)
	assert.Equal(t, types.OutcomeFailed, h.rec.reports[2].Outcome)
	assert.Equal(t, types.OutcomeSkipped, h.rec.reports[3].Outcome)

	logs := h.logs.String()
	assert.Contains(t, logs, "pattern matched no files")
	assert.Contains(t, logs, "batch finished")
	assert.Contains(t, logs, "conversion failed")
}

func TestProcessDocuments_BadPattern(t *testing.T) {
	h := newHarness(t, false)
	_, err := h.driver.ProcessDocuments(context.Background(), []string{"docs/[.pdf"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pattern")
}

func TestProcessDocuments_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.xls"), "x")
	writeFile(t, filepath.Join(dir, "b.xls"), "x")

	ctx, cancel := context.WithCancel(context.Background())
	h := newHarness(t, false)
	h.driver.cfg.Service = &cancellingService{fakeService: h.service, cancel: cancel}

	res, err := h.driver.ProcessDocuments(ctx, []string{filepath.Join(dir, "*.xls")})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Total())
	require.Len(t, h.rec.reports, 1)
	assert.NoFileExists(t, filepath.Join(dir, "a.txt"))
}

func TestNew_MissingDependencies(t *testing.T) {
	_, err := New(Config{Service: &fakeService{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Fonts, Rasterizer, OCR")
}

func TestExpand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "x", "y", "deep.pdf"), "")
	writeFile(t, filepath.Join(dir, "top.pdf"), "")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "folder.pdf"), 0o755))

	got, err := Expand(filepath.Join(dir, "**", "*.pdf"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "top.pdf"),
		filepath.Join(dir, "x", "y", "deep.pdf"),
	}, got)
}

func TestExpand_SkipsDotfiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "top.pdf"), "")
	writeFile(t, filepath.Join(dir, ".hidden.pdf"), "")
	writeFile(t, filepath.Join(dir, "._top.pdf"), "")
	writeFile(t, filepath.Join(dir, ".cache", "cached.pdf"), "")
	writeFile(t, filepath.Join(dir, "sub", "inner.pdf"), "")
	writeFile(t, filepath.Join(dir, "sub", ".trash", "old.pdf"), "")

	tests := []struct {
		name    string
		pattern string
		want    []string
	}{
		{
			name:    "star skips dotfiles",
			pattern: filepath.Join(dir, "*.pdf"),
			want:    []string{filepath.Join(dir, "top.pdf")},
		},
		{
			name:    "double star skips hidden directories",
			pattern: filepath.Join(dir, "**", "*.pdf"),
			want: []string{
				filepath.Join(dir, "sub", "inner.pdf"),
				filepath.Join(dir, "top.pdf"),
			},
		},
		{
			name:    "dot in pattern matches dotfiles",
			pattern: filepath.Join(dir, ".*.pdf"),
			want: []string{
				filepath.Join(dir, "._top.pdf"),
				filepath.Join(dir, ".hidden.pdf"),
			},
		},
		{
			name:    "literal hidden directory",
			pattern: filepath.Join(dir, ".cache", "*.pdf"),
			want:    []string{filepath.Join(dir, ".cache", "cached.pdf")},
		},
		{
			name:    "literal dotfile",
			pattern: filepath.Join(dir, ".hidden.pdf"),
			want:    []string{filepath.Join(dir, ".hidden.pdf")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Expand(tt.pattern)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

// selectiveRasterizer fails for one path and delegates otherwise.
type selectiveRasterizer struct {
	fail  string
	inner Rasterizer
}

func (s *selectiveRasterizer) Rasterize(ctx context.Context, pdfPath, imagePath string) error {
	if pdfPath == s.fail {
		return errors.New("gs exited with code 1")
	}
	return s.inner.Rasterize(ctx, pdfPath, imagePath)
}

// cancellingService cancels the batch while extracting metadata.
type cancellingService struct {
	*fakeService
	cancel context.CancelFunc
}

func (c *cancellingService) ExtractMetadata(ctx context.Context, path string, w io.Writer) error {
	c.cancel()
	return ctx.Err()
}
