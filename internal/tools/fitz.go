// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tools

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"
	"os"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/image/tiff"

	"github.com/pdiddy/textextract/pkg/types"
)

const (
	defaultFitzDPI = 300
	minFitzDPI     = 72

	// defaultMaxPixels caps the stacked grayscale canvas at about 400 MB.
	defaultMaxPixels = 400_000_000
)

// ErrImageTooLarge is returned when a document cannot be stacked into one
// image within the pixel budget, even at the minimum resolution.
var ErrImageTooLarge = errors.New("rasterized image too large")

func init() {
	registerRasterizer("fitz", func(Runner, types.ToolConfig) Rasterizer {
		return &FitzRasterizer{DPI: defaultFitzDPI}
	})
}

// FitzRasterizer renders pages with MuPDF (go-fitz) and stacks them
// top-to-bottom into a single grayscale TIFF. Long documents are rendered at
// a lower resolution so the canvas stays within MaxPixels.
type FitzRasterizer struct {
	DPI float64
	// MaxPixels bounds the canvas size (default about 400 million pixels).
	MaxPixels int
}

func (f *FitzRasterizer) Name() string { return "fitz" }

func (f *FitzRasterizer) SingleImage() bool { return true }

func (f *FitzRasterizer) Rasterize(ctx context.Context, pdfPath, imagePath string) error {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", pdfPath, err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if n == 0 {
		return fmt.Errorf("rasterizing %s: document has no pages", pdfPath)
	}

	bounds := make([]image.Rectangle, n)
	for i := range bounds {
		if bounds[i], err = doc.Bound(i); err != nil {
			return fmt.Errorf("measuring page %d of %s: %w", i+1, pdfPath, err)
		}
	}

	maxPixels := f.MaxPixels
	if maxPixels <= 0 {
		maxPixels = defaultMaxPixels
	}
	dpi, size, err := layoutPages(bounds, f.DPI, maxPixels)
	if err != nil {
		return fmt.Errorf("rasterizing %s: %w", pdfPath, err)
	}

	canvas := image.NewGray(size)
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	y := 0
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := doc.ImageDPI(i, dpi)
		if err != nil {
			return fmt.Errorf("rendering page %d of %s: %w", i+1, pdfPath, err)
		}
		y = drawPage(canvas, page, y)
	}
	if y < size.Dy() {
		canvas = canvas.SubImage(image.Rect(0, 0, size.Dx(), y)).(*image.Gray)
	}

	out, err := os.Create(imagePath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", imagePath, err)
	}
	if err := tiff.Encode(out, canvas, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		out.Close()
		return fmt.Errorf("encoding %s: %w", imagePath, err)
	}
	return out.Close()
}

// layoutPages sizes the stacked canvas for pages with the given bounds (in
// points) at dpi, lowering dpi until the canvas fits in maxPixels.
func layoutPages(bounds []image.Rectangle, dpi float64, maxPixels int) (float64, image.Rectangle, error) {
	if dpi <= 0 {
		dpi = defaultFitzDPI
	}
	for {
		size := canvasSize(bounds, dpi)
		pixels := size.Dx() * size.Dy()
		if pixels <= maxPixels {
			return dpi, size, nil
		}
		next := math.Floor(dpi * math.Sqrt(float64(maxPixels)/float64(pixels)))
		if next >= dpi {
			next = dpi - 1
		}
		if next < minFitzDPI {
			return 0, image.Rectangle{}, fmt.Errorf("%w: %d pages need %d pixels at %.0f DPI (limit %d)",
				ErrImageTooLarge, len(bounds), pixels, dpi, maxPixels)
		}
		dpi = next
	}
}

// canvasSize is as wide as the widest page and as tall as all pages, with a
// pixel of slack per page for rounding in the renderer.
func canvasSize(bounds []image.Rectangle, dpi float64) image.Rectangle {
	scale := dpi / 72
	width, height := 0, 0
	for _, b := range bounds {
		w := int(math.Ceil(float64(b.Dx())*scale)) + 1
		if w > width {
			width = w
		}
		height += int(math.Ceil(float64(b.Dy())*scale)) + 1
	}
	return image.Rect(0, 0, width, height)
}

// drawPage draws page onto canvas at row y and returns the row below it.
func drawPage(canvas *image.Gray, page image.Image, y int) int {
	b := page.Bounds()
	dst := image.Rect(0, y, b.Dx(), y+b.Dy())
	draw.Draw(canvas, dst, page, b.Min, draw.Src)
	return y + b.Dy()
}
