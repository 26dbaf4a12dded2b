package rasterizer

import (
	"bytes"
	"context"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"

	"github.com/pranay-lamse/crimedigest/internal/models"
)

// FitzRasterizer renders report pages to PNG images with MuPDF. Rendering
// is deterministic for a given document and DPI.
type FitzRasterizer struct {
	dpi float64
}

func NewFitzRasterizer(dpi int) *FitzRasterizer {
	if dpi <= 0 {
		dpi = 300
	}
	return &FitzRasterizer{dpi: float64(dpi)}
}

// Rasterize renders every page of the document, in order, as an in-memory
// PNG. Failing to open the document is a run-level failure; the caller gets
// no pages at all.
func (r *FitzRasterizer) Rasterize(ctx context.Context, document []byte) ([]models.PageImage, error) {
	doc, err := fitz.NewFromMemory(document)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		return nil, fmt.Errorf("document has no pages")
	}

	pages := make([]models.PageImage, 0, pageCount)
	for n := 0; n < pageCount; n++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		img, err := doc.ImageDPI(n, r.dpi)
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", n+1, err)
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode page %d: %w", n+1, err)
		}

		bounds := img.Bounds()
		pages = append(pages, models.PageImage{
			PageNumber: n + 1,
			PNG:        buf.Bytes(),
			Width:      bounds.Dx(),
			Height:     bounds.Dy(),
		})
	}

	return pages, nil
}
