package pdfops

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Image is raster input for ImagesToDocument.
type Image struct {
	MIMEType string
	Data     []byte
}

// SupportedImage reports whether mimeType is an accepted raster format.
func SupportedImage(mimeType string) bool {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(mimeType))
	}
	switch mt {
	case "image/png", "image/jpeg", "image/jpg":
		return true
	}
	return false
}

// ImagesToDocument builds a document with one page per supported image,
// each page sized to the image. Unsupported images are skipped.
func (e *Engine) ImagesToDocument(ctx context.Context, imgs []Image) ([]byte, error) {
	readers := make([]io.Reader, 0, len(imgs))
	for i, img := range imgs {
		if !SupportedImage(img.MIMEType) {
			e.log.Warn("Skipping unsupported image.", "index", i, "mimeType", img.MIMEType)
			continue
		}
		if _, _, err := image.DecodeConfig(bytes.NewReader(img.Data)); err != nil {
			return nil, fmt.Errorf("image %d: failed to decode %s: %w", i+1, img.MIMEType, err)
		}
		readers = append(readers, bytes.NewReader(img.Data))
	}
	if len(readers) == 0 {
		return nil, fmt.Errorf("%w: no supported images", ErrEmptyResult)
	}

	imp, err := api.Import("pos:full", types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("failed to configure image import: %w", err)
	}
	out, err := e.write(ctx, func(w io.Writer) error {
		return api.ImportImages(nil, w, readers, imp, newConfiguration())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to import images: %w", err)
	}
	e.log.Info("Converted images to document.", "inputCount", len(imgs), "pageCount", len(readers))
	return out, nil
}
