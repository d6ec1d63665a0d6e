package pdfops

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestEngine() *Engine {
	return New(Config{
		ParseTimeout: 20 * time.Second,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

// loadPages parses data with a fresh engine and returns its page geometry.
func loadPages(t testing.TB, data []byte) []Page {
	t.Helper()
	doc, err := newTestEngine().Load(t.Context(), data)
	require.NoError(t, err)
	pages, err := doc.Pages()
	require.NoError(t, err)
	return pages
}

func widths(pages []Page) []float64 {
	ws := make([]float64, len(pages))
	for i, p := range pages {
		ws[i] = p.Width
	}
	return ws
}
