package pdfops

import (
	"testing"

	"github.com/Lllllllleong/pdftools/internal/pdftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelOrigin(t *testing.T) {
	page := Page{Width: 600, Height: 800}
	const width = 100.0

	tests := []struct {
		pos  Position
		x, y float64
	}{
		{pos: BottomCenter, x: 250, y: 30},
		{pos: BottomLeft, x: 30, y: 30},
		{pos: BottomRight, x: 470, y: 30},
		{pos: TopLeft, x: 30, y: 770},
		{pos: TopCenter, x: 250, y: 770},
		{pos: TopRight, x: 470, y: 770},
	}
	for _, tt := range tests {
		t.Run(tt.pos.String(), func(t *testing.T) {
			x, y := labelOrigin(tt.pos, page, width)
			assert.InDelta(t, tt.x, x, 1e-9)
			assert.InDelta(t, tt.y, y, 1e-9)
		})
	}
}

func TestWatermarkOrigin(t *testing.T) {
	x, y := watermarkOrigin(Page{Width: 612, Height: 792}, 212)
	assert.InDelta(t, 200, x, 1e-9)
	assert.InDelta(t, 396, y, 1e-9)
}

func TestPageLabel(t *testing.T) {
	assert.Equal(t, "Page 3 of 10", pageLabel("Page {n} of {total}", 3, 10))
	assert.Equal(t, "4/4 (4)", pageLabel("{n}/{total} ({n})", 4, 4))
	assert.Equal(t, "static", pageLabel("static", 1, 2))
}

func TestParsePosition(t *testing.T) {
	for p := range positionNames {
		got, err := ParsePosition(" " + p.String() + " ")
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParsePosition("middle")
	assert.Error(t, err)
	assert.Equal(t, BottomCenter, PageNumberOptions{}.Position)
}

func TestColorHex(t *testing.T) {
	assert.Equal(t, "#808080", Color{R: 0.5, G: 0.5, B: 0.5}.hex())
	assert.Equal(t, "#000000", Color{}.hex())
	assert.Equal(t, "#FF0000", Color{R: 2, G: -1}.hex())
}

func TestTextWidthScalesWithFontSize(t *testing.T) {
	small := textWidth("CONFIDENTIAL", 10)
	large := textWidth("CONFIDENTIAL", 20)
	assert.Greater(t, small, 0.0)
	assert.InDelta(t, 2*small, large, 1e-6)
	assert.Zero(t, textWidth("", 12))
}

func TestAddWatermark(t *testing.T) {
	e := newTestEngine()
	src := pdftest.Build(t, pdftest.Widths(612, 842))

	out, err := e.AddWatermark(t.Context(), src, "DRAFT", DefaultWatermarkOptions())
	require.NoError(t, err)
	assert.Equal(t, loadPages(t, src), loadPages(t, out))
	assert.NotEqual(t, src, out)

	_, err = e.AddWatermark(t.Context(), src, "", DefaultWatermarkOptions())
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestWrapAngle(t *testing.T) {
	for in, want := range map[float64]float64{
		0: 0, -45: -45, 180: 180, -180: 180, 270: -90, -270: 90, 405: 45, 720: 0,
	} {
		assert.InDelta(t, want, wrapAngle(in), 1e-9, "wrapAngle(%v)", in)
	}
}

func TestAddWatermarkAcceptsAnyAngle(t *testing.T) {
	e := newTestEngine()
	src := pdftest.Build(t, pdftest.Widths(612))
	for _, rotation := range []float64{270, -315, 540} {
		opts := DefaultWatermarkOptions()
		opts.Rotation = rotation
		out, err := e.AddWatermark(t.Context(), src, "DRAFT", opts)
		require.NoError(t, err, "rotation %v", rotation)
		assert.Len(t, loadPages(t, out), 1)
	}
}

func TestAddPageNumbers(t *testing.T) {
	e := newTestEngine()
	src := pdftest.Build(t, pdftest.Widths(612, 612, 612))

	for p := range positionNames {
		t.Run(p.String(), func(t *testing.T) {
			opts := DefaultPageNumberOptions()
			opts.Position = p
			out, err := e.AddPageNumbers(t.Context(), src, opts)
			require.NoError(t, err)
			assert.Len(t, loadPages(t, out), 3)
		})
	}

	_, err := e.AddPageNumbers(t.Context(), src, PageNumberOptions{Format: "   "})
	assert.ErrorIs(t, err, ErrEmptyText)
}
