package pdfops

import (
	"testing"

	"github.com/Lllllllleong/pdftools/internal/pdftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	e := newTestEngine()
	a := pdftest.Build(t, pdftest.Widths(200))
	b := pdftest.Build(t, pdftest.Widths(300, 310))
	c := pdftest.Build(t, pdftest.Widths(400, 410, 420))

	out, err := e.Merge(t.Context(), [][]byte{a, b, c})
	require.NoError(t, err)
	assert.Equal(t, []float64{200, 300, 310, 400, 410, 420}, widths(loadPages(t, out)))
}

func TestMergeSingleInput(t *testing.T) {
	out, err := newTestEngine().Merge(t.Context(), [][]byte{pdftest.Build(t, pdftest.Widths(200, 300))})
	require.NoError(t, err)
	assert.Equal(t, []float64{200, 300}, widths(loadPages(t, out)))
}

func TestMergeErrors(t *testing.T) {
	e := newTestEngine()

	_, err := e.Merge(t.Context(), nil)
	assert.ErrorIs(t, err, ErrNoInput)

	_, err = e.Merge(t.Context(), [][]byte{pdftest.Build(t, pdftest.Widths(200)), []byte("garbage")})
	assert.ErrorIs(t, err, ErrMalformedDocument)
	assert.Contains(t, err.Error(), "input 2")
}

func TestSplit(t *testing.T) {
	e := newTestEngine()
	src := pdftest.Build(t, pdftest.Widths(200, 300, 400, 500))

	tests := []struct {
		name     string
		selector string
		want     [][]float64
		wantErr  error
	}{
		{name: "ranges and singles", selector: "1-2, 4", want: [][]float64{{200, 300}, {500}}},
		{name: "clamped range", selector: "3-99", want: [][]float64{{400, 500}}},
		{name: "duplicates", selector: "2,2", want: [][]float64{{300}, {300}}},
		{name: "invalid tokens skipped", selector: "x, 3", want: [][]float64{{400}}},
		{name: "malformed selector selects first page", selector: "abc, x-2", want: [][]float64{{200}}},
		{name: "empty selector", selector: " , ", want: [][]float64{{200}}},
		{name: "out of range only", selector: "9, 7-8", wantErr: ErrEmptyResult},
		{name: "malformed and out of range", selector: "abc, 9", wantErr: ErrEmptyResult},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outs, err := e.Split(t.Context(), src, tt.selector)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			got := make([][]float64, len(outs))
			for i, out := range outs {
				got[i] = widths(loadPages(t, out))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractAndRemoveAreComplementary(t *testing.T) {
	e := newTestEngine()
	src := pdftest.Build(t, pdftest.Widths(200, 300, 400, 500, 600))

	extracted, err := e.ExtractPages(t.Context(), src, []int{2, 4})
	require.NoError(t, err)
	removed, err := e.RemovePages(t.Context(), src, []int{1, 3, 5})
	require.NoError(t, err)

	assert.Equal(t, []float64{300, 500}, widths(loadPages(t, extracted)))
	assert.Equal(t, loadPages(t, extracted), loadPages(t, removed))
}

func TestExtractPages(t *testing.T) {
	e := newTestEngine()
	src := pdftest.Build(t, pdftest.Widths(200, 300, 400))

	out, err := e.ExtractPages(t.Context(), src, []int{3, 1, 3, 7})
	require.NoError(t, err)
	assert.Equal(t, []float64{400, 200, 400}, widths(loadPages(t, out)))

	_, err = e.ExtractPages(t.Context(), src, []int{0, 9})
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestRemovePages(t *testing.T) {
	e := newTestEngine()
	src := pdftest.Build(t, pdftest.Widths(200, 300, 400, 500))

	out, err := e.RemovePages(t.Context(), src, []int{3, 1, 3})
	require.NoError(t, err)
	assert.Equal(t, []float64{300, 500}, widths(loadPages(t, out)))

	_, err = e.RemovePages(t.Context(), src, []int{1, 2, 3, 4})
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestRearrangePages(t *testing.T) {
	out, err := newTestEngine().RearrangePages(t.Context(), pdftest.Build(t, pdftest.Widths(200, 300, 400)), []int{3, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{400, 200, 300}, widths(loadPages(t, out)))
}

func TestRotatePages(t *testing.T) {
	e := newTestEngine()
	src := pdftest.Build(t, pdftest.Fixture{Pages: []pdftest.Page{
		{Width: 200, Height: 800},
		{Width: 300, Height: 800, Rotate: 270},
		{Width: 400, Height: 800, Rotate: 90},
	}})

	out, err := e.RotatePages(t.Context(), src, 90, []int{2, 3, 3})
	require.NoError(t, err)
	got := loadPages(t, out)
	assert.Equal(t, 0, got[0].Rotation)
	assert.Equal(t, 0, got[1].Rotation)
	assert.Equal(t, 270, got[2].Rotation)

	all, err := e.RotatePages(t.Context(), src, 180, nil)
	require.NoError(t, err)
	got = loadPages(t, all)
	assert.Equal(t, []int{180, 90, 270}, []int{got[0].Rotation, got[1].Rotation, got[2].Rotation})
}

func TestRotateFourTimesIsIdentity(t *testing.T) {
	e := newTestEngine()
	src := pdftest.Build(t, pdftest.Fixture{Pages: []pdftest.Page{{Width: 200, Height: 800, Rotate: 90}, {Width: 300, Height: 800}}})
	want := loadPages(t, src)

	out := src
	for range 4 {
		var err error
		out, err = e.RotatePages(t.Context(), out, 90, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, want, loadPages(t, out))
}

func TestRotateRejectsInvalidAngle(t *testing.T) {
	e := newTestEngine()
	src := pdftest.Build(t, pdftest.Widths(200))
	for _, angle := range []int{0, 45, -90, 360} {
		_, err := e.RotatePages(t.Context(), src, angle, nil)
		assert.ErrorIs(t, err, ErrInvalidRotation, "angle %d", angle)
	}
}

func TestSelection(t *testing.T) {
	assert.Equal(t, []string{"3", "1", "1"}, selection([]int{2, 0, 0}))
	assert.Equal(t, []int{0, 1, 2}, allPages(3))
	assert.Equal(t, []int{1, 3}, complement(numbers([]int{1, 3}))(4))
}
