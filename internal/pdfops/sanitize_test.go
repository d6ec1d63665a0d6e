package pdfops

import (
	"strings"
	"testing"

	"github.com/Lllllllleong/pdftools/internal/pdftest"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSavings(t *testing.T) {
	assert.InDelta(t, 0.25, Savings(1000, 750), 1e-9)
	assert.InDelta(t, -0.5, Savings(1000, 1500), 1e-9)
	assert.Zero(t, Savings(0, 10))
}

func TestCompress(t *testing.T) {
	e := New(Config{ToolIdentifier: "Test Tool", Logger: newTestEngine().log})
	src := pdftest.Build(t, pdftest.Fixture{
		Pages: pdftest.Widths(612, 612).Pages,
		Info: map[string]string{
			"Title":    "Quarterly numbers",
			"Author":   "Finance",
			"Subject":  "Revenue",
			"Keywords": "q3 revenue",
			"Creator":  "Word",
		},
	})

	res, err := e.Compress(t.Context(), src)
	require.NoError(t, err)
	assert.Equal(t, len(src), res.InputSize)
	assert.Equal(t, len(res.Data), res.OutputSize)
	assert.InDelta(t, 1-float64(len(res.Data))/float64(len(src)), res.Savings, 1e-9)

	info, err := e.Info(t.Context(), res.Data)
	require.NoError(t, err)
	assert.Equal(t, 2, info.PageCount)
	assert.Empty(t, info.Title)
	assert.Empty(t, info.Author)
	assert.Empty(t, info.Subject)
	assert.Empty(t, info.Keywords)
	assert.Equal(t, "Test Tool", info.Creator)
}

func TestCompressWithoutInfoDictionary(t *testing.T) {
	e := newTestEngine()
	res, err := e.Compress(t.Context(), pdftest.Build(t, pdftest.Widths(300)))
	require.NoError(t, err)

	info, err := e.Info(t.Context(), res.Data)
	require.NoError(t, err)
	assert.Equal(t, DefaultToolIdentifier, info.Creator)
}

func TestFlatten(t *testing.T) {
	e := newTestEngine()
	src := pdftest.Build(t, pdftest.Fixture{Pages: pdftest.Widths(612, 612).Pages, Form: true})

	before, err := e.Load(t.Context(), src)
	require.NoError(t, err)
	root, err := before.ctx.Catalog()
	require.NoError(t, err)
	_, found := root.Find("AcroForm")
	require.True(t, found)

	out, err := e.Flatten(t.Context(), src)
	require.NoError(t, err)

	doc, err := e.Load(t.Context(), out)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.PageCount())

	root, err = doc.ctx.Catalog()
	require.NoError(t, err)
	_, found = root.Find("AcroForm")
	assert.False(t, found)

	pageDict, _, _, err := doc.ctx.PageDict(1, false)
	require.NoError(t, err)
	_, found = pageDict.Find("Annots")
	assert.False(t, found)

	res, err := doc.ctx.DereferenceDict(pageDict["Resources"])
	require.NoError(t, err)
	xobjects, err := doc.ctx.DereferenceDict(res["XObject"])
	require.NoError(t, err)
	var names []string
	for name := range xobjects {
		if strings.HasPrefix(name, "FlatAP") {
			names = append(names, name)
		}
	}
	assert.Equal(t, []string{"FlatAP0"}, names)
	assert.Contains(t, pageContent(t, doc, pageDict), "/FlatAP0 Do")
}

// pageContent decodes and concatenates the content streams of a page.
func pageContent(t *testing.T, doc *Document, pageDict types.Dict) string {
	t.Helper()
	o, found := pageDict.Find("Contents")
	require.True(t, found)
	obj, err := doc.ctx.Dereference(o)
	require.NoError(t, err)

	refs := types.Array{o}
	if arr, ok := obj.(types.Array); ok {
		refs = arr
	}
	var content strings.Builder
	for _, ref := range refs {
		obj, err := doc.ctx.Dereference(ref)
		require.NoError(t, err)
		sd, ok := obj.(types.StreamDict)
		require.True(t, ok, "content is %T", obj)
		require.NoError(t, sd.Decode())
		content.Write(sd.Content)
		content.WriteString("\n")
	}
	return content.String()
}

func TestFlattenWithoutForm(t *testing.T) {
	e := newTestEngine()
	src := pdftest.Build(t, pdftest.Widths(200, 300))
	out, err := e.Flatten(t.Context(), src)
	require.NoError(t, err)
	assert.Equal(t, loadPages(t, src), loadPages(t, out))
}

func TestTransformBox(t *testing.T) {
	x0, y0, x1, y1 := transformBox([]float64{0, 0, 200, 20}, []float64{1, 0, 0, 1, 0, 0})
	assert.Equal(t, []float64{0, 0, 200, 20}, []float64{x0, y0, x1, y1})

	// Quarter turn: (x, y) -> (-y, x).
	x0, y0, x1, y1 = transformBox([]float64{0, 0, 200, 20}, []float64{0, 1, -1, 0, 0, 0})
	assert.Equal(t, []float64{-20, 0, 0, 200}, []float64{x0, y0, x1, y1})
}

func TestFreeName(t *testing.T) {
	d := types.NewDict()
	d.Insert("FlatAP0", types.Integer(1))
	assert.Equal(t, "FlatAP1", freeName(d, "FlatAP"))
}
