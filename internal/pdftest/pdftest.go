// Package pdftest builds small, valid PDF documents and raster images for
// tests.
package pdftest

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// Page is the geometry of one fixture page.
type Page struct {
	Width, Height float64
	Rotate        int
}

// Fixture describes a document for Build.
type Fixture struct {
	Pages []Page
	Info  map[string]string
	// Form adds a text field widget with an appearance stream on page 1.
	Form bool
}

// Widths returns a fixture with one 800pt high page per width.
func Widths(widths ...float64) Fixture {
	f := Fixture{}
	for _, w := range widths {
		f.Pages = append(f.Pages, Page{Width: w, Height: 800})
	}
	return f
}

// Build writes a minimal uncompressed document with a correct
// cross-reference table.
func Build(t testing.TB, f Fixture) []byte {
	t.Helper()
	require.NotEmpty(t, f.Pages)

	n := len(f.Pages)
	const catalogNr, pagesNr, fontNr = 1, 2, 3
	pageNr := func(i int) int { return 4 + 2*i }
	contentNr := func(i int) int { return 5 + 2*i }
	next := 4 + 2*n
	infoNr, widgetNr, apNr := next, next+1, next+2

	objs := map[int]string{}

	catalog := fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R", pagesNr)
	if f.Form {
		catalog += fmt.Sprintf(" /AcroForm << /Fields [%d 0 R] /DA (/Helv 0 Tf 0 g) /DR << /Font << /Helv %d 0 R >> >> >>", widgetNr, fontNr)
	}
	objs[catalogNr] = catalog + " >>"

	var kids bytes.Buffer
	for i := range f.Pages {
		fmt.Fprintf(&kids, "%d 0 R ", pageNr(i))
	}
	objs[pagesNr] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids.String(), n)
	objs[fontNr] = "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>"

	for i, p := range f.Pages {
		page := fmt.Sprintf("<< /Type /Page /Parent %d 0 R /MediaBox [0 0 %g %g] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R",
			pagesNr, p.Width, p.Height, fontNr, contentNr(i))
		if p.Rotate != 0 {
			page += fmt.Sprintf(" /Rotate %d", p.Rotate)
		}
		if f.Form && i == 0 {
			page += fmt.Sprintf(" /Annots [%d 0 R]", widgetNr)
		}
		objs[pageNr(i)] = page + " >>"
		objs[contentNr(i)] = stream("", fmt.Sprintf("BT /F1 12 Tf 72 72 Td (Page %d) Tj ET", i+1))
	}

	last := next - 1
	if len(f.Info) > 0 {
		keys := make([]string, 0, len(f.Info))
		for k := range f.Info {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var info bytes.Buffer
		info.WriteString("<<")
		for _, k := range keys {
			fmt.Fprintf(&info, " /%s (%s)", k, f.Info[k])
		}
		info.WriteString(" >>")
		objs[infoNr] = info.String()
		last = infoNr
	}
	if f.Form {
		objs[widgetNr] = fmt.Sprintf("<< /Type /Annot /Subtype /Widget /FT /Tx /T (name) /V (Ada) /DA (/Helv 0 Tf 0 g) /F 4 /Rect [50 700 250 720] /P %d 0 R /AP << /N %d 0 R >> >>",
			pageNr(0), apNr)
		objs[apNr] = stream("/Type /XObject /Subtype /Form /BBox [0 0 200 20] /Resources << /Font << /F1 3 0 R >> >>",
			"/Tx BMC BT /F1 12 Tf 2 5 Td (Ada) Tj ET EMC")
		last = apNr
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	offsets := make([]int, last+1)
	for nr := 1; nr <= last; nr++ {
		body, ok := objs[nr]
		if !ok {
			body = "null"
		}
		offsets[nr] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", nr, body)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", last+1)
	buf.WriteString("0000000000 65535 f \n")
	for nr := 1; nr <= last; nr++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[nr])
	}
	trailer := fmt.Sprintf("<< /Size %d /Root %d 0 R", last+1, catalogNr)
	if len(f.Info) > 0 {
		trailer += fmt.Sprintf(" /Info %d 0 R", infoNr)
	}
	fmt.Fprintf(&buf, "trailer\n%s >>\nstartxref\n%d\n%%%%EOF\n", trailer, xref)
	return buf.Bytes()
}

func stream(dict, content string) string {
	return fmt.Sprintf("<< %s /Length %d >>\nstream\n%s\nendstream", dict, len(content), content)
}

// PNG encodes a w by h gradient.
func PNG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, filled(w, h)))
	return buf.Bytes()
}

// JPEG encodes a w by h gradient.
func JPEG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, filled(w, h), nil))
	return buf.Bytes()
}

func filled(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

