package pdfops

import (
	"bytes"
	"context"
	"fmt"
	"math"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// CompressResult is the output of Compress.
type CompressResult struct {
	Data       []byte  `json:"-"`
	InputSize  int     `json:"inputSize"`
	OutputSize int     `json:"outputSize"`
	Savings    float64 `json:"savings"`
}

// Savings reports 1 - out/in. The value is negative when the output grew.
func Savings(in, out int) float64 {
	if in == 0 {
		return 0
	}
	return 1 - float64(out)/float64(in)
}

// Compress strips descriptive metadata, stamps the tool identifier and
// writes the document with object and cross-reference streams. Embedded
// images are not recompressed.
func (e *Engine) Compress(ctx context.Context, data []byte) (*CompressResult, error) {
	doc, err := e.Load(ctx, data)
	if err != nil {
		return nil, err
	}
	if err := doc.stripMetadata(e.config.ToolIdentifier); err != nil {
		return nil, fmt.Errorf("failed to strip metadata: %w", err)
	}
	doc.ctx.WriteObjectStream = true
	doc.ctx.WriteXRefStream = true

	out, err := e.save(ctx, doc)
	if err != nil {
		return nil, err
	}
	res := &CompressResult{
		Data:       out,
		InputSize:  len(data),
		OutputSize: len(out),
		Savings:    Savings(len(data), len(out)),
	}
	e.log.Info("Compressed document.", "inputSize", res.InputSize, "outputSize", res.OutputSize, "savings", res.Savings)
	return res, nil
}

var strippedInfoKeys = []string{"Title", "Author", "Subject", "Keywords"}

func (d *Document) stripMetadata(tool string) error {
	info, err := d.infoDict()
	if err != nil {
		return err
	}
	for _, k := range strippedInfoKeys {
		info.Delete(k)
	}
	info.Update("Creator", types.StringLiteral(tool))
	info.Update("Producer", types.StringLiteral(tool))

	xt := d.ctx.XRefTable
	xt.Title, xt.Author, xt.Subject, xt.Keywords = "", "", "", ""
	xt.Creator, xt.Producer = tool, tool

	// The XMP packet repeats the fields above.
	root, err := d.ctx.Catalog()
	if err != nil {
		return err
	}
	root.Delete("Metadata")
	return nil
}

func (d *Document) infoDict() (types.Dict, error) {
	if d.ctx.Info == nil {
		info := types.NewDict()
		ir, err := d.ctx.IndRefForNewObject(info)
		if err != nil {
			return nil, err
		}
		d.ctx.Info = ir
		return info, nil
	}
	info, err := d.ctx.DereferenceDict(*d.ctx.Info)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, fmt.Errorf("info dictionary missing")
	}
	return info, nil
}

// Flatten draws the current appearance of every form field widget into the
// page content, then removes the widgets and the interactive form.
func (e *Engine) Flatten(ctx context.Context, data []byte) ([]byte, error) {
	doc, err := e.Load(ctx, data)
	if err != nil {
		return nil, err
	}
	n, err := doc.flattenForms()
	if err != nil {
		return nil, fmt.Errorf("failed to flatten form: %w", err)
	}
	out, err := e.save(ctx, doc)
	if err != nil {
		return nil, err
	}
	e.log.Info("Flattened form fields.", "widgetCount", n, "pageCount", doc.PageCount())
	return out, nil
}

func (d *Document) flattenForms() (int, error) {
	total := 0
	for nr := 1; nr <= d.ctx.PageCount; nr++ {
		n, err := d.flattenPage(nr)
		if err != nil {
			return total, fmt.Errorf("page %d: %w", nr, err)
		}
		total += n
	}
	root, err := d.ctx.Catalog()
	if err != nil {
		return total, err
	}
	root.Delete("AcroForm")
	return total, nil
}

// widgetDraw places one appearance stream onto the page.
type widgetDraw struct {
	ref types.IndirectRef
	cm  [6]float64
}

func (d *Document) flattenPage(nr int) (int, error) {
	pageDict, _, inh, err := d.ctx.PageDict(nr, false)
	if err != nil {
		return 0, err
	}
	o, found := pageDict.Find("Annots")
	if !found {
		return 0, nil
	}
	annots, err := d.ctx.DereferenceArray(o)
	if err != nil {
		return 0, err
	}

	var (
		kept    types.Array
		draws   []widgetDraw
		widgets int
	)
	for _, a := range annots {
		annot, err := d.ctx.DereferenceDict(a)
		if err != nil || annot == nil {
			kept = append(kept, a)
			continue
		}
		if st := annot.NameEntry("Subtype"); st == nil || *st != "Widget" {
			kept = append(kept, a)
			continue
		}
		widgets++
		if isHidden(annot) {
			continue
		}
		if draw, ok := d.widgetDraw(annot); ok {
			draws = append(draws, draw)
		}
	}
	if widgets == 0 {
		return 0, nil
	}

	if len(kept) == 0 {
		pageDict.Delete("Annots")
	} else {
		pageDict.Update("Annots", kept)
	}
	if len(draws) == 0 {
		return widgets, nil
	}

	xobjects, err := d.pageXObjects(pageDict, inh)
	if err != nil {
		return widgets, err
	}
	var content bytes.Buffer
	for _, draw := range draws {
		name := freeName(xobjects, "FlatAP")
		xobjects.Insert(name, draw.ref)
		fmt.Fprintf(&content, "q %s %s %s %s %s %s cm /%s Do Q\n",
			formatFloat(draw.cm[0]), formatFloat(draw.cm[1]), formatFloat(draw.cm[2]),
			formatFloat(draw.cm[3]), formatFloat(draw.cm[4]), formatFloat(draw.cm[5]), name)
	}
	if err := d.appendContent(pageDict, content.Bytes()); err != nil {
		return widgets, err
	}
	return widgets, nil
}

func isHidden(annot types.Dict) bool {
	f := annot.IntEntry("F")
	return f != nil && *f&2 != 0
}

// widgetDraw computes how the widget's normal appearance maps onto its
// rectangle.
func (d *Document) widgetDraw(annot types.Dict) (widgetDraw, bool) {
	ref, sd, ok := d.normalAppearance(annot)
	if !ok {
		return widgetDraw{}, false
	}
	o, found := annot.Find("Rect")
	if !found {
		return widgetDraw{}, false
	}
	rect := d.numbers(o)
	if len(rect) != 4 {
		return widgetDraw{}, false
	}
	bbox := []float64{0, 0, 0, 0}
	if o, found := sd.Find("BBox"); found {
		bbox = d.numbers(o)
	}
	matrix := []float64{1, 0, 0, 1, 0, 0}
	if o, found := sd.Find("Matrix"); found {
		if m := d.numbers(o); len(m) == 6 {
			matrix = m
		}
	}
	if len(bbox) != 4 {
		return widgetDraw{}, false
	}

	// Fit the transformed bounding box into the annotation rectangle.
	tx0, ty0, tx1, ty1 := transformBox(bbox, matrix)
	rx0, ry0 := math.Min(rect[0], rect[2]), math.Min(rect[1], rect[3])
	rx1, ry1 := math.Max(rect[0], rect[2]), math.Max(rect[1], rect[3])
	if tx1-tx0 == 0 || ty1-ty0 == 0 {
		return widgetDraw{}, false
	}
	sx := (rx1 - rx0) / (tx1 - tx0)
	sy := (ry1 - ry0) / (ty1 - ty0)
	return widgetDraw{
		ref: ref,
		cm:  [6]float64{sx, 0, 0, sy, rx0 - sx*tx0, ry0 - sy*ty0},
	}, true
}

// normalAppearance resolves /AP /N, following /AS for widgets with
// several appearance states.
func (d *Document) normalAppearance(annot types.Dict) (types.IndirectRef, types.StreamDict, bool) {
	var none types.IndirectRef
	o, found := annot.Find("AP")
	if !found {
		return none, types.StreamDict{}, false
	}
	ap, err := d.ctx.DereferenceDict(o)
	if err != nil || ap == nil {
		return none, types.StreamDict{}, false
	}
	n, found := ap.Find("N")
	if !found {
		return none, types.StreamDict{}, false
	}
	if ref, ok := n.(types.IndirectRef); ok {
		obj, err := d.ctx.Dereference(ref)
		if err != nil {
			return none, types.StreamDict{}, false
		}
		if sd, ok := obj.(types.StreamDict); ok {
			return ref, sd, true
		}
		n = obj
	}

	states, ok := n.(types.Dict)
	if !ok {
		return none, types.StreamDict{}, false
	}
	as := annot.NameEntry("AS")
	if as == nil {
		return none, types.StreamDict{}, false
	}
	s, found := states.Find(*as)
	if !found {
		return none, types.StreamDict{}, false
	}
	ref, ok := s.(types.IndirectRef)
	if !ok {
		return none, types.StreamDict{}, false
	}
	obj, err := d.ctx.Dereference(ref)
	if err != nil {
		return none, types.StreamDict{}, false
	}
	sd, ok := obj.(types.StreamDict)
	return ref, sd, ok
}

func (d *Document) pageXObjects(pageDict types.Dict, inh *model.InheritedPageAttrs) (types.Dict, error) {
	var res types.Dict
	if o, found := pageDict.Find("Resources"); found {
		r, err := d.ctx.DereferenceDict(o)
		if err != nil {
			return nil, err
		}
		res = r
	}
	if res == nil {
		res = types.NewDict()
		if inh != nil {
			for k, v := range inh.Resources {
				res[k] = v
			}
		}
		pageDict.Update("Resources", res)
	}

	var xobjects types.Dict
	if o, found := res.Find("XObject"); found {
		x, err := d.ctx.DereferenceDict(o)
		if err != nil {
			return nil, err
		}
		xobjects = x
	}
	if xobjects == nil {
		xobjects = types.NewDict()
		res.Update("XObject", xobjects)
	}
	return xobjects, nil
}

// appendContent wraps the existing page content in q/Q and appends content
// after it.
func (d *Document) appendContent(pageDict types.Dict, content []byte) error {
	pre, err := d.newContentStream([]byte("q\n"))
	if err != nil {
		return err
	}
	post, err := d.newContentStream(append([]byte("Q\n"), content...))
	if err != nil {
		return err
	}

	contents := types.Array{*pre}
	if o, found := pageDict.Find("Contents"); found {
		switch c := o.(type) {
		case types.IndirectRef:
			obj, err := d.ctx.Dereference(c)
			if err != nil {
				return err
			}
			if arr, ok := obj.(types.Array); ok {
				contents = append(contents, arr...)
			} else {
				contents = append(contents, c)
			}
		case types.Array:
			contents = append(contents, c...)
		}
	}
	contents = append(contents, *post)
	pageDict.Update("Contents", contents)
	return nil
}

func (d *Document) newContentStream(buf []byte) (*types.IndirectRef, error) {
	sd, err := d.ctx.NewStreamDictForBuf(buf)
	if err != nil {
		return nil, err
	}
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return d.ctx.IndRefForNewObject(*sd)
}

// numbers resolves an array of numeric objects.
func (d *Document) numbers(o types.Object) []float64 {
	arr, err := d.ctx.DereferenceArray(o)
	if err != nil {
		return nil
	}
	nums := make([]float64, 0, len(arr))
	for _, v := range arr {
		v, err := d.ctx.Dereference(v)
		if err != nil {
			return nil
		}
		switch n := v.(type) {
		case types.Integer:
			nums = append(nums, float64(n))
		case types.Float:
			nums = append(nums, float64(n))
		default:
			return nil
		}
	}
	return nums
}

// transformBox returns the axis-aligned bounds of box after applying m.
func transformBox(box, m []float64) (x0, y0, x1, y1 float64) {
	x0, y0 = math.Inf(1), math.Inf(1)
	x1, y1 = math.Inf(-1), math.Inf(-1)
	for _, p := range [][2]float64{{box[0], box[1]}, {box[2], box[1]}, {box[0], box[3]}, {box[2], box[3]}} {
		x := m[0]*p[0] + m[2]*p[1] + m[4]
		y := m[1]*p[0] + m[3]*p[1] + m[5]
		x0, y0 = math.Min(x0, x), math.Min(y0, y)
		x1, y1 = math.Max(x1, x), math.Max(y1, y)
	}
	return x0, y0, x1, y1
}

func freeName(d types.Dict, prefix string) string {
	for i := 0; ; i++ {
		name := fmt.Sprintf("%s%d", prefix, i)
		if _, taken := d.Find(name); !taken {
			return name
		}
	}
}
