package pdfops

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
)

// Kind identifies a document operation.
type Kind int

const (
	KindMerge Kind = iota + 1
	KindSplit
	KindExtract
	KindRemove
	KindRotate
	KindWatermark
	KindPageNumbers
	KindCompress
	KindImagesToPDF
	KindRearrange
	KindFlatten
	KindInfo
)

var kindNames = [...]string{
	KindMerge:       "merge",
	KindSplit:       "split",
	KindExtract:     "extract",
	KindRemove:      "remove",
	KindRotate:      "rotate",
	KindWatermark:   "watermark",
	KindPageNumbers: "page-numbers",
	KindCompress:    "compress",
	KindImagesToPDF: "image-to-pdf",
	KindRearrange:   "rearrange",
	KindFlatten:     "flatten",
	KindInfo:        "info",
}

func (k Kind) String() string {
	if k > 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Kinds lists every operation.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(kindNames)-1)
	for k := KindMerge; int(k) < len(kindNames); k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// ParseKind maps an operation name to its Kind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds() {
		if kindNames[k] == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOperation, s)
}

// Input is one uploaded file.
type Input struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Request is a single operation and its parameters. Pages, when non-nil,
// takes precedence over Selector for page-targeting operations.
type Request struct {
	Kind        Kind
	Inputs      []Input
	Selector    string
	Pages       []int
	Angle       int
	Text        string
	Watermark   *WatermarkOptions
	PageNumbers *PageNumberOptions
}

// Artifact is one produced document.
type Artifact struct {
	Name string
	Data []byte
}

// Result is the outcome of Run. Info is set only for KindInfo and
// Compression only for KindCompress.
type Result struct {
	Artifacts   []Artifact
	Info        *DocumentInfo
	Compression *CompressResult
}

// Run dispatches req to the matching operation.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	logCtx := e.log.With("operation", req.Kind.String(), "inputCount", len(req.Inputs))
	logCtx.Debug("Running operation.")

	switch req.Kind {
	case KindMerge:
		docs := make([][]byte, len(req.Inputs))
		for i, in := range req.Inputs {
			docs[i] = in.Data
		}
		out, err := e.Merge(ctx, docs)
		if err != nil {
			return nil, err
		}
		return artifacts(Artifact{Name: "merged.pdf", Data: out}), nil

	case KindSplit:
		in, err := req.first()
		if err != nil {
			return nil, err
		}
		outs, err := e.Split(ctx, in.Data, req.Selector)
		if err != nil {
			return nil, err
		}
		res := &Result{Artifacts: make([]Artifact, len(outs))}
		for i, out := range outs {
			res.Artifacts[i] = Artifact{Name: artifactName(in.Name, "part"+strconv.Itoa(i+1)), Data: out}
		}
		return res, nil

	case KindExtract:
		return e.runSelect(ctx, req, "extracted", e.picker(req))

	case KindRemove:
		return e.runSelect(ctx, req, "removed", complement(e.picker(req)))

	case KindRearrange:
		return e.runSelect(ctx, req, "rearranged", e.picker(req))

	case KindRotate:
		in, err := req.first()
		if err != nil {
			return nil, err
		}
		pick := allPages
		if req.Pages != nil || strings.TrimSpace(req.Selector) != "" {
			pick = e.picker(req)
		}
		out, err := e.rotate(ctx, in.Data, req.Angle, pick)
		if err != nil {
			return nil, err
		}
		return artifacts(Artifact{Name: artifactName(in.Name, "rotated"), Data: out}), nil

	case KindWatermark:
		in, err := req.first()
		if err != nil {
			return nil, err
		}
		opts := DefaultWatermarkOptions()
		if req.Watermark != nil {
			opts = *req.Watermark
		}
		out, err := e.AddWatermark(ctx, in.Data, req.Text, opts)
		if err != nil {
			return nil, err
		}
		return artifacts(Artifact{Name: artifactName(in.Name, "watermarked"), Data: out}), nil

	case KindPageNumbers:
		in, err := req.first()
		if err != nil {
			return nil, err
		}
		opts := DefaultPageNumberOptions()
		if req.PageNumbers != nil {
			opts = *req.PageNumbers
		}
		out, err := e.AddPageNumbers(ctx, in.Data, opts)
		if err != nil {
			return nil, err
		}
		return artifacts(Artifact{Name: artifactName(in.Name, "numbered"), Data: out}), nil

	case KindCompress:
		in, err := req.first()
		if err != nil {
			return nil, err
		}
		c, err := e.Compress(ctx, in.Data)
		if err != nil {
			return nil, err
		}
		res := artifacts(Artifact{Name: artifactName(in.Name, "compressed"), Data: c.Data})
		res.Compression = c
		return res, nil

	case KindImagesToPDF:
		imgs := make([]Image, len(req.Inputs))
		for i, in := range req.Inputs {
			imgs[i] = Image{MIMEType: in.MIMEType, Data: in.Data}
		}
		out, err := e.ImagesToDocument(ctx, imgs)
		if err != nil {
			return nil, err
		}
		return artifacts(Artifact{Name: "images.pdf", Data: out}), nil

	case KindFlatten:
		in, err := req.first()
		if err != nil {
			return nil, err
		}
		out, err := e.Flatten(ctx, in.Data)
		if err != nil {
			return nil, err
		}
		return artifacts(Artifact{Name: artifactName(in.Name, "flattened"), Data: out}), nil

	case KindInfo:
		in, err := req.first()
		if err != nil {
			return nil, err
		}
		info, err := e.Info(ctx, in.Data)
		if err != nil {
			return nil, err
		}
		return &Result{Info: info}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, req.Kind)
}

func (e *Engine) runSelect(ctx context.Context, req Request, suffix string, pick pagePicker) (*Result, error) {
	in, err := req.first()
	if err != nil {
		return nil, err
	}
	out, err := e.selectPages(ctx, in.Data, req.Kind.String(), pick)
	if err != nil {
		return nil, err
	}
	return artifacts(Artifact{Name: artifactName(in.Name, suffix), Data: out}), nil
}

func (r Request) first() (Input, error) {
	if len(r.Inputs) == 0 {
		return Input{}, ErrNoInput
	}
	return r.Inputs[0], nil
}

// picker prefers explicit page numbers over the selector.
func (e *Engine) picker(r Request) pagePicker {
	if r.Pages != nil {
		return numbers(r.Pages)
	}
	return e.selectorPicker(r.Selector)
}

func artifacts(a ...Artifact) *Result {
	return &Result{Artifacts: a}
}

// artifactName derives "<base>_<suffix>.pdf" from an input name.
func artifactName(input, suffix string) string {
	base := path.Base(strings.ReplaceAll(input, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" || base == "." || base == "/" {
		base = "document"
	}
	return base + "_" + suffix + ".pdf"
}
