package pdfops

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Page describes one page of a loaded document.
type Page struct {
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation int     `json:"rotation"`
}

// Document is a parsed PDF owned by a single operation.
type Document struct {
	ctx  *model.Context
	size int
}

// Load parses data into a Document. Parsing runs under the engine's parse
// deadline; inputs the codec rejects fail with ErrMalformedDocument.
func (e *Engine) Load(ctx context.Context, data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformedDocument)
	}
	pctx, err := call(ctx, e.config.ParseTimeout, func() (*model.Context, error) {
		return api.ReadValidateAndOptimize(bytes.NewReader(data), newConfiguration())
	})
	if err != nil {
		if isContextErr(err) {
			return nil, fmt.Errorf("failed to parse document: %w", err)
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	return &Document{ctx: pctx, size: len(data)}, nil
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int {
	return d.ctx.PageCount
}

// Pages returns size and rotation of every page, in document order.
func (d *Document) Pages() ([]Page, error) {
	pages := make([]Page, 0, d.ctx.PageCount)
	for nr := 1; nr <= d.ctx.PageCount; nr++ {
		p, err := d.page(nr)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, nil
}

func (d *Document) page(nr int) (Page, error) {
	pageDict, _, inh, err := d.ctx.PageDict(nr, false)
	if err != nil {
		return Page{}, fmt.Errorf("failed to read page %d: %w", nr, err)
	}
	if pageDict == nil {
		return Page{}, fmt.Errorf("page %d not found", nr)
	}

	var p Page
	if o, found := pageDict.Find("MediaBox"); found {
		if box := d.numbers(o); len(box) == 4 {
			p.Width = math.Abs(box[2] - box[0])
			p.Height = math.Abs(box[3] - box[1])
		}
	}
	if p.Width == 0 && inh != nil && inh.MediaBox != nil {
		p.Width = inh.MediaBox.Width()
		p.Height = inh.MediaBox.Height()
	}
	p.Rotation = normalizeRotation(pageRotation(pageDict, inh))
	return p, nil
}

// pageRotation prefers the page's own /Rotate over an inherited one.
func pageRotation(pageDict types.Dict, inh *model.InheritedPageAttrs) int {
	if r := pageDict.IntEntry("Rotate"); r != nil {
		return *r
	}
	if inh != nil {
		return inh.Rotate
	}
	return 0
}

// WriteTo serialises the document.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	if err := api.WriteContext(d.ctx, cw); err != nil {
		return cw.n, fmt.Errorf("failed to write document: %w", err)
	}
	return cw.n, nil
}

// Bytes serialises the document into a new buffer.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *Engine) save(ctx context.Context, d *Document) ([]byte, error) {
	return call(ctx, e.config.ParseTimeout, d.Bytes)
}

// call runs fn under an optional deadline and converts codec panics into
// errors. The codec cannot be interrupted, so on timeout fn keeps running
// in the background and its result is discarded.
func call[T any](ctx context.Context, timeout time.Duration, fn func() (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("codec failure: %v", r)}
			}
		}()
		v, err := fn()
		done <- result{v: v, err: err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-done:
		return r.v, r.err
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

func normalizeRotation(deg int) int {
	return ((deg % 360) + 360) % 360
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
