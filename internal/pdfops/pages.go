package pdfops

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/Lllllllleong/pdftools/internal/pagerange"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// pagePicker maps a page count to the 0-indexed pages an operation targets.
type pagePicker func(total int) []int

// Merge concatenates every page of every input document, in input order.
func (e *Engine) Merge(ctx context.Context, docs [][]byte) ([]byte, error) {
	if len(docs) == 0 {
		return nil, ErrNoInput
	}

	readers := make([]io.ReadSeeker, 0, len(docs))
	pageCount := 0
	var first *Document
	for i, data := range docs {
		doc, err := e.Load(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i+1, err)
		}
		if first == nil {
			first = doc
		}
		pageCount += doc.PageCount()
		readers = append(readers, bytes.NewReader(data))
	}

	var (
		out []byte
		err error
	)
	if len(docs) == 1 {
		out, err = e.save(ctx, first)
	} else {
		out, err = e.write(ctx, func(w io.Writer) error {
			return api.MergeRaw(readers, w, false, newConfiguration())
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to merge documents: %w", err)
	}
	e.log.Info("Merged documents.", "inputCount", len(docs), "pageCount", pageCount)
	return out, nil
}

// Split produces one document per non-empty selector group, each holding
// that group's pages in the order given.
func (e *Engine) Split(ctx context.Context, data []byte, selector string) ([][]byte, error) {
	doc, err := e.Load(ctx, data)
	if err != nil {
		return nil, err
	}
	total := doc.PageCount()

	groups := e.selectorGroups(selector, total)
	outs := make([][]byte, 0, len(groups))
	for _, g := range groups {
		out, err := e.copyPages(ctx, data, pagerange.Indices(g, total))
		if err != nil {
			return nil, fmt.Errorf("failed to split pages %v: %w", g, err)
		}
		outs = append(outs, out)
	}
	if len(outs) == 0 {
		return nil, ErrEmptyResult
	}
	e.log.Info("Split document.", "selector", selector, "sourcePages", total, "documentCount", len(outs))
	return outs, nil
}

// ExtractPages copies the given 1-indexed pages, in the order supplied,
// into a new document. Duplicates are kept; out-of-range numbers are dropped.
func (e *Engine) ExtractPages(ctx context.Context, data []byte, pages []int) ([]byte, error) {
	return e.selectPages(ctx, data, "extract", numbers(pages))
}

// RemovePages copies every page not listed into a new document, keeping
// the original order.
func (e *Engine) RemovePages(ctx context.Context, data []byte, pages []int) ([]byte, error) {
	return e.selectPages(ctx, data, "remove", complement(numbers(pages)))
}

// RearrangePages builds a new document whose pages follow order.
func (e *Engine) RearrangePages(ctx context.Context, data []byte, order []int) ([]byte, error) {
	return e.selectPages(ctx, data, "rearrange", numbers(order))
}

// RotatePages adds angle to the rotation of the given pages, or of every
// page when pages is nil. A page listed twice is rotated twice.
func (e *Engine) RotatePages(ctx context.Context, data []byte, angle int, pages []int) ([]byte, error) {
	pick := numbers(pages)
	if pages == nil {
		pick = allPages
	}
	return e.rotate(ctx, data, angle, pick)
}

func (e *Engine) selectPages(ctx context.Context, data []byte, op string, pick pagePicker) ([]byte, error) {
	doc, err := e.Load(ctx, data)
	if err != nil {
		return nil, err
	}
	indices := pick(doc.PageCount())
	out, err := e.copyPages(ctx, data, indices)
	if err != nil {
		return nil, err
	}
	e.log.Info("Copied pages into new document.", "operation", op, "sourcePages", doc.PageCount(), "pageCount", len(indices))
	return out, nil
}

func (e *Engine) rotate(ctx context.Context, data []byte, angle int, pick pagePicker) ([]byte, error) {
	if angle != 90 && angle != 180 && angle != 270 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRotation, angle)
	}
	doc, err := e.Load(ctx, data)
	if err != nil {
		return nil, err
	}
	indices := pick(doc.PageCount())
	for _, i := range indices {
		if err := doc.rotate(i, angle); err != nil {
			return nil, err
		}
	}
	out, err := e.save(ctx, doc)
	if err != nil {
		return nil, err
	}
	e.log.Info("Rotated pages.", "angle", angle, "pageCount", len(indices))
	return out, nil
}

// rotate adds delta degrees to the rotation of the page at index.
func (d *Document) rotate(index, delta int) error {
	pageDict, _, inh, err := d.ctx.PageDict(index+1, false)
	if err != nil {
		return fmt.Errorf("failed to read page %d: %w", index+1, err)
	}
	if pageDict == nil {
		return fmt.Errorf("page %d not found", index+1)
	}
	current := pageRotation(pageDict, inh)
	pageDict.Update("Rotate", types.Integer(normalizeRotation(current+delta)))
	return nil
}

// copyPages writes a new document holding the pages at the given 0-indexed
// positions of data. The source bytes are only read.
func (e *Engine) copyPages(ctx context.Context, data []byte, indices []int) ([]byte, error) {
	if len(indices) == 0 {
		return nil, ErrEmptyResult
	}
	out, err := e.write(ctx, func(w io.Writer) error {
		return api.Collect(bytes.NewReader(data), w, selection(indices), newConfiguration())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to copy pages: %w", err)
	}
	return out, nil
}

func (e *Engine) write(ctx context.Context, fn func(w io.Writer) error) ([]byte, error) {
	return call(ctx, e.config.ParseTimeout, func() ([]byte, error) {
		var buf bytes.Buffer
		if err := fn(&buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
}

// selectorGroups parses selector against total pages. A blank selector, or
// one where every token is malformed, selects the first page. Well-formed
// tokens that only name pages outside the document select nothing.
func (e *Engine) selectorGroups(selector string, total int) [][]int {
	groups, warnings := pagerange.ParseWithWarnings(selector, total)
	for _, w := range warnings {
		e.log.Debug("Dropped selector token.", "token", w.Token, "reason", w.Reason)
	}
	if len(groups) == 0 && len(warnings) == len(pagerange.Tokens(selector)) {
		groups = pagerange.Parse("1", total)
	}
	return groups
}

func (e *Engine) selectorPicker(selector string) pagePicker {
	return func(total int) []int {
		var pages []int
		for _, g := range e.selectorGroups(selector, total) {
			pages = append(pages, g...)
		}
		return pagerange.Indices(pages, total)
	}
}

func numbers(pages []int) pagePicker {
	return func(total int) []int {
		return pagerange.Indices(pages, total)
	}
}

func complement(pick pagePicker) pagePicker {
	return func(total int) []int {
		return pagerange.Complement(pick(total), total)
	}
}

func allPages(total int) []int {
	indices := make([]int, total)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

// selection renders 0-indexed positions in the codec's 1-based page
// selection syntax.
func selection(indices []int) []string {
	sel := make([]string, len(indices))
	for i, idx := range indices {
		sel[i] = strconv.Itoa(idx + 1)
	}
	return sel
}
