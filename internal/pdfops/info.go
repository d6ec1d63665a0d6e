package pdfops

import (
	"context"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// DocumentInfo summarises a document without modifying it.
type DocumentInfo struct {
	PageCount        int        `json:"pageCount"`
	FileSize         int        `json:"fileSize"`
	Title            string     `json:"title,omitempty"`
	Author           string     `json:"author,omitempty"`
	Subject          string     `json:"subject,omitempty"`
	Keywords         string     `json:"keywords,omitempty"`
	Creator          string     `json:"creator,omitempty"`
	Producer         string     `json:"producer,omitempty"`
	CreationDate     *time.Time `json:"creationDate,omitempty"`
	ModificationDate *time.Time `json:"modificationDate,omitempty"`
	Pages            []Page     `json:"pages"`
}

// Info loads data and reports its metadata and page geometry.
func (e *Engine) Info(ctx context.Context, data []byte) (*DocumentInfo, error) {
	doc, err := e.Load(ctx, data)
	if err != nil {
		return nil, err
	}
	return doc.Info()
}

// Info reports metadata and page geometry. The fields are read from the
// cross-reference table; the codec configuration carries its own dates.
func (d *Document) Info() (*DocumentInfo, error) {
	pages, err := d.Pages()
	if err != nil {
		return nil, err
	}
	return &DocumentInfo{
		PageCount:        d.PageCount(),
		FileSize:         d.size,
		Title:            d.ctx.XRefTable.Title,
		Author:           d.ctx.XRefTable.Author,
		Subject:          d.ctx.XRefTable.Subject,
		Keywords:         d.ctx.XRefTable.Keywords,
		Creator:          d.ctx.XRefTable.Creator,
		Producer:         d.ctx.XRefTable.Producer,
		CreationDate:     pdfDate(d.ctx.XRefTable.CreationDate),
		ModificationDate: pdfDate(d.ctx.XRefTable.ModDate),
		Pages:            pages,
	}, nil
}

// pdfDate parses a "D:YYYYMMDDHHmmSS" date, returning nil when absent or
// unreadable.
func pdfDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, ok := types.DateTime(s, true)
	if !ok {
		return nil
	}
	return &t
}
