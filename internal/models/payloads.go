package models

import "github.com/Lllllllleong/pdftools/internal/pdfops"

// These structs define the JSON payloads exchanged with the pdf-tools HTTP
// function.

// InputRef points at one input object.
type InputRef struct {
	GCSUri string `json:"gcsUri"`
	// MIMEType overrides the object's content type.
	MIMEType string `json:"mimeType,omitempty"`
}

// WatermarkParams overrides watermark defaults. Nil fields keep the default.
type WatermarkParams struct {
	FontSize int           `json:"fontSize,omitempty"`
	Opacity  *float64      `json:"opacity,omitempty"`
	Rotation *float64      `json:"rotation,omitempty"`
	Color    *pdfops.Color `json:"color,omitempty"`
}

// PageNumberParams overrides page label defaults.
type PageNumberParams struct {
	Position    string `json:"position,omitempty"`
	Format      string `json:"format,omitempty"`
	FontSize    int    `json:"fontSize,omitempty"`
	StartNumber int    `json:"startNumber,omitempty"`
}

// ToolRequest is the input of the pdf-tools function. Inputs are read in
// order; when empty, every object under InputPrefix is read in name order.
type ToolRequest struct {
	Operation   string            `json:"operation"`
	Inputs      []InputRef        `json:"inputs,omitempty"`
	InputPrefix string            `json:"inputPrefix,omitempty"`
	Selector    string            `json:"selector,omitempty"`
	Pages       []int             `json:"pages,omitempty"`
	Angle       int               `json:"angle,omitempty"`
	Text        string            `json:"text,omitempty"`
	Watermark   *WatermarkParams  `json:"watermark,omitempty"`
	PageNumbers *PageNumberParams `json:"pageNumbers,omitempty"`
}

// ToolResponse is the output of the pdf-tools function.
type ToolResponse struct {
	Status  string               `json:"status"`
	JobID   string               `json:"jobId"`
	Outputs []string             `json:"outputs,omitempty"`
	Info    *pdfops.DocumentInfo `json:"info,omitempty"`
	Savings *float64             `json:"savings,omitempty"`
	// Duplicate is set when the outputs come from an earlier identical job.
	Duplicate bool `json:"duplicate,omitempty"`
}
