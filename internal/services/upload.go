package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Lllllllleong/pdftools/internal/gcp"
	"github.com/Lllllllleong/pdftools/internal/models"
)

// GCSEvent is the payload of a storage object-finalize event.
type GCSEvent struct {
	Bucket      string            `json:"bucket"`
	Name        string            `json:"name"`
	ContentType string            `json:"contentType"`
	Metadata    map[string]string `json:"metadata"`
}

// Object metadata keys read by UploadFunction.
const (
	metaOperation   = "operation"
	metaSelector    = "selector"
	metaPages       = "pages"
	metaAngle       = "angle"
	metaText        = "text"
	metaPosition    = "position"
	metaFormat      = "format"
	metaStartNumber = "start-number"
)

type processor interface {
	Process(ctx context.Context, req *models.ToolRequest) (*models.ToolResponse, error)
}

// UploadFunction runs the operation named in an uploaded object's metadata.
type UploadFunction struct {
	tool processor
}

func NewUploadFunction(ctx context.Context) (*UploadFunction, error) {
	tool, err := NewToolFunction(ctx)
	if err != nil {
		return nil, err
	}
	return &UploadFunction{tool: tool}, nil
}

// Process handles one finalized object. Objects without an operation are
// ignored, and requests that can never succeed are logged and dropped so the
// event is not redelivered.
func (f *UploadFunction) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)

	if strings.TrimSpace(e.Metadata[metaOperation]) == "" {
		logCtx.Info("Object has no operation metadata. Skipping.")
		return nil
	}
	req, err := requestFromEvent(e)
	if err != nil {
		logCtx.Warn("Invalid operation metadata. Skipping.", "error", err)
		return nil
	}

	res, err := f.tool.Process(ctx, req)
	if err != nil {
		if IsClientError(err) {
			logCtx.Warn("Operation rejected. Skipping.", "error", err)
			return nil
		}
		return err
	}
	logCtx.Info("Processed uploaded object.", "jobId", res.JobID, "outputCount", len(res.Outputs), "duplicate", res.Duplicate)
	return nil
}

func requestFromEvent(e GCSEvent) (*models.ToolRequest, error) {
	md := e.Metadata
	req := &models.ToolRequest{
		Operation: strings.TrimSpace(md[metaOperation]),
		Inputs:    []models.InputRef{{GCSUri: gcp.GCSUri(e.Bucket, e.Name), MIMEType: e.ContentType}},
		Selector:  md[metaSelector],
		Text:      md[metaText],
	}

	if s := strings.TrimSpace(md[metaPages]); s != "" {
		for _, tok := range strings.Split(s, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(tok))
			if err != nil {
				return nil, fmt.Errorf("%w: pages: %q is not a number", ErrInvalidRequest, tok)
			}
			req.Pages = append(req.Pages, n)
		}
	}
	if s := strings.TrimSpace(md[metaAngle]); s != "" {
		angle, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("%w: angle: %q is not a number", ErrInvalidRequest, s)
		}
		req.Angle = angle
	}

	position, format, start := md[metaPosition], md[metaFormat], strings.TrimSpace(md[metaStartNumber])
	if position != "" || format != "" || start != "" {
		req.PageNumbers = &models.PageNumberParams{Position: position, Format: format}
		if start != "" {
			n, err := strconv.Atoi(start)
			if err != nil {
				return nil, fmt.Errorf("%w: start-number: %q is not a number", ErrInvalidRequest, start)
			}
			req.PageNumbers.StartNumber = n
		}
	}
	return req, nil
}
