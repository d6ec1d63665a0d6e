package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Lllllllleong/pdftools/internal/models"
	"github.com/Lllllllleong/pdftools/internal/pdfops"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProcessor struct {
	requests []*models.ToolRequest
	err      error
}

func (p *recordingProcessor) Process(_ context.Context, req *models.ToolRequest) (*models.ToolResponse, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	return &models.ToolResponse{Status: models.StatusComplete, JobID: "job-1"}, nil
}

func TestUploadIgnoresObjectsWithoutOperation(t *testing.T) {
	p := &recordingProcessor{}
	f := &UploadFunction{tool: p}
	require.NoError(t, f.Process(t.Context(), GCSEvent{Bucket: "inbox", Name: "a.pdf"}))
	assert.Empty(t, p.requests)
}

func TestUploadBuildsRequestFromMetadata(t *testing.T) {
	p := &recordingProcessor{}
	f := &UploadFunction{tool: p}
	err := f.Process(t.Context(), GCSEvent{
		Bucket:      "inbox",
		Name:        "docs/a.pdf",
		ContentType: "application/pdf",
		Metadata: map[string]string{
			"operation":    "page-numbers",
			"pages":        "1, 3",
			"angle":        "90",
			"position":     "top-left",
			"format":       "{n}",
			"start-number": "4",
		},
	})
	require.NoError(t, err)
	require.Len(t, p.requests, 1)

	want := &models.ToolRequest{
		Operation:   "page-numbers",
		Inputs:      []models.InputRef{{GCSUri: "gs://inbox/docs/a.pdf", MIMEType: "application/pdf"}},
		Pages:       []int{1, 3},
		Angle:       90,
		PageNumbers: &models.PageNumberParams{Position: "top-left", Format: "{n}", StartNumber: 4},
	}
	if diff := cmp.Diff(want, p.requests[0]); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestUploadDropsInvalidMetadata(t *testing.T) {
	p := &recordingProcessor{}
	f := &UploadFunction{tool: p}
	for _, md := range []map[string]string{
		{"operation": "extract", "pages": "1,x"},
		{"operation": "rotate", "angle": "quarter"},
		{"operation": "page-numbers", "start-number": "first"},
	} {
		assert.NoError(t, f.Process(t.Context(), GCSEvent{Bucket: "inbox", Name: "a.pdf", Metadata: md}))
	}
	assert.Empty(t, p.requests)
}

func TestUploadErrorHandling(t *testing.T) {
	event := GCSEvent{Bucket: "inbox", Name: "a.pdf", Metadata: map[string]string{"operation": "compress"}}

	rejected := &UploadFunction{tool: &recordingProcessor{err: fmt.Errorf("operation failed: %w", pdfops.ErrMalformedDocument)}}
	assert.NoError(t, rejected.Process(t.Context(), event))

	transient := errors.New("firestore unavailable")
	failing := &UploadFunction{tool: &recordingProcessor{err: transient}}
	assert.ErrorIs(t, failing.Process(t.Context(), event), transient)
}
