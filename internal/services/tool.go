package services

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/pdftools/internal/gcp"
	"github.com/Lllllllleong/pdftools/internal/models"
	"github.com/Lllllllleong/pdftools/internal/pdfops"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidRequest marks requests that can never succeed as sent.
var ErrInvalidRequest = errors.New("invalid request")

// IsClientError reports whether err was caused by the request or its
// inputs rather than by infrastructure.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrInvalidRequest,
		pdfops.ErrMalformedDocument,
		pdfops.ErrNoInput,
		pdfops.ErrInvalidRotation,
		pdfops.ErrEmptyText,
		pdfops.ErrEmptyResult,
		pdfops.ErrUnknownOperation,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ObjectStore reads inputs and writes artifacts.
type ObjectStore interface {
	Read(ctx context.Context, bucket, name string) ([]byte, string, error)
	List(ctx context.Context, bucket, prefix string) ([]gcp.Object, error)
	Write(ctx context.Context, bucket, name string, data []byte, contentType string) error
}

// JobStore persists job records.
type JobStore interface {
	FindComplete(ctx context.Context, requestHash string) (*models.Job, error)
	Create(ctx context.Context, job *models.Job) (string, error)
	SetStatus(ctx context.Context, id, status, errDetails string) error
	Complete(ctx context.Context, id string, outputs []string, savings *float64) error
}

// Notifier hands completed jobs to a downstream workflow.
type Notifier interface {
	Notify(ctx context.Context, payload any) (string, error)
}

type ToolConfig struct {
	ProjectID         string
	OutputBucket      string
	CollectionName    string
	WorkflowID        string
	WorkflowLocation  string
	ParseTimeout      time.Duration
	ToolIdentifier    string
	UploadConcurrency int
}

// loadToolConfig loads and validates all necessary environment variables for this service.
func loadToolConfig() (*ToolConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	outputBucket := gcp.GetEnv("OUTPUT_BUCKET", "")
	if outputBucket == "" {
		return nil, fmt.Errorf("OUTPUT_BUCKET environment variable must be set")
	}
	parseTimeout, err := gcp.GetEnvDuration("PARSE_TIMEOUT", pdfops.DefaultParseTimeout)
	if err != nil {
		return nil, err
	}
	concurrency, err := gcp.GetEnvInt("UPLOAD_CONCURRENCY", 10)
	if err != nil {
		return nil, err
	}
	if concurrency < 1 {
		return nil, fmt.Errorf("UPLOAD_CONCURRENCY must be at least 1")
	}

	return &ToolConfig{
		ProjectID:         projectID,
		OutputBucket:      outputBucket,
		CollectionName:    gcp.GetEnv("FIRESTORE_COLLECTION", "pdfJobs"),
		WorkflowID:        gcp.GetEnv("WORKFLOW_ID", ""),
		WorkflowLocation:  gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		ParseTimeout:      parseTimeout,
		ToolIdentifier:    gcp.GetEnv("TOOL_IDENTIFIER", pdfops.DefaultToolIdentifier),
		UploadConcurrency: concurrency,
	}, nil
}

// ToolFunction runs document operations on stored inputs and records each
// run as a job.
type ToolFunction struct {
	store    ObjectStore
	jobs     JobStore
	notifier Notifier
	engine   *pdfops.Engine
	config   ToolConfig

	maxRetries   int
	retryBackoff time.Duration
}

// NewToolFunction builds a ToolFunction from the environment.
func NewToolFunction(ctx context.Context) (*ToolFunction, error) {
	config, err := loadToolConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	var notifier Notifier
	if config.WorkflowID != "" {
		notifier, err = gcp.NewWorkflowNotifier(ctx, config.ProjectID, config.WorkflowLocation, config.WorkflowID)
		if err != nil {
			return nil, err
		}
	}

	f := newToolFunction(*config, gcp.NewBucketStore(storageClient), gcp.NewFirestoreJobs(firestoreClient, config.CollectionName), notifier)
	slog.Info("PDF tools logic initialized.", "outputBucket", config.OutputBucket, "workflowId", config.WorkflowID)
	return f, nil
}

func newToolFunction(config ToolConfig, store ObjectStore, jobs JobStore, notifier Notifier) *ToolFunction {
	if config.UploadConcurrency < 1 {
		config.UploadConcurrency = 10
	}
	return &ToolFunction{
		store:    store,
		jobs:     jobs,
		notifier: notifier,
		engine: pdfops.New(pdfops.Config{
			ParseTimeout:   config.ParseTimeout,
			ToolIdentifier: config.ToolIdentifier,
			Logger:         slog.Default(),
		}),
		config:       config,
		maxRetries:   4,
		retryBackoff: time.Second,
	}
}

// Process runs one operation. Identical requests over identical inputs that
// already completed return the earlier outputs without reprocessing.
func (f *ToolFunction) Process(ctx context.Context, req *models.ToolRequest) (*models.ToolResponse, error) {
	logCtx := slog.With("operation", req.Operation)

	engineReq, err := toEngineRequest(req)
	if err != nil {
		logCtx.Warn("Rejected request.", "error", err)
		return nil, err
	}
	inputs, err := f.resolveInputs(ctx, req)
	if err != nil {
		logCtx.Error("Failed to resolve inputs", "error", err)
		return nil, err
	}
	engineReq.Inputs = inputs
	logCtx = logCtx.With("inputCount", len(inputs))

	requestHash := hashRequest(req, inputs)
	logCtx = logCtx.With("requestHash", requestHash)

	// Info results are not stored, so info requests always run.
	if engineReq.Kind != pdfops.KindInfo {
		existing, err := f.jobs.FindComplete(ctx, requestHash)
		if err != nil {
			logCtx.Error("Failed to check for duplicate", "error", err)
			return nil, err
		}
		if existing != nil {
			logCtx.Info("Duplicate request detected. Returning earlier outputs.", "existingJobId", existing.ID)
			return &models.ToolResponse{
				Status:    models.StatusComplete,
				JobID:     existing.ID,
				Outputs:   existing.OutputURIs,
				Savings:   existing.Savings,
				Duplicate: true,
			}, nil
		}
	}

	jobID, err := f.jobs.Create(ctx, &models.Job{
		RequestHash: requestHash,
		Operation:   engineReq.Kind.String(),
		Status:      models.StatusValidating,
		InputCount:  len(inputs),
		CreatedAt:   time.Now(),
	})
	if err != nil {
		logCtx.Error("Failed to create job document", "error", err)
		return nil, err
	}
	logCtx = logCtx.With("jobId", jobID)
	logCtx.Info("Created job in Firestore.")

	if err := f.jobs.SetStatus(ctx, jobID, models.StatusProcessing, ""); err != nil {
		return nil, f.handleError(ctx, logCtx, jobID, "failed to update status to PROCESSING", err)
	}
	res, err := f.engine.Run(ctx, engineReq)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, jobID, "operation failed", err)
	}

	outputs, err := f.uploadArtifacts(ctx, logCtx, jobID, res.Artifacts)
	if err != nil {
		return nil, f.handleError(ctx, logCtx, jobID, "one or more outputs failed to upload", err)
	}

	var savings *float64
	if res.Compression != nil {
		savings = &res.Compression.Savings
	}
	if f.notifier != nil {
		execution, err := f.notifier.Notify(ctx, map[string]any{
			"jobId":     jobID,
			"operation": engineReq.Kind.String(),
			"outputs":   outputs,
		})
		if err != nil {
			return nil, f.handleError(ctx, logCtx, jobID, "failed to notify workflow", err)
		}
		logCtx.Info("Triggered workflow.", "execution", execution)
	}
	if err := f.jobs.Complete(ctx, jobID, outputs, savings); err != nil {
		return nil, f.handleError(ctx, logCtx, jobID, "failed to mark job COMPLETE", err)
	}

	logCtx.Info("Job complete.", "outputCount", len(outputs))
	return &models.ToolResponse{
		Status:  models.StatusComplete,
		JobID:   jobID,
		Outputs: outputs,
		Info:    res.Info,
		Savings: savings,
	}, nil
}

// toEngineRequest validates the request parameters. Inputs are resolved
// separately.
func toEngineRequest(req *models.ToolRequest) (pdfops.Request, error) {
	kind, err := pdfops.ParseKind(req.Operation)
	if err != nil {
		return pdfops.Request{}, err
	}
	out := pdfops.Request{
		Kind:     kind,
		Selector: req.Selector,
		Pages:    req.Pages,
		Angle:    req.Angle,
		Text:     req.Text,
	}
	if p := req.Watermark; p != nil {
		opts := pdfops.DefaultWatermarkOptions()
		if p.FontSize > 0 {
			opts.FontSize = p.FontSize
		}
		if p.Opacity != nil {
			if *p.Opacity < 0 || *p.Opacity > 1 {
				return pdfops.Request{}, fmt.Errorf("%w: opacity must be between 0 and 1", ErrInvalidRequest)
			}
			opts.Opacity = *p.Opacity
		}
		if p.Rotation != nil {
			opts.Rotation = *p.Rotation
		}
		if p.Color != nil {
			opts.Color = *p.Color
		}
		out.Watermark = &opts
	}
	if p := req.PageNumbers; p != nil {
		opts := pdfops.DefaultPageNumberOptions()
		if p.Position != "" {
			pos, err := pdfops.ParsePosition(p.Position)
			if err != nil {
				return pdfops.Request{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
			}
			opts.Position = pos
		}
		if p.Format != "" {
			opts.Format = p.Format
		}
		if p.FontSize > 0 {
			opts.FontSize = p.FontSize
		}
		if p.StartNumber > 0 {
			opts.StartNumber = p.StartNumber
		}
		out.PageNumbers = &opts
	}
	return out, nil
}

type inputObject struct {
	bucket, name, mimeType string
}

// resolveInputs downloads the request inputs concurrently, keeping their
// order.
func (f *ToolFunction) resolveInputs(ctx context.Context, req *models.ToolRequest) ([]pdfops.Input, error) {
	var objects []inputObject
	switch {
	case len(req.Inputs) > 0:
		for _, ref := range req.Inputs {
			bucket, name, err := gcp.ParseGCSUri(ref.GCSUri)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
			}
			if name == "" {
				return nil, fmt.Errorf("%w: %s names no object", ErrInvalidRequest, ref.GCSUri)
			}
			objects = append(objects, inputObject{bucket: bucket, name: name, mimeType: ref.MIMEType})
		}
	case req.InputPrefix != "":
		bucket, prefix, err := gcp.ParseGCSUri(req.InputPrefix)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		listed, err := f.store.List(ctx, bucket, prefix)
		if err != nil {
			return nil, err
		}
		for _, o := range listed {
			objects = append(objects, inputObject{bucket: o.Bucket, name: o.Name})
		}
		if len(objects) == 0 {
			return nil, fmt.Errorf("%w: no objects under %s", pdfops.ErrNoInput, req.InputPrefix)
		}
	default:
		return nil, fmt.Errorf("%w: no inputs given", ErrInvalidRequest)
	}

	inputs := make([]pdfops.Input, len(objects))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(f.config.UploadConcurrency)
	for i, o := range objects {
		eg.Go(func() error {
			data, contentType, err := f.store.Read(gctx, o.bucket, o.name)
			if err != nil {
				return fmt.Errorf("input %d: %w", i+1, err)
			}
			mimeType := o.mimeType
			if mimeType == "" {
				mimeType = contentType
			}
			inputs[i] = pdfops.Input{Name: o.name, MIMEType: mimeType, Data: data}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return inputs, nil
}

// hashRequest digests the operation parameters and the input bytes.
func hashRequest(req *models.ToolRequest, inputs []pdfops.Input) string {
	params := *req
	params.Inputs = nil
	params.InputPrefix = ""
	paramBytes, _ := json.Marshal(params)

	hash := sha256.New()
	writeField := func(b []byte) {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(b)))
		hash.Write(n[:])
		hash.Write(b)
	}
	writeField(paramBytes)
	// An empty page list targets no pages, a missing one targets all.
	if req.Pages != nil {
		writeField([]byte("pages"))
	}
	for _, in := range inputs {
		writeField([]byte(in.MIMEType))
		writeField(in.Data)
	}
	return hex.EncodeToString(hash.Sum(nil))
}

func (f *ToolFunction) uploadArtifacts(ctx context.Context, logCtx *slog.Logger, jobID string, artifacts []pdfops.Artifact) ([]string, error) {
	if len(artifacts) == 0 {
		return nil, nil
	}
	logCtx.Info("Starting concurrent upload of outputs.", "outputCount", len(artifacts))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(f.config.UploadConcurrency)

	uris := make([]string, len(artifacts))
	for i, a := range artifacts {
		object := fmt.Sprintf("%s/%s", jobID, a.Name)
		uris[i] = gcp.GCSUri(f.config.OutputBucket, object)
		eg.Go(func() error {
			if err := f.uploadWithRetry(gctx, object, a.Data); err != nil {
				return fmt.Errorf("output %s: %w", a.Name, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	logCtx.Info("All outputs uploaded successfully.")
	return uris, nil
}

func (f *ToolFunction) uploadWithRetry(ctx context.Context, object string, data []byte) error {
	backoff := f.retryBackoff
	var lastErr error

	for i := 0; i < f.maxRetries; i++ {
		err := func() error {
			writeCtx, cancel := context.WithTimeout(ctx, time.Second*50)
			defer cancel()
			return f.store.Write(writeCtx, f.config.OutputBucket, object, data, "application/pdf")
		}()
		if err == nil {
			return nil
		}

		lastErr = err
		slog.Warn(
			"Upload failed, will retry.",
			"gcsObject", object,
			"attempt", i+1,
			"maxRetries", f.maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			slog.Error("Context cancelled during backoff. Aborting retries.", "gcsObject", object, "error", ctx.Err())
			return ctx.Err()
		}
	}
	slog.Error("Upload failed after all retries.", "gcsObject", object, "error", lastErr)
	return fmt.Errorf("upload for %s failed after all retries: %w", object, lastErr)
}

func (f *ToolFunction) handleError(ctx context.Context, logCtx *slog.Logger, jobID, message string, originalErr error) error {
	fullError := fmt.Errorf("%s: %w", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := f.jobs.SetStatus(ctx, jobID, models.StatusFailed, fullError.Error()); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
	}
	return fullError
}
