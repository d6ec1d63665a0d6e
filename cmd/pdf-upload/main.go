package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/pdftools/internal/services"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

var (
	uploadInstance *services.UploadFunction
	once           sync.Once
	initErr        error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// The function filesystem is read-only outside /tmp.
	api.DisableConfigDir()

	functions.CloudEvent("ProcessUpload", processUpload)
}

// main is required by the Go Functions Framework.
func main() {}

// processUpload is the Cloud Function entry point for object-finalize events.
func processUpload(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		uploadInstance, initErr = services.NewUploadFunction(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	return uploadInstance.Process(ctx, gcsEvent)
}
