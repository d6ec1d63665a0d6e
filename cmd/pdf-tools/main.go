package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/pdftools/internal/models"
	"github.com/Lllllllleong/pdftools/internal/services"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

var (
	toolInstance *services.ToolFunction
	once         sync.Once
	initErr      error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// The function filesystem is read-only outside /tmp.
	api.DisableConfigDir()

	functions.HTTP("HandlePDFTool", handlePDFTool)
}

// main is required by the Go Functions Framework.
func main() {}

// handlePDFTool is the HTTP entry point.
func handlePDFTool(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		toolInstance, initErr = services.NewToolFunction(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.ToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := toolInstance.Process(r.Context(), &req)
	if err != nil {
		// The error is already logged with context within the Process method.
		if services.IsClientError(err) {
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Internal Server Error: processing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
