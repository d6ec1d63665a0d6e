// Package pdfops implements the document page-model operations: merging,
// splitting, page selection, rotation, overlays, sanitising and image
// import. Every operation loads its input bytes, mutates the page model and
// serialises a fresh document; nothing is cached between calls.
package pdfops

import (
	"errors"
	"log/slog"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const (
	DefaultParseTimeout   = 30 * time.Second
	DefaultToolIdentifier = "CR PDF Tools"
)

var (
	// ErrMalformedDocument is returned when input bytes cannot be parsed as a PDF.
	ErrMalformedDocument = errors.New("malformed document")
	ErrNoInput           = errors.New("no input documents")
	ErrInvalidRotation   = errors.New("rotation must be one of 90, 180 or 270 degrees")
	ErrEmptyText         = errors.New("overlay text must not be empty")
	// ErrEmptyResult is returned when an operation would produce a document
	// without pages, or no document at all.
	ErrEmptyResult       = errors.New("operation produced no pages")
	ErrUnknownOperation  = errors.New("unknown operation")
)

// Config holds engine settings.
type Config struct {
	// ParseTimeout bounds each codec call. Zero disables the deadline.
	ParseTimeout time.Duration
	// ToolIdentifier is written as Creator/Producer by Compress.
	ToolIdentifier string
	Logger         *slog.Logger
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		ParseTimeout:   DefaultParseTimeout,
		ToolIdentifier: DefaultToolIdentifier,
		Logger:         slog.Default(),
	}
}

// Engine runs document operations. It holds no per-document state and is
// safe for concurrent use.
type Engine struct {
	config Config
	log    *slog.Logger
}

// New creates an Engine. An empty ToolIdentifier or nil Logger fall back to
// DefaultConfig; ParseTimeout is used as given.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.ToolIdentifier == "" {
		cfg.ToolIdentifier = def.ToolIdentifier
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	return &Engine{config: cfg, log: cfg.Logger}
}

// newConfiguration returns a fresh codec configuration per call; pdfcpu
// mutates it while reading.
func newConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}
