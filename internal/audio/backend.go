package audio

import (
	"context"
	"fmt"
	"strings"

	"github.com/audiolibrelab/tunefinder/internal/config"
)

// BackendType represents the type of audio backend
type BackendType string

const (
	BackendTypePipeWire BackendType = "pipewire"
	BackendTypeAuto     BackendType = "auto"
)

// Backend creates captures and inspects the available sources
type Backend interface {
	NewCapture(cfg config.AudioConfig) Capture
	ListSources(ctx context.Context) ([]string, error)
	ValidateSource(ctx context.Context, source string) error
	Type() BackendType
}

// NewBackend returns the backend selected in the configuration
func NewBackend(cfg config.AudioConfig) (Backend, error) {
	switch determineBackend(cfg) {
	case BackendTypePipeWire:
		return &PipeWireBackend{}, nil
	default:
		return nil, fmt.Errorf("unsupported audio backend: %s", cfg.Backend)
	}
}

// NewCapture creates a capture using the configured backend
func NewCapture(cfg config.AudioConfig) (Capture, error) {
	backend, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewCapture(cfg), nil
}

func determineBackend(cfg config.AudioConfig) BackendType {
	switch strings.ToLower(cfg.Backend) {
	case "", "auto", "pipewire":
		// PipeWire is the only backend on Linux desktops we target
		return BackendTypePipeWire
	}
	return BackendType(cfg.Backend)
}
