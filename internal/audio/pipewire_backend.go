package audio

import (
	"context"

	"github.com/audiolibrelab/tunefinder/internal/config"
)

// PipeWireBackend implements Backend using pw-record and pw-link
type PipeWireBackend struct{}

func (p *PipeWireBackend) NewCapture(cfg config.AudioConfig) Capture {
	return NewPipeWireCapture(cfg)
}

// ListSources returns the capture ports known to PipeWire
func (p *PipeWireBackend) ListSources(ctx context.Context) ([]string, error) {
	return NewPipeWire().ListSources(ctx)
}

func (p *PipeWireBackend) ValidateSource(ctx context.Context, source string) error {
	if source == "" {
		return nil
	}
	return NewPipeWire().ValidatePort(ctx, source)
}

func (p *PipeWireBackend) Type() BackendType {
	return BackendTypePipeWire
}
