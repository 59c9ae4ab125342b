package bridge

import (
	"context"

	"github.com/oshokin/alarm-bridge/internal/alert"
	"github.com/oshokin/alarm-bridge/internal/domain/alarm"
	"github.com/oshokin/alarm-bridge/internal/framer"
	"github.com/oshokin/alarm-bridge/internal/hub"
	"github.com/oshokin/alarm-bridge/internal/logger"
	"github.com/oshokin/alarm-bridge/internal/metrics"
)

// Pipeline turns raw device chunks into published statuses and alerts.
// It owns the line buffer and the alert latches and must be driven from a
// single goroutine.
type Pipeline struct {
	// framer holds the partial trailing record.
	framer *framer.Framer
	// detector holds the alert latches.
	detector *alert.Detector
	// hub receives every status and every raised alert.
	hub *hub.Hub
	// metrics records pipeline statistics; may be nil.
	metrics *metrics.Metrics
}

// NewPipeline wires a fresh framer and detector to the hub.
func NewPipeline(h *hub.Hub, threshold float64, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		framer:   framer.New(),
		detector: alert.New(threshold),
		hub:      h,
		metrics:  m,
	}
}

// HandleChunk processes one raw chunk. Lines that fail to decode are logged
// and skipped; they never reach subscribers or the latches.
func (p *Pipeline) HandleChunk(ctx context.Context, chunk []byte) {
	p.metrics.BytesRead(len(chunk))

	lines := p.framer.Feed(chunk)
	p.metrics.LinesFramed(len(lines))

	for _, line := range lines {
		p.handleLine(ctx, line)
	}
}

// handleLine decodes a single line and publishes the result.
func (p *Pipeline) handleLine(ctx context.Context, line string) {
	status, err := alarm.DecodeStatus(line)
	if err != nil {
		p.metrics.DecodeFailure()
		logger.WarnKV(ctx, "Dropping malformed line", "line", line, "error", err)

		return
	}

	logger.DebugKV(ctx, "Status received", "armed", status.Armed, "active", status.Active, "temp", status.Temp)

	p.hub.PublishStatus(status)

	for _, event := range p.detector.Observe(status) {
		logger.InfoKV(ctx, "Alert raised", "kind", event.Kind, "temp", status.Temp, "armed", status.Armed)
		p.hub.PublishAlert(event)
	}
}
