// Package usagelog records upstream fetch attempts for billing and audit.
// Recording is fire-and-forget: implementations must never let a storage
// failure reach the caller.
package usagelog

import (
	"context"
	"time"

	"goldprice-api/internal/models"
)

// Entry describes one upstream attempt.
type Entry struct {
	Source       models.Source
	Success      bool
	LatencyMs    int64
	ErrorMessage string

	// Request attribution, when known.
	UserID   string
	Username string
	Role     string
	IP       string
	Endpoint string
}

// Recorder consumes usage entries. Record must not block the price path
// and must swallow its own failures.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// Nop discards every entry.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, Entry) {}

// Multi fans one entry out to several recorders.
type Multi []Recorder

// Record implements Recorder.
func (m Multi) Record(ctx context.Context, entry Entry) {
	for _, r := range m {
		r.Record(ctx, entry)
	}
}

// Attribution identifies the request that triggered an upstream attempt.
// It travels on the context so the aggregator can stamp entries without
// knowing about HTTP.
type Attribution struct {
	UserID   string
	Username string
	Role     string
	IP       string
	Endpoint string
}

type attributionKey struct{}

// WithAttribution returns a context carrying request attribution.
func WithAttribution(ctx context.Context, attr Attribution) context.Context {
	return context.WithValue(ctx, attributionKey{}, attr)
}

// AttributionFrom extracts request attribution, if the context carries any.
func AttributionFrom(ctx context.Context) (Attribution, bool) {
	attr, ok := ctx.Value(attributionKey{}).(Attribution)
	return attr, ok
}

// NewEntry builds an attempt entry from a fetch outcome, stamped with
// whatever attribution the context carries.
func NewEntry(ctx context.Context, source models.Source, latency time.Duration, err error) Entry {
	entry := Entry{
		Source:    source,
		Success:   err == nil,
		LatencyMs: latency.Milliseconds(),
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
	}
	if attr, ok := AttributionFrom(ctx); ok {
		entry.UserID = attr.UserID
		entry.Username = attr.Username
		entry.Role = attr.Role
		entry.IP = attr.IP
		entry.Endpoint = attr.Endpoint
	}
	return entry
}
