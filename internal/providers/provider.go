// Package providers defines the upstream source abstraction shared by the
// price adapters and the typed errors they report.
package providers

import (
	"context"
	"fmt"
	"time"

	"goldprice-api/internal/models"
)

// Client is a single upstream price source. Fetch performs one bounded
// network round trip and returns a complete, normalized snapshot or a
// *FetchError describing why none could be produced.
type Client interface {
	// Name identifies the source in logs and usage records.
	Name() string
	// Source tags snapshots produced by this client.
	Source() models.Source
	// Fetch retrieves and normalizes the current prices.
	Fetch(ctx context.Context) (*models.Snapshot, error)
}

// Error codes carried by FetchError. The aggregator treats format and
// semantic failures identically; the distinction exists for logs and metrics.
const (
	ErrCodeNetwork  = "NETWORK_ERROR" // transport: timeout, refused connection, non-2xx
	ErrCodeFormat   = "BAD_FORMAT"    // HTTP success but payload shape is wrong
	ErrCodeSemantic = "EMPTY_PAYLOAD" // well-formed payload with no usable anchor price
)

// FetchError is the typed failure an adapter reports for one upstream
// attempt.
type FetchError struct {
	Provider  string
	Code      string
	Message   string
	Timestamp time.Time
	Err       error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Unwrap exposes the underlying transport error, when there is one.
func (e *FetchError) Unwrap() error { return e.Err }

// NewFetchError builds a FetchError stamped with the current time.
func NewFetchError(provider, code, message string, err error) *FetchError {
	return &FetchError{
		Provider:  provider,
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// ValidateAnchor enforces the anchor-instrument rule shared by both
// adapters: a payload that does not carry a non-zero sell price for the
// anchor instrument is rejected as empty.
func ValidateAnchor(provider string, values map[models.Code]models.Quote) error {
	q, ok := values[models.AnchorCode]
	if !ok || q.Sell == 0 {
		return NewFetchError(provider, ErrCodeSemantic,
			fmt.Sprintf("anchor %s sell price missing or zero", models.AnchorCode), nil)
	}
	return nil
}
