package models

import (
	"fmt"
	"time"
)

// Code identifies one of the instruments the service quotes. The set is
// closed: upstream keys that do not map to one of these are dropped during
// normalization.
type Code string

const (
	CodeAltin      Code = "ALTIN"
	CodeKulceAltin Code = "KULCEALTIN"
	CodeAyar22     Code = "AYAR22"
	CodeCeyrekYeni Code = "CEYREK_YENI"
	CodeCeyrekEski Code = "CEYREK_ESKI"
	CodeYarimYeni  Code = "YARIM_YENI"
	CodeYarimEski  Code = "YARIM_ESKI"
	CodeTekYeni    Code = "TEK_YENI"
	CodeTekEski    Code = "TEK_ESKI"
	CodeAtaYeni    Code = "ATA_YENI"
	CodeUSDTRY     Code = "USDTRY"
	CodeEURTRY     Code = "EURTRY"
)

// AnchorCode is the instrument whose sell price is used to validate that an
// upstream payload is actually carrying market data. A payload where the
// anchor is missing or zero is rejected even on HTTP 200.
const AnchorCode = CodeKulceAltin

// AllCodes lists every canonical instrument, in reporting order.
var AllCodes = []Code{
	CodeAltin,
	CodeKulceAltin,
	CodeAyar22,
	CodeCeyrekYeni,
	CodeCeyrekEski,
	CodeYarimYeni,
	CodeYarimEski,
	CodeTekYeni,
	CodeTekEski,
	CodeAtaYeni,
	CodeUSDTRY,
	CodeEURTRY,
}

// IsValidCode reports whether s names a canonical instrument.
func IsValidCode(s string) bool {
	for _, c := range AllCodes {
		if string(c) == s {
			return true
		}
	}
	return false
}

// Source identifies which upstream produced a snapshot.
type Source string

const (
	SourceFree Source = "free_api" // low-cost primary upstream
	SourcePaid Source = "paid_api" // metered secondary upstream
)

// Quote is a buy/sell pair for one instrument. Both legs are always set
// together; a snapshot never carries a partial pair.
type Quote struct {
	Buy  float64 `json:"buy"`
	Sell float64 `json:"sell"`
}

// Snapshot is one complete set of quotes fetched from a single upstream.
// It is immutable after construction: the cache replaces snapshots wholesale
// and never mutates one in place.
type Snapshot struct {
	Values    map[Code]Quote `json:"values"`
	Source    Source         `json:"source"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// NewSnapshot builds a snapshot, copying values so later mutation of the
// input map cannot leak into the cached state.
func NewSnapshot(values map[Code]Quote, source Source, fetchedAt time.Time) *Snapshot {
	copied := make(map[Code]Quote, len(values))
	for code, q := range values {
		copied[code] = q
	}
	return &Snapshot{
		Values:    copied,
		Source:    source,
		FetchedAt: fetchedAt,
	}
}

// Age returns how old the snapshot is at the given instant.
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}

// Quote returns the pair for a code, if the snapshot carries it.
func (s *Snapshot) Quote(code Code) (Quote, bool) {
	q, ok := s.Values[code]
	return q, ok
}

// Flatten renders the snapshot as the wire shape consumed by the margin and
// response layers: one float per `<CODE>_alis` / `<CODE>_satis` key. Codes
// the snapshot does not carry are reported as zero pairs so the key set is
// stable across sources.
func (s *Snapshot) Flatten() map[string]float64 {
	out := make(map[string]float64, 2*len(AllCodes))
	for _, code := range AllCodes {
		q := s.Values[code]
		out[BuyKey(code)] = q.Buy
		out[SellKey(code)] = q.Sell
	}
	return out
}

// BuyKey returns the flattened buy-side key for a code.
func BuyKey(code Code) string { return fmt.Sprintf("%s_alis", code) }

// SellKey returns the flattened sell-side key for a code.
func SellKey(code Code) string { return fmt.Sprintf("%s_satis", code) }
