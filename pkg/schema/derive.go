package schema

import (
	"encoding/json"
	"time"
)

// minerStats is the subset of the ingestion stats payload that feeds the
// stored derived columns.
type minerStats struct {
	WPS              *float64 `json:"wps"`
	TimeForAllTokens *float64 `json:"time_for_all_tokens"`
	Verified         bool     `json:"verified"`
}

// DeriveMinerFields computes the derived MinerResponse columns from a stats
// payload. The function is pure: for any payload it always yields the same
// values, so stored columns can be re-validated against it in tests.
// Missing fields derive to nil (absent), malformed payloads derive to all
// absent and unverified.
func DeriveMinerFields(stats json.RawMessage) (wps, timeForAllTokens *float64, verified bool) {
	if len(stats) == 0 {
		return nil, nil, false
	}
	var s minerStats
	if err := json.Unmarshal(stats, &s); err != nil {
		return nil, nil, false
	}
	return s.WPS, s.TimeForAllTokens, s.Verified
}

// NewMinerResponse builds a MinerResponse with its derived columns filled
// from the stats payload. This is the only path that sets them.
func NewMinerResponse(rNanoid, hotkey, coldkey string, uid int, stats json.RawMessage) *MinerResponse {
	wps, tfat, verified := DeriveMinerFields(stats)
	return &MinerResponse{
		RNanoid:          rNanoid,
		Hotkey:           hotkey,
		Coldkey:          coldkey,
		UID:              uid,
		Stats:            stats,
		WPS:              wps,
		TimeForAllTokens: tfat,
		Verified:         verified,
	}
}

// RequestDate extracts the calendar date from a request timestamp. Stored on
// ValidatorRequest at write time; never set independently.
func RequestDate(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
