package domain

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"
	"time"
)

// SyncState is the per-key incremental marker. It is always written whole.
type SyncState struct {
	LastAtISO  *string `json:"last_at_iso"`
	LastRunUTC string  `json:"last_run_utc"`
	Processed  int     `json:"processed"`
	Errors     int     `json:"errors"`
}

// StateKey identifies one independent incremental stream.
type StateKey struct {
	AppID   string
	Lang    string
	Country string
	Sort    string
}

func (k StateKey) String() string {
	return strings.Join([]string{k.AppID, k.Lang, k.Country, k.Sort}, "|")
}

// State is the whole persisted mapping. Entries stay raw so keys owned by other
// targets round-trip byte for byte.
type State map[string]json.RawMessage

// Lookup decodes the entry for key. Missing, null or non-object entries report false.
func (s State) Lookup(key string) (SyncState, bool) {
	raw, ok := s[key]
	if !ok {
		return SyncState{}, false
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return SyncState{}, false
	}
	var st SyncState
	if err := json.Unmarshal(trimmed, &st); err != nil {
		return SyncState{}, false
	}
	return st, true
}

// LookupFold finds an entry whose key equals key ignoring case, for state written
// with the sort as typed (e.g. "app|id|id|newest"). When several match, the one with
// the latest watermark wins. The exact key is not considered.
func (s State) LookupFold(key string) (SyncState, string, bool) {
	var keys []string
	for k := range s {
		if k != key && strings.EqualFold(k, key) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	var (
		best    SyncState
		bestKey string
		bestAt  *time.Time
	)
	for _, k := range keys {
		st, ok := s.Lookup(k)
		if !ok {
			continue
		}
		at := ParseTimestamp(st.LastAtISO)
		if bestKey == "" || (at != nil && (bestAt == nil || at.After(*bestAt))) {
			best, bestKey, bestAt = st, k, at
		}
	}
	return best, bestKey, bestKey != ""
}

// With returns a copy of s whose entry for key is replaced by st.
func (s State) With(key string, st SyncState) (State, error) {
	b, err := json.Marshal(st)
	if err != nil {
		return nil, err
	}
	out := s.Clone()
	out[key] = b
	return out, nil
}

func (s State) Clone() State {
	out := make(State, len(s)+1)
	for k, v := range s {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// Run statuses
const (
	RunOK     = "ok"
	RunFailed = "failed"
)

// RunRecord is one row of sync history.
type RunRecord struct {
	ID            string    `json:"id"`
	StateKey      string    `json:"state_key"`
	EffectiveSort string    `json:"effective_sort"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Fetched       int       `json:"fetched"`
	Processed     int       `json:"processed"`
	Errors        int       `json:"errors"`
	Status        string    `json:"status"`
	Error         *string   `json:"error,omitempty"`
}
