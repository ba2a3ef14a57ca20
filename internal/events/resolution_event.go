package events

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/crypto/blake2b"
)

// ResolutionEvent is published once per resolved request path.
type ResolutionEvent struct {
	Outcome   string // landing, redirect, list, clip or not_found
	Kind      string // namespace searched; empty for generic misses
	ShortCode string
	Target    string // original URL for redirects
	Timestamp time.Time
	IPHash    string
	UserAgent string
	Referer   string
}

func (e *ResolutionEvent) Values() map[string]interface{} {
	fields := map[string]interface{}{
		"outcome":    e.Outcome,
		"short_code": e.ShortCode,
		"timestamp":  e.Timestamp.UnixMilli(),
	}

	if e.Kind != "" {
		fields["kind"] = e.Kind
	}
	if e.Target != "" {
		fields["target"] = e.Target
	}
	if e.IPHash != "" {
		fields["ip_hash"] = e.IPHash
	}
	if e.UserAgent != "" {
		fields["user_agent"] = e.UserAgent
	}
	if e.Referer != "" {
		fields["referer"] = e.Referer
	}

	return fields
}

// ParseResolutionEvent rebuilds an event from stream message values.
func ParseResolutionEvent(values map[string]interface{}) (*ResolutionEvent, error) {
	outcome, ok := values["outcome"].(string)
	if !ok || outcome == "" {
		return nil, fmt.Errorf("missing outcome")
	}

	e := &ResolutionEvent{
		Outcome:   outcome,
		Kind:      str(values["kind"]),
		ShortCode: str(values["short_code"]),
		Target:    str(values["target"]),
		IPHash:    str(values["ip_hash"]),
		UserAgent: str(values["user_agent"]),
		Referer:   str(values["referer"]),
	}

	millis, err := strconv.ParseInt(str(values["timestamp"]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp: %w", err)
	}
	e.Timestamp = time.UnixMilli(millis).UTC()

	return e, nil
}

// HashIP anonymizes ip with a keyed BLAKE2b-128. The same key always maps an
// address to the same hash, so unique visitors can still be counted.
func HashIP(key []byte, ip string) string {
	if ip == "" {
		return ""
	}

	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}

	h, err := blake2b.New(16, key)
	if err != nil {
		return ""
	}
	h.Write([]byte(ip))
	return hex.EncodeToString(h.Sum(nil))
}

// Stream values come back from redis as strings.
func str(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
