package events

import (
	"testing"
	"time"
)

func TestValuesRoundTrip(t *testing.T) {
	ts := time.Date(2024, time.May, 5, 8, 30, 0, 123000000, time.UTC)
	in := &ResolutionEvent{
		Outcome:   "redirect",
		Kind:      "redirect",
		ShortCode: "abcdef",
		Target:    "https://example.com",
		Timestamp: ts,
		IPHash:    "deadbeef",
		UserAgent: "curl/8.0",
	}

	// Redis hands every value back as a string.
	values := make(map[string]interface{})
	for k, v := range in.Values() {
		values[k] = str(v)
	}

	out, err := ParseResolutionEvent(values)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !out.Timestamp.Equal(in.Timestamp) {
		t.Errorf("timestamp = %v, want %v", out.Timestamp, in.Timestamp)
	}
	out.Timestamp = in.Timestamp
	if *out != *in {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}
}

func TestValuesOmitEmptyFields(t *testing.T) {
	v := (&ResolutionEvent{Outcome: "not_found", ShortCode: "zz", Timestamp: time.Now()}).Values()
	for _, key := range []string{"kind", "target", "ip_hash", "user_agent", "referer"} {
		if _, ok := v[key]; ok {
			t.Errorf("expected %s to be omitted", key)
		}
	}
}

func TestParseResolutionEvent_Invalid(t *testing.T) {
	tests := []map[string]interface{}{
		{"short_code": "abc", "timestamp": "1"},
		{"outcome": "redirect", "timestamp": "yesterday"},
	}

	for _, values := range tests {
		if _, err := ParseResolutionEvent(values); err == nil {
			t.Errorf("expected error for %v", values)
		}
	}
}

func TestHashIP(t *testing.T) {
	key := []byte("secret")

	a := HashIP(key, "203.0.113.7")
	b := HashIP(key, "203.0.113.7")
	c := HashIP(key, "203.0.113.8")
	d := HashIP([]byte("other"), "203.0.113.7")

	if len(a) != 32 {
		t.Errorf("expected 128-bit hex digest, got %q", a)
	}
	if a != b {
		t.Error("expected stable hash for the same key and address")
	}
	if a == c || a == d {
		t.Error("expected different hashes for different address or key")
	}
	if HashIP(key, "") != "" {
		t.Error("expected empty hash for empty address")
	}
	if HashIP(make([]byte, 100), "x") == "" {
		t.Error("expected long keys to be accepted")
	}
}
