package expiry

import (
	"errors"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		token string
		want  Option
	}{
		{"1h", OneHour},
		{"1d", OneDay},
		{"1w", OneWeek},
		{"1m", OneMonth},
		{"1y", OneYear},
		{"lifetime", Lifetime},
		{" 1d ", OneDay},
	}

	for _, tt := range tests {
		got, err := Parse(tt.token)
		if err != nil {
			t.Errorf("Parse(%q) unexpected error: %v", tt.token, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.token, got, tt.want)
		}
		if got.String() != tt.want.String() {
			t.Errorf("String() mismatch for %q", tt.token)
		}
	}
}

func TestParse_Unknown(t *testing.T) {
	for _, token := range []string{"", "2h", "1M", "forever", "never"} {
		_, err := Parse(token)
		if !errors.Is(err, ErrUnknownOption) {
			t.Errorf("Parse(%q): expected ErrUnknownOption, got %v", token, err)
		}
	}
}

func TestResolve(t *testing.T) {
	now := time.Date(2024, time.March, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		opt  Option
		want time.Time
	}{
		{OneHour, time.Date(2024, time.March, 10, 16, 30, 0, 0, time.UTC)},
		{OneDay, time.Date(2024, time.March, 11, 15, 30, 0, 0, time.UTC)},
		{OneWeek, time.Date(2024, time.March, 17, 15, 30, 0, 0, time.UTC)},
		{OneMonth, time.Date(2024, time.April, 10, 15, 30, 0, 0, time.UTC)},
		{OneYear, time.Date(2025, time.March, 10, 15, 30, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := tt.opt.Resolve(now)
		if err != nil {
			t.Fatalf("%v: unexpected error: %v", tt.opt, err)
		}
		if got == nil || !got.Equal(tt.want) {
			t.Errorf("%v: got %v, want %v", tt.opt, got, tt.want)
		}
	}
}

func TestResolve_Lifetime(t *testing.T) {
	got, err := Lifetime.Resolve(time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil expiration for lifetime, got %v", got)
	}
}

func TestResolve_InvalidOption(t *testing.T) {
	var zero Option
	if _, err := zero.Resolve(time.Now()); !errors.Is(err, ErrUnknownOption) {
		t.Errorf("expected ErrUnknownOption for zero value, got %v", err)
	}
	if _, err := Option(42).Resolve(time.Now()); !errors.Is(err, ErrUnknownOption) {
		t.Errorf("expected ErrUnknownOption for out-of-range value, got %v", err)
	}
}

func TestResolve_CalendarClamping(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		opt  Option
		want time.Time
	}{
		{
			name: "jan 31 plus one month in a leap year",
			now:  time.Date(2024, time.January, 31, 9, 0, 0, 0, time.UTC),
			opt:  OneMonth,
			want: time.Date(2024, time.February, 29, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "jan 31 plus one month in a common year",
			now:  time.Date(2023, time.January, 31, 9, 0, 0, 0, time.UTC),
			opt:  OneMonth,
			want: time.Date(2023, time.February, 28, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "feb 29 plus one year",
			now:  time.Date(2024, time.February, 29, 9, 0, 0, 0, time.UTC),
			opt:  OneYear,
			want: time.Date(2025, time.February, 28, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "dec 31 plus one month rolls the year",
			now:  time.Date(2024, time.December, 31, 23, 59, 0, 0, time.UTC),
			opt:  OneMonth,
			want: time.Date(2025, time.January, 31, 23, 59, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.opt.Resolve(tt.now)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Second)
	future := now.Add(time.Second)

	if IsExpired(nil, now) {
		t.Error("nil expiration must never expire")
	}
	if !IsExpired(&past, now) {
		t.Error("expected past expiration to be expired")
	}
	if IsExpired(&future, now) {
		t.Error("expected future expiration to be active")
	}
	if !IsExpired(&now, now) {
		t.Error("expected expiration equal to now to be expired")
	}
}

func TestTokens(t *testing.T) {
	got := Tokens()
	want := []string{"1h", "1d", "1w", "1m", "1y", "lifetime"}
	if len(got) != len(want) {
		t.Fatalf("expected %d tokens, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
