// Package expiry models the fixed set of lifetimes a short code can be
// created with and turns them into absolute expiration instants.
package expiry

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrUnknownOption = errors.New("unknown expiration option")

// Option is a closed enumeration. The zero value is not a valid option.
type Option int

const (
	OneHour Option = iota + 1
	OneDay
	OneWeek
	OneMonth
	OneYear
	Lifetime
)

var tokens = map[Option]string{
	OneHour:  "1h",
	OneDay:   "1d",
	OneWeek:  "1w",
	OneMonth: "1m",
	OneYear:  "1y",
	Lifetime: "lifetime",
}

// Options lists every option in display order.
func Options() []Option {
	return []Option{OneHour, OneDay, OneWeek, OneMonth, OneYear, Lifetime}
}

// Tokens lists the accepted wire tokens in display order.
func Tokens() []string {
	out := make([]string, 0, len(tokens))
	for _, o := range Options() {
		out = append(out, tokens[o])
	}
	return out
}

// Parse maps a wire token to an Option. Tokens are matched exactly after
// trimming surrounding whitespace; "1M" is not "1m".
func Parse(token string) (Option, error) {
	token = strings.TrimSpace(token)
	for o, t := range tokens {
		if t == token {
			return o, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOption, token)
}

func (o Option) String() string {
	if t, ok := tokens[o]; ok {
		return t
	}
	return fmt.Sprintf("Option(%d)", int(o))
}

// Resolve returns the instant at which an entry created at now expires, or
// nil for Lifetime. Month and year offsets are calendar offsets that clamp
// to the last day of the target month: Jan 31 + 1m is Feb 28 (or 29) and
// Feb 29 + 1y is Feb 28.
func (o Option) Resolve(now time.Time) (*time.Time, error) {
	var t time.Time

	switch o {
	case OneHour:
		t = now.Add(time.Hour)
	case OneDay:
		t = now.AddDate(0, 0, 1)
	case OneWeek:
		t = now.AddDate(0, 0, 7)
	case OneMonth:
		t = addMonthsClamped(now, 1)
	case OneYear:
		t = addMonthsClamped(now, 12)
	case Lifetime:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownOption, o)
	}

	return &t, nil
}

func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month(), t.Location()); day > last {
		day = last
	}

	return time.Date(first.Year(), first.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// IsExpired reports whether an entry with the given expiration is dead at now.
// A nil expiration never expires.
func IsExpired(expiresAt *time.Time, now time.Time) bool {
	return expiresAt != nil && !expiresAt.After(now)
}
