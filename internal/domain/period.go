package domain

import (
	"fmt"
	"strings"
	"time"
)

// Granularity is the width of the buckets analytics are grouped into
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityWeekly  Granularity = "weekly"
	GranularityMonthly Granularity = "monthly"
	GranularityYearly  Granularity = "yearly"
)

// ParseGranularity accepts the granularity names and their singular nouns
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "day":
		return GranularityDaily, nil
	case "weekly", "week":
		return GranularityWeekly, nil
	case "", "monthly", "month":
		return GranularityMonthly, nil
	case "yearly", "year":
		return GranularityYearly, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidGranularity, s)
}

// Valid reports whether g is a known granularity
func (g Granularity) Valid() bool {
	switch g {
	case GranularityDaily, GranularityWeekly, GranularityMonthly, GranularityYearly:
		return true
	}
	return false
}

// Truncate returns the start of the bucket containing t, in UTC.
// Weeks start on Monday.
func (g Granularity) Truncate(t time.Time) time.Time {
	t = t.UTC()
	y, m, d := t.Date()
	switch g {
	case GranularityDaily:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	case GranularityWeekly:
		offset := (int(t.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, time.UTC)
	case GranularityMonthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	case GranularityYearly:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return t
}

// Advance moves a bucket start n buckets forward
func (g Granularity) Advance(start time.Time, n int) time.Time {
	switch g {
	case GranularityDaily:
		return start.AddDate(0, 0, n)
	case GranularityWeekly:
		return start.AddDate(0, 0, 7*n)
	case GranularityMonthly:
		return start.AddDate(0, n, 0)
	case GranularityYearly:
		return start.AddDate(n, 0, 0)
	}
	return start
}

// DateRange is the half-open interval [From, To).
// A zero bound is unbounded on that side.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether t falls inside the range
func (r DateRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

// IsEmpty reports whether a bounded range contains no instant
func (r DateRange) IsEmpty() bool {
	return !r.From.IsZero() && !r.To.IsZero() && !r.From.Before(r.To)
}

// Bucket is one left-closed interval [Start, End) of a bucketed range
type Bucket struct {
	Start time.Time
	End   time.Time
}

// MaxBuckets is the largest number of buckets a range may be split into
const MaxBuckets = 10_000

// BucketCount returns how many buckets Buckets would produce, without building them
func (r DateRange) BucketCount(g Granularity) int64 {
	if r.IsEmpty() || r.From.IsZero() || r.To.IsZero() || !g.Valid() {
		return 0
	}
	first := g.Truncate(r.From)
	last := g.Truncate(r.To)

	var n int64
	switch g {
	case GranularityDaily:
		n = unixDays(last) - unixDays(first)
	case GranularityWeekly:
		n = (unixDays(last) - unixDays(first)) / 7
	case GranularityMonthly:
		n = int64(last.Year()-first.Year())*12 + int64(last.Month()-first.Month())
	case GranularityYearly:
		n = int64(last.Year() - first.Year())
	}
	// To inside a bucket opens one more
	if r.To.After(last) {
		n++
	}
	return n
}

func unixDays(t time.Time) int64 {
	return t.Unix() / 86400
}

// Buckets splits r into calendar-aligned buckets of granularity g.
// The first bucket starts at the truncation of From and may begin before it.
func (r DateRange) Buckets(g Granularity) []Bucket {
	if r.IsEmpty() || r.From.IsZero() || r.To.IsZero() || !g.Valid() {
		return []Bucket{}
	}
	buckets := make([]Bucket, 0)
	for start := g.Truncate(r.From); start.Before(r.To); start = g.Advance(start, 1) {
		buckets = append(buckets, Bucket{Start: start, End: g.Advance(start, 1)})
	}
	return buckets
}

// ParseDate accepts an RFC 3339 timestamp or a plain YYYY-MM-DD date and returns it in UTC.
// An empty string yields the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: unparseable date %q", ErrInvalidRange, s)
	}
	return t, nil
}
