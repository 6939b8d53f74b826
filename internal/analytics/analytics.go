// Package analytics buckets link timestamps into fixed windows for charting.
package analytics

import (
	"fmt"
	"strings"
	"time"

	"github.com/TobiSchelling/repwatch/internal/encyclopedia"
)

// Period selects the bucket width.
type Period string

const (
	Monthly Period = "monthly"
	Weekly  Period = "weekly"
)

// Buckets is the number of windows Aggregate always returns.
const Buckets = 12

// ParsePeriod accepts "monthly" or "weekly" in any case. Empty means monthly.
func ParsePeriod(s string) (Period, error) {
	switch Period(strings.ToLower(strings.TrimSpace(s))) {
	case "", Monthly:
		return Monthly, nil
	case Weekly:
		return Weekly, nil
	default:
		return "", fmt.Errorf("unknown period %q (want monthly or weekly)", s)
	}
}

// Bucket is one window of the chart.
type Bucket struct {
	Label string `json:"label"`
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// IsAggregable reports whether a link can be counted. Links without a
// timestamp are excluded rather than dated to now.
func IsAggregable(link encyclopedia.Link) bool {
	return link.Timestamp != nil && !link.Timestamp.IsZero()
}

// CollectLinks returns the links of the allow-listed categories.
func CollectLinks(categories []encyclopedia.Category, allow []string) []encyclopedia.Link {
	allowed := make(map[string]bool, len(allow))
	for _, id := range allow {
		allowed[id] = true
	}
	var out []encyclopedia.Link
	for _, c := range categories {
		if allowed[c.ID] {
			out = append(out, c.Links...)
		}
	}
	return out
}

// Aggregate counts links into 12 contiguous windows, oldest first, the last
// one containing now. Windows are computed in now's location. Links outside
// the range or without a timestamp are ignored.
func Aggregate(links []encyclopedia.Link, period Period, now time.Time) []Bucket {
	loc := now.Location()
	start, step, key, label := windowing(period, now)

	buckets := make([]Bucket, Buckets)
	index := make(map[string]int, Buckets)
	for i := 0; i < Buckets; i++ {
		t := step(start, i-(Buckets-1))
		buckets[i] = Bucket{Key: key(t), Label: label(t)}
		index[buckets[i].Key] = i
	}

	for _, l := range links {
		if !IsAggregable(l) {
			continue
		}
		ts := l.Timestamp.In(loc)
		if i, ok := index[key(windowStart(period, ts))]; ok {
			buckets[i].Count++
		}
	}
	return buckets
}

func windowing(period Period, now time.Time) (start time.Time, step func(time.Time, int) time.Time, key, label func(time.Time) string) {
	start = windowStart(period, now)
	if period == Weekly {
		return start,
			func(t time.Time, n int) time.Time { return t.AddDate(0, 0, 7*n) },
			func(t time.Time) string { return t.Format("2006-01-02") },
			func(t time.Time) string { return t.Format("Jan 2") }
	}
	return start,
		func(t time.Time, n int) time.Time { return t.AddDate(0, n, 0) },
		func(t time.Time) string { return t.Format("2006-01") },
		func(t time.Time) string { return t.Format("Jan 06") }
}

// windowStart returns the first instant of the window containing t: the
// first of the month, or Monday for weekly windows.
func windowStart(period Period, t time.Time) time.Time {
	y, m, d := t.Date()
	if period == Weekly {
		offset := (int(t.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
	}
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}
