package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts the RFC 3339 and SQL datetime forms the backend emits.
// Zone-less values are read as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// TimeAgo renders a coarse relative time for conversation rows.
func TimeAgo(ts string, now time.Time) string {
	t, ok := ParseTimestamp(ts)
	if !ok {
		return ""
	}

	seconds := int(now.Sub(t).Seconds())
	switch {
	case seconds < 60:
		return "Just now"
	case seconds < 3600:
		return fmt.Sprintf("%dm ago", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%dh ago", seconds/3600)
	case seconds < 604800:
		return fmt.Sprintf("%dd ago", seconds/86400)
	}
	return t.In(now.Location()).Format("Jan 2")
}

// ClockTime renders the time of day shown under a message bubble.
func ClockTime(ts string, loc *time.Location) string {
	t, ok := ParseTimestamp(ts)
	if !ok {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("03:04 PM")
}

// Badge is a counter pill.
type Badge struct {
	Visible bool   `json:"visible"`
	Text    string `json:"text,omitempty"`
	Count   int    `json:"count"`
}

// CountBadge is hidden for zero and shows the raw count otherwise.
func CountBadge(count int) Badge {
	if count <= 0 {
		return Badge{}
	}
	return Badge{Visible: true, Text: strconv.Itoa(count), Count: count}
}

// CappedBadge is a navigation badge, which tops out at "99+".
func CappedBadge(count int) Badge {
	b := CountBadge(count)
	if count > 99 {
		b.Text = "99+"
	}
	return b
}

// Title prefixes base with the notification total when nonzero.
func Title(base string, total int) string {
	if total > 0 {
		return fmt.Sprintf("(%d) %s", total, base)
	}
	return base
}
