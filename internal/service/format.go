package service

import (
	"fmt"
	"time"
)

// formatTimeOfDay renders a Unix timestamp the way the group page shows
// submission times: "방금 전" within the last minute, otherwise local
// time of day.
func formatTimeOfDay(unix int64, now time.Time) string {
	if unix == 0 {
		return ""
	}
	t := time.Unix(unix, 0).Local()
	if d := now.Sub(t); d >= 0 && d < time.Minute {
		return "방금 전"
	}
	return t.Format("15:04")
}

// formatShortDate renders a Unix timestamp as a short Korean date, e.g.
// "1월 5일".
func formatShortDate(unix int64) string {
	if unix == 0 {
		return ""
	}
	t := time.Unix(unix, 0).Local()
	return fmt.Sprintf("%d월 %d일", int(t.Month()), t.Day())
}

// formatLastActivity renders the group's freshest timestamp as RFC 3339.
func formatLastActivity(updatedAt, createdAt int64) string {
	ts := updatedAt
	if ts == 0 {
		ts = createdAt
	}
	if ts == 0 {
		return ""
	}
	return time.Unix(ts, 0).Local().Format(time.RFC3339)
}
