package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const DefaultAuctionDuration = 30 * time.Minute

// ParseDuration reads strings like "1d2h30m" or "90s". A bare number
// means seconds; anything unparsable or non-positive falls back to 30 minutes.
func ParseDuration(raw string) time.Duration {
	s := strings.ToLower(strings.TrimSpace(raw))
	var total time.Duration
	num := ""
	for _, ch := range s {
		if ch >= '0' && ch <= '9' {
			num += string(ch)
			continue
		}
		n := int64(0)
		if num != "" {
			n, _ = strconv.ParseInt(num, 10, 64)
		}
		switch ch {
		case 's':
			total += time.Duration(n) * time.Second
		case 'm':
			total += time.Duration(n) * time.Minute
		case 'h':
			total += time.Duration(n) * time.Hour
		case 'd':
			total += time.Duration(n) * 24 * time.Hour
		}
		num = ""
	}
	if num != "" {
		n, _ := strconv.ParseInt(num, 10, 64)
		total += time.Duration(n) * time.Second
	}
	if total <= 0 {
		return DefaultAuctionDuration
	}
	return total
}

// FormatDuration renders d as "1d 2h 30m", minutes being the smallest unit shown.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	minutes := int(d / time.Minute)

	parts := make([]string, 0, 3)
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	return strings.Join(parts, " ")
}

// ClampDuration keeps d within [lo, hi]; a zero bound is ignored.
func ClampDuration(d, lo, hi time.Duration) time.Duration {
	if lo > 0 && d < lo {
		d = lo
	}
	if hi > 0 && d > hi {
		d = hi
	}
	return d
}
