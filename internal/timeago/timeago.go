// Package timeago renders "N天前" style relative timestamps.
package timeago

import (
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const JustNow = "刚刚"

// Parse reads a server timestamp. Values without a zone are interpreted in
// loc.
func Parse(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := dateparse.ParseIn(raw, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Label formats the distance from t to now in whole days, then hours, then
// (when minutes is set) minutes. Anything shorter, or in the future, is
// JustNow.
func Label(t, now time.Time, minutes bool) string {
	if t.IsZero() {
		return JustNow
	}
	diff := now.Sub(t)
	switch {
	case diff >= 24*time.Hour:
		return strconv.Itoa(int(diff/(24*time.Hour))) + "天前"
	case diff >= time.Hour:
		return strconv.Itoa(int(diff/time.Hour)) + "小时前"
	case minutes && diff >= time.Minute:
		return strconv.Itoa(int(diff/time.Minute)) + "分钟前"
	}
	return JustNow
}
