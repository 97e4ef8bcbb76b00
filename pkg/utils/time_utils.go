package utils

import (
	"time"

	"github.com/dustin/go-humanize"
)

// RelativeAge renders an RFC3339 timestamp relative to now, e.g.
// "3 hours ago". Unparseable or empty input yields "unknown".
func RelativeAge(rfc3339 string, now time.Time) string {
	t, err := time.Parse(time.RFC3339, rfc3339)
	if err != nil {
		return "unknown"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// FormatExpiration renders a TTL epoch with its distance from now.
// Zero means the record never expires.
func FormatExpiration(epoch int64, now time.Time) string {
	if epoch == 0 {
		return "never"
	}
	t := time.Unix(epoch, 0).UTC()
	return t.Format(time.RFC3339) + " (" + humanize.RelTime(t, now, "ago", "from now") + ")"
}
