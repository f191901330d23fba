package clock

import "time"

func Now() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

// Date formats a time as a plain calendar date for history views.
func Date(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
