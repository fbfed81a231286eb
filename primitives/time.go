package primitives

import "time"

// NowUTC returns the current time formatted as UTC RFC3339 with a
// trailing "Z", matching the Python source's now_iso(). Never fed into
// any canonical hash computation — timestamps are metadata only.
func NowUTC() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}
