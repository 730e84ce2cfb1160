package timex

import "time"

// NowMs returns Unix milliseconds as int64.
func NowMs() int64 { return time.Now().UnixMilli() }

// SinceMs returns elapsed milliseconds between two NowMs stamps, never negative.
func SinceMs(then, now int64) int64 {
	if now < then {
		return 0
	}
	return now - then
}
