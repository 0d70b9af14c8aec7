package bbt

import "sync/atomic"

var sessionCounter int64

// GetSessionID a process wide, monotonically increasing session number
func GetSessionID() int64 {
	return atomic.AddInt64(&sessionCounter, 1)
}
