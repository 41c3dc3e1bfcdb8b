//go:build !linux

package identity

import "errors"

var errStartTimeUnsupported = errors.New("process start time unavailable on this platform")

// ProcessStartTime is only implemented on Linux.
func ProcessStartTime(pid uint32) (uint64, error) {
	_ = pid
	return 0, errStartTimeUnsupported
}
