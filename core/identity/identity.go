package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LaunchID identifies one child launch. The pid alone is ambiguous once the
// kernel recycles it, so it is paired with the kernel start time.
type LaunchID struct {
	RootPID       uint32
	RootStartTime uint64
}

// FromChild builds a LaunchID for a freshly spawned child. The start time is
// zero when the platform cannot report it.
func FromChild(pid uint32) LaunchID {
	start, err := ProcessStartTime(pid)
	if err != nil {
		start = 0
	}
	return LaunchID{RootPID: pid, RootStartTime: start}
}

func (id LaunchID) IsZero() bool {
	return id.RootPID == 0
}

func (id LaunchID) String() string {
	if id.RootPID == 0 {
		return ""
	}
	return fmt.Sprintf("pid:%d:start:%d", id.RootPID, id.RootStartTime)
}

// ParseLaunchID decodes pid:<pid>:start:<start>.
func ParseLaunchID(value string) (LaunchID, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 4 || parts[0] != "pid" || parts[2] != "start" {
		return LaunchID{}, fmt.Errorf("invalid launch id format: %q", value)
	}
	pid, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return LaunchID{}, fmt.Errorf("parse pid: %w", err)
	}
	start, err := strconv.ParseUint(parts[3], 10, 64)
	if err != nil {
		return LaunchID{}, fmt.Errorf("parse start time: %w", err)
	}
	return LaunchID{RootPID: uint32(pid), RootStartTime: start}, nil
}

// Digest is the fallback identifier used when no start time is available.
func Digest(start time.Time, pid uint32, argv []string) string {
	base := strings.Join([]string{
		strconv.FormatInt(start.UnixNano(), 10),
		strconv.FormatUint(uint64(pid), 10),
		strings.Join(argv, " "),
	}, ":")
	sum := sha256.Sum256([]byte(base))
	return hex.EncodeToString(sum[:])
}
