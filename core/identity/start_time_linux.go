//go:build linux

package identity

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// starttime is field 22 of /proc/<pid>/stat, i.e. index 19 after the comm field.
const startTimeField = 19

// ProcessStartTime returns the kernel start time of pid in clock ticks since boot.
func ProcessStartTime(pid uint32) (uint64, error) {
	path := filepath.Join("/proc", strconv.FormatUint(uint64(pid), 10), "stat")
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	// comm may contain spaces and parens; the last ") " closes it.
	idx := bytes.LastIndex(data, []byte(") "))
	if idx == -1 {
		return 0, fmt.Errorf("malformed %s", path)
	}
	fields := bytes.Fields(data[idx+2:])
	if len(fields) <= startTimeField {
		return 0, fmt.Errorf("short %s: %d fields", path, len(fields))
	}
	value, err := strconv.ParseUint(string(fields[startTimeField]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse start time: %w", err)
	}
	return value, nil
}
