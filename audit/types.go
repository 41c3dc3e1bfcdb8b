package audit

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

type EventType uint32

const (
	EventExec EventType = 1
)

// Event is the decoded ring buffer record. The network fields of the record
// are not decoded; only exec tracing is attached.
type Event struct {
	Type  EventType
	PID   uint32
	PPID  uint32
	Flags uint32
	Comm  string
	Path  string
}

// Record layout shared with the BPF program:
//
//	0  type u32 | 4 pid u32 | 8 ppid u32 | 12 flags u32 | 16..36 net fields
//	36 comm [16]byte | 52 path [256]byte
const (
	eventSize  = 308
	commOffset = 36
	pathOffset = 52
)

func parseEvent(data []byte) (Event, error) {
	if len(data) < eventSize {
		return Event{}, fmt.Errorf("short event: %d bytes", len(data))
	}
	return Event{
		Type:  EventType(binary.LittleEndian.Uint32(data[0:4])),
		PID:   binary.LittleEndian.Uint32(data[4:8]),
		PPID:  binary.LittleEndian.Uint32(data[8:12]),
		Flags: binary.LittleEndian.Uint32(data[12:16]),
		Comm:  cString(data[commOffset:pathOffset]),
		Path:  cString(data[pathOffset:eventSize]),
	}, nil
}

func cString(b []byte) string {
	if idx := bytes.IndexByte(b, 0); idx != -1 {
		b = b[:idx]
	}
	return string(b)
}
