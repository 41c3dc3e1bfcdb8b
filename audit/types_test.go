package audit

import (
	"encoding/binary"
	"testing"

	"github.com/shoenig/test/must"
)

func TestParseEvent(t *testing.T) {
	raw := make([]byte, eventSize)
	binary.LittleEndian.PutUint32(raw[0:4], uint32(EventExec))
	binary.LittleEndian.PutUint32(raw[4:8], 4242)
	binary.LittleEndian.PutUint32(raw[8:12], 4241)
	copy(raw[commOffset:], "python3")
	copy(raw[pathOffset:], "/usr/bin/python3")

	ev, err := parseEvent(raw)
	must.NoError(t, err)
	must.Eq(t, EventExec, ev.Type)
	must.Eq(t, uint32(4242), ev.PID)
	must.Eq(t, uint32(4241), ev.PPID)
	must.Eq(t, "python3", ev.Comm)
	must.Eq(t, "/usr/bin/python3", ev.Path)
}

func TestParseEventShort(t *testing.T) {
	_, err := parseEvent(make([]byte, eventSize-1))
	must.Error(t, err)
}

func TestCStringWithoutTerminator(t *testing.T) {
	must.Eq(t, "abc", cString([]byte("abc")))
	must.Eq(t, "ab", cString([]byte{'a', 'b', 0, 'c'}))
}
