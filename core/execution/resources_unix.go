//go:build unix

package execution

import (
	"os"
	"runtime"
	"syscall"
)

func maxRSSKB(ps *os.ProcessState) int64 {
	usage, ok := ps.SysUsage().(*syscall.Rusage)
	if !ok || usage == nil {
		return 0
	}
	// darwin reports bytes, everything else kilobytes.
	if runtime.GOOS == "darwin" {
		return int64(usage.Maxrss) / 1024
	}
	return int64(usage.Maxrss)
}
