//go:build !unix

package execution

import "os"

func maxRSSKB(ps *os.ProcessState) int64 {
	_ = ps
	return 0
}
