//go:build !linux

package audit

import "errors"

var ErrUnsupported = errors.New("eBPF exec tracing is only supported on Linux")

func NewCollector(cfg Config) (Collector, error) {
	_ = cfg
	return nil, ErrUnsupported
}
