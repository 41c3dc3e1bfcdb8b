package execution

import (
	"os"

	"fmpmcp/core/receipt"
)

// ExtraErrorProvider allows backends to surface non-fatal errors collected during the launch.
type ExtraErrorProvider interface {
	ExtraErrors() []string
}

// ProcessStateProvider is implemented by backends that can expose process resource usage.
type ProcessStateProvider interface {
	ProcessState() *os.ProcessState
}

// MetadataProvider allows backends to override backend/isolation metadata.
type MetadataProvider interface {
	Metadata() receipt.ExecutionInfo
}
