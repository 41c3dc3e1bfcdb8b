package version

const (
	// Version is the launcher release.
	Version = "v0.4.0"
	// ReceiptVersion is the schema version of launch receipts; bump when fields change.
	ReceiptVersion = "v0.4.0"
)
