package core

// Process exit codes. Kept small and stable so wrapper scripts and the
// service manager can distinguish failure modes.
const (
	// ExitCodeSuccess indicates normal termination.
	ExitCodeSuccess = 0

	// ExitCodeError indicates a generic startup or runtime failure.
	ExitCodeError = 1

	// ExitCodeConfigError indicates invalid or missing configuration.
	ExitCodeConfigError = 2
)
