package pipeline

import "errors"

var (
	// ErrInvalidArgument is returned before any work starts when the
	// operation's parameters are out of range.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrExportFailed means the interchange file could not be written.
	ErrExportFailed = errors.New("export failed")
	// ErrToolFailed means the external tool could not start or exited
	// non-zero.
	ErrToolFailed = errors.New("external tool failed")
	// ErrTimeout means the external phase ran past its deadline.
	ErrTimeout = errors.New("external tool timed out")
	// ErrRetryExhausted means the unfold tool kept asking for larger pages
	// after every allowed attempt.
	ErrRetryExhausted = errors.New("retries exhausted")
	// ErrNoOutput means the tool succeeded but produced nothing to import.
	ErrNoOutput = errors.New("tool produced no output")
	// ErrImportEmpty means the tool's output contained no meshes.
	ErrImportEmpty = errors.New("import produced no meshes")
)
