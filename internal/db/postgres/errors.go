package postgres

import "fmt"

// StartupKind classifies a pool initialization failure.
type StartupKind int

// Startup failure kinds.
const (
	ConnectionFailed StartupKind = iota + 1
	PoolBuildFailed
	ProbeFailed
)

func (k StartupKind) String() string {
	switch k {
	case ConnectionFailed:
		return "connection failed"
	case PoolBuildFailed:
		return "pool build failed"
	case ProbeFailed:
		return "probe failed"
	default:
		return "unknown"
	}
}

// StartupError is a fatal pool initialization failure. The process is expected to exit.
type StartupError struct {
	Kind   StartupKind
	Detail string
	Err    error
}

func (e *StartupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("postgres %s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("postgres %s: %s", e.Kind, e.Detail)
}

func (e *StartupError) Unwrap() error { return e.Err }
