package db

import "errors"

// ErrKeyNotFound is returned by Cache.Get for a missing key.
var ErrKeyNotFound = errors.New("db: key not found")

// Cache operations named in errors.
const (
	OpPing = "PING"
	OpGet  = "GET"
	OpSet  = "SET"
)

// Error records the failed cache operation and, when there is one, its key.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return "cache " + e.Op + ": " + e.Err.Error()
	}
	return "cache " + e.Op + " " + e.Key + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }
