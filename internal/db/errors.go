package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrClosed        = errors.New("db: store closed")
)

// Op constants name the failing backend operation for error context.
const (
	OpPut       = "index"
	OpDelete    = "delete"
	OpDeleteAll = "delete_by_query"
	OpSearch    = "search"
	OpFields    = "get_mapping"
	OpMigrate   = "migrate"
	OpPing      = "ping"
	OpOpen      = "open"
	OpLPush     = "LPUSH"
	OpBRPop     = "BRPOP"
	OpLLen      = "LLEN"
	OpSet       = "SET"
	OpDel       = "DEL"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
