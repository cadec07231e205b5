package database

import "errors"

// ErrNotReady wraps a failed reachability check against the audit database.
var ErrNotReady = errors.New("audit database not reachable")
