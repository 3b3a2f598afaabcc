package database

import "fmt"

// PersistenceError indicates the store was unreachable or rejected a write
// for a reason other than the expected duplicate-key no-op.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
