package sqlite

import "errors"

// ErrNotFound indicates an operation referenced a prompt or session that
// does not exist. Callers match it with errors.Is.
var ErrNotFound = errors.New("not found")

// StorageError indicates the durable store is unreachable or a write
// failed. It is always surfaced to the caller and never retried here;
// capture-path callers drop the event rather than block the user.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// storageErr wraps err as a *StorageError, passing nil through.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
