package repository

import "errors"

var ErrEventNotFound = errors.New("event not found")

// Result is returned by every mutating EventStore operation. Callers must
// check Success; a failed operation has been rolled back and Message holds
// the storage error.
type Result struct {
	Success  bool
	Message  string
	Affected int64
}

func ok(affected int64) Result {
	return Result{Success: true, Affected: affected}
}

func failed(err error) Result {
	return Result{Success: false, Message: err.Error()}
}

// Err converts a failed Result back into an error, or nil on success.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	return errors.New(r.Message)
}
