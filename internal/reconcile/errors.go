package reconcile

import "errors"

var (
	// ErrAlreadyRestored is returned for a record that is already RESTORED.
	// It is a permanent no-op: nothing is written.
	ErrAlreadyRestored = errors.New("payment already restored")
	// ErrMissingPaymentData is returned when the snapshot holds nothing to
	// rebuild.  The record keeps its status until it is corrected.
	ErrMissingPaymentData = errors.New("missing payment data")
	// ErrUnknownPurpose is returned for a purpose outside the known set.
	ErrUnknownPurpose = errors.New("unknown purpose")
	// ErrPersistence matches every *PersistenceError.
	ErrPersistence = errors.New("persistence failure")
	// ErrNotFound is returned when the record id does not exist.
	ErrNotFound = errors.New("failed payment not found")
	// ErrNotRestorable is returned for a record in an unrecognised status.
	ErrNotRestorable = errors.New("failed payment is not restorable")
	// ErrRestoreInProgress is returned when another restore of the same
	// record holds the advisory lock.
	ErrRestoreInProgress = errors.New("restore already in progress")
	// ErrOperatorRequired is returned when no operator identity is given.
	ErrOperatorRequired = errors.New("operator identity is required")
)

// PersistenceError wraps a store failure with the step that failed.
// Persistence failures are transient; the record is left FAILED and may be
// retried.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return "persistence failure: " + e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrPersistence) hold for any PersistenceError.
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

// Permanent reports whether err will fail again on retry without the
// record being corrected first.
func Permanent(err error) bool {
	return errors.Is(err, ErrAlreadyRestored) ||
		errors.Is(err, ErrMissingPaymentData) ||
		errors.Is(err, ErrUnknownPurpose) ||
		errors.Is(err, ErrNotRestorable)
}
