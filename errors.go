package dropout

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is the root of every error raised before a run
	// performs any write.
	ErrConfiguration = errors.New("dropout: configuration error")

	// Configuration errors.
	ErrNoCutoff         = fmt.Errorf("%w: no enrollment to derive the cutoff from", ErrConfiguration)
	ErrInvalidBatchSize = fmt.Errorf("%w: batch size must be positive", ErrConfiguration)
	ErrInvalidPolicy    = fmt.Errorf("%w: unknown commit policy", ErrConfiguration)
	ErrNoStore          = fmt.Errorf("%w: no store configured", ErrConfiguration)

	// ErrRepository matches every *RepositoryError via errors.Is.
	ErrRepository = errors.New("dropout: repository error")

	// ErrUpdateMismatch means fewer enrollments changed than were selected
	// for dropout, so the audit trail would not match the transitions.
	ErrUpdateMismatch = errors.New("dropout: updated rows do not match dropout ids")

	// Store lifecycle errors.
	ErrStoreClosed     = errors.New("dropout: store closed")
	ErrTxDone          = errors.New("dropout: transaction already finished")
	ErrMigrationFailed = errors.New("dropout: migration failed")
)

// RepositoryError reports a failed read or write against enrollments,
// exams, submissions or activities. It is fatal for the run and causes
// the whole unit of work to roll back.
type RepositoryError struct {
	// Op names the operation that failed, e.g. "page eligible".
	Op  string
	Err error
}

// NewRepositoryError wraps err unless it already is a RepositoryError.
func NewRepositoryError(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *RepositoryError
	if errors.As(err, &re) {
		return err
	}
	return &RepositoryError{Op: op, Err: err}
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("dropout: repository: %s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error { return e.Err }

// Is reports ErrRepository as a match so callers can classify without
// errors.As.
func (e *RepositoryError) Is(target error) bool { return target == ErrRepository }
