package game

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSessionEnded        = errors.New("session ended")
	ErrSessionNotActive    = errors.New("session not active")
	ErrSessionStarted      = errors.New("session already started")
	ErrItemNotInQueue      = errors.New("item not in session queue")
	ErrItemAlreadyDecided  = errors.New("item already decided in this session")
	ErrDuplicateQueueItem  = errors.New("duplicate item in queue")
	ErrQueueOverflow       = errors.New("more decisions than queued items")
	ErrInvalidDecisionTime = errors.New("decision time must not be negative")
	ErrUnknownGameMode     = errors.New("unknown game mode")
	ErrUnknownDecision     = errors.New("unknown decision")
	ErrUnknownRequirement  = errors.New("unknown achievement requirement type")

	// Start preconditions. The two empty-queue cases are kept apart so callers
	// can tell "nothing left to sort" from "nothing was ever added".
	ErrAccessDenied     = errors.New("no access to inventory")
	ErrNoItemsAvailable = errors.New("all items in inventory already decided")
	ErrEmptyInventory   = errors.New("inventory has no items")
)

// SyncFailure is one durable write that failed after the local state had
// already moved on.
type SyncFailure struct {
	Step string
	Err  error
}

// SyncError collects the failed writes of a single sync. It never means the
// local session state is wrong.
type SyncError struct {
	SessionID string
	Failures  []SyncFailure
}

func (e *SyncError) add(step string, err error) {
	e.Failures = append(e.Failures, SyncFailure{Step: step, Err: err})
}

func (e *SyncError) orNil() error {
	if e == nil || len(e.Failures) == 0 {
		return nil
	}
	return e
}

func (e *SyncError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Step, f.Err))
	}
	return fmt.Sprintf("session %s: %d write(s) failed: %s", e.SessionID, len(e.Failures), strings.Join(parts, "; "))
}

func (e *SyncError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}
