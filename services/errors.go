package services

import "errors"

// Sentinel errors surfaced to controllers, which map them onto HTTP status
// codes. Input errors are never retried; transient store errors bubble up
// wrapped so the caller can retry the whole operation.
var (
	ErrNotFound          = errors.New("item not found")
	ErrConditionFailed   = errors.New("conditional write failed")
	ErrNotParticipant    = errors.New("user is not a party to this match")
	ErrMatchResolved     = errors.New("match already resolved")
	ErrDuplicateFeedback = errors.New("feedback already submitted for this group")
	ErrEpochInProgress   = errors.New("a run for this epoch is already in progress")
	ErrInvalidInput      = errors.New("invalid input")
)
