package spcerrors

import "errors"

var (
	// ErrNotFound is the sentinel for unknown characteristic/sample/violation ids.
	ErrNotFound = errors.New("not found")
	// ErrValidation is the sentinel for caller errors: bad measurement counts,
	// non-finite values, missing edit reasons, inverted limits.
	ErrValidation = errors.New("validation failed")
	// ErrPrecondition marks operations that are not yet meaningful, such as
	// recalculating limits with too few samples.
	ErrPrecondition = errors.New("precondition failed")
	// ErrConflict marks state conflicts, such as acknowledging an
	// already-acknowledged violation.
	ErrConflict = errors.New("conflict")
	// ErrSuperseded marks an in-flight limit recalculation whose result was
	// discarded because a newer one finished first.
	ErrSuperseded = errors.New("superseded")
)
