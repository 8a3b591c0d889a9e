// Sentinel error values shared by every store implementation. Handlers
// translate them into distinct user-visible responses: a NotFound scan
// reads differently at the gate than an AlreadyUsed one, and the
// difference matters to the operator standing there.
package store

import "errors"

// ErrAlreadyExists is returned by Register and Create when a record
// for the id is already present. Registration never overwrites: a
// reissued credential must not clobber an in-flight record.
var ErrAlreadyExists = errors.New("store: already exists")

// ErrNotFound is returned when no record exists for the id.
var ErrNotFound = errors.New("store: not found")

// ErrKeyMismatch is returned by VerifyAndConsume when the presented
// secure key differs from the stored one. The record stays unused — a
// mismatch may be an honest retry with a bad scan.
var ErrKeyMismatch = errors.New("store: secure key mismatch")

// ErrAlreadyUsed is returned by VerifyAndConsume when the record was
// consumed before. This is the replay signal.
var ErrAlreadyUsed = errors.New("store: credential already used")

// ErrInvalidTransition is returned by Transition for a move the
// session state machine does not allow.
var ErrInvalidTransition = errors.New("store: invalid session transition")
