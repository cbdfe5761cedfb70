package services

import "errors"

// ErrorKind classifies engine errors so callers (HTTP handlers, retry logic)
// can react without string matching. Validation and state errors surface to
// the caller unmodified; concurrency errors are retried once by the engine
// itself and never beyond that.
type ErrorKind string

const (
	ErrorKindValidation    ErrorKind = "validation"
	ErrorKindState         ErrorKind = "state"
	ErrorKindAuthorization ErrorKind = "authorization"
	ErrorKindNotFound      ErrorKind = "not_found"
	ErrorKindConcurrency   ErrorKind = "concurrency"
)

type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrDuplicateMember = &Error{ErrorKindValidation, "user is already a member of this group"}
	ErrEmptyBill       = &Error{ErrorKindValidation, "bill has no items"}
	ErrInvalidAmount   = &Error{ErrorKindValidation, "bill total must be greater than zero"}
	ErrMissingProof    = &Error{ErrorKindValidation, "payment proof requires a reference or a screenshot"}
	ErrMissingReason   = &Error{ErrorKindValidation, "rejection requires a reason"}

	ErrBillLocked       = &Error{ErrorKindState, "bill items can only be changed while the bill is a draft"}
	ErrAlreadyProcessed = &Error{ErrorKindState, "bill is not awaiting approval"}
	ErrNotCancellable   = &Error{ErrorKindState, "bill can no longer be cancelled"}
	ErrInvalidState     = &Error{ErrorKindState, "split is not in a state that allows this transition"}

	ErrUnauthorized     = &Error{ErrorKindAuthorization, "caller lacks the required role for this operation"}
	ErrNotGroupMember   = &Error{ErrorKindAuthorization, "caller is not a member of this group"}
	ErrSelfConfirmation = &Error{ErrorKindAuthorization, "cannot confirm your own payment"}

	ErrGroupNotFound     = &Error{ErrorKindNotFound, "group not found"}
	ErrBillNotFound      = &Error{ErrorKindNotFound, "bill not found"}
	ErrItemNotFound      = &Error{ErrorKindNotFound, "bill item not found"}
	ErrSplitNotFound     = &Error{ErrorKindNotFound, "split not found"}
	ErrUserNotFound      = &Error{ErrorKindNotFound, "user not found"}
	ErrNotAMember        = &Error{ErrorKindNotFound, "user has no membership in this group"}
	ErrInvalidInviteCode = &Error{ErrorKindNotFound, "invite code does not match any group"}

	ErrConcurrentModification = &Error{ErrorKindConcurrency, "record changed concurrently, retry the operation"}
)

func validationError(message string) *Error {
	return &Error{Kind: ErrorKindValidation, Message: message}
}

// KindOf returns the engine classification for err, or an empty kind for
// errors that did not originate in the engine.
func KindOf(err error) ErrorKind {
	var engineErr *Error
	if errors.As(err, &engineErr) {
		return engineErr.Kind
	}
	return ""
}

// withConcurrencyRetry re-runs fn once when the optimistic status check lost
// a race. The second run re-validates every guard, so a genuinely changed
// record surfaces its real state error instead of the conflict.
func withConcurrencyRetry(fn func() error) error {
	err := fn()
	if errors.Is(err, ErrConcurrentModification) {
		return fn()
	}
	return err
}
