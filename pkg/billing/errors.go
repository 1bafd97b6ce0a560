package billing

import "errors"

var (
	// ErrValidation marks malformed notifications that must not cause side effects.
	ErrValidation = errors.New("validation error")

	// ErrAuthentication marks requests whose signature could not be verified.
	ErrAuthentication = errors.New("authentication error")

	// ErrNotFound marks events or requests referencing unknown entities.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateTransaction is a consistency warning: the event was already applied.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrActiveSubscriptionExists means a concurrent writer already holds the
	// user's active row. The event was not applied and may be retried.
	ErrActiveSubscriptionExists = errors.New("user already has an active subscription")
)

var (
	ErrUserNotFound         = errWrap(ErrNotFound, "user not found")
	ErrNoActiveSubscription = errWrap(ErrNotFound, "no active subscription found")
	ErrMissingPhone         = errWrap(ErrValidation, "details.phone is required")
)

type wrapped struct {
	parent error
	msg    string
}

func errWrap(parent error, msg string) error {
	return &wrapped{parent: parent, msg: msg}
}

func (e *wrapped) Error() string { return e.msg }

func (e *wrapped) Unwrap() error { return e.parent }
