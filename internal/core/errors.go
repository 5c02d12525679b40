package core

import "errors"

var (
	// ErrMobileRegistered is returned when a mobile number already belongs
	// to a registration, either from the pre-check or from the insert.
	ErrMobileRegistered = errors.New("mobile number already registered")

	// ErrMobileCheckFailed is returned when the uniqueness check itself
	// could not reach the store.
	ErrMobileCheckFailed = errors.New("mobile check failed")

	// ErrRequestInFlight is returned when a form already has a uniqueness
	// check or submission running.
	ErrRequestInFlight = errors.New("request in flight")

	// ErrStaleCheck is returned when the form moved (Back or Reset) while
	// the uniqueness check or submission was running. The result was
	// discarded.
	ErrStaleCheck = errors.New("stale result discarded")

	// ErrFormComplete is returned when advancing a form that was already submitted.
	ErrFormComplete = errors.New("form already submitted")

	// ErrRegistrationNotFound is returned when deleting an unknown registration.
	ErrRegistrationNotFound = errors.New("registration not found")

	// ErrFormNotFound is returned for unknown or expired form sessions.
	ErrFormNotFound = errors.New("form session not found")

	// ErrInvalidGroup is returned when filtering by a group outside the fixed list.
	ErrInvalidGroup = errors.New("invalid group")

	// ErrInvalidID is returned for registration ids that are not UUIDs.
	ErrInvalidID = errors.New("invalid registration id")

	// ErrInvalidCredentials is returned for a failed admin login.
	ErrInvalidCredentials = errors.New("invalid admin credentials")

	// ErrAdminRequired is returned when an admin route is hit without a session.
	ErrAdminRequired = errors.New("admin login required")
)
