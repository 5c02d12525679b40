package core

// Error Codes Reference
//
// Every error shown to a user carries a code that can be quoted to the
// community admins. Codes are grouped by category:
//
// Registration (REG001-REG007)
//
//	REG001 - Mobile number already registered (pre-check or insert conflict)
//	REG002 - Mobile uniqueness check could not reach the store
//	REG003 - A check or submission is already running for this form
//	REG004 - Registration not found
//	REG005 - Check or submit result discarded because the form moved on
//	REG006 - Form session expired
//	REG007 - Form already submitted
//
// Validation (VAL001-VAL003)
//
//	VAL001 - A field failed validation; the field message is shown as-is
//	VAL002 - Group filter is not one of the four groups
//	VAL003 - Registration id is not a valid id
//
// Export (EXP001-EXP003)
//
//	EXP001 - Nothing to export (empty state, not a failure)
//	EXP002 - Too many exports running
//	EXP003 - Unknown export format
//
// Authentication (AUTH001-AUTH002)
//
//	AUTH001 - Wrong admin username or password
//	AUTH002 - Admin login required
//
// Database (DB001-DB007), matched on the driver's error text
//
//	DB001 - "duplicate key"
//	DB002 - "unique constraint", "violates unique"
//	DB003 - "does not exist", "no such table"
//	DB004 - "connection refused"
//	DB005 - "connection reset"
//	DB006 - "timeout"
//	DB007 - "deadlock", "database is locked"
//
// Requests and throttling
//
//	REQ001 - Request cancelled
//	REQ002 - Request timed out
//	RATE001 - Rate limited
//	ERR000 - Fallback; check the logs for the technical error

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// sentinelMessage maps a sentinel error (matched with errors.Is) to a message.
type sentinelMessage struct {
	err error
	msg UserMessage
}

// sentinelMessages is checked before the text patterns. Order matters only
// when one error wraps several sentinels.
var sentinelMessages = []sentinelMessage{
	{ErrMobileRegistered, UserMessage{
		Message: "This mobile number is already registered",
		Action:  "Use a different mobile number",
		Code:    "REG001",
	}},
	{ErrMobileCheckFailed, UserMessage{
		Message: "Unable to verify mobile number",
		Action:  "Please try again",
		Code:    "REG002",
	}},
	{ErrRequestInFlight, UserMessage{
		Message: "Your previous request is still being processed",
		Action:  "Wait a moment before continuing",
		Code:    "REG003",
	}},
	{ErrRegistrationNotFound, UserMessage{
		Message: "Registration not found",
		Action:  "Refresh the list; it may already have been deleted",
		Code:    "REG004",
	}},
	{ErrStaleCheck, UserMessage{
		Message: "Your request finished after you left that step",
		Action:  "Continue from the current step",
		Code:    "REG005",
	}},
	{ErrFormNotFound, UserMessage{
		Message: "Your registration session has expired",
		Action:  "Start the registration again",
		Code:    "REG006",
	}},
	{ErrFormComplete, UserMessage{
		Message: "This registration was already submitted",
		Action:  "Start a new registration",
		Code:    "REG007",
	}},
	{ErrInvalidGroup, UserMessage{
		Message: "Unknown group",
		Action:  "Choose one of Pavitra, Param, Pulkit or Parmanand",
		Code:    "VAL002",
	}},
	{ErrInvalidID, UserMessage{
		Message: "Invalid registration id",
		Action:  "Refresh the list and try again",
		Code:    "VAL003",
	}},
	{ErrNothingToExport, UserMessage{
		Message: "No data to export",
		Action:  "Exports are available once someone has registered",
		Code:    "EXP001",
	}},
	{ErrTooManyExports, UserMessage{
		Message: "Too many exports are running",
		Action:  "Please wait a moment and try again",
		Code:    "EXP002",
	}},
	{ErrUnknownExportFormat, UserMessage{
		Message: "Unknown export format",
		Action:  "Choose CSV or Excel",
		Code:    "EXP003",
	}},
	{ErrInvalidCredentials, UserMessage{
		Message: "Invalid username or password",
		Action:  "Check your credentials and try again",
		Code:    "AUTH001",
	}},
	{ErrAdminRequired, UserMessage{
		Message: "Admin login required",
		Action:  "Sign in to the admin dashboard",
		Code:    "AUTH002",
	}},
	{context.Canceled, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "REQ001",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Request timed out",
		Action:  "Please try again",
		Code:    "REQ002",
	}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// The first matching pattern wins, so specific patterns come first.
var errorPatterns = []errorPattern{
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "This record already exists",
			Action:  "Refresh and check the existing registrations",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Use a different value",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Use a different value",
			Code:    "DB002",
		},
	},
	{
		pattern: "does not exist",
		msg: UserMessage{
			Message: "The database is not set up",
			Action:  "Restart the service to create the tables",
			Code:    "DB003",
		},
	},
	{
		pattern: "no such table",
		msg: UserMessage{
			Message: "The database is not set up",
			Action:  "Restart the service to create the tables",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Field validation errors keep their own message under VAL001. Sentinel
// errors are matched with errors.Is, everything else by error text.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ve ValidationError
	if errors.As(err, &ve) {
		return UserMessage{
			Message: ve.Message,
			Action:  "Correct the highlighted field and try again",
			Code:    "VAL001",
		}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error (for logs) with its user message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
