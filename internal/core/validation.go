package core

// validation.go provides field validation for registration drafts.
//
// Validation happens at two levels:
//  1. Step validation: only the fields owned by one form step are checked
//     (validator.StructPartial), so an early step never reports errors for
//     fields the user has not reached yet.
//  2. Full validation: every step in order, used by the JSON submission path
//     before anything is written to the store.
//
// Drafts are normalized before validation: scalars are trimmed, blank and
// duplicate list entries are dropped.

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	fullNamePattern = regexp.MustCompile(`^[A-Za-z ]+$`)
	mobilePattern   = regexp.MustCompile(`^[6-9]\d{9}$`)
	roomPattern     = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

	validate = newValidator()
)

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string // JSON field name, e.g. "mobileNumber"
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	return e.Message
}

// FieldErrors maps a field name to its error message for inline display.
type FieldErrors map[string]string

// fieldMessages maps "field.tag" to the message shown to the user.
var fieldMessages = map[string]string{
	"fullName.required":          "Please enter your full name",
	"fullName.min":               "Name must be at least 2 characters",
	"fullName.fullname":          "Name can only contain letters and spaces",
	"mobileNumber.required":      "Please enter your mobile number",
	"mobileNumber.mobile":        "Please enter a valid 10-digit mobile number starting with 6-9",
	"roomNumber.required":        "Please enter your room number",
	"roomNumber.room":            "Room number can only contain letters, numbers and hyphens",
	"groupName.required":         "Please select your group",
	"groupName.group":            "Please select a valid group",
	"interests.required_without": "Please select at least one creative interest",
	"software.required_without":  "Please select at least one software/application",
}

// stepFields lists the struct fields each step owns, in display order.
var stepFields = map[Step][]string{
	StepName:       {"FullName"},
	StepMobile:     {"MobileNumber"},
	StepRoom:       {"RoomNumber"},
	StepGroup:      {"GroupName"},
	StepSelections: {"Interests", "Software"},
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("fullname", func(fl validator.FieldLevel) bool {
		return fullNamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return mobilePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("room", func(fl validator.FieldLevel) bool {
		return roomPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("group", func(fl validator.FieldLevel) bool {
		return ValidGroup(fl.Field().String())
	})

	return v
}

// ValidMobileFormat reports whether mobile is a 10-digit Indian mobile number.
func ValidMobileFormat(mobile string) bool {
	return mobilePattern.MatchString(mobile)
}

// Normalize returns a copy of reg with trimmed scalars and cleaned lists.
func Normalize(reg NewRegistration) NewRegistration {
	return NewRegistration{
		FullName:       strings.TrimSpace(reg.FullName),
		MobileNumber:   strings.TrimSpace(reg.MobileNumber),
		RoomNumber:     strings.TrimSpace(reg.RoomNumber),
		GroupName:      strings.TrimSpace(reg.GroupName),
		Interests:      cleanList(reg.Interests),
		CustomInterest: strings.TrimSpace(reg.CustomInterest),
		Software:       cleanList(reg.Software),
		CustomSoftware: strings.TrimSpace(reg.CustomSoftware),
	}
}

// cleanList trims entries and drops blanks and duplicates.
// Returns nil when nothing remains.
func cleanList(values []string) []string {
	var out []string
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// ValidateStep normalizes reg, validates the fields owned by step and
// returns every failure in field order.
func ValidateStep(step Step, reg NewRegistration) []ValidationError {
	fields, ok := stepFields[step]
	if !ok {
		return []ValidationError{{Message: fmt.Sprintf("unknown form step %d", step)}}
	}
	return translate(validate.StructPartial(Normalize(reg), fields...))
}

// ValidateRegistration validates every step in order and returns the first
// failure, or nil when the registration is complete and well-formed.
func ValidateRegistration(reg NewRegistration) error {
	for step := StepName; step <= StepSelections; step++ {
		if errs := ValidateStep(step, reg); len(errs) > 0 {
			return errs[0]
		}
	}
	return nil
}

// translate converts validator errors into ValidationErrors with user messages.
func translate(err error) []ValidationError {
	if err == nil {
		return nil
	}
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return []ValidationError{{Message: err.Error()}}
	}

	out := make([]ValidationError, 0, len(vErrs))
	for _, fe := range vErrs {
		msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("%s is invalid", fe.Field())
		}
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Value:   fmt.Sprint(fe.Value()),
			Message: msg,
		})
	}
	return out
}

// toFieldErrors builds the inline error map from a list of failures.
func toFieldErrors(errs []ValidationError) FieldErrors {
	fe := make(FieldErrors, len(errs))
	for _, e := range errs {
		if _, exists := fe[e.Field]; !exists {
			fe[e.Field] = e.Message
		}
	}
	return fe
}
