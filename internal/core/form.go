package core

// form.go implements the five-step registration form controller.
//
// A Form owns a draft NewRegistration, the current step index, the inline
// error map and an in-flight flag. The flag is set while the mobile
// uniqueness check or the final submission is running; a second Advance
// during that window is rejected with ErrRequestInFlight.
//
// Back and Reset bump a generation counter. A uniqueness check or submission
// that resolves after the generation changed is discarded (ErrStaleCheck), so
// a late result is never applied to a step the user already left.

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Step identifies one page of the registration form.
type Step int

const (
	StepName Step = iota
	StepMobile
	StepRoom
	StepGroup
	StepSelections
)

// StepCount is the number of form steps.
const StepCount = int(StepSelections) + 1

const (
	msgAlreadyRegistered = "This mobile number is already registered"
	msgCheckFailed       = "Unable to verify mobile number. Please try again."
)

// submitErrorKey is the FieldErrors key for submission failures.
const submitErrorKey = "submit"

func (s Step) String() string {
	switch s {
	case StepName:
		return "name"
	case StepMobile:
		return "mobile"
	case StepRoom:
		return "room"
	case StepGroup:
		return "group"
	case StepSelections:
		return "selections"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Title returns the heading shown for the step.
func (s Step) Title() string {
	switch s {
	case StepName:
		return "Full Name"
	case StepMobile:
		return "Mobile Number"
	case StepRoom:
		return "Room Number"
	case StepGroup:
		return "Group"
	case StepSelections:
		return "Interests & Software"
	default:
		return ""
	}
}

// MobileChecker reports whether a mobile number is already registered.
type MobileChecker interface {
	MobileExists(ctx context.Context, mobile string) (bool, error)
}

// Registrar persists a completed registration.
type Registrar interface {
	Register(ctx context.Context, reg NewRegistration) (Registration, error)
}

// Form is the multi-step registration controller. It is safe for
// concurrent use.
type Form struct {
	checker   MobileChecker
	registrar Registrar

	mu        sync.Mutex
	draft     NewRegistration
	step      Step
	errs      FieldErrors
	inFlight  bool
	gen       uint64
	submitted *Registration
}

// FormState is a read-only snapshot of a form.
type FormState struct {
	Step         Step            `json:"step"`
	StepName     string          `json:"stepName"`
	Progress     int             `json:"progress"`
	Draft        NewRegistration `json:"draft"`
	Errors       FieldErrors     `json:"errors,omitempty"`
	Checking     bool            `json:"checking"`
	Complete     bool            `json:"complete"`
	Registration *Registration   `json:"registration,omitempty"`
}

// NewForm creates an empty form positioned on the first step.
func NewForm(checker MobileChecker, registrar Registrar) *Form {
	return &Form{
		checker:   checker,
		registrar: registrar,
	}
}

// Advance applies the current step's fields from in, validates them and
// moves to the next step. On the mobile step the uniqueness check must pass
// first; on the final step the draft is submitted.
//
// Validation failures return the first ValidationError and leave the form
// on the same step.
func (f *Form) Advance(ctx context.Context, in NewRegistration) error {
	f.mu.Lock()
	if f.submitted != nil {
		f.mu.Unlock()
		return ErrFormComplete
	}
	if f.inFlight {
		f.mu.Unlock()
		return ErrRequestInFlight
	}

	f.apply(Normalize(in))
	if errs := ValidateStep(f.step, f.draft); len(errs) > 0 {
		f.errs = toFieldErrors(errs)
		f.mu.Unlock()
		return errs[0]
	}
	f.errs = nil

	step := f.step
	if step != StepMobile && step != StepSelections {
		f.step++
		f.mu.Unlock()
		return nil
	}

	draft := copyRegistration(f.draft)
	gen := f.gen
	f.inFlight = true
	f.mu.Unlock()

	if step == StepMobile {
		exists, err := f.checker.MobileExists(ctx, draft.MobileNumber)
		return f.resolveCheck(gen, exists, err)
	}

	reg, err := f.registrar.Register(ctx, draft)
	return f.resolveSubmit(gen, reg, err)
}

// apply copies only the fields owned by the current step.
func (f *Form) apply(in NewRegistration) {
	switch f.step {
	case StepName:
		f.draft.FullName = in.FullName
	case StepMobile:
		f.draft.MobileNumber = in.MobileNumber
	case StepRoom:
		f.draft.RoomNumber = in.RoomNumber
	case StepGroup:
		f.draft.GroupName = in.GroupName
	case StepSelections:
		f.draft.Interests = in.Interests
		f.draft.CustomInterest = in.CustomInterest
		f.draft.Software = in.Software
		f.draft.CustomSoftware = in.CustomSoftware
	}
}

func (f *Form) resolveCheck(gen uint64, exists bool, err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inFlight = false
	if gen != f.gen {
		return ErrStaleCheck
	}

	switch {
	case err != nil:
		f.errs = FieldErrors{"mobileNumber": msgCheckFailed}
		return fmt.Errorf("%w: %v", ErrMobileCheckFailed, err)
	case exists:
		f.errs = FieldErrors{"mobileNumber": msgAlreadyRegistered}
		return ErrMobileRegistered
	}

	f.step++
	return nil
}

// resolveSubmit applies the outcome of Register. A result arriving after
// Back or Reset leaves the form as the user left it, even when the insert
// went through.
func (f *Form) resolveSubmit(gen uint64, reg Registration, err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inFlight = false
	if gen != f.gen {
		return ErrStaleCheck
	}
	if err != nil {
		var ve ValidationError
		switch {
		case errors.As(err, &ve):
			f.errs = FieldErrors{ve.Field: ve.Message, submitErrorKey: ve.Message}
		case errors.Is(err, ErrMobileRegistered):
			f.errs = FieldErrors{"mobileNumber": msgAlreadyRegistered, submitErrorKey: msgAlreadyRegistered}
		default:
			f.errs = FieldErrors{submitErrorKey: err.Error()}
		}
		return err
	}

	f.errs = nil
	f.submitted = &reg
	return nil
}

// Back moves to the previous step without validating. Entered data is kept.
func (f *Form) Back() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.submitted != nil {
		return
	}
	if f.step > StepName {
		f.step--
	}
	f.gen++
}

// Reset clears the form back to an empty first step.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.draft = NewRegistration{}
	f.step = StepName
	f.errs = nil
	f.submitted = nil
	f.gen++
}

// Step returns the current step.
func (f *Form) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Draft returns a copy of the accumulated draft.
func (f *Form) Draft() NewRegistration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyRegistration(f.draft)
}

// Errors returns a copy of the inline error map.
func (f *Form) Errors() FieldErrors {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyErrors(f.errs)
}

// Checking reports whether a uniqueness check or submission is running.
func (f *Form) Checking() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}

// Submitted returns the persisted registration once the form completed.
func (f *Form) Submitted() *Registration {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitted == nil {
		return nil
	}
	reg := *f.submitted
	return &reg
}

// Progress returns the percentage of steps reached, 100 once submitted.
func (f *Form) Progress() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.progress()
}

func (f *Form) progress() int {
	if f.submitted != nil {
		return 100
	}
	return (int(f.step) + 1) * 100 / StepCount
}

// State returns a snapshot of the form.
func (f *Form) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()

	state := FormState{
		Step:     f.step,
		StepName: f.step.String(),
		Progress: f.progress(),
		Draft:    copyRegistration(f.draft),
		Errors:   copyErrors(f.errs),
		Checking: f.inFlight,
		Complete: f.submitted != nil,
	}
	if f.submitted != nil {
		reg := *f.submitted
		state.Registration = &reg
	}
	return state
}

func copyRegistration(r NewRegistration) NewRegistration {
	out := r
	out.Interests = append([]string(nil), r.Interests...)
	out.Software = append([]string(nil), r.Software...)
	return out
}

func copyErrors(fe FieldErrors) FieldErrors {
	if len(fe) == 0 {
		return nil
	}
	out := make(FieldErrors, len(fe))
	for k, v := range fe {
		out[k] = v
	}
	return out
}
