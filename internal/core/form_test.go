package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// stubChecker answers MobileExists from a fixed set. When block is set the
// call waits for release before answering.
type stubChecker struct {
	mu       sync.Mutex
	existing map[string]bool
	err      error
	calls    int
	block    chan struct{}
	started  chan struct{}
}

func (c *stubChecker) MobileExists(ctx context.Context, mobile string) (bool, error) {
	c.mu.Lock()
	c.calls++
	block, started := c.block, c.started
	c.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		<-block
	}
	if c.err != nil {
		return false, c.err
	}
	return c.existing[mobile], nil
}

func (c *stubChecker) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type stubRegistrar struct {
	err  error
	got  []NewRegistration
	fail int // fail the first n calls
}

func (r *stubRegistrar) Register(ctx context.Context, reg NewRegistration) (Registration, error) {
	r.got = append(r.got, reg)
	if r.err != nil && len(r.got) <= r.fail {
		return Registration{}, r.err
	}
	return buildRecord(reg, uuid.New(), time.Now()), nil
}

func newTestForm() (*Form, *stubChecker, *stubRegistrar) {
	c := &stubChecker{existing: map[string]bool{"9876543210": true}}
	r := &stubRegistrar{}
	return NewForm(c, r), c, r
}

// advanceTo walks f through every step before target with valid input.
func advanceTo(t *testing.T, f *Form, target Step) {
	t.Helper()
	valid := validRegistration()
	for f.Step() < target {
		if err := f.Advance(context.Background(), valid); err != nil {
			t.Fatalf("Advance at %v: %v", f.Step(), err)
		}
	}
}

func TestForm_FullFlow(t *testing.T) {
	f, c, r := newTestForm()
	ctx := context.Background()

	in := validRegistration()
	in.CustomSoftware = "Blender"

	for i := 0; i < StepCount; i++ {
		if err := f.Advance(ctx, in); err != nil {
			t.Fatalf("Advance step %d: %v", i, err)
		}
	}

	if c.Calls() != 1 {
		t.Errorf("checker calls = %d, want 1", c.Calls())
	}
	if len(r.got) != 1 {
		t.Fatalf("registrar calls = %d, want 1", len(r.got))
	}
	reg := f.Submitted()
	if reg == nil {
		t.Fatal("Submitted() = nil after final step")
	}
	if got := reg.Software; len(got) != 2 || got[1] != "Blender" {
		t.Errorf("Software = %v, want custom value appended", got)
	}
	if f.Progress() != 100 {
		t.Errorf("Progress() = %d, want 100", f.Progress())
	}
	if err := f.Advance(ctx, in); !errors.Is(err, ErrFormComplete) {
		t.Errorf("Advance after submit = %v, want ErrFormComplete", err)
	}
}

func TestForm_ValidationBlocksAdvance(t *testing.T) {
	f, _, _ := newTestForm()

	in := validRegistration()
	in.FullName = "Jo3"

	err := f.Advance(context.Background(), in)
	var ve ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("Advance() = %v, want ValidationError", err)
	}
	if f.Step() != StepName {
		t.Errorf("Step() = %v, want %v", f.Step(), StepName)
	}
	if f.Errors()["fullName"] != "Name can only contain letters and spaces" {
		t.Errorf("Errors() = %v", f.Errors())
	}
}

func TestForm_MalformedMobileSkipsCheck(t *testing.T) {
	for _, mobile := range []string{"5123456789", "12345", "98765432100", "abcdefghij"} {
		f, c, _ := newTestForm()
		advanceTo(t, f, StepMobile)

		in := validRegistration()
		in.MobileNumber = mobile
		if err := f.Advance(context.Background(), in); err == nil {
			t.Errorf("Advance(%q) = nil, want validation error", mobile)
		}
		if c.Calls() != 0 {
			t.Errorf("Advance(%q) made %d checker calls, want 0", mobile, c.Calls())
		}
	}
}

func TestForm_RegisteredMobileBlocks(t *testing.T) {
	f, _, _ := newTestForm()
	advanceTo(t, f, StepMobile)

	in := validRegistration()
	in.MobileNumber = "9876543210"

	if err := f.Advance(context.Background(), in); !errors.Is(err, ErrMobileRegistered) {
		t.Fatalf("Advance() = %v, want ErrMobileRegistered", err)
	}
	if f.Step() != StepMobile {
		t.Errorf("Step() = %v, want %v", f.Step(), StepMobile)
	}
	if got := f.Errors()["mobileNumber"]; got != "This mobile number is already registered" {
		t.Errorf("mobile error = %q", got)
	}
}

func TestForm_CheckFailureBlocks(t *testing.T) {
	f, c, _ := newTestForm()
	c.err = errors.New("connection refused")
	advanceTo(t, f, StepMobile)

	err := f.Advance(context.Background(), validRegistration())
	if !errors.Is(err, ErrMobileCheckFailed) {
		t.Fatalf("Advance() = %v, want ErrMobileCheckFailed", err)
	}
	if f.Step() != StepMobile {
		t.Errorf("Step() = %v, want %v", f.Step(), StepMobile)
	}
	if got := f.Errors()["mobileNumber"]; got != "Unable to verify mobile number. Please try again." {
		t.Errorf("mobile error = %q", got)
	}
	if f.Checking() {
		t.Error("Checking() = true after check resolved")
	}
}

func TestForm_UnvisitedFieldsUntouched(t *testing.T) {
	f, _, _ := newTestForm()

	if err := f.Advance(context.Background(), validRegistration()); err != nil {
		t.Fatal(err)
	}

	d := f.Draft()
	if d.FullName != "Jo" {
		t.Errorf("FullName = %q, want Jo", d.FullName)
	}
	if d.MobileNumber != "" || d.RoomNumber != "" || d.GroupName != "" || d.Interests != nil || d.Software != nil {
		t.Errorf("unvisited fields written: %+v", d)
	}
}

func TestForm_BackKeepsDataWithoutValidation(t *testing.T) {
	f, _, _ := newTestForm()
	advanceTo(t, f, StepRoom)

	f.Back()
	if f.Step() != StepMobile {
		t.Fatalf("Step() = %v, want %v", f.Step(), StepMobile)
	}
	if f.Draft().MobileNumber != "9123456789" {
		t.Errorf("MobileNumber = %q, want kept", f.Draft().MobileNumber)
	}

	f.Back()
	f.Back()
	f.Back()
	if f.Step() != StepName {
		t.Errorf("Step() = %v, want floor at %v", f.Step(), StepName)
	}
	if f.Draft().FullName != "Jo" {
		t.Errorf("FullName = %q, want kept", f.Draft().FullName)
	}
}

func TestForm_StaleCheckDiscarded(t *testing.T) {
	c := &stubChecker{
		existing: map[string]bool{},
		block:    make(chan struct{}),
		started:  make(chan struct{}, 1),
	}
	f := NewForm(c, &stubRegistrar{})
	if err := f.Advance(context.Background(), validRegistration()); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- f.Advance(context.Background(), validRegistration()) }()

	<-c.started
	if !f.Checking() {
		t.Error("Checking() = false while check runs")
	}
	if err := f.Advance(context.Background(), validRegistration()); !errors.Is(err, ErrRequestInFlight) {
		t.Errorf("concurrent Advance() = %v, want ErrRequestInFlight", err)
	}

	f.Back()
	close(c.block)

	if err := <-done; !errors.Is(err, ErrStaleCheck) {
		t.Fatalf("Advance() = %v, want ErrStaleCheck", err)
	}
	if f.Step() != StepName {
		t.Errorf("Step() = %v, want %v", f.Step(), StepName)
	}
}

// blockingRegistrar signals started and waits for release before registering.
type blockingRegistrar struct {
	started chan struct{}
	release chan struct{}
}

func (r *blockingRegistrar) Register(ctx context.Context, reg NewRegistration) (Registration, error) {
	r.started <- struct{}{}
	<-r.release
	return buildRecord(reg, uuid.New(), time.Now()), nil
}

func TestForm_StaleSubmitDiscarded(t *testing.T) {
	tests := []struct {
		name     string
		interact func(*Form)
		wantStep Step
		wantName string
	}{
		{"reset", (*Form).Reset, StepName, ""},
		{"back", (*Form).Back, StepGroup, "Jo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &blockingRegistrar{started: make(chan struct{}, 1), release: make(chan struct{})}
			f := NewForm(&stubChecker{existing: map[string]bool{}}, r)
			advanceTo(t, f, StepSelections)

			done := make(chan error, 1)
			go func() { done <- f.Advance(context.Background(), validRegistration()) }()

			<-r.started
			tt.interact(f)
			close(r.release)

			if err := <-done; !errors.Is(err, ErrStaleCheck) {
				t.Fatalf("Advance() = %v, want ErrStaleCheck", err)
			}
			state := f.State()
			if state.Complete || f.Submitted() != nil {
				t.Error("form complete after its submission went stale")
			}
			if state.Step != tt.wantStep {
				t.Errorf("Step = %v, want %v", state.Step, tt.wantStep)
			}
			if state.Draft.FullName != tt.wantName {
				t.Errorf("FullName = %q, want %q", state.Draft.FullName, tt.wantName)
			}
			if f.Checking() {
				t.Error("Checking() = true after submit resolved")
			}
		})
	}
}

func TestForm_SubmitFailureKeepsFormOpen(t *testing.T) {
	f, _, r := newTestForm()
	r.err = errors.New("insert failed: connection reset")
	r.fail = 1
	advanceTo(t, f, StepSelections)

	err := f.Advance(context.Background(), validRegistration())
	if err == nil {
		t.Fatal("Advance() = nil, want submit error")
	}
	if f.Step() != StepSelections {
		t.Errorf("Step() = %v, want %v", f.Step(), StepSelections)
	}
	if f.Submitted() != nil {
		t.Error("Submitted() != nil after failure")
	}
	if got := f.Errors()[submitErrorKey]; got != r.err.Error() {
		t.Errorf("submit error = %q, want %q", got, r.err.Error())
	}

	if err := f.Advance(context.Background(), validRegistration()); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if f.Submitted() == nil {
		t.Error("Submitted() = nil after resubmit")
	}
}

func TestForm_SubmitConflict(t *testing.T) {
	f, _, r := newTestForm()
	r.err = ErrMobileRegistered
	r.fail = 1
	advanceTo(t, f, StepSelections)

	err := f.Advance(context.Background(), validRegistration())
	if !errors.Is(err, ErrMobileRegistered) {
		t.Fatalf("Advance() = %v, want ErrMobileRegistered", err)
	}
	if got := f.Errors()["mobileNumber"]; got != "This mobile number is already registered" {
		t.Errorf("mobile error = %q", got)
	}
}

func TestForm_ResetAndProgress(t *testing.T) {
	f, _, _ := newTestForm()
	if f.Progress() != 20 {
		t.Errorf("Progress() = %d, want 20", f.Progress())
	}
	advanceTo(t, f, StepGroup)
	if f.Progress() != 80 {
		t.Errorf("Progress() = %d, want 80", f.Progress())
	}

	f.Reset()
	state := f.State()
	if state.Step != StepName || state.Draft.FullName != "" || state.Complete {
		t.Errorf("State() after Reset = %+v", state)
	}
	if state.StepName != "name" {
		t.Errorf("StepName = %q, want name", state.StepName)
	}
}

func TestStepTitles(t *testing.T) {
	want := []string{"Full Name", "Mobile Number", "Room Number", "Group", "Interests & Software"}
	for i, w := range want {
		if got := Step(i).Title(); got != w {
			t.Errorf("Step(%d).Title() = %q, want %q", i, got, w)
		}
	}
}
