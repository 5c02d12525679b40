package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/creative-hub/internal/logging"
)

// ServiceOptions tunes a Service. Zero values use the package defaults.
type ServiceOptions struct {
	ExportTopN          int
	ExportMaxConcurrent int
	ExportMaxWait       time.Duration
	FormSessionTTL      time.Duration

	// Now replaces time.Now for timestamps and export filenames.
	Now func() time.Time
}

// Service provides the registration operations used by the web layer.
type Service struct {
	store     Store
	publisher EventPublisher
	exports   *ExportLimiter
	forms     *FormSessions
	topN      int
	now       func() time.Time
}

// ExportFile is a rendered export ready to be sent as a download.
type ExportFile struct {
	Filename    string
	ContentType string
	Rows        int
	Data        []byte
}

// NewService creates a Service over store. A nil publisher discards events.
func NewService(store Store, publisher EventPublisher, opts ServiceOptions) *Service {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if opts.ExportTopN <= 0 {
		opts.ExportTopN = DefaultTopN
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Service{
		store:     store,
		publisher: publisher,
		exports:   NewExportLimiter(opts.ExportMaxConcurrent, opts.ExportMaxWait),
		topN:      opts.ExportTopN,
		now:       opts.Now,
	}
	s.forms = NewFormSessions(s.NewForm, opts.FormSessionTTL)
	return s
}

// NewForm returns an empty form that checks and submits through s.
func (s *Service) NewForm() *Form {
	return NewForm(s, s)
}

// Forms returns the form session registry.
func (s *Service) Forms() *FormSessions { return s.forms }

// Exports returns the export limiter.
func (s *Service) Exports() *ExportLimiter { return s.exports }

// Ping checks that the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ListRegistrations returns every registration, newest first.
func (s *Service) ListRegistrations(ctx context.Context) ([]Registration, error) {
	regs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return regs, nil
}

// ListRegistrationsByGroup returns one group's registrations, newest first.
// An empty group lists everything.
func (s *Service) ListRegistrationsByGroup(ctx context.Context, group string) ([]Registration, error) {
	group = strings.TrimSpace(group)
	if group == "" {
		return s.ListRegistrations(ctx)
	}
	if !ValidGroup(group) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidGroup, group)
	}

	regs, err := s.store.ListByGroup(ctx, group)
	if err != nil {
		return nil, fmt.Errorf("list group %s: %w", group, err)
	}
	return regs, nil
}

// CountRegistrations returns the number of registrations.
func (s *Service) CountRegistrations(ctx context.Context) (int64, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return n, nil
}

// MobileExists reports whether mobile is already registered. Malformed
// numbers fail validation without reaching the store.
func (s *Service) MobileExists(ctx context.Context, mobile string) (bool, error) {
	mobile = strings.TrimSpace(mobile)
	if errs := ValidateStep(StepMobile, NewRegistration{MobileNumber: mobile}); len(errs) > 0 {
		return false, errs[0]
	}

	exists, err := s.store.MobileExists(ctx, mobile)
	if err != nil {
		return false, fmt.Errorf("check mobile: %w", err)
	}
	return exists, nil
}

// Register validates every step, re-checks the mobile number and persists
// the registration. A number registered concurrently between the check and
// the insert is reported as ErrMobileRegistered.
func (s *Service) Register(ctx context.Context, in NewRegistration) (Registration, error) {
	in = Normalize(in)
	if err := ValidateRegistration(in); err != nil {
		return Registration{}, err
	}

	exists, err := s.store.MobileExists(ctx, in.MobileNumber)
	if err != nil {
		return Registration{}, fmt.Errorf("%w: %v", ErrMobileCheckFailed, err)
	}
	if exists {
		return Registration{}, ErrMobileRegistered
	}

	reg, err := s.store.Insert(ctx, buildRecord(in, uuid.New(), s.now().UTC()))
	if err != nil {
		if errors.Is(err, ErrMobileRegistered) {
			return Registration{}, ErrMobileRegistered
		}
		return Registration{}, fmt.Errorf("insert registration: %w", err)
	}

	logging.FromContext(ctx).Info("registration created",
		"id", reg.ID,
		"group", reg.GroupName,
	)
	s.LogAudit(ctx, AuditLogParams{
		Action:         ActionRegister,
		RegistrationID: reg.ID.String(),
		MobileNumber:   reg.MobileNumber,
		RowsAffected:   1,
	})
	s.publish(ctx, Event{
		Type:            EventRegistrationCreated,
		RegistrationIDs: []string{reg.ID.String()},
		Group:           reg.GroupName,
		Count:           1,
	})

	return reg, nil
}

// buildRecord merges the free-text values into the selection lists.
func buildRecord(in NewRegistration, id uuid.UUID, now time.Time) Registration {
	return Registration{
		ID:             id,
		FullName:       in.FullName,
		MobileNumber:   in.MobileNumber,
		RoomNumber:     in.RoomNumber,
		GroupName:      in.GroupName,
		Interests:      appendCustom(in.Interests, in.CustomInterest),
		CustomInterest: optional(in.CustomInterest),
		Software:       appendCustom(in.Software, in.CustomSoftware),
		CustomSoftware: optional(in.CustomSoftware),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func appendCustom(list []string, custom string) []string {
	out := slices.Clone(list)
	if custom != "" && !slices.Contains(out, custom) {
		out = append(out, custom)
	}
	if out == nil {
		out = []string{}
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ParseID parses a registration id from a URL or request body.
func ParseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidID, raw)
	}
	return id, nil
}

// DeleteRegistration removes one registration.
func (s *Service) DeleteRegistration(ctx context.Context, id uuid.UUID) error {
	n, err := s.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	if n == 0 {
		return ErrRegistrationNotFound
	}

	s.LogAudit(ctx, AuditLogParams{
		Action:         ActionDelete,
		RegistrationID: id.String(),
		RowsAffected:   1,
	})
	s.publish(ctx, Event{
		Type:            EventRegistrationDeleted,
		RegistrationIDs: []string{id.String()},
		Count:           1,
	})
	return nil
}

// DeleteRegistrations removes every registration in ids and returns how
// many were deleted. Unknown ids are ignored.
func (s *Service) DeleteRegistrations(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	n, err := s.store.DeleteMany(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete registrations: %w", err)
	}
	if n == 0 {
		return 0, nil
	}

	s.LogAudit(ctx, AuditLogParams{
		Action:       ActionBulkDelete,
		RowsAffected: int(n),
	})
	s.publish(ctx, Event{
		Type:            EventRegistrationDeleted,
		RegistrationIDs: idStrings(ids),
		Count:           int(n),
	})
	return n, nil
}

// DeleteAllRegistrations fetches every id and deletes that set. An empty
// store is a no-op.
func (s *Service) DeleteAllRegistrations(ctx context.Context) (int64, error) {
	ids, err := s.store.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list registration ids: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	n, err := s.store.DeleteMany(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete all registrations: %w", err)
	}

	logging.FromContext(ctx).Warn("all registrations deleted", "count", n)
	s.LogAudit(ctx, AuditLogParams{
		Action:       ActionClearAll,
		RowsAffected: int(n),
	})
	s.publish(ctx, Event{
		Type:  EventRegistrationsClear,
		Count: int(n),
	})
	return n, nil
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// Summary aggregates every registration for the dashboard.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	regs, err := s.ListRegistrations(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(regs, s.topN), nil
}

// Export renders all registrations in format. An empty store returns
// ErrNothingToExport and no file.
func (s *Service) Export(ctx context.Context, format ExportFormat) (ExportFile, error) {
	if err := s.exports.Acquire(ctx); err != nil {
		return ExportFile{}, err
	}
	defer s.exports.Release()

	regs, err := s.ListRegistrations(ctx)
	if err != nil {
		return ExportFile{}, err
	}

	var buf bytes.Buffer
	if err := WriteExport(ctx, &buf, format, regs); err != nil {
		return ExportFile{}, err
	}

	s.LogAudit(ctx, AuditLogParams{
		Action:       ActionExport,
		RowsAffected: len(regs),
		Detail:       string(format),
	})

	return ExportFile{
		Filename:    ExportFilename(format, s.now().UTC()),
		ContentType: format.ContentType(),
		Rows:        len(regs),
		Data:        buf.Bytes(),
	}, nil
}
