package core_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/creative-hub/internal/core"
	"github.com/JonMunkholm/creative-hub/internal/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []core.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, ev core.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Types() []core.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]core.EventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

func newService(t *testing.T) (*core.Service, *memory.Store, *recordingPublisher) {
	t.Helper()
	store := memory.New()
	pub := &recordingPublisher{}
	svc := core.NewService(store, pub, core.ServiceOptions{
		ExportMaxConcurrent: 1,
		ExportMaxWait:       50 * time.Millisecond,
	})
	return svc, store, pub
}

func registration(name, mobile, group string) core.NewRegistration {
	return core.NewRegistration{
		FullName:     name,
		MobileNumber: mobile,
		RoomNumber:   "C-3",
		GroupName:    group,
		Interests:    []string{"Designing"},
		Software:     []string{"Canva"},
	}
}

func TestRegister(t *testing.T) {
	svc, _, pub := newService(t)
	ctx := context.Background()

	in := registration(" Meera Nair ", "9000000001", "Pulkit")
	in.CustomInterest = "Calligraphy"

	reg, err := svc.Register(ctx, in)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, reg.ID)
	assert.Equal(t, "Meera Nair", reg.FullName)
	assert.Equal(t, []string{"Designing", "Calligraphy"}, reg.Interests)
	require.NotNil(t, reg.CustomInterest)
	assert.Equal(t, "Calligraphy", *reg.CustomInterest)
	assert.Nil(t, reg.CustomSoftware)
	assert.False(t, reg.CreatedAt.IsZero())

	exists, err := svc.MobileExists(ctx, "9000000001")
	require.NoError(t, err)
	assert.True(t, exists)

	n, err := svc.CountRegistrations(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	assert.Equal(t, []core.EventType{core.EventRegistrationCreated}, pub.Types())
}

func TestRegister_Duplicate(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registration("Meera", "9000000001", "Pulkit"))
	require.NoError(t, err)

	_, err = svc.Register(ctx, registration("Someone Else", "9000000001", "Param"))
	assert.ErrorIs(t, err, core.ErrMobileRegistered)
}

func TestRegister_Validation(t *testing.T) {
	svc, store, pub := newService(t)

	_, err := svc.Register(context.Background(), registration("Meera", "9000000001", "Nobody"))
	var ve core.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "groupName", ve.Field)

	n, _ := store.Count(context.Background())
	assert.Zero(t, n)
	assert.Empty(t, pub.Types())
}

func TestRegister_PublishFailureIsNotFatal(t *testing.T) {
	svc, _, pub := newService(t)
	pub.err = errors.New("broker unavailable")

	_, err := svc.Register(context.Background(), registration("Meera", "9000000001", "Pulkit"))
	assert.NoError(t, err)
}

func TestMobileExists_Malformed(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.MobileExists(context.Background(), "12345")
	var ve core.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "mobileNumber", ve.Field)
}

func TestListRegistrationsByGroup(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	for i, g := range []string{"Param", "Pulkit", "Param"} {
		_, err := svc.Register(ctx, registration("Member", "900000000"+string(rune('1'+i)), g))
		require.NoError(t, err)
	}

	regs, err := svc.ListRegistrationsByGroup(ctx, "Param")
	require.NoError(t, err)
	assert.Len(t, regs, 2)

	all, err := svc.ListRegistrationsByGroup(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = svc.ListRegistrationsByGroup(ctx, "Prakash")
	assert.ErrorIs(t, err, core.ErrInvalidGroup)
}

func TestDeleteRegistration(t *testing.T) {
	svc, _, pub := newService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, registration("Meera", "9000000001", "Pulkit"))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRegistration(ctx, reg.ID))
	assert.ErrorIs(t, svc.DeleteRegistration(ctx, reg.ID), core.ErrRegistrationNotFound)

	assert.Equal(t, []core.EventType{
		core.EventRegistrationCreated,
		core.EventRegistrationDeleted,
	}, pub.Types())
}

func TestDeleteRegistrations(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	a, err := svc.Register(ctx, registration("Meera", "9000000001", "Pulkit"))
	require.NoError(t, err)
	b, err := svc.Register(ctx, registration("Arjun", "9000000002", "Param"))
	require.NoError(t, err)

	n, err := svc.DeleteRegistrations(ctx, []uuid.UUID{a.ID, uuid.New()})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	regs, err := svc.ListRegistrations(ctx)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, b.ID, regs[0].ID)

	n, err = svc.DeleteRegistrations(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteAllRegistrations(t *testing.T) {
	svc, _, pub := newService(t)
	ctx := context.Background()

	n, err := svc.DeleteAllRegistrations(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, pub.Types(), "empty store publishes nothing")

	for _, m := range []string{"9000000001", "9000000002", "9000000003"} {
		_, err := svc.Register(ctx, registration("Member", m, "Pavitra"))
		require.NoError(t, err)
	}

	n, err = svc.DeleteAllRegistrations(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	count, err := svc.CountRegistrations(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	types := pub.Types()
	assert.Equal(t, core.EventRegistrationsClear, types[len(types)-1])
}

func TestExport(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Export(ctx, core.ExportCSV)
	assert.ErrorIs(t, err, core.ErrNothingToExport)

	_, err = svc.Register(ctx, registration("Meera", "9000000001", "Pulkit"))
	require.NoError(t, err)

	file, err := svc.Export(ctx, core.ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, 1, file.Rows)
	assert.True(t, strings.HasPrefix(file.Filename, "creative_community_registrations_"))
	assert.True(t, strings.HasSuffix(file.Filename, ".csv"))
	assert.Contains(t, string(file.Data), "Meera,9000000001,C-3,Pulkit,Designing,Canva")

	assert.Zero(t, svc.Exports().ActiveCount(), "slot released")
}

func TestExport_FilenameUsesUTCDate(t *testing.T) {
	// 02:00 on the 10th in India is still the 9th in UTC.
	ist := time.FixedZone("IST", 5*60*60+30*60)
	svc := core.NewService(memory.New(), nil, core.ServiceOptions{
		Now: func() time.Time { return time.Date(2024, 3, 10, 2, 0, 0, 0, ist) },
	})
	ctx := context.Background()

	_, err := svc.Register(ctx, registration("Meera", "9000000001", "Pulkit"))
	require.NoError(t, err)

	file, err := svc.Export(ctx, core.ExportXLS)
	require.NoError(t, err)
	assert.Equal(t, "creative_community_registrations_2024-03-09.xls", file.Filename)
}

func TestExport_LimitReached(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registration("Meera", "9000000001", "Pulkit"))
	require.NoError(t, err)

	require.NoError(t, svc.Exports().Acquire(ctx))
	defer svc.Exports().Release()

	_, err = svc.Export(ctx, core.ExportXLS)
	assert.ErrorIs(t, err, core.ErrTooManyExports)
}

func TestAuditTrail(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := core.ContextWithActor(context.Background(), core.ActorAdmin)

	reg, err := svc.Register(context.Background(), registration("Meera", "9000000001", "Pulkit"))
	require.NoError(t, err)
	require.NoError(t, svc.DeleteRegistration(ctx, reg.ID))

	entries, err := svc.AuditLog(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, core.ActionDelete, entries[0].Action)
	assert.Equal(t, core.SeverityHigh, entries[0].Severity)
	assert.Equal(t, core.ActorAdmin, entries[0].Actor)

	assert.Equal(t, core.ActionRegister, entries[1].Action)
	assert.Equal(t, core.ActorPublic, entries[1].Actor)
	assert.Equal(t, "9000000001", entries[1].MobileNumber)

	purged, err := svc.PurgeAudit(ctx, -time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 2, purged)
}

func TestFormSubmitsThroughService(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registration("Meera", "9000000001", "Pulkit"))
	require.NoError(t, err)

	id, form := svc.Forms().Create()
	in := registration("Arjun", "9000000001", "Param")

	require.NoError(t, form.Advance(ctx, in))
	err = form.Advance(ctx, in)
	assert.ErrorIs(t, err, core.ErrMobileRegistered)
	assert.Equal(t, core.StepMobile, form.Step())

	in.MobileNumber = "9000000002"
	for form.Submitted() == nil {
		require.NoError(t, form.Advance(ctx, in))
	}

	got, err := svc.Forms().Get(id)
	require.NoError(t, err)
	assert.Same(t, form, got)

	n, err := svc.CountRegistrations(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestStartMaintenance_StopsOnCancel(t *testing.T) {
	svc, _, _ := newService(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.StartMaintenance(ctx, core.MaintenanceConfig{SweepInterval: 10 * time.Millisecond})
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("StartMaintenance did not return after cancel")
	}
}
