package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Group is one of the four fixed teams a registrant belongs to.
type Group string

const (
	GroupPavitra   Group = "Pavitra"
	GroupParam     Group = "Param"
	GroupPulkit    Group = "Pulkit"
	GroupParmanand Group = "Parmanand"
)

// Groups returns the fixed group names in display order.
func Groups() []Group {
	return []Group{GroupPavitra, GroupParam, GroupPulkit, GroupParmanand}
}

// ValidGroup reports whether name is one of the fixed groups.
func ValidGroup(name string) bool {
	for _, g := range Groups() {
		if string(g) == name {
			return true
		}
	}
	return false
}

// PresetInterests are the creative interests offered as checkboxes.
var PresetInterests = []string{
	"Video Editing",
	"Designing",
	"Sketching",
	"Photography",
	"Video Shooting",
}

// PresetSoftware are the software/applications offered as checkboxes.
var PresetSoftware = []string{
	"Adobe Premiere Pro",
	"After Effects",
	"Filmora",
	"CapCut",
	"VN",
	"Photoshop",
	"Canva",
	"Lightroom",
}

// Registration is one persisted community member record.
// Records are created once and never updated in place.
type Registration struct {
	ID             uuid.UUID `json:"id"`
	FullName       string    `json:"full_name"`
	MobileNumber   string    `json:"mobile_number"`
	RoomNumber     string    `json:"room_number"`
	GroupName      string    `json:"group_name"`
	Interests      []string  `json:"interests"`
	CustomInterest *string   `json:"custom_interest"`
	Software       []string  `json:"software"`
	CustomSoftware *string   `json:"custom_software"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FirstName returns the first word of the registrant's name.
func (r Registration) FirstName() string {
	for i, c := range r.FullName {
		if c == ' ' {
			return r.FullName[:i]
		}
	}
	return r.FullName
}

// NewRegistration is the submission payload for a registration.
// Interests and Software hold preset selections; the Custom fields hold
// the optional free-text additions.
//
// The validate tags are evaluated per form step; see validation.go.
type NewRegistration struct {
	FullName       string   `json:"fullName" validate:"required,min=2,fullname"`
	MobileNumber   string   `json:"mobileNumber" validate:"required,mobile"`
	RoomNumber     string   `json:"roomNumber" validate:"required,room"`
	GroupName      string   `json:"groupName" validate:"required,group"`
	Interests      []string `json:"interests" validate:"required_without=CustomInterest"`
	CustomInterest string   `json:"customInterest"`
	Software       []string `json:"software" validate:"required_without=CustomSoftware"`
	CustomSoftware string   `json:"customSoftware"`
}

// Store is the persistence contract for registrations and the audit log.
// Implementations live under internal/storage.
type Store interface {
	// List returns every registration ordered by creation time, newest first.
	List(ctx context.Context) ([]Registration, error)
	// ListByGroup returns the registrations of one group, newest first.
	ListByGroup(ctx context.Context, group string) ([]Registration, error)
	Count(ctx context.Context) (int64, error)
	MobileExists(ctx context.Context, mobile string) (bool, error)
	// Insert persists reg and returns the stored row. A duplicate mobile
	// number must be reported as ErrMobileRegistered.
	Insert(ctx context.Context, reg Registration) (Registration, error)
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
	DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)

	InsertAudit(ctx context.Context, entry AuditEntry) error
	ListAudit(ctx context.Context, limit int) ([]AuditEntry, error)
	PurgeAudit(ctx context.Context, before time.Time) (int64, error)

	Ping(ctx context.Context) error
	Close()
}
