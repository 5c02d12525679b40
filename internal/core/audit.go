package core

import (
	"context"
	"net"
	"net/netip"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/creative-hub/internal/logging"
)

// DefaultAuditLimit is how many entries AuditLog returns when no limit is given.
const DefaultAuditLimit = 100

// AuditAction represents the type of action being audited.
type AuditAction string

const (
	ActionRegister    AuditAction = "registration_create"
	ActionDelete      AuditAction = "registration_delete"
	ActionBulkDelete  AuditAction = "registration_bulk_delete"
	ActionClearAll    AuditAction = "registration_clear"
	ActionExport      AuditAction = "export"
	ActionAdminLogin  AuditAction = "admin_login"
	ActionAdminLogout AuditAction = "admin_logout"
)

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow      AuditSeverity = "low"
	SeverityMedium   AuditSeverity = "medium"
	SeverityHigh     AuditSeverity = "high"
	SeverityCritical AuditSeverity = "critical"
)

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID             uuid.UUID     `json:"id"`
	Action         AuditAction   `json:"action"`
	Severity       AuditSeverity `json:"severity"`
	Actor          string        `json:"actor,omitempty"`
	RegistrationID string        `json:"registrationId,omitempty"`
	MobileNumber   string        `json:"mobileNumber,omitempty"`
	RowsAffected   int           `json:"rowsAffected,omitempty"`
	IPAddress      string        `json:"ipAddress,omitempty"`
	UserAgent      string        `json:"userAgent,omitempty"`
	Detail         string        `json:"detail,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// AuditLogParams contains parameters for creating an audit log entry.
// Actor, IPAddress and UserAgent default to the values carried by ctx.
type AuditLogParams struct {
	Action         AuditAction
	Actor          string
	RegistrationID string
	MobileNumber   string
	RowsAffected   int
	IPAddress      string
	UserAgent      string
	Detail         string
}

func auditSeverity(action AuditAction) AuditSeverity {
	switch action {
	case ActionExport, ActionAdminLogout:
		return SeverityLow
	case ActionDelete, ActionBulkDelete:
		return SeverityHigh
	case ActionClearAll:
		return SeverityCritical
	default:
		return SeverityMedium
	}
}

// LogAudit records an audit entry. Failures are logged and returned, but
// callers treat them as non-fatal for the action being audited.
func (s *Service) LogAudit(ctx context.Context, params AuditLogParams) (*AuditEntry, error) {
	entry := AuditEntry{
		ID:             uuid.New(),
		Action:         params.Action,
		Severity:       auditSeverity(params.Action),
		Actor:          firstNonEmpty(params.Actor, ActorFromContext(ctx)),
		RegistrationID: params.RegistrationID,
		MobileNumber:   params.MobileNumber,
		RowsAffected:   params.RowsAffected,
		IPAddress:      normalizeIP(firstNonEmpty(params.IPAddress, GetIPAddressFromContext(ctx))),
		UserAgent:      firstNonEmpty(params.UserAgent, GetUserAgentFromContext(ctx)),
		Detail:         params.Detail,
		CreatedAt:      s.now().UTC(),
	}

	if err := s.store.InsertAudit(ctx, entry); err != nil {
		logging.FromContext(ctx).Error("audit log write failed",
			"action", params.Action,
			"error", err,
		)
		return nil, err
	}
	return &entry, nil
}

// AuditLog returns the newest audit entries.
func (s *Service) AuditLog(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	return s.store.ListAudit(ctx, limit)
}

// PurgeAudit deletes audit entries older than olderThan.
func (s *Service) PurgeAudit(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.store.PurgeAudit(ctx, s.now().Add(-olderThan))
}

// normalizeIP strips a port and drops values that are not IP addresses.
func normalizeIP(raw string) string {
	if raw == "" {
		return ""
	}
	host := raw
	if h, _, err := net.SplitHostPort(raw); err == nil {
		host = h
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return ""
	}
	return addr.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
