// Package sqlite implements core.Store on a single SQLite file using
// database/sql and the go-sqlite3 driver.
//
// SQLite has no array type, so interests and software are stored as JSON
// text. Timestamps are stored as fixed-width UTC text so that ORDER BY on
// the column matches chronological order.
//
// The pool is limited to one connection: SQLite serialises writers anyway,
// and ":memory:" databases exist per connection.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/JonMunkholm/creative-hub/internal/core"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z"

// deleteChunk keeps IN lists under SQLite's bound parameter limit.
const deleteChunk = 500

// Store is a core.Store backed by SQLite.
type Store struct {
	db *sql.DB
}

var _ core.Store = (*Store)(nil)

// Open opens (or creates) the database at path and creates the schema.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS registrations (
	id              TEXT PRIMARY KEY,
	full_name       TEXT NOT NULL,
	mobile_number   TEXT NOT NULL UNIQUE,
	room_number     TEXT NOT NULL,
	group_name      TEXT NOT NULL,
	interests       TEXT NOT NULL DEFAULT '[]',
	custom_interest TEXT,
	software        TEXT NOT NULL DEFAULT '[]',
	custom_software TEXT,
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS registrations_created_at_idx ON registrations (created_at);
CREATE INDEX IF NOT EXISTS registrations_group_name_idx ON registrations (group_name);

CREATE TABLE IF NOT EXISTS audit_log (
	id              TEXT PRIMARY KEY,
	action          TEXT NOT NULL,
	severity        TEXT NOT NULL,
	actor           TEXT,
	registration_id TEXT,
	mobile_number   TEXT,
	rows_affected   INTEGER,
	ip_address      TEXT,
	user_agent      TEXT,
	detail          TEXT,
	created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_log_created_at_idx ON audit_log (created_at);
`

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite migrate: %w", err)
	}
	return nil
}

const registrationColumns = `id, full_name, mobile_number, room_number, group_name,
	interests, custom_interest, software, custom_software, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row scanner) (core.Registration, error) {
	var (
		r                        core.Registration
		id, interests, software  string
		createdAt, updatedAt     string
		customInterest, customSw sql.NullString
	)
	err := row.Scan(&id, &r.FullName, &r.MobileNumber, &r.RoomNumber, &r.GroupName,
		&interests, &customInterest, &software, &customSw, &createdAt, &updatedAt)
	if err != nil {
		return core.Registration{}, err
	}

	if r.ID, err = uuid.Parse(id); err != nil {
		return core.Registration{}, fmt.Errorf("registration id %q: %w", id, err)
	}
	if r.Interests, err = decodeList(interests); err != nil {
		return core.Registration{}, err
	}
	if r.Software, err = decodeList(software); err != nil {
		return core.Registration{}, err
	}
	r.CustomInterest = nullString(customInterest)
	r.CustomSoftware = nullString(customSw)
	if r.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return core.Registration{}, fmt.Errorf("created_at: %w", err)
	}
	if r.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return core.Registration{}, fmt.Errorf("updated_at: %w", err)
	}
	return r, nil
}

func (s *Store) queryRegistrations(ctx context.Context, query string, args ...any) ([]core.Registration, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	regs := make([]core.Registration, 0)
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, r)
	}
	return regs, rows.Err()
}

func (s *Store) List(ctx context.Context) ([]core.Registration, error) {
	return s.queryRegistrations(ctx,
		`SELECT `+registrationColumns+` FROM registrations ORDER BY created_at DESC, rowid DESC`)
}

func (s *Store) ListByGroup(ctx context.Context, group string) ([]core.Registration, error) {
	return s.queryRegistrations(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE group_name = ? ORDER BY created_at DESC, rowid DESC`,
		group)
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM registrations`).Scan(&n)
	return n, err
}

func (s *Store) MobileExists(ctx context.Context, mobile string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE mobile_number = ?)`,
		mobile).Scan(&exists)
	return exists, err
}

func (s *Store) Insert(ctx context.Context, reg core.Registration) (core.Registration, error) {
	if reg.ID == uuid.Nil {
		reg.ID = uuid.New()
	}
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = time.Now()
	}
	if reg.UpdatedAt.IsZero() {
		reg.UpdatedAt = reg.CreatedAt
	}
	reg.CreatedAt = reg.CreatedAt.UTC()
	reg.UpdatedAt = reg.UpdatedAt.UTC()

	interests, err := encodeList(reg.Interests)
	if err != nil {
		return core.Registration{}, err
	}
	software, err := encodeList(reg.Software)
	if err != nil {
		return core.Registration{}, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO registrations (`+registrationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reg.ID.String(),
		reg.FullName,
		reg.MobileNumber,
		reg.RoomNumber,
		reg.GroupName,
		interests,
		toNullString(reg.CustomInterest),
		software,
		toNullString(reg.CustomSoftware),
		reg.CreatedAt.Format(timeLayout),
		reg.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Registration{}, core.ErrMobileRegistered
		}
		return core.Registration{}, err
	}

	return scanRegistration(s.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = ?`, reg.ID.String()))
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM registrations WHERE id = ?`, id.String())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteMany deletes ids in one transaction, chunked to respect the
// parameter limit.
func (s *Store) DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var total int64
	for start := 0; start < len(ids); start += deleteChunk {
		chunk := ids[start:min(start+deleteChunk, len(ids))]
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id.String()
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")

		res, err := tx.ExecContext(ctx,
			`DELETE FROM registrations WHERE id IN (`+placeholders+`)`, args...)
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM registrations ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("registration id %q: %w", raw, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) InsertAudit(ctx context.Context, e core.AuditEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, action, severity, actor, registration_id, mobile_number,
			rows_affected, ip_address, user_agent, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(),
		string(e.Action),
		string(e.Severity),
		e.Actor,
		e.RegistrationID,
		e.MobileNumber,
		e.RowsAffected,
		e.IPAddress,
		e.UserAgent,
		e.Detail,
		e.CreatedAt.UTC().Format(timeLayout),
	)
	return err
}

func (s *Store) ListAudit(ctx context.Context, limit int) ([]core.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, action, severity, actor, registration_id, mobile_number,
			rows_affected, ip_address, user_agent, detail, created_at
		FROM audit_log ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]core.AuditEntry, 0)
	for rows.Next() {
		var (
			e                                    core.AuditEntry
			id, action, severity, createdAt      string
			actor, regID, mobile, ip, ua, detail sql.NullString
			affected                             sql.NullInt64
		)
		if err := rows.Scan(&id, &action, &severity, &actor, &regID, &mobile,
			&affected, &ip, &ua, &detail, &createdAt); err != nil {
			return nil, err
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("audit id %q: %w", id, err)
		}
		if e.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("audit created_at: %w", err)
		}
		e.Action = core.AuditAction(action)
		e.Severity = core.AuditSeverity(severity)
		e.Actor = actor.String
		e.RegistrationID = regID.String
		e.MobileNumber = mobile.String
		e.RowsAffected = int(affected.Int64)
		e.IPAddress = ip.String
		e.UserAgent = ua.String
		e.Detail = detail.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) PurgeAudit(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM audit_log WHERE created_at < ?`, before.UTC().Format(timeLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() {
	s.db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encode list: %w", err)
	}
	return string(b), nil
}

func decodeList(raw string) ([]string, error) {
	values := []string{}
	if raw == "" {
		return values, nil
	}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	return values, nil
}

func toNullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
