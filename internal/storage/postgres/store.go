// Package postgres implements core.Store on PostgreSQL using pgx.
//
// The schema is created by Migrate on startup. Interests and software are
// stored as TEXT[]; the free-text additions are nullable TEXT columns.
// A unique index on mobile_number enforces one registration per number and
// its violation is reported as core.ErrMobileRegistered.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/creative-hub/internal/core"
)

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// DBTX is the query surface shared by *pgxpool.Pool, *pgxpool.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Options configures the connection pool.
type Options struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Store is a core.Store backed by a pgx pool.
type Store struct {
	pool *pgxpool.Pool
	db   DBTX
}

var _ core.Store = (*Store)(nil)

// Open connects a pool, verifies it with a ping and creates the schema.
func Open(ctx context.Context, opts Options) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		poolConfig.MinConns = int32(opts.MinConns)
	}
	if opts.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	s := New(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing pool. The caller is responsible for Migrate.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, db: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS registrations (
	id              UUID PRIMARY KEY,
	full_name       TEXT NOT NULL,
	mobile_number   TEXT NOT NULL,
	room_number     TEXT NOT NULL,
	group_name      TEXT NOT NULL,
	interests       TEXT[] NOT NULL DEFAULT '{}',
	custom_interest TEXT,
	software        TEXT[] NOT NULL DEFAULT '{}',
	custom_software TEXT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS registrations_mobile_number_key ON registrations (mobile_number);
CREATE INDEX IF NOT EXISTS registrations_created_at_idx ON registrations (created_at DESC);
CREATE INDEX IF NOT EXISTS registrations_group_name_idx ON registrations (group_name);

CREATE TABLE IF NOT EXISTS audit_log (
	id              UUID PRIMARY KEY,
	action          TEXT NOT NULL,
	severity        TEXT NOT NULL,
	actor           TEXT,
	registration_id TEXT,
	mobile_number   TEXT,
	rows_affected   INTEGER,
	ip_address      TEXT,
	user_agent      TEXT,
	detail          TEXT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS audit_log_created_at_idx ON audit_log (created_at DESC);
`

// Migrate creates the tables and indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const registrationColumns = `id, full_name, mobile_number, room_number, group_name,
	interests, custom_interest, software, custom_software, created_at, updated_at`

func scanRegistration(row pgx.Row) (core.Registration, error) {
	var (
		r              core.Registration
		id             pgtype.UUID
		customInterest pgtype.Text
		customSoftware pgtype.Text
	)
	err := row.Scan(
		&id,
		&r.FullName,
		&r.MobileNumber,
		&r.RoomNumber,
		&r.GroupName,
		&r.Interests,
		&customInterest,
		&r.Software,
		&customSoftware,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return core.Registration{}, err
	}
	r.ID = fromPgUUID(id)
	r.CustomInterest = fromPgTextPtr(customInterest)
	r.CustomSoftware = fromPgTextPtr(customSoftware)
	if r.Interests == nil {
		r.Interests = []string{}
	}
	if r.Software == nil {
		r.Software = []string{}
	}
	return r, nil
}

func (s *Store) queryRegistrations(ctx context.Context, sql string, args ...any) ([]core.Registration, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Registration, error) {
		return scanRegistration(row)
	})
}

func (s *Store) List(ctx context.Context) ([]core.Registration, error) {
	return s.queryRegistrations(ctx,
		`SELECT `+registrationColumns+` FROM registrations ORDER BY created_at DESC`)
}

func (s *Store) ListByGroup(ctx context.Context, group string) ([]core.Registration, error) {
	return s.queryRegistrations(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE group_name = $1 ORDER BY created_at DESC`,
		group)
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM registrations`).Scan(&n)
	return n, err
}

func (s *Store) MobileExists(ctx context.Context, mobile string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE mobile_number = $1)`,
		mobile).Scan(&exists)
	return exists, err
}

// Insert writes reg and returns the stored row.
func (s *Store) Insert(ctx context.Context, reg core.Registration) (core.Registration, error) {
	if reg.ID == uuid.Nil {
		reg.ID = uuid.New()
	}
	row := s.db.QueryRow(ctx,
		`INSERT INTO registrations (id, full_name, mobile_number, room_number, group_name,
			interests, custom_interest, software, custom_software, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, now()), COALESCE($11, now()))
		RETURNING `+registrationColumns,
		toPgUUID(reg.ID),
		reg.FullName,
		reg.MobileNumber,
		reg.RoomNumber,
		reg.GroupName,
		nonNil(reg.Interests),
		toPgTextPtr(reg.CustomInterest),
		nonNil(reg.Software),
		toPgTextPtr(reg.CustomSoftware),
		toPgTimestamptz(reg.CreatedAt),
		toPgTimestamptz(reg.UpdatedAt),
	)

	stored, err := scanRegistration(row)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Registration{}, core.ErrMobileRegistered
		}
		return core.Registration{}, err
	}
	return stored, nil
}

func (s *Store) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM registrations WHERE id = $1`, toPgUUID(id))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.db.Exec(ctx,
		`DELETE FROM registrations WHERE id = ANY($1::uuid[])`,
		uuidStrings(ids))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM registrations ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (uuid.UUID, error) {
		var id pgtype.UUID
		if err := row.Scan(&id); err != nil {
			return uuid.Nil, err
		}
		return fromPgUUID(id), nil
	})
}

func (s *Store) InsertAudit(ctx context.Context, e core.AuditEntry) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO audit_log (id, action, severity, actor, registration_id, mobile_number,
			rows_affected, ip_address, user_agent, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, now()))`,
		toPgUUID(e.ID),
		string(e.Action),
		string(e.Severity),
		toPgText(e.Actor),
		toPgText(e.RegistrationID),
		toPgText(e.MobileNumber),
		toPgInt4(e.RowsAffected),
		toPgText(e.IPAddress),
		toPgText(e.UserAgent),
		toPgText(e.Detail),
		toPgTimestamptz(e.CreatedAt),
	)
	return err
}

func (s *Store) ListAudit(ctx context.Context, limit int) ([]core.AuditEntry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, action, severity, actor, registration_id, mobile_number,
			rows_affected, ip_address, user_agent, detail, created_at
		FROM audit_log ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.AuditEntry, error) {
		var (
			e                                    core.AuditEntry
			id                                   pgtype.UUID
			action, severity                     string
			actor, regID, mobile, ip, ua, detail pgtype.Text
			affected                             pgtype.Int4
		)
		if err := row.Scan(&id, &action, &severity, &actor, &regID, &mobile,
			&affected, &ip, &ua, &detail, &e.CreatedAt); err != nil {
			return core.AuditEntry{}, err
		}
		e.ID = fromPgUUID(id)
		e.Action = core.AuditAction(action)
		e.Severity = core.AuditSeverity(severity)
		e.Actor = fromPgText(actor)
		e.RegistrationID = fromPgText(regID)
		e.MobileNumber = fromPgText(mobile)
		if affected.Valid {
			e.RowsAffected = int(affected.Int32)
		}
		e.IPAddress = fromPgText(ip)
		e.UserAgent = fromPgText(ua)
		e.Detail = fromPgText(detail)
		return e, nil
	})
}

func (s *Store) PurgeAudit(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM audit_log WHERE created_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	s.pool.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
