// Package storage is the SQLite persistence of dashboard users and the
// query audit trail.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"veraz/internal/auth"
	"veraz/internal/core"
)

const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

var ErrQueryNotFound = errors.New("query record not found")

type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ auth.CredentialStore = (*SQLiteRepository)(nil)
	_ auth.UserWriter      = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Lookup implements auth.CredentialStore.
func (r *SQLiteRepository) Lookup(ctx context.Context, username string) (auth.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT username, password_hash, role, created_at FROM users WHERE username = ? COLLATE NOCASE`,
		strings.TrimSpace(username))
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.User{}, core.ErrUserNotFound
	}
	if err != nil {
		return auth.User{}, fmt.Errorf("lookup user: %w", err)
	}
	return u, nil
}

// SaveUser creates the user or replaces its password and role.
func (r *SQLiteRepository) SaveUser(ctx context.Context, u auth.User) error {
	if strings.TrimSpace(u.Username) == "" {
		return core.ErrEmptyUsername
	}
	if !u.Role.IsValid() {
		return core.ErrInvalidRole
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, role, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (username) DO UPDATE SET
			password_hash = excluded.password_hash,
			role = excluded.role`,
		strings.TrimSpace(u.Username), u.PasswordHash, string(u.Role), u.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]auth.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT username, password_hash, role, created_at FROM users ORDER BY username COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []auth.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (auth.User, error) {
	var (
		u       auth.User
		role    string
		created int64
	)
	if err := s.Scan(&u.Username, &u.PasswordHash, &role, &created); err != nil {
		return auth.User{}, err
	}
	u.Role = core.Role(role)
	u.CreatedAt = time.Unix(created, 0).UTC()
	return u, nil
}

// RecordQuery stores an audit entry pending synchronization.
func (r *SQLiteRepository) RecordQuery(ctx context.Context, rec core.QueryRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO query_audit (id, username, cuit, denomination, periods, skipped, created_at, sync_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Username, rec.CUIT, rec.Denomination, rec.Periods,
		strings.Join(rec.Skipped, ","), rec.CreatedAt.Unix(), SyncPending)
	if err != nil {
		return fmt.Errorf("record query: %w", err)
	}
	return nil
}

const queryColumns = `id, username, cuit, denomination, periods, skipped, created_at`

func (r *SQLiteRepository) GetQuery(ctx context.Context, id string) (core.QueryRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+queryColumns+` FROM query_audit WHERE id = ?`, id)
	rec, err := scanQuery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.QueryRecord{}, ErrQueryNotFound
	}
	if err != nil {
		return core.QueryRecord{}, fmt.Errorf("get query: %w", err)
	}
	return rec, nil
}

// PendingQueries returns up to limit unsynced entries, oldest first.
func (r *SQLiteRepository) PendingQueries(ctx context.Context, limit int) ([]core.QueryRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+queryColumns+` FROM query_audit WHERE sync_status = ? ORDER BY created_at, id LIMIT ?`,
		SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("pending queries: %w", err)
	}
	defer rows.Close()

	var out []core.QueryRecord
	for rows.Next() {
		rec, err := scanQuery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan query: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkQuerySynced(ctx context.Context, id string) error {
	return r.setSyncStatus(ctx, id, SyncDone)
}

func (r *SQLiteRepository) MarkQuerySyncError(ctx context.Context, id string) error {
	return r.setSyncStatus(ctx, id, SyncError)
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE query_audit SET sync_status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update sync status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrQueryNotFound
	}
	return nil
}

func scanQuery(s scanner) (core.QueryRecord, error) {
	var (
		rec     core.QueryRecord
		skipped string
		created int64
	)
	if err := s.Scan(&rec.ID, &rec.Username, &rec.CUIT, &rec.Denomination, &rec.Periods, &skipped, &created); err != nil {
		return core.QueryRecord{}, err
	}
	if skipped != "" {
		rec.Skipped = strings.Split(skipped, ",")
	}
	rec.CreatedAt = time.Unix(created, 0).UTC()
	return rec, nil
}
