package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"auth-be/internal/domain"
	"auth-be/pkg/errors"
	"auth-be/pkg/logger"
)

// PostgresStore keeps profiles in a single table, one row per identity
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewPostgresStore creates a Postgres-backed profile store
func NewPostgresStore(ctx context.Context, databaseURL string, log *logger.Logger) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = time.Minute * 30
	config.HealthCheckPeriod = time.Minute
	config.ConnConfig.ConnectTimeout = time.Second * 5

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool, log: log}, nil
}

// Close closes the connection pool
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Health checks the database connection
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Put writes a full profile row, replacing any existing one
func (s *PostgresStore) Put(ctx context.Context, id string, profile *domain.Profile) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO profiles (id, email, display_name, is_admin, status, created_at, last_login, admin_since)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			is_admin = EXCLUDED.is_admin,
			status = EXCLUDED.status,
			created_at = EXCLUDED.created_at,
			last_login = EXCLUDED.last_login,
			admin_since = EXCLUDED.admin_since`,
		id, profile.Email, profile.DisplayName, profile.IsAdmin, profile.Status,
		profile.CreatedAt, profile.LastLogin, profile.AdminSince)
	if err != nil {
		s.log.WithError(err).WithField("profile_id", id).Error("pg_profile_put")
		return errors.NewStoreError("failed to write profile", err)
	}
	return nil
}

// Get fetches the profile row for id
func (s *PostgresStore) Get(ctx context.Context, id string) (*domain.Profile, error) {
	profile := &domain.Profile{ID: id}
	err := s.pool.QueryRow(ctx, `
		SELECT email, display_name, is_admin, status, created_at, last_login, admin_since
		FROM profiles WHERE id = $1`, id).Scan(
		&profile.Email, &profile.DisplayName, &profile.IsAdmin, &profile.Status,
		&profile.CreatedAt, &profile.LastLogin, &profile.AdminSince)
	if err == pgx.ErrNoRows {
		return nil, errors.NewNotFoundError("profile not found")
	}
	if err != nil {
		s.log.WithError(err).WithField("profile_id", id).Error("pg_profile_get")
		return nil, errors.NewStoreError("failed to read profile", err)
	}
	return profile, nil
}

// Update applies a partial write; field keys map directly onto columns
func (s *PostgresStore) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}

	assignments := make([]string, 0, len(fields))
	args := make([]interface{}, 0, len(fields)+1)
	args = append(args, id)

	for field, value := range fields {
		switch field {
		case FieldDisplayName, FieldIsAdmin, FieldStatus, FieldLastLogin, FieldAdminSince:
			args = append(args, value)
			assignments = append(assignments, fmt.Sprintf("%s = $%d", field, len(args)))
		default:
			return errors.NewStoreError("unknown profile field", fmt.Errorf("field %q", field))
		}
	}

	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf("UPDATE profiles SET %s WHERE id = $1", strings.Join(assignments, ", ")),
		args...)
	if err != nil {
		s.log.WithError(err).WithField("profile_id", id).Error("pg_profile_update")
		return errors.NewStoreError("failed to update profile", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NewNotFoundError("profile not found")
	}
	return nil
}

// Delete removes the profile row
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM profiles WHERE id = $1", id)
	if err != nil {
		s.log.WithError(err).WithField("profile_id", id).Error("pg_profile_delete")
		return errors.NewStoreError("failed to delete profile", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NewNotFoundError("profile not found")
	}
	return nil
}

// ListAll returns every profile row
func (s *PostgresStore) ListAll(ctx context.Context) ([]*domain.Profile, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, email, display_name, is_admin, status, created_at, last_login, admin_since
		FROM profiles ORDER BY created_at`)
	if err != nil {
		return nil, errors.NewStoreError("failed to list profiles", err)
	}
	defer rows.Close()

	var profiles []*domain.Profile
	for rows.Next() {
		profile := &domain.Profile{}
		if err := rows.Scan(&profile.ID, &profile.Email, &profile.DisplayName,
			&profile.IsAdmin, &profile.Status, &profile.CreatedAt,
			&profile.LastLogin, &profile.AdminSince); err != nil {
			return nil, errors.NewStoreError("failed to scan profile", err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreError("failed to list profiles", err)
	}
	return profiles, nil
}
