// Package backend provides the reference implementations of the remote
// collaborators: a PostgreSQL data store and a Redis-backed change feed.
package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/jonathan/applypilot/internal/types"
)

// DB wraps a PostgreSQL connection pool.
type DB struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// Connect establishes a connection pool to the database.
func Connect(ctx context.Context, databaseURL string, log zerolog.Logger) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &DB{pool: pool, log: log.With().Str("component", "backend").Logger()}, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// FetchProfile retrieves the owner's profile row, or nil when none exists.
func (db *DB) FetchProfile(ctx context.Context, owner types.Identity) (*types.Profile, error) {
	var p types.Profile
	var id uuid.UUID
	var parsedCV []byte
	err := db.pool.QueryRow(ctx,
		`SELECT id, full_name, desired_title, location, salary_min, salary_max, skills,
		        COALESCE(parsed_cv, 'null'::jsonb), created_at, updated_at
		 FROM profiles WHERE id = $1`,
		uuid.UUID(owner),
	).Scan(&id, &p.FullName, &p.DesiredTitle, &p.Location, &p.SalaryMin, &p.SalaryMax,
		&p.Skills, &parsedCV, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("fetch profile", err)
	}
	p.ID = types.Identity(id)
	p.ParsedCV = normalizeJSON(parsedCV)
	return &p, nil
}

// FetchResumes retrieves every resume row for the owner, most recent first.
func (db *DB) FetchResumes(ctx context.Context, owner types.Identity) ([]types.Resume, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, user_id, file_url, created_at, updated_at
		 FROM resumes WHERE user_id = $1 ORDER BY created_at DESC`,
		uuid.UUID(owner),
	)
	if err != nil {
		return nil, wrapErr("fetch resumes", err)
	}
	defer rows.Close()

	var resumes []types.Resume
	for rows.Next() {
		var r types.Resume
		var userID uuid.UUID
		if err := rows.Scan(&r.ID, &userID, &r.FileURL, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, wrapErr("scan resume", err)
		}
		r.UserID = types.Identity(userID)
		resumes = append(resumes, r)
	}
	return resumes, rows.Err()
}

// FetchApplications retrieves every application row for the owner.
func (db *DB) FetchApplications(ctx context.Context, owner types.Identity) ([]types.Application, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, user_id, job_title, company, status, COALESCE(cover_letter_url, ''), created_at
		 FROM applications WHERE user_id = $1 ORDER BY created_at`,
		uuid.UUID(owner),
	)
	if err != nil {
		return nil, wrapErr("fetch applications", err)
	}
	defer rows.Close()

	var apps []types.Application
	for rows.Next() {
		var a types.Application
		var userID uuid.UUID
		if err := rows.Scan(&a.ID, &userID, &a.JobTitle, &a.Company, &a.Status, &a.CoverLetterURL, &a.CreatedAt); err != nil {
			return nil, wrapErr("scan application", err)
		}
		a.UserID = types.Identity(userID)
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// FetchWishlist retrieves the owner's wishlist in creation order.
func (db *DB) FetchWishlist(ctx context.Context, owner types.Identity) ([]types.WishlistItem, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, user_id, job_title, company, created_at
		 FROM wishlist_items WHERE user_id = $1 ORDER BY created_at`,
		uuid.UUID(owner),
	)
	if err != nil {
		return nil, wrapErr("fetch wishlist", err)
	}
	defer rows.Close()

	var items []types.WishlistItem
	for rows.Next() {
		var w types.WishlistItem
		var userID uuid.UUID
		if err := rows.Scan(&w.ID, &userID, &w.JobTitle, &w.Company, &w.CreatedAt); err != nil {
			return nil, wrapErr("scan wishlist item", err)
		}
		w.UserID = types.Identity(userID)
		items = append(items, w)
	}
	return items, rows.Err()
}

// UpsertProfile writes the profile keyed by its owner identity, so retries
// never create duplicates.
func (db *DB) UpsertProfile(ctx context.Context, p types.Profile) (types.Profile, error) {
	var saved types.Profile
	var id uuid.UUID
	var parsedCV []byte
	err := db.pool.QueryRow(ctx,
		`INSERT INTO profiles (id, full_name, desired_title, location, salary_min, salary_max, skills, parsed_cv, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
		   full_name = $2, desired_title = $3, location = $4, salary_min = $5,
		   salary_max = $6, skills = $7, parsed_cv = $8, updated_at = $10
		 RETURNING id, full_name, desired_title, location, salary_min, salary_max, skills,
		           COALESCE(parsed_cv, 'null'::jsonb), created_at, updated_at`,
		uuid.UUID(p.ID), p.FullName, p.DesiredTitle, p.Location, p.SalaryMin, p.SalaryMax,
		p.Skills, normalizeJSON(p.ParsedCV), p.CreatedAt, p.UpdatedAt,
	).Scan(&id, &saved.FullName, &saved.DesiredTitle, &saved.Location, &saved.SalaryMin,
		&saved.SalaryMax, &saved.Skills, &parsedCV, &saved.CreatedAt, &saved.UpdatedAt)
	if err != nil {
		return types.Profile{}, wrapErr("upsert profile", err)
	}
	saved.ID = types.Identity(id)
	saved.ParsedCV = normalizeJSON(parsedCV)
	return saved, nil
}

// InsertResume inserts a new resume history row.
func (db *DB) InsertResume(ctx context.Context, r types.Resume) (types.Resume, error) {
	var saved types.Resume
	var userID uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO resumes (id, user_id, file_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, user_id, file_url, created_at, updated_at`,
		r.ID, uuid.UUID(r.UserID), r.FileURL, r.CreatedAt, r.UpdatedAt,
	).Scan(&saved.ID, &userID, &saved.FileURL, &saved.CreatedAt, &saved.UpdatedAt)
	if err != nil {
		return types.Resume{}, wrapErr("insert resume", err)
	}
	saved.UserID = types.Identity(userID)
	return saved, nil
}

// wrapErr maps a backend failure to a TransportError carrying the postgres
// error code when one is available.
func wrapErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &types.TransportError{Op: op, Code: pgErr.Code, Cause: err}
	}
	return &types.TransportError{Op: op, Cause: err}
}

// normalizeJSON maps a SQL NULL round-tripped as the JSON literal null back
// to an absent value.
func normalizeJSON(raw []byte) []byte {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	return raw
}
