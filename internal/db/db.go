// Package db wraps the Postgres pool and the handful of queries the server
// needs. Documents are stored as JSONB snapshots keyed by project.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

// NewPool connects to Postgres and verifies the connection.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	CreatedAt    time.Time
}

type Project struct {
	ID        string
	OwnerID   string
	Name      string
	ImageID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store runs queries against the pool.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		display_name  TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id         TEXT PRIMARY KEY,
		owner_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name       TEXT NOT NULL,
		image_id   TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS projects_owner_idx ON projects(owner_id)`,
	`CREATE TABLE IF NOT EXISTS documents (
		project_id TEXT PRIMARY KEY REFERENCES projects(id) ON DELETE CASCADE,
		doc        JSONB NOT NULL,
		version    INT NOT NULL DEFAULT 1,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate applies the schema. Statements are idempotent so it runs on
// every boot.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, display_name) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Email, u.PasswordHash, u.DisplayName)
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, display_name, created_at FROM users WHERE email = $1`,
		email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (s *Store) GetUserByID(ctx context.Context, id string) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, display_name, created_at FROM users WHERE id = $1`,
		id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (s *Store) CreateProject(ctx context.Context, p Project) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO projects (id, owner_id, name, image_id) VALUES ($1, $2, $3, $4)`,
		p.ID, p.OwnerID, p.Name, p.ImageID)
	return err
}

func (s *Store) GetProject(ctx context.Context, id string) (Project, error) {
	var p Project
	err := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, name, image_id, created_at, updated_at FROM projects WHERE id = $1`,
		id).Scan(&p.ID, &p.OwnerID, &p.Name, &p.ImageID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Project{}, ErrNotFound
	}
	return p, err
}

func (s *Store) ListProjectsByOwner(ctx context.Context, ownerID string) ([]Project, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_id, name, image_id, created_at, updated_at
		 FROM projects WHERE owner_id = $1 ORDER BY updated_at DESC`,
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.ImageID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *Store) SetProjectImage(ctx context.Context, id, imageID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE projects SET image_id = $2, updated_at = now() WHERE id = $1`,
		id, imageID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveDocument upserts the JSONB editing state for a project.
func (s *Store) SaveDocument(ctx context.Context, projectID string, doc []byte, version int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO documents (project_id, doc, version, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (project_id) DO UPDATE
		 SET doc = EXCLUDED.doc, version = EXCLUDED.version, updated_at = now()`,
		projectID, doc, version)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE projects SET updated_at = now() WHERE id = $1`, projectID)
	return err
}

// GetDocument returns the stored JSONB snapshot and its version.
func (s *Store) GetDocument(ctx context.Context, projectID string) ([]byte, int, error) {
	var doc []byte
	var version int
	err := s.pool.QueryRow(ctx,
		`SELECT doc, version FROM documents WHERE project_id = $1`,
		projectID).Scan(&doc, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, ErrNotFound
	}
	return doc, version, err
}
