package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hongminglow/taskql/internal/models"
	"github.com/hongminglow/taskql/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ensure Store satisfies the storage.Store interface at compile time.
var _ storage.Store = (*Store)(nil)

const uniqueViolation = "23505"

// Store provides Postgres-backed persistence for users and tasks.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store and runs migrations.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			firstname TEXT NOT NULL,
			lastname TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			title TEXT UNIQUE NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			tags TEXT[] NOT NULL DEFAULT '{}',
			done BOOLEAN NOT NULL DEFAULT FALSE,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS tasks_user_id_idx ON tasks (user_id);`,
		`CREATE INDEX IF NOT EXISTS tasks_tags_idx ON tasks USING GIN (tags);`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

const userColumns = `id, firstname, lastname, email, password_hash, created_at`

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	const query = `
		INSERT INTO users (id, firstname, lastname, email, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns
	row := s.pool.QueryRow(ctx, query, uuid.NewString(), user.Firstname, user.Lastname, user.Email, user.PasswordHash)
	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, storage.ErrAlreadyExists
		}
		return models.User{}, err
	}
	return created, nil
}

// FindUserByEmail fetches a user by email address.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// FindUserByID fetches a user by id.
func (s *Store) FindUserByID(ctx context.Context, id string) (models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

const taskColumns = `id, title, description, tags, done, user_id, created_at`

// CreateTask inserts a new task row.
func (s *Store) CreateTask(ctx context.Context, task models.Task) (models.Task, error) {
	const query = `
		INSERT INTO tasks (id, title, description, tags, done, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + taskColumns
	tags := task.Tags
	if tags == nil {
		tags = []string{}
	}
	row := s.pool.QueryRow(ctx, query, uuid.NewString(), task.Title, task.Description, tags, task.Done, task.UserID)
	created, err := scanTask(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Task{}, storage.ErrAlreadyExists
		}
		return models.Task{}, err
	}
	return created, nil
}

// FindTaskByID fetches a task by id.
func (s *Store) FindTaskByID(ctx context.Context, id string) (models.Task, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	return scanTask(row)
}

// ListTasks returns tasks matching the filter, oldest first.
func (s *Store) ListTasks(ctx context.Context, filter storage.TaskFilter) ([]models.Task, error) {
	var (
		where []string
		args  []any
	)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Done != nil {
		args = append(args, *filter.Done)
		where = append(where, fmt.Sprintf("done = $%d", len(args)))
	}
	if len(filter.Tags) > 0 {
		args = append(args, filter.Tags)
		where = append(where, fmt.Sprintf("tags && $%d", len(args)))
	}

	query := `SELECT ` + taskColumns + ` FROM tasks`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	out := make([]models.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return out, nil
}

// UpdateTask overwrites the fields present in patch and returns the new row.
func (s *Store) UpdateTask(ctx context.Context, id string, patch storage.TaskPatch) (models.Task, error) {
	if patch.Empty() {
		return s.FindTaskByID(ctx, id)
	}

	var (
		sets []string
		args []any
	)
	if patch.Title != nil {
		args = append(args, *patch.Title)
		sets = append(sets, fmt.Sprintf("title = $%d", len(args)))
	}
	if patch.Description != nil {
		args = append(args, *patch.Description)
		sets = append(sets, fmt.Sprintf("description = $%d", len(args)))
	}
	if patch.Tags != nil {
		tags := *patch.Tags
		if tags == nil {
			tags = []string{}
		}
		args = append(args, tags)
		sets = append(sets, fmt.Sprintf("tags = $%d", len(args)))
	}
	if patch.Done != nil {
		args = append(args, *patch.Done)
		sets = append(sets, fmt.Sprintf("done = $%d", len(args)))
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE tasks SET %s WHERE id = $%d RETURNING %s`, strings.Join(sets, ", "), len(args), taskColumns)

	updated, err := scanTask(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if isUniqueViolation(err) {
			return models.Task{}, storage.ErrAlreadyExists
		}
		return models.Task{}, err
	}
	return updated, nil
}

// DeleteTask removes a task and returns the removed row.
func (s *Store) DeleteTask(ctx context.Context, id string) (models.Task, error) {
	row := s.pool.QueryRow(ctx, `DELETE FROM tasks WHERE id = $1 RETURNING `+taskColumns, id)
	return scanTask(row)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.Firstname, &user.Lastname, &user.Email, &user.PasswordHash, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func scanTask(row pgx.Row) (models.Task, error) {
	var task models.Task
	if err := row.Scan(&task.ID, &task.Title, &task.Description, &task.Tags, &task.Done, &task.UserID, &task.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Task{}, storage.ErrNotFound
		}
		return models.Task{}, err
	}
	if task.Tags == nil {
		task.Tags = []string{}
	}
	return task, nil
}
