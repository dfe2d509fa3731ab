// Package demo provides a small "tasks" tool backed by SQLite. It exercises
// the whole pipeline: schemas, typed handlers, destructive serialization,
// presenters with embeds, redaction and suggestions.
package demo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a task or user does not exist.
var ErrNotFound = errors.New("not found")

// Task statuses.
const (
	StatusOpen = "open"
	StatusDone = "done"
)

// User owns tasks.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Task is one row of the tasks table, with its owner joined in.
type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Owner     *User     `json:"owner,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id    TEXT PRIMARY KEY,
	name  TEXT NOT NULL,
	email TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS tasks (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'open',
	owner_id   TEXT REFERENCES users(id),
	created_at INTEGER NOT NULL
);
INSERT OR IGNORE INTO users (id, name, email) VALUES
	('ada', 'Ada Lovelace', 'ada@example.com'),
	('alan', 'Alan Turing', 'alan@example.com');
`

// Store persists tasks in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const selectTask = `
SELECT t.id, t.title, t.status, t.created_at, u.id, u.name, u.email
FROM tasks t LEFT JOIN users u ON u.id = t.owner_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (Task, error) {
	var t Task
	var created int64
	var uid, uname, uemail sql.NullString
	if err := row.Scan(&t.ID, &t.Title, &t.Status, &created, &uid, &uname, &uemail); err != nil {
		return Task{}, err
	}
	t.CreatedAt = time.UnixMilli(created).UTC()
	if uid.Valid {
		t.Owner = &User{ID: uid.String, Name: uname.String, Email: uemail.String}
	}
	return t, nil
}

// ListTasks returns tasks in creation order. An empty status lists all.
func (s *Store) ListTasks(ctx context.Context, status string) ([]Task, error) {
	query := selectTask
	var args []any
	if status != "" {
		query += " WHERE t.status = ?"
		args = append(args, status)
	}
	query += " ORDER BY t.created_at, t.rowid"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// GetTask returns one task.
func (s *Store) GetTask(ctx context.Context, id string) (Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, selectTask+" WHERE t.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, fmt.Errorf("task %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// CreateTask inserts an open task owned by ownerID (optional).
func (s *Store) CreateTask(ctx context.Context, title, ownerID string) (Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Task{}, fmt.Errorf("title is required")
	}
	var owner any
	if ownerID != "" {
		var exists int
		err := s.db.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id = ?", ownerID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, fmt.Errorf("user %q: %w", ownerID, ErrNotFound)
		}
		if err != nil {
			return Task{}, fmt.Errorf("lookup owner: %w", err)
		}
		owner = ownerID
	}

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO tasks (id, title, status, owner_id, created_at) VALUES (?, ?, ?, ?, ?)",
		id, title, StatusOpen, owner, s.now().UTC().UnixMilli(),
	)
	if err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	return s.GetTask(ctx, id)
}

// CompleteTask marks a task done. Completing a done task is a no-op.
func (s *Store) CompleteTask(ctx context.Context, id string) (Task, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE tasks SET status = ? WHERE id = ?", StatusDone, id)
	if err != nil {
		return Task{}, fmt.Errorf("complete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Task{}, fmt.Errorf("task %q: %w", id, ErrNotFound)
	}
	return s.GetTask(ctx, id)
}

// DeleteTask removes a task.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %q: %w", id, ErrNotFound)
	}
	return nil
}
