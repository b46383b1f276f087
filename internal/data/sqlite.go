package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/PaulBabatuyi/optimisticChat-gRPC/internal/normalize"
)

// SQLiteStore implements both repositories on a single SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var (
	_ UserRepository    = (*SQLiteStore)(nil)
	_ MessageRepository = (*SQLiteStore)(nil)
)

// NewSQLiteStore opens (creating if needed) the database at dataSourceName.
func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY, -- UUID
        first_name TEXT NOT NULL,
        last_name TEXT NOT NULL,
        created_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS messages (
        id TEXT PRIMARY KEY, -- UUID
        text TEXT NOT NULL,
        user_id TEXT NOT NULL,
        created_at DATETIME NOT NULL,
        saved_at DATETIME NOT NULL,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );

    CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages (created_at);
    `
	_, err := s.db.Exec(schema)
	return err
}

// User methods
func (s *SQLiteStore) CreateUser(ctx context.Context, firstName, lastName string) (*User, error) {
	u := &User{
		ID:        uuid.NewString(),
		FirstName: normalize.Name(firstName),
		LastName:  normalize.Name(lastName),
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, first_name, last_name, created_at) VALUES (?, ?, ?, ?)",
		u.ID, u.FirstName, u.LastName, u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return u, nil
}

func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		"SELECT id, first_name, last_name, created_at FROM users WHERE id = ?", id).
		Scan(&u.ID, &u.FirstName, &u.LastName, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &u, nil
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, first_name, last_name, created_at FROM users ORDER BY created_at ASC, rowid ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

// Message methods
func (s *SQLiteStore) SaveMessage(ctx context.Context, text, userID string, createdAt time.Time) (*Message, error) {
	m := &Message{
		ID:        uuid.NewString(),
		Text:      text,
		UserID:    userID,
		CreatedAt: createdAt.UTC(),
		SavedAt:   time.Now().UTC(),
	}
	stmt, err := s.db.PrepareContext(ctx,
		"INSERT INTO messages (id, text, user_id, created_at, saved_at) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare message insert: %w", err)
	}
	defer stmt.Close()

	if _, err = stmt.ExecContext(ctx, m.ID, m.Text, m.UserID, m.CreatedAt, m.SavedAt); err != nil {
		return nil, fmt.Errorf("failed to execute message insert: %w", err)
	}
	return m, nil
}

func (s *SQLiteStore) ListMessages(ctx context.Context) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, text, user_id, created_at, saved_at FROM messages ORDER BY created_at ASC, rowid ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Text, &m.UserID, &m.CreatedAt, &m.SavedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}
