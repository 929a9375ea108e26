package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("record not found")

type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
// Use ":memory:" for an ephemeral store.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// WAL keeps the best-effort writers from stalling each other.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, err
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			code TEXT PRIMARY KEY,
			phase TEXT NOT NULL DEFAULT 'waiting',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			ended_at TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			score INTEGER NOT NULL DEFAULT 0,
			games_played INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_rooms_phase ON rooms(phase);`,
		`CREATE INDEX IF NOT EXISTS idx_users_score ON users(score DESC);`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) SaveRoomPhase(ctx context.Context, code, phase string) error {
	var endedAt any
	if phase == "ended" {
		endedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rooms (code, phase, ended_at) VALUES (?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET phase = excluded.phase, ended_at = excluded.ended_at`,
		code, phase, endedAt)
	return err
}

func (s *SQLite) RoomPhase(ctx context.Context, code string) (string, error) {
	var phase string
	err := s.db.QueryRowContext(ctx, `SELECT phase FROM rooms WHERE code = ?`, code).Scan(&phase)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return phase, err
}

func (s *SQLite) ResetUnfinished(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE rooms SET phase = 'waiting' WHERE phase NOT IN ('waiting', 'ended')`)
	return err
}

func (s *SQLite) AddScore(ctx context.Context, id, name string, points int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, score) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET score = score + excluded.score, name = excluded.name`,
		id, name, points)
	return err
}

func (s *SQLite) AddGamePlayed(ctx context.Context, id, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, games_played) VALUES (?, ?, 1)
		ON CONFLICT(id) DO UPDATE SET games_played = games_played + 1, name = excluded.name`,
		id, name)
	return err
}

func (s *SQLite) Leaderboard(ctx context.Context, limit int) ([]UserRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, score, games_played FROM users ORDER BY score DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []UserRecord
	for rows.Next() {
		var u UserRecord
		if err := rows.Scan(&u.ID, &u.Name, &u.Score, &u.GamesPlayed); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLite) Profile(ctx context.Context, id string) (UserRecord, error) {
	var u UserRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, score, games_played FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Score, &u.GamesPlayed)
	if errors.Is(err, sql.ErrNoRows) {
		return UserRecord{}, ErrNotFound
	}
	return u, err
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
