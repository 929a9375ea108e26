// Package store persists room and user records. Every write in the game flow
// is best-effort: the in-memory room stays the source of truth during an outage.
package store

import (
	"context"
	"time"
)

type RoomRecord struct {
	Code      string    `json:"code"`
	Phase     string    `json:"phase"`
	CreatedAt time.Time `json:"createdAt"`
	EndedAt   time.Time `json:"endedAt"`
}

type UserRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Score       int    `json:"score"`
	GamesPlayed int    `json:"gamesPlayed"`
}

type Store interface {
	SaveRoomPhase(ctx context.Context, code, phase string) error
	RoomPhase(ctx context.Context, code string) (string, error)
	// ResetUnfinished moves every non-ended room record back to waiting.
	// Run once at startup so a crash never leaves a stale in-progress record.
	ResetUnfinished(ctx context.Context) error
	AddScore(ctx context.Context, id, name string, points int) error
	AddGamePlayed(ctx context.Context, id, name string) error
	Leaderboard(ctx context.Context, limit int) ([]UserRecord, error)
	Profile(ctx context.Context, id string) (UserRecord, error)
	Close() error
}
