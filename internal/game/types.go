package game

import (
	"context"
	"errors"
	"sync"
	"time"
)

type Phase string

const (
	PhaseWaiting      Phase = "waiting"
	PhaseChoosing     Phase = "choosing"
	PhaseDrawing      Phase = "drawing"
	PhaseIntermission Phase = "intermission"
	PhaseEnded        Phase = "ended"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room full")
	ErrRoomEnded     = errors.New("room ended")
	ErrNotHost       = errors.New("not host")
	ErrNotDrawer     = errors.New("not drawer")
	ErrInvalidPhase  = errors.New("invalid phase for action")
	ErrNotEnough     = errors.New("need at least two players")
	ErrInvalidChoice = errors.New("word is not among the offered choices")
)

const (
	MinPlayersToStart = 2
	WordChoiceCount   = 3
	MaxNameLen        = 24
	minRoundSeconds   = 20
)

// Per-round drawing time shrinks as the game goes on; rounds past the table
// reuse the last multiplier.
var roundMultipliers = []float64{1.0, 0.85, 0.7}

type Settings struct {
	MaxPlayers   int
	MaxRounds    int
	RoundSeconds int
	Intermission time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		MaxPlayers:   12,
		MaxRounds:    3,
		RoundSeconds: 80,
		Intermission: 3 * time.Second,
	}
}

// WordSource supplies candidate words for turn choices.
type WordSource interface {
	Pick(n int) []string
}

// Emitter publishes events to room subscribers. Delivery is fire-and-forget;
// the game never waits on it.
type Emitter interface {
	ToRoom(code, event string, payload any)
	ToConn(connID, event string, payload any)
}

// Recorder receives best-effort persistence writes. Calls are made from
// detached goroutines and failures are logged, never surfaced to game flow.
type Recorder interface {
	SaveRoomPhase(ctx context.Context, code, phase string) error
	AddScore(ctx context.Context, id, name string, points int) error
	AddGamePlayed(ctx context.Context, id, name string) error
}

type nopEmitter struct{}

func (nopEmitter) ToRoom(string, string, any) {}
func (nopEmitter) ToConn(string, string, any) {}

type nopRecorder struct{}

func (nopRecorder) SaveRoomPhase(context.Context, string, string) error { return nil }
func (nopRecorder) AddScore(context.Context, string, string, int) error { return nil }
func (nopRecorder) AddGamePlayed(context.Context, string, string) error { return nil }

// Player is owned by its Room. Guessed resets at the start of every turn.
type Player struct {
	ID       string
	Name     string
	Identity string
	Score    int
	Guessed  bool
}

// scheduled is a cancellable timer that remembers the phase that armed it.
// Its callback is inert once the room has moved on.
type scheduled struct {
	timer *time.Timer
	phase Phase
}

// Room is the aggregate root for one game session. All mutation goes through
// its methods, which serialize on mu; timer callbacks take the same lock.
type Room struct {
	mu sync.Mutex

	code         string
	players      map[string]*Player
	order        []string
	drawerIndex  int
	round        int
	phase        Phase
	word         string
	revealed     map[int]bool
	timer        int
	roundTime    int
	choices      []string
	hostID       string
	hostIdentity string
	joined       map[string]bool
	createdAt    time.Time

	tickTask  *scheduled
	hintTask  *scheduled
	pauseTask *scheduled

	settings Settings
	words    WordSource
	emit     Emitter
	rec      Recorder
}
