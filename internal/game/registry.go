package game

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{4}$`)

// NormalizeCode uppercases and validates a client-supplied room code. Rooms
// are only ever looked up by this normalized form.
func NormalizeCode(raw string) (string, bool) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	return code, codePattern.MatchString(code)
}

// Registry owns the code→Room table, the only process-wide mutable structure
// in the engine. Rooms are mutated through their own methods; the table is
// mutated only by Create, Destroy and Sweep.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	settings Settings
	words    WordSource
	emit     Emitter
	rec      Recorder
}

func NewRegistry(settings Settings, words WordSource, emit Emitter, rec Recorder) *Registry {
	if emit == nil {
		emit = nopEmitter{}
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Registry{
		rooms:    make(map[string]*Room),
		settings: settings,
		words:    words,
		emit:     emit,
		rec:      rec,
	}
}

// Create returns the room with the given code, constructing it in the waiting
// phase if absent. Calling it twice never resets an in-progress game.
func (g *Registry) Create(code string) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()
	if r, ok := g.rooms[code]; ok {
		return r
	}
	r := newRoom(code, g.settings, g.words, g.emit, g.rec)
	g.rooms[code] = r
	r.recordPhase()
	log.Info().Str("code", code).Msg("room created")
	return r
}

func (g *Registry) Get(code string) (*Room, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.rooms[code]
	return r, ok
}

// Destroy cancels the room's timers and drops it from the table.
func (g *Registry) Destroy(code string) {
	g.mu.Lock()
	r, ok := g.rooms[code]
	delete(g.rooms, code)
	g.mu.Unlock()
	if ok {
		r.shutdown()
		log.Info().Str("code", code).Msg("room destroyed")
	}
}

// Sweep destroys every ended room and returns how many it removed.
func (g *Registry) Sweep() int {
	g.mu.Lock()
	var ended []*Room
	for code, r := range g.rooms {
		if r.Phase() == PhaseEnded {
			ended = append(ended, r)
			delete(g.rooms, code)
		}
	}
	g.mu.Unlock()

	for _, r := range ended {
		r.shutdown()
	}
	if len(ended) > 0 {
		log.Info().Int("rooms", len(ended)).Msg("swept ended rooms")
	}
	return len(ended)
}

// RunSweeper sweeps on the given interval until stop is closed.
func (g *Registry) RunSweeper(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			g.Sweep()
		case <-stop:
			return
		}
	}
}
