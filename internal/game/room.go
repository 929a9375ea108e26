package game

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

func newRoom(code string, settings Settings, words WordSource, emit Emitter, rec Recorder) *Room {
	return &Room{
		code:      code,
		players:   make(map[string]*Player),
		revealed:  make(map[int]bool),
		joined:    make(map[string]bool),
		phase:     PhaseWaiting,
		createdAt: time.Now().UTC(),
		settings:  settings,
		words:     words,
		emit:      emit,
		rec:       rec,
	}
}

func (r *Room) Code() string { return r.code }

func (r *Room) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

func (r *Room) HostID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostID
}

// IsDrawer reports whether connID is the current drawer during an active turn.
func (r *Room) IsDrawer(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (r.phase == PhaseChoosing || r.phase == PhaseDrawing) && r.drawerID() == connID
}

// PlayerName returns the server-known display name for a connection. Chat is
// always relayed under this name, never a client-claimed one.
func (r *Room) PlayerName(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[connID]
	if !ok {
		return "", false
	}
	return p.Name, true
}

// Join adds or refreshes a player. When the same stable identity is already
// present on another connection, that connection is evicted and its score and
// rotation slot carry over; the evicted connection id is returned so the
// transport can close it.
func (r *Room) Join(connID, name, identity string) (evicted string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase == PhaseEnded {
		return "", ErrRoomEnded
	}
	if _, ok := r.players[connID]; ok {
		return "", nil
	}

	name = strings.TrimSpace(name)
	if rs := []rune(name); len(rs) > MaxNameLen {
		name = string(rs[:MaxNameLen])
	}
	if name == "" {
		name = "anonymous"
	}
	if identity == "" {
		identity = "guest-" + uuid.NewString()
	}

	p := &Player{ID: connID, Name: name, Identity: identity}

	if old := r.playerByIdentity(identity); old != nil {
		// Reconnect: take over the old connection's slot and score.
		p.Score = old.Score
		p.Guessed = old.Guessed
		delete(r.players, old.ID)
		for i, id := range r.order {
			if id == old.ID {
				r.order[i] = connID
			}
		}
		if r.hostID == old.ID {
			r.hostID = connID
		}
		evicted = old.ID
	} else {
		if len(r.players) >= r.settings.MaxPlayers {
			return "", ErrRoomFull
		}
		// Late joiners go to the end of the rotation; the in-flight turn is
		// untouched and drawerIndex keeps pointing at the same player.
		r.order = append(r.order, connID)
	}

	r.players[connID] = p
	if r.hostID == "" {
		r.hostID = connID
		r.hostIdentity = identity
	}
	if !r.joined[identity] {
		r.joined[identity] = true
		r.record("games played", func(ctx context.Context) error {
			return r.rec.AddGamePlayed(ctx, identity, name)
		})
	}

	r.broadcastState()
	return evicted, nil
}

// Leave removes a player and reports whether the room is now empty. The
// caller destroys empty rooms.
func (r *Room) Leave(connID string) (empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[connID]
	if !ok {
		return len(r.players) == 0
	}

	wasDrawer := r.drawerID() == connID
	delete(r.players, connID)
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			// Removing a slot at or before the drawer's shifts the rotation
			// cursor back one, so the next advance still lands on the
			// departed slot's successor. The cursor may rest at -1 when
			// slot 0 went away.
			if i <= r.drawerIndex {
				r.drawerIndex--
			}
			break
		}
	}
	r.normalizeDrawerIndex()

	if len(r.players) == 0 {
		r.cancelAll()
		r.hostID = ""
		r.hostIdentity = ""
		return true
	}
	if r.hostID == connID {
		r.hostID = r.order[0]
		r.hostIdentity = r.players[r.hostID].Identity
	}

	if r.phase == PhaseChoosing || r.phase == PhaseDrawing || r.phase == PhaseIntermission {
		switch {
		case len(r.players) < MinPlayersToStart:
			r.endGame()
		case wasDrawer && r.phase == PhaseDrawing:
			// Turn can't continue without its drawer; reveal and move on.
			r.endTurn()
		case wasDrawer && r.phase == PhaseChoosing:
			// Hand the turn straight to the successor; the rotation wrap,
			// round increment and max-rounds cutoff all apply as usual.
			r.advanceTurn()
		}
		// A drawer leaving during intermission needs no action here: the
		// cursor shift above makes the pending advance pick the successor.
	}

	r.broadcastState()
	log.Debug().Str("code", r.code).Str("player", p.Name).Msg("player left")
	return false
}

// Close forces the room to ended. Only the host may do this.
func (r *Room) Close(connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if connID != r.hostID {
		return ErrNotHost
	}
	if r.phase != PhaseEnded {
		r.endGame()
		r.broadcastState()
	}
	return nil
}

// shutdown cancels all timers; used when the registry destroys the room.
func (r *Room) shutdown() {
	r.mu.Lock()
	r.cancelAll()
	r.mu.Unlock()
}

func (r *Room) playerByIdentity(identity string) *Player {
	for _, p := range r.players {
		if p.Identity == identity {
			return p
		}
	}
	return nil
}

// drawerID resolves the current drawer, or "" if the index doesn't land on a
// present player. Callers must hold mu.
func (r *Room) drawerID() string {
	if r.drawerIndex < 0 || r.drawerIndex >= len(r.order) {
		return ""
	}
	id := r.order[r.drawerIndex]
	if _, ok := r.players[id]; !ok {
		return ""
	}
	return id
}

// normalizeDrawerIndex clamps the cursor into [-1, len(order)). -1 is a valid
// resting position meaning the rotation resumes at slot 0 without wrapping.
func (r *Room) normalizeDrawerIndex() {
	if len(r.order) == 0 {
		r.drawerIndex = 0
		return
	}
	if r.drawerIndex < -1 || r.drawerIndex >= len(r.order) {
		r.drawerIndex = 0
	}
}

// nextDrawerIndex finds the next rotation slot that still maps to a present
// player, scanning at most one full lap. wrapped is true when the rotation
// passed the start of the order again. Returns -1 when no valid drawer exists.
func (r *Room) nextDrawerIndex() (next int, wrapped bool) {
	n := len(r.order)
	if n == 0 {
		return -1, false
	}
	for step := 1; step <= n; step++ {
		i := (r.drawerIndex + step) % n
		if i <= r.drawerIndex {
			wrapped = true
		}
		if _, ok := r.players[r.order[i]]; ok {
			return i, wrapped
		}
	}
	return -1, wrapped
}

// maskedHint renders the word with disclosed letters shown, spaces preserved
// verbatim and everything else masked.
func (r *Room) maskedHint() string {
	if r.word == "" {
		return ""
	}
	out := []rune(r.word)
	for i, c := range out {
		if c == ' ' || r.revealed[i] {
			continue
		}
		out[i] = '_'
	}
	return string(out)
}

// revealOne discloses one random still-hidden non-space letter position.
func (r *Room) revealOne() {
	var hidden []int
	for i, c := range []rune(r.word) {
		if c != ' ' && !r.revealed[i] {
			hidden = append(hidden, i)
		}
	}
	if len(hidden) == 0 {
		return
	}
	r.revealed[hidden[rand.Intn(len(hidden))]] = true
}

func (r *Room) fullyRevealed() bool {
	for i, c := range []rune(r.word) {
		if c != ' ' && !r.revealed[i] {
			return false
		}
	}
	return true
}

// record runs a persistence write on a detached goroutine. Failures are
// logged and swallowed; game flow never waits on the store.
func (r *Room) record(op string, fn func(ctx context.Context) error) {
	code := r.code
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Warn().Err(err).Str("code", code).Str("op", op).Msg("persistence write failed")
		}
	}()
}

func (r *Room) recordPhase() {
	phase := string(r.phase)
	r.record("room phase", func(ctx context.Context) error {
		return r.rec.SaveRoomPhase(ctx, r.code, phase)
	})
}
