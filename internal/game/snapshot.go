package game

// PlayerView is the public projection of a player.
type PlayerView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Identity string `json:"identity,omitempty"`
	Score    int    `json:"score"`
	Guessed  bool   `json:"guessed"`
}

// Snapshot is the read-only public view of a room. The secret word itself is
// never part of it; guessers only ever see the hint.
type Snapshot struct {
	Code      string       `json:"code"`
	Players   []PlayerView `json:"players"`
	Round     int          `json:"round"`
	MaxRounds int          `json:"maxRounds"`
	DrawerID  string       `json:"drawerId,omitempty"`
	Hint      string       `json:"hint,omitempty"`
	Phase     Phase        `json:"phase"`
	Timer     int          `json:"timer"`
	HostID    string       `json:"hostId"`
}

func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

func (r *Room) snapshot() Snapshot {
	players := make([]PlayerView, 0, len(r.players))
	for _, id := range r.order {
		p, ok := r.players[id]
		if !ok {
			continue
		}
		players = append(players, PlayerView{
			ID:       p.ID,
			Name:     p.Name,
			Identity: p.Identity,
			Score:    p.Score,
			Guessed:  p.Guessed,
		})
	}
	return Snapshot{
		Code:      r.code,
		Players:   players,
		Round:     r.round,
		MaxRounds: r.settings.MaxRounds,
		DrawerID:  r.drawerID(),
		Hint:      r.maskedHint(),
		Phase:     r.phase,
		Timer:     r.timer,
		HostID:    r.hostID,
	}
}

// broadcastState publishes the snapshot to every subscriber of the room.
// Emitted after the mutation it reflects, never before. Callers must hold mu.
func (r *Room) broadcastState() {
	r.emit.ToRoom(r.code, "room_state", r.snapshot())
}
