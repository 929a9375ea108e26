package game

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"skrawl/internal/guess"
)

// schedule arms fn to run after d, cancelling whatever task the slot held
// before, so at most one live timer of each kind exists per room. The callback
// re-checks that it still owns the slot and that the phase that armed it is
// still current; stale timers from a superseded phase are inert.
func (r *Room) schedule(slot **scheduled, d time.Duration, fn func()) {
	r.cancelTask(slot)
	task := &scheduled{phase: r.phase}
	task.timer = time.AfterFunc(d, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if *slot != task || r.phase != task.phase {
			return
		}
		*slot = nil
		fn()
	})
	*slot = task
}

func (r *Room) cancelTask(slot **scheduled) {
	if *slot != nil {
		(*slot).timer.Stop()
		*slot = nil
	}
}

func (r *Room) cancelAll() {
	r.cancelTask(&r.tickTask)
	r.cancelTask(&r.hintTask)
	r.cancelTask(&r.pauseTask)
}

// roundSeconds returns the drawing time for the given round, decaying per the
// multiplier table with a hard floor.
func (r *Room) roundSeconds(round int) int {
	i := round - 1
	if i >= len(roundMultipliers) {
		i = len(roundMultipliers) - 1
	}
	if i < 0 {
		i = 0
	}
	secs := int(float64(r.settings.RoundSeconds) * roundMultipliers[i])
	if secs < minRoundSeconds {
		secs = minRoundSeconds
	}
	return secs
}

// Start begins the game: waiting → choosing with the first drawer.
func (r *Room) Start(connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseWaiting {
		return ErrInvalidPhase
	}
	if _, ok := r.players[connID]; !ok {
		return ErrRoomNotFound
	}
	if len(r.players) < MinPlayersToStart {
		return ErrNotEnough
	}

	r.round = 1
	r.drawerIndex = 0
	r.emit.ToRoom(r.code, "round_started", map[string]any{"round": r.round})
	r.startChoosing()
	return nil
}

// startChoosing enters the choosing phase for the current drawer: clears the
// previous turn's word, resets guessed flags and offers candidate words to the
// drawer only. Callers must hold mu.
func (r *Room) startChoosing() {
	r.phase = PhaseChoosing
	r.word = ""
	r.revealed = make(map[int]bool)
	r.timer = 0
	for _, p := range r.players {
		p.Guessed = false
	}
	r.choices = r.words.Pick(WordChoiceCount)

	drawer := r.drawerID()
	r.emit.ToRoom(r.code, "turn_start", map[string]any{
		"drawerId": drawer,
		"round":    r.round,
	})
	r.emit.ToConn(drawer, "word_choices", map[string]any{"choices": r.choices})
	r.recordPhase()
	r.broadcastState()
	log.Debug().Str("code", r.code).Str("drawer", drawer).Int("round", r.round).Msg("choosing word")
}

// ChooseWord is the drawer picking one of the offered words: choosing → drawing.
func (r *Room) ChooseWord(connID, word string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseChoosing {
		return ErrInvalidPhase
	}
	if r.drawerID() != connID {
		return ErrNotDrawer
	}
	chosen := ""
	for _, c := range r.choices {
		if c == word {
			chosen = c
			break
		}
	}
	if chosen == "" {
		return ErrInvalidChoice
	}

	r.word = chosen
	r.revealed = make(map[int]bool)
	r.roundTime = r.roundSeconds(r.round)
	r.timer = r.roundTime
	r.choices = nil
	r.phase = PhaseDrawing

	r.armTick()
	r.armHint()
	r.recordPhase()
	r.broadcastState()
	log.Debug().Str("code", r.code).Int("seconds", r.roundTime).Msg("drawing started")
	return nil
}

// armTick schedules the once-per-second countdown beat.
func (r *Room) armTick() {
	r.schedule(&r.tickTask, time.Second, func() {
		r.timer--
		r.emit.ToRoom(r.code, "timer", map[string]any{"timer": r.timer})
		if r.timer <= 0 {
			r.endTurn()
			return
		}
		r.armTick()
	})
}

// armHint schedules the next letter disclosure. The interval is a fifth of
// the round time, but never under 8 seconds.
func (r *Room) armHint() {
	secs := r.roundTime / 5
	if secs < 8 {
		secs = 8
	}
	r.schedule(&r.hintTask, time.Duration(secs)*time.Second, func() {
		r.revealOne()
		r.emit.ToRoom(r.code, "hint_update", map[string]any{"hint": r.maskedHint()})
		if !r.fullyRevealed() {
			r.armHint()
		}
	})
}

// GuessResult tells the transport what a chat message turned out to be.
type GuessResult struct {
	Correct bool
	Close   bool
	Points  int
	// Suppress is set when relaying the message would leak the secret word
	// (the drawer or an already-correct guesser typing it out).
	Suppress bool
}

// Guess evaluates a chat message against the secret word and applies scoring
// and phase effects. Messages outside an active turn, or from the drawer or a
// player who already guessed, never score.
func (r *Room) Guess(connID, text string) GuessResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[connID]
	if !ok {
		return GuessResult{Suppress: true}
	}
	if r.phase != PhaseDrawing || r.word == "" {
		return GuessResult{}
	}
	if r.drawerID() == connID || p.Guessed {
		return GuessResult{Suppress: guess.Exact(text, r.word)}
	}

	if guess.Exact(text, r.word) {
		points := guess.Score(r.timer)
		p.Score += points
		p.Guessed = true
		r.record("guess score", r.creditScore(p, points))

		if drawer, ok := r.players[r.drawerID()]; ok {
			drawer.Score += guess.DrawerBonus
			r.record("drawer bonus", r.creditScore(drawer, guess.DrawerBonus))
		}

		r.emit.ToRoom(r.code, "correct_guess", map[string]any{
			"playerId": p.ID,
			"name":     p.Name,
			"points":   points,
		})

		if r.allGuessed() {
			r.endTurn()
		} else {
			r.broadcastState()
		}
		return GuessResult{Correct: true, Points: points, Suppress: true}
	}

	if guess.Close(text, r.word) {
		return GuessResult{Close: true}
	}
	return GuessResult{}
}

func (r *Room) creditScore(p *Player, points int) func(context.Context) error {
	identity, name := p.Identity, p.Name
	return func(ctx context.Context) error {
		return r.rec.AddScore(ctx, identity, name, points)
	}
}

// allGuessed reports whether every non-drawer has guessed correctly this turn.
func (r *Room) allGuessed() bool {
	drawer := r.drawerID()
	for _, p := range r.players {
		if p.ID != drawer && !p.Guessed {
			return false
		}
	}
	return true
}

// endTurn moves drawing → intermission: stops the tick and hint timers in the
// same step, reveals the word and arms the fixed delay before advancing.
// Callers must hold mu.
func (r *Room) endTurn() {
	r.cancelTask(&r.tickTask)
	r.cancelTask(&r.hintTask)
	r.phase = PhaseIntermission

	r.emit.ToRoom(r.code, "turn_end", map[string]any{"word": r.word})
	r.recordPhase()
	r.broadcastState()

	r.schedule(&r.pauseTask, r.settings.Intermission, r.advanceTurn)
}

// advanceTurn rotates the drawer and either re-enters choosing or ends the
// game: intermission → choosing | ended. Callers must hold mu.
func (r *Room) advanceTurn() {
	if len(r.players) < MinPlayersToStart {
		r.endGame()
		return
	}
	next, wrapped := r.nextDrawerIndex()
	if next < 0 {
		r.endGame()
		return
	}
	if wrapped {
		r.round++
		if r.round > r.settings.MaxRounds {
			r.endGame()
			return
		}
		r.emit.ToRoom(r.code, "round_started", map[string]any{"round": r.round})
	}
	r.drawerIndex = next
	r.startChoosing()
}

// endGame is the terminal transition; any phase may take it. Callers must hold mu.
func (r *Room) endGame() {
	r.cancelAll()
	r.phase = PhaseEnded
	r.emit.ToRoom(r.code, "game_over", map[string]any{"scores": r.finalScores()})
	r.recordPhase()
	r.broadcastState()
	log.Info().Str("code", r.code).Msg("game over")
}

func (r *Room) finalScores() []map[string]any {
	scores := make([]map[string]any, 0, len(r.players))
	for _, id := range r.order {
		p, ok := r.players[id]
		if !ok {
			continue
		}
		scores = append(scores, map[string]any{
			"playerId": p.ID,
			"name":     p.Name,
			"score":    p.Score,
		})
	}
	return scores
}
