// Package ws binds inbound socket.io messages to the room engine. It is the
// composition root: rate limiting, payload validation and event fan-out live
// here; the game rules live in internal/game.
package ws

import (
	"context"
	"math"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"

	"skrawl/internal/game"
	"skrawl/internal/ratelimit"
	"skrawl/internal/store"
)

const maxChatLen = 140

var colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Verifier resolves an identity token to a stable external identity. Actual
// token validation is an external collaborator; the default trusts the token
// as the identity itself.
type Verifier interface {
	Verify(token string) (string, error)
}

type passthroughVerifier struct{}

func (passthroughVerifier) Verify(token string) (string, error) { return token, nil }

// ConnCtx is the per-connection state stored on the socket.
type ConnCtx struct {
	Code     string
	Identity string
	Limits   *ratelimit.Set
}

type Server struct {
	reg      *game.Registry
	db       store.Store
	verifier Verifier

	mu    sync.RWMutex
	conns map[string]socketio.Conn
	io    *socketio.Server
}

func New(reg *game.Registry, db store.Store) *Server {
	return &Server{
		reg:      reg,
		db:       db,
		verifier: passthroughVerifier{},
		conns:    make(map[string]socketio.Conn),
	}
}

func (srv *Server) SetVerifier(v Verifier) { srv.verifier = v }

// SetRegistry wires the room engine in after construction; the registry needs
// this server as its emitter, so the two are tied together in two steps.
func (srv *Server) SetRegistry(reg *game.Registry) { srv.reg = reg }

// ToRoom implements game.Emitter.
func (srv *Server) ToRoom(code, event string, payload any) {
	if srv.io != nil {
		srv.io.BroadcastToRoom("/", code, event, payload)
	}
}

// ToConn implements game.Emitter.
func (srv *Server) ToConn(connID, event string, payload any) {
	srv.mu.RLock()
	c := srv.conns[connID]
	srv.mu.RUnlock()
	if c != nil {
		c.Emit(event, payload)
	}
}

// Mount attaches the socket.io server with all game handlers to the gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)
	srv.io = io

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{Limits: ratelimit.NewSet()})
		srv.mu.Lock()
		srv.conns[s.ID()] = s
		srv.mu.Unlock()
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	// create_room
	io.OnEvent("/", "create_room", func(s socketio.Conn, payload struct {
		Code  string `json:"code"`
		Name  string `json:"name"`
		Token string `json:"token"`
	}) map[string]any {
		ctx := s.Context().(*ConnCtx)
		if !ctx.Limits.Allow(ratelimit.ActionCreate) {
			return map[string]any{"error": "rate_limited"}
		}
		code, ok := game.NormalizeCode(payload.Code)
		if !ok {
			return srv.err(s, "invalid_code", "Room code must be 4 letters or digits")
		}
		// A leftover ended room does not block the code from being reused.
		if old, exists := srv.reg.Get(code); exists && old.Phase() == game.PhaseEnded {
			srv.reg.Destroy(code)
		}
		room := srv.reg.Create(code)
		return srv.enterRoom(s, ctx, room, payload.Name, payload.Token)
	})

	// join_room
	io.OnEvent("/", "join_room", func(s socketio.Conn, payload struct {
		Code  string `json:"code"`
		Name  string `json:"name"`
		Token string `json:"token"`
	}) map[string]any {
		ctx := s.Context().(*ConnCtx)
		if !ctx.Limits.Allow(ratelimit.ActionJoin) {
			return map[string]any{"error": "rate_limited"}
		}
		code, ok := game.NormalizeCode(payload.Code)
		if !ok {
			return srv.err(s, "invalid_code", "Room code must be 4 letters or digits")
		}
		room, exists := srv.reg.Get(code)
		if !exists {
			room = srv.materialize(code)
		}
		if room == nil {
			return srv.err(s, "room_not_found", "No room with that code")
		}
		return srv.enterRoom(s, ctx, room, payload.Name, payload.Token)
	})

	// leave_room
	io.OnEvent("/", "leave_room", func(s socketio.Conn) map[string]any {
		ctx := s.Context().(*ConnCtx)
		srv.leave(s, ctx)
		return map[string]any{"ok": true}
	})

	// close_room (host only)
	io.OnEvent("/", "close_room", func(s socketio.Conn) map[string]any {
		ctx := s.Context().(*ConnCtx)
		room, exists := srv.reg.Get(ctx.Code)
		if !exists {
			return srv.err(s, "room_not_found", "No room with that code")
		}
		if err := room.Close(s.ID()); err != nil {
			return srv.err(s, "not_authorized", "Only the host can close the room")
		}
		log.Info().Str("code", ctx.Code).Msg("room closed by host")
		return map[string]any{"ok": true}
	})

	// start_game
	io.OnEvent("/", "start_game", func(s socketio.Conn) map[string]any {
		ctx := s.Context().(*ConnCtx)
		if !ctx.Limits.Allow(ratelimit.ActionStartGame) {
			return map[string]any{"error": "rate_limited"}
		}
		room, exists := srv.reg.Get(ctx.Code)
		if !exists {
			return srv.err(s, "room_not_found", "No room with that code")
		}
		if err := room.Start(s.ID()); err != nil {
			code, msg := startErrorCode(err)
			return srv.err(s, code, msg)
		}
		log.Info().Str("code", ctx.Code).Msg("game started")
		return map[string]any{"ok": true}
	})

	// choose_word (drawer only)
	io.OnEvent("/", "choose_word", func(s socketio.Conn, payload struct {
		Word string `json:"word"`
	}) map[string]any {
		ctx := s.Context().(*ConnCtx)
		room, exists := srv.reg.Get(ctx.Code)
		if !exists {
			return srv.err(s, "room_not_found", "No room with that code")
		}
		// Non-drawer and off-list picks are ignored without ceremony.
		if err := room.ChooseWord(s.ID(), payload.Word); err != nil {
			return map[string]any{"ok": false}
		}
		return map[string]any{"ok": true}
	})

	// draw (drawer only, relayed, never persisted)
	io.OnEvent("/", "draw", func(s socketio.Conn, payload strokePayload) {
		ctx := s.Context().(*ConnCtx)
		if !ctx.Limits.Allow(ratelimit.ActionDraw) {
			return
		}
		room, exists := srv.reg.Get(ctx.Code)
		if !exists || room.Phase() != game.PhaseDrawing || !room.IsDrawer(s.ID()) {
			return
		}
		stroke, ok := payload.validate()
		if !ok {
			return
		}
		srv.relayExcept(ctx.Code, s.ID(), "draw", stroke)
	})

	// chat doubles as the guess channel during drawing.
	io.OnEvent("/", "chat", func(s socketio.Conn, payload struct {
		Message string `json:"message"`
	}) {
		ctx := s.Context().(*ConnCtx)
		if !ctx.Limits.Allow(ratelimit.ActionChat) {
			return
		}
		room, exists := srv.reg.Get(ctx.Code)
		if !exists {
			return
		}
		name, member := room.PlayerName(s.ID())
		if !member {
			return
		}
		msg := strings.TrimSpace(payload.Message)
		if rs := []rune(msg); len(rs) > maxChatLen {
			msg = string(rs[:maxChatLen])
		}
		if msg == "" {
			return
		}

		res := room.Guess(s.ID(), msg)
		if res.Close {
			s.Emit("close_guess", map[string]any{"message": msg})
		}
		if res.Correct || res.Suppress {
			return
		}
		// Relayed under the server-known name, never the client-claimed one.
		io.BroadcastToRoom("/", ctx.Code, "chat", map[string]any{
			"playerId": s.ID(),
			"name":     name,
			"message":  msg,
		})
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})

	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		if ctx, ok := s.Context().(*ConnCtx); ok {
			srv.leave(s, ctx)
		}
		srv.mu.Lock()
		delete(srv.conns, s.ID())
		srv.mu.Unlock()
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go io.Serve()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

// enterRoom joins the player into the room and wires the socket into the
// room's broadcast group. Shared by create_room and join_room.
func (srv *Server) enterRoom(s socketio.Conn, ctx *ConnCtx, room *game.Room, name, token string) map[string]any {
	// A connection inhabits one room at a time; switching rooms leaves the
	// old one first so it can empty out and be destroyed.
	if ctx.Code != "" && ctx.Code != room.Code() {
		srv.leave(s, ctx)
	}

	identity := ""
	if token != "" {
		id, err := srv.verifier.Verify(token)
		if err != nil {
			return srv.err(s, "not_authorized", "Identity token rejected")
		}
		identity = id
	}

	evicted, err := room.Join(s.ID(), name, identity)
	switch err {
	case nil:
	case game.ErrRoomFull:
		return srv.err(s, "room_full", "That room is full")
	case game.ErrRoomEnded:
		return srv.err(s, "room_ended", "That game is already over")
	default:
		return srv.err(s, "join_failed", "Could not join the room")
	}

	if evicted != "" {
		srv.kick(evicted, room.Code())
	}

	ctx.Code = room.Code()
	ctx.Identity = identity
	s.Join(room.Code())
	log.Info().Str("sid", s.ID()).Str("code", room.Code()).Msg("player joined")
	return map[string]any{"code": room.Code(), "hostId": room.HostID(), "state": room.Snapshot()}
}

func (srv *Server) leave(s socketio.Conn, ctx *ConnCtx) {
	if ctx.Code == "" {
		return
	}
	code := ctx.Code
	ctx.Code = ""
	s.Leave(code)
	room, exists := srv.reg.Get(code)
	if !exists {
		return
	}
	if empty := room.Leave(s.ID()); empty {
		srv.reg.Destroy(code)
	}
}

// kick closes out a connection that was replaced by a reconnect with the same
// identity.
func (srv *Server) kick(connID, code string) {
	srv.mu.RLock()
	c := srv.conns[connID]
	srv.mu.RUnlock()
	if c == nil {
		return
	}
	c.Emit("error", map[string]any{"code": "session_replaced", "message": "Signed in from another connection"})
	c.Leave(code)
	if ctx, ok := c.Context().(*ConnCtx); ok {
		ctx.Code = ""
	}
}

// materialize revives a room whose persisted record is still waiting, so a
// restart doesn't strand players holding valid codes.
func (srv *Server) materialize(code string) *game.Room {
	if srv.db == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	phase, err := srv.db.RoomPhase(ctx, code)
	if err != nil || phase != string(game.PhaseWaiting) {
		return nil
	}
	return srv.reg.Create(code)
}

func (srv *Server) relayExcept(code, senderID, event string, payload any) {
	srv.mu.RLock()
	defer srv.mu.RUnlock()
	for id, c := range srv.conns {
		if id == senderID {
			continue
		}
		if ctx, ok := c.Context().(*ConnCtx); ok && ctx.Code == code {
			c.Emit(event, payload)
		}
	}
}

// startErrorCode maps a Start failure onto the wire error vocabulary. A
// connection that is not in the room gets an authorization error, not a
// phase one.
func startErrorCode(err error) (code, message string) {
	switch err {
	case game.ErrRoomNotFound:
		return "not_authorized", "Only players in the room can start the game"
	case game.ErrNotEnough:
		return "not_enough_players", "Need at least two players to start"
	default:
		return "invalid_phase", "Game already running"
	}
}

func (srv *Server) err(s socketio.Conn, code, message string) map[string]any {
	s.Emit("error", map[string]any{"code": code, "message": message})
	return map[string]any{"error": code}
}

type strokePayload struct {
	FromX float64 `json:"fromX"`
	FromY float64 `json:"fromY"`
	ToX   float64 `json:"toX"`
	ToY   float64 `json:"toY"`
	Color string  `json:"color"`
	Size  float64 `json:"size"`
}

const maxCoord = 4096

// validate rejects malformed strokes and clamps size into [1,16]. Color must
// be a short hex token.
func (p strokePayload) validate() (strokePayload, bool) {
	for _, v := range []float64{p.FromX, p.FromY, p.ToX, p.ToY} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > maxCoord {
			return p, false
		}
	}
	if math.IsNaN(p.Size) || math.IsInf(p.Size, 0) {
		return p, false
	}
	if p.Size < 1 {
		p.Size = 1
	}
	if p.Size > 16 {
		p.Size = 16
	}
	if !colorPattern.MatchString(p.Color) {
		return p, false
	}
	return p, true
}
