package ws

import (
	"math"
	"net"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skrawl/internal/game"
	"skrawl/internal/ratelimit"
)

// stubConn satisfies socketio.Conn for handler-level tests without a
// transport underneath.
type stubConn struct {
	id  string
	ctx interface{}
}

func (c *stubConn) ID() string                  { return c.id }
func (c *stubConn) Close() error                { return nil }
func (c *stubConn) URL() url.URL                { return url.URL{} }
func (c *stubConn) LocalAddr() net.Addr         { return nil }
func (c *stubConn) RemoteAddr() net.Addr        { return nil }
func (c *stubConn) RemoteHeader() http.Header   { return http.Header{} }
func (c *stubConn) Context() interface{}        { return c.ctx }
func (c *stubConn) SetContext(v interface{})    { c.ctx = v }
func (c *stubConn) Namespace() string           { return "/" }
func (c *stubConn) Emit(string, ...interface{}) {}
func (c *stubConn) Join(string)                 {}
func (c *stubConn) Leave(string)                {}
func (c *stubConn) LeaveAll()                   {}
func (c *stubConn) Rooms() []string             { return nil }

type fixedWords struct{}

func (fixedWords) Pick(n int) []string {
	pool := []string{"pizza", "robot", "whale"}
	if n > len(pool) {
		n = len(pool)
	}
	return pool[:n]
}

func newTestServer() (*Server, *game.Registry) {
	srv := New(nil, nil)
	reg := game.NewRegistry(game.DefaultSettings(), fixedWords{}, srv, nil)
	srv.SetRegistry(reg)
	return srv, reg
}

func TestSwitchingRoomsLeavesThePreviousOne(t *testing.T) {
	srv, reg := newTestServer()
	c := &stubConn{id: "s1"}
	ctx := &ConnCtx{Limits: ratelimit.NewSet()}
	c.SetContext(ctx)

	res := srv.enterRoom(c, ctx, reg.Create("AAAA"), "alice", "")
	require.Equal(t, "AAAA", res["code"])

	res = srv.enterRoom(c, ctx, reg.Create("BBBB"), "alice", "")
	require.Equal(t, "BBBB", res["code"])
	assert.Equal(t, "BBBB", ctx.Code)

	// The emptied first room must be gone, not lingering with a ghost member.
	_, exists := reg.Get("AAAA")
	assert.False(t, exists, "vacated room must be destroyed")
}

func TestRejoiningSameRoomIsIdempotent(t *testing.T) {
	srv, reg := newTestServer()
	c := &stubConn{id: "s1"}
	ctx := &ConnCtx{Limits: ratelimit.NewSet()}
	c.SetContext(ctx)

	srv.enterRoom(c, ctx, reg.Create("AAAA"), "alice", "")
	res := srv.enterRoom(c, ctx, reg.Create("AAAA"), "alice", "")
	require.Equal(t, "AAAA", res["code"])

	room, exists := reg.Get("AAAA")
	require.True(t, exists)
	assert.Len(t, room.Snapshot().Players, 1)
}

func TestStartErrorCodes(t *testing.T) {
	code, _ := startErrorCode(game.ErrRoomNotFound)
	assert.Equal(t, "not_authorized", code, "a non-member start is an authorization error")

	code, _ = startErrorCode(game.ErrNotEnough)
	assert.Equal(t, "not_enough_players", code)

	code, _ = startErrorCode(game.ErrInvalidPhase)
	assert.Equal(t, "invalid_phase", code)
}

func TestStrokeValidation(t *testing.T) {
	ok := strokePayload{FromX: 10, FromY: 20, ToX: 30, ToY: 40, Color: "#fff", Size: 4}
	got, valid := ok.validate()
	assert.True(t, valid)
	assert.Equal(t, ok, got)

	long := ok
	long.Color = "#a1b2c3"
	_, valid = long.validate()
	assert.True(t, valid)

	bad := ok
	bad.FromX = math.NaN()
	_, valid = bad.validate()
	assert.False(t, valid, "NaN coordinates must be rejected")

	bad = ok
	bad.ToY = math.Inf(1)
	_, valid = bad.validate()
	assert.False(t, valid, "infinite coordinates must be rejected")

	bad = ok
	bad.FromY = maxCoord + 1
	_, valid = bad.validate()
	assert.False(t, valid, "out-of-range coordinates must be rejected")

	bad = ok
	bad.Color = "red"
	_, valid = bad.validate()
	assert.False(t, valid, "non-hex colors must be rejected")

	bad = ok
	bad.Color = "#fffff"
	_, valid = bad.validate()
	assert.False(t, valid)
}

func TestStrokeSizeClamped(t *testing.T) {
	p := strokePayload{Color: "#000", Size: 99}
	got, valid := p.validate()
	assert.True(t, valid)
	assert.Equal(t, 16.0, got.Size)

	p.Size = 0
	got, valid = p.validate()
	assert.True(t, valid)
	assert.Equal(t, 1.0, got.Size)
}
