package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowWithinWindow(t *testing.T) {
	l := New(3, 100*time.Millisecond)

	got := []bool{l.Allow(), l.Allow(), l.Allow(), l.Allow()}
	assert.Equal(t, []bool{true, true, true, false}, got)
}

func TestAllowAfterWindowExpires(t *testing.T) {
	l := New(3, 100*time.Millisecond)
	now := time.Now()
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow())
	}
	assert.False(t, l.Allow())

	now = now.Add(101 * time.Millisecond)
	assert.True(t, l.Allow())
}

func TestDenialHasNoSideEffect(t *testing.T) {
	l := New(1, time.Hour)
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())
	assert.Len(t, l.hits, 1, "denied calls must not be logged")
}

func TestPartialWindowSlide(t *testing.T) {
	l := New(2, 100*time.Millisecond)
	now := time.Now()
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow())
	now = now.Add(60 * time.Millisecond)
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())

	// First hit falls out of the window, second is still inside.
	now = now.Add(50 * time.Millisecond)
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())
}

func TestSetCategoriesAreIndependent(t *testing.T) {
	s := NewSet()
	for i := 0; i < 2; i++ {
		assert.True(t, s.Allow(ActionStartGame))
	}
	assert.False(t, s.Allow(ActionStartGame))
	assert.True(t, s.Allow(ActionChat), "exhausting one category must not affect another")
	assert.True(t, s.Allow("unknown"), "unthrottled actions pass through")
}
