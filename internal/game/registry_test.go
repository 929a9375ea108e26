package game

import (
	"testing"
	"time"
)

type staticWords struct{ words []string }

func (s staticWords) Pick(n int) []string {
	if n > len(s.words) {
		n = len(s.words)
	}
	return append([]string(nil), s.words[:n]...)
}

func testSettings() Settings {
	s := DefaultSettings()
	s.Intermission = 20 * time.Millisecond
	return s
}

func newTestRegistry() *Registry {
	return NewRegistry(testSettings(), staticWords{[]string{"pizza", "robot", "whale"}}, nil, nil)
}

func TestNormalizeCode(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"ab1c", "AB1C", true},
		{" AB1C ", "AB1C", true},
		{"AB1", "", false},
		{"AB1CD", "", false},
		{"ab!c", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		got, ok := NormalizeCode(c.in)
		if ok != c.ok {
			t.Fatalf("NormalizeCode(%q) ok = %v, want %v", c.in, ok, c.ok)
		}
		if ok && got != c.want {
			t.Fatalf("NormalizeCode(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCreateIsIdempotent(t *testing.T) {
	reg := newTestRegistry()

	r1 := reg.Create("AB1C")
	if r1 == nil {
		t.Fatal("expected a room")
	}
	if r1.Phase() != PhaseWaiting {
		t.Fatalf("new room phase = %s, want waiting", r1.Phase())
	}

	// Put a game in progress, then "create" again.
	r1.Join("c1", "alice", "")
	r1.Join("c2", "bob", "")
	if err := r1.Start("c1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	r2 := reg.Create("AB1C")
	if r2 != r1 {
		t.Fatal("second create must return the existing room")
	}
	if r2.Phase() != PhaseChoosing {
		t.Fatalf("second create reset the game: phase = %s", r2.Phase())
	}
}

func TestGetAbsent(t *testing.T) {
	reg := newTestRegistry()
	if _, ok := reg.Get("ZZZZ"); ok {
		t.Fatal("absent room lookup must report !ok, not a room")
	}
}

func TestDestroyCancelsTimers(t *testing.T) {
	reg := newTestRegistry()
	r := reg.Create("AB1C")
	r.Join("c1", "alice", "")
	r.Join("c2", "bob", "")
	if err := r.Start("c1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.ChooseWord("c1", "pizza"); err != nil {
		t.Fatalf("choose: %v", err)
	}

	reg.Destroy("AB1C")
	if _, ok := reg.Get("AB1C"); ok {
		t.Fatal("destroyed room still in registry")
	}
	r.mu.Lock()
	if r.tickTask != nil || r.hintTask != nil || r.pauseTask != nil {
		t.Fatal("destroy must cancel every live timer")
	}
	r.mu.Unlock()
}

func TestSweepRemovesOnlyEndedRooms(t *testing.T) {
	reg := newTestRegistry()
	alive := reg.Create("AAAA")
	dead := reg.Create("BBBB")

	dead.Join("c1", "alice", "")
	dead.mu.Lock()
	dead.endGame()
	dead.mu.Unlock()

	if n := reg.Sweep(); n != 1 {
		t.Fatalf("swept %d rooms, want 1", n)
	}
	if _, ok := reg.Get("BBBB"); ok {
		t.Fatal("ended room survived the sweep")
	}
	if _, ok := reg.Get("AAAA"); !ok {
		t.Fatal("waiting room must survive the sweep")
	}
	_ = alive
}
