// Package words supplies candidate words for turn choices.
package words

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var seed = []string{
	"apple", "banana", "bicycle", "bridge", "butterfly", "cactus", "camera",
	"castle", "cloud", "compass", "crayon", "dolphin", "dragon", "elephant",
	"fireplace", "flamingo", "garden", "guitar", "hammer", "helicopter",
	"iceberg", "igloo", "island", "jellyfish", "kangaroo", "keyboard",
	"laptop", "lighthouse", "mermaid", "microscope", "mountain", "mushroom",
	"octopus", "parachute", "penguin", "piano", "pineapple", "pirate",
	"pizza", "pyramid", "rainbow", "robot", "rocket", "sandwich", "scarecrow",
	"snowman", "spider", "submarine", "sunflower", "telescope", "tornado",
	"tractor", "treasure", "umbrella", "unicorn", "volcano", "waterfall",
	"whale", "windmill", "wizard", "zebra",
}

// Source maintains the word pool. Pick always answers synchronously from the
// in-memory pool; refreshes from the external supplier run out-of-band on a
// cooldown and any failure leaves the cached pool in place.
type Source struct {
	mu          sync.Mutex
	pool        []string
	apiURL      string
	client      *http.Client
	cooldown    time.Duration
	lastRefresh time.Time
	refreshing  bool
}

// New builds a Source from the static seed list. apiURL may be empty to
// disable external refresh entirely.
func New(apiURL string) *Source {
	pool := make([]string, len(seed))
	copy(pool, seed)
	return &Source{
		pool:     pool,
		apiURL:   apiURL,
		client:   &http.Client{Timeout: 5 * time.Second},
		cooldown: 10 * time.Minute,
	}
}

// Pick returns n random distinct words from the pool.
func (s *Source) Pick(n int) []string {
	s.mu.Lock()
	if s.apiURL != "" && !s.refreshing && time.Since(s.lastRefresh) > s.cooldown {
		s.refreshing = true
		s.lastRefresh = time.Now()
		go s.refresh()
	}
	picked := make([]string, 0, n)
	for _, i := range rand.Perm(len(s.pool)) {
		if len(picked) == n {
			break
		}
		picked = append(picked, s.pool[i])
	}
	s.mu.Unlock()
	return picked
}

// refresh replaces the pool with the supplier's words, keeping the seed list
// as a floor so a degenerate response can never empty the pool.
func (s *Source) refresh() {
	defer func() {
		s.mu.Lock()
		s.refreshing = false
		s.mu.Unlock()
	}()

	resp, err := s.client.Get(s.apiURL)
	if err != nil {
		log.Warn().Err(err).Msg("word pool refresh failed, keeping cached pool")
		return
	}
	defer resp.Body.Close()

	var fetched []string
	if err := json.NewDecoder(resp.Body).Decode(&fetched); err != nil {
		log.Warn().Err(err).Msg("word pool response decode failed, keeping cached pool")
		return
	}

	fresh := make([]string, 0, len(seed)+len(fetched))
	fresh = append(fresh, seed...)
	known := make(map[string]bool, len(fresh))
	for _, w := range fresh {
		known[w] = true
	}
	for _, w := range fetched {
		if w != "" && !known[w] {
			known[w] = true
			fresh = append(fresh, w)
		}
	}

	s.mu.Lock()
	s.pool = fresh
	s.mu.Unlock()
	log.Info().Int("size", len(fresh)).Msg("word pool refreshed")
}
