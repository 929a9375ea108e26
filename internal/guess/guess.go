// Package guess compares submitted guesses against the secret word and scores hits.
package guess

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// DrawerBonus is credited to the current drawer each time any guesser scores.
const DrawerBonus = 20

// maxInputLen caps guess/word length before computing edit distance so the
// O(n·m) cost stays bounded regardless of user input size.
const maxInputLen = 40

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if r := []rune(s); len(r) > maxInputLen {
		s = string(r[:maxInputLen])
	}
	return s
}

// Exact reports a case-insensitive, trimmed match.
func Exact(guess, word string) bool {
	g := strings.ToLower(strings.TrimSpace(guess))
	w := strings.ToLower(strings.TrimSpace(word))
	return g != "" && g == w
}

// Close reports whether the guess is within the close-match edit distance of
// the word: maxClose = max(1, len(word)/4). Exact matches are not close matches.
func Close(guess, word string) bool {
	g, w := normalize(guess), normalize(word)
	if g == "" || g == w {
		return false
	}

	maxClose := len([]rune(w)) / 4
	if maxClose < 1 {
		maxClose = 1
	}

	// The distance can never be under the bound if the lengths alone differ
	// by more than it, so skip the DP entirely.
	diff := len([]rune(g)) - len([]rune(w))
	if diff < 0 {
		diff = -diff
	}
	if diff > maxClose {
		return false
	}

	return levenshtein.ComputeDistance(g, w) <= maxClose
}

// Score returns the points for a correct guess: a flat base plus a bonus for
// the seconds still on the clock.
func Score(secondsLeft int) int {
	if secondsLeft < 0 {
		secondsLeft = 0
	}
	return 100 + secondsLeft
}
