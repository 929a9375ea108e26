package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port         string
	DBPath       string
	WordsAPIURL  string
	MaxPlayers   int
	MaxRounds    int
	RoundSeconds int
}

func FromEnv() Config {
	c := Config{}
	c.Port = getenv("PORT", "8080")
	c.DBPath = getenv("DB_PATH", "./skrawl.db")
	c.WordsAPIURL = getenv("WORDS_API_URL", "https://random-word-api.herokuapp.com/word?number=50")
	c.MaxPlayers = getenvInt("MAX_PLAYERS", 12)
	c.MaxRounds = getenvInt("MAX_ROUNDS", 3)
	c.RoundSeconds = getenvInt("ROUND_SECONDS", 80)
	return c
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
