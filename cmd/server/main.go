package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"

	"skrawl/internal/config"
	"skrawl/internal/game"
	"skrawl/internal/store"
	"skrawl/internal/words"
	"skrawl/internal/ws"
)

const version = "v1.2.0"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`skrawl - real-time drawing and guessing game server

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT            Port to listen on (default: 8080)
  DB_PATH         SQLite database path (default: ./skrawl.db)
  WORDS_API_URL   External word supplier URL (empty disables refresh)
  MAX_PLAYERS     Players per room (default: 12)
  MAX_ROUNDS      Rounds per game (default: 3)
  ROUND_SECONDS   Base drawing time per turn (default: 80)
`, os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("skrawl %s\n", version)
		return
	}

	cfg := config.FromEnv()
	port := *portFlag
	if port == "" {
		port = cfg.Port
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)

	// Gin setup with custom logger (skip /socket.io noise)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		zerologlog.Info().Str("path", path).Int("status", c.Writer.Status()).Dur("dur", time.Since(start)).Msg("http")
	})
	r.Use(cors.Default())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	db, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		zerologlog.Fatal().Err(err).Str("path", cfg.DBPath).Msg("opening database")
	}
	defer db.Close()

	// A crash must not leave stale in-progress room records behind.
	if err := db.ResetUnfinished(context.Background()); err != nil {
		zerologlog.Warn().Err(err).Msg("resetting unfinished room records")
	}

	settings := game.DefaultSettings()
	settings.MaxPlayers = cfg.MaxPlayers
	settings.MaxRounds = cfg.MaxRounds
	settings.RoundSeconds = cfg.RoundSeconds

	sock := ws.New(nil, db) // registry wired below; emitter needs the socket server
	reg := game.NewRegistry(settings, words.New(cfg.WordsAPIURL), sock, db)
	sock.SetRegistry(reg)
	io := sock.Mount(r)
	defer io.Close()

	stop := make(chan struct{})
	defer close(stop)
	go reg.RunSweeper(time.Minute, stop)

	// Leaderboard and profile lookups read the store only, never the rooms.
	r.GET("/api/leaderboard", func(c *gin.Context) {
		users, err := db.Leaderboard(c.Request.Context(), 20)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "leaderboard_unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"leaderboard": users})
	})
	r.GET("/api/profile/:id", func(c *gin.Context) {
		u, err := db.Profile(c.Request.Context(), c.Param("id"))
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile_not_found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "profile_unavailable"})
			return
		}
		c.JSON(http.StatusOK, u)
	})

	zerologlog.Info().Str("port", port).Str("version", version).Msg("listening")
	if err := r.Run(":" + port); err != nil {
		zerologlog.Fatal().Err(err).Msg("server exited")
	}
}
