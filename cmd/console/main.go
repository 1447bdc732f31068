package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/jordanmarch/clocktower/internal/config"
	"github.com/jordanmarch/clocktower/internal/logger"
	"github.com/jordanmarch/clocktower/internal/storage"
)

// PollInterval is how often the spectator pulls new events from the stream.
const PollInterval = time.Second

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.Setup(cfg)

	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: console <game-id>\nWatches a running or finished game by tailing its event stream.\n")
		os.Exit(1)
	}
	gameID, err := uuid.Parse(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid game ID %q: %v\n", os.Args[1], err)
		os.Exit(1)
	}

	if cfg.RedisURL == "" {
		fmt.Fprintf(os.Stderr, "REDIS_URL is not set. The console needs the event stream to watch a game.\n")
		os.Exit(1)
	}

	stream := storage.NewRedisStream(cfg.RedisURL, log)
	defer func() { _ = stream.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := stream.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Could not connect to Redis at %s: %v\n", cfg.RedisURL, err)
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(stream, gameID),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
