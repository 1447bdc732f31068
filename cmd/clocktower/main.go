// Command clocktower runs the reference six-player game to completion and
// prints a summary. Decisions come from the Anthropic provider, or from a
// seeded random provider with -offline.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jordanmarch/clocktower/internal/config"
	"github.com/jordanmarch/clocktower/internal/logger"
	"github.com/jordanmarch/clocktower/internal/services"
	"github.com/jordanmarch/clocktower/internal/storage"
	"github.com/jordanmarch/clocktower/pkg/decision"
	"github.com/jordanmarch/clocktower/pkg/engine"
	"github.com/jordanmarch/clocktower/pkg/eventlog"
	"github.com/jordanmarch/clocktower/pkg/script"
	"github.com/jordanmarch/clocktower/pkg/state"
)

func main() {
	offline := flag.Bool("offline", false, "use the seeded random provider instead of the LLM")
	seed := flag.Int64("seed", 0, "override the random seed from the environment")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.Setup(cfg)

	if *seed != 0 {
		cfg.RandomSeed = *seed
	}

	var provider decision.Provider
	if *offline {
		provider = decision.NewRandomProvider(cfg.RandomSeed)
		log.Info("using offline random provider", "seed", cfg.RandomSeed)
	} else {
		if cfg.AnthropicAPIKey == "" {
			fmt.Fprintln(os.Stderr, "ERROR: No Anthropic API key found. Set ANTHROPIC_API_KEY or run with -offline.")
			os.Exit(1)
		}
		llm := services.NewAnthropicService(cfg.AnthropicAPIKey, cfg.ModelName, log)
		provider = services.NewAgentProvider(llm, log)
		log.Info("using Anthropic provider", "model", cfg.ModelName)
	}

	gs, err := engine.NewGame(engine.Setup{
		Script: &script.TroubleBrewing,
		Characters: []script.Character{
			script.Imp,
			script.Poisoner,
			script.Slayer,
			script.FortuneTeller,
			script.Undertaker,
			script.Drunk,
		},
		Seed: cfg.RandomSeed,
	})
	if err != nil {
		log.Error("failed to set up game", "error", err)
		os.Exit(1)
	}
	log = logger.WithGameID(log, gs.ID.String())

	memory := eventlog.NewMemorySink()
	sinks := []eventlog.Sink{memory}

	var stream *storage.RedisStream
	if cfg.RedisURL != "" {
		stream = storage.NewRedisStream(cfg.RedisURL, log)
		defer func() { _ = stream.Close() }()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := stream.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Warn("Redis unavailable, events will not be streamed", "error", err)
			stream = nil
		} else {
			sinks = append(sinks, stream)
			log.Info("streaming events to Redis", "url", cfg.RedisURL)
		}
	}

	rec := eventlog.NewRecorder(gs.ID, log, sinks...)
	eng := engine.New(gs, provider, rec, log, engine.Config{MaxRounds: cfg.MaxRounds})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Game %s starting. Watch it with: console %s\n\n", gs.ID, gs.ID)
	printRoster(gs)

	outcome, err := eng.Run(ctx)
	if err != nil {
		log.Error("game aborted", "error", err)
		os.Exit(1)
	}

	printSummary(outcome, memory.Events())
	printRoster(gs)

	if stream != nil {
		snapCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		snap := storage.Snapshot{
			GameID:     gs.ID,
			Winner:     string(outcome.Winner),
			Reason:     string(outcome.Reason),
			Rounds:     outcome.Rounds,
			FinishedAt: time.Now().UTC(),
		}
		if err := stream.SaveSnapshot(snapCtx, snap); err != nil {
			log.Warn("failed to save snapshot", "error", err)
		}
	}
}

func printRoster(gs *state.GameState) {
	fmt.Println("Name         | Character      | Status")
	fmt.Println("-------------+----------------+-------")
	for _, p := range gs.Seats {
		status := "ALIVE"
		if !p.Alive {
			status = "DEAD"
		}
		fmt.Printf("%-12s | %-14s | %s\n", p.Name, p.Character.DisplayName(), status)
	}
	fmt.Println()
}

func printSummary(outcome engine.Outcome, events []eventlog.Event) {
	stats := eventlog.Summarize(events)

	fmt.Println("Game Summary:")
	fmt.Printf("  Total rounds: %d\n", stats.TotalRounds)
	fmt.Printf("  Total events: %d\n", stats.TotalEvents)
	fmt.Printf("  Deaths: %d players\n", len(stats.Deaths))
	fmt.Printf("  Executions: %d players\n", len(stats.Executions))
	fmt.Printf("  Nominations: %d\n\n", len(stats.Nominations))

	switch outcome.Winner {
	case state.WinnerGood:
		fmt.Println("Good team wins!")
	case state.WinnerEvil:
		fmt.Println("Evil team wins!")
	default:
		fmt.Println("Game ended in a draw: the round limit was reached.")
	}
}
