package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"agentgm/internal/agents"
	"agentgm/internal/completion"
	"agentgm/internal/config"
	"agentgm/internal/embedding"
	"agentgm/internal/game"
	"agentgm/internal/logging"
	"agentgm/internal/memory"
	"agentgm/internal/world"
)

var (
	configPath string
	debug      bool
	playerID   string
)

var rootCmd = &cobra.Command{
	Use:   "gm",
	Short: "agentgm - LLM game master for persistent text worlds",
	Long: `agentgm runs a multi-agent game master over a persistent SQLite world.

A router classifies each player input, a specialized capability (NPC,
creation, economy, combat) proposes world changes, and every change is
validated against the world invariants before being committed atomically
alongside the turn's clock advance.

Run without arguments to start an interactive game.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if debug {
			cfg.Logging.Debug = true
		}
		if err := logging.Initialize(cfg.Logging); err != nil {
			return fmt.Errorf("initialize logging: %w", err)
		}
		loaded = cfg
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlay(cmd.Context())
	},
}

var loaded *config.Config

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start an interactive game session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlay(cmd.Context())
	},
}

var turnCmd = &cobra.Command{
	Use:   "turn [input]",
	Short: "Process a single player input and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, store, err := buildOrchestrator(loaded)
		if err != nil {
			return err
		}
		defer store.Close()

		sess := orch.Sessions().Open(playerID)
		defer orch.Sessions().Close(sess.ID)

		res, err := orch.Turn(cmd.Context(), sess, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Println(res.Narration)
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a starter world in the configured database",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := world.NewSQLiteStore(loaded.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		return seedWorld(cmd.Context(), store, newClient(loaded))
	},
}

func buildOrchestrator(cfg *config.Config) (*game.Orchestrator, world.Store, error) {
	store, err := world.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open world store: %w", err)
	}

	client := newClient(cfg)

	var recall *memory.RecallIndex
	if engine, err := embedding.NewEngine(cfg.Embedding); err != nil {
		logging.Session("semantic recall disabled: %v", err)
	} else {
		recall = memory.NewRecallIndex(engine, cfg.Memory.RecallThreshold, cfg.Memory.RecallTopK)
	}

	mem := memory.NewManager(store, memory.NewCompactor(client), recall, cfg.Memory)
	orch := game.NewOrchestrator(game.Deps{
		Store:      store,
		Memory:     mem,
		Classifier: game.NewClassifier(client),
		NPCAgent:   agents.NewNPCAgent(client),
		Creation:   agents.NewCreationAgent(client),
		Economy:    agents.NewEconomyAgent(client),
		Combat:     agents.NewCombatAgent(client),
	})
	return orch, store, nil
}

// newClient builds the retry-wrapped provider from config.
func newClient(cfg *config.Config) completion.Client {
	var inner completion.Client
	switch cfg.Provider.Name {
	case "anthropic":
		ac := completion.DefaultAnthropicConfig(cfg.Provider.APIKey)
		if cfg.Provider.BaseURL != "" {
			ac.BaseURL = cfg.Provider.BaseURL
		}
		if cfg.Provider.Model != "" {
			ac.Model = cfg.Provider.Model
		}
		inner = completion.NewAnthropicClientWithConfig(ac)
	default:
		oc := completion.DefaultOpenAIConfig(cfg.Provider.APIKey)
		if cfg.Provider.BaseURL != "" {
			oc.BaseURL = cfg.Provider.BaseURL
		}
		if cfg.Provider.Model != "" {
			oc.Model = cfg.Provider.Model
		}
		inner = completion.NewOpenAIClientWithConfig(oc)
	}

	retry := completion.DefaultRetryConfig()
	if cfg.Provider.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.Provider.MaxAttempts
	}
	if cfg.Provider.BaseBackoff > 0 {
		retry.BaseBackoff = cfg.Provider.BaseBackoff
	}
	if cfg.Provider.CallTimeout > 0 {
		retry.CallTimeout = cfg.Provider.CallTimeout
	}
	return completion.NewRetryingClient(inner, retry)
}

func runPlay(ctx context.Context) error {
	orch, store, err := buildOrchestrator(loaded)
	if err != nil {
		return err
	}
	defer store.Close()

	if _, err := store.Player(playerID); err != nil {
		return fmt.Errorf("player %q not found, run `gm seed` first: %w", playerID, err)
	}

	sess := orch.Sessions().Open(playerID)
	defer orch.Sessions().Close(sess.ID)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("The world holds its breath. (help for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		res, err := orch.Turn(ctx, sess, input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println(res.Narration)
		if res.Quit {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "gm.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&playerID, "player", "p", "player_1", "player id")

	rootCmd.AddCommand(playCmd, turnCmd, seedCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
