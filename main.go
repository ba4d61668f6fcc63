package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/library-assistant-poc/server/internal/agent/graph"
	"github.com/library-assistant-poc/server/internal/agent/graph/conversations"
	"github.com/library-assistant-poc/server/internal/agent/model"
	"github.com/library-assistant-poc/server/internal/agent/repo"
	"github.com/library-assistant-poc/server/internal/core"
	"github.com/library-assistant-poc/server/internal/repl"
	logx "github.com/library-assistant-poc/server/pkg/logger"
	pkgredis "github.com/library-assistant-poc/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the assistant,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment core.Environment `envconfig:"ENVIRONMENT" default:"development"`

	// Infrastructure
	Redis pkgredis.Config

	// LLM provider
	Provider model.ProviderConfig

	// Agent configs
	AgentModel     model.AgentModelConfig
	GuardrailModel model.GuardrailModelConfig
	User           model.UserConfig
	Conversation   model.ConversationConfig
	Transcript     model.TranscriptConfig
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		envFile string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:           "library-assistant",
		Short:         "Interactive library assistant backed by a tool-calling language model",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, envFile, verbose)
		},
	}

	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "path of the dotenv file to load")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	cmd.AddCommand(newTranscriptCmd(&envFile))
	return cmd
}

func loadConfig(envFile string) (*AppConfig, error) {
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	// Load structured config from env
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile(envFile string) error {
	// a missing file is fine, the environment may already be set
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	return nil
}

func run(ctx context.Context, envFile string, verbose bool) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	logx.Init(logx.LoggerOpts{
		Environment: cfg.Environment,
		Verbose:     verbose,
	})

	var transcript model.TranscriptRepository
	if cfg.Transcript.Enabled {
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			return fmt.Errorf("initialise redis client: %w", err)
		}
		defer rdb.Close()

		logx.Info().Msg("Connected to Redis successfully")
		transcript = repo.NewRedisTranscriptRepository(rdb, cfg.Transcript.TTL)
	}

	runner, err := graph.BuildTurnGraph(ctx, graph.Config{
		Provider:       cfg.Provider,
		AgentModel:     cfg.AgentModel,
		GuardrailModel: cfg.GuardrailModel,
		Conversation:   cfg.Conversation,
	})
	if err != nil {
		return fmt.Errorf("build graph: %w", err)
	}

	session := conversations.NewSessionManager(runner, transcript, cfg.User.Identity())
	if transcript != nil {
		fmt.Fprintf(os.Stderr, "Recording transcript for session %s\n", session.SessionID())
	}
	logx.Info().
		Str("session_id", session.SessionID()).
		Str("user", session.User().Name).
		Str("provider", cfg.Provider.Provider).
		Msg("Library assistant ready")

	err = repl.New(session, os.Stdin, os.Stdout).Run(ctx)
	if ctx.Err() != nil {
		// interrupted by signal
		fmt.Fprintln(os.Stdout)
		fmt.Fprintln(os.Stdout, repl.FarewellMessage)
		return nil
	}
	return err
}
