package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/library-assistant-poc/server/internal/agent/model"
	"github.com/library-assistant-poc/server/internal/agent/repo"
	pkgredis "github.com/library-assistant-poc/server/pkg/redis"
)

// newTranscriptCmd groups the audit commands over recorded sessions.
func newTranscriptCmd(envFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcript",
		Short: "Inspect or clear recorded session transcripts",
	}

	withRepo := func(run func(ctx context.Context, r model.TranscriptRepository, sessionID string, out io.Writer) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if err := loadEnvFile(*envFile); err != nil {
				return err
			}
			var cfg pkgredis.Config
			if err := envconfig.Process("redis", &cfg); err != nil {
				return fmt.Errorf("process redis config: %w", err)
			}
			if cfg.URL == "" {
				return fmt.Errorf("REDIS_URL is not set")
			}

			rdb, err := cfg.New(cmd.Context())
			if err != nil {
				return fmt.Errorf("initialise redis client: %w", err)
			}
			defer rdb.Close()

			return run(cmd.Context(), repo.NewRedisTranscriptRepository(rdb, 0), args[0], cmd.OutOrStdout())
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show <session-id>",
			Short: "Print every recorded turn of a session",
			Args:  cobra.ExactArgs(1),
			RunE:  withRepo(showTranscript),
		},
		&cobra.Command{
			Use:   "clear <session-id>",
			Short: "Delete a session transcript",
			Args:  cobra.ExactArgs(1),
			RunE:  withRepo(clearTranscript),
		},
	)
	return cmd
}

func showTranscript(ctx context.Context, r model.TranscriptRepository, sessionID string, out io.Writer) error {
	turns, err := r.LoadTurns(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(turns) == 0 {
		fmt.Fprintf(out, "No turns recorded for session %s\n", sessionID)
		return nil
	}

	for i, t := range turns {
		fmt.Fprintf(out, "#%d %s\n", i+1, t.TurnID)
		fmt.Fprintf(out, "  query:  %s\n", t.Query)
		fmt.Fprintf(out, "  output: %s\n", t.Output)
		if t.Refused {
			fmt.Fprintf(out, "  refused: %s\n", t.Verdict.Reasoning)
		}
		if len(t.ToolCalls) > 0 {
			fmt.Fprintf(out, "  tools:  %s\n", strings.Join(t.ToolCalls, ", "))
		}
		fmt.Fprintf(out, "  cost:   $%.6f\n", t.CostUSD)
	}
	return nil
}

func clearTranscript(ctx context.Context, r model.TranscriptRepository, sessionID string, out io.Writer) error {
	n, err := r.CountTurns(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := r.ClearTurns(ctx, sessionID); err != nil {
		return err
	}
	fmt.Fprintf(out, "Cleared %d turns from session %s\n", n, sessionID)
	return nil
}
