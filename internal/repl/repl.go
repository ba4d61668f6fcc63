// Package repl runs the operator-facing read/answer loop.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/library-assistant-poc/server/internal/agent/model"
	errx "github.com/library-assistant-poc/server/internal/core/error"
	logx "github.com/library-assistant-poc/server/pkg/logger"
)

const (
	Prompt          = "Enter your query related to library (type 'exit' to quit): "
	ExitCommand     = "exit"
	FarewellMessage = "Exiting Library Assistant. Goodbye!"
)

// Asker runs one turn for the operator's text.
type Asker interface {
	Ask(ctx context.Context, query string) (*model.TurnResult, error)
}

type Loop struct {
	asker Asker
	in    io.Reader
	out   io.Writer
}

func New(asker Asker, in io.Reader, out io.Writer) *Loop {
	return &Loop{
		asker: asker,
		in:    in,
		out:   out,
	}
}

// IsExit reports whether line is the exit keyword, ignoring case and surrounding space.
func IsExit(line string) bool {
	return strings.EqualFold(strings.TrimSpace(line), ExitCommand)
}

type readResult struct {
	line string
	err  error
	eof  bool
}

// readLines scans l.in on its own goroutine so a pending read never blocks
// cancellation. It stops once done is closed.
func (l *Loop) readLines(done <-chan struct{}) <-chan readResult {
	lines := make(chan readResult)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(l.in)
		for {
			var r readResult
			if scanner.Scan() {
				r.line = scanner.Text()
			} else {
				r.err = scanner.Err()
				r.eof = r.err == nil
			}
			select {
			case lines <- r:
			case <-done:
				return
			}
			if r.err != nil || r.eof {
				return
			}
		}
	}()
	return lines
}

// Run reads lines until exit, EOF or ctx cancellation. Turn failures are
// reported to the operator and the loop keeps going.
func (l *Loop) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)
	lines := l.readLines(done)

	for {
		fmt.Fprint(l.out, Prompt)

		var r readResult
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r = <-lines:
		}

		if r.err != nil {
			return fmt.Errorf("read input: %w", r.err)
		}
		if r.eof {
			fmt.Fprintln(l.out)
			fmt.Fprintln(l.out, FarewellMessage)
			return nil
		}
		if IsExit(r.line) {
			fmt.Fprintln(l.out, FarewellMessage)
			return nil
		}
		if strings.TrimSpace(r.line) == "" {
			continue
		}

		result, err := l.asker.Ask(ctx, r.line)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logx.Error().Err(err).Int("status", errx.StatusOf(err)).Msg("Turn failed")
			fmt.Fprintf(l.out, "Error: %s\n", errx.SafeMessage(err))
			continue
		}
		fmt.Fprintln(l.out, result.Output)
	}
}
