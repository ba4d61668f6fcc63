package repl

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/library-assistant-poc/server/internal/agent/model"
	errx "github.com/library-assistant-poc/server/internal/core/error"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeAsker struct {
	queries []string
	answers map[string]string
	err     error
}

func (f *fakeAsker) Ask(_ context.Context, query string) (*model.TurnResult, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return &model.TurnResult{Query: query, Output: f.answers[query]}, nil
}

func run(t *testing.T, asker Asker, input string) string {
	t.Helper()
	var out bytes.Buffer
	err := New(asker, strings.NewReader(input), &out).Run(context.Background())
	require.NoError(t, err)
	return out.String()
}

func TestExitVariants(t *testing.T) {
	for _, in := range []string{"exit", "Exit", "  EXIT ", "eXiT\t"} {
		t.Run(in, func(t *testing.T) {
			asker := &fakeAsker{}
			out := run(t, asker, in+"\nDo you have Python Programming?\n")

			assert.Equal(t, Prompt+FarewellMessage+"\n", out)
			assert.Empty(t, asker.queries)
		})
	}
}

func TestIsExit(t *testing.T) {
	assert.True(t, IsExit(" exit "))
	assert.False(t, IsExit("exit now"))
	assert.False(t, IsExit("quit"))
}

func TestPrintsTurnOutput(t *testing.T) {
	asker := &fakeAsker{answers: map[string]string{
		"Do you have Python Programming?": "Yes, 5 copies.",
		"What's the weather today?":       "Tayyab I am only library assistant I can't talk about any other topic.",
	}}
	out := run(t, asker, "Do you have Python Programming?\nWhat's the weather today?\nexit\n")

	assert.Equal(t, []string{"Do you have Python Programming?", "What's the weather today?"}, asker.queries)
	assert.Contains(t, out, "Yes, 5 copies.\n")
	assert.Contains(t, out, "Tayyab I am only library assistant I can't talk about any other topic.\n")
	assert.Equal(t, 3, strings.Count(out, Prompt))
	assert.True(t, strings.HasSuffix(out, FarewellMessage+"\n"))
}

func TestSkipsBlankLines(t *testing.T) {
	asker := &fakeAsker{}
	run(t, asker, "\n   \nexit\n")
	assert.Empty(t, asker.queries)
}

func TestEOFEndsLoop(t *testing.T) {
	asker := &fakeAsker{answers: map[string]string{"hi": "Hello Tayyab, How can I assist you today?"}}
	out := run(t, asker, "hi")

	assert.Equal(t, []string{"hi"}, asker.queries)
	assert.True(t, strings.HasSuffix(out, FarewellMessage+"\n"))
}

func TestTurnErrorKeepsLooping(t *testing.T) {
	asker := &fakeAsker{err: errx.WrapModel(errors.New("connection refused"))}
	out := run(t, asker, "first\nsecond\nexit\n")

	assert.Len(t, asker.queries, 2)
	assert.Equal(t, 2, strings.Count(out, "Error: "+errx.ModelErrorMessage))
	assert.NotContains(t, out, "connection refused")
}

func TestCancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := New(&fakeAsker{}, strings.NewReader("hi\n"), &out).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.String())
}
