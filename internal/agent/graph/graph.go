package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"

	"github.com/library-assistant-poc/server/internal/agent/graph/guardrail"
	"github.com/library-assistant-poc/server/internal/agent/graph/nodes"
	"github.com/library-assistant-poc/server/internal/agent/graph/observers"
	"github.com/library-assistant-poc/server/internal/agent/graph/tools"
	"github.com/library-assistant-poc/server/internal/agent/model"
	errx "github.com/library-assistant-poc/server/internal/core/error"
	logx "github.com/library-assistant-poc/server/pkg/logger"
)

// Runner executes one turn of the compiled graph.
type Runner interface {
	Invoke(ctx context.Context, in model.QueryInput) (*model.TurnResult, error)
}

// Config holds everything needed to compose the full turn graph end-to-end.
// This is a convenience layer over GraphConfig that also constructs the chat
// models and the guardrail classifier.
type Config struct {
	Provider       model.ProviderConfig
	AgentModel     model.AgentModelConfig
	GuardrailModel model.GuardrailModelConfig
	Conversation   model.ConversationConfig
}

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	ChatModels   *nodes.ChatModels
	Classifier   nodes.VerdictClassifier
	ToolMaxCalls int
}

// GraphBuilder handles the construction of the agent conversation graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.QueryInput, *model.TurnResult]
}

type graphRunner struct {
	runnable compose.Runnable[model.QueryInput, *model.TurnResult]
}

// NewRunner wraps a compiled graph.
func NewRunner(runnable compose.Runnable[model.QueryInput, *model.TurnResult]) Runner {
	return &graphRunner{runnable: runnable}
}

func (r *graphRunner) Invoke(ctx context.Context, in model.QueryInput) (*model.TurnResult, error) {
	if strings.TrimSpace(in.TurnID) == "" {
		in.TurnID = uuid.NewString()
	}
	// identity tools read the session user from here
	ctx = model.WithUser(ctx, in.User)

	out, err := r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		logx.Error().Err(err).Str("turn_id", in.TurnID).Msg("Turn failed")
		return nil, errx.WrapModel(err)
	}
	if out == nil {
		return nil, errx.Internal(fmt.Errorf("turn %s produced no result", in.TurnID))
	}

	logx.Debug().
		Str("turn_id", out.TurnID).
		Bool("refused", out.Refused).
		Strs("tool_calls", out.ToolCalls).
		Float64("cost_usd", out.CostUSD).
		Msg("Turn finished")
	return out, nil
}

// BuildTurnGraph creates chat models and the classifier, builds the graph, and returns a Runner.
func BuildTurnGraph(ctx context.Context, cfg Config) (Runner, error) {
	cms, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		Provider:        cfg.Provider,
		AgentConfig:     &cfg.AgentModel,
		GuardrailConfig: &cfg.GuardrailModel,
	})
	if err != nil {
		return nil, err
	}

	classifier, err := guardrail.NewClassifier(ctx, cms.Guardrail)
	if err != nil {
		return nil, err
	}

	runnable, err := BuildGraph(ctx, &GraphConfig{
		ChatModels:   cms,
		Classifier:   classifier,
		ToolMaxCalls: cfg.Conversation.Tools.MaxCalls,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Turn graph built successfully")
	return NewRunner(runnable), nil
}

// BuildGraph constructs and returns the compiled agent graph
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.QueryInput, *model.TurnResult], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.ChatModels == nil || config.ChatModels.Agent == nil {
		return nil, fmt.Errorf("chat models are not properly initialized")
	}
	if config.Classifier == nil {
		return nil, fmt.Errorf("guardrail classifier is nil")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.QueryInput, *model.TurnResult](
			compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
				return &model.AppState{}
			}),
		),
	}

	if err := builder.setupTools(ctx); err != nil {
		return nil, err
	}

	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// setupTools binds the library tools to the agent model and adds the executor node
func (b *GraphBuilder) setupTools(ctx context.Context) error {
	libraryTools := tools.GetLibraryTools()
	toolInfos, err := tools.GetToolInfos(ctx, libraryTools)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to get tool infos")
		return fmt.Errorf("failed to get tool infos: %w", err)
	}

	if err := b.config.ChatModels.BindToolsToAgentModel(ctx, toolInfos); err != nil {
		logx.Error().Err(err).Msg("Failed to bind tools to agent model")
		return fmt.Errorf("failed to bind tools to agent model: %w", err)
	}

	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:                libraryTools,
		ExecuteSequentially:  true,
		UnknownToolsHandler:  tools.UnknownTool,
		ToolArgumentsHandler: tools.SanitizeArguments,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Failed to create tools node")
		return fmt.Errorf("failed to create tools node: %w", err)
	}

	if err := b.graph.AddToolsNode(nodes.NodeToolExecutor, toolsNode,
		compose.WithStatePreHandler(nodes.NewToolExecutorPreHandler(b.config.ToolMaxCalls)),
	); err != nil {
		return fmt.Errorf("add tools node: %w", err)
	}

	return nil
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() error {
	steps := []func() error{
		func() error {
			return b.graph.AddLambdaNode(nodes.NodeGuardrail,
				nodes.NewGuardrailNode(b.config.Classifier),
				compose.WithStatePreHandler(nodes.NewGuardrailPreHandler()),
				compose.WithStatePostHandler(nodes.NewGuardrailPostHandler()),
			)
		},
		func() error {
			return b.graph.AddLambdaNode(nodes.NodeRefusal, nodes.NewRefusalNode())
		},
		func() error {
			return b.graph.AddLambdaNode(nodes.NodeInstructionAssembler, nodes.NewInstructionAssemblerNode())
		},
		func() error {
			return b.graph.AddChatModelNode(nodes.NodeAgentChatModel,
				b.config.ChatModels.Agent,
				compose.WithStatePreHandler(nodes.NewAgentChatModelPreHandler(b.config.ToolMaxCalls)),
				compose.WithStatePostHandler(nodes.NewAgentChatModelPostHandler(b.config.ChatModels.AgentModelName)),
			)
		},
		func() error {
			return b.graph.AddLambdaNode(nodes.NodeFinalizer, nodes.NewFinalizerNode())
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			logx.Error().Err(err).Msg("Error adding node")
			return fmt.Errorf("error adding node: %w", err)
		}
	}
	return nil
}

// addEdges creates the main flow connections between nodes
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeGuardrail},
		{nodes.NodeRefusal, nodes.NodeFinalizer},
		{nodes.NodeInstructionAssembler, nodes.NodeAgentChatModel},
		{nodes.NodeToolExecutor, nodes.NodeAgentChatModel},
		{nodes.NodeFinalizer, compose.END},
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			logx.Error().Err(err).Str("from", edge[0]).Str("to", edge[1]).Msg("Error adding edge")
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates conditional routing branches
func (b *GraphBuilder) addBranches() error {
	tripwireBranch := compose.NewGraphBranch(
		nodes.NewTripwireCondition(),
		map[string]bool{
			nodes.NodeRefusal:              true,
			nodes.NodeInstructionAssembler: true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeGuardrail, tripwireBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding tripwire branch")
		return fmt.Errorf("error adding tripwire branch: %w", err)
	}

	decisionBranch := compose.NewGraphBranch(
		nodes.NewToolExecutorCondition(),
		map[string]bool{
			nodes.NodeToolExecutor: true,
			nodes.NodeFinalizer:    true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeAgentChatModel, decisionBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding decision branch")
		return fmt.Errorf("error adding decision branch: %w", err)
	}

	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.QueryInput, *model.TurnResult], error) {
	// Limit total run steps to avoid infinite loops in branching or tool retries
	maxSteps := 10 + maxToolCalls(b.config.ToolMaxCalls)*2
	if maxSteps < 20 {
		maxSteps = 20
	}

	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxSteps))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}

func maxToolCalls(n int) int {
	if n <= 0 {
		return nodes.DefaultMaxToolCalls
	}
	return n
}
