package agent

import (
	"github.com/moltis-ai/moltis/internal/llm/model"
	"github.com/moltis-ai/moltis/internal/toolregistry"
)

// ToolMode selects how tool calls are surfaced to and parsed from the
// provider for a run. The real model.Client has no capability-introspection
// method, so callers decide the mode per provider/model at the call site
// (typically from static provider configuration) and set it on RunContext.
type ToolMode string

const (
	// ToolModeNative passes tools as structured schemas and expects
	// structured tool-call chunks in the stream.
	ToolModeNative ToolMode = "native"

	// ToolModePrompt renders a textual tool catalog into the system prompt
	// and parses fenced tool_call blocks out of accumulated assistant text.
	ToolModePrompt ToolMode = "prompt"
)

// DefaultMaxIterations is the iteration cap applied when RunContext does not
// override it.
const DefaultMaxIterations = 20

// RunContext carries everything one turn needs: the conversation so far, the
// new user input, and provider/runtime configuration. History excludes the
// trailing user message; the loop adds it when building the first request.
type RunContext struct {
	RunID      string
	SessionKey string

	// SystemPrompt is the fully composed system prompt (base + project +
	// session context). In prompt-driven mode the loop appends the tool
	// catalog to it; callers should not pre-render the catalog themselves.
	SystemPrompt string

	History []*model.Message
	UserText string

	Client   model.Client
	ToolMode ToolMode
	Tools    *toolregistry.Registry

	Model       string
	ModelClass  model.ModelClass
	Temperature float32
	Thinking    *model.ThinkingOptions

	// MaxIterations overrides DefaultMaxIterations when non-zero.
	MaxIterations int
}

func (rc RunContext) maxIterations() int {
	if rc.MaxIterations > 0 {
		return rc.MaxIterations
	}
	return DefaultMaxIterations
}

// RunResult is returned once a turn reaches a terminal textual response.
type RunResult struct {
	Text          string
	Iterations    int
	ToolCallsMade int
	Usage         model.TokenUsage
}
