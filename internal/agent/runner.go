// Package agent drives one user turn through a model.Client, detecting and
// executing tool calls between iterations until the model produces a
// terminal textual response or the iteration cap is hit.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/moltis-ai/moltis/internal/llm/model"
	"github.com/moltis-ai/moltis/internal/telemetry"
	"github.com/moltis-ai/moltis/internal/toolregistry"
)

// truncateLimit bounds tool output delivered to transports. The untruncated
// result is always what gets fed back to the model.
const truncateLimit = 10 * 1024

// ErrMaxIterationsExceeded is returned when a run hits its iteration cap
// without the model producing a terminal textual response. No Final event is
// emitted; the caller reports the failure to the user same as any other
// provider error.
var ErrMaxIterationsExceeded = errors.New("agent: max iterations exceeded")

// Option configures a Runner at construction.
type Option func(*Runner)

// WithLogger overrides the runner's logger. Defaults to a no-op logger.
func WithLogger(log telemetry.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// Runner drives turns. It is stateless across calls to Run; all per-turn
// state lives in RunContext and locals.
type Runner struct {
	log telemetry.Logger
}

// NewRunner constructs a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{log: telemetry.NewNoopLogger()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run drives one turn to completion, streaming provider output and
// dispatching any tool calls through rc.Tools.
func (r *Runner) Run(ctx context.Context, rc RunContext, sink EventSink) (RunResult, error) {
	if sink == nil {
		sink = NopEventSink{}
	}

	messages := buildInitialMessages(rc)
	systemPrompt := rc.SystemPrompt
	if rc.ToolMode == ToolModePrompt && rc.Tools != nil {
		systemPrompt = appendCatalog(systemPrompt, rc.Tools)
	}

	var (
		totalUsage    model.TokenUsage
		toolCallsMade int
	)

	maxIter := rc.maxIterations()
	for n := 1; n <= maxIter; n++ {
		req := &model.Request{
			RunID:       rc.RunID,
			Model:       rc.Model,
			ModelClass:  rc.ModelClass,
			Messages:    withSystemPrompt(systemPrompt, messages),
			Temperature: rc.Temperature,
			Thinking:    rc.Thinking,
			Stream:      true,
		}
		if rc.ToolMode == ToolModeNative && rc.Tools != nil {
			req.Tools = rc.Tools.Definitions()
		}

		text, toolCalls, usage, err := r.streamTurn(ctx, rc, req, sink)
		totalUsage = sumUsage(totalUsage, usage)
		if err != nil {
			if ctx.Err() != nil {
				return RunResult{}, ctx.Err()
			}
			return RunResult{}, fmt.Errorf("agent: stream turn: %w", err)
		}

		if rc.ToolMode == ToolModePrompt {
			toolCalls = append(toolCalls, parsedCallsToToolCalls(toolregistry.ParseCalls(text))...)
		}

		if len(toolCalls) == 0 {
			sink.Emit(eventFinal(text, totalUsage))
			return RunResult{
				Text:          text,
				Iterations:    n,
				ToolCallsMade: toolCallsMade,
				Usage:         totalUsage,
			}, nil
		}

		assistantMsg, resultMsg := r.executeToolCalls(ctx, rc, text, toolCalls, sink)
		toolCallsMade += len(toolCalls)
		messages = append(messages, assistantMsg, resultMsg)
		sink.Emit(eventIteration(n + 1))
	}

	return RunResult{}, ErrMaxIterationsExceeded
}

func buildInitialMessages(rc RunContext) []*model.Message {
	messages := make([]*model.Message, 0, len(rc.History)+1)
	messages = append(messages, rc.History...)
	messages = append(messages, &model.Message{
		Role:  model.ConversationRoleUser,
		Parts: []model.Part{model.TextPart{Text: rc.UserText}},
	})
	return messages
}

func appendCatalog(systemPrompt string, reg *toolregistry.Registry) string {
	catalog := reg.RenderCatalog()
	if systemPrompt == "" {
		return catalog
	}
	return systemPrompt + "\n\n" + catalog
}

func withSystemPrompt(systemPrompt string, messages []*model.Message) []*model.Message {
	if systemPrompt == "" {
		return messages
	}
	out := make([]*model.Message, 0, len(messages)+1)
	out = append(out, &model.Message{
		Role:  model.ConversationRoleSystem,
		Parts: []model.Part{model.TextPart{Text: systemPrompt}},
	})
	out = append(out, messages...)
	return out
}

// streamTurn drains a single provider stream, accumulating text and native
// tool calls and emitting Thinking/ThinkingText/TextDelta events as chunks
// arrive.
func (r *Runner) streamTurn(ctx context.Context, rc RunContext, req *model.Request, sink EventSink) (string, []model.ToolCall, model.TokenUsage, error) {
	stream, err := rc.Client.Stream(ctx, req)
	if err != nil {
		return "", nil, model.TokenUsage{}, err
	}
	defer func() { _ = stream.Close() }()

	var (
		text      string
		toolCalls []model.ToolCall
		usage     model.TokenUsage
		thinking  bool
	)

	for {
		if ctx.Err() != nil {
			return "", nil, usage, ctx.Err()
		}

		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, usage, err
		}

		switch chunk.Type {
		case model.ChunkTypeText:
			delta := textFromMessage(chunk.Message)
			if thinking {
				sink.Emit(eventThinkingDone())
				thinking = false
			}
			if delta != "" {
				text += delta
				sink.Emit(eventTextDelta(delta))
			}
		case model.ChunkTypeThinking:
			if !thinking {
				sink.Emit(eventThinking())
				thinking = true
			}
			if chunk.Thinking != "" {
				sink.Emit(eventThinkingText(chunk.Thinking))
			}
		case model.ChunkTypeToolCall:
			if chunk.ToolCall != nil {
				toolCalls = append(toolCalls, *chunk.ToolCall)
			}
		case model.ChunkTypeUsage:
			if chunk.UsageDelta != nil {
				usage = sumUsage(usage, *chunk.UsageDelta)
			}
		case model.ChunkTypeStop:
			// No additional state to capture; loop exits on next Recv (EOF).
		}
	}

	if thinking {
		sink.Emit(eventThinkingDone())
	}

	return text, toolCalls, usage, nil
}

func textFromMessage(msg *model.Message) string {
	if msg == nil {
		return ""
	}
	var out string
	for _, p := range msg.Parts {
		if tp, ok := p.(model.TextPart); ok {
			out += tp.Text
		}
	}
	return out
}

func sumUsage(a, b model.TokenUsage) model.TokenUsage {
	return model.TokenUsage{
		InputTokens:      a.InputTokens + b.InputTokens,
		OutputTokens:     a.OutputTokens + b.OutputTokens,
		TotalTokens:      a.TotalTokens + b.TotalTokens,
		CacheReadTokens:  a.CacheReadTokens + b.CacheReadTokens,
		CacheWriteTokens: a.CacheWriteTokens + b.CacheWriteTokens,
	}
}

func parsedCallsToToolCalls(parsed []toolregistry.ParsedCall) []model.ToolCall {
	out := make([]model.ToolCall, 0, len(parsed))
	for i, p := range parsed {
		out = append(out, model.ToolCall{
			Name:    p.Name,
			Payload: p.Arguments,
			ID:      fmt.Sprintf("prompt-%d", i),
		})
	}
	return out
}

// executeToolCalls runs every call via rc.Tools, emitting ToolCallStart/End
// for each, and builds the assistant + tool-result messages appended to the
// rolling transcript for the next iteration.
func (r *Runner) executeToolCalls(ctx context.Context, rc RunContext, assistantText string, calls []model.ToolCall, sink EventSink) (*model.Message, *model.Message) {
	assistantParts := make([]model.Part, 0, len(calls)+1)
	if assistantText != "" {
		assistantParts = append(assistantParts, model.TextPart{Text: assistantText})
	}
	resultParts := make([]model.Part, 0, len(calls))

	for _, call := range calls {
		id := call.ID
		if id == "" {
			id = uuid.NewString()
		}
		sink.Emit(eventToolCallStart(id, string(call.Name), call.Payload))

		assistantParts = append(assistantParts, model.ToolUsePart{
			ID:    id,
			Name:  string(call.Name),
			Input: rawToAny(call.Payload),
		})

		result, err := rc.Tools.Execute(ctx, call.Name, call.Payload)
		truncated, _ := truncateJSON(result, truncateLimit)

		sink.Emit(eventToolCallEnd(id, string(call.Name), truncated, err))

		resultPart := model.ToolResultPart{ToolUseID: id}
		if err != nil {
			resultPart.IsError = true
			resultPart.Content = err.Error()
		} else {
			resultPart.Content = rawToAny(result)
		}
		resultParts = append(resultParts, resultPart)
	}

	assistantMsg := &model.Message{Role: model.ConversationRoleAssistant, Parts: assistantParts}
	resultMsg := &model.Message{Role: model.ConversationRoleUser, Parts: resultParts}
	return assistantMsg, resultMsg
}

func rawToAny(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

// truncateJSON caps raw to limit bytes, appending a marker that records the
// untruncated size. The returned value is for transport delivery only; the
// full raw result is what callers feed back to the model.
func truncateJSON(raw json.RawMessage, limit int) (json.RawMessage, bool) {
	if len(raw) <= limit {
		return raw, false
	}
	marker := fmt.Sprintf("[truncated — %d bytes total]", len(raw))
	out, _ := json.Marshal(string(raw[:limit]) + marker)
	return out, true
}
