// Package openai provides a model.Client implementation backed by the OpenAI
// Chat Completions API. It translates model.Request values into
// openai.ChatCompletionNewParams calls using github.com/openai/openai-go and
// maps streamed/non-streamed responses back into the generic model structures
// shared by every provider adapter.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/openai/openai-go/shared"

	"github.com/moltis-ai/moltis/internal/llm/model"
	"github.com/moltis-ai/moltis/internal/tools"
)

type (
	// ChatCompletionsClient captures the subset of the OpenAI SDK used by the
	// adapter. It is satisfied by *sdk.ChatCompletionService so callers can pass
	// either a real client or a mock in tests.
	ChatCompletionsClient interface {
		New(ctx context.Context, body sdk.ChatCompletionNewParams, opts ...option.RequestOption) (*sdk.ChatCompletion, error)
		NewStreaming(ctx context.Context, body sdk.ChatCompletionNewParams, opts ...option.RequestOption) *ssestream.Stream[sdk.ChatCompletionChunk]
	}

	// Options configures optional OpenAI adapter behavior.
	Options struct {
		// DefaultModel is used when model.Request.Model is empty.
		DefaultModel string
		// HighModel is used when model.Request.ModelClass is ModelClassHighReasoning.
		HighModel string
		// SmallModel is used when model.Request.ModelClass is ModelClassSmall.
		SmallModel string
		// MaxTokens sets the default completion cap when a request omits MaxTokens.
		MaxTokens int
		// Temperature is used when a request does not specify Temperature.
		Temperature float64
	}

	// Client implements model.Client on top of the OpenAI Chat Completions API.
	Client struct {
		chat         ChatCompletionsClient
		defaultModel string
		highModel    string
		smallModel   string
		maxTok       int
		temp         float64
	}
)

// New builds an OpenAI-backed model client from the provided chat completions
// client and configuration options.
func New(chat ChatCompletionsClient, opts Options) (*Client, error) {
	if chat == nil {
		return nil, errors.New("openai client is required")
	}
	if strings.TrimSpace(opts.DefaultModel) == "" {
		return nil, errors.New("default model identifier is required")
	}
	return &Client{
		chat:         chat,
		defaultModel: opts.DefaultModel,
		highModel:    opts.HighModel,
		smallModel:   opts.SmallModel,
		maxTok:       opts.MaxTokens,
		temp:         opts.Temperature,
	}, nil
}

// NewFromAPIKey constructs a client using the default OpenAI HTTP client and
// the given API key. An empty or blank apiKey is rejected with an error.
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("api key is required")
	}
	c := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&c.Chat.Completions, Options{DefaultModel: defaultModel})
}

// Complete issues a non-streaming chat completion request and translates the
// response into provider-agnostic structures (assistant messages + tool calls).
func (c *Client) Complete(ctx context.Context, req *model.Request) (*model.Response, error) {
	params, canonToProv, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	resp, err := c.chat.New(ctx, *params)
	if err != nil {
		if isRateLimited(err) {
			return nil, fmt.Errorf("%w: %w", model.ErrRateLimited, err)
		}
		return nil, fmt.Errorf("openai chat.completions.new: %w", err)
	}
	return translateResponse(resp, canonToProv)
}

// Stream issues a streaming chat completion request and adapts incremental
// chunks into model.Chunk values.
func (c *Client) Stream(ctx context.Context, req *model.Request) (model.Streamer, error) {
	params, canonToProv, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	stream := c.chat.NewStreaming(ctx, *params)
	if err := stream.Err(); err != nil {
		if isRateLimited(err) {
			return nil, fmt.Errorf("%w: %w", model.ErrRateLimited, err)
		}
		return nil, fmt.Errorf("openai chat.completions.new stream: %w", err)
	}
	return newOpenAIStreamer(ctx, stream, canonToProv), nil
}

func (c *Client) prepareRequest(req *model.Request) (*sdk.ChatCompletionNewParams, map[string]string, error) {
	if len(req.Messages) == 0 {
		return nil, nil, errors.New("openai: messages are required")
	}
	modelID := c.resolveModelID(req)
	if modelID == "" {
		return nil, nil, errors.New("openai: model identifier is required")
	}
	toolParams, canonToProv, provToCanon, err := encodeTools(req.Tools)
	if err != nil {
		return nil, nil, err
	}
	messages, err := encodeMessages(req.Messages, canonToProv)
	if err != nil {
		return nil, nil, err
	}
	params := sdk.ChatCompletionNewParams{
		Model:    shared.ChatModel(modelID),
		Messages: messages,
	}
	if maxTokens := c.effectiveMaxTokens(req.MaxTokens); maxTokens > 0 {
		params.MaxCompletionTokens = sdk.Int(int64(maxTokens))
	}
	if t := c.effectiveTemperature(req.Temperature); t > 0 {
		params.Temperature = sdk.Float(t)
	}
	if len(toolParams) > 0 {
		params.Tools = toolParams
	}
	if req.ToolChoice != nil {
		tc, err := encodeToolChoice(req.ToolChoice)
		if err != nil {
			return nil, nil, err
		}
		params.ToolChoice = tc
	}
	return &params, provToCanon, nil
}

func (c *Client) resolveModelID(req *model.Request) string {
	if s := req.Model; s != "" {
		return s
	}
	switch string(req.ModelClass) {
	case string(model.ModelClassHighReasoning):
		if c.highModel != "" {
			return c.highModel
		}
	case string(model.ModelClassSmall):
		if c.smallModel != "" {
			return c.smallModel
		}
	}
	return c.defaultModel
}

func (c *Client) effectiveMaxTokens(requested int) int {
	if requested > 0 {
		return requested
	}
	return c.maxTok
}

func (c *Client) effectiveTemperature(requested float32) float64 {
	if requested > 0 {
		return float64(requested)
	}
	return c.temp
}

// encodeMessages maps model.Message values (including tool_use / tool_result
// parts produced by a prior turn) into OpenAI chat message params. A tool_use
// name found in canonToProv (built by encodeTools) is sent as its sanitized
// function name; a name absent from the map is sent unchanged.
func encodeMessages(msgs []*model.Message, canonToProv map[string]string) ([]sdk.ChatCompletionMessageParamUnion, error) {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		switch m.Role { //nolint:exhaustive
		case model.ConversationRoleSystem:
			if text := partsText(m.Parts); text != "" {
				out = append(out, sdk.SystemMessage(text))
			}
		case model.ConversationRoleUser:
			if text := partsText(m.Parts); text != "" {
				out = append(out, sdk.UserMessage(text))
			}
			for _, p := range m.Parts {
				if tr, ok := p.(model.ToolResultPart); ok {
					out = append(out, sdk.ToolMessage(stringifyToolResult(tr.Content), tr.ToolUseID))
				}
			}
		case model.ConversationRoleAssistant:
			var calls []sdk.ChatCompletionMessageToolCallParam
			text := partsText(m.Parts)
			for _, p := range m.Parts {
				tu, ok := p.(model.ToolUsePart)
				if !ok {
					continue
				}
				name := tu.Name
				if sanitized, ok := canonToProv[name]; ok && sanitized != "" {
					name = sanitized
				}
				args, err := json.Marshal(tu.Input)
				if err != nil {
					return nil, fmt.Errorf("openai: marshal tool_use %q arguments: %w", tu.Name, err)
				}
				calls = append(calls, sdk.ChatCompletionMessageToolCallParam{
					ID: tu.ID,
					Function: sdk.ChatCompletionMessageToolCallFunctionParam{
						Name:      name,
						Arguments: string(args),
					},
				})
			}
			msg := sdk.ChatCompletionAssistantMessageParam{}
			if text != "" {
				msg.Content.OfString = sdk.String(text)
			}
			if len(calls) > 0 {
				msg.ToolCalls = calls
			}
			out = append(out, sdk.ChatCompletionMessageParamUnion{OfAssistant: &msg})
		default:
			return nil, fmt.Errorf("openai: unsupported message role %q", m.Role)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("openai: at least one message is required")
	}
	return out, nil
}

func partsText(parts []model.Part) string {
	var b strings.Builder
	for _, p := range parts {
		if t, ok := p.(model.TextPart); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

func stringifyToolResult(content any) string {
	switch v := content.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

func encodeTools(defs []*model.ToolDefinition) ([]sdk.ChatCompletionToolParam, map[string]string, map[string]string, error) {
	if len(defs) == 0 {
		return nil, nil, nil, nil
	}
	out := make([]sdk.ChatCompletionToolParam, 0, len(defs))
	canonToProv := make(map[string]string, len(defs))
	provToCanon := make(map[string]string, len(defs))
	for _, def := range defs {
		if def == nil || def.Name == "" {
			continue
		}
		sanitized := sanitizeToolName(def.Name)
		if prev, ok := provToCanon[sanitized]; ok && prev != def.Name {
			return nil, nil, nil, fmt.Errorf("openai: tool name %q sanitizes to %q which collides with %q", def.Name, sanitized, prev)
		}
		provToCanon[sanitized] = def.Name
		canonToProv[def.Name] = sanitized
		var params map[string]any
		if def.InputSchema != nil {
			raw, err := json.Marshal(def.InputSchema)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("openai: marshal tool %q schema: %w", def.Name, err)
			}
			if err := json.Unmarshal(raw, &params); err != nil {
				return nil, nil, nil, fmt.Errorf("openai: tool %q schema must be a JSON object: %w", def.Name, err)
			}
		}
		out = append(out, sdk.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        sanitized,
				Description: sdk.String(def.Description),
				Parameters:  params,
			},
		})
	}
	return out, canonToProv, provToCanon, nil
}

func encodeToolChoice(choice *model.ToolChoice) (sdk.ChatCompletionToolChoiceOptionUnionParam, error) {
	switch choice.Mode {
	case "", model.ToolChoiceModeAuto:
		return sdk.ChatCompletionToolChoiceOptionUnionParam{OfAuto: sdk.String("auto")}, nil
	case model.ToolChoiceModeNone:
		return sdk.ChatCompletionToolChoiceOptionUnionParam{OfAuto: sdk.String("none")}, nil
	case model.ToolChoiceModeAny:
		return sdk.ChatCompletionToolChoiceOptionUnionParam{OfAuto: sdk.String("required")}, nil
	case model.ToolChoiceModeTool:
		if choice.Name == "" {
			return sdk.ChatCompletionToolChoiceOptionUnionParam{}, fmt.Errorf("openai: tool choice mode %q requires a tool name", choice.Mode)
		}
		return sdk.ChatCompletionToolChoiceOptionUnionParam{
			OfChatCompletionNamedToolChoice: &sdk.ChatCompletionNamedToolChoiceParam{
				Function: sdk.ChatCompletionNamedToolChoiceFunctionParam{Name: sanitizeToolName(choice.Name)},
			},
		}, nil
	default:
		return sdk.ChatCompletionToolChoiceOptionUnionParam{}, fmt.Errorf("openai: unsupported tool choice mode %q", choice.Mode)
	}
}

// sanitizeToolName maps a canonical "toolset.tool" identifier to the
// characters OpenAI function names allow ([a-zA-Z0-9_-], max 64).
func sanitizeToolName(in string) string {
	base := in
	if idx := strings.LastIndex(in, "."); idx >= 0 && idx+1 < len(in) {
		base = in[idx+1:]
	}
	out := make([]rune, 0, len(base))
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) > 64 {
		out = out[:64]
	}
	return string(out)
}

// canonicalToolPayload normalizes OpenAI's tool call argument string into the
// canonical json.RawMessage payload shape shared across provider adapters.
func canonicalToolPayload(args string) json.RawMessage {
	trimmed := strings.TrimSpace(args)
	if trimmed == "" {
		trimmed = "{}"
	}
	return json.RawMessage(trimmed)
}

func isRateLimited(err error) bool {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

func translateResponse(resp *sdk.ChatCompletion, provToCanon map[string]string) (*model.Response, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, errors.New("openai: response has no choices")
	}
	out := &model.Response{}
	choice := resp.Choices[0]
	if text := choice.Message.Content; text != "" {
		out.Content = append(out.Content, model.Message{
			Role:  model.ConversationRoleAssistant,
			Parts: []model.Part{model.TextPart{Text: text}},
		})
	}
	for _, call := range choice.Message.ToolCalls {
		name := call.Function.Name
		if canonical, ok := provToCanon[name]; ok {
			name = canonical
		}
		out.ToolCalls = append(out.ToolCalls, model.ToolCall{
			Name:    tools.Ident(name),
			Payload: canonicalToolPayload(call.Function.Arguments),
			ID:      call.ID,
		})
	}
	out.Usage = model.TokenUsage{
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:  int(resp.Usage.TotalTokens),
	}
	out.StopReason = string(choice.FinishReason)
	return out, nil
}
