package toolregistry

import (
	"encoding/json"
	"strings"

	"github.com/moltis-ai/moltis/internal/tools"
)

// ParsedCall is a tool invocation recovered from accumulated assistant text
// in prompt-driven mode.
type ParsedCall struct {
	Name      tools.Ident
	Arguments json.RawMessage
}

type fencedCallPayload struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

const fence = "```tool_call"
const fenceEnd = "```"

// ParseCalls scans text for ```tool_call fenced blocks and decodes each into
// a ParsedCall. Blocks that fail to decode as the expected {"name",
// "arguments"} shape are skipped rather than surfaced as an error, since a
// model's malformed attempt should not abort the turn; the caller may choose
// to report the raw text back to the model instead.
func ParseCalls(text string) []ParsedCall {
	var calls []ParsedCall
	rest := text
	for {
		start := strings.Index(rest, fence)
		if start == -1 {
			break
		}
		body := rest[start+len(fence):]
		end := strings.Index(body, fenceEnd)
		if end == -1 {
			break
		}
		block := strings.TrimSpace(body[:end])
		rest = body[end+len(fenceEnd):]

		var payload fencedCallPayload
		if err := json.Unmarshal([]byte(block), &payload); err != nil || payload.Name == "" {
			continue
		}
		args := payload.Arguments
		if len(args) == 0 {
			args = json.RawMessage("{}")
		}
		calls = append(calls, ParsedCall{Name: tools.Ident(payload.Name), Arguments: args})
	}
	return calls
}
