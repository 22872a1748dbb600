package toolregistry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/moltis-ai/moltis/internal/tools"
)

// invocationGrammar is the fenced-block syntax a prompt-driven model is
// instructed to emit when it wants to call a tool. The run loop parses
// accumulated assistant text for blocks matching this fence.
const invocationGrammar = "```tool_call\n{\"name\": \"<tool name>\", \"arguments\": { ... }}\n```"

// RenderCatalog renders the registry's tools as a textual catalog plus the
// invocation grammar, for providers that do not support native tool calling.
// Output is deterministic (tools sorted by name) so repeated calls with an
// unchanged registry produce identical text, which keeps prompt caching
// effective across turns.
func (r *Registry) RenderCatalog() string {
	r.mu.RLock()
	names := make([]tools.Ident, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	var b strings.Builder
	b.WriteString("You have access to the following tools. To call one, respond with a single fenced block using exactly this form:\n\n")
	b.WriteString(invocationGrammar)
	b.WriteString("\n\nTools:\n\n")
	for _, name := range names {
		t, ok := r.Get(name)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", name, t.Description())
		if raw := t.ParametersSchema(); len(raw) > 0 {
			fmt.Fprintf(&b, "  parameters: %s\n", string(raw))
		}
	}
	return b.String()
}
