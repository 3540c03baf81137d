package toolbuilder

import (
	"fmt"
	"strings"
)

type section struct {
	name    string
	content string
}

// PromptBuilder composes a base instruction template with ordered named
// sections, joined the same way skills.PromptBuilder does: "# Name\n\ncontent",
// sections separated by a blank line.
type PromptBuilder struct {
	basePrompt string
	sections   []section
}

// NewPromptBuilder starts a builder from an agent's instruction_template.
func NewPromptBuilder(basePrompt string) *PromptBuilder {
	return &PromptBuilder{basePrompt: basePrompt}
}

// WithSection appends a named section.
func (b *PromptBuilder) WithSection(name, content string) *PromptBuilder {
	if strings.TrimSpace(content) == "" {
		return b
	}
	b.sections = append(b.sections, section{name: name, content: content})
	return b
}

// WithToolDocs appends a "Tools" section documenting every available tool
// and its parameters, so the prompt and the tool manager's CreateTools
// output can never drift apart.
func (b *PromptBuilder) WithToolDocs(tools []Tool) *PromptBuilder {
	if len(tools) == 0 {
		return b
	}
	var sb strings.Builder
	for _, t := range tools {
		fmt.Fprintf(&sb, "- %s: %s\n", t.Name, t.Description)
		for _, p := range t.Parameters {
			req := ""
			if p.Required {
				req = ", required"
			}
			fmt.Fprintf(&sb, "    - %s (%s%s): %s\n", p.Name, p.Type, req, p.Description)
		}
	}
	return b.WithSection("Tools", sb.String())
}

// Build renders the final system prompt.
func (b *PromptBuilder) Build() string {
	parts := []string{b.basePrompt}
	for _, s := range b.sections {
		parts = append(parts, fmt.Sprintf("# %s\n\n%s", s.name, s.content))
	}
	return strings.Join(parts, "\n\n")
}

// DocumentedToolNames returns the set of tool names WithToolDocs would
// document for tools, for tests that assert prompt/tool-set parity.
func DocumentedToolNames(tools []Tool) map[string]bool {
	set := make(map[string]bool, len(tools))
	for _, t := range tools {
		set[t.Name] = true
	}
	return set
}
