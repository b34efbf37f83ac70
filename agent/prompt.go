package agent

import (
	"fmt"
	"strings"

	"github.com/hahsanayub/browseragent/actions"
	"github.com/hahsanayub/browseragent/session"
)

// StepInfo carries the current/max step counters rendered into
// `<step_info>` (spec.md §4.6).
type StepInfo struct {
	StepNumber int
	MaxSteps   int
}

// PromptAssembler composes the user prompt for the next step by
// concatenating fixed-order XML-like sections, per spec.md §4.6.
type PromptAssembler struct {
	Registry *actions.Registry
}

// NewPromptAssembler builds an assembler backed by reg's action catalog,
// rendered into `<page_actions>`.
func NewPromptAssembler(reg *actions.Registry) *PromptAssembler {
	return &PromptAssembler{Registry: reg}
}

// Build assembles the prompt, per spec.md §4.6's fixed section order:
// agent_history, agent_state (user_request/file_system/todo_contents/
// step_info), browser_state, read_state (if present), page_actions,
// page_specific_actions (optional).
func (p *PromptAssembler) Build(history *History, state *session.BrowserStateSummary, userRequest, fileSystem, todoContents string, step StepInfo, pageSpecificActions string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<agent_history>\n%s\n</agent_history>\n", history.String())

	b.WriteString("<agent_state>\n")
	fmt.Fprintf(&b, "<user_request>%s</user_request>\n", userRequest)
	fmt.Fprintf(&b, "<file_system>%s</file_system>\n", fileSystem)
	fmt.Fprintf(&b, "<todo_contents>%s</todo_contents>\n", todoContents)
	fmt.Fprintf(&b, "<step_info>step %d of %d</step_info>\n", step.StepNumber, step.MaxSteps)
	b.WriteString("</agent_state>\n")

	fmt.Fprintf(&b, "<browser_state>\n%s\n</browser_state>\n", renderBrowserState(state))

	if rs := history.ReadState(); rs != "" {
		fmt.Fprintf(&b, "<read_state>\n%s\n</read_state>\n", rs)
	}

	b.WriteString("<page_actions>\n")
	for _, k := range p.Registry.Kinds() {
		spec, _ := p.Registry.Get(k)
		fmt.Fprintf(&b, "%s: %s\n", spec.Kind, spec.Description)
	}
	b.WriteString("</page_actions>\n")

	if pageSpecificActions != "" {
		fmt.Fprintf(&b, "<page_specific_actions>\n%s\n</page_specific_actions>\n", pageSpecificActions)
	}

	return strings.TrimRight(b.String(), "\n")
}

// renderBrowserState embeds tabs, the active-tab id (only when unique by
// URL+title), page info, a PDF-viewer warning, and the serialized
// interactive-elements list with off-viewport annotations, per spec.md
// §4.6.
func renderBrowserState(s *session.BrowserStateSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\nTitle: %s\n", s.URL, s.Title)

	b.WriteString("Tabs:\n")
	matches := 0
	for _, t := range s.Tabs {
		fmt.Fprintf(&b, "  - %s: %s (%s)\n", t.PageID, t.Title, t.URL)
		if t.URL == s.URL && t.Title == s.Title {
			matches++
		}
	}
	activeID := ""
	if matches == 1 {
		for _, t := range s.Tabs {
			if t.URL == s.URL && t.Title == s.Title {
				activeID = t.PageID
			}
		}
	}
	if activeID != "" {
		fmt.Fprintf(&b, "Current tab: %s\n", activeID)
	}

	fmt.Fprintf(&b, "Page info: viewport=%.0fx%.0f page=%.0fx%.0f scroll=%.0f%%\n",
		s.PageInfo.ViewportWidth, s.PageInfo.ViewportHeight,
		s.PageInfo.PageWidth, s.PageInfo.PageHeight, s.PageInfo.ScrollPercent)

	if s.IsPDFViewer {
		b.WriteString("[PDF viewer: extract_structured_data is disabled on this page]\n")
	}

	if s.PixelsAbove > 0 {
		fmt.Fprintf(&b, "... %d pixels above - scroll up to see more ...\n", s.PixelsAbove)
	}
	b.WriteString("[Start of page]\n")
	b.WriteString(s.DOMString)
	b.WriteString("\n[End of page]\n")
	if s.PixelsBelow > 0 {
		fmt.Fprintf(&b, "... %d pixels below - scroll down to see more ...\n", s.PixelsBelow)
	}

	return strings.TrimRight(b.String(), "\n")
}
