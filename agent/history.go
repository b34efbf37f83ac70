// Package agent implements AgentHistory, PromptAssembler, and AgentLoop
// (spec.md §4.5–§4.7): the step scheduler that repeatedly observes the
// browser, asks the model, executes actions, and records what happened.
package agent

import (
	"fmt"
	"strings"

	"github.com/hahsanayub/browseragent/actions"
)

// HistoryKind discriminates HistoryItem's tagged union (spec.md §3).
type HistoryKind string

const (
	HistoryStep   HistoryKind = "step"
	HistoryError  HistoryKind = "error"
	HistorySystem HistoryKind = "system"
)

// ActionResultView is the subset of actions.Result plus the action that
// produced it, needed to render one "Action i/N: ..." line.
type ActionResultView struct {
	Action actions.Action
	Result actions.Result
}

// HistoryItem is one entry in AgentHistory's append-only log. Invariant
// (spec.md §8): Error and SystemMessage are never both non-empty.
type HistoryItem struct {
	Kind              HistoryKind
	StepNumber        int
	EvalPreviousGoal  string
	Memory            string
	NextGoal          string
	ActionResults     []ActionResultView
	Error             string
	SystemMessage     string
}

// render produces the `<step_N>...</step_N>` block (or the bare error/system
// line) used by both the compact string view and PromptAssembler.
func (h HistoryItem) render() string {
	switch h.Kind {
	case HistorySystem:
		return h.SystemMessage
	case HistoryError:
		return truncateError(h.Error)
	default:
		var b strings.Builder
		if h.EvalPreviousGoal != "" {
			fmt.Fprintf(&b, "Evaluation of Previous Step: %s\n", h.EvalPreviousGoal)
		}
		if h.Memory != "" {
			fmt.Fprintf(&b, "Memory: %s\n", h.Memory)
		}
		if h.NextGoal != "" {
			fmt.Fprintf(&b, "Next Goal: %s\n", h.NextGoal)
		}
		if len(h.ActionResults) > 0 {
			b.WriteString("Action Results:\n")
			n := len(h.ActionResults)
			for i, ar := range h.ActionResults {
				b.WriteString(descriptor(i+1, n, ar))
				b.WriteString("\n")
			}
		}
		return strings.TrimRight(b.String(), "\n")
	}
}

// descriptor renders one `Action i/N: <descriptor>` line, spec.md §4.5(b):
// action-kind-specific phrasing for go_to_url/click/type, the result
// message otherwise.
func descriptor(i, n int, ar ActionResultView) string {
	prefix := fmt.Sprintf("Action %d/%d: ", i, n)
	if !ar.Result.Success {
		return prefix + "Failed: " + truncateError(ar.Result.Error)
	}
	switch ar.Action.Kind {
	case actions.KindGoToURL:
		return prefix + "Navigated to " + ar.Action.String("url")
	case actions.KindClickElement:
		return prefix + fmt.Sprintf("Clicked element %d", ar.Action.Int("index"))
	case actions.KindTypeText:
		return prefix + fmt.Sprintf("Typed %q into element %d", ar.Action.String("text"), ar.Action.Int("index"))
	default:
		if ar.Result.Message != "" {
			return prefix + ar.Result.Message
		}
		return prefix + string(ar.Action.Kind)
	}
}

// truncateError implements spec.md §4.5(d): head-100 + "......" + tail-100
// for errors longer than that.
func truncateError(msg string) string {
	const keep = 100
	if len(msg) <= 2*keep+6 {
		return msg
	}
	return msg[:keep] + "......" + msg[len(msg)-keep:]
}

// History is AgentHistory: an append-only list plus a side-channel
// read-state description refreshed every update, per spec.md §3/§4.5.
type History struct {
	items             []HistoryItem
	readStateDesc     string
}

// NewHistory returns a history whose first item is always a system
// "Agent initialized" message, per spec.md §3's HistoryItem invariant.
func NewHistory() *History {
	return &History{items: []HistoryItem{{Kind: HistorySystem, SystemMessage: "Agent initialized"}}}
}

// Items returns the full append-only log.
func (h *History) Items() []HistoryItem { return h.items }

// ReadState returns the side-channel content extracted from
// include_extracted_content_only_once results, wrapped per step in
// `<read_state_i>...</read_state_i>` tags (spec.md §4.5(c)).
func (h *History) ReadState() string { return h.readStateDesc }

// ModelOutput is the subset of StructuredAgentOutput (spec.md §6) needed to
// update history: its current_state fields. The dispatched actions are
// passed to Update separately.
type ModelOutput struct {
	EvaluationPreviousGoal string
	Memory                 string
	NextGoal               string
}

// Update implements spec.md §4.5's updateAgentHistory(step_number,
// model_output?, results[], actions[]):
//
//	(a) resets read_state_description
//	(b) emits one Action i/N descriptor per paired action/result
//	(c) extracts include_extracted_content_only_once into read_state
//	(d) truncates long errors (handled in render/descriptor)
//	(e) appends an error item only when output is nil and step > 0
func (h *History) Update(stepNumber int, output *ModelOutput, results []actions.Result, acts []actions.Action) {
	h.readStateDesc = ""

	if output == nil {
		if stepNumber > 0 {
			h.items = append(h.items, HistoryItem{Kind: HistoryError, StepNumber: stepNumber, Error: "model returned no parseable output"})
		}
		return
	}

	views := make([]ActionResultView, 0, len(results))
	var readStates []string
	for i, r := range results {
		var a actions.Action
		if i < len(acts) {
			a = acts[i]
		}
		views = append(views, ActionResultView{Action: a, Result: r})
		if r.IncludeExtractedContentOnce && r.ExtractedContent != "" {
			readStates = append(readStates, fmt.Sprintf("<read_state_%d>%s</read_state_%d>", i+1, r.ExtractedContent, i+1))
		}
	}
	if len(readStates) > 0 {
		h.readStateDesc = strings.Join(readStates, "\n")
	}

	h.items = append(h.items, HistoryItem{
		Kind:             HistoryStep,
		StepNumber:       stepNumber,
		EvalPreviousGoal: output.EvaluationPreviousGoal,
		Memory:           output.Memory,
		NextGoal:         output.NextGoal,
		ActionResults:    views,
	})
}

// String renders the full history as `<step_N>\n<content>\n</step_N>` blocks
// concatenated in order, per spec.md §4.5.
func (h *History) String() string {
	var b strings.Builder
	for _, item := range h.items {
		if item.Kind == HistorySystem {
			b.WriteString(item.render())
			b.WriteString("\n")
			continue
		}
		fmt.Fprintf(&b, "<step_%d>\n%s\n</step_%d>\n", item.StepNumber, item.render(), item.StepNumber)
	}
	return strings.TrimRight(b.String(), "\n")
}
