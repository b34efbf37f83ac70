package actions

import (
	"context"
)

// Result is one action's outcome, fed into AgentHistory.updateAgentHistory
// (spec.md §4.5).
type Result struct {
	Success                        bool
	Message                        string
	Error                          string
	ExtractedContent               string
	IncludeExtractedContentOnce    bool
	LongTermMemory                 string
}

// URLGetter reads the active tab's current URL, used to detect the
// "URL changed between actions" termination condition.
type URLGetter func() string

// MultiAct executes actions in order and stops early on a terminating
// action or a URL change between actions, per spec.md §4.4: "the first
// terminating action's index k satisfies: no action at index > k was
// executed." abort is checked before each action (spec.md §4.7
// cancellation: "an already-aborted signal rejects before any I/O").
func MultiAct(ctx context.Context, reg *Registry, currentURL URLGetter, actionList []Action) []Result {
	results := make([]Result, 0, len(actionList))
	urlBefore := currentURL()

	for _, a := range actionList {
		if ctx.Err() != nil {
			results = append(results, Result{Success: false, Error: ctx.Err().Error()})
			break
		}

		content, err := reg.Execute(ctx, a)
		if err != nil {
			results = append(results, Result{Success: false, Error: err.Error()})
			break
		}
		results = append(results, Result{Success: true, Message: content, ExtractedContent: content})

		if IsTerminating(a.Kind) {
			break
		}
		if after := currentURL(); after != urlBefore {
			break
		}
	}
	return results
}
