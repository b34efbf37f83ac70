package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/hahsanayub/browseragent/actions"
	"github.com/hahsanayub/browseragent/session"
)

// LoopConfig configures one AgentLoop run (spec.md §4.7).
type LoopConfig struct {
	UserRequest  string
	FileSystem   string
	TodoContents string

	MaxSteps                   int
	StepTimeout                time.Duration
	ConsecutiveFailureThreshold int

	AllowedDomains []string
	Sensitive      SensitiveData
	DomainMatch    DomainMatcher
	URLLimit       int

	PageSpecificActions string
}

func (c *LoopConfig) defaults() {
	if c.MaxSteps <= 0 {
		c.MaxSteps = 100
	}
	if c.StepTimeout <= 0 {
		c.StepTimeout = 120 * time.Second
	}
	if c.ConsecutiveFailureThreshold <= 0 {
		c.ConsecutiveFailureThreshold = 3
	}
}

// Loop is AgentLoop (spec.md §4.7): the single-threaded cooperative
// scheduler that repeats capture → prompt → invoke → execute → record
// until a `done` action or a fatal condition stops it.
type Loop struct {
	sess     *session.BrowserSession
	registry *actions.Registry
	history  *History
	prompt   *PromptAssembler
	llm      *FallbackInvoker
	events   *StepEventSink
	shortener *URLShortener

	cfg LoopConfig

	stepNumber           int
	consecutiveFailures  int
	stuckHint            string
}

// NewLoop wires the four CORE subsystems together per spec.md §2's
// dataflow diagram.
func NewLoop(sess *session.BrowserSession, registry *actions.Registry, llm *FallbackInvoker, events *StepEventSink, cfg LoopConfig) *Loop {
	cfg.defaults()
	return &Loop{
		sess:      sess,
		registry:  registry,
		history:   NewHistory(),
		prompt:    NewPromptAssembler(registry),
		llm:       llm,
		events:    events,
		shortener: NewURLShortener(cfg.URLLimit),
		cfg:       cfg,
	}
}

// History exposes the accumulated log, e.g. for CLI rendering.
func (l *Loop) History() *History { return l.history }

// Run drives the step loop to completion: a `done` action, max steps
// reached, or a fatal/aborted error.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.checkSensitiveDataGate(); err != nil {
		return err
	}
	for l.stepNumber < l.cfg.MaxSteps {
		if ctx.Err() != nil {
			return session.ErrAbort
		}
		done, err := l.Step(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	return nil
}

func (l *Loop) checkSensitiveDataGate() error {
	if l.cfg.Sensitive == nil {
		return nil
	}
	return l.cfg.Sensitive.RequireAllowedDomain(l.cfg.AllowedDomains)
}

// Step runs one iteration of spec.md §4.7's "One step" algorithm. Returns
// done=true once a dispatched action signals completion.
func (l *Loop) Step(ctx context.Context) (done bool, err error) {
	stepCtx, cancel := context.WithTimeout(ctx, l.cfg.StepTimeout)
	defer cancel()

	l.stepNumber++
	step := l.stepNumber

	// 1. capture
	state, err := l.sess.Capture(stepCtx, session.CaptureOptions{CacheHashes: true, IncludeScreenshot: true, IncludeEvents: true})
	if err != nil {
		l.events.record(ctx, "capture_failed", "", "", false, step, err.Error())
		return false, err
	}

	// 2. prompt
	userRequest := l.cfg.UserRequest
	if l.stuckHint != "" {
		userRequest = userRequest + "\n" + l.stuckHint
	}
	rendered := l.prompt.Build(l.history, state, userRequest, l.cfg.FileSystem, l.cfg.TodoContents,
		StepInfo{StepNumber: step, MaxSteps: l.cfg.MaxSteps}, l.cfg.PageSpecificActions)
	rendered = l.shortener.Shorten(rendered)

	// 3. invoke
	output, invokeErr := l.llm.Invoke(stepCtx, rendered)
	if invokeErr != nil {
		// 4. parse/invoke failure: append error history item, continue.
		l.history.Update(step, nil, nil, nil)
		l.consecutiveFailures++
		l.events.record(ctx, "agent_step_failed", state.URL, "", false, step, invokeErr.Error())
		l.maybeSetStuckHint()
		return false, nil
	}

	modelOut := &ModelOutput{
		EvaluationPreviousGoal: l.shortener.Restore(output.CurrentState.EvaluationPreviousGoal),
		Memory:                 l.shortener.Restore(output.CurrentState.Memory),
		NextGoal:               l.shortener.Restore(output.CurrentState.NextGoal),
	}

	acts := decodeActions(output.Action)
	for i, a := range acts {
		restored := make(map[string]any, len(a.Params))
		for k, v := range a.Params {
			if s, ok := v.(string); ok {
				v = l.shortener.Restore(s)
			}
			restored[k] = v
		}
		acts[i].Params = restored
		if l.cfg.Sensitive != nil {
			acts[i].Params = l.cfg.Sensitive.Substitute(state.URL, l.cfg.DomainMatch, restored)
		}
	}

	// 5. multi_act with termination guards
	results := actions.MultiAct(stepCtx, l.registry, l.sess.CurrentURL, acts)

	// 6. record history
	l.history.Update(step, modelOut, results, acts)
	l.events.record(ctx, "agent_step_completed", state.URL, "", true, step, "")

	// consecutive-failures bookkeeping: a step that executed without error
	// resets the counter.
	stepFailed := len(results) == 0
	for _, r := range results {
		if !r.Success {
			stepFailed = true
		}
	}
	if stepFailed {
		l.consecutiveFailures++
		l.maybeSetStuckHint()
	} else {
		l.consecutiveFailures = 0
		l.stuckHint = ""
	}

	// 7. stop if any result signals done.
	for i, a := range acts {
		if a.Kind == actions.KindDone && i < len(results) && results[i].Success {
			return true, nil
		}
	}
	return false, nil
}

func (l *Loop) maybeSetStuckHint() {
	if l.consecutiveFailures >= l.cfg.ConsecutiveFailureThreshold {
		l.stuckHint = fmt.Sprintf("Note: the last %d steps made no progress; reconsider the approach.", l.consecutiveFailures)
	}
}

// decodeActions turns the wire-shaped RawAction list into actions.Action
// values, per spec.md §9's "dispatch through a registry mapping tag to
// (parse_params, execute)".
func decodeActions(raw []RawAction) []actions.Action {
	out := make([]actions.Action, 0, len(raw))
	for _, r := range raw {
		for kind, params := range r {
			out = append(out, actions.Action{Kind: actions.Kind(kind), Params: params})
		}
	}
	return out
}
