package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/hahsanayub/browseragent/actions"
	"github.com/hahsanayub/browseragent/session"
)

// RecordedStep is one entry of a previously executed run, as needed by
// rerun_history (spec.md §4.7's Replay section). A full implementation
// would decode this from a persisted HistoryItem; fields here capture
// just what replay's re-resolution and pacing logic consumes.
type RecordedStep struct {
	StepNumber   int
	Actions      []actions.Action
	Failed       bool
	BackendNodeID string // resolution attempt 1
	XPath         string // resolution attempt 2
	StableHash    string // resolution attempt 3
	AXName        string // resolution attempt 4
	StepInterval  time.Duration
	IsMenuOpen    bool // true if this step's action opens a menu (for the reopen-once rule)
}

// ReplayOptions configures rerun_history, spec.md §4.7.
type ReplayOptions struct {
	SkipFailures     bool
	WaitForElements  bool
	MaxRetries       int
	MaxStepInterval  time.Duration
	Extractor        actions.Extractor // not read by Replayer: extract_structured_data steps run through the registry's Extract handler
}

// Replayer replays a recorded history against the live session, re-resolving
// each step's target element against the current selector map.
type Replayer struct {
	sess     *session.BrowserSession
	registry *actions.Registry
	opts     ReplayOptions

	lastSucceeded map[string]bool // "(action_kind, resolved_index)" dedup set, spec.md §4.7 "redundant retries"
}

// NewReplayer constructs a replayer bound to sess/registry.
func NewReplayer(sess *session.BrowserSession, registry *actions.Registry, opts ReplayOptions) *Replayer {
	return &Replayer{sess: sess, registry: registry, opts: opts, lastSucceeded: make(map[string]bool)}
}

// Run replays every recorded step in order, per spec.md §4.7.
func (r *Replayer) Run(ctx context.Context, steps []RecordedStep) ([]actions.Result, error) {
	var allResults []actions.Result
	for _, step := range steps {
		if r.opts.SkipFailures && step.Failed {
			continue
		}

		if step.StepInterval > 0 {
			wait := step.StepInterval
			if r.opts.MaxStepInterval > 0 && wait > r.opts.MaxStepInterval {
				wait = r.opts.MaxStepInterval
			}
			select {
			case <-ctx.Done():
				return allResults, ctx.Err()
			case <-time.After(wait):
			}
		}

		rewritten, err := r.resolveStep(ctx, step)
		if err != nil {
			allResults = append(allResults, actions.Result{Success: false, Error: err.Error()})
			continue
		}

		results := actions.MultiAct(ctx, r.registry, r.sess.CurrentURL, rewritten)
		allResults = append(allResults, results...)
	}
	return allResults, nil
}

// resolveStep re-resolves the recorded step's element and rewrites the index
// of every action that carries one, dropping actions found redundant.
// extract_structured_data actions are returned unchanged; they run through
// the registry's Extract handler and whatever Extractor NewDefaultRegistry
// was given.
func (r *Replayer) resolveStep(ctx context.Context, step RecordedStep) ([]actions.Action, error) {
	out := make([]actions.Action, len(step.Actions))
	copy(out, step.Actions)
	skip := make(map[int]bool)

	for i, a := range out {
		if a.Kind == actions.KindExtract {
			// AI fallback handled entirely inside the registry's Extract
			// handler when an Extractor was wired at NewDefaultRegistry
			// time; nothing to rewrite here.
			continue
		}
		if _, hasIndex := a.Params["index"]; !hasIndex {
			continue
		}

		idx, err := r.resolveIndex(ctx, step)
		if err != nil {
			if step.IsMenuOpen {
				// Reopen the menu once by replaying this step's own action,
				// then retry resolution (spec.md §4.7's menu-item rule).
				_, _ = r.registry.Execute(ctx, a)
				idx, err = r.resolveIndex(ctx, step)
			}
			if err != nil {
				return nil, fmt.Errorf("agent: replay: step %d: %w", step.StepNumber, err)
			}
		}

		key := fmt.Sprintf("%s:%d", a.Kind, idx)
		if r.lastSucceeded[key] {
			// Redundant retry: an equivalent (action_kind, resolved_element)
			// already succeeded; skip re-executing it. The key uses the
			// resolved (post-rewrite) index, per the Open Question decision
			// recorded in DESIGN.md.
			skip[i] = true
			continue
		}
		r.lastSucceeded[key] = true

		params := make(map[string]any, len(a.Params))
		for k, v := range a.Params {
			params[k] = v
		}
		params["index"] = idx
		out[i] = actions.Action{Kind: a.Kind, Params: params}
	}

	kept := make([]actions.Action, 0, len(out))
	for i, a := range out {
		if !skip[i] {
			kept = append(kept, a)
		}
	}
	return kept, nil
}

// resolveIndex implements spec.md §4.7's ordered re-resolution: (1)
// backendNodeId, (2) xpath, (3) stable hash, (4) accessibility name
// fallback, with exponential backoff (5s, 10s, ...) between bounded
// retries.
func (r *Replayer) resolveIndex(ctx context.Context, step RecordedStep) (int, error) {
	backoff := 5 * time.Second
	for attempt := 0; attempt <= r.opts.MaxRetries; attempt++ {
		state, err := r.sess.Capture(ctx, session.CaptureOptions{})
		if err != nil {
			return 0, err
		}
		if idx, ok := matchByBackendNodeID(state.SelectorMap, step.BackendNodeID); ok {
			return idx, nil
		}
		if idx, ok := matchByXPath(state.SelectorMap, step.XPath); ok {
			return idx, nil
		}
		if idx, ok := matchByStableHash(state.SelectorMap, step.StableHash); ok {
			return idx, nil
		}
		if idx, ok := matchByAXName(state.SelectorMap, step.AXName); ok {
			return idx, nil
		}

		if !r.opts.WaitForElements || attempt == r.opts.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return 0, fmt.Errorf("agent: replay: no element matched backendNodeId/xpath/stable-hash/ax-name")
}

func matchByBackendNodeID(sm session.SelectorMap, id string) (int, bool) {
	if id == "" {
		return 0, false
	}
	for idx, n := range sm {
		if fmt.Sprintf("%d", n.BackendNodeID) == id {
			return idx, true
		}
	}
	return 0, false
}

func matchByXPath(sm session.SelectorMap, xpath string) (int, bool) {
	if xpath == "" {
		return 0, false
	}
	for idx, n := range sm {
		if n.XPath == xpath {
			return idx, true
		}
	}
	return 0, false
}

// matchByStableHash re-resolves using the open question's decided
// tie-break: the smaller interactive index wins when multiple current
// nodes share a stable hash (DESIGN.md "Open Question decisions").
func matchByStableHash(sm session.SelectorMap, hash string) (int, bool) {
	if hash == "" {
		return 0, false
	}
	best, found := -1, false
	for idx, n := range sm {
		if session.StableHash(n) == hash {
			if !found || idx < best {
				best, found = idx, true
			}
		}
	}
	return best, found
}

func matchByAXName(sm session.SelectorMap, axName string) (int, bool) {
	if axName == "" {
		return 0, false
	}
	for idx, n := range sm {
		if n.AX.Name == axName {
			return idx, true
		}
	}
	return 0, false
}
