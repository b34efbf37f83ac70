package agent

import (
	"context"

	"github.com/hahsanayub/browseragent/observability"
)

// StepEventSink durably records step-level events via observability's
// sqlite-backed EventLogger, the persistent counterpart of
// session.BrowserSession's in-memory RecentEvent ring (SPEC_FULL.md §3.4).
type StepEventSink struct {
	logger    *observability.EventLogger
	sessionID string
}

// NewStepEventSink wraps logger for one session; nil logger disables
// persistence without requiring callers to guard every call site.
func NewStepEventSink(logger *observability.EventLogger, sessionID string) *StepEventSink {
	return &StepEventSink{logger: logger, sessionID: sessionID}
}

func (s *StepEventSink) record(ctx context.Context, eventType, url, actionKind string, success bool, stepNumber int, details string) {
	if s == nil || s.logger == nil {
		return
	}
	s.logger.LogEvent(ctx, observability.StepEvent{
		EventType:  eventType,
		SessionID:  s.sessionID,
		StepNumber: stepNumber,
		URL:        url,
		ActionKind: actionKind,
		Success:    success,
		Details:    details,
	})
}
