package state

import (
	"fmt"

	"query-responder-be/internal/pkg/logger"
)

// State is one step of a turn's lifecycle
type State string

const (
	Received        State = "RECEIVED"
	Planning        State = "PLANNING"
	Retrieving      State = "RETRIEVING"
	Grading         State = "GRADING"
	AwaitingConsent State = "AWAITING_CONSENT"
	WebSearching    State = "WEB_SEARCHING"
	Synthesizing    State = "SYNTHESIZING"
	Verifying       State = "VERIFYING"
	RetrySynthesis  State = "RETRY_SYNTHESIS"
	Rephrasing      State = "REPHRASING"
	Clarifying      State = "CLARIFYING"
	Declined        State = "DECLINED"
	Responded       State = "RESPONDED"
)

var transitions = map[State][]State{
	Received:        {Planning},
	Planning:        {Retrieving, Clarifying, WebSearching, Declined},
	Retrieving:      {Grading, Synthesizing, Rephrasing, AwaitingConsent, WebSearching},
	Grading:         {Synthesizing, AwaitingConsent, WebSearching},
	WebSearching:    {Synthesizing, Responded},
	Synthesizing:    {Verifying, Responded},
	Verifying:       {RetrySynthesis, Rephrasing},
	RetrySynthesis:  {Verifying, Rephrasing},
	Rephrasing:      {Responded},
	AwaitingConsent: {Responded},
	Clarifying:      {Responded},
	Declined:        {Responded},
}

// Manager tracks the state transitions of a single turn
type Manager struct {
	sessionID string
	current   State
	path      []State
	logger    logger.ILogger
}

// NewManager starts a turn in RECEIVED
func NewManager(sessionID string, log logger.ILogger) *Manager {
	return &Manager{
		sessionID: sessionID,
		current:   Received,
		path:      []State{Received},
		logger:    log,
	}
}

// TransitionTo moves to next. An illegal transition is reported and refused.
func (m *Manager) TransitionTo(next State) error {
	for _, allowed := range transitions[m.current] {
		if allowed == next {
			m.logger.Debug("State", "Transition", map[string]interface{}{
				"session_id": m.sessionID,
				"from":       string(m.current),
				"to":         string(next),
			})
			m.current = next
			m.path = append(m.path, next)
			return nil
		}
	}
	err := fmt.Errorf("illegal transition %s -> %s", m.current, next)
	m.logger.Error("State", err.Error(), map[string]interface{}{"session_id": m.sessionID})
	return err
}

func (m *Manager) Current() State {
	return m.current
}

// Path returns every state visited so far, in order.
func (m *Manager) Path() []State {
	out := make([]State, len(m.path))
	copy(out, m.path)
	return out
}

// Terminal reports whether the turn has responded.
func (m *Manager) Terminal() bool {
	return m.current == Responded
}
