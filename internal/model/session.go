package model

import "time"

// SessionState is the lifecycle state of an admitted participant's
// entry window. States only ever move forward: Scheduled -> Running
// -> WarningSent -> Ended, where WarningSent may be skipped when the
// plan duration is shorter than the warning offset. Ended is terminal.
type SessionState string

const (
	StateScheduled   SessionState = "SCHEDULED"
	StateRunning     SessionState = "RUNNING"
	StateWarningSent SessionState = "WARNING_SENT"
	StateEnded       SessionState = "ENDED"
)

// CanTransition reports whether moving from one session state to
// another is legal. Both store implementations gate every mutation
// through this table so an illegal transition is rejected identically
// regardless of backend.
func CanTransition(from, to SessionState) bool {
	switch to {
	case StateRunning:
		return from == StateScheduled
	case StateWarningSent:
		return from == StateRunning
	case StateEnded:
		return from == StateRunning || from == StateWarningSent
	}
	return false
}

// TransitionSources returns the states from which a transition into
// the given state is legal. SQL stores use this to build the WHERE
// clause of an atomic compare-and-set update.
func TransitionSources(to SessionState) []SessionState {
	switch to {
	case StateRunning:
		return []SessionState{StateScheduled}
	case StateWarningSent:
		return []SessionState{StateRunning}
	case StateEnded:
		return []SessionState{StateRunning, StateWarningSent}
	}
	return nil
}

// Session is the durable record of one entry window. The ticket id is
// derived from the transaction id of the consumed credential. StartedAt
// is set on the transition into Running and never changes afterwards;
// the end instant is always derived as StartedAt + Duration.
type Session struct {
	TicketID  string        `json:"ticket_id"`
	Name      string        `json:"name"`
	Phone     string        `json:"phone"`
	Duration  time.Duration `json:"duration"`
	State     SessionState  `json:"state"`
	CreatedAt time.Time     `json:"created_at"`
	StartedAt *time.Time    `json:"started_at,omitempty"`
	EndedAt   *time.Time    `json:"ended_at,omitempty"`
}

// EndsAt returns the derived end instant. The zero time is returned
// while the session has not started.
func (s Session) EndsAt() time.Time {
	if s.StartedAt == nil {
		return time.Time{}
	}
	return s.StartedAt.Add(s.Duration)
}

// Remaining returns how much of the entry window is left at the given
// instant, clamped at zero.
func (s Session) Remaining(now time.Time) time.Duration {
	if s.StartedAt == nil {
		return s.Duration
	}
	left := s.EndsAt().Sub(now)
	if left < 0 {
		return 0
	}
	return left
}
