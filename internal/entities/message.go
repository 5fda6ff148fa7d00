package entities

import "time"

// Outcome is the result of one send attempt by one account
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeSent
	OutcomeAlreadyContacted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSent:
		return "sent"
	case OutcomeAlreadyContacted:
		return "already_contacted"
	default:
		return "failed"
	}
}

// Resolved reports whether the recipient is done and can leave the queue
func (o Outcome) Resolved() bool {
	return o == OutcomeSent || o == OutcomeAlreadyContacted
}

// MessagePool is the immutable set of greeting templates loaded at startup
type MessagePool []string

// Peer is a recipient resolved to a platform entity
type Peer struct {
	Handle string // identifier as it appears in the queue
	ID     string // platform address, e.g. a JID
}

// StopReason explains why a dispatch run ended
type StopReason string

const (
	StopCompleted     StopReason = "completed"
	StopAllRestricted StopReason = "all_restricted"
	StopInterrupted   StopReason = "interrupted"
	StopEmptyQueue    StopReason = "empty_queue"
)

// RunSummary is the totals printed (and optionally notified) at the end of a run
type RunSummary struct {
	Reason    StopReason     `json:"reason"`
	TotalSent int            `json:"total_sent"`
	Accounts  []AccountStats `json:"accounts"`
	Removed   int            `json:"removed"`
	GaveUp    []string       `json:"gave_up,omitempty"`
	Remaining int            `json:"remaining"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
}
