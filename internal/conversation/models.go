package conversation

import (
	"time"

	"github.com/crateguide/crateguide/pkg/models"
)

// State tracks where a guided conversation sits in its lifecycle.
type State string

const (
	// StateStarted means the opening question has been asked and the
	// listener has not replied yet.
	StateStarted State = "started"
	// StateInProgress means at least one exchange has happened and more
	// questions remain.
	StateInProgress State = "in_progress"
	// StateComplete means the closing hand-off has been delivered. The
	// transcript is read-only from here on.
	StateComplete State = "complete"
)

// QuestionThreshold is the number of listener answers after which the
// engine stops asking and hands off to recommendation.
const QuestionThreshold = 3

// CanTransitionTo reports whether moving from s to next is a legal
// lifecycle step. Complete is terminal.
func (s State) CanTransitionTo(next State) bool {
	switch s {
	case StateStarted:
		return next == StateInProgress || next == StateComplete
	case StateInProgress:
		return next == StateInProgress || next == StateComplete
	case StateComplete:
		return false
	}
	return false
}

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	switch s {
	case StateStarted, StateInProgress, StateComplete:
		return true
	}
	return false
}

// Conversation is one guided dialogue between a listener and the
// engine. Version is a stamp used for optimistic concurrency: stores
// reject writes whose Version does not match the stored record.
type Conversation struct {
	ID            string           `json:"id"`
	PortraitID    string           `json:"portraitId"`
	UserID        string           `json:"userId"`
	State         State            `json:"state"`
	Transcript    []models.Message `json:"transcript"`
	QuestionCount int              `json:"questionCount"`
	Version       int64            `json:"version"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// Complete reports whether the conversation has delivered its closing
// hand-off.
func (c *Conversation) Complete() bool {
	return c.State == StateComplete
}

// Clone returns a deep copy so callers can mutate without racing the
// in-memory store.
func (c *Conversation) Clone() *Conversation {
	cp := *c
	cp.Transcript = make([]models.Message, len(c.Transcript))
	copy(cp.Transcript, c.Transcript)
	return &cp
}
