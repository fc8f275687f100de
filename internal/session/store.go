// Package session holds the engine's shared mutable state: per (user, question)
// hint usage counters and per (user, quiz) adaptive session state. Both are
// defined as interfaces with an in-memory implementation for single-instance
// deployments and a redis-backed implementation for horizontally scaled ones;
// every implementation guarantees atomic per-key read-modify-write.
package session

import (
	"context"

	"quizengine/internal/models"
)

// State is the mutable adaptive session state for one (user, quiz) pair.
// It is created when an adaptive session starts and discarded when the quiz
// completes; there is no cross-quiz carry-over.
type State struct {
	SessionID         string            `json:"session_id"`
	CurrentDifficulty models.Difficulty `json:"current_difficulty"`
	// Window holds the most recent correctness signals, oldest first,
	// bounded by the configured window size
	Window              []bool `json:"window"`
	AnsweredQuestionIDs []int  `json:"answered_question_ids"`
}

// PushOutcome appends a correctness signal, evicting the oldest entry once
// the window holds windowSize entries
func (s *State) PushOutcome(correct bool, windowSize int) {
	s.Window = append(s.Window, correct)
	if windowSize > 0 && len(s.Window) > windowSize {
		s.Window = s.Window[len(s.Window)-windowSize:]
	}
}

// WindowAccuracy returns the fraction of correct signals in the window and
// whether the window holds any entries at all
func (s *State) WindowAccuracy() (float64, bool) {
	if len(s.Window) == 0 {
		return 0, false
	}
	correct := 0
	for _, ok := range s.Window {
		if ok {
			correct++
		}
	}
	return float64(correct) / float64(len(s.Window)), true
}

// HasAnswered reports whether the question was already answered in this session
func (s *State) HasAnswered(questionID int) bool {
	for _, id := range s.AnsweredQuestionIDs {
		if id == questionID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the state
func (s *State) Clone() *State {
	c := &State{
		SessionID:         s.SessionID,
		CurrentDifficulty: s.CurrentDifficulty,
	}
	if s.Window != nil {
		c.Window = append([]bool(nil), s.Window...)
	}
	if s.AnsweredQuestionIDs != nil {
		c.AnsweredQuestionIDs = append([]int(nil), s.AnsweredQuestionIDs...)
	}
	return c
}

// HintUsageStore tracks hint grants per (user, question). Increment is an
// atomic check-and-increment: two concurrent requests for the same key must
// never both be granted past the limit.
type HintUsageStore interface {
	// Increment advances the counter unless it has reached max. It returns
	// the counter value after the call and whether the grant succeeded.
	Increment(ctx context.Context, userID, questionID, max int) (count int, granted bool, err error)

	// Usage returns the current counter value, 0 for unknown keys.
	Usage(ctx context.Context, userID, questionID int) (int, error)

	// Reset clears one key. Dev/test convenience only.
	Reset(ctx context.Context, userID, questionID int) error
}

// Store persists adaptive session state per (user, quiz). Update is an
// atomic read-modify-write so concurrent submissions for the same session
// cannot race on the window.
type Store interface {
	// Put stores the state for the key, replacing any existing session.
	Put(ctx context.Context, userID, quizID int, state *State) error

	// Get returns a copy of the state, or ErrSessionNotFound.
	Get(ctx context.Context, userID, quizID int) (*State, error)

	// Update applies fn to the current state atomically and persists the
	// result, returning the updated state. ErrSessionNotFound when the key
	// does not exist.
	Update(ctx context.Context, userID, quizID int, fn func(*State) error) (*State, error)

	// Delete discards the session state for the key.
	Delete(ctx context.Context, userID, quizID int) error
}
