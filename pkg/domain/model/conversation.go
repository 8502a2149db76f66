package model

import (
	"context"
	"time"
)

// Step tags the position of a user inside a multi-step dialog.
type Step string

const StepIdle Step = "idle"

type ConversationState struct {
	UserID    UserID
	Step      Step
	Data      map[string]string
	UpdatedAt time.Time
}

func NewConversationState(userID UserID) *ConversationState {
	return &ConversationState{UserID: userID, Step: StepIdle, Data: map[string]string{}}
}

func (s *ConversationState) Set(key, value string) {
	if s.Data == nil {
		s.Data = map[string]string{}
	}
	s.Data[key] = value
}

func (s *ConversationState) Get(key string) string {
	return s.Data[key]
}

// Reset returns the state to idle and drops collected values.
func (s *ConversationState) Reset() {
	s.Step = StepIdle
	s.Data = map[string]string{}
}

func (s *ConversationState) Clone() *ConversationState {
	clone := *s
	clone.Data = make(map[string]string, len(s.Data))
	for k, v := range s.Data {
		clone.Data[k] = v
	}
	return &clone
}

// ConversationStore keeps at most one state per user. Load returns an idle
// state when nothing is stored yet.
type ConversationStore interface {
	Load(ctx context.Context, userID UserID) (*ConversationState, error)
	Save(ctx context.Context, state *ConversationState) error
}
