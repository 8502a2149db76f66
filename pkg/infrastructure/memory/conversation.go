package memory

import (
	"context"
	"sync"
	"time"

	"chatshop/pkg/domain/model"
)

// ConversationStore keeps dialog states in a map keyed by user.
type ConversationStore struct {
	mu     sync.Mutex
	states map[model.UserID]*model.ConversationState
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{states: make(map[model.UserID]*model.ConversationState)}
}

func (s *ConversationStore) Load(_ context.Context, userID model.UserID) (*model.ConversationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[userID]
	if !ok {
		return model.NewConversationState(userID), nil
	}
	return state.Clone(), nil
}

func (s *ConversationStore) Save(_ context.Context, state *model.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := state.Clone()
	clone.UpdatedAt = time.Now().UTC()
	s.states[state.UserID] = clone
	return nil
}

// Len reports how many users have a stored state.
func (s *ConversationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}
