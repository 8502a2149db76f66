// Package redis persists dialog states so that a half-finished form
// survives a restart of the bot process.
package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"chatshop/pkg/domain/model"
)

type stateRecord struct {
	Step      string            `json:"step"`
	Data      map[string]string `json:"data,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// ConversationStore keeps one JSON value per user under prefix+userID.
// Idle states are deleted instead of stored. A zero ttl never expires them.
type ConversationStore struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

func NewConversationStore(client *goredis.Client, prefix string, ttl time.Duration) *ConversationStore {
	return &ConversationStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *ConversationStore) key(userID model.UserID) string {
	return s.prefix + strconv.FormatInt(int64(userID), 10)
}

func (s *ConversationStore) Load(ctx context.Context, userID model.UserID) (*model.ConversationState, error) {
	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return model.NewConversationState(userID), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load conversation state")
	}

	var record stateRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, errors.Wrap(err, "decode conversation state")
	}
	state := model.NewConversationState(userID)
	state.Step = model.Step(record.Step)
	state.UpdatedAt = record.UpdatedAt
	for k, v := range record.Data {
		state.Set(k, v)
	}
	return state, nil
}

func (s *ConversationStore) Save(ctx context.Context, state *model.ConversationState) error {
	if state.Step == model.StepIdle && len(state.Data) == 0 {
		return errors.Wrap(s.client.Del(ctx, s.key(state.UserID)).Err(), "clear conversation state")
	}

	data, err := json.Marshal(stateRecord{
		Step:      string(state.Step),
		Data:      state.Data,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return errors.Wrap(err, "encode conversation state")
	}
	return errors.Wrap(s.client.Set(ctx, s.key(state.UserID), data, s.ttl).Err(), "save conversation state")
}

// Ping checks that the server is reachable.
func (s *ConversationStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
