// Package ephemeral implements every TTL-keyed store in spec §6's
// key layout on top of the shared Valkey client: conversation state,
// auth state, dashboard tokens, dedup records, rate-limit counters,
// and the bug-report list.
package ephemeral

import (
	"context"
	"encoding/json"
	"time"

	"github.com/MichaelMishaev/assitentWAbot-sub006/domain"
	"github.com/MichaelMishaev/assitentWAbot-sub006/infrastructure/valkey"
)

const sessionTTL = 30 * time.Minute

// SessionStore persists per-user conversational state, keyed by
// conv:state:<user_id>, matching the SessionStore interface the bot's
// session orchestrator depends on.
type SessionStore struct {
	client *valkey.Client
}

func NewSessionStore(client *valkey.Client) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) key(userID string) string {
	return s.client.Key("conv", "state", userID)
}

func (s *SessionStore) Get(ctx context.Context, userID string) (*domain.Session, error) {
	raw, err := s.client.Inner().Do(ctx, s.client.Inner().B().Get().Key(s.key(userID)).Build()).ToString()
	if err != nil {
		if valkey.IsNil(err) {
			return nil, nil
		}
		return nil, err
	}
	var sess domain.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *SessionStore) Save(ctx context.Context, sess *domain.Session) error {
	sess.LastActivityTS = time.Now().UTC()
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	cmd := s.client.Inner().B().Set().Key(s.key(sess.UserID)).Value(string(raw)).Ex(sessionTTL).Build()
	return s.client.Inner().Do(ctx, cmd).Error()
}

func (s *SessionStore) Delete(ctx context.Context, userID string) error {
	return s.client.Inner().Do(ctx, s.client.Inner().B().Del().Key(s.key(userID)).Build()).Error()
}

// Reset loads (or creates) a Session for userID and returns it pinned
// to MAIN_MENU with an empty context, used by /menu, /cancel and
// inactivity-timeout reversion.
func (s *SessionStore) Reset(ctx context.Context, userID string) (*domain.Session, error) {
	sess := &domain.Session{
		UserID:  userID,
		State:   domain.StateMainMenu,
		Context: map[string]string{},
	}
	if err := s.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}
