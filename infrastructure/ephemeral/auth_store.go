package ephemeral

import (
	"context"
	"encoding/json"
	"time"

	"github.com/MichaelMishaev/assitentWAbot-sub006/domain"
	"github.com/MichaelMishaev/assitentWAbot-sub006/infrastructure/valkey"
)

const authStateTTL = 48 * time.Hour

// AuthStateStore persists per-phone authentication state, keyed by
// auth:state:<phone>.
type AuthStateStore struct {
	client *valkey.Client
}

func NewAuthStateStore(client *valkey.Client) *AuthStateStore {
	return &AuthStateStore{client: client}
}

func (s *AuthStateStore) key(phone string) string {
	return s.client.Key("auth", "state", phone)
}

func (s *AuthStateStore) Get(ctx context.Context, phone string) (*domain.AuthState, error) {
	raw, err := s.client.Inner().Do(ctx, s.client.Inner().B().Get().Key(s.key(phone)).Build()).ToString()
	if err != nil {
		if valkey.IsNil(err) {
			return &domain.AuthState{Phone: phone, Authenticated: false}, nil
		}
		return nil, err
	}
	var st domain.AuthState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *AuthStateStore) Save(ctx context.Context, st *domain.AuthState) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	cmd := s.client.Inner().B().Set().Key(s.key(st.Phone)).Value(string(raw)).Ex(authStateTTL).Build()
	return s.client.Inner().Do(ctx, cmd).Error()
}

func (s *AuthStateStore) Clear(ctx context.Context, phone string) error {
	return s.client.Inner().Do(ctx, s.client.Inner().B().Del().Key(s.key(phone)).Build()).Error()
}
