package ephemeral

import (
	"context"
	"encoding/json"
	"time"

	"github.com/MichaelMishaev/assitentWAbot-sub006/domain"
	"github.com/MichaelMishaev/assitentWAbot-sub006/infrastructure/valkey"
	"github.com/google/uuid"
)

const dashboardTokenTTL = 15 * time.Minute

// DashboardTokenStore issues short-lived bearer tokens for the
// out-of-scope dashboard surface, keyed by dashboard:token:<token>.
type DashboardTokenStore struct {
	client *valkey.Client
}

func NewDashboardTokenStore(client *valkey.Client) *DashboardTokenStore {
	return &DashboardTokenStore{client: client}
}

func (s *DashboardTokenStore) key(token string) string {
	return s.client.Key("dashboard", "token", token)
}

func (s *DashboardTokenStore) Issue(ctx context.Context, userID string) (*domain.DashboardToken, error) {
	now := time.Now().UTC()
	tok := &domain.DashboardToken{
		Token:     uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(dashboardTokenTTL),
	}
	raw, err := json.Marshal(tok)
	if err != nil {
		return nil, err
	}
	cmd := s.client.Inner().B().Set().Key(s.key(tok.Token)).Value(string(raw)).Ex(dashboardTokenTTL).Build()
	if err := s.client.Inner().Do(ctx, cmd).Error(); err != nil {
		return nil, err
	}
	return tok, nil
}

func (s *DashboardTokenStore) Resolve(ctx context.Context, token string) (*domain.DashboardToken, error) {
	raw, err := s.client.Inner().Do(ctx, s.client.Inner().B().Get().Key(s.key(token)).Build()).ToString()
	if err != nil {
		if valkey.IsNil(err) {
			return nil, nil
		}
		return nil, err
	}
	var tok domain.DashboardToken
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}
