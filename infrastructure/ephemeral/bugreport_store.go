package ephemeral

import (
	"context"
	"encoding/json"
	"time"

	"github.com/MichaelMishaev/assitentWAbot-sub006/domain"
	"github.com/MichaelMishaev/assitentWAbot-sub006/infrastructure/valkey"
)

// BugReportStore is the append-only bugs:pending / bugs:fixed list
// pair created whenever an inbound message begins with "#".
type BugReportStore struct {
	client *valkey.Client
}

func NewBugReportStore(client *valkey.Client) *BugReportStore {
	return &BugReportStore{client: client}
}

func (s *BugReportStore) pendingKey() string { return s.client.Key("bugs", "pending") }
func (s *BugReportStore) fixedKey() string   { return s.client.Key("bugs", "fixed") }

func (s *BugReportStore) Append(ctx context.Context, text string) error {
	report := domain.BugReport{
		Text:      text,
		Timestamp: time.Now().UTC(),
		Status:    domain.BugReportPending,
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return err
	}
	cmd := s.client.Inner().B().Rpush().Key(s.pendingKey()).Element(string(raw)).Build()
	return s.client.Inner().Do(ctx, cmd).Error()
}

func (s *BugReportStore) ListPending(ctx context.Context) ([]domain.BugReport, error) {
	return s.list(ctx, s.pendingKey())
}

func (s *BugReportStore) ListFixed(ctx context.Context) ([]domain.BugReport, error) {
	return s.list(ctx, s.fixedKey())
}

func (s *BugReportStore) list(ctx context.Context, key string) ([]domain.BugReport, error) {
	raws, err := s.client.Inner().Do(ctx, s.client.Inner().B().Lrange().Key(key).Start(0).Stop(-1).Build()).AsStrSlice()
	if err != nil {
		return nil, err
	}
	out := make([]domain.BugReport, 0, len(raws))
	for _, raw := range raws {
		var r domain.BugReport
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
