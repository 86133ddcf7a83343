package ephemeral

import (
	"context"
	"time"

	"github.com/MichaelMishaev/assitentWAbot-sub006/infrastructure/valkey"
)

const quoteIndexTTL = 7 * 24 * time.Hour

// QuoteIndexStore maps an outbound message id that told the user about
// a specific event back to that event's id, keyed by
// quote:<message_id>. The Router records one entry whenever Egress
// sends an event-related reply, and resolves it back whenever an
// inbound message quotes that reply, realizing spec.md §8 scenarios
// 4-5's "user quotes event E" lead-time reminder flow.
type QuoteIndexStore struct {
	client *valkey.Client
}

func NewQuoteIndexStore(client *valkey.Client) *QuoteIndexStore {
	return &QuoteIndexStore{client: client}
}

func (s *QuoteIndexStore) key(messageID string) string {
	return s.client.Key("quote", messageID)
}

// Record associates messageID with eventID.
func (s *QuoteIndexStore) Record(ctx context.Context, messageID, eventID string) error {
	cmd := s.client.Inner().B().Set().Key(s.key(messageID)).Value(eventID).Ex(quoteIndexTTL).Build()
	return s.client.Inner().Do(ctx, cmd).Error()
}

// Resolve returns the event id messageID was recorded against, if any.
func (s *QuoteIndexStore) Resolve(ctx context.Context, messageID string) (string, bool, error) {
	raw, err := s.client.Inner().Do(ctx, s.client.Inner().B().Get().Key(s.key(messageID)).Build()).ToString()
	if err != nil {
		if valkey.IsNil(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return raw, true, nil
}
