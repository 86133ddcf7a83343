package ephemeral

import (
	"context"
	"time"

	"github.com/MichaelMishaev/assitentWAbot-sub006/infrastructure/valkey"
)

const dedupTTL = 5 * time.Minute

// DedupStore suppresses transport retries by tracking recently seen
// message ids per conversation, keyed by dedup:<conversation_id>:<message_id>.
type DedupStore struct {
	client *valkey.Client
}

func NewDedupStore(client *valkey.Client) *DedupStore {
	return &DedupStore{client: client}
}

// SeenBefore atomically records messageID as seen and reports whether
// it had already been recorded (SET NX semantics).
func (s *DedupStore) SeenBefore(ctx context.Context, conversationID, messageID string) (bool, error) {
	key := s.client.Key("dedup", conversationID, messageID)
	cmd := s.client.Inner().B().Set().Key(key).Value("1").Nx().Ex(dedupTTL).Build()
	_, err := s.client.Inner().Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsNil(err) {
			// key already existed: SET NX declined the write
			return true, nil
		}
		return false, err
	}
	return false, nil
}
