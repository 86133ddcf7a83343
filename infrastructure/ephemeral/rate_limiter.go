package ephemeral

import (
	"context"
	"time"

	"github.com/MichaelMishaev/assitentWAbot-sub006/infrastructure/valkey"
)

const rateWindow = time.Minute

// RateLimiter implements the per-user token-bucket check of spec
// §4.1 phase 5 with a fixed-window counter keyed by rate:<user_id>.
type RateLimiter struct {
	client *valkey.Client
	limit  int64
}

func NewRateLimiter(client *valkey.Client, limit int64) *RateLimiter {
	return &RateLimiter{client: client, limit: limit}
}

// Allow increments the current window's counter and reports whether
// the sender is still within the per-minute budget.
func (r *RateLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	key := r.client.Key("rate", userID)
	count, err := r.client.Inner().Do(ctx, r.client.Inner().B().Incr().Key(key).Build()).ToInt64()
	if err != nil {
		return false, err
	}
	if count == 1 {
		r.client.Inner().Do(ctx, r.client.Inner().B().Expire().Key(key).Seconds(int64(rateWindow.Seconds())).Build())
	}
	return count <= r.limit, nil
}
