// Package scheduler implements the Reminder Scheduler & Worker of
// spec.md §4.7: a durable per-reminder delivery job queue backed by a
// Valkey sorted set keyed on occurrence UTC instant, a bounded worker
// pool with global rate limiting and exponential-backoff retry, and
// the daily morning-summary scheduler. Grounded on the bot's own
// infrastructure/ephemeral store shape (TTL-keyed Valkey records)
// generalized from string/hash values to a ZSET ordered by execution
// time, the natural structure for a delayed job queue.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/MichaelMishaev/assitentWAbot-sub006/infrastructure/valkey"
)

// JobQueue is the durable, execution-time-ordered queue spec.md §4.7.A
// requires: jobs are ZADD'd with their occurrence instant as score and
// popped by PopDue once that instant has passed.
type JobQueue struct {
	client *valkey.Client
}

func NewJobQueue(client *valkey.Client) *JobQueue {
	return &JobQueue{client: client}
}

func (q *JobQueue) key() string { return q.client.Key("sched", "reminders") }

// Enqueue schedules reminderID to fire at occurrenceUTC, replacing
// any previously scheduled instant for the same reminder (ZADD
// overwrites an existing member's score).
func (q *JobQueue) Enqueue(ctx context.Context, reminderID string, occurrenceUTC time.Time) error {
	cmd := q.client.Inner().B().Zadd().Key(q.key()).
		ScoreMember().
		ScoreMember(float64(occurrenceUTC.Unix()), reminderID).
		Build()
	return q.client.Inner().Do(ctx, cmd).Error()
}

// Cancel removes reminderID's pending job, if any, per spec.md §4.7.A's
// delete-cancels-pending-job rule.
func (q *JobQueue) Cancel(ctx context.Context, reminderID string) error {
	cmd := q.client.Inner().B().Zrem().Key(q.key()).Member(reminderID).Build()
	return q.client.Inner().Do(ctx, cmd).Error()
}

// PopDue claims up to limit reminder ids whose scheduled instant is at
// or before now, removing each from the queue with its own ZREM after
// the range read. The read and the removals are separate commands, not
// one atomic step, so two concurrent pollers can both read the same
// id; ReminderService.MarkFired's compare-and-set is what keeps
// delivery at most once.
func (q *JobQueue) PopDue(ctx context.Context, now time.Time, limit int64) ([]string, error) {
	cmd := q.client.Inner().B().Zrangebyscore().Key(q.key()).
		Min("-inf").Max(fmt.Sprintf("%d", now.Unix())).
		Limit(0, limit).Build()
	ids, err := q.client.Inner().Do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		remCmd := q.client.Inner().B().Zrem().Key(q.key()).Member(id).Build()
		if err := q.client.Inner().Do(ctx, remCmd).Error(); err != nil {
			return nil, err
		}
	}
	return ids, nil
}
