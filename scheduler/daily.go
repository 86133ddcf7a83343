package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/MichaelMishaev/assitentWAbot-sub006/core/clock"
	"github.com/MichaelMishaev/assitentWAbot-sub006/core/config"
	"github.com/MichaelMishaev/assitentWAbot-sub006/domain"
	"github.com/MichaelMishaev/assitentWAbot-sub006/infrastructure/valkey"
	"github.com/MichaelMishaev/assitentWAbot-sub006/repository"
	"github.com/MichaelMishaev/assitentWAbot-sub006/services"
)

// summaryQueue is a ZSET of pending morning-summary sends, scored by
// the user's local delivery instant converted to UTC, mirroring
// JobQueue's shape under a distinct key so reminder and summary
// deliveries never collide.
type summaryQueue struct {
	client *valkey.Client
}

func (q *summaryQueue) key() string { return q.client.Key("sched", "summaries") }

func (q *summaryQueue) enqueue(ctx context.Context, userID string, at time.Time) error {
	cmd := q.client.Inner().B().Zadd().Key(q.key()).
		ScoreMember().
		ScoreMember(float64(at.Unix()), userID).
		Build()
	return q.client.Inner().Do(ctx, cmd).Error()
}

func (q *summaryQueue) popDue(ctx context.Context, now time.Time) ([]string, error) {
	cmd := q.client.Inner().B().Zrangebyscore().Key(q.key()).
		Min("-inf").Max(fmt.Sprintf("%d", now.Unix())).Build()
	ids, err := q.client.Inner().Do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		rem := q.client.Inner().B().Zrem().Key(q.key()).Member(id).Build()
		if err := q.client.Inner().Do(ctx, rem).Error(); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// DailyScheduler implements spec.md §4.7.B: once per day at the
// operator-configured UTC instant it scans every user with
// morning-summary enabled for today's local weekday and enqueues
// their digest send at their configured local time; a second,
// finer-grained poller dispatches each digest once its instant
// arrives.
type DailyScheduler struct {
	users     *repository.UserRepository
	events    *services.EventService
	reminders *services.ReminderService
	tasks     *services.TaskService
	egress    Sender
	clock     clock.Clock
	cfg       config.SchedulerConfig
	queue     *summaryQueue

	lastScanDate string
}

func NewDailyScheduler(client *valkey.Client, users *repository.UserRepository, events *services.EventService, reminders *services.ReminderService, tasks *services.TaskService, egress Sender, clk clock.Clock, cfg config.SchedulerConfig) *DailyScheduler {
	return &DailyScheduler{
		users:     users,
		events:    events,
		reminders: reminders,
		tasks:     tasks,
		egress:    egress,
		clock:     clk,
		cfg:       cfg,
		queue:     &summaryQueue{client: client},
	}
}

// Run blocks, checking every minute whether it is time for the daily
// scan and whether any queued digest is due.
func (d *DailyScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

func (d *DailyScheduler) tick(ctx context.Context) {
	now := d.clock.Now().UTC()
	target := d.cfg.MorningSummaryUTC
	if target == "" {
		target = "09:00"
	}
	if now.Format("15:04") == target && now.Format("2006-01-02") != d.lastScanDate {
		d.lastScanDate = now.Format("2006-01-02")
		d.scan(ctx, now)
	}
	d.dispatchDue(ctx, now)
}

// scan enqueues today's digest send for every enabled, eligible user.
func (d *DailyScheduler) scan(ctx context.Context, now time.Time) {
	users, err := d.users.ListAll(ctx)
	if err != nil {
		logrus.WithError(err).Error("[SCHEDULER] daily scan failed to list users")
		return
	}
	for _, u := range users {
		if !u.MorningNotification.Enabled {
			continue
		}
		loc, err := time.LoadLocation(u.Timezone)
		if err != nil {
			loc = time.UTC
		}
		local := now.In(loc)
		if u.MorningNotification.DayOfWeekBit&(1<<uint(local.Weekday())) == 0 {
			continue
		}
		hh, mm := 8, 0
		if _, err := fmt.Sscanf(u.MorningNotification.Time, "%d:%d", &hh, &mm); err != nil {
			hh, mm = 8, 0
		}
		sendAt := time.Date(local.Year(), local.Month(), local.Day(), hh, mm, 0, 0, loc).UTC()
		if err := d.queue.enqueue(ctx, u.ID, sendAt); err != nil {
			logrus.WithError(err).WithField("user_id", u.ID).Warn("[SCHEDULER] failed to enqueue morning summary")
		}
	}
}

func (d *DailyScheduler) dispatchDue(ctx context.Context, now time.Time) {
	ids, err := d.queue.popDue(ctx, now)
	if err != nil {
		logrus.WithError(err).Warn("[SCHEDULER] failed to poll due summaries")
		return
	}
	for _, userID := range ids {
		if err := d.sendDigest(ctx, userID); err != nil {
			logrus.WithError(err).WithField("user_id", userID).Warn("[SCHEDULER] morning summary delivery failed")
		}
	}
}

// sendDigest renders today's events, due reminders, and (if the user
// opted in) open tasks into one message, per SPEC_FULL.md's
// morning-summary content supplement.
func (d *DailyScheduler) sendDigest(ctx context.Context, userID string) error {
	u, err := d.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		loc = time.UTC
	}
	now := d.clock.Now()

	var b strings.Builder
	b.WriteString("☀️ בוקר טוב! הנה הסיכום שלך להיום:\n")

	events, err := d.events.ListForDay(ctx, userID, now, loc)
	if err == nil && len(events) > 0 {
		b.WriteString("\nאירועים היום:\n")
		for _, e := range events {
			fmt.Fprintf(&b, "- %s (%s)\n", e.Title, e.StartTSUTC.In(loc).Format("15:04"))
		}
	}

	reminders, err := d.reminders.List(ctx, userID)
	if err == nil {
		dayEnd := time.Date(now.In(loc).Year(), now.In(loc).Month(), now.In(loc).Day(), 23, 59, 59, 0, loc)
		var due []*domain.Reminder
		for _, rem := range reminders {
			if !rem.ReminderTSUTC.After(dayEnd.UTC()) {
				due = append(due, rem)
			}
		}
		if len(due) > 0 {
			b.WriteString("\nתזכורות להיום:\n")
			for _, rem := range due {
				fmt.Fprintf(&b, "- %s (%s)\n", rem.Title, rem.ReminderTSUTC.In(loc).Format("15:04"))
			}
		}
	}

	if u.MorningNotification.IncludeMemos {
		tasks, err := d.tasks.List(ctx, userID)
		if err == nil {
			var open []*domain.Task
			for _, t := range tasks {
				if t.Status == domain.TaskPending || t.Status == domain.TaskInProgress {
					open = append(open, t)
				}
			}
			if len(open) > 0 {
				b.WriteString("\nמשימות פתוחות:\n")
				for _, t := range open {
					fmt.Fprintf(&b, "- %s\n", t.Title)
				}
			}
		}
	}

	_, err = d.egress.SendText(ctx, u.Phone, b.String())
	return err
}
