package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/MichaelMishaev/assitentWAbot-sub006/core/clock"
	"github.com/MichaelMishaev/assitentWAbot-sub006/core/config"
	"github.com/MichaelMishaev/assitentWAbot-sub006/repository"
	"github.com/MichaelMishaev/assitentWAbot-sub006/services"
)

// Sender is the scheduler's sole outbound path, satisfied by
// egress.Adapter.
type Sender interface {
	SendText(ctx context.Context, recipient, text string) (string, error)
}

// job is one unit of delivery work pulled off the JobQueue.
type job struct {
	reminderID    string
	occurrenceUTC time.Time
}

// Worker implements spec.md §4.7's worker contract: a bounded-
// concurrency pool dispatching reminder deliveries pulled from
// JobQueue, globally rate-limited to the transport and retried with
// exponential backoff up to a fixed attempt ceiling. Grounded on the
// bot's own TaskScheduler.runWorker adaptive-sleep loop, generalized
// from a single-goroutine executor into a fan-out worker pool with a
// shared rate limiter, since spec.md requires bounded concurrency
// distinct from the teacher's single loop.
type Worker struct {
	queue     *JobQueue
	reminders *repository.ReminderRepository
	users     *repository.UserRepository
	svc       *services.ReminderService
	egress    Sender
	clock     clock.Clock
	cfg       config.SchedulerConfig

	jobs     chan job
	rateTick *time.Ticker
}

func NewWorker(queue *JobQueue, reminders *repository.ReminderRepository, users *repository.UserRepository, svc *services.ReminderService, egress Sender, clk clock.Clock, cfg config.SchedulerConfig) *Worker {
	return &Worker{
		queue:     queue,
		reminders: reminders,
		users:     users,
		svc:       svc,
		egress:    egress,
		clock:     clk,
		cfg:       cfg,
		jobs:      make(chan job, 256),
		rateTick:  time.NewTicker(time.Second / 10),
	}
}

// Run starts the poller and the bounded pool of dispatch goroutines;
// it blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	workerCount := w.cfg.WorkerCount
	if workerCount <= 0 {
		workerCount = 5
	}
	for i := 0; i < workerCount; i++ {
		go w.dispatchLoop(ctx)
	}
	w.pollLoop(ctx)
}

func (w *Worker) pollLoop(ctx context.Context) {
	interval := w.cfg.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			close(w.jobs)
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Worker) poll(ctx context.Context) {
	ids, err := w.queue.PopDue(ctx, w.clock.Now(), 100)
	if err != nil {
		logrus.WithError(err).Warn("[SCHEDULER] poll failed")
		return
	}
	for _, id := range ids {
		rem, err := w.reminders.GetByIDAny(ctx, id)
		if err != nil {
			logrus.WithError(err).WithField("reminder_id", id).Warn("[SCHEDULER] dropped job for missing reminder")
			continue
		}
		select {
		case w.jobs <- job{reminderID: id, occurrenceUTC: rem.ReminderTSUTC}:
		case <-ctx.Done():
			return
		}
	}
}

func (w *Worker) dispatchLoop(ctx context.Context) {
	for j := range w.jobs {
		<-w.rateTick.C
		w.deliverWithRetry(ctx, j)
	}
}

// deliverWithRetry implements spec.md §4.7's retry table: up to
// RetryMaxAttempts attempts, exponential backoff from RetryBaseDelay
// doubling each attempt, capped at RetryMaxDelay. On terminal failure
// the job is logged and dropped, never re-queued automatically.
func (w *Worker) deliverWithRetry(ctx context.Context, j job) {
	maxAttempts := w.cfg.RetryMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	base := w.cfg.RetryBaseDelay
	if base <= 0 {
		base = time.Second
	}
	maxDelay := w.cfg.RetryMaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}
	deadline := w.cfg.JobDeadline
	if deadline <= 0 {
		deadline = 30 * time.Second
	}

	delay := base
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		jobCtx, cancel := context.WithTimeout(ctx, deadline)
		err := w.deliver(jobCtx, j)
		cancel()
		if err == nil {
			return
		}
		logrus.WithError(err).WithFields(logrus.Fields{
			"reminder_id": j.reminderID,
			"attempt":     attempt,
		}).Warn("[SCHEDULER] delivery attempt failed")
		if attempt == maxAttempts {
			logrus.WithField("reminder_id", j.reminderID).Error("[SCHEDULER] delivery failed terminally, dropping job")
			return
		}
		time.Sleep(delay)
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

// deliver claims the occurrence via the at-most-once compare-and-set,
// sends the reminder text, and re-enqueues the next occurrence when
// the reminder recurs (handled inside ReminderService.MarkFired).
func (w *Worker) deliver(ctx context.Context, j job) error {
	claimed, err := w.svc.MarkFired(ctx, j.reminderID, j.occurrenceUTC)
	if err != nil {
		return err
	}
	if !claimed {
		// Another worker already advanced this occurrence; nothing to do.
		return nil
	}

	rem, err := w.reminders.GetByIDAny(ctx, j.reminderID)
	if err != nil {
		return err
	}
	user, err := w.users.GetByID(ctx, rem.UserID)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("⏰ תזכורת: %s", rem.Title)
	_, err = w.egress.SendText(ctx, user.Phone, text)
	return err
}
