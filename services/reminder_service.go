package services

import (
	"context"
	"strings"
	"time"

	"github.com/MichaelMishaev/assitentWAbot-sub006/core/clock"
	"github.com/MichaelMishaev/assitentWAbot-sub006/domain"
	pkgerrors "github.com/MichaelMishaev/assitentWAbot-sub006/pkg/errors"
	"github.com/MichaelMishaev/assitentWAbot-sub006/pkg/hebrew"
	"github.com/MichaelMishaev/assitentWAbot-sub006/repository"
)

// ReminderJobScheduler is the Scheduler-facing contract ReminderService
// uses to enqueue/cancel per-reminder delivery jobs (spec.md §4.7A),
// kept as an interface here so the scheduler package can depend on
// services without services depending back on scheduler.
type ReminderJobScheduler interface {
	Enqueue(ctx context.Context, reminderID string, occurrenceUTC time.Time) error
	Cancel(ctx context.Context, reminderID string) error
}

// CreateReminderInput is the validated input to ReminderService.Create.
type CreateReminderInput struct {
	UserID          string
	Title           string
	ReminderTSUTC   *time.Time
	EventStartUTC   *time.Time
	LeadTimeMinutes *int
	RecurrenceRule  *string
	Now             time.Time
}

// ReminderService implements spec.md §4.6.
type ReminderService struct {
	repo  *repository.ReminderRepository
	clock clock.Clock
	jobs  ReminderJobScheduler
}

func NewReminderService(repo *repository.ReminderRepository, clk clock.Clock, jobs ReminderJobScheduler) *ReminderService {
	return &ReminderService{repo: repo, clock: clk, jobs: jobs}
}

// gracePeriod is the small grace window under which a computed
// lead-time instant already in the past is still accepted, per
// spec.md §4.6's "in the past by more than a small grace" rule.
const gracePeriod = 2 * time.Minute

func (s *ReminderService) Create(ctx context.Context, in CreateReminderInput) (*domain.Reminder, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, pkgerrors.InvalidArgumentError("title must not be empty")
	}

	var fireAt time.Time
	switch {
	case in.LeadTimeMinutes != nil && in.EventStartUTC != nil:
		fireAt = in.EventStartUTC.Add(-time.Duration(*in.LeadTimeMinutes) * time.Minute)
		if fireAt.Before(in.Now.Add(-gracePeriod)) {
			if in.RecurrenceRule == nil {
				return nil, pkgerrors.InvalidArgumentError("computed reminder time is in the past")
			}
			next, err := nextOccurrenceAfter(*in.RecurrenceRule, fireAt, in.Now)
			if err != nil {
				return nil, err
			}
			fireAt = next
		}
	case in.ReminderTSUTC != nil:
		fireAt = *in.ReminderTSUTC
	default:
		return nil, pkgerrors.InvalidArgumentError("no reminder time could be resolved")
	}

	rem := &domain.Reminder{
		UserID:          in.UserID,
		Title:           title,
		ReminderTSUTC:   fireAt,
		RecurrenceRule:  in.RecurrenceRule,
		LeadTimeMinutes: in.LeadTimeMinutes,
		Status:          domain.ReminderActive,
	}
	if err := s.repo.Create(ctx, rem); err != nil {
		return nil, err
	}
	if s.jobs != nil {
		if err := s.jobs.Enqueue(ctx, rem.ID, rem.ReminderTSUTC); err != nil {
			return nil, err
		}
	}
	return rem, nil
}

// ReminderPatch carries the mutable subset of Reminder fields for
// Update. TimeOnly, when set with the user's zone, re-anchors just the
// time-of-day portion onto the existing date, per spec.md §4.6.
type ReminderPatch struct {
	Title          *string
	ReminderTSUTC  *time.Time
	TimeOnly       *time.Time
	Zone           *time.Location
	RecurrenceRule *string
}

func (s *ReminderService) Update(ctx context.Context, reminderID, userID string, patch ReminderPatch) (*domain.Reminder, error) {
	rem, err := s.repo.GetByID(ctx, reminderID, userID)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, pkgerrors.InvalidArgumentError("title must not be empty")
		}
		rem.Title = title
	}
	if patch.ReminderTSUTC != nil {
		rem.ReminderTSUTC = *patch.ReminderTSUTC
	} else if patch.TimeOnly != nil && patch.Zone != nil {
		local := rem.ReminderTSUTC.In(patch.Zone)
		h, m, sec := patch.TimeOnly.Clock()
		newLocal := time.Date(local.Year(), local.Month(), local.Day(), h, m, sec, 0, patch.Zone)
		rem.ReminderTSUTC = newLocal.UTC()
	}
	if patch.RecurrenceRule != nil {
		rem.RecurrenceRule = patch.RecurrenceRule
	}
	if err := s.repo.Update(ctx, rem); err != nil {
		return nil, err
	}
	if s.jobs != nil {
		if err := s.jobs.Enqueue(ctx, rem.ID, rem.ReminderTSUTC); err != nil {
			return nil, err
		}
	}
	return rem, nil
}

func (s *ReminderService) Delete(ctx context.Context, reminderID, userID string) error {
	if err := s.repo.Delete(ctx, reminderID, userID); err != nil {
		return err
	}
	if s.jobs != nil {
		return s.jobs.Cancel(ctx, reminderID)
	}
	return nil
}

func (s *ReminderService) List(ctx context.Context, userID string) ([]*domain.Reminder, error) {
	return s.repo.ListActive(ctx, userID)
}

// MarkFired implements the at-most-once claim and occurrence
// advancement described in spec.md §4.6/§4.7: it compare-and-sets
// last_fired_ts_utc, then either marks the reminder done (one-shot)
// or advances reminder_ts_utc to the next recurrence instant and
// re-enqueues the next delivery job.
func (s *ReminderService) MarkFired(ctx context.Context, reminderID string, occurrenceUTC time.Time) (claimed bool, err error) {
	rem, err := s.repo.GetByIDAny(ctx, reminderID)
	if err != nil {
		return false, err
	}

	var nextStatus string
	var nextTS *time.Time
	if rem.RecurrenceRule != nil {
		next, err := nextOccurrenceAfter(*rem.RecurrenceRule, occurrenceUTC, occurrenceUTC)
		if err != nil {
			return false, err
		}
		nextStatus = string(domain.ReminderActive)
		nextTS = &next
	} else {
		nextStatus = string(domain.ReminderDone)
	}

	claimed, err = s.repo.CompareAndSetFired(ctx, reminderID, occurrenceUTC, nextStatus, nextTS)
	if err != nil || !claimed {
		return claimed, err
	}
	if nextTS != nil && s.jobs != nil {
		if err := s.jobs.Enqueue(ctx, reminderID, *nextTS); err != nil {
			return claimed, err
		}
	}
	return claimed, nil
}

// nextOccurrenceAfter expands rrule starting at anchor and returns the
// first instant strictly after after.
func nextOccurrenceAfter(rrule string, anchor, after time.Time) (time.Time, error) {
	window := anchor.AddDate(1, 0, 0)
	instances, err := hebrew.ExpandRRULE(rrule, anchor, after.Add(time.Second), window)
	if err != nil {
		return time.Time{}, pkgerrors.InternalError(err.Error())
	}
	if len(instances) == 0 {
		return time.Time{}, pkgerrors.InvalidArgumentError("recurrence rule produced no future occurrence")
	}
	return instances[0], nil
}
