// Package services implements the domain-level operation contracts
// of spec.md §4.5-§4.8: Event, Reminder, Task, Contact and
// Authentication, each owning its table and enforcing ownership,
// validation, and side-effect scheduling, grounded on the bot's
// own usecase/* and botengine/tools/only-clients/* handler style.
package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MichaelMishaev/assitentWAbot-sub006/core/clock"
	"github.com/MichaelMishaev/assitentWAbot-sub006/domain"
	pkgerrors "github.com/MichaelMishaev/assitentWAbot-sub006/pkg/errors"
	"github.com/MichaelMishaev/assitentWAbot-sub006/pkg/hebrew"
	"github.com/MichaelMishaev/assitentWAbot-sub006/repository"
	"github.com/google/uuid"
)

const maxTitleLength = 500

// CreateEventInput is the validated input to EventService.Create.
type CreateEventInput struct {
	UserID         string
	Title          string
	StartTSUTC     time.Time
	EndTSUTC       *time.Time
	Location       *string
	Source         domain.EventSource
	RecurrenceRule *string
	ContactName    *string
	AllowPastDates bool
	// ConfirmedOverlap is set by the Router after the user answers
	// "yes" to an overlap-confirmation prompt.
	ConfirmedOverlap bool
}

// EventService implements spec.md §4.5.
type EventService struct {
	repo                   *repository.EventRepository
	contacts               *ContactService
	clock                  clock.Clock
	defaultDurationMinutes int
}

func NewEventService(repo *repository.EventRepository, contacts *ContactService, clk clock.Clock, defaultDurationMinutes int) *EventService {
	return &EventService{repo: repo, contacts: contacts, clock: clk, defaultDurationMinutes: defaultDurationMinutes}
}

// Create validates input, runs the overlap check, and persists a new
// Event. Overlaps are returned as a Conflict carrying the overlapping
// events unless the caller already confirmed via ConfirmedOverlap.
func (s *EventService) Create(ctx context.Context, in CreateEventInput) (*domain.Event, []*domain.Event, error) {
	title := truncate(strings.TrimSpace(in.Title), maxTitleLength)
	if title == "" {
		return nil, nil, pkgerrors.InvalidArgumentError("title must not be empty")
	}
	if in.EndTSUTC != nil && in.EndTSUTC.Before(in.StartTSUTC) {
		return nil, nil, pkgerrors.InvalidArgumentError("end time must not be before start time")
	}
	if !in.AllowPastDates && in.StartTSUTC.Before(s.clock.Now()) {
		return nil, nil, pkgerrors.InvalidArgumentError("cannot create an event in the past")
	}
	if in.RecurrenceRule != nil {
		if _, ok := hebrew.GenerateRRULE(*in.RecurrenceRule); !ok {
			if !isValidRawRRULE(*in.RecurrenceRule) {
				return nil, nil, pkgerrors.InvalidArgumentError("unrecognized recurrence rule")
			}
		}
	}

	end := in.EndTSUTC
	if end == nil {
		derived := in.StartTSUTC.Add(time.Duration(s.defaultDurationMinutes) * time.Minute)
		end = &derived
	}

	if !in.ConfirmedOverlap {
		overlaps, err := s.repo.Overlapping(ctx, in.UserID, in.StartTSUTC, *end, s.defaultDurationMinutes)
		if err != nil {
			return nil, nil, err
		}
		if len(overlaps) > 0 {
			return nil, overlaps, pkgerrors.ConflictError("event overlaps with existing events")
		}
	}

	event := &domain.Event{
		UserID:         in.UserID,
		Title:          title,
		StartTSUTC:     in.StartTSUTC,
		EndTSUTC:       in.EndTSUTC,
		Location:       in.Location,
		Source:         in.Source,
		RecurrenceRule: in.RecurrenceRule,
		Notes:          []domain.EventComment{},
	}
	if event.Source == "" {
		event.Source = domain.EventSourceUserInput
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, nil, err
	}
	if in.ContactName != nil && strings.TrimSpace(*in.ContactName) != "" {
		_ = s.repo.AddParticipant(ctx, &domain.EventParticipant{
			EventID: event.ID,
			Name:    *in.ContactName,
			Role:    domain.RoleCompanion,
		})
	}
	return event, nil, nil
}

func (s *EventService) GetByID(ctx context.Context, eventID, userID string) (*domain.Event, error) {
	if _, err := uuid.Parse(eventID); err != nil {
		return nil, pkgerrors.NotFoundError("event not found")
	}
	return s.repo.GetByID(ctx, eventID, userID)
}

func (s *EventService) ListUpcoming(ctx context.Context, userID string, limit int) ([]*domain.Event, error) {
	return s.repo.ListUpcoming(ctx, userID, s.clock.Now(), limit)
}

// ListInRange returns events with start_ts_utc in the half-open
// interval [start, end).
func (s *EventService) ListInRange(ctx context.Context, userID string, start, end time.Time) ([]*domain.Event, error) {
	return s.repo.ListInRange(ctx, userID, start, end)
}

func (s *EventService) ListForDay(ctx context.Context, userID string, dateInZone time.Time, loc *time.Location) ([]*domain.Event, error) {
	dayStart := time.Date(dateInZone.Year(), dateInZone.Month(), dateInZone.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)
	return s.ListInRange(ctx, userID, dayStart.UTC(), dayEnd.UTC())
}

// ListForWeek returns events in the Sunday-Saturday week containing
// anyDateInWeek, per spec.md §8's week-range law.
func (s *EventService) ListForWeek(ctx context.Context, userID string, anyDateInWeek time.Time, loc *time.Location) ([]*domain.Event, error) {
	local := anyDateInWeek.In(loc)
	offset := int(local.Weekday())
	sunday := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -offset)
	nextSunday := sunday.AddDate(0, 0, 7)
	return s.ListInRange(ctx, userID, sunday.UTC(), nextSunday.UTC())
}

func (s *EventService) Search(ctx context.Context, userID, query string) ([]*domain.Event, error) {
	events, err := s.repo.Search(ctx, userID, query)
	if err != nil {
		return nil, err
	}
	titles := make([]string, len(events))
	for i, e := range events {
		titles[i] = e.Title
	}
	ranked := hebrew.Rank(query, titles)
	out := make([]*domain.Event, 0, len(events))
	for _, m := range ranked {
		if m.Score >= 0.45 {
			out = append(out, events[m.Index])
		}
	}
	return out, nil
}

// EventPatch carries the mutable subset of Event fields for Update.
type EventPatch struct {
	Title          *string
	StartTSUTC     *time.Time
	EndTSUTC       *time.Time
	Location       *string
	RecurrenceRule *string
}

func (s *EventService) Update(ctx context.Context, eventID, userID string, patch EventPatch) (*domain.Event, error) {
	event, err := s.repo.GetByID(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		title := truncate(strings.TrimSpace(*patch.Title), maxTitleLength)
		if title == "" {
			return nil, pkgerrors.InvalidArgumentError("title must not be empty")
		}
		event.Title = title
	}
	if patch.StartTSUTC != nil {
		event.StartTSUTC = *patch.StartTSUTC
	}
	if patch.EndTSUTC != nil {
		event.EndTSUTC = patch.EndTSUTC
	}
	if event.EndTSUTC != nil && event.EndTSUTC.Before(event.StartTSUTC) {
		return nil, pkgerrors.InvalidArgumentError("end time must not be before start time")
	}
	if patch.Location != nil {
		event.Location = patch.Location
	}
	if patch.RecurrenceRule != nil {
		event.RecurrenceRule = patch.RecurrenceRule
	}
	if err := s.repo.Update(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *EventService) Delete(ctx context.Context, eventID, userID string) error {
	return s.repo.Delete(ctx, eventID, userID)
}

func (s *EventService) OverlapCheck(ctx context.Context, userID string, start, end time.Time) ([]*domain.Event, error) {
	return s.repo.Overlapping(ctx, userID, start, end, s.defaultDurationMinutes)
}

func (s *EventService) AddComment(ctx context.Context, eventID, userID, text string, priority domain.CommentPriority, tags []string) (*domain.EventComment, error) {
	event, err := s.repo.GetByID(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if priority == "" {
		priority = domain.PriorityNormal
	}
	comment := domain.EventComment{
		ID:           uuid.New().String(),
		Text:         text,
		TimestampUTC: s.clock.Now(),
		Priority:     priority,
		Tags:         tags,
	}
	event.Notes = append(event.Notes, comment)
	if err := s.repo.Update(ctx, event); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (s *EventService) DeleteCommentByIndex(ctx context.Context, eventID, userID string, index1Based int) error {
	event, err := s.repo.GetByID(ctx, eventID, userID)
	if err != nil {
		return err
	}
	i := index1Based - 1
	if i < 0 || i >= len(event.Notes) {
		return pkgerrors.InvalidArgumentError("comment index out of range")
	}
	event.Notes = append(event.Notes[:i], event.Notes[i+1:]...)
	return s.repo.Update(ctx, event)
}

func (s *EventService) DeleteLastComment(ctx context.Context, eventID, userID string) error {
	event, err := s.repo.GetByID(ctx, eventID, userID)
	if err != nil {
		return err
	}
	if len(event.Notes) == 0 {
		return pkgerrors.NotFoundError("no comments to delete")
	}
	event.Notes = event.Notes[:len(event.Notes)-1]
	return s.repo.Update(ctx, event)
}

func (s *EventService) DeleteCommentByText(ctx context.Context, eventID, userID, partialText string) error {
	event, err := s.repo.GetByID(ctx, eventID, userID)
	if err != nil {
		return err
	}
	texts := make([]string, len(event.Notes))
	for i, n := range event.Notes {
		texts[i] = n.Text
	}
	match, ambiguous := hebrew.BestMatch(partialText, texts, 0.5)
	if ambiguous != nil {
		return pkgerrors.ConflictError("ambiguous comment match")
	}
	if match == nil {
		return pkgerrors.NotFoundError("no matching comment")
	}
	event.Notes = append(event.Notes[:match.Index], event.Notes[match.Index+1:]...)
	return s.repo.Update(ctx, event)
}

func (s *EventService) UpdateComment(ctx context.Context, eventID, userID, commentID string, text *string, priority *domain.CommentPriority) error {
	event, err := s.repo.GetByID(ctx, eventID, userID)
	if err != nil {
		return err
	}
	for i := range event.Notes {
		if event.Notes[i].ID == commentID {
			if text != nil {
				event.Notes[i].Text = *text
			}
			if priority != nil {
				event.Notes[i].Priority = *priority
			}
			return s.repo.Update(ctx, event)
		}
	}
	return pkgerrors.NotFoundError("comment not found")
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}

func isValidRawRRULE(s string) bool {
	return strings.HasPrefix(s, "FREQ=")
}
