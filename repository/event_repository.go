package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/MichaelMishaev/assitentWAbot-sub006/domain"
	pkgerrors "github.com/MichaelMishaev/assitentWAbot-sub006/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type eventModel struct {
	ID             string `gorm:"primaryKey"`
	UserID         string `gorm:"index:idx_events_user_start,priority:1;not null"`
	Title          string `gorm:"not null"`
	StartTSUTC     time.Time `gorm:"index:idx_events_user_start,priority:2;not null"`
	EndTSUTC       *time.Time `gorm:"index:idx_events_user_end"`
	Location       *string
	Source         string `gorm:"default:'user_input'"`
	RecurrenceRule *string
	Notes          string    `gorm:"type:text;not null;default:'[]'"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (eventModel) TableName() string { return "events" }

type eventParticipantModel struct {
	ID      string `gorm:"primaryKey"`
	EventID string `gorm:"uniqueIndex:idx_participant_event_name,priority:1;not null"`
	Name    string `gorm:"uniqueIndex:idx_participant_event_name,priority:2;not null"`
	Role    string `gorm:"default:'companion'"`
	Phone   *string
}

func (eventParticipantModel) TableName() string { return "event_participants" }

// EventRepository is the Relational Store gateway for events and
// their participants.
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, e *domain.Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	if e.Notes == nil {
		e.Notes = []domain.EventComment{}
	}
	m, err := toEventModel(e)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return pkgerrors.InternalError(err.Error())
	}
	return nil
}

func (r *EventRepository) GetByID(ctx context.Context, id, userID string) (*domain.Event, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, pkgerrors.NotFoundError("event not found")
	}
	var m eventModel
	if err := r.db.WithContext(ctx).First(&m, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.NotFoundError("event not found")
		}
		return nil, pkgerrors.InternalError(err.Error())
	}
	return fromEventModel(m)
}

// ListInRange returns events for userID whose start falls in the
// half-open interval [start, end).
func (r *EventRepository) ListInRange(ctx context.Context, userID string, start, end time.Time) ([]*domain.Event, error) {
	var models []eventModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND start_ts_utc >= ? AND start_ts_utc < ?", userID, start, end).
		Order("start_ts_utc ASC").
		Find(&models).Error; err != nil {
		return nil, pkgerrors.InternalError(err.Error())
	}
	return fromEventModels(models)
}

func (r *EventRepository) ListUpcoming(ctx context.Context, userID string, now time.Time, limit int) ([]*domain.Event, error) {
	q := r.db.WithContext(ctx).Where("user_id = ? AND start_ts_utc >= ?", userID, now).Order("start_ts_utc ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var models []eventModel
	if err := q.Find(&models).Error; err != nil {
		return nil, pkgerrors.InternalError(err.Error())
	}
	return fromEventModels(models)
}

// Overlapping returns events whose [start, coalesce(end,start+defaultDur))
// intersects [start,end).
func (r *EventRepository) Overlapping(ctx context.Context, userID string, start, end time.Time, defaultDurMinutes int) ([]*domain.Event, error) {
	var models []eventModel
	defaultEndExpr := "datetime(start_ts_utc, '+' || ? || ' minutes')"
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND start_ts_utc < ? AND COALESCE(end_ts_utc, "+defaultEndExpr+") > ?",
			userID, end, defaultDurMinutes, start).
		Find(&models).Error; err != nil {
		return nil, pkgerrors.InternalError(err.Error())
	}
	return fromEventModels(models)
}

func (r *EventRepository) Search(ctx context.Context, userID, likeQuery string) ([]*domain.Event, error) {
	var models []eventModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND title LIKE ?", userID, "%"+likeQuery+"%").
		Order("start_ts_utc ASC").
		Find(&models).Error; err != nil {
		return nil, pkgerrors.InternalError(err.Error())
	}
	return fromEventModels(models)
}

func (r *EventRepository) Update(ctx context.Context, e *domain.Event) error {
	e.UpdatedAt = time.Now().UTC()
	m, err := toEventModel(e)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Model(&eventModel{ID: e.ID}).Where("user_id = ?", e.UserID).Select("*").Updates(&m)
	if result.Error != nil {
		return pkgerrors.InternalError(result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return pkgerrors.NotFoundError("event not found")
	}
	return nil
}

func (r *EventRepository) Delete(ctx context.Context, id, userID string) error {
	result := r.db.WithContext(ctx).Delete(&eventModel{}, "id = ? AND user_id = ?", id, userID)
	if result.Error != nil {
		return pkgerrors.InternalError(result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return pkgerrors.NotFoundError("event not found")
	}
	r.db.WithContext(ctx).Delete(&eventParticipantModel{}, "event_id = ?", id)
	return nil
}

func (r *EventRepository) AddParticipant(ctx context.Context, p *domain.EventParticipant) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	m := eventParticipantModel{ID: p.ID, EventID: p.EventID, Name: p.Name, Role: string(p.Role), Phone: p.Phone}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return pkgerrors.InternalError(err.Error())
	}
	return nil
}

func (r *EventRepository) ListParticipants(ctx context.Context, eventID string) ([]*domain.EventParticipant, error) {
	var models []eventParticipantModel
	if err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Find(&models).Error; err != nil {
		return nil, pkgerrors.InternalError(err.Error())
	}
	out := make([]*domain.EventParticipant, 0, len(models))
	for _, m := range models {
		out = append(out, &domain.EventParticipant{ID: m.ID, EventID: m.EventID, Name: m.Name, Role: domain.ParticipantRole(m.Role), Phone: m.Phone})
	}
	return out, nil
}

func toEventModel(e *domain.Event) (eventModel, error) {
	notes := e.Notes
	if notes == nil {
		notes = []domain.EventComment{}
	}
	notesJSON, err := json.Marshal(notes)
	if err != nil {
		return eventModel{}, pkgerrors.InternalError("marshal notes: " + err.Error())
	}
	var rule *string
	if e.RecurrenceRule != nil {
		rule = e.RecurrenceRule
	}
	return eventModel{
		ID:             e.ID,
		UserID:         e.UserID,
		Title:          e.Title,
		StartTSUTC:     e.StartTSUTC,
		EndTSUTC:       e.EndTSUTC,
		Location:       e.Location,
		Source:         string(e.Source),
		RecurrenceRule: rule,
		Notes:          string(notesJSON),
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}, nil
}

func fromEventModel(m eventModel) (*domain.Event, error) {
	e := &domain.Event{
		ID:             m.ID,
		UserID:         m.UserID,
		Title:          m.Title,
		StartTSUTC:     m.StartTSUTC,
		EndTSUTC:       m.EndTSUTC,
		Location:       m.Location,
		Source:         domain.EventSource(m.Source),
		RecurrenceRule: m.RecurrenceRule,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.Notes != "" {
		_ = json.Unmarshal([]byte(m.Notes), &e.Notes)
	}
	if e.Notes == nil {
		e.Notes = []domain.EventComment{}
	}
	return e, nil
}

func fromEventModels(models []eventModel) ([]*domain.Event, error) {
	out := make([]*domain.Event, 0, len(models))
	for _, m := range models {
		e, err := fromEventModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
