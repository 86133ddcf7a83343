package repository

import (
	"context"
	"time"

	"github.com/MichaelMishaev/assitentWAbot-sub006/domain"
	pkgerrors "github.com/MichaelMishaev/assitentWAbot-sub006/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type reminderModel struct {
	ID              string `gorm:"primaryKey"`
	UserID          string `gorm:"index:idx_reminders_user_ts,priority:1;not null"`
	Title           string `gorm:"not null"`
	ReminderTSUTC   time.Time `gorm:"index:idx_reminders_user_ts,priority:2;not null"`
	RecurrenceRule  *string
	LeadTimeMinutes *int
	Status          string `gorm:"default:'active'"`
	LastFiredTSUTC  *time.Time
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

func (reminderModel) TableName() string { return "reminders" }

// ReminderRepository is the Relational Store gateway for the
// reminders table, including the compare-and-set write used by the
// worker for at-most-once delivery.
type ReminderRepository struct {
	db *gorm.DB
}

func NewReminderRepository(db *gorm.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

func (r *ReminderRepository) Create(ctx context.Context, rem *domain.Reminder) error {
	if rem.ID == "" {
		rem.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	rem.CreatedAt, rem.UpdatedAt = now, now
	m := toReminderModel(rem)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return pkgerrors.InternalError(err.Error())
	}
	return nil
}

func (r *ReminderRepository) GetByID(ctx context.Context, id, userID string) (*domain.Reminder, error) {
	var m reminderModel
	if err := r.db.WithContext(ctx).First(&m, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.NotFoundError("reminder not found")
		}
		return nil, pkgerrors.InternalError(err.Error())
	}
	return fromReminderModel(m), nil
}

// GetByIDAny fetches a reminder regardless of owner, for use by the
// scheduler worker which has no per-request AuthState to check against.
func (r *ReminderRepository) GetByIDAny(ctx context.Context, id string) (*domain.Reminder, error) {
	var m reminderModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.NotFoundError("reminder not found")
		}
		return nil, pkgerrors.InternalError(err.Error())
	}
	return fromReminderModel(m), nil
}

func (r *ReminderRepository) ListActive(ctx context.Context, userID string) ([]*domain.Reminder, error) {
	var models []reminderModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, string(domain.ReminderActive)).
		Order("reminder_ts_utc ASC").
		Find(&models).Error; err != nil {
		return nil, pkgerrors.InternalError(err.Error())
	}
	out := make([]*domain.Reminder, 0, len(models))
	for _, m := range models {
		out = append(out, fromReminderModel(m))
	}
	return out, nil
}

// DueBefore returns active reminders whose reminder_ts_utc <= cutoff,
// the pool the scheduler's promoter draws from.
func (r *ReminderRepository) DueBefore(ctx context.Context, cutoff time.Time) ([]*domain.Reminder, error) {
	var models []reminderModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND reminder_ts_utc <= ?", string(domain.ReminderActive), cutoff).
		Find(&models).Error; err != nil {
		return nil, pkgerrors.InternalError(err.Error())
	}
	out := make([]*domain.Reminder, 0, len(models))
	for _, m := range models {
		out = append(out, fromReminderModel(m))
	}
	return out, nil
}

func (r *ReminderRepository) Update(ctx context.Context, rem *domain.Reminder) error {
	rem.UpdatedAt = time.Now().UTC()
	m := toReminderModel(rem)
	result := r.db.WithContext(ctx).Model(&reminderModel{ID: rem.ID}).Where("user_id = ?", rem.UserID).Select("*").Updates(&m)
	if result.Error != nil {
		return pkgerrors.InternalError(result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return pkgerrors.NotFoundError("reminder not found")
	}
	return nil
}

func (r *ReminderRepository) Delete(ctx context.Context, id, userID string) error {
	result := r.db.WithContext(ctx).
		Model(&reminderModel{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("status", string(domain.ReminderCancelled))
	if result.Error != nil {
		return pkgerrors.InternalError(result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return pkgerrors.NotFoundError("reminder not found")
	}
	return nil
}

// CompareAndSetFired is the at-most-once-per-occurrence primitive:
// it advances last_fired_ts_utc only if the row's current
// last_fired_ts_utc is not already equal to occurrenceUTC, returning
// false when another worker already won the race.
func (r *ReminderRepository) CompareAndSetFired(ctx context.Context, id string, occurrenceUTC time.Time, nextStatus string, nextTSUTC *time.Time) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&reminderModel{}).
		Where("id = ? AND (last_fired_ts_utc IS NULL OR last_fired_ts_utc <> ?)", id, occurrenceUTC)

	updates := map[string]interface{}{
		"last_fired_ts_utc": occurrenceUTC,
		"status":            nextStatus,
		"updated_at":        time.Now().UTC(),
	}
	if nextTSUTC != nil {
		updates["reminder_ts_utc"] = *nextTSUTC
	}
	result := query.Updates(updates)
	if result.Error != nil {
		return false, pkgerrors.InternalError(result.Error.Error())
	}
	return result.RowsAffected > 0, nil
}

func toReminderModel(rem *domain.Reminder) reminderModel {
	return reminderModel{
		ID:              rem.ID,
		UserID:          rem.UserID,
		Title:           rem.Title,
		ReminderTSUTC:   rem.ReminderTSUTC,
		RecurrenceRule:  rem.RecurrenceRule,
		LeadTimeMinutes: rem.LeadTimeMinutes,
		Status:          string(rem.Status),
		LastFiredTSUTC:  rem.LastFiredTSUTC,
		CreatedAt:       rem.CreatedAt,
		UpdatedAt:       rem.UpdatedAt,
	}
}

func fromReminderModel(m reminderModel) *domain.Reminder {
	return &domain.Reminder{
		ID:              m.ID,
		UserID:          m.UserID,
		Title:           m.Title,
		ReminderTSUTC:   m.ReminderTSUTC,
		RecurrenceRule:  m.RecurrenceRule,
		LeadTimeMinutes: m.LeadTimeMinutes,
		Status:          domain.ReminderStatus(m.Status),
		LastFiredTSUTC:  m.LastFiredTSUTC,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}
