package repository

import (
	"context"
	"time"

	"github.com/MichaelMishaev/assitentWAbot-sub006/domain"
	pkgerrors "github.com/MichaelMishaev/assitentWAbot-sub006/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type taskModel struct {
	ID          string `gorm:"primaryKey"`
	UserID      string `gorm:"index:idx_tasks_user_due,priority:1;not null"`
	Title       string `gorm:"not null"`
	Description *string
	Priority    string `gorm:"default:'normal'"`
	Status      string `gorm:"default:'pending'"`
	DueTSUTC    *time.Time `gorm:"index:idx_tasks_user_due,priority:2"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (taskModel) TableName() string { return "tasks" }

// TaskRepository is the Relational Store gateway for the tasks table.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, t *domain.Task) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	m := toTaskModel(t)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return pkgerrors.InternalError(err.Error())
	}
	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id, userID string) (*domain.Task, error) {
	var m taskModel
	if err := r.db.WithContext(ctx).First(&m, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.NotFoundError("task not found")
		}
		return nil, pkgerrors.InternalError(err.Error())
	}
	return fromTaskModel(m), nil
}

func (r *TaskRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Task, error) {
	var models []taskModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status NOT IN ?", userID, []string{string(domain.TaskCompleted), string(domain.TaskCancelled)}).
		Order("due_ts_utc ASC").
		Find(&models).Error; err != nil {
		return nil, pkgerrors.InternalError(err.Error())
	}
	out := make([]*domain.Task, 0, len(models))
	for _, m := range models {
		out = append(out, fromTaskModel(m))
	}
	return out, nil
}

func (r *TaskRepository) Update(ctx context.Context, t *domain.Task) error {
	t.UpdatedAt = time.Now().UTC()
	m := toTaskModel(t)
	result := r.db.WithContext(ctx).Model(&taskModel{ID: t.ID}).Where("user_id = ?", t.UserID).Select("*").Updates(&m)
	if result.Error != nil {
		return pkgerrors.InternalError(result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return pkgerrors.NotFoundError("task not found")
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id, userID string) error {
	result := r.db.WithContext(ctx).Delete(&taskModel{}, "id = ? AND user_id = ?", id, userID)
	if result.Error != nil {
		return pkgerrors.InternalError(result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return pkgerrors.NotFoundError("task not found")
	}
	return nil
}

func toTaskModel(t *domain.Task) taskModel {
	return taskModel{
		ID:          t.ID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		DueTSUTC:    t.DueTSUTC,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func fromTaskModel(m taskModel) *domain.Task {
	return &domain.Task{
		ID:          m.ID,
		UserID:      m.UserID,
		Title:       m.Title,
		Description: m.Description,
		Priority:    domain.TaskPriority(m.Priority),
		Status:      domain.TaskStatus(m.Status),
		DueTSUTC:    m.DueTSUTC,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
