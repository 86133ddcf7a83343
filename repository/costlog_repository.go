package repository

import (
	"context"
	"time"

	"github.com/MichaelMishaev/assitentWAbot-sub006/domain"
	pkgerrors "github.com/MichaelMishaev/assitentWAbot-sub006/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type aiCostLogModel struct {
	ID         string `gorm:"primaryKey"`
	UserID     *string `gorm:"index"`
	Model      string
	Operation  string
	CostUSD    float64
	TokensUsed int
	CreatedAt  time.Time `gorm:"index;not null"`
}

func (aiCostLogModel) TableName() string { return "ai_cost_log" }

// CostLogRepository is the append-only gateway for ai_cost_log.
type CostLogRepository struct {
	db *gorm.DB
}

func NewCostLogRepository(db *gorm.DB) *CostLogRepository {
	return &CostLogRepository{db: db}
}

func (r *CostLogRepository) Append(ctx context.Context, e *domain.AICostLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	m := aiCostLogModel{
		ID: e.ID, UserID: e.UserID, Model: e.Model, Operation: e.Operation,
		CostUSD: e.CostUSD, TokensUsed: e.TokensUsed, CreatedAt: e.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return pkgerrors.InternalError(err.Error())
	}
	return nil
}

// MonthToDateTotal sums cost_usd for entries created since the start
// of the month containing "at" (UTC).
func (r *CostLogRepository) MonthToDateTotal(ctx context.Context, at time.Time) (float64, error) {
	monthStart := time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, time.UTC)
	var total float64
	row := r.db.WithContext(ctx).Model(&aiCostLogModel{}).
		Where("created_at >= ?", monthStart).
		Select("COALESCE(SUM(cost_usd),0)").Row()
	if err := row.Scan(&total); err != nil {
		return 0, pkgerrors.InternalError(err.Error())
	}
	return total, nil
}
