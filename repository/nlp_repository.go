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

type nlpComparisonModel struct {
	ID             string `gorm:"primaryKey"`
	UserID         string `gorm:"index"`
	MessageText    string
	PerModel       string `gorm:"type:text"`
	IntentMatch    bool
	ConfidenceDiff float64
	CreatedAt      time.Time `gorm:"not null"`
}

func (nlpComparisonModel) TableName() string { return "nlp_comparisons" }

// NLPComparisonRepository is the append-only shadow-mode logging
// gateway for nlp_comparisons.
type NLPComparisonRepository struct {
	db *gorm.DB
}

func NewNLPComparisonRepository(db *gorm.DB) *NLPComparisonRepository {
	return &NLPComparisonRepository{db: db}
}

func (r *NLPComparisonRepository) Append(ctx context.Context, e *domain.NLPComparisonEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	perModelJSON, err := json.Marshal(e.PerModel)
	if err != nil {
		return pkgerrors.InternalError("marshal per_model: " + err.Error())
	}
	m := nlpComparisonModel{
		ID: e.ID, UserID: e.UserID, MessageText: e.MessageText,
		PerModel: string(perModelJSON), IntentMatch: e.IntentMatch,
		ConfidenceDiff: e.ConfidenceDiff, CreatedAt: e.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return pkgerrors.InternalError(err.Error())
	}
	return nil
}
