package repository

import (
	"context"
	"encoding/json"

	"github.com/MichaelMishaev/assitentWAbot-sub006/domain"
	pkgerrors "github.com/MichaelMishaev/assitentWAbot-sub006/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type contactModel struct {
	ID      string `gorm:"primaryKey"`
	UserID  string `gorm:"index:idx_contacts_user;not null"`
	Name    string
	Phone   *string
	Aliases string `gorm:"type:text;default:'[]'"`
}

func (contactModel) TableName() string { return "contacts" }

// ContactRepository is the Relational Store gateway for the contacts table.
type ContactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) Create(ctx context.Context, c *domain.Contact) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	m, err := toContactModel(c)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return pkgerrors.InternalError(err.Error())
	}
	return nil
}

func (r *ContactRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Contact, error) {
	var models []contactModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&models).Error; err != nil {
		return nil, pkgerrors.InternalError(err.Error())
	}
	out := make([]*domain.Contact, 0, len(models))
	for _, m := range models {
		c, err := fromContactModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *ContactRepository) GetByID(ctx context.Context, id, userID string) (*domain.Contact, error) {
	var m contactModel
	if err := r.db.WithContext(ctx).First(&m, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.NotFoundError("contact not found")
		}
		return nil, pkgerrors.InternalError(err.Error())
	}
	return fromContactModel(m)
}

func (r *ContactRepository) Update(ctx context.Context, c *domain.Contact) error {
	m, err := toContactModel(c)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Model(&contactModel{ID: c.ID}).Where("user_id = ?", c.UserID).Select("*").Updates(&m)
	if result.Error != nil {
		return pkgerrors.InternalError(result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return pkgerrors.NotFoundError("contact not found")
	}
	return nil
}

func toContactModel(c *domain.Contact) (contactModel, error) {
	aliases := c.Aliases
	if aliases == nil {
		aliases = []string{}
	}
	aliasesJSON, err := json.Marshal(aliases)
	if err != nil {
		return contactModel{}, pkgerrors.InternalError("marshal aliases: " + err.Error())
	}
	return contactModel{
		ID:      c.ID,
		UserID:  c.UserID,
		Name:    c.Name,
		Phone:   c.Phone,
		Aliases: string(aliasesJSON),
	}, nil
}

func fromContactModel(m contactModel) (*domain.Contact, error) {
	c := &domain.Contact{
		ID:     m.ID,
		UserID: m.UserID,
		Name:   m.Name,
		Phone:  m.Phone,
	}
	if m.Aliases != "" {
		_ = json.Unmarshal([]byte(m.Aliases), &c.Aliases)
	}
	if c.Aliases == nil {
		c.Aliases = []string{}
	}
	return c, nil
}
