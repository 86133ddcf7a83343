package repository

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/MichaelMishaev/assitentWAbot-sub006/domain"
	pkgerrors "github.com/MichaelMishaev/assitentWAbot-sub006/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userModel struct {
	ID                          string `gorm:"primaryKey"`
	Phone                       string `gorm:"uniqueIndex;not null"`
	Name                        string
	PINHash                     string
	Timezone                    string `gorm:"default:'Asia/Jerusalem'"`
	Language                    string `gorm:"default:'he'"`
	DefaultLocation             string `gorm:"default:'jerusalem'"`
	PreferredTimeOfDay          *string
	DefaultEventDurationMinutes int        `gorm:"default:60"`
	Patterns                    string     `gorm:"type:text;default:'{}'"`
	MorningNotification         string     `gorm:"type:text;default:'{}'"`
	FailedLoginCount            int        `gorm:"default:0"`
	LockoutUntilUTC             *time.Time
	CreatedAt                   time.Time `gorm:"not null"`
	UpdatedAt                   time.Time `gorm:"not null"`
}

func (userModel) TableName() string { return "users" }

// UserRepository is the Relational Store gateway for the users table.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	m, err := toUserModel(u)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") || strings.Contains(err.Error(), "duplicate key") {
			return pkgerrors.ConflictError("phone already registered")
		}
		return pkgerrors.InternalError(err.Error())
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var m userModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.NotFoundError("user not found")
		}
		return nil, pkgerrors.InternalError(err.Error())
	}
	return fromUserModel(m)
}

func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	var m userModel
	if err := r.db.WithContext(ctx).First(&m, "phone = ?", phone).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.NotFoundError("user not found")
		}
		return nil, pkgerrors.InternalError(err.Error())
	}
	return fromUserModel(m)
}

func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()
	m, err := toUserModel(u)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Model(&userModel{ID: u.ID}).Select("*").Updates(&m)
	if result.Error != nil {
		return pkgerrors.InternalError(result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return pkgerrors.NotFoundError("user not found")
	}
	return nil
}

// ListAll returns every user, used by the daily scheduler's
// morning-summary scan (spec.md §4.7.B).
func (r *UserRepository) ListAll(ctx context.Context) ([]*domain.User, error) {
	var models []userModel
	if err := r.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, pkgerrors.InternalError(err.Error())
	}
	out := make([]*domain.User, 0, len(models))
	for _, m := range models {
		u, err := fromUserModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func toUserModel(u *domain.User) (userModel, error) {
	patternsJSON, err := json.Marshal(u.Patterns)
	if err != nil {
		return userModel{}, pkgerrors.InternalError("marshal patterns: " + err.Error())
	}
	morningJSON, err := json.Marshal(u.MorningNotification)
	if err != nil {
		return userModel{}, pkgerrors.InternalError("marshal morning_notification: " + err.Error())
	}
	var tod *string
	if u.PreferredTimeOfDay != nil {
		v := string(*u.PreferredTimeOfDay)
		tod = &v
	}
	return userModel{
		ID:                          u.ID,
		Phone:                       u.Phone,
		Name:                        u.Name,
		PINHash:                     u.PINHash,
		Timezone:                    u.Timezone,
		Language:                    string(u.Language),
		DefaultLocation:             u.DefaultLocation,
		PreferredTimeOfDay:          tod,
		DefaultEventDurationMinutes: u.DefaultEventDurationMinutes,
		Patterns:                    string(patternsJSON),
		MorningNotification:         string(morningJSON),
		FailedLoginCount:            u.FailedLoginCount,
		LockoutUntilUTC:             u.LockoutUntilUTC,
		CreatedAt:                   u.CreatedAt,
		UpdatedAt:                   u.UpdatedAt,
	}, nil
}

func fromUserModel(m userModel) (*domain.User, error) {
	u := &domain.User{
		ID:                          m.ID,
		Phone:                       m.Phone,
		Name:                        m.Name,
		PINHash:                     m.PINHash,
		Timezone:                    m.Timezone,
		Language:                    domain.Language(m.Language),
		DefaultLocation:             m.DefaultLocation,
		DefaultEventDurationMinutes: m.DefaultEventDurationMinutes,
		FailedLoginCount:            m.FailedLoginCount,
		LockoutUntilUTC:             m.LockoutUntilUTC,
		CreatedAt:                   m.CreatedAt,
		UpdatedAt:                   m.UpdatedAt,
	}
	if m.PreferredTimeOfDay != nil {
		tod := domain.TimeOfDay(*m.PreferredTimeOfDay)
		u.PreferredTimeOfDay = &tod
	}
	if m.Patterns != "" {
		_ = json.Unmarshal([]byte(m.Patterns), &u.Patterns)
	}
	if u.Patterns == nil {
		u.Patterns = map[string]string{}
	}
	if m.MorningNotification != "" {
		_ = json.Unmarshal([]byte(m.MorningNotification), &u.MorningNotification)
	}
	return u, nil
}
