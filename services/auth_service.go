package services

import (
	"context"
	"regexp"

	"github.com/MichaelMishaev/assitentWAbot-sub006/core/clock"
	"github.com/MichaelMishaev/assitentWAbot-sub006/core/config"
	"github.com/MichaelMishaev/assitentWAbot-sub006/domain"
	pkgcrypto "github.com/MichaelMishaev/assitentWAbot-sub006/pkg/crypto"
	pkgerrors "github.com/MichaelMishaev/assitentWAbot-sub006/pkg/errors"
	"github.com/MichaelMishaev/assitentWAbot-sub006/repository"
)

var pinPattern = regexp.MustCompile(`^\d{4,8}$`)

// AuthStateStore is the ephemeral-store contract AuthService depends
// on, matching infrastructure/ephemeral.AuthStateStore's signature.
type AuthStateStore interface {
	Get(ctx context.Context, phone string) (*domain.AuthState, error)
	Save(ctx context.Context, st *domain.AuthState) error
	Clear(ctx context.Context, phone string) error
}

// AuthService implements spec.md §4.8: registration, PIN login with
// rolling-window lockout, and session refresh.
type AuthService struct {
	users   *repository.UserRepository
	authCfg config.AuthConfig
	clock   clock.Clock
	states  AuthStateStore
}

func NewAuthService(users *repository.UserRepository, states AuthStateStore, authCfg config.AuthConfig, clk clock.Clock) *AuthService {
	return &AuthService{users: users, authCfg: authCfg, clock: clk, states: states}
}

// Register validates pin (4-8 digits), stores its hash on a new user
// named name, and marks phone's AuthState authenticated; the caller
// (the Router) is responsible for the ConversationState transition.
func (s *AuthService) Register(ctx context.Context, phone, name, pin string) (*domain.User, error) {
	if !pinPattern.MatchString(pin) {
		return nil, pkgerrors.InvalidArgumentError("PIN must be 4-8 digits")
	}
	hash, err := pkgcrypto.HashPIN(pin)
	if err != nil {
		return nil, pkgerrors.InternalError(err.Error())
	}
	u := &domain.User{
		Phone:    phone,
		Name:     name,
		PINHash:  hash,
		Timezone: "Asia/Jerusalem",
		Language: domain.LanguageHebrew,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	if err := s.states.Save(ctx, &domain.AuthState{Phone: phone, Authenticated: true, UserID: &u.ID}); err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies pin against the stored user's PIN hash, applying the
// 3-attempts-in-a-window / 15-minute lockout rule.
func (s *AuthService) Login(ctx context.Context, phone, pin string) (*domain.User, error) {
	state, err := s.states.Get(ctx, phone)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if state.LockoutUntil != nil && now.Before(*state.LockoutUntil) {
		return nil, pkgerrors.AuthRequiredError("account is temporarily locked; try again later")
	}

	u, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}

	if !pkgcrypto.VerifyPIN(u.PINHash, pin) {
		state.FailedAttempts++
		if state.FailedAttempts >= s.authCfg.MaxFailures {
			lockoutUntil := now.Add(s.authCfg.LockoutWindow)
			state.LockoutUntil = &lockoutUntil
			state.FailedAttempts = 0
		}
		if err := s.states.Save(ctx, state); err != nil {
			return nil, err
		}
		return nil, pkgerrors.AuthRequiredError("incorrect PIN")
	}

	state.Authenticated = true
	state.UserID = &u.ID
	state.FailedAttempts = 0
	state.LockoutUntil = nil
	if err := s.states.Save(ctx, state); err != nil {
		return nil, err
	}
	return u, nil
}

// Refresh re-saves the AuthState to reset its TTL, called on every
// authenticated interaction per spec.md §4.8.
func (s *AuthService) Refresh(ctx context.Context, phone string) error {
	state, err := s.states.Get(ctx, phone)
	if err != nil {
		return err
	}
	return s.states.Save(ctx, state)
}

func (s *AuthService) Logout(ctx context.Context, phone string) error {
	return s.states.Clear(ctx, phone)
}

// RequireAuthenticated returns the caller's user_id if phone's
// AuthState is authenticated, otherwise AuthRequiredError. This is the
// only path the Router is allowed to use to obtain a user_id; it must
// never trust a user_id derived from message content.
func (s *AuthService) RequireAuthenticated(ctx context.Context, phone string) (string, error) {
	state, err := s.states.Get(ctx, phone)
	if err != nil {
		return "", err
	}
	if !state.Authenticated || state.UserID == nil {
		return "", pkgerrors.AuthRequiredError("authentication required")
	}
	return *state.UserID, nil
}
