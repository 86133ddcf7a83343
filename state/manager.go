// Package state implements the per-user conversation state machine:
// load the current Session (or create a fresh one), validate and
// apply a transition, and persist it back, applying the per-state
// inactivity timeout described in spec.md §4.2. Grounded on the bot's
// own SessionOrchestrator, whose Get/Save/expiry-timer shape this
// package's load/transition/reset trio generalizes away from WhatsApp
// debounce/typing concerns toward a pure conversational state machine.
package state

import (
	"context"
	"time"

	"github.com/MichaelMishaev/assitentWAbot-sub006/core/clock"
	"github.com/MichaelMishaev/assitentWAbot-sub006/domain"
)

// InactivityTimeout is the default per-state idle window after which
// a stale Session reverts to MAIN_MENU, per spec.md §4.2.
const InactivityTimeout = 30 * time.Minute

// Store is the ephemeral-store contract the Manager depends on,
// matching infrastructure/ephemeral.SessionStore's signature.
type Store interface {
	Get(ctx context.Context, userID string) (*domain.Session, error)
	Save(ctx context.Context, sess *domain.Session) error
	Delete(ctx context.Context, userID string) error
	Reset(ctx context.Context, userID string) (*domain.Session, error)
}

// Manager owns the conversation state machine for every user.
type Manager struct {
	store   Store
	clock   clock.Clock
	timeout time.Duration
}

func NewManager(store Store, clk clock.Clock) *Manager {
	return &Manager{store: store, clock: clk, timeout: InactivityTimeout}
}

// Load returns userID's current Session, creating a fresh
// UNAUTHENTICATED/MAIN_MENU-less Session on first contact, and
// reverting to MAIN_MENU if the loaded Session has been idle past the
// inactivity timeout.
func (m *Manager) Load(ctx context.Context, userID string) (*domain.Session, error) {
	sess, err := m.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return &domain.Session{
			UserID:  userID,
			State:   domain.StateUnauthenticated,
			Context: map[string]string{},
		}, nil
	}
	if !sess.LastActivityTS.IsZero() && m.clock.Now().Sub(sess.LastActivityTS) > m.timeout {
		return m.store.Reset(ctx, userID)
	}
	return sess, nil
}

// Transition validates that `to` is a legal next state for sess's
// current state, applies it, merges contextPatch into sess.Context,
// and persists. A nil contextPatch entry deletes that key.
func (m *Manager) Transition(ctx context.Context, sess *domain.Session, to domain.ConversationState, contextPatch map[string]*string) error {
	if !isTransitionAllowed(sess.State, to) {
		return invalidTransitionError{from: sess.State, to: to}
	}
	sess.State = to
	for k, v := range contextPatch {
		if v == nil {
			delete(sess.Context, k)
		} else {
			sess.Context[k] = *v
		}
	}
	return m.store.Save(ctx, sess)
}

// AppendTurn records one conversation turn, bounding history at the
// last 3 turns per spec.md §4.3's ensemble prompt input.
func (m *Manager) AppendTurn(ctx context.Context, sess *domain.Session, role, text string) error {
	sess.RecentConversation = append(sess.RecentConversation, domain.ConversationTurn{Role: role, Text: text})
	if len(sess.RecentConversation) > 3 {
		sess.RecentConversation = sess.RecentConversation[len(sess.RecentConversation)-3:]
	}
	return m.store.Save(ctx, sess)
}

// Reset pins userID's Session to MAIN_MENU with empty context, used by
// /menu, /cancel, and post-inactivity reversion.
func (m *Manager) Reset(ctx context.Context, userID string) (*domain.Session, error) {
	return m.store.Reset(ctx, userID)
}

// SetQuotedEvent records (or clears, when eventID is nil) which event
// a subsequent message quotes, per spec.md §3's quoted_event_id
// session field, without otherwise touching state or context.
func (m *Manager) SetQuotedEvent(ctx context.Context, sess *domain.Session, eventID *string) error {
	sess.QuotedEventID = eventID
	return m.store.Save(ctx, sess)
}

type invalidTransitionError struct {
	from, to domain.ConversationState
}

func (e invalidTransitionError) Error() string {
	return "illegal conversation state transition from " + string(e.from) + " to " + string(e.to)
}
