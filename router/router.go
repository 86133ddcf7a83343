// Package router implements the Message Router: the single pipeline
// orchestrator every inbound message passes through, in the fixed
// phase order of spec.md §4.1. Grounded on the bot's own
// botengine/orchestrator dispatch loop, generalized from a
// tool-calling agent loop to the fixed dedup/auth/rate/command/
// state/NLU phase sequence spec.md requires, with the Egress adapter
// as the sole reply path.
package router

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/MichaelMishaev/assitentWAbot-sub006/core/clock"
	"github.com/MichaelMishaev/assitentWAbot-sub006/domain"
	"github.com/MichaelMishaev/assitentWAbot-sub006/egress"
	"github.com/MichaelMishaev/assitentWAbot-sub006/ingress"
	"github.com/MichaelMishaev/assitentWAbot-sub006/nlu"
	pkgerrors "github.com/MichaelMishaev/assitentWAbot-sub006/pkg/errors"
	"github.com/MichaelMishaev/assitentWAbot-sub006/repository"
	"github.com/MichaelMishaev/assitentWAbot-sub006/services"
	"github.com/MichaelMishaev/assitentWAbot-sub006/state"
)

// Dedup is the spec §6 dedup:<conversation_id>:<message_id> gate.
type Dedup interface {
	SeenBefore(ctx context.Context, conversationID, messageID string) (bool, error)
}

// BugReports is the append-only `#`-prefixed capture list.
type BugReports interface {
	Append(ctx context.Context, text string) error
}

// RateLimiter is the per-sender per-minute budget check.
type RateLimiter interface {
	Allow(ctx context.Context, userID string) (bool, error)
}

// Sender is the Router's sole outbound path; Egress's Adapter
// satisfies this.
type Sender interface {
	SendText(ctx context.Context, recipient, text string) (string, error)
	React(ctx context.Context, recipient, messageID, emoji string) error
}

var _ Sender = (*egress.Adapter)(nil)

// QuoteIndex resolves a previously-sent message id back to the event
// it told the user about, letting the Router capture spec.md §3's
// quoted_event_id whenever an inbound message quotes that reply
// (§8 scenarios 4-5).
type QuoteIndex interface {
	Record(ctx context.Context, messageID, eventID string) error
	Resolve(ctx context.Context, messageID string) (eventID string, ok bool, err error)
}

// Deps bundles every collaborator the Router dispatches into.
type Deps struct {
	Clock        clock.Clock
	Dedup        Dedup
	BugReports   BugReports
	RateLimiter  RateLimiter
	States       *state.Manager
	Auth         *services.AuthService
	Users        *repository.UserRepository
	Events       *services.EventService
	Reminders    *services.ReminderService
	Tasks        *services.TaskService
	Contacts     *services.ContactService
	NLU          *nlu.Ensemble
	Egress       Sender
	QuotedEvents QuoteIndex

	RateLimitPerMinute int
}

// quoteTargetContextKey marks, for the single reply about to be sent,
// which event it concerns. finish reads and clears it before the
// normal conversation-turn bookkeeping, so it never outlives the
// request it was set in.
const quoteTargetContextKey = "__quote_target_event_id"

// Router is the pipeline orchestrator; one Router instance is shared
// by every sender, but each sender's messages are processed strictly
// sequentially (spec.md §5) via the Ingress adapter's per-sender
// serial queue. The Router itself additionally guards with a
// per-sender lock so it is safe even if called directly by a
// transport that does not provide that guarantee.
type Router struct {
	deps  Deps
	locks *senderLocks
}

func New(deps Deps) *Router {
	return &Router{deps: deps, locks: newSenderLocks()}
}

// Handle implements ingress.Handler: the full 9-phase pipeline of
// spec.md §4.1, one message at a time per sender.
func (r *Router) Handle(ctx context.Context, msg ingress.InboundMessage) {
	unlock := r.locks.acquire(msg.SenderID)
	defer unlock()

	log := logrus.WithFields(logrus.Fields{"sender": msg.SenderID, "message_id": msg.MessageID})

	// Phase 1: dedup.
	seen, err := r.deps.Dedup.SeenBefore(ctx, msg.ConversationID, msg.MessageID)
	if err != nil {
		log.WithError(err).Warn("[ROUTER] dedup check failed, proceeding")
	} else if seen {
		log.Debug("[ROUTER] duplicate message, dropped")
		return
	}

	// Phase 2: bug-report capture, silent, does not block the pipeline.
	text := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(text, "#") && len(text) > 1 {
		if err := r.deps.BugReports.Append(ctx, strings.TrimSpace(text[1:])); err != nil {
			log.WithError(err).Warn("[ROUTER] failed to record bug report")
		}
		return
	}

	sess, err := r.deps.States.Load(ctx, msg.SenderID)
	if err != nil {
		log.WithError(err).Error("[ROUTER] failed to load session")
		return
	}

	// Phase 3 (language gate) and phase 4 (authentication sub-state
	// machine) are both handled inside runAuthPhase: the language gate
	// only applies to the StateUnauthenticated case, which needs the
	// same session/state-transition machinery as the rest of the auth
	// sub-flow, so spec.md §4.1's phases 3-4 are realized together in
	// auth.go.
	userID, authReply, handled := r.runAuthPhase(ctx, msg, sess, text, log)
	if handled {
		if authReply != "" {
			r.reply(ctx, msg.SenderID, authReply)
		}
		return
	}

	// Resolve a quoted reply (spec.md §8 scenarios 4-5) into the event
	// it was about, before NLU/state dispatch reads sess.QuotedEventID.
	if msg.QuotedMessageID != "" {
		if eventID, ok, qerr := r.deps.QuotedEvents.Resolve(ctx, msg.QuotedMessageID); qerr != nil {
			log.WithError(qerr).Warn("[ROUTER] quote index lookup failed")
		} else if ok {
			if serr := r.deps.States.SetQuotedEvent(ctx, sess, &eventID); serr != nil {
				log.WithError(serr).Warn("[ROUTER] failed to record quoted event")
			}
		}
	}

	// Phase 5: rate limit.
	allowed, err := r.deps.RateLimiter.Allow(ctx, userID)
	if err != nil {
		log.WithError(err).Warn("[ROUTER] rate limiter check failed, allowing")
	} else if !allowed {
		r.reply(ctx, msg.SenderID, "יותר מדי הודעות בדקה האחרונה. נסו שוב בעוד רגע.")
		return
	}

	if err := r.deps.States.AppendTurn(ctx, sess, "user", text); err != nil {
		log.WithError(err).Warn("[ROUTER] failed to append conversation turn")
	}

	// Phase 6: global commands, available from any state.
	if reply, ok := r.dispatchCommand(ctx, userID, sess, text); ok {
		r.finish(ctx, msg.SenderID, sess, reply, log)
		return
	}

	// Phase 7: in-flight state dispatch.
	if sess.State != domain.StateMainMenu {
		reply, err := r.dispatchState(ctx, userID, sess, text)
		if err != nil {
			r.onPhaseFailure(ctx, msg, sess, "state_dispatch", err, log)
			return
		}
		r.finish(ctx, msg.SenderID, sess, reply, log)
		return
	}

	// Phase 8: NLU dispatch in MAIN_MENU.
	reply, err := r.dispatchNLU(ctx, userID, sess, text)
	if err != nil {
		r.onPhaseFailure(ctx, msg, sess, "nlu_dispatch", err, log)
		return
	}
	r.finish(ctx, msg.SenderID, sess, reply, log)
}

// finish persists the assistant's reply as a conversation turn and
// dispatches it through Egress, the sole reply path (phase 9). If the
// handler tagged this reply as being about a specific event (via
// quoteTargetContextKey), the sent message id is recorded against that
// event so a later quote of this reply resolves back to it.
func (r *Router) finish(ctx context.Context, recipient string, sess *domain.Session, reply string, log *logrus.Entry) {
	if reply == "" {
		return
	}
	quotedEventID := sess.Context[quoteTargetContextKey]
	delete(sess.Context, quoteTargetContextKey)
	if err := r.deps.States.AppendTurn(ctx, sess, "assistant", reply); err != nil {
		log.WithError(err).Warn("[ROUTER] failed to append assistant turn")
	}
	msgID := r.reply(ctx, recipient, reply)
	if quotedEventID != "" && msgID != "" {
		if err := r.deps.QuotedEvents.Record(ctx, msgID, quotedEventID); err != nil {
			log.WithError(err).Warn("[ROUTER] failed to record quote index")
		}
	}
}

func (r *Router) reply(ctx context.Context, recipient, text string) string {
	msgID, err := r.deps.Egress.SendText(ctx, recipient, text)
	if err != nil {
		logrus.WithError(err).WithField("recipient", recipient).Warn("[ROUTER] reply delivery failed")
	}
	return msgID
}

// onPhaseFailure implements spec.md §4.1's uniform failure contract:
// log {user_id, message_id, phase}, send a generic error reply, and
// reset the session to MAIN_MENU without re-enqueueing the message.
func (r *Router) onPhaseFailure(ctx context.Context, msg ingress.InboundMessage, sess *domain.Session, phase string, err error, log *logrus.Entry) {
	log.WithError(err).WithField("phase", phase).Error("[ROUTER] pipeline phase failed")
	if _, rerr := r.deps.States.Reset(ctx, msg.SenderID); rerr != nil {
		log.WithError(rerr).Error("[ROUTER] failed to reset session after phase failure")
	}
	genericMessage := "משהו השתבש. חזרתי לתפריט הראשי."
	if ge, ok := err.(pkgerrors.GenericError); ok && ge.StatusCode() < 500 {
		genericMessage = ge.Error()
	}
	r.reply(ctx, msg.SenderID, genericMessage)
}
