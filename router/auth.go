package router

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/MichaelMishaev/assitentWAbot-sub006/domain"
	"github.com/MichaelMishaev/assitentWAbot-sub006/ingress"
	pkgerrors "github.com/MichaelMishaev/assitentWAbot-sub006/pkg/errors"
	"github.com/MichaelMishaev/assitentWAbot-sub006/pkg/hebrew"
)

// runAuthPhase implements spec.md §4.1 phase 4. The phone number
// doubles as the conversation state key throughout, authenticated or
// not, since a sender has exactly one phone and exactly one account.
// It returns the caller's authenticated user_id when the pipeline
// should continue past authentication; otherwise it returns
// handled=true along with whatever reply (possibly empty) the auth
// sub-flow produced, and the Router stops processing this message.
func (r *Router) runAuthPhase(ctx context.Context, msg ingress.InboundMessage, sess *domain.Session, text string, log *logrus.Entry) (userID, reply string, handled bool) {
	phone := msg.SenderID

	if sess.State != domain.StateUnauthenticated &&
		sess.State != domain.StateRegisteringName &&
		sess.State != domain.StateRegisteringPIN &&
		sess.State != domain.StateAwaitingPIN {
		uid, err := r.deps.Auth.RequireAuthenticated(ctx, phone)
		if err != nil {
			if _, rerr := r.deps.States.Reset(ctx, phone); rerr != nil {
				log.WithError(rerr).Warn("[ROUTER] failed to reset session on expired auth")
			}
			return "", "תוקף ההתחברות פג. שלחו שלום כדי להתחבר מחדש.", true
		}
		if err := r.deps.Auth.Refresh(ctx, phone); err != nil {
			log.WithError(err).Warn("[ROUTER] failed to refresh auth TTL")
		}
		return uid, "", false
	}

	switch sess.State {
	case domain.StateUnauthenticated:
		// Phase 3's language gate (spec.md §4.1): a greeting in any
		// recognized language always enters the registration/login
		// flow below; otherwise a non-Hebrew, non-gibberish message
		// gets one localized invite, and everything else (Hebrew
		// non-greeting text, or gibberish) is ignored silently.
		if !hebrew.IsGreeting(text) {
			lang := hebrew.Detect(text)
			if lang != hebrew.LangHebrew && lang != hebrew.LangGibberish {
				return "", registrationInviteFor(lang), true
			}
			return "", "", true
		}
		_, err := r.deps.Users.GetByPhone(ctx, phone)
		if err != nil {
			if _, ok := err.(pkgerrors.NotFoundError); ok {
				if terr := r.deps.States.Transition(ctx, sess, domain.StateRegisteringName, nil); terr != nil {
					log.WithError(terr).Error("[ROUTER] failed to transition to registering_name")
				}
				return "", "ברוכים הבאים! איך לקרוא לכם?", true
			}
			log.WithError(err).Error("[ROUTER] failed to look up user by phone")
			return "", "משהו השתבש, נסו שוב בעוד רגע.", true
		}
		if terr := r.deps.States.Transition(ctx, sess, domain.StateAwaitingPIN, nil); terr != nil {
			log.WithError(terr).Error("[ROUTER] failed to transition to awaiting_pin")
		}
		return "", "ברוך שובך! מה קוד ה-PIN שלך?", true

	case domain.StateRegisteringName:
		name := strings.TrimSpace(text)
		if name == "" {
			return "", "איך לקרוא לכם?", true
		}
		nameCopy := name
		if terr := r.deps.States.Transition(ctx, sess, domain.StateRegisteringPIN, map[string]*string{"pending_name": &nameCopy}); terr != nil {
			log.WithError(terr).Error("[ROUTER] failed to transition to registering_pin")
			return "", "משהו השתבש, נסו שוב.", true
		}
		return "", "נעים מאוד, " + name + "! בחרו קוד PIN בן 4-8 ספרות.", true

	case domain.StateRegisteringPIN:
		pin := strings.TrimSpace(text)
		name := sess.Context["pending_name"]
		_, err := r.deps.Auth.Register(ctx, phone, name, pin)
		if err != nil {
			if ge, ok := err.(pkgerrors.GenericError); ok && ge.StatusCode() < 500 {
				return "", ge.Error()+". נסו קוד PIN אחר.", true
			}
			log.WithError(err).Error("[ROUTER] registration failed")
			return "", "משהו השתבש, נסו שוב.", true
		}
		if _, rerr := r.deps.States.Reset(ctx, phone); rerr != nil {
			log.WithError(rerr).Error("[ROUTER] failed to reset session after registration")
		}
		return "", "נרשמת בהצלחה! איך אפשר לעזור?", true

	case domain.StateAwaitingPIN:
		pin := strings.TrimSpace(text)
		_, err := r.deps.Auth.Login(ctx, phone, pin)
		if err != nil {
			if ge, ok := err.(pkgerrors.GenericError); ok && ge.StatusCode() < 500 {
				return "", ge.Error(), true
			}
			log.WithError(err).Error("[ROUTER] login failed")
			return "", "משהו השתבש, נסו שוב.", true
		}
		if _, rerr := r.deps.States.Reset(ctx, phone); rerr != nil {
			log.WithError(rerr).Error("[ROUTER] failed to reset session after login")
		}
		return "", "התחברת בהצלחה! איך אפשר לעזור?", true
	}

	return "", "", false
}

// registrationInviteFor renders the phase-3 one-time invite in the
// detected language (spec.md §4.1: "respond once in the detected
// language inviting registration"). Arabic and English get a message
// in their own script; LangOther falls back to English since it names
// no specific language to reply in.
func registrationInviteFor(lang hebrew.DetectedLanguage) string {
	switch lang {
	case hebrew.LangArabic:
		return "مرحبًا! للتسجيل واستخدام المساعد، اكتب \"مرحبا\"."
	default:
		return "Hi! To register and start using this assistant, send \"hello\"."
	}
}
