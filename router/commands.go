package router

import (
	"context"
	"strings"

	"github.com/MichaelMishaev/assitentWAbot-sub006/domain"
)

const helpText = `פקודות זמינות:
/menu - חזרה לתפריט הראשי
/cancel - ביטול הפעולה הנוכחית
/help - הצגת העזרה הזו
/logout - התנתקות

אפשר גם פשוט לכתוב בעברית מה שרוצים, למשל "קבע לי פגישה מחר בעשר" או "תזכיר לי להתקשר לדני בעוד שעה".`

// dispatchCommand implements spec.md §4.1 phase 6: global commands
// available from any ConversationState. ok reports whether text was
// a recognized command; when true, reply (possibly empty) is final.
func (r *Router) dispatchCommand(ctx context.Context, userID string, sess *domain.Session, text string) (reply string, ok bool) {
	cmd := strings.ToLower(strings.TrimSpace(text))
	switch cmd {
	case "/menu", "/cancel":
		if _, err := r.deps.States.Reset(ctx, sess.UserID); err != nil {
			return "משהו השתבש באיפוס התפריט.", true
		}
		return "חזרתם לתפריט הראשי. איך אפשר לעזור?", true
	case "/help":
		return helpText, true
	case "/logout":
		if err := r.deps.Auth.Logout(ctx, sess.UserID); err != nil {
			return "משהו השתבש בהתנתקות.", true
		}
		if _, err := r.deps.States.Reset(ctx, sess.UserID); err != nil {
			return "התנתקת.", true
		}
		return "התנתקת בהצלחה. שלחו שלום כדי להתחבר מחדש.", true
	}
	return "", false
}
