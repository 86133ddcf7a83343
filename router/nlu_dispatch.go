package router

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MichaelMishaev/assitentWAbot-sub006/domain"
	"github.com/MichaelMishaev/assitentWAbot-sub006/nlu"
	"github.com/MichaelMishaev/assitentWAbot-sub006/pkg/hebrew"
	"github.com/MichaelMishaev/assitentWAbot-sub006/services"
)

// dispatchNLU implements spec.md §4.1 phase 8: classify text via the
// ensemble and either act on a confident result directly or enter the
// CLARIFYING_INTENT sub-flow for a low-confidence one.
func (r *Router) dispatchNLU(ctx context.Context, userID string, sess *domain.Session, text string) (string, error) {
	loc := r.userZone(ctx, userID)
	u, err := r.deps.Users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	contacts, err := r.deps.Contacts.List(ctx, userID)
	if err != nil {
		return "", err
	}
	names := make([]string, len(contacts))
	for i, c := range contacts {
		names[i] = c.Name
	}
	history := make([]nlu.HistoryTurn, 0, len(sess.RecentConversation))
	for _, t := range sess.RecentConversation {
		role := nlu.RoleUser
		if t.Role == "assistant" {
			role = nlu.RoleAssistant
		}
		history = append(history, nlu.HistoryTurn{Role: role, Text: t.Text})
	}

	result := r.deps.NLU.Classify(ctx, userID, nlu.ClassifyRequest{
		Text:          text,
		History:       history,
		UserTimezone:  u.Timezone,
		ContactNames:  names,
		NowInUserZone: r.deps.Clock.Now().In(loc),
	})

	if result.NeedsClarification && len(result.Candidates) > 0 {
		return r.enterClarification(ctx, sess, text, result.Candidates)
	}

	return r.dispatchIntent(ctx, userID, sess, result, loc, text)
}

func (r *Router) enterClarification(ctx context.Context, sess *domain.Session, originalText string, candidates []nlu.NLUResult) (string, error) {
	patch := map[string]string{"clarify_original_text": originalText}
	var b strings.Builder
	b.WriteString("לא הייתי בטוח למה התכוונת. בחרו מספר:\n")
	for i, c := range candidates {
		patch["clarify_option_"+strconv.Itoa(i)] = string(c.Intent)
		fmt.Fprintf(&b, "%d. %s\n", i+1, intentLabel(c.Intent))
	}
	if err := r.set(ctx, sess, domain.StateClarifyingIntent, patch); err != nil {
		return "", err
	}
	return b.String(), nil
}

func intentLabel(i nlu.Intent) string {
	switch i {
	case nlu.IntentCreateEvent:
		return "קביעת אירוע"
	case nlu.IntentCreateReminder:
		return "יצירת תזכורת"
	case nlu.IntentListEvents:
		return "הצגת אירועים"
	case nlu.IntentListReminders:
		return "הצגת תזכורות"
	case nlu.IntentSearchEvent:
		return "חיפוש אירוע"
	case nlu.IntentUpdateEvent:
		return "עדכון אירוע"
	case nlu.IntentDeleteEvent:
		return "מחיקת אירוע"
	case nlu.IntentDeleteReminder:
		return "מחיקת תזכורת"
	case nlu.IntentAddComment:
		return "הוספת הערה"
	case nlu.IntentViewComments:
		return "הצגת הערות"
	case nlu.IntentDeleteComment:
		return "מחיקת הערה"
	case nlu.IntentGenerateDashboard:
		return "יצירת דשבורד"
	case nlu.IntentHelp:
		return "עזרה"
	default:
		return "לא ברור"
	}
}

// dispatchIntentText re-enters intent dispatch with only a coarse
// intent label (no entities), used after the user resolves a
// CLARIFYING_INTENT prompt: the relevant flow restarts from its first
// field since the original entities were not retained per option.
func (r *Router) dispatchIntentText(ctx context.Context, userID string, sess *domain.Session, intent, originalText string) (string, error) {
	result := nlu.NLUResult{Intent: nlu.Intent(intent)}
	loc := r.userZone(ctx, userID)
	return r.dispatchIntent(ctx, userID, sess, result, loc, originalText)
}

func (r *Router) dispatchIntent(ctx context.Context, userID string, sess *domain.Session, result nlu.NLUResult, loc *time.Location, text string) (string, error) {
	switch result.Intent {
	case nlu.IntentCreateEvent:
		return r.startCreateEvent(ctx, sess, result.Event, loc)
	case nlu.IntentCreateReminder:
		return r.startCreateReminder(ctx, userID, sess, result.Reminder, loc, text)
	case nlu.IntentListEvents:
		return r.listEvents(ctx, userID, loc)
	case nlu.IntentListReminders:
		return r.listReminders(ctx, userID)
	case nlu.IntentSearchEvent:
		query := ""
		if result.Event != nil {
			query = result.Event.Title
		}
		return r.searchEvents(ctx, userID, sess, query)
	case nlu.IntentUpdateEvent:
		return r.startUpdateEvent(ctx, sess)
	case nlu.IntentDeleteEvent:
		return r.startDeleteEvent(ctx, sess)
	case nlu.IntentDeleteReminder:
		return r.deleteReminderByTitle(ctx, userID, result)
	case nlu.IntentAddComment:
		return r.addCommentFlow(ctx, userID, result)
	case nlu.IntentViewComments:
		return r.viewCommentsFlow(ctx, userID, result)
	case nlu.IntentDeleteComment:
		return r.deleteCommentFlow(ctx, userID, result)
	case nlu.IntentGenerateDashboard:
		return "יצירת דשבורד אינה זמינה כרגע דרך הצ'אט.", nil
	case nlu.IntentHelp:
		return helpText, nil
	default:
		return "לא הבנתי. אפשר לנסח מחדש או לכתוב /help.", nil
	}
}

func (r *Router) startCreateEvent(ctx context.Context, sess *domain.Session, entities *nlu.EventEntities, loc *time.Location) (string, error) {
	if entities == nil || strings.TrimSpace(entities.Title) == "" {
		if err := r.deps.States.Transition(ctx, sess, domain.StateAddingEventTitle, nil); err != nil {
			return "", err
		}
		return "איך לקרוא לאירוע?", nil
	}
	patch := map[string]string{"event_title": entities.Title}
	if entities.DateText != nil {
		q := hebrew.Parse(*entities.DateText, loc, r.deps.Clock.Now())
		if q.Success && q.InstantUTC != nil {
			patch["event_start_utc"] = q.InstantUTC.Format(time.RFC3339)
			if entities.Location != nil {
				patch["event_location"] = *entities.Location
			}
			if err := r.set(ctx, sess, domain.StateAddingEventConfirm, patch); err != nil {
				return "", err
			}
			return r.confirmEventPrompt(sess)
		}
	}
	if err := r.set(ctx, sess, domain.StateAddingEventDate, patch); err != nil {
		return "", err
	}
	return "מתי האירוע?", nil
}

func (r *Router) startCreateReminder(ctx context.Context, userID string, sess *domain.Session, entities *nlu.ReminderEntities, loc *time.Location, text string) (string, error) {
	if sess.QuotedEventID != nil {
		return r.createReminderFromQuotedEvent(ctx, userID, sess, entities, text)
	}

	if entities == nil || strings.TrimSpace(entities.Title) == "" {
		if err := r.deps.States.Transition(ctx, sess, domain.StateAddingReminderTitle, nil); err != nil {
			return "", err
		}
		return "מה תוכן התזכורת?", nil
	}
	patch := map[string]string{"reminder_title": entities.Title}
	dateText := entities.DateText
	if dateText == nil {
		dateText = entities.Date
	}
	if dateText != nil {
		q := hebrew.Parse(*dateText, loc, r.deps.Clock.Now())
		if q.Success && q.InstantUTC != nil {
			patch["reminder_ts_utc"] = q.InstantUTC.Format(time.RFC3339)
			if err := r.set(ctx, sess, domain.StateAddingReminderConfirm, patch); err != nil {
				return "", err
			}
			return "לאשר תזכורת \"" + entities.Title + "\"? (כן/לא)", nil
		}
	}
	if err := r.set(ctx, sess, domain.StateAddingReminderDate, patch); err != nil {
		return "", err
	}
	return "מתי להזכיר?", nil
}

// createReminderFromQuotedEvent implements spec.md §8 scenarios 4-5:
// a reminder created while quoting event E resolves its fire time as
// a lead time before E's start, bypassing the multi-turn confirm flow
// plain reminders go through since both the target and the offset are
// already known from this one message. The lead-time phrase is read
// from the raw text first (hebrew.LeadTimeMinutes covers phrasings the
// NLU entity extraction may miss) and falls back to the NLU-extracted
// entity.
func (r *Router) createReminderFromQuotedEvent(ctx context.Context, userID string, sess *domain.Session, entities *nlu.ReminderEntities, text string) (string, error) {
	quotedEventID := *sess.QuotedEventID
	if err := r.deps.States.SetQuotedEvent(ctx, sess, nil); err != nil {
		return "", err
	}
	event, err := r.deps.Events.GetByID(ctx, quotedEventID, userID)
	if err != nil {
		return "", err
	}

	lead, ok := hebrew.LeadTimeMinutes(text)
	if !ok && entities != nil && entities.LeadTimeMinutes != nil {
		lead, ok = *entities.LeadTimeMinutes, true
	}
	if !ok {
		return "כמה זמן לפני האירוע להזכיר?", nil
	}

	title := event.Title
	if entities != nil && strings.TrimSpace(entities.Title) != "" {
		title = entities.Title
	}

	start := event.StartTSUTC
	_, cerr := r.deps.Reminders.Create(ctx, services.CreateReminderInput{
		UserID:          userID,
		Title:           title,
		EventStartUTC:   &start,
		LeadTimeMinutes: &lead,
		Now:             r.deps.Clock.Now(),
	})
	if cerr != nil {
		return cerr.Error(), nil
	}
	return "התזכורת נקבעה בהצלחה.", nil
}

func (r *Router) listEvents(ctx context.Context, userID string, loc *time.Location) (string, error) {
	events, err := r.deps.Events.ListUpcoming(ctx, userID, 10)
	if err != nil {
		return "", err
	}
	if len(events) == 0 {
		return "אין אירועים קרובים.", nil
	}
	var b strings.Builder
	b.WriteString("האירועים הקרובים שלך:\n")
	for _, e := range events {
		fmt.Fprintf(&b, "- %s (%s)\n", e.Title, e.StartTSUTC.In(loc).Format("02/01 15:04"))
	}
	return b.String(), nil
}

func (r *Router) listReminders(ctx context.Context, userID string) (string, error) {
	reminders, err := r.deps.Reminders.List(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(reminders) == 0 {
		return "אין תזכורות פעילות.", nil
	}
	var b strings.Builder
	b.WriteString("התזכורות הפעילות שלך:\n")
	for _, rem := range reminders {
		fmt.Fprintf(&b, "- %s (%s)\n", rem.Title, rem.ReminderTSUTC.Format("02/01 15:04"))
	}
	return b.String(), nil
}

func (r *Router) searchEvents(ctx context.Context, userID string, sess *domain.Session, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "מה לחפש?", nil
	}
	events, err := r.deps.Events.Search(ctx, userID, query)
	if err != nil {
		return "", err
	}
	if len(events) == 0 {
		return "לא מצאתי אירועים מתאימים.", nil
	}
	if len(events) == 1 {
		sess.Context[quoteTargetContextKey] = events[0].ID
	}
	var b strings.Builder
	for _, e := range events {
		fmt.Fprintf(&b, "- %s\n", e.Title)
	}
	return b.String(), nil
}

func (r *Router) startUpdateEvent(ctx context.Context, sess *domain.Session) (string, error) {
	if err := r.deps.States.Transition(ctx, sess, domain.StateUpdatingEventSelect, nil); err != nil {
		return "", err
	}
	return "איזה אירוע לעדכן?", nil
}

func (r *Router) startDeleteEvent(ctx context.Context, sess *domain.Session) (string, error) {
	if err := r.deps.States.Transition(ctx, sess, domain.StateDeletingEventSelect, nil); err != nil {
		return "", err
	}
	return "איזה אירוע למחוק?", nil
}

func (r *Router) deleteReminderByTitle(ctx context.Context, userID string, result nlu.NLUResult) (string, error) {
	if result.Reminder == nil || strings.TrimSpace(result.Reminder.Title) == "" {
		return "איזו תזכורת למחוק?", nil
	}
	reminders, err := r.deps.Reminders.List(ctx, userID)
	if err != nil {
		return "", err
	}
	titles := make([]string, len(reminders))
	for i, rem := range reminders {
		titles[i] = rem.Title
	}
	match, ambiguous := hebrew.BestMatch(result.Reminder.Title, titles, 0.5)
	if ambiguous != nil || match == nil {
		return "לא מצאתי תזכורת ברורה למחוק.", nil
	}
	if err := r.deps.Reminders.Delete(ctx, reminders[match.Index].ID, userID); err != nil {
		return err.Error(), nil
	}
	return "התזכורת נמחקה.", nil
}

func (r *Router) resolveEventByTitle(ctx context.Context, userID, title string) (*domain.Event, error) {
	events, err := r.deps.Events.Search(ctx, userID, title)
	if err != nil || len(events) == 0 {
		return nil, err
	}
	return events[0], nil
}

func (r *Router) addCommentFlow(ctx context.Context, userID string, result nlu.NLUResult) (string, error) {
	if result.Comment == nil || result.Comment.Text == nil {
		return "מה ההערה ולאיזה אירוע?", nil
	}
	event, err := r.resolveEventByTitle(ctx, userID, result.Comment.EventTitle)
	if err != nil {
		return "", err
	}
	if event == nil {
		return "לא מצאתי את האירוע \"" + result.Comment.EventTitle + "\".", nil
	}
	priority := domain.PriorityNormal
	if result.Comment.Priority != nil {
		priority = domain.CommentPriority(*result.Comment.Priority)
	}
	if _, err := r.deps.Events.AddComment(ctx, event.ID, userID, *result.Comment.Text, priority, nil); err != nil {
		return err.Error(), nil
	}
	return "ההערה נוספה ל-\"" + event.Title + "\".", nil
}

func (r *Router) viewCommentsFlow(ctx context.Context, userID string, result nlu.NLUResult) (string, error) {
	if result.Comment == nil {
		return "לאיזה אירוע?", nil
	}
	event, err := r.resolveEventByTitle(ctx, userID, result.Comment.EventTitle)
	if err != nil {
		return "", err
	}
	if event == nil {
		return "לא מצאתי את האירוע \"" + result.Comment.EventTitle + "\".", nil
	}
	if len(event.Notes) == 0 {
		return "אין הערות על \"" + event.Title + "\".", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "הערות על \"%s\":\n", event.Title)
	for i, n := range event.Notes {
		fmt.Fprintf(&b, "%d. %s\n", i+1, n.Text)
	}
	return b.String(), nil
}

func (r *Router) deleteCommentFlow(ctx context.Context, userID string, result nlu.NLUResult) (string, error) {
	if result.Comment == nil {
		return "לאיזה אירוע?", nil
	}
	event, err := r.resolveEventByTitle(ctx, userID, result.Comment.EventTitle)
	if err != nil {
		return "", err
	}
	if event == nil {
		return "לא מצאתי את האירוע \"" + result.Comment.EventTitle + "\".", nil
	}
	var derr error
	switch {
	case result.Comment.DeleteBy == nil:
		derr = r.deps.Events.DeleteLastComment(ctx, event.ID, userID)
	case *result.Comment.DeleteBy == nlu.DeleteByLast:
		derr = r.deps.Events.DeleteLastComment(ctx, event.ID, userID)
	case *result.Comment.DeleteBy == nlu.DeleteByIndex && result.Comment.DeleteValue != nil:
		idx, perr := strconv.Atoi(*result.Comment.DeleteValue)
		if perr != nil {
			return "לא הבנתי איזה מספר הערה.", nil
		}
		derr = r.deps.Events.DeleteCommentByIndex(ctx, event.ID, userID, idx)
	case *result.Comment.DeleteBy == nlu.DeleteByText && result.Comment.DeleteValue != nil:
		derr = r.deps.Events.DeleteCommentByText(ctx, event.ID, userID, *result.Comment.DeleteValue)
	default:
		derr = r.deps.Events.DeleteLastComment(ctx, event.ID, userID)
	}
	if derr != nil {
		return derr.Error(), nil
	}
	return "ההערה נמחקה.", nil
}
