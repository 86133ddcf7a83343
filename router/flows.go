package router

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/MichaelMishaev/assitentWAbot-sub006/domain"
	"github.com/MichaelMishaev/assitentWAbot-sub006/pkg/hebrew"
	"github.com/MichaelMishaev/assitentWAbot-sub006/services"
)

func isYes(text string) bool {
	t := strings.TrimSpace(strings.ToLower(text))
	return t == "כן" || t == "yes" || t == "אישור" || t == "ok"
}

func isNo(text string) bool {
	t := strings.TrimSpace(strings.ToLower(text))
	return t == "לא" || t == "no" || t == "ביטול" || t == "cancel"
}

func strPtr(s string) *string { return &s }

func (r *Router) userZone(ctx context.Context, userID string) *time.Location {
	u, err := r.deps.Users.GetByID(ctx, userID)
	if err != nil || u.Timezone == "" {
		loc, _ := time.LoadLocation("Asia/Jerusalem")
		return loc
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		loc, _ = time.LoadLocation("Asia/Jerusalem")
	}
	return loc
}

func (r *Router) set(ctx context.Context, sess *domain.Session, to domain.ConversationState, patch map[string]string) error {
	p := make(map[string]*string, len(patch))
	for k, v := range patch {
		p[k] = strPtr(v)
	}
	return r.deps.States.Transition(ctx, sess, to, p)
}

// dispatchState implements spec.md §4.1 phase 7: advance an in-flight
// flow one step using the free-text reply just received.
func (r *Router) dispatchState(ctx context.Context, userID string, sess *domain.Session, text string) (string, error) {
	switch sess.State {

	case domain.StateAddingEventTitle:
		return r.addingEventTitle(ctx, sess, text)
	case domain.StateAddingEventDate:
		return r.addingEventDate(ctx, userID, sess, text)
	case domain.StateAddingEventTime:
		return r.addingEventTime(ctx, userID, sess, text)
	case domain.StateAddingEventLocation:
		return r.addingEventLocation(ctx, sess, text)
	case domain.StateAddingEventConfirm:
		return r.addingEventConfirm(ctx, userID, sess, text, false)
	case domain.StateAddingEventConflictConfirm:
		return r.addingEventConfirm(ctx, userID, sess, text, true)

	case domain.StateAddingReminderTitle:
		return r.addingReminderTitle(ctx, sess, text)
	case domain.StateAddingReminderDate:
		return r.addingReminderDate(ctx, userID, sess, text)
	case domain.StateAddingReminderRecurrence:
		return r.addingReminderRecurrence(ctx, sess, text)
	case domain.StateAddingReminderConfirm:
		return r.addingReminderConfirm(ctx, userID, sess, text)

	case domain.StateDeletingEventSelect:
		return r.deletingEventSelect(ctx, userID, sess, text)
	case domain.StateDeletingEventConfirm:
		return r.deletingEventConfirm(ctx, userID, sess, text)

	case domain.StateUpdatingEventSelect:
		return r.updatingEventSelect(ctx, userID, sess, text)
	case domain.StateUpdatingEventField:
		return r.updatingEventField(ctx, sess, text)
	case domain.StateUpdatingEventValue:
		return r.updatingEventValue(ctx, userID, sess, text)

	case domain.StateAddingTaskTitle:
		return r.addingTaskTitle(ctx, sess, text)
	case domain.StateAddingTaskDetails:
		return r.addingTaskDetails(ctx, sess, text)
	case domain.StateAddingTaskPriority:
		return r.addingTaskPriority(ctx, sess, text)
	case domain.StateAddingTaskDue:
		return r.addingTaskDue(ctx, userID, sess, text)
	case domain.StateAddingTaskConfirm:
		return r.addingTaskConfirm(ctx, userID, sess, text)

	case domain.StateClarifyingIntent:
		return r.clarifyingIntent(ctx, userID, sess, text)
	}

	if _, err := r.deps.States.Reset(ctx, sess.UserID); err != nil {
		return "", err
	}
	return "לא זיהיתי את השלב הזה, חזרתי לתפריט הראשי.", nil
}

// --- Event creation ---

func (r *Router) addingEventTitle(ctx context.Context, sess *domain.Session, text string) (string, error) {
	title := strings.TrimSpace(text)
	if title == "" {
		return "איך לקרוא לאירוע?", nil
	}
	if err := r.set(ctx, sess, domain.StateAddingEventDate, map[string]string{"event_title": title}); err != nil {
		return "", err
	}
	return "מתי האירוע?", nil
}

func (r *Router) addingEventDate(ctx context.Context, userID string, sess *domain.Session, text string) (string, error) {
	loc := r.userZone(ctx, userID)
	q := hebrew.Parse(text, loc, r.deps.Clock.Now())
	if !q.Success || q.InstantUTC == nil {
		return "לא הצלחתי להבין את התאריך. נסו שוב, למשל \"מחר בעשר\".", nil
	}
	if err := r.set(ctx, sess, domain.StateAddingEventConfirm, map[string]string{"event_start_utc": q.InstantUTC.Format(time.RFC3339)}); err != nil {
		return "", err
	}
	return r.confirmEventPrompt(sess)
}

func (r *Router) addingEventTime(ctx context.Context, userID string, sess *domain.Session, text string) (string, error) {
	loc := r.userZone(ctx, userID)
	q := hebrew.Parse(text, loc, r.deps.Clock.Now())
	if !q.Success || q.InstantUTC == nil {
		return "לא הצלחתי להבין את השעה.", nil
	}
	if err := r.set(ctx, sess, domain.StateAddingEventConfirm, map[string]string{"event_start_utc": q.InstantUTC.Format(time.RFC3339)}); err != nil {
		return "", err
	}
	return r.confirmEventPrompt(sess)
}

func (r *Router) addingEventLocation(ctx context.Context, sess *domain.Session, text string) (string, error) {
	loc := strings.TrimSpace(text)
	if err := r.set(ctx, sess, domain.StateAddingEventConfirm, map[string]string{"event_location": loc}); err != nil {
		return "", err
	}
	return r.confirmEventPrompt(sess)
}

func (r *Router) confirmEventPrompt(sess *domain.Session) (string, error) {
	return "לאשר יצירת האירוע \"" + sess.Context["event_title"] + "\"? (כן/לא)", nil
}

func (r *Router) addingEventConfirm(ctx context.Context, userID string, sess *domain.Session, text string, confirmedOverlap bool) (string, error) {
	if isNo(text) {
		if _, err := r.deps.States.Reset(ctx, sess.UserID); err != nil {
			return "", err
		}
		return "בוטל.", nil
	}
	if !isYes(text) {
		return "לאשר? (כן/לא)", nil
	}
	start, err := time.Parse(time.RFC3339, sess.Context["event_start_utc"])
	if err != nil {
		if _, rerr := r.deps.States.Reset(ctx, sess.UserID); rerr != nil {
			return "", rerr
		}
		return "משהו השתבש, נתחיל מחדש.", nil
	}
	var location *string
	if l := sess.Context["event_location"]; l != "" {
		location = &l
	}
	event, overlaps, cerr := r.deps.Events.Create(ctx, services.CreateEventInput{
		UserID:           userID,
		Title:            sess.Context["event_title"],
		StartTSUTC:       start,
		Location:         location,
		Source:           domain.EventSourceUserInput,
		ConfirmedOverlap: confirmedOverlap,
	})
	if cerr != nil {
		if len(overlaps) > 0 {
			if err := r.deps.States.Transition(ctx, sess, domain.StateAddingEventConflictConfirm, nil); err != nil {
				return "", err
			}
			return "יש התנגשות עם אירוע קיים (" + overlaps[0].Title + "). ליצור בכל זאת? (כן/לא)", nil
		}
		return cerr.Error(), nil
	}
	sess.Context[quoteTargetContextKey] = event.ID
	if _, rerr := r.deps.States.Reset(ctx, sess.UserID); rerr != nil {
		return "", rerr
	}
	return "האירוע נוצר בהצלחה.", nil
}

// --- Reminder creation ---

func (r *Router) addingReminderTitle(ctx context.Context, sess *domain.Session, text string) (string, error) {
	title := strings.TrimSpace(text)
	if title == "" {
		return "מה תוכן התזכורת?", nil
	}
	if err := r.set(ctx, sess, domain.StateAddingReminderDate, map[string]string{"reminder_title": title}); err != nil {
		return "", err
	}
	return "מתי להזכיר?", nil
}

func (r *Router) addingReminderDate(ctx context.Context, userID string, sess *domain.Session, text string) (string, error) {
	loc := r.userZone(ctx, userID)
	q := hebrew.Parse(text, loc, r.deps.Clock.Now())
	if !q.Success || q.InstantUTC == nil {
		return "לא הצלחתי להבין את המועד. נסו שוב.", nil
	}
	if err := r.set(ctx, sess, domain.StateAddingReminderConfirm, map[string]string{"reminder_ts_utc": q.InstantUTC.Format(time.RFC3339)}); err != nil {
		return "", err
	}
	return "לאשר תזכורת \"" + sess.Context["reminder_title"] + "\"? (כן/לא)", nil
}

func (r *Router) addingReminderRecurrence(ctx context.Context, sess *domain.Session, text string) (string, error) {
	rrule, ok := hebrew.GenerateRRULE(text)
	if !ok {
		return "לא הכרתי את חוקיות החזרה. נסו שוב או כתבו \"לא\".", nil
	}
	if err := r.set(ctx, sess, domain.StateAddingReminderConfirm, map[string]string{"reminder_rrule": rrule}); err != nil {
		return "", err
	}
	return "לאשר תזכורת חוזרת \"" + sess.Context["reminder_title"] + "\"? (כן/לא)", nil
}

func (r *Router) addingReminderConfirm(ctx context.Context, userID string, sess *domain.Session, text string) (string, error) {
	if isNo(text) {
		if _, err := r.deps.States.Reset(ctx, sess.UserID); err != nil {
			return "", err
		}
		return "בוטל.", nil
	}
	if !isYes(text) {
		return "לאשר? (כן/לא)", nil
	}
	fireAt, err := time.Parse(time.RFC3339, sess.Context["reminder_ts_utc"])
	if err != nil {
		if _, rerr := r.deps.States.Reset(ctx, sess.UserID); rerr != nil {
			return "", rerr
		}
		return "משהו השתבש, נתחיל מחדש.", nil
	}
	var rrule *string
	if v := sess.Context["reminder_rrule"]; v != "" {
		rrule = &v
	}
	_, cerr := r.deps.Reminders.Create(ctx, services.CreateReminderInput{
		UserID:         userID,
		Title:          sess.Context["reminder_title"],
		ReminderTSUTC:  &fireAt,
		RecurrenceRule: rrule,
		Now:            r.deps.Clock.Now(),
	})
	if cerr != nil {
		return cerr.Error(), nil
	}
	if _, rerr := r.deps.States.Reset(ctx, sess.UserID); rerr != nil {
		return "", rerr
	}
	return "התזכורת נקבעה בהצלחה.", nil
}

// --- Event deletion ---

func (r *Router) deletingEventSelect(ctx context.Context, userID string, sess *domain.Session, text string) (string, error) {
	events, err := r.deps.Events.Search(ctx, userID, text)
	if err != nil {
		return "", err
	}
	if len(events) == 0 {
		if _, rerr := r.deps.States.Reset(ctx, sess.UserID); rerr != nil {
			return "", rerr
		}
		return "לא מצאתי אירוע כזה.", nil
	}
	if err := r.set(ctx, sess, domain.StateDeletingEventConfirm, map[string]string{"delete_event_id": events[0].ID}); err != nil {
		return "", err
	}
	return "למחוק את \"" + events[0].Title + "\"? (כן/לא)", nil
}

func (r *Router) deletingEventConfirm(ctx context.Context, userID string, sess *domain.Session, text string) (string, error) {
	if !isYes(text) {
		if _, err := r.deps.States.Reset(ctx, sess.UserID); err != nil {
			return "", err
		}
		return "בוטל.", nil
	}
	if err := r.deps.Events.Delete(ctx, sess.Context["delete_event_id"], userID); err != nil {
		return err.Error(), nil
	}
	if _, rerr := r.deps.States.Reset(ctx, sess.UserID); rerr != nil {
		return "", rerr
	}
	return "האירוע נמחק.", nil
}

// --- Event update ---

func (r *Router) updatingEventSelect(ctx context.Context, userID string, sess *domain.Session, text string) (string, error) {
	events, err := r.deps.Events.Search(ctx, userID, text)
	if err != nil {
		return "", err
	}
	if len(events) == 0 {
		if _, rerr := r.deps.States.Reset(ctx, sess.UserID); rerr != nil {
			return "", rerr
		}
		return "לא מצאתי אירוע כזה.", nil
	}
	if err := r.set(ctx, sess, domain.StateUpdatingEventField, map[string]string{"update_event_id": events[0].ID}); err != nil {
		return "", err
	}
	return "מה לעדכן? (כותרת/שעה/מיקום)", nil
}

func (r *Router) updatingEventField(ctx context.Context, sess *domain.Session, text string) (string, error) {
	field := strings.TrimSpace(text)
	switch field {
	case "כותרת", "שעה", "מיקום", "title", "time", "location":
	default:
		return "בחרו כותרת, שעה או מיקום.", nil
	}
	if err := r.set(ctx, sess, domain.StateUpdatingEventValue, map[string]string{"update_event_field": field}); err != nil {
		return "", err
	}
	return "מה הערך החדש?", nil
}

func (r *Router) updatingEventValue(ctx context.Context, userID string, sess *domain.Session, text string) (string, error) {
	patch := services.EventPatch{}
	switch sess.Context["update_event_field"] {
	case "כותרת", "title":
		v := strings.TrimSpace(text)
		patch.Title = &v
	case "מיקום", "location":
		v := strings.TrimSpace(text)
		patch.Location = &v
	case "שעה", "time":
		loc := r.userZone(ctx, userID)
		q := hebrew.Parse(text, loc, r.deps.Clock.Now())
		if !q.Success || q.InstantUTC == nil {
			return "לא הצלחתי להבין את השעה.", nil
		}
		patch.StartTSUTC = q.InstantUTC
	}
	if _, err := r.deps.Events.Update(ctx, sess.Context["update_event_id"], userID, patch); err != nil {
		return err.Error(), nil
	}
	if _, rerr := r.deps.States.Reset(ctx, sess.UserID); rerr != nil {
		return "", rerr
	}
	return "האירוע עודכן.", nil
}

// --- Task creation ---

func (r *Router) addingTaskTitle(ctx context.Context, sess *domain.Session, text string) (string, error) {
	title := strings.TrimSpace(text)
	if title == "" {
		return "מה שם המשימה?", nil
	}
	if err := r.set(ctx, sess, domain.StateAddingTaskPriority, map[string]string{"task_title": title}); err != nil {
		return "", err
	}
	return "מה העדיפות? (דחוף/גבוה/רגיל/נמוך)", nil
}

func (r *Router) addingTaskDetails(ctx context.Context, sess *domain.Session, text string) (string, error) {
	if err := r.set(ctx, sess, domain.StateAddingTaskPriority, map[string]string{"task_details": strings.TrimSpace(text)}); err != nil {
		return "", err
	}
	return "מה העדיפות? (דחוף/גבוה/רגיל/נמוך)", nil
}

var taskPriorityWords = map[string]domain.TaskPriority{
	"דחוף": domain.TaskPriorityUrgent, "urgent": domain.TaskPriorityUrgent,
	"גבוה": domain.TaskPriorityHigh, "high": domain.TaskPriorityHigh,
	"רגיל": domain.TaskPriorityNormal, "normal": domain.TaskPriorityNormal,
	"נמוך": domain.TaskPriorityLow, "low": domain.TaskPriorityLow,
}

func (r *Router) addingTaskPriority(ctx context.Context, sess *domain.Session, text string) (string, error) {
	p, ok := taskPriorityWords[strings.TrimSpace(strings.ToLower(text))]
	if !ok {
		return "בחרו עדיפות: דחוף/גבוה/רגיל/נמוך.", nil
	}
	if err := r.set(ctx, sess, domain.StateAddingTaskConfirm, map[string]string{"task_priority": string(p)}); err != nil {
		return "", err
	}
	return "לאשר יצירת המשימה \"" + sess.Context["task_title"] + "\"? (כן/לא)", nil
}

func (r *Router) addingTaskDue(ctx context.Context, userID string, sess *domain.Session, text string) (string, error) {
	loc := r.userZone(ctx, userID)
	q := hebrew.Parse(text, loc, r.deps.Clock.Now())
	if !q.Success || q.InstantUTC == nil {
		return "לא הצלחתי להבין את המועד.", nil
	}
	if err := r.set(ctx, sess, domain.StateAddingTaskConfirm, map[string]string{"task_due_utc": q.InstantUTC.Format(time.RFC3339)}); err != nil {
		return "", err
	}
	return "לאשר? (כן/לא)", nil
}

func (r *Router) addingTaskConfirm(ctx context.Context, userID string, sess *domain.Session, text string) (string, error) {
	if isNo(text) {
		if _, err := r.deps.States.Reset(ctx, sess.UserID); err != nil {
			return "", err
		}
		return "בוטל.", nil
	}
	if !isYes(text) {
		return "לאשר? (כן/לא)", nil
	}
	var desc *string
	if d := sess.Context["task_details"]; d != "" {
		desc = &d
	}
	priority := domain.TaskPriority(sess.Context["task_priority"])
	if _, err := r.deps.Tasks.Create(ctx, userID, sess.Context["task_title"], desc, priority); err != nil {
		return err.Error(), nil
	}
	if _, rerr := r.deps.States.Reset(ctx, sess.UserID); rerr != nil {
		return "", rerr
	}
	return "המשימה נוספה.", nil
}

// --- Clarification ---

func (r *Router) clarifyingIntent(ctx context.Context, userID string, sess *domain.Session, text string) (string, error) {
	choice, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || choice < 1 {
		return "בחרו מספר מתוך האפשרויות, או /cancel.", nil
	}
	key := "clarify_option_" + strconv.Itoa(choice-1)
	intent := sess.Context[key]
	if intent == "" {
		return "לא מצאתי אפשרות כזו.", nil
	}
	if _, rerr := r.deps.States.Reset(ctx, sess.UserID); rerr != nil {
		return "", rerr
	}
	return r.dispatchIntentText(ctx, userID, sess, intent, sess.Context["clarify_original_text"])
}
