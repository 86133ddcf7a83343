// Package nlu implements the Natural-Language Understanding ensemble:
// up to three model providers classify one inbound message in
// parallel, their votes are reconciled into a single NLUResult, and
// every call is logged for cost accounting and shadow comparison, per
// spec.md §4.3. Grounded on the bot's botengine/providers adapters,
// generalized from tool-calling chat completions to single-shot
// structured classification.
package nlu

// Intent is the fixed set of classifiable user intents.
type Intent string

const (
	IntentCreateEvent       Intent = "create_event"
	IntentCreateReminder    Intent = "create_reminder"
	IntentListEvents        Intent = "list_events"
	IntentListReminders     Intent = "list_reminders"
	IntentSearchEvent       Intent = "search_event"
	IntentUpdateEvent       Intent = "update_event"
	IntentUpdateReminder    Intent = "update_reminder"
	IntentDeleteEvent       Intent = "delete_event"
	IntentDeleteReminder    Intent = "delete_reminder"
	IntentAddComment        Intent = "add_comment"
	IntentViewComments      Intent = "view_comments"
	IntentDeleteComment     Intent = "delete_comment"
	IntentGenerateDashboard Intent = "generate_dashboard"
	IntentHelp              Intent = "help"
	IntentUnknown           Intent = "unknown"
)

// EventEntities is the event-shaped entity payload an NLUResult may carry.
type EventEntities struct {
	Title          string  `json:"title"`
	DateText       *string `json:"date_text,omitempty"`
	DateISO        *string `json:"date_iso,omitempty"`
	Time           *string `json:"time,omitempty"`
	DurationMin    *int    `json:"duration,omitempty"`
	Location       *string `json:"location,omitempty"`
	ContactName    *string `json:"contact_name,omitempty"`
	DeleteAll      *bool   `json:"delete_all,omitempty"`
	RecurrenceText *string `json:"recurrence_text,omitempty"`
}

// ReminderEntities is the reminder-shaped entity payload.
type ReminderEntities struct {
	Title           string  `json:"title"`
	DateText        *string `json:"date_text,omitempty"`
	DateISO         *string `json:"date_iso,omitempty"`
	Time            *string `json:"time,omitempty"`
	LeadTimeMinutes *int    `json:"lead_time_minutes,omitempty"`
	RecurrenceText  *string `json:"recurrence_text,omitempty"`
	Date            *string `json:"date,omitempty"`
}

// CommentDeleteBy enumerates how a delete_comment intent selects its target.
type CommentDeleteBy string

const (
	DeleteByIndex CommentDeleteBy = "index"
	DeleteByLast  CommentDeleteBy = "last"
	DeleteByText  CommentDeleteBy = "text"
)

// CommentEntities is the comment-shaped entity payload.
type CommentEntities struct {
	EventTitle   string           `json:"event_title"`
	Text         *string          `json:"text,omitempty"`
	Priority     *string          `json:"priority,omitempty"`
	ReminderTime *string          `json:"reminder_time,omitempty"`
	DeleteBy     *CommentDeleteBy `json:"delete_by,omitempty"`
	DeleteValue  *string          `json:"delete_value,omitempty"`
}

// NLUResult is the ensemble's reconciled classification output, per
// spec.md §4.3's exact schema.
type NLUResult struct {
	Intent              Intent            `json:"intent"`
	Confidence          float64           `json:"confidence"`
	Event               *EventEntities    `json:"event,omitempty"`
	Reminder            *ReminderEntities `json:"reminder,omitempty"`
	Comment             *CommentEntities  `json:"comment,omitempty"`
	NeedsClarification  bool              `json:"needs_clarification,omitempty"`
	Candidates          []NLUResult       `json:"candidates,omitempty"`
}

// UnknownResult is returned on total ensemble failure, per spec.md
// §4.3's contract: "on total failure return {intent: unknown, confidence: 0}".
func UnknownResult() NLUResult {
	return NLUResult{Intent: IntentUnknown, Confidence: 0}
}
