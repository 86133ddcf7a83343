package domain

import "time"

// ConversationState is the fixed state enumeration driving the
// per-user flow machine (spec §4.2).
type ConversationState string

const (
	StateUnauthenticated ConversationState = "UNAUTHENTICATED"
	StateRegisteringName ConversationState = "REGISTERING_NAME"
	StateRegisteringPIN  ConversationState = "REGISTERING_PIN"
	StateAwaitingPIN     ConversationState = "AWAITING_PIN"

	StateMainMenu ConversationState = "MAIN_MENU"

	StateAddingEventTitle          ConversationState = "ADDING_EVENT_TITLE"
	StateAddingEventDate           ConversationState = "ADDING_EVENT_DATE"
	StateAddingEventTime           ConversationState = "ADDING_EVENT_TIME"
	StateAddingEventLocation       ConversationState = "ADDING_EVENT_LOCATION"
	StateAddingEventConfirm        ConversationState = "ADDING_EVENT_CONFIRM"
	StateAddingEventConflictConfirm ConversationState = "ADDING_EVENT_CONFLICT_CONFIRM"

	StateAddingReminderTitle      ConversationState = "ADDING_REMINDER_TITLE"
	StateAddingReminderDate       ConversationState = "ADDING_REMINDER_DATE"
	StateAddingReminderRecurrence ConversationState = "ADDING_REMINDER_RECURRENCE"
	StateAddingReminderConfirm    ConversationState = "ADDING_REMINDER_CONFIRM"

	StateDeletingEventSelect  ConversationState = "DELETING_EVENT_SELECT"
	StateDeletingEventConfirm ConversationState = "DELETING_EVENT_CONFIRM"

	StateUpdatingEventSelect ConversationState = "UPDATING_EVENT_SELECT"
	StateUpdatingEventField  ConversationState = "UPDATING_EVENT_FIELD"
	StateUpdatingEventValue  ConversationState = "UPDATING_EVENT_VALUE"

	StateAddingTaskTitle    ConversationState = "ADDING_TASK_TITLE"
	StateAddingTaskDetails  ConversationState = "ADDING_TASK_DETAILS"
	StateAddingTaskPriority ConversationState = "ADDING_TASK_PRIORITY"
	StateAddingTaskDue      ConversationState = "ADDING_TASK_DUE"
	StateAddingTaskConfirm  ConversationState = "ADDING_TASK_CONFIRM"

	StateClarifyingIntent ConversationState = "CLARIFYING_INTENT"
)

// ConversationTurn is one entry in a Session's bounded recent history.
type ConversationTurn struct {
	Role string // "user" | "assistant"
	Text string
}

// Session is the ephemeral per-user conversational state, keyed by
// user id, TTL 30 minutes, refreshed on every interaction.
type Session struct {
	UserID             string
	State              ConversationState
	Context            map[string]string
	LastActivityTS     time.Time
	RecentConversation []ConversationTurn
	QuotedEventID      *string
}

// AuthState is the ephemeral per-phone authentication record, TTL 48h.
type AuthState struct {
	Phone           string
	Authenticated   bool
	UserID          *string
	FailedAttempts  int
	LockoutUntil    *time.Time
}

// DashboardToken is a single-use-not-required, short-lived bearer
// token for the (out-of-scope) dashboard surface.
type DashboardToken struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}
