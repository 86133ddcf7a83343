// Package domain holds the plain data structures shared by services
// and repositories, the same way the bot keeps a dependency-free
// domain package beneath its gorm-backed repositories.
package domain

import "time"

// TimeOfDay is the user's preferred notification window.
type TimeOfDay string

const (
	TimeOfDayMorning   TimeOfDay = "morning"
	TimeOfDayAfternoon TimeOfDay = "afternoon"
	TimeOfDayEvening   TimeOfDay = "evening"
)

// Language is the user's preferred reply language.
type Language string

const (
	LanguageHebrew  Language = "he"
	LanguageEnglish Language = "en"
)

// MorningNotification configures the daily digest job for a user.
type MorningNotification struct {
	Enabled      bool   `json:"enabled"`
	Time         string `json:"time"` // "HH:MM" in user zone
	DayOfWeekBit uint8  `json:"day_of_week_bit"` // bit i set => weekday i (0=Sunday) enabled
	IncludeMemos bool   `json:"include_memos"`
}

// User is the core account record.
type User struct {
	ID                          string
	Phone                       string
	Name                        string
	PINHash                     string
	Timezone                    string
	Language                    Language
	DefaultLocation             string
	PreferredTimeOfDay          *TimeOfDay
	DefaultEventDurationMinutes int
	Patterns                    map[string]string
	MorningNotification         MorningNotification
	FailedLoginCount            int
	LockoutUntilUTC             *time.Time
	CreatedAt                   time.Time
	UpdatedAt                   time.Time
}

// Contact is an address-book entry owned by a user.
type Contact struct {
	ID      string
	UserID  string
	Name    string
	Phone   *string
	Aliases []string
}

// CommentPriority is the urgency tag on an EventComment.
type CommentPriority string

const (
	PriorityNormal CommentPriority = "normal"
	PriorityHigh   CommentPriority = "high"
	PriorityUrgent CommentPriority = "urgent"
)

// EventComment is one entry in an Event's notes sequence.
type EventComment struct {
	ID           string          `json:"id"`
	Text         string          `json:"text"`
	TimestampUTC time.Time       `json:"timestamp_utc"`
	Priority     CommentPriority `json:"priority"`
	Tags         []string        `json:"tags"`
	ReminderID   *string         `json:"reminder_id,omitempty"`
}

// EventSource records how an event entered the system.
type EventSource string

const (
	EventSourceUserInput EventSource = "user_input"
	EventSourceNLP       EventSource = "nlp"
	EventSourceAPI       EventSource = "api"
)

// Event is a calendar entry owned by exactly one user.
type Event struct {
	ID              string
	UserID          string
	Title           string
	StartTSUTC      time.Time
	EndTSUTC        *time.Time
	Location        *string
	Source          EventSource
	RecurrenceRule  *string
	Notes           []EventComment
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ParticipantRole distinguishes the event owner's companion from the
// invited party.
type ParticipantRole string

const (
	RolePrimary   ParticipantRole = "primary"
	RoleCompanion ParticipantRole = "companion"
)

// EventParticipant is cascade-deleted with its Event.
type EventParticipant struct {
	ID      string
	EventID string
	Name    string
	Role    ParticipantRole
	Phone   *string
}

// ReminderStatus is the lifecycle state of a Reminder row.
type ReminderStatus string

const (
	ReminderActive    ReminderStatus = "active"
	ReminderPaused    ReminderStatus = "paused"
	ReminderDone      ReminderStatus = "done"
	ReminderCancelled ReminderStatus = "cancelled"
)

// Reminder is a scheduled, possibly recurring, notification.
type Reminder struct {
	ID                string
	UserID            string
	Title             string
	ReminderTSUTC     time.Time
	RecurrenceRule    *string
	LeadTimeMinutes   *int
	Status            ReminderStatus
	LastFiredTSUTC    *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TaskPriority ranks a Task's urgency.
type TaskPriority string

const (
	TaskPriorityUrgent TaskPriority = "urgent"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityNormal TaskPriority = "normal"
	TaskPriorityLow    TaskPriority = "low"
)

// TaskStatus is the lifecycle state of a Task row.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
)

// Task is a standalone to-do item, distinct from an Event.
type Task struct {
	ID          string
	UserID      string
	Title       string
	Description *string
	Priority    TaskPriority
	Status      TaskStatus
	DueTSUTC    *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AICostLogEntry is an append-only record of one model invocation's cost.
type AICostLogEntry struct {
	ID         string
	UserID     *string
	Model      string
	Operation  string
	CostUSD    float64
	TokensUsed int
	CreatedAt  time.Time
}

// NLPComparisonEntry is an append-only shadow-mode logging record
// comparing every ensemble model's output for one inbound message.
type NLPComparisonEntry struct {
	ID              string
	UserID          string
	MessageText     string
	PerModel        []ModelVote
	IntentMatch     bool
	ConfidenceDiff  float64
	CreatedAt       time.Time
}

// ModelVote is one model's contribution inside an NLPComparisonEntry.
type ModelVote struct {
	Model          string
	Intent         string
	Confidence     float64
	ResponseTimeMS int64
}

// BugReportStatus tracks whether a `#`-prefixed report has been fixed.
type BugReportStatus string

const (
	BugReportPending BugReportStatus = "pending"
	BugReportFixed   BugReportStatus = "fixed"
)

// BugReport is an append-only entry created whenever an inbound
// message begins with `#`.
type BugReport struct {
	Text       string
	Timestamp  time.Time
	Status     BugReportStatus
	FixedAt    *time.Time
	CommitHash *string
}
