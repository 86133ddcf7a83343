package nlu

import (
	"fmt"
	"strings"
	"time"
)

// prompt is a small strings.Builder wrapper kept as its own type so
// BuildPrompt's steps read as a sequence of named sections.
type prompt struct {
	strings.Builder
}

func (p *prompt) writeHeader(now time.Time, tz string) {
	fmt.Fprintf(p, "Current date/time: %s (%s)\n\n", now.Format("2006-01-02 15:04"), tz)
}

func (p *prompt) writeContacts(names []string) {
	if len(names) == 0 {
		return
	}
	p.WriteString("Known contacts: " + strings.Join(names, ", ") + "\n\n")
}

func (p *prompt) writeHistory(history []HistoryTurn) {
	if len(history) == 0 {
		return
	}
	p.WriteString("Recent conversation:\n")
	for _, t := range history {
		fmt.Fprintf(p, "%s: %s\n", t.Role, t.Text)
	}
	p.WriteString("\n")
}

func (p *prompt) writeMessage(text string) {
	fmt.Fprintf(p, "User message: %q\n\n", text)
}

func (p *prompt) writeSchema() {
	p.WriteString(`Classify the message's intent and extract entities. Return a JSON object matching:
{
  "intent": one of create_event, create_reminder, list_events, list_reminders, search_event,
            update_event, update_reminder, delete_event, delete_reminder, add_comment,
            view_comments, delete_comment, generate_dashboard, help, unknown,
  "confidence": number in [0,1],
  "event": {"title": string, "date_text": string?, "time": string?, "duration": number?,
            "location": string?, "contact_name": string?, "delete_all": boolean?,
            "recurrence_text": string?}?,
  "reminder": {"title": string, "date_text": string?, "time": string?,
               "lead_time_minutes": number?, "recurrence_text": string?}?,
  "comment": {"event_title": string, "text": string?, "priority": string?,
              "reminder_time": string?, "delete_by": "index"|"last"|"text"?,
              "delete_value": string?}?
}`)
}
