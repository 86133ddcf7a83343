package nlu

import (
	"context"
	"time"
)

// TurnRole distinguishes the speaker in a ConversationTurn passed to the prompt.
type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

// HistoryTurn is one of up to 3 recent turns included in the prompt.
type HistoryTurn struct {
	Role TurnRole
	Text string
}

// ClassifyRequest bundles everything a provider needs to classify one
// inbound message, per spec.md §4.3 step 1.
type ClassifyRequest struct {
	Text          string
	History       []HistoryTurn
	UserTimezone  string
	ContactNames  []string
	NowInUserZone time.Time
}

// ProviderResponse is one model's raw vote plus bookkeeping the
// ensemble and cost accountant need.
type ProviderResponse struct {
	Model          string
	Result         NLUResult
	ResponseTimeMS int64
	InputTokens    int
	OutputTokens   int
	CostUSD        float64
}

// Provider is implemented by each concrete model adapter
// (OpenAIProvider, GeminiProvider, CompatProvider). Classify MUST
// respect ctx's deadline and return promptly on cancellation.
type Provider interface {
	Name() string
	Classify(ctx context.Context, req ClassifyRequest) (ProviderResponse, error)
}

// BuildPrompt renders the structured classification prompt shared by
// every provider: current date/time in the user's zone, the last 3
// conversation turns, and the user's known contact names, per
// spec.md §4.3 step 1.
func BuildPrompt(req ClassifyRequest) string {
	var b prompt
	b.writeHeader(req.NowInUserZone, req.UserTimezone)
	b.writeContacts(req.ContactNames)
	b.writeHistory(req.History)
	b.writeMessage(req.Text)
	b.writeSchema()
	return b.String()
}
