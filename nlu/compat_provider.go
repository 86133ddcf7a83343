package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// compatInputPerMToken and compatOutputPerMToken are a conservative flat per-Mtoken estimate for
// wire-compatible providers that don't publish a price table the
// ensemble can look up by exact model name.
const (
	compatInputPerMToken  = 0.14
	compatOutputPerMToken = 0.28
)

// CompatProvider classifies messages through any OpenAI-wire-compatible
// endpoint (DeepSeek, Together, etc.) via a custom base URL, the third
// ensemble leg called for in SPEC_FULL.md's domain stack expansion.
// It reuses the OpenAI client exactly as OpenAIProvider does, since
// wire-compatible vendors implement the same chat completions schema.
type CompatProvider struct {
	apiKey  string
	baseURL string
	model   string
}

func NewCompatProvider(apiKey, baseURL, model string) *CompatProvider {
	return &CompatProvider{apiKey: apiKey, baseURL: baseURL, model: model}
}

func (p *CompatProvider) Name() string { return "compat:" + p.model }

func (p *CompatProvider) Classify(ctx context.Context, req ClassifyRequest) (ProviderResponse, error) {
	if p.apiKey == "" || p.baseURL == "" {
		return ProviderResponse{}, fmt.Errorf("compat provider is not configured")
	}
	client := openai.NewClient(option.WithAPIKey(p.apiKey), option.WithBaseURL(p.baseURL))

	start := time.Now()
	completion, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(BuildPrompt(req) + "\n\nRespond with ONLY the JSON object, no surrounding text."),
		},
	})
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return ProviderResponse{}, err
	}
	if len(completion.Choices) == 0 {
		return ProviderResponse{}, fmt.Errorf("no response from compat provider")
	}

	var result NLUResult
	content := extractJSONObject(completion.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return ProviderResponse{}, fmt.Errorf("parse compat classification: %w", err)
	}

	inputTokens := int(completion.Usage.PromptTokens)
	outputTokens := int(completion.Usage.CompletionTokens)
	return ProviderResponse{
		Model:          p.model,
		Result:         result,
		ResponseTimeMS: elapsed,
		InputTokens:    inputTokens,
		OutputTokens:   outputTokens,
		CostUSD:        float64(inputTokens)*compatInputPerMToken/1_000_000 + float64(outputTokens)*compatOutputPerMToken/1_000_000,
	}, nil
}

// extractJSONObject trims any leading/trailing prose a non-strict
// wire-compatible model may wrap its JSON response in.
func extractJSONObject(s string) string {
	start := -1
	depth := 0
	for i, r := range s {
		switch r {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			depth--
			if depth == 0 && start >= 0 {
				return s[start : i+1]
			}
		}
	}
	return s
}
