package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// openAIModelPrices mirrors the bot's per-model $/Mtoken pricing table,
// trimmed to the chat models this ensemble actually dispatches to.
var openAIModelPrices = map[string]struct{ InputPerMToken, OutputPerMToken float64 }{
	"gpt-4o-mini": {InputPerMToken: 0.15, OutputPerMToken: 0.60},
	"gpt-4o":      {InputPerMToken: 2.50, OutputPerMToken: 10.00},
}

// OpenAIProvider classifies messages via OpenAI's structured-output
// chat completions, grounded on the bot's own OpenAIProvider.Chat.
type OpenAIProvider struct {
	apiKey string
	model  string
}

func NewOpenAIProvider(apiKey, model string) *OpenAIProvider {
	return &OpenAIProvider{apiKey: apiKey, model: model}
}

func (p *OpenAIProvider) Name() string { return "openai:" + p.model }

func (p *OpenAIProvider) Classify(ctx context.Context, req ClassifyRequest) (ProviderResponse, error) {
	if p.apiKey == "" {
		return ProviderResponse{}, fmt.Errorf("openai provider has no API key configured")
	}
	client := openai.NewClient(option.WithAPIKey(p.apiKey))

	start := time.Now()
	completion, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(BuildPrompt(req)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "nlu_result",
					Schema: any(resultJSONSchema),
				},
			},
		},
	})
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return ProviderResponse{}, err
	}
	if len(completion.Choices) == 0 {
		return ProviderResponse{}, fmt.Errorf("no response from openai")
	}

	var result NLUResult
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &result); err != nil {
		return ProviderResponse{}, fmt.Errorf("parse openai classification: %w", err)
	}

	inputTokens := int(completion.Usage.PromptTokens)
	outputTokens := int(completion.Usage.CompletionTokens)
	return ProviderResponse{
		Model:          p.model,
		Result:         result,
		ResponseTimeMS: elapsed,
		InputTokens:    inputTokens,
		OutputTokens:   outputTokens,
		CostUSD:        p.cost(inputTokens, outputTokens),
	}, nil
}

// resultJSONSchema is the loose JSON-schema shape of OpenAIProvider's
// structured-output request (the Gemini and compat providers send no
// schema): permissive enough that the vendor's schema validator
// accepts it, since only the Go-side json.Unmarshal into NLUResult is
// load-bearing.
var resultJSONSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"intent":              map[string]any{"type": "string"},
		"confidence":          map[string]any{"type": "number"},
		"event":               map[string]any{"type": "object"},
		"reminder":            map[string]any{"type": "object"},
		"comment":             map[string]any{"type": "object"},
		"needs_clarification": map[string]any{"type": "boolean"},
		"candidates":          map[string]any{"type": "array"},
	},
	"required": []string{"intent", "confidence"},
}

func (p *OpenAIProvider) cost(input, output int) float64 {
	pricing, ok := openAIModelPrices[p.model]
	if !ok {
		pricing = openAIModelPrices["gpt-4o-mini"]
	}
	return float64(input)*pricing.InputPerMToken/1_000_000 + float64(output)*pricing.OutputPerMToken/1_000_000
}
