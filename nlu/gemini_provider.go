package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/genai"
)

// geminiModelPrices mirrors the bot's Gemini pricing table, trimmed to
// the models this ensemble dispatches to.
var geminiModelPrices = map[string]struct{ InputPerMToken, OutputPerMToken float64 }{
	"gemini-2.0-flash": {InputPerMToken: 0.10, OutputPerMToken: 0.40},
	"gemini-2.5-flash": {InputPerMToken: 0.30, OutputPerMToken: 2.50},
}

// GeminiProvider classifies messages via the Gemini structured-output
// API, grounded on the bot's own GeminiProvider.Chat.
type GeminiProvider struct {
	apiKey string
	model  string
}

func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	return &GeminiProvider{apiKey: apiKey, model: model}
}

func (p *GeminiProvider) Name() string { return "gemini:" + p.model }

func (p *GeminiProvider) Classify(ctx context.Context, req ClassifyRequest) (ProviderResponse, error) {
	if p.apiKey == "" {
		return ProviderResponse{}, fmt.Errorf("gemini provider has no API key configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: p.apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return ProviderResponse{}, err
	}

	contents := []*genai.Content{{Role: genai.RoleUser, Parts: []*genai.Part{{Text: BuildPrompt(req)}}}}
	cfg := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}

	start := time.Now()
	result, err := client.Models.GenerateContent(ctx, p.model, contents, cfg)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return ProviderResponse{}, err
	}
	if len(result.Candidates) == 0 {
		return ProviderResponse{}, fmt.Errorf("no response from gemini")
	}

	var parsed NLUResult
	if err := json.Unmarshal([]byte(result.Text()), &parsed); err != nil {
		return ProviderResponse{}, fmt.Errorf("parse gemini classification: %w", err)
	}

	resp := ProviderResponse{Model: p.model, Result: parsed, ResponseTimeMS: elapsed}
	if result.UsageMetadata != nil {
		resp.InputTokens = int(result.UsageMetadata.PromptTokenCount)
		resp.OutputTokens = int(result.UsageMetadata.CandidatesTokenCount)
		resp.CostUSD = p.cost(resp.InputTokens, resp.OutputTokens)
	}
	return resp, nil
}

func (p *GeminiProvider) cost(input, output int) float64 {
	pricing, ok := geminiModelPrices[p.model]
	if !ok {
		pricing = geminiModelPrices["gemini-2.0-flash"]
	}
	return float64(input)*pricing.InputPerMToken/1_000_000 + float64(output)*pricing.OutputPerMToken/1_000_000
}
