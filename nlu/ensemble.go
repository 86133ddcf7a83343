package nlu

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// CostSink records every model invocation's cost, per spec.md §4.3
// step 8. Implemented by the cost accountant.
type CostSink interface {
	Record(ctx context.Context, userID *string, model, operation string, costUSD float64, tokens int)
}

// ShadowSink records non-winning model votes for offline comparison,
// per spec.md §4.3 step 7.
type ShadowSink interface {
	Record(ctx context.Context, userID, messageText string, votes []ProviderResponse, winner Intent)
}

// Ensemble runs every configured Provider in parallel, reconciles
// their votes per spec.md §4.3 step 4-5, and reports cost/shadow data.
type Ensemble struct {
	providers []Provider
	deadline  time.Duration
	cost      CostSink
	shadow    ShadowSink
}

func NewEnsemble(providers []Provider, deadline time.Duration, cost CostSink, shadow ShadowSink) *Ensemble {
	return &Ensemble{providers: providers, deadline: deadline, cost: cost, shadow: shadow}
}

// Classify implements the Router-facing contract: it MUST not block
// longer than the ensemble deadline and returns UnknownResult() on
// total failure.
func (e *Ensemble) Classify(ctx context.Context, userID string, req ClassifyRequest) NLUResult {
	ctx, cancel := context.WithTimeout(ctx, e.deadline)
	defer cancel()

	responses := e.collectVotes(ctx, req)

	for _, r := range responses {
		tokens := r.InputTokens + r.OutputTokens
		if e.cost != nil {
			e.cost.Record(ctx, &userID, r.Model, "nlu_classify", r.CostUSD, tokens)
		}
	}

	if len(responses) == 0 {
		return UnknownResult()
	}

	result := reconcile(responses)

	if e.shadow != nil {
		e.shadow.Record(ctx, userID, req.Text, responses, result.Intent)
	}
	return result
}

// collectVotes dispatches every provider concurrently and gathers
// whichever responses arrive before ctx's deadline; a failing or slow
// provider is recorded and skipped (spec.md §4.3 step 3).
func (e *Ensemble) collectVotes(ctx context.Context, req ClassifyRequest) []ProviderResponse {
	var (
		mu  sync.Mutex
		out []ProviderResponse
		wg  sync.WaitGroup
	)
	for _, p := range e.providers {
		wg.Add(1)
		go func(p Provider) {
			defer wg.Done()
			resp, err := p.Classify(ctx, req)
			if err != nil {
				logrus.WithError(err).WithField("provider", p.Name()).Warn("[NLU] provider classification failed")
				return
			}
			mu.Lock()
			out = append(out, resp)
			mu.Unlock()
		}(p)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	return append([]ProviderResponse(nil), out...)
}

// reconcile implements spec.md §4.3 steps 4-5: majority-intent voting
// with the 3/2/≤1 confidence table, then takes the Event, Reminder and
// Comment entity blocks whole from the single highest-confidence model
// that voted for the winning intent. Fields left empty by that model
// are not filled in from other models, and lists are not unioned
// across models.
func reconcile(responses []ProviderResponse) NLUResult {
	counts := map[Intent]int{}
	for _, r := range responses {
		counts[r.Result.Intent]++
	}

	var winner Intent
	best := -1
	for intent, c := range counts {
		if c > best {
			best, winner = c, intent
		}
	}
	k := best
	n := len(responses)

	var confidence float64
	var needsClarification bool
	var candidates []NLUResult
	switch {
	case k == 3:
		confidence = 0.95
	case k == 2:
		confidence = 0.85
	default:
		needsClarification = true
		confidence = maxConfidence(responses)
		if confidence > 0.60 {
			confidence = 0.60
		}
		candidates = distinctCandidates(responses, 2)
	}
	_ = n

	merged := mergeWinningEntities(responses, winner)
	merged.Confidence = confidence
	merged.NeedsClarification = needsClarification
	merged.Candidates = candidates
	return merged
}

func maxConfidence(responses []ProviderResponse) float64 {
	max := 0.0
	for _, r := range responses {
		if r.Result.Confidence > max {
			max = r.Result.Confidence
		}
	}
	return max
}

// distinctCandidates returns up to limit distinct-intent results,
// highest confidence per intent first.
func distinctCandidates(responses []ProviderResponse, limit int) []NLUResult {
	seen := map[Intent]NLUResult{}
	for _, r := range responses {
		existing, ok := seen[r.Result.Intent]
		if !ok || r.Result.Confidence > existing.Confidence {
			seen[r.Result.Intent] = r.Result
		}
	}
	out := make([]NLUResult, 0, len(seen))
	for _, v := range seen {
		out = append(out, v)
		if len(out) == limit {
			break
		}
	}
	return out
}

// mergeWinningEntities picks, among responses that voted for winner,
// the highest-confidence model's scalar entity blocks.
func mergeWinningEntities(responses []ProviderResponse, winner Intent) NLUResult {
	var best *ProviderResponse
	for i := range responses {
		if responses[i].Result.Intent != winner {
			continue
		}
		if best == nil || responses[i].Result.Confidence > best.Result.Confidence {
			best = &responses[i]
		}
	}
	if best == nil {
		return NLUResult{Intent: winner}
	}
	return NLUResult{
		Intent:   winner,
		Event:    best.Result.Event,
		Reminder: best.Result.Reminder,
		Comment:  best.Result.Comment,
	}
}
