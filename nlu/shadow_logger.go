package nlu

import (
	"context"

	"github.com/MichaelMishaev/assitentWAbot-sub006/domain"
	"github.com/MichaelMishaev/assitentWAbot-sub006/repository"
	"github.com/sirupsen/logrus"
)

// ShadowLogger implements ShadowSink: it records every ensemble call's
// full per-model vote set for offline comparison, per spec.md §4.3
// step 7. Logging is fire-and-forget; a storage failure here must
// never affect the Router's response to the user.
type ShadowLogger struct {
	repo *repository.NLPComparisonRepository
}

func NewShadowLogger(repo *repository.NLPComparisonRepository) *ShadowLogger {
	return &ShadowLogger{repo: repo}
}

func (s *ShadowLogger) Record(ctx context.Context, userID, messageText string, votes []ProviderResponse, winner Intent) {
	go func() {
		votesTotal := 0
		matches := 0
		var maxDiff float64
		perModel := make([]domain.ModelVote, 0, len(votes))
		for _, v := range votes {
			perModel = append(perModel, domain.ModelVote{
				Model:          v.Model,
				Intent:         string(v.Result.Intent),
				Confidence:     v.Result.Confidence,
				ResponseTimeMS: v.ResponseTimeMS,
			})
			votesTotal++
			if v.Result.Intent == winner {
				matches++
			}
			for _, other := range votes {
				diff := v.Result.Confidence - other.Result.Confidence
				if diff < 0 {
					diff = -diff
				}
				if diff > maxDiff {
					maxDiff = diff
				}
			}
		}

		entry := &domain.NLPComparisonEntry{
			UserID:         userID,
			MessageText:    messageText,
			PerModel:       perModel,
			IntentMatch:    votesTotal > 0 && matches == votesTotal,
			ConfidenceDiff: maxDiff,
		}
		if err := s.repo.Append(context.Background(), entry); err != nil {
			logrus.WithError(err).Warn("[NLU] failed to append shadow comparison entry")
		}
	}()
}
