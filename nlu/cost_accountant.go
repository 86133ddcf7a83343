package nlu

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/MichaelMishaev/assitentWAbot-sub006/core/clock"
	"github.com/MichaelMishaev/assitentWAbot-sub006/domain"
	"github.com/MichaelMishaev/assitentWAbot-sub006/repository"
	"github.com/sirupsen/logrus"
)

// OperatorAlerter delivers a cost-threshold notification to the
// configured operator phone via the transport's Egress adapter.
type OperatorAlerter interface {
	AlertOperator(ctx context.Context, text string) error
}

// CostAccountant implements CostSink: it persists every model
// invocation's cost and, once cumulative month-to-date cost crosses a
// new $10 multiple, raises an idempotent operator alert, per
// spec.md §4.3 step 8.
type CostAccountant struct {
	repo       *repository.CostLogRepository
	alerter    OperatorAlerter
	clock      clock.Clock
	mu         sync.Mutex
	lastAlertedMultiple int
}

func NewCostAccountant(repo *repository.CostLogRepository, alerter OperatorAlerter, clk clock.Clock) *CostAccountant {
	return &CostAccountant{repo: repo, alerter: alerter, clock: clk}
}

func (a *CostAccountant) Record(ctx context.Context, userID *string, model, operation string, costUSD float64, tokens int) {
	entry := &domain.AICostLogEntry{
		UserID:     userID,
		Model:      model,
		Operation:  operation,
		CostUSD:    costUSD,
		TokensUsed: tokens,
		CreatedAt:  a.clock.Now(),
	}
	if err := a.repo.Append(ctx, entry); err != nil {
		logrus.WithError(err).Warn("[NLU] failed to append AI cost log entry")
		return
	}

	total, err := a.repo.MonthToDateTotal(ctx, a.clock.Now())
	if err != nil {
		logrus.WithError(err).Warn("[NLU] failed to compute month-to-date AI cost")
		return
	}

	multiple := int(math.Floor(total / 10))
	a.mu.Lock()
	crossed := multiple > a.lastAlertedMultiple
	if crossed {
		a.lastAlertedMultiple = multiple
	}
	a.mu.Unlock()

	if crossed && a.alerter != nil {
		msg := fmt.Sprintf("AI cost month-to-date crossed $%d (current total: $%.2f)", multiple*10, total)
		if err := a.alerter.AlertOperator(ctx, msg); err != nil {
			logrus.WithError(err).Warn("[NLU] failed to deliver operator cost alert")
		}
	}
}
