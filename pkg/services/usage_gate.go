package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GateDecision is the usage gate's answer: whether the call may proceed and
// how much of the daily budget remains.
type GateDecision struct {
	Allowed   bool  `json:"allowed"`
	Remaining int64 `json:"remaining"`
}

// UsageGate is consulted before every tool invocation. It answers allow/deny
// with remaining quota; it does not itself block anything.
type UsageGate interface {
	Check(ctx context.Context, tenantID uuid.UUID) (GateDecision, error)
	Record(ctx context.Context, tenantID uuid.UUID, tool string) error
}

type usageGate struct {
	store      Store
	dailyQuota int
	logger     *zap.Logger
}

// NewUsageGate creates a Postgres-backed usage gate. A zero or negative
// quota disables the gate entirely.
func NewUsageGate(store Store, dailyQuota int, logger *zap.Logger) UsageGate {
	return &usageGate{
		store:      store,
		dailyQuota: dailyQuota,
		logger:     logger.Named("usage-gate"),
	}
}

var _ UsageGate = (*usageGate)(nil)

func (g *usageGate) Check(ctx context.Context, tenantID uuid.UUID) (GateDecision, error) {
	if g.dailyQuota <= 0 {
		return GateDecision{Allowed: true, Remaining: -1}, nil
	}

	startOfDay := time.Now().UTC().Truncate(24 * time.Hour)
	used, err := g.store.CountUsageSince(ctx, tenantID, startOfDay)
	if err != nil {
		return GateDecision{}, err
	}

	remaining := int64(g.dailyQuota) - used
	if remaining < 0 {
		remaining = 0
	}
	decision := GateDecision{Allowed: used < int64(g.dailyQuota), Remaining: remaining}
	if !decision.Allowed {
		g.logger.Warn("daily tool quota exhausted",
			zap.String("tenant_id", tenantID.String()),
			zap.Int64("used", used),
			zap.Int("quota", g.dailyQuota))
	}
	return decision, nil
}

func (g *usageGate) Record(ctx context.Context, tenantID uuid.UUID, tool string) error {
	return g.store.RecordUsage(ctx, tenantID, tool)
}
