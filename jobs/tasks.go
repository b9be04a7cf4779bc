package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPriceCacheInvalidate drops cached price quotes after a
	// price-affecting batch commits.
	TaskPriceCacheInvalidate = "pricing:cache_invalidate"
	// TaskStaleRuleAudit counts expired special prices that are still
	// flagged active and publishes the result as a gauge.
	TaskStaleRuleAudit = "pricing:stale_rule_audit"
)

// NewPriceCacheInvalidateTask constructs an Asynq task.
func NewPriceCacheInvalidateTask() *asynq.Task {
	return asynq.NewTask(TaskPriceCacheInvalidate, nil)
}

// NewStaleRuleAuditTask constructs an Asynq task.
func NewStaleRuleAuditTask() *asynq.Task {
	return asynq.NewTask(TaskStaleRuleAudit, nil)
}

// QuotePurger removes cached price quotes.
type QuotePurger interface {
	Purge(ctx context.Context) error
}

// HandlePriceCacheInvalidate returns a handler that purges the quote cache.
func HandlePriceCacheInvalidate(cache QuotePurger, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		if err := cache.Purge(ctx); err != nil {
			logger.Warn("purge quote cache", slog.Any("error", err))
			return err
		}
		logger.Info("quote cache purged")
		return nil
	}
}

// StaleRuleGauge receives the stale-rule audit result.
type StaleRuleGauge interface {
	SetStaleRules(n float64)
}

// StaleRuleAuditor scans for special prices whose validity window has
// closed without the source system deactivating them.
type StaleRuleAuditor struct {
	pool    *pgxpool.Pool
	metrics StaleRuleGauge
	logger  *slog.Logger
}

// NewStaleRuleAuditor constructs the auditor.
func NewStaleRuleAuditor(pool *pgxpool.Pool, metrics StaleRuleGauge, logger *slog.Logger) *StaleRuleAuditor {
	return &StaleRuleAuditor{pool: pool, metrics: metrics, logger: logger}
}

// Handle processes TaskStaleRuleAudit tasks.
func (a *StaleRuleAuditor) Handle(ctx context.Context, t *asynq.Task) error {
	const query = `SELECT COUNT(*) FROM special_prices WHERE is_active AND ends_at IS NOT NULL AND ends_at < now()`
	var count int64
	if err := a.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		a.logger.Warn("stale rule audit", slog.Any("error", err))
		return err
	}
	if a.metrics != nil {
		a.metrics.SetStaleRules(float64(count))
	}
	if count > 0 {
		a.logger.Warn("stale price rules detected", slog.Int64("count", count))
	}
	return nil
}
