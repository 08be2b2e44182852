package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/pkg/metrics"
)

// Pinger is satisfied by the tax provider client
type Pinger interface {
	Ping(ctx context.Context) error
}

type TaxJobs struct {
	provider Pinger
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	healthy  bool
	checked  bool
}

func NewTaxJobs(provider Pinger, interval, timeout time.Duration, logger *slog.Logger) *TaxJobs {
	return &TaxJobs{
		provider: provider,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

func (j *TaxJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("tax_provider_health", j.interval, j.CheckTaxProvider)
}

// CheckTaxProvider probes the provider and publishes the result on the up gauge.
// Only state changes are logged at INFO/WARN.
func (j *TaxJobs) CheckTaxProvider(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	err := j.provider.Ping(ctx)
	healthy := err == nil
	changed := !j.checked || healthy != j.healthy
	j.checked = true
	j.healthy = healthy

	if healthy {
		metrics.TaxProviderUp.Set(1)
		if changed {
			j.logger.Info("Tax provider is reachable")
		}
		return nil
	}

	metrics.TaxProviderUp.Set(0)
	if changed {
		j.logger.Warn("Tax provider is unreachable, withholding will use the flat-rate fallback", "error", err)
	}
	return fmt.Errorf("tax provider health check failed: %w", err)
}
