// Package checker runs periodic HTTP health checks against entities.
//
// Every sweep, the checker finds active entities with a URL whose latest
// check is older than the sweep interval, issues a GET against the URL, and
// appends the outcome to the entity's status history. Outbound requests are
// rate limited so a large workspace cannot burst-probe its whole fleet.
package checker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/pulse-ops/statusgraph/internal/service"
	"github.com/pulse-ops/statusgraph/pkg/types"
)

// EntityLister finds entities due for a health check.
type EntityLister interface {
	ListEntitiesDueForCheck(ctx context.Context, olderThan time.Time) ([]types.Entity, error)
}

// StatusRecorder appends check outcomes to the status history.
type StatusRecorder interface {
	AppendStatus(ctx context.Context, req service.AppendStatusRequest) (*types.EntityStatusHistory, error)
}

// Config controls checker behavior.
type Config struct {
	// Interval is both the sweep period and the staleness threshold.
	Interval time.Duration

	// RequestTimeout bounds each outbound probe.
	RequestTimeout time.Duration

	// RatePerSecond caps outbound checks.
	RatePerSecond float64
}

// Checker is the background health check worker.
type Checker struct {
	store    EntityLister
	recorder StatusRecorder
	client   *http.Client
	limiter  *rate.Limiter
	interval time.Duration
	logger   *slog.Logger
}

// New creates a checker. Zero config fields fall back to defaults
// (15 minute interval, 10 second timeout, 5 checks per second).
func New(store EntityLister, recorder StatusRecorder, cfg Config, logger *slog.Logger) *Checker {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 5
	}
	return &Checker{
		store:    store,
		recorder: recorder,
		client:   &http.Client{Timeout: cfg.RequestTimeout},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		interval: cfg.Interval,
		logger:   logger,
	}
}

// Run sweeps until the context is cancelled. An initial sweep fires
// immediately so a fresh deployment doesn't wait a full interval.
func (c *Checker) Run(ctx context.Context) {
	c.logger.Info("health checker started", "interval", c.interval)

	if n, err := c.CheckDue(ctx); err != nil {
		c.logger.Error("health check sweep failed", "error", err)
	} else if n > 0 {
		c.logger.Info("health check sweep complete", "checked", n)
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("health checker stopped")
			return
		case <-ticker.C:
			n, err := c.CheckDue(ctx)
			if err != nil {
				c.logger.Error("health check sweep failed", "error", err)
				continue
			}
			if n > 0 {
				c.logger.Info("health check sweep complete", "checked", n)
			}
		}
	}
}

// CheckDue probes every entity whose latest check is stale and records the
// outcome. Returns the number of entities checked. Per-entity failures are
// recorded as Offline history rows, not returned as errors.
func (c *Checker) CheckDue(ctx context.Context) (int, error) {
	entities, err := c.store.ListEntitiesDueForCheck(ctx, time.Now().UTC().Add(-c.interval))
	if err != nil {
		return 0, fmt.Errorf("listing entities due for check: %w", err)
	}

	checked := 0
	for _, entity := range entities {
		if entity.URL == "" {
			continue
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return checked, err
		}

		status, message, responseMs := c.probe(ctx, entity.URL)

		if _, err := c.recorder.AppendStatus(ctx, service.AppendStatusRequest{
			EntityID:      entity.ID,
			Status:        status,
			StatusMessage: message,
			ResponseTime:  responseMs,
		}); err != nil {
			c.logger.Error("failed to record check result",
				"entity", entity.ID, "status", status, "error", err)
			continue
		}
		checked++
	}
	return checked, nil
}

// probe issues one GET and maps the outcome to a status. Connection
// failures are Offline with no timing sample; HTTP errors are Error with
// the measured latency.
func (c *Checker) probe(ctx context.Context, url string) (types.EntityStatus, string, *float64) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.StatusOffline, fmt.Sprintf("invalid URL: %v", err), nil
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	elapsed := float64(time.Since(start).Microseconds()) / 1000.0
	if err != nil {
		return types.StatusOffline, fmt.Sprintf("request failed: %v", err), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return types.StatusOnline, fmt.Sprintf("HTTP %d", resp.StatusCode), &elapsed
	}
	return types.StatusError, fmt.Sprintf("HTTP %d", resp.StatusCode), &elapsed
}
