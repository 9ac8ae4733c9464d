package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Reevaluator periodically reruns compliance evaluation for every holder so
// certificates roll from compliant to expiring to expired as calendar days
// pass, without waiting for a new upload.
type Reevaluator struct {
	service  ReevalService
	logger   *zap.Logger
	interval time.Duration

	mu        sync.Mutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// ReevalService is the slice of the evaluation service the worker needs.
type ReevalService interface {
	ReevaluateAll(ctx context.Context) (int, error)
}

// NewReevaluator creates a new re-evaluation worker.
func NewReevaluator(service ReevalService, interval time.Duration, logger *zap.Logger) *Reevaluator {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Reevaluator{
		service:  service,
		logger:   logger,
		interval: interval,
	}
}

// Start starts the re-evaluation loop.
func (r *Reevaluator) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isRunning {
		return fmt.Errorf("reevaluator is already running")
	}

	r.ctx, r.cancel = context.WithCancel(ctx)
	r.isRunning = true

	r.logger.Info("Reevaluator started",
		zap.Duration("interval", r.interval))

	go r.loop()

	return nil
}

// Stop stops the re-evaluation loop.
func (r *Reevaluator) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.isRunning {
		return
	}

	r.isRunning = false
	if r.cancel != nil {
		r.cancel()
	}

	r.logger.Info("Reevaluator stopped")
}

// Name returns the worker name for identification
func (r *Reevaluator) Name() string {
	return "Reevaluator"
}

func (r *Reevaluator) loop() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Run once on start so restarts catch up immediately.
	r.runOnce()

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("Reevaluation loop context cancelled")
			return

		case <-ticker.C:
			r.runOnce()
		}
	}
}

func (r *Reevaluator) runOnce() {
	started := time.Now()
	changed, err := r.service.ReevaluateAll(r.ctx)
	if err != nil {
		r.logger.Error("Scheduled reevaluation failed", zap.Error(err))
		return
	}

	r.logger.Info("Scheduled reevaluation completed",
		zap.Int("status_changes", changed),
		zap.Duration("elapsed", time.Since(started)))
}
