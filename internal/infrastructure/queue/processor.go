// Package queue runs propagation jobs stored in the database: a poll loop
// claims due jobs, a fixed pool of workers delivers them to the registered
// handler, and the processor settles each outcome with retry and dead-letter
// bookkeeping.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/erp/records/internal/domain/propagation"
	"github.com/erp/records/internal/infrastructure/config"
	"github.com/erp/records/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ErrNoHandler is returned by Start when no handler was registered
var ErrNoHandler = errors.New("queue: no handler registered")

const settleTimeout = 5 * time.Second

// ProcessorConfig holds configuration for the job processor
type ProcessorConfig struct {
	Workers           int
	BatchSize         int
	PollInterval      time.Duration
	BaseBackoff       time.Duration
	JobTimeout        time.Duration
	VisibilityTimeout time.Duration
	CleanupEnabled    bool
	CleanupInterval   time.Duration
	CleanupRetention  time.Duration
}

// DefaultProcessorConfig returns default configuration
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		Workers:           4,
		BatchSize:         50,
		PollInterval:      2 * time.Second,
		BaseBackoff:       propagation.DefaultBaseBackoff,
		JobTimeout:        30 * time.Second,
		VisibilityTimeout: 5 * time.Minute,
		CleanupEnabled:    true,
		CleanupInterval:   time.Hour,
		CleanupRetention:  7 * 24 * time.Hour,
	}
}

// ProcessorConfigFrom maps the propagation section of the app config
func ProcessorConfigFrom(cfg config.PropagationConfig) ProcessorConfig {
	return ProcessorConfig{
		Workers:           cfg.Workers,
		BatchSize:         cfg.BatchSize,
		PollInterval:      cfg.PollInterval,
		BaseBackoff:       cfg.BaseBackoff,
		JobTimeout:        cfg.JobTimeout,
		VisibilityTimeout: cfg.VisibilityTimeout,
		CleanupEnabled:    cfg.CleanupRetention > 0,
		CleanupInterval:   cfg.CleanupInterval,
		CleanupRetention:  cfg.CleanupRetention,
	}
}

// Processor delivers due propagation jobs to a handler
type Processor struct {
	repo    propagation.JobRepository
	handler propagation.Handler
	config  ProcessorConfig
	logger  *zap.Logger
	metrics *telemetry.PropagationMetrics
	now     func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewProcessor creates a new processor. metrics may be nil.
func NewProcessor(
	repo propagation.JobRepository,
	config ProcessorConfig,
	logger *zap.Logger,
	metrics *telemetry.PropagationMetrics,
) *Processor {
	defaults := DefaultProcessorConfig()
	if config.Workers < 1 {
		config.Workers = defaults.Workers
	}
	if config.BatchSize < 1 {
		config.BatchSize = defaults.BatchSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = defaults.JobTimeout
	}
	if config.VisibilityTimeout <= 0 {
		config.VisibilityTimeout = defaults.VisibilityTimeout
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}
	return &Processor{
		repo:    repo,
		config:  config,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// OnReceive registers the handler invoked for every delivery
func (p *Processor) OnReceive(handler propagation.Handler) {
	p.handler = handler
}

// Start starts the poll loop, the workers and the cleanup loop
func (p *Processor) Start(ctx context.Context) error {
	if p.handler == nil {
		return ErrNoHandler
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	jobs := make(chan *propagation.Job, p.config.BatchSize)

	p.wg.Add(1)
	go p.pollLoop(ctx, jobs)

	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, jobs)
	}

	if p.config.CleanupEnabled {
		p.wg.Add(1)
		go p.cleanupLoop(ctx)
	}

	p.logger.Info("propagation processor started",
		zap.Int("workers", p.config.Workers),
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
	)
	return nil
}

// Stop cancels the loops and waits for in-flight deliveries to settle
func (p *Processor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("propagation processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Processor) pollLoop(ctx context.Context, jobs chan<- *propagation.Job) {
	defer p.wg.Done()
	defer close(jobs)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			free := cap(jobs) - len(jobs)
			if free == 0 {
				continue
			}
			claimed, err := p.claim(ctx, free)
			if err != nil {
				p.logger.Error("failed to claim propagation jobs", zap.Error(err))
				continue
			}
			for i, job := range claimed {
				select {
				case jobs <- job:
				case <-ctx.Done():
					p.release(claimed[i:])
					return
				}
			}
		}
	}
}

func (p *Processor) worker(ctx context.Context, jobs <-chan *propagation.Job) {
	defer p.wg.Done()
	for job := range jobs {
		if ctx.Err() != nil {
			p.release([]*propagation.Job{job})
			continue
		}
		p.deliver(ctx, job)
	}
}

// release returns claimed jobs that were never started to the queue
func (p *Processor) release(jobs []*propagation.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), settleTimeout)
	defer cancel()
	for _, job := range jobs {
		claimed := job.Attempts
		job.Release()
		if err := p.repo.Settle(ctx, job, claimed); err != nil {
			p.logger.Warn("failed to release propagation job",
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
		}
	}
	if len(jobs) > 0 {
		p.logger.Info("released unstarted propagation jobs", zap.Int("count", len(jobs)))
	}
}

// RunOnce claims one batch and delivers it on the calling goroutine.
// It returns the number of jobs delivered.
func (p *Processor) RunOnce(ctx context.Context) (int, error) {
	if p.handler == nil {
		return 0, ErrNoHandler
	}
	claimed, err := p.claim(ctx, p.config.BatchSize)
	if err != nil {
		return 0, err
	}
	for _, job := range claimed {
		p.deliver(ctx, job)
	}
	return len(claimed), nil
}

func (p *Processor) claim(ctx context.Context, limit int) ([]*propagation.Job, error) {
	now := p.now()
	return p.repo.ClaimDue(ctx, now, now.Add(-p.config.VisibilityTimeout), limit)
}

func (p *Processor) deliver(ctx context.Context, job *propagation.Job) {
	delivery := propagation.Delivery{
		Job:         job,
		Attempt:     job.Attempts,
		MaxAttempts: job.MaxAttempts,
	}

	// a started delivery runs to completion or JobTimeout, even during shutdown
	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.config.JobTimeout)
	start := time.Now()
	outcome := p.handle(jobCtx, delivery)
	cancel()

	p.settle(ctx, job, outcome, time.Since(start))
}

func (p *Processor) handle(ctx context.Context, d propagation.Delivery) (outcome propagation.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = propagation.RetryableFailure(fmt.Errorf("handler panic: %v", r))
		}
	}()
	return p.handler.Handle(ctx, d)
}

func (p *Processor) settle(ctx context.Context, job *propagation.Job, outcome propagation.Outcome, elapsed time.Duration) {
	claimed := job.Attempts
	fields := []zap.Field{
		zap.String("job_id", job.ID.String()),
		zap.String("tenant_id", job.TenantID.String()),
		zap.String("subject_kind", string(job.SubjectKind)),
		zap.String("subject_id", job.SubjectID.String()),
		zap.Int("attempt", job.Attempts),
	}

	switch outcome.Kind {
	case propagation.OutcomeSuccess:
		job.MarkCompleted()
		p.logger.Debug("propagation job completed", fields...)
	case propagation.OutcomeFatal:
		job.MarkDead(outcome.Error())
		p.metrics.RecordDead(ctx, "fatal")
		p.logger.Error("propagation job moved to dead letter queue",
			append(fields, zap.String("reason", "fatal"), zap.String("last_error", job.LastError))...)
	default:
		job.MarkFailed(outcome.Error(), p.config.BaseBackoff)
		if job.IsDead() {
			p.metrics.RecordDead(ctx, "exhausted")
			p.logger.Error("propagation job moved to dead letter queue",
				append(fields, zap.String("reason", "exhausted"), zap.String("last_error", job.LastError))...)
		} else {
			p.metrics.RecordRetry(ctx)
			p.logger.Warn("propagation job will be retried",
				append(fields, zap.Timep("next_attempt_at", job.NextAttemptAt), zap.String("last_error", job.LastError))...)
		}
	}
	p.metrics.RecordDelivery(ctx, string(outcome.Kind), elapsed)

	// the delivery state must be written even when shutdown cancelled ctx
	updateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()
	err := p.repo.Settle(updateCtx, job, claimed)
	switch {
	case errors.Is(err, propagation.ErrStaleDelivery):
		p.logger.Warn("propagation job was reclaimed before it settled; outcome discarded", fields...)
	case err != nil:
		p.logger.Error("failed to update propagation job", append(fields, zap.Error(err))...)
	}
}

func (p *Processor) cleanupLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Cleanup(ctx)
		}
	}
}

// Cleanup removes completed jobs older than the retention period
func (p *Processor) Cleanup(ctx context.Context) {
	cutoff := p.now().Add(-p.config.CleanupRetention)
	deleted, err := p.repo.DeleteCompletedBefore(ctx, cutoff)
	if err != nil {
		p.logger.Error("failed to clean up completed propagation jobs", zap.Error(err))
		return
	}
	if deleted > 0 {
		p.logger.Info("cleaned up completed propagation jobs",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
}
