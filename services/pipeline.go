package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"healthcare-analytics/metrics"
	"healthcare-analytics/models"
	"healthcare-analytics/storage"
	"healthcare-analytics/utils"
)

// Options tune how a Pipeline executes. Zero values fall back to defaults.
type Options struct {
	Workers        int
	SinkThrottleMs int
	Retry          *utils.RetryConfig
	Metrics        *metrics.Registry
}

// RunResult is everything one run produced.
type RunResult struct {
	RunID      string
	Report     *models.CleaningReport
	Cleaned    []*models.Record
	Aggregates *models.Aggregates
	SinkErrors []*SinkError
	Degraded   bool
}

// Pipeline runs validation, cleaning, aggregation and storage for one batch.
type Pipeline struct {
	policy    models.Policy
	validator *Validator
	cleaner   *Cleaner
	engine    *Engine
	sink      storage.Sink
	opts      Options
	logger    *utils.Logger
}

// NewPipeline wires the pipeline components around policy and sink.
func NewPipeline(policy models.Policy, sink storage.Sink, logger *utils.Logger, opts Options) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 5
	}
	if opts.Retry == nil {
		opts.Retry = &utils.RetryConfig{MaxAttempts: 1, Logger: logger}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewRegistry()
	}
	return &Pipeline{
		policy:    policy,
		validator: NewValidator(policy, logger),
		cleaner:   NewCleaner(policy, logger),
		engine:    NewEngine(policy, opts.Workers, logger),
		sink:      sink,
		opts:      opts,
		logger:    logger,
	}
}

type dataset struct {
	name string
	rows []any
}

// Run processes batch end to end. A *SchemaError aborts the run before
// anything is stored. Sink failures do not stop sibling datasets; they mark
// the result degraded and the returned error wraps ErrDegraded. Cancelling
// ctx during the store phase returns an error wrapping ctx.Err() instead.
func (p *Pipeline) Run(ctx context.Context, runID string, batch models.RawBatch) (*RunResult, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	m := p.opts.Metrics

	p.logger.Info("[pipeline] Run %s started: %d raw rows from %s", runID, len(batch.Rows), sourceName(batch))
	m.RecordsIngested.Add(float64(len(batch.Rows)))

	start := time.Now()
	vr := p.validator.Validate(batch)
	m.StageDuration.WithLabelValues("validate").Observe(time.Since(start).Seconds())
	if len(vr.MissingColumns) > 0 {
		m.LastRunSuccess.Set(0)
		return nil, &SchemaError{Source: batch.Source, Missing: vr.MissingColumns}
	}

	start = time.Now()
	castFailures := vr.CastFailures()
	cleaned, report := p.cleaner.Clean(vr.Records, vr.MissingColumns, castFailures)
	report.RunID = runID
	m.StageDuration.WithLabelValues("clean").Observe(time.Since(start).Seconds())
	p.recordCleaning(report)

	start = time.Now()
	agg, err := p.engine.Run(ctx, cleaned)
	m.StageDuration.WithLabelValues("aggregate").Observe(time.Since(start).Seconds())
	if err != nil {
		m.LastRunSuccess.Set(0)
		return nil, fmt.Errorf("aggregate: %w", err)
	}

	result := &RunResult{
		RunID:      runID,
		Report:     report,
		Cleaned:    cleaned,
		Aggregates: agg,
	}

	start = time.Now()
	result.SinkErrors = p.store(ctx, []dataset{
		{storage.DatasetRaw, toAny(batch.Rows)},
		{storage.DatasetCleaned, toAny(cleaned)},
		{storage.DatasetCleaningReport, []any{report}},
		{storage.DatasetGenderRatio, toAny(agg.GenderRatio)},
		{storage.DatasetTopDiseases, toAny(agg.TopDiseases)},
		{storage.DatasetAgeCategory, toAny(agg.AgeCategory)},
		{storage.DatasetSeniorFlag, toAny(agg.SeniorFlag)},
		{storage.DatasetWeeklyTrend, toAny(agg.WeeklyTrend)},
	})
	m.StageDuration.WithLabelValues("store").Observe(time.Since(start).Seconds())

	result.Degraded = len(result.SinkErrors) > 0
	// an interrupted store leaves datasets in an unknown state; the run fails
	if err := ctx.Err(); err != nil {
		m.LastRunSuccess.Set(0)
		p.logger.Warn("[pipeline] Run %s interrupted during store: %v", runID, err)
		return result, fmt.Errorf("store interrupted: %w", err)
	}

	if result.Degraded {
		m.LastRunSuccess.Set(0)
		errs := make([]error, len(result.SinkErrors))
		for i, se := range result.SinkErrors {
			errs[i] = se
		}
		p.logger.Warn("[pipeline] Run %s degraded: %d datasets failed to store", runID, len(errs))
		return result, fmt.Errorf("%w: %w", ErrDegraded, errors.Join(errs...))
	}

	m.LastRunSuccess.Set(1)
	p.logger.Info("[pipeline] Run %s complete: %d cleaned records, all datasets stored", runID, len(cleaned))
	return result, nil
}

// store writes every dataset independently through the worker pool and
// returns the failures in dataset order.
func (p *Pipeline) store(ctx context.Context, datasets []dataset) []*SinkError {
	pool := utils.NewWorkerPool(p.opts.Workers, p.opts.SinkThrottleMs)
	failures := make([]*SinkError, len(datasets))
	var mu sync.Mutex

	for i, ds := range datasets {
		i, ds := i, ds
		pool.Submit(func() {
			err := p.opts.Retry.Do(ctx, "store "+ds.name, func() error {
				return p.sink.Store(ctx, ds.name, ds.rows)
			})

			status := "ok"
			if err != nil {
				status = "error"
				p.logger.Error("[sink] %s: %v", ds.name, err)
				mu.Lock()
				failures[i] = &SinkError{Dataset: ds.name, Err: err}
				mu.Unlock()
			} else {
				p.logger.Info("[sink] %s stored (%d rows)", ds.name, len(ds.rows))
			}
			p.opts.Metrics.SinkWrites.WithLabelValues(ds.name, status).Inc()
		})
	}
	pool.Wait()

	var out []*SinkError
	for _, f := range failures {
		if f != nil {
			out = append(out, f)
		}
	}
	return out
}

func (p *Pipeline) recordCleaning(report *models.CleaningReport) {
	m := p.opts.Metrics
	m.RecordsCleaned.Add(float64(report.CleanedRecords))
	m.DuplicateRecords.Add(float64(report.DuplicateRecords))
	m.DroppedRecords.Add(float64(report.DroppedRecords))
	for field, n := range report.ColumnsWithNullCount {
		m.NullValues.WithLabelValues(field).Add(float64(n))
	}
	for field, n := range report.CastFailures {
		m.CastFailures.WithLabelValues(field).Add(float64(n))
	}
}

func toAny[T any](s []T) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
