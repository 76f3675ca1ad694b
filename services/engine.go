package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"healthcare-analytics/models"
	"healthcare-analytics/utils"
)

// Engine fans the five aggregation transforms out over one cleaned record set.
type Engine struct {
	policy  models.Policy
	buckets AgeBuckets
	workers int
	logger  *utils.Logger
}

// NewEngine creates an Engine running at most workers transforms at once.
func NewEngine(policy models.Policy, workers int, logger *utils.Logger) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		policy:  policy,
		buckets: NewAgeBuckets(policy),
		workers: workers,
		logger:  logger,
	}
}

// Run computes every view. Each transform writes only its own field of the
// result, so no locking is needed. The only possible error is ctx's.
func (e *Engine) Run(ctx context.Context, records []*models.Record) (*models.Aggregates, error) {
	start := time.Now()
	agg := &models.Aggregates{}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	transforms := []struct {
		name string
		run  func()
	}{
		{"disease_gender_ratio", func() { agg.GenderRatio = GenderRatio(records) }},
		{"most_common_diseases", func() { agg.TopDiseases = TopDiseases(records, e.policy.TopN) }},
		{"age_category", func() { agg.AgeCategory = AgeCategory(records, e.buckets) }},
		{"senior_citizen_flag", func() { agg.SeniorFlag = SeniorFlag(records, e.policy.SeniorAge) }},
		{"disease_trend_over_the_week", func() { agg.WeeklyTrend = WeeklyTrend(records) }},
	}

	for _, t := range transforms {
		t := t
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t.run()
			e.logger.Debug("[engine] %s computed", t.name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.logger.Info("[engine] 5 views computed over %d records in %v", len(records), time.Since(start))
	return agg, nil
}
