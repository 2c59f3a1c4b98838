package scheduler

import (
	"context"
	"strings"

	"github.com/alirezadp10/market-trends/internal/pipeline"
	"github.com/alirezadp10/market-trends/internal/store"
)

// FetchJob runs the full fetch pipeline. The optional "markets" parameter
// is a comma-separated list of market names; empty means all.
type FetchJob struct {
	pipeline *pipeline.Pipeline
}

// NewFetchJob creates the price-fetching job.
func NewFetchJob(p *pipeline.Pipeline) *FetchJob {
	return &FetchJob{pipeline: p}
}

// Name implements Job.
func (j *FetchJob) Name() string { return "fetch_prices" }

// Description implements Job.
func (j *FetchJob) Description() string {
	return "Fetch price history for tracked markets and store new rows"
}

// Execute implements Job.
func (j *FetchJob) Execute(ctx context.Context, params map[string]string) error {
	var markets []string
	if raw := params["markets"]; raw != "" {
		for _, m := range strings.Split(raw, ",") {
			if m = strings.TrimSpace(m); m != "" {
				markets = append(markets, m)
			}
		}
	}
	_, err := j.pipeline.Run(ctx, markets)
	return err
}

// DedupeJob removes duplicate (market, day) rows from the store.
type DedupeJob struct {
	store *store.Store
}

// NewDedupeJob creates the duplicate-removal job.
func NewDedupeJob(st *store.Store) *DedupeJob {
	return &DedupeJob{store: st}
}

// Name implements Job.
func (j *DedupeJob) Name() string { return "remove_duplicates" }

// Description implements Job.
func (j *DedupeJob) Description() string {
	return "Remove duplicate rows sharing a (market, day) pair"
}

// Execute implements Job.
func (j *DedupeJob) Execute(ctx context.Context, params map[string]string) error {
	_, err := j.store.RemoveDuplicates(ctx)
	return err
}
