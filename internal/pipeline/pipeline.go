// Package pipeline orchestrates a fetch run: pull every market from its
// upstream API, validate the normalized rows, persist them and record batch
// bookkeeping and statistics.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alirezadp10/market-trends/internal/config"
	"github.com/alirezadp10/market-trends/internal/fetcher"
	"github.com/alirezadp10/market-trends/internal/models"
	"github.com/alirezadp10/market-trends/internal/store"
	"github.com/alirezadp10/market-trends/internal/validation"
)

// Options contains configuration options for the pipeline.
type Options struct {
	// Concurrency bounds the number of markets fetched in parallel.
	Concurrency int
	// CheckDateRange rejects points outside the configured date range.
	CheckDateRange bool
}

// DefaultOptions returns the default pipeline options.
func DefaultOptions() Options {
	return Options{Concurrency: 4, CheckDateRange: false}
}

// Publisher receives freshly stored points, e.g. for Redis fan-out.
// A nil Publisher disables publishing.
type Publisher interface {
	PublishPoints(ctx context.Context, points []models.PricePoint) error
}

// Result summarizes one pipeline run.
type Result struct {
	BatchID       string   `json:"batch_id"`
	Fetched       int      `json:"fetched"`
	Valid         int      `json:"valid"`
	Inserted      int      `json:"inserted"`
	Deduplicated  int      `json:"deduplicated"`
	FailedMarkets []string `json:"failed_markets,omitempty"`
	Status        string   `json:"status"`
}

// Pipeline wires the fetcher, validator and store together.
type Pipeline struct {
	options   Options
	fetcher   *fetcher.MarketFetcher
	validator *validation.DataValidator
	store     *store.Store
	publisher Publisher
}

// New creates a pipeline. publisher may be nil.
func New(cfg *config.Config, f *fetcher.MarketFetcher, st *store.Store, publisher Publisher, options Options) (*Pipeline, error) {
	start, err := cfg.StartDate()
	if err != nil {
		return nil, err
	}
	end, err := cfg.EndDate()
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		options:   options,
		fetcher:   f,
		validator: validation.New(start, end, options.CheckDateRange),
		store:     st,
		publisher: publisher,
	}, nil
}

// Run fetches the named markets (all registered markets when empty),
// validates and stores the result, then removes duplicate day rows.
func (p *Pipeline) Run(ctx context.Context, marketNames []string) (*Result, error) {
	if len(marketNames) == 0 {
		marketNames = config.MarketNames()
	}
	batchID := generateBatchID("prices")
	log.Printf("Processing batch %s for %d markets", batchID, len(marketNames))

	points, failed := p.fetchAll(ctx, marketNames)
	for i := range points {
		points[i].BatchID = batchID
	}

	validPoints, dropped := p.validator.ValidateBatch(points)
	log.Printf("Validated %d/%d points for batch %s (%d dropped)",
		len(validPoints), len(points), batchID, dropped)

	metadata, _ := json.Marshal(map[string]interface{}{
		"markets":        marketNames,
		"failed_markets": failed,
		"fetched_count":  len(points),
		"valid_count":    len(validPoints),
	})
	batch := &models.FetchBatch{
		ID:          batchID,
		CreatedAt:   time.Now(),
		Status:      models.BatchProcessing,
		PointCount:  len(validPoints),
		MarketCount: len(marketNames) - len(failed),
		Metadata:    metadata,
	}
	if err := p.store.InsertFetchBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to insert batch record: %w", err)
	}

	inserted, insertErr := p.store.InsertNewPoints(ctx, validPoints)
	log.Printf("Inserted %d new points for batch %s", inserted, batchID)

	deduped, dedupeErr := p.store.RemoveDuplicates(ctx)
	if dedupeErr != nil {
		log.Printf("Error removing duplicates: %v", dedupeErr)
	}

	if stats := computeStatistics(batchID, validPoints); stats != nil {
		if err := p.store.InsertBatchStatistics(ctx, stats); err != nil {
			// Non-critical, continue.
			log.Printf("Error inserting statistics: %v", err)
		}
	}

	status := models.BatchCompleted
	if len(failed) > 0 || insertErr != nil {
		status = models.BatchPartial
	}
	if len(validPoints) == 0 {
		status = models.BatchFailed
	}
	now := time.Now()
	if err := p.store.UpdateBatchStatus(ctx, batchID, status, &now); err != nil {
		log.Printf("Error updating batch status: %v", err)
	}

	if p.publisher != nil && len(validPoints) > 0 {
		if err := p.publisher.PublishPoints(ctx, latestPerMarket(validPoints)); err != nil {
			log.Printf("Error publishing points: %v", err)
		}
	}

	result := &Result{
		BatchID:       batchID,
		Fetched:       len(points),
		Valid:         len(validPoints),
		Inserted:      inserted,
		Deduplicated:  deduped,
		FailedMarkets: failed,
		Status:        status,
	}
	log.Printf("Processed batch %s: %d points stored, %d markets failed",
		batchID, inserted, len(failed))

	if insertErr != nil {
		return result, insertErr
	}
	return result, nil
}

// fetchAll pulls all markets through a bounded worker pool. A failing market
// is reported, not fatal.
func (p *Pipeline) fetchAll(ctx context.Context, marketNames []string) ([]models.PricePoint, []string) {
	type fetchResult struct {
		market string
		points []models.PricePoint
		err    error
	}

	marketCh := make(chan string, len(marketNames))
	resultCh := make(chan fetchResult, len(marketNames))

	var wg sync.WaitGroup
	workerCount := p.options.Concurrency
	if workerCount <= 0 || workerCount > len(marketNames) {
		workerCount = len(marketNames)
	}
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range marketCh {
				log.Printf("Fetching %s...", name)
				points, err := p.fetcher.FetchMarket(ctx, name)
				resultCh <- fetchResult{market: name, points: points, err: err}
			}
		}()
	}

	for _, name := range marketNames {
		marketCh <- name
	}
	close(marketCh)
	wg.Wait()
	close(resultCh)

	var all []models.PricePoint
	var failed []string
	for res := range resultCh {
		if res.err != nil {
			log.Printf("Error fetching %s: %v", res.market, res.err)
			failed = append(failed, res.market)
			continue
		}
		all = append(all, res.points...)
	}
	sort.Strings(failed)
	return all, failed
}

// computeStatistics summarizes the closing values of a batch.
func computeStatistics(batchID string, points []models.PricePoint) *models.BatchStatistics {
	if len(points) == 0 {
		return nil
	}

	closings := make([]float64, len(points))
	for i, p := range points {
		closings[i] = p.Closing
	}
	sort.Float64s(closings)

	var sum float64
	for _, c := range closings {
		sum += c
	}
	mean := sum / float64(len(closings))

	var median float64
	if len(closings)%2 == 0 {
		mid := len(closings) / 2
		median = (closings[mid-1] + closings[mid]) / 2
	} else {
		median = closings[len(closings)/2]
	}
	min := closings[0]
	max := closings[len(closings)-1]

	stats := &models.BatchStatistics{
		BatchID:       batchID,
		MeanClosing:   &mean,
		MedianClosing: &median,
		MinClosing:    &min,
		MaxClosing:    &max,
		PointCount:    len(points),
	}
	if blob, err := json.Marshal(map[string]interface{}{
		"mean":   mean,
		"median": median,
		"min":    min,
		"max":    max,
		"count":  len(points),
	}); err == nil {
		stats.StatisticsJSON = blob
	}
	return stats
}

// latestPerMarket returns the chronologically newest point of each market.
func latestPerMarket(points []models.PricePoint) []models.PricePoint {
	latest := make(map[string]models.PricePoint)
	for _, p := range points {
		if cur, ok := latest[p.MarketType]; !ok || p.JalaliDate > cur.JalaliDate {
			latest[p.MarketType] = p
		}
	}
	out := make([]models.PricePoint, 0, len(latest))
	for _, p := range latest {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MarketType < out[j].MarketType })
	return out
}

// generateBatchID generates a unique batch ID.
func generateBatchID(prefix string) string {
	timestamp := time.Now().UTC().Format("20060102150405")
	return fmt.Sprintf("%s_%s_%s", prefix, timestamp, uuid.NewString()[:8])
}
