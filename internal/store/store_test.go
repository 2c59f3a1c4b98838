package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alirezadp10/market-trends/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), "")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testPoint(market, date string, closing float64) models.PricePoint {
	return models.PricePoint{
		MarketType:    market,
		JalaliDate:    date,
		GregorianDate: "2024-03-20",
		Closing:       closing,
		Source:        models.TGJUIndexSource,
		BatchID:       "prices_test",
	}
}

func TestOpenCreatesSchema(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "schema.db"), "custom_prices")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer s.Close()

	// Every table in the schema must exist, including the ones whose
	// statements carry no table-name placeholder.
	for _, table := range []string{"custom_prices", "fetch_batches", "batch_statistics", "market_events"} {
		var name string
		err := s.db.Get(&name, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
		if err != nil {
			t.Errorf("Expected table %q to exist, but got error: %v", table, err)
		}
	}
}

func TestInsertNewPoints(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	points := []models.PricePoint{
		testPoint("dollar", "1403/01/01", 600000),
		testPoint("dollar", "1403/01/02", 610000),
		testPoint("gold", "1403/01/01", 40000000),
	}
	inserted, err := s.InsertNewPoints(ctx, points)
	if err != nil {
		t.Fatalf("Failed to insert points: %v", err)
	}
	if inserted != 3 {
		t.Errorf("Expected 3 inserted, but got %d", inserted)
	}

	// Re-inserting the same days is a no-op, even with different values.
	again := []models.PricePoint{
		testPoint("dollar", "1403/01/01", 999999),
		testPoint("dollar", "1403/01/03", 620000),
	}
	inserted, err = s.InsertNewPoints(ctx, again)
	if err != nil {
		t.Fatalf("Failed to insert points: %v", err)
	}
	if inserted != 1 {
		t.Errorf("Expected 1 inserted, but got %d", inserted)
	}

	loaded, err := s.LoadPrices(ctx, []string{"dollar"})
	if err != nil {
		t.Fatalf("Failed to load prices: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("Expected 3 dollar rows, but got %d", len(loaded))
	}
	// The original value survives the duplicate insert attempt.
	if loaded[0].Closing != 600000 {
		t.Errorf("Expected 600000, but got %f", loaded[0].Closing)
	}
}

func TestRemoveDuplicates(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	// Insert duplicates directly, bypassing the guarded insert.
	for i := 0; i < 3; i++ {
		_, err := s.db.Exec(
			"INSERT INTO market_data (market_type, jalali_date, gregorian_date, closing, source) VALUES (?, ?, ?, ?, ?)",
			"dollar", "1403/01/01", "2024-03-20", 600000+i, "tgju_index",
		)
		if err != nil {
			t.Fatalf("Failed to seed duplicates: %v", err)
		}
	}

	removed, err := s.RemoveDuplicates(ctx)
	if err != nil {
		t.Fatalf("Failed to remove duplicates: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 removed, but got %d", removed)
	}

	loaded, err := s.LoadPrices(ctx, nil)
	if err != nil {
		t.Fatalf("Failed to load prices: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("Expected 1 row, but got %d", len(loaded))
	}
	// The oldest row wins.
	if loaded[0].Closing != 600000 {
		t.Errorf("Expected 600000, but got %f", loaded[0].Closing)
	}
}

func TestLatestPrices(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	points := []models.PricePoint{
		testPoint("dollar", "1403/01/01", 600000),
		testPoint("dollar", "1403/01/02", 610000),
		testPoint("gold", "1402/12/29", 40000000),
	}
	if _, err := s.InsertNewPoints(ctx, points); err != nil {
		t.Fatalf("Failed to insert points: %v", err)
	}

	latest, err := s.LatestPrices(ctx)
	if err != nil {
		t.Fatalf("Failed to load latest prices: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("Expected 2 rows, but got %d", len(latest))
	}
	if latest[0].MarketType != "dollar" || latest[0].JalaliDate != "1403/01/02" {
		t.Errorf("Expected dollar 1403/01/02, but got %s %s", latest[0].MarketType, latest[0].JalaliDate)
	}
	if latest[1].MarketType != "gold" || latest[1].JalaliDate != "1402/12/29" {
		t.Errorf("Expected gold 1402/12/29, but got %s %s", latest[1].MarketType, latest[1].JalaliDate)
	}
}

func TestPriceHistory(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	points := []models.PricePoint{
		testPoint("dollar", "1403/01/01", 600000),
		testPoint("dollar", "1403/01/02", 610000),
		testPoint("dollar", "1403/01/03", 620000),
	}
	if _, err := s.InsertNewPoints(ctx, points); err != nil {
		t.Fatalf("Failed to insert points: %v", err)
	}

	history, err := s.PriceHistory(ctx, "dollar", 2)
	if err != nil {
		t.Fatalf("Failed to load history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 rows, but got %d", len(history))
	}
	// Newest first.
	if history[0].JalaliDate != "1403/01/03" {
		t.Errorf("Expected 1403/01/03 first, but got %s", history[0].JalaliDate)
	}
}

func TestCountByMarket(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	points := []models.PricePoint{
		testPoint("dollar", "1403/01/01", 600000),
		testPoint("dollar", "1403/01/02", 610000),
		testPoint("gold", "1403/01/01", 40000000),
	}
	if _, err := s.InsertNewPoints(ctx, points); err != nil {
		t.Fatalf("Failed to insert points: %v", err)
	}

	counts, err := s.CountByMarket(ctx)
	if err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	if counts["dollar"] != 2 || counts["gold"] != 1 {
		t.Errorf("Unexpected counts: %v", counts)
	}
}

func TestBatchLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	batch := &models.FetchBatch{
		ID:          "prices_20240320_abcd1234",
		CreatedAt:   time.Now().UTC(),
		Status:      models.BatchProcessing,
		PointCount:  10,
		MarketCount: 2,
		Metadata:    []byte(`{"markets": ["dollar", "gold"]}`),
	}
	if err := s.InsertFetchBatch(ctx, batch); err != nil {
		t.Fatalf("Failed to insert batch: %v", err)
	}

	now := time.Now().UTC()
	if err := s.UpdateBatchStatus(ctx, batch.ID, models.BatchCompleted, &now); err != nil {
		t.Fatalf("Failed to update batch status: %v", err)
	}

	got, err := s.GetBatch(ctx, batch.ID)
	if err != nil {
		t.Fatalf("Failed to get batch: %v", err)
	}
	if got == nil {
		t.Fatal("Expected batch, but got nil")
	}
	if got.Status != models.BatchCompleted {
		t.Errorf("Expected completed, but got %s", got.Status)
	}
	if got.ProcessedAt == nil {
		t.Error("Expected processed_at to be set")
	}

	// Missing batches return nil without error.
	missing, err := s.GetBatch(ctx, "no-such-batch")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil, but got %+v", missing)
	}

	if err := s.UpdateBatchStatus(ctx, "no-such-batch", models.BatchFailed, nil); err == nil {
		t.Error("Expected error updating missing batch, but got none")
	}
}

func TestBatchStatistics(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	mean, median := 100.5, 99.0
	stats := &models.BatchStatistics{
		BatchID:       "prices_test",
		MeanClosing:   &mean,
		MedianClosing: &median,
		PointCount:    4,
	}
	if err := s.InsertBatchStatistics(ctx, stats); err != nil {
		t.Fatalf("Failed to insert statistics: %v", err)
	}

	got, err := s.GetBatchStatistics(ctx, "prices_test")
	if err != nil {
		t.Fatalf("Failed to get statistics: %v", err)
	}
	if got == nil {
		t.Fatal("Expected statistics, but got nil")
	}
	if got.MeanClosing == nil || *got.MeanClosing != 100.5 {
		t.Errorf("Unexpected mean: %v", got.MeanClosing)
	}

	missing, err := s.GetBatchStatistics(ctx, "no-such-batch")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil, but got %+v", missing)
	}
}
