package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/alirezadp10/market-trends/internal/config"
	"github.com/alirezadp10/market-trends/internal/models"
	"github.com/alirezadp10/market-trends/internal/store"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.DBFile = filepath.Join(t.TempDir(), "test.db")
	cfg.ChartDir = t.TempDir()

	st, err := store.Open(cfg.DBFile, cfg.DBTable)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	points := []models.PricePoint{
		{MarketType: "Dollar", JalaliDate: "1400/01/01", GregorianDate: "2021-03-21", Closing: 240000, Source: models.TGJUIndicatorSource},
		{MarketType: "Dollar", JalaliDate: "1401/01/01", GregorianDate: "2022-03-21", Closing: 280000, Source: models.TGJUIndicatorSource},
		{MarketType: "Dollar", JalaliDate: "1402/01/01", GregorianDate: "2023-03-21", Closing: 500000, Source: models.TGJUIndicatorSource},
		{MarketType: "Coin", JalaliDate: "1402/01/01", GregorianDate: "2023-03-21", Closing: 30000000, Source: models.TGJUIndicatorSource},
	}
	if _, err := st.InsertNewPoints(context.Background(), points); err != nil {
		t.Fatalf("Failed to seed points: %v", err)
	}

	return New(cfg, st)
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	rec := get(t, testServer(t), "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, but got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected ok, but got %s", body["status"])
	}
}

func TestMarketsEndpoint(t *testing.T) {
	rec := get(t, testServer(t), "/api/markets")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, but got %d", rec.Code)
	}
	var markets []config.Market
	if err := json.Unmarshal(rec.Body.Bytes(), &markets); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(markets) != 16 {
		t.Errorf("Expected 16 markets, but got %d", len(markets))
	}
}

func TestLatestEndpoint(t *testing.T) {
	rec := get(t, testServer(t), "/api/latest")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, but got %d", rec.Code)
	}
	var points []models.PricePoint
	if err := json.Unmarshal(rec.Body.Bytes(), &points); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("Expected 2 points, but got %d", len(points))
	}
	if points[1].MarketType != "Dollar" || points[1].JalaliDate != "1402/01/01" {
		t.Errorf("Expected Dollar 1402/01/01, but got %s %s", points[1].MarketType, points[1].JalaliDate)
	}
}

func TestPricesEndpoint(t *testing.T) {
	s := testServer(t)

	rec := get(t, s, "/api/prices/Dollar?limit=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, but got %d", rec.Code)
	}
	var points []models.PricePoint
	if err := json.Unmarshal(rec.Body.Bytes(), &points); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(points) != 2 {
		t.Errorf("Expected 2 points, but got %d", len(points))
	}

	if rec := get(t, s, "/api/prices/Tulips"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown market, but got %d", rec.Code)
	}
	if rec := get(t, s, "/api/prices/Dollar?limit=abc"); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad limit, but got %d", rec.Code)
	}
}

func TestGrowthEndpoint(t *testing.T) {
	rec := get(t, testServer(t), "/api/growth/Dollar")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, but got %d", rec.Code)
	}
	var rates []struct {
		Year       int     `json:"year"`
		GrowthRate float64 `json:"growth_rate"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &rates); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(rates) != 2 {
		t.Fatalf("Expected 2 rates, but got %d", len(rates))
	}
	if rates[0].Year != 1401 {
		t.Errorf("Expected 1401 first, but got %d", rates[0].Year)
	}
}

func TestRankingsEndpoint(t *testing.T) {
	s := testServer(t)

	rec := get(t, s, "/api/rankings")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, but got %d", rec.Code)
	}

	rec = get(t, s, "/api/rankings?year=1402")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, but got %d", rec.Code)
	}
	var rankings []struct {
		Year int `json:"year"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &rankings); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	for _, r := range rankings {
		if r.Year != 1402 {
			t.Errorf("Expected only 1402 rankings, but got %d", r.Year)
		}
	}

	if rec := get(t, s, "/api/rankings?exclude=abc"); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad exclude, but got %d", rec.Code)
	}
	if rec := get(t, s, "/api/rankings?top=0"); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad top, but got %d", rec.Code)
	}
}

func TestComparisonChartEndpoint(t *testing.T) {
	rec := get(t, testServer(t), "/charts/comparison?markets=Dollar,Coin")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, but got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Expected HTML content type, but got %s", ct)
	}
	if rec.Body.Len() == 0 {
		t.Error("Expected a rendered chart body")
	}
}
