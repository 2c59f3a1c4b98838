// Package server exposes the stored and enriched market data over HTTP.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/alirezadp10/market-trends/internal/charts"
	"github.com/alirezadp10/market-trends/internal/config"
	"github.com/alirezadp10/market-trends/internal/enrich"
	"github.com/alirezadp10/market-trends/internal/jalali"
	"github.com/alirezadp10/market-trends/internal/store"
)

// Server is the HTTP API over the market data store.
type Server struct {
	cfg      *config.Config
	store    *store.Store
	renderer *charts.Renderer
	router   *mux.Router
	httpSrv  *http.Server
}

// New creates the API server.
func New(cfg *config.Config, st *store.Store) *Server {
	s := &Server{
		cfg:      cfg,
		store:    st,
		renderer: charts.New(cfg.ChartHeight, cfg.ChartDir),
		router:   mux.NewRouter(),
	}
	s.routes()

	handler := cors.Default().Handler(s.router)
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/api/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/api/markets", s.handleMarkets).Methods("GET")
	s.router.HandleFunc("/api/latest", s.handleLatest).Methods("GET")
	s.router.HandleFunc("/api/prices/{market}", s.handlePrices).Methods("GET")
	s.router.HandleFunc("/api/growth/{market}", s.handleGrowth).Methods("GET")
	s.router.HandleFunc("/api/rankings", s.handleRankings).Methods("GET")
	s.router.HandleFunc("/charts/comparison", s.handleComparisonChart).Methods("GET")
}

// ListenAndServe runs the server until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("API server listening on %s", s.httpSrv.Addr)
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, config.Markets())
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	points, err := s.store.LatestPrices(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	market := mux.Vars(r)["market"]
	if _, ok := config.FindMarket(market); !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown market: %s", market))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit: %s", raw))
			return
		}
		limit = n
	}

	points, err := s.store.PriceHistory(r.Context(), market, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleGrowth(w http.ResponseWriter, r *http.Request) {
	market := mux.Vars(r)["market"]
	if _, ok := config.FindMarket(market); !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown market: %s", market))
		return
	}

	points, err := s.loadEnriched(r.Context(), []string{market})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, enrich.GrowthRates(points))
}

func (s *Server) handleRankings(w http.ResponseWriter, r *http.Request) {
	var excludeYears []int
	if raw := r.URL.Query().Get("exclude"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			year, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Errorf("invalid exclude year: %s", part))
				return
			}
			excludeYears = append(excludeYears, year)
		}
	}

	points, err := s.loadEnriched(r.Context(), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	rankings := enrich.Rankings(points, excludeYears)

	if raw := r.URL.Query().Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid year: %s", raw))
			return
		}
		filtered := rankings[:0]
		for _, rk := range rankings {
			if rk.Year == year {
				filtered = append(filtered, rk)
			}
		}
		rankings = filtered
	}

	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid top: %s", raw))
			return
		}
		rankings = enrich.TopMarkets(rankings, n)
	}
	writeJSON(w, http.StatusOK, rankings)
}

func (s *Server) handleComparisonChart(w http.ResponseWriter, r *http.Request) {
	var marketNames []string
	if raw := r.URL.Query().Get("markets"); raw != "" {
		for _, m := range strings.Split(raw, ",") {
			if m = strings.TrimSpace(m); m != "" {
				marketNames = append(marketNames, m)
			}
		}
	}

	points, err := s.loadEnriched(r.Context(), marketNames)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	opts := enrich.ComparisonOptions{
		Markets: marketNames,
		Monthly: r.URL.Query().Get("daily") == "",
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err := jalali.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid from date: %s", raw))
			return
		}
		opts.From = from
	}
	series := enrich.Comparison(points, opts)

	events, err := s.store.LoadEvents(r.Context())
	if err != nil {
		log.Printf("Error loading events: %v", err)
	}

	chart := s.renderer.Comparison(series, store.EventsByDate(events))
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := chart.Render(w); err != nil {
		log.Printf("Error rendering chart: %v", err)
	}
}

func (s *Server) loadEnriched(ctx context.Context, markets []string) ([]enrich.Point, error) {
	raw, err := s.store.LoadPrices(ctx, markets)
	if err != nil {
		return nil, err
	}
	start, err := s.cfg.StartDate()
	if err != nil {
		return nil, err
	}
	end, err := s.cfg.EndDate()
	if err != nil {
		return nil, err
	}
	return enrich.Enrich(raw, start, end)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
