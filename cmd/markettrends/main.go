package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/alirezadp10/market-trends/internal/charts"
	"github.com/alirezadp10/market-trends/internal/config"
	"github.com/alirezadp10/market-trends/internal/enrich"
	"github.com/alirezadp10/market-trends/internal/fetcher"
	"github.com/alirezadp10/market-trends/internal/jalali"
	"github.com/alirezadp10/market-trends/internal/pipeline"
	"github.com/alirezadp10/market-trends/internal/pubsub"
	"github.com/alirezadp10/market-trends/internal/scheduler"
	"github.com/alirezadp10/market-trends/internal/server"
	"github.com/alirezadp10/market-trends/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to config file")
	genConfig  = flag.Bool("gen-config", false, "Generate default config file")
	fromDate   = flag.String("from", "", "Start date for comparisons (YYYY/MM/DD, Jalali)")
	daily      = flag.Bool("daily", false, "Use daily samples instead of monthly means")
	gregorian  = flag.Bool("gregorian", false, "Group charts by the Gregorian calendar")
	exclude    = flag.String("exclude", "", "Comma-separated Jalali years to exclude from rankings")
	top        = flag.Int("top", 0, "Keep only the top N markets per year")
	checkRange = flag.Bool("check-range", false, "Drop fetched rows outside the configured date range")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	if *genConfig {
		if err := config.Default().SaveToFile("markettrends.json"); err != nil {
			log.Fatalf("Failed to generate config file: %v", err)
		}
		fmt.Println("Generated default config file: markettrends.json")
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandler(cancel)

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}
	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "fetch":
		handleFetchCommand(ctx, cfg, commandArgs)
	case "dedupe":
		handleDedupeCommand(ctx, cfg)
	case "markets":
		handleMarketsCommand()
	case "status":
		handleStatusCommand(ctx, cfg)
	case "latest":
		handleLatestCommand(ctx, cfg)
	case "growth":
		handleGrowthCommand(ctx, cfg, commandArgs)
	case "rankings":
		handleRankingsCommand(ctx, cfg)
	case "chart":
		handleChartCommand(ctx, cfg, commandArgs)
	case "import-events":
		handleImportEventsCommand(ctx, cfg, commandArgs)
	case "serve":
		handleServeCommand(ctx, cfg)
	case "scheduler":
		handleSchedulerCommand(ctx, cfg, commandArgs)
	case "help":
		usage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("markettrends - Iranian market price history CLI")
	fmt.Println()
	fmt.Println("Usage: markettrends [OPTIONS] COMMAND [ARGS]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config FILE      Path to config file")
	fmt.Println("  --gen-config       Generate default config file")
	fmt.Println("  --from DATE        Start date for comparisons (YYYY/MM/DD, Jalali)")
	fmt.Println("  --daily            Use daily samples instead of monthly means")
	fmt.Println("  --gregorian        Group charts by the Gregorian calendar")
	fmt.Println("  --exclude YEARS    Comma-separated Jalali years to exclude from rankings")
	fmt.Println("  --top N            Keep only the top N markets per year")
	fmt.Println("  --check-range      Drop fetched rows outside the configured date range")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  fetch [MARKET...]     Fetch price history (all markets by default)")
	fmt.Println("  dedupe                Remove duplicate day rows")
	fmt.Println("  markets               List known markets")
	fmt.Println("  status                Show stored row counts per market")
	fmt.Println("  latest                Show the latest stored price per market")
	fmt.Println("  growth MARKET         Show year-over-year growth rates")
	fmt.Println("  rankings              Show yearly growth rankings")
	fmt.Println("  chart KIND [MARKET]   Render a chart to an HTML file:")
	fmt.Println("                         - comparison [MARKET...]")
	fmt.Println("                         - rankings")
	fmt.Println("                         - correlation [MARKET...]")
	fmt.Println("                         - density [MARKET...]  (markets are excluded)")
	fmt.Println("                         - seasonal MARKET")
	fmt.Println("                         - trend MARKET")
	fmt.Println("                         - yearly MARKET")
	fmt.Println("  import-events FILE    Import market events from a CSV file")
	fmt.Println("  serve                 Run the HTTP API server")
	fmt.Println("  scheduler [run-job NAME]  Run the cron scheduler, or one job now")
	fmt.Println("  help                  Show this help message")
}

func setupSignalHandler(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal: %s\n", sig)
		cancel()
	}()
}

func openStore(cfg *config.Config) *store.Store {
	st, err := store.Open(cfg.DBFile, cfg.DBTable)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	return st
}

func buildPipeline(cfg *config.Config, st *store.Store) *pipeline.Pipeline {
	var publisher pipeline.Publisher
	if cfg.RedisAddr != "" {
		pub := pubsub.NewRedisPublisher(cfg.RedisAddr)
		if err := pub.Ping(context.Background()); err != nil {
			log.Printf("Redis unavailable at %s, publishing disabled: %v", cfg.RedisAddr, err)
		} else {
			publisher = pub
		}
	}

	options := pipeline.DefaultOptions()
	options.CheckDateRange = *checkRange
	p, err := pipeline.New(cfg, fetcher.New(cfg), st, publisher, options)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}
	return p
}

func loadEnriched(ctx context.Context, cfg *config.Config, st *store.Store, markets []string) []enrich.Point {
	raw, err := st.LoadPrices(ctx, markets)
	if err != nil {
		log.Fatalf("Failed to load prices: %v", err)
	}
	start, err := cfg.StartDate()
	if err != nil {
		log.Fatalf("Invalid start date: %v", err)
	}
	end, err := cfg.EndDate()
	if err != nil {
		log.Fatalf("Invalid end date: %v", err)
	}
	points, err := enrich.Enrich(raw, start, end)
	if err != nil {
		log.Fatalf("Failed to enrich prices: %v", err)
	}
	if len(points) == 0 {
		log.Fatalf("No stored prices in range; run 'fetch' first")
	}
	return points
}

func handleFetchCommand(ctx context.Context, cfg *config.Config, args []string) {
	st := openStore(cfg)
	defer st.Close()

	result, err := buildPipeline(cfg, st).Run(ctx, args)
	if err != nil {
		log.Fatalf("Fetch failed: %v", err)
	}

	fmt.Printf("Batch %s: %s\n", result.BatchID, result.Status)
	fmt.Printf("  fetched:      %d\n", result.Fetched)
	fmt.Printf("  valid:        %d\n", result.Valid)
	fmt.Printf("  inserted:     %d\n", result.Inserted)
	fmt.Printf("  deduplicated: %d\n", result.Deduplicated)
	if len(result.FailedMarkets) > 0 {
		fmt.Printf("  failed markets: %s\n", strings.Join(result.FailedMarkets, ", "))
	}
}

func handleDedupeCommand(ctx context.Context, cfg *config.Config) {
	st := openStore(cfg)
	defer st.Close()

	removed, err := st.RemoveDuplicates(ctx)
	if err != nil {
		log.Fatalf("Dedupe failed: %v", err)
	}
	fmt.Printf("Removed %d duplicate rows\n", removed)
}

func handleMarketsCommand() {
	for _, m := range config.Markets() {
		fmt.Printf("%-22s %-14s %s\n", m.Name, m.Source, m.PersianName)
	}
}

func handleStatusCommand(ctx context.Context, cfg *config.Config) {
	st := openStore(cfg)
	defer st.Close()

	counts, err := st.CountByMarket(ctx)
	if err != nil {
		log.Fatalf("Failed to count rows: %v", err)
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	total := 0
	for _, name := range names {
		fmt.Printf("%-22s %d\n", name, counts[name])
		total += counts[name]
	}
	fmt.Printf("%-22s %d\n", "total", total)
}

func handleLatestCommand(ctx context.Context, cfg *config.Config) {
	st := openStore(cfg)
	defer st.Close()

	points, err := st.LatestPrices(ctx)
	if err != nil {
		log.Fatalf("Failed to load latest prices: %v", err)
	}
	for _, p := range points {
		fmt.Printf("%-22s %s  %.2f\n", p.MarketType, p.JalaliDate, p.Closing)
	}
}

func handleGrowthCommand(ctx context.Context, cfg *config.Config, args []string) {
	if len(args) != 1 {
		log.Fatalf("Usage: markettrends growth MARKET")
	}
	market := args[0]
	if _, ok := config.FindMarket(market); !ok {
		log.Fatalf("Unknown market: %s", market)
	}

	st := openStore(cfg)
	defer st.Close()

	points := loadEnriched(ctx, cfg, st, []string{market})
	for _, g := range enrich.GrowthRates(points) {
		fmt.Printf("%d  %+.2f%%\n", g.Year, g.GrowthRate)
	}
}

func handleRankingsCommand(ctx context.Context, cfg *config.Config) {
	st := openStore(cfg)
	defer st.Close()

	points := loadEnriched(ctx, cfg, st, nil)
	rankings := enrich.Rankings(points, excludeYears())
	if *top > 0 {
		rankings = enrich.TopMarkets(rankings, *top)
	}
	for _, r := range rankings {
		fmt.Printf("%d  #%-3d %-22s %+.2f%%\n", r.Year, r.Rank, r.Market, r.GrowthRate)
	}
}

func handleChartCommand(ctx context.Context, cfg *config.Config, args []string) {
	if len(args) == 0 {
		log.Fatalf("Usage: markettrends chart KIND [MARKET...]")
	}
	kind := args[0]
	markets := args[1:]

	st := openStore(cfg)
	defer st.Close()
	renderer := charts.New(cfg.ChartHeight, cfg.ChartDir)

	var (
		path string
		err  error
	)
	switch kind {
	case "comparison":
		points := loadEnriched(ctx, cfg, st, markets)
		opts := enrich.ComparisonOptions{
			Markets:   markets,
			Monthly:   !*daily,
			Gregorian: *gregorian,
		}
		if *fromDate != "" {
			opts.From, err = jalali.Parse(*fromDate)
			if err != nil {
				log.Fatalf("Invalid --from date: %v", err)
			}
		}
		events, evErr := st.LoadEvents(ctx)
		if evErr != nil {
			log.Printf("Error loading events: %v", evErr)
		}
		series := enrich.Comparison(points, opts)
		path, err = renderer.WriteHTML(renderer.Comparison(series, store.EventsByDate(events)), "comparison")
	case "rankings":
		points := loadEnriched(ctx, cfg, st, nil)
		rankings := enrich.Rankings(points, excludeYears())
		path, err = renderer.WriteHTML(renderer.RankingsHeatmap(rankings), "rankings")
	case "correlation":
		points := loadEnriched(ctx, cfg, st, markets)
		names, matrix := enrich.Correlation(points, markets)
		path, err = renderer.WriteHTML(renderer.CorrelationHeatmap(names, matrix), "correlation")
	case "density":
		points := loadEnriched(ctx, cfg, st, nil)
		cells := enrich.Density(points, markets)
		path, err = renderer.WriteHTML(renderer.DensityHeatmap(cells), "density")
	case "seasonal":
		market := requireMarketArg(markets, kind)
		points := loadEnriched(ctx, cfg, st, []string{market})
		path, err = renderer.WriteHTML(renderer.SeasonalBar(enrich.SeasonalInfluence(points), market), "seasonal_"+market)
	case "trend":
		market := requireMarketArg(markets, kind)
		points := loadEnriched(ctx, cfg, st, []string{market})
		path, err = renderer.WriteHTML(renderer.Trend(points, market), "trend_"+market)
	case "yearly":
		market := requireMarketArg(markets, kind)
		points := loadEnriched(ctx, cfg, st, []string{market})
		path, err = renderer.WriteHTML(renderer.YearlyTrends(points, market), "yearly_"+market)
	default:
		log.Fatalf("Unknown chart kind: %s", kind)
	}
	if err != nil {
		log.Fatalf("Failed to render chart: %v", err)
	}
	fmt.Printf("Wrote %s\n", path)
}

func requireMarketArg(markets []string, kind string) string {
	if len(markets) != 1 {
		log.Fatalf("Usage: markettrends chart %s MARKET", kind)
	}
	if _, ok := config.FindMarket(markets[0]); !ok {
		log.Fatalf("Unknown market: %s", markets[0])
	}
	return markets[0]
}

func handleImportEventsCommand(ctx context.Context, cfg *config.Config, args []string) {
	path := cfg.EventsFile
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		log.Fatalf("Usage: markettrends import-events FILE")
	}

	events, err := store.ReadEventsCSV(path)
	if err != nil {
		log.Fatalf("Failed to read events file: %v", err)
	}

	st := openStore(cfg)
	defer st.Close()

	imported, err := st.ImportEvents(ctx, events)
	if err != nil {
		log.Fatalf("Failed to import events: %v", err)
	}
	fmt.Printf("Imported %d of %d events\n", imported, len(events))
}

func handleServeCommand(ctx context.Context, cfg *config.Config) {
	st := openStore(cfg)
	defer st.Close()

	if err := server.New(cfg, st).ListenAndServe(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
	fmt.Println("Server stopped")
}

func handleSchedulerCommand(ctx context.Context, cfg *config.Config, args []string) {
	st := openStore(cfg)
	defer st.Close()

	sched := scheduler.New(cfg.TimeZone, cfg.Schedules)
	if err := sched.RegisterJob(scheduler.NewFetchJob(buildPipeline(cfg, st))); err != nil {
		log.Fatalf("Failed to register fetch job: %v", err)
	}
	if err := sched.RegisterJob(scheduler.NewDedupeJob(st)); err != nil {
		log.Fatalf("Failed to register dedupe job: %v", err)
	}

	if len(args) >= 2 && args[0] == "run-job" {
		if err := sched.RunJobNow(args[1], nil); err != nil {
			log.Fatalf("Job failed: %v", err)
		}
		return
	}
	if len(args) > 0 {
		log.Fatalf("Usage: markettrends scheduler [run-job NAME]")
	}

	if err := sched.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	fmt.Printf("Scheduler running jobs: %s\n", strings.Join(sched.JobNames(), ", "))
	<-ctx.Done()
	sched.Stop()
	fmt.Println("Scheduler stopped")
}

func excludeYears() []int {
	if *exclude == "" {
		return nil
	}
	var years []int
	for _, part := range strings.Split(*exclude, ",") {
		year, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			log.Fatalf("Invalid --exclude year: %s", part)
		}
		years = append(years, year)
	}
	return years
}
