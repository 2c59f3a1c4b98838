package enrich

import (
	"math"
	"sort"

	"github.com/alirezadp10/market-trends/internal/jalali"
)

// GrowthRate is the year-over-year percent change of a market's mean
// closing value. The first observed year of a market has no growth rate.
type GrowthRate struct {
	Market     string  `json:"market"`
	Year       int     `json:"year"`
	GrowthRate float64 `json:"growth_rate"`
}

// Ranking positions a market among its peers for one year, dense-ranked by
// growth rate descending. Ties share a rank.
type Ranking struct {
	Market     string  `json:"market"`
	Year       int     `json:"year"`
	GrowthRate float64 `json:"growth_rate"`
	Rank       int     `json:"rank"`
}

// SeasonInfluence is the share one season contributes to a market's yearly
// total of seasonal mean closings, as an integer percentage.
type SeasonInfluence struct {
	Market      string  `json:"market"`
	Year        int     `json:"year"`
	Season      string  `json:"season"`
	MeanClosing float64 `json:"mean_closing"`
	Influence   int     `json:"influence_percentage"`
}

// ChangePoint is one sample of a rebased comparison series.
type ChangePoint struct {
	Label  string  `json:"label"`
	Change float64 `json:"change"`
}

// ChangeSeries is a market's percent change relative to its first sample.
type ChangeSeries struct {
	Market string        `json:"market"`
	Points []ChangePoint `json:"points"`
}

// DensityCell counts observations for one market in one year-month.
type DensityCell struct {
	Market    string `json:"market"`
	YearMonth string `json:"year_month"`
	Count     int    `json:"count"`
}

// yearlyMeans averages closing values per market per Jalali year.
func yearlyMeans(points []Point) map[string]map[int]float64 {
	sums := make(map[string]map[int]float64)
	counts := make(map[string]map[int]int)
	for _, p := range points {
		if sums[p.MarketType] == nil {
			sums[p.MarketType] = make(map[int]float64)
			counts[p.MarketType] = make(map[int]int)
		}
		sums[p.MarketType][p.JalaliYear] += p.Closing
		counts[p.MarketType][p.JalaliYear]++
	}

	means := make(map[string]map[int]float64, len(sums))
	for market, byYear := range sums {
		means[market] = make(map[int]float64, len(byYear))
		for year, sum := range byYear {
			means[market][year] = sum / float64(counts[market][year])
		}
	}
	return means
}

// GrowthRates computes per-market year-over-year growth of mean closing
// values, ordered by market then year. Growth bridges gaps: a missing year
// compares against the previous observed year.
func GrowthRates(points []Point) []GrowthRate {
	means := yearlyMeans(points)

	var out []GrowthRate
	for _, market := range sortedKeys(means) {
		byYear := means[market]
		years := make([]int, 0, len(byYear))
		for y := range byYear {
			years = append(years, y)
		}
		sort.Ints(years)

		for i := 1; i < len(years); i++ {
			prev := byYear[years[i-1]]
			cur := byYear[years[i]]
			if prev == 0 {
				continue
			}
			out = append(out, GrowthRate{
				Market:     market,
				Year:       years[i],
				GrowthRate: (cur/prev - 1) * 100,
			})
		}
	}
	return out
}

// Rankings dense-ranks markets by growth rate within each year, excluding
// the listed years. Results are ordered by year ascending, then growth
// descending.
func Rankings(points []Point, excludeYears []int) []Ranking {
	excluded := make(map[int]bool, len(excludeYears))
	for _, y := range excludeYears {
		excluded[y] = true
	}

	byYear := make(map[int][]GrowthRate)
	for _, g := range GrowthRates(points) {
		if excluded[g.Year] {
			continue
		}
		byYear[g.Year] = append(byYear[g.Year], g)
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	var out []Ranking
	for _, year := range years {
		rates := byYear[year]
		sort.Slice(rates, func(i, j int) bool {
			if rates[i].GrowthRate != rates[j].GrowthRate {
				return rates[i].GrowthRate > rates[j].GrowthRate
			}
			return rates[i].Market < rates[j].Market
		})

		rank := 0
		lastGrowth := math.Inf(1)
		for _, g := range rates {
			if g.GrowthRate != lastGrowth {
				rank++
				lastGrowth = g.GrowthRate
			}
			out = append(out, Ranking{
				Market:     g.Market,
				Year:       g.Year,
				GrowthRate: g.GrowthRate,
				Rank:       rank,
			})
		}
	}
	return out
}

// TopMarkets keeps the n best-ranked markets of each year.
func TopMarkets(rankings []Ranking, n int) []Ranking {
	perYear := make(map[int]int)
	var out []Ranking
	for _, r := range rankings {
		if perYear[r.Year] >= n {
			continue
		}
		perYear[r.Year]++
		out = append(out, r)
	}
	return out
}

// SeasonalInfluence computes, per market and year, each season's share of
// the year's total of seasonal mean closings.
func SeasonalInfluence(points []Point) []SeasonInfluence {
	type key struct {
		market string
		year   int
		season string
	}
	sums := make(map[key]float64)
	counts := make(map[key]int)
	for _, p := range points {
		k := key{p.MarketType, p.JalaliYear, p.JalaliSeason}
		sums[k] += p.Closing
		counts[k]++
	}

	yearTotals := make(map[string]map[int]float64)
	seasonMeans := make(map[key]float64)
	for k, sum := range sums {
		mean := sum / float64(counts[k])
		seasonMeans[k] = mean
		if yearTotals[k.market] == nil {
			yearTotals[k.market] = make(map[int]float64)
		}
		yearTotals[k.market][k.year] += mean
	}

	out := make([]SeasonInfluence, 0, len(seasonMeans))
	for k, mean := range seasonMeans {
		total := yearTotals[k.market][k.year]
		if total == 0 {
			continue
		}
		out = append(out, SeasonInfluence{
			Market:      k.market,
			Year:        k.year,
			Season:      k.season,
			MeanClosing: mean,
			Influence:   int(mean / total * 100),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Market != out[j].Market {
			return out[i].Market < out[j].Market
		}
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return seasonIndex(out[i].Season) < seasonIndex(out[j].Season)
	})
	return out
}

// ComparisonOptions controls the rebased comparison series.
type ComparisonOptions struct {
	// Markets to include; empty means all markets present in the data.
	Markets []string
	// From drops samples before this date.
	From jalali.Date
	// Monthly aggregates by year-month; otherwise daily.
	Monthly bool
	// Gregorian groups by the Gregorian calendar instead of Jalali.
	Gregorian bool
}

// Comparison builds, per market, the mean closing per label rebased to the
// first label's value as a percent change.
func Comparison(points []Point, opts ComparisonOptions) []ChangeSeries {
	include := make(map[string]bool, len(opts.Markets))
	for _, m := range opts.Markets {
		include[m] = true
	}

	sums := make(map[string]map[string]float64)
	counts := make(map[string]map[string]int)
	for _, p := range points {
		if len(include) > 0 && !include[p.MarketType] {
			continue
		}
		if !opts.From.IsZero() && p.Date.Before(opts.From) {
			continue
		}
		label := comparisonLabel(p, opts)
		if sums[p.MarketType] == nil {
			sums[p.MarketType] = make(map[string]float64)
			counts[p.MarketType] = make(map[string]int)
		}
		sums[p.MarketType][label] += p.Closing
		counts[p.MarketType][label]++
	}

	var out []ChangeSeries
	for _, market := range sortedKeys(sums) {
		labels := make([]string, 0, len(sums[market]))
		for l := range sums[market] {
			labels = append(labels, l)
		}
		sort.Strings(labels)

		base := sums[market][labels[0]] / float64(counts[market][labels[0]])
		if base == 0 {
			continue
		}
		series := ChangeSeries{Market: market, Points: make([]ChangePoint, 0, len(labels))}
		for _, l := range labels {
			mean := sums[market][l] / float64(counts[market][l])
			series.Points = append(series.Points, ChangePoint{
				Label:  l,
				Change: (mean/base - 1) * 100,
			})
		}
		out = append(out, series)
	}
	return out
}

func comparisonLabel(p Point, opts ComparisonOptions) string {
	switch {
	case opts.Gregorian && opts.Monthly:
		return p.GregorianYearMonth
	case opts.Gregorian:
		return p.GregorianTime.Format("2006-01-02")
	case opts.Monthly:
		return p.JalaliYearMonth
	default:
		return p.JalaliDate
	}
}

// Correlation computes the Pearson correlation matrix between markets over
// closing values aligned by Jalali date. Pairs with fewer than two shared
// dates get NaN.
func Correlation(points []Point, markets []string) ([]string, [][]float64) {
	byMarket := make(map[string]map[string]float64)
	for _, p := range points {
		if byMarket[p.MarketType] == nil {
			byMarket[p.MarketType] = make(map[string]float64)
		}
		byMarket[p.MarketType][p.JalaliDate] = p.Closing
	}

	if len(markets) == 0 {
		markets = sortedKeys(byMarket)
	}

	matrix := make([][]float64, len(markets))
	for i := range markets {
		matrix[i] = make([]float64, len(markets))
		for j := range markets {
			matrix[i][j] = pearson(byMarket[markets[i]], byMarket[markets[j]])
		}
	}
	return markets, matrix
}

func pearson(a, b map[string]float64) float64 {
	var xs, ys []float64
	for date, x := range a {
		if y, ok := b[date]; ok {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	n := float64(len(xs))
	if n < 2 {
		return math.NaN()
	}

	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range xs {
		dx, dy := xs[i]-meanX, ys[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(varX*varY)
}

// Density counts observations per market and year-month, ordered by market
// then label.
func Density(points []Point, excludeMarkets []string) []DensityCell {
	excluded := make(map[string]bool, len(excludeMarkets))
	for _, m := range excludeMarkets {
		excluded[m] = true
	}

	counts := make(map[string]map[string]int)
	for _, p := range points {
		if excluded[p.MarketType] {
			continue
		}
		if counts[p.MarketType] == nil {
			counts[p.MarketType] = make(map[string]int)
		}
		counts[p.MarketType][p.JalaliYearMonth]++
	}

	var out []DensityCell
	for _, market := range sortedKeys(counts) {
		labels := make([]string, 0, len(counts[market]))
		for l := range counts[market] {
			labels = append(labels, l)
		}
		sort.Strings(labels)
		for _, l := range labels {
			out = append(out, DensityCell{Market: market, YearMonth: l, Count: counts[market][l]})
		}
	}
	return out
}

// MonthlyMeans averages closings per (year, month) for one market, used by
// the yearly trend charts. Results are keyed by year, months ascending.
func MonthlyMeans(points []Point, market string) map[int][12]float64 {
	sums := make(map[int]*[12]float64)
	counts := make(map[int]*[12]int)
	for _, p := range points {
		if p.MarketType != market {
			continue
		}
		if sums[p.JalaliYear] == nil {
			sums[p.JalaliYear] = &[12]float64{}
			counts[p.JalaliYear] = &[12]int{}
		}
		sums[p.JalaliYear][p.JalaliMonth-1] += p.Closing
		counts[p.JalaliYear][p.JalaliMonth-1]++
	}

	out := make(map[int][12]float64, len(sums))
	for year, sum := range sums {
		var means [12]float64
		for m := 0; m < 12; m++ {
			if c := counts[year][m]; c > 0 {
				means[m] = sum[m] / float64(c)
			}
		}
		out[year] = means
	}
	return out
}

func seasonIndex(season string) int {
	for i, s := range jalali.JalaliSeasons {
		if s == season {
			return i
		}
	}
	for i, s := range jalali.GregorianSeasons {
		if s == season {
			return i
		}
	}
	return len(jalali.JalaliSeasons)
}

func sortedKeys[M interface{ ~map[string]V }, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
