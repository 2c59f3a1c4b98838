// Package charts renders the comparative visualizations as standalone HTML
// files using go-echarts.
package charts

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/alirezadp10/market-trends/internal/config"
	"github.com/alirezadp10/market-trends/internal/enrich"
)

// viridis approximates the Viridis color scale used for the heatmaps.
var viridis = []string{"#440154", "#3b528b", "#21918c", "#5ec962", "#fde725"}

// Renderer builds the chart set. All charts share the configured height.
type Renderer struct {
	height int
	dir    string
}

// New creates a Renderer writing HTML files into dir.
func New(height int, dir string) *Renderer {
	if height <= 0 {
		height = 800
	}
	return &Renderer{height: height, dir: dir}
}

type renderable interface {
	Render(w io.Writer) error
}

// WriteHTML renders a chart into <dir>/<name>.html and returns the path.
func (r *Renderer) WriteHTML(chart renderable, name string) (string, error) {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create chart dir: %w", err)
	}
	path := filepath.Join(r.dir, name+".html")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create chart file: %w", err)
	}
	defer f.Close()

	if err := chart.Render(f); err != nil {
		return "", fmt.Errorf("failed to render chart: %w", err)
	}
	return path, nil
}

func (r *Renderer) initOpts(title string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Width:     "1200px",
			Height:    fmt.Sprintf("%dpx", r.height),
		}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	}
}

// Comparison renders the percent-change line chart across markets, with
// event markers overlaid on the dates they annotate.
func (r *Renderer) Comparison(series []enrich.ChangeSeries, events map[string][]string) *charts.Line {
	labelSet := make(map[string]bool)
	for _, s := range series {
		for _, p := range s.Points {
			labelSet[p.Label] = true
		}
	}
	labels := make([]string, 0, len(labelSet))
	for l := range labelSet {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	line := charts.NewLine()
	line.SetGlobalOptions(append(r.initOpts("Percentage Change by Market"),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", AxisLabel: &opts.AxisLabel{Rotate: 90}}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Percentage Change"}),
	)...)
	line.SetXAxis(labels)

	for _, s := range series {
		persian := config.PersianName(s.Market)
		byLabel := make(map[string]float64, len(s.Points))
		for _, p := range s.Points {
			byLabel[p.Label] = p.Change
		}

		data := make([]opts.LineData, len(labels))
		for i, l := range labels {
			if v, ok := byLabel[l]; ok {
				data[i] = opts.LineData{Value: v}
			} else {
				data[i] = opts.LineData{Value: nil}
			}
		}
		line.AddSeries(persian, data,
			charts.WithLineStyleOpts(opts.LineStyle{Color: config.MarketColor(persian), Width: 2}),
			charts.WithLineChartOpts(opts.LineChart{ConnectNulls: opts.Bool(true)}),
		)
	}

	if len(events) > 0 && len(series) > 0 {
		// Mark events on the first series so each annotated date carries a
		// visible point with the event titles in its tooltip.
		first := series[0]
		byLabel := make(map[string]float64, len(first.Points))
		for _, p := range first.Points {
			byLabel[p.Label] = p.Change
		}
		var markers []opts.ScatterData
		for _, l := range labels {
			titles, ok := events[l]
			if !ok {
				continue
			}
			v, ok := byLabel[l]
			if !ok {
				continue
			}
			markers = append(markers, opts.ScatterData{
				Name:       strings.Join(titles, " | "),
				Value:      []interface{}{l, v},
				Symbol:     "pin",
				SymbolSize: 18,
			})
		}
		if len(markers) > 0 {
			scatter := charts.NewScatter()
			scatter.SetXAxis(labels)
			scatter.AddSeries("رویدادها", markers,
				charts.WithItemStyleOpts(opts.ItemStyle{Color: "darkred"}),
			)
			line.Overlap(scatter)
		}
	}
	return line
}

// RankingsHeatmap renders the market-by-year rank grid.
func (r *Renderer) RankingsHeatmap(rankings []enrich.Ranking) *charts.HeatMap {
	yearSet := make(map[int]bool)
	marketSet := make(map[string]bool)
	for _, rk := range rankings {
		yearSet[rk.Year] = true
		marketSet[rk.Market] = true
	}
	years := sortedInts(yearSet)
	marketNames := sortedStrings(marketSet)

	xLabels := make([]string, len(years))
	for i, y := range years {
		xLabels[i] = fmt.Sprintf("%d", y)
	}
	yLabels := make([]string, len(marketNames))
	maxRank := 1
	for i, m := range marketNames {
		yLabels[i] = config.PersianName(m)
	}

	data := make([]opts.HeatMapData, 0, len(rankings))
	for _, rk := range rankings {
		if rk.Rank > maxRank {
			maxRank = rk.Rank
		}
		data = append(data, opts.HeatMapData{
			Value: [3]interface{}{fmt.Sprintf("%d", rk.Year), config.PersianName(rk.Market), rk.Rank},
		})
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(append(r.initOpts("Market Rankings by Year"),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: xLabels}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: yLabels}),
		heatScale(1, float32(maxRank)),
	)...)
	hm.AddSeries("rank", data)
	return hm
}

// CorrelationHeatmap renders the market correlation matrix.
func (r *Renderer) CorrelationHeatmap(markets []string, matrix [][]float64) *charts.HeatMap {
	labels := make([]string, len(markets))
	for i, m := range markets {
		labels[i] = config.PersianName(m)
	}

	var data []opts.HeatMapData
	for i := range matrix {
		for j := range matrix[i] {
			v := matrix[i][j]
			if math.IsNaN(v) {
				continue
			}
			data = append(data, opts.HeatMapData{
				Value: [3]interface{}{labels[j], labels[i], math.Round(v*100) / 100},
			})
		}
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(append(r.initOpts("هیت‌مپ همبستگی بازارها"),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: labels}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: labels}),
		heatScale(-1, 1),
	)...)
	hm.AddSeries("correlation", data)
	return hm
}

// DensityHeatmap renders observation counts per market and year-month.
func (r *Renderer) DensityHeatmap(cells []enrich.DensityCell) *charts.HeatMap {
	monthSet := make(map[string]bool)
	marketSet := make(map[string]bool)
	maxCount := 1
	for _, c := range cells {
		monthSet[c.YearMonth] = true
		marketSet[c.Market] = true
		if c.Count > maxCount {
			maxCount = c.Count
		}
	}
	months := sortedStrings(monthSet)
	marketNames := sortedStrings(marketSet)

	data := make([]opts.HeatMapData, 0, len(cells))
	for _, c := range cells {
		data = append(data, opts.HeatMapData{
			Value: [3]interface{}{c.YearMonth, c.Market, c.Count},
		})
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(append(r.initOpts("Density of Closing Count by Year-Month and Market Type"),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: months, AxisLabel: &opts.AxisLabel{Rotate: 90}}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: marketNames}),
		heatScale(0, float32(maxCount)),
	)...)
	hm.AddSeries("count", data)
	return hm
}

// SeasonalBar renders one market's seasonal influence as a stacked bar
// chart over years.
func (r *Renderer) SeasonalBar(influence []enrich.SeasonInfluence, market string) *charts.Bar {
	yearSet := make(map[int]bool)
	bySeason := make(map[string]map[int]int)
	var seasons []string
	for _, si := range influence {
		if si.Market != market {
			continue
		}
		yearSet[si.Year] = true
		if bySeason[si.Season] == nil {
			bySeason[si.Season] = make(map[int]int)
			seasons = append(seasons, si.Season)
		}
		bySeason[si.Season][si.Year] = si.Influence
	}
	years := sortedInts(yearSet)

	xLabels := make([]string, len(years))
	for i, y := range years {
		xLabels[i] = fmt.Sprintf("%d", y)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(append(r.initOpts(fmt.Sprintf("Seasonal Influence for %s", config.PersianName(market))),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Influence %"}),
	)...)
	bar.SetXAxis(xLabels)
	for _, season := range seasons {
		data := make([]opts.BarData, len(years))
		for i, y := range years {
			data[i] = opts.BarData{Value: bySeason[season][y]}
		}
		bar.AddSeries(season, data, charts.WithBarChartOpts(opts.BarChart{Stack: "total"}))
	}
	return bar
}

// Trend renders a single market's closing series.
func (r *Renderer) Trend(points []enrich.Point, market string) *charts.Line {
	var labels []string
	var data []opts.LineData
	for _, p := range points {
		if p.MarketType != market {
			continue
		}
		labels = append(labels, p.JalaliDate)
		data = append(data, opts.LineData{Value: p.Closing})
	}

	persian := config.PersianName(market)
	line := charts.NewLine()
	line.SetGlobalOptions(append(r.initOpts(fmt.Sprintf("Closing Price for %s", persian)),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", AxisLabel: &opts.AxisLabel{Rotate: 90}}),
	)...)
	line.SetXAxis(labels)
	line.AddSeries(persian, data,
		charts.WithLineStyleOpts(opts.LineStyle{Color: config.MarketColor(persian), Width: 2}),
	)
	return line
}

// YearlyTrends renders one chart per year of a market's monthly mean
// closings, collected on a single page.
func (r *Renderer) YearlyTrends(points []enrich.Point, market string) *components.Page {
	means := enrich.MonthlyMeans(points, market)
	years := make([]int, 0, len(means))
	for y := range means {
		years = append(years, y)
	}
	sort.Ints(years)

	months := make([]string, 12)
	for i := range months {
		months[i] = fmt.Sprintf("%02d", i+1)
	}

	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("Average Monthly Closing Prices for %s", config.PersianName(market))
	for _, year := range years {
		data := make([]opts.LineData, 12)
		for m, v := range means[year] {
			data[m] = opts.LineData{Value: v}
		}

		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{Width: "580px", Height: "300px"}),
			charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("Average Monthly Closing Price for %d", year)}),
		)
		line.SetXAxis(months)
		line.AddSeries(fmt.Sprintf("Year %d", year), data)
		page.AddCharts(line)
	}
	return page
}

func heatScale(min, max float32) charts.GlobalOpts {
	return charts.WithVisualMapOpts(opts.VisualMap{
		Calculable: opts.Bool(true),
		Min:        min,
		Max:        max,
		InRange:    &opts.VisualMapInRange{Color: viridis},
	})
}

func sortedInts(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

func sortedStrings(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
