// Package enrich derives the analytical columns and statistics from stored
// price rows: dual-calendar date components, growth rates, rankings and
// rolling comparisons.
package enrich

import (
	"fmt"
	"time"

	"github.com/alirezadp10/market-trends/internal/config"
	"github.com/alirezadp10/market-trends/internal/jalali"
	"github.com/alirezadp10/market-trends/internal/models"
)

// periodLengths are the year-bucket sizes used for period grouping columns.
var periodLengths = []int{2, 3, 4}

// Point is a price row annotated with its Jalali and Gregorian calendar
// components.
type Point struct {
	models.PricePoint

	Date jalali.Date

	JalaliYear      int
	JalaliMonth     int
	JalaliYearMonth string
	JalaliSeason    string
	JalaliWeekday   string

	GregorianTime      time.Time
	GregorianYear      int
	GregorianMonth     int
	GregorianYearMonth string
	GregorianSeason    string
	GregorianWeekday   string

	// Period labels keyed by bucket length (2, 3, 4 years).
	JalaliPeriods    map[int]string
	GregorianPeriods map[int]string
}

// Enrich annotates rows with calendar components and filters them to
// start <= date < end. Rows with unparsable dates are dropped with an error
// only when every row fails.
func Enrich(points []models.PricePoint, start, end jalali.Date) ([]Point, error) {
	enriched := make([]Point, 0, len(points))
	var lastErr error

	for _, p := range points {
		d, err := jalali.Parse(p.JalaliDate)
		if err != nil {
			lastErr = err
			continue
		}
		if !d.InRange(start, end) {
			continue
		}

		g := d.Time()
		if p.GregorianDate != "" {
			if t, err := time.Parse("2006-01-02", p.GregorianDate); err == nil {
				g = t
			}
		}

		ep := Point{
			PricePoint: p,
			Date:       d,

			JalaliYear:      d.Year,
			JalaliMonth:     d.Month,
			JalaliYearMonth: d.YearMonth(),
			JalaliSeason:    d.Season(),
			JalaliWeekday:   d.Weekday(),

			GregorianTime:      g,
			GregorianYear:      g.Year(),
			GregorianMonth:     int(g.Month()),
			GregorianYearMonth: fmt.Sprintf("%04d-%02d", g.Year(), int(g.Month())),
			GregorianSeason:    jalali.GregorianSeason(int(g.Month())),
			GregorianWeekday:   config.PersianWeekday(g.Weekday().String()),

			JalaliPeriods:    make(map[int]string, len(periodLengths)),
			GregorianPeriods: make(map[int]string, len(periodLengths)),
		}
		for _, n := range periodLengths {
			ep.JalaliPeriods[n] = jalali.PeriodLabel(d.Year, n)
			ep.GregorianPeriods[n] = jalali.PeriodLabel(g.Year(), n)
		}
		enriched = append(enriched, ep)
	}

	if len(enriched) == 0 && lastErr != nil {
		return nil, fmt.Errorf("no enrichable rows: %w", lastErr)
	}
	return enriched, nil
}
