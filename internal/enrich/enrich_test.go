package enrich

import (
	"testing"

	"github.com/alirezadp10/market-trends/internal/jalali"
	"github.com/alirezadp10/market-trends/internal/models"
)

func TestEnrich(t *testing.T) {
	start := jalali.Date{Year: 1395, Month: 1, Day: 1}
	end := jalali.Date{Year: 1410, Month: 1, Day: 1}

	raw := []models.PricePoint{
		{MarketType: "Dollar", JalaliDate: "1403/01/01", GregorianDate: "2024-03-20", Closing: 600000},
		{MarketType: "Dollar", JalaliDate: "1394/12/29", GregorianDate: "2016-03-19", Closing: 35000}, // before range
		{MarketType: "Dollar", JalaliDate: "garbage", Closing: 1},
	}

	points, err := Enrich(raw, start, end)
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("Expected 1 point, but got %d", len(points))
	}

	p := points[0]
	if p.JalaliYear != 1403 || p.JalaliMonth != 1 {
		t.Errorf("Expected 1403/1, but got %d/%d", p.JalaliYear, p.JalaliMonth)
	}
	if p.JalaliYearMonth != "1403-01" {
		t.Errorf("Expected 1403-01, but got %s", p.JalaliYearMonth)
	}
	if p.JalaliSeason != "بهار" {
		t.Errorf("Expected بهار, but got %s", p.JalaliSeason)
	}
	if p.GregorianYear != 2024 || p.GregorianMonth != 3 {
		t.Errorf("Expected 2024-03, but got %d-%d", p.GregorianYear, p.GregorianMonth)
	}
	if p.GregorianSeason != "spring" {
		t.Errorf("Expected spring, but got %s", p.GregorianSeason)
	}
	// Both calendars carry Persian weekday names; 2024-03-20 was a Wednesday.
	if p.JalaliWeekday != "چهارشنبه" {
		t.Errorf("Expected چهارشنبه, but got %s", p.JalaliWeekday)
	}
	if p.GregorianWeekday != "چهارشنبه" {
		t.Errorf("Expected چهارشنبه, but got %s", p.GregorianWeekday)
	}
	if p.JalaliPeriods[2] != "1402-1403" {
		t.Errorf("Expected 1402-1403, but got %s", p.JalaliPeriods[2])
	}
	if p.GregorianPeriods[4] != "2024-2025-2026-2027" {
		t.Errorf("Expected 2024-2025-2026-2027, but got %s", p.GregorianPeriods[4])
	}
}

func TestEnrichAllRowsUnparsable(t *testing.T) {
	start := jalali.Date{Year: 1395, Month: 1, Day: 1}
	end := jalali.Date{Year: 1410, Month: 1, Day: 1}

	raw := []models.PricePoint{{MarketType: "Dollar", JalaliDate: "garbage"}}
	if _, err := Enrich(raw, start, end); err == nil {
		t.Error("Expected error when every row is unparsable, but got none")
	}
}

func TestEnrichEmptyInput(t *testing.T) {
	start := jalali.Date{Year: 1395, Month: 1, Day: 1}
	end := jalali.Date{Year: 1410, Month: 1, Day: 1}

	points, err := Enrich(nil, start, end)
	if err != nil {
		t.Fatalf("Expected no error for empty input, but got %v", err)
	}
	if len(points) != 0 {
		t.Errorf("Expected 0 points, but got %d", len(points))
	}
}
