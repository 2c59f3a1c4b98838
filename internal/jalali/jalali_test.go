package jalali

import (
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	t.Run("SlashSeparated", func(t *testing.T) {
		d, err := Parse("1403/01/15")
		if err != nil {
			t.Fatalf("Failed to parse date: %v", err)
		}
		if d.Year != 1403 || d.Month != 1 || d.Day != 15 {
			t.Errorf("Expected 1403/01/15, but got %s", d)
		}
	})

	t.Run("DashSeparated", func(t *testing.T) {
		d, err := Parse("1398-12-29")
		if err != nil {
			t.Fatalf("Failed to parse date: %v", err)
		}
		if d.Year != 1398 || d.Month != 12 || d.Day != 29 {
			t.Errorf("Expected 1398/12/29, but got %s", d)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		for _, s := range []string{"", "1403/01", "1403/13/01", "1403/00/10", "not-a-date", "1403/01/xx"} {
			if _, err := Parse(s); err == nil {
				t.Errorf("Expected error for %q, but got none", s)
			}
		}
	})
}

func TestGregorianConversion(t *testing.T) {
	// Nowruz 1403 fell on March 20, 2024.
	d := FromGregorian(2024, 3, 20)
	if d.Year != 1403 || d.Month != 1 || d.Day != 1 {
		t.Errorf("Expected 1403/01/01, but got %s", d)
	}

	d = FromTime(time.Date(2021, time.March, 21, 10, 0, 0, 0, time.UTC))
	if d.Year != 1400 || d.Month != 1 || d.Day != 1 {
		t.Errorf("Expected 1400/01/01, but got %s", d)
	}

	// Round trip back to Gregorian.
	back := Date{Year: 1403, Month: 1, Day: 1}.Time()
	if back.Year() != 2024 || back.Month() != time.March || back.Day() != 20 {
		t.Errorf("Expected 2024-03-20, but got %s", back.Format("2006-01-02"))
	}
}

func TestStringAndYearMonth(t *testing.T) {
	d := Date{Year: 1403, Month: 2, Day: 5}
	if got := d.String(); got != "1403/02/05" {
		t.Errorf("Expected 1403/02/05, but got %s", got)
	}
	if got := d.YearMonth(); got != "1403-02" {
		t.Errorf("Expected 1403-02, but got %s", got)
	}
}

func TestSeasons(t *testing.T) {
	cases := []struct {
		month int
		want  string
	}{
		{1, "بهار"},
		{3, "بهار"},
		{4, "تابستان"},
		{9, "پاییز"},
		{12, "زمستان"},
	}
	for _, c := range cases {
		d := Date{Year: 1400, Month: c.month, Day: 1}
		if got := d.Season(); got != c.want {
			t.Errorf("Month %d: expected %s, but got %s", c.month, c.want, got)
		}
	}

	if got := GregorianSeason(1); got != "spring" {
		t.Errorf("Expected spring, but got %s", got)
	}
	if got := GregorianSeason(12); got != "winter" {
		t.Errorf("Expected winter, but got %s", got)
	}
}

func TestInRange(t *testing.T) {
	start := Date{Year: 1395, Month: 1, Day: 1}
	end := Date{Year: 1410, Month: 1, Day: 1}

	cases := []struct {
		date Date
		want bool
	}{
		{Date{1395, 1, 1}, true},   // start is inclusive
		{Date{1400, 6, 15}, true},  // middle
		{Date{1409, 12, 29}, true}, // last day in range
		{Date{1410, 1, 1}, false},  // end is exclusive
		{Date{1394, 12, 29}, false},
	}
	for _, c := range cases {
		if got := c.date.InRange(start, end); got != c.want {
			t.Errorf("%s: expected %v, but got %v", c.date, c.want, got)
		}
	}
}

func TestCompare(t *testing.T) {
	a := Date{Year: 1400, Month: 5, Day: 10}
	b := Date{Year: 1400, Month: 5, Day: 11}
	if !a.Before(b) {
		t.Error("Expected a before b")
	}
	if !b.After(a) {
		t.Error("Expected b after a")
	}
	if a.Compare(a) != 0 {
		t.Error("Expected a equal to itself")
	}
}

func TestPeriodLabel(t *testing.T) {
	cases := []struct {
		year   int
		period int
		want   string
	}{
		{1399, 2, "1398-1399"},
		{1398, 2, "1398-1399"},
		{1400, 3, "1398-1399-1400"},
		{1403, 4, "1400-1401-1402-1403"},
	}
	for _, c := range cases {
		if got := PeriodLabel(c.year, c.period); got != c.want {
			t.Errorf("PeriodLabel(%d, %d): expected %s, but got %s", c.year, c.period, c.want, got)
		}
	}
}
