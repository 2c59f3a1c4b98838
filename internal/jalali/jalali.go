// Package jalali provides the date handling shared by the fetchers and the
// enrichment layer. Market rows are keyed by Jalali (Solar Hijri) dates, but
// most upstream APIs speak Gregorian, so every date carries both faces.
package jalali

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ptime "github.com/yaa110/go-persian-calendar"
)

// DateFormat is the canonical Jalali date layout used in the database.
const DateFormat = "%04d/%02d/%02d"

// Season names indexed by quarter (months 1-3, 4-6, 7-9, 10-12).
var (
	JalaliSeasons    = [4]string{"بهار", "تابستان", "پاییز", "زمستان"}
	GregorianSeasons = [4]string{"spring", "summer", "autumn", "winter"}
)

// Date is a calendar date in the Jalali calendar.
type Date struct {
	Year  int
	Month int
	Day   int
}

// New returns a Date after validating the components.
func New(year, month, day int) (Date, error) {
	d := Date{Year: year, Month: month, Day: day}
	if err := d.validate(); err != nil {
		return Date{}, err
	}
	return d, nil
}

// Parse parses a Jalali date in "YYYY/MM/DD" form. "YYYY-MM-DD" is accepted
// too since some TGJU endpoints use dashes.
func Parse(s string) (Date, error) {
	s = strings.TrimSpace(s)
	sep := "/"
	if strings.Contains(s, "-") && !strings.Contains(s, "/") {
		sep = "-"
	}
	parts := strings.Split(s, sep)
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("invalid jalali date %q", s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Date{}, fmt.Errorf("invalid jalali date %q: %v", s, err)
		}
		nums[i] = n
	}
	return New(nums[0], nums[1], nums[2])
}

// FromTime converts a Gregorian time to its Jalali date.
func FromTime(t time.Time) Date {
	pt := ptime.New(t)
	return Date{Year: pt.Year(), Month: int(pt.Month()), Day: pt.Day()}
}

// FromGregorian converts Gregorian calendar components to a Jalali date.
func FromGregorian(year, month, day int) Date {
	t := time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC)
	return FromTime(t)
}

func (d Date) validate() error {
	if d.Year < 1 || d.Month < 1 || d.Month > 12 || d.Day < 1 || d.Day > 31 {
		return fmt.Errorf("invalid jalali date %04d/%02d/%02d", d.Year, d.Month, d.Day)
	}
	return nil
}

// IsZero reports whether the date is the zero value.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// String formats the date as "YYYY/MM/DD", the canonical storage form.
func (d Date) String() string {
	return fmt.Sprintf(DateFormat, d.Year, d.Month, d.Day)
}

// YearMonth returns the "YYYY-MM" grouping label.
func (d Date) YearMonth() string {
	return fmt.Sprintf("%04d-%02d", d.Year, d.Month)
}

// Season returns the Persian season name for the date's month.
func (d Date) Season() string {
	return JalaliSeasons[(d.Month-1)/3]
}

// Time converts the Jalali date to a Gregorian time at noon Iran time.
// Noon keeps the conversion stable across DST transitions.
func (d Date) Time() time.Time {
	pt := ptime.Date(d.Year, ptime.Month(d.Month), d.Day, 12, 0, 0, 0, ptime.Iran())
	return pt.Time()
}

// Weekday returns the Persian weekday name.
func (d Date) Weekday() string {
	pt := ptime.Date(d.Year, ptime.Month(d.Month), d.Day, 12, 0, 0, 0, ptime.Iran())
	return pt.Weekday().String()
}

// Compare returns -1, 0 or 1 comparing d to other chronologically.
func (d Date) Compare(other Date) int {
	a := d.Year*10000 + d.Month*100 + d.Day
	b := other.Year*10000 + other.Month*100 + other.Day
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }

// After reports whether d is strictly after other.
func (d Date) After(other Date) bool { return d.Compare(other) > 0 }

// InRange reports whether start <= d < end.
func (d Date) InRange(start, end Date) bool {
	return d.Compare(start) >= 0 && d.Compare(end) < 0
}

// GregorianSeason returns the English season name for a Gregorian month.
func GregorianSeason(month int) string {
	return GregorianSeasons[(month-1)/3]
}

// PeriodLabel buckets a year into fixed-size periods and returns the bucket
// label, e.g. year 1399 with period 2 yields "1398-1399".
func PeriodLabel(year, period int) string {
	start := (year / period) * period
	years := make([]string, period)
	for i := 0; i < period; i++ {
		years[i] = strconv.Itoa(start + i)
	}
	return strings.Join(years, "-")
}
