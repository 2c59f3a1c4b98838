package validation

import (
	"errors"
	"testing"

	"github.com/alirezadp10/market-trends/internal/jalali"
	"github.com/alirezadp10/market-trends/internal/models"
)

func testValidator(checkRange bool) *DataValidator {
	start := jalali.Date{Year: 1395, Month: 1, Day: 1}
	end := jalali.Date{Year: 1410, Month: 1, Day: 1}
	return New(start, end, checkRange)
}

func validPoint() models.PricePoint {
	return models.PricePoint{
		MarketType:    "Dollar",
		JalaliDate:    "1403/01/15",
		GregorianDate: "2024-04-03",
		Closing:       600000,
		Source:        models.TGJUIndicatorSource,
	}
}

func TestValidatePoint(t *testing.T) {
	v := testValidator(false)

	t.Run("Valid", func(t *testing.T) {
		p := validPoint()
		if err := v.ValidatePoint(&p); err != nil {
			t.Errorf("Expected valid point, but got %v", err)
		}
	})

	t.Run("MissingMarket", func(t *testing.T) {
		p := validPoint()
		p.MarketType = ""
		if err := v.ValidatePoint(&p); err == nil {
			t.Error("Expected error for missing market, but got none")
		}
	})

	t.Run("UnknownMarket", func(t *testing.T) {
		p := validPoint()
		p.MarketType = "Tulips"
		if err := v.ValidatePoint(&p); !errors.Is(err, ErrUnknownMarket) {
			t.Errorf("Expected ErrUnknownMarket, but got %v", err)
		}
	})

	t.Run("UnreasonableClosing", func(t *testing.T) {
		p := validPoint()
		p.Closing = 1e14
		if err := v.ValidatePoint(&p); !errors.Is(err, ErrUnreasonableClosing) {
			t.Errorf("Expected ErrUnreasonableClosing, but got %v", err)
		}
	})

	t.Run("InvalidDate", func(t *testing.T) {
		p := validPoint()
		p.JalaliDate = "1403/13/01"
		if err := v.ValidatePoint(&p); !errors.Is(err, ErrInvalidJalaliDate) {
			t.Errorf("Expected ErrInvalidJalaliDate, but got %v", err)
		}
	})

	t.Run("OutOfRangeIgnoredByDefault", func(t *testing.T) {
		p := validPoint()
		p.JalaliDate = "1390/01/01"
		if err := v.ValidatePoint(&p); err != nil {
			t.Errorf("Expected out-of-range point to pass, but got %v", err)
		}
	})

	t.Run("OutOfRangeRejectedWhenChecked", func(t *testing.T) {
		p := validPoint()
		p.JalaliDate = "1390/01/01"
		if err := testValidator(true).ValidatePoint(&p); !errors.Is(err, ErrDateOutOfRange) {
			t.Errorf("Expected ErrDateOutOfRange, but got %v", err)
		}
	})
}

func TestValidateBatch(t *testing.T) {
	v := testValidator(false)

	bad := validPoint()
	bad.Closing = -1
	points := []models.PricePoint{validPoint(), bad, validPoint()}

	valid, dropped := v.ValidateBatch(points)
	if len(valid) != 2 {
		t.Errorf("Expected 2 valid points, but got %d", len(valid))
	}
	if dropped != 1 {
		t.Errorf("Expected 1 dropped, but got %d", dropped)
	}
}
