// Package validation filters fetched rows before they reach the store.
package validation

import (
	"log"

	"github.com/go-playground/validator/v10"

	"github.com/alirezadp10/market-trends/internal/config"
	"github.com/alirezadp10/market-trends/internal/jalali"
	"github.com/alirezadp10/market-trends/internal/models"
)

// maxClosing caps closing values. Tehran exchange indices run into the
// millions; anything past this is a parsing artifact.
const maxClosing = 1e13

// DataValidator validates normalized price points.
type DataValidator struct {
	validate   *validator.Validate
	start, end jalali.Date
	checkRange bool
}

// New creates a validator. With checkRange set, points outside [start, end)
// are rejected.
func New(start, end jalali.Date, checkRange bool) *DataValidator {
	return &DataValidator{
		validate:   validator.New(),
		start:      start,
		end:        end,
		checkRange: checkRange,
	}
}

// ValidatePoint returns an error when the point must not be stored.
func (v *DataValidator) ValidatePoint(p *models.PricePoint) error {
	if err := v.validate.Struct(p); err != nil {
		return err
	}
	if _, ok := config.FindMarket(p.MarketType); !ok {
		return ErrUnknownMarket
	}
	if p.Closing < 0 || p.Closing > maxClosing {
		return ErrUnreasonableClosing
	}

	d, err := jalali.Parse(p.JalaliDate)
	if err != nil {
		return ErrInvalidJalaliDate
	}
	if v.checkRange && !d.InRange(v.start, v.end) {
		return ErrDateOutOfRange
	}
	return nil
}

// ValidateBatch partitions a batch into valid points and a dropped count.
// Drops are logged per market rather than per row; a fetch covers years of
// history and a row-level log would drown everything else.
func (v *DataValidator) ValidateBatch(points []models.PricePoint) ([]models.PricePoint, int) {
	valid := make([]models.PricePoint, 0, len(points))
	droppedByMarket := make(map[string]int)

	for i := range points {
		if err := v.ValidatePoint(&points[i]); err != nil {
			droppedByMarket[points[i].MarketType]++
			continue
		}
		valid = append(valid, points[i])
	}

	dropped := 0
	for market, n := range droppedByMarket {
		log.Printf("Dropped %d invalid points for %s", n, market)
		dropped += n
	}
	return valid, dropped
}
