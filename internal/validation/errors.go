package validation

import "errors"

// Validation errors
var (
	ErrUnreasonableClosing = errors.New("unreasonable closing value")
	ErrInvalidJalaliDate   = errors.New("invalid jalali date")
	ErrDateOutOfRange      = errors.New("date outside tracked range")
	ErrUnknownMarket       = errors.New("unknown market type")
)
