package models

import (
	"time"
)

// DataSource identifies which upstream API a price row came from.
type DataSource string

const (
	TSETMCSource        DataSource = "tsetmc"
	TGJUIndexSource     DataSource = "tgju_index"
	TGJUStockSource     DataSource = "tgju_stock"
	TGJUIndicatorSource DataSource = "tgju_indicator"
	NFusionSource       DataSource = "nfusion"
	ManualSource        DataSource = "manual"
)

// PricePoint is the normalized shape every fetcher produces: one closing
// value for one market on one Jalali day.
type PricePoint struct {
	ID            int64      `json:"id,omitempty" db:"id"`
	MarketType    string     `json:"market_type" db:"market_type" validate:"required"`
	JalaliDate    string     `json:"jalali_date" db:"jalali_date" validate:"required"`
	GregorianDate string     `json:"gregorian_date" db:"gregorian_date" validate:"required"`
	Closing       float64    `json:"closing" db:"closing" validate:"gte=0"`
	Source        DataSource `json:"source" db:"source" validate:"required"`
	BatchID       string     `json:"batch_id,omitempty" db:"batch_id"`
	CreatedAt     time.Time  `json:"created_at,omitempty" db:"created_at"`
}

// FetchBatch records one pipeline run over one or more markets.
type FetchBatch struct {
	ID          string     `json:"id" db:"id" validate:"required"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty" db:"processed_at"`
	Status      string     `json:"status" db:"status" validate:"required"`
	PointCount  int        `json:"point_count" db:"point_count"`
	MarketCount int        `json:"market_count" db:"market_count"`
	Metadata    []byte     `json:"metadata,omitempty" db:"metadata"`
}

// Batch statuses.
const (
	BatchProcessing = "processing"
	BatchCompleted  = "completed"
	BatchPartial    = "partial"
	BatchFailed     = "failed"
)

// BatchStatistics summarizes the closing values stored by a batch.
type BatchStatistics struct {
	ID             int64     `json:"id,omitempty" db:"id"`
	BatchID        string    `json:"batch_id" db:"batch_id" validate:"required"`
	MeanClosing    *float64  `json:"mean_closing,omitempty" db:"mean_closing"`
	MedianClosing  *float64  `json:"median_closing,omitempty" db:"median_closing"`
	MinClosing     *float64  `json:"min_closing,omitempty" db:"min_closing"`
	MaxClosing     *float64  `json:"max_closing,omitempty" db:"max_closing"`
	PointCount     int       `json:"point_count" db:"point_count"`
	StatisticsJSON []byte    `json:"statistics_json,omitempty" db:"statistics_json"`
	CreatedAt      time.Time `json:"created_at,omitempty" db:"created_at"`
}

// Event is a manually curated calendar annotation (sanctions, elections,
// budget announcements) keyed by a Jalali "YYYY-MM" label.
type Event struct {
	ID    int64  `json:"id,omitempty" db:"id"`
	Date  string `json:"date" db:"date" validate:"required"`
	Title string `json:"title" db:"title" validate:"required"`
}
