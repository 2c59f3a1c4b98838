package fetcher

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/alirezadp10/market-trends/internal/config"
	"github.com/alirezadp10/market-trends/internal/jalali"
	"github.com/alirezadp10/market-trends/internal/models"
)

// TSETMCFetcher pulls daily closing prices from the Tehran Stock Exchange
// CDN API. Instruments are addressed by numeric ID embedded in the URL.
type TSETMCFetcher struct {
	client *Client
}

// NewTSETMCFetcher creates a fetcher for the TSETMC API.
func NewTSETMCFetcher(client *Client) *TSETMCFetcher {
	return &TSETMCFetcher{client: client}
}

// Source implements Fetcher.
func (f *TSETMCFetcher) Source() models.DataSource {
	return models.TSETMCSource
}

type tsetmcResponse struct {
	ClosingPriceDaily []tsetmcRecord `json:"closingPriceDaily"`
}

type tsetmcRecord struct {
	PClosing float64 `json:"pClosing"`
	// DEven is a Gregorian date packed as YYYYMMDD.
	DEven int64 `json:"dEven"`
}

// Fetch implements Fetcher.
func (f *TSETMCFetcher) Fetch(ctx context.Context, market config.Market) ([]models.PricePoint, error) {
	url := strings.Replace(market.URL, "{id}", market.InstrumentID, 1)

	var resp tsetmcResponse
	if err := f.client.GetJSON(ctx, url, nil, &resp); err != nil {
		return nil, err
	}

	points := make([]models.PricePoint, 0, len(resp.ClosingPriceDaily))
	skipped := 0
	for _, rec := range resp.ClosingPriceDaily {
		deven := fmt.Sprintf("%d", rec.DEven)
		if len(deven) < 8 {
			skipped++
			continue
		}
		year := int(rec.DEven / 10000)
		month := int(rec.DEven / 100 % 100)
		day := int(rec.DEven % 100)
		jd := jalali.FromGregorian(year, month, day)

		points = append(points, models.PricePoint{
			MarketType:    market.Name,
			JalaliDate:    jd.String(),
			GregorianDate: fmt.Sprintf("%04d-%02d-%02d", year, month, day),
			Closing:       rec.PClosing,
			Source:        models.TSETMCSource,
		})
	}
	if skipped > 0 {
		log.Printf("Skipped %d malformed records for %s", skipped, market.Name)
	}
	return points, nil
}
