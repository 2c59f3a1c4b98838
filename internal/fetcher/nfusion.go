package fetcher

import (
	"context"
	"log"
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/alirezadp10/market-trends/internal/config"
	"github.com/alirezadp10/market-trends/internal/jalali"
	"github.com/alirezadp10/market-trends/internal/models"
)

// NFusion widget identity for the silver price chart.
const (
	nfusionClientID = "6e98ae99-d878-43a2-81f0-a2528bd3d47e"
	nfusionInstance = "09f630d9-619e-43cb-ad6c-941f16ecc1ec"
)

// NFusionFetcher pulls silver history from the NFusion Solutions widget API.
// The API requires a bearer token; tokens expire and must be refreshed via
// the NFUSION_TOKEN setting.
type NFusionFetcher struct {
	client *Client
	token  string
}

// NewNFusionFetcher creates a fetcher for the NFusion widget API.
func NewNFusionFetcher(client *Client, token string) *NFusionFetcher {
	return &NFusionFetcher{client: client, token: token}
}

// Source implements Fetcher.
func (f *NFusionFetcher) Source() models.DataSource {
	return models.NFusionSource
}

type nfusionSeries struct {
	Intervals []nfusionInterval `json:"intervals"`
}

type nfusionInterval struct {
	Last  float64 `json:"last"`
	Start string  `json:"start"`
}

// Fetch implements Fetcher.
func (f *NFusionFetcher) Fetch(ctx context.Context, market config.Market) ([]models.PricePoint, error) {
	if f.token == "" {
		return nil, errors.New("nfusion token not configured")
	}

	form := url.Values{}
	form.Set("clientId", nfusionClientID)
	form.Set("instance", nfusionInstance)
	form.Set("customId", "")
	form.Set("widgetVersion", "1")
	form.Set("widgetType", "chart")
	form.Set("symbols", "silver")
	form.Set("currency", "USD")
	form.Set("unitOfMeasure", "toz")
	form.Set("timeframeType", "year")

	headers := map[string]string{
		"authorization": "Bearer " + f.token,
	}

	var resp []nfusionSeries
	if err := f.client.PostForm(ctx, market.URL, form, headers, &resp); err != nil {
		return nil, err
	}
	if len(resp) == 0 || len(resp[0].Intervals) == 0 {
		return nil, nil
	}

	points := make([]models.PricePoint, 0, len(resp[0].Intervals))
	skipped := 0
	for _, interval := range resp[0].Intervals {
		if len(interval.Start) < 10 {
			skipped++
			continue
		}
		t, err := time.Parse("2006-01-02", interval.Start[:10])
		if err != nil {
			skipped++
			continue
		}
		jd := jalali.FromTime(t)

		points = append(points, models.PricePoint{
			MarketType:    market.Name,
			JalaliDate:    jd.String(),
			GregorianDate: t.Format("2006-01-02"),
			Closing:       interval.Last,
			Source:        models.NFusionSource,
		})
	}
	if skipped > 0 {
		log.Printf("Skipped %d malformed intervals for %s", skipped, market.Name)
	}
	return points, nil
}
