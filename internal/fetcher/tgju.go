package fetcher

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/alirezadp10/market-trends/internal/config"
	"github.com/alirezadp10/market-trends/internal/jalali"
	"github.com/alirezadp10/market-trends/internal/models"
)

// TGJU row values arrive as HTML fragments in several shapes; these patterns
// extract the numeric payload.
var (
	tgjuLowHighPattern = regexp.MustCompile(`<span class="(?:low|high)" dir="ltr">([\d%,]+)<`)
	tgjuMillionPattern = regexp.MustCompile(`([\d.,]+)\s*<span class="currency-type">میلیون</span>`)
	tgjuPricePattern   = regexp.MustCompile(`(?s)<span class="label">قیمت:</span><span class="value">([\d.,]+)</span>`)
)

// TGJUFetcher pulls history rows from the TGJU API. The same endpoint family
// serves exchange indices, single stocks and market indicators, each with a
// different positional row layout:
//
//	index:     [date, closing, lowest, highest]
//	stock:     [date, _, _, closing, _]
//	indicator: [opening, lowest, highest, closing, ..., date]
type TGJUFetcher struct {
	client *Client
	source models.DataSource
}

// NewTGJUFetcher creates the shared TGJU fetcher. Use ForSource to bind it
// to one of the three TGJU row layouts.
func NewTGJUFetcher(client *Client) *TGJUFetcher {
	return &TGJUFetcher{client: client}
}

// ForSource returns a copy of the fetcher bound to a TGJU source kind.
func (f *TGJUFetcher) ForSource(source models.DataSource) *TGJUFetcher {
	return &TGJUFetcher{client: f.client, source: source}
}

// Source implements Fetcher.
func (f *TGJUFetcher) Source() models.DataSource {
	return f.source
}

type tgjuResponse struct {
	Data [][]interface{} `json:"data"`
}

// Fetch implements Fetcher.
func (f *TGJUFetcher) Fetch(ctx context.Context, market config.Market) ([]models.PricePoint, error) {
	params := url.Values{}
	params.Set("order_dir", "asc")
	params.Set("lang", "fa")
	switch f.source {
	case models.TGJUIndexSource:
		params.Set("market", "index")
	case models.TGJUStockSource:
		params.Set("market", "stock")
	case models.TGJUIndicatorSource:
		params.Set("convert_to_ad", "1")
	}

	var resp tgjuResponse
	if err := f.client.GetJSON(ctx, market.URL, params, &resp); err != nil {
		return nil, err
	}

	points := make([]models.PricePoint, 0, len(resp.Data))
	skipped := 0
	for _, row := range resp.Data {
		var dateRaw, closingRaw interface{}
		switch f.source {
		case models.TGJUIndexSource:
			if len(row) < 2 {
				skipped++
				continue
			}
			dateRaw, closingRaw = row[0], row[1]
		case models.TGJUStockSource:
			if len(row) < 4 {
				skipped++
				continue
			}
			dateRaw, closingRaw = row[0], row[3]
		case models.TGJUIndicatorSource:
			if len(row) < 5 {
				skipped++
				continue
			}
			dateRaw, closingRaw = row[len(row)-1], row[3]
		default:
			return nil, fmt.Errorf("unsupported tgju source: %s", f.source)
		}

		dateStr, ok := cleanTGJUValue(dateRaw)
		if !ok {
			skipped++
			continue
		}
		closingStr, ok := cleanTGJUValue(closingRaw)
		if !ok {
			skipped++
			continue
		}
		closing, err := parseTGJUNumber(closingStr)
		if err != nil {
			skipped++
			continue
		}
		jd, err := jalali.Parse(dateStr)
		if err != nil {
			skipped++
			continue
		}

		points = append(points, models.PricePoint{
			MarketType:    market.Name,
			JalaliDate:    jd.String(),
			GregorianDate: jd.Time().Format("2006-01-02"),
			Closing:       closing,
			Source:        f.source,
		})
	}
	if skipped > 0 {
		log.Printf("Skipped %d unparsable rows for %s", skipped, market.Name)
	}
	return points, nil
}

// cleanTGJUValue strips HTML decoration from a raw TGJU cell and returns the
// plain value. Empty cells and dashes report ok=false.
func cleanTGJUValue(raw interface{}) (string, bool) {
	if raw == nil {
		return "", false
	}
	var value string
	switch v := raw.(type) {
	case string:
		value = v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		value = fmt.Sprintf("%v", v)
	}
	if value == "" || value == "-" {
		return "", false
	}

	// Values wrapped in low/high spans carry their sign in the class name.
	if m := tgjuLowHighPattern.FindStringSubmatch(value); m != nil {
		number := strings.ReplaceAll(m[1], ",", "")
		if strings.Contains(value, `class="low"`) {
			return "-" + number, true
		}
		return number, true
	}

	// Index values above a million are abbreviated with a میلیون suffix.
	if m := tgjuMillionPattern.FindStringSubmatch(value); m != nil {
		n, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			return "", false
		}
		return strconv.FormatInt(int64(n*1_000_000), 10), true
	}

	if m := tgjuPricePattern.FindStringSubmatch(value); m != nil {
		return strings.ReplaceAll(m[1], ",", ""), true
	}

	return strings.TrimSpace(value), true
}

// parseTGJUNumber parses a cleaned value into a float, tolerating grouping
// commas and a trailing percent sign.
func parseTGJUNumber(value string) (float64, error) {
	value = strings.ReplaceAll(value, ",", "")
	value = strings.TrimSuffix(value, "%")
	return strconv.ParseFloat(value, 64)
}
