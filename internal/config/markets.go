package config

import "github.com/alirezadp10/market-trends/internal/models"

// Market describes one tracked market: where to fetch it from and how to
// present it.
type Market struct {
	Name         string            `json:"name"`
	PersianName  string            `json:"persian_name"`
	Color        string            `json:"color"`
	Source       models.DataSource `json:"source"`
	URL          string            `json:"url"`
	InstrumentID string            `json:"instrument_id,omitempty"`
}

const (
	tsetmcClosingURL  = "https://cdn.tsetmc.com/api/ClosingPrice/GetClosingPriceDailyList/{id}/0"
	tgjuHistoryURL    = "https://api.tgju.org/v1/stocks/instrument/history-data/"
	tgjuIndicatorURL  = "https://api.tgju.org/v1/market/indicator/summary-table-data/"
	nfusionHistoryURL = "https://widget.nfusionsolutions.com/api/v1/Data/history"
)

// markets is the static registry of every tracked market.
var markets = []Market{
	// TSETMC funds and indices, addressed by instrument ID.
	{Name: "Sandoghe-Aiar", PersianName: "عیار-مفید", Color: "black", Source: models.TSETMCSource, URL: tsetmcClosingURL, InstrumentID: "34144395039913458"},
	{Name: "Salam", PersianName: "صندوق سلام", Color: "brown", Source: models.TSETMCSource, URL: tsetmcClosingURL, InstrumentID: "70541934393301867"},
	{Name: "Energy", PersianName: "انرژی", Color: "teal", Source: models.TSETMCSource, URL: tsetmcClosingURL, InstrumentID: "49641108336531623"},
	{Name: "Synergy", PersianName: "سینرژی", Color: "black", Source: models.TSETMCSource, URL: tsetmcClosingURL, InstrumentID: "15001802434062073"},

	// TGJU exchange indices. The path segment is the URL-encoded Persian
	// instrument name.
	{Name: "Bourse", PersianName: "بورس", Color: "lime", Source: models.TGJUIndexSource, URL: tgjuHistoryURL + "%D8%B4-%DA%A9%D9%84-%D8%A8%D9%88%D8%B1%D8%B3"},
	{Name: "Fara-Bourse", PersianName: "فرابورس", Color: "salmon", Source: models.TGJUIndexSource, URL: tgjuHistoryURL + "%D8%B4-%DA%A9%D9%84-%D9%81%D8%B1%D8%A7%D8%A8%D9%88%D8%B1%D8%B3"},
	{Name: "Bourse-Khodro", PersianName: "بورس خودرو", Color: "gray", Source: models.TGJUIndexSource, URL: tgjuHistoryURL + "%D8%B4-%D8%AE%D9%88%D8%AF%D8%B1%D9%88%D8%B3%D8%A7%D8%B2%DB%8C"},

	// TGJU single stocks.
	{Name: "Khesapa", PersianName: "خساپا", Color: "red", Source: models.TGJUStockSource, URL: tgjuHistoryURL + "خساپا"},
	{Name: "Khodro", PersianName: "خودرو", Color: "pink", Source: models.TGJUStockSource, URL: tgjuHistoryURL + "خودرو"},

	// TGJU indicators: currency, gold coins, crypto.
	{Name: "Dollar", PersianName: "دلار", Color: "green", Source: models.TGJUIndicatorSource, URL: tgjuIndicatorURL + "price_dollar_rl"},
	{Name: "Coin", PersianName: "سکه امامی", Color: "blue", Source: models.TGJUIndicatorSource, URL: tgjuIndicatorURL + "sekee"},
	{Name: "Nim-Coin", PersianName: "نیم سکه", Color: "purple", Source: models.TGJUIndicatorSource, URL: tgjuIndicatorURL + "nim"},
	{Name: "Rob-Coin", PersianName: "ربع سکه", Color: "cyan", Source: models.TGJUIndicatorSource, URL: tgjuIndicatorURL + "rob"},
	{Name: "Coin-Gerami", PersianName: "سکه گرمی", Color: "pink", Source: models.TGJUIndicatorSource, URL: tgjuIndicatorURL + "gerami"},
	{Name: "Bitcoin", PersianName: "بیت کوین", Color: "violet", Source: models.TGJUIndicatorSource, URL: tgjuIndicatorURL + "crypto-bitcoin"},

	// NFusion widget API.
	{Name: "Silver", PersianName: "نقره", Color: "orange", Source: models.NFusionSource, URL: nfusionHistoryURL},
}

// legacyMarkets are retired markets that are no longer fetched but may still
// have stored rows needing names and colors.
var legacyMarkets = []Market{
	{Name: "Gold", PersianName: "طلا", Color: "gold", Source: models.ManualSource},
}

// weekdays maps English weekday names to Persian.
var weekdays = map[string]string{
	"Saturday":  "شنبه",
	"Sunday":    "یکشنبه",
	"Monday":    "دوشنبه",
	"Tuesday":   "سه شنبه",
	"Wednesday": "چهارشنبه",
	"Thursday":  "پنجشنبه",
	"Friday":    "جمعه",
}

// Markets returns the registry in declaration order.
func Markets() []Market {
	out := make([]Market, len(markets))
	copy(out, markets)
	return out
}

// MarketNames returns all registered market names in declaration order.
func MarketNames() []string {
	names := make([]string, len(markets))
	for i, m := range markets {
		names[i] = m.Name
	}
	return names
}

// FindMarket looks up a market by its English name.
func FindMarket(name string) (Market, bool) {
	for _, m := range markets {
		if m.Name == name {
			return m, true
		}
	}
	return Market{}, false
}

// PersianName translates a market's English name. Unknown names come back
// as "Unknown" so they stand out in charts instead of crashing them.
func PersianName(name string) string {
	if m, ok := FindMarket(name); ok {
		return m.PersianName
	}
	for _, m := range legacyMarkets {
		if m.Name == name {
			return m.PersianName
		}
	}
	return "Unknown"
}

// MarketColor returns the chart color registered for a market's Persian name.
func MarketColor(persianName string) string {
	for _, m := range markets {
		if m.PersianName == persianName {
			return m.Color
		}
	}
	for _, m := range legacyMarkets {
		if m.PersianName == persianName {
			return m.Color
		}
	}
	return "black"
}

// PersianWeekday translates an English weekday name.
func PersianWeekday(name string) string {
	if fa, ok := weekdays[name]; ok {
		return fa
	}
	return "Unknown"
}
