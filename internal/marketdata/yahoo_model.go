package marketdata

import "time"

// Response represents the raw JSON response structure from the Yahoo Finance
// chart API, including the optional dividend and split event maps returned
// when events=div|split is requested.
type Response struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string  `json:"currency"`
				Symbol             string  `json:"symbol"`
				ExchangeName       string  `json:"exchangeName"`
				FullExchangeName   string  `json:"fullExchangeName"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
				} `json:"quote"`
			} `json:"indicators"`
			Events struct {
				Dividends map[string]struct {
					Amount float64 `json:"amount"`
					Date   int64   `json:"date"`
				} `json:"dividends"`
				Splits map[string]struct {
					Numerator   float64 `json:"numerator"`
					Denominator float64 `json:"denominator"`
					Date        int64   `json:"date"`
				} `json:"splits"`
			} `json:"events"`
		} `json:"result"`
		Error *string `json:"error"`
	} `json:"chart"`
}

// SymbolHistory is the parsed, application-internal form of one symbol's
// chart: daily closes plus dividend and split events, all sorted ascending.
type SymbolHistory struct {
	Symbol    string
	Currency  string
	LastPrice float64
	Prices    []PricePoint
	Dividends []DividendPoint
	Splits    []SplitPoint
}

// normalizeDate truncates a Unix timestamp to midnight UTC so observations
// compare by calendar date.
func normalizeDate(unix int64) time.Time {
	return startOfDay(time.Unix(unix, 0).UTC())
}
