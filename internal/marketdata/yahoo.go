package marketdata

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"
)

// Client is the subset of the Yahoo Finance client used by the refresh job
// and the prefetcher. Defined as an interface so tests can substitute a mock.
type Client interface {
	FetchHistory(symbol string, startDate, endDate time.Time) (SymbolHistory, error)
}

// FinanceClient fetches historical price, dividend and split data from the
// Yahoo Finance chart API.
type FinanceClient struct {
	httpClient *http.Client
}

// NewFinanceClient creates a new Yahoo Finance client with default HTTP settings.
func NewFinanceClient() *FinanceClient {
	return &FinanceClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchHistory fetches daily closes plus dividend/split events for a symbol
// within the given date range, parsed into a SymbolHistory with all series
// sorted by date ascending.
func (c *FinanceClient) FetchHistory(symbol string, startDate, endDate time.Time) (SymbolHistory, error) {
	url := fmt.Sprintf(
		"https://query1.finance.yahoo.com/v8/finance/chart/%s?interval=1d&period1=%d&period2=%d&events=div%%7Csplit",
		symbol,
		startDate.Unix(),
		endDate.Unix(),
	)

	response, err := c.queryYahoo(url)
	if err != nil {
		return SymbolHistory{}, err
	}
	if len(response.Chart.Result) == 0 {
		return SymbolHistory{}, fmt.Errorf("no results returned for symbol %s", symbol)
	}

	return parseHistory(response)
}

// parseHistory converts a raw chart response into a SymbolHistory.
// Null closes (market holidays inside the range) are skipped rather than
// recorded as zero observations.
func parseHistory(response Response) (SymbolHistory, error) {
	result := response.Chart.Result[0]

	if len(result.Timestamp) == 0 {
		return SymbolHistory{}, fmt.Errorf("no price data returned")
	}
	if len(result.Indicators.Quote) == 0 || len(result.Indicators.Quote[0].Close) == 0 {
		return SymbolHistory{}, fmt.Errorf("no close prices returned")
	}
	if len(result.Indicators.Quote[0].Close) != len(result.Timestamp) {
		return SymbolHistory{}, fmt.Errorf("mismatched data lengths")
	}

	history := SymbolHistory{
		Symbol:    result.Meta.Symbol,
		Currency:  result.Meta.Currency,
		LastPrice: result.Meta.RegularMarketPrice,
	}

	closes := result.Indicators.Quote[0].Close
	for i, ts := range result.Timestamp {
		if closes[i] <= 0 {
			continue
		}
		history.Prices = append(history.Prices, PricePoint{
			Date:  normalizeDate(ts),
			Close: closes[i],
		})
	}

	for _, div := range result.Events.Dividends {
		history.Dividends = append(history.Dividends, DividendPoint{
			Date:   normalizeDate(div.Date),
			Amount: div.Amount,
		})
	}

	for _, sp := range result.Events.Splits {
		if sp.Denominator <= 0 {
			continue
		}
		history.Splits = append(history.Splits, SplitPoint{
			Date:  normalizeDate(sp.Date),
			Ratio: sp.Numerator / sp.Denominator,
		})
	}

	sort.Slice(history.Prices, func(i, j int) bool { return history.Prices[i].Date.Before(history.Prices[j].Date) })
	sort.Slice(history.Dividends, func(i, j int) bool { return history.Dividends[i].Date.Before(history.Dividends[j].Date) })
	sort.Slice(history.Splits, func(i, j int) bool { return history.Splits[i].Date.Before(history.Splits[j].Date) })

	return history, nil
}

// queryYahoo is an internal helper that executes HTTP requests to the Yahoo
// Finance API and parses the response, surfacing API-level errors.
func (c *FinanceClient) queryYahoo(url string) (Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return Response{}, err
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, err
	}

	var response Response
	if err := json.Unmarshal(data, &response); err != nil {
		return Response{}, err
	}

	if response.Chart.Error != nil {
		return response, fmt.Errorf("yahoo error: %s", *response.Chart.Error)
	}

	return response, nil
}
