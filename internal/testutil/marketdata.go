package testutil

import (
	"fmt"
	"time"

	"github.com/chihung1024/sheet-trading-journal-sub000/internal/marketdata"
)

// PricePoint builds a single observation from a date literal.
func PricePoint(date string, close float64) marketdata.PricePoint {
	return marketdata.PricePoint{Date: Date(date), Close: close}
}

// WeekdayCloses builds a daily close series over [from, to], one observation
// per weekday, all at the same price. Handy when a test only cares about one
// or two specific days and the rest just need to exist.
func WeekdayCloses(from, to string, close float64) []marketdata.PricePoint {
	var prices []marketdata.PricePoint
	for day := Date(from); !day.After(Date(to)); day = day.AddDate(0, 0, 1) {
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}
		prices = append(prices, marketdata.PricePoint{Date: day, Close: close})
	}
	return prices
}

// FlatFXRates builds an FX series over [from, to] at a constant rate,
// weekdays only.
func FlatFXRates(from, to string, rate float64) []marketdata.FXPoint {
	var rates []marketdata.FXPoint
	for day := Date(from); !day.After(Date(to)); day = day.AddDate(0, 0, 1) {
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}
		rates = append(rates, marketdata.FXPoint{Date: day, Rate: rate})
	}
	return rates
}

// MockMarketClient is a marketdata.Client returning canned histories instead
// of calling the live provider.
type MockMarketClient struct {
	// Histories maps symbol to the history to return.
	Histories map[string]marketdata.SymbolHistory
	// Err is returned for every fetch when set.
	Err error
	// FetchCount tracks how many fetches were issued.
	FetchCount int
}

// NewMockMarketClient creates an empty mock client.
func NewMockMarketClient() *MockMarketClient {
	return &MockMarketClient{Histories: make(map[string]marketdata.SymbolHistory)}
}

// FetchHistory returns the canned history for the symbol.
func (m *MockMarketClient) FetchHistory(symbol string, _, _ time.Time) (marketdata.SymbolHistory, error) {
	m.FetchCount++
	if m.Err != nil {
		return marketdata.SymbolHistory{}, m.Err
	}
	history, ok := m.Histories[symbol]
	if !ok {
		return marketdata.SymbolHistory{}, fmt.Errorf("no canned history for %s", symbol)
	}
	return history, nil
}
