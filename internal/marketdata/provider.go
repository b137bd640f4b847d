// Package marketdata supplies historical prices, dividends, split factors and
// FX observations to the valuation engine. The engine never performs I/O: it
// consumes a fully-materialized, read-only Dataset assembled before the
// computation starts.
package marketdata

import (
	"time"

	"github.com/chihung1024/sheet-trading-journal-sub000/internal/apperrors"
)

// PricePoint is a single daily close observation.
type PricePoint struct {
	Date  time.Time
	Close float64
}

// FXPoint is a single daily FX observation for the supported pair.
type FXPoint struct {
	Date time.Time
	Rate float64
}

// SplitPoint is a stock split effective on a date, expressed as the ratio of
// post-split shares to pre-split shares (2 for a 2-for-1 split).
type SplitPoint struct {
	Date  time.Time
	Ratio float64
}

// DividendPoint is a per-share cash dividend with its ex-date.
type DividendPoint struct {
	Date   time.Time
	Amount float64
}

// Provider is the market data contract the valuation engine consumes.
// Implementations must be safe for read-only use during a computation run.
type Provider interface {
	// Price returns the close price on exactly the given date.
	Price(symbol string, date time.Time) (float64, error)

	// PriceAsOf returns the most recent close on or before the given date,
	// together with the date it was actually observed on.
	PriceAsOf(symbol string, date time.Time) (float64, time.Time, error)

	// PrevTradingDate returns the last date strictly before the given date on
	// which the symbol has a price observation.
	PrevTradingDate(symbol string, date time.Time) (time.Time, error)

	// SplitFactor returns the cumulative split multiplier from the given date
	// to the present: a quantity traded on that date is multiplied by the
	// factor (and its price divided by it) to express it in current units.
	SplitFactor(symbol string, date time.Time) float64

	// Dividend returns the per-share dividend with an ex-date on the given
	// date, or 0 when there is none.
	Dividend(symbol string, date time.Time) float64

	// DividendsBetween returns all per-share dividends with ex-dates inside
	// [from, to], inclusive.
	DividendsBetween(symbol string, from, to time.Time) []DividendPoint

	// FXRateAsOf returns the most recent FX observation on or before the date.
	FXRateAsOf(date time.Time) (float64, error)

	// CurrentFXRate returns the latest known (intraday if available) FX rate.
	CurrentFXRate() float64
}

// Dataset is an in-memory Provider built before a calculation run. All series
// are kept sorted by date ascending; once the prefetch stage has populated it
// the dataset is only read, so a computation can share it across goroutines.
type Dataset struct {
	prices    map[string][]PricePoint
	splits    map[string][]SplitPoint
	dividends map[string][]DividendPoint
	fx        []FXPoint
	currentFX float64
}

// NewDataset creates an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{
		prices:    make(map[string][]PricePoint),
		splits:    make(map[string][]SplitPoint),
		dividends: make(map[string][]DividendPoint),
	}
}

// SetPrices installs the daily close series for a symbol (sorted ascending).
func (d *Dataset) SetPrices(symbol string, prices []PricePoint) {
	d.prices[symbol] = prices
}

// SetSplits installs the split series for a symbol (sorted ascending).
func (d *Dataset) SetSplits(symbol string, splits []SplitPoint) {
	d.splits[symbol] = splits
}

// SetDividends installs the dividend series for a symbol (sorted ascending).
func (d *Dataset) SetDividends(symbol string, dividends []DividendPoint) {
	d.dividends[symbol] = dividends
}

// SetFXRates installs the FX series (sorted ascending).
func (d *Dataset) SetFXRates(rates []FXPoint) {
	d.fx = rates
}

// SetCurrentFXRate installs the latest intraday FX rate.
func (d *Dataset) SetCurrentFXRate(rate float64) {
	d.currentFX = rate
}

// Prices returns the loaded close series for a symbol.
func (d *Dataset) Prices(symbol string) []PricePoint {
	return d.prices[symbol]
}

// FXRates returns the loaded FX series.
func (d *Dataset) FXRates() []FXPoint {
	return d.fx
}

// HasSymbol reports whether any price data is loaded for the symbol.
func (d *Dataset) HasSymbol(symbol string) bool {
	return len(d.prices[symbol]) > 0
}

// Price returns the close price on exactly the given date.
func (d *Dataset) Price(symbol string, date time.Time) (float64, error) {
	for _, p := range d.prices[symbol] {
		if sameDay(p.Date, date) {
			return p.Close, nil
		}
		if p.Date.After(date) {
			break
		}
	}
	return 0, apperrors.ErrPriceNotFound
}

// PriceAsOf returns the most recent close on or before the given date.
func (d *Dataset) PriceAsOf(symbol string, date time.Time) (float64, time.Time, error) {
	var price float64
	var actual time.Time
	found := false

	// Series are sorted ASC, so iterate forward and keep the last match.
	for _, p := range d.prices[symbol] {
		if p.Date.After(endOfDay(date)) {
			break
		}
		price = p.Close
		actual = p.Date
		found = true
	}

	if !found {
		return 0, time.Time{}, apperrors.ErrPriceNotFound
	}
	return price, actual, nil
}

// PrevTradingDate returns the last observation date strictly before the date.
func (d *Dataset) PrevTradingDate(symbol string, date time.Time) (time.Time, error) {
	var prev time.Time
	found := false

	for _, p := range d.prices[symbol] {
		if !p.Date.Before(startOfDay(date)) {
			break
		}
		prev = p.Date
		found = true
	}

	if !found {
		return time.Time{}, apperrors.ErrPriceNotFound
	}
	return prev, nil
}

// SplitFactor returns the cumulative split multiplier from the date to now.
func (d *Dataset) SplitFactor(symbol string, date time.Time) float64 {
	factor := 1.0
	for _, sp := range d.splits[symbol] {
		// Splits strictly after the trade date scale the historical quantity.
		if sp.Date.After(endOfDay(date)) && sp.Ratio > 0 {
			factor *= sp.Ratio
		}
	}
	return factor
}

// Dividend returns the per-share dividend with an ex-date on the given date.
func (d *Dataset) Dividend(symbol string, date time.Time) float64 {
	for _, div := range d.dividends[symbol] {
		if sameDay(div.Date, date) {
			return div.Amount
		}
		if div.Date.After(date) {
			break
		}
	}
	return 0
}

// DividendsBetween returns all dividends with ex-dates inside [from, to].
func (d *Dataset) DividendsBetween(symbol string, from, to time.Time) []DividendPoint {
	var result []DividendPoint
	for _, div := range d.dividends[symbol] {
		if div.Date.Before(startOfDay(from)) {
			continue
		}
		if div.Date.After(endOfDay(to)) {
			break
		}
		result = append(result, div)
	}
	return result
}

// FXRateAsOf returns the most recent FX observation on or before the date.
func (d *Dataset) FXRateAsOf(date time.Time) (float64, error) {
	var rate float64
	found := false

	for _, fx := range d.fx {
		if fx.Date.After(endOfDay(date)) {
			break
		}
		rate = fx.Rate
		found = true
	}

	if !found {
		return 0, apperrors.ErrFXRateNotFound
	}
	return rate, nil
}

// CurrentFXRate returns the latest intraday rate, falling back to the last
// daily observation when no intraday rate was loaded.
func (d *Dataset) CurrentFXRate() float64 {
	if d.currentFX > 0 {
		return d.currentFX
	}
	if len(d.fx) > 0 {
		return d.fx[len(d.fx)-1].Rate
	}
	return 0
}

func startOfDay(t time.Time) time.Time {
	y, m, day := t.UTC().Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).Add(24*time.Hour - time.Nanosecond)
}

func sameDay(a, b time.Time) bool {
	return startOfDay(a).Equal(startOfDay(b))
}
