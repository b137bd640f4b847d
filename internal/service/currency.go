package service

import "strings"

// taiwanSuffixes are the exchange suffixes that mark a symbol as a
// TWD-denominated domestic listing (TWSE and TPEx).
var taiwanSuffixes = []string{".TW", ".TWO"}

// CurrencyDetector classifies symbols as base-currency (domestic) or foreign
// listings and supplies the FX multiplier to apply to their prices. Purely a
// string-suffix rule; no network and no state beyond the configured codes.
type CurrencyDetector struct {
	baseCurrency    string
	foreignCurrency string
}

// NewCurrencyDetector creates a detector for the given base and foreign
// currency codes (e.g. "TWD", "USD").
func NewCurrencyDetector(baseCurrency, foreignCurrency string) *CurrencyDetector {
	return &CurrencyDetector{
		baseCurrency:    baseCurrency,
		foreignCurrency: foreignCurrency,
	}
}

// BaseCurrency returns the configured base currency code.
func (d *CurrencyDetector) BaseCurrency() string {
	return d.baseCurrency
}

// IsBaseCurrency reports whether the symbol's exchange suffix marks it as a
// domestic listing quoted in the base currency.
func (d *CurrencyDetector) IsBaseCurrency(symbol string) bool {
	upper := strings.ToUpper(symbol)
	for _, suffix := range taiwanSuffixes {
		if strings.HasSuffix(upper, suffix) {
			return true
		}
	}
	return false
}

// Detect returns the currency code a symbol's prices are quoted in: the base
// currency for domestic listings, otherwise the single supported foreign
// currency.
func (d *CurrencyDetector) Detect(symbol string) string {
	if d.IsBaseCurrency(symbol) {
		return d.baseCurrency
	}
	return d.foreignCurrency
}

// FXMultiplier returns the factor that converts a symbol's quoted price into
// the base currency: 1.0 for domestic symbols, the supplied rate for foreign
// ones. A non-positive or missing rate falls back to 1.0 so the caller always
// receives a usable multiplier.
func (d *CurrencyDetector) FXMultiplier(symbol string, currentFXRate float64) float64 {
	if d.IsBaseCurrency(symbol) {
		return 1.0
	}
	if currentFXRate <= 0 {
		return 1.0
	}
	return currentFXRate
}
