package marketdata

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// maxConcurrentFetches bounds parallel requests against the provider so the
// prefetch cannot exhaust sockets or trip rate limits.
const maxConcurrentFetches = 4

// Prefetch fetches history for every symbol concurrently and assembles a
// read-only Dataset for the valuation engine. The FX symbol's series is
// installed as the FX rate table; its last traded price becomes the current
// intraday rate.
//
// A symbol whose fetch fails does not abort the whole prefetch: the engine
// treats the missing series as a data gap. Only a failed FX fetch is fatal,
// since every foreign valuation depends on it.
func Prefetch(ctx context.Context, client Client, symbols []string, fxSymbol string, startDate time.Time) (*Dataset, error) {
	dataset := NewDataset()
	endDate := time.Now().UTC()

	var mu sync.Mutex
	failed := make(map[string]error)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)

	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			history, err := client.FetchHistory(symbol, startDate, endDate)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed[symbol] = err
				return nil
			}
			dataset.SetPrices(symbol, history.Prices)
			dataset.SetDividends(symbol, history.Dividends)
			dataset.SetSplits(symbol, history.Splits)
			return nil
		})
	}

	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}

		history, err := client.FetchHistory(fxSymbol, startDate, endDate)
		if err != nil {
			return fmt.Errorf("failed to fetch fx series %s: %w", fxSymbol, err)
		}

		rates := make([]FXPoint, len(history.Prices))
		for i, p := range history.Prices {
			rates[i] = FXPoint{Date: p.Date, Rate: p.Close}
		}

		mu.Lock()
		defer mu.Unlock()
		dataset.SetFXRates(rates)
		dataset.SetCurrentFXRate(history.LastPrice)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for symbol, err := range failed {
		// Recoverable gap; the calculator falls back to cached data.
		log.Printf("warning: prefetch failed for %s: %v", symbol, err)
	}

	return dataset, nil
}
