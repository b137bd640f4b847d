package service

import (
	"cmp"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/chihung1024/sheet-trading-journal-sub000/internal/apperrors"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/marketdata"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/model"
)

// pendingDividendLookbackDays bounds how far back the pending-dividend scan
// looks for ex-dates not yet matched by a DIV ledger entry.
const pendingDividendLookbackDays = 90

// PortfolioCalculator runs the full valuation pipeline over a transaction
// ledger: split adjustment, per-tag partitioning, historical replay with TWR
// chaining, as-of daily P&L attribution, and return metrics. It holds no
// mutable state across runs; create one per request or share freely.
//
// All market data access goes through the injected Provider, so a calculation
// run performs no I/O of its own.
type PortfolioCalculator struct {
	provider        marketdata.Provider
	currency        *CurrencyDetector
	stages          *MarketStageDetector
	benchmarkSymbol string
	defaultFXRate   float64
	now             func() time.Time
}

// NewPortfolioCalculator creates a calculator over the given market data
// provider. benchmarkSymbol drives the benchmark TWR series; defaultFXRate is
// the fallback when no FX observation exists for a date.
func NewPortfolioCalculator(
	provider marketdata.Provider,
	currency *CurrencyDetector,
	stages *MarketStageDetector,
	benchmarkSymbol string,
	defaultFXRate float64,
) *PortfolioCalculator {
	return &PortfolioCalculator{
		provider:        provider,
		currency:        currency,
		stages:          stages,
		benchmarkSymbol: benchmarkSymbol,
		defaultFXRate:   defaultFXRate,
		now:             time.Now,
	}
}

// WithClock pins the calculator's clock, used by tests to make the history
// end date and valuation window deterministic. Returns the receiver.
func (c *PortfolioCalculator) WithClock(now func() time.Time) *PortfolioCalculator {
	c.now = now
	return c
}

// Calculate runs the pipeline over the ledger and assembles the snapshot.
// The "all" group covers the whole ledger and is fatal on error; a per-tag
// group that fails is logged and skipped so one bad tag cannot take down the
// entire result. An empty ledger is not an error: it yields a well-formed
// zero snapshot, so a fresh deployment has something to serve.
func (c *PortfolioCalculator) Calculate(transactions []model.Transaction) (*model.PortfolioSnapshot, error) {
	sorted := slices.Clone(transactions)
	slices.SortStableFunc(sorted, model.CompareTransactions)
	adjusted := c.adjustForSplits(sorted)

	allGroup, err := c.calculateGroup("all", adjusted)
	if err != nil {
		return nil, fmt.Errorf("calculating portfolio: %w", err)
	}

	groups := make(map[string]model.PortfolioGroupData)
	groups["all"] = allGroup
	for _, tag := range collectTags(adjusted) {
		group, err := c.calculateGroup(tag, filterByTag(adjusted, tag))
		if err != nil {
			log.Printf("WARN: skipping group %q: %v", tag, err)
			continue
		}
		groups[tag] = group
	}

	exchangeRate := c.provider.CurrentFXRate()
	if exchangeRate <= 0 {
		exchangeRate = c.defaultFXRate
	}

	return &model.PortfolioSnapshot{
		UpdatedAt:        c.now(),
		BaseCurrency:     c.currency.BaseCurrency(),
		ExchangeRate:     exchangeRate,
		Summary:          allGroup.Summary,
		Holdings:         allGroup.Holdings,
		History:          allGroup.History,
		PendingDividends: c.pendingDividends(adjusted, allGroup.Holdings),
		Groups:           groups,
	}, nil
}

// calculateGroup runs the identical pipeline over one partition of the ledger.
func (c *PortfolioCalculator) calculateGroup(name string, txs []model.Transaction) (model.PortfolioGroupData, error) {
	if len(txs) == 0 {
		return model.PortfolioGroupData{Name: name}, nil
	}

	fxAt := c.fxLookup()
	analyzer := NewTransactionAnalyzer(txs, fxAt)

	holdings, err := analyzer.CurrentHoldings("")
	if err != nil {
		return model.PortfolioGroupData{}, err
	}

	replay, err := c.replayHistory(txs, fxAt)
	if err != nil {
		return model.PortfolioGroupData{}, err
	}

	daily, err := c.attributeDailyPnL(analyzer, txs, holdings)
	if err != nil {
		return model.PortfolioGroupData{}, err
	}

	rows := c.buildHoldingRows(holdings, daily)

	var totalValue, costBasisBase float64
	for _, row := range rows {
		totalValue += row.MarketValue
		costBasisBase += row.CostBasisBase
	}
	unrealized := totalValue - costBasisBase

	summary := model.PortfolioSummary{
		TotalValue:      round(totalValue),
		InvestedCapital: round(replay.invested),
		TotalPnL:        round(replay.realizedPnL + unrealized + replay.incomePnL),
		RealizedPnL:     round(replay.realizedPnL),
		UnrealizedPnL:   round(unrealized),
		IncomePnL:       round(replay.incomePnL),
		DailyPnL:        round(daily.total),
		DailyPnLTW:      round(daily.tw),
		DailyPnLUS:      round(daily.us),
	}

	if len(replay.history) > 0 {
		last := replay.history[len(replay.history)-1]
		summary.TWR = last.TWR
		summary.BenchmarkTWR = last.BenchmarkTWR
	}

	start := truncateToDay(txs[0].Date)
	end := truncateToDay(c.now())
	if dietz, ok := ModifiedDietz(0, totalValue, dietzFlows(replay.flows, start, end)); ok {
		summary.ModifiedDietz = dietz
	}

	// Annualizing a few days of history produces absurd rates; leave XIRR
	// unset until the portfolio has meaningful age.
	if end.Sub(start) >= xirrMinimumSpan {
		xirrFlows := slices.Clone(replay.flows)
		if totalValue > QuantityEpsilon {
			xirrFlows = append(xirrFlows, CashFlow{Date: end, Amount: totalValue})
		}
		summary.XIRR, summary.HasXIRR = XIRR(xirrFlows)
	}

	return model.PortfolioGroupData{
		Name:     name,
		Summary:  summary,
		Holdings: rows,
		History:  replay.history,
	}, nil
}

// replayResult carries the historical replay outputs of one group.
type replayResult struct {
	history     []model.HistoryPoint
	realizedPnL float64
	incomePnL   float64
	invested    float64
	// flows is the dated external cash flow series from the investor's
	// perspective: negative on purchases, positive on proceeds and dividends.
	flows []CashFlow
}

// replayHistory walks the ledger day by day from the first transaction to
// today, maintaining FIFO lots, cumulative totals and the chained TWR factors.
// History points are emitted for weekdays only, but weekend-dated transactions
// still participate in the flow accounting.
func (c *PortfolioCalculator) replayHistory(txs []model.Transaction, fxAt FXLookup) (replayResult, error) {
	var res replayResult
	queues := make(map[string]*lotQueue)
	warned := make(map[string]bool)

	start := truncateToDay(txs[0].Date)
	end := truncateToDay(c.now())

	twrFactor, benchFactor := 1.0, 1.0
	var prevValue, prevBench float64

	i := 0
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		var dayFlow float64 // net external contribution, base currency

		for i < len(txs) && truncateToDay(txs[i].Date).Equal(day) {
			t := txs[i]
			i++

			queue := queues[t.Symbol]
			if queue == nil {
				queue = &lotQueue{}
				queues[t.Symbol] = queue
			}

			switch t.Type {
			case model.TransactionBuy:
				unitOrigin := unitCostOrigin(t)
				fxm := fxAt(t.Symbol, t.Date)
				costBase := t.Quantity * unitOrigin * fxm
				queue.buy(t.Quantity, unitOrigin*fxm, unitOrigin, t.Date)
				res.invested += costBase
				dayFlow += costBase
				res.flows = append(res.flows, CashFlow{Date: day, Amount: -costBase})
			case model.TransactionSell:
				costBase, _, err := queue.sell(t.Quantity)
				if err != nil {
					return res, fmt.Errorf("replay of %s on %s: %w", t.Symbol, day.Format("2006-01-02"), err)
				}
				proceeds := (t.Quantity*t.Price - t.Fee - t.Tax) * fxAt(t.Symbol, t.Date)
				res.realizedPnL += proceeds - costBase
				res.invested -= proceeds
				dayFlow -= proceeds
				res.flows = append(res.flows, CashFlow{Date: day, Amount: proceeds})
			case model.TransactionDividend:
				cash := dividendCash(t) * fxAt(t.Symbol, t.Date)
				res.incomePnL += cash
				res.invested -= cash
				dayFlow -= cash
				res.flows = append(res.flows, CashFlow{Date: day, Amount: cash})
			default:
				return res, fmt.Errorf("%w: %q", apperrors.ErrUnknownTransactionType, t.Type)
			}
		}

		value := c.valueAt(queues, day, fxAt, warned)
		twrFactor = ChainHoldingPeriod(twrFactor, prevValue, value, dayFlow)
		benchFactor, prevBench = c.chainBenchmark(benchFactor, prevBench, day)
		prevValue = value

		if isWeekday(day) {
			res.history = append(res.history, model.HistoryPoint{
				Date:         day,
				TotalValue:   round(value),
				InvestedCash: round(res.invested),
				TWR:          twrFactor - 1,
				BenchmarkTWR: benchFactor - 1,
			})
		}
	}

	return res, nil
}

// valueAt marks every open position to market at the day's close. A symbol
// with no price history at all is valued at its average origin cost, with a
// one-time warning.
func (c *PortfolioCalculator) valueAt(queues map[string]*lotQueue, day time.Time, fxAt FXLookup, warned map[string]bool) float64 {
	var total float64
	for symbol, queue := range queues {
		quantity := queue.quantity()
		if isZeroQuantity(quantity) {
			continue
		}

		price, _, err := c.provider.PriceAsOf(symbol, day)
		if err != nil {
			if !warned[symbol] {
				log.Printf("WARN: no price for %s on or before %s, valuing at cost", symbol, day.Format("2006-01-02"))
				warned[symbol] = true
			}
			var costOrigin float64
			for _, lot := range queue.lots {
				costOrigin += lot.QuantityRemaining * lot.UnitCostOrigin
			}
			price = costOrigin / quantity
		}

		total += quantity * price * fxAt(symbol, day)
	}
	return total
}

// chainBenchmark extends the benchmark total-return factor by one day using
// the exact-date close, reinvesting dividends on their ex-date. Non-trading
// days leave the factor unchanged.
func (c *PortfolioCalculator) chainBenchmark(factor, prevClose float64, day time.Time) (float64, float64) {
	price, err := c.provider.Price(c.benchmarkSymbol, day)
	if err != nil || price <= 0 {
		return factor, prevClose
	}
	if prevClose > 0 {
		dividend := c.provider.Dividend(c.benchmarkSymbol, day)
		factor *= (price + dividend) / prevClose
	}
	return factor, price
}

// dailyAttribution aggregates the as-of daily P&L across symbols, split by
// market.
type dailyAttribution struct {
	total     float64
	tw        float64
	us        float64
	perSymbol map[string]symbolDaily
}

type symbolDaily struct {
	pnl       float64
	changePct float64
}

// attributeDailyPnL computes each symbol's as-of day P&L using the market's
// own valuation date pair: price and FX observations for a position always
// come from the same t0/t1 dates. An attribution error is fatal for the
// group; a missing price merely skips the symbol with a warning.
func (c *PortfolioCalculator) attributeDailyPnL(
	analyzer *TransactionAnalyzer,
	txs []model.Transaction,
	holdings map[string]model.Holding,
) (dailyAttribution, error) {
	attribution := dailyAttribution{perSymbol: make(map[string]symbolDaily)}

	symbols := make(map[string]bool)
	for symbol := range holdings {
		symbols[symbol] = true
	}
	for _, t := range txs {
		symbols[t.Symbol] = true
	}

	sortedSymbols := make([]string, 0, len(symbols))
	for symbol := range symbols {
		sortedSymbols = append(sortedSymbols, symbol)
	}
	slices.Sort(sortedSymbols)

	for _, symbol := range sortedSymbols {
		isDomestic := c.currency.IsBaseCurrency(symbol)
		t0, t1 := c.stages.ValuationDates(isDomestic)

		var buysOrigin, sellsOrigin, divOrigin float64
		for _, t := range txs {
			if t.Symbol != symbol || !truncateToDay(t.Date).Equal(t1) {
				continue
			}
			switch t.Type {
			case model.TransactionBuy:
				buysOrigin += t.Quantity*t.Price + t.Fee + t.Tax
			case model.TransactionSell:
				sellsOrigin += t.Quantity*t.Price - t.Fee - t.Tax
			case model.TransactionDividend:
				divOrigin += dividendCash(t)
			}
		}

		snapshot, err := analyzer.AnalyzeTodayPosition(symbol, t1)
		if err != nil {
			return attribution, err
		}
		if isZeroQuantity(snapshot.TotalQuantity()) && buysOrigin == 0 && sellsOrigin == 0 && divOrigin == 0 {
			continue
		}

		fx0m, fx1m := 1.0, 1.0
		if !isDomestic {
			fx0m = c.fxRateOn(t0)
			fx1m = c.fxRateOn(t1)
		}

		prevClose, _, err := c.provider.PriceAsOf(symbol, t0)
		if err != nil {
			if snapshot.PreDayQty > QuantityEpsilon {
				log.Printf("WARN: no previous close for %s as of %s, skipping daily P&L", symbol, t0.Format("2006-01-02"))
				continue
			}
			prevClose = 0
		}

		endPrice, _, err := c.provider.PriceAsOf(symbol, t1)
		if err != nil {
			if snapshot.TotalQuantity() > QuantityEpsilon {
				log.Printf("WARN: no price for %s as of %s, skipping daily P&L", symbol, t1.Format("2006-01-02"))
				continue
			}
			endPrice = 0
		}

		state := model.DailyPositionState{
			Date:       t1,
			Symbol:     symbol,
			BeginQty:   snapshot.PreDayQty,
			BeginPrice: prevClose * fx0m,
			BeginValue: snapshot.PreDayQty * prevClose * fx0m,
			EndQty:     snapshot.TotalQuantity(),
			EndPrice:   endPrice * fx1m,
			EndValue:   snapshot.TotalQuantity() * endPrice * fx1m,
			CashIn:     (sellsOrigin + divOrigin) * fx1m,
			CashOut:    buysOrigin * fx1m,
		}

		result, err := ComputeDailyPnL(state, snapshot.RealizedPnL*fx1m, divOrigin*fx1m)
		if err != nil {
			return attribution, err
		}

		attribution.total += result.TotalPnL
		if isDomestic {
			attribution.tw += result.TotalPnL
		} else {
			attribution.us += result.TotalPnL
		}

		basePrice := analyzer.BasePriceForPnL(snapshot, prevClose)
		var changePct float64
		if basePrice > QuantityEpsilon {
			changePct = (endPrice - basePrice) / basePrice * 100
		}
		attribution.perSymbol[symbol] = symbolDaily{pnl: result.TotalPnL, changePct: changePct}
	}

	return attribution, nil
}

// buildHoldingRows assembles the holdings table, sorted by market value
// descending.
func (c *PortfolioCalculator) buildHoldingRows(holdings map[string]model.Holding, daily dailyAttribution) []model.HoldingPosition {
	rows := make([]model.HoldingPosition, 0, len(holdings))

	for symbol, holding := range holdings {
		isDomestic := c.currency.IsBaseCurrency(symbol)
		_, t1 := c.stages.ValuationDates(isDomestic)

		fx1m := 1.0
		if !isDomestic {
			fx1m = c.fxRateOn(t1)
		}

		price, _, err := c.provider.PriceAsOf(symbol, t1)
		if err != nil {
			// Valued at average cost; already warned during the replay.
			price = holding.AverageCostOrigin()
		}

		marketValue := holding.Quantity * price * fx1m
		row := model.HoldingPosition{
			Symbol:          symbol,
			Quantity:        holding.Quantity,
			Currency:        c.currency.Detect(symbol),
			Price:           price,
			MarketValue:     round(marketValue),
			CostBasisBase:   round(holding.CostBasisBase),
			CostBasisOrigin: round(holding.CostBasisOrigin),
			AvgCost:         holding.AverageCostOrigin(),
			UnrealizedPnL:   round(marketValue - holding.CostBasisBase),
			Tags:            holding.Tags,
		}
		if sd, ok := daily.perSymbol[symbol]; ok {
			row.DailyPnL = round(sd.pnl)
			row.DailyChangePct = sd.changePct
		}
		rows = append(rows, row)
	}

	slices.SortFunc(rows, func(a, b model.HoldingPosition) int {
		if a.MarketValue != b.MarketValue {
			return cmp.Compare(b.MarketValue, a.MarketValue)
		}
		return cmp.Compare(a.Symbol, b.Symbol)
	})
	return rows
}

// pendingDividends scans the trailing lookback window for ex-dates on held
// symbols not yet matched by a DIV ledger entry.
func (c *PortfolioCalculator) pendingDividends(txs []model.Transaction, holdings []model.HoldingPosition) []model.PendingDividend {
	today := truncateToDay(c.now())
	from := today.AddDate(0, 0, -pendingDividendLookbackDays)

	var pending []model.PendingDividend
	for _, holding := range holdings {
		for _, div := range c.provider.DividendsBetween(holding.Symbol, from, today) {
			if dividendRecorded(txs, holding.Symbol, div.Date) {
				continue
			}
			pending = append(pending, model.PendingDividend{
				Symbol: holding.Symbol,
				ExDate: div.Date,
				Amount: round(div.Amount * holding.Quantity),
			})
		}
	}

	slices.SortFunc(pending, func(a, b model.PendingDividend) int {
		if !a.ExDate.Equal(b.ExDate) {
			return a.ExDate.Compare(b.ExDate)
		}
		return cmp.Compare(a.Symbol, b.Symbol)
	})
	return pending
}

// adjustForSplits rewrites BUY/SELL legs into current share units using the
// cumulative split factor from the trade date to the present: quantity is
// multiplied by the factor and price divided by it, preserving the cash value
// of the trade.
func (c *PortfolioCalculator) adjustForSplits(txs []model.Transaction) []model.Transaction {
	adjusted := slices.Clone(txs)
	for i := range adjusted {
		t := &adjusted[i]
		if t.Type != model.TransactionBuy && t.Type != model.TransactionSell {
			continue
		}
		factor := c.provider.SplitFactor(t.Symbol, t.Date)
		if factor <= 0 || factor == 1.0 {
			continue
		}
		t.Quantity *= factor
		t.Price /= factor
	}
	return adjusted
}

// fxLookup returns the FXLookup the analyzer and replay share: 1.0 for
// domestic symbols, the dated observation (or the default rate) for foreign
// ones.
func (c *PortfolioCalculator) fxLookup() FXLookup {
	return func(symbol string, date time.Time) float64 {
		if c.currency.IsBaseCurrency(symbol) {
			return 1.0
		}
		return c.currency.FXMultiplier(symbol, c.fxRateOn(date))
	}
}

// fxRateOn returns the FX observation as of a date, falling back to the
// configured default rate.
func (c *PortfolioCalculator) fxRateOn(date time.Time) float64 {
	rate, err := c.provider.FXRateAsOf(date)
	if err != nil || rate <= 0 {
		return c.defaultFXRate
	}
	return rate
}

// dietzFlows converts dated investor-perspective flows into period-relative
// portfolio-perspective flows for the Modified Dietz computation.
func dietzFlows(flows []CashFlow, start, end time.Time) []WeightedCashFlow {
	span := end.Sub(start)
	weighted := make([]WeightedCashFlow, 0, len(flows))
	for _, f := range flows {
		var t float64
		if span > 0 {
			t = f.Date.Sub(start).Seconds() / span.Seconds()
		}
		weighted = append(weighted, WeightedCashFlow{T: t, Amount: -f.Amount})
	}
	return weighted
}

// dividendCash returns the cash amount of a DIV entry, preferring the explicit
// cash field over quantity times per-share amount.
func dividendCash(t model.Transaction) float64 {
	if t.CashAmount > 0 {
		return t.CashAmount
	}
	return t.Quantity * t.Price
}

// dividendRecorded reports whether the ledger already carries a DIV entry for
// the symbol dated on or after the ex-date.
func dividendRecorded(txs []model.Transaction, symbol string, exDate time.Time) bool {
	ex := truncateToDay(exDate)
	for _, t := range txs {
		if t.Type == model.TransactionDividend && t.Symbol == symbol && !truncateToDay(t.Date).Before(ex) {
			return true
		}
	}
	return false
}

// collectTags returns the sorted set of user tags across the ledger.
func collectTags(txs []model.Transaction) []string {
	set := make(map[string]bool)
	for _, t := range txs {
		for _, tag := range SplitTags(t.Tag) {
			set[tag] = true
		}
	}
	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

// filterByTag returns the transactions carrying the given tag.
func filterByTag(txs []model.Transaction, tag string) []model.Transaction {
	var subset []model.Transaction
	for _, t := range txs {
		if hasTag(t.Tag, tag) {
			subset = append(subset, t)
		}
	}
	return subset
}
