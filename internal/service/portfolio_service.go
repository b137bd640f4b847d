package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/chihung1024/sheet-trading-journal-sub000/internal/config"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/ledger"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/marketdata"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/model"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/repository"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/validation"
)

// priceHistoryMarginDays extends the fetched history window before the oldest
// transaction so previous-close lookups near the start of the ledger resolve.
const priceHistoryMarginDays = 30

// PortfolioService orchestrates a calculation run end to end: ledger sync,
// market data assembly, valuation, validation and persistence. Handlers and
// the scheduled refresh job talk to this service, never to the pipeline
// pieces directly.
type PortfolioService struct {
	ledgerClient ledger.Client
	marketClient marketdata.Client
	txRepo       *repository.TransactionRepository
	priceRepo    *repository.PriceRepository
	snapshotRepo *repository.SnapshotRepository
	validator    *PortfolioValidator
	market       config.MarketConfig
}

// NewPortfolioService creates the orchestrating service.
func NewPortfolioService(
	ledgerClient ledger.Client,
	marketClient marketdata.Client,
	txRepo *repository.TransactionRepository,
	priceRepo *repository.PriceRepository,
	snapshotRepo *repository.SnapshotRepository,
	market config.MarketConfig,
) *PortfolioService {
	return &PortfolioService{
		ledgerClient: ledgerClient,
		marketClient: marketClient,
		txRepo:       txRepo,
		priceRepo:    priceRepo,
		snapshotRepo: snapshotRepo,
		validator:    NewPortfolioValidator(),
		market:       market,
	}
}

// Calculate runs a full valuation: sync the ledger, assemble market data,
// compute, validate and persist. Returns the snapshot together with its
// validation verdict. A failed validation is not an error; the snapshot is
// still stored and served, flagged as unvalidated.
func (s *PortfolioService) Calculate(ctx context.Context) (*model.PortfolioSnapshot, bool, error) {
	transactions, err := s.syncTransactions(ctx)
	if err != nil {
		return nil, false, err
	}

	dataset := s.buildDataset(ctx, transactions)

	stages, err := NewMarketStageDetector()
	if err != nil {
		return nil, false, err
	}
	stage, description, _, _ := stages.CurrentStage()
	log.Printf("calculation run starting: market stage %s (%s)", stage, description)

	currency := NewCurrencyDetector(s.market.BaseCurrency, s.market.ForeignCurrency)
	calculator := NewPortfolioCalculator(dataset, currency, stages, s.market.BenchmarkSymbol, s.market.DefaultFXRate)

	snapshot, err := calculator.Calculate(transactions)
	if err != nil {
		return nil, false, err
	}

	validated := s.validator.Validate(snapshot)
	if !validated {
		log.Printf("WARN: snapshot failed validation, storing it flagged")
	}

	if err := s.snapshotRepo.SaveSnapshot(ctx, snapshot, validated); err != nil {
		return nil, false, fmt.Errorf("persisting snapshot: %w", err)
	}

	if err := s.ledgerClient.UploadSnapshot(snapshot); err != nil {
		// The sheet-side copy is a convenience; the local store already has it.
		log.Printf("WARN: failed to upload snapshot to ledger service: %v", err)
	}

	return snapshot, validated, nil
}

// GetLatestSnapshot returns the most recently persisted snapshot and its
// validation verdict.
func (s *PortfolioService) GetLatestSnapshot() (*model.PortfolioSnapshot, bool, error) {
	return s.snapshotRepo.GetLatestSnapshot()
}

// RefreshMarketData re-fetches price, dividend and FX history for every
// ledger symbol plus the benchmark and updates the local cache. Run nightly
// by the scheduler so a calculation still has usable data when the live
// provider is down.
func (s *PortfolioService) RefreshMarketData(ctx context.Context) error {
	transactions, err := s.txRepo.GetAllTransactions()
	if err != nil {
		return fmt.Errorf("loading ledger for refresh: %w", err)
	}
	if len(transactions) == 0 {
		log.Printf("market data refresh skipped: ledger is empty")
		return nil
	}

	dataset, err := marketdata.Prefetch(ctx, s.marketClient, s.symbolsOf(transactions), s.market.FXSymbol, s.historyStart())
	if err != nil {
		return fmt.Errorf("refreshing market data: %w", err)
	}

	s.persistDataset(ctx, dataset, s.symbolsOf(transactions))
	return nil
}

// syncTransactions pulls the journal from the sheet service and replaces the
// local cache. When the sheet is unreachable the cached ledger is used
// instead, so a provider outage degrades to stale data rather than an error.
func (s *PortfolioService) syncTransactions(ctx context.Context) ([]model.Transaction, error) {
	fetched, err := s.ledgerClient.FetchTransactions()
	if err != nil {
		log.Printf("WARN: ledger fetch failed (%v), using cached ledger", err)
		cached, cacheErr := s.txRepo.GetAllTransactions()
		if cacheErr != nil {
			return nil, fmt.Errorf("ledger fetch failed and cache unreadable: %w", errors.Join(err, cacheErr))
		}
		if len(cached) == 0 {
			return nil, err
		}
		return cached, nil
	}

	valid := make([]model.Transaction, 0, len(fetched))
	for _, t := range fetched {
		if err := validation.ValidateTransaction(t); err != nil {
			log.Printf("WARN: dropping ledger record %s: %v", t.ID, err)
			continue
		}
		valid = append(valid, t)
	}

	now := time.Now().UTC()
	for i := range valid {
		if valid[i].CreatedAt.IsZero() {
			valid[i].CreatedAt = now
		}
	}

	if err := s.txRepo.ReplaceAll(ctx, valid); err != nil {
		return nil, fmt.Errorf("caching ledger: %w", err)
	}
	return valid, nil
}

// buildDataset assembles the market data for a run: a live prefetch first,
// persisted into the cache on success, with cached series filling any gaps.
// A fully failed prefetch falls back to the cache alone.
func (s *PortfolioService) buildDataset(ctx context.Context, transactions []model.Transaction) *marketdata.Dataset {
	symbols := s.symbolsOf(transactions)

	dataset, err := marketdata.Prefetch(ctx, s.marketClient, symbols, s.market.FXSymbol, s.historyStart())
	if err != nil {
		log.Printf("WARN: market data prefetch failed (%v), using cached data", err)
		dataset = marketdata.NewDataset()
	} else {
		s.persistDataset(ctx, dataset, symbols)
	}

	for _, symbol := range symbols {
		if dataset.HasSymbol(symbol) {
			continue
		}
		prices, err := s.priceRepo.GetPrices(symbol)
		if err != nil || len(prices) == 0 {
			continue
		}
		log.Printf("using cached prices for %s", symbol)
		dataset.SetPrices(symbol, prices)
	}

	if _, err := dataset.FXRateAsOf(time.Now().UTC()); err != nil {
		if rates, cacheErr := s.priceRepo.GetFXRates(); cacheErr == nil && len(rates) > 0 {
			log.Printf("using cached fx rates")
			dataset.SetFXRates(rates)
		}
	}

	return dataset
}

// persistDataset writes freshly fetched series into the cache. Failures are
// logged only; the in-memory dataset already serves the current run.
func (s *PortfolioService) persistDataset(ctx context.Context, dataset *marketdata.Dataset, symbols []string) {
	for _, symbol := range symbols {
		prices := dataset.Prices(symbol)
		if len(prices) == 0 {
			continue
		}
		if err := s.priceRepo.UpsertPrices(ctx, symbol, prices); err != nil {
			log.Printf("WARN: failed to cache prices for %s: %v", symbol, err)
		}
	}
	if rates := dataset.FXRates(); len(rates) > 0 {
		if err := s.priceRepo.UpsertFXRates(ctx, rates); err != nil {
			log.Printf("WARN: failed to cache fx rates: %v", err)
		}
	}
}

// symbolsOf returns the distinct ledger symbols plus the benchmark, sorted.
func (s *PortfolioService) symbolsOf(transactions []model.Transaction) []string {
	set := map[string]bool{s.market.BenchmarkSymbol: true}
	for _, t := range transactions {
		set[t.Symbol] = true
	}

	symbols := make([]string, 0, len(set))
	for symbol := range set {
		symbols = append(symbols, symbol)
	}
	slices.Sort(symbols)
	return symbols
}

// historyStart returns the first date fetched: the oldest ledger entry with a
// margin for previous-close lookups, or one year back for an empty cache.
func (s *PortfolioService) historyStart() time.Time {
	oldest := s.txRepo.GetOldestTransactionDate()
	if oldest.IsZero() {
		return time.Now().UTC().AddDate(-1, 0, 0)
	}
	return oldest.AddDate(0, 0, -priceHistoryMarginDays)
}
