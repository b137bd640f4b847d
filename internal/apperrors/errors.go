package apperrors

import "errors"

// Ledger integrity errors indicate that the transaction ledger itself is
// inconsistent. They are fatal for the affected calculation group: the
// computation aborts instead of returning numbers derived from a broken ledger.
var (
	// ErrOversell indicates a SELL transaction consumes more shares than are
	// held across all open lots for the symbol at that point in the replay.
	ErrOversell = errors.New("sell quantity exceeds held shares")

	// ErrMalformedTransaction indicates a transaction record that cannot be
	// interpreted (unknown type, unparseable date).
	ErrMalformedTransaction = errors.New("malformed transaction record")

	// ErrUnknownTransactionType indicates a transaction type outside BUY/SELL/DIV.
	ErrUnknownTransactionType = errors.New("unknown transaction type")
)

// Attribution errors indicate a logic defect in the P&L decomposition, not a
// data problem. They must never be masked.
var (
	// ErrAttributionMismatch indicates the realized + holding + income components
	// of a daily P&L result do not sum to the total within tolerance.
	ErrAttributionMismatch = errors.New("daily P&L attribution identity violated")
)

// Data gap errors describe missing or unusable market observations. They are
// recoverable: callers fall back to the previous available value (or a default
// FX rate) and log a warning.
var (
	// ErrPriceNotFound indicates no price observation exists on or before the
	// requested date for a symbol.
	ErrPriceNotFound = errors.New("price not found for symbol/date")

	// ErrFXRateNotFound indicates no FX observation exists on or before the
	// requested date.
	ErrFXRateNotFound = errors.New("exchange rate not found for date")

	// ErrNonPositiveFXRate indicates an FX observation that is zero or negative.
	// Unlike a missing price this is fatal for validation: every foreign holding
	// would be mispriced by it.
	ErrNonPositiveFXRate = errors.New("exchange rate is zero or negative")
)

// Entity and service errors used at the repository and HTTP boundaries.
var (
	// ErrSnapshotNotFound indicates no published snapshot exists yet.
	ErrSnapshotNotFound = errors.New("portfolio snapshot not found")

	// ErrEmptyLedger indicates the ledger holds no transactions at all.
	// Calculation still produces a well-formed zero snapshot; this error is only
	// surfaced by operations that require at least one transaction.
	ErrEmptyLedger = errors.New("ledger contains no transactions")

	// ErrFailedToFetchLedger indicates the remote ledger service could not be
	// reached or returned an unusable payload.
	ErrFailedToFetchLedger = errors.New("failed to fetch ledger records")

	// ErrFailedToFetchMarketData indicates the market data provider request failed.
	ErrFailedToFetchMarketData = errors.New("failed to fetch market data")

	// ErrInvalidAPIKey indicates a request carried a missing or wrong API key.
	ErrInvalidAPIKey = errors.New("invalid API key")
)
