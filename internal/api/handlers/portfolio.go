package handlers

import (
	"errors"
	"net/http"

	"github.com/chihung1024/sheet-trading-journal-sub000/internal/apperrors"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/model"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/service"
)

// PortfolioHandler handles portfolio valuation HTTP requests.
type PortfolioHandler struct {
	portfolioService *service.PortfolioService
}

// NewPortfolioHandler creates a new PortfolioHandler
func NewPortfolioHandler(portfolioService *service.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{
		portfolioService: portfolioService,
	}
}

// CalculateResponse wraps a snapshot with its validation verdict.
type CalculateResponse struct {
	Validated bool                     `json:"validated"`
	Snapshot  *model.PortfolioSnapshot `json:"snapshot"`
}

// Calculate triggers a full valuation run: ledger sync, market data fetch,
// computation, validation and persistence.
//
// Endpoint: POST /api/portfolio/calculate
// Response: 200 OK with CalculateResponse
// Error: 422 Unprocessable Entity when the ledger is empty or inconsistent,
// 502 Bad Gateway when upstream data cannot be fetched, 500 otherwise.
func (h *PortfolioHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	snapshot, validated, err := h.portfolioService.Calculate(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrEmptyLedger),
			errors.Is(err, apperrors.ErrOversell),
			errors.Is(err, apperrors.ErrAttributionMismatch):
			respondError(w, http.StatusUnprocessableEntity, "calculation failed", err.Error())
		case errors.Is(err, apperrors.ErrFailedToFetchLedger),
			errors.Is(err, apperrors.ErrFailedToFetchMarketData):
			respondError(w, http.StatusBadGateway, "upstream fetch failed", err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "calculation failed", err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, CalculateResponse{
		Validated: validated,
		Snapshot:  snapshot,
	})
}

// Snapshot serves the most recently persisted snapshot without recomputing.
//
// Endpoint: GET /api/portfolio/snapshot
// Response: 200 OK with CalculateResponse
// Error: 404 Not Found when no snapshot has been computed yet
func (h *PortfolioHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, validated, err := h.portfolioService.GetLatestSnapshot()
	if err != nil {
		if errors.Is(err, apperrors.ErrSnapshotNotFound) {
			respondError(w, http.StatusNotFound, "no snapshot available", "run a calculation first")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load snapshot", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, CalculateResponse{
		Validated: validated,
		Snapshot:  snapshot,
	})
}

// Refresh re-fetches market data into the local cache.
//
// Endpoint: POST /api/portfolio/refresh
// Response: 204 No Content
func (h *PortfolioHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.portfolioService.RefreshMarketData(r.Context()); err != nil {
		respondError(w, http.StatusBadGateway, "market data refresh failed", err.Error())
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
