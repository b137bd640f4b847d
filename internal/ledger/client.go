// Package ledger talks to the remote sheet service that owns the transaction
// journal. The sheet is the source of truth: records are fetched in full on
// every sync and replace the local cache wholesale.
package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chihung1024/sheet-trading-journal-sub000/internal/apperrors"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/model"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/repository"
	"github.com/google/uuid"
)

// Client fetches ledger records and uploads computed snapshots.
// Defined as an interface so tests can substitute a stub.
type Client interface {
	FetchTransactions() ([]model.Transaction, error)
	UploadSnapshot(snapshot any) error
}

// HTTPClient is the production ledger client.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a ledger client for the given endpoint. The token is
// sent as a Bearer credential on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// rawRecord is one row as the sheet service serves it. Numeric cells arrive
// as strings, numbers or blanks depending on how the sheet was edited, so
// every numeric field uses the coercing flexFloat type.
type rawRecord struct {
	ID         string    `json:"id"`
	Date       string    `json:"date"`
	Symbol     string    `json:"symbol"`
	Type       string    `json:"type"`
	Quantity   flexFloat `json:"quantity"`
	Price      flexFloat `json:"price"`
	Fee        flexFloat `json:"fee"`
	Tax        flexFloat `json:"tax"`
	Tag        string    `json:"tag"`
	CashAmount flexFloat `json:"cash_amount"`
}

// flexFloat unmarshals a JSON number, a numeric string, or a blank into a
// float64. Unparseable cells coerce to 0 rather than failing the whole sync;
// a malformed fee must not block the ledger.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		*f = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	s = strings.ReplaceAll(s, ",", "")

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(value)
	return nil
}

// FetchTransactions retrieves the full journal from the sheet service and
// converts it into normalized transactions. Records with no symbol, no date,
// or an unknown type are dropped with a per-record reason collected into the
// returned error only when nothing survives.
func (c *HTTPClient) FetchTransactions() ([]model.Transaction, error) {
	body, err := c.get(c.baseURL + "/transactions")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrFailedToFetchLedger, err)
	}

	var records []rawRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("%w: parsing response: %v", apperrors.ErrFailedToFetchLedger, err)
	}

	transactions := make([]model.Transaction, 0, len(records))
	for _, record := range records {
		transaction, err := normalizeRecord(record)
		if err != nil {
			// Skipped rows are expected with a hand-edited sheet.
			continue
		}
		transactions = append(transactions, transaction)
	}

	if len(transactions) == 0 {
		return nil, apperrors.ErrEmptyLedger
	}
	return transactions, nil
}

// UploadSnapshot posts the computed snapshot back to the sheet service so the
// front sheet can render it without recomputing.
func (c *HTTPClient) UploadSnapshot(snapshot any) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	req, err := http.NewRequest("POST", c.baseURL+"/snapshot", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("uploading snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("uploading snapshot: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// normalizeRecord converts one sheet row into a Transaction.
func normalizeRecord(record rawRecord) (model.Transaction, error) {
	symbol := strings.ToUpper(strings.TrimSpace(record.Symbol))
	if symbol == "" {
		return model.Transaction{}, fmt.Errorf("%w: missing symbol", apperrors.ErrMalformedTransaction)
	}

	transactionType := strings.ToUpper(strings.TrimSpace(record.Type))
	switch transactionType {
	case model.TransactionBuy, model.TransactionSell, model.TransactionDividend:
	case "DIVIDEND":
		transactionType = model.TransactionDividend
	default:
		return model.Transaction{}, fmt.Errorf("%w: %q", apperrors.ErrUnknownTransactionType, record.Type)
	}

	date, err := repository.ParseTime(strings.TrimSpace(record.Date))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("%w: bad date %q", apperrors.ErrMalformedTransaction, record.Date)
	}

	id := strings.TrimSpace(record.ID)
	if id == "" {
		id = uuid.New().String()
	}

	return model.Transaction{
		ID:         id,
		Date:       date,
		Symbol:     symbol,
		Type:       transactionType,
		Quantity:   float64(record.Quantity),
		Price:      float64(record.Price),
		Fee:        float64(record.Fee),
		Tax:        float64(record.Tax),
		Tag:        strings.TrimSpace(record.Tag),
		CashAmount: float64(record.CashAmount),
	}, nil
}

func (c *HTTPClient) get(url string) ([]byte, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *HTTPClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
