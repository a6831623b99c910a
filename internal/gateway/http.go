package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/roach88/khata/internal/ledger"
)

// HTTP talks to a remote started with `khata serve`.
//
// Status mapping: 404 wraps ledger.ErrNotFound, 409 wraps ErrDeleteRefused,
// 412 from /api/auth is ErrNoPIN, 400 is a validation error.
type HTTP struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// HTTPOption configures an HTTP gateway.
type HTTPOption func(*HTTP)

// WithHTTPClient replaces the pooled default client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) { h.client = c }
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTP) { h.client.Timeout = d }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) HTTPOption {
	return func(h *HTTP) { h.logger = l }
}

// NewHTTP creates a client for the API rooted at baseURL
// (e.g. "http://127.0.0.1:8080").
func NewHTTP(baseURL string, opts ...HTTPOption) (*HTTP, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse remote url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse remote url: unsupported scheme %q", u.Scheme)
	}
	h := &HTTP{
		baseURL: u.String(),
		client:  cleanhttp.DefaultPooledClient(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func (h *HTTP) ListCustomers(ctx context.Context) ([]ledger.Customer, error) {
	var dtos []CustomerDTO
	if err := h.do(ctx, "list customers", http.MethodGet, "/api/customers", nil, &dtos); err != nil {
		return nil, err
	}
	out := make([]ledger.Customer, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, d.Customer)
	}
	return out, nil
}

func (h *HTTP) CreateCustomer(ctx context.Context, fields ledger.CustomerFields) (ledger.Customer, error) {
	var dto CustomerDTO
	if err := h.do(ctx, "create customer", http.MethodPost, "/api/customers", fields, &dto); err != nil {
		return ledger.Customer{}, err
	}
	return dto.Customer, nil
}

func (h *HTTP) UpdateCustomer(ctx context.Context, id string, fields ledger.CustomerFields) (ledger.Customer, error) {
	var dto CustomerDTO
	if err := h.do(ctx, "update customer", http.MethodPut, "/api/customers/"+url.PathEscape(id), fields, &dto); err != nil {
		return ledger.Customer{}, err
	}
	return dto.Customer, nil
}

func (h *HTTP) DeleteCustomer(ctx context.Context, id string) error {
	return h.do(ctx, "delete customer", http.MethodDelete, "/api/customers/"+url.PathEscape(id), nil, nil)
}

func (h *HTTP) ListTransactions(ctx context.Context, customerID string) ([]ledger.Transaction, error) {
	var txs []ledger.Transaction
	path := "/api/customers/" + url.PathEscape(customerID) + "/transactions"
	if err := h.do(ctx, "list transactions", http.MethodGet, path, nil, &txs); err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []ledger.Transaction{}
	}
	return txs, nil
}

func (h *HTTP) CreateTransaction(ctx context.Context, nt ledger.NewTransaction) (ledger.Transaction, error) {
	var t ledger.Transaction
	body := TransactionRequest{Kind: nt.Kind, Amount: nt.Amount, Description: nt.Description}
	path := "/api/customers/" + url.PathEscape(nt.CustomerID) + "/transactions"
	if err := h.do(ctx, "create transaction", http.MethodPost, path, body, &t); err != nil {
		return ledger.Transaction{}, err
	}
	return t, nil
}

func (h *HTTP) DeleteTransaction(ctx context.Context, id string) error {
	return h.do(ctx, "delete transaction", http.MethodDelete, "/api/transactions/"+url.PathEscape(id), nil, nil)
}

func (h *HTTP) Authenticate(ctx context.Context, pin string) (bool, error) {
	var resp AuthResponse
	if err := h.do(ctx, "authenticate", http.MethodPost, "/api/auth", AuthRequest{PIN: pin}, &resp); err != nil {
		return false, err
	}
	return resp.OK, nil
}

// do sends one request and decodes a JSON answer into out (if non-nil).
func (h *HTTP) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	h.logger.Debug("remote request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"elapsed", time.Since(start))

	if resp.StatusCode >= 300 {
		return statusError(op, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// statusError maps a non-2xx answer onto the gateway's error vocabulary.
func statusError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	detail := strings.TrimSpace(string(raw))
	var p Problem
	if json.Unmarshal(raw, &p) == nil && (p.Detail != "" || p.Title != "") {
		detail = p.Detail
		if detail == "" {
			detail = p.Title
		}
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ledger.ErrNotFound)
	case http.StatusConflict:
		return fmt.Errorf("%s: %w", op, ErrDeleteRefused)
	case http.StatusPreconditionFailed:
		return fmt.Errorf("%s: %w", op, ErrNoPIN)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ledger.Validation(op, detail)
	default:
		return fmt.Errorf("%s: remote returned %d: %s", op, resp.StatusCode, detail)
	}
}

var _ Gateway = (*HTTP)(nil)
