package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"stayhub/internal/pkg/errs"
	"stayhub/internal/usecase/shared"
)

const maxErrorBody = 4 << 10

type HTTPPaymentConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPPaymentGateway talks to the payment provider's JSON API. 402 and 422
// are declines; transport failures, 429 and 5xx are reported as unavailable.
type HTTPPaymentGateway struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPPaymentGateway(cfg HTTPPaymentConfig) *HTTPPaymentGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPPaymentGateway{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type authorizeBody struct {
	AmountCents int64  `json:"amount_cents"`
	CustomerID  string `json:"customer_id"`
	Reference   string `json:"reference"`
	Capture     bool   `json:"capture"`
}

type authorizeResponse struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
}

type refundBody struct {
	AmountCents int64 `json:"amount_cents"`
}

func (g *HTTPPaymentGateway) Authorize(ctx context.Context, req shared.AuthorizeRequest) (*shared.Authorization, error) {
	var out authorizeResponse
	err := g.post(ctx, "/v1/payments", req.IdempotencyKey, authorizeBody{
		AmountCents: req.Amount.Cents(),
		CustomerID:  req.GuestID.String(),
		Reference:   req.BookingID.String(),
		Capture:     true,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.PaymentID == "" {
		return nil, errs.Mark(errs.New("payment response without payment_id"), shared.ErrGatewayUnavailable)
	}
	return &shared.Authorization{PaymentID: out.PaymentID}, nil
}

func (g *HTTPPaymentGateway) Refund(ctx context.Context, req shared.RefundRequest) error {
	path := "/v1/payments/" + req.PaymentID + "/refunds"
	return g.post(ctx, path, req.IdempotencyKey, refundBody{AmountCents: req.Amount.Cents()}, nil)
}

func (g *HTTPPaymentGateway) post(ctx context.Context, path, idempotencyKey string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errs.Wrap(err, "failed to marshal request body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errs.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return errs.Mark(errs.Wrapf(err, "POST %s", path), shared.ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errs.Mark(errs.Wrapf(err, "decode response of POST %s", path), shared.ErrGatewayUnavailable)
		}
		return nil
	case resp.StatusCode == http.StatusPaymentRequired, resp.StatusCode == http.StatusUnprocessableEntity:
		return errs.Mark(errs.Newf("POST %s: %s", path, readErrorBody(resp)), shared.ErrPaymentDeclined)
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return errs.Mark(errs.Newf("POST %s: status %d: %s", path, resp.StatusCode, readErrorBody(resp)), shared.ErrGatewayUnavailable)
	default:
		return errs.Newf("POST %s: unexpected status %d: %s", path, resp.StatusCode, readErrorBody(resp))
	}
}

func readErrorBody(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return strings.TrimSpace(string(data))
}
