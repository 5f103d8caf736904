package gateway

import (
	"context"
	"sync"

	"stayhub/internal/pkg/errs"
	"stayhub/internal/usecase/shared"

	"github.com/google/uuid"
)

// SandboxPaymentGateway approves every charge in process. Repeating an
// idempotency key returns the first result. Tests script failures with
// FailNext and DeclineAmount.
type SandboxPaymentGateway struct {
	mu        sync.Mutex
	payments  map[string]string
	refunds   map[string]int64
	failNext  int
	declineAt map[int64]bool
}

func NewSandboxPaymentGateway() *SandboxPaymentGateway {
	return &SandboxPaymentGateway{
		payments:  make(map[string]string),
		refunds:   make(map[string]int64),
		declineAt: make(map[int64]bool),
	}
}

// FailNext makes the next n calls report the gateway as unavailable.
func (g *SandboxPaymentGateway) FailNext(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failNext = n
}

// DeclineAmount declines every authorization for exactly cents.
func (g *SandboxPaymentGateway) DeclineAmount(cents int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.declineAt[cents] = true
}

func (g *SandboxPaymentGateway) Authorize(_ context.Context, req shared.AuthorizeRequest) (*shared.Authorization, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.failNext > 0 {
		g.failNext--
		return nil, shared.ErrGatewayUnavailable
	}
	if id, ok := g.payments[req.IdempotencyKey]; ok {
		return &shared.Authorization{PaymentID: id}, nil
	}
	if g.declineAt[req.Amount.Cents()] {
		return nil, errs.Wrapf(shared.ErrPaymentDeclined, "amount %s", req.Amount)
	}

	id := "sbx_" + uuid.NewString()
	g.payments[req.IdempotencyKey] = id
	return &shared.Authorization{PaymentID: id}, nil
}

func (g *SandboxPaymentGateway) Refund(_ context.Context, req shared.RefundRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.failNext > 0 {
		g.failNext--
		return shared.ErrGatewayUnavailable
	}
	if _, ok := g.refunds[req.IdempotencyKey]; ok {
		return nil
	}
	g.refunds[req.IdempotencyKey] = req.Amount.Cents()
	return nil
}

// Refunded reports the amount refunded under an idempotency key.
func (g *SandboxPaymentGateway) Refunded(idempotencyKey string) (int64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cents, ok := g.refunds[idempotencyKey]
	return cents, ok
}

// Authorizations counts distinct successful authorizations.
func (g *SandboxPaymentGateway) Authorizations() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.payments)
}
