package payment

import (
	"context"
	"math/rand"
	"sync"

	"github.com/shopspring/decimal"
)

// CaptureResult is the gateway's verdict on one capture attempt.
type CaptureResult struct {
	Approved      bool
	DeclineReason string
}

// Gateway captures payments. An error means the gateway could not decide;
// a decline is a successful call with Approved false.
type Gateway interface {
	Capture(ctx context.Context, orderID string, amount decimal.Decimal, paymentMethod string) (CaptureResult, error)
}

// SimulatedGateway approves a configurable fraction of captures. It stands
// in for a real payment provider in development and tests.
type SimulatedGateway struct {
	successRatio float64
	mu           sync.Mutex
	rng          *rand.Rand
}

// NewSimulatedGateway creates a gateway that approves roughly successRatio
// of captures, using the given random source.
func NewSimulatedGateway(successRatio float64, rng *rand.Rand) *SimulatedGateway {
	if successRatio < 0 {
		successRatio = 0
	}
	if successRatio > 1 {
		successRatio = 1
	}
	return &SimulatedGateway{
		successRatio: successRatio,
		rng:          rng,
	}
}

func (g *SimulatedGateway) Capture(_ context.Context, _ string, _ decimal.Decimal, _ string) (CaptureResult, error) {
	g.mu.Lock()
	roll := g.rng.Float64()
	g.mu.Unlock()

	if roll < g.successRatio {
		return CaptureResult{Approved: true}, nil
	}
	return CaptureResult{Approved: false, DeclineReason: "insufficient funds"}, nil
}
