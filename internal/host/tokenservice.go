package host

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// VaultTransferer is the raw, unprotected call to whatever custody backend
// actually moves tokens between vaults (a chain RPC client, a bank ledger
// API, and so on). A concrete instance is supplied by cmd/clobd; the core
// never depends on it directly.
type VaultTransferer interface {
	Transfer(ctx context.Context, asset Identity, from Identity, to Identity, amount uint64) error
	TransferSigned(ctx context.Context, asset Identity, vault Identity, to Identity, amount uint64, tag SigningTag) error
}

// BreakingTokenService wraps a VaultTransferer with a circuit breaker so a
// degraded custody backend fails fast instead of stalling every API request
// that needs a balance top-up or withdrawal settled.
type BreakingTokenService struct {
	inner  VaultTransferer
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

// NewBreakingTokenService wraps inner with a circuit breaker using the same
// trip/recovery shape as the rest of the stack's resilience layer: open
// once at least half of 10 or more requests in the current 30-second
// counting interval fail, stay open for a cooldown, then allow a handful of
// trial requests through.
func NewBreakingTokenService(inner VaultTransferer, logger *zap.Logger) *BreakingTokenService {
	if logger == nil {
		logger = zap.NewNop()
	}

	settings := gobreaker.Settings{
		Name:        "token-service",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("token service circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &BreakingTokenService{
		inner:  inner,
		cb:     gobreaker.NewCircuitBreaker(settings),
		logger: logger,
	}
}

// Transfer implements TokenService.Transfer behind the circuit breaker.
func (s *BreakingTokenService) Transfer(ctx context.Context, asset Identity, from Identity, to Identity, amount uint64) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.inner.Transfer(ctx, asset, from, to, amount)
	})
	return err
}

// TransferSigned implements TokenService.TransferSigned behind the circuit
// breaker.
func (s *BreakingTokenService) TransferSigned(ctx context.Context, asset Identity, vault Identity, to Identity, amount uint64, tag SigningTag) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.inner.TransferSigned(ctx, asset, vault, to, amount, tag)
	})
	return err
}

// State reports the breaker's current state, for a readiness/health probe.
func (s *BreakingTokenService) State() gobreaker.State {
	return s.cb.State()
}
