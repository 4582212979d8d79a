// Package api exposes the matching core over HTTP using gin-gonic/gin:
// thin handlers that bind a request DTO, call into the domain package, and
// map its sentinel errors to HTTP status codes. No business logic lives here.
package api

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/tradsys/clob/internal/clob"
	"github.com/tradsys/clob/internal/globalstate"
	"github.com/tradsys/clob/internal/host"
)

// Registry holds every open order book, keyed by its pair string
// ("BASE/QUOTE" of the underlying identities, caller-assigned), plus the
// single process-wide GlobalState record.
type Registry struct {
	mu           sync.RWMutex
	books        map[string]*clob.OrderBook
	global       globalstate.GlobalState
	clock        host.Clock
	logger       *zap.Logger
	twapClampBps uint16
}

// NewRegistry constructs an empty Registry seeded with global.
// twapClampBps overrides each newly created book's default TWAP update
// clamp (clob.DefaultMaxObservationChangePerUpdateBps) when non-zero,
// letting the configured per-process default follow config.yaml / CLOB_TWAP_*
// instead of being baked into the matching core.
func NewRegistry(global globalstate.GlobalState, clock host.Clock, logger *zap.Logger, twapClampBps uint16) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		books:        make(map[string]*clob.OrderBook),
		global:       global,
		clock:        clock,
		logger:       logger,
		twapClampBps: twapClampBps,
	}
}

// CreateBook initializes and registers a new book under pair, failing if
// pair is already in use.
func (r *Registry) CreateBook(pair string, base, quote, baseVault, quoteVault host.Identity, tag host.SigningTag) (*clob.OrderBook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.books[pair]; exists {
		return nil, fmt.Errorf("clob: book %q already exists", pair)
	}
	book := clob.NewOrderBook(base, quote, baseVault, quoteVault, tag, r.logger.Named(pair))
	if r.twapClampBps != 0 {
		book.TWAP.MaxObservationChangePerUpdateBps = r.twapClampBps
	}
	r.books[pair] = book
	return book, nil
}

// Book looks up a registered book by pair.
func (r *Registry) Book(pair string) (*clob.OrderBook, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.books[pair]
	return b, ok
}

// GlobalState returns the process-wide configuration record.
func (r *Registry) GlobalState() globalstate.GlobalState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.global
}

// Now returns the host clock's current slot.
func (r *Registry) Now() uint64 {
	if r.clock == nil {
		return 0
	}
	return r.clock.Now()
}
