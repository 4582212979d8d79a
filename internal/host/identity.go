// Package host defines the narrow set of interfaces the matching core
// consumes from its execution environment: a monotonic clock, an external
// token custody service, and the identity/signing types both share. Nothing
// in this package talks to a network, a database, or a signature library —
// concrete implementations are wired up at the process edge (cmd/clobd).
package host

import "github.com/ethereum/go-ethereum/common"

// Identity is the host's public-key/authority type: a maker's authority, a
// taker's wallet, or the fee collector. The zero value is reserved as the
// "nobody" sentinel (an unregistered market-maker slot).
type Identity = common.Address

// SigningTag is the opaque derivation tag a book stores so that a
// vault-sourced transfer's signing capability can be reconstructed by the
// token service without the matching core knowing how the underlying
// authority is derived.
type SigningTag [32]byte
