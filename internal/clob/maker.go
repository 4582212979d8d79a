package clob

import "github.com/tradsys/clob/internal/host"

// Identity is the host's public-key/authority type; re-exported here so
// callers of this package rarely need to import internal/host directly. The
// zero value marks a vacant market-maker slot.
type Identity = host.Identity

// MarketMaker is one fixed-length slot of a book's maker table: an authority
// identity and the custodial balances the book holds on the maker's behalf.
type MarketMaker struct {
	Authority    Identity
	BaseBalance  uint64
	QuoteBalance uint64
}

// AddMarketMaker reserves slot idx for authority, failing if already taken.
// The anti-squatting deposit burn is the host's concern (§6); this only
// performs the bookkeeping half of add_market_maker.
func AddMarketMaker(makers *[NumMarketMakers]MarketMaker, idx uint8, authority Identity) error {
	if makers[idx].Authority != (Identity{}) {
		return ErrIndexAlreadyTaken
	}
	makers[idx].Authority = authority
	return nil
}

// FindMarketMaker returns the slot index of the maker with the given
// authority, or ErrMakerNotFound.
func FindMarketMaker(makers *[NumMarketMakers]MarketMaker, authority Identity) (uint8, error) {
	for i := range makers {
		if makers[i].Authority == authority {
			return uint8(i), nil
		}
	}
	return 0, ErrMakerNotFound
}
