package host

import "context"

// Clock supplies the host's monotonically advancing slot counter, the TWAP
// oracle's time base. Callers see only slot numbers; SlotClock derives them
// from elapsed wall-clock time.
type Clock interface {
	Now() uint64
}

// TokenService moves funds between the two asset vaults a book owns and the
// outside world. Transfer pulls from a caller-owned account into a vault
// (top-up, taker deposit); TransferSigned pushes out of a vault using the
// signing capability implied by the pair's SigningTag (withdrawal, taker
// payout, taker refund).
type TokenService interface {
	Transfer(ctx context.Context, asset Identity, from Identity, to Identity, amount uint64) error
	TransferSigned(ctx context.Context, asset Identity, vault Identity, to Identity, amount uint64, tag SigningTag) error
}
