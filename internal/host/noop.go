package host

import (
	"context"

	"go.uber.org/zap"
)

// LoggingVaultTransferer is a VaultTransferer that only logs the transfer it
// was asked to perform. It stands in for a real custody backend (a chain
// RPC client, a bank ledger API) until one is wired at the process edge;
// swapping it for a concrete implementation requires no change to
// BreakingTokenService or internal/clob.
type LoggingVaultTransferer struct {
	logger *zap.Logger
}

// NewLoggingVaultTransferer returns a VaultTransferer that logs every call.
func NewLoggingVaultTransferer(logger *zap.Logger) *LoggingVaultTransferer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingVaultTransferer{logger: logger}
}

// Transfer implements VaultTransferer.Transfer.
func (t *LoggingVaultTransferer) Transfer(ctx context.Context, asset Identity, from Identity, to Identity, amount uint64) error {
	t.logger.Info("vault transfer",
		zap.String("asset", asset.Hex()),
		zap.String("from", from.Hex()),
		zap.String("to", to.Hex()),
		zap.Uint64("amount", amount))
	return nil
}

// TransferSigned implements VaultTransferer.TransferSigned.
func (t *LoggingVaultTransferer) TransferSigned(ctx context.Context, asset Identity, vault Identity, to Identity, amount uint64, tag SigningTag) error {
	t.logger.Info("signed vault transfer",
		zap.String("asset", asset.Hex()),
		zap.String("vault", vault.Hex()),
		zap.String("to", to.Hex()),
		zap.Uint64("amount", amount))
	return nil
}
