package reconcile

import (
	"context"
	"math/big"

	"go.uber.org/zap"

	"poolGraph/internal/model"
)

// GasSource resolves the gas a transaction used from its receipt.
type GasSource interface {
	TxGas(ctx context.Context, txHash string) (model.TxGas, error)
}

// swapGas returns the gas used and price of the swap's transaction, or zeros
// when no source is configured, the log has no tx hash, or the lookup fails.
func (e *Engine) swapGas(ctx context.Context, meta model.EventMeta) (gasUsed, gasPrice *big.Int) {
	if e.gas == nil || meta.TxHash == "" {
		return new(big.Int), new(big.Int)
	}
	gas, err := e.gas.TxGas(ctx, meta.TxHash)
	if err != nil {
		e.logger.Warn("receipt unavailable, swap gas left at zero",
			zap.String("tx", meta.TxHash),
			zap.Uint64("block", meta.BlockNumber),
			zap.Error(err),
		)
		return new(big.Int), new(big.Int)
	}
	return cloneInt(gas.GasUsed), cloneInt(gas.GasPrice)
}
