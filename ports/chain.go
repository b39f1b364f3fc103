package ports

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ChainReader reads account and contract state from a named network.
// Unknown networks yield core.ErrUnsupportedNetwork.
type ChainReader interface {
	BalanceAt(ctx context.Context, network string, account common.Address) (*big.Int, error)
	// TransferLogs returns ERC20 Transfer logs of contract from genesis to the latest block, oldest first
	TransferLogs(ctx context.Context, network string, contract common.Address) ([]types.Log, error)
	GasUsed(ctx context.Context, network string, tx common.Hash) (uint64, error)
	BlockTime(ctx context.Context, network string, number uint64) (time.Time, error)
}
