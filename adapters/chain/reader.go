package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/layer-3/nocode/internal/eth"
	"github.com/layer-3/nocode/ports"
)

// EthReader implements ports.ChainReader over the network registry
type EthReader struct {
	networks *Networks
}

var _ ports.ChainReader = (*EthReader)(nil)

// NewEthReader creates a reader over networks
func NewEthReader(networks *Networks) *EthReader {
	return &EthReader{networks: networks}
}

// BalanceAt returns the latest wei balance of account
func (r *EthReader) BalanceAt(ctx context.Context, network string, account common.Address) (*big.Int, error) {
	client, err := r.networks.Client(ctx, network)
	if err != nil {
		return nil, err
	}

	balance, err := client.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

// TransferLogs returns every ERC20 Transfer log emitted by contract
func (r *EthReader) TransferLogs(ctx context.Context, network string, contract common.Address) ([]types.Log, error) {
	client, err := r.networks.Client(ctx, network)
	if err != nil {
		return nil, err
	}

	logs, err := client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: big.NewInt(0),
		Addresses: []common.Address{contract},
		Topics:    [][]common.Hash{{eth.TransferTopic}},
	})
	if err != nil {
		return nil, fmt.Errorf("filter transfer logs: %w", err)
	}
	return logs, nil
}

// GasUsed returns the gas consumed by a mined transaction
func (r *EthReader) GasUsed(ctx context.Context, network string, tx common.Hash) (uint64, error) {
	client, err := r.networks.Client(ctx, network)
	if err != nil {
		return 0, err
	}

	receipt, err := client.TransactionReceipt(ctx, tx)
	if err != nil {
		return 0, fmt.Errorf("get receipt %s: %w", tx.Hex(), err)
	}
	return receipt.GasUsed, nil
}

// BlockTime returns the timestamp of block number
func (r *EthReader) BlockTime(ctx context.Context, network string, number uint64) (time.Time, error) {
	client, err := r.networks.Client(ctx, network)
	if err != nil {
		return time.Time{}, err
	}

	header, err := client.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return time.Time{}, fmt.Errorf("get block %d: %w", number, err)
	}
	return time.Unix(int64(header.Time), 0).UTC(), nil
}
