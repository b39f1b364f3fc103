// Package chain reads balances and ERC20 activity from EVM JSON-RPC endpoints.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/layer-3/nocode/core"
)

// DefaultAnvilRPC is the local development node
const DefaultAnvilRPC = "http://127.0.0.1:8545"

// Backend is the subset of *ethclient.Client the reader relies on
type Backend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	Close()
}

// Dialer connects to an RPC endpoint
type Dialer func(ctx context.Context, rpcURL string) (Backend, error)

func dialEthclient(ctx context.Context, rpcURL string) (Backend, error) {
	return ethclient.DialContext(ctx, rpcURL)
}

// DefaultNetworks returns the known network names and their RPC endpoints.
// Infura-backed networks are only present when infuraKey is set.
func DefaultNetworks(anvilRPC, infuraKey string) map[string]string {
	if anvilRPC == "" {
		anvilRPC = DefaultAnvilRPC
	}

	networks := map[string]string{
		"anvil":     anvilRPC,
		"polygon":   "https://polygon-rpc.com",
		"bsc":       "https://bsc-dataseed.binance.org",
		"avalanche": "https://api.avax.network/ext/bc/C/rpc",
	}
	if infuraKey != "" {
		networks["ethereum"] = "https://mainnet.infura.io/v3/" + infuraKey
		networks["sepolia"] = "https://sepolia.infura.io/v3/" + infuraKey
	}
	return networks
}

// Networks resolves network names to lazily dialed RPC clients
type Networks struct {
	urls    map[string]string
	dial    Dialer
	mu      sync.Mutex
	clients map[string]Backend
}

// NetworksOption configures Networks
type NetworksOption func(*Networks)

// WithDialer replaces the ethclient dialer
func WithDialer(dial Dialer) NetworksOption {
	return func(n *Networks) {
		n.dial = dial
	}
}

// NewNetworks creates a registry over name -> RPC URL
func NewNetworks(urls map[string]string, opts ...NetworksOption) *Networks {
	n := &Networks{
		urls:    make(map[string]string, len(urls)),
		dial:    dialEthclient,
		clients: make(map[string]Backend),
	}
	for name, url := range urls {
		n.urls[strings.ToLower(name)] = url
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Names lists the configured networks in lexical order
func (n *Networks) Names() []string {
	names := make([]string, 0, len(n.urls))
	for name := range n.urls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Supports reports whether name is configured
func (n *Networks) Supports(name string) bool {
	_, ok := n.urls[strings.ToLower(name)]
	return ok
}

// Client returns the cached client for name, dialing on first use
func (n *Networks) Client(ctx context.Context, name string) (Backend, error) {
	name = strings.ToLower(name)
	url, ok := n.urls[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedNetwork, name)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if client, ok := n.clients[name]; ok {
		return client, nil
	}

	client, err := n.dial(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial %s rpc: %w", name, err)
	}
	n.clients[name] = client
	return client, nil
}

// Close closes every dialed client
func (n *Networks) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	for name, client := range n.clients {
		client.Close()
		delete(n.clients, name)
	}
}
