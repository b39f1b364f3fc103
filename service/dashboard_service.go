package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/layer-3/nocode/core"
	"github.com/layer-3/nocode/internal/eth"
	"github.com/layer-3/nocode/internal/logging"
	"github.com/layer-3/nocode/ports"
)

const (
	DefaultTransferLimit = 20
	MaxTransferLimit     = 200
)

// UserProfile is the public part of a user
type UserProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	Plan      string    `json:"plan"`
	CreatedAt time.Time `json:"created_at"`
}

// DeploymentStats summarizes a user's deployments
type DeploymentStats struct {
	TotalDeployments int            `json:"total_deployments"`
	ByChain          map[string]int `json:"by_chain"`
	LastDeployment   *string        `json:"last_deployment"`
}

// DeploymentSummary is a deployment as listed on the dashboard
type DeploymentSummary struct {
	Address   string    `json:"address"`
	Chain     string    `json:"chain"`
	TxHash    string    `json:"tx_hash"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// UserDashboard is the profile page of a user
type UserDashboard struct {
	User        UserProfile         `json:"user"`
	Stats       DeploymentStats     `json:"stats"`
	Deployments []DeploymentSummary `json:"deployments"`
}

// WalletQuery selects a wallet overview
type WalletQuery struct {
	Address string
	Network string
	// ChainOnly restricts deployments to Network
	ChainOnly bool
}

// WalletOverview is the balance and deployment history of a wallet
type WalletOverview struct {
	Address      string            `json:"address"`
	Network      string            `json:"network"`
	Balance      string            `json:"balance"`
	Deployments  []core.Deployment `json:"deployments"`
	Transactions []any             `json:"transactions"`
}

// ContractActivity lists recent ERC20 transfers of a contract
type ContractActivity struct {
	Contract     string          `json:"contract"`
	Network      string          `json:"network"`
	Transactions []core.Transfer `json:"transactions"`
}

// DashboardService aggregates users, deployments and chain reads
type DashboardService struct {
	users       ports.UserDirectory
	deployments ports.DeploymentStore
	chain       ports.ChainReader
}

// NewDashboardService creates a dashboard service
func NewDashboardService(users ports.UserDirectory, deployments ports.DeploymentStore, chain ports.ChainReader) *DashboardService {
	return &DashboardService{
		users:       users,
		deployments: deployments,
		chain:       chain,
	}
}

// UserDashboard returns profile and deployment statistics for a user id
func (s *DashboardService) UserDashboard(ctx context.Context, userID string) (*UserDashboard, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var deployments []core.Deployment
	if user.SiweAddress != "" {
		deployments, err = s.deployments.ListDeploymentsByUser(ctx, user.SiweAddress, "")
		if err != nil {
			return nil, fmt.Errorf("failed to list deployments: %w", err)
		}
	}

	dashboard := &UserDashboard{
		User: UserProfile{
			ID:        user.ID,
			Email:     user.Email,
			Address:   user.SiweAddress,
			Plan:      user.Plan,
			CreatedAt: user.CreatedAt,
		},
		Stats: DeploymentStats{
			TotalDeployments: len(deployments),
			ByChain:          make(map[string]int),
		},
		Deployments: make([]DeploymentSummary, 0, len(deployments)),
	}

	var last *core.Deployment
	for i := range deployments {
		d := &deployments[i]
		dashboard.Stats.ByChain[d.Chain]++
		if last == nil || d.CreatedAt.After(last.CreatedAt) {
			last = d
		}
		dashboard.Deployments = append(dashboard.Deployments, DeploymentSummary{
			Address:   d.ContractAddress,
			Chain:     d.Chain,
			TxHash:    d.TxHash,
			Status:    d.Status,
			CreatedAt: d.CreatedAt,
		})
	}
	if last != nil {
		addr := last.ContractAddress
		dashboard.Stats.LastDeployment = &addr
	}

	return dashboard, nil
}

// WalletOverview reads the wallet balance and lists its deployments
func (s *DashboardService) WalletOverview(ctx context.Context, q WalletQuery) (*WalletOverview, error) {
	address, err := eth.NormalizeAddress(q.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidAddress, q.Address)
	}
	network := strings.ToLower(q.Network)

	balance, err := s.chain.BalanceAt(ctx, network, common.HexToAddress(address))
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}

	chainFilter := ""
	if q.ChainOnly {
		chainFilter = network
	}
	deployments, err := s.deployments.ListDeploymentsByUser(ctx, address, chainFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}

	return &WalletOverview{
		Address:      address,
		Network:      network,
		Balance:      eth.WeiToEther(balance).String(),
		Deployments:  deployments,
		Transactions: []any{},
	}, nil
}

// ContractTransfers returns the newest ERC20 transfers of contract, at most
// limit of them, each enriched with gas used and block time. Only the newest
// limit logs are enriched; those whose enrichment fails are left out.
func (s *DashboardService) ContractTransfers(ctx context.Context, contract, network string, limit int) (*ContractActivity, error) {
	if !common.IsHexAddress(strings.TrimSpace(contract)) {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidAddress, contract)
	}
	address := common.HexToAddress(strings.TrimSpace(contract))
	network = strings.ToLower(network)

	if limit <= 0 {
		limit = DefaultTransferLimit
	}
	if limit > MaxTransferLimit {
		limit = MaxTransferLimit
	}

	logs, err := s.chain.TransferLogs(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("failed to read transfer logs: %w", err)
	}

	log := logging.FromContext(ctx)

	// Truncated before any per-log RPC round trips, then walked newest first
	recent := logs[max(0, len(logs)-limit):]
	transfers := make([]core.Transfer, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		transfer, err := s.enrichTransfer(ctx, network, recent[i])
		if err != nil {
			log.WarnContext(ctx, "skipping transfer log", "tx_hash", recent[i].TxHash.Hex(), "error", err)
			continue
		}
		transfers = append(transfers, *transfer)
	}

	return &ContractActivity{
		Contract:     address.Hex(),
		Network:      network,
		Transactions: transfers,
	}, nil
}

var errNotTransfer = errors.New("not an ERC20 transfer log")

func (s *DashboardService) enrichTransfer(ctx context.Context, network string, l types.Log) (*core.Transfer, error) {
	if len(l.Topics) < 3 {
		return nil, errNotTransfer
	}

	gasUsed, err := s.chain.GasUsed(ctx, network, l.TxHash)
	if err != nil {
		return nil, err
	}
	blockTime, err := s.chain.BlockTime(ctx, network, l.BlockNumber)
	if err != nil {
		return nil, err
	}

	return &core.Transfer{
		TxHash:    l.TxHash.Hex(),
		From:      common.BytesToAddress(l.Topics[1].Bytes()).Hex(),
		To:        common.BytesToAddress(l.Topics[2].Bytes()).Hex(),
		Value:     new(big.Int).SetBytes(l.Data).String(),
		Block:     l.BlockNumber,
		BlockHash: l.BlockHash.Hex(),
		BlockTime: blockTime.UTC().Format(time.RFC1123Z),
		GasUsed:   gasUsed,
	}, nil
}
