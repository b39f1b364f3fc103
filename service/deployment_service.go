package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/layer-3/nocode/core"
	"github.com/layer-3/nocode/ports"
)

const (
	defaultProjectID  = "nocode"
	defaultBuildID    = "auto"
	unknownUser       = "unknown"
	contractTypeERC20 = "erc20"
	statusDeployed    = "deployed"
)

// RecordInput describes a contract the client deployed itself
type RecordInput struct {
	ContractAddress string          `json:"contract_address"`
	TxHash          string          `json:"tx_hash"`
	Chain           string          `json:"chain"`
	UserID          string          `json:"user_id"`
	ProjectID       string          `json:"project_id"`
	BuildID         string          `json:"build_id"`
	ABI             json.RawMessage `json:"abi"`
	ContractType    string          `json:"contract_type"`
}

// DeploymentService records deployments and answers lookups over them
type DeploymentService struct {
	store ports.DeploymentStore
	now   func() time.Time
}

// NewDeploymentService creates a deployment service
func NewDeploymentService(store ports.DeploymentStore) *DeploymentService {
	return &DeploymentService{
		store: store,
		now:   time.Now,
	}
}

// Record validates in, fills defaults and stores it
func (s *DeploymentService) Record(ctx context.Context, in RecordInput) (*core.Deployment, error) {
	contract := strings.TrimSpace(in.ContractAddress)
	if !common.IsHexAddress(contract) {
		return nil, fmt.Errorf("%w: contract_address %q", core.ErrInvalidAddress, in.ContractAddress)
	}

	chain := strings.ToLower(strings.TrimSpace(in.Chain))
	if chain == "" {
		return nil, fmt.Errorf("%w: chain is required", core.ErrInvalidDeployment)
	}

	var abi []json.RawMessage
	if err := json.Unmarshal(in.ABI, &abi); err != nil || abi == nil {
		return nil, fmt.Errorf("%w: abi must be a JSON array", core.ErrInvalidDeployment)
	}

	d := &core.Deployment{
		ID:              uuid.NewString(),
		ProjectID:       orDefault(in.ProjectID, defaultProjectID),
		UserID:          orDefault(strings.ToLower(strings.TrimSpace(in.UserID)), unknownUser),
		BuildID:         orDefault(in.BuildID, defaultBuildID),
		Chain:           chain,
		TxHash:          strings.TrimSpace(in.TxHash),
		ContractAddress: contract,
		ABI:             in.ABI,
		ContractType:    contractTypeERC20,
		Status:          statusDeployed,
		CreatedAt:       s.now().UTC(),
	}

	if err := s.store.CreateDeployment(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to record deployment: %w", err)
	}
	return d, nil
}

// ListByUser returns deployments of a wallet on one network, or all
// networks when network is empty
func (s *DeploymentService) ListByUser(ctx context.Context, address, network string) ([]core.Deployment, error) {
	deployments, err := s.store.ListDeploymentsByUser(ctx, strings.ToLower(address), strings.ToLower(network))
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}
	return deployments, nil
}

// GetByContract finds a deployment by its contract address
func (s *DeploymentService) GetByContract(ctx context.Context, address string) (*core.Deployment, error) {
	return s.store.FindDeploymentByContract(ctx, strings.TrimSpace(address))
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
