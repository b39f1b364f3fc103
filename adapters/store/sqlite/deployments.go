package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/layer-3/nocode/core"
)

const deploymentColumns = `id, project_id, user_id, build_id, chain, tx_hash, contract_address, abi, contract_type, status, created_at`

func scanDeployment(row rowScanner) (*core.Deployment, error) {
	var (
		d               core.Deployment
		txHash          sql.NullString
		contractAddress sql.NullString
		abi             string
		createdAt       int64
	)
	err := row.Scan(&d.ID, &d.ProjectID, &d.UserID, &d.BuildID, &d.Chain,
		&txHash, &contractAddress, &abi, &d.ContractType, &d.Status, &createdAt)
	if err != nil {
		return nil, err
	}
	d.TxHash = mapNullString(txHash)
	d.ContractAddress = mapNullString(contractAddress)
	d.ABI = json.RawMessage(abi)
	d.CreatedAt = fromMillis(createdAt)
	return &d, nil
}

// CreateDeployment inserts a deployment record
func (s *Store) CreateDeployment(ctx context.Context, d *core.Deployment) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	abi := string(d.ABI)
	if abi == "" {
		abi = "[]"
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deployments (`+deploymentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.ProjectID, d.UserID, d.BuildID, d.Chain,
		mapStringNull(d.TxHash), mapStringNull(d.ContractAddress),
		abi, d.ContractType, d.Status, toMillis(d.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert deployment: %w", err)
	}
	return nil
}

// ListDeploymentsByUser returns the user's deployments oldest first
func (s *Store) ListDeploymentsByUser(ctx context.Context, userID, chain string) ([]core.Deployment, error) {
	query := `SELECT ` + deploymentColumns + ` FROM deployments WHERE user_id = ?`
	args := []any{userID}
	if chain != "" {
		query += ` AND chain = ?`
		args = append(args, chain)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query deployments: %w", err)
	}
	defer rows.Close()

	deployments := []core.Deployment{}
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deployment: %w", err)
		}
		deployments = append(deployments, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deployments: %w", err)
	}
	return deployments, nil
}

// FindDeploymentByContract matches the contract address case-insensitively
func (s *Store) FindDeploymentByContract(ctx context.Context, address string) (*core.Deployment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+deploymentColumns+` FROM deployments
		 WHERE lower(contract_address) = lower(?)
		 ORDER BY created_at DESC LIMIT 1`, address)

	d, err := scanDeployment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrDeploymentNotFound
		}
		return nil, fmt.Errorf("query deployment by contract: %w", err)
	}
	return d, nil
}
