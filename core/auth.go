package core

import (
	"encoding/json"
	"time"
)

// DefaultPlan is assigned to users created on their first sign-in.
const DefaultPlan = "free"

// User is an account keyed by the wallet address it signed in with
type User struct {
	ID          string     // Durable internal identifier
	SiweAddress string     // Lowercase wallet address, empty for non-wallet accounts
	Email       string     // Optional contact address
	Plan        string     // Billing plan
	CreatedAt   time.Time  // When the user was first seen
	LastLogin   *time.Time // Last successful sign-in, nil until the second one
}

// Session is the decoded content of a session credential
type Session struct {
	ID        string    // Token identifier, used for revocation
	UserID    string    // Internal user id (sub)
	Address   string    // Verified lowercase wallet address (addr)
	IssuedAt  time.Time // When the credential was issued
	ExpiresAt time.Time // When the credential stops being accepted
}

// Deployment is an on-chain contract deployment performed client-side
type Deployment struct {
	ID              string          `json:"id"`
	ProjectID       string          `json:"project_id"`
	UserID          string          `json:"user_id"`
	BuildID         string          `json:"build_id"`
	Chain           string          `json:"chain"`
	TxHash          string          `json:"tx_hash,omitempty"`
	ContractAddress string          `json:"contract_address,omitempty"`
	ABI             json.RawMessage `json:"abi"`
	ContractType    string          `json:"contract_type"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Transfer is an ERC20 Transfer event enriched with receipt and block data
type Transfer struct {
	TxHash    string `json:"tx_hash"`
	From      string `json:"from"`
	To        string `json:"to"`
	Value     string `json:"value"`
	Block     uint64 `json:"block"`
	BlockHash string `json:"block_hash"`
	BlockTime string `json:"block_time"`
	GasUsed   uint64 `json:"gas_used"`
}

// Template is a deployable contract template offered by the catalogue
type Template struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Version   string          `json:"version"`
	Schema    json.RawMessage `json:"schema"`
	Audited   bool            `json:"audited"`
	CreatedAt time.Time       `json:"created_at"`
}

// Artifact is the compiler output a client needs to deploy a contract itself
type Artifact struct {
	Name     string          `json:"-"`
	ABI      json.RawMessage `json:"abi"`
	Bytecode string          `json:"bytecode"`
}
