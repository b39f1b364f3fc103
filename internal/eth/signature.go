// Package eth holds the Ethereum primitives shared by the auth and dashboard code:
// personal-message signature recovery, address normalization and unit conversion.
package eth

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrSignatureLength is returned when a signature is not 65 bytes
	ErrSignatureLength = errors.New("signature must be 65 bytes")

	// ErrInvalidAddress is returned when a string is not a hex address
	ErrInvalidAddress = errors.New("invalid ethereum address")
)

// DecodeSignature decodes a hex signature, with or without the 0x prefix
func DecodeSignature(sig string) ([]byte, error) {
	sig = strings.TrimSpace(sig)
	if !strings.HasPrefix(sig, "0x") && !strings.HasPrefix(sig, "0X") {
		sig = "0x" + sig
	}

	decoded, err := hexutil.Decode(sig)
	if err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}
	if len(decoded) != crypto.SignatureLength {
		return nil, ErrSignatureLength
	}
	return decoded, nil
}

// RecoverPersonal returns the address that signed msg using the EIP-191
// personal message encoding ("\x19Ethereum Signed Message:\n" + len + msg).
// Both wallet-style (27/28) and raw (0/1) recovery ids are accepted.
func RecoverPersonal(msg []byte, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, ErrSignatureLength
	}

	normalized := make([]byte, len(sig))
	copy(normalized, sig)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash(msg), normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pub), nil
}

// SignPersonal signs msg the way a wallet's personal_sign does
func SignPersonal(msg []byte, key *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(msg), key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// NormalizeAddress validates a hex address and returns it lowercased
func NormalizeAddress(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if !common.IsHexAddress(addr) {
		return "", ErrInvalidAddress
	}
	return strings.ToLower(common.HexToAddress(addr).Hex()), nil
}

// SameAddress compares two addresses ignoring checksum casing
func SameAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
