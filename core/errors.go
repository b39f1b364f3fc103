package core

import "errors"

var (
	ErrMalformedMessage   = errors.New("malformed siwe message")
	ErrDomainMismatch     = errors.New("bad domain")
	ErrInvalidOrUsedNonce = errors.New("nonce invalid/used")
	ErrBadSignature       = errors.New("bad signature")
	ErrSignatureMismatch  = errors.New("signature mismatch")

	ErrNoSession      = errors.New("no session")
	ErrInvalidSession = errors.New("invalid session")

	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")

	ErrDeploymentNotFound = errors.New("contract not found")
	ErrInvalidDeployment  = errors.New("invalid deployment record")
	ErrInvalidAddress     = errors.New("invalid ethereum address")
	ErrUnsupportedNetwork = errors.New("unsupported network")

	ErrArtifactNotFound = errors.New("artifact not found")
	ErrInvalidArtifact  = errors.New("invalid artifact")
)
