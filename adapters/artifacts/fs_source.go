// Package artifacts serves precompiled contract artifacts to clients that
// deploy contracts from the browser wallet.
package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/layer-3/nocode/core"
	"github.com/layer-3/nocode/ports"
)

var artifactName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// FSSource reads "<name>.json" files as written by solc --combined-json,
// Hardhat ({"bytecode": "0x..."}) or Foundry ({"bytecode": {"object": "0x..."}}).
type FSSource struct {
	fsys fs.FS
}

var _ ports.ArtifactSource = (*FSSource)(nil)

// NewFSSource creates an artifact source rooted at fsys
func NewFSSource(fsys fs.FS) *FSSource {
	return &FSSource{fsys: fsys}
}

type artifactFile struct {
	ABI      json.RawMessage `json:"abi"`
	Bytecode json.RawMessage `json:"bytecode"`
}

// Artifact loads and validates the named artifact
func (s *FSSource) Artifact(_ context.Context, name string) (*core.Artifact, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !artifactName.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", core.ErrArtifactNotFound, name)
	}

	raw, err := fs.ReadFile(s.fsys, name+".json")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", core.ErrArtifactNotFound, name)
		}
		return nil, fmt.Errorf("read artifact %q: %w", name, err)
	}

	var file artifactFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrInvalidArtifact, name, err)
	}

	var abi []json.RawMessage
	if err := json.Unmarshal(file.ABI, &abi); err != nil || abi == nil {
		return nil, fmt.Errorf("%w: %s: abi is not an array", core.ErrInvalidArtifact, name)
	}

	bytecode, err := decodeBytecode(file.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrInvalidArtifact, name, err)
	}

	return &core.Artifact{
		Name:     name,
		ABI:      file.ABI,
		Bytecode: bytecode,
	}, nil
}

func decodeBytecode(raw json.RawMessage) (string, error) {
	var code string
	if err := json.Unmarshal(raw, &code); err != nil {
		var obj struct {
			Object string `json:"object"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return "", errors.New("bytecode is neither a string nor an object")
		}
		code = obj.Object
	}

	code = strings.TrimSpace(code)
	if !strings.HasPrefix(code, "0x") && !strings.HasPrefix(code, "0X") {
		code = "0x" + code
	}

	b, err := hexutil.Decode(code)
	if err != nil {
		return "", fmt.Errorf("bytecode: %w", err)
	}
	if len(b) == 0 {
		return "", errors.New("bytecode is empty")
	}
	return hexutil.Encode(b), nil
}
