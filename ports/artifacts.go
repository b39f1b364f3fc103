package ports

import (
	"context"

	"github.com/layer-3/nocode/core"
)

// ArtifactSource serves precompiled contract artifacts by name
type ArtifactSource interface {
	// Artifact returns core.ErrArtifactNotFound for unknown names
	Artifact(ctx context.Context, name string) (*core.Artifact, error)
}
