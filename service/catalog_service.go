package service

import (
	"context"

	"github.com/layer-3/nocode/core"
	"github.com/layer-3/nocode/ports"
)

// ERC20Artifact names the token artifact handed out by PrepareERC20
const ERC20Artifact = "erc20"

// CatalogService exposes the template catalogue and the precompiled
// artifacts clients deploy from their own wallet
type CatalogService struct {
	templates ports.TemplateCatalog
	artifacts ports.ArtifactSource
}

// NewCatalogService creates a catalog service
func NewCatalogService(templates ports.TemplateCatalog, artifacts ports.ArtifactSource) *CatalogService {
	return &CatalogService{
		templates: templates,
		artifacts: artifacts,
	}
}

// Templates lists every template
func (s *CatalogService) Templates(ctx context.Context) ([]core.Template, error) {
	return s.templates.ListTemplates(ctx)
}

// Artifact returns the named precompiled artifact
func (s *CatalogService) Artifact(ctx context.Context, name string) (*core.Artifact, error) {
	return s.artifacts.Artifact(ctx, name)
}

// PrepareERC20 returns the ABI and bytecode of the token contract
func (s *CatalogService) PrepareERC20(ctx context.Context) (*core.Artifact, error) {
	return s.artifacts.Artifact(ctx, ERC20Artifact)
}
