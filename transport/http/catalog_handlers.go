package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/nocode/service"
)

// CatalogHandlers serves templates and precompiled artifacts
type CatalogHandlers struct {
	catalog *service.CatalogService
}

// NewCatalogHandlers creates catalog handlers
func NewCatalogHandlers(catalog *service.CatalogService) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalog}
}

// Templates lists the template catalogue
func (h *CatalogHandlers) Templates(c *gin.Context) {
	templates, err := h.catalog.Templates(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, templates)
}

// PrepareERC20 returns what the client needs to deploy the token contract
func (h *CatalogHandlers) PrepareERC20(c *gin.Context) {
	a, err := h.catalog.PrepareERC20(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"abi":          a.ABI,
		"bytecode":     a.Bytecode,
		"standard":     "ERC20",
		"openzeppelin": true,
	})
}

// Artifact returns the ABI and bytecode of a named artifact
func (h *CatalogHandlers) Artifact(c *gin.Context) {
	a, err := h.catalog.Artifact(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, a)
}
