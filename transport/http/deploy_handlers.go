package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/nocode/service"
)

// DeployHandlers serves deployment records and dashboard reads
type DeployHandlers struct {
	deployments    *service.DeploymentService
	dashboard      *service.DashboardService
	defaultNetwork string
}

// NewDeployHandlers creates deployment and dashboard handlers
func NewDeployHandlers(deployments *service.DeploymentService, dashboard *service.DashboardService, defaultNetwork string) *DeployHandlers {
	return &DeployHandlers{
		deployments:    deployments,
		dashboard:      dashboard,
		defaultNetwork: defaultNetwork,
	}
}

func (h *DeployHandlers) network(c *gin.Context) string {
	if n := strings.TrimSpace(c.Query("network")); n != "" {
		return strings.ToLower(n)
	}
	return h.defaultNetwork
}

// RecordERC20 stores a deployment the client performed
func (h *DeployHandlers) RecordERC20(c *gin.Context) {
	var req service.RecordInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	d, err := h.deployments.Record(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"id":        d.ID,
		"etherscan": nil,
	})
}

// DeploymentsByUser returns balance and deployments of a wallet on one network
func (h *DeployHandlers) DeploymentsByUser(c *gin.Context) {
	h.walletOverview(c, true)
}

// WalletDashboard returns balance and deployments of a wallet across networks
func (h *DeployHandlers) WalletDashboard(c *gin.Context) {
	h.walletOverview(c, false)
}

func (h *DeployHandlers) walletOverview(c *gin.Context, chainOnly bool) {
	overview, err := h.dashboard.WalletOverview(c.Request.Context(), service.WalletQuery{
		Address:   c.Param("address"),
		Network:   h.network(c),
		ChainOnly: chainOnly,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}

// Contract looks a deployment up by contract address
func (h *DeployHandlers) Contract(c *gin.Context) {
	d, err := h.deployments.GetByContract(c.Request.Context(), c.Param("address"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, d)
}

// UserDashboard returns profile and deployment statistics
func (h *DeployHandlers) UserDashboard(c *gin.Context) {
	dashboard, err := h.dashboard.UserDashboard(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}

// ContractTransactions lists recent ERC20 transfers of a contract
func (h *DeployHandlers) ContractTransactions(c *gin.Context) {
	contract := strings.TrimSpace(c.Query("contract_address"))
	if contract == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "contract_address is required"})
		return
	}

	limit := service.DefaultTransferLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	activity, err := h.dashboard.ContractTransfers(c.Request.Context(), contract, h.network(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, activity)
}
