package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"project_greeter/internal/usecases"
)

// GetStatus returns the run progress and the per-account counters
func (h *Handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.dashboardUsecase.GetStatus())
}

func (h *Handler) GetAccounts(c *gin.Context) {
	status := h.dashboardUsecase.GetStatus()
	c.JSON(http.StatusOK, gin.H{
		"accounts":   status.Accounts,
		"total_sent": status.TotalSent,
	})
}

func (h *Handler) GetAccount(c *gin.Context) {
	name := c.Param("name")
	if !ValidAccountName(name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid account name"})
		return
	}

	stats, err := h.dashboardUsecase.GetAccount(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetLoginQR serves the pending pairing QR code of an account as PNG
func (h *Handler) GetLoginQR(c *gin.Context) {
	name := c.Param("name")
	if !ValidAccountName(name) {
		c.String(http.StatusBadRequest, "Invalid account name")
		return
	}

	png, err := h.dashboardUsecase.GetLoginQR(name)
	if errors.Is(err, usecases.ErrUnknownAccount) {
		c.String(http.StatusNotFound, "Account not found")
		return
	}
	if err != nil {
		stats, _ := h.dashboardUsecase.GetAccount(name)
		if stats.Authenticated {
			c.String(http.StatusOK, "Already logged in")
			return
		}
		c.String(http.StatusNotFound, "QR code not available")
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}
