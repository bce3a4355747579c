package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nanogate/imagegate/internal/middleware"
	"github.com/nanogate/imagegate/internal/service"
)

type AccountHandler struct {
	accounts *service.AccountService
}

func NewAccountHandler(accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// Handles GET /api/me
func (h *AccountHandler) Me(c *gin.Context) {
	identity := middleware.CallerIdentity(c)
	if identity.AccountID == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	account, err := h.accounts.Get(c.Request.Context(), *identity.AccountID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load account"})
		return
	}
	if account == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return
	}

	c.JSON(http.StatusOK, account)
}
