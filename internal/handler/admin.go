package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nanogate/imagegate/internal/config"
	"github.com/nanogate/imagegate/internal/quota"
	"github.com/nanogate/imagegate/internal/repository"
	"github.com/nanogate/imagegate/internal/service"
)

type AdminHandler struct {
	accounts    *service.AccountService
	usageLogs   *repository.UsageLogRepository
	generations *repository.GenerationRepository
	config      *config.Manager
}

func NewAdminHandler(
	accounts *service.AccountService,
	usageLogs *repository.UsageLogRepository,
	generations *repository.GenerationRepository,
	cfg *config.Manager,
) *AdminHandler {
	return &AdminHandler{
		accounts:    accounts,
		usageLogs:   usageLogs,
		generations: generations,
		config:      cfg,
	}
}

// Handles GET /admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	accounts, err := h.accounts.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, accounts)
}

type updateUserRequest struct {
	IsPro      *bool `json:"is_pro" binding:"required"`
	QuotaLimit int   `json:"quota_limit" binding:"required,min=1"`
}

// Handles PUT /admin/users/:id
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid account ID"})
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.accounts.UpdateStatus(c.Request.Context(), id, *req.IsPro, req.QuotaLimit); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Account updated"})
}

// Handles GET /admin/generations
func (h *AdminHandler) RecentGenerations(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 500 {
		limit = 50
	}

	generations, err := h.generations.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, generations)
}

// Handles GET /admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	ipStats, err := h.usageLogs.StatsByIP(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	weekAgo := time.Now().Add(-quota.ResetWindow)
	weeklyGenerations, err := h.generations.CountSince(ctx, weekAgo)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ip_usage":           ipStats,
		"weekly_generations": weeklyGenerations,
	})
}

// Handles GET /admin/config - secrets are redacted
func (h *AdminHandler) GetConfig(c *gin.Context) {
	snap := h.config.Snapshot()

	c.JSON(http.StatusOK, gin.H{
		"api": snap.API,
		"auth": gin.H{
			"api_key":     redact(snap.Auth.APIKey),
			"backup_keys": len(snap.Auth.BackupKeys),
			"model_rules": gin.H{
				"special_models":   snap.Auth.ModelRules.SpecialModels,
				"special_keys":     len(snap.Auth.ModelRules.SpecialKeys),
				"chat_only_models": snap.Auth.ModelRules.ChatOnlyModels,
			},
		},
		"image": snap.Image,
	})
}

type updateConfigRequest struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

// Handles PUT /admin/config - persists to the document, takes effect on
// the next dispatch without a restart
func (h *AdminHandler) UpdateConfig(c *gin.Context) {
	var req updateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.config.Update(func(cfg *config.Config) {
		if req.BaseURL != "" {
			cfg.API.BaseURL = req.BaseURL
		}
		if req.Model != "" {
			cfg.API.Model = req.Model
		}
		if req.APIKey != "" {
			cfg.Auth.APIKey = req.APIKey
		}
	})

	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Config updated"})
}

func redact(key string) string {
	if len(key) <= 6 {
		return "***"
	}
	return key[:3] + "***" + key[len(key)-3:]
}
