package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nanogate/imagegate/internal/dispatch"
	"github.com/nanogate/imagegate/internal/middleware"
	"github.com/nanogate/imagegate/internal/quota"
	"github.com/nanogate/imagegate/internal/service"
)

type GenerateHandler struct {
	generations *service.GenerationService
	dispatcher  *dispatch.Dispatcher
	ledger      *quota.Ledger
	gate        *quota.RateGate
}

func NewGenerateHandler(
	generations *service.GenerationService,
	dispatcher *dispatch.Dispatcher,
	ledger *quota.Ledger,
	gate *quota.RateGate,
) *GenerateHandler {
	return &GenerateHandler{
		generations: generations,
		dispatcher:  dispatcher,
		ledger:      ledger,
		gate:        gate,
	}
}

type generateRequest struct {
	Prompt          string   `json:"prompt" binding:"required"`
	Model           string   `json:"model"`
	Size            string   `json:"size"`
	Quality         string   `json:"quality"`
	ReferenceImages []string `json:"reference_images"`
	BaseURL         string   `json:"base_url"`
}

// Handles POST /api/generate
func (h *GenerateHandler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity := middleware.CallerIdentity(c)

	opts := dispatch.Options{
		Model:              req.Model,
		Size:               req.Size,
		Quality:            req.Quality,
		ReferenceImages:    req.ReferenceImages,
		CredentialOverride: c.GetString("provider_key"),
		BaseURLOverride:    req.BaseURL,
	}

	result, err := h.generations.Generate(c.Request.Context(), identity, req.Prompt, opts)
	if err != nil {
		var denied *service.DeniedError
		if errors.As(err, &denied) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":     denied.Reason,
				"remaining": denied.Remaining,
			})
			return
		}

		c.JSON(http.StatusBadGateway, gin.H{"error": "Image generation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"url":       result.ImageRef,
		"model":     result.Model,
		"cost":      result.Cost,
		"remaining": result.Remaining,
	})
}

type optimizeRequest struct {
	Prompt  string `json:"prompt" binding:"required"`
	Subject string `json:"subject"`
}

// Handles POST /api/optimize - rewrites a raw prompt into a richer one
func (h *GenerateHandler) Optimize(c *gin.Context) {
	var req optimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	optimized := h.dispatcher.OptimizePrompt(c.Request.Context(), req.Prompt, req.Subject)

	c.JSON(http.StatusOK, gin.H{"prompt": optimized})
}

// Handles GET /api/quota
func (h *GenerateHandler) Quota(c *gin.Context) {
	identity := middleware.CallerIdentity(c)
	ctx := c.Request.Context()

	if identity.AccountID != nil {
		decision, err := h.ledger.Remaining(ctx, *identity.AccountID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read quota"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"identity":  "account",
			"remaining": decision.Remaining,
		})
		return
	}

	remaining, err := h.gate.RemainingQuota(ctx, identity.IP)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read quota"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"identity":  "anonymous",
		"remaining": remaining,
		"limit":     quota.WeeklyCap,
	})
}
