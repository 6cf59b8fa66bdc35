package http

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"platewatch-service/internal/config"
	"platewatch-service/internal/fines"
	"platewatch-service/internal/service"
)

type Handler struct {
	scanService *service.ScanService
	fineService *fines.Service
	config      *config.Config
	log         zerolog.Logger
}

func NewHandler(
	scanService *service.ScanService,
	fineService *fines.Service,
	cfg *config.Config,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		scanService: scanService,
		fineService: fineService,
		config:      cfg,
		log:         log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	// Public endpoints
	public := r.Group("/api/v1")
	{
		public.POST("/scan-frame", h.scanFrame)
		public.POST("/scan-frame-base64", h.scanFrameBase64)
		public.GET("/fines", h.listFines)
		public.GET("/fines/summary", h.finesSummary)
		public.GET("/fines/plate/:plate", h.finesForPlate)
		public.GET("/cache/stats", h.cacheStats)
	}

	// Protected endpoints
	protected := r.Group("/api/v1")
	protected.Use(authMiddleware)
	{
		protected.POST("/fines/:id/pay", h.markFinePaid)
		protected.POST("/cache/clear", h.clearCache)
		protected.POST("/cache/cleanup", h.cleanupCache)
	}
}

func (h *Handler) scanFrame(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("file field is required"))
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("failed to read file"))
		return
	}

	response := h.scanService.ProcessFrame(c.Request.Context(), image)
	c.JSON(http.StatusOK, response)
}

type base64FrameRequest struct {
	Image string `json:"image" binding:"required"`
}

func (h *Handler) scanFrameBase64(c *gin.Context) {
	var req base64FrameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	// Browsers send data URLs; strip the prefix.
	payload := req.Image
	if idx := strings.IndexByte(payload, ','); idx >= 0 {
		payload = payload[idx+1:]
	}

	image, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid base64 image"))
		return
	}

	response := h.scanService.ProcessFrame(c.Request.Context(), image)
	c.JSON(http.StatusOK, response)
}

func (h *Handler) listFines(c *gin.Context) {
	limit := 100
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	unpaidOnly := c.Query("unpaid_only") == "true"

	result, err := h.fineService.ListFines(c.Request.Context(), limit, unpaidOnly)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list fines")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}

	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) finesForPlate(c *gin.Context) {
	plateNumber := strings.TrimSpace(c.Param("plate"))
	if plateNumber == "" {
		c.JSON(http.StatusBadRequest, errorResponse("plate parameter is required"))
		return
	}

	result, err := h.fineService.FinesForPlate(c.Request.Context(), strings.ToUpper(plateNumber))
	if err != nil {
		h.log.Error().Err(err).Msg("failed to find fines for plate")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}

	c.JSON(http.StatusOK, successResponse(result))
}

func (h *Handler) finesSummary(c *gin.Context) {
	summary, err := h.fineService.Summary(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to build fines summary")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}

	c.JSON(http.StatusOK, successResponse(summary))
}

func (h *Handler) markFinePaid(c *gin.Context) {
	fineID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid fine id"))
		return
	}

	if err := h.fineService.MarkFinePaid(c.Request.Context(), fineID); err != nil {
		if errors.Is(err, fines.ErrNotFound) {
			c.JSON(http.StatusNotFound, errorResponse("fine not found"))
			return
		}
		h.log.Error().Err(err).Int64("fine_id", fineID).Msg("failed to mark fine paid")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "fine marked as paid",
		"fine_id": fineID,
	})
}

func (h *Handler) cacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.scanService.CacheStats())
}

func (h *Handler) clearCache(c *gin.Context) {
	h.scanService.ClearCache()
	c.JSON(http.StatusOK, gin.H{"message": "cache cleared"})
}

func (h *Handler) cleanupCache(c *gin.Context) {
	removed := h.scanService.SweepCache()
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}
