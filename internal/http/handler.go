package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"anpr-pipeline/internal/domain/plates"
	"anpr-pipeline/internal/service"
)

type Handler struct {
	svc *service.Service
	log zerolog.Logger
}

func NewHandler(svc *service.Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	api := r.Group("/api/v1")
	api.Use(authMiddleware)
	{
		api.POST("/uploads", h.createUpload)
		api.GET("/jobs/:job_id", h.getJob)
		api.GET("/events", h.listEvents)
		api.POST("/events/:id/review", h.reviewEvent)
		api.POST("/bolos", h.createBolo)
		api.GET("/bolos", h.listBolos)
		api.DELETE("/bolos/:id", h.deactivateBolo)
	}
}

func (h *Handler) createUpload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("file is required"))
		return
	}
	cameraID := strings.TrimSpace(c.PostForm("camera_id"))

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("cannot read file"))
		return
	}
	defer src.Close()

	upload, err := h.svc.CreateUpload(c.Request.Context(), src, file.Size, file.Filename, cameraID, subjectFrom(c))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"job_id":       upload.JobID,
		"upload_id":    upload.ID,
		"status":       upload.Status,
		"storage_path": upload.StoragePath,
	})
}

func (h *Handler) getJob(c *gin.Context) {
	upload, err := h.svc.GetJob(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":          upload.JobID,
		"upload_id":       upload.ID,
		"status":          upload.Status,
		"error_message":   upload.ErrorMessage,
		"events_detected": upload.EventsDetected,
		"created_at":      upload.CreatedAt,
		"started_at":      upload.StartedAt,
		"completed_at":    upload.CompletedAt,
	})
}

func (h *Handler) listEvents(c *gin.Context) {
	var plateQuery *string
	if plate := strings.TrimSpace(c.Query("plate")); plate != "" {
		plateQuery = &plate
	}

	var from, to *string
	if f := strings.TrimSpace(c.Query("from")); f != "" {
		from = &f
	}
	if t := strings.TrimSpace(c.Query("to")); t != "" {
		to = &t
	}

	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	offset := 0
	if o := c.Query("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	events, err := h.svc.FindEvents(c.Request.Context(), plateQuery, from, to, limit, offset)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(events))
}

type reviewRequest struct {
	State plates.ReviewState `json:"state" binding:"required"`
	Notes *string            `json:"notes"`
}

func (h *Handler) reviewEvent(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	if err := h.svc.ReviewEvent(c.Request.Context(), c.Param("id"), req.State, subjectFrom(c), req.Notes); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type createBoloRequest struct {
	PlatePattern        string     `json:"plate_pattern" binding:"required"`
	Description         string     `json:"description"`
	Priority            int        `json:"priority"`
	NotificationWebhook *string    `json:"notification_webhook"`
	NotificationEmail   *string    `json:"notification_email"`
	ExpiresAt           *time.Time `json:"expires_at"`
}

func (h *Handler) createBolo(c *gin.Context) {
	var req createBoloRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	bolo, err := h.svc.CreateBolo(
		c.Request.Context(),
		req.PlatePattern,
		req.Description,
		subjectFrom(c),
		req.Priority,
		req.NotificationWebhook,
		req.NotificationEmail,
		req.ExpiresAt,
	)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(bolo))
}

func (h *Handler) listBolos(c *gin.Context) {
	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	offset := 0
	if o := c.Query("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	bolos, err := h.svc.ListBolos(c.Request.Context(), limit, offset)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(bolos))
}

func (h *Handler) deactivateBolo(c *gin.Context) {
	if err := h.svc.DeactivateBolo(c.Request.Context(), c.Param("id")); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
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
