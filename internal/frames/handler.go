package frames

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"interview-backend/internal/shared/server/respond"
)

// maxFrameBytes bounds a single uploaded frame.
const maxFrameBytes = 8 << 20

// Handler wires HTTP handlers to the frame pipeline service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches live-session routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sessions/:id/frames", h.processFrame)
	rg.GET("/sessions/:id/summary", h.sessionSummary)
}

// processFrame accepts one raw image frame in the request body and returns
// its behavioral metrics.
func (h *Handler) processFrame(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "session id is required", nil)
		return
	}

	image, err := io.ReadAll(io.LimitReader(c.Request.Body, maxFrameBytes+1))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "failed to read frame body", nil)
		return
	}
	if len(image) > maxFrameBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "frame_too_large", "frame exceeds the size limit", nil)
		return
	}

	fm, err := h.Svc.ProcessFrame(c.Request.Context(), sessionID, image)
	if err != nil {
		switch {
		case errors.Is(err, ErrMalformedInput):
			respond.Error(c, http.StatusBadRequest, "malformed_frame", "frame is not a decodable image", nil)
		default:
			respond.Error(c, http.StatusBadGateway, "extractor_unavailable", "failed to analyze frame", nil)
		}
		return
	}

	respond.OK(c, fm)
}

// sessionSummary returns the running aggregate of a live session.
func (h *Handler) sessionSummary(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "session id is required", nil)
		return
	}

	agg, err := h.Svc.Aggregate(sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "session not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to summarize session", nil)
		return
	}

	respond.OK(c, agg)
}
