package analysis

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"interview-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the analysis service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyses/:sessionId/start", h.start)
	rg.GET("/analyses/:sessionId/status", h.status)
	rg.GET("/analyses/:sessionId/result", h.result)
	rg.GET("/analyses/:sessionId/report.xlsx", h.report)
	rg.DELETE("/analyses/:sessionId", h.clear)
}

type startRequest struct {
	ExternalRef string `json:"externalRef"`
}

func (h *Handler) start(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "session id is required", nil)
		return
	}

	var req startRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
	}

	job, _, err := h.Svc.Start(c.Request.Context(), sessionID, req.ExternalRef)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start analysis", nil)
		return
	}

	respond.JSON(c, http.StatusAccepted, gin.H{
		"jobId":    job.ID,
		"status":   job.Status,
		"progress": job.Progress,
	})
}

func (h *Handler) status(c *gin.Context) {
	job, ok := h.lookup(c)
	if !ok {
		return
	}

	resp := gin.H{
		"jobId":    job.ID,
		"status":   job.Status,
		"progress": job.Progress,
	}
	if job.StageMessage != "" {
		resp["message"] = job.StageMessage
	}
	if job.Status == StatusFailed && job.Error != nil {
		resp["error"] = job.Error
	}
	respond.OK(c, resp)
}

func (h *Handler) result(c *gin.Context) {
	job, ok := h.lookup(c)
	if !ok {
		return
	}

	switch {
	case job.Status == StatusCompleted && job.Result != nil:
		respond.OK(c, job.Result)
	case job.Status == StatusFailed:
		respond.Error(c, http.StatusConflict, "analysis_failed", "analysis failed", job.Error)
	default:
		respond.Error(c, http.StatusConflict, "not_ready", "analysis is still running", gin.H{
			"progress": job.Progress,
		})
	}
}

func (h *Handler) report(c *gin.Context) {
	job, ok := h.lookup(c)
	if !ok {
		return
	}
	if job.Status != StatusCompleted || job.Result == nil {
		respond.Error(c, http.StatusConflict, "not_ready", "analysis is not completed", nil)
		return
	}

	f, err := BuildReport(*job.Result)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to build report", nil)
		return
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to build report", nil)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", job.SessionID+"-report.xlsx"))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *Handler) clear(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "session id is required", nil)
		return
	}
	if err := h.Svc.Clear(c.Request.Context(), sessionID); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to clear session", nil)
		return
	}
	respond.OK(c, gin.H{"cleared": true})
}

func (h *Handler) lookup(c *gin.Context) (Job, bool) {
	sessionID := c.Param("sessionId")
	if sessionID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "session id is required", nil)
		return Job{}, false
	}
	job, err := h.Svc.Get(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "no analysis for session", nil)
		} else {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch analysis", nil)
		}
		return Job{}, false
	}
	return job, true
}
