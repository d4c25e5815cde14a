package resumes

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resume-review-backend/internal/shared/server/middleware"
	"resume-review-backend/internal/shared/server/respond"
	"resume-review-backend/internal/shared/storage/object"
	"resume-review-backend/internal/shared/util"
)

const (
	maxUploadBytes  = 5 << 20
	downloadURLTTL  = 15 * time.Minute
	maxTargetLength = 200
)

var allowedContentTypes = map[string]struct{}{
	"application/pdf": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
}

// Handler wires HTTP handlers to the resumes service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches resume routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/resumes/upload", h.upload)
	rg.POST("/resumes/:id/rerun", h.rerun)
	rg.GET("/resumes", h.list)
	rg.GET("/resumes/:id", h.get)
	rg.PATCH("/resumes/:id", h.updateTarget)
	rg.DELETE("/resumes/:id", h.remove)
	rg.GET("/resumes/:id/download", h.download)
}

func (h *Handler) upload(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)

	header, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	if header.Size <= 0 || header.Size > maxUploadBytes {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file exceeds 5MB limit", nil)
		return
	}

	contentType := strings.TrimSpace(header.Header.Get("Content-Type"))
	if _, ok := allowedContentTypes[contentType]; !ok {
		respond.Error(c, http.StatusBadRequest, "validation_error", "only PDF and DOCX files are accepted", nil)
		return
	}

	fileName, err := util.SanitizeFileName(header.Filename)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid fileName", nil)
		return
	}

	roleTarget := strings.TrimSpace(c.PostForm("roleTarget"))
	targetLevel := strings.TrimSpace(c.PostForm("targetLevel"))
	if len(roleTarget) > maxTargetLength || len(targetLevel) > maxTargetLength {
		respond.Error(c, http.StatusBadRequest, "validation_error", "roleTarget or targetLevel too long", nil)
		return
	}

	file, err := header.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "could not read uploaded file", nil)
		return
	}
	defer file.Close()

	resume, err := h.Svc.Upload(c.Request.Context(), UploadInput{
		OwnerID:     ownerID,
		FileName:    fileName,
		RoleTarget:  roleTarget,
		TargetLevel: targetLevel,
		RequestID:   c.GetString("requestId"),
		Body:        file,
	})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to upload resume", nil)
		return
	}

	respond.JSON(c, http.StatusAccepted, resume)
}

func (h *Handler) rerun(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)
	resumeID := c.Param("id")

	resume, err := h.Svc.Rerun(c.Request.Context(), resumeID, ownerID, c.GetString("requestId"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to re-run review", nil)
		}
		return
	}

	respond.JSON(c, http.StatusAccepted, resume)
}

func (h *Handler) list(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)

	items, err := h.Svc.List(c.Request.Context(), ownerID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list resumes", nil)
		return
	}
	respond.OK(c, gin.H{"resumes": items})
}

func (h *Handler) get(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)
	resumeID := c.Param("id")

	detail, err := h.Svc.Get(c.Request.Context(), resumeID, ownerID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch resume", nil)
		}
		return
	}
	respond.OK(c, detail)
}

type updateTargetRequest struct {
	RoleTarget  string `json:"roleTarget"`
	TargetLevel string `json:"targetLevel"`
}

func (h *Handler) updateTarget(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)
	resumeID := c.Param("id")

	var req updateTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	req.RoleTarget = strings.TrimSpace(req.RoleTarget)
	req.TargetLevel = strings.TrimSpace(req.TargetLevel)
	if len(req.RoleTarget) > maxTargetLength || len(req.TargetLevel) > maxTargetLength {
		respond.Error(c, http.StatusBadRequest, "validation_error", "roleTarget or targetLevel too long", nil)
		return
	}

	resume, err := h.Svc.UpdateTarget(c.Request.Context(), resumeID, ownerID, req.RoleTarget, req.TargetLevel)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to update resume", nil)
		}
		return
	}
	respond.OK(c, resume)
}

func (h *Handler) remove(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)
	resumeID := c.Param("id")

	if err := h.Svc.Delete(c.Request.Context(), resumeID, ownerID); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete resume", nil)
		}
		return
	}
	respond.OK(c, gin.H{"deleted": true})
}

func (h *Handler) download(c *gin.Context) {
	ownerID := middleware.OwnerIDFromContext(c)
	resumeID := c.Param("id")

	url, err := h.Svc.DownloadURL(c.Request.Context(), resumeID, ownerID, downloadURLTTL)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound), errors.Is(err, object.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to sign download url", nil)
		}
		return
	}
	respond.OK(c, gin.H{
		"url":              url,
		"expiresInSeconds": int64(downloadURLTTL.Seconds()),
	})
}
