package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"darwinawards/internal/microservices/http-api/dto"
	"darwinawards/internal/microservices/http-api/service"
	"darwinawards/internal/settings"

	"github.com/gin-gonic/gin"
)

// SessionStatus reports the relay's live state.
type SessionStatus interface {
	SubscriberCount() int
}

// AdminHandler serves the session server's admin API.
type AdminHandler struct {
	auth     service.AuthService
	settings *service.SettingsService
	corpus   service.CorpusService
	status   SessionStatus
}

func NewAdminHandler(auth service.AuthService, settings *service.SettingsService, corpus service.CorpusService, status SessionStatus) *AdminHandler {
	return &AdminHandler{auth: auth, settings: settings, corpus: corpus, status: status}
}

func (h *AdminHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, expiresAt, err := h.auth.Login(req.Username, req.Password)
	if errors.Is(err, service.ErrAuthDisabled) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, dto.AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
	})
}

func (h *AdminHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.Current())
}

func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req dto.AdminSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.settings.Update(c.Request.Context(), req.Locked, req.Update())
	if errors.Is(err, settings.ErrInvalid) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *AdminHandler) ReloadCorpus(c *gin.Context) {
	status, err := h.corpus.Reload(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *AdminHandler) Revisions(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(service.DefaultRevisionLimit)))
	if err != nil || limit < 1 || limit > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
		return
	}

	revisions, err := h.corpus.Revisions(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]dto.RevisionResponse, 0, len(revisions))
	for _, r := range revisions {
		out = append(out, dto.RevisionResponse{
			Version:    r.Version,
			Checksum:   r.Checksum,
			Categories: r.Categories,
			Templates:  r.Templates,
			SizeBytes:  r.SizeBytes,
			Malformed:  r.Malformed,
			CreatedAt:  r.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"revisions": out})
}

func (h *AdminHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{
		Status:        "ok",
		Subscribers:   h.status.SubscriberCount(),
		CorpusVersion: h.corpus.Status().Version,
	})
}
