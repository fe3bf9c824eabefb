package handler

import (
	"errors"
	"net/http"

	"darwinawards/internal/microservices/http-api/dto"
	"darwinawards/internal/microservices/http-api/middleware"
	"darwinawards/internal/settings"

	"github.com/gin-gonic/gin"
)

// SettingsHandler exposes a peer's effective display settings.
type SettingsHandler struct {
	manager *settings.Manager
}

func NewSettingsHandler(manager *settings.Manager) *SettingsHandler {
	return &SettingsHandler{manager: manager}
}

func (h *SettingsHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.manager.Effective())
}

// Update handles PUT /api/settings. While the session locks the
// configuration only an admin token may change it.
func (h *SettingsHandler) Update(c *gin.Context) {
	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	effective, err := h.manager.SetLocal(req.Update(), middleware.IsAdmin(c))
	switch {
	case errors.Is(err, settings.ErrLocked):
		c.JSON(http.StatusLocked, gin.H{"error": err.Error()})
		return
	case errors.Is(err, settings.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, effective)
}
