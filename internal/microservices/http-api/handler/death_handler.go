package handler

import (
	"context"
	"net/http"
	"time"

	"darwinawards/internal/classifier"
	"darwinawards/internal/display"
	"darwinawards/internal/microservices/http-api/dto"
	"darwinawards/internal/shared"

	"github.com/gin-gonic/gin"
)

// DeathAnnouncer runs the death pipeline of the local player.
type DeathAnnouncer interface {
	HandleDeath(sig classifier.DeathSignal) (shared.DeathMessage, bool)
}

// Executor runs fn on the peer's main loop and waits for it.
type Executor interface {
	Call(ctx context.Context, fn func()) error
}

type DeathHandler struct {
	announcer DeathAnnouncer
	loop      Executor
	queue     *display.Queue
}

func NewDeathHandler(announcer DeathAnnouncer, loop Executor, queue *display.Queue) *DeathHandler {
	return &DeathHandler{announcer: announcer, loop: loop, queue: queue}
}

// Announce handles POST /api/deaths.
func (h *DeathHandler) Announce(c *gin.Context) {
	var req dto.DeathSignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var (
		msg shared.DeathMessage
		ok  bool
	)
	err := h.loop.Call(c.Request.Context(), func() {
		msg, ok = h.announcer.HandleDeath(req.Signal())
	})
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}

	c.JSON(http.StatusAccepted, dto.DeathResponse{Category: msg.Category, Text: msg.Text})
}

// List handles GET /api/deaths.
func (h *DeathHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"deaths": dto.NewDisplayEntries(h.queue.Tick(time.Now())),
	})
}
