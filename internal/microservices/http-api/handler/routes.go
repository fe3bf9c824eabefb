package handler

import (
	"darwinawards/internal/microservices/http-api/middleware"
	"darwinawards/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

// RegisterPeerRoutes mounts the API a game integration talks to.
func RegisterPeerRoutes(r gin.IRouter, deaths *DeathHandler, settings *SettingsHandler, authService service.AuthService) {
	api := r.Group("/api")
	api.POST("/deaths", deaths.Announce)
	api.GET("/deaths", deaths.List)
	api.GET("/settings", settings.Get)
	api.PUT("/settings", middleware.OptionalAuth(authService), settings.Update)
}

// RegisterAdminRoutes mounts the session server's admin API.
func RegisterAdminRoutes(r gin.IRouter, admin *AdminHandler, authService service.AuthService) {
	r.GET("/health", admin.Health)
	r.POST("/admin/login", admin.Login)

	protected := r.Group("/admin")
	protected.Use(middleware.AuthMiddleware(authService), middleware.RequireAdmin())
	protected.GET("/settings", admin.GetSettings)
	protected.PUT("/settings", admin.UpdateSettings)
	protected.POST("/corpus/reload", admin.ReloadCorpus)
	protected.GET("/corpus/revisions", admin.Revisions)
}
