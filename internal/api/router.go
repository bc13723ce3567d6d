package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mxteam/mediabot/internal/api/middleware"
	"github.com/mxteam/mediabot/internal/config"
	"github.com/mxteam/mediabot/internal/services"
)

// RouterDeps carries everything the HTTP surface needs.
type RouterDeps struct {
	Config config.Config
	Auth   services.OperatorAuthService
	Admin  *AdminHandler
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", healthCheck)

	authMW := middleware.NewAuthMiddleware(deps.Auth)
	deps.Admin.RegisterRoutes(router, authMW.RequireOperator())

	return router
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
