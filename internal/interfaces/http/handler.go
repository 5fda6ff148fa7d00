package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"project_greeter/internal/usecases"
)

type Handler struct {
	dashboardUsecase *usecases.DashboardUsecase
}

func NewHandler(dashboard *usecases.DashboardUsecase) *Handler {
	return &Handler{
		dashboardUsecase: dashboard,
	}
}

// NewRouter builds the read-only status server
func NewRouter(dashboard *usecases.DashboardUsecase, middleware *Middleware) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	SetupRoutes(r, dashboard, middleware)
	return r
}

func SetupRoutes(r *gin.Engine, dashboard *usecases.DashboardUsecase, middleware *Middleware) {
	h := NewHandler(dashboard)

	r.Use(SecurityHeaders())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	api.Use(middleware.RateLimitPerClient(5, 10))
	{
		api.GET("/status", h.GetStatus)
		api.GET("/accounts", h.GetAccounts)
		api.GET("/accounts/:name", h.GetAccount)
		api.GET("/accounts/:name/qr", h.GetLoginQR)
	}
}
