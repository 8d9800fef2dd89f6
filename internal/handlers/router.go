package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"tikiti/internal/middleware"
)

// RouterConfig holds the handlers the router wires together
type RouterConfig struct {
	Checkout *CheckoutHandler
	Orders   *OrderHandler
	Payments *PaymentHandler
	Events   *EventHandler
}

// NewRouter builds the gin engine with CORS, the API group, the
// provider-facing callback routes and the health check.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogging())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Guest-Session"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	cfg.Checkout.RegisterRoutes(api)
	cfg.Orders.RegisterRoutes(api)
	cfg.Payments.RegisterRoutes(api)
	cfg.Events.RegisterRoutes(api)

	cfg.Payments.RegisterCallbackRoutes(router)

	return router
}
