package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"go.uber.org/zap"

	"rental/internal/handler"
	"rental/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	CarHandler       *handler.CarHandler
	BookingHandler   *handler.BookingHandler
	DriverHandler    *handler.DriverHandler
	DocumentHandler  *handler.DocumentHandler
	PaymentHandler   *handler.PaymentHandler
	IdempotencyStore middleware.IdempotencyStore // nil disables idempotent replay
	JWTSecret        string
	NewRelicApp      *newrelic.Application
	Logger           *zap.Logger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
		router.Use(middleware.TransactionAttributes())
	}

	router.Use(middleware.IdempotencyMiddleware(deps.IdempotencyStore))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Staff-only routes share the admin guard.
	adminOnly := middleware.AdminAuth(deps.JWTSecret, deps.Logger)

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Car routes.
		cars := v1.Group("/cars")
		{
			cars.POST("", adminOnly, deps.CarHandler.Create)
			cars.GET("", deps.CarHandler.List)
			cars.GET("/:id", deps.CarHandler.Get)
			cars.GET("/:id/availability", deps.CarHandler.Availability)
			cars.POST("/:id/quote", deps.CarHandler.Quote)
		}

		// Booking routes.
		bookings := v1.Group("/bookings")
		{
			bookings.POST("", deps.BookingHandler.Create)
			bookings.GET("/:id", deps.BookingHandler.Get)
			bookings.POST("/:id/driver", deps.BookingHandler.AttachDriver)
			bookings.POST("/:id/checkout", deps.BookingHandler.Checkout)
			bookings.POST("/:id/payment", deps.BookingHandler.RecordPayment)
			bookings.PATCH("/:id/cancel", deps.BookingHandler.Cancel)
			bookings.POST("/:id/pickup", adminOnly, deps.BookingHandler.Pickup)
			bookings.POST("/:id/return", adminOnly, deps.BookingHandler.Return)
		}

		// Driver routes.
		drivers := v1.Group("/drivers")
		{
			drivers.POST("", deps.DriverHandler.Register)
			drivers.GET("/:id", deps.DriverHandler.Get)
		}

		v1.POST("/documents", deps.DocumentHandler.Upload)

		// Payment routes.
		payments := v1.Group("/payments")
		{
			payments.POST("/webhook", deps.PaymentHandler.Webhook)
			payments.GET("/:id", deps.PaymentHandler.GetPayment)
		}

		// Admin routes.
		admin := v1.Group("/admin")
		admin.Use(adminOnly)
		{
			admin.PATCH("/drivers/:id/documents/:type/verify", deps.DriverHandler.VerifyDocument)
			admin.PATCH("/drivers/:id/documents/:type/reject", deps.DriverHandler.RejectDocument)
		}
	}

	return router
}
