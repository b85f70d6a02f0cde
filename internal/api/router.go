package api

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/auth"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/booking"
	bookingHttp "github.com/kwh6x7jhnz-lab/lab-reservations/internal/booking/http"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/calendar"
	calendarHttp "github.com/kwh6x7jhnz-lab/lab-reservations/internal/calendar/http"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/resource"
	resourceHttp "github.com/kwh6x7jhnz-lab/lab-reservations/internal/resource/http"
)

// Config carries everything the router needs to register the modules.
type Config struct {
	IsProduction   bool
	ProdOrigins    string
	BookingService booking.Service
	ResService     resource.Service
	JWTManager     *auth.JWTManager
	Grid           calendar.Grid
	Slots          bookingHttp.SlotConfig
	PreviewLimiter *RateLimiter // nil disables limiting
}

// NewRouter initializes the HTTP router engine.
// It assembles middleware (CORS, Logger, Auth) and registers routes for each module.
func NewRouter(cfg Config) *gin.Engine {
	r := gin.New()

	// Global Middleware:
	// - Logger: Logs request information to the console.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	r.Use(gin.Logger(), gin.Recovery())

	// Configure CORS (Cross-Origin Resource Sharing).
	config := cors.DefaultConfig()
	config.AllowOrigins = allowedOrigins(cfg.IsProduction, cfg.ProdOrigins)
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	config.ExposeHeaders = []string{"Content-Disposition", "Retry-After"}
	r.Use(cors.New(config))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// authMiddleware: Validates if the request contains a valid JWT.
	authMiddleware := auth.AuthRequired(cfg.JWTManager)

	var previewLimiter gin.HandlerFunc
	if cfg.PreviewLimiter != nil {
		previewLimiter = cfg.PreviewLimiter.Middleware()
	}

	// Initialize HTTP Handlers for each module (injecting Service dependencies).
	resHandler := resourceHttp.NewHandler(cfg.ResService)
	bookingHandler := bookingHttp.NewHandler(cfg.BookingService, cfg.Slots)
	calendarHandler := calendarHttp.NewHandler(cfg.BookingService, cfg.Grid)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		resourceHttp.RegisterRoutes(v1, resHandler, authMiddleware)
		bookingHttp.RegisterRoutes(v1, bookingHandler, authMiddleware, previewLimiter)
		calendarHttp.RegisterRoutes(v1, calendarHandler, authMiddleware)
	}

	return r
}

func allowedOrigins(isProduction bool, prodOrigins string) []string {
	if !isProduction {
		return []string{
			"http://localhost:3000", // Frontend dev server
			"http://localhost:8081", // Swagger
		}
	}
	var origins []string
	for _, o := range strings.Split(prodOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
