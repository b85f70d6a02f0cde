package app

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/api"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/auth"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/booking"
	bookingHttp "github.com/kwh6x7jhnz-lab/lab-reservations/internal/booking/http"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/calendar"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/export"
	"github.com/kwh6x7jhnz-lab/lab-reservations/internal/resource"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	DBPool       *pgxpool.Pool
	JWTSecret    string
	JWTTTL       time.Duration
	Logger       *slog.Logger

	StorageTimeout  time.Duration
	CatalogCacheTTL time.Duration
	BusinessHours   booking.BusinessHours
	Grid            calendar.Grid

	KafkaBrokers     string // comma separated; empty logs exports instead
	KafkaExportTopic string

	RedisAddr        string // empty disables preview rate limiting
	PreviewRateLimit int
	PreviewWindow    time.Duration
}

type exportSink interface {
	booking.Exporter
	Close() error
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router         *gin.Engine
	JWTManager     *auth.JWTManager
	BookingService booking.Service

	sink  exportSink
	redis *redis.Client
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Init Components
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	var sink exportSink = export.NewLogSink(logger)
	if brokers := export.SplitBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		sink = export.NewKafkaSink(brokers, cfg.KafkaExportTopic, logger)
	}

	// Resource Module
	resRepo := resource.NewPgxRepository(cfg.DBPool)
	resService := resource.NewService(resRepo, cfg.CatalogCacheTTL)

	// Booking Module
	bookingRepo := booking.NewPgxRepository(cfg.DBPool)
	bookingService := booking.NewService(bookingRepo, resService, sink, booking.Config{
		Hours:          cfg.BusinessHours,
		StorageTimeout: cfg.StorageTimeout,
	}, logger)

	var rdb *redis.Client
	var previewLimiter *api.RateLimiter
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		previewLimiter = api.NewRateLimiter(rdb, cfg.PreviewRateLimit, cfg.PreviewWindow, "rl:conflicts", logger)
	}

	// API Router Config
	routerParams := api.Config{
		IsProduction:   cfg.IsProduction,
		ProdOrigins:    cfg.ProdOrigins,
		BookingService: bookingService,
		ResService:     resService,
		JWTManager:     jwtManager,
		Grid:           cfg.Grid,
		Slots: bookingHttp.SlotConfig{
			From: booking.NewClock(cfg.Grid.StartHour, 0),
			To:   booking.NewClock(cfg.Grid.EndHour, 0),
			Step: cfg.Grid.Snap,
		},
		PreviewLimiter: previewLimiter,
	}

	// Router
	router := api.NewRouter(routerParams)

	return &Container{
		Router:         router,
		JWTManager:     jwtManager,
		BookingService: bookingService,
		sink:           sink,
		redis:          rdb,
	}
}

// Close releases the export sink and the Redis client. The pool belongs to the caller.
func (c *Container) Close() error {
	var errs []error
	if err := c.sink.Close(); err != nil {
		errs = append(errs, err)
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
