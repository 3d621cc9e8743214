// Package server
//
// @title Davomat API
// @version 1.0
// @description Attendance tracking service API
// @host localhost:8080
// @BasePath /
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/davomat-dev/davomat/internal/attendance"
	"github.com/davomat-dev/davomat/internal/auth"
	"github.com/davomat-dev/davomat/internal/config"
	"github.com/davomat-dev/davomat/internal/models"
	"github.com/davomat-dev/davomat/internal/reports"
	"github.com/davomat-dev/davomat/internal/statistics"
)

// Server represents the HTTP server
type Server struct {
	router            *gin.Engine
	db                *gorm.DB
	config            *config.Config
	logger            zerolog.Logger
	validator         *validator.Validate
	attendanceService *attendance.Service
	reportsService    *reports.Service
	statsService      *statistics.Service
	version           string
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	db, err := initDatabase(cfg, zlog)
	if err != nil {
		return nil, err
	}

	if err := models.AutoMigrate(db); err != nil {
		return nil, err
	}

	// Settings singleton is created on first boot, with a fresh JWT secret
	settings, err := ensureSettings(db)
	if err != nil {
		return nil, err
	}
	auth.InitializeJWT(settings.JWTSecret)

	if cfg.DevMode {
		if err := ensureDevUser(db); err != nil {
			return nil, err
		}
		zlog.Warn().Msg("DEV_MODE enabled - X-Dev-Mode auth bypass is active")
	}

	validate := validator.New()

	// HH:MM clock strings used by the settings endpoints
	validate.RegisterValidation("workclock", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(models.ClockFormat, fl.Field().String())
		return err == nil
	})

	server := &Server{
		db:                db,
		config:            cfg,
		logger:            zlog,
		validator:         validate,
		attendanceService: attendance.NewService(db, zlog),
		reportsService:    reports.NewService(db, zlog),
		statsService:      statistics.NewService(db, zlog),
		version:           version,
	}

	server.setupRouter()

	return server, nil
}

// initDatabase initializes the database connection with production settings
func initDatabase(cfg *config.Config, zlog zerolog.Logger) (*gorm.DB, error) {
	const (
		maxOpenConns    = 8
		maxIdleConns    = 4
		connMaxLifetime = 300 * time.Second
		busyTimeout     = 5000
	)

	db, err := gorm.Open(sqlite.Open(cfg.Database.URL), &gorm.Config{
		Logger: logger.New(
			stdlog.New(os.Stdout, "\r\n", stdlog.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// WAL mode must be set first for concurrency
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		"PRAGMA foreign_keys=1",
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	return db, nil
}

// ensureSettings loads the settings singleton, creating it with defaults and
// a generated JWT secret on first boot
func ensureSettings(db *gorm.DB) (*models.Settings, error) {
	settings, err := models.LoadSettings(db)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
	}

	settings = &models.Settings{
		JWTSecret:      hex.EncodeToString(secretBytes),
		WorkStart:      "09:00",
		WorkEnd:        "18:00",
		LunchStart:     "13:00",
		LunchEnd:       "14:00",
		GeofenceRadius: 100,
	}

	if err := db.Create(settings).Error; err != nil {
		return nil, fmt.Errorf("failed to create settings: %w", err)
	}

	return settings, nil
}

// ensureDevUser creates the active admin account requests carrying
// X-Dev-Mode resolve to
func ensureDevUser(db *gorm.DB) error {
	var user models.User
	err := db.Where("username = ?", devUsername).First(&user).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to query dev user: %w", err)
	}

	user = models.User{
		Username:  devUsername,
		FirstName: "Dev",
		Status:    models.StatusActive,
		IsAdmin:   true,
	}
	if err := db.Create(&user).Error; err != nil {
		return fmt.Errorf("failed to create dev user: %w", err)
	}
	return nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Telegram-Init-Data", "X-Dev-Mode"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Unauthenticated endpoints
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	loginLimiter := newIPRateLimiter(defaultAuthRateLimit())
	s.router.POST("/auth/login", loginLimiter.middleware(), s.login)
	s.router.POST("/auth/register", loginLimiter.middleware(), s.register)
	s.router.GET("/auth/check", s.authCheck)

	// Authenticated routes
	api := s.router.Group("/")
	api.Use(AuthMiddleware(s.db, s.config, s.logger))
	{
		api.GET("/users/me", s.getCurrentUser)
		api.GET("/users/is-admin", s.isAdmin)

		userRoutes := api.Group("/users")
		userRoutes.Use(AdminOnlyMiddleware(s.logger))
		{
			userRoutes.GET("", s.listUsers)
			userRoutes.GET("/pending", s.listPendingUsers)
			userRoutes.PUT("/:telegram_id/status", s.updateUserStatus)
		}

		api.POST("/sessions/start", s.startSession)
		api.POST("/sessions/end", s.endSession)
		api.GET("/sessions/today", s.todaySession)
		api.POST("/sessions/history", s.sessionHistory)
		api.GET("/sessions/should-track", s.shouldTrack)

		api.POST("/locations/record", s.recordLocation)
		api.GET("/locations/session/:session_id", s.sessionLocations)

		api.POST("/reports/submit", s.submitReport)
		api.GET("/reports/today", s.todayReport)
		api.GET("/reports/date/:date", s.reportByDate)
		api.GET("/reports/history", s.reportHistory)
		api.GET("/reports/status", s.reportStatus)
		api.GET("/reports/all/:date", AdminOnlyMiddleware(s.logger), s.allReportsByDate)

		api.POST("/statistics/me", s.myStatistics)
		api.POST("/statistics/user/:user_id", AdminOnlyMiddleware(s.logger), s.userStatistics)
		api.POST("/statistics/all", AdminOnlyMiddleware(s.logger), s.allStatistics)
		api.POST("/statistics/chart/me", s.myChart)
		api.POST("/statistics/chart/user/:user_id", AdminOnlyMiddleware(s.logger), s.userChart)

		api.GET("/settings", s.getSettings)
		api.PUT("/settings", AdminOnlyMiddleware(s.logger), s.updateSettings)
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		observeRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), duration)

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// @Router /health [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "davomat-api",
	})
}

// GetDB returns the database connection for use by workers
func (s *Server) GetDB() *gorm.DB {
	return s.db
}

// Router returns the configured gin engine, used by handler tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	port := ":8080"

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              port,
		Handler:           s.router,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 30 * time.Second,
		IdleTimeout:       300 * time.Second,
	}

	go func() {
		s.logger.Info().Str("port", port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	<-sigChan
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	// Close database connection to flush WAL writes
	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Error closing database")
		}
	}

	s.logger.Info().Msg("Server shutdown complete")

	return nil
}
