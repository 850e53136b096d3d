package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"faceattend/internal/attendance"
	"faceattend/internal/audit"
	"faceattend/internal/auth"
	"faceattend/internal/cloudinary"
	"faceattend/internal/config"
	"faceattend/internal/face"
	"faceattend/internal/gallery"
	"faceattend/internal/handler"
	"faceattend/internal/httpmiddleware"
	"faceattend/internal/queue"
	"faceattend/internal/recognition"
	"faceattend/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	docs, err := store.NewDocuments(cfg.DataDir)
	if err != nil {
		return err
	}

	db, dbErr := store.NewDB(cfg.DatabaseURL)
	var audits *audit.Repository
	if dbErr != nil {
		log.Printf("warning: db not reachable, audit trail disabled: %v", dbErr)
	} else {
		audits = audit.NewRepository(db.Client)
	}
	defer func() {
		if db != nil {
			_ = db.Close()
		}
	}()

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisTimeout)

	var q queue.Queue
	if cfg.QueueBackend == "redis" {
		q = queue.NewRedisQueue(redisClient.Client, "faceattend:recognitions")
	} else {
		q = queue.NewInMemory(64)
	}

	detector := face.NewClient(cfg.FaceServiceURL, cfg.FaceSkip)
	if cfg.FaceSkip {
		log.Println("FACE_SKIP enabled, detector returns mock regions")
	}

	liveness := face.NewEstimator(cfg.StddevDivisor, cfg.LivenessThreshold)
	matcher := face.NewMatcher(cfg.MatchThreshold)
	g := gallery.New(docs)
	ledger := attendance.NewLedger(docs)
	svc := recognition.NewService(detector, liveness, matcher, g, ledger)

	// Cloudinary client (nil when not configured)
	var cdnClient *cloudinary.Client
	if cfg.CloudinaryURL != "" {
		cdnClient, err = cloudinary.New(cfg.CloudinaryURL)
		if err != nil {
			log.Printf("warning: cloudinary disabled: %v", err)
			cdnClient = nil
		} else {
			log.Println("Cloudinary configured")
		}
	}

	h := handler.New(cfg, svc, g, ledger, q, audits, cdnClient)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())

	var limiter httpmiddleware.Limiter
	if cfg.RateLimitBackend == "redis" {
		limiter = httpmiddleware.NewRedisWindow(redisClient.Client, cfg.RateLimitPerMin)
	} else {
		limiter = httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	}
	r.Use(httpmiddleware.GinMiddleware(limiter))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"redis":  redisClient.Healthy(c.Request.Context()),
			"db":     audits != nil,
			"face":   detector.Health(c.Request.Context()) == nil,
		})
	})

	api := r.Group("/api")
	{
		api.POST("/token", h.Token)
		api.POST("/recognize", h.Recognize)
		api.GET("/students", h.ListStudents)
		api.GET("/attendance", h.GetAttendance)
		api.GET("/attendance/dates", h.AttendanceDates)
		api.GET("/audit/events", auth.OperatorAuth(cfg.JWTSigningKey, cfg.JWTIssuer), h.AuditEvents)

		if cfg.AuthRequired {
			api.POST("/register", auth.OperatorAuth(cfg.JWTSigningKey, cfg.JWTIssuer), h.Register)
		} else {
			api.POST("/register", h.Register)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
