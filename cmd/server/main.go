package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AndrewDonelson/lyric-frame-studio/config"
	"github.com/AndrewDonelson/lyric-frame-studio/internal/database"
	"github.com/AndrewDonelson/lyric-frame-studio/internal/handlers"
	"github.com/AndrewDonelson/lyric-frame-studio/internal/services"
	"github.com/AndrewDonelson/lyric-frame-studio/internal/utils"
	"github.com/AndrewDonelson/lyric-frame-studio/internal/worker"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/fonts"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/frame"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/storage"
	"github.com/AndrewDonelson/lyric-frame-studio/pkg/video"
)

func main() {
	fmt.Println("Lyric Frame Studio")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	log.Printf("Environment: %s", cfg.Environment)
	log.Printf("Server port: %d", cfg.ServerPort)
	log.Printf("Storage: %s", cfg.StoragePath)

	if err := utils.EnsureDirectories(cfg.Directories()...); err != nil {
		log.Fatalf("Failed to create storage directories: %v", err)
	}

	// Initialize database
	if err := database.InitDB(cfg.DBPath); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Create repositories
	frameRepo := database.NewFrameJobRepository(database.DB)
	videoRepo := database.NewVideoJobRepository(database.DB)

	// Create progress broadcaster for live updates
	broadcaster := services.NewProgressBroadcaster()

	// Rendering and storage
	compositor := frame.NewCompositor(cfg.FrameOptions(), fonts.NewLibrary())
	frames := storage.NewFileSink(cfg.FramesPath)

	var mirror storage.Sink
	if s3cfg, ok := cfg.S3(); ok {
		s3Sink, err := storage.NewS3Sink(context.Background(), s3cfg)
		if err != nil {
			log.Fatalf("Failed to configure S3 frame mirror: %v", err)
		}
		mirror = s3Sink
		log.Printf("Mirroring frames to s3://%s/%s", s3cfg.Bucket, s3cfg.Prefix)
	}

	sequencer := video.NewFFmpegSequencer(cfg.FFmpegPath, cfg.TempPath)

	// Create handlers
	frameHandler := handlers.NewFrameHandler(frameRepo, compositor, frames, mirror, cfg.OutputExt)
	videoHandler := handlers.NewVideoHandler(videoRepo, broadcaster, cfg.DefaultCueDuration)
	progressHandler := handlers.NewProgressHandler(broadcaster, videoRepo)

	// Create and start queue worker
	processor := worker.NewProcessor(videoRepo, broadcaster, cfg, compositor, frames, mirror, sequencer)
	queueWorker := worker.NewWorker(videoRepo, broadcaster, processor, cfg.PollInterval)
	go queueWorker.Start()
	log.Printf("Queue worker started (polling every %s)", cfg.PollInterval)

	// Create Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// CORS middleware - MUST be first
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Add("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Add("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Add("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Add("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}

		c.Next()
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "lyric-frame-studio",
		})
	})

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Single frame endpoints
		framesGroup := v1.Group("/frames")
		{
			framesGroup.GET("", frameHandler.GetAll)
			framesGroup.POST("", frameHandler.Create)
			framesGroup.GET("/:id", frameHandler.GetByID)
			framesGroup.GET("/:id/image", frameHandler.GetImage)
		}

		// Lyric video queue endpoints
		videos := v1.Group("/videos")
		{
			videos.GET("", videoHandler.GetAll)
			videos.POST("", videoHandler.Create)
			videos.GET("/:id", videoHandler.GetByID)
		}

		// Progress streaming endpoints (SSE)
		progress := v1.Group("/progress")
		{
			progress.GET("/stream", progressHandler.StreamProgress)
			progress.GET("/stream/:id", progressHandler.StreamJobProgress)
			progress.GET("/stats", progressHandler.GetStats)
		}
	}

	// Start server in goroutine
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}
	log.Printf("Starting server on %s", srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	// Stop worker
	queueWorker.Stop()

	log.Println("Shutdown complete")
}
