package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/drshumard/Larynx/internal/audio"
	"github.com/drshumard/Larynx/internal/cleanup"
	"github.com/drshumard/Larynx/internal/elevenlabs"
	"github.com/drshumard/Larynx/internal/handlers"
	"github.com/drshumard/Larynx/internal/jobs"
	"github.com/drshumard/Larynx/internal/notify"
	"github.com/drshumard/Larynx/internal/pipeline"
	"github.com/drshumard/Larynx/internal/queue"
	"github.com/drshumard/Larynx/internal/settings"
	"github.com/drshumard/Larynx/internal/storage"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Storage struct {
		AudioDir string `yaml:"audio_dir"`
		Database string `yaml:"database"`
	} `yaml:"storage"`

	ElevenLabs struct {
		APIKey                string `yaml:"api_key"`
		BaseURL               string `yaml:"base_url"`
		RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
		MaxChunkChars         int    `yaml:"max_chunk_chars"`
	} `yaml:"elevenlabs"`

	Workers struct {
		Count int `yaml:"count"`
	} `yaml:"workers"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
		MaxAgeHours     int `yaml:"max_age_hours"`
	} `yaml:"cleanup"`

	Webhook struct {
		URL           string `yaml:"url"`
		PublicBaseURL string `yaml:"public_base_url"`
	} `yaml:"webhook"`
}

func main() {
	// Load configuration
	config, err := loadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Custom logger setup
	logBuffer := &LogBuffer{
		lines: make([]string, 0, 1000),
	}
	multiWriter := io.MultiWriter(os.Stdout, logBuffer)
	log.SetOutput(multiWriter)

	// Initialize components
	log.Println("Initializing components...")

	// Artifact storage
	artifacts, err := storage.NewArtifactStore(config.Storage.AudioDir)
	if err != nil {
		log.Fatalf("Failed to create artifact store: %v", err)
	}

	// Database
	db, err := sql.Open("sqlite", config.Storage.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	jobStore, err := jobs.NewStore(db)
	if err != nil {
		log.Fatalf("Failed to initialize job store: %v", err)
	}
	settingsStore, err := settings.NewStore(db)
	if err != nil {
		log.Fatalf("Failed to initialize settings store: %v", err)
	}

	// ElevenLabs client
	apiKey := config.ElevenLabs.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ELEVENLABS_API_KEY")
	}
	if apiKey == "" {
		log.Println("WARNING: no ElevenLabs API key configured - synthesis calls will fail")
	}
	ttsClient := elevenlabs.NewClient(
		apiKey,
		config.ElevenLabs.BaseURL,
		time.Duration(config.ElevenLabs.RequestTimeoutSeconds)*time.Second,
	)

	// Pipeline
	prober := audio.FFProbe{}
	merger := audio.NewMerger(prober)
	notifier := notify.NewWebhook(config.Webhook.URL, config.Webhook.PublicBaseURL)

	sequential := pipeline.NewSequential(jobStore, ttsClient, merger, artifacts, notifier)
	batch := pipeline.NewBatch(jobStore, ttsClient, prober, artifacts, notifier)

	// Worker pool
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	workerPool := queue.NewWorkerPool(config.Workers.Count, jobStore, sequential, batch)
	workerPool.Start(ctx)

	// Cleanup scheduler
	cleanupScheduler := cleanup.NewScheduler(
		config.Storage.AudioDir,
		config.Cleanup.IntervalMinutes,
		config.Cleanup.MaxAgeHours,
	)
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName: "Larynx TTS",
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	// Initialize handlers
	jobsHandler := handlers.NewJobsHandler(jobStore, artifacts, workerPool, settingsStore, config.ElevenLabs.MaxChunkChars)
	settingsHandler := handlers.NewSettingsHandler(settingsStore)
	progressHandler := handlers.NewProgressHandler(jobStore, time.Second)

	// Routes
	api := app.Group("/api")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "tts-chunker",
		})
	})

	api.Post("/jobs", jobsHandler.Create)
	api.Get("/jobs", jobsHandler.List)
	api.Get("/jobs/:id", jobsHandler.Get)
	api.Get("/jobs/:id/details", jobsHandler.Details)
	api.Get("/jobs/:id/download", jobsHandler.Download)
	api.Get("/jobs/:id/chunks/:index/audio", jobsHandler.ChunkAudio)
	api.Delete("/jobs/:id", jobsHandler.Delete)

	api.Get("/settings", settingsHandler.Get)
	api.Put("/settings", settingsHandler.Replace)
	api.Patch("/settings", settingsHandler.Patch)
	api.Post("/settings/reset", settingsHandler.Reset)

	// WebSocket route
	app.Get("/ws/jobs/:id", websocket.New(progressHandler.Handle))

	// Get server logs
	api.Get("/logs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"logs": logBuffer.GetLogs(),
		})
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	log.Printf("Server starting on %s", addr)
	log.Println("Endpoints:")
	log.Println("   POST   /api/jobs                        - Create TTS job")
	log.Println("   GET    /api/jobs                        - List jobs")
	log.Println("   GET    /api/jobs/:id                    - Get job")
	log.Println("   GET    /api/jobs/:id/details            - Get job details")
	log.Println("   GET    /api/jobs/:id/download           - Download audio")
	log.Println("   GET    /api/jobs/:id/chunks/:i/audio    - Download chunk audio")
	log.Println("   DELETE /api/jobs/:id                    - Delete job")
	log.Println("   GET/PUT/PATCH /api/settings             - Settings")
	log.Println("   POST   /api/settings/reset              - Reset settings")
	log.Println("   GET    /ws/jobs/:id                     - Progress stream")
	log.Println("   GET    /api/health                      - Health check")

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down gracefully...")
		cancel()
		app.Shutdown()
	}()

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// LogBuffer captures logs in memory
type LogBuffer struct {
	lines []string
	mu    sync.Mutex
}

func (lb *LogBuffer) Write(p []byte) (n int, err error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	// Append new line
	lb.lines = append(lb.lines, string(p))

	// Keep last 1000 lines
	if len(lb.lines) > 1000 {
		lb.lines = lb.lines[len(lb.lines)-1000:]
	}

	return len(p), nil
}

func (lb *LogBuffer) GetLogs() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	// Return copy of slice
	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}

// loadConfig loads configuration from YAML file
func loadConfig(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
