package main

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/yourusername/afrosing-backend/internal/auth"
	"github.com/yourusername/afrosing-backend/internal/backup"
	"github.com/yourusername/afrosing-backend/internal/database"
	"github.com/yourusername/afrosing-backend/internal/generator"
	"github.com/yourusername/afrosing-backend/internal/handlers"
	"github.com/yourusername/afrosing-backend/internal/search"
	"github.com/yourusername/afrosing-backend/internal/synthesis"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Get configuration from environment
	dbDSN := os.Getenv("DATABASE_URL")
	if dbDSN == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}

	// Typesense is optional - can be disabled
	disableTypesense := os.Getenv("DISABLE_TYPESENSE") == "true"
	typesenseAPIKey := os.Getenv("TYPESENSE_API_KEY")
	typesenseHost := os.Getenv("TYPESENSE_HOST")

	if !disableTypesense {
		if typesenseAPIKey == "" {
			log.Fatal("TYPESENSE_API_KEY environment variable is required (or set DISABLE_TYPESENSE=true)")
		}
		if typesenseHost == "" {
			log.Fatal("TYPESENSE_HOST environment variable is required (or set DISABLE_TYPESENSE=true)")
		}
	}

	backupDir := os.Getenv("BACKUP_DIR")
	if backupDir == "" {
		backupDir = "./backups"
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Synthesis (PiAPI DiffRhythm) configuration
	synthCfg := synthesis.Config{
		Endpoint:    os.Getenv("PIAPI_URL"),
		APIKey:      os.Getenv("PIAPI_KEY"),
		FallbackURL: synthesis.DefaultFallbackURL,
	}
	if synthCfg.APIKey == "" {
		log.Fatal("PIAPI_KEY environment variable is required")
	}
	if v := os.Getenv("PIAPI_TIMEOUT_SECONDS"); v != "" {
		d, err := time.ParseDuration(v + "s")
		if err != nil {
			log.Fatalf("Invalid PIAPI_TIMEOUT_SECONDS: %v", err)
		}
		synthCfg.Timeout = d
	}
	if os.Getenv("DISABLE_AUDIO_FALLBACK") == "true" {
		// Failures then surface as FAILED requests instead of placeholder audio.
		synthCfg.FallbackURL = ""
	}

	// Initialize database
	db, err := database.New(dbDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize Typesense (optional)
	var sc *search.Client
	if !disableTypesense {
		sc, err = search.New(typesenseAPIKey, typesenseHost)
		if err != nil {
			log.Fatalf("Failed to initialize Typesense: %v", err)
		}
	} else {
		log.Println("Typesense is disabled - gallery search will use PostgreSQL")
	}

	// Initialize backup manager (backup every 100 generations)
	backupManager := backup.NewManager(dbDSN, backupDir, 100)
	backupManager.Start()

	// Initialize synthesis client and orchestrator
	synthClient := synthesis.New(synthCfg)
	gen := generator.New(db, synthClient)

	// Initialize handlers and auth
	h := handlers.New(db, sc, backupManager, gen)
	am := auth.NewMiddleware(jwtSecret)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "AfroSing Backend",
		ServerHeader: "AfroSing",
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Routes
	api := app.Group("/api")

	// Health check
	api.Get("/health", h.HealthCheck)

	// Song generation and polling
	api.Post("/generate-song/", am.RequireUser(), h.GenerateSong)
	api.Get("/status/:id/", am.RequireUser(), h.SongStatus)
	api.Post("/remix/:id/", am.RequireUser(), h.RemixSong)

	// Public gallery
	app.Get("/gallery/", h.Gallery)

	// Admin
	admin := api.Group("/admin", am.RequireUser())
	admin.Post("/reindex", h.ReindexGallery)
	admin.Get("/backups", h.GetBackups)
	admin.Post("/backups", h.CreateBackup)

	// Start server
	log.Printf("Server starting on port %s", port)
	log.Printf("Backup directory: %s", backupDir)
	if !disableTypesense {
		log.Printf("Typesense host: %s", typesenseHost)
	}

	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
