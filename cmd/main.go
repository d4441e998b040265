package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"photo-sync-service/internal/config"
	"photo-sync-service/internal/drive"
	"photo-sync-service/internal/geocode"
	"photo-sync-service/internal/handlers"
	"photo-sync-service/internal/metrics"
	"photo-sync-service/internal/models"
	"photo-sync-service/internal/repository"
	"photo-sync-service/internal/services"
	"photo-sync-service/internal/storage"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg := InitConfig()
	db := ConnectDatabase(cfg)
	MigrateDatabase(db)

	store, err := storage.NewStore(cfg)
	if err != nil {
		log.Fatalf("Storage backend initialization failed: %v", err)
	}
	zlog.Info().Str("backend", cfg.StorageBackend).Msg("storage backend ready")

	geocoder, redisClient := InitGeocoder(cfg)

	imageRepo := repository.NewImageRepository(db)
	syncMetrics := metrics.NewSyncMetrics()
	syncService := services.NewSyncService(imageRepo, store, geocoder, syncMetrics, cfg.FolderFor)
	photoService := services.NewPhotoService(imageRepo, store, geocoder, cfg.FolderFor)

	sources := func(ctx context.Context, token string) (drive.Source, error) {
		return drive.NewGoogleDrive(ctx, token)
	}
	h := handlers.NewPhotoHandler(photoService, syncService, cfg, sources)

	app := fiber.New(fiber.Config{BodyLimit: 50 * 1024 * 1024})

	if cfg.FrontendURL != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.FrontendURL,
			AllowCredentials: true,
		}))
	}

	// Register Prometheus metrics endpoint
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	photos := app.Group("/photos")
	photos.Get("/sync-images", h.SyncImages)
	photos.Get("/get-photos", h.GetPhotos)
	photos.Get("/get-image-by-day", h.GetImageStatsByDay)
	photos.Get("/get-image-by-month", h.GetImageStatsByMonth)
	photos.Get("/get-image-by-year", h.GetImageStatsByYear)
	photos.Get("/getImages/:uploadedBy", h.GetImagesByUploader)
	photos.Get("/get1stEmailPhotos", h.UploaderSlotPhotos(0))
	photos.Get("/get2ndEmailPhotos", h.UploaderSlotPhotos(1))
	photos.Get("/get3rdEmailPhotos", h.UploaderSlotPhotos(2))
	photos.Get("/file/:id", h.GetFile)
	photos.Post("/upload", h.UploadPhoto)
	photos.Delete("/:id", h.DeletePhoto)

	app.Get("/api/images", h.GetImagesWithLocation)

	app.Get("/swagger/*", swagger.HandlerDefault)

	// Add Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	port := cfg.AppPort
	if port == "" {
		port = "8080"
		log.Printf("Defaulting to port %s", port)
	}

	// Graceful shutdown: stop accepting requests, then release clients.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		zlog.Info().Msg("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
		if redisClient != nil {
			redisClient.Close()
		}
	}()

	log.Printf("Server listening on port %s", port)
	log.Fatal(app.Listen(":" + port))
}

func InitConfig() *config.Config {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	return cfg
}

func ConnectDatabase(cfg *config.Config) *gorm.DB {
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	return db
}

func MigrateDatabase(db *gorm.DB) {
	err := db.AutoMigrate(&models.Image{})
	if err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}
}

// InitGeocoder builds the reverse geocoder, wrapping it with a Redis result
// cache when one is configured. A missing API key degrades to empty regions
// instead of blocking ingestion.
func InitGeocoder(cfg *config.Config) (geocode.Geocoder, *storage.RedisClient) {
	if cfg.GeocodingAPIKey == "" {
		log.Printf("GOOGLE_GEOCODING_API_KEY not set; region fields will stay empty")
		return geocode.Disabled{}, nil
	}
	geocoder, err := geocode.NewGoogleGeocoder(cfg.GeocodingAPIKey)
	if err != nil {
		log.Fatalf("Geocoder initialization failed: %v", err)
	}
	if cfg.RedisHost == "" {
		return geocoder, nil
	}
	port := cfg.RedisPort
	if port == "" {
		port = "6379"
	}
	redisClient, err := storage.NewRedisClient(cfg.RedisHost, port)
	if err != nil {
		log.Printf("Redis unavailable, geocode cache disabled: %v", err)
		return geocoder, nil
	}
	return geocode.NewCachedGeocoder(geocoder, redisClient, 30*24*time.Hour), redisClient
}
