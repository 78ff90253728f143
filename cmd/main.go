package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"geovisor-service/internal/boundary"
	"geovisor-service/internal/config"
	"geovisor-service/internal/database/minio"
	"geovisor-service/internal/database/postgres"
	"geovisor-service/internal/database/redis"
	"geovisor-service/internal/handlers"
	"geovisor-service/internal/ingest"
	"geovisor-service/internal/repository"
	"geovisor-service/internal/services"

	"github.com/gofiber/fiber/v3"
	goredis "github.com/redis/go-redis/v9"
)

func setupLogging() (*os.File, error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("Recovered from panic: %v\n", r)
		}
	}()

	logDir := filepath.Join("/geovisor", "log", "geovisor_service")
	fmt.Println("Log directory:", logDir)
	err := os.MkdirAll(logDir, 0o755)
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	currentTime := time.Now()
	logFileName := fmt.Sprintf("log_%s.log", currentTime.Format("2006-01-02"))
	logFile := filepath.Join(logDir, logFileName)

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	log.SetOutput(file)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	return file, nil
}

func main() {
	logFile, err := setupLogging()
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	cfg := config.New()
	log.Printf("Connecting to PostgreSQL with: host=%s, port=%s, user=%s, dbname=%s",
		cfg.PostgresCfg.Host, cfg.PostgresCfg.Port, cfg.PostgresCfg.Username, cfg.PostgresCfg.DBname)
	db, err := postgres.ConnectAndCreateDB(cfg.PostgresCfg)
	if err != nil {
		log.Printf("error connect to database: %s", err)
		go postgres.RetryConnectOnFailed(30*time.Second, &db, cfg.PostgresCfg)
	}

	var redisConn *goredis.Client
	redisClient, err := redis.NewRedisClient(cfg.RedisCfg.Host, cfg.RedisCfg.Port, cfg.RedisCfg.Password, cfg.RedisCfg.DB)
	if err != nil {
		log.Printf("error connect to redis, boundary and locality caching disabled: %s", err)
	} else {
		defer redisClient.Close()
		redisConn = redisClient.GetClient()
	}

	minioClient, err := minio.NewMinioClient(cfg.MinioCfg)
	if err != nil {
		log.Printf("error connect to minio, geometry uploads will not be archived: %s", err)
		minioClient = nil
	}

	// repositories
	localityRepository := repository.NewLocalityRepository(db, redisConn)
	cropRepository := repository.NewCropRepository(db)

	// boundary pipeline
	loader := boundary.NewLoader(cfg.BoundaryCfg, redisConn)
	renderer := boundary.NewRenderer(loader, cfg.BoundaryCfg.OperatingRegions)

	// services
	localityDirectory := services.NewLocalityDirectory(localityRepository, loader)
	cropDirectory := services.NewCropDirectory(cropRepository)
	costClient := services.NewCostClient(cfg.CostingCfg)
	sessionManager := services.NewSessionManager(cropDirectory)
	defer sessionManager.Close()

	var archiver ingest.Archiver
	if minioClient != nil {
		archiver = minioClient
	}
	ingestor := ingest.NewIngestor(localityDirectory, archiver)

	// handlers
	sessionHandler := handlers.NewSessionHandler(sessionManager, localityDirectory, cropDirectory, costClient, renderer)
	captureHandler := handlers.NewCaptureHandler(sessionManager)
	directoryHandler := handlers.NewDirectoryHandler(localityDirectory, cropDirectory, renderer)
	ingestHandler := handlers.NewIngestHandler(sessionManager, ingestor)

	app := fiber.New()
	app.Get("/checkhealth", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).SendString("Geovisor service is healthy")
	})

	sessionHandler.RegisterRoutes(app)
	captureHandler.RegisterRoutes(app)
	directoryHandler.RegisterRoutes(app)
	ingestHandler.RegisterRoutes(app)

	log.Printf("Starting geovisor-service on port %s", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
