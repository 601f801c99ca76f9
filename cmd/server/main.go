package main

import (
	"fmt"
	"log"

	"patro/internal/config"
	"patro/internal/extractor"
	"patro/internal/handler"
	"patro/internal/orient"
	"patro/internal/raster"
	"patro/internal/repository/postgres"
	"patro/internal/router"
	"patro/internal/service"
	s3storage "patro/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	docRepo := postgres.NewDocumentRepo(db)
	pageRepo := postgres.NewPageRepo(db)
	contentRepo := postgres.NewContentRepo(db)
	logRepo := postgres.NewExtractionLogRepo(db)

	// Initialize storage
	s3Client, err := s3storage.NewS3Client(&cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	// Initialize pipeline collaborators
	rasterizer := raster.New()
	detector := orient.NewDetector()
	extractorClient := extractor.NewClient(&cfg.Extractor)

	// Initialize services
	pipelineSvc := service.NewPipelineService(
		docRepo, pageRepo, contentRepo, logRepo,
		s3Client, rasterizer, detector, extractorClient,
		cfg.Pipeline,
	)
	docSvc := service.NewDocumentService(
		docRepo, pageRepo, contentRepo, logRepo,
		s3Client, pipelineSvc,
		cfg.Storage.Bucket, cfg.Storage.MaxFileSizeBytes(),
	)

	// Initialize handlers
	docH := handler.NewDocumentHandler(docSvc, pipelineSvc)
	healthH := handler.NewHealthHandler(db)

	// Setup router
	r := router.Setup(docH, healthH)

	log.Printf("Server starting on %s", cfg.Server.Port)
	if err := r.Run(cfg.Server.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}
