package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/camden-git/familytreebackend/config"
	"github.com/camden-git/familytreebackend/database"
	"github.com/camden-git/familytreebackend/handlers"
	"github.com/camden-git/familytreebackend/realtime"
	"github.com/camden-git/familytreebackend/repository"
	"github.com/camden-git/familytreebackend/services"
	"github.com/camden-git/familytreebackend/workers"
	"github.com/joho/godotenv"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		log.Fatalf("FATAL: Failed to create database directory: %v", err)
	}

	gormDB, err := database.InitGormDB(cfg.DatabasePath, database.ParseLogLevel(cfg.GormLogLevel))
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize GORM database: %v", err)
	}
	if err := database.AutoMigrateModels(gormDB); err != nil {
		log.Fatalf("FATAL: Failed to migrate models: %v", err)
	}

	ledgerDB, err := database.InitDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize import ledger: %v", err)
	}
	defer ledgerDB.Close()

	personRepo := repository.NewPersonRepository(gormDB)
	relationshipRepo := repository.NewRelationshipRepository(gormDB)

	generationService := services.NewGenerationService(personRepo, relationshipRepo, cfg.GenerationSpanYears, cfg.ImportBatchSize)
	treeService := services.NewTreeService(personRepo, relationshipRepo, generationService)
	duplicateService := services.NewDuplicateService(personRepo, relationshipRepo)
	importService := services.NewImportService(ledgerDB, treeService, cfg.ImportBatchSize, cfg.MaxLifespanYears)

	if failed, err := importService.FailUnfinished(); err != nil {
		log.Printf("Warning: could not fail unfinished imports: %v", err)
	} else if failed > 0 {
		log.Printf("Marked %d unfinished import run(s) from a previous start as failed", failed)
	}

	hub := realtime.NewHub()
	go hub.Run()

	log.Printf("Initializing import worker pool (Workers: %d, Queue Size: %d)...", cfg.NumImportWorkers, cfg.ImportQueueSize)
	importProcessor := workers.NewImportProcessor(importService, hub, cfg.ImportQueueSize, cfg.NumImportWorkers)

	log.Printf("Using database: %s", cfg.DatabasePath)
	log.Printf("Import batch size: %d, generation span: %d years", cfg.ImportBatchSize, cfg.GenerationSpanYears)

	router := handlers.NewRouter(handlers.RouterConfig{
		Trees:      &handlers.TreeHandler{Trees: treeService, Events: hub},
		Duplicates: &handlers.DuplicateHandler{Duplicates: duplicateService, Events: hub},
		Imports: &handlers.ImportHandler{
			Imports:        importService,
			Queue:          importProcessor,
			MaxUploadBytes: cfg.MaxUploadBytes,
		},
		Debug:          &handlers.DebugHandler{ImportProcessor: importProcessor, Hub: hub},
		Hub:            hub,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	serverAddr := ":" + cfg.Port
	fmt.Printf("Server starting on http://localhost:%s\n", cfg.Port)
	log.Printf("Server listening on %s", serverAddr)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		log.Println("Shutting down...")
		server.Close()
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("FATAL: %v", err)
	}
	importProcessor.Stop()
}
