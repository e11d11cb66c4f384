package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	defaultDatabaseFile = "familytree.db"
	defaultPort         = "8080"
)

const (
	defaultImportBatchSize     = 100
	defaultImportQueueSize     = 16
	defaultNumImportWorkers    = 2
	defaultGenerationSpanYears = 28
	defaultMaxLifespanYears    = 120
	defaultMaxUploadBytes      = 32 << 20
)

type Config struct {
	// database path, shared by the GORM handle and the import ledger
	DatabasePath string
	GormLogLevel string

	// import settings
	ImportBatchSize  int
	ImportQueueSize  int
	NumImportWorkers int
	MaxUploadBytes   int64

	// graph settings
	GenerationSpanYears int // average years between generations, used for unconnected people
	MaxLifespanYears    int

	// http
	Port           string
	AllowedOrigins []string
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvListOrDefault(envVar string, defaultVal []string) []string {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(valStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

func LoadConfig() (Config, error) {
	dbPath := getEnvOrDefault("DATABASE_PATH", defaultDatabaseFile)
	absDBPath, err := filepath.Abs(dbPath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for database '%s': %w", dbPath, err)
	}

	batchSize := getEnvIntOrDefault("IMPORT_BATCH_SIZE", defaultImportBatchSize)
	if batchSize > 500 {
		log.Printf("Warning: IMPORT_BATCH_SIZE %d is above the 500 operations per transaction limit, using 500", batchSize)
		batchSize = 500
	}

	cfg := Config{
		DatabasePath:        absDBPath,
		GormLogLevel:        getEnvOrDefault("GORM_LOG_LEVEL", "warn"),
		ImportBatchSize:     batchSize,
		ImportQueueSize:     getEnvIntOrDefault("IMPORT_QUEUE_SIZE", defaultImportQueueSize),
		NumImportWorkers:    getEnvIntOrDefault("NUM_IMPORT_WORKERS", defaultNumImportWorkers),
		MaxUploadBytes:      int64(getEnvIntOrDefault("MAX_UPLOAD_BYTES", defaultMaxUploadBytes)),
		GenerationSpanYears: getEnvIntOrDefault("GENERATION_SPAN_YEARS", defaultGenerationSpanYears),
		MaxLifespanYears:    getEnvIntOrDefault("MAX_LIFESPAN_YEARS", defaultMaxLifespanYears),
		Port:                getEnvOrDefault("PORT", defaultPort),
		AllowedOrigins:      getEnvListOrDefault("ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
	}

	return cfg, nil
}
