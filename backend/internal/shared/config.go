// ============================================================================
// backend/internal/shared/config.go
// Shared configuration management and environment variable helpers
// ============================================================================

package shared

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ============================================================================
// Configuration Structs
// ============================================================================

// PortalConfig holds configuration for the portal API server (portald)
type PortalConfig struct {
	ServiceName string
	HTTPPort    string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error

	// Store selects the persistence backend: "memory" or "mongo"
	Store string

	// MongoDB Configuration (only used when Store == "mongo")
	MongoDB MongoConfig

	// Security Configuration
	Security SecurityConfig

	// CORS Configuration
	CORS CORSConfig

	RequestTimeout time.Duration
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	JWTSecret          string
	JWTExpirationHours int
	BCryptCost         int // BCrypt hashing cost (10-12 recommended)
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           int // in seconds
}

// ClientConfig holds configuration for dashboard clients (portalctl)
type ClientConfig struct {
	BaseURL        string
	RequestTimeout time.Duration

	// MinFlagDuration is the floor applied before loading/refreshing flags clear
	MinFlagDuration time.Duration
}

// ============================================================================
// Configuration Loading Functions
// ============================================================================

// LoadEnv loads environment variables from .env file
func LoadEnv(envFile string) error {
	if envFile == "" {
		envFile = ".env"
	}

	if err := godotenv.Load(envFile); err != nil {
		log.Printf("WARN: %s file not found, using system environment variables", envFile)
		return err
	}

	log.Printf("INFO: Loaded environment from %s", envFile)
	return nil
}

// LoadPortalConfig loads portal server configuration from environment
func LoadPortalConfig() (*PortalConfig, error) {
	config := &PortalConfig{
		ServiceName:    "portald",
		HTTPPort:       GetEnv("HTTP_PORT", DefaultPortalHTTPPort),
		Environment:    GetEnv("ENVIRONMENT", "development"),
		LogLevel:       GetEnv("LOG_LEVEL", "info"),
		Store:          strings.ToLower(GetEnv("PORTAL_STORE", StoreMemory)),
		RequestTimeout: GetDurationEnv("PORTAL_REQUEST_TIMEOUT", 5*time.Second),
	}

	if config.Store == StoreMongo {
		mongoURI := GetEnv("MONGO_URI", "")
		if mongoURI == "" {
			return nil, fmt.Errorf("MONGO_URI environment variable is required for the mongo store")
		}

		config.MongoDB = MongoConfig{
			URI:            mongoURI,
			Database:       GetEnv("MONGO_DB_NAME", "UniPortal"),
			ConnectTimeout: GetDurationEnv("MONGO_CONNECT_TIMEOUT", 20*time.Second),
			MaxPoolSize:    uint64(GetIntEnv("MONGO_MAX_POOL_SIZE", 50)),
			MinPoolSize:    uint64(GetIntEnv("MONGO_MIN_POOL_SIZE", 5)),
			MaxIdleTime:    GetDurationEnv("MONGO_MAX_IDLE_TIME", 30*time.Second),
		}
	}

	config.Security = SecurityConfig{
		JWTSecret:          GetEnv("JWT_SECRET", ""),
		JWTExpirationHours: GetIntEnv("JWT_EXPIRATION_HOURS", 24),
		BCryptCost:         GetIntEnv("BCRYPT_COST", 10),
	}

	if config.Security.JWTSecret == "" {
		if IsProduction(config) {
			return nil, fmt.Errorf("JWT_SECRET environment variable is required in production")
		}
		log.Println("WARN: JWT_SECRET not set, using development secret")
		config.Security.JWTSecret = "uniportal-dev-secret"
	}

	config.CORS = CORSConfig{
		AllowedOrigins:   GetStringSliceEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		AllowedMethods:   GetStringSliceEnv("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}),
		AllowedHeaders:   GetStringSliceEnv("CORS_ALLOWED_HEADERS", []string{"Accept", "Authorization", "Content-Type"}),
		AllowCredentials: GetBoolEnv("CORS_ALLOW_CREDENTIALS", true),
		MaxAge:           GetIntEnv("CORS_MAX_AGE", 300),
	}

	return config, nil
}

// LoadClientConfig loads dashboard client configuration from environment
func LoadClientConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:         strings.TrimRight(GetEnv("PORTAL_URL", "http://localhost:"+DefaultPortalHTTPPort), "/"),
		RequestTimeout:  GetDurationEnv("PORTAL_REQUEST_TIMEOUT", 10*time.Second),
		MinFlagDuration: GetDurationEnv("RECONCILE_MIN_FLAG_DURATION", 300*time.Millisecond),
	}
}

// ============================================================================
// Environment Variable Helper Functions
// ============================================================================

// GetEnv retrieves an environment variable or returns a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetIntEnv retrieves an integer environment variable or returns a default value
func GetIntEnv(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("WARN: Invalid integer value for %s: %s, using default: %d", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}

// GetBoolEnv retrieves a boolean environment variable or returns a default value
func GetBoolEnv(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("WARN: Invalid boolean value for %s: %s, using default: %t", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}

// GetDurationEnv retrieves a duration environment variable or returns a default value
// Supports format like "300ms", "30s", "5m"
func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("WARN: Invalid duration value for %s: %s, using default: %v", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}

// GetStringSliceEnv retrieves a comma-separated string list or returns a default value
func GetStringSliceEnv(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var result []string
	for _, part := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}

// ============================================================================
// Configuration Validation
// ============================================================================

// ValidatePortalConfig validates portal server configuration
func ValidatePortalConfig(config *PortalConfig) error {
	if config.HTTPPort == "" {
		return fmt.Errorf("HTTP port is required")
	}

	switch config.Store {
	case StoreMemory:
	case StoreMongo:
		if config.MongoDB.URI == "" {
			return fmt.Errorf("MongoDB URI is required")
		}
		if config.MongoDB.Database == "" {
			return fmt.Errorf("MongoDB database name is required")
		}
	default:
		return fmt.Errorf("unknown store %q (expected %q or %q)", config.Store, StoreMemory, StoreMongo)
	}

	if config.Security.BCryptCost < 4 || config.Security.BCryptCost > 31 {
		return fmt.Errorf("bcrypt cost must be between 4 and 31, got %d", config.Security.BCryptCost)
	}

	return nil
}

// ValidateClientConfig validates dashboard client configuration
func ValidateClientConfig(config *ClientConfig) error {
	if config.BaseURL == "" {
		return fmt.Errorf("portal base URL is required")
	}
	if !strings.HasPrefix(config.BaseURL, "http://") && !strings.HasPrefix(config.BaseURL, "https://") {
		return fmt.Errorf("portal base URL must start with http:// or https://")
	}
	if config.MinFlagDuration < 0 {
		return fmt.Errorf("minimum flag duration cannot be negative")
	}
	return nil
}

// ============================================================================
// Configuration Display (for debugging)
// ============================================================================

// PrintPortalConfig prints configuration (sanitized) for debugging
func PrintPortalConfig(config *PortalConfig) {
	log.Println("=== Portal Configuration ===")
	log.Printf("Service Name: %s", config.ServiceName)
	log.Printf("HTTP Port: %s", config.HTTPPort)
	log.Printf("Environment: %s", config.Environment)
	log.Printf("Log Level: %s", GetLogLevel(config))
	log.Printf("Store: %s", config.Store)
	if config.Store == StoreMongo {
		log.Printf("Database: %s", config.MongoDB.Database)
		log.Printf("Max Pool Size: %d", config.MongoDB.MaxPoolSize)
	}
	log.Printf("JWT Expiration: %d hours", config.Security.JWTExpirationHours)
	log.Printf("BCrypt Cost: %d", config.Security.BCryptCost)
	log.Printf("Allowed Origins: %v", config.CORS.AllowedOrigins)
	log.Println("============================")
}

// ============================================================================
// Defaults & Environment Checks
// ============================================================================

const (
	DefaultPortalHTTPPort = "8000"

	StoreMemory = "memory"
	StoreMongo  = "mongo"
)

// IsDevelopment checks if running in development environment
func IsDevelopment(config *PortalConfig) bool {
	return config.Environment == "development"
}

// IsProduction checks if running in production environment
func IsProduction(config *PortalConfig) bool {
	return config.Environment == "production"
}

// GetLogLevel returns the configured log level
func GetLogLevel(config *PortalConfig) string {
	switch config.LogLevel {
	case "debug", "info", "warn", "error":
		return config.LogLevel
	}
	return "info"
}
