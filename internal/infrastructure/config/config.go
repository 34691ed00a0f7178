// internal/infrastructure/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// App
	AppVersion string
	TestMode   bool
	TestUsers  []string

	// Server
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Postgres (persisted store)
	PostgresURI string

	// MongoDB (snapshot cache + sync journal)
	MongoURI      string
	MongoDB       string
	MongoUser     string
	MongoPassword string

	// Merlot
	MerlotBaseURL         string
	MerlotUsername        string
	MerlotPassword        string
	MerlotSubscriptionKey string
	MerlotEnv             string
	MerlotTimeout         time.Duration
	FetchChunkDays        int

	// Graph
	GraphBaseURL     string
	GraphTenantID    string
	GraphClientID    string
	GraphSecret      string
	GraphScope       string
	GraphServiceUser string

	// Teams
	TeamsOwner             string
	TeamsAdditionalMembers []string

	// Sync cadence
	FlightSyncInterval  time.Duration
	PairingSyncInterval time.Duration
	TeamSyncInterval    time.Duration
	ArchiveInterval     time.Duration
	PairingSyncOffset   time.Duration
	TeamSyncOffset      time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		AppVersion: getEnv("APP_VERSION", "1.0.0"),
		TestMode:   getEnvAsBool("ONLY_TEST_USERS", true),
		TestUsers:  splitList(getEnv("TEST_USERS", "")),

		Port:         getEnv("PORT", "8080"),
		ReadTimeout:  time.Duration(getEnvAsInt("READ_TIMEOUT", 30)) * time.Second,
		WriteTimeout: time.Duration(getEnvAsInt("WRITE_TIMEOUT", 30)) * time.Second,

		PostgresURI: getEnv("POSTGRES_DSN", "postgres://localhost:5432/crewsync"),

		MongoURI:      getEnv("MONGODB_DSN", "mongodb://localhost:27017"),
		MongoDB:       getEnv("MONGO_DB", "crewsync"),
		MongoUser:     getEnv("MONGO_USER", ""),
		MongoPassword: getEnv("MONGO_PASSWORD", ""),

		MerlotBaseURL:         getEnv("MERLOT_BASE_URL", ""),
		MerlotUsername:        getEnv("MERLOT_USERNAME", ""),
		MerlotPassword:        getEnv("MERLOT_PASSWORD", ""),
		MerlotSubscriptionKey: getEnv("MERLOT_SUBSCRIPTION_KEY", ""),
		MerlotEnv:             getEnv("MERLOT_ENV", "production"),
		MerlotTimeout:         time.Duration(getEnvAsInt("MERLOT_TIMEOUT", 300)) * time.Second,
		FetchChunkDays:        getEnvAsInt("FETCH_CHUNK_DAYS", 6),

		GraphBaseURL:     getEnv("GRAPH_BASE_URL", "https://graph.microsoft.com/v1.0"),
		GraphTenantID:    getEnv("GRAPH_TENANT_ID", ""),
		GraphClientID:    getEnv("GRAPH_CLIENT_ID", ""),
		GraphSecret:      getEnv("GRAPH_CLIENT_SECRET", ""),
		GraphScope:       getEnv("GRAPH_SCOPE", "https://graph.microsoft.com/.default"),
		GraphServiceUser: getEnv("GRAPH_SERVICE_USER", ""),

		TeamsOwner:             getEnv("TEAMS_OWNER", ""),
		TeamsAdditionalMembers: splitList(getEnv("TEAMS_ADDITIONAL_MEMBERS", "")),

		FlightSyncInterval:  time.Duration(getEnvAsInt("FLIGHT_SYNC_INTERVAL", 1800)) * time.Second,
		PairingSyncInterval: time.Duration(getEnvAsInt("PAIRING_SYNC_INTERVAL", 1800)) * time.Second,
		TeamSyncInterval:    time.Duration(getEnvAsInt("TEAM_SYNC_INTERVAL", 1800)) * time.Second,
		ArchiveInterval:     time.Duration(getEnvAsInt("ARCHIVE_INTERVAL", 86400)) * time.Second,
		PairingSyncOffset:   time.Duration(getEnvAsInt("PAIRING_SYNC_OFFSET", 300)) * time.Second,
		TeamSyncOffset:      time.Duration(getEnvAsInt("TEAM_SYNC_OFFSET", 600)) * time.Second,
	}

	if config.MerlotBaseURL == "" {
		return nil, fmt.Errorf("MERLOT_BASE_URL is required")
	}
	if config.GraphTenantID == "" || config.GraphClientID == "" || config.GraphSecret == "" {
		return nil, fmt.Errorf("GRAPH_TENANT_ID, GRAPH_CLIENT_ID and GRAPH_CLIENT_SECRET are required")
	}
	if config.TestMode && len(config.TestUsers) == 0 {
		return nil, fmt.Errorf("TEST_USERS is required when ONLY_TEST_USERS is enabled")
	}

	return config, nil
}

// Helper functions to get environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.FieldsFunc(value, func(r rune) bool { return r == '\n' || r == ',' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
