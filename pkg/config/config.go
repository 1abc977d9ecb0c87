package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort      string
	FirebaseProject string
	Environment     string
	JWTSecret       string
	JWTExpiry       int64

	// "firebase" verifies Firebase ID tokens, "dev" verifies HS256 tokens signed with JWTSecret.
	AuthProvider string
	// "firestore" or "memory"
	StorageDriver string

	ServiceAccountJSON string
	ServiceAccountPath string

	NATSURL     string
	NATSSubject string
	NodeID      string

	RedisURL    string
	PresenceTTL time.Duration

	WSSendBuffer     int
	AllowedOrigins   []string
	MessageMaxLength int
	HistoryLimit     int
}

func Load() (*Config, error) {
	godotenv.Load()

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "node-1"
	}

	config := &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		FirebaseProject: getEnv("FIREBASE_PROJECT_ID", ""),
		Environment:     getEnv("ENVIRONMENT", "development"),
		JWTSecret:       getEnv("JWT_SECRET", "petcycle-dev-secret"),
		JWTExpiry:       getEnvAsInt64("JWT_EXPIRY", 24*60*60), // 24 hours

		AuthProvider:  getEnv("AUTH_PROVIDER", "dev"),
		StorageDriver: getEnv("STORAGE_DRIVER", "memory"),

		ServiceAccountJSON: getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		ServiceAccountPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),

		NATSURL:     getEnv("NATS_URL", ""),
		NATSSubject: getEnv("NATS_SUBJECT", "petcycle.topics"),
		NodeID:      getEnv("NODE_ID", hostname),

		RedisURL:    getEnv("REDIS_URL", ""),
		PresenceTTL: time.Duration(getEnvAsInt64("PRESENCE_TTL_SECONDS", 30)) * time.Second,

		WSSendBuffer:     int(getEnvAsInt64("WS_SEND_BUFFER", 256)),
		AllowedOrigins:   getEnvAsList("ALLOWED_ORIGINS", "*"),
		MessageMaxLength: int(getEnvAsInt64("MESSAGE_MAX_LENGTH", 500)),
		HistoryLimit:     int(getEnvAsInt64("HISTORY_LIMIT", 100)),
	}

	return config, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsList(key, defaultValue string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, defaultValue), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
