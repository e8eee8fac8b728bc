package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds the application's configuration values.
type Config struct {
	HostIP          string // Host IP both listeners bind to
	TCPPort         int    // Port for the game socket
	RESTPort        int    // Port for the REST API, 0 disables it
	GridWidth       int    // Grid columns
	GridHeight      int    // Grid rows
	TickMS          int    // Tick period in milliseconds
	InitialFood     int    // Food items placed at startup
	GrowthPerFood   int    // Segments gained per food item
	MaxLineSize     int    // Longest accepted client line in bytes
	WriteTimeoutMS  int    // Write deadline for each message sent to a client
	LogLevel        string // logrus level name
	LogFormat       string // "text" or "json"
	RedisAddr       string // Address of the leaderboard Redis, empty disables it
	RedisPassword   string // Password for the leaderboard Redis
	LeaderboardTTL  int    // Seconds a run's leaderboard is kept in Redis
	LeaderboardSize int    // Entries kept per run leaderboard
	DBHost          string // Hostname or IP address for the database, empty disables it
	DBPort          int    // Port number for the database
	DBUser          string // Username for the database
	DBPassword      string // Password for the database
	DBName          string // Name of the database
	GinMode         string // Mode for the Gin framework (e.g., release, debug, test)
}

// Envs holds the application's configuration loaded from environment variables.
var Envs = initConfig()

// initConfig loads the configuration or exits when it is invalid.
func initConfig() Config {
	// Load .env file if available
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("[APP] .env file not found or could not be loaded: %v", err)
	}

	c, err := Load()
	if err != nil {
		logrus.Fatalf("[APP] %v", err)
	}
	return c
}

// Load reads the configuration from the environment, applying defaults.
func Load() (Config, error) {
	var errs []error
	getInt := func(key string, def int) int {
		v, err := getEnvAsIntWithDefault(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	c := Config{
		HostIP:          getEnvWithDefault("HOST_IP", "127.0.0.1"),
		TCPPort:         getInt("TCP_PORT", 8765),
		RESTPort:        getInt("REST_PORT", 0),
		GridWidth:       getInt("GRID_WIDTH", 30),
		GridHeight:      getInt("GRID_HEIGHT", 15),
		TickMS:          getInt("TICK_MS", 200),
		InitialFood:     getInt("INITIAL_FOOD", 10),
		GrowthPerFood:   getInt("GROWTH_PER_FOOD", 3),
		MaxLineSize:     getInt("MAX_LINE_SIZE", 4096),
		WriteTimeoutMS:  getInt("WRITE_TIMEOUT_MS", 1000),
		LogLevel:        getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat:       getEnvWithDefault("LOG_FORMAT", "text"),
		RedisAddr:       getEnvWithDefault("REDIS_ADDR", ""),
		RedisPassword:   getEnvWithDefault("REDIS_PASSWORD", ""),
		LeaderboardTTL:  getInt("LEADERBOARD_TTL_SECONDS", 86400),
		LeaderboardSize: getInt("LEADERBOARD_SIZE", 100),
		DBHost:          getEnvWithDefault("DB_HOST", ""),
		DBPort:          getInt("DB_PORT", 27017),
		DBUser:          getEnvWithDefault("DB_USER", ""),
		DBPassword:      getEnvWithDefault("DB_PASS", ""),
		DBName:          getEnvWithDefault("DB_NAME", "snake"),
		GinMode:         getEnvWithDefault("GIN_MODE", "release"),
	}

	if len(errs) > 0 {
		return Config{}, errs[0]
	}
	return c, nil
}

// getEnvAsIntWithDefault retrieves an environment variable as an integer, or the default when unset.
func getEnvAsIntWithDefault(key string, defaultValue int) (int, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("environment variable %s must be an integer: %w", key, err)
	}
	return value, nil
}

// getEnvWithDefault retrieves the value of an environment variable or returns a default value if not set.
func getEnvWithDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
