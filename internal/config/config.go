package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds service configuration.
type Config struct {
	ServerAddr        string
	DataDir           string
	CleanupSchedule   string
	InterruptGrace    time.Duration
	HubBuffer         int
	ExecutorStepDelay time.Duration
}

// Load reads configuration from environment.
func Load() (*Config, error) {
	addr := getenv("SERVER_ADDR", "0.0.0.0:8080")
	dataDir := getenv("DATA_DIR", "./data")
	// Empty schedule disables the periodic sweep of terminal agents.
	schedule := os.Getenv("CLEANUP_SCHEDULE")
	grace := parseDuration(getenv("INTERRUPT_GRACE", "5s"), 5*time.Second)
	buffer := parseInt(getenv("HUB_BUFFER", "100"), 100)
	stepDelay := parseDuration(getenv("EXECUTOR_STEP_DELAY", "2s"), 2*time.Second)

	return &Config{
		ServerAddr:        addr,
		DataDir:           dataDir,
		CleanupSchedule:   schedule,
		InterruptGrace:    grace,
		HubBuffer:         buffer,
		ExecutorStepDelay: stepDelay,
	}, nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return n
}
