package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	envVar         = "WAREHOUSE_ENV"
	appNameVar     = "WAREHOUSE_APP_NAME"
	folderEnvVar   = "WAREHOUSE_DATA_DIR"
	logLevelVar    = "WAREHOUSE_LOG_LEVEL"
	sentryDSNVar   = "WAREHOUSE_SENTRY_DSN"
	metricsAddrVar = "WAREHOUSE_METRICS_ADDR"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "whctl")
}

func (EnvVars) GetDataFolder() string {
	if folder := os.Getenv(folderEnvVar); folder != "" {
		return folder
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.whctl"
	}
	return filepath.Join(home, ".whctl")
}

func (EnvVars) GetEnv() string {
	return GetEnv(envVar, "DEV")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

func (EnvVars) GetSentryDSN() string {
	return GetEnv(sentryDSNVar, "")
}

func (EnvVars) GetMetricsAddr() string {
	return GetEnv(metricsAddrVar, "")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetDuration parses envVar as a time.Duration, falling back to defaultValue
// when the variable is unset or malformed.
func GetDuration(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		log.Warn().Str("var", envVar).Str("value", value).Msg("invalid duration, using default")
		return defaultValue
	}
	return d
}

func GetInt(envVar string, defaultValue int) int {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Warn().Str("var", envVar).Str("value", value).Msg("invalid integer, using default")
		return defaultValue
	}
	return n
}

func GetFloat(envVar string, defaultValue float64) float64 {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Warn().Str("var", envVar).Str("value", value).Msg("invalid number, using default")
		return defaultValue
	}
	return f
}

func GetBool(envVar string, defaultValue bool) bool {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
