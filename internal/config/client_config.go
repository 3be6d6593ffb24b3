package config

import (
	"strings"
	"time"
)

const (
	DefaultBaseURL        = "http://localhost:4000/api"
	DefaultLocale         = "ckb"
	DefaultRequestTimeout = 7 * time.Second
)

type Client struct{}

var _ ClientConfig = Client{}

// GetBaseURL returns the API root every endpoint path is resolved against.
func (Client) GetBaseURL() string {
	return strings.TrimRight(GetEnv("WAREHOUSE_API_URL", DefaultBaseURL), "/")
}

func (Client) GetRequestTimeout() time.Duration {
	return GetDuration("WAREHOUSE_REQUEST_TIMEOUT", DefaultRequestTimeout)
}

func (Client) GetDefaultLocale() string {
	return GetEnv("WAREHOUSE_DEFAULT_LOCALE", DefaultLocale)
}

// GetRateLimit is the sustained requests per second allowed by the client.
// Zero disables limiting.
func (Client) GetRateLimit() float64 {
	return GetFloat("WAREHOUSE_RATE_LIMIT", 0)
}

func (Client) GetRateBurst() int {
	return GetInt("WAREHOUSE_RATE_BURST", 10)
}

func (Client) GetMaintenanceFallback() time.Duration {
	return GetDuration("WAREHOUSE_MAINTENANCE_FALLBACK", 100*time.Millisecond)
}
