package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
)

type DevServerConfig interface {
	GetPort() string
	GetJWTSecret() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetRefreshTokenLength() int
	GetStartInMaintenance() bool
}

type DevServer struct{}

var _ DevServerConfig = DevServer{}

var (
	generatedSecret     string
	generatedSecretOnce sync.Once
)

func (DevServer) GetPort() string {
	port := GetEnv("DEVSERVER_PORT", "4000")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

// GetJWTSecret returns the configured HMAC secret or a random one that is
// stable for the life of the process.
func (DevServer) GetJWTSecret() string {
	if secret := GetEnv("DEVSERVER_JWT_SECRET", ""); secret != "" {
		return secret
	}
	generatedSecretOnce.Do(func() {
		b := make([]byte, 32)
		_, _ = rand.Read(b)
		generatedSecret = hex.EncodeToString(b)
	})
	return generatedSecret
}

func (DevServer) GetAccessTokenExpiry() time.Duration {
	return GetDuration("DEVSERVER_ACCESS_TTL", 15*time.Minute)
}

func (DevServer) GetRefreshTokenExpiry() time.Duration {
	return GetDuration("DEVSERVER_REFRESH_TTL", 30*24*time.Hour)
}

func (DevServer) GetRefreshTokenLength() int {
	return 32 // 32 bytes = 256 bits
}

func (DevServer) GetStartInMaintenance() bool {
	return GetBool("DEVSERVER_MAINTENANCE", false)
}
