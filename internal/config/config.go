package config

import "time"

type Config interface {
	EnvConfig
	ClientConfig
	SessionConfig
	NotificationConfig
	DevServerConfig
}

type EnvConfig interface {
	GetAppName() string
	GetDataFolder() string
	GetEnv() string
	GetLogLevel() string
	GetSentryDSN() string
	GetMetricsAddr() string
}

type ClientConfig interface {
	GetBaseURL() string
	GetRequestTimeout() time.Duration
	GetDefaultLocale() string
	GetRateLimit() float64
	GetRateBurst() int
	GetMaintenanceFallback() time.Duration
}

type NotificationConfig interface {
	GetNotificationInterval() time.Duration
}

type mainConfig struct {
	EnvVars
	Client
	Session
	Notifications
	DevServer
}

func New() Config {
	return mainConfig{}
}
