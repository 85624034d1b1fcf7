package config

import (
	"strconv"
	"time"
)

type SecurityConfig interface {
	GetStateSecret() string
	GetStateTokenTTL() time.Duration
	GetNetworkTimeout() time.Duration
	GetMaxRetryAttempts() int
	GetMaxSessionAge() time.Duration
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetStateSecret is the secret the signed OAuth state tokens are derived from.
func (Security) GetStateSecret() string {
	return GetEnv("STATE_SECRET", "dev-state-secret-change-me")
}

func (Security) GetStateTokenTTL() time.Duration {
	return durationEnv("STATE_TOKEN_TTL", 15*time.Minute)
}

func (Security) GetNetworkTimeout() time.Duration {
	return durationEnv("NETWORK_TIMEOUT", 30*time.Second)
}

func (Security) GetMaxRetryAttempts() int {
	if v, err := strconv.Atoi(GetEnv("MAX_RETRY_ATTEMPTS", "3")); err == nil && v > 0 {
		return v
	}
	return 3
}

func (Security) GetMaxSessionAge() time.Duration {
	return durationEnv("MAX_SESSION_AGE", 30*time.Minute)
}

func durationEnv(envVar string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(GetEnv(envVar, "")); err == nil && v > 0 {
		return v
	}
	return defaultValue
}
