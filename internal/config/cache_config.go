package config

import "time"

type CacheConfig interface {
	GetMetricsCacheTTL() time.Duration
}

type Cache struct{}

var _ CacheConfig = Cache{}

func (Cache) GetMetricsCacheTTL() time.Duration {
	return durationEnv("METRICS_CACHE_TTL", 1*time.Hour)
}
