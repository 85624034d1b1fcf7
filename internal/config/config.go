package config

type Config interface {
	EnvConfig
	CorsConfig
	ProviderConfig
	SecurityConfig
	CacheConfig
	StorageConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Provider
	Security
	Cache
	Storage
}

func New() Config {
	return mainConfig{}
}
