package config

type StorageConfig interface {
	GetStorageDriver() string
	GetStorageDSN() string
}

type Storage struct{}

var _ StorageConfig = Storage{}

// GetStorageDriver selects the record store backend: "memory", "sqlite" or
// "postgres".
func (Storage) GetStorageDriver() string {
	return GetEnv("STORAGE_DRIVER", "memory")
}

func (Storage) GetStorageDSN() string {
	return GetEnv("STORAGE_DSN", "./data/connect.db")
}
