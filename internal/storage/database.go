package storage

import (
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the record store and migrates the three tables: secondary
// grants, cached reports, and the token audit trail. Supported drivers:
// "sqlite" and "postgres".
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, errors.Errorf("[storage.Open] unsupported driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "[storage.Open] gorm.Open")
	}

	if err := db.AutoMigrate(&GrantModel{}, &CachedReportModel{}, &AuditEntryModel{}); err != nil {
		return nil, errors.Wrap(err, "[storage.Open] AutoMigrate")
	}

	return db, nil
}
