package service

import (
	"database/sql"

	"github.com/pressly/goose/v3"

	"github.com/chihung1024/sheet-trading-journal-sub000/internal/database"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/version"
)

// SystemService answers operational questions about the running instance:
// database connectivity and version information.
type SystemService struct {
	db *sql.DB
}

// NewSystemService creates a new SystemService.
func NewSystemService(db *sql.DB) *SystemService {
	return &SystemService{db: db}
}

// CheckHealth verifies database connectivity.
func (s *SystemService) CheckHealth() error {
	return database.HealthCheck(s.db)
}

// VersionInfo carries application and schema version details.
type VersionInfo struct {
	AppVersion string
	DBVersion  int64
}

// CheckVersion returns the application version and the applied migration
// version of the database schema.
func (s *SystemService) CheckVersion() (VersionInfo, error) {
	dbVersion, err := goose.GetDBVersion(s.db)
	if err != nil {
		return VersionInfo{}, err
	}
	return VersionInfo{
		AppVersion: version.Version,
		DBVersion:  dbVersion,
	}, nil
}
