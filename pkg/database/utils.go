package database

import (
	"fmt"
	"os"
)

// DatabaseExists checks if a database file exists
func DatabaseExists(dbPath string) bool {
	_, err := os.Stat(dbPath)
	return !os.IsNotExist(err)
}

// GetDatabaseSize returns the size of the database file in bytes
func GetDatabaseSize(dbPath string) (int64, error) {
	info, err := os.Stat(dbPath)
	if err != nil {
		return 0, fmt.Errorf("failed to get database file info: %w", err)
	}

	return info.Size(), nil
}

// VacuumDatabase runs VACUUM on the database to reclaim space
func VacuumDatabase(db *Database) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.db.Exec("VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}

	return nil
}

// GetDatabaseInfo returns information about the database
func GetDatabaseInfo(db *Database) (map[string]any, error) {
	info := make(map[string]any)

	var version string
	err := db.DB().QueryRow("SELECT sqlite_version()").Scan(&version)
	if err != nil {
		return nil, fmt.Errorf("failed to get SQLite version: %w", err)
	}
	info["sqlite_version"] = version

	if size, err := GetDatabaseSize(db.Path()); err == nil {
		info["file_size_bytes"] = size
	}

	var tableCount int
	err = db.DB().QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table'").Scan(&tableCount)
	if err != nil {
		return nil, fmt.Errorf("failed to get table count: %w", err)
	}
	info["table_count"] = tableCount

	return info, nil
}
