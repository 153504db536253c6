package database

import (
	"database/sql"

	"barcodescanner/logging"
	"barcodescanner/types"
)

// Archive stores every accepted scan in a sqlite database
type Archive struct {
	db *sql.DB
}

// OpenArchive initializes the archive database at path
func OpenArchive(path string) (*Archive, error) {
	db, err := InitDatabase(path)
	if err != nil {
		return nil, err
	}
	return &Archive{db: db}, nil
}

// Notify stores the record. Write failures are logged and never reach the scan loop.
func (a *Archive) Notify(record types.ScanRecord) {
	if _, err := StoreScan(a.db, record); err != nil {
		logging.LogError("Archiving scan failed: %v", err)
	}
}

// DB exposes the underlying connection for queries
func (a *Archive) DB() *sql.DB {
	return a.db
}

// Close closes the database
func (a *Archive) Close() error {
	return a.db.Close()
}
