package database

import (
	"database/sql"
	"fmt"
	"time"

	"barcodescanner/logging"
	"barcodescanner/types"

	_ "github.com/mattn/go-sqlite3"
)

// InitDatabase initializes and returns a database connection
func InitDatabase(dbPath string) (*sql.DB, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, err
	}

	// Create table if it doesn't exist
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS scans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		symbology TEXT NOT NULL,
		payload TEXT NOT NULL,
		scanned_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_run_id ON scans(run_id);
	CREATE INDEX IF NOT EXISTS idx_payload ON scans(payload);`

	_, err = db.Exec(createTableSQL)
	if err != nil {
		db.Close()
		return nil, err
	}

	// Archives written before camera tracking lack the camera_index column
	var hasCameraColumn bool
	err = db.QueryRow("SELECT COUNT(*) FROM pragma_table_info('scans') WHERE name='camera_index'").Scan(&hasCameraColumn)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error checking for camera_index column: %w", err)
	}

	if !hasCameraColumn {
		_, err = db.Exec("ALTER TABLE scans ADD COLUMN camera_index INTEGER NOT NULL DEFAULT -1;")
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("error adding camera_index column: %w", err)
		}
		logging.DebugLog("Added 'camera_index' column to archive schema")
	}

	return db, nil
}

// openDatabase opens a database connection without touching the schema
func openDatabase(dbPath string) (*sql.DB, error) {
	return sql.Open("sqlite3", dbPath)
}

// StoreScan inserts an accepted scan and returns its row id
func StoreScan(db *sql.DB, record types.ScanRecord) (int64, error) {
	// Prepare statement to avoid SQL injection
	stmt, err := db.Prepare(`
		INSERT INTO scans (
			run_id, camera_index, symbology, payload, scanned_at
		) VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("cannot prepare statement for %q: %w", record.Payload, err)
	}
	defer stmt.Close()

	res, err := stmt.Exec(
		record.RunID,
		record.CameraIndex,
		record.Symbology,
		record.Payload,
		record.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("cannot insert scan %q: %w", record.Payload, err)
	}

	return res.LastInsertId()
}

// QueryScans returns archived scans oldest first. An empty runID matches
// every run; a limit of zero or less returns everything.
func QueryScans(db *sql.DB, runID string, limit int) ([]types.ScanRecord, error) {
	query := `SELECT id, run_id, camera_index, symbology, payload, scanned_at FROM scans`
	var args []interface{}

	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scans: %w", err)
	}
	defer rows.Close()

	var records []types.ScanRecord
	for rows.Next() {
		var record types.ScanRecord
		var scannedAt string
		if err := rows.Scan(&record.ID, &record.RunID, &record.CameraIndex, &record.Symbology, &record.Payload, &scannedAt); err != nil {
			return nil, fmt.Errorf("failed to read scan row: %w", err)
		}

		record.Timestamp, err = time.Parse(time.RFC3339, scannedAt)
		if err != nil {
			logging.LogWarning("Unparseable timestamp %q for scan %d", scannedAt, record.ID)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// ScanStats contains summary figures for the archive
type ScanStats struct {
	TotalScans     int
	UniquePayloads int
	Runs           int
}

// GetScanStats retrieves statistics about archived scans, optionally for one run
func GetScanStats(db *sql.DB, runID string) (*ScanStats, error) {
	var stats ScanStats

	where := ""
	var args []interface{}
	if runID != "" {
		where = " WHERE run_id = ?"
		args = append(args, runID)
	}

	err := db.QueryRow("SELECT COUNT(*) FROM scans"+where, args...).Scan(&stats.TotalScans)
	if err != nil {
		return nil, fmt.Errorf("failed to get total scans: %w", err)
	}

	err = db.QueryRow("SELECT COUNT(DISTINCT payload) FROM scans"+where, args...).Scan(&stats.UniquePayloads)
	if err != nil {
		return nil, fmt.Errorf("failed to get unique payloads: %w", err)
	}

	err = db.QueryRow("SELECT COUNT(DISTINCT run_id) FROM scans"+where, args...).Scan(&stats.Runs)
	if err != nil {
		return nil, fmt.Errorf("failed to get run count: %w", err)
	}

	return &stats, nil
}
