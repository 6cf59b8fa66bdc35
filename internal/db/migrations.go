package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS fines (
		id              BIGSERIAL PRIMARY KEY,
		reference       TEXT NOT NULL,
		plate_number    TEXT NOT NULL,
		owner_name      TEXT,
		owner_id        TEXT,
		fine_type       TEXT NOT NULL,
		amount          NUMERIC(10,2) NOT NULL,
		status_snapshot JSONB,
		issued_at       TIMESTAMPTZ NOT NULL,
		paid            BOOLEAN NOT NULL DEFAULT FALSE,
		paid_at         TIMESTAMPTZ,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_fines_reference ON fines(reference);`,
	`CREATE INDEX IF NOT EXISTS idx_fines_plate_number ON fines(plate_number);`,
	`CREATE INDEX IF NOT EXISTS idx_fines_issued_at ON fines(issued_at);`,
	`CREATE TABLE IF NOT EXISTS scan_logs (
		id              BIGSERIAL PRIMARY KEY,
		plate_number    TEXT NOT NULL,
		scanned_at      TIMESTAMPTZ NOT NULL,
		confidence      NUMERIC(5,2) NOT NULL,
		road_tax_valid  BOOLEAN,
		insurance_valid BOOLEAN,
		fine_issued     BOOLEAN NOT NULL DEFAULT FALSE,
		cached_result   BOOLEAN NOT NULL DEFAULT FALSE,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_scan_logs_plate_number ON scan_logs(plate_number);`,
	`CREATE INDEX IF NOT EXISTS idx_scan_logs_scanned_at ON scan_logs(scanned_at);`,
}

func Migrate(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
