package repositories

import (
	"database/sql"
	"fmt"
	"slices"
)

var sequencedTables = []string{"submissions", "catalog_items"}

// NextSequence atomically increments and returns the next sequence number for the given table.
//
// Sequence numbers order ledger rows for display (e.g. submission #42) independent of UUIDs.
func NextSequence(db *sql.DB, table string) (int, error) {
	if !slices.Contains(sequencedTables, table) {
		return 0, fmt.Errorf("table %q has no sequence", table)
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequenceTable := table + "_sequence"

	if _, err := tx.Exec(fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1", sequenceTable)); err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var sequence int
	if err := tx.QueryRow(fmt.Sprintf("SELECT value FROM %s WHERE id = 1", sequenceTable)).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sequence transaction: %w", err)
	}
	return sequence, nil
}

// rowScanner is satisfied by both [sql.Row] and [sql.Rows].
type rowScanner interface {
	Scan(dest ...any) error
}

func checkAffected(result sql.Result, what, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %s: %w", what, id, errNotFound)
	}
	return nil
}
