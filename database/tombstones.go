package database

import (
	"database/sql"
	"fmt"

	"github.com/cmplx-xyttmt/personal-finance-tracker/models"
)

func insertTombstone(tx *sql.Tx, table, itemID string, now int64) error {
	_, err := tx.Exec(`
		INSERT INTO deleted_records (item_id, table_name, updated_at, synced)
		VALUES (?, ?, ?, 0)
	`, itemID, table, now)
	return err
}

// DirtyTombstones returns the deletions not yet propagated to the remote.
func DirtyTombstones() ([]models.DeletedRecord, error) {
	rows, err := DB.Query(`
		SELECT id, item_id, table_name, updated_at, synced
		FROM deleted_records WHERE synced = 0
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.DeletedRecord
	for rows.Next() {
		var r models.DeletedRecord
		if err := rows.Scan(&r.ID, &r.ItemID, &r.Table, &r.UpdatedAt, &r.Synced); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// MarkTombstoneSynced records that a deletion reached the remote backend.
func MarkTombstoneSynced(id int64) error {
	_, err := DB.Exec("UPDATE deleted_records SET synced = 1 WHERE id = ?", id)
	return err
}

// CountTombstones returns the number of tombstones for a (table, item) pair.
func CountTombstones(table, itemID string) (int, error) {
	var n int
	err := DB.QueryRow(`
		SELECT COUNT(*) FROM deleted_records WHERE table_name = ? AND item_id = ?
	`, table, itemID).Scan(&n)
	return n, err
}

// validTable guards the few spots where a table name is interpolated into
// SQL. Only the four synced data tables are addressable this way.
func validTable(table string) error {
	for _, t := range models.SyncedTables {
		if t == table {
			return nil
		}
	}
	return fmt.Errorf("unknown table %q", table)
}

// PurgeRow physically deletes a row without logging a tombstone. Used for
// remote-origin deletions, which already happened on the backend.
func PurgeRow(table, id string) error {
	if err := validTable(table); err != nil {
		return err
	}
	_, err := DB.Exec("DELETE FROM "+table+" WHERE id = ?", id)
	return err
}
