package database

import "database/sql"

// Well-known sync_state keys.
const (
	WatermarkKey = "last_sync_timestamp"
	SessionKey   = "auth_session"
)

// GetSyncState returns the stored value for a key, or "" if absent.
func GetSyncState(key string) (string, error) {
	var value string
	err := DB.QueryRow("SELECT value FROM sync_state WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func SetSyncState(key, value string) error {
	_, err := DB.Exec(`
		INSERT INTO sync_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func DeleteSyncState(key string) error {
	_, err := DB.Exec("DELETE FROM sync_state WHERE key = ?", key)
	return err
}

// MarkRowSynced clears the dirty flag of one row and adopts the
// authoritative remote timestamp after a successful push.
func MarkRowSynced(table, id string, updatedAt int64) error {
	if err := validTable(table); err != nil {
		return err
	}
	_, err := DB.Exec("UPDATE "+table+" SET synced = 1, updated_at = ? WHERE id = ?", updatedAt, id)
	return err
}

// MarkRowsSynced optimistically clears the dirty flag of a pushed batch,
// stamping the local push time. Fallback for when the re-fetch after a
// push fails.
func MarkRowsSynced(table string, ids []string, updatedAt int64) error {
	if err := validTable(table); err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := DB.Exec("UPDATE "+table+" SET synced = 1, updated_at = ? WHERE id = ?", updatedAt, id); err != nil {
			return err
		}
	}
	return nil
}

// MarkAllUnsynced flags every row of the four data tables dirty, forcing a
// full re-push on the next sync.
func MarkAllUnsynced() error {
	tables := []string{"months", "budgets", "transactions", "bonds"}
	for _, table := range tables {
		if _, err := DB.Exec("UPDATE " + table + " SET synced = 0"); err != nil {
			return err
		}
	}
	return nil
}
