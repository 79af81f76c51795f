package database

import (
	"database/sql"

	"github.com/cmplx-xyttmt/personal-finance-tracker/models"
)

// PutBond writes a local edit, stamping updated_at and the dirty flag.
func PutBond(b *models.Bond) error {
	b.UpdatedAt = nowMillis()
	b.Synced = false

	_, err := DB.Exec(`
		INSERT INTO bonds (id, principal, rate, purchase_date, duration_years, updated_at, synced)
		VALUES (?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(id) DO UPDATE SET
			principal = excluded.principal,
			rate = excluded.rate,
			purchase_date = excluded.purchase_date,
			duration_years = excluded.duration_years,
			updated_at = excluded.updated_at,
			synced = 0
	`, b.ID, b.Principal, b.Rate, b.PurchaseDate, b.DurationYears, b.UpdatedAt)
	return err
}

// ApplyRemoteBond upserts a remote-origin row, skipping locally dirty rows
// unless force is set.
func ApplyRemoteBond(b models.Bond, force bool) error {
	query := `
		INSERT INTO bonds (id, principal, rate, purchase_date, duration_years, updated_at, synced)
		VALUES (?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(id) DO UPDATE SET
			principal = excluded.principal,
			rate = excluded.rate,
			purchase_date = excluded.purchase_date,
			duration_years = excluded.duration_years,
			updated_at = excluded.updated_at,
			synced = 1
	`
	if !force {
		query += " WHERE bonds.synced = 1"
	}
	_, err := DB.Exec(query, b.ID, b.Principal, b.Rate, b.PurchaseDate, b.DurationYears, b.UpdatedAt)
	return err
}

func GetBond(id string) (*models.Bond, error) {
	var b models.Bond
	err := DB.QueryRow(`
		SELECT id, principal, rate, purchase_date, duration_years, updated_at, synced
		FROM bonds WHERE id = ?
	`, id).Scan(&b.ID, &b.Principal, &b.Rate, &b.PurchaseDate, &b.DurationYears, &b.UpdatedAt, &b.Synced)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func scanBonds(rows *sql.Rows) ([]models.Bond, error) {
	defer rows.Close()
	var bonds []models.Bond
	for rows.Next() {
		var b models.Bond
		if err := rows.Scan(&b.ID, &b.Principal, &b.Rate, &b.PurchaseDate, &b.DurationYears, &b.UpdatedAt, &b.Synced); err != nil {
			return nil, err
		}
		bonds = append(bonds, b)
	}
	return bonds, rows.Err()
}

func ListBonds() ([]models.Bond, error) {
	rows, err := DB.Query(`
		SELECT id, principal, rate, purchase_date, duration_years, updated_at, synced
		FROM bonds ORDER BY purchase_date
	`)
	if err != nil {
		return nil, err
	}
	return scanBonds(rows)
}

func DirtyBonds() ([]models.Bond, error) {
	rows, err := DB.Query(`
		SELECT id, principal, rate, purchase_date, duration_years, updated_at, synced
		FROM bonds WHERE synced = 0
	`)
	if err != nil {
		return nil, err
	}
	return scanBonds(rows)
}

// DeleteBond removes a bond and logs its tombstone in one transaction.
func DeleteBond(id string) error {
	tx, err := DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM bonds WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		if err := insertTombstone(tx, models.TableBonds, id, nowMillis()); err != nil {
			return err
		}
	}
	return tx.Commit()
}
