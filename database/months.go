package database

import (
	"database/sql"

	"github.com/cmplx-xyttmt/personal-finance-tracker/models"
)

// PutMonth writes a local edit. The store stamps updated_at and marks the
// row unsynced; every local mutation goes through here so the dirty flag
// can never be forgotten.
func PutMonth(m *models.Month) error {
	m.UpdatedAt = nowMillis()
	m.Synced = false

	_, err := DB.Exec(`
		INSERT INTO months (id, expected_income, savings_goal, updated_at, synced)
		VALUES (?, ?, ?, ?, 0)
		ON CONFLICT(id) DO UPDATE SET
			expected_income = excluded.expected_income,
			savings_goal = excluded.savings_goal,
			updated_at = excluded.updated_at,
			synced = 0
	`, m.ID, m.ExpectedIncome, m.SavingsGoal, m.UpdatedAt)
	return err
}

// ApplyRemoteMonth upserts a remote-origin row. The row keeps the remote
// timestamp and lands synced. Unless force is set, a locally dirty row is
// left untouched: the pending local edit wins until its push clears the
// flag. Force is reserved for recovery pulls.
func ApplyRemoteMonth(m models.Month, force bool) error {
	query := `
		INSERT INTO months (id, expected_income, savings_goal, updated_at, synced)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT(id) DO UPDATE SET
			expected_income = excluded.expected_income,
			savings_goal = excluded.savings_goal,
			updated_at = excluded.updated_at,
			synced = 1
	`
	if !force {
		query += " WHERE months.synced = 1"
	}
	_, err := DB.Exec(query, m.ID, m.ExpectedIncome, m.SavingsGoal, m.UpdatedAt)
	return err
}

func GetMonth(id string) (*models.Month, error) {
	var m models.Month
	err := DB.QueryRow(`
		SELECT id, expected_income, savings_goal, updated_at, synced
		FROM months WHERE id = ?
	`, id).Scan(&m.ID, &m.ExpectedIncome, &m.SavingsGoal, &m.UpdatedAt, &m.Synced)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func ListMonths() ([]models.Month, error) {
	rows, err := DB.Query(`
		SELECT id, expected_income, savings_goal, updated_at, synced
		FROM months ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var months []models.Month
	for rows.Next() {
		var m models.Month
		if err := rows.Scan(&m.ID, &m.ExpectedIncome, &m.SavingsGoal, &m.UpdatedAt, &m.Synced); err != nil {
			return nil, err
		}
		months = append(months, m)
	}
	return months, rows.Err()
}

func DirtyMonths() ([]models.Month, error) {
	rows, err := DB.Query(`
		SELECT id, expected_income, savings_goal, updated_at, synced
		FROM months WHERE synced = 0
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var months []models.Month
	for rows.Next() {
		var m models.Month
		if err := rows.Scan(&m.ID, &m.ExpectedIncome, &m.SavingsGoal, &m.UpdatedAt, &m.Synced); err != nil {
			return nil, err
		}
		months = append(months, m)
	}
	return months, rows.Err()
}

// DeleteMonth removes a month and everything it owns, logging one tombstone
// per physically deleted row, all in a single transaction.
func DeleteMonth(id string) error {
	tx, err := DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := nowMillis()

	budgetIDs, err := columnIDs(tx, "SELECT id FROM budgets WHERE month_id = ?", id)
	if err != nil {
		return err
	}
	for _, bid := range budgetIDs {
		if err := deleteBudgetTx(tx, bid, now); err != nil {
			return err
		}
	}

	res, err := tx.Exec("DELETE FROM months WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		if err := insertTombstone(tx, models.TableMonths, id, now); err != nil {
			return err
		}
	}

	return tx.Commit()
}
