package database

import (
	"database/sql"

	"github.com/cmplx-xyttmt/personal-finance-tracker/models"
)

// PutTransaction writes a local edit, stamping updated_at and the dirty flag.
func PutTransaction(t *models.Transaction) error {
	t.UpdatedAt = nowMillis()
	t.Synced = false

	_, err := DB.Exec(`
		INSERT INTO transactions (id, budget_id, amount, description, date, updated_at, synced)
		VALUES (?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(id) DO UPDATE SET
			budget_id = excluded.budget_id,
			amount = excluded.amount,
			description = excluded.description,
			date = excluded.date,
			updated_at = excluded.updated_at,
			synced = 0
	`, t.ID, t.BudgetID, t.Amount, t.Description, t.Date, t.UpdatedAt)
	return err
}

// ApplyRemoteTransaction upserts a remote-origin row, skipping locally
// dirty rows unless force is set.
func ApplyRemoteTransaction(t models.Transaction, force bool) error {
	query := `
		INSERT INTO transactions (id, budget_id, amount, description, date, updated_at, synced)
		VALUES (?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(id) DO UPDATE SET
			budget_id = excluded.budget_id,
			amount = excluded.amount,
			description = excluded.description,
			date = excluded.date,
			updated_at = excluded.updated_at,
			synced = 1
	`
	if !force {
		query += " WHERE transactions.synced = 1"
	}
	_, err := DB.Exec(query, t.ID, t.BudgetID, t.Amount, t.Description, t.Date, t.UpdatedAt)
	return err
}

func GetTransaction(id string) (*models.Transaction, error) {
	var t models.Transaction
	err := DB.QueryRow(`
		SELECT id, budget_id, amount, description, date, updated_at, synced
		FROM transactions WHERE id = ?
	`, id).Scan(&t.ID, &t.BudgetID, &t.Amount, &t.Description, &t.Date, &t.UpdatedAt, &t.Synced)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTransactions(rows *sql.Rows) ([]models.Transaction, error) {
	defer rows.Close()
	var txns []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.BudgetID, &t.Amount, &t.Description, &t.Date, &t.UpdatedAt, &t.Synced); err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func ListTransactionsByBudget(budgetID string) ([]models.Transaction, error) {
	rows, err := DB.Query(`
		SELECT id, budget_id, amount, description, date, updated_at, synced
		FROM transactions WHERE budget_id = ? ORDER BY date DESC
	`, budgetID)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

func DirtyTransactions() ([]models.Transaction, error) {
	rows, err := DB.Query(`
		SELECT id, budget_id, amount, description, date, updated_at, synced
		FROM transactions WHERE synced = 0
	`)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

// DeleteTransaction removes a transaction and logs its tombstone in the
// same local transaction.
func DeleteTransaction(id string) error {
	tx, err := DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		if err := insertTombstone(tx, models.TableTransactions, id, nowMillis()); err != nil {
			return err
		}
	}
	return tx.Commit()
}
