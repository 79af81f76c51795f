package database

import (
	"database/sql"

	"github.com/cmplx-xyttmt/personal-finance-tracker/models"
)

// PutBudget writes a local edit, stamping updated_at and the dirty flag.
func PutBudget(b *models.Budget) error {
	b.UpdatedAt = nowMillis()
	b.Synced = false

	_, err := DB.Exec(`
		INSERT INTO budgets (id, month_id, category, planned_amount, tag, updated_at, synced)
		VALUES (?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(id) DO UPDATE SET
			month_id = excluded.month_id,
			category = excluded.category,
			planned_amount = excluded.planned_amount,
			tag = excluded.tag,
			updated_at = excluded.updated_at,
			synced = 0
	`, b.ID, b.MonthID, b.Category, b.PlannedAmount, b.Tag, b.UpdatedAt)
	return err
}

// ApplyRemoteBudget upserts a remote-origin row, skipping locally dirty
// rows unless force is set.
func ApplyRemoteBudget(b models.Budget, force bool) error {
	query := `
		INSERT INTO budgets (id, month_id, category, planned_amount, tag, updated_at, synced)
		VALUES (?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(id) DO UPDATE SET
			month_id = excluded.month_id,
			category = excluded.category,
			planned_amount = excluded.planned_amount,
			tag = excluded.tag,
			updated_at = excluded.updated_at,
			synced = 1
	`
	if !force {
		query += " WHERE budgets.synced = 1"
	}
	_, err := DB.Exec(query, b.ID, b.MonthID, b.Category, b.PlannedAmount, b.Tag, b.UpdatedAt)
	return err
}

func GetBudget(id string) (*models.Budget, error) {
	var b models.Budget
	err := DB.QueryRow(`
		SELECT id, month_id, category, planned_amount, tag, updated_at, synced
		FROM budgets WHERE id = ?
	`, id).Scan(&b.ID, &b.MonthID, &b.Category, &b.PlannedAmount, &b.Tag, &b.UpdatedAt, &b.Synced)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func scanBudgets(rows *sql.Rows) ([]models.Budget, error) {
	defer rows.Close()
	var budgets []models.Budget
	for rows.Next() {
		var b models.Budget
		if err := rows.Scan(&b.ID, &b.MonthID, &b.Category, &b.PlannedAmount, &b.Tag, &b.UpdatedAt, &b.Synced); err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func ListBudgetsByMonth(monthID string) ([]models.Budget, error) {
	rows, err := DB.Query(`
		SELECT id, month_id, category, planned_amount, tag, updated_at, synced
		FROM budgets WHERE month_id = ? ORDER BY category
	`, monthID)
	if err != nil {
		return nil, err
	}
	return scanBudgets(rows)
}

func DirtyBudgets() ([]models.Budget, error) {
	rows, err := DB.Query(`
		SELECT id, month_id, category, planned_amount, tag, updated_at, synced
		FROM budgets WHERE synced = 0
	`)
	if err != nil {
		return nil, err
	}
	return scanBudgets(rows)
}

// DeleteBudget removes a budget and its transactions, logging a tombstone
// for every deleted row in the same transaction as the deletes.
func DeleteBudget(id string) error {
	tx, err := DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := deleteBudgetTx(tx, id, nowMillis()); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteBudgetTx(tx *sql.Tx, id string, now int64) error {
	txnIDs, err := columnIDs(tx, "SELECT id FROM transactions WHERE budget_id = ?", id)
	if err != nil {
		return err
	}
	for _, tid := range txnIDs {
		if _, err := tx.Exec("DELETE FROM transactions WHERE id = ?", tid); err != nil {
			return err
		}
		if err := insertTombstone(tx, models.TableTransactions, tid, now); err != nil {
			return err
		}
	}

	res, err := tx.Exec("DELETE FROM budgets WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		if err := insertTombstone(tx, models.TableBudgets, id, now); err != nil {
			return err
		}
	}
	return nil
}

func columnIDs(tx *sql.Tx, query string, args ...interface{}) ([]string, error) {
	rows, err := tx.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
