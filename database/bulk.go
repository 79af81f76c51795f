package database

import "github.com/cmplx-xyttmt/personal-finance-tracker/models"

// ReplaceAll swaps the full contents of the four data tables in one
// transaction. Used by backup import, which replaces rather than merges.
func ReplaceAll(months []models.Month, budgets []models.Budget, txns []models.Transaction, bonds []models.Bond) error {
	tx, err := DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"months", "budgets", "transactions", "bonds"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return err
		}
	}

	for _, m := range months {
		_, err := tx.Exec(`
			INSERT INTO months (id, expected_income, savings_goal, updated_at, synced)
			VALUES (?, ?, ?, ?, ?)
		`, m.ID, m.ExpectedIncome, m.SavingsGoal, m.UpdatedAt, m.Synced)
		if err != nil {
			return err
		}
	}
	for _, b := range budgets {
		_, err := tx.Exec(`
			INSERT INTO budgets (id, month_id, category, planned_amount, tag, updated_at, synced)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, b.ID, b.MonthID, b.Category, b.PlannedAmount, b.Tag, b.UpdatedAt, b.Synced)
		if err != nil {
			return err
		}
	}
	for _, t := range txns {
		_, err := tx.Exec(`
			INSERT INTO transactions (id, budget_id, amount, description, date, updated_at, synced)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, t.ID, t.BudgetID, t.Amount, t.Description, t.Date, t.UpdatedAt, t.Synced)
		if err != nil {
			return err
		}
	}
	for _, b := range bonds {
		_, err := tx.Exec(`
			INSERT INTO bonds (id, principal, rate, purchase_date, duration_years, updated_at, synced)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, b.ID, b.Principal, b.Rate, b.PurchaseDate, b.DurationYears, b.UpdatedAt, b.Synced)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}
