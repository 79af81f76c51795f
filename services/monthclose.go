package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cmplx-xyttmt/personal-finance-tracker/database"
	"github.com/cmplx-xyttmt/personal-finance-tracker/models"
)

// Disposition choices for a month-close surplus. A deficit has no choice:
// it always carries forward into the next month.
const (
	DispositionSavings  = "savings"
	DispositionRollover = "rollover"
)

type CloseMonthRequest struct {
	MonthID string `json:"monthId"`
	// Disposition is required when the month closes with a surplus.
	Disposition string `json:"disposition,omitempty"`
	// SavingsBudgetID selects the savings-tagged budget receiving the
	// surplus when Disposition is "savings".
	SavingsBudgetID string `json:"savingsBudgetId,omitempty"`
}

type CloseMonthResult struct {
	MonthID     string  `json:"monthId"`
	NextMonthID string  `json:"nextMonthId"`
	Actual      float64 `json:"actual"`
	Surplus     float64 `json:"surplus"`
}

// CloseMonth rolls a month over into the next one: the next month gets its
// template budgets and a Month record carrying the income expectation, and
// the surplus or deficit is posted according to the disposition. The whole
// transition commits in one local transaction, so a failure cannot leave a
// half-closed month. Every row it touches is written dirty and propagates
// on the next sync.
func CloseMonth(req CloseMonthRequest) (*CloseMonthResult, error) {
	month, err := database.GetMonth(req.MonthID)
	if err != nil {
		return nil, err
	}
	if month == nil {
		return nil, fmt.Errorf("month %s not found", req.MonthID)
	}

	nextID, err := models.NextMonthID(month.ID)
	if err != nil {
		return nil, err
	}

	tx, err := database.DB.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now()
	nowMS := now.UnixMilli()

	var actual float64
	err = tx.QueryRow(`
		SELECT COALESCE(SUM(t.amount), 0)
		FROM transactions t
		JOIN budgets b ON t.budget_id = b.id
		WHERE b.month_id = ?
	`, month.ID).Scan(&actual)
	if err != nil {
		return nil, err
	}
	surplus := month.ExpectedIncome - actual

	// Validate the disposition before any write so nothing partial commits.
	if surplus > 0 {
		switch req.Disposition {
		case DispositionSavings:
			var tag string
			err := tx.QueryRow(`
				SELECT tag FROM budgets WHERE id = ? AND month_id = ?
			`, req.SavingsBudgetID, month.ID).Scan(&tag)
			if err != nil {
				return nil, fmt.Errorf("savings budget %s not found in %s", req.SavingsBudgetID, month.ID)
			}
			if tag != models.TagSavings {
				return nil, fmt.Errorf("budget %s is not savings-tagged", req.SavingsBudgetID)
			}
		case DispositionRollover:
		default:
			return nil, fmt.Errorf("month %s closes with a surplus, disposition required", month.ID)
		}
	}

	// Next month's Month record, carrying the income expectation forward.
	var exists int
	if err := tx.QueryRow("SELECT COUNT(*) FROM months WHERE id = ?", nextID).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		_, err := tx.Exec(`
			INSERT INTO months (id, expected_income, savings_goal, updated_at, synced)
			VALUES (?, ?, ?, ?, 0)
		`, nextID, month.ExpectedIncome, month.SavingsGoal, nowMS)
		if err != nil {
			return nil, err
		}
	}

	// Next month's budget categories from the template, dedup on
	// (month, category) so a partially populated month is topped up, not
	// duplicated.
	existing := map[string]bool{}
	rows, err := tx.Query("SELECT category FROM budgets WHERE month_id = ?", nextID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			rows.Close()
			return nil, err
		}
		existing[category] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, t := range models.BudgetTemplate {
		if existing[t.Category] {
			continue
		}
		_, err := tx.Exec(`
			INSERT INTO budgets (id, month_id, category, planned_amount, tag, updated_at, synced)
			VALUES (?, ?, ?, ?, ?, ?, 0)
		`, uuid.NewString(), nextID, t.Category, t.PlannedAmount, t.Tag, nowMS)
		if err != nil {
			return nil, err
		}
	}

	date := now.UTC().Format(time.RFC3339)
	switch {
	case surplus > 0 && req.Disposition == DispositionSavings:
		// Zero the surplus inside the current month's books by spending it
		// into the chosen savings budget.
		_, err := tx.Exec(`
			INSERT INTO transactions (id, budget_id, amount, description, date, updated_at, synced)
			VALUES (?, ?, ?, ?, ?, ?, 0)
		`, uuid.NewString(), req.SavingsBudgetID, surplus, "Surplus to savings ("+month.ID+")", date, nowMS)
		if err != nil {
			return nil, err
		}
	case surplus > 0 && req.Disposition == DispositionRollover:
		// A negative amount on next month's rollover budget frees up funds.
		budgetID, err := ensureRolloverBudget(tx, nextID, existing, nowMS)
		if err != nil {
			return nil, err
		}
		_, err = tx.Exec(`
			INSERT INTO transactions (id, budget_id, amount, description, date, updated_at, synced)
			VALUES (?, ?, ?, ?, ?, ?, 0)
		`, uuid.NewString(), budgetID, -surplus, "Rollover from "+month.ID, date, nowMS)
		if err != nil {
			return nil, err
		}
	case surplus < 0:
		// Deficit: the debt consumes next month's funds, no choice offered.
		budgetID, err := ensureRolloverBudget(tx, nextID, existing, nowMS)
		if err != nil {
			return nil, err
		}
		_, err = tx.Exec(`
			INSERT INTO transactions (id, budget_id, amount, description, date, updated_at, synced)
			VALUES (?, ?, ?, ?, ?, ?, 0)
		`, uuid.NewString(), budgetID, -surplus, "Deficit carried from "+month.ID, date, nowMS)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &CloseMonthResult{
		MonthID:     month.ID,
		NextMonthID: nextID,
		Actual:      actual,
		Surplus:     surplus,
	}, nil
}

type txLike interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// ensureRolloverBudget finds or creates the "Rollover Adjustment" budget
// (plannedAmount 0) in the given month.
func ensureRolloverBudget(tx txLike, monthID string, existing map[string]bool, nowMS int64) (string, error) {
	if existing[models.RolloverCategory] {
		var id string
		err := tx.QueryRow(`
			SELECT id FROM budgets WHERE month_id = ? AND category = ?
		`, monthID, models.RolloverCategory).Scan(&id)
		return id, err
	}

	id := uuid.NewString()
	_, err := tx.Exec(`
		INSERT INTO budgets (id, month_id, category, planned_amount, tag, updated_at, synced)
		VALUES (?, ?, ?, 0, ?, ?, 0)
	`, id, monthID, models.RolloverCategory, models.TagVariable, nowMS)
	if err != nil {
		return "", err
	}
	existing[models.RolloverCategory] = true
	return id, nil
}
