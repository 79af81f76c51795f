package services

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmplx-xyttmt/personal-finance-tracker/database"
	"github.com/cmplx-xyttmt/personal-finance-tracker/models"
)

func setupTestDB(t *testing.T) {
	t.Helper()
	os.Setenv("TEST_DB", "1")
	require.NoError(t, database.InitDB())
	require.NoError(t, database.ClearData())
	_, err := database.DB.Exec("DELETE FROM sync_state")
	require.NoError(t, err)
	t.Cleanup(func() { database.DB.Close() })
}

// seedMonth creates a month with one spending budget and one savings budget.
func seedMonth(t *testing.T, id string, expectedIncome, spent float64) {
	t.Helper()
	require.NoError(t, database.PutMonth(&models.Month{ID: id, ExpectedIncome: expectedIncome, SavingsGoal: 500000}))
	require.NoError(t, database.PutBudget(&models.Budget{ID: "spend", MonthID: id, Category: "Weekly Groceries", PlannedAmount: 800000, Tag: models.TagVariable}))
	require.NoError(t, database.PutBudget(&models.Budget{ID: "sav", MonthID: id, Category: "Travel Fund", PlannedAmount: 500000, Tag: models.TagSavings}))
	if spent != 0 {
		require.NoError(t, database.PutTransaction(&models.Transaction{ID: "t-spend", BudgetID: "spend", Amount: spent, Date: id + "-15"}))
	}
}

func TestCloseMonthSurplusToSavings(t *testing.T) {
	setupTestDB(t)
	seedMonth(t, "2025-06", 1000000, 700000)

	result, err := CloseMonth(CloseMonthRequest{
		MonthID:         "2025-06",
		Disposition:     DispositionSavings,
		SavingsBudgetID: "sav",
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-07", result.NextMonthID)
	assert.Equal(t, float64(700000), result.Actual)
	assert.Equal(t, float64(300000), result.Surplus)

	// The surplus became a spend into the savings budget of the closed month.
	txns, err := database.ListTransactionsByBudget("sav")
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, float64(300000), txns[0].Amount)
	assert.False(t, txns[0].Synced)

	// Next month carries the income expectation and the template categories.
	next, err := database.GetMonth("2025-07")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, float64(1000000), next.ExpectedIncome)
	assert.False(t, next.Synced)

	budgets, err := database.ListBudgetsByMonth("2025-07")
	require.NoError(t, err)
	assert.Len(t, budgets, len(models.BudgetTemplate))
	for _, b := range budgets {
		assert.False(t, b.Synced)
	}
}

func TestCloseMonthSurplusRollsOver(t *testing.T) {
	setupTestDB(t)
	seedMonth(t, "2025-06", 1000000, 700000)

	result, err := CloseMonth(CloseMonthRequest{MonthID: "2025-06", Disposition: DispositionRollover})
	require.NoError(t, err)
	assert.Equal(t, float64(300000), result.Surplus)

	budgets, err := database.ListBudgetsByMonth("2025-07")
	require.NoError(t, err)

	var rollover *models.Budget
	for i := range budgets {
		if budgets[i].Category == models.RolloverCategory {
			rollover = &budgets[i]
		}
	}
	require.NotNil(t, rollover)
	assert.Equal(t, float64(0), rollover.PlannedAmount)

	// A negative amount credits next month with the carried surplus.
	txns, err := database.ListTransactionsByBudget(rollover.ID)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, float64(-300000), txns[0].Amount)
}

func TestCloseMonthDeficitCarriesForward(t *testing.T) {
	setupTestDB(t)
	seedMonth(t, "2025-06", 1000000, 1200000)

	// A deficit needs no disposition.
	result, err := CloseMonth(CloseMonthRequest{MonthID: "2025-06"})
	require.NoError(t, err)
	assert.Equal(t, float64(-200000), result.Surplus)

	budgets, err := database.ListBudgetsByMonth("2025-07")
	require.NoError(t, err)

	var rollover *models.Budget
	for i := range budgets {
		if budgets[i].Category == models.RolloverCategory {
			rollover = &budgets[i]
		}
	}
	require.NotNil(t, rollover)

	// The debt consumes next month's funds as a positive spend.
	txns, err := database.ListTransactionsByBudget(rollover.ID)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, float64(200000), txns[0].Amount)
}

func TestCloseMonthSurplusRequiresDisposition(t *testing.T) {
	setupTestDB(t)
	seedMonth(t, "2025-06", 1000000, 700000)

	_, err := CloseMonth(CloseMonthRequest{MonthID: "2025-06"})
	require.Error(t, err)

	// Nothing committed: no next month, no new budgets.
	next, err := database.GetMonth("2025-07")
	require.NoError(t, err)
	assert.Nil(t, next)
	budgets, err := database.ListBudgetsByMonth("2025-07")
	require.NoError(t, err)
	assert.Empty(t, budgets)
}

func TestCloseMonthRejectsNonSavingsBudget(t *testing.T) {
	setupTestDB(t)
	seedMonth(t, "2025-06", 1000000, 700000)

	_, err := CloseMonth(CloseMonthRequest{
		MonthID:         "2025-06",
		Disposition:     DispositionSavings,
		SavingsBudgetID: "spend",
	})
	require.Error(t, err)
}

func TestCloseMonthTopsUpPartialNextMonth(t *testing.T) {
	setupTestDB(t)
	seedMonth(t, "2025-06", 1000000, 1000000) // break even, no disposition needed

	// Next month already has one of the template categories.
	require.NoError(t, database.PutBudget(&models.Budget{
		ID: "pre", MonthID: "2025-07", Category: models.BudgetTemplate[0].Category, PlannedAmount: 123,
	}))

	_, err := CloseMonth(CloseMonthRequest{MonthID: "2025-06"})
	require.NoError(t, err)

	budgets, err := database.ListBudgetsByMonth("2025-07")
	require.NoError(t, err)
	assert.Len(t, budgets, len(models.BudgetTemplate), "existing category must not be duplicated")

	pre, err := database.GetBudget("pre")
	require.NoError(t, err)
	require.NotNil(t, pre)
	assert.Equal(t, float64(123), pre.PlannedAmount)
}

func TestCloseMonthMissingMonth(t *testing.T) {
	setupTestDB(t)

	_, err := CloseMonth(CloseMonthRequest{MonthID: "2025-06"})
	require.Error(t, err)
}
