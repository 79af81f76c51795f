package services

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmplx-xyttmt/personal-finance-tracker/database"
	"github.com/cmplx-xyttmt/personal-finance-tracker/models"
)

func TestBackupRoundTrip(t *testing.T) {
	setupTestDB(t)

	require.NoError(t, database.PutMonth(&models.Month{ID: "2025-06", ExpectedIncome: 1000000}))
	require.NoError(t, database.PutBudget(&models.Budget{ID: "b1", MonthID: "2025-06", Category: "Food", PlannedAmount: 100}))
	require.NoError(t, database.PutTransaction(&models.Transaction{ID: "t1", BudgetID: "b1", Amount: 42, Date: "2025-06-01"}))
	require.NoError(t, database.PutBond(&models.Bond{ID: "bond1", Principal: 1000, Rate: 0.1, PurchaseDate: "2025-01-01", DurationYears: 2}))

	backup, err := ExportBackup()
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", backup.Version)
	assert.NotEmpty(t, backup.ExportDate)
	assert.Len(t, backup.Months, 1)
	assert.Len(t, backup.Budgets, 1)
	assert.Len(t, backup.Transactions, 1)
	assert.Len(t, backup.Bonds, 1)

	raw, err := json.Marshal(backup)
	require.NoError(t, err)

	// Overwrite the current state, then restore from the export.
	require.NoError(t, database.ClearData())
	require.NoError(t, database.PutMonth(&models.Month{ID: "1999-01"}))

	require.NoError(t, ImportBackup(bytes.NewReader(raw)))

	gone, err := database.GetMonth("1999-01")
	require.NoError(t, err)
	assert.Nil(t, gone)

	m, err := database.GetMonth("2025-06")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, float64(1000000), m.ExpectedIncome)

	txns, err := database.ListTransactionsByBudget("b1")
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, float64(42), txns[0].Amount)
}

func TestExportBackupWithEmptyTablesReimports(t *testing.T) {
	setupTestDB(t)

	require.NoError(t, database.PutMonth(&models.Month{ID: "2025-06"}))

	backup, err := ExportBackup()
	require.NoError(t, err)

	// Tables with no rows still serialize as arrays, never null, so the
	// export is always a valid import.
	raw, err := json.Marshal(backup)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "null")

	require.NoError(t, ImportBackup(bytes.NewReader(raw)))

	m, err := database.GetMonth("2025-06")
	require.NoError(t, err)
	require.NotNil(t, m)
}

func TestImportBackupRejectsMissingArrays(t *testing.T) {
	setupTestDB(t)

	require.NoError(t, database.PutMonth(&models.Month{ID: "2025-06"}))

	// No bonds array: the file is rejected and nothing is wiped.
	err := ImportBackup(strings.NewReader(`{
		"version": "1.0.0",
		"months": [],
		"budgets": [],
		"transactions": []
	}`))
	require.Error(t, err)

	m, err := database.GetMonth("2025-06")
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestImportBackupRejectsGarbage(t *testing.T) {
	setupTestDB(t)

	assert.Error(t, ImportBackup(strings.NewReader("not json")))
}
