package services

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/cmplx-xyttmt/personal-finance-tracker/database"
	"github.com/cmplx-xyttmt/personal-finance-tracker/models"
)

const backupVersion = "1.0.0"

// BackupData is the on-disk backup format. The tombstone log is not
// exported: a restored replica re-syncs from its own state.
type BackupData struct {
	Version      string               `json:"version"`
	ExportDate   string               `json:"exportDate"`
	Months       []models.Month       `json:"months"`
	Budgets      []models.Budget      `json:"budgets"`
	Transactions []models.Transaction `json:"transactions"`
	Bonds        []models.Bond        `json:"bonds"`
}

// ExportBackup snapshots the four data tables.
func ExportBackup() (*BackupData, error) {
	months, err := database.ListMonths()
	if err != nil {
		return nil, err
	}

	budgets, err := allBudgets()
	if err != nil {
		return nil, err
	}

	txns, err := allTransactions()
	if err != nil {
		return nil, err
	}

	bonds, err := database.ListBonds()
	if err != nil {
		return nil, err
	}

	// Empty tables serialize as [] rather than null so the file always
	// passes the import validation.
	if months == nil {
		months = []models.Month{}
	}
	if budgets == nil {
		budgets = []models.Budget{}
	}
	if txns == nil {
		txns = []models.Transaction{}
	}
	if bonds == nil {
		bonds = []models.Bond{}
	}

	return &BackupData{
		Version:      backupVersion,
		ExportDate:   time.Now().UTC().Format(time.RFC3339),
		Months:       months,
		Budgets:      budgets,
		Transactions: txns,
		Bonds:        bonds,
	}, nil
}

// ImportBackup restores a backup, completely replacing the current data.
func ImportBackup(r io.Reader) error {
	// Pointer slices so a file missing one of the arrays is rejected
	// instead of silently wiping that table.
	var raw struct {
		Version      *string               `json:"version"`
		Months       *[]models.Month       `json:"months"`
		Budgets      *[]models.Budget      `json:"budgets"`
		Transactions *[]models.Transaction `json:"transactions"`
		Bonds        *[]models.Bond        `json:"bonds"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return fmt.Errorf("invalid backup file: %w", err)
	}
	if raw.Version == nil || raw.Months == nil || raw.Budgets == nil || raw.Transactions == nil || raw.Bonds == nil {
		return fmt.Errorf("invalid backup file format")
	}

	return database.ReplaceAll(*raw.Months, *raw.Budgets, *raw.Transactions, *raw.Bonds)
}

func allBudgets() ([]models.Budget, error) {
	rows, err := database.DB.Query(`
		SELECT id, month_id, category, planned_amount, tag, updated_at, synced
		FROM budgets ORDER BY month_id, category
	`)
	if err != nil {
		return nil, err
	}
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

func allTransactions() ([]models.Transaction, error) {
	rows, err := database.DB.Query(`
		SELECT id, budget_id, amount, description, date, updated_at, synced
		FROM transactions ORDER BY date
	`)
	if err != nil {
		return nil, err
	}
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
