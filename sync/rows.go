package sync

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cmplx-xyttmt/personal-finance-tracker/models"
)

// Wire rows for the remote schema. The remote uses snake_case columns;
// these structs are the only place the two naming conventions meet.

type monthRow struct {
	ID             string  `json:"id"`
	ExpectedIncome float64 `json:"expected_income"`
	SavingsGoal    float64 `json:"savings_goal"`
	UpdatedAt      string  `json:"updated_at"`
}

type budgetRow struct {
	ID            string  `json:"id"`
	MonthID       string  `json:"month_id"`
	Category      string  `json:"category"`
	PlannedAmount float64 `json:"planned_amount"`
	Tag           string  `json:"tag"`
	UpdatedAt     string  `json:"updated_at"`
}

type transactionRow struct {
	ID          string  `json:"id"`
	BudgetID    string  `json:"budget_id"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	UpdatedAt   string  `json:"updated_at"`
}

type bondRow struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Amount       float64 `json:"amount"`
	Rate         float64 `json:"rate"`
	PurchaseDate string  `json:"purchase_date"`
	TermMonths   float64 `json:"term_months"`
	UpdatedAt    string  `json:"updated_at"`
}

func toRemoteTime(ms int64) string {
	if ms == 0 {
		ms = time.Now().UnixMilli()
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
}

func fromRemoteTime(s string) (int64, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("invalid updated_at %q: %w", s, err)
	}
	return t.UnixMilli(), nil
}

func monthToRow(m models.Month) monthRow {
	return monthRow{
		ID:             m.ID,
		ExpectedIncome: m.ExpectedIncome,
		SavingsGoal:    m.SavingsGoal,
		UpdatedAt:      toRemoteTime(m.UpdatedAt),
	}
}

func budgetToRow(b models.Budget) budgetRow {
	return budgetRow{
		ID:            b.ID,
		MonthID:       b.MonthID,
		Category:      b.Category,
		PlannedAmount: b.PlannedAmount,
		Tag:           b.Tag,
		UpdatedAt:     toRemoteTime(b.UpdatedAt),
	}
}

func transactionToRow(t models.Transaction) transactionRow {
	return transactionRow{
		ID:          t.ID,
		BudgetID:    t.BudgetID,
		Amount:      t.Amount,
		Description: t.Description,
		Date:        t.Date,
		UpdatedAt:   toRemoteTime(t.UpdatedAt),
	}
}

func bondToRow(b models.Bond) bondRow {
	name := "Bond " + b.ID
	if len(b.ID) >= 4 {
		name = "Bond " + b.ID[:4]
	}
	return bondRow{
		ID:           b.ID,
		Name:         name,
		Amount:       b.Principal,
		Rate:         b.Rate,
		PurchaseDate: b.PurchaseDate,
		TermMonths:   b.DurationYears * 12,
		UpdatedAt:    toRemoteTime(b.UpdatedAt),
	}
}

// The decoders fail closed: a remote row missing its id or carrying an
// unparseable timestamp is rejected here instead of landing half-formed in
// the local store. Decoded rows are remote-origin, so they come back synced.

func monthFromRaw(raw json.RawMessage) (models.Month, error) {
	var r monthRow
	if err := json.Unmarshal(raw, &r); err != nil {
		return models.Month{}, fmt.Errorf("malformed month row: %w", err)
	}
	if r.ID == "" {
		return models.Month{}, fmt.Errorf("month row missing id")
	}
	ms, err := fromRemoteTime(r.UpdatedAt)
	if err != nil {
		return models.Month{}, fmt.Errorf("month row %s: %w", r.ID, err)
	}
	return models.Month{
		ID:             r.ID,
		ExpectedIncome: r.ExpectedIncome,
		SavingsGoal:    r.SavingsGoal,
		UpdatedAt:      ms,
		Synced:         true,
	}, nil
}

func budgetFromRaw(raw json.RawMessage) (models.Budget, error) {
	var r budgetRow
	if err := json.Unmarshal(raw, &r); err != nil {
		return models.Budget{}, fmt.Errorf("malformed budget row: %w", err)
	}
	if r.ID == "" {
		return models.Budget{}, fmt.Errorf("budget row missing id")
	}
	ms, err := fromRemoteTime(r.UpdatedAt)
	if err != nil {
		return models.Budget{}, fmt.Errorf("budget row %s: %w", r.ID, err)
	}
	return models.Budget{
		ID:            r.ID,
		MonthID:       r.MonthID,
		Category:      r.Category,
		PlannedAmount: r.PlannedAmount,
		Tag:           r.Tag,
		UpdatedAt:     ms,
		Synced:        true,
	}, nil
}

func transactionFromRaw(raw json.RawMessage) (models.Transaction, error) {
	var r transactionRow
	if err := json.Unmarshal(raw, &r); err != nil {
		return models.Transaction{}, fmt.Errorf("malformed transaction row: %w", err)
	}
	if r.ID == "" {
		return models.Transaction{}, fmt.Errorf("transaction row missing id")
	}
	ms, err := fromRemoteTime(r.UpdatedAt)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("transaction row %s: %w", r.ID, err)
	}
	return models.Transaction{
		ID:          r.ID,
		BudgetID:    r.BudgetID,
		Amount:      r.Amount,
		Description: r.Description,
		Date:        r.Date,
		UpdatedAt:   ms,
		Synced:      true,
	}, nil
}

func bondFromRaw(raw json.RawMessage) (models.Bond, error) {
	var r bondRow
	if err := json.Unmarshal(raw, &r); err != nil {
		return models.Bond{}, fmt.Errorf("malformed bond row: %w", err)
	}
	if r.ID == "" {
		return models.Bond{}, fmt.Errorf("bond row missing id")
	}
	ms, err := fromRemoteTime(r.UpdatedAt)
	if err != nil {
		return models.Bond{}, fmt.Errorf("bond row %s: %w", r.ID, err)
	}
	return models.Bond{
		ID:            r.ID,
		Principal:     r.Amount,
		Rate:          r.Rate,
		PurchaseDate:  r.PurchaseDate,
		DurationYears: r.TermMonths / 12,
		UpdatedAt:     ms,
		Synced:        true,
	}, nil
}

// rowID extracts just the id and updated_at of a wire row, used when
// adopting server timestamps after a push.
func rowStamp(raw json.RawMessage) (id string, updatedAt int64, err error) {
	var r struct {
		ID        string `json:"id"`
		UpdatedAt string `json:"updated_at"`
	}
	if err := json.Unmarshal(raw, &r); err != nil {
		return "", 0, fmt.Errorf("malformed row: %w", err)
	}
	if r.ID == "" {
		return "", 0, fmt.Errorf("row missing id")
	}
	ms, err := fromRemoteTime(r.UpdatedAt)
	if err != nil {
		return "", 0, err
	}
	return r.ID, ms, nil
}
