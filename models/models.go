package models

// Month is one budgeting period. The id doubles as the calendar identity
// ("YYYY-MM"), so there is at most one row per period.
type Month struct {
	ID             string  `json:"id"`
	ExpectedIncome float64 `json:"expectedIncome"`
	SavingsGoal    float64 `json:"savingsGoal"`
	UpdatedAt      int64   `json:"updatedAt"`
	Synced         bool    `json:"synced"`
}

type Budget struct {
	ID            string  `json:"id"`
	MonthID       string  `json:"monthId"`
	Category      string  `json:"category"`
	PlannedAmount float64 `json:"plannedAmount"`
	Tag           string  `json:"tag"`
	UpdatedAt     int64   `json:"updatedAt"`
	Synced        bool    `json:"synced"`
}

// Transaction is a single spend (positive amount) or credit (negative
// amount) against a budget.
type Transaction struct {
	ID          string  `json:"id"`
	BudgetID    string  `json:"budgetId"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	UpdatedAt   int64   `json:"updatedAt"`
	Synced      bool    `json:"synced"`
}

type Bond struct {
	ID            string  `json:"id"`
	Principal     float64 `json:"principal"`
	Rate          float64 `json:"rate"`
	PurchaseDate  string  `json:"purchaseDate"`
	DurationYears float64 `json:"durationYears"`
	UpdatedAt     int64   `json:"updatedAt"`
	Synced        bool    `json:"synced"`
}

// DeletedRecord is one entry in the tombstone log. It is written in the
// same local transaction as the physical delete and marked synced once the
// deletion has been propagated to the remote backend.
type DeletedRecord struct {
	ID        int64  `json:"id"`
	ItemID    string `json:"itemId"`
	Table     string `json:"table"`
	UpdatedAt int64  `json:"updatedAt"`
	Synced    bool   `json:"synced"`
}
