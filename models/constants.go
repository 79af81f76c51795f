package models

// Budget tags
const (
	TagFixed       = "Fixed"
	TagVariable    = "Variable"
	TagSinkingFund = "Sinking Fund"
	TagLifestyle   = "Lifestyle"
	TagGrowth      = "Growth"
	TagSavings     = "Savings"
)

// Synced table names, also used in the tombstone log
const (
	TableMonths       = "months"
	TableBudgets      = "budgets"
	TableTransactions = "transactions"
	TableBonds        = "bonds"
)

// SyncedTables lists the four data tables in push/pull order.
var SyncedTables = []string{TableMonths, TableBudgets, TableTransactions, TableBonds}

// RolloverCategory is the synthetic budget used to carry a surplus or
// deficit into the following month.
const RolloverCategory = "Rollover Adjustment"

// TemplateBudget is one entry of the default month template.
type TemplateBudget struct {
	Category      string
	PlannedAmount float64
	Tag           string
}

// BudgetTemplate is the default set of categories a new month is populated
// with. Amounts are in minor currency units.
var BudgetTemplate = []TemplateBudget{
	{Category: "Household Maintenance & Utilities", PlannedAmount: 200000, Tag: TagVariable},
	{Category: "Cats & Pets", PlannedAmount: 250000, Tag: TagVariable},
	{Category: "Car Fuel", PlannedAmount: 500000, Tag: TagVariable},
	{Category: "Car Garage (Sinking Fund)", PlannedAmount: 200000, Tag: TagSinkingFund},
	{Category: "Weekly Groceries", PlannedAmount: 720000, Tag: TagVariable},
	{Category: "Sports & Fitness", PlannedAmount: 320000, Tag: TagLifestyle},
	{Category: "Co-working Space", PlannedAmount: 360000, Tag: TagVariable},
	{Category: "Subscriptions", PlannedAmount: 72000, Tag: TagFixed},
	{Category: "Dating & Social", PlannedAmount: 400000, Tag: TagLifestyle},
	{Category: "Travel Fund", PlannedAmount: 500000, Tag: TagSavings},
	{Category: "Emergency Buffer", PlannedAmount: 2300000, Tag: TagSinkingFund},
	{Category: "Internet", PlannedAmount: 250000, Tag: TagFixed},
	{Category: "Medical Sinking Fund", PlannedAmount: 100000, Tag: TagSinkingFund},
}
