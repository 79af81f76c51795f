package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextMonthID(t *testing.T) {
	next, err := NextMonthID("2025-06")
	require.NoError(t, err)
	assert.Equal(t, "2025-07", next)
}

func TestNextMonthIDYearRollover(t *testing.T) {
	next, err := NextMonthID("2025-12")
	require.NoError(t, err)
	assert.Equal(t, "2026-01", next)
}

func TestNextMonthIDInvalid(t *testing.T) {
	_, err := NextMonthID("June 2025")
	assert.Error(t, err)

	_, err = NextMonthID("2025-13")
	assert.Error(t, err)
}

func TestCurrentMonthID(t *testing.T) {
	now := time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-03", CurrentMonthID(now))
}

func TestBudgetTemplateCategoriesUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, tmpl := range BudgetTemplate {
		require.False(t, seen[tmpl.Category], "duplicate template category %s", tmpl.Category)
		seen[tmpl.Category] = true
	}
	assert.Len(t, BudgetTemplate, 13)
}
