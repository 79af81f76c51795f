package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cmplx-xyttmt/personal-finance-tracker/models"
)

// BondValue computes the current value of a bond as of now: annual
// compounding for each whole year held, plus simple interest on the
// fractional year. Accrual stops at the bond's maturity.
func BondValue(b *models.Bond, now time.Time) (float64, error) {
	purchased, err := time.Parse("2006-01-02", b.PurchaseDate)
	if err != nil {
		return 0, fmt.Errorf("invalid purchase date %q: %w", b.PurchaseDate, err)
	}
	if now.Before(purchased) {
		return b.Principal, nil
	}

	years := now.Sub(purchased).Hours() / 24 / 365.25
	if years > b.DurationYears {
		years = b.DurationYears
	}

	wholeYears := int(years)
	fraction := years - float64(wholeYears)

	principal := decimal.NewFromFloat(b.Principal)
	rate := decimal.NewFromFloat(b.Rate)
	one := decimal.NewFromInt(1)

	value := principal.Mul(one.Add(rate).Pow(decimal.NewFromInt(int64(wholeYears))))
	interest := value.Mul(rate).Mul(decimal.NewFromFloat(fraction))
	value = value.Add(interest)

	f, _ := value.Round(2).Float64()
	return f, nil
}
