// internal/services/rating.go
package services

import (
	"github.com/shopspring/decimal"

	"github.com/javajoker/commission-engine/internal/models"
)

var hundred = decimal.NewFromInt(100)

// RatingResult is the outcome of rating one transaction.
type RatingResult struct {
	Amount decimal.Decimal `json:"amount"`
	// Rate is the percentage applied to the base amount; zero for pure flat fees.
	Rate decimal.Decimal `json:"rate"`
}

// CalculateCommission rates base against model for the given category.
//
// Tiered models apply the rate of the highest tier whose threshold the base reaches to the whole
// base amount. The result is clamped to the model's minimum and maximum thresholds and rounded to cents.
func CalculateCommission(model *models.RevenueModel, category string, base decimal.Decimal) RatingResult {
	override, hasOverride := model.CategoryRates[category]
	if category == "" {
		hasOverride = false
	}

	var amount, rate decimal.Decimal
	switch model.ModelType {
	case models.CommissionTypePercentage:
		rate = model.BaseRate
		if hasOverride {
			rate = override
		}
		amount = percentOf(base, rate)
	case models.CommissionTypeTiered:
		rate = tierRate(model, override, hasOverride, base)
		amount = percentOf(base, rate)
	case models.CommissionTypeFlatFee:
		amount = model.FlatFee
		if hasOverride {
			amount = override
		}
	case models.CommissionTypeHybrid:
		if len(model.TierStructure) > 0 {
			rate = tierRate(model, override, hasOverride, base)
		} else {
			rate = model.BaseRate
			if hasOverride {
				rate = override
			}
		}
		amount = model.FlatFee.Add(percentOf(base, rate))
	}

	if base.IsPositive() && amount.LessThan(model.MinimumThreshold) {
		amount = model.MinimumThreshold
	}
	if model.MaximumThreshold.IsPositive() && amount.GreaterThan(model.MaximumThreshold) {
		amount = model.MaximumThreshold
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}

	return RatingResult{Amount: amount.Round(2), Rate: rate}
}

func tierRate(model *models.RevenueModel, override decimal.Decimal, hasOverride bool, base decimal.Decimal) decimal.Decimal {
	rate := model.BaseRate
	if hasOverride {
		rate = override
	}
	for _, tier := range model.TierStructure.Sorted() {
		if base.LessThan(tier.Threshold) {
			break
		}
		rate = tier.Rate
	}
	return rate
}

func percentOf(base, rate decimal.Decimal) decimal.Decimal {
	return base.Mul(rate).Div(hundred)
}
