package handlers

import (
	"testing"

	"backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func items(cat models.CostCategory, costs ...float64) []models.CostItem {
	out := make([]models.CostItem, 0, len(costs))
	for _, c := range costs {
		out = append(out, models.CostItem{Category: string(cat), Cost: c})
	}
	return out
}

func TestRecomputeRollsUpCategoriesAndLabour(t *testing.T) {
	byCat := map[models.CostCategory][]models.CostItem{
		models.CategoryUpper:         items(models.CategoryUpper, 500, 250),
		models.CategoryComponent:     items(models.CategoryComponent, 300),
		models.CategoryMaterial:      items(models.CategoryMaterial, 400, 100),
		models.CategoryPackaging:     items(models.CategoryPackaging, 150),
		models.CategoryMiscellaneous: items(models.CategoryMiscellaneous, 250),
	}
	labour := models.LabourBlock{DirectTotal: 800}

	summary := models.CostSummary{AdditionalCosts: 0, ProfitMarginPct: 25}
	summary.Recompute(byCat, labour)

	assert.Equal(t, 750.0, summary.UpperTotal)
	assert.Equal(t, 300.0, summary.ComponentTotal)
	assert.Equal(t, 500.0, summary.MaterialTotal)
	assert.Equal(t, 150.0, summary.PackagingTotal)
	assert.Equal(t, 250.0, summary.MiscTotal)
	assert.Equal(t, 800.0, summary.LabourTotal)
	assert.Equal(t, 2750.0, summary.TotalAllCosts)
	assert.Equal(t, 688.0, summary.ProfitAmount) // round(2750 * 0.25) = round(687.5)
	assert.Equal(t, 3438.0, summary.TentativeCost)
}

func TestRecomputeLabourUsesDirectTotalOnly(t *testing.T) {
	// Labour line items are a breakdown for display; only the direct total
	// feeds the roll-up, even when the items sum to something else.
	labour := models.LabourBlock{
		DirectTotal: 800,
		Items: []models.LabourItem{
			{Name: "Cutting line", Cost: 300},
			{Name: "Stitching line", Cost: 900},
		},
	}

	summary := models.CostSummary{}
	summary.Recompute(map[models.CostCategory][]models.CostItem{}, labour)

	assert.Equal(t, 800.0, summary.LabourTotal)
	assert.Equal(t, 800.0, summary.TotalAllCosts)
}

func TestRecomputeProfitRoundingOnSubtotal(t *testing.T) {
	byCat := map[models.CostCategory][]models.CostItem{
		models.CategoryMaterial: items(models.CategoryMaterial, 1000),
	}
	summary := models.CostSummary{AdditionalCosts: 33, ProfitMarginPct: 10}
	summary.Recompute(byCat, models.LabourBlock{})

	// Profit is rounded to the nearest unit; the tentative cost adds the
	// rounded profit to the unrounded subtotal.
	assert.Equal(t, 1000.0, summary.TotalAllCosts)
	assert.Equal(t, 103.0, summary.ProfitAmount) // round((1000+33) * 0.10) = round(103.3)
	assert.Equal(t, 1136.0, summary.TentativeCost)
}

func TestRecomputeZeroSheet(t *testing.T) {
	summary := models.CostSummary{ProfitMarginPct: 25}
	summary.Recompute(map[models.CostCategory][]models.CostItem{}, models.LabourBlock{})

	assert.Zero(t, summary.TotalAllCosts)
	assert.Zero(t, summary.ProfitAmount)
	assert.Zero(t, summary.TentativeCost)
}

func TestCheckApprovable(t *testing.T) {
	t.Run("ready with non-zero cost approves", func(t *testing.T) {
		require.NoError(t, CheckApprovable(models.StatusReadyForRedSeal, 3438))
	})

	t.Run("zero cost rejected before status", func(t *testing.T) {
		// The zero-cost check wins even when the status would also be wrong.
		err := CheckApprovable(models.StatusDraft, 0)
		assert.ErrorIs(t, err, ErrZeroTentativeCost)

		err = CheckApprovable(models.StatusReadyForRedSeal, 0)
		assert.ErrorIs(t, err, ErrZeroTentativeCost)
	})

	t.Run("draft rejected", func(t *testing.T) {
		err := CheckApprovable(models.StatusDraft, 100)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("approved is terminal", func(t *testing.T) {
		err := CheckApprovable(models.StatusApproved, 100)
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestNextStatusOnSave(t *testing.T) {
	t.Run("draft with cost becomes ready", func(t *testing.T) {
		next, err := NextStatusOnSave(models.StatusDraft, 3438)
		require.NoError(t, err)
		assert.Equal(t, models.StatusReadyForRedSeal, next)
	})

	t.Run("draft with zero cost rejected", func(t *testing.T) {
		_, err := NextStatusOnSave(models.StatusDraft, 0)
		assert.ErrorIs(t, err, ErrZeroTentativeCost)
	})

	t.Run("ready stays ready", func(t *testing.T) {
		next, err := NextStatusOnSave(models.StatusReadyForRedSeal, 3438)
		require.NoError(t, err)
		assert.Equal(t, models.StatusReadyForRedSeal, next)
	})

	t.Run("approved never moves", func(t *testing.T) {
		_, err := NextStatusOnSave(models.StatusApproved, 3438)
		assert.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestValidateSummaryInput(t *testing.T) {
	fv := func(v float64) *float64 { return &v }
	sv := func(v string) *string { return &v }

	t.Run("valid patch", func(t *testing.T) {
		assert.NoError(t, ValidateSummaryInput(models.CostSummaryInput{
			AdditionalCosts: fv(120), ProfitMargin: fv(25), Remarks: sv("200 pairs"),
		}))
	})

	t.Run("margin bounds", func(t *testing.T) {
		assert.NoError(t, ValidateSummaryInput(models.CostSummaryInput{ProfitMargin: fv(0)}))
		assert.NoError(t, ValidateSummaryInput(models.CostSummaryInput{ProfitMargin: fv(100)}))
		assert.Error(t, ValidateSummaryInput(models.CostSummaryInput{ProfitMargin: fv(-1)}))
		assert.Error(t, ValidateSummaryInput(models.CostSummaryInput{ProfitMargin: fv(500)}))
	})

	t.Run("negative additional costs rejected", func(t *testing.T) {
		assert.Error(t, ValidateSummaryInput(models.CostSummaryInput{AdditionalCosts: fv(-50)}))
	})

	t.Run("empty patch rejected", func(t *testing.T) {
		assert.Error(t, ValidateSummaryInput(models.CostSummaryInput{}))
	})
}
