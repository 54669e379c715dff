package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCostCategory(t *testing.T) {
	for _, cat := range AllCategories {
		parsed, ok := ParseCostCategory(string(cat))
		require.True(t, ok, "category %s should parse", cat)
		assert.Equal(t, cat, parsed)
	}

	for _, bad := range []string{"", "labour", "Upper", "misc", "components"} {
		_, ok := ParseCostCategory(bad)
		assert.False(t, ok, "%q should not parse", bad)
	}
}

func TestAllowsDepartment(t *testing.T) {
	assert.True(t, CategoryUpper.AllowsDepartment())
	assert.True(t, CategoryComponent.AllowsDepartment())
	assert.False(t, CategoryMaterial.AllowsDepartment())
	assert.False(t, CategoryPackaging.AllowsDepartment())
	assert.False(t, CategoryMiscellaneous.AllowsDepartment())
}

func TestValidCostStatus(t *testing.T) {
	assert.True(t, ValidCostStatus(StatusDraft))
	assert.True(t, ValidCostStatus(StatusReadyForRedSeal))
	assert.True(t, ValidCostStatus(StatusApproved))
	assert.False(t, ValidCostStatus("pending"))
	assert.False(t, ValidCostStatus(""))
}

func TestCategoryTotal(t *testing.T) {
	assert.Zero(t, CategoryTotal(nil))
	assert.Equal(t, 750.0, CategoryTotal([]CostItem{{Cost: 500}, {Cost: 250}}))
}
