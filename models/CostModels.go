package models

import (
	"math"
	"time"
)

// ==================== COST CATEGORIES ====================

// CostCategory is one of the five fixed cost groupings of a project cost sheet.
type CostCategory string

const (
	CategoryUpper         CostCategory = "upper"
	CategoryComponent     CostCategory = "component"
	CategoryMaterial      CostCategory = "material"
	CategoryPackaging     CostCategory = "packaging"
	CategoryMiscellaneous CostCategory = "miscellaneous"
)

// AllCategories lists every cost category in sheet order.
var AllCategories = []CostCategory{
	CategoryUpper,
	CategoryComponent,
	CategoryMaterial,
	CategoryPackaging,
	CategoryMiscellaneous,
}

// ParseCostCategory validates a path/query value against the fixed category set.
func ParseCostCategory(s string) (CostCategory, bool) {
	switch CostCategory(s) {
	case CategoryUpper, CategoryComponent, CategoryMaterial, CategoryPackaging, CategoryMiscellaneous:
		return CostCategory(s), true
	}
	return "", false
}

// AllowsDepartment reports whether items of this category may carry a
// production stage tag. Only upper and component items are produced in-house,
// so only they are tagged with the stage that consumes them.
func (c CostCategory) AllowsDepartment() bool {
	return c == CategoryUpper || c == CategoryComponent
}

func (c CostCategory) String() string {
	return string(c)
}

// ==================== COST LINE ITEMS ====================

// CostItem represents one row of a category's cost breakdown.
type CostItem struct {
	ID          int       `json:"id" example:"12"`
	ProjectID   int       `json:"project_id" example:"731623920"`
	Category    string    `json:"category" example:"upper"`
	Item        string    `json:"item" example:"Full grain leather"`
	Description string    `json:"description" example:"Crust upper, 1.6mm"`
	Consumption string    `json:"consumption" example:"2.2 sqft/pair"`
	Cost        float64   `json:"cost" example:"215.50"`
	Department  string    `json:"department,omitempty" example:"cutting"`
	CreatedAt   time.Time `json:"created_at,omitempty" example:"2024-01-15T10:30:00Z"`
	UpdatedAt   time.Time `json:"updated_at,omitempty" example:"2024-01-15T10:30:00Z"`
}

// CostItemInput is the request payload for creating a line item.
type CostItemInput struct {
	Item        string  `json:"item" binding:"required"`
	Description string  `json:"description"`
	Consumption string  `json:"consumption"`
	Cost        float64 `json:"cost"`
}

// CostUpdateInput is the request payload for a cost-only update.
type CostUpdateInput struct {
	Cost *float64 `json:"cost" binding:"required"`
}

// DepartmentTagInput is the request payload for tagging an item with a stage.
type DepartmentTagInput struct {
	Department string `json:"department" binding:"required"`
}

// CategoryTotal sums the costs of a category's current items.
func CategoryTotal(items []CostItem) float64 {
	total := 0.0
	for _, item := range items {
		total += item.Cost
	}
	return total
}

// ==================== LABOUR ====================

// LabourItem is one named entry of the labour sub-breakdown.
type LabourItem struct {
	ID   int     `json:"id" example:"3"`
	Name string  `json:"name" example:"Stitching line"`
	Cost float64 `json:"cost" example:"120"`
}

// LabourBlock carries the labour cost of a project. DirectTotal is the
// figure fed into the roll-up; Items are an informational breakdown and are
// intentionally never summed into DirectTotal.
type LabourBlock struct {
	ProjectID   int          `json:"project_id" example:"731623920"`
	DirectTotal float64      `json:"direct_total" example:"800"`
	Items       []LabourItem `json:"items"`
}

// LabourUpdateInput patches the labour block. Either field may be sent alone.
type LabourUpdateInput struct {
	DirectTotal *float64      `json:"direct_total"`
	Items       *[]LabourItem `json:"items"`
}

// ==================== COST SUMMARY ====================

// Cost sheet approval statuses.
const (
	StatusDraft           = "draft"
	StatusReadyForRedSeal = "ready_for_red_seal"
	StatusApproved        = "approved"
)

// ValidCostStatus reports whether s is a known approval status.
func ValidCostStatus(s string) bool {
	return s == StatusDraft || s == StatusReadyForRedSeal || s == StatusApproved
}

// CostSummary is the per-project roll-up of all cost categories plus the
// approval state. Totals are recomputed server-side on every mutation; the
// stored row is the authoritative copy.
type CostSummary struct {
	ProjectID       int        `json:"project_id" example:"731623920"`
	AdditionalCosts float64    `json:"additional_costs" example:"0"`
	ProfitMarginPct float64    `json:"profit_margin" example:"25"`
	Remarks         string     `json:"remarks" example:"Export order, FOB"`
	UpperTotal      float64    `json:"upper_total" example:"1000"`
	ComponentTotal  float64    `json:"component_total" example:"500"`
	MaterialTotal   float64    `json:"material_total" example:"300"`
	PackagingTotal  float64    `json:"packaging_total" example:"100"`
	MiscTotal       float64    `json:"misc_total" example:"50"`
	LabourTotal     float64    `json:"labour_total" example:"800"`
	TotalAllCosts   float64    `json:"total_all_costs" example:"2750"`
	ProfitAmount    float64    `json:"profit_amount" example:"688"`
	TentativeCost   float64    `json:"tentative_cost" example:"3438"`
	Status          string     `json:"status" example:"draft"`
	Reference       string     `json:"reference,omitempty" example:"CS/QN73732"`
	Revision        int        `json:"revision" example:"1"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	ApprovedBy      string     `json:"approved_by,omitempty" example:"Ritesh Rai"`
	CreatedAt       time.Time  `json:"created_at,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at,omitempty"`
}

// CategoryTotalFor returns the stored total of the given category.
func (s *CostSummary) CategoryTotalFor(cat CostCategory) float64 {
	switch cat {
	case CategoryUpper:
		return s.UpperTotal
	case CategoryComponent:
		return s.ComponentTotal
	case CategoryMaterial:
		return s.MaterialTotal
	case CategoryPackaging:
		return s.PackagingTotal
	case CategoryMiscellaneous:
		return s.MiscTotal
	}
	return 0
}

// Recompute fills the derived totals from category items and the labour block.
// Profit rounds to the nearest whole currency unit; the tentative cost is
// derived from the rounded profit and is not rounded again.
func (s *CostSummary) Recompute(items map[CostCategory][]CostItem, labour LabourBlock) {
	s.UpperTotal = CategoryTotal(items[CategoryUpper])
	s.ComponentTotal = CategoryTotal(items[CategoryComponent])
	s.MaterialTotal = CategoryTotal(items[CategoryMaterial])
	s.PackagingTotal = CategoryTotal(items[CategoryPackaging])
	s.MiscTotal = CategoryTotal(items[CategoryMiscellaneous])
	s.LabourTotal = labour.DirectTotal

	s.TotalAllCosts = s.UpperTotal + s.ComponentTotal + s.MaterialTotal +
		s.PackagingTotal + s.MiscTotal + s.LabourTotal
	subtotal := s.TotalAllCosts + s.AdditionalCosts
	s.ProfitAmount = math.Round(subtotal * s.ProfitMarginPct / 100.0)
	s.TentativeCost = subtotal + s.ProfitAmount
}

// CostSummaryInput patches the directly editable summary fields.
type CostSummaryInput struct {
	AdditionalCosts *float64 `json:"additional_costs"`
	ProfitMargin    *float64 `json:"profit_margin"`
	Remarks         *string  `json:"remarks"`
}

// ==================== RESPONSES ====================

// CostItemResponse wraps a single line item.
type CostItemResponse struct {
	Success bool         `json:"success" example:"true"`
	Message string       `json:"message" example:"Success"`
	Row     *CostItem    `json:"row,omitempty"`
	Summary *CostSummary `json:"summary,omitempty"`
	Error   string       `json:"error,omitempty" example:""`
}

// CostItemListResponse wraps a category's rows.
type CostItemListResponse struct {
	Success bool       `json:"success" example:"true"`
	Message string     `json:"message" example:"Success"`
	Rows    []CostItem `json:"rows"`
	Error   string     `json:"error,omitempty" example:""`
}

// CostSummaryResponse wraps the project cost summary.
type CostSummaryResponse struct {
	Success bool         `json:"success" example:"true"`
	Message string       `json:"message" example:"Success"`
	Data    *CostSummary `json:"data,omitempty"`
	Error   string       `json:"error,omitempty" example:""`
}

// LabourResponse wraps the labour block.
type LabourResponse struct {
	Success bool         `json:"success" example:"true"`
	Message string       `json:"message" example:"Success"`
	Data    *LabourBlock `json:"data,omitempty"`
	Summary *CostSummary `json:"summary,omitempty"`
	Error   string       `json:"error,omitempty" example:""`
}
