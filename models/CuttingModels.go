package models

import "time"

// ---------- Data types ----------

// CuttingMaterial is one required material of an item in the cutting stage.
// RequiredQuantity is fixed by the order; AlreadyCompleted accumulates across
// commits; CompletingToday is the operator's in-progress entry.
type CuttingMaterial struct {
	ID               int       `json:"id" example:"7"`
	ProjectID        int       `json:"project_id" example:"731623920"`
	ItemID           int       `json:"item_id" example:"12"`
	MaterialName     string    `json:"material_name" example:"Vamp lining"`
	RequiredQuantity float64   `json:"required_quantity" example:"2000"`
	AlreadyCompleted float64   `json:"already_completed" example:"1500"`
	CompletingToday  float64   `json:"completing_today" example:"0"`
	UpdatedAt        time.Time `json:"updated_at,omitempty"`
}

// CuttingComputeRequest is the payload of the pure reconciliation endpoint.
type CuttingComputeRequest struct {
	Materials []CuttingMaterialInput `json:"materials" binding:"required"`
}

// CuttingMaterialInput mirrors CuttingMaterial without persistence fields.
type CuttingMaterialInput struct {
	MaterialName     string  `json:"material_name"`
	RequiredQuantity float64 `json:"required_quantity"`
	AlreadyCompleted float64 `json:"already_completed"`
	CompletingToday  float64 `json:"completing_today"`
}

// CuttingMaterialResult is one computed row of a cutting plan.
type CuttingMaterialResult struct {
	MaterialName     string  `json:"material_name"`
	RequiredQuantity float64 `json:"required_quantity"`
	AlreadyCompleted float64 `json:"already_completed"`
	CompletingToday  float64 `json:"completing_today"`
	TotalAfter       float64 `json:"total_after"`
	Remaining        float64 `json:"remaining"`
}

// CuttingPlan is the reconciliation result for one item: per-material rows
// plus the bottleneck quantity the scarcest material allows.
type CuttingPlan struct {
	GeneratedAt      time.Time               `json:"generated_at"`
	Materials        []CuttingMaterialResult `json:"materials"`
	MinimumAvailable float64                 `json:"minimum_available"`
}

// QuantityUpdateInput patches a material's completing_today figure.
type QuantityUpdateInput struct {
	CompletingToday *float64 `json:"completing_today" binding:"required"`
}

// CuttingListResponse wraps an item's materials with their computed plan.
type CuttingListResponse struct {
	Success bool              `json:"success" example:"true"`
	Message string            `json:"message" example:"Success"`
	Rows    []CuttingMaterial `json:"rows"`
	Plan    *CuttingPlan      `json:"plan,omitempty"`
	Error   string            `json:"error,omitempty" example:""`
}
