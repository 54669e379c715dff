package models

import (
	"time"
)

// GORM-compatible models with proper tags

// ApprovalLogGorm represents the cost_approval_logs table with GORM tags.
// One row per state transition of a project's cost summary.
type ApprovalLogGorm struct {
	ID            uint      `gorm:"primaryKey;column:id" json:"id"`
	ProjectID     int       `gorm:"column:project_id;not null;index" json:"project_id"`
	FromStatus    string    `gorm:"column:from_status;not null" json:"from_status"`
	ToStatus      string    `gorm:"column:to_status;not null" json:"to_status"`
	TentativeCost float64   `gorm:"column:tentative_cost;type:numeric(14,2);not null" json:"tentative_cost"`
	ActedBy       string    `gorm:"column:acted_by;not null" json:"acted_by"`
	Remarks       string    `gorm:"column:remarks" json:"remarks,omitempty"`
	CreatedAt     time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName specifies the table name for ApprovalLogGorm
func (ApprovalLogGorm) TableName() string {
	return "cost_approval_logs"
}

// ApprovalLogListResponse wraps a project's approval history
type ApprovalLogListResponse struct {
	Success bool              `json:"success" example:"true"`
	Message string            `json:"message" example:"Success"`
	Data    []ApprovalLogGorm `json:"data"`
	Error   string            `json:"error,omitempty" example:""`
}
