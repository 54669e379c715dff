package handlers

import (
	"backend/models"
	"backend/repository"
	"backend/services"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ==================== COST SUMMARY LIFECYCLE ====================

// ValidateSummaryInput checks a summary patch before it reaches the row.
// Profit margin is a percentage and stays within [0, 100].
func ValidateSummaryInput(input models.CostSummaryInput) error {
	if input.AdditionalCosts == nil && input.ProfitMargin == nil && input.Remarks == nil {
		return errors.New("No fields to update")
	}
	if input.AdditionalCosts != nil && *input.AdditionalCosts < 0 {
		return errors.New("Additional costs must not be negative")
	}
	if input.ProfitMargin != nil && (*input.ProfitMargin < 0 || *input.ProfitMargin > 100) {
		return errors.New("Profit margin must be between 0 and 100")
	}
	return nil
}

// GetCostSummary retrieves the project cost summary
// @Summary Get cost summary
// @Description Retrieve the recomputed cost summary of a project; created as a draft on first access
// @Tags Costing
// @Produce json
// @Param project_id path int true "Project ID"
// @Success 200 {object} models.CostSummaryResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/project/{project_id}/cost-summary [get]
func GetCostSummary(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader("Authorization")
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing session ID"})
			return
		}
		if _, _, err := GetSessionDetails(db, sessionID); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		projectID, ok := parseProjectIDParam(c)
		if !ok {
			return
		}

		// Recompute on read so stale stored totals self-heal.
		summary, err := RecomputeAndStoreSummary(db, projectID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cost summary", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, models.CostSummaryResponse{
			Success: true,
			Message: "Cost summary retrieved successfully",
			Data:    summary,
		})
	}
}

// UpdateCostSummary patches the editable summary fields
// @Summary Update cost summary fields
// @Description Update additional costs, profit margin or remarks; derived totals are recomputed
// @Tags Costing
// @Accept json
// @Produce json
// @Param project_id path int true "Project ID"
// @Param request body models.CostSummaryInput true "Summary fields"
// @Success 200 {object} models.CostSummaryResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/project/{project_id}/cost-summary [patch]
func UpdateCostSummary(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader("Authorization")
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing session ID"})
			return
		}
		session, userName, err := GetSessionDetails(db, sessionID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		projectID, ok := parseProjectIDParam(c)
		if !ok {
			return
		}

		var input models.CostSummaryInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := ValidateSummaryInput(input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		summary, err := loadOrCreateSummary(db, projectID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cost summary", "details": err.Error()})
			return
		}

		if input.AdditionalCosts != nil {
			summary.AdditionalCosts = *input.AdditionalCosts
		}
		if input.ProfitMargin != nil {
			summary.ProfitMarginPct = *input.ProfitMargin
		}
		if input.Remarks != nil {
			summary.Remarks = *input.Remarks
		}

		_, err = db.Exec(`
			UPDATE cost_summaries SET additional_costs = $1, profit_margin = $2, remarks = $3, updated_at = $4
			WHERE project_id = $5`,
			summary.AdditionalCosts, summary.ProfitMarginPct, summary.Remarks, time.Now(), projectID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cost summary", "details": err.Error()})
			return
		}

		fresh, err := RecomputeAndStoreSummary(db, projectID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to recompute cost summary", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, models.CostSummaryResponse{
			Success: true,
			Message: "Cost summary updated successfully",
			Data:    fresh,
		})

		logCostActivity(db, session, userName, projectID, "cost_summary_update", "Updated cost summary fields")
	}
}

// SaveCostSummary commits the working cost sheet
// @Summary Save cost summary
// @Description Explicitly commit the cost sheet; a non-zero draft moves to ready_for_red_seal and gets a reference
// @Tags Costing
// @Produce json
// @Param project_id path int true "Project ID"
// @Success 200 {object} models.CostSummaryResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /api/project/{project_id}/cost-summary/save [post]
func SaveCostSummary(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader("Authorization")
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing session ID"})
			return
		}
		session, userName, err := GetSessionDetails(db, sessionID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		projectID, ok := parseProjectIDParam(c)
		if !ok {
			return
		}

		summary, err := RecomputeAndStoreSummary(db, projectID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cost summary", "details": err.Error()})
			return
		}

		nextStatus, err := NextStatusOnSave(summary.Status, summary.TentativeCost)
		if err == ErrZeroTentativeCost {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Cannot save a cost sheet with zero tentative cost"})
			return
		} else if err == ErrInvalidState {
			c.JSON(http.StatusConflict, gin.H{"error": "Approved cost sheets can no longer be saved"})
			return
		} else if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		reference := summary.Reference
		revision := summary.Revision
		if nextStatus == models.StatusReadyForRedSeal && summary.Status == models.StatusDraft {
			abbreviation, err := repository.FetchProjectAbbreviation(db, projectID)
			if err != nil {
				log.Printf("Failed to fetch project abbreviation: %v", err)
			}
			reference = repository.GenerateSummaryReference(abbreviation)
			revision = 1
		} else if summary.Status == models.StatusReadyForRedSeal {
			// Re-saving an already committed sheet records a new revision.
			revision = summary.Revision + 1
		}

		_, err = db.Exec(`
			UPDATE cost_summaries SET status = $1, reference = $2, revision = $3, updated_at = $4
			WHERE project_id = $5`,
			nextStatus, reference, revision, time.Now(), projectID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save cost summary", "details": err.Error()})
			return
		}

		summary.Status = nextStatus
		summary.Reference = reference
		summary.Revision = revision

		c.JSON(http.StatusOK, models.CostSummaryResponse{
			Success: true,
			Message: "Cost summary saved successfully",
			Data:    summary,
		})

		logCostActivity(db, session, userName, projectID, "cost_summary_save",
			fmt.Sprintf("Saved cost sheet %s (revision %d, status %s)", reference, revision, nextStatus))

		if nextStatus == models.StatusReadyForRedSeal {
			SendNotificationToProjectMembers(db, projectID,
				"Cost sheet awaiting red seal",
				fmt.Sprintf("Cost sheet %s is ready for red seal approval (tentative cost %.2f)", reference, summary.TentativeCost),
				map[string]string{"project_id": fmt.Sprintf("%d", projectID), "type": "cost_summary"})
		}
	}
}

// ApproveCostSummary red-seals the cost sheet
// @Summary Approve cost summary
// @Description Red seal approval; only a ready_for_red_seal sheet with non-zero tentative cost may be approved. Terminal.
// @Tags Costing
// @Produce json
// @Param project_id path int true "Project ID"
// @Success 200 {object} models.CostSummaryResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /api/project/{project_id}/cost-summary/approve [post]
func ApproveCostSummary(db *sql.DB, gormDB *gorm.DB, emailService *services.EmailService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader("Authorization")
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing session ID"})
			return
		}
		session, userName, err := GetSessionDetails(db, sessionID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		projectID, ok := parseProjectIDParam(c)
		if !ok {
			return
		}

		summary, err := RecomputeAndStoreSummary(db, projectID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cost summary", "details": err.Error()})
			return
		}

		if err := CheckApprovable(summary.Status, summary.TentativeCost); err != nil {
			switch err {
			case ErrZeroTentativeCost:
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Cannot approve a cost sheet with zero tentative cost"})
			case ErrInvalidState:
				c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("Cost sheet in status '%s' cannot be approved", summary.Status)})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}

		now := time.Now()
		_, err = db.Exec(`
			UPDATE cost_summaries SET status = $1, approved_at = $2, approved_by = $3, updated_at = $4
			WHERE project_id = $5 AND status = $6`,
			models.StatusApproved, now, userName, now, projectID, models.StatusReadyForRedSeal)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to approve cost summary", "details": err.Error()})
			return
		}

		fromStatus := summary.Status
		summary.Status = models.StatusApproved
		summary.ApprovedAt = &now
		summary.ApprovedBy = userName

		c.JSON(http.StatusOK, models.CostSummaryResponse{
			Success: true,
			Message: "Cost sheet approved successfully",
			Data:    summary,
		})

		approvalLog := models.ApprovalLogGorm{
			ProjectID:     projectID,
			FromStatus:    fromStatus,
			ToStatus:      models.StatusApproved,
			TentativeCost: summary.TentativeCost,
			ActedBy:       userName,
			Remarks:       summary.Remarks,
			CreatedAt:     now,
		}
		if err := gormDB.Create(&approvalLog).Error; err != nil {
			log.Printf("Failed to record approval log: %v", err)
		}

		logCostActivity(db, session, userName, projectID, "cost_summary_approve",
			fmt.Sprintf("Approved cost sheet %s at tentative cost %.2f", summary.Reference, summary.TentativeCost))

		SendNotificationToProjectMembers(db, projectID,
			"Cost sheet approved",
			fmt.Sprintf("Cost sheet %s was red-seal approved by %s", summary.Reference, userName),
			map[string]string{"project_id": fmt.Sprintf("%d", projectID), "type": "cost_summary"})

		if emailService != nil {
			if err := emailService.SendCostSheetApprovedEmail(projectID, userName, summary); err != nil {
				log.Printf("Failed to send approval email: %v", err)
			}
		}
	}
}
