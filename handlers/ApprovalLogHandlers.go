package handlers

import (
	"backend/models"
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetApprovalLogs lists the approval history of a project's cost sheet
// @Summary Get approval logs
// @Description Retrieve the red seal approval history of a project, newest first
// @Tags Costing
// @Produce json
// @Param project_id path int true "Project ID"
// @Success 200 {object} models.ApprovalLogListResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/project/{project_id}/approval-logs [get]
func GetApprovalLogs(db *sql.DB, gormDB *gorm.DB) gin.HandlerFunc {
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

		var logs []models.ApprovalLogGorm
		if err := gormDB.Where("project_id = ?", projectID).Order("created_at DESC").Find(&logs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch approval logs", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, models.ApprovalLogListResponse{
			Success: true,
			Message: "Approval logs retrieved successfully",
			Data:    logs,
		})
	}
}
