package handlers

import (
	"backend/models"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// ==================== LABOUR BLOCK OPERATIONS ====================

// GetLabourBlock retrieves the labour block of a project
// @Summary Get labour block
// @Description Retrieve the labour direct total and the informational item breakdown
// @Tags Costing
// @Produce json
// @Param project_id path int true "Project ID"
// @Success 200 {object} models.LabourResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/project/{project_id}/labour [get]
func GetLabourBlock(db *sql.DB) gin.HandlerFunc {
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

		labour, err := loadLabourBlock(db, projectID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch labour block", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, models.LabourResponse{
			Success: true,
			Message: "Labour block retrieved successfully",
			Data:    &labour,
		})
	}
}

// UpdateLabourBlock patches the labour block
// @Summary Update labour block
// @Description Update the direct total and/or replace the item breakdown. The direct total feeds the roll-up; items are informational and are never summed into it.
// @Tags Costing
// @Accept json
// @Produce json
// @Param project_id path int true "Project ID"
// @Param request body models.LabourUpdateInput true "Labour update"
// @Success 200 {object} models.LabourResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/project/{project_id}/labour [patch]
func UpdateLabourBlock(db *sql.DB) gin.HandlerFunc {
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

		var input models.LabourUpdateInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if input.DirectTotal == nil && input.Items == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
			return
		}
		if input.DirectTotal != nil && *input.DirectTotal < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Labour total must not be negative"})
			return
		}
		if input.Items != nil {
			for _, item := range *input.Items {
				if strings.TrimSpace(item.Name) == "" {
					c.JSON(http.StatusBadRequest, gin.H{"error": "Labour item name is required"})
					return
				}
				if item.Cost < 0 {
					c.JSON(http.StatusBadRequest, gin.H{"error": "Labour item cost must not be negative"})
					return
				}
			}
		}

		tx, err := db.Begin()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
			return
		}
		defer tx.Rollback()

		now := time.Now()
		if input.DirectTotal != nil {
			_, err = tx.Exec(`
				INSERT INTO labour_costs (project_id, direct_total, created_at, updated_at)
				VALUES ($1, $2, $3, $3)
				ON CONFLICT (project_id) DO UPDATE SET direct_total = $2, updated_at = $3`,
				projectID, *input.DirectTotal, now)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update labour total", "details": err.Error()})
				return
			}
		}

		if input.Items != nil {
			// Full replace of the informational breakdown.
			if _, err = tx.Exec(`DELETE FROM labour_items WHERE project_id = $1`, projectID); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to replace labour items"})
				return
			}
			for _, item := range *input.Items {
				_, err = tx.Exec(`INSERT INTO labour_items (project_id, name, cost) VALUES ($1, $2, $3)`,
					projectID, strings.TrimSpace(item.Name), item.Cost)
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to insert labour item", "details": err.Error()})
					return
				}
			}
		}

		if err = tx.Commit(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit labour update"})
			return
		}

		labour, err := loadLabourBlock(db, projectID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch labour block", "details": err.Error()})
			return
		}

		summary, err := RecomputeAndStoreSummary(db, projectID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to recompute cost summary", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, models.LabourResponse{
			Success: true,
			Message: "Labour block updated successfully",
			Data:    &labour,
			Summary: summary,
		})

		logCostActivity(db, session, userName, projectID, "labour_update",
			fmt.Sprintf("Updated labour block (direct total %.2f, %d items)", labour.DirectTotal, len(labour.Items)))
	}
}
