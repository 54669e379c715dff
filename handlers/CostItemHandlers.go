package handlers

import (
	"backend/models"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// ==================== COST LINE ITEM CRUD OPERATIONS ====================

// parseCategoryParam validates the :category path segment against the fixed
// category set and writes the 400 response itself on failure.
func parseCategoryParam(c *gin.Context) (models.CostCategory, bool) {
	raw := strings.ToLower(strings.TrimSpace(c.Param("category")))
	cat, ok := models.ParseCostCategory(raw)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown cost category: %s", raw)})
		return "", false
	}
	return cat, true
}

func parseProjectIDParam(c *gin.Context) (int, bool) {
	projectID, err := strconv.Atoi(c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
		return 0, false
	}
	return projectID, true
}

// GetCostItems retrieves all line items of one category
// @Summary Get cost items by category
// @Description Retrieve all cost line items of a project for one category
// @Tags Costing
// @Produce json
// @Param project_id path int true "Project ID"
// @Param category path string true "Cost category" Enums(upper, component, material, packaging, miscellaneous)
// @Success 200 {object} models.CostItemListResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/project/{project_id}/costs/{category} [get]
func GetCostItems(db *sql.DB) gin.HandlerFunc {
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
		category, ok := parseCategoryParam(c)
		if !ok {
			return
		}

		rows, err := db.Query(`
			SELECT id, project_id, category, item, description, consumption, cost, department, created_at, updated_at
			FROM cost_items
			WHERE project_id = $1 AND category = $2
			ORDER BY id`, projectID, category.String())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cost items", "details": err.Error()})
			return
		}
		defer rows.Close()

		items := []models.CostItem{}
		for rows.Next() {
			var item models.CostItem
			if err := rows.Scan(&item.ID, &item.ProjectID, &item.Category, &item.Item, &item.Description,
				&item.Consumption, &item.Cost, &item.Department, &item.CreatedAt, &item.UpdatedAt); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan cost item"})
				return
			}
			items = append(items, item)
		}
		if err = rows.Err(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating cost items"})
			return
		}

		c.JSON(http.StatusOK, models.CostItemListResponse{
			Success: true,
			Message: "Cost items retrieved successfully",
			Rows:    items,
		})
	}
}

// CreateCostItem adds a line item to one category
// @Summary Create cost item
// @Description Add a cost line item to a project category; the summary is recomputed
// @Tags Costing
// @Accept json
// @Produce json
// @Param project_id path int true "Project ID"
// @Param category path string true "Cost category"
// @Param request body models.CostItemInput true "Cost item creation request"
// @Success 201 {object} models.CostItemResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/project/{project_id}/costs/{category} [post]
func CreateCostItem(db *sql.DB) gin.HandlerFunc {
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
		category, ok := parseCategoryParam(c)
		if !ok {
			return
		}

		var input models.CostItemInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if strings.TrimSpace(input.Item) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Item name is required"})
			return
		}
		if input.Cost < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cost must not be negative"})
			return
		}

		now := time.Now()
		var item models.CostItem
		err = db.QueryRow(`
			INSERT INTO cost_items (project_id, category, item, description, consumption, cost, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			projectID, category.String(), strings.TrimSpace(input.Item), input.Description,
			input.Consumption, input.Cost, now, now,
		).Scan(&item.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create cost item", "details": err.Error()})
			return
		}

		item.ProjectID = projectID
		item.Category = category.String()
		item.Item = strings.TrimSpace(input.Item)
		item.Description = input.Description
		item.Consumption = input.Consumption
		item.Cost = input.Cost
		item.CreatedAt = now
		item.UpdatedAt = now

		summary, err := RecomputeAndStoreSummary(db, projectID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to recompute cost summary", "details": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, models.CostItemResponse{
			Success: true,
			Message: "Cost item created successfully",
			Row:     &item,
			Summary: summary,
		})

		logCostActivity(db, session, userName, projectID, "cost_item_create",
			fmt.Sprintf("Added %s item '%s' (cost %.2f)", category, item.Item, item.Cost))
	}
}

// UpdateCostItemCost replaces the cost of one line item
// @Summary Update cost item cost
// @Description Replace the cost of a line item; the summary is recomputed
// @Tags Costing
// @Accept json
// @Produce json
// @Param project_id path int true "Project ID"
// @Param category path string true "Cost category"
// @Param item_id path int true "Item ID"
// @Param request body models.CostUpdateInput true "New cost"
// @Success 200 {object} models.CostItemResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/project/{project_id}/costs/{category}/{item_id} [patch]
func UpdateCostItemCost(db *sql.DB) gin.HandlerFunc {
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
		category, ok := parseCategoryParam(c)
		if !ok {
			return
		}
		itemID, err := strconv.Atoi(c.Param("item_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item ID"})
			return
		}

		var input models.CostUpdateInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if *input.Cost < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cost must not be negative"})
			return
		}

		var item models.CostItem
		err = db.QueryRow(`
			UPDATE cost_items SET cost = $1, updated_at = $2
			WHERE id = $3 AND project_id = $4 AND category = $5
			RETURNING id, project_id, category, item, description, consumption, cost, department, created_at, updated_at`,
			*input.Cost, time.Now(), itemID, projectID, category.String(),
		).Scan(&item.ID, &item.ProjectID, &item.Category, &item.Item, &item.Description,
			&item.Consumption, &item.Cost, &item.Department, &item.CreatedAt, &item.UpdatedAt)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Cost item not found"})
			return
		} else if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cost item", "details": err.Error()})
			return
		}

		summary, err := RecomputeAndStoreSummary(db, projectID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to recompute cost summary", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, models.CostItemResponse{
			Success: true,
			Message: "Cost updated successfully",
			Row:     &item,
			Summary: summary,
		})

		logCostActivity(db, session, userName, projectID, "cost_item_update",
			fmt.Sprintf("Updated %s item #%d cost to %.2f", category, itemID, item.Cost))
	}
}

// DeleteCostItem removes a line item
// @Summary Delete cost item
// @Description Remove a line item from a category; the summary is recomputed
// @Tags Costing
// @Produce json
// @Param project_id path int true "Project ID"
// @Param category path string true "Cost category"
// @Param item_id path int true "Item ID"
// @Success 200 {object} models.CostItemResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/project/{project_id}/costs/{category}/{item_id} [delete]
func DeleteCostItem(db *sql.DB) gin.HandlerFunc {
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
		category, ok := parseCategoryParam(c)
		if !ok {
			return
		}
		itemID, err := strconv.Atoi(c.Param("item_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item ID"})
			return
		}

		result, err := db.Exec(`DELETE FROM cost_items WHERE id = $1 AND project_id = $2 AND category = $3`,
			itemID, projectID, category.String())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete cost item"})
			return
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check delete result"})
			return
		}
		if rowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Cost item not found"})
			return
		}

		summary, err := RecomputeAndStoreSummary(db, projectID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to recompute cost summary", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, models.CostItemResponse{
			Success: true,
			Message: "Cost item deleted successfully",
			Summary: summary,
		})

		logCostActivity(db, session, userName, projectID, "cost_item_delete",
			fmt.Sprintf("Deleted %s item #%d", category, itemID))
	}
}

// SetCostItemDepartment tags a line item with a production stage
// @Summary Tag cost item with a stage
// @Description Record the production stage of an upper/component item; other categories are rejected
// @Tags Costing
// @Accept json
// @Produce json
// @Param project_id path int true "Project ID"
// @Param category path string true "Cost category"
// @Param item_id path int true "Item ID"
// @Param request body models.DepartmentTagInput true "Stage tag"
// @Success 200 {object} models.CostItemResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /api/project/{project_id}/costs/{category}/{item_id}/department [patch]
func SetCostItemDepartment(db *sql.DB) gin.HandlerFunc {
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
		category, ok := parseCategoryParam(c)
		if !ok {
			return
		}
		itemID, err := strconv.Atoi(c.Param("item_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item ID"})
			return
		}

		if !category.AllowsDepartment() {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": fmt.Sprintf("Department tags are only allowed on upper and component items, not %s", category),
			})
			return
		}

		var input models.DepartmentTagInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		stage := strings.ToLower(strings.TrimSpace(input.Department))

		// The stage must exist in the departments catalog
		var stageID int
		err = db.QueryRow(`SELECT id FROM departments WHERE name = $1 AND deleted_at IS NULL`, stage).Scan(&stageID)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown production stage: %s", stage)})
			return
		} else if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up stage"})
			return
		}

		var item models.CostItem
		err = db.QueryRow(`
			UPDATE cost_items SET department = $1, updated_at = $2
			WHERE id = $3 AND project_id = $4 AND category = $5
			RETURNING id, project_id, category, item, description, consumption, cost, department, created_at, updated_at`,
			stage, time.Now(), itemID, projectID, category.String(),
		).Scan(&item.ID, &item.ProjectID, &item.Category, &item.Item, &item.Description,
			&item.Consumption, &item.Cost, &item.Department, &item.CreatedAt, &item.UpdatedAt)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Cost item not found"})
			return
		} else if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to tag cost item", "details": err.Error()})
			return
		}

		// Stage tags are side-channel metadata; no recompute needed.
		c.JSON(http.StatusOK, models.CostItemResponse{
			Success: true,
			Message: "Department tag saved successfully",
			Row:     &item,
		})

		logCostActivity(db, session, userName, projectID, "cost_item_department",
			fmt.Sprintf("Tagged %s item #%d with stage '%s'", category, itemID, stage))
	}
}

// logCostActivity writes an activity log row for a cost mutation. Failures are
// logged and swallowed; audit rows never fail the request.
func logCostActivity(db *sql.DB, session models.Session, userName string, projectID int, event, description string) {
	entry := models.ActivityLog{
		CreatedAt:    time.Now(),
		UserName:     userName,
		HostName:     session.HostName,
		EventContext: "costing",
		IPAddress:    session.IPAddress,
		Description:  description,
		EventName:    event,
		ProjectID:    projectID,
	}
	if err := SaveActivityLog(db, entry); err != nil {
		log.Printf("Failed to insert activity log: %v", err)
	}
}
