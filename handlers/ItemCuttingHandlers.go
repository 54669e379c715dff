package handlers

import (
	"backend/models"
	"database/sql"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// ==================== CUTTING STAGE RECONCILIATION ====================

// BuildCuttingPlan computes the reconciliation of one item's materials: the
// projected total and remaining balance per material, and the bottleneck
// quantity the scarcest material allows. Pure; callers pass whatever state
// they hold.
func BuildCuttingPlan(materials []models.CuttingMaterialInput) models.CuttingPlan {
	plan := models.CuttingPlan{
		GeneratedAt: time.Now(),
		Materials:   make([]models.CuttingMaterialResult, 0, len(materials)),
	}

	for i, m := range materials {
		totalAfter := m.AlreadyCompleted + m.CompletingToday
		plan.Materials = append(plan.Materials, models.CuttingMaterialResult{
			MaterialName:     m.MaterialName,
			RequiredQuantity: m.RequiredQuantity,
			AlreadyCompleted: m.AlreadyCompleted,
			CompletingToday:  m.CompletingToday,
			TotalAfter:       totalAfter,
			Remaining:        math.Max(m.RequiredQuantity-totalAfter, 0),
		})
		// A pair needs every material, so the scarcest one caps the output.
		if i == 0 || totalAfter < plan.MinimumAvailable {
			plan.MinimumAvailable = totalAfter
		}
	}

	return plan
}

// ComputeCuttingPlan computes a cutting plan from posted figures
// @Summary Compute cutting plan
// @Description Reconcile posted material figures without persisting anything
// @Tags Cutting
// @Accept json
// @Produce json
// @Param request body models.CuttingComputeRequest true "Material figures"
// @Success 200 {object} models.CuttingPlan
// @Failure 400 {object} models.ErrorResponse
// @Router /api/cutting/compute [post]
func ComputeCuttingPlan() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CuttingComputeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		for _, m := range req.Materials {
			if strings.TrimSpace(m.MaterialName) == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Material name is required"})
				return
			}
			if m.RequiredQuantity < 0 || m.AlreadyCompleted < 0 || m.CompletingToday < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Quantities must not be negative"})
				return
			}
		}

		plan := BuildCuttingPlan(req.Materials)
		c.JSON(http.StatusOK, plan)
	}
}

func loadCuttingMaterials(db *sql.DB, projectID, itemID int) ([]models.CuttingMaterial, error) {
	rows, err := db.Query(`
		SELECT id, project_id, item_id, material_name, required_quantity, already_completed, completing_today, updated_at
		FROM cutting_materials
		WHERE project_id = $1 AND item_id = $2
		ORDER BY id`, projectID, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	materials := []models.CuttingMaterial{}
	for rows.Next() {
		var m models.CuttingMaterial
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.ItemID, &m.MaterialName,
			&m.RequiredQuantity, &m.AlreadyCompleted, &m.CompletingToday, &m.UpdatedAt); err != nil {
			return nil, err
		}
		materials = append(materials, m)
	}
	return materials, rows.Err()
}

func planFromStored(materials []models.CuttingMaterial) models.CuttingPlan {
	inputs := make([]models.CuttingMaterialInput, 0, len(materials))
	for _, m := range materials {
		inputs = append(inputs, models.CuttingMaterialInput{
			MaterialName:     m.MaterialName,
			RequiredQuantity: m.RequiredQuantity,
			AlreadyCompleted: m.AlreadyCompleted,
			CompletingToday:  m.CompletingToday,
		})
	}
	return BuildCuttingPlan(inputs)
}

// GetCuttingMaterials lists an item's cutting materials with their plan
// @Summary Get cutting materials
// @Description Retrieve the stored cutting materials of an item together with the computed plan
// @Tags Cutting
// @Produce json
// @Param project_id path int true "Project ID"
// @Param item_id path int true "Item ID"
// @Success 200 {object} models.CuttingListResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /api/project/{project_id}/cutting/{item_id} [get]
func GetCuttingMaterials(db *sql.DB) gin.HandlerFunc {
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
		itemID, err := strconv.Atoi(c.Param("item_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item ID"})
			return
		}

		materials, err := loadCuttingMaterials(db, projectID, itemID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cutting materials", "details": err.Error()})
			return
		}

		plan := planFromStored(materials)
		c.JSON(http.StatusOK, models.CuttingListResponse{
			Success: true,
			Message: "Cutting materials retrieved successfully",
			Rows:    materials,
			Plan:    &plan,
		})
	}
}

// CreateCuttingMaterial registers a required material for an item
// @Summary Create cutting material
// @Description Register a material with its required quantity for an item in the cutting stage
// @Tags Cutting
// @Accept json
// @Produce json
// @Param project_id path int true "Project ID"
// @Param item_id path int true "Item ID"
// @Param request body models.CuttingMaterialInput true "Material"
// @Success 201 {object} models.CuttingListResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /api/project/{project_id}/cutting/{item_id} [post]
func CreateCuttingMaterial(db *sql.DB) gin.HandlerFunc {
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
		itemID, err := strconv.Atoi(c.Param("item_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item ID"})
			return
		}

		var input models.CuttingMaterialInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if strings.TrimSpace(input.MaterialName) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Material name is required"})
			return
		}
		if input.RequiredQuantity < 0 || input.AlreadyCompleted < 0 || input.CompletingToday < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Quantities must not be negative"})
			return
		}

		_, err = db.Exec(`
			INSERT INTO cutting_materials (project_id, item_id, material_name, required_quantity, already_completed, completing_today, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			projectID, itemID, strings.TrimSpace(input.MaterialName),
			input.RequiredQuantity, input.AlreadyCompleted, input.CompletingToday, time.Now())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create cutting material", "details": err.Error()})
			return
		}

		materials, err := loadCuttingMaterials(db, projectID, itemID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cutting materials", "details": err.Error()})
			return
		}

		plan := planFromStored(materials)
		c.JSON(http.StatusCreated, models.CuttingListResponse{
			Success: true,
			Message: "Cutting material created successfully",
			Rows:    materials,
			Plan:    &plan,
		})

		logCostActivity(db, session, userName, projectID, "cutting_material_create",
			fmt.Sprintf("Registered cutting material '%s' for item #%d", input.MaterialName, itemID))
	}
}

// UpdateCuttingQuantity patches a material's completing_today figure
// @Summary Update completing-today quantity
// @Description Set the in-progress quantity of one material; the stored plan is recomputed
// @Tags Cutting
// @Accept json
// @Produce json
// @Param project_id path int true "Project ID"
// @Param item_id path int true "Item ID"
// @Param material_id path int true "Material ID"
// @Param request body models.QuantityUpdateInput true "Quantity"
// @Success 200 {object} models.CuttingListResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/project/{project_id}/cutting/{item_id}/{material_id} [patch]
func UpdateCuttingQuantity(db *sql.DB) gin.HandlerFunc {
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
		itemID, err := strconv.Atoi(c.Param("item_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item ID"})
			return
		}
		materialID, err := strconv.Atoi(c.Param("material_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid material ID"})
			return
		}

		var input models.QuantityUpdateInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if *input.CompletingToday < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity must not be negative"})
			return
		}

		result, err := db.Exec(`
			UPDATE cutting_materials SET completing_today = $1, updated_at = $2
			WHERE id = $3 AND project_id = $4 AND item_id = $5`,
			*input.CompletingToday, time.Now(), materialID, projectID, itemID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update quantity", "details": err.Error()})
			return
		}
		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Cutting material not found"})
			return
		}

		materials, err := loadCuttingMaterials(db, projectID, itemID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cutting materials", "details": err.Error()})
			return
		}

		plan := planFromStored(materials)
		c.JSON(http.StatusOK, models.CuttingListResponse{
			Success: true,
			Message: "Quantity updated successfully",
			Rows:    materials,
			Plan:    &plan,
		})
	}
}

// CommitCuttingDay folds today's figures into the completed totals
// @Summary Commit cutting day
// @Description Atomically fold completing_today into already_completed and reset today to zero for every material of the item
// @Tags Cutting
// @Produce json
// @Param project_id path int true "Project ID"
// @Param item_id path int true "Item ID"
// @Success 200 {object} models.CuttingListResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /api/project/{project_id}/cutting/{item_id}/commit [post]
func CommitCuttingDay(db *sql.DB) gin.HandlerFunc {
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
		itemID, err := strconv.Atoi(c.Param("item_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item ID"})
			return
		}

		// All materials move together or not at all.
		tx, err := db.Begin()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
			return
		}
		defer tx.Rollback()

		_, err = tx.Exec(`
			UPDATE cutting_materials
			SET already_completed = already_completed + completing_today,
			    completing_today = 0,
			    updated_at = $1
			WHERE project_id = $2 AND item_id = $3`,
			time.Now(), projectID, itemID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit cutting day", "details": err.Error()})
			return
		}

		if err = tx.Commit(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit cutting day"})
			return
		}

		materials, err := loadCuttingMaterials(db, projectID, itemID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch cutting materials", "details": err.Error()})
			return
		}

		plan := planFromStored(materials)
		c.JSON(http.StatusOK, models.CuttingListResponse{
			Success: true,
			Message: "Cutting day committed successfully",
			Rows:    materials,
			Plan:    &plan,
		})

		logCostActivity(db, session, userName, projectID, "cutting_commit",
			fmt.Sprintf("Committed cutting day for item #%d", itemID))
	}
}
