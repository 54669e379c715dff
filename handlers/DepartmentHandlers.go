package handlers

import (
	"backend/models"
	"database/sql"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ==================== PRODUCTION STAGE CATALOG ====================

// defaultStages are the stages every installation starts with, in shop-floor
// order.
var defaultStages = []string{"cutting", "stitching", "lasting", "finishing", "packing"}

// SeedDefaultStages inserts the default production stages if the catalog is
// empty. Runs once at startup after migration.
func SeedDefaultStages(gormDB *gorm.DB) error {
	var count int64
	if err := gormDB.Model(&models.DepartmentGorm{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now()
	for i, name := range defaultStages {
		stage := models.DepartmentGorm{Name: name, Sequence: i + 1, CreatedAt: now, UpdatedAt: now}
		if err := gormDB.Create(&stage).Error; err != nil {
			return err
		}
	}
	log.Printf("Seeded %d default production stages", len(defaultStages))
	return nil
}

// GetDepartments lists the production stages
// @Summary Get production stages
// @Description Retrieve all production stages in shop-floor order
// @Tags Departments
// @Produce json
// @Success 200 {object} models.DepartmentListResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/departments [get]
func GetDepartments(db *sql.DB) gin.HandlerFunc {
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

		rows, err := db.Query(`
			SELECT id, name, sequence, created_at, updated_at
			FROM departments
			WHERE deleted_at IS NULL
			ORDER BY sequence, id`)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stages"})
			return
		}
		defer rows.Close()

		departments := []models.Department{}
		for rows.Next() {
			var d models.Department
			if err := rows.Scan(&d.ID, &d.Name, &d.Sequence, &d.CreatedAt, &d.UpdatedAt); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan stage"})
				return
			}
			departments = append(departments, d)
		}
		if err = rows.Err(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating stages"})
			return
		}

		c.JSON(http.StatusOK, models.DepartmentListResponse{
			Success: true,
			Message: "Stages retrieved successfully",
			Data:    departments,
		})
	}
}

// CreateDepartment adds a production stage
// @Summary Create production stage
// @Description Add a stage to the catalog; names are unique
// @Tags Departments
// @Accept json
// @Produce json
// @Param request body models.Department true "Stage creation request"
// @Success 201 {object} models.DepartmentResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/departments [post]
func CreateDepartment(db *sql.DB) gin.HandlerFunc {
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

		var input models.Department
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		name := strings.ToLower(strings.TrimSpace(input.Name))
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Stage name is required"})
			return
		}

		now := time.Now()
		var created models.Department
		err := db.QueryRow(`
			INSERT INTO departments (name, sequence, created_at, updated_at)
			VALUES ($1, $2, $3, $3)
			RETURNING id, name, sequence, created_at, updated_at`,
			name, input.Sequence, now,
		).Scan(&created.ID, &created.Name, &created.Sequence, &created.CreatedAt, &created.UpdatedAt)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				c.JSON(http.StatusConflict, gin.H{"error": "Stage with this name already exists"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create stage", "details": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, models.DepartmentResponse{
			Success: true,
			Message: "Stage created successfully",
			Data:    &created,
		})
	}
}

// UpdateDepartment renames or reorders a production stage
// @Summary Update production stage
// @Description Update a stage's name or sequence
// @Tags Departments
// @Accept json
// @Produce json
// @Param id path int true "Stage ID"
// @Param request body models.Department true "Stage update request"
// @Success 200 {object} models.DepartmentResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/departments/{id} [put]
func UpdateDepartment(db *sql.DB) gin.HandlerFunc {
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

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid stage ID"})
			return
		}

		var input models.Department
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		name := strings.ToLower(strings.TrimSpace(input.Name))
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Stage name is required"})
			return
		}

		var updated models.Department
		err = db.QueryRow(`
			UPDATE departments SET name = $1, sequence = $2, updated_at = $3
			WHERE id = $4 AND deleted_at IS NULL
			RETURNING id, name, sequence, created_at, updated_at`,
			name, input.Sequence, time.Now(), id,
		).Scan(&updated.ID, &updated.Name, &updated.Sequence, &updated.CreatedAt, &updated.UpdatedAt)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Stage not found"})
			return
		} else if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				c.JSON(http.StatusConflict, gin.H{"error": "Stage with this name already exists"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update stage", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, models.DepartmentResponse{
			Success: true,
			Message: "Stage updated successfully",
			Data:    &updated,
		})
	}
}

// DeleteDepartment soft-deletes a production stage
// @Summary Delete production stage
// @Description Soft delete a stage; items keep their existing tags
// @Tags Departments
// @Produce json
// @Param id path int true "Stage ID"
// @Success 200 {object} models.DepartmentResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/departments/{id} [delete]
func DeleteDepartment(db *sql.DB) gin.HandlerFunc {
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

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid stage ID"})
			return
		}

		result, err := db.Exec(`
			UPDATE departments SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL`,
			time.Now(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete stage"})
			return
		}
		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Stage not found"})
			return
		}

		c.JSON(http.StatusOK, models.DepartmentResponse{
			Success: true,
			Message: "Stage deleted successfully",
		})
	}
}
