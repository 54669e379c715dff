package handlers

import (
	"backend/models"
	"backend/repository"
	"database/sql"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
)

// ==================== PROJECTS ====================

// CreateProject creates a project
// @Summary Create project
// @Description Create a project with the abbreviation used in cost sheet references
// @Tags Projects
// @Accept json
// @Produce json
// @Param project body models.Project true "Project data"
// @Success 201 {object} models.Project
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/projects [post]
func CreateProject(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader("Authorization")
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Authorization header is missing"})
			return
		}
		session, userName, err := GetSessionDetails(db, sessionID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}

		var project models.Project
		if err := c.ShouldBindJSON(&project); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}
		if strings.TrimSpace(project.Name) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Project name is required"})
			return
		}
		project.Abbreviation = strings.ToUpper(strings.TrimSpace(project.Abbreviation))
		if project.Abbreviation == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Project abbreviation is required"})
			return
		}
		if project.ProjectStatus == "" {
			project.ProjectStatus = "active"
		}

		project.ProjectId = repository.GenerateRandomNumber()
		_, err = db.Exec(`
			INSERT INTO projects (project_id, name, project_status, description, client_id, abbreviation, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`,
			project.ProjectId, project.Name, project.ProjectStatus, project.Description,
			project.ClientId, project.Abbreviation,
		)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				c.JSON(http.StatusConflict, gin.H{"error": "A project with this name already exists"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create project", "details": err.Error()})
			return
		}

		// The creator follows the project by default.
		if _, err := db.Exec(`INSERT INTO project_members (project_id, user_id) VALUES ($1, $2)`, project.ProjectId, session.UserID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add creator as member"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"data": project, "message": "Project created successfully"})

		logCostActivity(db, session, userName, project.ProjectId, "Create",
			"Created project "+project.Name)
	}
}

// GetProject fetches one project
// @Summary Get project
// @Tags Projects
// @Produce json
// @Param project_id path int true "Project ID"
// @Success 200 {object} models.Project
// @Failure 404 {object} models.ErrorResponse
// @Router /api/project/{project_id} [get]
func GetProject(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, ok := parseProjectIDParam(c)
		if !ok {
			return
		}

		var project models.Project
		err := db.QueryRow(`
			SELECT project_id, name, project_status, description, client_id, abbreviation, created_at, updated_at
			FROM projects WHERE project_id = $1`, projectID).Scan(
			&project.ProjectId, &project.Name, &project.ProjectStatus, &project.Description,
			&project.ClientId, &project.Abbreviation, &project.CreatedAt, &project.UpdatedAt,
		)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch project", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": project, "message": "project fetched successfully"})
	}
}

// FetchAllProjects lists every project
// @Summary List projects
// @Tags Projects
// @Produce json
// @Success 200 {array} models.Project
// @Router /api/projects [get]
func FetchAllProjects(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := db.Query(`
			SELECT project_id, name, project_status, description, client_id, abbreviation, created_at, updated_at
			FROM projects ORDER BY name`)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch projects", "details": err.Error()})
			return
		}
		defer rows.Close()

		projects := []models.Project{}
		for rows.Next() {
			var project models.Project
			if err := rows.Scan(
				&project.ProjectId, &project.Name, &project.ProjectStatus, &project.Description,
				&project.ClientId, &project.Abbreviation, &project.CreatedAt, &project.UpdatedAt,
			); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan project", "details": err.Error()})
				return
			}
			projects = append(projects, project)
		}
		if err := rows.Err(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read projects", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": projects, "message": "projects fetched successfully"})
	}
}

// ==================== PROJECT STATUS ====================

// GetProjectStatus retrieves the project and costing status
// @Summary Get project status
// @Description Retrieve the project lifecycle status together with the costing approval status
// @Tags Projects
// @Produce json
// @Param project_id path int true "Project ID"
// @Success 200 {object} models.ProjectStatusResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/project/{project_id}/status [get]
func GetProjectStatus(db *sql.DB) gin.HandlerFunc {
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

		var projectStatus string
		err := db.QueryRow(`SELECT project_status FROM projects WHERE project_id = $1`, projectID).Scan(&projectStatus)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		} else if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch project", "details": err.Error()})
			return
		}

		costingStatus := models.StatusDraft
		err = db.QueryRow(`SELECT status FROM cost_summaries WHERE project_id = $1`, projectID).Scan(&costingStatus)
		if err != nil && err != sql.ErrNoRows {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch costing status", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, models.ProjectStatusResponse{
			ProjectID:     projectID,
			ProjectStatus: projectStatus,
			CostingStatus: costingStatus,
		})
	}
}

// CostingGateMiddleware blocks cost mutations once the cost sheet is approved.
// An approved sheet is frozen; any further edit attempt gets 423 Locked.
func CostingGateMiddleware(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		projectID, ok := parseProjectIDParam(c)
		if !ok {
			c.Abort()
			return
		}

		var status string
		err := db.QueryRow(`SELECT status FROM cost_summaries WHERE project_id = $1`, projectID).Scan(&status)
		if err == sql.ErrNoRows {
			// No summary yet means nothing is frozen.
			c.Next()
			return
		} else if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch costing status"})
			return
		}

		if status == models.StatusApproved {
			c.AbortWithStatusJSON(http.StatusLocked, gin.H{"error": "Cost sheet is red-seal approved and can no longer be edited"})
			return
		}

		c.Next()
	}
}
