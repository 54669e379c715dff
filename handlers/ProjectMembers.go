package handlers

import (
	"database/sql"
	"net/http"
	"strconv"

	"backend/models"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
)

// AddProjectMember assigns a user to a project
// @Summary Add project member
// @Description Assign a user to a project so they receive costing notifications
// @Tags Project Members
// @Accept json
// @Produce json
// @Param project_id path int true "Project ID"
// @Param body body object true "{\"user_id\":320}"
// @Success 201 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/project/{project_id}/members [post]
func AddProjectMember(db *sql.DB) gin.HandlerFunc {
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

		projectID, err := strconv.Atoi(c.Param("project_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
			return
		}

		var input struct {
			UserID int `json:"user_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		_, err = db.Exec(`INSERT INTO project_members (project_id, user_id) VALUES ($1, $2)`, projectID, input.UserID)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				c.JSON(http.StatusConflict, gin.H{"error": "User is already a member of this project"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add member", "details": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"message": "Member added successfully"})

		logCostActivity(db, session, userName, projectID, "Create",
			"Added user "+strconv.Itoa(input.UserID)+" to project")
	}
}

// GetProjectMembers lists a project's members
// @Summary List project members
// @Tags Project Members
// @Produce json
// @Param project_id path int true "Project ID"
// @Success 200 {array} models.User
// @Failure 400 {object} models.ErrorResponse
// @Router /api/project/{project_id}/members [get]
func GetProjectMembers(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, err := strconv.Atoi(c.Param("project_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
			return
		}

		rows, err := db.Query(`
			SELECT u.id, u.email, u.first_name, u.last_name, u.role_id, COALESCE(r.role_name, '')
			FROM project_members pm
			JOIN users u ON pm.user_id = u.id
			LEFT JOIN roles r ON u.role_id = r.role_id
			WHERE pm.project_id = $1
			ORDER BY u.first_name, u.last_name`, projectID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch members", "details": err.Error()})
			return
		}
		defer rows.Close()

		members := []models.User{}
		for rows.Next() {
			var user models.User
			if err := rows.Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName, &user.RoleID, &user.RoleName); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan member", "details": err.Error()})
				return
			}
			members = append(members, user)
		}
		if err := rows.Err(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read members", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": members, "message": "project members fetched successfully"})
	}
}

// RemoveProjectMember removes a user from a project
// @Summary Remove project member
// @Tags Project Members
// @Produce json
// @Param project_id path int true "Project ID"
// @Param user_id path int true "User ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/project/{project_id}/members/{user_id} [delete]
func RemoveProjectMember(db *sql.DB) gin.HandlerFunc {
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

		projectID, err := strconv.Atoi(c.Param("project_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid project ID"})
			return
		}
		userID, err := strconv.Atoi(c.Param("user_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}

		result, err := db.Exec(`DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`, projectID, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove member", "details": err.Error()})
			return
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Member removed successfully"})

		logCostActivity(db, session, userName, projectID, "Delete",
			"Removed user "+strconv.Itoa(userID)+" from project")
	}
}
