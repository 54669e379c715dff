package handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"backend/models"
	"backend/storage"
	"backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
)

// CreateUser creates a user account
// @Summary Create user
// @Description Create a new user with a bcrypt-hashed password
// @Tags Users
// @Accept json
// @Produce json
// @Param user body models.User true "User data"
// @Success 201 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/users [post]
func CreateUser(db *sql.DB) gin.HandlerFunc {
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

		var user models.User
		if err := c.ShouldBindJSON(&user); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		user.Email = strings.ToLower(strings.TrimSpace(user.Email))
		if user.Email == "" || user.Password == "" || strings.TrimSpace(user.FirstName) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email, password and first_name are required"})
			return
		}

		hashed, err := utils.HashPassword(user.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
			return
		}

		var userID int
		err = db.QueryRow(`
			INSERT INTO users (employee_id, email, password, first_name, last_name, phone_no, role_id, designation, is_admin, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
			RETURNING id`,
			user.EmployeeId, user.Email, hashed, user.FirstName, user.LastName,
			user.PhoneNo, user.RoleID, user.Designation, user.IsAdmin,
		).Scan(&userID)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				c.JSON(http.StatusConflict, gin.H{"error": "A user with this email already exists"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user", "details": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"message": "User created successfully", "id": userID})

		logCostActivity(db, session, userName, 0, "Create", "Created user "+user.Email)
	}
}

// GetUser fetches one user by ID
// @Summary Get user
// @Tags Users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} models.ErrorResponse
// @Router /api/users/{id} [get]
func GetUser(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}

		var user models.User
		var roleName sql.NullString
		err = db.QueryRow(`
			SELECT u.id, u.employee_id, u.email, u.first_name, u.last_name, u.phone_no,
			       u.role_id, r.role_name, u.suspended, u.designation, u.is_admin, u.created_at, u.updated_at
			FROM users u
			LEFT JOIN roles r ON u.role_id = r.role_id
			WHERE u.id = $1`, id).Scan(
			&user.ID, &user.EmployeeId, &user.Email, &user.FirstName, &user.LastName, &user.PhoneNo,
			&user.RoleID, &roleName, &user.Suspended, &user.Designation, &user.IsAdmin, &user.CreatedAt, &user.UpdatedAt,
		)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user", "details": err.Error()})
			return
		}
		user.RoleName = roleName.String
		user.Password = ""

		c.JSON(http.StatusOK, gin.H{"data": user, "message": "user fetched successfully"})
	}
}

// GetAllUsers lists all users
// @Summary List users
// @Tags Users
// @Produce json
// @Success 200 {array} models.User
// @Router /api/users [get]
func GetAllUsers(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := db.Query(`
			SELECT u.id, u.employee_id, u.email, u.first_name, u.last_name, u.phone_no,
			       u.role_id, r.role_name, u.suspended, u.designation, u.is_admin, u.created_at, u.updated_at
			FROM users u
			LEFT JOIN roles r ON u.role_id = r.role_id
			ORDER BY u.first_name, u.last_name`)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users", "details": err.Error()})
			return
		}
		defer rows.Close()

		users := []models.User{}
		for rows.Next() {
			var user models.User
			var roleName sql.NullString
			if err := rows.Scan(
				&user.ID, &user.EmployeeId, &user.Email, &user.FirstName, &user.LastName, &user.PhoneNo,
				&user.RoleID, &roleName, &user.Suspended, &user.Designation, &user.IsAdmin, &user.CreatedAt, &user.UpdatedAt,
			); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan user", "details": err.Error()})
				return
			}
			user.RoleName = roleName.String
			users = append(users, user)
		}
		if err := rows.Err(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read users", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": users, "message": "users fetched successfully"})
	}
}

// UpdateUser updates a user's profile fields
// @Summary Update user
// @Tags Users
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param user body models.User true "User data"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/users/{id} [put]
func UpdateUser(db *sql.DB) gin.HandlerFunc {
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

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}

		var user models.User
		if err := c.ShouldBindJSON(&user); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		result, err := db.Exec(`
			UPDATE users
			SET first_name = $1, last_name = $2, phone_no = $3, role_id = $4,
			    designation = $5, suspended = $6, updated_at = NOW()
			WHERE id = $7`,
			user.FirstName, user.LastName, user.PhoneNo, user.RoleID,
			user.Designation, user.Suspended, id,
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user", "details": err.Error()})
			return
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "User updated successfully"})

		logCostActivity(db, session, userName, 0, "Update", "Updated user "+strconv.Itoa(id))
	}
}

// DeleteUser deletes a user and their sessions
// @Summary Delete user
// @Tags Users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/users/{id} [delete]
func DeleteUser(db *sql.DB) gin.HandlerFunc {
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

		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}

		tx, err := db.Begin()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
			return
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`DELETE FROM session WHERE user_id = $1`, id); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user sessions"})
			return
		}
		if _, err := tx.Exec(`DELETE FROM project_members WHERE user_id = $1`, id); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user memberships"})
			return
		}
		result, err := tx.Exec(`DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user", "details": err.Error()})
			return
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		if err := tx.Commit(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})

		logCostActivity(db, session, userName, 0, "Delete", "Deleted user "+strconv.Itoa(id))
	}
}

// GetUserFromSession returns the account behind the Authorization header
// @Summary Get current user
// @Tags Users
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse
// @Router /api/me [get]
func GetUserFromSession(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader("Authorization")
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Authorization header is missing"})
			return
		}

		user, err := storage.GetUserBySessionID(db, sessionID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}
		user.Password = ""
		user.LastAccess = time.Now()

		c.JSON(http.StatusOK, gin.H{"data": user, "message": "user fetched successfully"})
	}
}
