package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"backend/models"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"golang.org/x/net/html"
)

var validTemplateTypes = []string{
	"cost_sheet_approved", "cost_sheet_ready", "notification",
	"welcome_user", "password_reset",
}

func isValidTemplateType(templateType string) bool {
	for _, t := range validTemplateTypes {
		if templateType == t {
			return true
		}
	}
	return false
}

// sanitizeHTML strips tags and attributes outside the allow-list from
// template bodies coming from the frontend rich text editor.
func sanitizeHTML(input string) string {
	doc, err := html.Parse(strings.NewReader(input))
	if err != nil {
		return input
	}

	allowedTags := map[string]bool{
		"p": true, "br": true, "strong": true, "b": true, "em": true, "i": true,
		"u": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
		"ul": true, "ol": true, "li": true, "div": true, "span": true, "a": true,
		"table": true, "thead": true, "tbody": true, "tr": true, "th": true, "td": true,
		"blockquote": true, "code": true, "pre": true, "hr": true,
	}
	allowedAttributes := map[string]map[string]bool{
		"a":     {"href": true, "target": true, "title": true},
		"table": {"border": true, "cellpadding": true, "cellspacing": true, "width": true},
		"td":    {"colspan": true, "rowspan": true, "width": true, "height": true},
		"th":    {"colspan": true, "rowspan": true, "width": true, "height": true},
	}

	var sb strings.Builder
	var render func(*html.Node)
	render = func(n *html.Node) {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			switch child.Type {
			case html.TextNode:
				sb.WriteString(html.EscapeString(child.Data))
			case html.ElementNode:
				if allowedTags[child.Data] {
					sb.WriteString("<" + child.Data)
					for _, attr := range child.Attr {
						if allowed, ok := allowedAttributes[child.Data]; ok && allowed[attr.Key] {
							sb.WriteString(" " + attr.Key + `="` + html.EscapeString(attr.Val) + `"`)
						}
					}
					sb.WriteString(">")
					render(child)
					sb.WriteString("</" + child.Data + ">")
				} else {
					// Drop the tag, keep its children.
					render(child)
				}
			default:
				render(child)
			}
		}
	}
	render(doc)
	return sb.String()
}

// CreateEmailTemplate creates a new email template
// @Summary Create email template
// @Description Create a new email template for costing notifications
// @Tags Email Templates
// @Accept json
// @Produce json
// @Param template body models.EmailTemplateRequest true "Email template data"
// @Success 201 {object} models.EmailTemplate
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/email-templates [post]
func CreateEmailTemplate(db *sql.DB) gin.HandlerFunc {
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

		var request models.EmailTemplateRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		if !isValidTemplateType(request.TemplateType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template type", "valid_types": validTemplateTypes})
			return
		}

		tx, err := db.Begin()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
			return
		}
		defer tx.Rollback()

		// Only one default per type.
		if request.IsDefault {
			if _, err := tx.Exec("UPDATE email_templates SET is_default = false WHERE template_type = $1", request.TemplateType); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update existing defaults"})
				return
			}
		}

		sanitizedBody := sanitizeHTML(request.Body)

		variablesJSON, err := json.Marshal(request.Variables)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process variables"})
			return
		}

		var templateID int
		query := `
			INSERT INTO email_templates (name, subject, body, template_type, is_default, is_active, variables, cc, bcc, created_by)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id`
		err = tx.QueryRow(query,
			request.Name, request.Subject, sanitizedBody, request.TemplateType,
			request.IsDefault, request.IsActive, variablesJSON,
			pq.Array(request.CC), pq.Array(request.BCC), session.UserID,
		).Scan(&templateID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create template", "details": err.Error()})
			return
		}

		if err := tx.Commit(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message": "Email template created successfully",
			"id":      templateID,
		})

		logCostActivity(db, session, userName, 0, "Create",
			"Created email template '"+request.Name+"' of type "+request.TemplateType)
	}
}

// GetEmailTemplates lists all active email templates
// @Summary List email templates
// @Tags Email Templates
// @Produce json
// @Success 200 {array} models.EmailTemplate
// @Failure 500 {object} models.ErrorResponse
// @Router /api/email-templates [get]
func GetEmailTemplates(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := `
			SELECT id, name, subject, body, template_type, is_default, is_active,
			       variables, cc, bcc, created_by, created_at, updated_at, updated_by
			FROM email_templates
			WHERE is_active = true
			ORDER BY template_type, is_default DESC, name`

		rows, err := db.Query(query)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch templates", "details": err.Error()})
			return
		}
		defer rows.Close()

		templates := []models.EmailTemplate{}
		for rows.Next() {
			var template models.EmailTemplate
			var cc, bcc pq.StringArray
			var variables sql.NullString
			if err := rows.Scan(
				&template.ID, &template.Name, &template.Subject, &template.Body,
				&template.TemplateType, &template.IsDefault, &template.IsActive,
				&variables, &cc, &bcc, &template.CreatedBy, &template.CreatedAt,
				&template.UpdatedAt, &template.UpdatedBy,
			); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan template", "details": err.Error()})
				return
			}
			template.CC = []string(cc)
			template.BCC = []string(bcc)
			if variables.Valid {
				template.Variables = json.RawMessage(variables.String)
			}
			templates = append(templates, template)
		}
		if err := rows.Err(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read templates", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": templates, "message": "email templates fetched successfully"})
	}
}

// GetEmailTemplateByID fetches a single email template
// @Summary Get email template by ID
// @Tags Email Templates
// @Produce json
// @Param id path int true "Template ID"
// @Success 200 {object} models.EmailTemplate
// @Failure 404 {object} models.ErrorResponse
// @Router /api/email-templates/{id} [get]
func GetEmailTemplateByID(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template ID"})
			return
		}

		template, err := models.GetTemplateByID(db, id)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch template", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": template, "message": "email template fetched successfully"})
	}
}

// UpdateEmailTemplate updates an existing email template
// @Summary Update email template
// @Tags Email Templates
// @Accept json
// @Produce json
// @Param id path int true "Template ID"
// @Param template body models.EmailTemplateRequest true "Email template data"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/email-templates/{id} [put]
func UpdateEmailTemplate(db *sql.DB) gin.HandlerFunc {
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
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template ID"})
			return
		}

		var request models.EmailTemplateRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}
		if !isValidTemplateType(request.TemplateType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template type", "valid_types": validTemplateTypes})
			return
		}

		tx, err := db.Begin()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
			return
		}
		defer tx.Rollback()

		if request.IsDefault {
			if _, err := tx.Exec("UPDATE email_templates SET is_default = false WHERE template_type = $1 AND id != $2", request.TemplateType, id); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update existing defaults"})
				return
			}
		}

		sanitizedBody := sanitizeHTML(request.Body)
		variablesJSON, err := json.Marshal(request.Variables)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process variables"})
			return
		}

		result, err := tx.Exec(`
			UPDATE email_templates
			SET name = $1, subject = $2, body = $3, template_type = $4,
			    is_default = $5, is_active = $6, variables = $7, cc = $8, bcc = $9,
			    updated_by = $10, updated_at = NOW()
			WHERE id = $11`,
			request.Name, request.Subject, sanitizedBody, request.TemplateType,
			request.IsDefault, request.IsActive, variablesJSON,
			pq.Array(request.CC), pq.Array(request.BCC), session.UserID, id,
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update template", "details": err.Error()})
			return
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}

		if err := tx.Commit(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit transaction"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Email template updated successfully"})

		logCostActivity(db, session, userName, 0, "Update",
			"Updated email template '"+request.Name+"'")
	}
}

// DeleteEmailTemplate deactivates an email template
// @Summary Delete email template
// @Tags Email Templates
// @Produce json
// @Param id path int true "Template ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/email-templates/{id} [delete]
func DeleteEmailTemplate(db *sql.DB) gin.HandlerFunc {
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
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template ID"})
			return
		}

		// Soft delete so templated sends already referencing the ID keep working.
		result, err := db.Exec(`UPDATE email_templates SET is_active = false, updated_by = $1, updated_at = NOW() WHERE id = $2`, session.UserID, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete template", "details": err.Error()})
			return
		}
		affected, _ := result.RowsAffected()
		if affected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Email template deleted successfully"})

		logCostActivity(db, session, userName, 0, "Delete",
			"Deleted email template "+strconv.Itoa(id))
	}
}

// GetTemplatesByType lists active templates of one type
// @Summary Get email templates by type
// @Tags Email Templates
// @Produce json
// @Param type path string true "Template type"
// @Success 200 {array} models.EmailTemplate
// @Failure 400 {object} models.ErrorResponse
// @Router /api/email-templates/type/{type} [get]
func GetTemplatesByType(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		templateType := c.Param("type")
		if !isValidTemplateType(templateType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template type", "valid_types": validTemplateTypes})
			return
		}

		templates, err := models.GetTemplatesByType(db, templateType)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch templates", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": templates, "message": "email templates fetched successfully"})
	}
}
