package models

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// EmailTemplate represents the email_templates table
type EmailTemplate struct {
	ID           int             `json:"id" example:"1"`
	Name         string          `json:"name" example:"Cost Sheet Approved"`
	Subject      string          `json:"subject" example:"Cost sheet {{reference}} approved"`
	Body         string          `json:"body" example:"Hello {{user_name}}"`
	TemplateType string          `json:"template_type" example:"cost_sheet_approved"`
	IsDefault    bool            `json:"is_default" example:"false"`
	IsActive     bool            `json:"is_active" example:"true"`
	Variables    json.RawMessage `json:"variables"`
	CC           []string        `json:"cc,omitempty"`
	BCC          []string        `json:"bcc,omitempty"`
	CreatedBy    *int            `json:"created_by"`
	CreatedAt    time.Time       `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt    time.Time       `json:"updated_at" example:"2024-01-15T10:30:00Z"`
	UpdatedBy    *int            `json:"updated_by"`
}

// EmailTemplateVariable represents a single variable in the template
type EmailTemplateVariable struct {
	Key         string `json:"key" example:"user_name"`
	Description string `json:"description" example:"Name of the user"`
}

// EmailTemplateRequest represents the request structure for creating/updating templates
type EmailTemplateRequest struct {
	Name         string                  `json:"name" binding:"required" example:"Cost Sheet Approved"`
	Subject      string                  `json:"subject" binding:"required" example:"Approved"`
	Body         string                  `json:"body" binding:"required" example:"Hello {{user_name}}"`
	TemplateType string                  `json:"template_type" binding:"required" example:"cost_sheet_approved"`
	IsDefault    bool                    `json:"is_default" example:"false"`
	IsActive     bool                    `json:"is_active" example:"true"`
	Variables    []EmailTemplateVariable `json:"variables"`
	CC           []string                `json:"cc"`
	BCC          []string                `json:"bcc"`
}

// EmailData carries the variable values substituted into email templates.
type EmailData struct {
	ProjectName   string `json:"project_name"`
	ProjectID     string `json:"project_id"`
	Reference     string `json:"reference"`
	Revision      string `json:"revision"`
	TentativeCost string `json:"tentative_cost"`
	ApprovedBy    string `json:"approved_by"`
	UserName      string `json:"user_name"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	CompanyName   string `json:"company_name"`
	LoginURL      string `json:"login_url"`
	SupportEmail  string `json:"support_email"`
}

// GetDefaultTemplate retrieves the default template for a given type
func GetDefaultTemplate(db *sql.DB, templateType string) (*EmailTemplate, error) {
	var template EmailTemplate
	query := `
		SELECT id, name, subject, body, template_type, is_default, is_active,
		       variables, cc, bcc, created_by, created_at, updated_at, updated_by
		FROM email_templates
		WHERE template_type = $1 AND is_default = true AND is_active = true
		ORDER BY created_at DESC
		LIMIT 1`

	var cc, bcc pq.StringArray
	var variables sql.NullString

	err := db.QueryRow(query, templateType).Scan(
		&template.ID, &template.Name, &template.Subject, &template.Body,
		&template.TemplateType, &template.IsDefault, &template.IsActive,
		&variables, &cc, &bcc, &template.CreatedBy, &template.CreatedAt,
		&template.UpdatedAt, &template.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}

	template.CC = []string(cc)
	template.BCC = []string(bcc)
	if variables.Valid {
		template.Variables = json.RawMessage(variables.String)
	}

	return &template, nil
}

// GetTemplateByID retrieves a template by its ID
func GetTemplateByID(db *sql.DB, id int) (*EmailTemplate, error) {
	var template EmailTemplate
	query := `
		SELECT id, name, subject, body, template_type, is_default, is_active,
		       variables, cc, bcc, created_by, created_at, updated_at, updated_by
		FROM email_templates
		WHERE id = $1 AND is_active = true`

	var cc, bcc pq.StringArray
	var variables sql.NullString

	err := db.QueryRow(query, id).Scan(
		&template.ID, &template.Name, &template.Subject, &template.Body,
		&template.TemplateType, &template.IsDefault, &template.IsActive,
		&variables, &cc, &bcc, &template.CreatedBy, &template.CreatedAt,
		&template.UpdatedAt, &template.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}

	template.CC = []string(cc)
	template.BCC = []string(bcc)
	if variables.Valid {
		template.Variables = json.RawMessage(variables.String)
	}

	return &template, nil
}

// GetTemplatesByType retrieves all templates of a specific type
func GetTemplatesByType(db *sql.DB, templateType string) ([]EmailTemplate, error) {
	query := `
		SELECT id, name, subject, body, template_type, is_default, is_active,
		       variables, cc, bcc, created_by, created_at, updated_at, updated_by
		FROM email_templates
		WHERE template_type = $1 AND is_active = true
		ORDER BY is_default DESC, name`

	rows, err := db.Query(query, templateType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []EmailTemplate
	for rows.Next() {
		var template EmailTemplate
		var cc, bcc pq.StringArray
		var variables sql.NullString

		err := rows.Scan(
			&template.ID, &template.Name, &template.Subject, &template.Body,
			&template.TemplateType, &template.IsDefault, &template.IsActive,
			&variables, &cc, &bcc, &template.CreatedBy, &template.CreatedAt,
			&template.UpdatedAt, &template.UpdatedBy,
		)
		if err != nil {
			return nil, err
		}

		template.CC = []string(cc)
		template.BCC = []string(bcc)
		if variables.Valid {
			template.Variables = json.RawMessage(variables.String)
		}
		templates = append(templates, template)
	}

	return templates, rows.Err()
}
