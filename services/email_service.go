package services

import (
	"database/sql"
	"fmt"
	"net/smtp"
	"os"
	"regexp"
	"strings"

	"backend/models"

	"golang.org/x/net/html"
)

// convertHTMLToText converts HTML content to plain text for email sending
func convertHTMLToText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		// If parsing fails, return the original content
		return htmlContent
	}

	var text strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			text.WriteString(n.Data)
		case html.ElementNode:
			// Add line breaks for block elements
			switch n.Data {
			case "p", "div", "br", "h1", "h2", "h3", "h4", "h5", "h6":
				text.WriteString("\n")
			case "li":
				text.WriteString("- ")
			case "table", "tr":
				text.WriteString("\n")
			case "td", "th":
				text.WriteString(" | ")
			}
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			extractText(child)
		}
	}

	extractText(doc)

	result := text.String()
	result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	result = strings.TrimSpace(result)

	return result
}

// EmailService handles email operations with template support
type EmailService struct {
	db *sql.DB
}

// NewEmailService creates a new email service instance
func NewEmailService(db *sql.DB) *EmailService {
	return &EmailService{db: db}
}

// PreviewEmailAsText converts HTML template to plain text for preview purposes
func (es *EmailService) PreviewEmailAsText(htmlContent string, emailData models.EmailData) (string, error) {
	processedContent, err := es.processTemplate(htmlContent, emailData)
	if err != nil {
		return "", fmt.Errorf("failed to process template: %v", err)
	}

	return convertHTMLToText(processedContent), nil
}

// SendTemplatedEmail sends an email using a template with variable substitution.
// A custom template ID overrides the default template of the type.
func (es *EmailService) SendTemplatedEmail(templateType string, emailData models.EmailData, customTemplateID *int) error {
	var emailTemplate *models.EmailTemplate
	var err error

	if customTemplateID != nil {
		emailTemplate, err = models.GetTemplateByID(es.db, *customTemplateID)
		if err != nil {
			return fmt.Errorf("failed to get custom template (ID: %d): %v", *customTemplateID, err)
		}
		if emailTemplate.TemplateType != templateType {
			return fmt.Errorf("custom template type mismatch: expected %s, got %s", templateType, emailTemplate.TemplateType)
		}
	} else {
		emailTemplate, err = models.GetDefaultTemplate(es.db, templateType)
		if err != nil {
			return fmt.Errorf("failed to get default template for type '%s': %v", templateType, err)
		}
	}

	subject, err := es.processTemplate(emailTemplate.Subject, emailData)
	if err != nil {
		return fmt.Errorf("failed to process subject template: %v", err)
	}

	body, err := es.processTemplate(emailTemplate.Body, emailData)
	if err != nil {
		return fmt.Errorf("failed to process body template: %v", err)
	}

	plainTextBody := convertHTMLToText(body)

	return es.sendEmail(emailData.Email, subject, plainTextBody, emailTemplate.CC, emailTemplate.BCC)
}

func templateVariables(data models.EmailData) map[string]string {
	return map[string]string{
		"project_name":   data.ProjectName,
		"project_id":     data.ProjectID,
		"reference":      data.Reference,
		"revision":       data.Revision,
		"tentative_cost": data.TentativeCost,
		"approved_by":    data.ApprovedBy,
		"user_name":      data.UserName,
		"email":          data.Email,
		"role":           data.Role,
		"company_name":   data.CompanyName,
		"login_url":      data.LoginURL,
		"support_email":  data.SupportEmail,
	}
}

// processTemplate processes a template string with variable substitution
func (es *EmailService) processTemplate(templateStr string, data models.EmailData) (string, error) {
	result := templateStr
	for key, value := range templateVariables(data) {
		placeholder := fmt.Sprintf("{{%s}}", key)
		result = strings.ReplaceAll(result, placeholder, value)
	}

	return result, nil
}

// sendEmail sends an email using SMTP with optional CC and BCC
func (es *EmailService) sendEmail(to, subject, body string, cc, bcc []string) error {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		host = "smtp.gmail.com"
	}
	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "587"
	}
	from := os.Getenv("SMTP_FROM")
	user := os.Getenv("SMTP_USER")
	password := os.Getenv("SMTP_PASSWORD")
	if from == "" {
		from = user
	}

	auth := smtp.PlainAuth("", user, password, host)

	toList := []string{to}
	if len(cc) > 0 {
		toList = append(toList, cc...)
	}
	if len(bcc) > 0 {
		toList = append(toList, bcc...)
	}

	headers := []string{
		"From: " + from,
		"To: " + to,
	}
	if len(cc) > 0 {
		headers = append(headers, "Cc: "+strings.Join(cc, ", "))
	}
	headers = append(headers,
		"Subject: "+subject,
		"",
		body,
	)

	msg := []byte(strings.Join(headers, "\r\n") + "\r\n")

	return smtp.SendMail(host+":"+port, auth, from, toList, msg)
}

// SendCostSheetApprovedEmail notifies every project member that the cost
// sheet got its red seal. Falls back to a built-in message when no template
// of type "cost_sheet_approved" is configured.
func (es *EmailService) SendCostSheetApprovedEmail(projectID int, approver string, summary *models.CostSummary) error {
	var projectName string
	if err := es.db.QueryRow(`SELECT name FROM projects WHERE project_id = $1`, projectID).Scan(&projectName); err != nil {
		projectName = fmt.Sprintf("Project %d", projectID)
	}

	rows, err := es.db.Query(`
		SELECT u.email, CONCAT(u.first_name, ' ', u.last_name)
		FROM project_members pm
		JOIN users u ON pm.user_id = u.id
		WHERE pm.project_id = $1`, projectID)
	if err != nil {
		return fmt.Errorf("failed to fetch project members: %v", err)
	}
	defer rows.Close()

	var firstErr error
	for rows.Next() {
		var email, userName string
		if err := rows.Scan(&email, &userName); err != nil {
			continue
		}

		emailData := models.EmailData{
			ProjectName:   projectName,
			ProjectID:     fmt.Sprintf("%d", projectID),
			Reference:     summary.Reference,
			TentativeCost: fmt.Sprintf("%.2f", summary.TentativeCost),
			ApprovedBy:    approver,
			UserName:      userName,
			Email:         email,
			SupportEmail:  os.Getenv("SUPPORT_EMAIL"),
		}

		err := es.SendTemplatedEmail("cost_sheet_approved", emailData, nil)
		if err != nil {
			// No template configured; send the built-in plain message.
			subject := fmt.Sprintf("Cost sheet %s approved", summary.Reference)
			body := fmt.Sprintf(
				"Hello %s,\n\nThe cost sheet %s for %s was red-seal approved by %s.\nTentative cost: %.2f\n",
				userName, summary.Reference, projectName, approver, summary.TentativeCost)
			err = es.sendEmail(email, subject, body, nil, nil)
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// SendPasswordResetEmail sends the reset link to a single user. Falls back
// to a built-in message when no template of type "password_reset" is
// configured.
func (es *EmailService) SendPasswordResetEmail(email, userName, resetLink string) error {
	emailData := models.EmailData{
		UserName:     userName,
		Email:        email,
		LoginURL:     resetLink,
		SupportEmail: os.Getenv("SUPPORT_EMAIL"),
	}

	err := es.SendTemplatedEmail("password_reset", emailData, nil)
	if err != nil {
		subject := "Reset your password"
		body := fmt.Sprintf(
			"Hello %s,\n\nClick the link below to reset your password:\n\n%s\n\nThis link expires in 15 minutes.\n",
			userName, resetLink)
		err = es.sendEmail(email, subject, body, nil, nil)
	}
	return err
}

// ValidateTemplate validates a template string for syntax errors
func (es *EmailService) ValidateTemplate(templateStr string) error {
	openBraces := strings.Count(templateStr, "{{")
	closeBraces := strings.Count(templateStr, "}}")

	if openBraces != closeBraces {
		return fmt.Errorf("unmatched braces in template")
	}

	re := regexp.MustCompile(`\{\{([^}]+)\}\}`)
	matches := re.FindAllStringSubmatch(templateStr, -1)

	validVariables := map[string]bool{}
	for key := range templateVariables(models.EmailData{}) {
		validVariables[key] = true
	}

	for _, match := range matches {
		if len(match) > 1 {
			variable := strings.TrimSpace(match[1])
			if !validVariables[variable] {
				return fmt.Errorf("invalid variable: %s", variable)
			}
		}
	}

	return nil
}

// GetAvailableVariables returns a list of available template variables
func (es *EmailService) GetAvailableVariables() []models.EmailTemplateVariable {
	return []models.EmailTemplateVariable{
		{Key: "project_name", Description: "Project name"},
		{Key: "project_id", Description: "Project ID"},
		{Key: "reference", Description: "Cost sheet reference"},
		{Key: "revision", Description: "Cost sheet revision code"},
		{Key: "tentative_cost", Description: "Approved tentative cost"},
		{Key: "approved_by", Description: "Name of the approver"},
		{Key: "user_name", Description: "Recipient name"},
		{Key: "email", Description: "Recipient email"},
		{Key: "role", Description: "Recipient role"},
		{Key: "company_name", Description: "Company name"},
		{Key: "login_url", Description: "Login URL"},
		{Key: "support_email", Description: "Support email"},
	}
}
