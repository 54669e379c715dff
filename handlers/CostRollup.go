package handlers

import (
	"backend/models"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ---------- State machine ----------

var (
	// ErrInvalidState is returned when an approval action is attempted from a
	// status that does not allow it.
	ErrInvalidState = errors.New("cost summary is not awaiting red seal approval")
	// ErrZeroTentativeCost is returned when approval or save is attempted while
	// the tentative cost is still zero.
	ErrZeroTentativeCost = errors.New("tentative cost must be non-zero")
)

// CheckApprovable gates the approve action: only a ready_for_red_seal summary
// with a non-zero tentative cost may be approved. The zero-cost check applies
// regardless of status.
func CheckApprovable(status string, tentativeCost float64) error {
	if tentativeCost == 0 {
		return ErrZeroTentativeCost
	}
	if status != models.StatusReadyForRedSeal {
		return ErrInvalidState
	}
	return nil
}

// NextStatusOnSave returns the status a summary moves to when an explicit save
// commits it. A draft with a non-zero tentative cost becomes ready_for_red_seal;
// approved summaries never move.
func NextStatusOnSave(status string, tentativeCost float64) (string, error) {
	switch status {
	case models.StatusApproved:
		return "", ErrInvalidState
	case models.StatusDraft:
		if tentativeCost == 0 {
			return "", ErrZeroTentativeCost
		}
		return models.StatusReadyForRedSeal, nil
	default:
		return status, nil
	}
}

// ---------- Roll-up ----------

func loadCategoryItems(db *sql.DB, projectID int) (map[models.CostCategory][]models.CostItem, error) {
	rows, err := db.Query(`
		SELECT id, project_id, category, item, description, consumption, cost, department, created_at, updated_at
		FROM cost_items
		WHERE project_id = $1
		ORDER BY category, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cost items: %w", err)
	}
	defer rows.Close()

	items := make(map[models.CostCategory][]models.CostItem, len(models.AllCategories))
	for rows.Next() {
		var item models.CostItem
		if err := rows.Scan(&item.ID, &item.ProjectID, &item.Category, &item.Item, &item.Description,
			&item.Consumption, &item.Cost, &item.Department, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cost item: %w", err)
		}
		cat, ok := models.ParseCostCategory(item.Category)
		if !ok {
			// Rows with a category outside the fixed set are ignored rather
			// than failing the whole roll-up.
			continue
		}
		items[cat] = append(items[cat], item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func loadLabourBlock(db *sql.DB, projectID int) (models.LabourBlock, error) {
	labour := models.LabourBlock{ProjectID: projectID, Items: []models.LabourItem{}}

	err := db.QueryRow(`SELECT direct_total FROM labour_costs WHERE project_id = $1`, projectID).
		Scan(&labour.DirectTotal)
	if err != nil && err != sql.ErrNoRows {
		return labour, fmt.Errorf("failed to query labour cost: %w", err)
	}

	rows, err := db.Query(`SELECT id, name, cost FROM labour_items WHERE project_id = $1 ORDER BY id`, projectID)
	if err != nil {
		return labour, fmt.Errorf("failed to query labour items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.LabourItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Cost); err != nil {
			return labour, fmt.Errorf("failed to scan labour item: %w", err)
		}
		labour.Items = append(labour.Items, item)
	}
	return labour, rows.Err()
}

// loadOrCreateSummary fetches the summary row for a project, creating the
// default draft row on first access. Summaries come into existence lazily when
// a project enters the costing stage.
func loadOrCreateSummary(db *sql.DB, projectID int) (models.CostSummary, error) {
	var s models.CostSummary
	var approvedAt sql.NullTime

	query := `
		SELECT project_id, additional_costs, profit_margin, remarks,
			   upper_total, component_total, material_total, packaging_total, misc_total, labour_total,
			   total_all_costs, profit_amount, tentative_cost,
			   status, reference, revision, approved_at, approved_by, created_at, updated_at
		FROM cost_summaries WHERE project_id = $1`

	err := db.QueryRow(query, projectID).Scan(
		&s.ProjectID, &s.AdditionalCosts, &s.ProfitMarginPct, &s.Remarks,
		&s.UpperTotal, &s.ComponentTotal, &s.MaterialTotal, &s.PackagingTotal, &s.MiscTotal, &s.LabourTotal,
		&s.TotalAllCosts, &s.ProfitAmount, &s.TentativeCost,
		&s.Status, &s.Reference, &s.Revision, &approvedAt, &s.ApprovedBy, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		now := time.Now()
		_, err = db.Exec(`
			INSERT INTO cost_summaries (project_id, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (project_id) DO NOTHING`,
			projectID, models.StatusDraft, now, now)
		if err != nil {
			return s, fmt.Errorf("failed to create cost summary: %w", err)
		}
		s = models.CostSummary{ProjectID: projectID, Status: models.StatusDraft, Revision: 1, CreatedAt: now, UpdatedAt: now}
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("failed to query cost summary: %w", err)
	}
	if approvedAt.Valid {
		s.ApprovedAt = &approvedAt.Time
	}
	return s, nil
}

// RecomputeAndStoreSummary reloads line items and labour, recomputes every
// derived total, and persists the result. The stored row is the authoritative
// copy clients reconcile against, so every cost mutation funnels through here.
func RecomputeAndStoreSummary(db *sql.DB, projectID int) (*models.CostSummary, error) {
	summary, err := loadOrCreateSummary(db, projectID)
	if err != nil {
		return nil, err
	}

	items, err := loadCategoryItems(db, projectID)
	if err != nil {
		return nil, err
	}

	labour, err := loadLabourBlock(db, projectID)
	if err != nil {
		return nil, err
	}

	summary.Recompute(items, labour)
	summary.UpdatedAt = time.Now()

	_, err = db.Exec(`
		UPDATE cost_summaries SET
			upper_total = $1, component_total = $2, material_total = $3,
			packaging_total = $4, misc_total = $5, labour_total = $6,
			total_all_costs = $7, profit_amount = $8, tentative_cost = $9,
			updated_at = $10
		WHERE project_id = $11`,
		summary.UpperTotal, summary.ComponentTotal, summary.MaterialTotal,
		summary.PackagingTotal, summary.MiscTotal, summary.LabourTotal,
		summary.TotalAllCosts, summary.ProfitAmount, summary.TentativeCost,
		summary.UpdatedAt, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to store cost summary: %w", err)
	}

	return &summary, nil
}
