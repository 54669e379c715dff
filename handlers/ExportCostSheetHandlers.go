package handlers

import (
	"backend/models"
	"backend/repository"
	"database/sql"
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ==================== COST SHEET EXPORTS ====================

type costSheetExport struct {
	ProjectName string
	Summary     *models.CostSummary
	Items       map[models.CostCategory][]models.CostItem
	Labour      models.LabourBlock
}

func loadCostSheetExport(db *sql.DB, projectID int) (*costSheetExport, error) {
	summary, err := RecomputeAndStoreSummary(db, projectID)
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

	export := &costSheetExport{Summary: summary, Items: items, Labour: labour}
	if err := db.QueryRow(`SELECT name FROM projects WHERE project_id = $1`, projectID).Scan(&export.ProjectName); err != nil {
		export.ProjectName = "project"
	}
	return export, nil
}

// revisionLabel renders the printable revision code of the sheet.
func revisionLabel(revision int) string {
	label := repository.GenerateRevisionCode("")
	for i := 1; i < revision; i++ {
		label = repository.GenerateRevisionCode(label)
	}
	return label
}

// ExportCostSheetCSV exports the cost sheet as CSV
// @Summary      Export cost sheet as CSV
// @Tags         export
// @Produce      text/csv
// @Param        project_id path int true "Project ID"
// @Success      200  {file}  file  "CSV file"
// @Failure      400  {object}  object
// @Router       /api/project/{project_id}/cost-sheet/csv [get]
func ExportCostSheetCSV(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, ok := parseProjectIDParam(c)
		if !ok {
			return
		}

		export, err := loadCostSheetExport(db, projectID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error loading cost sheet", "details": err.Error()})
			return
		}

		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", fmt.Sprintf("attachment;filename=cost_sheet_%d.csv", projectID))

		writer := csv.NewWriter(c.Writer)
		defer writer.Flush()

		header := []string{"Category", "Item", "Description", "Consumption", "Cost", "Department"}
		if err := writer.Write(header); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing CSV header"})
			return
		}

		for _, cat := range models.AllCategories {
			for _, item := range export.Items[cat] {
				row := []string{item.Category, item.Item, item.Description, item.Consumption,
					fmt.Sprintf("%.2f", item.Cost), item.Department}
				if err := writer.Write(row); err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing CSV row"})
					return
				}
			}
		}

		_ = writer.Write([]string{"labour", "Direct labour", "", "", fmt.Sprintf("%.2f", export.Labour.DirectTotal), ""})
		_ = writer.Write([]string{"", "Total all costs", "", "", fmt.Sprintf("%.2f", export.Summary.TotalAllCosts), ""})
		_ = writer.Write([]string{"", "Tentative cost", "", "", fmt.Sprintf("%.2f", export.Summary.TentativeCost), ""})
	}
}

// ExportCostSheetExcel exports the cost sheet as an Excel workbook
// @Summary      Export cost sheet as Excel
// @Tags         export
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        project_id path int true "Project ID"
// @Success      200  {file}  file  "Excel file"
// @Failure      400  {object}  object
// @Router       /api/project/{project_id}/cost-sheet/excel [get]
func ExportCostSheetExcel(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, ok := parseProjectIDParam(c)
		if !ok {
			return
		}

		export, err := loadCostSheetExport(db, projectID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error loading cost sheet", "details": err.Error()})
			return
		}

		f := excelize.NewFile()
		defer func() {
			if err := f.Close(); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error closing Excel file"})
			}
		}()

		titleCaser := cases.Title(language.Und)

		// Summary sheet
		summarySheet := "Summary"
		index, err := f.NewSheet(summarySheet)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating summary sheet"})
			return
		}
		f.SetActiveSheet(index)
		f.DeleteSheet("Sheet1")

		f.SetCellValue(summarySheet, "A1", "Cost Sheet Summary")
		f.SetCellValue(summarySheet, "A2", "Project")
		f.SetCellValue(summarySheet, "B2", export.ProjectName)
		f.SetCellValue(summarySheet, "A3", "Reference")
		f.SetCellValue(summarySheet, "B3", export.Summary.Reference)
		f.SetCellValue(summarySheet, "A4", "Revision")
		f.SetCellValue(summarySheet, "B4", revisionLabel(export.Summary.Revision))
		f.SetCellValue(summarySheet, "A5", "Status")
		f.SetCellValue(summarySheet, "B5", titleCaser.String(export.Summary.Status))

		row := 7
		for _, cat := range models.AllCategories {
			f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), titleCaser.String(cat.String())+" Total")
			f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), export.Summary.CategoryTotalFor(cat))
			row++
		}
		f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Labour Total")
		f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), export.Summary.LabourTotal)
		row++
		f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Total All Costs")
		f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), export.Summary.TotalAllCosts)
		row++
		f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Additional Costs")
		f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), export.Summary.AdditionalCosts)
		row++
		f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), fmt.Sprintf("Profit (%g%%)", export.Summary.ProfitMarginPct))
		f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), export.Summary.ProfitAmount)
		row++
		f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Tentative Cost")
		f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), export.Summary.TentativeCost)

		// One sheet per category with the line items
		for _, cat := range models.AllCategories {
			sheet := titleCaser.String(cat.String())
			if _, err := f.NewSheet(sheet); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating category sheet"})
				return
			}
			f.SetCellValue(sheet, "A1", "Item")
			f.SetCellValue(sheet, "B1", "Description")
			f.SetCellValue(sheet, "C1", "Consumption")
			f.SetCellValue(sheet, "D1", "Cost")
			f.SetCellValue(sheet, "E1", "Department")

			for i, item := range export.Items[cat] {
				r := i + 2
				f.SetCellValue(sheet, fmt.Sprintf("A%d", r), item.Item)
				f.SetCellValue(sheet, fmt.Sprintf("B%d", r), item.Description)
				f.SetCellValue(sheet, fmt.Sprintf("C%d", r), item.Consumption)
				f.SetCellValue(sheet, fmt.Sprintf("D%d", r), item.Cost)
				f.SetCellValue(sheet, fmt.Sprintf("E%d", r), item.Department)
			}
		}

		// Labour sheet
		labourSheet := "Labour"
		if _, err := f.NewSheet(labourSheet); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating labour sheet"})
			return
		}
		f.SetCellValue(labourSheet, "A1", "Direct Total")
		f.SetCellValue(labourSheet, "B1", export.Labour.DirectTotal)
		f.SetCellValue(labourSheet, "A3", "Name")
		f.SetCellValue(labourSheet, "B3", "Cost")
		for i, item := range export.Labour.Items {
			r := i + 4
			f.SetCellValue(labourSheet, fmt.Sprintf("A%d", r), item.Name)
			f.SetCellValue(labourSheet, fmt.Sprintf("B%d", r), item.Cost)
		}

		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", fmt.Sprintf("attachment;filename=cost_sheet_%d.xlsx", projectID))
		if err := f.Write(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing Excel file"})
			return
		}
	}
}

// ExportCostSheetPDF exports the cost sheet as a printable PDF
// @Summary      Export cost sheet as PDF
// @Tags         export
// @Param        project_id path int true "Project ID"
// @Success      200  "PDF file"
// @Failure      400  {object}  object
// @Router       /api/project/{project_id}/cost-sheet/pdf [get]
func ExportCostSheetPDF(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, ok := parseProjectIDParam(c)
		if !ok {
			return
		}

		export, err := loadCostSheetExport(db, projectID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error loading cost sheet", "details": err.Error()})
			return
		}

		titleCaser := cases.Title(language.Und)

		pdf := gofpdf.New("P", "mm", "A4", "")
		pdf.AddPage()

		pdf.SetFont("Arial", "B", 18)
		pdf.Cell(190, 10, "Cost Sheet")
		pdf.Ln(12)

		pdf.SetFont("Arial", "", 10)
		pdf.Cell(190, 6, "Project: "+export.ProjectName)
		pdf.Ln(6)
		if export.Summary.Reference != "" {
			pdf.Cell(190, 6, fmt.Sprintf("Reference: %s (%s)", export.Summary.Reference, revisionLabel(export.Summary.Revision)))
			pdf.Ln(6)
		}
		pdf.Cell(190, 6, "Status: "+titleCaser.String(export.Summary.Status))
		pdf.Ln(6)
		if export.Summary.ApprovedAt != nil {
			pdf.Cell(190, 6, fmt.Sprintf("Red seal: %s on %s",
				export.Summary.ApprovedBy, export.Summary.ApprovedAt.Format("02-Jan-2006")))
			pdf.Ln(6)
		}
		pdf.Ln(4)

		// Line item table per category
		for _, cat := range models.AllCategories {
			items := export.Items[cat]
			if len(items) == 0 {
				continue
			}

			pdf.SetFont("Arial", "B", 11)
			pdf.Cell(190, 8, titleCaser.String(cat.String()))
			pdf.Ln(8)

			pdf.SetFont("Arial", "B", 10)
			pdf.SetFillColor(230, 230, 230)
			pdf.CellFormat(60, 8, "Item", "1", 0, "L", true, 0, "")
			pdf.CellFormat(55, 8, "Description", "1", 0, "L", true, 0, "")
			pdf.CellFormat(30, 8, "Consumption", "1", 0, "C", true, 0, "")
			pdf.CellFormat(25, 8, "Cost", "1", 0, "C", true, 0, "")
			pdf.CellFormat(20, 8, "Stage", "1", 1, "C", true, 0, "")

			pdf.SetFont("Arial", "", 10)
			for _, item := range items {
				pdf.CellFormat(60, 8, item.Item, "1", 0, "L", false, 0, "")
				pdf.CellFormat(55, 8, item.Description, "1", 0, "L", false, 0, "")
				pdf.CellFormat(30, 8, item.Consumption, "1", 0, "C", false, 0, "")
				pdf.CellFormat(25, 8, fmt.Sprintf("%.2f", item.Cost), "1", 0, "R", false, 0, "")
				pdf.CellFormat(20, 8, item.Department, "1", 1, "C", false, 0, "")
			}

			pdf.SetFont("Arial", "B", 10)
			pdf.CellFormat(145, 8, "Subtotal", "1", 0, "R", false, 0, "")
			pdf.CellFormat(45, 8, fmt.Sprintf("%.2f", export.Summary.CategoryTotalFor(cat)), "1", 1, "R", false, 0, "")
			pdf.Ln(4)
		}

		// Totals block
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(145, 8, "Labour", "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, 8, fmt.Sprintf("%.2f", export.Summary.LabourTotal), "1", 1, "R", false, 0, "")
		pdf.CellFormat(145, 8, "Total All Costs", "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, 8, fmt.Sprintf("%.2f", export.Summary.TotalAllCosts), "1", 1, "R", false, 0, "")
		pdf.CellFormat(145, 8, "Additional Costs", "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, 8, fmt.Sprintf("%.2f", export.Summary.AdditionalCosts), "1", 1, "R", false, 0, "")
		pdf.CellFormat(145, 8, fmt.Sprintf("Profit (%g%%)", export.Summary.ProfitMarginPct), "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, 8, fmt.Sprintf("%.2f", export.Summary.ProfitAmount), "1", 1, "R", false, 0, "")
		pdf.CellFormat(145, 8, "Tentative Cost", "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, 8, fmt.Sprintf("%.2f", export.Summary.TentativeCost), "1", 1, "R", false, 0, "")

		if export.Summary.Remarks != "" {
			pdf.Ln(6)
			pdf.SetFont("Arial", "", 10)
			pdf.Cell(190, 6, "Remarks: "+export.Summary.Remarks)
		}

		// Footer
		pdf.SetY(-20)
		pdf.SetFont("Arial", "I", 8)
		pdf.Cell(190, 6, "This is a computer-generated cost sheet.")
		pdf.Ln(5)
		pdf.Cell(190, 6, "Generated on: "+time.Now().Format("2006-01-02 15:04:05"))

		c.Header("Content-Type", "application/pdf")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=cost_sheet_%d.pdf", projectID))
		if err := pdf.Output(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate PDF"})
			return
		}
	}
}
