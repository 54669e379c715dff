package handlers

import (
	"backend/models"
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"
)

// addLabel adds text to an image at the specified position
func addLabel(img *image.RGBA, x, y int, label string) {
	col := color.RGBA{0, 0, 0, 255}
	face := inconsolata.Regular8x16

	point := fixed.Point26_6{
		X: fixed.Int26_6(x * 64),
		Y: fixed.Int26_6(y * 64),
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  point,
	}
	d.DrawString(label)
}

// addLabelBold adds bold text for field labels
func addLabelBold(img *image.RGBA, x, y int, label string) {
	col := color.RGBA{30, 30, 30, 255}
	face := inconsolata.Bold8x16

	point := fixed.Point26_6{
		X: fixed.Int26_6(x * 64),
		Y: fixed.Int26_6(y * 64),
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  point,
	}
	d.DrawString(label)
}

// GenerateCostSheetQR godoc
// @Summary      Generate cost sheet QR slip as JPEG
// @Description  Printable slip with a QR code identifying an approved cost sheet. Unapproved sheets are rejected.
// @Tags         qr
// @Param        project_id  path  int  true  "Project ID"
// @Success      200  {file}  file  "JPEG image"
// @Failure      400  {object}  object
// @Failure      404  {object}  object
// @Failure      422  {object}  object
// @Router       /api/project/{project_id}/cost-sheet/qr [get]
func GenerateCostSheetQR(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, ok := parseProjectIDParam(c)
		if !ok {
			return
		}

		summary, err := loadOrCreateSummary(db, projectID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cost summary", "details": err.Error()})
			return
		}

		// Only red-seal approved sheets get a verifiable slip.
		if summary.Status != models.StatusApproved {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Only approved cost sheets can be issued a QR slip"})
			return
		}

		var projectName string
		if err := db.QueryRow(`SELECT name FROM projects WHERE project_id = $1`, projectID).Scan(&projectName); err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
				return
			}
			projectName = "Unknown Project"
		}

		qrData := struct {
			ProjectID     int     `json:"project_id"`
			Reference     string  `json:"reference"`
			TentativeCost float64 `json:"tentative_cost"`
			ApprovedBy    string  `json:"approved_by"`
			IsValid       bool    `json:"is_valid"`
		}{
			ProjectID:     projectID,
			Reference:     summary.Reference,
			TentativeCost: summary.TentativeCost,
			ApprovedBy:    summary.ApprovedBy,
			IsValid:       true,
		}

		jsonData, err := json.Marshal(qrData)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to marshal cost sheet data"})
			return
		}

		qr, err := qrcode.New(string(jsonData), qrcode.Medium)
		if err != nil {
			c.String(http.StatusInternalServerError, "QR code generation failed")
			return
		}

		qrImg := qr.Image(512)

		qrSize := qrImg.Bounds().Dy()
		padding := 30
		lineHeight := 28
		textAreaHeight := 5*lineHeight + padding
		totalHeight := qrSize + padding + textAreaHeight

		combinedImg := image.NewRGBA(image.Rect(0, 0, qrSize, totalHeight))
		draw.Draw(combinedImg, combinedImg.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)

		qrRect := image.Rect(0, 0, qrSize, qrSize)
		draw.Draw(combinedImg, qrRect, qrImg, image.Point{}, draw.Src)

		// Separator line between QR code and the caption block
		separatorY := qrSize + padding/2
		for x := 0; x < qrSize; x++ {
			combinedImg.Set(x, separatorY, color.RGBA{200, 200, 200, 255})
		}

		startY := qrSize + padding + lineHeight
		xPos := 20

		approvedAtStr := "N/A"
		if summary.ApprovedAt != nil {
			approvedAtStr = summary.ApprovedAt.Format("2006-01-02")
		}

		addLabelBold(combinedImg, xPos, startY, "Project:")
		projectDisplay := projectName
		if len(projectDisplay) > 30 {
			projectDisplay = projectDisplay[:27] + "..."
		}
		addLabel(combinedImg, xPos+140, startY, projectDisplay)

		addLabelBold(combinedImg, xPos, startY+lineHeight, "Reference:")
		addLabel(combinedImg, xPos+140, startY+lineHeight, summary.Reference)

		addLabelBold(combinedImg, xPos, startY+2*lineHeight, "Tentative:")
		addLabel(combinedImg, xPos+140, startY+2*lineHeight, fmt.Sprintf("%.2f", summary.TentativeCost))

		addLabelBold(combinedImg, xPos, startY+3*lineHeight, "Approved By:")
		approvedByDisplay := summary.ApprovedBy
		if len(approvedByDisplay) > 25 {
			approvedByDisplay = approvedByDisplay[:22] + "..."
		}
		addLabel(combinedImg, xPos+140, startY+3*lineHeight, approvedByDisplay)

		addLabelBold(combinedImg, xPos, startY+4*lineHeight, "Approved On:")
		addLabel(combinedImg, xPos+140, startY+4*lineHeight, approvedAtStr)

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, combinedImg, nil); err != nil {
			c.String(http.StatusInternalServerError, "JPEG encoding failed")
			return
		}

		c.Data(http.StatusOK, "image/jpeg", buf.Bytes())
	}
}
