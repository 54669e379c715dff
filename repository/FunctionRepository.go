package repository

import (
	"database/sql"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

func GenerateRandomNumber() int {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	return rng.Intn(900000000) + 100000000
}

func GenerateRandomCode() string {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	letters := "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	prefix := string(letters[rng.Intn(len(letters))]) + string(letters[rng.Intn(len(letters))])
	number := rng.Intn(90000) + 10000

	return fmt.Sprintf("%s%d", prefix, number)
}

// GenerateSummaryReference builds the printable reference of a cost sheet in
// the format "CS/<abbr>/<random code>", e.g. "CS/PA/QN73732".
func GenerateSummaryReference(abbreviation string) string {
	formatted := strings.ToUpper(strings.TrimSpace(abbreviation))
	if formatted == "" {
		formatted = "XX"
	}
	return "CS/" + formatted + "/" + GenerateRandomCode()
}

// GenerateRevisionCode advances a cost sheet revision code ("RV-01" -> "RV-02").
func GenerateRevisionCode(previousVersion string) string {
	if previousVersion == "" {
		return "RV-01"
	}

	if !strings.HasPrefix(previousVersion, "RV-") {
		fmt.Println("invalid version format")
	}

	versionNumberStr := strings.TrimPrefix(previousVersion, "RV-")

	versionNumber, err := strconv.Atoi(versionNumberStr)
	if err != nil {
		fmt.Printf("invalid version number: %v", err)
	}

	nextVersion := versionNumber + 1

	newVersionCode := "RV-" + fmt.Sprintf("%02d", nextVersion)

	return newVersionCode
}

// FetchProjectAbbreviation reads the short code used in cost sheet references.
func FetchProjectAbbreviation(db *sql.DB, projectID int) (string, error) {
	var abbreviation string
	err := db.QueryRow(`SELECT abbreviation FROM projects WHERE project_id = $1`, projectID).Scan(&abbreviation)
	if err != nil {
		return "", fmt.Errorf("failed to fetch project abbreviation for project %d: %w", projectID, err)
	}
	return abbreviation, nil
}
