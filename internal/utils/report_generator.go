package utils

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const riskSheet = "Approaches"

// ApproachReportRow is one line of the upcoming-approach risk report.
type ApproachReportRow struct {
	AsteroidName   string
	NeoID          string
	ApproachAt     time.Time
	MissDistanceKm float64
	VelocityKmh    float64
	CRI            float64
	RiskLevel      string
}

// CreateRiskReport writes an xlsx report of upcoming close approaches,
// highlighting high-risk rows.
func CreateRiskReport(filepath string, rows []ApproachReportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(riskSheet)
	if err != nil {
		return err
	}

	headers := []string{"Asteroid", "NEO ID", "Approach (UTC)", "Miss Distance (km)", "Velocity (km/h)", "CRI", "Risk Level"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(riskSheet, cell, header)
	}

	for rowIdx, row := range rows {
		rowNum := rowIdx + 2 // header occupies row 1

		f.SetCellValue(riskSheet, fmt.Sprintf("A%d", rowNum), row.AsteroidName)
		f.SetCellValue(riskSheet, fmt.Sprintf("B%d", rowNum), row.NeoID)
		f.SetCellValue(riskSheet, fmt.Sprintf("C%d", rowNum),
			row.ApproachAt.Format("2006-01-02 15:04:05"))
		f.SetCellValue(riskSheet, fmt.Sprintf("D%d", rowNum), row.MissDistanceKm)
		f.SetCellValue(riskSheet, fmt.Sprintf("E%d", rowNum), row.VelocityKmh)
		f.SetCellValue(riskSheet, fmt.Sprintf("F%d", rowNum), row.CRI)
		f.SetCellValue(riskSheet, fmt.Sprintf("G%d", rowNum), row.RiskLevel)
	}

	for i := 1; i <= len(headers); i++ {
		colName, _ := excelize.ColumnNumberToName(i)
		f.SetColWidth(riskSheet, colName, colName, 22)
	}

	// Red fill for CRI above 80, orange above 60.
	criticalRule := []excelize.ConditionalFormatOptions{
		{
			Type:     "cell",
			Criteria: ">",
			Value:    "80",
			Format:   fillStyle(f, "#FFCCCC"),
		},
	}
	if err := f.SetConditionalFormat(riskSheet, "F2:F1000", criticalRule); err != nil {
		return err
	}

	highRule := []excelize.ConditionalFormatOptions{
		{
			Type:     "cell",
			Criteria: ">",
			Value:    "60",
			Format:   fillStyle(f, "#FFE0B2"),
		},
	}
	if err := f.SetConditionalFormat(riskSheet, "F2:F1000", highRule); err != nil {
		return err
	}

	createSummarySheet(f, rows)

	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	return f.SaveAs(filepath)
}

func createSummarySheet(f *excelize.File, rows []ApproachReportRow) {
	f.NewSheet("Summary")

	highRisk := 0
	maxCRI := 0.0
	for _, row := range rows {
		if row.CRI > 60 {
			highRisk++
		}
		if row.CRI > maxCRI {
			maxCRI = row.CRI
		}
	}

	entries := [][2]interface{}{
		{"Report Generated", time.Now().UTC().Format("2006-01-02 15:04:05")},
		{"Total Approaches", len(rows)},
		{"High Risk (CRI > 60)", highRisk},
		{"Highest CRI", fmt.Sprintf("%.2f", maxCRI)},
	}
	for i, entry := range entries {
		f.SetCellValue("Summary", fmt.Sprintf("A%d", i+1), entry[0])
		f.SetCellValue("Summary", fmt.Sprintf("B%d", i+1), entry[1])
	}
	f.SetColWidth("Summary", "A", "B", 25)
}

func fillStyle(f *excelize.File, color string) *int {
	style, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{color},
			Pattern: 1,
		},
	})
	if err != nil {
		return nil
	}
	return &style
}
