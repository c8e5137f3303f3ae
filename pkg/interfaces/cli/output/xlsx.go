package output

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/vsinha/mfgplan/pkg/application/dto"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

const (
	summarySheet         = "Summary"
	recommendationsSheet = "Recommendations"
	warningsSheet        = "Warnings"
)

// BuildWorkbook lays the run out over a summary, a recommendations and a
// warnings sheet
func BuildWorkbook(result *dto.RunResult) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(recommendationsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(warningsSheet); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "#000000", Style: 1},
		},
	})
	if err != nil {
		return nil, err
	}
	urgentStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#C00000"},
	})
	if err != nil {
		return nil, err
	}

	writeSummary(f, result, headerStyle)

	writeHeader(f, recommendationsSheet, recommendationColumns, headerStyle)
	for i, rec := range sortedRecommendations(result.Recommendations) {
		row := i + 2
		writeRecommendation(f, row, rec)
		if rec.IsUrgent {
			cell, _ := excelize.CoordinatesToCellName(len(recommendationColumns), row)
			start, _ := excelize.CoordinatesToCellName(1, row)
			f.SetCellStyle(recommendationsSheet, start, cell, urgentStyle)
		}
	}
	for i, w := range []float64{12, 14, 12, 16, 12, 12, 12, 12, 8, 14, 14, 10, 10, 10, 16, 10} {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(recommendationsSheet, col, col, w)
	}

	writeHeader(f, warningsSheet, warningColumns, headerStyle)
	for i, w := range result.Run.Warnings {
		row := i + 2
		f.SetCellValue(warningsSheet, fmt.Sprintf("A%d", row), w.ProductID)
		f.SetCellValue(warningsSheet, fmt.Sprintf("B%d", row), w.Code)
		f.SetCellValue(warningsSheet, fmt.Sprintf("C%d", row), w.Message)
	}
	f.SetColWidth(warningsSheet, "C", "C", 80)

	return f, nil
}

func writeHeader(f *excelize.File, sheet string, columns []string, style int) {
	for i, h := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, style)
	}
}

func writeSummary(f *excelize.File, result *dto.RunResult, headerStyle int) {
	run := result.Run
	summary := dto.Summarize(result.Recommendations)
	rows := [][2]interface{}{
		{"Run", run.RunCode},
		{"Status", string(run.Status)},
		{"Horizon Start", run.HorizonStart.Format(dateLayout)},
		{"Horizon End", run.HorizonEnd.Format(dateLayout)},
		{"Products Planned", run.ProductsProcessed},
		{"Recommendations", summary.Total},
		{"Purchase Orders", summary.PurchaseCount},
		{"Work Orders", summary.WorkCount},
		{"Urgent", summary.UrgentCount},
		{"Warnings", len(run.Warnings)},
	}
	for _, p := range []entities.Priority{entities.PriorityCritical, entities.PriorityHigh, entities.PriorityMedium, entities.PriorityLow} {
		rows = append(rows, [2]interface{}{"Priority " + string(p), summary.ByPriority[p]})
	}
	for i, r := range rows {
		label := fmt.Sprintf("A%d", i+1)
		f.SetCellValue(summarySheet, label, r[0])
		f.SetCellStyle(summarySheet, label, label, headerStyle)
		f.SetCellValue(summarySheet, fmt.Sprintf("B%d", i+1), r[1])
	}
	f.SetColWidth(summarySheet, "A", "A", 20)
	f.SetColWidth(summarySheet, "B", "B", 28)
}

func writeRecommendation(f *excelize.File, row int, rec *entities.MRPRecommendation) {
	values := []interface{}{
		rec.ID,
		rec.ProductID,
		rec.WarehouseID,
		string(rec.Type),
		rec.GrossRequirement.InexactFloat64(),
		rec.NetRequirement.InexactFloat64(),
		rec.ProjectedOnHand.InexactFloat64(),
		rec.SuggestedQuantity.InexactFloat64(),
		rec.UnitCode,
		rec.SuggestedDate.Format(dateLayout),
		rec.RequiredByDate.Format(dateLayout),
		rec.LeadTimeDays,
		string(rec.Priority),
		rec.IsUrgent,
		rec.UrgencyReason,
		string(rec.Status),
	}
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		f.SetCellValue(recommendationsSheet, cell, v)
	}
}

// generateXLSXOutput writes mrp_results.xlsx
func generateXLSXOutput(result *dto.RunResult, config Config) error {
	filename, err := outputPath(config, "mrp_results.xlsx")
	if err != nil {
		return err
	}
	f, err := BuildWorkbook(result)
	if err != nil {
		return fmt.Errorf("failed to build workbook: %w", err)
	}
	defer f.Close()

	if err := f.SaveAs(filename); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	if config.Verbose {
		fmt.Fprintf(config.Out, "💾 Workbook saved to: %s\n", filename)
	}
	return nil
}
