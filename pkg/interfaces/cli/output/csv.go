package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/vsinha/mfgplan/pkg/application/dto"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

var recommendationColumns = []string{
	"id", "product_id", "warehouse_id", "type", "gross_requirement", "net_requirement",
	"projected_on_hand", "suggested_quantity", "unit", "suggested_date", "required_by_date",
	"lead_time_days", "priority", "is_urgent", "urgency_reason", "status",
}

var warningColumns = []string{"product_id", "code", "message"}

func recommendationRow(rec *entities.MRPRecommendation) []string {
	return []string{
		rec.ID,
		rec.ProductID,
		rec.WarehouseID,
		string(rec.Type),
		rec.GrossRequirement.String(),
		rec.NetRequirement.String(),
		rec.ProjectedOnHand.String(),
		rec.SuggestedQuantity.String(),
		rec.UnitCode,
		rec.SuggestedDate.Format(dateLayout),
		rec.RequiredByDate.Format(dateLayout),
		strconv.Itoa(rec.LeadTimeDays),
		string(rec.Priority),
		strconv.FormatBool(rec.IsUrgent),
		rec.UrgencyReason,
		string(rec.Status),
	}
}

// generateCSVOutput writes recommendations.csv and warnings.csv
func generateCSVOutput(result *dto.RunResult, config Config) error {
	recsFile, err := outputPath(config, "recommendations.csv")
	if err != nil {
		return err
	}
	recs := sortedRecommendations(result.Recommendations)
	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, recommendationRow(rec))
	}
	if err := writeCSV(recsFile, recommendationColumns, rows); err != nil {
		return fmt.Errorf("failed to write recommendations CSV: %w", err)
	}

	warningsFile, err := outputPath(config, "warnings.csv")
	if err != nil {
		return err
	}
	rows = rows[:0]
	for _, w := range result.Run.Warnings {
		rows = append(rows, []string{w.ProductID, w.Code, w.Message})
	}
	if err := writeCSV(warningsFile, warningColumns, rows); err != nil {
		return fmt.Errorf("failed to write warnings CSV: %w", err)
	}

	if config.Verbose {
		fmt.Fprintf(config.Out, "💾 CSV results saved to:\n")
		fmt.Fprintf(config.Out, "  Recommendations: %s\n", recsFile)
		fmt.Fprintf(config.Out, "  Warnings: %s\n", warningsFile)
	}
	return nil
}

func writeCSV(filename string, header []string, rows [][]string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}
