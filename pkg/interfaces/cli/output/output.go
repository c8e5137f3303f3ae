package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vsinha/mfgplan/pkg/application/dto"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

const dateLayout = "2006-01-02"

// Config holds configuration for output generation
type Config struct {
	Format    string
	OutputDir string
	Verbose   bool
	RunTime   time.Duration
	// Out receives console output; defaults to os.Stdout
	Out io.Writer
}

// Formats lists the supported output formats
var Formats = []string{"text", "json", "csv", "xlsx", "svg"}

// Generate renders result in the configured format
func Generate(result *dto.RunResult, config Config) error {
	if config.Out == nil {
		config.Out = os.Stdout
	}
	switch config.Format {
	case "text", "":
		return generateTextOutput(result, config)
	case "json":
		return generateJSONOutput(result, config)
	case "csv":
		return generateCSVOutput(result, config)
	case "xlsx":
		return generateXLSXOutput(result, config)
	case "svg":
		return generateSVGOutput(result, config)
	default:
		return fmt.Errorf("unsupported output format: %s", config.Format)
	}
}

// sortedRecommendations orders by required date, then priority, then product
func sortedRecommendations(recs []*entities.MRPRecommendation) []*entities.MRPRecommendation {
	out := make([]*entities.MRPRecommendation, len(recs))
	copy(out, recs)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.RequiredByDate.Equal(b.RequiredByDate) {
			return a.RequiredByDate.Before(b.RequiredByDate)
		}
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		return a.ProductID < b.ProductID
	})
	return out
}

// generateTextOutput prints a human-readable report
func generateTextOutput(result *dto.RunResult, config Config) error {
	w := config.Out
	run := result.Run
	summary := dto.Summarize(result.Recommendations)

	fmt.Fprintf(w, "📊 MRP Run %s\n", run.RunCode)
	fmt.Fprintf(w, "======================\n\n")
	fmt.Fprintf(w, "Status: %s\n", run.Status)
	fmt.Fprintf(w, "Horizon: %s to %s\n", run.HorizonStart.Format(dateLayout), run.HorizonEnd.Format(dateLayout))
	fmt.Fprintf(w, "Products: %d of %d processed\n", run.ProductsProcessed, run.ProductsTotal)
	fmt.Fprintf(w, "Recommendations: %d (%d purchase, %d work, %d urgent)\n",
		summary.Total, summary.PurchaseCount, summary.WorkCount, summary.UrgentCount)
	if config.RunTime > 0 {
		fmt.Fprintf(w, "Run Time: %v\n", config.RunTime)
	}
	if run.ErrorMessage != "" {
		fmt.Fprintf(w, "Error: %s\n", run.ErrorMessage)
	}
	fmt.Fprintln(w)

	if len(result.Recommendations) > 0 {
		fmt.Fprintf(w, "📋 Recommendations:\n")
		fmt.Fprintf(w, "%-14s %-14s %-12s %-12s %-12s %-9s %-6s\n",
			"Product", "Type", "Quantity", "Order By", "Required", "Priority", "Urgent")
		fmt.Fprintf(w, "%-14s %-14s %-12s %-12s %-12s %-9s %-6s\n",
			"--------------", "--------------", "------------", "------------", "------------", "---------", "------")
		for _, rec := range sortedRecommendations(result.Recommendations) {
			urgent := ""
			if rec.IsUrgent {
				urgent = "yes"
			}
			fmt.Fprintf(w, "%-14s %-14s %-12s %-12s %-12s %-9s %-6s\n",
				rec.ProductID,
				rec.Type,
				rec.SuggestedQuantity.String()+" "+rec.UnitCode,
				rec.SuggestedDate.Format(dateLayout),
				rec.RequiredByDate.Format(dateLayout),
				rec.Priority,
				urgent)
		}
		fmt.Fprintln(w)
	}

	if len(run.Warnings) > 0 {
		fmt.Fprintf(w, "⚠️  Warnings (%s):\n", run.WarningSummary())
		for _, warning := range run.Warnings {
			fmt.Fprintf(w, "  [%s] %s: %s\n", warning.Code, warning.ProductID, warning.Message)
		}
		fmt.Fprintln(w)
	}

	for _, analysis := range result.CriticalPaths {
		writeCriticalPath(w, analysis)
	}
	return nil
}

func writeCriticalPath(w io.Writer, analysis *entities.CriticalPathAnalysis) {
	fmt.Fprintf(w, "🔍 Critical Path: %s x %s at %s\n", analysis.ProductID, analysis.Quantity.String(), analysis.WarehouseID)
	fmt.Fprintf(w, "%s (%d paths, %.0f%% touch stock)\n", analysis.Summary(), analysis.TotalPaths, analysis.StockCoverage())
	for i, path := range analysis.TopPaths {
		fmt.Fprintf(w, "  %d. %s\n", i+1, path.Summary())
		for _, node := range path.Nodes {
			marker := ""
			if node.IsPhantom {
				marker = " (phantom)"
			} else if node.HasStock() {
				marker = fmt.Sprintf(" (%s on hand)", node.OnHand.String())
			}
			fmt.Fprintf(w, "     %s%s: %dd, %dd effective, %dd cumulative%s\n",
				strings.Repeat("  ", node.Level), node.ProductID,
				node.LeadTimeDays, node.EffectiveLeadTime, node.CumulativeDays, marker)
		}
	}
	fmt.Fprintln(w)
}

// jsonReport is the JSON document written for a run
type jsonReport struct {
	*dto.RunResult
	Summary dto.RecommendationSummary `json:"summary"`
}

// generateJSONOutput writes the run and its recommendations as JSON
func generateJSONOutput(result *dto.RunResult, config Config) error {
	jsonData, err := json.MarshalIndent(jsonReport{RunResult: result, Summary: dto.Summarize(result.Recommendations)}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if config.OutputDir == "" {
		fmt.Fprintln(config.Out, string(jsonData))
		return nil
	}

	filename, err := outputPath(config, "mrp_results.json")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	if config.Verbose {
		fmt.Fprintf(config.Out, "💾 JSON results saved to: %s\n", filename)
	}
	return nil
}

// outputPath creates the output directory and joins name onto it
func outputPath(config Config, name string) (string, error) {
	if config.OutputDir == "" {
		return "", fmt.Errorf("output directory required for %s format", config.Format)
	}
	if err := os.MkdirAll(config.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return filepath.Join(config.OutputDir, name), nil
}
