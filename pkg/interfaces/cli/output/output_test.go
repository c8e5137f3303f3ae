package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/vsinha/mfgplan/pkg/application/dto"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
	testhelpers "github.com/vsinha/mfgplan/pkg/infrastructure/testing"
)

var monday = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func sampleResult() *dto.RunResult {
	run := &entities.MRPRun{
		ID:                "run-1",
		RunCode:           "MRP-20250303-run1",
		HorizonStart:      monday,
		HorizonEnd:        monday.AddDate(0, 0, 29),
		Status:            entities.RunCompleted,
		ProductsTotal:     3,
		ProductsProcessed: 3,
		Warnings: []entities.RunWarning{
			{ProductID: "BIKE", Code: entities.WarnCapacity, Message: "5 hours on ASSEMBLY finish late"},
		},
	}
	return &dto.RunResult{
		Run: run,
		Recommendations: []*entities.MRPRecommendation{
			{
				ID: "R2", RunID: "run-1", ProductID: "WHEEL", Type: entities.PurchaseOrder,
				SuggestedQuantity: testhelpers.Qty("11"), UnitCode: "pcs",
				SuggestedDate: monday.AddDate(0, 0, 15), RequiredByDate: monday.AddDate(0, 0, 18),
				Priority: entities.PriorityLow, Status: entities.RecommendationPending,
			},
			{
				ID: "R1", RunID: "run-1", ProductID: "BIKE", Type: entities.WorkOrder,
				SuggestedQuantity: testhelpers.Qty("8"), UnitCode: "pcs",
				SuggestedDate: monday.AddDate(0, 0, 18), RequiredByDate: monday.AddDate(0, 0, 20),
				Priority: entities.PriorityLow, IsUrgent: true, UrgencyReason: "capacity",
				Status: entities.RecommendationPending,
			},
			{
				ID: "R3", RunID: "run-1", ProductID: "BOLT", Type: entities.PurchaseOrder,
				SuggestedQuantity: testhelpers.Qty("50"), UnitCode: "pcs",
				SuggestedDate: monday.AddDate(0, 0, 16), RequiredByDate: monday.AddDate(0, 0, 18),
				Priority: entities.PriorityHigh, Status: entities.RecommendationPending,
			},
		},
	}
}

func TestGenerate_Text(t *testing.T) {
	var out bytes.Buffer
	if err := Generate(sampleResult(), Config{Format: "text", Out: &out}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	text := out.String()
	for _, want := range []string{"MRP-20250303-run1", "3 (2 purchase, 1 work, 1 urgent)", "BOLT", "capacity_shortfall=1", "finish late"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected output to contain %q:\n%s", want, text)
		}
	}
	// BOLT and WHEEL share a required date; the higher priority prints first
	if strings.Index(text, "BOLT") > strings.Index(text, "WHEEL") {
		t.Errorf("Expected BOLT before WHEEL:\n%s", text)
	}
}

func TestGenerate_JSON(t *testing.T) {
	var out bytes.Buffer
	if err := Generate(sampleResult(), Config{Format: "json", Out: &out}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	var doc struct {
		Run struct {
			ID string `json:"id"`
		} `json:"run"`
		Recommendations []json.RawMessage         `json:"recommendations"`
		Summary         dto.RecommendationSummary `json:"summary"`
	}
	if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if doc.Run.ID != "run-1" || len(doc.Recommendations) != 3 || doc.Summary.PurchaseCount != 2 {
		t.Errorf("Unexpected document: %+v", doc)
	}
}

func TestGenerate_CSV(t *testing.T) {
	dir := t.TempDir()
	if err := Generate(sampleResult(), Config{Format: "csv", OutputDir: dir}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "recommendations.csv"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(records) != 4 || len(records[0]) != len(recommendationColumns) {
		t.Fatalf("Expected header and 3 rows of %d columns, got %d rows", len(recommendationColumns), len(records))
	}
	if records[1][1] != "BOLT" || records[1][7] != "50" || records[3][13] != "true" {
		t.Errorf("Unexpected rows: %v", records[1:])
	}

	warnings, err := os.ReadFile(filepath.Join(dir, "warnings.csv"))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(warnings), "BIKE,capacity_shortfall,") {
		t.Errorf("Unexpected warnings file: %s", warnings)
	}
}

func TestGenerate_XLSX(t *testing.T) {
	dir := t.TempDir()
	if err := Generate(sampleResult(), Config{Format: "xlsx", OutputDir: dir}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	f, err := excelize.OpenFile(filepath.Join(dir, "mrp_results.xlsx"))
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(recommendationsSheet)
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(rows) != 4 || rows[0][0] != "id" || rows[1][1] != "BOLT" {
		t.Errorf("Unexpected recommendation rows: %v", rows)
	}

	run, err := f.GetCellValue(summarySheet, "B1")
	if err != nil {
		t.Fatalf("GetCellValue failed: %v", err)
	}
	if run != "MRP-20250303-run1" {
		t.Errorf("Expected run code in summary, got %q", run)
	}

	warnings, err := f.GetRows(warningsSheet)
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(warnings) != 2 {
		t.Errorf("Expected header and 1 warning, got %d rows", len(warnings))
	}
}

func TestGenerate_SVG(t *testing.T) {
	dir := t.TempDir()
	if err := Generate(sampleResult(), Config{Format: "svg", OutputDir: dir}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "mrp_schedule.svg"))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	svg := string(data)
	if got := strings.Count(svg, `class="bar"`); got != 3 {
		t.Errorf("Expected 3 bars, got %d", got)
	}
	if !strings.Contains(svg, `fill="`+barColor(entities.WorkOrder, true)+`" class="bar"`) {
		t.Error("Expected the urgent work order in the urgent color")
	}

	empty := &dto.RunResult{Run: sampleResult().Run}
	if !strings.Contains(NewGanttChart(empty).GenerateSVG(empty), "No Recommendations") {
		t.Error("Expected empty chart placeholder")
	}
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"unknown format", Config{Format: "pdf"}},
		{"csv without directory", Config{Format: "csv"}},
		{"xlsx without directory", Config{Format: "xlsx"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.Out = &bytes.Buffer{}
			if err := Generate(sampleResult(), tt.config); err == nil {
				t.Error("Expected error")
			}
		})
	}
}
