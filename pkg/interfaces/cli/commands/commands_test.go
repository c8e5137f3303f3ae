package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vsinha/mfgplan/pkg/infrastructure/repositories/csv"
)

var (
	monday      = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	bicycleDir  = filepath.Join("..", "..", "..", "infrastructure", "repositories", "csv", "testdata", "bicycle")
	fixedClock  = func() time.Time { return monday.Add(8 * time.Hour) }
	testOptions = Config{HorizonStart: "2025-03-03", HorizonDays: 30, RespectLeadTimes: true}
)

func sequentialIDs() func() string {
	var n int64
	return func() string { return fmt.Sprintf("id-%04d", atomic.AddInt64(&n, 1)) }
}

// tickingClock moves forward a minute on every reading so consecutive runs
// and changes never share a timestamp
func tickingClock() func() time.Time {
	var mu sync.Mutex
	now := monday.Add(8 * time.Hour)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Minute)
		return now
	}
}

type report struct {
	Run struct {
		Status            string `json:"status"`
		ProductsProcessed int    `json:"products_processed"`
	} `json:"run"`
	Recommendations []struct {
		ProductID string `json:"product_id"`
		Type      string `json:"recommendation_type"`
		Unit      string `json:"unit"`
	} `json:"recommendations"`
	Summary struct {
		Total int `json:"total"`
	} `json:"summary"`
}

func runJSON(t *testing.T, scenario string, days int) report {
	t.Helper()
	cfg := testOptions
	cfg.ScenarioDir = scenario
	cfg.HorizonDays = days
	cfg.Format = "json"
	cfg.Clock = fixedClock
	cfg.NewID = sequentialIDs()
	var out bytes.Buffer
	cfg.Out = &out

	if err := NewMRPCommand(cfg).Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	var r report
	if err := json.Unmarshal(out.Bytes(), &r); err != nil {
		t.Fatalf("Output is not JSON: %v\n%s", err, out.String())
	}
	return r
}

func TestMRPCommand_JSON(t *testing.T) {
	r := runJSON(t, bicycleDir, 30)

	if r.Run.Status != "completed" || r.Run.ProductsProcessed != 7 {
		t.Fatalf("Expected completed run over 7 products, got %s with %d", r.Run.Status, r.Run.ProductsProcessed)
	}
	if r.Summary.Total != 5 || len(r.Recommendations) != 5 {
		t.Fatalf("Expected 5 recommendations, got %d (%d listed)", r.Summary.Total, len(r.Recommendations))
	}

	byProduct := make(map[string]string)
	for _, rec := range r.Recommendations {
		byProduct[rec.ProductID] = rec.Type
		if rec.ProductID == "PAINT" && rec.Unit != "kg" {
			t.Errorf("Expected PAINT planned in kg, got %s", rec.Unit)
		}
	}
	want := map[string]string{
		"BIKE":  "work_order",
		"FRAME": "purchase_order",
		"BOLT":  "purchase_order",
		"WHEEL": "purchase_order",
		"PAINT": "purchase_order",
	}
	for product, typ := range want {
		if byProduct[product] != typ {
			t.Errorf("%s: expected %s, got %q", product, typ, byProduct[product])
		}
	}
}

func TestMRPCommand_FileFormats(t *testing.T) {
	tests := []struct {
		format string
		files  []string
	}{
		{"csv", []string{"recommendations.csv", "warnings.csv"}},
		{"xlsx", []string{"mrp_results.xlsx"}},
		{"svg", []string{"mrp_schedule.svg"}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			dir := t.TempDir()
			cfg := testOptions
			cfg.ScenarioDir = bicycleDir
			cfg.Format = tt.format
			cfg.OutputDir = dir
			cfg.Clock = fixedClock
			cfg.Out = &bytes.Buffer{}

			if err := NewMRPCommand(cfg).Execute(context.Background()); err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			for _, name := range tt.files {
				if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
					t.Errorf("Expected %s: %v", name, err)
				}
			}
		})
	}
}

func TestMRPCommand_Verbose(t *testing.T) {
	cfg := testOptions
	cfg.ScenarioDir = bicycleDir
	cfg.Verbose = true
	cfg.Clock = fixedClock
	var out bytes.Buffer
	cfg.Out = &out

	if err := NewMRPCommand(cfg).Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	for _, want := range []string{"Products: 7", "Work centers: 1", "Planning 2025-03-03 to 2025-04-01", "MRP analysis complete"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Expected %q in verbose output:\n%s", want, out.String())
		}
	}
}

func TestMRPCommand_CriticalPath(t *testing.T) {
	cfg := testOptions
	cfg.ScenarioDir = bicycleDir
	cfg.CriticalPath = true
	cfg.TopPaths = 2
	cfg.Clock = fixedClock
	var out bytes.Buffer
	cfg.Out = &out

	if err := NewMRPCommand(cfg).Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	for _, want := range []string{
		"Critical Path: BIKE x 10 at MAIN",
		"Critical Path: 7 days (6 effective) | Bottleneck: FRAME (4 paths",
		"1. 7 days (6 effective) - 3 levels - FRAME",
		"2. 5 days (3 effective) - 2 levels - WHEEL",
		"FRAME-ASSY: 0d, 0d effective, 5d cumulative (phantom)",
	} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Expected %q in output:\n%s", want, out.String())
		}
	}
	if strings.Contains(out.String(), "\n  3. ") {
		t.Errorf("Expected only 2 paths:\n%s", out.String())
	}
}

func TestMRPCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"no scenario", Config{}, "must specify -scenario"},
		{"bad format", Config{ScenarioDir: bicycleDir, Format: "pdf"}, "unsupported output format"},
		{"bad start", Config{ScenarioDir: bicycleDir, HorizonStart: "03/03/2025"}, "invalid horizon start"},
		{"missing dir", Config{ScenarioDir: filepath.Join(t.TempDir(), "nope")}, "failed to load scenario"},
		{"file format needs dir", Config{ScenarioDir: bicycleDir, Format: "xlsx", HorizonStart: "2025-03-03"}, "output directory required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Out = &bytes.Buffer{}
			tt.cfg.Clock = fixedClock
			err := NewMRPCommand(tt.cfg).Execute(context.Background())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestMRPCommand_Help(t *testing.T) {
	var out bytes.Buffer
	if err := NewMRPCommand(Config{Help: true, Out: &out}).Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(out.String(), "USAGE:") || !strings.Contains(out.String(), "bom_lines.csv") {
		t.Errorf("Unexpected help output:\n%s", out.String())
	}
}

func generate(t *testing.T, dir string, seed int64) {
	t.Helper()
	err := NewGenerateCommand(GenerateConfig{
		Products:  60,
		MaxDepth:  4,
		Demands:   5,
		Inventory: 0.5,
		StartDate: monday,
		OutputDir: dir,
		Seed:      seed,
		Out:       &bytes.Buffer{},
	}).Execute(context.Background())
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
}

func TestGenerateCommand_WritesPlannableScenario(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "generated")
	generate(t, dir, 42)

	ds, err := csv.NewLoader().LoadScenario(dir)
	if err != nil {
		t.Fatalf("Generated scenario does not load: %v", err)
	}
	if len(ds.Products) != 60 {
		t.Errorf("Expected 60 products, got %d", len(ds.Products))
	}
	if len(ds.Demands) != 5 {
		t.Errorf("Expected 5 demands, got %d", len(ds.Demands))
	}
	if len(ds.WorkCenters) != 3 {
		t.Errorf("Expected 3 work centers, got %d", len(ds.WorkCenters))
	}

	boms := make(map[string]bool)
	for _, b := range ds.BOMs {
		boms[b.ProductID] = true
	}
	routed := make(map[string]bool)
	for _, r := range ds.Routings {
		routed[r.ProductID] = true
	}
	for _, p := range ds.Products {
		if p.CanBeManufactured != boms[p.ID] {
			t.Errorf("%s: manufactured=%v but has BOM=%v", p.ID, p.CanBeManufactured, boms[p.ID])
		}
		if p.CanBeManufactured && !routed[p.ID] {
			t.Errorf("%s: made product without routing", p.ID)
		}
	}
	for _, d := range ds.Demands {
		if d.DueDate.Before(monday.AddDate(0, 0, 14)) || !d.DueDate.Before(monday.AddDate(0, 0, 90)) {
			t.Errorf("Demand %s due %s outside the generated window", d.SourceRef, d.DueDate.Format(dateLayout))
		}
	}

	r := runJSON(t, dir, 90)
	if r.Run.Status != "completed" {
		t.Fatalf("Expected generated scenario to plan, got %s", r.Run.Status)
	}
	if r.Summary.Total == 0 {
		t.Error("Expected recommendations for generated demand")
	}
}

func TestGenerateCommand_SeedIsReproducible(t *testing.T) {
	a := filepath.Join(t.TempDir(), "a")
	b := filepath.Join(t.TempDir(), "b")
	generate(t, a, 7)
	generate(t, b, 7)

	for _, name := range []string{csv.ProductsFile, csv.BOMLinesFile, csv.DemandsFile, csv.StockFile} {
		first, err := os.ReadFile(filepath.Join(a, name))
		if err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}
		second, err := os.ReadFile(filepath.Join(b, name))
		if err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}
		if !bytes.Equal(first, second) {
			t.Errorf("%s differs between runs with the same seed", name)
		}
	}
}

func TestGenerateCommand_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  GenerateConfig
		want string
	}{
		{"too few products", GenerateConfig{Products: 1, MaxDepth: 3, Demands: 1, OutputDir: "x"}, "products"},
		{"depth", GenerateConfig{Products: 10, MaxDepth: 20, Demands: 1, OutputDir: "x"}, "max depth"},
		{"demands", GenerateConfig{Products: 10, MaxDepth: 3, OutputDir: "x"}, "demands"},
		{"inventory", GenerateConfig{Products: 10, MaxDepth: 3, Demands: 1, Inventory: -1, OutputDir: "x"}, "inventory"},
		{"output", GenerateConfig{Products: 10, MaxDepth: 3, Demands: 1}, "output directory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Out = &bytes.Buffer{}
			err := NewGenerateCommand(tt.cfg).Execute(context.Background())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestIncrementalCommand_Session(t *testing.T) {
	script := strings.Join([]string{
		"plan full",
		"plan",
		"demand NOPE 1 2025-03-10",
		"demand BIKE 3 2025-03-28",
		"receipt FRAME 1 2025-03-20",
		"plan",
		"recs WHEEL",
		"explode B-BIKE 2",
		"status",
		"events 2",
		"bogus",
		"quit",
		"onhand BOLT 500",
	}, "\n")

	var out bytes.Buffer
	cmd := NewIncrementalCommand(IncrementalConfig{
		ScenarioDir:  bicycleDir,
		HorizonStart: "2025-03-03",
		HorizonDays:  30,
		In:           strings.NewReader(script),
		Out:          &out,
		Clock:        tickingClock(),
		NewID:        sequentialIDs(),
	})
	if err := cmd.Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	got := out.String()

	ordered := []string{
		"(full regeneration): completed",
		"Products planned: 7",
		"Recommendations: 5",
		"(net change): completed",
		"Products planned: 0",
		"Error: unknown product: NOPE",
		"Added demand: BIKE qty 3 due 2025-03-28",
		"Added receipt: FRAME qty 1 due 2025-03-20 at MAIN",
		"(net change): completed",
		"Products planned: 5",
		"purchase_order WHEEL",
		"=== B-BIKE x 2",
		"demand.changed: 1",
		"stock.changed: 1",
		"Recent Events (last 2)",
		"Error: unknown command: bogus",
		"Goodbye!",
	}
	rest := got
	for _, want := range ordered {
		i := strings.Index(rest, want)
		if i < 0 {
			t.Fatalf("Expected %q after earlier output in session:\n%s", want, got)
		}
		rest = rest[i+len(want):]
	}
	if strings.Contains(got, "Set on hand") {
		t.Error("Expected commands after quit to be ignored")
	}
}

func TestIncrementalCommand_RecommendationsBeforePlan(t *testing.T) {
	var out bytes.Buffer
	cmd := NewIncrementalCommand(IncrementalConfig{
		ScenarioDir:  bicycleDir,
		HorizonStart: "2025-03-03",
		In:           strings.NewReader("recs\nplan sideways\n"),
		Out:          &out,
		Clock:        tickingClock(),
	})
	if err := cmd.Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	for _, want := range []string{"no run yet", "usage: plan [net|full]"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Expected %q in output:\n%s", want, out.String())
		}
	}
}

func TestIncrementalCommand_CriticalPath(t *testing.T) {
	var out bytes.Buffer
	cmd := NewIncrementalCommand(IncrementalConfig{
		ScenarioDir:  bicycleDir,
		HorizonStart: "2025-03-03",
		In:           strings.NewReader("critical BIKE 10 2\ncritical BIKE 10 zero\ncritical\n"),
		Out:          &out,
		Clock:        tickingClock(),
	})
	if err := cmd.Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	got := out.String()
	for _, want := range []string{
		"=== BIKE x 10 at MAIN ===",
		"Critical Path: 7 days (6 effective) | Bottleneck: FRAME (4 paths)",
		"1. 7 days (6 effective) - 3 levels - FRAME: BIKE -> FRAME-ASSY -> FRAME",
		"2. 5 days (3 effective) - 2 levels - WHEEL: BIKE -> WHEEL",
		"Error: invalid path count: zero",
		"usage: critical <product> [quantity] [top]",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected %q in output:\n%s", want, got)
		}
	}
	if strings.Contains(got, "  3. ") {
		t.Errorf("Expected only 2 paths:\n%s", got)
	}
}

func TestIncrementalCommand_RequiresScenario(t *testing.T) {
	err := NewIncrementalCommand(IncrementalConfig{Out: &bytes.Buffer{}}).Execute(context.Background())
	if err == nil || !strings.Contains(err.Error(), "must specify -scenario") {
		t.Errorf("Expected scenario validation error, got %v", err)
	}
}
