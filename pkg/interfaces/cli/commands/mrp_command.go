package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/application/dto"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
	"github.com/vsinha/mfgplan/pkg/interfaces/cli/output"
)

const dateLayout = "2006-01-02"

// Config holds configuration for the MRP command
type Config struct {
	ScenarioDir        string
	OutputDir          string
	Format             string
	Verbose            bool
	HorizonStart       string
	HorizonDays        int
	IncludeSafetyStock bool
	RespectLeadTimes   bool
	ConsiderWIP        bool
	CriticalPath       bool
	TopPaths           int
	Help               bool

	Out    io.Writer
	Clock  func() time.Time
	NewID  func() string
	Logger *zap.Logger
}

// MRPCommand loads a scenario, runs one planning pass and reports it
type MRPCommand struct {
	config Config
}

// NewMRPCommand creates a new MRP command with the given configuration
func NewMRPCommand(config Config) *MRPCommand {
	if config.Out == nil {
		config.Out = os.Stdout
	}
	if config.Format == "" {
		config.Format = "text"
	}
	return &MRPCommand{config: config}
}

// Execute runs the MRP command
func (c *MRPCommand) Execute(ctx context.Context) error {
	if c.config.Help {
		c.showHelp()
		return nil
	}

	if err := c.validateInputs(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	start, err := c.horizonStart()
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	w := c.config.Out
	if c.config.Verbose {
		fmt.Fprintf(w, "🚀 MRP Engine CLI\n")
		fmt.Fprintf(w, "Scenario: %s\n", c.config.ScenarioDir)
		fmt.Fprintf(w, "Output format: %s\n", c.config.Format)
		if c.config.OutputDir != "" {
			fmt.Fprintf(w, "Output directory: %s\n", c.config.OutputDir)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "📂 Loading scenario...")
	}

	ws, err := LoadWorkspace(ctx, WorkspaceConfig{
		ScenarioDir:  c.config.ScenarioDir,
		HorizonStart: start,
		HorizonDays:  c.config.HorizonDays,
		Clock:        c.config.Clock,
		NewID:        c.config.NewID,
		Logger:       c.config.Logger,
	})
	if err != nil {
		return err
	}

	if c.config.Verbose {
		ds := ws.Dataset
		fmt.Fprintf(w, "✅ Data loaded successfully:\n")
		fmt.Fprintf(w, "  Products: %d\n", len(ds.Products))
		fmt.Fprintf(w, "  BOMs: %d (%d lines)\n", len(ds.BOMs), len(ds.BOMLines))
		fmt.Fprintf(w, "  Stock records: %d\n", len(ds.Stock))
		fmt.Fprintf(w, "  Demands: %d\n", len(ds.Demands))
		fmt.Fprintf(w, "  Work centers: %d\n", len(ds.WorkCenters))
		fmt.Fprintln(w)
		fmt.Fprintf(w, "🔄 Planning %s to %s...\n", ws.HorizonStart.Format(dateLayout), ws.HorizonEnd.Format(dateLayout))
	}

	began := time.Now()
	run, err := ws.Plan(ctx, entities.RunOptions{
		IncludeSafetyStock: c.config.IncludeSafetyStock,
		RespectLeadTimes:   c.config.RespectLeadTimes,
		ConsiderWIP:        c.config.ConsiderWIP,
	}, "cli")
	elapsed := time.Since(began)
	if err != nil {
		return fmt.Errorf("error running MRP: %w", err)
	}

	recs, err := ws.Runs.FindRecommendations(ctx, repositories.RecommendationFilter{RunID: run.ID})
	if err != nil {
		return fmt.Errorf("failed to load recommendations: %w", err)
	}

	if c.config.Verbose {
		fmt.Fprintf(w, "✅ MRP run %s completed in %v\n\n", run.RunCode, elapsed)
	}

	result := &dto.RunResult{Run: run, Recommendations: recs}
	if c.config.CriticalPath {
		if c.config.Verbose {
			fmt.Fprintln(w, "🔍 Performing critical path analysis...")
		}
		result.CriticalPaths, err = ws.CriticalPaths(ctx, c.config.TopPaths)
		if err != nil {
			return fmt.Errorf("error analyzing critical paths: %w", err)
		}
		if c.config.Verbose {
			for _, analysis := range result.CriticalPaths {
				fmt.Fprintf(w, "📊 %s: %s\n", analysis.ProductID, analysis.Summary())
			}
			fmt.Fprintln(w)
		}
	}

	if err := output.Generate(result, output.Config{
		Format:    c.config.Format,
		OutputDir: c.config.OutputDir,
		Verbose:   c.config.Verbose,
		RunTime:   elapsed,
		Out:       w,
	}); err != nil {
		return fmt.Errorf("error generating output: %w", err)
	}

	if c.config.Verbose {
		fmt.Fprintln(w, "🏁 MRP analysis complete!")
	}
	return nil
}

func (c *MRPCommand) validateInputs() error {
	if c.config.ScenarioDir == "" {
		return fmt.Errorf("must specify -scenario directory")
	}
	for _, f := range output.Formats {
		if f == c.config.Format {
			return nil
		}
	}
	return fmt.Errorf("unsupported output format %q (expected one of %s)", c.config.Format, strings.Join(output.Formats, ", "))
}

func (c *MRPCommand) horizonStart() (time.Time, error) {
	if c.config.HorizonStart == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, c.config.HorizonStart)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid horizon start (use YYYY-MM-DD): %s", c.config.HorizonStart)
	}
	return t, nil
}

func (c *MRPCommand) showHelp() {
	fmt.Fprint(c.config.Out, `MRP Engine CLI - Material Requirements Planning

USAGE:
    mrp -scenario <directory> [OPTIONS]
    mrp generate [OPTIONS]
    mrp incremental -scenario <directory> [OPTIONS]

OPTIONS:
    -scenario <dir>       Path to scenario directory containing CSV files
    -start <date>         Horizon start YYYY-MM-DD (default: today)
    -days <n>             Horizon length in days (default: 90)
    -safety-stock         Plan up to safety stock
    -lead-times           Offset order dates by lead time (default: true)
    -wip                  Count work in progress as supply
    -critical-path        Analyze lead-time critical paths of demanded products
    -top-paths <n>        Number of top critical paths to report (default: 3)
    -output <dir>         Output directory for results (optional)
    -format <fmt>         Output format: text, json, csv, xlsx, svg (default: text)
    -verbose              Enable verbose output
    -help                 Show this help message

SCENARIO DIRECTORY STRUCTURE:
    scenario_name/
    ├── products.csv      # Product master data
    ├── boms.csv          # BOM headers
    ├── bom_lines.csv     # BOM components
    ├── demands.csv       # Independent demand
    ├── stock.csv         # On hand, WIP and scheduled receipts (optional)
    ├── work_centers.csv  # Work centers (optional)
    └── routings.csv      # Routings (optional)

CSV FILE FORMATS:

products.csv:
    product_id,name,unit,category,make_or_buy,lead_time_days,safety_stock,reorder_point,reorder_qty,lot_size_rule,min_order_qty,warehouse
    BIKE,City bike,pcs,,make,0,0,0,0,LotForLot,0,MAIN

boms.csv:
    bom_id,product_id,version,base_qty,unit,status,is_default,effective_from,expires_at
    B-BIKE,BIKE,v1,1,pcs,active,true,,

bom_lines.csv:
    line_id,bom_id,component_id,sequence,qty_per,unit,scrap_pct,optional,phantom
    L-WHEEL,B-BIKE,WHEEL,20,2,pcs,0,false,false

demands.csv:
    product_id,warehouse,quantity,due_date,source_ref
    BIKE,MAIN,10,2025-03-23,SO-1001

stock.csv:
    product_id,warehouse,type,quantity,due_date
    BOLT,MAIN,receipt,20,2025-03-06

work_centers.csv:
    work_center_id,name,capacity_per_day,efficiency,cost_per_hour
    ASSEMBLY,Final assembly,8,100,42.50

routings.csv:
    product_id,lead_time_days,sequence,work_center_id,setup_hours,run_hours_per_unit
    BIKE,2,10,ASSEMBLY,1,0.5

EXAMPLES:
    # Plan the bicycle scenario
    mrp -scenario examples/bicycle -start 2025-03-03 -verbose

    # Run with critical path analysis
    mrp -scenario examples/bicycle -critical-path -top-paths 5

    # Export recommendations to a workbook
    mrp -scenario examples/bicycle -format xlsx -output results/

    # Generate a random scenario and plan it
    mrp generate -products 200 -max-depth 5 -demands 10 -inventory 0.5 -output ./gen
    mrp -scenario ./gen -format json
`)
}
