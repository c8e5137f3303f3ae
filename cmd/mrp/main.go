package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/infrastructure/config"
	"github.com/vsinha/mfgplan/pkg/infrastructure/logging"
	"github.com/vsinha/mfgplan/pkg/interfaces/cli/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "generate":
			err = runGenerate(ctx, os.Args[2:])
		case "incremental":
			err = runIncremental(ctx, os.Args[2:])
		default:
			err = runPlan(ctx, os.Args[1:])
		}
	} else {
		err = runPlan(ctx, nil)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) *zap.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(config.LogConfig{Level: level, Format: "console"})
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func runPlan(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("mrp", flag.ExitOnError)
	var (
		scenarioDir  = fs.String("scenario", "", "Path to scenario directory containing CSV files")
		start        = fs.String("start", "", "Horizon start YYYY-MM-DD (default: today)")
		days         = fs.Int("days", 90, "Horizon length in days")
		safetyStock  = fs.Bool("safety-stock", false, "Plan up to safety stock")
		leadTimes    = fs.Bool("lead-times", true, "Offset order dates by lead time")
		wip          = fs.Bool("wip", false, "Count work in progress as supply")
		criticalPath = fs.Bool("critical-path", false, "Perform critical path analysis")
		topPaths     = fs.Int("top-paths", 3, "Number of top critical paths to analyze")
		outputDir    = fs.String("output", "", "Output directory for results (optional)")
		format       = fs.String("format", "text", "Output format: text, json, csv, xlsx, svg")
		verbose      = fs.Bool("verbose", false, "Enable verbose output")
		help         = fs.Bool("help", false, "Show help message")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := newLogger(*verbose)
	defer logger.Sync()

	cmd := commands.NewMRPCommand(commands.Config{
		ScenarioDir:        *scenarioDir,
		OutputDir:          *outputDir,
		Format:             *format,
		Verbose:            *verbose,
		HorizonStart:       *start,
		HorizonDays:        *days,
		IncludeSafetyStock: *safetyStock,
		RespectLeadTimes:   *leadTimes,
		ConsiderWIP:        *wip,
		CriticalPath:       *criticalPath,
		TopPaths:           *topPaths,
		Help:               *help,
		Logger:             logger,
	})
	return cmd.Execute(ctx)
}

func runGenerate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	var (
		products    = fs.Int("products", 100, "Total number of products to generate")
		maxDepth    = fs.Int("max-depth", 4, "Maximum BOM depth")
		demands     = fs.Int("demands", 5, "Number of demand lines")
		inventory   = fs.Float64("inventory", 0.5, "Inventory multiplier relative to one root's requirements")
		workCenters = fs.Int("work-centers", 3, "Number of work centers")
		start       = fs.String("start", "", "First demand date YYYY-MM-DD (default: today)")
		outputDir   = fs.String("output", "", "Output directory for the generated scenario")
		seed        = fs.Int64("seed", time.Now().UnixNano(), "Random seed for reproducible generation")
		verbose     = fs.Bool("verbose", false, "Enable verbose output")
		help        = fs.Bool("help", false, "Show help message")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	var startDate time.Time
	if *start != "" {
		t, err := time.Parse("2006-01-02", *start)
		if err != nil {
			return fmt.Errorf("invalid start date (use YYYY-MM-DD): %s", *start)
		}
		startDate = t
	}

	cmd := commands.NewGenerateCommand(commands.GenerateConfig{
		Products:    *products,
		MaxDepth:    *maxDepth,
		Demands:     *demands,
		Inventory:   *inventory,
		WorkCenters: *workCenters,
		StartDate:   startDate,
		OutputDir:   *outputDir,
		Seed:        *seed,
		Help:        *help,
		Verbose:     *verbose,
	})
	return cmd.Execute(ctx)
}

func runIncremental(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("incremental", flag.ExitOnError)
	var (
		scenarioDir = fs.String("scenario", "", "Path to scenario directory containing CSV files")
		start       = fs.String("start", "", "Horizon start YYYY-MM-DD (default: today)")
		days        = fs.Int("days", 90, "Horizon length in days")
		verbose     = fs.Bool("verbose", false, "Enable verbose output")
		help        = fs.Bool("help", false, "Show help message")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := newLogger(*verbose)
	defer logger.Sync()

	cmd := commands.NewIncrementalCommand(commands.IncrementalConfig{
		ScenarioDir:  *scenarioDir,
		HorizonStart: *start,
		HorizonDays:  *days,
		Verbose:      *verbose,
		Help:         *help,
		Logger:       logger,
	})
	return cmd.Execute(ctx)
}
