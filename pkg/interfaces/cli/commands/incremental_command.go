package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/application/services/criticalpath"
	"github.com/vsinha/mfgplan/pkg/application/services/explosion"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
	"github.com/vsinha/mfgplan/pkg/infrastructure/repositories/memory"
)

const defaultWarehouse = "MAIN"

// errQuit ends the interactive session
var errQuit = errors.New("quit")

// IncrementalConfig holds configuration for the incremental MRP command
type IncrementalConfig struct {
	ScenarioDir  string
	HorizonStart string
	HorizonDays  int
	Verbose      bool
	Help         bool

	In     io.Reader
	Out    io.Writer
	Clock  func() time.Time
	NewID  func() string
	Logger *zap.Logger
}

// IncrementalCommand handles the interactive net-change planning session
type IncrementalCommand struct {
	config  IncrementalConfig
	ws      *Workspace
	lastRun *entities.MRPRun
}

// NewIncrementalCommand creates a new incremental command with the given configuration
func NewIncrementalCommand(config IncrementalConfig) *IncrementalCommand {
	if config.In == nil {
		config.In = os.Stdin
	}
	if config.Out == nil {
		config.Out = os.Stdout
	}
	return &IncrementalCommand{config: config}
}

// Execute loads the scenario and reads commands until quit or end of input
func (c *IncrementalCommand) Execute(ctx context.Context) error {
	if c.config.Help {
		c.printHelp()
		return nil
	}
	if c.config.ScenarioDir == "" {
		return fmt.Errorf("validation error: must specify -scenario directory")
	}

	var start time.Time
	if c.config.HorizonStart != "" {
		var err error
		if start, err = time.Parse(dateLayout, c.config.HorizonStart); err != nil {
			return fmt.Errorf("validation error: invalid horizon start (use YYYY-MM-DD): %s", c.config.HorizonStart)
		}
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
	c.ws = ws

	return c.runInteractiveSession(ctx)
}

func (c *IncrementalCommand) runInteractiveSession(ctx context.Context) error {
	w := c.config.Out
	fmt.Fprintln(w, "=== Incremental MRP Session ===")
	fmt.Fprintf(w, "Horizon %s to %s\n", c.ws.HorizonStart.Format(dateLayout), c.ws.HorizonEnd.Format(dateLayout))
	fmt.Fprintln(w, "Type 'help' for available commands")
	fmt.Fprintln(w)

	scanner := bufio.NewScanner(c.config.In)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(w, "mrp> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		err := c.processCommand(ctx, line)
		if errors.Is(err, errQuit) {
			fmt.Fprintln(w, "Goodbye!")
			return nil
		}
		if err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
		}
		fmt.Fprintln(w)
	}
	return scanner.Err()
}

func (c *IncrementalCommand) processCommand(ctx context.Context, line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	command := parts[0]
	args := parts[1:]

	switch command {
	case "help", "h":
		c.printInteractiveHelp()
	case "add-demand", "demand":
		return c.handleAddDemand(args)
	case "add-receipt", "receipt":
		return c.handleAddReceipt(args)
	case "onhand", "on-hand":
		return c.handleSetOnHand(args)
	case "plan", "run":
		return c.handlePlan(ctx, args)
	case "recs", "recommendations":
		return c.handleRecommendations(ctx, args)
	case "explode":
		return c.handleExplode(ctx, args)
	case "critical", "cp":
		return c.handleCriticalPath(ctx, args)
	case "status":
		return c.handleStatus()
	case "events":
		return c.handleShowEvents(args)
	case "quit", "q", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", command)
	}
	return nil
}

func parseQuantity(s string) (decimal.Decimal, error) {
	qty, err := decimal.NewFromString(s)
	if err != nil || !qty.IsPositive() {
		return decimal.Zero, fmt.Errorf("invalid quantity: %s", s)
	}
	return qty, nil
}

func parseDay(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format (use YYYY-MM-DD): %s", s)
	}
	return t, nil
}

func (c *IncrementalCommand) requireProduct(id string) error {
	if _, err := c.ws.Products.GetProduct(context.Background(), id); err != nil {
		return fmt.Errorf("unknown product: %s", id)
	}
	return nil
}

func (c *IncrementalCommand) handleAddDemand(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: demand <product> <quantity> <due-date> [warehouse] [source]")
	}
	if err := c.requireProduct(args[0]); err != nil {
		return err
	}
	qty, err := parseQuantity(args[1])
	if err != nil {
		return err
	}
	due, err := parseDay(args[2])
	if err != nil {
		return err
	}
	warehouse := defaultWarehouse
	if len(args) > 3 {
		warehouse = args[3]
	}
	source := "CLI"
	if len(args) > 4 {
		source = args[4]
	}

	if err := c.ws.Demand.LoadDemands([]*entities.DemandLine{{
		ProductID:   args[0],
		WarehouseID: warehouse,
		Quantity:    qty,
		DueDate:     due,
		SourceRef:   source,
	}}); err != nil {
		return fmt.Errorf("failed to add demand: %w", err)
	}
	fmt.Fprintf(c.config.Out, "Added demand: %s qty %s due %s\n", args[0], qty, due.Format(dateLayout))
	return nil
}

func (c *IncrementalCommand) handleAddReceipt(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: receipt <product> <quantity> <due-date> [warehouse]")
	}
	if err := c.requireProduct(args[0]); err != nil {
		return err
	}
	qty, err := parseQuantity(args[1])
	if err != nil {
		return err
	}
	due, err := parseDay(args[2])
	if err != nil {
		return err
	}
	warehouse := defaultWarehouse
	if len(args) > 3 {
		warehouse = args[3]
	}

	c.ws.Stock.AddReceipt(memory.Receipt{ProductID: args[0], WarehouseID: warehouse, Quantity: qty, DueDate: due})
	fmt.Fprintf(c.config.Out, "Added receipt: %s qty %s due %s at %s\n", args[0], qty, due.Format(dateLayout), warehouse)
	return nil
}

func (c *IncrementalCommand) handleSetOnHand(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: onhand <product> <quantity> [warehouse]")
	}
	if err := c.requireProduct(args[0]); err != nil {
		return err
	}
	qty, err := decimal.NewFromString(args[1])
	if err != nil || qty.IsNegative() {
		return fmt.Errorf("invalid quantity: %s", args[1])
	}
	warehouse := defaultWarehouse
	if len(args) > 2 {
		warehouse = args[2]
	}

	c.ws.Stock.SetOnHand(args[0], warehouse, qty)
	fmt.Fprintf(c.config.Out, "Set on hand: %s qty %s at %s\n", args[0], qty, warehouse)
	return nil
}

func (c *IncrementalCommand) handlePlan(ctx context.Context, args []string) error {
	netChange := true
	if len(args) > 0 {
		switch args[0] {
		case "net":
		case "full":
			netChange = false
		default:
			return fmt.Errorf("usage: plan [net|full]")
		}
	}

	run, err := c.ws.Plan(ctx, entities.RunOptions{RespectLeadTimes: true, NetChange: netChange}, "cli")
	if err != nil {
		return fmt.Errorf("planning failed: %w", err)
	}
	c.lastRun = run

	w := c.config.Out
	mode := "net change"
	if !netChange {
		mode = "full regeneration"
	}
	fmt.Fprintf(w, "Run %s (%s): %s\n", run.RunCode, mode, run.Status)
	fmt.Fprintf(w, "Products planned: %d\n", run.ProductsProcessed)
	fmt.Fprintf(w, "Recommendations: %d\n", run.RecommendationsGenerated)
	if len(run.Warnings) > 0 {
		fmt.Fprintf(w, "Warnings: %s\n", run.WarningSummary())
	}
	return nil
}

func (c *IncrementalCommand) handleRecommendations(ctx context.Context, args []string) error {
	if c.lastRun == nil {
		return fmt.Errorf("no run yet; use 'plan' first")
	}
	filter := repositories.RecommendationFilter{RunID: c.lastRun.ID}
	if len(args) > 0 {
		filter.ProductID = args[0]
	}
	recs, err := c.ws.Runs.FindRecommendations(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to load recommendations: %w", err)
	}

	w := c.config.Out
	fmt.Fprintf(w, "=== Recommendations of %s ===\n", c.lastRun.RunCode)
	if len(recs) == 0 {
		fmt.Fprintln(w, "none")
		return nil
	}
	for _, r := range recs {
		urgent := ""
		if r.IsUrgent {
			urgent = " URGENT"
		}
		fmt.Fprintf(w, "%-14s %-8s %s %s order by %s need by %s [%s]%s\n",
			r.Type, r.ProductID, r.SuggestedQuantity, r.UnitCode,
			r.SuggestedDate.Format(dateLayout), r.RequiredByDate.Format(dateLayout), r.Priority, urgent)
	}
	return nil
}

func (c *IncrementalCommand) handleExplode(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: explode <bom-id> [quantity]")
	}
	qty := decimal.NewFromInt(1)
	if len(args) > 1 {
		var err error
		if qty, err = parseQuantity(args[1]); err != nil {
			return err
		}
	}

	result, err := c.ws.Explosions.Explode(ctx, explosion.Request{
		BOMID:              args[0],
		Quantity:           qty,
		ExplodeAllLevels:   true,
		AggregateByProduct: true,
	})
	if err != nil {
		return err
	}

	w := c.config.Out
	fmt.Fprintf(w, "=== %s x %s (%s, %d levels) ===\n", result.BOMID, result.Quantity, result.Structure, result.MaxLevel)
	for _, t := range result.Totals {
		fmt.Fprintf(w, "  %-12s %s %s\n", t.ProductID, t.TotalQuantity, t.UnitCode)
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warning)
	}
	return nil
}

func (c *IncrementalCommand) handleCriticalPath(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: critical <product> [quantity] [top]")
	}
	req := criticalpath.Request{ProductID: args[0]}
	if len(args) > 1 {
		var err error
		if req.Quantity, err = parseQuantity(args[1]); err != nil {
			return err
		}
	}
	if len(args) > 2 {
		top, err := strconv.Atoi(args[2])
		if err != nil || top <= 0 {
			return fmt.Errorf("invalid path count: %s", args[2])
		}
		req.TopN = top
	}

	analysis, err := c.ws.Paths.Analyze(ctx, req)
	if err != nil {
		return err
	}

	w := c.config.Out
	fmt.Fprintf(w, "=== %s x %s at %s ===\n", analysis.ProductID, analysis.Quantity, analysis.WarehouseID)
	fmt.Fprintf(w, "%s (%d paths)\n", analysis.Summary(), analysis.TotalPaths)
	for i := range analysis.TopPaths {
		path := &analysis.TopPaths[i]
		fmt.Fprintf(w, "  %d. %s: %s\n", i+1, path.Summary(), strings.Join(path.Path, " -> "))
	}
	return nil
}

func (c *IncrementalCommand) handleStatus() error {
	allEvents, err := c.ws.Events.ReadAllEvents(0)
	if err != nil {
		return fmt.Errorf("failed to read events: %w", err)
	}

	w := c.config.Out
	fmt.Fprintf(w, "=== System Status ===\n")
	fmt.Fprintf(w, "Total events recorded: %d\n", len(allEvents))
	if c.lastRun != nil {
		fmt.Fprintf(w, "Last run: %s (%s)\n", c.lastRun.RunCode, c.lastRun.Status)
	}

	eventCounts := make(map[string]int)
	for _, event := range allEvents {
		eventCounts[event.Type()]++
	}
	types := make([]string, 0, len(eventCounts))
	for t := range eventCounts {
		types = append(types, t)
	}
	sort.Strings(types)

	fmt.Fprintf(w, "\nEvent counts by type:\n")
	for _, t := range types {
		fmt.Fprintf(w, "  %s: %d\n", t, eventCounts[t])
	}
	return nil
}

func (c *IncrementalCommand) handleShowEvents(args []string) error {
	limit := 10
	if len(args) > 0 {
		if l, err := strconv.Atoi(args[0]); err == nil && l > 0 {
			limit = l
		}
	}

	allEvents, err := c.ws.Events.ReadAllEvents(0)
	if err != nil {
		return fmt.Errorf("failed to read events: %w", err)
	}

	w := c.config.Out
	fmt.Fprintf(w, "=== Recent Events (last %d) ===\n", limit)
	start := max(0, len(allEvents)-limit)
	for _, event := range allEvents[start:] {
		fmt.Fprintf(w, "[%s] %s -> %s\n", event.Timestamp().Format("15:04:05"), event.Type(), event.StreamID())
	}
	return nil
}

func (c *IncrementalCommand) printHelp() {
	fmt.Fprintln(c.config.Out, `Incremental MRP Command

USAGE:
    mrp incremental -scenario <DIR> [OPTIONS]

OPTIONS:
    -scenario <DIR>     Path to scenario directory containing CSV files
    -start <date>       Horizon start YYYY-MM-DD (default: today)
    -days <n>           Horizon length in days (default: 90)
    -verbose            Enable verbose logging
    -help               Show this help message

DESCRIPTION:
    Starts an interactive session where you can change demand and stock and
    replan only the products those changes touched.`)
}

func (c *IncrementalCommand) printInteractiveHelp() {
	fmt.Fprintln(c.config.Out, `Available commands:

  demand <product> <qty> <date> [warehouse] [source]
      Add a demand line
      Example: demand BIKE 5 2025-04-15 MAIN SO-2001

  receipt <product> <qty> <date> [warehouse]
      Add an open purchase receipt
      Example: receipt WHEEL 40 2025-03-20

  onhand <product> <qty> [warehouse]
      Replace the on-hand quantity
      Example: onhand BOLT 200

  plan [net|full]
      Replan changed products (default) or everything

  recs [product]
      List recommendations of the last run

  explode <bom-id> [qty]
      Show aggregated component requirements
      Example: explode B-BIKE 10

  critical <product> [qty] [top]
      Rank lead-time paths, discounting on-hand stock
      Example: critical BIKE 10 2

  status
      Show the last run and event counts

  events [limit]
      Show recent events (default: 10)

  help, h
      Show this help message

  quit, q, exit
      Exit the session`)
}
