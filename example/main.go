package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mfgplan/pkg/application/services/capacity"
	"github.com/vsinha/mfgplan/pkg/application/services/explosion"
	"github.com/vsinha/mfgplan/pkg/application/services/mrp"
	"github.com/vsinha/mfgplan/pkg/application/services/recommendation"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
	"github.com/vsinha/mfgplan/pkg/domain/services"
	"github.com/vsinha/mfgplan/pkg/infrastructure/cache/memorystore"
	"github.com/vsinha/mfgplan/pkg/infrastructure/config"
	"github.com/vsinha/mfgplan/pkg/infrastructure/events"
	"github.com/vsinha/mfgplan/pkg/infrastructure/logging"
	"github.com/vsinha/mfgplan/pkg/infrastructure/repositories/memory"
)

func main() {
	ctx := context.Background()

	logger, err := logging.New(config.LogConfig{Level: "warn", Format: "console"})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Create repositories
	products := memory.NewProductRepository(8)
	boms := memory.NewBOMRepository(4)
	units := memory.NewStandardUnitRepository()
	stock := memory.NewStockRepository()
	demand := memory.NewDemandRepository()
	plant := memory.NewCapacityRepository()
	runs := memory.NewRunRepository()

	baseDate := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	if err := setupRocketEngine(ctx, products, boms, stock, plant, baseDate); err != nil {
		log.Fatalf("Failed to set up rocket engine data: %v", err)
	}

	// Wire the planning services
	store := events.NewInMemoryEventStore(logger)
	converter := services.NewUnitConverter(units)
	engine := explosion.NewEngine(boms, products, converter, logger)
	explosions := explosion.NewService(engine, explosion.NewCache(memorystore.New(), explosion.CacheConfig{}, logger), logger)
	calendar := capacity.NewCalendar(plant, plant, plant, logger)
	if _, err := calendar.Generate(ctx, "TEST_STAND", baseDate, baseDate.AddDate(0, 0, 213), capacity.CalendarTemplate{}); err != nil {
		log.Fatalf("Failed to generate calendar: %v", err)
	}

	planner := mrp.NewMRPService(mrp.Dependencies{
		Products:        products,
		BOMs:            boms,
		Routings:        plant,
		Stock:           stock,
		Demand:          demand,
		Runs:            runs,
		Recommendations: runs,
		Converter:       converter,
		Explosions:      explosions,
		Capacity:        calendar,
		Events:          store,
	}, logger)
	ledger := recommendation.NewLedger(runs, store, logger)

	// Define demand for a rocket launch
	needDate := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	if err := demand.LoadDemands([]*entities.DemandLine{{
		ProductID:   "ROCKET_ENGINE",
		WarehouseID: "LAUNCH_PAD_39A",
		Quantity:    decimal.NewFromInt(9), // 9 engines for first stage
		DueDate:     needDate,
		SourceRef:   "MISSION_MARS_001",
	}}); err != nil {
		log.Fatalf("Failed to load demand: %v", err)
	}

	fmt.Println("🚀 Running MRP for Mars Mission...")
	fmt.Printf("Demand: 9 engines needed by %s\n", needDate.Format("2006-01-02"))
	fmt.Println()

	exploded, err := explosions.Explode(ctx, explosion.Request{
		BOMID:              "B-ROCKET_ENGINE",
		Quantity:           decimal.NewFromInt(9),
		ExplodeAllLevels:   true,
		AggregateByProduct: true,
	})
	if err != nil {
		log.Fatalf("Explosion failed: %v", err)
	}
	fmt.Printf("🧩 Components for 9 engines (%d levels):\n", exploded.MaxLevel)
	for _, total := range exploded.Totals {
		fmt.Printf("  %-20s %s %s\n", total.ProductID, total.TotalQuantity.String(), total.UnitCode)
	}
	fmt.Println()

	// Execute MRP
	run, err := planner.Run(ctx, mrp.RunConfig{
		HorizonStart: baseDate,
		HorizonEnd:   needDate.AddDate(0, 1, 0),
		Options:      entities.RunOptions{IncludeSafetyStock: true, RespectLeadTimes: true},
		CreatedBy:    "example",
	})
	if err != nil {
		fmt.Printf("❌ MRP failed: %v\n", err)
		return
	}

	recs, err := runs.FindRecommendations(ctx, repositories.RecommendationFilter{RunID: run.ID})
	if err != nil {
		log.Fatalf("Failed to load recommendations: %v", err)
	}

	// Display results
	fmt.Println("📊 MRP Results:")
	fmt.Printf("  Run: %s (%s)\n", run.RunCode, run.Status)
	fmt.Printf("  Products planned: %d\n", run.ProductsProcessed)
	fmt.Printf("  Recommendations: %d\n", len(recs))
	fmt.Println()

	if len(recs) > 0 {
		fmt.Println("📝 Recommendations:")
		for _, rec := range recs {
			fmt.Printf("  %s: %s %s (order by %s, need by %s)\n",
				rec.ProductID,
				rec.SuggestedQuantity.String(),
				rec.UnitCode,
				rec.SuggestedDate.Format("2006-01-02"),
				rec.RequiredByDate.Format("2006-01-02"))
			fmt.Printf("    Type: %s | Priority: %s\n", rec.Type, rec.Priority)
			if rec.IsUrgent {
				fmt.Printf("    ⚠️  %s\n", rec.UrgencyReason)
			}
		}
		fmt.Println()
	}

	if len(run.Warnings) > 0 {
		fmt.Println("🚨 Warnings:")
		for _, w := range run.Warnings {
			fmt.Printf("  %s: %s\n", w.ProductID, w.Message)
		}
		fmt.Println()
	}

	// Approve every purchase order
	var purchases []string
	for _, rec := range recs {
		if rec.Type == entities.PurchaseOrder {
			purchases = append(purchases, rec.ID)
		}
	}
	result := ledger.BulkApprove(ctx, purchases, "planner")
	fmt.Printf("✅ Approved %d of %d purchase orders\n", result.Succeeded, result.Requested)
}

func setupRocketEngine(
	ctx context.Context,
	products *memory.ProductRepository,
	boms *memory.BOMRepository,
	stock *memory.StockRepository,
	plant *memory.CapacityRepository,
	baseDate time.Time,
) error {
	type item struct {
		id, name, unit string
		leadTime       int
		made           bool
		rule           entities.LotSizeRule
		minQty         int64
		safety         int64
	}
	items := []item{
		{"ROCKET_ENGINE", "Main Rocket Engine Assembly", "pcs", 0, true, entities.LotForLot, 0, 0},
		{"TURBOPUMP_V3", "Turbopump Assembly V3", "pcs", 60, false, entities.LotForLot, 0, 0},
		{"COMBUSTION_CHAMBER", "Main Combustion Chamber", "pcs", 90, false, entities.LotForLot, 0, 0},
		{"VALVE_ASSEMBLY", "Main Valve Assembly", "pcs", 45, false, entities.MinimumQty, 10, 5},
		{"SEAL_COMPOUND", "High Temperature Seal Compound", "kg", 14, false, entities.StandardPack, 5, 0},
	}

	var list []*entities.Product
	for _, it := range items {
		p, err := entities.NewProduct(it.id, it.name, it.unit, it.leadTime)
		if err != nil {
			return err
		}
		p.CanBeManufactured = it.made
		p.CanBePurchased = !it.made
		p.LotSizeRule = it.rule
		p.MinOrderQty = decimal.NewFromInt(it.minQty)
		p.SafetyStock = decimal.NewFromInt(it.safety)
		p.DefaultWarehouseID = "LAUNCH_PAD_39A"
		list = append(list, p)
	}
	if err := products.LoadProducts(list); err != nil {
		return err
	}

	bom, err := entities.NewBillOfMaterials("B-ROCKET_ENGINE", "ROCKET_ENGINE", decimal.NewFromInt(1), "pcs")
	if err != nil {
		return err
	}
	if err := bom.Activate(); err != nil {
		return err
	}
	bom.IsDefault = true

	var lines []*entities.BOMLine
	for i, l := range []struct {
		component, qty, unit string
	}{
		{"TURBOPUMP_V3", "2", "pcs"}, // 2 turbopumps per engine
		{"COMBUSTION_CHAMBER", "1", "pcs"},
		{"VALVE_ASSEMBLY", "4", "pcs"}, // 4 valves per engine
		{"SEAL_COMPOUND", "750", "g"},
	} {
		line, err := entities.NewBOMLine("BL-"+l.component, bom.ID, l.component, decimal.RequireFromString(l.qty), l.unit)
		if err != nil {
			return err
		}
		line.Sequence = (i + 1) * 100
		lines = append(lines, line)
	}
	if err := boms.LoadBOMs([]*entities.BillOfMaterials{bom}, lines); err != nil {
		return err
	}

	// Every engine goes through a hot fire test
	stand, err := entities.NewWorkCenter("TEST_STAND", "Hot Fire Test Stand", decimal.NewFromInt(16))
	if err != nil {
		return err
	}
	if err := plant.SaveWorkCenter(ctx, stand); err != nil {
		return err
	}
	plant.SaveRouting(entities.Routing{
		ProductID:    "ROCKET_ENGINE",
		LeadTimeDays: 10,
		Operations: []entities.RoutingOperation{
			{Sequence: 10, WorkCenterID: "TEST_STAND", SetupHours: decimal.NewFromInt(4), RunHoursPerUnit: decimal.NewFromInt(6)},
		},
	})

	// Have 2 engines and some valves in stock
	stock.SetOnHand("ROCKET_ENGINE", "LAUNCH_PAD_39A", decimal.NewFromInt(2))
	stock.SetOnHand("VALVE_ASSEMBLY", "LAUNCH_PAD_39A", decimal.NewFromInt(15))
	stock.AddReceipt(memory.Receipt{
		ProductID:   "TURBOPUMP_V3",
		WarehouseID: "LAUNCH_PAD_39A",
		Quantity:    decimal.NewFromInt(4),
		DueDate:     baseDate.AddDate(0, 2, 0),
	})
	return nil
}
