package commands

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/infrastructure/repositories/csv"
)

// sharing can push parts a level or two below MaxDepth; explosions stop at 10
const maxGeneratedDepth = 8

// GenerateConfig holds configuration for scenario generation
type GenerateConfig struct {
	Products    int       // Total number of products to generate
	MaxDepth    int       // Maximum depth of BOM tree
	Demands     int       // Number of top-level demand lines
	Inventory   float64   // Inventory multiplier (e.g., 0.5 = half coverage, 4.0 = 4x coverage)
	WorkCenters int       // Number of work centers routing made products
	StartDate   time.Time // First possible demand date; defaults to today
	OutputDir   string    // Output directory for generated files
	Seed        int64     // Random seed for reproducible generation
	Help        bool
	Verbose     bool
	Out         io.Writer
}

// GenerateCommand writes a random but consistent scenario directory
type GenerateCommand struct {
	config GenerateConfig
	rand   *rand.Rand
}

// NewGenerateCommand creates a new generate command
func NewGenerateCommand(config GenerateConfig) *GenerateCommand {
	if config.Seed == 0 {
		config.Seed = time.Now().UnixNano()
	}
	if config.WorkCenters <= 0 {
		config.WorkCenters = 3
	}
	if config.StartDate.IsZero() {
		config.StartDate = time.Now()
	}
	config.StartDate = entities.DateOnly(config.StartDate)
	if config.Out == nil {
		config.Out = os.Stdout
	}
	return &GenerateCommand{
		config: config,
		rand:   rand.New(rand.NewSource(config.Seed)),
	}
}

// bomNode is one product in the generated structure
type bomNode struct {
	ProductID string
	Level     int
	Children  []*bomEdge
	Parents   []*bomNode
	IsRoot    bool
	IsShared  bool
	// Mass parts are stocked in kg and drawn in grams
	Mass bool
}

// bomEdge is a parent-to-child usage with its quantity per parent
type bomEdge struct {
	Child *bomNode
	Qty   int
}

func (n *bomNode) hasChild(id string) bool {
	for _, e := range n.Children {
		if e.Child.ProductID == id {
			return true
		}
	}
	return false
}

// Execute runs the generate command
func (cmd *GenerateCommand) Execute(ctx context.Context) error {
	if cmd.config.Help {
		cmd.printHelp()
		return nil
	}
	if err := cmd.validate(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	w := cmd.config.Out
	if cmd.config.Verbose {
		fmt.Fprintf(w, "🔧 Generating scenario with %d products, max depth %d, %d demands, %.1fx inventory\n",
			cmd.config.Products, cmd.config.MaxDepth, cmd.config.Demands, cmd.config.Inventory)
		fmt.Fprintf(w, "📁 Output directory: %s\n", cmd.config.OutputDir)
		fmt.Fprintf(w, "🎲 Random seed: %d\n", cmd.config.Seed)
		fmt.Fprintln(w, "🌳 Generating BOM tree structure...")
	}

	nodes := cmd.generateBOMTree()
	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if node := nodes[id]; len(node.Children) == 0 {
			node.Mass = cmd.rand.Float64() < 0.1
		}
	}

	ds := &csv.Dataset{}
	ds.WorkCenters = cmd.generateWorkCenters()
	for _, id := range ids {
		node := nodes[id]
		product, err := cmd.generateProduct(node)
		if err != nil {
			return fmt.Errorf("failed to generate product %s: %w", id, err)
		}
		ds.Products = append(ds.Products, product)

		if len(node.Children) == 0 {
			continue
		}
		bom, lines, err := cmd.generateBOM(node)
		if err != nil {
			return fmt.Errorf("failed to generate BOM for %s: %w", id, err)
		}
		ds.BOMs = append(ds.BOMs, bom)
		ds.BOMLines = append(ds.BOMLines, lines...)
		ds.Routings = append(ds.Routings, cmd.generateRouting(product, ds.WorkCenters))
	}
	ds.Demands = cmd.generateDemands(nodes)
	ds.Stock = cmd.generateStock(nodes)

	if cmd.config.Verbose {
		fmt.Fprintf(w, "📦 %d products, %d BOMs, %d lines, %d demands, %d stock rows\n",
			len(ds.Products), len(ds.BOMs), len(ds.BOMLines), len(ds.Demands), len(ds.Stock))
	}
	if err := csv.WriteScenario(cmd.config.OutputDir, ds); err != nil {
		return err
	}
	if cmd.config.Verbose {
		fmt.Fprintf(w, "✅ Scenario generated successfully in %s\n", cmd.config.OutputDir)
	}
	return nil
}

func (cmd *GenerateCommand) validate() error {
	switch {
	case cmd.config.Products < 2:
		return fmt.Errorf("products must be at least 2")
	case cmd.config.MaxDepth < 1 || cmd.config.MaxDepth > maxGeneratedDepth:
		return fmt.Errorf("max depth must be between 1 and %d", maxGeneratedDepth)
	case cmd.config.Demands < 1:
		return fmt.Errorf("demands must be at least 1")
	case cmd.config.Inventory < 0:
		return fmt.Errorf("inventory multiplier cannot be negative")
	case cmd.config.OutputDir == "":
		return fmt.Errorf("output directory is required")
	}
	return nil
}

// generateBOMTree creates a layered structure with shared components. Parts
// are only shared when that cannot close a cycle.
func (cmd *GenerateCommand) generateBOMTree() map[string]*bomNode {
	nodes := make(map[string]*bomNode)
	var roots []*bomNode

	// about 2% of products are top-level assemblies
	numRoots := max(1, cmd.config.Products/50+cmd.rand.Intn(3))
	numRoots = min(numRoots, cmd.config.Products-1)
	for i := 0; i < numRoots; i++ {
		node := &bomNode{ProductID: fmt.Sprintf("ASSY-%03d", i+1), IsRoot: true}
		nodes[node.ProductID] = node
		roots = append(roots, node)
	}
	generated := numRoots

	currentLevel := roots
	level := 0
	for level < cmd.config.MaxDepth && generated < cmd.config.Products {
		level++
		var nextLevel []*bomNode

		for _, parent := range currentLevel {
			numChildren := 2 + cmd.rand.Intn(7)
			for c := 0; c < numChildren && generated < cmd.config.Products; c++ {
				var child *bomNode
				if level > 1 && cmd.rand.Float64() < 0.2 {
					candidates := cmd.findShareableParts(nodes, level, parent)
					if len(candidates) > 0 {
						child = candidates[cmd.rand.Intn(len(candidates))]
						child.IsShared = true
					}
				}
				if child == nil {
					child = &bomNode{ProductID: fmt.Sprintf("PART-L%d-%04d", level, generated), Level: level}
					nodes[child.ProductID] = child
					nextLevel = append(nextLevel, child)
					generated++
				}

				qty := 1 + cmd.rand.Intn(5)
				if level > 2 {
					qty += cmd.rand.Intn(5)
				}
				parent.Children = append(parent.Children, &bomEdge{Child: child, Qty: qty})
				child.Parents = append(child.Parents, parent)
			}
		}

		if len(nextLevel) == 0 {
			break
		}
		currentLevel = nextLevel
	}

	// leftovers become purchased components of the deepest level, unless
	// that would exceed the depth limit
	attachLevel := currentLevel
	if level >= cmd.config.MaxDepth {
		attachLevel = parentsOf(currentLevel)
		if len(attachLevel) == 0 {
			attachLevel = roots
		}
	}
	for generated < cmd.config.Products {
		parent := attachLevel[cmd.rand.Intn(len(attachLevel))]
		node := &bomNode{ProductID: fmt.Sprintf("COMP-%04d", generated), Level: parent.Level + 1}
		nodes[node.ProductID] = node
		parent.Children = append(parent.Children, &bomEdge{Child: node, Qty: 1 + cmd.rand.Intn(10)})
		node.Parents = append(node.Parents, parent)
		generated++
	}

	return nodes
}

func parentsOf(level []*bomNode) []*bomNode {
	seen := make(map[string]bool)
	var parents []*bomNode
	for _, n := range level {
		for _, p := range n.Parents {
			if !seen[p.ProductID] {
				seen[p.ProductID] = true
				parents = append(parents, p)
			}
		}
	}
	sort.Slice(parents, func(i, j int) bool { return parents[i].ProductID < parents[j].ProductID })
	return parents
}

// findShareableParts lists existing parts parent may reuse, sorted so a seed
// always yields the same scenario
func (cmd *GenerateCommand) findShareableParts(nodes map[string]*bomNode, level int, parent *bomNode) []*bomNode {
	var candidates []*bomNode
	for _, node := range nodes {
		if node.IsRoot || node == parent || node.Level < level-1 || len(node.Parents) >= 3 {
			continue
		}
		if parent.hasChild(node.ProductID) || isAncestor(node, parent) {
			continue
		}
		candidates = append(candidates, node)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ProductID < candidates[j].ProductID })
	return candidates
}

// isAncestor reports whether candidate appears above node
func isAncestor(candidate, node *bomNode) bool {
	visited := make(map[string]bool)
	var walk func(n *bomNode) bool
	walk = func(n *bomNode) bool {
		if visited[n.ProductID] {
			return false
		}
		visited[n.ProductID] = true
		for _, p := range n.Parents {
			if p.ProductID == candidate.ProductID || walk(p) {
				return true
			}
		}
		return false
	}
	return walk(node)
}

func (cmd *GenerateCommand) generateProduct(node *bomNode) (*entities.Product, error) {
	unit := "pcs"
	if node.Mass {
		unit = "kg"
	}
	product, err := entities.NewProduct(node.ProductID, cmd.generateDescription(node), unit, cmd.generateLeadTime(node))
	if err != nil {
		return nil, err
	}
	product.CanBeManufactured = len(node.Children) > 0
	product.CanBePurchased = !product.CanBeManufactured
	product.DefaultWarehouseID = "MAIN"
	if node.IsShared {
		product.CategoryID = "shared"
	}

	rule, minQty, safety := cmd.generateLotSizing(node)
	product.LotSizeRule = rule
	product.MinOrderQty = decimal.NewFromInt(int64(minQty))
	product.SafetyStock = decimal.NewFromInt(int64(safety))
	return product, product.Validate()
}

func (cmd *GenerateCommand) generateDescription(node *bomNode) string {
	if node.IsRoot {
		return fmt.Sprintf("%s Complete Assembly", node.ProductID)
	}
	if len(node.Children) > 0 {
		return fmt.Sprintf("%s Subassembly", node.ProductID)
	}
	componentTypes := []string{"Component", "Bracket", "Fastener", "Casting", "Harness", "Seal"}
	return fmt.Sprintf("%s %s", node.ProductID, componentTypes[cmd.rand.Intn(len(componentTypes))])
}

// generateLeadTime keeps cumulative lead time inside a quarter-long horizon
func (cmd *GenerateCommand) generateLeadTime(node *bomNode) int {
	switch {
	case node.IsRoot:
		return 3 + cmd.rand.Intn(5)
	case len(node.Children) > 0:
		return 2 + cmd.rand.Intn(4)
	default:
		return 1 + cmd.rand.Intn(10)
	}
}

func (cmd *GenerateCommand) generateLotSizing(node *bomNode) (entities.LotSizeRule, int, int) {
	if node.IsRoot || len(node.Children) > 0 {
		return entities.LotForLot, 0, 0
	}
	roll := cmd.rand.Float64()
	switch {
	case roll < 0.6:
		return entities.LotForLot, 0, cmd.rand.Intn(3)
	case roll < 0.8:
		return entities.MinimumQty, 5 + cmd.rand.Intn(15), cmd.rand.Intn(5)
	default:
		pack := 10 + cmd.rand.Intn(90)
		return entities.StandardPack, pack, pack / 10
	}
}

func (cmd *GenerateCommand) generateBOM(node *bomNode) (*entities.BillOfMaterials, []*entities.BOMLine, error) {
	bomID := "B-" + node.ProductID
	bom, err := entities.NewBillOfMaterials(bomID, node.ProductID, decimal.NewFromInt(1), "pcs")
	if err != nil {
		return nil, nil, err
	}
	bom.Version = "v1"
	bom.Status = entities.BOMStatusActive
	bom.IsDefault = true

	lines := make([]*entities.BOMLine, 0, len(node.Children))
	for i, edge := range node.Children {
		qty := decimal.NewFromInt(int64(edge.Qty))
		unit := "pcs"
		if len(edge.Child.Children) == 0 && cmd.rand.Float64() < 0.1 {
			unit = "ea"
		}
		if edge.Child.Mass {
			unit = "g"
			qty = decimal.NewFromInt(int64(edge.Qty * 250))
		}
		line, err := entities.NewBOMLine(fmt.Sprintf("%s-%03d", bomID, (i+1)*10), bomID, edge.Child.ProductID, qty, unit)
		if err != nil {
			return nil, nil, err
		}
		line.Sequence = (i + 1) * 10
		if len(edge.Child.Children) == 0 && cmd.rand.Float64() < 0.3 {
			line.ScrapPercentage = decimal.NewFromInt(int64(1 + cmd.rand.Intn(5)))
		}
		lines = append(lines, line)
	}
	return bom, lines, nil
}

func (cmd *GenerateCommand) generateWorkCenters() []*entities.WorkCenter {
	wcs := make([]*entities.WorkCenter, 0, cmd.config.WorkCenters)
	for i := 0; i < cmd.config.WorkCenters; i++ {
		hours := decimal.NewFromInt(int64(8 * (1 + cmd.rand.Intn(2))))
		wc, _ := entities.NewWorkCenter(fmt.Sprintf("WC-%02d", i+1), fmt.Sprintf("Work center %d", i+1), hours)
		wc.CostPerHour = decimal.NewFromInt(int64(30 + cmd.rand.Intn(40)))
		wcs = append(wcs, wc)
	}
	return wcs
}

func (cmd *GenerateCommand) generateRouting(product *entities.Product, wcs []*entities.WorkCenter) *entities.Routing {
	wc := wcs[cmd.rand.Intn(len(wcs))]
	return &entities.Routing{
		ProductID:    product.ID,
		LeadTimeDays: product.LeadTimeDays,
		Operations: []entities.RoutingOperation{{
			Sequence:        10,
			WorkCenterID:    wc.ID,
			SetupHours:      decimal.New(int64(5*(1+cmd.rand.Intn(4))), -1),
			RunHoursPerUnit: decimal.New(int64(1+cmd.rand.Intn(10)), -1),
		}},
	}
}

func (cmd *GenerateCommand) generateDemands(nodes map[string]*bomNode) []*entities.DemandLine {
	var roots []*bomNode
	for _, node := range nodes {
		if node.IsRoot {
			roots = append(roots, node)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].ProductID < roots[j].ProductID })

	demands := make([]*entities.DemandLine, 0, cmd.config.Demands)
	for i := 0; i < cmd.config.Demands; i++ {
		root := roots[cmd.rand.Intn(len(roots))]
		demands = append(demands, &entities.DemandLine{
			ProductID:   root.ProductID,
			WarehouseID: "MAIN",
			Quantity:    decimal.NewFromInt(int64(1 + cmd.rand.Intn(5))),
			DueDate:     cmd.config.StartDate.AddDate(0, 0, 14+cmd.rand.Intn(76)),
			SourceRef:   fmt.Sprintf("SO-%04d", i+1),
		})
	}
	return demands
}

// generateStock covers one root's requirements times the inventory multiplier
func (cmd *GenerateCommand) generateStock(nodes map[string]*bomNode) []csv.StockRecord {
	counts := cmd.calculatePartCounts(nodes)
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var stock []csv.StockRecord
	for _, id := range ids {
		qty := int(float64(counts[id]) * cmd.config.Inventory)
		if qty <= 0 {
			continue
		}
		rec := csv.StockRecord{ProductID: id, WarehouseID: "MAIN", Type: csv.StockOnHand, Quantity: decimal.NewFromInt(int64(qty))}
		// a quarter of purchased stock is still on order
		if len(nodes[id].Children) == 0 && cmd.rand.Float64() < 0.25 {
			rec.Type = csv.StockReceipt
			rec.DueDate = cmd.config.StartDate.AddDate(0, 0, 1+cmd.rand.Intn(20))
		}
		stock = append(stock, rec)
	}
	return stock
}

// calculatePartCounts totals the first root's requirement for every part
// below it. Each node's count is memoized so shared parts stay linear.
func (cmd *GenerateCommand) calculatePartCounts(nodes map[string]*bomNode) map[string]int {
	var root *bomNode
	for _, node := range nodes {
		if node.IsRoot && (root == nil || node.ProductID < root.ProductID) {
			root = node
		}
	}
	if root == nil {
		return map[string]int{}
	}

	memo := map[string]int{root.ProductID: 1}
	var need func(n *bomNode) int
	need = func(n *bomNode) int {
		if v, ok := memo[n.ProductID]; ok {
			return v
		}
		total := 0
		for _, parent := range n.Parents {
			for _, edge := range parent.Children {
				if edge.Child == n {
					total += need(parent) * edge.Qty
				}
			}
		}
		memo[n.ProductID] = total
		return total
	}

	counts := make(map[string]int)
	for id, node := range nodes {
		if qty := need(node); qty > 0 {
			counts[id] = qty
		}
	}
	return counts
}

func (cmd *GenerateCommand) printHelp() {
	fmt.Fprintln(cmd.config.Out, `MRP Scenario Generator

USAGE:
    mrp generate [OPTIONS]

OPTIONS:
    -products <N>       Number of products to generate (required)
    -max-depth <N>      Maximum depth of BOM tree (required)
    -demands <N>        Number of demand lines to generate (required)
    -inventory <F>      Inventory multiplier (e.g., 0.5 = half coverage, 4.0 = 4x coverage)
    -work-centers <N>   Number of work centers (default: 3)
    -start <date>       Earliest demand date base YYYY-MM-DD (default: today)
    -output <DIR>       Output directory for generated files (required)
    -seed <N>           Random seed for reproducible generation (optional)
    -verbose            Enable verbose output
    -help               Show this help message

EXAMPLES:
    # Generate small test scenario
    mrp generate -products 100 -max-depth 5 -demands 10 -inventory 0.5 -output ./test_scenario

    # Generate large performance test scenario
    mrp generate -products 30000 -max-depth 8 -demands 50 -inventory 1.2 -output ./large_scenario -verbose

    # Generate reproducible scenario
    mrp generate -products 1000 -max-depth 6 -demands 20 -inventory 0.8 -output ./repro_scenario -seed 12345`)
}
