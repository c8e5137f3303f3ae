package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

const dateLayout = "2006-01-02"

// Stock record types
const (
	StockOnHand  = "on_hand"
	StockWIP     = "wip"
	StockReceipt = "receipt"
)

// StockRecord is one row of stock.csv
type StockRecord struct {
	ProductID   string
	WarehouseID string
	Type        string
	Quantity    decimal.Decimal
	DueDate     time.Time
}

// Loader handles loading planning data from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

var (
	productsHeader    = []string{"product_id", "name", "unit", "category", "make_or_buy", "lead_time_days", "safety_stock", "reorder_point", "reorder_qty", "lot_size_rule", "min_order_qty", "warehouse"}
	bomsHeader        = []string{"bom_id", "product_id", "version", "base_qty", "unit", "status", "is_default", "effective_from", "expires_at"}
	bomLinesHeader    = []string{"line_id", "bom_id", "component_id", "sequence", "qty_per", "unit", "scrap_pct", "optional", "phantom"}
	demandsHeader     = []string{"product_id", "warehouse", "quantity", "due_date", "source_ref"}
	stockHeader       = []string{"product_id", "warehouse", "type", "quantity", "due_date"}
	workCentersHeader = []string{"work_center_id", "name", "capacity_per_day", "efficiency", "cost_per_hour"}
	routingsHeader    = []string{"product_id", "lead_time_days", "sequence", "work_center_id", "setup_hours", "run_hours_per_unit"}
)

// LoadProducts loads products from a CSV file
func (l *Loader) LoadProducts(filename string) ([]*entities.Product, error) {
	records, err := readRecords(filename, "products", productsHeader)
	if err != nil {
		return nil, err
	}

	var products []*entities.Product
	for i, record := range records {
		product, err := parseProduct(record)
		if err != nil {
			return nil, fmt.Errorf("products CSV row %d: %w", i+2, err)
		}
		products = append(products, product)
	}
	return products, nil
}

// LoadBOMs loads BOM headers from a CSV file
func (l *Loader) LoadBOMs(filename string) ([]*entities.BillOfMaterials, error) {
	records, err := readRecords(filename, "boms", bomsHeader)
	if err != nil {
		return nil, err
	}

	var boms []*entities.BillOfMaterials
	for i, record := range records {
		bom, err := parseBOM(record)
		if err != nil {
			return nil, fmt.Errorf("boms CSV row %d: %w", i+2, err)
		}
		boms = append(boms, bom)
	}
	return boms, nil
}

// LoadBOMLines loads BOM lines from a CSV file
func (l *Loader) LoadBOMLines(filename string) ([]*entities.BOMLine, error) {
	records, err := readRecords(filename, "bom lines", bomLinesHeader)
	if err != nil {
		return nil, err
	}

	var lines []*entities.BOMLine
	for i, record := range records {
		line, err := parseBOMLine(record)
		if err != nil {
			return nil, fmt.Errorf("bom lines CSV row %d: %w", i+2, err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// LoadDemands loads confirmed demand lines from a CSV file
func (l *Loader) LoadDemands(filename string) ([]*entities.DemandLine, error) {
	records, err := readRecords(filename, "demands", demandsHeader)
	if err != nil {
		return nil, err
	}

	var demands []*entities.DemandLine
	for i, record := range records {
		quantity, err := parseDecimal("quantity", record[2])
		if err != nil {
			return nil, fmt.Errorf("demands CSV row %d: %w", i+2, err)
		}
		dueDate, err := time.Parse(dateLayout, record[3])
		if err != nil {
			return nil, fmt.Errorf("invalid due_date format in row %d: %s (expected YYYY-MM-DD)", i+2, record[3])
		}
		demands = append(demands, &entities.DemandLine{
			ProductID:   record[0],
			WarehouseID: record[1],
			Quantity:    quantity,
			DueDate:     dueDate,
			SourceRef:   record[4],
		})
	}
	return demands, nil
}

// LoadStock loads on-hand, WIP and open receipt rows from a CSV file
func (l *Loader) LoadStock(filename string) ([]StockRecord, error) {
	records, err := readRecords(filename, "stock", stockHeader)
	if err != nil {
		return nil, err
	}

	var stock []StockRecord
	for i, record := range records {
		quantity, err := parseDecimal("quantity", record[3])
		if err != nil {
			return nil, fmt.Errorf("stock CSV row %d: %w", i+2, err)
		}
		rec := StockRecord{
			ProductID:   record[0],
			WarehouseID: record[1],
			Type:        strings.ToLower(record[2]),
			Quantity:    quantity,
		}
		switch rec.Type {
		case StockOnHand, StockWIP:
		case StockReceipt:
			rec.DueDate, err = time.Parse(dateLayout, record[4])
			if err != nil {
				return nil, fmt.Errorf("invalid due_date format in row %d: %s (expected YYYY-MM-DD)", i+2, record[4])
			}
		default:
			return nil, fmt.Errorf("invalid stock type in row %d: %s (expected 'on_hand', 'wip' or 'receipt')", i+2, record[2])
		}
		stock = append(stock, rec)
	}
	return stock, nil
}

// LoadWorkCenters loads work centers from a CSV file
func (l *Loader) LoadWorkCenters(filename string) ([]*entities.WorkCenter, error) {
	records, err := readRecords(filename, "work centers", workCentersHeader)
	if err != nil {
		return nil, err
	}

	var wcs []*entities.WorkCenter
	for i, record := range records {
		capacity, err := parseDecimal("capacity_per_day", record[2])
		if err != nil {
			return nil, fmt.Errorf("work centers CSV row %d: %w", i+2, err)
		}
		wc, err := entities.NewWorkCenter(record[0], record[1], capacity)
		if err != nil {
			return nil, fmt.Errorf("work centers CSV row %d: %w", i+2, err)
		}
		if record[3] != "" {
			if wc.Efficiency, err = parseDecimal("efficiency", record[3]); err != nil {
				return nil, fmt.Errorf("work centers CSV row %d: %w", i+2, err)
			}
		}
		if wc.CostPerHour, err = parseDecimal("cost_per_hour", record[4]); err != nil {
			return nil, fmt.Errorf("work centers CSV row %d: %w", i+2, err)
		}
		wcs = append(wcs, wc)
	}
	return wcs, nil
}

// LoadRoutings loads routings from a CSV file, one row per operation
func (l *Loader) LoadRoutings(filename string) ([]*entities.Routing, error) {
	records, err := readRecords(filename, "routings", routingsHeader)
	if err != nil {
		return nil, err
	}

	byProduct := make(map[string]*entities.Routing)
	var routings []*entities.Routing
	for i, record := range records {
		leadTime, err := strconv.Atoi(record[1])
		if err != nil {
			return nil, fmt.Errorf("invalid lead_time_days in row %d: %s", i+2, record[1])
		}
		sequence, err := strconv.Atoi(record[2])
		if err != nil {
			return nil, fmt.Errorf("invalid sequence in row %d: %s", i+2, record[2])
		}
		setup, err := parseDecimal("setup_hours", record[4])
		if err != nil {
			return nil, fmt.Errorf("routings CSV row %d: %w", i+2, err)
		}
		run, err := parseDecimal("run_hours_per_unit", record[5])
		if err != nil {
			return nil, fmt.Errorf("routings CSV row %d: %w", i+2, err)
		}

		routing, ok := byProduct[record[0]]
		if !ok {
			routing = &entities.Routing{ProductID: record[0], LeadTimeDays: leadTime}
			byProduct[record[0]] = routing
			routings = append(routings, routing)
		} else if routing.LeadTimeDays != leadTime {
			return nil, fmt.Errorf("routings CSV row %d: lead time %d conflicts with %d for %s", i+2, leadTime, routing.LeadTimeDays, record[0])
		}
		routing.Operations = append(routing.Operations, entities.RoutingOperation{
			Sequence:        sequence,
			WorkCenterID:    record[3],
			SetupHours:      setup,
			RunHoursPerUnit: run,
		})
	}
	return routings, nil
}

// Helper functions for parsing CSV records

// readRecords returns the data rows of a file after checking its header and
// column counts. A header-only file yields no rows.
func readRecords(filename, kind string, expectedHeader []string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}

	if len(records) < 1 {
		return nil, fmt.Errorf("%s CSV must have a header row", kind)
	}

	header := records[0]
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", kind, expectedHeader, header)
	}

	rows := records[1:]
	for i, record := range rows {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("%s CSV row %d: expected %d columns, got %d", kind, i+2, len(expectedHeader), len(record))
		}
		for j := range record {
			record[j] = strings.TrimSpace(record[j])
		}
	}
	return rows, nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}

	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}

	return true
}

func parseProduct(record []string) (*entities.Product, error) {
	leadTimeDays, err := strconv.Atoi(record[5])
	if err != nil {
		return nil, fmt.Errorf("invalid lead_time_days: %s", record[5])
	}
	product, err := entities.NewProduct(record[0], record[1], record[2], leadTimeDays)
	if err != nil {
		return nil, err
	}
	product.CategoryID = record[3]

	switch entities.MakeOrBuy(strings.ToLower(record[4])) {
	case entities.MakeOrBuyMake:
		product.CanBeManufactured = true
		product.CanBePurchased = false
	case entities.MakeOrBuyBuy:
		product.CanBeManufactured = false
		product.CanBePurchased = true
	default:
		return nil, fmt.Errorf("invalid make_or_buy: %s (expected: make or buy)", record[4])
	}

	if product.SafetyStock, err = parseDecimal("safety_stock", record[6]); err != nil {
		return nil, err
	}
	if product.ReorderPoint, err = parseDecimal("reorder_point", record[7]); err != nil {
		return nil, err
	}
	if product.ReorderQuantity, err = parseDecimal("reorder_qty", record[8]); err != nil {
		return nil, err
	}
	if product.LotSizeRule, err = entities.ParseLotSizeRule(record[9]); err != nil {
		return nil, err
	}
	if product.MinOrderQty, err = parseDecimal("min_order_qty", record[10]); err != nil {
		return nil, err
	}
	product.DefaultWarehouseID = record[11]

	if err := product.Validate(); err != nil {
		return nil, err
	}
	return product, nil
}

func parseBOM(record []string) (*entities.BillOfMaterials, error) {
	baseQty, err := parseDecimal("base_qty", record[3])
	if err != nil {
		return nil, err
	}
	bom, err := entities.NewBillOfMaterials(record[0], record[1], baseQty, record[4])
	if err != nil {
		return nil, err
	}
	bom.Version = record[2]

	switch entities.BOMStatus(strings.ToLower(record[5])) {
	case entities.BOMStatusDraft, "":
	case entities.BOMStatusActive:
		bom.Status = entities.BOMStatusActive
	case entities.BOMStatusObsolete:
		bom.Status = entities.BOMStatusObsolete
	default:
		return nil, fmt.Errorf("invalid status: %s (expected: draft, active or obsolete)", record[5])
	}

	if bom.IsDefault, err = parseBool("is_default", record[6]); err != nil {
		return nil, err
	}
	if bom.EffectiveFrom, err = parseOptionalDate("effective_from", record[7]); err != nil {
		return nil, err
	}
	if bom.ExpiresAt, err = parseOptionalDate("expires_at", record[8]); err != nil {
		return nil, err
	}
	return bom, nil
}

func parseBOMLine(record []string) (*entities.BOMLine, error) {
	sequence, err := strconv.Atoi(record[3])
	if err != nil {
		return nil, fmt.Errorf("invalid sequence: %s", record[3])
	}
	qtyPer, err := parseDecimal("qty_per", record[4])
	if err != nil {
		return nil, err
	}
	line, err := entities.NewBOMLine(record[0], record[1], record[2], qtyPer, record[5])
	if err != nil {
		return nil, err
	}
	line.Sequence = sequence

	if line.ScrapPercentage, err = parseDecimal("scrap_pct", record[6]); err != nil {
		return nil, err
	}
	if line.IsOptional, err = parseBool("optional", record[7]); err != nil {
		return nil, err
	}
	if line.IsPhantom, err = parseBool("phantom", record[8]); err != nil {
		return nil, err
	}
	if err := line.Validate(); err != nil {
		return nil, err
	}
	return line, nil
}

// parseDecimal treats an empty cell as zero
func parseDecimal(column, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %s", column, s)
	}
	return d, nil
}

func parseBool(column, s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %s (expected true or false)", column, s)
	}
	return b, nil
}

func parseOptionalDate(column, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s format: %s (expected YYYY-MM-DD)", column, s)
	}
	return &t, nil
}
