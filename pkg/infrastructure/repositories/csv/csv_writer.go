package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

// WriteScenario writes ds as a scenario directory LoadScenario can read.
// Optional files are written only when ds has rows for them.
func WriteScenario(dir string, ds *Dataset) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create scenario directory: %w", err)
	}

	files := []struct {
		name     string
		header   []string
		rows     [][]string
		optional bool
	}{
		{ProductsFile, productsHeader, productRows(ds.Products), false},
		{BOMsFile, bomsHeader, bomRows(ds.BOMs), false},
		{BOMLinesFile, bomLinesHeader, bomLineRows(ds.BOMLines), false},
		{DemandsFile, demandsHeader, demandRows(ds.Demands), false},
		{StockFile, stockHeader, stockRows(ds.Stock), true},
		{WorkCentersFile, workCentersHeader, workCenterRows(ds.WorkCenters), true},
		{RoutingsFile, routingsHeader, routingRows(ds.Routings), true},
	}
	for _, f := range files {
		if f.optional && len(f.rows) == 0 {
			continue
		}
		if err := writeRecords(filepath.Join(dir, f.name), f.header, f.rows); err != nil {
			return err
		}
	}
	return nil
}

func writeRecords(path string, header []string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func productRows(products []*entities.Product) [][]string {
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		makeOrBuy := entities.MakeOrBuyBuy
		if p.CanBeManufactured {
			makeOrBuy = entities.MakeOrBuyMake
		}
		rows = append(rows, []string{
			p.ID,
			p.Name,
			p.UnitCode,
			p.CategoryID,
			string(makeOrBuy),
			strconv.Itoa(p.LeadTimeDays),
			p.SafetyStock.String(),
			p.ReorderPoint.String(),
			p.ReorderQuantity.String(),
			p.LotSizeRule.String(),
			p.MinOrderQty.String(),
			p.DefaultWarehouseID,
		})
	}
	return rows
}

func bomRows(boms []*entities.BillOfMaterials) [][]string {
	rows := make([][]string, 0, len(boms))
	for _, b := range boms {
		rows = append(rows, []string{
			b.ID,
			b.ProductID,
			b.Version,
			b.BaseQuantity.String(),
			b.UnitCode,
			string(b.Status),
			strconv.FormatBool(b.IsDefault),
			formatDate(b.EffectiveFrom),
			formatDate(b.ExpiresAt),
		})
	}
	return rows
}

func bomLineRows(lines []*entities.BOMLine) [][]string {
	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		rows = append(rows, []string{
			l.ID,
			l.BOMID,
			l.ComponentID,
			strconv.Itoa(l.Sequence),
			l.QuantityPerUnit.String(),
			l.UnitCode,
			l.ScrapPercentage.String(),
			strconv.FormatBool(l.IsOptional),
			strconv.FormatBool(l.IsPhantom),
		})
	}
	return rows
}

func demandRows(demands []*entities.DemandLine) [][]string {
	rows := make([][]string, 0, len(demands))
	for _, d := range demands {
		rows = append(rows, []string{
			d.ProductID,
			d.WarehouseID,
			d.Quantity.String(),
			d.DueDate.Format(dateLayout),
			d.SourceRef,
		})
	}
	return rows
}

func stockRows(stock []StockRecord) [][]string {
	rows := make([][]string, 0, len(stock))
	for _, s := range stock {
		due := ""
		if s.Type == StockReceipt {
			due = s.DueDate.Format(dateLayout)
		}
		rows = append(rows, []string{s.ProductID, s.WarehouseID, s.Type, s.Quantity.String(), due})
	}
	return rows
}

func workCenterRows(wcs []*entities.WorkCenter) [][]string {
	rows := make([][]string, 0, len(wcs))
	for _, wc := range wcs {
		rows = append(rows, []string{
			wc.ID,
			wc.Name,
			wc.CapacityPerDay.String(),
			wc.Efficiency.String(),
			wc.CostPerHour.String(),
		})
	}
	return rows
}

func routingRows(routings []*entities.Routing) [][]string {
	var rows [][]string
	for _, r := range routings {
		for _, op := range r.Operations {
			rows = append(rows, []string{
				r.ProductID,
				strconv.Itoa(r.LeadTimeDays),
				strconv.Itoa(op.Sequence),
				op.WorkCenterID,
				op.SetupHours.String(),
				op.RunHoursPerUnit.String(),
			})
		}
	}
	return rows
}
