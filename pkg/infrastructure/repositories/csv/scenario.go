package csv

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/infrastructure/repositories/memory"
)

// Scenario file names; stock, work centers and routings are optional
const (
	ProductsFile    = "products.csv"
	BOMsFile        = "boms.csv"
	BOMLinesFile    = "bom_lines.csv"
	DemandsFile     = "demands.csv"
	StockFile       = "stock.csv"
	WorkCentersFile = "work_centers.csv"
	RoutingsFile    = "routings.csv"
)

// Dataset is everything read from one scenario directory
type Dataset struct {
	Products    []*entities.Product
	BOMs        []*entities.BillOfMaterials
	BOMLines    []*entities.BOMLine
	Demands     []*entities.DemandLine
	Stock       []StockRecord
	WorkCenters []*entities.WorkCenter
	Routings    []*entities.Routing
}

// Target receives a dataset
type Target struct {
	Products *memory.ProductRepository
	BOMs     *memory.BOMRepository
	Stock    *memory.StockRepository
	Demand   *memory.DemandRepository
	Capacity *memory.CapacityRepository
}

// LoadScenario reads every scenario file in dir
func (l *Loader) LoadScenario(dir string) (*Dataset, error) {
	var ds Dataset
	var err error

	if ds.Products, err = l.LoadProducts(filepath.Join(dir, ProductsFile)); err != nil {
		return nil, err
	}
	if ds.BOMs, err = l.LoadBOMs(filepath.Join(dir, BOMsFile)); err != nil {
		return nil, err
	}
	if ds.BOMLines, err = l.LoadBOMLines(filepath.Join(dir, BOMLinesFile)); err != nil {
		return nil, err
	}
	if ds.Demands, err = l.LoadDemands(filepath.Join(dir, DemandsFile)); err != nil {
		return nil, err
	}

	if path, ok := optional(dir, StockFile); ok {
		if ds.Stock, err = l.LoadStock(path); err != nil {
			return nil, err
		}
	}
	if path, ok := optional(dir, WorkCentersFile); ok {
		if ds.WorkCenters, err = l.LoadWorkCenters(path); err != nil {
			return nil, err
		}
	}
	if path, ok := optional(dir, RoutingsFile); ok {
		if ds.Routings, err = l.LoadRoutings(path); err != nil {
			return nil, err
		}
	}
	return &ds, nil
}

func optional(dir, name string) (string, bool) {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return "", false
	}
	return path, true
}

// Populate loads the dataset into in-memory repositories; nil targets are skipped
func (d *Dataset) Populate(ctx context.Context, t Target) error {
	if t.Products != nil {
		if err := t.Products.LoadProducts(d.Products); err != nil {
			return fmt.Errorf("failed to load products into repository: %w", err)
		}
	}
	if t.BOMs != nil {
		if err := t.BOMs.LoadBOMs(d.BOMs, d.BOMLines); err != nil {
			return fmt.Errorf("failed to load boms into repository: %w", err)
		}
	}
	if t.Demand != nil {
		if err := t.Demand.LoadDemands(d.Demands); err != nil {
			return fmt.Errorf("failed to load demands into repository: %w", err)
		}
	}
	if t.Stock != nil {
		for _, rec := range d.Stock {
			switch rec.Type {
			case StockOnHand:
				t.Stock.SetOnHand(rec.ProductID, rec.WarehouseID, rec.Quantity)
			case StockWIP:
				t.Stock.SetWIP(rec.ProductID, rec.WarehouseID, rec.Quantity)
			case StockReceipt:
				t.Stock.AddReceipt(memory.Receipt{
					ProductID:   rec.ProductID,
					WarehouseID: rec.WarehouseID,
					Quantity:    rec.Quantity,
					DueDate:     rec.DueDate,
				})
			}
		}
	}
	if t.Capacity != nil {
		for _, wc := range d.WorkCenters {
			if err := t.Capacity.SaveWorkCenter(ctx, wc); err != nil {
				return fmt.Errorf("failed to load work center %s: %w", wc.ID, err)
			}
		}
		for _, routing := range d.Routings {
			t.Capacity.SaveRouting(*routing)
		}
	}
	return nil
}
