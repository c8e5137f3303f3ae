package gormstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
)

// BOMStore persists BOM headers and lines
type BOMStore struct {
	db *gorm.DB

	mu       sync.RWMutex
	onChange func(bomID, productID string)
}

func NewBOMStore(db *gorm.DB) *BOMStore {
	return &BOMStore{db: db}
}

// Verify interface compliance
var _ repositories.BOMRepository = (*BOMStore)(nil)

// OnChange registers a hook called after every committed structural change.
// productID is set for header changes and empty for line changes.
func (s *BOMStore) OnChange(hook func(bomID, productID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = hook
}

func (s *BOMStore) changed(bomID, productID string) {
	s.mu.RLock()
	hook := s.onChange
	s.mu.RUnlock()
	if hook != nil {
		hook(bomID, productID)
	}
}

func (s *BOMStore) GetBOM(ctx context.Context, id string) (*entities.BillOfMaterials, error) {
	m, err := s.find(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return m.toEntity(), nil
}

func (s *BOMStore) find(tx *gorm.DB, id string) (*BOMModel, error) {
	var m BOMModel
	err := tx.Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &entities.BOMNotFoundError{BOMID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load bom %s: %w", id, err)
	}
	return &m, nil
}

// GetLines returns BOM lines ordered by sequence
func (s *BOMStore) GetLines(ctx context.Context, bomID string) ([]*entities.BOMLine, error) {
	db := s.db.WithContext(ctx)
	if _, err := s.find(db, bomID); err != nil {
		return nil, err
	}
	var models []BOMLineModel
	if err := db.Where("bom_id = ?", bomID).Order("sequence ASC, id ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to load lines of bom %s: %w", bomID, err)
	}
	lines := make([]*entities.BOMLine, len(models))
	for i := range models {
		lines[i] = models[i].toEntity()
	}
	return lines, nil
}

// GetActiveDefaultBOM filters effectivity in memory; a product carries few BOMs
func (s *BOMStore) GetActiveDefaultBOM(ctx context.Context, productID string, at time.Time) (*entities.BillOfMaterials, error) {
	var models []BOMModel
	err := s.db.WithContext(ctx).
		Where("product_id = ? AND status = ? AND is_default = ?", productID, string(entities.BOMStatusActive), true).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load default bom of %s: %w", productID, err)
	}
	for i := range models {
		if b := models[i].toEntity(); b.IsExplodableAt(at) {
			return b, nil
		}
	}
	return nil, nil
}

// ListBOMs returns all BOM headers ordered by id
func (s *BOMStore) ListBOMs(ctx context.Context) ([]*entities.BillOfMaterials, error) {
	var models []BOMModel
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list boms: %w", err)
	}
	boms := make([]*entities.BillOfMaterials, len(models))
	for i := range models {
		boms[i] = models[i].toEntity()
	}
	return boms, nil
}

// SaveBOM inserts or replaces a header, refusing a second active default
func (s *BOMStore) SaveBOM(ctx context.Context, bom *entities.BillOfMaterials) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if bom.Status == entities.BOMStatusActive && bom.IsDefault {
			if err := s.checkDefault(tx, bom); err != nil {
				return err
			}
		}
		if err := tx.Save(newBOMModel(bom)).Error; err != nil {
			return fmt.Errorf("failed to save bom %s: %w", bom.ID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.changed(bom.ID, bom.ProductID)
	return nil
}

// SaveLine inserts or replaces a line of an existing BOM
func (s *BOMStore) SaveLine(ctx context.Context, line *entities.BOMLine) error {
	if err := line.Validate(); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.find(tx, line.BOMID); err != nil {
			return err
		}
		if err := tx.Save(newBOMLineModel(line)).Error; err != nil {
			return fmt.Errorf("failed to save bom line %s: %w", line.ID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.changed(line.BOMID, "")
	return nil
}

func (s *BOMStore) Activate(ctx context.Context, bomID string) error {
	return s.update(ctx, bomID, func(tx *gorm.DB, b *entities.BillOfMaterials) error {
		if b.IsDefault {
			if err := s.checkDefault(tx, b); err != nil {
				return err
			}
		}
		return b.Activate()
	})
}

func (s *BOMStore) SetDefault(ctx context.Context, bomID string) error {
	return s.update(ctx, bomID, func(tx *gorm.DB, b *entities.BillOfMaterials) error {
		if b.Status == entities.BOMStatusObsolete {
			return fmt.Errorf("cannot make obsolete bom %s the default", bomID)
		}
		if b.Status == entities.BOMStatusActive {
			if err := s.checkDefault(tx, b); err != nil {
				return err
			}
		}
		b.IsDefault = true
		return nil
	})
}

func (s *BOMStore) update(ctx context.Context, bomID string, mutate func(tx *gorm.DB, b *entities.BillOfMaterials) error) error {
	var productID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := s.find(tx, bomID)
		if err != nil {
			return err
		}
		b := m.toEntity()
		productID = b.ProductID
		if err := mutate(tx, b); err != nil {
			return err
		}
		return tx.Model(&BOMModel{}).Where("id = ?", bomID).Updates(map[string]interface{}{
			"status":     string(b.Status),
			"is_default": b.IsDefault,
		}).Error
	})
	if err != nil {
		return err
	}
	s.changed(bomID, productID)
	return nil
}

// checkDefault runs inside the caller's transaction
func (s *BOMStore) checkDefault(tx *gorm.DB, bom *entities.BillOfMaterials) error {
	var others []BOMModel
	err := tx.Where("product_id = ? AND id <> ? AND status = ? AND is_default = ?",
		bom.ProductID, bom.ID, string(entities.BOMStatusActive), true).
		Find(&others).Error
	if err != nil {
		return fmt.Errorf("failed to check default bom of %s: %w", bom.ProductID, err)
	}
	for i := range others {
		if bom.ConflictsWith(others[i].toEntity()) {
			return fmt.Errorf("bom %s: %w", bom.ID, entities.ErrDuplicateDefaultBOM)
		}
	}
	return nil
}
