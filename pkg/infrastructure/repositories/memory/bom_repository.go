package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
)

// BOMRepository provides in-memory BOM storage
type BOMRepository struct {
	mu       sync.RWMutex
	boms     map[string]entities.BillOfMaterials
	lines    map[string][]entities.BOMLine
	onChange func(bomID, productID string)
}

// NewBOMRepository creates a new in-memory BOM repository
func NewBOMRepository(expectedBOMs int) *BOMRepository {
	return &BOMRepository{
		boms:  make(map[string]entities.BillOfMaterials, expectedBOMs),
		lines: make(map[string][]entities.BOMLine, expectedBOMs),
	}
}

// Verify interface compliance
var _ repositories.BOMRepository = (*BOMRepository)(nil)

// OnChange registers a hook called after every structural change of a BOM.
// productID is set when the header changed, since that can move the
// product's active default; it is empty for line changes.
func (r *BOMRepository) OnChange(hook func(bomID, productID string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = hook
}

func (r *BOMRepository) changed(bomID, productID string) {
	r.mu.RLock()
	hook := r.onChange
	r.mu.RUnlock()
	if hook != nil {
		hook(bomID, productID)
	}
}

// LoadBOMs loads headers and lines without change notifications or default checks
func (r *BOMRepository) LoadBOMs(boms []*entities.BillOfMaterials, lines []*entities.BOMLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range boms {
		r.boms[b.ID] = *b
	}
	for _, l := range lines {
		if _, ok := r.boms[l.BOMID]; !ok {
			return &entities.BOMNotFoundError{BOMID: l.BOMID}
		}
		r.lines[l.BOMID] = append(r.lines[l.BOMID], *l)
	}
	return nil
}

// GetBOM returns a BOM header
func (r *BOMRepository) GetBOM(_ context.Context, id string) (*entities.BillOfMaterials, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.boms[id]
	if !ok {
		return nil, &entities.BOMNotFoundError{BOMID: id}
	}
	return &b, nil
}

// GetLines returns BOM lines ordered by sequence
func (r *BOMRepository) GetLines(_ context.Context, bomID string) ([]*entities.BOMLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.boms[bomID]; !ok {
		return nil, &entities.BOMNotFoundError{BOMID: bomID}
	}
	stored := r.lines[bomID]
	lines := make([]*entities.BOMLine, len(stored))
	for i := range stored {
		l := stored[i]
		lines[i] = &l
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Sequence < lines[j].Sequence })
	return lines, nil
}

// GetActiveDefaultBOM returns the explodable BOM of a product at a given time
func (r *BOMRepository) GetActiveDefaultBOM(_ context.Context, productID string, at time.Time) (*entities.BillOfMaterials, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id := range r.boms {
		b := r.boms[id]
		if b.ProductID == productID && b.IsExplodableAt(at) {
			return &b, nil
		}
	}
	return nil, nil
}

// ListBOMs returns all BOM headers ordered by id
func (r *BOMRepository) ListBOMs(_ context.Context) ([]*entities.BillOfMaterials, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	boms := make([]*entities.BillOfMaterials, 0, len(r.boms))
	for id := range r.boms {
		b := r.boms[id]
		boms = append(boms, &b)
	}
	sort.Slice(boms, func(i, j int) bool { return boms[i].ID < boms[j].ID })
	return boms, nil
}

// SaveBOM inserts or replaces a BOM header
func (r *BOMRepository) SaveBOM(_ context.Context, bom *entities.BillOfMaterials) error {
	r.mu.Lock()
	if bom.Status == entities.BOMStatusActive && bom.IsDefault && r.conflictingDefault(bom) != "" {
		r.mu.Unlock()
		return fmt.Errorf("bom %s: %w", bom.ID, entities.ErrDuplicateDefaultBOM)
	}
	r.boms[bom.ID] = *bom
	r.mu.Unlock()

	r.changed(bom.ID, bom.ProductID)
	return nil
}

// SaveLine inserts or replaces a BOM line
func (r *BOMRepository) SaveLine(_ context.Context, line *entities.BOMLine) error {
	if err := line.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	if _, ok := r.boms[line.BOMID]; !ok {
		r.mu.Unlock()
		return &entities.BOMNotFoundError{BOMID: line.BOMID}
	}
	stored := r.lines[line.BOMID]
	replaced := false
	for i := range stored {
		if stored[i].ID == line.ID {
			stored[i] = *line
			replaced = true
			break
		}
	}
	if !replaced {
		stored = append(stored, *line)
	}
	r.lines[line.BOMID] = stored
	r.mu.Unlock()

	r.changed(line.BOMID, "")
	return nil
}

// Activate moves a BOM to active, refusing a second active default
func (r *BOMRepository) Activate(_ context.Context, bomID string) error {
	r.mu.Lock()
	b, ok := r.boms[bomID]
	if !ok {
		r.mu.Unlock()
		return &entities.BOMNotFoundError{BOMID: bomID}
	}
	if b.IsDefault && r.conflictingDefault(&b) != "" {
		r.mu.Unlock()
		return fmt.Errorf("bom %s: %w", bomID, entities.ErrDuplicateDefaultBOM)
	}
	if err := b.Activate(); err != nil {
		r.mu.Unlock()
		return err
	}
	r.boms[bomID] = b
	r.mu.Unlock()

	r.changed(bomID, b.ProductID)
	return nil
}

// SetDefault flags a BOM as its product's default, refusing a second active default
func (r *BOMRepository) SetDefault(_ context.Context, bomID string) error {
	r.mu.Lock()
	b, ok := r.boms[bomID]
	if !ok {
		r.mu.Unlock()
		return &entities.BOMNotFoundError{BOMID: bomID}
	}
	if b.Status == entities.BOMStatusObsolete {
		r.mu.Unlock()
		return fmt.Errorf("cannot make obsolete bom %s the default", bomID)
	}
	if b.Status == entities.BOMStatusActive && r.conflictingDefault(&b) != "" {
		r.mu.Unlock()
		return fmt.Errorf("bom %s: %w", bomID, entities.ErrDuplicateDefaultBOM)
	}
	b.IsDefault = true
	r.boms[bomID] = b
	r.mu.Unlock()

	r.changed(bomID, b.ProductID)
	return nil
}

// conflictingDefault returns the id of another active default BOM that would
// overlap bom; callers hold the lock
func (r *BOMRepository) conflictingDefault(bom *entities.BillOfMaterials) string {
	for id := range r.boms {
		other := r.boms[id]
		if bom.ConflictsWith(&other) {
			return id
		}
	}
	return ""
}
