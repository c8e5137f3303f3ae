package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/domain/repositories"
)

// CapacityStore persists work centers, calendar days and booked operations
type CapacityStore struct {
	db *gorm.DB
}

func NewCapacityStore(db *gorm.DB) *CapacityStore {
	return &CapacityStore{db: db}
}

// Verify interface compliance
var (
	_ repositories.WorkCenterRepository = (*CapacityStore)(nil)
	_ repositories.CalendarRepository   = (*CapacityStore)(nil)
	_ repositories.ScheduleSource       = (*CapacityStore)(nil)
)

func (s *CapacityStore) GetWorkCenter(ctx context.Context, id string) (*entities.WorkCenter, error) {
	var m WorkCenterModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &entities.WorkCenterNotFoundError{WorkCenterID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load work center %s: %w", id, err)
	}
	return m.toEntity(), nil
}

func (s *CapacityStore) ListWorkCenters(ctx context.Context) ([]*entities.WorkCenter, error) {
	var models []WorkCenterModel
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list work centers: %w", err)
	}
	wcs := make([]*entities.WorkCenter, len(models))
	for i := range models {
		wcs[i] = models[i].toEntity()
	}
	return wcs, nil
}

func (s *CapacityStore) SaveWorkCenter(ctx context.Context, wc *entities.WorkCenter) error {
	if err := s.db.WithContext(ctx).Save(newWorkCenterModel(wc)).Error; err != nil {
		return fmt.Errorf("failed to save work center %s: %w", wc.ID, err)
	}
	return nil
}

// GetEntries returns calendar days in [from, to] ordered by date
func (s *CapacityStore) GetEntries(ctx context.Context, workCenterID string, from, to time.Time) ([]*entities.CalendarEntry, error) {
	var models []CalendarEntryModel
	err := s.db.WithContext(ctx).
		Where("work_center_id = ? AND date >= ? AND date <= ?", workCenterID, entities.DateOnly(from), entities.DateOnly(to)).
		Order("date ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load calendar of %s: %w", workCenterID, err)
	}
	entries := make([]*entities.CalendarEntry, len(models))
	for i := range models {
		entries[i] = models[i].toEntity()
	}
	return entries, nil
}

// SaveEntries upserts calendar days by work center and date
func (s *CapacityStore) SaveEntries(ctx context.Context, entries []*entities.CalendarEntry) error {
	if len(entries) == 0 {
		return nil
	}
	models := make([]*CalendarEntryModel, len(entries))
	for i, e := range entries {
		models[i] = newCalendarEntryModel(e)
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(models, 200).Error
	if err != nil {
		return fmt.Errorf("failed to save calendar entries: %w", err)
	}
	return nil
}

// SaveOperation books an operation on a work center
func (s *CapacityStore) SaveOperation(ctx context.Context, op *entities.ScheduledOperation) error {
	m := &ScheduledOperationModel{
		WorkOrderID:  op.WorkOrderID,
		WorkCenterID: op.WorkCenterID,
		Status:       string(op.Status),
		PlannedStart: op.PlannedStart,
		PlannedEnd:   op.PlannedEnd,
		PlannedHours: op.PlannedHours,
	}
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to save operation of %s: %w", op.WorkOrderID, err)
	}
	return nil
}

// GetScheduledOperations returns operations whose planned days overlap [from, to]
func (s *CapacityStore) GetScheduledOperations(ctx context.Context, workCenterID string, from, to time.Time) ([]*entities.ScheduledOperation, error) {
	var models []ScheduledOperationModel
	err := s.db.WithContext(ctx).
		Where("work_center_id = ? AND planned_start < ? AND planned_end >= ?",
			workCenterID, entities.DateOnly(to).AddDate(0, 0, 1), entities.DateOnly(from)).
		Order("planned_start ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load operations of %s: %w", workCenterID, err)
	}
	ops := make([]*entities.ScheduledOperation, len(models))
	for i := range models {
		ops[i] = models[i].toEntity()
	}
	return ops, nil
}
