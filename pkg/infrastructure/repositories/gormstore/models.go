package gormstore

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

// AutoMigrate creates or updates every planning table
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&BOMModel{},
		&BOMLineModel{},
		&WorkCenterModel{},
		&CalendarEntryModel{},
		&ScheduledOperationModel{},
		&RunModel{},
		&RecommendationModel{},
	)
}

type BOMModel struct {
	ID            string          `gorm:"primaryKey;size:64"`
	ProductID     string          `gorm:"size:64;not null;index"`
	Version       string          `gorm:"size:32"`
	BaseQuantity  decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	UnitCode      string          `gorm:"size:16;not null"`
	Status        string          `gorm:"size:16;not null;default:draft"`
	IsDefault     bool            `gorm:"not null;default:false"`
	EffectiveFrom *time.Time
	ExpiresAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (BOMModel) TableName() string { return "mrp_boms" }

func newBOMModel(b *entities.BillOfMaterials) *BOMModel {
	return &BOMModel{
		ID:            b.ID,
		ProductID:     b.ProductID,
		Version:       b.Version,
		BaseQuantity:  b.BaseQuantity,
		UnitCode:      b.UnitCode,
		Status:        string(b.Status),
		IsDefault:     b.IsDefault,
		EffectiveFrom: b.EffectiveFrom,
		ExpiresAt:     b.ExpiresAt,
	}
}

func (m *BOMModel) toEntity() *entities.BillOfMaterials {
	return &entities.BillOfMaterials{
		ID:            m.ID,
		ProductID:     m.ProductID,
		Version:       m.Version,
		BaseQuantity:  m.BaseQuantity,
		UnitCode:      m.UnitCode,
		Status:        entities.BOMStatus(m.Status),
		IsDefault:     m.IsDefault,
		EffectiveFrom: utcPtr(m.EffectiveFrom),
		ExpiresAt:     utcPtr(m.ExpiresAt),
	}
}

type BOMLineModel struct {
	ID              string          `gorm:"primaryKey;size:64"`
	BOMID           string          `gorm:"column:bom_id;size:64;not null;index"`
	ComponentID     string          `gorm:"size:64;not null"`
	Sequence        int             `gorm:"not null;default:0"`
	QuantityPerUnit decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	ScrapPercentage decimal.Decimal `gorm:"type:decimal(9,4);not null;default:0"`
	UnitCode        string          `gorm:"size:16;not null"`
	IsOptional      bool            `gorm:"not null;default:false"`
	IsPhantom       bool            `gorm:"not null;default:false"`
}

func (BOMLineModel) TableName() string { return "mrp_bom_lines" }

func newBOMLineModel(l *entities.BOMLine) *BOMLineModel {
	return &BOMLineModel{
		ID:              l.ID,
		BOMID:           l.BOMID,
		ComponentID:     l.ComponentID,
		Sequence:        l.Sequence,
		QuantityPerUnit: l.QuantityPerUnit,
		ScrapPercentage: l.ScrapPercentage,
		UnitCode:        l.UnitCode,
		IsOptional:      l.IsOptional,
		IsPhantom:       l.IsPhantom,
	}
}

func (m *BOMLineModel) toEntity() *entities.BOMLine {
	return &entities.BOMLine{
		ID:              m.ID,
		BOMID:           m.BOMID,
		ComponentID:     m.ComponentID,
		Sequence:        m.Sequence,
		QuantityPerUnit: m.QuantityPerUnit,
		ScrapPercentage: m.ScrapPercentage,
		UnitCode:        m.UnitCode,
		IsOptional:      m.IsOptional,
		IsPhantom:       m.IsPhantom,
	}
}

type WorkCenterModel struct {
	ID             string          `gorm:"primaryKey;size:64"`
	Code           string          `gorm:"size:64;not null"`
	Name           string          `gorm:"size:200"`
	CapacityPerDay decimal.Decimal `gorm:"type:decimal(10,4);not null;default:0"`
	Efficiency     decimal.Decimal `gorm:"type:decimal(7,2);not null;default:100"`
	CostPerHour    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
}

func (WorkCenterModel) TableName() string { return "mrp_work_centers" }

func newWorkCenterModel(wc *entities.WorkCenter) *WorkCenterModel {
	return &WorkCenterModel{
		ID:             wc.ID,
		Code:           wc.Code,
		Name:           wc.Name,
		CapacityPerDay: wc.CapacityPerDay,
		Efficiency:     wc.Efficiency,
		CostPerHour:    wc.CostPerHour,
	}
}

func (m *WorkCenterModel) toEntity() *entities.WorkCenter {
	return &entities.WorkCenter{
		ID:             m.ID,
		Code:           m.Code,
		Name:           m.Name,
		CapacityPerDay: m.CapacityPerDay,
		Efficiency:     m.Efficiency,
		CostPerHour:    m.CostPerHour,
	}
}

// CalendarEntryModel is keyed by work center and day
type CalendarEntryModel struct {
	WorkCenterID       string              `gorm:"primaryKey;size:64"`
	Date               time.Time           `gorm:"primaryKey"`
	ShiftStartMinutes  int                 `gorm:"not null;default:0"`
	ShiftEndMinutes    int                 `gorm:"not null;default:0"`
	BreakHours         decimal.Decimal     `gorm:"type:decimal(6,2);not null;default:0"`
	AvailableHours     decimal.Decimal     `gorm:"type:decimal(6,2);not null;default:0"`
	EfficiencyOverride decimal.NullDecimal `gorm:"type:decimal(7,2)"`
	CapacityOverride   decimal.NullDecimal `gorm:"type:decimal(6,2)"`
	DayType            string              `gorm:"size:16;not null"`
	Notes              string              `gorm:"type:text"`
}

func (CalendarEntryModel) TableName() string { return "mrp_calendar_entries" }

func newCalendarEntryModel(e *entities.CalendarEntry) *CalendarEntryModel {
	return &CalendarEntryModel{
		WorkCenterID:       e.WorkCenterID,
		Date:               entities.DateOnly(e.Date),
		ShiftStartMinutes:  e.ShiftStartMinutes,
		ShiftEndMinutes:    e.ShiftEndMinutes,
		BreakHours:         e.BreakHours,
		AvailableHours:     e.AvailableHours,
		EfficiencyOverride: nullDecimal(e.EfficiencyOverride),
		CapacityOverride:   nullDecimal(e.CapacityOverride),
		DayType:            string(e.DayType),
		Notes:              e.Notes,
	}
}

func (m *CalendarEntryModel) toEntity() *entities.CalendarEntry {
	return &entities.CalendarEntry{
		WorkCenterID:       m.WorkCenterID,
		Date:               m.Date.UTC(),
		ShiftStartMinutes:  m.ShiftStartMinutes,
		ShiftEndMinutes:    m.ShiftEndMinutes,
		BreakHours:         m.BreakHours,
		AvailableHours:     m.AvailableHours,
		EfficiencyOverride: decimalPtr(m.EfficiencyOverride),
		CapacityOverride:   decimalPtr(m.CapacityOverride),
		DayType:            entities.DayType(m.DayType),
		Notes:              m.Notes,
	}
}

type ScheduledOperationModel struct {
	ID           uint            `gorm:"primaryKey"`
	WorkOrderID  string          `gorm:"size:64;not null;index"`
	WorkCenterID string          `gorm:"size:64;not null;index"`
	Status       string          `gorm:"size:16;not null"`
	PlannedStart time.Time       `gorm:"not null"`
	PlannedEnd   time.Time       `gorm:"not null"`
	PlannedHours decimal.Decimal `gorm:"type:decimal(10,4);not null"`
}

func (ScheduledOperationModel) TableName() string { return "mrp_scheduled_operations" }

func (m *ScheduledOperationModel) toEntity() *entities.ScheduledOperation {
	return &entities.ScheduledOperation{
		WorkOrderID:  m.WorkOrderID,
		WorkCenterID: m.WorkCenterID,
		Status:       entities.WorkOrderStatus(m.Status),
		PlannedStart: m.PlannedStart.UTC(),
		PlannedEnd:   m.PlannedEnd.UTC(),
		PlannedHours: m.PlannedHours,
	}
}

type RunModel struct {
	ID                       string                `gorm:"primaryKey;size:64"`
	RunCode                  string                `gorm:"size:64;not null;index"`
	HorizonStart             time.Time             `gorm:"not null"`
	HorizonEnd               time.Time             `gorm:"not null"`
	Options                  entities.RunOptions   `gorm:"serializer:json"`
	Filters                  entities.RunFilters   `gorm:"serializer:json"`
	Status                   string                `gorm:"size:16;not null;index"`
	ProductsTotal            int                   `gorm:"not null;default:0"`
	ProductsProcessed        int                   `gorm:"not null;default:0"`
	RecommendationsGenerated int                   `gorm:"not null;default:0"`
	Warnings                 []entities.RunWarning `gorm:"serializer:json"`
	ErrorMessage             string                `gorm:"type:text"`
	CreatedBy                string                `gorm:"size:64"`
	CreatedAt                time.Time             `gorm:"autoCreateTime:false"`
	StartedAt                *time.Time
	CompletedAt              *time.Time `gorm:"index"`
}

func (RunModel) TableName() string { return "mrp_runs" }

func newRunModel(r *entities.MRPRun) *RunModel {
	return &RunModel{
		ID:                       r.ID,
		RunCode:                  r.RunCode,
		HorizonStart:             r.HorizonStart,
		HorizonEnd:               r.HorizonEnd,
		Options:                  r.Options,
		Filters:                  r.Filters,
		Status:                   string(r.Status),
		ProductsTotal:            r.ProductsTotal,
		ProductsProcessed:        r.ProductsProcessed,
		RecommendationsGenerated: r.RecommendationsGenerated,
		Warnings:                 r.Warnings,
		ErrorMessage:             r.ErrorMessage,
		CreatedBy:                r.CreatedBy,
		CreatedAt:                r.CreatedAt,
		StartedAt:                r.StartedAt,
		CompletedAt:              r.CompletedAt,
	}
}

func (m *RunModel) toEntity() *entities.MRPRun {
	return &entities.MRPRun{
		ID:                       m.ID,
		RunCode:                  m.RunCode,
		HorizonStart:             m.HorizonStart.UTC(),
		HorizonEnd:               m.HorizonEnd.UTC(),
		Options:                  m.Options,
		Filters:                  m.Filters,
		Status:                   entities.RunStatus(m.Status),
		ProductsTotal:            m.ProductsTotal,
		ProductsProcessed:        m.ProductsProcessed,
		RecommendationsGenerated: m.RecommendationsGenerated,
		Warnings:                 m.Warnings,
		ErrorMessage:             m.ErrorMessage,
		CreatedBy:                m.CreatedBy,
		CreatedAt:                m.CreatedAt.UTC(),
		StartedAt:                utcPtr(m.StartedAt),
		CompletedAt:              utcPtr(m.CompletedAt),
	}
}

type RecommendationModel struct {
	ID                string          `gorm:"primaryKey;size:64"`
	RunID             string          `gorm:"size:64;not null;index"`
	Position          int64           `gorm:"not null;index"`
	ProductID         string          `gorm:"size:64;not null;index"`
	WarehouseID       string          `gorm:"size:64"`
	Type              string          `gorm:"size:20;not null"`
	GrossRequirement  decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	NetRequirement    decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	ProjectedOnHand   decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	SuggestedQuantity decimal.Decimal `gorm:"type:decimal(20,8);not null"`
	SuggestedDate     time.Time       `gorm:"not null"`
	RequiredByDate    time.Time       `gorm:"not null;index"`
	LeadTimeDays      int             `gorm:"not null;default:0"`
	UnitCode          string          `gorm:"size:16"`
	Priority          string          `gorm:"size:16;not null"`
	IsUrgent          bool            `gorm:"not null;default:false"`
	UrgencyReason     string          `gorm:"size:32"`
	Status            string          `gorm:"size:16;not null;index"`
	Notes             string          `gorm:"type:text"`
	ApprovedBy        string          `gorm:"size:64"`
	ApprovedAt        *time.Time
	ActionedAt        *time.Time
	ReferenceType     string    `gorm:"size:32"`
	ReferenceID       string    `gorm:"size:64"`
	CreatedAt         time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime:false"`
}

func (RecommendationModel) TableName() string { return "mrp_recommendations" }

func newRecommendationModel(r *entities.MRPRecommendation) *RecommendationModel {
	return &RecommendationModel{
		ID:                r.ID,
		RunID:             r.RunID,
		ProductID:         r.ProductID,
		WarehouseID:       r.WarehouseID,
		Type:              string(r.Type),
		GrossRequirement:  r.GrossRequirement,
		NetRequirement:    r.NetRequirement,
		ProjectedOnHand:   r.ProjectedOnHand,
		SuggestedQuantity: r.SuggestedQuantity,
		SuggestedDate:     r.SuggestedDate,
		RequiredByDate:    r.RequiredByDate,
		LeadTimeDays:      r.LeadTimeDays,
		UnitCode:          r.UnitCode,
		Priority:          string(r.Priority),
		IsUrgent:          r.IsUrgent,
		UrgencyReason:     r.UrgencyReason,
		Status:            string(r.Status),
		Notes:             r.Notes,
		ApprovedBy:        r.ApprovedBy,
		ApprovedAt:        r.ApprovedAt,
		ActionedAt:        r.ActionedAt,
		ReferenceType:     r.ReferenceType,
		ReferenceID:       r.ReferenceID,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func (m *RecommendationModel) toEntity() *entities.MRPRecommendation {
	return &entities.MRPRecommendation{
		ID:                m.ID,
		RunID:             m.RunID,
		ProductID:         m.ProductID,
		WarehouseID:       m.WarehouseID,
		Type:              entities.RecommendationType(m.Type),
		GrossRequirement:  m.GrossRequirement,
		NetRequirement:    m.NetRequirement,
		ProjectedOnHand:   m.ProjectedOnHand,
		SuggestedQuantity: m.SuggestedQuantity,
		SuggestedDate:     m.SuggestedDate.UTC(),
		RequiredByDate:    m.RequiredByDate.UTC(),
		LeadTimeDays:      m.LeadTimeDays,
		UnitCode:          m.UnitCode,
		Priority:          entities.Priority(m.Priority),
		IsUrgent:          m.IsUrgent,
		UrgencyReason:     m.UrgencyReason,
		Status:            entities.RecommendationStatus(m.Status),
		Notes:             m.Notes,
		ApprovedBy:        m.ApprovedBy,
		ApprovedAt:        utcPtr(m.ApprovedAt),
		ActionedAt:        utcPtr(m.ActionedAt),
		ReferenceType:     m.ReferenceType,
		ReferenceID:       m.ReferenceID,
		CreatedAt:         m.CreatedAt.UTC(),
		UpdatedAt:         m.UpdatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}
