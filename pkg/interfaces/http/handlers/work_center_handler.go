package handlers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/mfgplan/pkg/application/services/capacity"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
	"github.com/vsinha/mfgplan/pkg/interfaces/http/response"
)

// defaultCapacityDays is the window reported when the caller omits "to"
const defaultCapacityDays = 14

// WorkCenterHandler serves work-center capacity
type WorkCenterHandler struct {
	calendar *capacity.Calendar
	clock    func() time.Time
	logger   *zap.Logger
}

func NewWorkCenterHandler(calendar *capacity.Calendar, clock func() time.Time, logger *zap.Logger) *WorkCenterHandler {
	return &WorkCenterHandler{calendar: calendar, clock: clock, logger: logger}
}

// CapacityView is the body of the capacity endpoint
type CapacityView struct {
	WorkCenterID   string                 `json:"work_center_id"`
	From           time.Time              `json:"from"`
	To             time.Time              `json:"to"`
	AvailableHours decimal.Decimal        `json:"available_hours"`
	FreeHours      decimal.Decimal        `json:"free_hours"`
	Days           []entities.DayCapacity `json:"days"`
}

// GetCapacity GET /work-centers/:id/capacity?from&to
func (h *WorkCenterHandler) GetCapacity(c *gin.Context) {
	ctx := c.Request.Context()
	wcID := c.Param("id")

	from, err := queryDate(c, "from", h.clock())
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	to, err := queryDate(c, "to", from.AddDate(0, 0, defaultCapacityDays-1))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if to.Before(from) {
		response.BadRequest(c, "to cannot be before from")
		return
	}

	days, err := h.calendar.DailyBreakdown(ctx, wcID, from, to)
	if err != nil {
		response.FromError(c, err)
		return
	}
	view := CapacityView{WorkCenterID: wcID, From: from, To: to, Days: days}
	for _, d := range days {
		view.AvailableHours = view.AvailableHours.Add(d.AvailableHours)
		view.FreeHours = view.FreeHours.Add(d.FreeHours)
	}
	response.Success(c, view)
}

// NextSlot GET /work-centers/:id/next-slot?hours&from
func (h *WorkCenterHandler) NextSlot(c *gin.Context) {
	if c.Query("hours") == "" {
		response.BadRequest(c, "hours is required")
		return
	}
	hours, err := queryDecimal(c, "hours", decimal.Zero)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	from, err := queryDate(c, "from", h.clock())
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	slot, found, err := h.calendar.FindNextSlot(c.Request.Context(), c.Param("id"), hours, from)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, gin.H{"found": found, "slot": slot})
}

// GenerateCalendarRequest is the body of POST /work-centers/:id/calendar.
// Shift times are HH:MM; working days use 0 for Sunday through 6 for Saturday.
type GenerateCalendarRequest struct {
	From            string          `json:"from" binding:"required"`
	To              string          `json:"to" binding:"required"`
	ShiftStart      string          `json:"shift_start"`
	ShiftEnd        string          `json:"shift_end"`
	BreakHours      decimal.Decimal `json:"break_hours"`
	WorkingDays     []int           `json:"working_days"`
	Holidays        []string        `json:"holidays"`
	MaintenanceDays []string        `json:"maintenance_days"`
}

func (r GenerateCalendarRequest) template() (capacity.CalendarTemplate, error) {
	var tpl capacity.CalendarTemplate
	var err error
	if r.ShiftStart != "" || r.ShiftEnd != "" {
		if tpl.ShiftStartMinutes, err = clockMinutes("shift_start", r.ShiftStart); err != nil {
			return tpl, err
		}
		if tpl.ShiftEndMinutes, err = clockMinutes("shift_end", r.ShiftEnd); err != nil {
			return tpl, err
		}
		if tpl.ShiftEndMinutes <= tpl.ShiftStartMinutes {
			return tpl, fmt.Errorf("shift_end must be after shift_start")
		}
	}
	if r.BreakHours.IsNegative() {
		return tpl, fmt.Errorf("break_hours cannot be negative")
	}
	tpl.BreakHours = r.BreakHours
	for _, d := range r.WorkingDays {
		if d < 0 || d > 6 {
			return tpl, fmt.Errorf("working_days entries must be 0-6, got %d", d)
		}
		tpl.WorkingDays = append(tpl.WorkingDays, time.Weekday(d))
	}
	if tpl.Holidays, err = parseDates("holidays", r.Holidays); err != nil {
		return tpl, err
	}
	if tpl.MaintenanceDays, err = parseDates("maintenance_days", r.MaintenanceDays); err != nil {
		return tpl, err
	}
	return tpl, nil
}

// GenerateCalendar POST /work-centers/:id/calendar
func (h *WorkCenterHandler) GenerateCalendar(c *gin.Context) {
	var req GenerateCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	from, err := parseDate("from", req.From)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	to, err := parseDate("to", req.To)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if to.Before(from) {
		response.BadRequest(c, "to cannot be before from")
		return
	}
	tpl, err := req.template()
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	wcID := c.Param("id")
	n, err := h.calendar.Generate(c.Request.Context(), wcID, from, to, tpl)
	if err != nil {
		response.FromError(c, err)
		return
	}
	h.logger.Info("calendar generated", zap.String("work_center_id", wcID), zap.Int("entries", n))
	response.Created(c, gin.H{"work_center_id": wcID, "entries": n})
}

func clockMinutes(name, raw string) (int, error) {
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be HH:MM, got %q", name, raw)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func parseDates(name string, raw []string) ([]time.Time, error) {
	out := make([]time.Time, 0, len(raw))
	for _, r := range raw {
		d, err := parseDate(name, r)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
