package output

import (
	"fmt"
	"html"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/vsinha/mfgplan/pkg/application/dto"
	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

const day = 24 * time.Hour

// GanttChart lays recommendations out as bars from order date to required
// date, one row per product
type GanttChart struct {
	Width        int
	Height       int
	MarginLeft   int
	MarginTop    int
	MarginRight  int
	MarginBottom int
	RowHeight    int
	StartTime    time.Time
	EndTime      time.Time
}

// GanttBar is one recommendation on the chart
type GanttBar struct {
	ProductID string
	Type      entities.RecommendationType
	Quantity  string
	Start     time.Time
	End       time.Time
	Urgent    bool
	X         int
	Width     int
	Color     string
}

// NewGanttChart sizes a chart for result; the time axis spans the run
// horizon widened to cover every bar
func NewGanttChart(result *dto.RunResult) *GanttChart {
	gc := &GanttChart{
		Width:        1200,
		MarginLeft:   160,
		MarginTop:    60,
		MarginRight:  60,
		MarginBottom: 60,
		RowHeight:    26,
		StartTime:    result.Run.HorizonStart,
		EndTime:      result.Run.HorizonEnd.Add(day),
	}
	products := make(map[string]bool)
	for _, rec := range result.Recommendations {
		products[rec.ProductID] = true
		if rec.SuggestedDate.Before(gc.StartTime) {
			gc.StartTime = rec.SuggestedDate
		}
		if end := rec.RequiredByDate.Add(day); end.After(gc.EndTime) {
			gc.EndTime = end
		}
	}
	rows := len(products)
	if rows == 0 {
		rows = 1
	}
	gc.Height = gc.MarginTop + rows*gc.RowHeight + gc.MarginBottom
	return gc
}

// GenerateSVG renders the chart
func (gc *GanttChart) GenerateSVG(result *dto.RunResult) string {
	if len(result.Recommendations) == 0 {
		return gc.generateEmptyChart()
	}

	var svg strings.Builder
	fmt.Fprintf(&svg, `<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`, gc.Width, gc.Height)
	svg.WriteString(`<style>`)
	svg.WriteString(`.label { font-family: Arial, sans-serif; font-size: 12px; fill: #333; }`)
	svg.WriteString(`.axis { font-family: Arial, sans-serif; font-size: 10px; fill: #666; }`)
	svg.WriteString(`.title { font-family: Arial, sans-serif; font-size: 16px; font-weight: bold; fill: #333; }`)
	svg.WriteString(`.grid { stroke: #e0e0e0; stroke-width: 1; }`)
	svg.WriteString(`.bar { stroke: #333; stroke-width: 1; }`)
	svg.WriteString(`</style>`)
	fmt.Fprintf(&svg, `<rect width="%d" height="%d" fill="white"/>`, gc.Width, gc.Height)
	fmt.Fprintf(&svg, `<text x="%d" y="30" class="title" text-anchor="middle">%s</text>`,
		gc.Width/2, html.EscapeString("MRP Recommendations "+result.Run.RunCode))

	rows := gc.organizeBars(gc.createBars(result.Recommendations))
	gc.drawTimeAxis(&svg, len(rows))
	for i, row := range rows {
		y := gc.MarginTop + i*gc.RowHeight
		fmt.Fprintf(&svg, `<text x="%d" y="%d" class="label" text-anchor="end">%s</text>`,
			gc.MarginLeft-10, y+gc.RowHeight/2+4, html.EscapeString(row[0].ProductID))
		fmt.Fprintf(&svg, `<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid"/>`,
			gc.MarginLeft, y+gc.RowHeight, gc.Width-gc.MarginRight, y+gc.RowHeight)
		for _, bar := range row {
			gc.drawBar(&svg, bar, y)
		}
	}
	gc.drawLegend(&svg)
	svg.WriteString(`</svg>`)
	return svg.String()
}

// xFor maps a time onto the chart's horizontal axis
func (gc *GanttChart) xFor(t time.Time) int {
	chartWidth := gc.Width - gc.MarginLeft - gc.MarginRight
	total := gc.EndTime.Sub(gc.StartTime)
	if total <= 0 {
		return gc.MarginLeft
	}
	return gc.MarginLeft + int(float64(t.Sub(gc.StartTime))/float64(total)*float64(chartWidth))
}

func (gc *GanttChart) createBars(recs []*entities.MRPRecommendation) []GanttBar {
	bars := make([]GanttBar, 0, len(recs))
	for _, rec := range recs {
		end := rec.RequiredByDate.Add(day)
		x := gc.xFor(rec.SuggestedDate)
		width := gc.xFor(end) - x
		if width < 2 {
			width = 2
		}
		bars = append(bars, GanttBar{
			ProductID: rec.ProductID,
			Type:      rec.Type,
			Quantity:  rec.SuggestedQuantity.String(),
			Start:     rec.SuggestedDate,
			End:       rec.RequiredByDate,
			Urgent:    rec.IsUrgent,
			X:         x,
			Width:     width,
			Color:     barColor(rec.Type, rec.IsUrgent),
		})
	}
	return bars
}

// organizeBars groups bars per product, products ordered by earliest start
func (gc *GanttChart) organizeBars(bars []GanttBar) [][]GanttBar {
	byProduct := make(map[string][]GanttBar)
	for _, bar := range bars {
		byProduct[bar.ProductID] = append(byProduct[bar.ProductID], bar)
	}
	rows := make([][]GanttBar, 0, len(byProduct))
	for _, row := range byProduct {
		sort.Slice(row, func(i, j int) bool { return row[i].Start.Before(row[j].Start) })
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i][0].Start.Equal(rows[j][0].Start) {
			return rows[i][0].Start.Before(rows[j][0].Start)
		}
		return rows[i][0].ProductID < rows[j][0].ProductID
	})
	return rows
}

func (gc *GanttChart) drawTimeAxis(svg *strings.Builder, numRows int) {
	days := int(gc.EndTime.Sub(gc.StartTime) / day)
	step := 1
	switch {
	case days > 180:
		step = 30
	case days > 30:
		step = 7
	}
	bottom := gc.MarginTop + numRows*gc.RowHeight
	for t := gc.StartTime; t.Before(gc.EndTime); t = t.AddDate(0, 0, step) {
		x := gc.xFor(t)
		fmt.Fprintf(svg, `<line x1="%d" y1="%d" x2="%d" y2="%d" class="grid"/>`, x, gc.MarginTop, x, bottom)
		fmt.Fprintf(svg, `<text x="%d" y="%d" class="axis" text-anchor="middle">%s</text>`, x, bottom+15, t.Format("Jan 2"))
	}
}

func (gc *GanttChart) drawBar(svg *strings.Builder, bar GanttBar, rowY int) {
	fmt.Fprintf(svg, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s" class="bar">`,
		bar.X, rowY+3, bar.Width, gc.RowHeight-6, bar.Color)
	fmt.Fprintf(svg, `<title>%s</title></rect>`, html.EscapeString(fmt.Sprintf("%s %s qty %s, order %s, required %s",
		bar.ProductID, bar.Type, bar.Quantity, bar.Start.Format(dateLayout), bar.End.Format(dateLayout))))
}

func (gc *GanttChart) drawLegend(svg *strings.Builder) {
	x := gc.Width - gc.MarginRight - 170
	items := []struct {
		color string
		label string
	}{
		{barColor(entities.WorkOrder, false), "Work orders"},
		{barColor(entities.PurchaseOrder, false), "Purchase orders"},
		{barColor(entities.PurchaseOrder, true), "Urgent"},
	}
	for i, item := range items {
		y := 12 + i*14
		fmt.Fprintf(svg, `<rect x="%d" y="%d" width="12" height="8" fill="%s"/>`, x, y, item.color)
		fmt.Fprintf(svg, `<text x="%d" y="%d" class="axis">%s</text>`, x+18, y+8, item.label)
	}
}

func barColor(t entities.RecommendationType, urgent bool) string {
	if urgent {
		return "#E53935"
	}
	if t == entities.WorkOrder {
		return "#4CAF50"
	}
	return "#2196F3"
}

func (gc *GanttChart) generateEmptyChart() string {
	return fmt.Sprintf(`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`+
		`<rect width="%d" height="%d" fill="white"/>`+
		`<text x="%d" y="%d" font-family="Arial, sans-serif" font-size="16" fill="#666" text-anchor="middle">No Recommendations</text>`+
		`</svg>`, gc.Width, gc.Height, gc.Width, gc.Height, gc.Width/2, gc.Height/2)
}

// generateSVGOutput writes mrp_schedule.svg
func generateSVGOutput(result *dto.RunResult, config Config) error {
	filename, err := outputPath(config, "mrp_schedule.svg")
	if err != nil {
		return err
	}
	svg := NewGanttChart(result).GenerateSVG(result)
	if err := os.WriteFile(filename, []byte(svg), 0644); err != nil {
		return fmt.Errorf("failed to write SVG file: %w", err)
	}
	if config.Verbose {
		fmt.Fprintf(config.Out, "💾 Schedule chart saved to: %s\n", filename)
	}
	return nil
}
