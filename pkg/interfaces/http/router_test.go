package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vsinha/mfgplan/pkg/application/services/capacity"
	"github.com/vsinha/mfgplan/pkg/application/services/criticalpath"
	"github.com/vsinha/mfgplan/pkg/application/services/explosion"
	"github.com/vsinha/mfgplan/pkg/application/services/mrp"
	"github.com/vsinha/mfgplan/pkg/application/services/recommendation"
	"github.com/vsinha/mfgplan/pkg/infrastructure/cache/memorystore"
	"github.com/vsinha/mfgplan/pkg/infrastructure/events"
	testhelpers "github.com/vsinha/mfgplan/pkg/infrastructure/testing"
	"github.com/vsinha/mfgplan/pkg/interfaces/http/handlers"
	"github.com/vsinha/mfgplan/pkg/interfaces/http/response"
)

// monday is 2025-03-03
var monday = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	now := func() time.Time { return monday.Add(8 * time.Hour) }
	var seq int64
	newID := func() string { return fmt.Sprintf("id-%04d", atomic.AddInt64(&seq, 1)) }

	s := testhelpers.BuildBicycleScenario(monday)
	store := events.NewInMemoryEventStoreWithClock(now, nil)

	engine := explosion.NewEngineWithConfig(explosion.EngineConfig{Clock: now}, s.BOMs, s.Products, s.Converter, nil)
	cache := explosion.NewCache(memorystore.New(), explosion.CacheConfig{}, nil)
	explosions := explosion.NewService(engine, cache, nil)
	calendar := capacity.NewCalendarWithConfig(capacity.Config{Clock: now}, s.Capacity, s.Capacity, s.Capacity, nil)

	config := mrp.DefaultEngineConfig()
	config.Clock = now
	config.NewID = newID
	svc := mrp.NewMRPServiceWithConfig(config, mrp.Dependencies{
		Products:        s.Products,
		BOMs:            s.BOMs,
		Routings:        s.Capacity,
		Stock:           s.Stock,
		Demand:          s.Demand,
		Runs:            s.Runs,
		Recommendations: s.Runs,
		Converter:       s.Converter,
		Explosions:      explosions,
		Capacity:        calendar,
		Events:          store,
	}, nil)
	t.Cleanup(func() { _ = svc.Wait() })

	paths := criticalpath.NewServiceWithConfig(criticalpath.Config{Clock: now},
		s.Products, s.BOMs, s.Capacity, s.Stock, s.Converter, nil)
	h := handlers.NewHandlers(handlers.Services{
		MRP:             svc,
		Runs:            s.Runs,
		Recommendations: s.Runs,
		Explosions:      explosions,
		Capacity:        calendar,
		Ledger:          recommendation.NewLedgerWithConfig(recommendation.Config{Clock: now}, s.Runs, store, nil),
		Paths:           paths,
		Clock:           now,
	}, nil)
	return NewRouter(h, nil)
}

func do(t *testing.T, r *gin.Engine, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: invalid envelope %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, env
}

func decode(t *testing.T, raw json.RawMessage, into interface{}) {
	t.Helper()
	if err := json.Unmarshal(raw, into); err != nil {
		t.Fatalf("Unmarshal %s failed: %v", string(raw), err)
	}
}

func createRun(t *testing.T, r *gin.Engine) string {
	t.Helper()
	status, env := do(t, r, http.MethodPost, "/api/v1/mrp/runs", gin.H{
		"horizon_start": "2025-03-03",
		"horizon_end":   "2025-04-01",
		"options":       gin.H{"respect_lead_times": true},
		"created_by":    "planner",
	})
	if status != http.StatusCreated || env.Code != 0 {
		t.Fatalf("Expected 201, got %d %+v", status, env)
	}
	var run struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decode(t, env.Data, &run)
	if run.Status != "completed" {
		t.Fatalf("Expected completed run, got %s", run.Status)
	}
	return run.ID
}

func TestRunEndpoints(t *testing.T) {
	r := setupRouter(t)
	runID := createRun(t, r)

	status, env := do(t, r, http.MethodGet, "/api/v1/mrp/runs/"+runID+"/progress", nil)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	var progress struct {
		PercentComplete          int `json:"percent_complete"`
		RecommendationsGenerated int `json:"recommendations_generated"`
	}
	decode(t, env.Data, &progress)
	if progress.PercentComplete != 100 || progress.RecommendationsGenerated == 0 {
		t.Errorf("Unexpected progress: %+v", progress)
	}

	status, env = do(t, r, http.MethodGet, "/api/v1/mrp/runs/"+runID+"/recommendations?status=pending", nil)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	var list struct {
		Items []struct {
			ProductID string `json:"product_id"`
		} `json:"items"`
		Summary struct {
			Total int `json:"total"`
		} `json:"summary"`
	}
	decode(t, env.Data, &list)
	if len(list.Items) != progress.RecommendationsGenerated || list.Summary.Total != len(list.Items) {
		t.Errorf("Expected %d pending recommendations, got %d", progress.RecommendationsGenerated, len(list.Items))
	}

	// a completed run cannot be cancelled
	status, env = do(t, r, http.MethodPost, "/api/v1/mrp/runs/"+runID+"/cancel", nil)
	if status != http.StatusConflict || env.Code != response.CodeConflict {
		t.Errorf("Expected 409, got %d %+v", status, env)
	}

	status, _ = do(t, r, http.MethodGet, "/api/v1/mrp/runs", nil)
	if status != http.StatusOK {
		t.Errorf("Expected 200 listing runs, got %d", status)
	}
}

func TestRunEndpoints_Errors(t *testing.T) {
	r := setupRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"unknown run", http.MethodGet, "/api/v1/mrp/runs/nope", nil, http.StatusNotFound},
		{"unknown run progress", http.MethodGet, "/api/v1/mrp/runs/nope/progress", nil, http.StatusNotFound},
		{"unknown run recommendations", http.MethodGet, "/api/v1/mrp/runs/nope/recommendations", nil, http.StatusNotFound},
		{"bad date", http.MethodPost, "/api/v1/mrp/runs", gin.H{"horizon_start": "03/03/2025"}, http.StatusBadRequest},
		{"inverted horizon", http.MethodPost, "/api/v1/mrp/runs", gin.H{"horizon_start": "2025-03-10", "horizon_end": "2025-03-01"}, http.StatusBadRequest},
		{"bad make or buy", http.MethodPost, "/api/v1/mrp/runs", gin.H{"filters": gin.H{"make_or_buy": "lease"}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := do(t, r, tt.method, tt.path, tt.body)
			if status != tt.status {
				t.Errorf("Expected %d, got %d (%s)", tt.status, status, env.Message)
			}
			if env.Code != status*100 {
				t.Errorf("Expected envelope code %d, got %d", status*100, env.Code)
			}
		})
	}
}

func TestRunEndpoints_Async(t *testing.T) {
	r := setupRouter(t)

	status, env := do(t, r, http.MethodPost, "/api/v1/mrp/runs", gin.H{"horizon_start": "2025-03-03", "async": true})
	if status != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", status)
	}
	var run struct {
		ID string `json:"id"`
	}
	decode(t, env.Data, &run)
	if run.ID == "" {
		t.Fatal("Expected run id")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		status, env = do(t, r, http.MethodGet, "/api/v1/mrp/runs/"+run.ID+"/progress", nil)
		if status != http.StatusOK {
			t.Fatalf("Expected 200, got %d", status)
		}
		var progress struct {
			Status string `json:"status"`
		}
		decode(t, env.Data, &progress)
		if progress.Status == "completed" {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("Run still %s after deadline", progress.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRecommendationEndpoints(t *testing.T) {
	r := setupRouter(t)
	runID := createRun(t, r)

	_, env := do(t, r, http.MethodGet, "/api/v1/mrp/runs/"+runID+"/recommendations", nil)
	var list struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	decode(t, env.Data, &list)
	if len(list.Items) < 2 {
		t.Fatalf("Expected at least 2 recommendations, got %d", len(list.Items))
	}
	first, second := list.Items[0].ID, list.Items[1].ID

	steps := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"approve", http.MethodPost, "/api/v1/recommendations/" + first + "/approve", gin.H{"approved_by": "planner"}, http.StatusOK},
		{"approve twice", http.MethodPost, "/api/v1/recommendations/" + first + "/approve", gin.H{"approved_by": "planner"}, http.StatusConflict},
		{"approve without approver", http.MethodPost, "/api/v1/recommendations/" + second + "/approve", gin.H{}, http.StatusBadRequest},
		{"action", http.MethodPost, "/api/v1/recommendations/" + first + "/action", gin.H{"reference_type": "purchase_order", "reference_id": "PO-1"}, http.StatusOK},
		{"correct reference", http.MethodPut, "/api/v1/recommendations/" + first + "/reference", gin.H{"reference_type": "purchase_order", "reference_id": "PO-2"}, http.StatusOK},
		{"reject actioned", http.MethodPost, "/api/v1/recommendations/" + first + "/reject", gin.H{"notes": "late"}, http.StatusConflict},
		{"expire pending", http.MethodPost, "/api/v1/recommendations/" + second + "/expire", nil, http.StatusOK},
		{"unknown", http.MethodPost, "/api/v1/recommendations/nope/reject", nil, http.StatusNotFound},
	}
	for _, step := range steps {
		status, env := do(t, r, step.method, step.path, step.body)
		if status != step.status {
			t.Errorf("%s: expected %d, got %d (%s)", step.name, step.status, status, env.Message)
		}
	}
}

func TestRecommendationEndpoints_Bulk(t *testing.T) {
	r := setupRouter(t)
	runID := createRun(t, r)

	_, env := do(t, r, http.MethodGet, "/api/v1/mrp/runs/"+runID+"/recommendations", nil)
	var list struct {
		Items []struct {
			ID string `json:"id"`
		} `json:"items"`
	}
	decode(t, env.Data, &list)
	ids := []string{"nope"}
	for _, item := range list.Items {
		ids = append(ids, item.ID)
	}

	status, env := do(t, r, http.MethodPost, "/api/v1/recommendations/bulk/approve", gin.H{"ids": ids, "approved_by": "planner"})
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	var result struct {
		Requested int               `json:"requested"`
		Succeeded int               `json:"succeeded"`
		Failed    map[string]string `json:"failed"`
	}
	decode(t, env.Data, &result)
	if result.Requested != len(ids) || result.Succeeded != len(ids)-1 {
		t.Errorf("Expected %d of %d approved, got %+v", len(ids)-1, len(ids), result)
	}
	if _, ok := result.Failed["nope"]; !ok {
		t.Errorf("Expected unknown id in failures, got %v", result.Failed)
	}

	status, env = do(t, r, http.MethodPost, "/api/v1/recommendations/bulk/reject", gin.H{"ids": ids[1:], "notes": "replanned"})
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	decode(t, env.Data, &result)
	if result.Succeeded != len(ids)-1 {
		t.Errorf("Expected every approved recommendation rejected, got %+v", result)
	}

	status, _ = do(t, r, http.MethodPost, "/api/v1/recommendations/bulk/reject", gin.H{"ids": []string{}})
	if status != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty ids, got %d", status)
	}
}

func TestBOMEndpoints(t *testing.T) {
	r := setupRouter(t)

	tests := []struct {
		name      string
		path      string
		status    int
		structure string
		aggregate bool
	}{
		{"default shape of multi-level bom", "/api/v1/boms/B-BIKE/explosion?quantity=10", http.StatusOK, "tree", false},
		{"flat aggregated", "/api/v1/boms/B-BIKE/explosion?quantity=10&aggregate=true", http.StatusOK, "flat", true},
		{"default shape of single-level bom", "/api/v1/boms/B-FRAME/explosion", http.StatusOK, "flat", true},
		{"unknown bom", "/api/v1/boms/NOPE/explosion", http.StatusNotFound, "", false},
		{"bad quantity", "/api/v1/boms/B-BIKE/explosion?quantity=-1", http.StatusBadRequest, "", false},
		{"bad depth", "/api/v1/boms/B-BIKE/explosion?max_depth=zero", http.StatusBadRequest, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := do(t, r, http.MethodGet, tt.path, nil)
			if status != tt.status {
				t.Fatalf("Expected %d, got %d (%s)", tt.status, status, env.Message)
			}
			if status != http.StatusOK {
				return
			}
			var result struct {
				Structure  string `json:"structure"`
				Aggregated bool   `json:"aggregated"`
			}
			decode(t, env.Data, &result)
			if result.Structure != tt.structure || result.Aggregated != tt.aggregate {
				t.Errorf("Expected %s/%v, got %s/%v", tt.structure, tt.aggregate, result.Structure, result.Aggregated)
			}
		})
	}

	status, _ := do(t, r, http.MethodPost, "/api/v1/boms/B-BIKE/invalidate", nil)
	if status != http.StatusOK {
		t.Errorf("Expected 200 invalidating, got %d", status)
	}
}

func TestProductEndpoints(t *testing.T) {
	r := setupRouter(t)

	tests := []struct {
		name      string
		path      string
		status    int
		paths     int
		effective int
	}{
		{"bike", "/api/v1/products/BIKE/critical-path?quantity=10", http.StatusOK, 3, 6},
		{"top two", "/api/v1/products/BIKE/critical-path?quantity=10&top=2", http.StatusOK, 2, 6},
		{"purchased item", "/api/v1/products/WHEEL/critical-path?quantity=8", http.StatusOK, 1, 1},
		{"unknown product", "/api/v1/products/NOPE/critical-path", http.StatusNotFound, 0, 0},
		{"bad quantity", "/api/v1/products/BIKE/critical-path?quantity=abc", http.StatusBadRequest, 0, 0},
		{"bad top", "/api/v1/products/BIKE/critical-path?top=0", http.StatusBadRequest, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := do(t, r, http.MethodGet, tt.path, nil)
			if status != tt.status {
				t.Fatalf("Expected %d, got %d (%s)", tt.status, status, env.Message)
			}
			if status != http.StatusOK {
				return
			}
			var result struct {
				TopPaths     []json.RawMessage `json:"top_paths"`
				CriticalPath struct {
					EffectiveLeadTime int `json:"effective_lead_time"`
				} `json:"critical_path"`
			}
			decode(t, env.Data, &result)
			if len(result.TopPaths) != tt.paths {
				t.Errorf("Expected %d paths, got %d", tt.paths, len(result.TopPaths))
			}
			if result.CriticalPath.EffectiveLeadTime != tt.effective {
				t.Errorf("Expected %d effective days, got %d", tt.effective, result.CriticalPath.EffectiveLeadTime)
			}
		})
	}
}

func TestWorkCenterEndpoints(t *testing.T) {
	r := setupRouter(t)

	status, env := do(t, r, http.MethodGet, "/api/v1/work-centers/ASSEMBLY/capacity?from=2025-03-03&to=2025-03-09", nil)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%s)", status, env.Message)
	}
	var view struct {
		AvailableHours string            `json:"available_hours"`
		Days           []json.RawMessage `json:"days"`
	}
	decode(t, env.Data, &view)
	if view.AvailableHours != "40" || len(view.Days) != 7 {
		t.Errorf("Expected 40 hours over 7 days, got %s over %d", view.AvailableHours, len(view.Days))
	}

	status, env = do(t, r, http.MethodGet, "/api/v1/work-centers/ASSEMBLY/next-slot?hours=20&from=2025-03-03", nil)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	var next struct {
		Found bool `json:"found"`
		Slot  struct {
			End time.Time `json:"end"`
		} `json:"slot"`
	}
	decode(t, env.Data, &next)
	if !next.Found || !next.Slot.End.Equal(monday.AddDate(0, 0, 2)) {
		t.Errorf("Expected slot ending 2025-03-05, got %+v", next)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"unknown work center", http.MethodGet, "/api/v1/work-centers/NOPE/capacity", nil, http.StatusNotFound},
		{"inverted range", http.MethodGet, "/api/v1/work-centers/ASSEMBLY/capacity?from=2025-03-09&to=2025-03-03", nil, http.StatusBadRequest},
		{"missing hours", http.MethodGet, "/api/v1/work-centers/ASSEMBLY/next-slot", nil, http.StatusBadRequest},
		{"generate calendar", http.MethodPost, "/api/v1/work-centers/ASSEMBLY/calendar", gin.H{
			"from": "2025-06-02", "to": "2025-06-08", "shift_start": "07:00", "shift_end": "15:30", "break_hours": "0.5",
		}, http.StatusCreated},
		{"bad shift", http.MethodPost, "/api/v1/work-centers/ASSEMBLY/calendar", gin.H{
			"from": "2025-06-02", "to": "2025-06-08", "shift_start": "15:00", "shift_end": "07:00",
		}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := do(t, r, tt.method, tt.path, tt.body)
			if status != tt.status {
				t.Errorf("Expected %d, got %d (%s)", tt.status, status, env.Message)
			}
		})
	}

	status, env = do(t, r, http.MethodGet, "/api/v1/work-centers/ASSEMBLY/capacity?from=2025-06-02&to=2025-06-08", nil)
	if status != http.StatusOK {
		t.Fatalf("Expected 200, got %d", status)
	}
	decode(t, env.Data, &view)
	if view.AvailableHours != "40" {
		t.Errorf("Expected 5 shifts of 8 hours, got %s", view.AvailableHours)
	}
}

func TestHealthcheck(t *testing.T) {
	r := setupRouter(t)
	status, env := do(t, r, http.MethodGet, "/healthcheck", nil)
	if status != http.StatusOK || env.Code != 0 {
		t.Errorf("Expected healthy, got %d %+v", status, env)
	}
}
