package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/vsinha/mfgplan/pkg/domain/entities"
)

func TestCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"missing bom", &entities.BOMNotFoundError{BOMID: "B-1"}, CodeNotFound},
		{"missing run", fmt.Errorf("load: %w", entities.ErrRunNotFound), CodeNotFound},
		{"bad transition", &entities.InvalidTransitionError{Entity: "recommendation", ID: "R1", From: "actioned", To: "rejected"}, CodeConflict},
		{"cycle", &entities.CyclicBOMError{Path: []string{"B-1", "B-2", "B-1"}}, CodeUnprocessable},
		{"other", errors.New("disk full"), CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeFor(tt.err); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestFromError_StatusFollowsCode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	FromError(c, entities.ErrRecommendationMissing)

	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", w.Code)
	}
	var body Response
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if body.Code != CodeNotFound || body.Message != "recommendation not found" {
		t.Errorf("Unexpected envelope: %+v", body)
	}
}
