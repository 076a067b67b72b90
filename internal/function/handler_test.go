package function

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/gravitas-games/factorylab/internal/adjust"
	"github.com/gravitas-games/factorylab/internal/dataset"
	"github.com/gravitas-games/factorylab/pkg/models"
)

func newHandler(t *testing.T) *Handler {
	t.Helper()
	d, err := dataset.Load(filepath.Join("..", "dataset", "testdata", "dataset.json"))
	if err != nil {
		t.Fatalf("Failed to load dataset: %v", err)
	}
	return New(d, adjust.New(adjust.DefaultConfig()))
}

func request(method, body string) events.LambdaFunctionURLRequest {
	var e events.LambdaFunctionURLRequest
	e.RequestContext.HTTP.Method = method
	e.Body = body
	return e
}

func TestHandleAdjust(t *testing.T) {
	h := newHandler(t)

	resp, err := h.Handle(context.Background(), request(http.MethodPost, `{"recipeIds": ["iron-gear-wheel"]}`))
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, resp.Body)
	}
	var result models.AdjustedDataset
	if err := json.Unmarshal([]byte(resp.Body), &result); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if len(result) != 1 || result["iron-gear-wheel"] == nil {
		t.Errorf("Expected only the gear recipe, got %v", result)
	}
}

func TestHandleAdjustEmptyBody(t *testing.T) {
	h := newHandler(t)

	resp, _ := h.Handle(context.Background(), request(http.MethodPost, ""))
	var result models.AdjustedDataset
	json.Unmarshal([]byte(resp.Body), &result)
	if resp.StatusCode != http.StatusOK || len(result) != 5 {
		t.Errorf("Expected every recipe, got %d with %d recipes", resp.StatusCode, len(result))
	}
}

func TestHandleAdjustBase64(t *testing.T) {
	h := newHandler(t)

	e := request(http.MethodPost, base64.StdEncoding.EncodeToString([]byte(`{"recipeIds": ["iron-ore"]}`)))
	e.IsBase64Encoded = true
	resp, _ := h.Handle(context.Background(), e)
	if resp.StatusCode != http.StatusOK || !strings.Contains(resp.Body, "iron-ore") {
		t.Errorf("Expected iron-ore result, got %d: %s", resp.StatusCode, resp.Body)
	}
}

func TestHandleErrors(t *testing.T) {
	h := newHandler(t)

	tests := []struct {
		name  string
		event events.LambdaFunctionURLRequest
		code  int
	}{
		{"invalid json", request(http.MethodPost, `{`), http.StatusBadRequest},
		{"unknown recipe", request(http.MethodPost, `{"recipeIds": ["nope"]}`), http.StatusNotFound},
		{"bad method", request(http.MethodDelete, ""), http.StatusMethodNotAllowed},
		{"missing machine", request(http.MethodGet, ""), http.StatusBadRequest},
	}

	bad := request(http.MethodPost, "%%%")
	bad.IsBase64Encoded = true
	tests = append(tests, struct {
		name  string
		event events.LambdaFunctionURLRequest
		code  int
	}{"bad base64", bad, http.StatusBadRequest})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := h.Handle(context.Background(), tt.event)
			if err != nil {
				t.Fatalf("Handle failed: %v", err)
			}
			if resp.StatusCode != tt.code {
				t.Errorf("Expected %d, got %d: %s", tt.code, resp.StatusCode, resp.Body)
			}
		})
	}
}

func TestHandleFuelOptions(t *testing.T) {
	h := newHandler(t)

	e := request(http.MethodGet, "")
	e.QueryStringParameters = map[string]string{"machine": "stone-furnace"}
	resp, _ := h.Handle(context.Background(), e)
	if resp.StatusCode != http.StatusOK || !strings.Contains(resp.Body, `"coal"`) {
		t.Errorf("Expected coal option, got %d: %s", resp.StatusCode, resp.Body)
	}

	e.QueryStringParameters["machine"] = "nope"
	resp, _ = h.Handle(context.Background(), e)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}
