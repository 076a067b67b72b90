// Package function serves adjustments behind an AWS Lambda function URL.
package function

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/gravitas-games/factorylab/internal/adjust"
	"github.com/gravitas-games/factorylab/internal/fuel"
	"github.com/gravitas-games/factorylab/pkg/models"
)

var jsonHeader = map[string]string{
	"Content-Type": "application/json",
}

// Handler answers function URL requests against one dataset.
// POST adjusts the posted request; GET ?machine=<id> lists fuel options.
type Handler struct {
	dataset  *models.Dataset
	adjuster *adjust.Adjuster
}

// New creates a handler
func New(d *models.Dataset, adj *adjust.Adjuster) *Handler {
	return &Handler{dataset: d, adjuster: adj}
}

// Handle is the Lambda entry point
func (h *Handler) Handle(ctx context.Context, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	switch event.RequestContext.HTTP.Method {
	case http.MethodGet:
		return h.fuelOptions(event)
	case http.MethodPost, "":
		return h.adjust(ctx, event)
	default:
		return errResp(http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) adjust(ctx context.Context, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	body := event.Body
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return errResp(http.StatusBadRequest, "invalid base64 body")
		}
		body = string(decoded)
	}

	var req adjust.Request
	if body != "" {
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			return errResp(http.StatusBadRequest, "invalid JSON: "+err.Error())
		}
	}

	result, err := h.adjuster.AdjustDataset(ctx, req, h.dataset)
	if errors.Is(err, adjust.ErrUnknownRecipe) {
		return errResp(http.StatusNotFound, err.Error())
	}
	if err != nil {
		log.Printf("Adjustment failed: %v", err)
		return errResp(http.StatusInternalServerError, "adjustment failed")
	}
	return jsonResp(http.StatusOK, result)
}

func (h *Handler) fuelOptions(event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	id := event.QueryStringParameters["machine"]
	if id == "" {
		return errResp(http.StatusBadRequest, "missing machine parameter")
	}
	machine, ok := h.dataset.Machines[id]
	if !ok {
		return errResp(http.StatusNotFound, fmt.Sprintf("machine %s not found", id))
	}
	return jsonResp(http.StatusOK, map[string]interface{}{
		"machine": id,
		"options": fuel.Options(machine, h.dataset),
	})
}

func jsonResp(code int, v interface{}) (events.LambdaFunctionURLResponse, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return events.LambdaFunctionURLResponse{}, fmt.Errorf("failed to encode response: %w", err)
	}
	return events.LambdaFunctionURLResponse{StatusCode: code, Headers: jsonHeader, Body: string(body)}, nil
}

func errResp(code int, msg string) (events.LambdaFunctionURLResponse, error) {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return events.LambdaFunctionURLResponse{StatusCode: code, Headers: jsonHeader, Body: string(body)}, nil
}
