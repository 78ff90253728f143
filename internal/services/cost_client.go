package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"geovisor-service/internal/config"
	"geovisor-service/internal/models"
)

// CostClient talks to the remote cost-calculation service. The result body
// is opaque to this service and relayed untouched.
type CostClient struct {
	baseURL string
	client  *http.Client
}

func NewCostClient(cfg config.CostingConfig) *CostClient {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil || timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &CostClient{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Calculate submits the assembled request. A 4xx answer carries the remote
// service's own validation message and is surfaced verbatim; transport
// failures and 5xx answers collapse into one generic connectivity error so
// internals never leak to the user.
func (c *CostClient) Calculate(ctx context.Context, req models.CalculationRequest) (*models.CalculationResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode calculation request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/calculate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create calculation request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		slog.Error("cost service request failed", "error", err)
		return nil, fmt.Errorf("cost calculation service is unreachable")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read calculation response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		slog.Info("cost calculation completed",
			"locality_code", req.LocalityCode,
			"hectares", req.Hectares,
			"duration", time.Since(start))
		return &models.CalculationResult{Detail: respBody}, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, fmt.Errorf("badrequest: %s", remoteDetail(respBody))
	default:
		slog.Error("cost service returned server error",
			"status", resp.StatusCode,
			"body", string(respBody))
		return nil, fmt.Errorf("cost calculation service is unreachable")
	}
}

// remoteDetail pulls the human message out of the remote error envelope,
// falling back to the raw body.
func remoteDetail(body []byte) string {
	var envelope struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Detail != "" {
			return envelope.Detail
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	return string(body)
}
