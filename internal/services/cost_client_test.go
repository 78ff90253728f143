package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geovisor-service/internal/config"
	"geovisor-service/internal/models"
)

func testRequest() models.CalculationRequest {
	return models.CalculationRequest{
		LocalityCode: "221005",
		CropID:       1,
		Hectares:     12.5,
		YearStart:    1,
		YearEnd:      8,
		Sistema:      models.SystemSquare,
		RowDistance:  3,
		LaborCost:    50,
		SeedlingCost: 0.80,
	}
}

func newTestClient(url string) *CostClient {
	return NewCostClient(config.CostingConfig{BaseURL: url, Timeout: "5s"})
}

func TestCalculateRelaysResultBody(t *testing.T) {
	var got models.CalculationRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/calculate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"total_cost": 45210.50, "per_year": []}`))
	}))
	defer srv.Close()

	result, err := newTestClient(srv.URL).Calculate(context.Background(), testRequest())
	require.NoError(t, err)
	assert.JSONEq(t, `{"total_cost": 45210.50, "per_year": []}`, string(result.Detail))
	assert.Equal(t, "221005", got.LocalityCode)
	assert.Equal(t, 12.5, got.Hectares)
}

func TestCalculateSurfacesRemoteValidationMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail": "year_end exceeds the crop rotation"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Calculate(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "badrequest")
	assert.Contains(t, err.Error(), "year_end exceeds the crop rotation")
}

func TestCalculateHidesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "pq: relation costs does not exist"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Calculate(context.Background(), testRequest())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "pq:")
	assert.Contains(t, err.Error(), "unreachable")
}

func TestCalculateUnreachableService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := newTestClient(srv.URL).Calculate(context.Background(), testRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable")
}
