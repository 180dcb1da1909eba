package clients

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roouty-platform/dynamic-engine/internal/vrp"
	apperrors "github.com/roouty-platform/dynamic-engine/pkg/errors"
	"github.com/roouty-platform/dynamic-engine/pkg/logging"
)

func testLogger() *logging.Logger {
	return logging.New(&logging.Config{
		Level:       logging.LevelError,
		ServiceName: "test",
		Output:      io.Discard,
	})
}

func TestSolverClient_Solve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req vrp.Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Jobs, 1)
		assert.Len(t, req.Vehicles, 1)
		assert.True(t, req.DistributeOptions.CustomMatrix.Enabled)

		json.NewEncoder(w).Encode(vrp.Response{
			Routes: []vrp.Route{{
				Vehicle: 10000,
				Steps: []vrp.Step{
					{Type: vrp.StepTypeStart, Arrival: 36000},
					{Type: vrp.StepTypeJob, ID: 3, Arrival: 37000, Distance: 1200},
					{Type: vrp.StepTypeEnd, Arrival: 43000, Distance: 5200},
				},
			}},
			Unassigned: []vrp.Unassigned{{ID: 7}},
		})
	}))
	defer server.Close()

	client := NewSolverClient(SolverClientConfig{BaseURL: server.URL}, testLogger(), nil)

	resp, err := client.Solve(context.Background(), &vrp.Request{
		Jobs:     []vrp.Job{{ID: 3}},
		Vehicles: []vrp.Vehicle{{ID: 10000}},
		DistributeOptions: vrp.DistributeOptions{
			MaxVehicleWorkTime: 86400,
			CustomMatrix:       vrp.CustomMatrix{Enabled: true},
		},
	})

	require.NoError(t, err)
	require.Len(t, resp.Routes, 1)
	assert.Equal(t, 10000, resp.Routes[0].Vehicle)
	assert.Len(t, resp.Routes[0].Steps, 3)
	assert.Equal(t, float64(5200), resp.Routes[0].Steps[2].Distance)
	require.Len(t, resp.Unassigned, 1)
	assert.Equal(t, 7, resp.Unassigned[0].ID)
}

func TestSolverClient_UpstreamErrorCarriesPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "solver blew up")
	}))
	defer server.Close()

	client := NewSolverClient(SolverClientConfig{BaseURL: server.URL}, testLogger(), nil)

	_, err := client.Solve(context.Background(), &vrp.Request{})
	require.Error(t, err)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeUpstreamError, appErr.Code)
	assert.Equal(t, "solver blew up", appErr.Details["payload"])
}

func TestSolverClient_UndecodableResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "not json")
	}))
	defer server.Close()

	client := NewSolverClient(SolverClientConfig{BaseURL: server.URL}, testLogger(), nil)

	_, err := client.Solve(context.Background(), &vrp.Request{})
	require.Error(t, err)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeUpstreamError, appErr.Code)
}
