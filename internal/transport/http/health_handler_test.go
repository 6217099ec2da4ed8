package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpipulse/internal/services"
	"hpipulse/internal/shared/testutil"
)

type stubDatasetStatus struct{ status services.DatasetStatus }

func (s stubDatasetStatus) Status() services.DatasetStatus { return s.status }

type stubClients int

func (c stubClients) ClientCount() int { return int(c) }

func TestHealthHandler_Endpoints(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	dataDir := t.TempDir()
	loaded := stubDatasetStatus{services.DatasetStatus{Loaded: true, Rows: 6}}

	tests := []struct {
		name           string
		service        *services.HealthService
		handlerFunc    func(h *HealthHandler) http.HandlerFunc
		expectedStatus int
		checkResponse  func(t *testing.T, body map[string]interface{})
	}{
		{
			name:           "health check",
			service:        services.NewHealthService("v1.0.0-test", "", dataDir, loaded, nil, logger),
			handlerFunc:    func(h *HealthHandler) http.HandlerFunc { return h.HealthCheck },
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "ok", body["status"])
				assert.Equal(t, "v1.0.0-test", body["version"])
				assert.Contains(t, body, "timestamp")
			},
		},
		{
			name:           "ready once the dataset is merged",
			service:        services.NewHealthService("v1.0.0-test", "", dataDir, loaded, nil, logger),
			handlerFunc:    func(h *HealthHandler) http.HandlerFunc { return h.ReadinessCheck },
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "ready", body["status"])
				assert.Contains(t, body, "services")
			},
		},
		{
			name:           "not ready before the first merge",
			service:        services.NewHealthService("v1.0.0-test", "", dataDir, stubDatasetStatus{}, nil, logger),
			handlerFunc:    func(h *HealthHandler) http.HandlerFunc { return h.ReadinessCheck },
			expectedStatus: http.StatusServiceUnavailable,
			checkResponse: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "not_ready", body["status"])
			},
		},
		{
			name:           "not ready without data directory",
			service:        services.NewHealthService("v1.0.0-test", "", filepath.Join(dataDir, "absent"), loaded, nil, logger),
			handlerFunc:    func(h *HealthHandler) http.HandlerFunc { return h.ReadinessCheck },
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "liveness",
			service:        services.NewHealthService("v1.0.0-test", "", dataDir, loaded, stubClients(2), logger),
			handlerFunc:    func(h *HealthHandler) http.HandlerFunc { return h.LivenessCheck },
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "alive", body["status"])
				runtime := body["runtime"].(map[string]interface{})
				assert.Equal(t, float64(2), runtime["websocket_clients"])
			},
		},
		{
			name:           "version",
			service:        services.NewHealthService("v1.0.0-test", "2025-06-01T00:00:00Z", dataDir, nil, nil, logger),
			handlerFunc:    func(h *HealthHandler) http.HandlerFunc { return h.Version },
			expectedStatus: http.StatusOK,
			checkResponse: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "v1.0.0-test", body["version"])
				assert.Equal(t, "2025-06-01T00:00:00Z", body["build_time"])
				assert.Contains(t, body, "go_version")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(tt.service, logger)

			rec := httptest.NewRecorder()
			tt.handlerFunc(handler)(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

			assert.Equal(t, tt.expectedStatus, rec.Code)

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			if tt.checkResponse != nil {
				tt.checkResponse(t, body)
			}
		})
	}
}
