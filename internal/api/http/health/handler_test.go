package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/geofence-monitor/internal/domain/geofence"
)

type fakeStatus struct {
	status domain.Status
	fences int
}

func (f fakeStatus) Status() domain.Status { return f.status }
func (f fakeStatus) FenceCount() int       { return f.fences }

type fakeConnection bool

func (f fakeConnection) IsConnected() bool { return bool(f) }

type fakeSink bool

func (f fakeSink) IsClosed() bool { return bool(f) }

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func call(t *testing.T, h *Handler, path string) (int, map[string]any) {
	t.Helper()

	server := NewServer(":0", h)
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	return rec.Code, body
}

// TestHealth verifies the dependency verdicts.
func TestHealth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mqtt    Connection
		sink    Sink
		code    int
		overall string
		deps    map[string]any
	}{
		{
			name:    "mqtt up without sink",
			mqtt:    fakeConnection(true),
			code:    http.StatusOK,
			overall: "healthy",
			deps:    map[string]any{"mqtt": map[string]any{"status": "up"}},
		},
		{
			name:    "mqtt down",
			mqtt:    fakeConnection(false),
			code:    http.StatusServiceUnavailable,
			overall: "unhealthy",
			deps:    map[string]any{"mqtt": map[string]any{"status": "down", "error": "not connected"}},
		},
		{
			name:    "sink closed",
			mqtt:    fakeConnection(true),
			sink:    fakeSink(true),
			code:    http.StatusServiceUnavailable,
			overall: "unhealthy",
			deps: map[string]any{
				"mqtt":     map[string]any{"status": "up"},
				"rabbitmq": map[string]any{"status": "down", "error": "connection closed"},
			},
		},
		{
			name:    "all up",
			mqtt:    fakeConnection(true),
			sink:    fakeSink(false),
			code:    http.StatusOK,
			overall: "healthy",
			deps: map[string]any{
				"mqtt":     map[string]any{"status": "up"},
				"rabbitmq": map[string]any{"status": "up"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			code, body := call(t, NewHandler(fakeStatus{}, tt.mqtt, tt.sink), "/healthz")

			require.Equal(t, tt.code, code)
			require.Equal(t, tt.overall, body["status"])
			require.Equal(t, tt.deps, body["dependencies"])
		})
	}
}

// TestStatus verifies the monitoring status body.
func TestStatus(t *testing.T) {
	t.Parallel()

	code, body := call(t, NewHandler(fakeStatus{status: domain.Status{State: domain.StateActive}, fences: 3}, fakeConnection(true), nil), "/status")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, map[string]any{"state": "active", "fences": float64(3)}, body)

	failed := domain.Status{State: domain.StateFailed, Reason: "too many geofences registered"}

	_, body = call(t, NewHandler(fakeStatus{status: failed}, fakeConnection(true), nil), "/status")
	require.Equal(t, map[string]any{"state": "failed", "fences": float64(0), "reason": "too many geofences registered"}, body)
}
