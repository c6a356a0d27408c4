package healthcheck

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/syncstack/follower/runtime"
	"github.com/syncstack/follower/shared/testutil/assert"
	"github.com/syncstack/follower/shared/testutil/require"
)

type healthyService struct{}

func (_ *healthyService) Start()        {}
func (_ *healthyService) Stop() error   { return nil }
func (_ *healthyService) Status() error { return nil }

type failingService struct{}

func (_ *failingService) Start()      {}
func (_ *failingService) Stop() error { return nil }
func (_ *failingService) Status() error {
	return errors.New("replication stalled")
}

func TestHealthHandler_AllHealthy(t *testing.T) {
	registry := runtime.NewServiceRegistry()
	require.NoError(t, registry.RegisterService(&healthyService{}))

	s := NewService(&Config{Port: 0, SlowTimeLimit: time.Second, HardTimeLimit: 2 * time.Second}, registry)
	rr := httptest.NewRecorder()
	s.healthHandler(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, len(rr.Body.String()) > 0, "expected a status line per service")
}

func TestHealthHandler_FailingService(t *testing.T) {
	registry := runtime.NewServiceRegistry()
	require.NoError(t, registry.RegisterService(&healthyService{}))
	require.NoError(t, registry.RegisterService(&failingService{}))

	s := NewService(&Config{Port: 0}, registry)
	rr := httptest.NewRecorder()
	s.healthHandler(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, true, len(rr.Body.String()) > 0)
}
