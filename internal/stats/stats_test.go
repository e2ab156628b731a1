package stats

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsUpdater(t *testing.T) {
	mux := http.NewServeMux()
	su := NewStatsUpdater(mux)
	su.RegisterMetric(TotalMessages)
	su.Run()
	defer su.Stop()

	su.Incr(TotalMessages)
	su.Incr(TotalMessages)
	su.Decr(TotalMessages)

	// updates are applied by a background goroutine
	assert.Eventually(t, func() bool {
		v := su.vars.Get(TotalMessages)
		return v != nil && v.String() == "1"
	}, time.Second, 10*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/debug/vars", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, TotalMessages)
	assert.Contains(t, body, "Uptime")
}
