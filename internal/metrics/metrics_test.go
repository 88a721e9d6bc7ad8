package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAreExposed(t *testing.T) {
	JobRuns.WithLabelValues("fetch-users", "success").Inc()
	Rows.WithLabelValues("fetch-users", "created").Add(3)

	assert.Equal(t, 3.0, testutil.ToFloat64(Rows.WithLabelValues("fetch-users", "created")))

	e := echo.New()
	e.GET("/metrics", echoprometheus.NewHandler())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "usersupplement_job_runs_total"), "metrics body lacks job counter")
	assert.True(t, strings.Contains(body, `usersupplement_job_rows_total{job="fetch-users",kind="created"} 3`))
}
