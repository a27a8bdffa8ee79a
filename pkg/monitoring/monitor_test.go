package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	Init()
	Init()

	r := gin.New()
	r.Use(MetricsMiddleware())
	r.GET("/api/attempts/:attemptId", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", PrometheusHandler())

	before := testutil.ToFloat64(RequestCounter.WithLabelValues(http.MethodGet, "/api/attempts/:attemptId", "200"))
	for _, path := range []string{"/api/attempts/a", "/api/attempts/b", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	after := testutil.ToFloat64(RequestCounter.WithLabelValues(http.MethodGet, "/api/attempts/:attemptId", "200"))
	if after-before != 2 {
		t.Errorf("route counter grew by %v, want 2", after-before)
	}
	if got := testutil.ToFloat64(RequestCounter.WithLabelValues(http.MethodGet, "unmatched", "404")); got < 1 {
		t.Errorf("unmatched counter = %v", got)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), "course_quiz_http_requests_total") {
		t.Error("metrics endpoint does not expose request counter")
	}
}
