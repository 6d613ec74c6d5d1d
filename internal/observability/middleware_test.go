package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danmuck/darling/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), RequestLogger(zerolog.Nop()), RequestMetricsMiddleware())
	r.GET("/backends/:name", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRequestIDIsEchoedOrMinted(t *testing.T) {
	testlog.Start(t)
	r := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/backends/npm", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if got := rr.Header().Get(HeaderRequestID); got != "abc-123" {
		t.Fatalf("expected echoed id, got %q", got)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/backends/npm", nil))
	if rr.Header().Get(HeaderRequestID) == "" {
		t.Fatalf("expected minted request id")
	}
}

func TestMetricsUseRouteTemplate(t *testing.T) {
	testlog.Start(t)
	r := newTestRouter()
	counter := httpRequests.WithLabelValues(http.MethodGet, "/backends/:name", "200")
	unmatched := httpRequests.WithLabelValues(http.MethodGet, unmatchedPath, "404")
	before, beforeUnmatched := testutil.ToFloat64(counter), testutil.ToFloat64(unmatched)

	for _, path := range []string{"/backends/npm", "/backends/brew", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Fatalf("expected 2 templated requests, got %v", got)
	}
	if got := testutil.ToFloat64(unmatched) - beforeUnmatched; got != 1 {
		t.Fatalf("expected 1 unmatched request, got %v", got)
	}
}
