package obs

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(logger *slog.Logger) (*gin.Engine, *string) {
	gin.SetMode(gin.TestMode)
	mw := Middleware{Logger: logger}
	router := gin.New()
	router.Use(mw.RequestID())
	router.Use(mw.LoggerMiddleware())
	var seen string
	router.GET("/ping", func(c *gin.Context) {
		seen = RequestIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})
	return router, &seen
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	router, seen := newRouter(nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/ping", nil))

	header := recorder.Header().Get("X-Request-ID")
	require.NotEmpty(t, header)
	assert.Equal(t, header, *seen)
}

func TestRequestIDFromCallerIsKept(t *testing.T) {
	router, seen := newRouter(nil)
	request := httptest.NewRequest(http.MethodGet, "/ping", nil)
	request.Header.Set("X-Request-ID", "req-42")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	assert.Equal(t, "req-42", recorder.Header().Get("X-Request-ID"))
	assert.Equal(t, "req-42", *seen)
}

func TestRequestLogCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	router, _ := newRouter(logger)

	request := httptest.NewRequest(http.MethodGet, "/ping", nil)
	request.Header.Set("X-Request-ID", "req-99")
	router.ServeHTTP(httptest.NewRecorder(), request)

	assert.Contains(t, buf.String(), "request_id=req-99")
}

func TestRequestIDFromContextWithoutMiddleware(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/ping", nil)
	assert.Empty(t, RequestIDFromContext(request.Context()))
}
