package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// withRequestID mimics the request ID middleware that normally runs
// before GinMiddleware.
func withRequestID(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("request_id", id)
		c.Next()
	}
}

func TestGinMiddleware(t *testing.T) {
	t.Run("logs completed request at info", func(t *testing.T) {
		l, logs := newObservedLogger()

		router := gin.New()
		router.Use(withRequestID("req-gin-1"), GinMiddleware(l))
		router.GET("/accounts", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": true})
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/accounts?status=ACTIVE", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, "http request", entry.Message)
		assert.Equal(t, zapcore.InfoLevel, entry.Level)

		fields := entry.ContextMap()
		assert.Equal(t, "req-gin-1", fields["request_id"])
		assert.Equal(t, http.MethodGet, fields["method"])
		assert.Equal(t, "/accounts", fields["path"])
		assert.Equal(t, int64(http.StatusOK), fields["status"])
		assert.Equal(t, "status=ACTIVE", fields["query"])
		assert.Contains(t, fields, "latency")
		assert.Contains(t, fields, "client_ip")
	})

	t.Run("client errors log at warn", func(t *testing.T) {
		l, logs := newObservedLogger()

		router := gin.New()
		router.Use(GinMiddleware(l))
		router.GET("/loans/:id", func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/loans/unknown", nil))

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, zapcore.WarnLevel, logs.All()[0].Level)
	})

	t.Run("server errors log at error", func(t *testing.T) {
		l, logs := newObservedLogger()

		router := gin.New()
		router.Use(GinMiddleware(l))
		router.GET("/broken", func(c *gin.Context) {
			c.Status(http.StatusInternalServerError)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/broken", nil))

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
	})

	t.Run("plants logger and request ID in request context", func(t *testing.T) {
		l, _ := newObservedLogger()

		var idInCtx string
		var handlerLogger *zap.Logger

		router := gin.New()
		router.Use(withRequestID("req-gin-2"), GinMiddleware(l))
		router.GET("/probe", func(c *gin.Context) {
			idInCtx = GetRequestID(c.Request.Context())
			handlerLogger = GetGinLogger(c)
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", nil))

		assert.Equal(t, "req-gin-2", idInCtx)
		require.NotNil(t, handlerLogger)
	})

	t.Run("gin errors appear in the log entry", func(t *testing.T) {
		l, logs := newObservedLogger()

		router := gin.New()
		router.Use(GinMiddleware(l))
		router.GET("/fail", func(c *gin.Context) {
			_ = c.Error(assert.AnError)
			c.Status(http.StatusUnprocessableEntity)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))

		require.Equal(t, 1, logs.Len())
		assert.Contains(t, logs.All()[0].ContextMap(), "errors")
	})
}

func TestRecovery(t *testing.T) {
	l, logs := newObservedLogger()

	router := gin.New()
	router.Use(withRequestID("req-panic-1"), Recovery(l))
	router.GET("/panic", func(c *gin.Context) {
		panic("ledger exploded")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "panic recovered", entry.Message)
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)

	fields := entry.ContextMap()
	assert.Equal(t, "req-panic-1", fields["request_id"])
	assert.Equal(t, "/panic", fields["path"])
	assert.Equal(t, "ledger exploded", fields["error"])
}

func TestGetGinLogger(t *testing.T) {
	t.Run("without middleware returns no-op", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		l := GetGinLogger(c)
		require.NotNil(t, l)
		l.Info("dropped")
	})

	t.Run("non-logger value returns no-op", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set("logger", "not a logger")
		require.NotNil(t, GetGinLogger(c))
	})
}
