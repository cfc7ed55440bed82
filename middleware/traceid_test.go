package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceID(t *testing.T) {
	r := gin.New()
	r.Use(TraceID())
	r.GET("/trace", func(c *gin.Context) {
		c.Header("X-Ctx-Trace", TraceIDFrom(c.Request.Context()))
		c.String(http.StatusOK, GetTraceID(c))
	})

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"none sent", "", false},
		{"reused from the shim", "shim-7f3a.reload_2", true},
		{"log injection replaced", "abc\nlevel=error", false},
		{"spaces replaced", "two words", false},
		{"too long replaced", strings.Repeat("a", maxTraceIDLen+1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/trace", nil)
			if tt.incoming != "" {
				req.Header[TraceIDHeader] = []string{tt.incoming}
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			require.Equal(t, http.StatusOK, w.Code)

			id := w.Body.String()
			if tt.keep {
				assert.Equal(t, tt.incoming, id)
			} else {
				_, err := uuid.Parse(id)
				assert.NoError(t, err, "expected a generated uuid, got %q", id)
			}
			assert.Equal(t, id, w.Header().Get(TraceIDHeader))
			assert.Equal(t, id, w.Header().Get("X-Ctx-Trace"))
		})
	}
}

func TestTraceIDFrom_Missing(t *testing.T) {
	assert.Equal(t, "", TraceIDFrom(context.Background()))
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, "", GetTraceID(c))
}
