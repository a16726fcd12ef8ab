package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestAPIKeyMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		key      string
		provided string
		query    string
		want     int
	}{
		{"disabled", "", "", "", http.StatusOK},
		{"disabled ignores header", "", "anything", "", http.StatusOK},
		{"missing", "secret", "", "", http.StatusUnauthorized},
		{"wrong", "secret", "guess", "", http.StatusForbidden},
		{"valid", "secret", "secret", "", http.StatusOK},
		{"query parameter", "secret", "", "?api_key=secret", http.StatusOK},
		{"wrong query parameter", "secret", "", "?api_key=guess", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(APIKeyMiddleware(tt.key))
			r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
			if tt.provided != "" {
				req.Header.Set(headerName, tt.provided)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
