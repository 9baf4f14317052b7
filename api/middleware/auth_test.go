package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(keys []string) *gin.Engine {
	r := gin.New()
	r.Use(Auth(keys))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("api_key")) })
	return r
}

func TestAuth(t *testing.T) {
	tests := []struct {
		name    string
		keys    []string
		headers map[string]string
		want    int
	}{
		{"no keys configured", nil, nil, http.StatusOK},
		{"blank keys ignored", []string{""}, nil, http.StatusOK},
		{"missing key", []string{"secret"}, nil, http.StatusUnauthorized},
		{"wrong key", []string{"secret"}, map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"x-api-key", []string{"secret"}, map[string]string{"X-API-Key": "secret"}, http.StatusOK},
		{"bearer", []string{"other", "secret"}, map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
		{"basic scheme rejected", []string{"secret"}, map[string]string{"Authorization": "Basic secret"}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			newAuthRouter(tt.keys).ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}
