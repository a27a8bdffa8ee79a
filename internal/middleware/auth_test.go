package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"course_quiz_backend/internal/config"
	"course_quiz_backend/internal/model"
	"course_quiz_backend/internal/util"

	"github.com/gin-gonic/gin"
)

func newRouter(cfg *config.Config, roles ...model.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := []gin.HandlerFunc{AuthMiddleware(cfg)}
	if len(roles) > 0 {
		handlers = append(handlers, RoleMiddleware(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, "%d", util.GetUserFromContext(c).UserID)
	})
	r.GET("/", handlers...)
	return r
}

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "s3cret"}}
	good, _ := util.GenerateJWT(5, model.Student, "s3cret", time.Hour)
	forged, _ := util.GenerateJWT(5, model.Student, "other", time.Hour)

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"forged", "Bearer " + forged, http.StatusUnauthorized},
		{"valid", "Bearer " + good, http.StatusOK},
	}
	r := newRouter(cfg)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.code {
				t.Errorf("code = %d, want %d", w.Code, tt.code)
			}
			if tt.code == http.StatusOK && w.Body.String() != "5" {
				t.Errorf("body = %q", w.Body.String())
			}
		})
	}
}

func TestRoleMiddleware(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "s3cret"}}
	r := newRouter(cfg, model.Teacher)

	for role, want := range map[model.UserRole]int{
		model.Student: http.StatusForbidden,
		model.Teacher: http.StatusOK,
		model.Admin:   http.StatusOK,
	} {
		tok, _ := util.GenerateJWT(1, role, "s3cret", time.Hour)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != want {
			t.Errorf("%s: code = %d, want %d", role, w.Code, want)
		}
	}
}
