package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tigermeter/config"
	"tigermeter/utils"

	"github.com/gin-gonic/gin"
)

func authTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/user", UserAuthMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userID": c.GetString("userID")})
	})
	r.GET("/admin", AdminAuthMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doRequest(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUserAuthMiddleware(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"
	r := authTestRouter()

	if w := doRequest(r, "/user", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("missing token: status %d, want 401", w.Code)
	}
	if w := doRequest(r, "/user", "garbage"); w.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: status %d, want 401", w.Code)
	}

	token, err := utils.GenerateToken("user-1", utils.RoleUser, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if w := doRequest(r, "/user", token); w.Code != http.StatusOK {
		t.Errorf("valid token: status %d, want 200", w.Code)
	}
}

func TestAdminAuthMiddleware(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"
	r := authTestRouter()

	userToken, err := utils.GenerateToken("user-1", utils.RoleUser, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	adminToken, err := utils.GenerateToken("admin-1", utils.RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	// Admin routes accept only the admin role; a valid user token is
	// authenticated but not authorized.
	if w := doRequest(r, "/admin", userToken); w.Code != http.StatusForbidden {
		t.Errorf("user token on admin route: status %d, want 403", w.Code)
	}
	if w := doRequest(r, "/admin", adminToken); w.Code != http.StatusOK {
		t.Errorf("admin token: status %d, want 200", w.Code)
	}
	if w := doRequest(r, "/admin", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("missing token on admin route: status %d, want 401", w.Code)
	}

	// Admin tokens also pass plain user auth.
	if w := doRequest(r, "/user", adminToken); w.Code != http.StatusOK {
		t.Errorf("admin token on user route: status %d, want 200", w.Code)
	}
}
