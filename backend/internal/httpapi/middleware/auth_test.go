package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
)

func newAuthStub(t *testing.T, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/v1/auth/verify" {
			t.Errorf("verify path = %q", r.URL.Path)
		}
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			_ = json.NewEncoder(w).Encode(VerifyClaims{UserID: 42, Username: "alice", Type: "access"})
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(verifyErrResp{Error: "invalid token"})
		}
	}))
}

func newAuthRouter(authURL string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(authURL))
	r.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": c.GetUint64("userId"), "username": c.GetString("username")})
	})
	return r
}

func TestAuthMiddlewareVerifyAndCache(t *testing.T) {
	var calls atomic.Int64
	stub := newAuthStub(t, &calls)
	defer stub.Close()
	r := newAuthRouter(stub.URL)

	// 第一次：打到 auth-service
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer good")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		UserID   uint64 `json:"userId"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.UserID != 42 || resp.Username != "alice" {
		t.Fatalf("claims = %+v", resp)
	}

	// 第二次：同一令牌走缓存，不再调用 auth-service
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/whoami?token=good", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("verify calls = %d, want 1 (second hit cached)", got)
	}
}

func TestAuthMiddlewareRejects(t *testing.T) {
	var calls atomic.Int64
	stub := newAuthStub(t, &calls)
	defer stub.Close()
	r := newAuthRouter(stub.URL)

	// 无令牌
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if calls.Load() != 0 {
		t.Fatalf("verify calls = %d, want 0", calls.Load())
	}

	// 坏令牌：不会写缓存，每次都上游校验
	for i := 0; i < 2; i++ {
		w = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer bad")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", w.Code)
		}
	}
	if calls.Load() != 2 {
		t.Fatalf("verify calls = %d, want 2 (failures not cached)", calls.Load())
	}
}

func TestExtractBearer(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Bearer  abc ", "abc"},
		{"Basic abc", ""},
		{"", ""},
		{"Bearer", ""},
	}
	for _, tc := range cases {
		if got := extractBearer(tc.header); got != tc.want {
			t.Fatalf("extractBearer(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}
