package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type VerifyClaims struct {
	UserID   uint64 `json:"userId"`
	Username string `json:"username"`
	Type     string `json:"type"` // "access"
}

type verifyErrResp struct {
	Error string `json:"error"`
}

// cacheTTL 要远小于令牌本身的有效期：缓存只为吸收同一令牌的
// 重连/多标签页握手风暴，不能拖长吊销生效的时间。
const cacheTTL = 30 * time.Second

type cachedClaims struct {
	claims   VerifyClaims
	expireAt time.Time
}

// tokenVerifier 把令牌转发给 auth-service 校验，并在本地缓存
// 校验通过的结果。编辑器前端每次重连、每个标签页都会带同一个
// 令牌重新握手，没有缓存的话一个房间的重连就是一串 verify 调用。
type tokenVerifier struct {
	client    *http.Client
	verifyURL string

	mu    sync.Mutex
	cache map[string]cachedClaims
}

func newTokenVerifier(authBaseURL string) *tokenVerifier {
	return &tokenVerifier{
		client: &http.Client{Timeout: 1200 * time.Millisecond},
		// authBaseURL 不带路径，这里统一拼 verify 路径，避免双斜杠
		verifyURL: strings.TrimRight(authBaseURL, "/") + "/v1/auth/verify",
		cache:     make(map[string]cachedClaims),
	}
}

func (v *tokenVerifier) lookup(token string) (VerifyClaims, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	entry, ok := v.cache[token]
	if !ok {
		return VerifyClaims{}, false
	}
	if time.Now().After(entry.expireAt) {
		delete(v.cache, token)
		return VerifyClaims{}, false
	}
	return entry.claims, true
}

func (v *tokenVerifier) store(token string, claims VerifyClaims) {
	v.mu.Lock()
	defer v.mu.Unlock()
	// 顺手清掉已过期的条目，缓存规模跟活跃令牌数同阶
	now := time.Now()
	for k, e := range v.cache {
		if now.After(e.expireAt) {
			delete(v.cache, k)
		}
	}
	v.cache[token] = cachedClaims{claims: claims, expireAt: now.Add(cacheTTL)}
}

// verify 返回 claims 和建议的 HTTP 状态码。
// 只有校验通过（status == 200）才会写缓存。
func (v *tokenVerifier) verify(ctx context.Context, token string) (VerifyClaims, int, string) {
	if claims, ok := v.lookup(token); ok {
		return claims, http.StatusOK, ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, bytes.NewReader([]byte("{}")))
	if err != nil {
		return VerifyClaims{}, http.StatusInternalServerError, "build verify request failed"
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		// 超时也会走这里：context deadline exceeded
		return VerifyClaims{}, http.StatusBadGateway, "auth-service verify failed"
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		var e verifyErrResp
		_ = json.NewDecoder(resp.Body).Decode(&e)
		msg := e.Error
		if msg == "" {
			msg = "invalid token"
		}
		return VerifyClaims{}, http.StatusUnauthorized, msg
	}
	if resp.StatusCode != http.StatusOK {
		return VerifyClaims{}, http.StatusBadGateway, "auth-service verify non-200"
	}

	var claims VerifyClaims
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return VerifyClaims{}, http.StatusBadGateway, "invalid verify response"
	}
	if claims.Type != "" && claims.Type != "access" {
		return VerifyClaims{}, http.StatusUnauthorized, "access token required"
	}

	v.store(token, claims)
	return claims, http.StatusOK, ""
}

// AuthMiddleware 校验通过后把 userId/username 写入 gin.Context，
// 供 ws 握手和文档 REST 使用。
func AuthMiddleware(authBaseURL string) gin.HandlerFunc {
	verifier := newTokenVerifier(authBaseURL)

	return func(c *gin.Context) {
		token := extractBearer(c.Request.Header.Get("Authorization"))
		if token == "" {
			// 兼容 WebSocket：浏览器无法自定义 Header，允许从 query ?token= 中获取
			token = strings.TrimSpace(c.Query("token"))
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "UNAUTHENTICATED",
				"message": "Authorization header is missing or invalid",
			})
			return
		}

		// 挂在请求自身的 ctx 上，客户端中断握手时放弃 verify 调用
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1200*time.Millisecond)
		defer cancel()

		claims, status, msg := verifier.verify(ctx, token)
		switch status {
		case http.StatusOK:
		case http.StatusUnauthorized:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHENTICATED", "message": msg})
			return
		case http.StatusInternalServerError:
			c.AbortWithStatusJSON(status, gin.H{"code": "INTERNAL", "message": msg})
			return
		default:
			c.AbortWithStatusJSON(status, gin.H{"code": "AUTH_UPSTREAM_ERROR", "message": msg})
			return
		}

		c.Set("userId", claims.UserID)
		c.Set("username", claims.Username)
		c.Next()
	}
}

// extractBearer 从 Authorization 头取出令牌，前缀大小写不敏感
func extractBearer(header string) string {
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
