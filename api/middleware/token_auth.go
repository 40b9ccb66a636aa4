/*
 * @module api/middleware/token_auth
 * @description 用户令牌鉴权中间件，校验Bearer Token有效性，身份协议由外部身份服务承担
 * @architecture 中间件模式 - HTTP请求拦截和验证
 * @documentReference ai_docs/column_qc_req.md
 * @stateFlow Token提取 -> 远端验证(带缓存) -> 上下文注入 -> 下一个处理器
 * @rules 白名单路径放行；设备直传走设备凭证不经过本中间件；未配置身份服务地址时只做存在性检查
 * @dependencies net/http, github.com/go-chi/render
 * @refs api/routes.go, client/token_store.go
 */

package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/render"
)

// ContextKey 上下文键类型
type ContextKey string

const (
	// TokenKey Token在上下文中的键
	TokenKey ContextKey = "token"
	// UserNameKey 用户名在上下文中的键
	UserNameKey ContextKey = "user_name"
)

// tokenVerifyResponse 身份服务验证响应
type tokenVerifyResponse struct {
	Valid    bool   `json:"valid"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

// cacheEntry 验证结果缓存条目
type cacheEntry struct {
	username  string
	expiresAt time.Time
}

// TokenAuthMiddleware 用户令牌鉴权中间件
type TokenAuthMiddleware struct {
	authServiceURL string
	httpClient     *http.Client
	cache          map[string]*cacheEntry
	cacheMutex     sync.RWMutex
	cacheTTL       time.Duration
	whitelistPaths []string
}

// NewTokenAuthMiddleware 创建令牌鉴权中间件实例
func NewTokenAuthMiddleware() *TokenAuthMiddleware {
	return &TokenAuthMiddleware{
		authServiceURL: os.Getenv("AUTH_SERVICE_URL"),
		httpClient:     &http.Client{Timeout: 5 * time.Second},
		cache:          make(map[string]*cacheEntry),
		cacheTTL:       5 * time.Minute,
		whitelistPaths: []string{
			"/health",
			"/ready",
			"/metrics",
			"/swagger",
			"/inbox/ingest",
		},
	}
}

// Handler 中间件处理函数
func (m *TokenAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.isWhitelisted(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token := extractBearerToken(r)
		if token == "" {
			m.unauthorized(w, r, "缺少访问令牌")
			return
		}

		username, err := m.verifyToken(r.Context(), token)
		if err != nil {
			m.unauthorized(w, r, err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), TokenKey, token)
		ctx = context.WithValue(ctx, UserNameKey, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// verifyToken 验证令牌。未配置身份服务地址时只做存在性检查；
// 验证结果短期缓存，避免每个请求都打身份服务。
func (m *TokenAuthMiddleware) verifyToken(ctx context.Context, token string) (string, error) {
	if m.authServiceURL == "" {
		return "", nil
	}

	m.cacheMutex.RLock()
	if entry, ok := m.cache[token]; ok && time.Now().Before(entry.expiresAt) {
		m.cacheMutex.RUnlock()
		return entry.username, nil
	}
	m.cacheMutex.RUnlock()

	body, _ := json.Marshal(map[string]string{"token": token})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		m.authServiceURL+"/auth/verify", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("构造验证请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("身份服务不可用: %w", err)
	}
	defer resp.Body.Close()

	var verifyResp tokenVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&verifyResp); err != nil {
		return "", fmt.Errorf("解析验证响应失败: %w", err)
	}
	if !verifyResp.Valid {
		return "", fmt.Errorf("令牌无效: %s", verifyResp.Message)
	}

	m.cacheMutex.Lock()
	m.cache[token] = &cacheEntry{
		username:  verifyResp.Username,
		expiresAt: time.Now().Add(m.cacheTTL),
	}
	m.cacheMutex.Unlock()

	return verifyResp.Username, nil
}

func (m *TokenAuthMiddleware) isWhitelisted(path string) bool {
	for _, prefix := range m.whitelistPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (m *TokenAuthMiddleware) unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, map[string]interface{}{
		"status": 401,
		"msg":    msg,
	})
}

// extractBearerToken 从Authorization头提取Bearer令牌
func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
