/*
 * @module api/middleware/apikey_auth_test
 * @description API Key鉴权中间件单元测试
 * @architecture 测试层
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 测试准备 -> 请求构建 -> 鉴权结果验证
 * @rules 覆盖鉴权关闭、白名单放行、密钥比对成功与失败
 * @dependencies testing, net/http/httptest, stretchr/testify, golang.org/x/crypto/bcrypt
 */

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// TestAuthDisabledWithoutHash 测试未配置哈希时鉴权关闭
func TestAuthDisabledWithoutHash(t *testing.T) {
	handler := APIKeyAuth("")(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/predict", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestAuthEnforced 测试密钥比对
func TestAuthEnforced(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-key"), bcrypt.MinCost)
	require.NoError(t, err)
	handler := APIKeyAuth(string(hash))(okHandler())

	// 缺少密钥
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/predict", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 错误密钥
	req := httptest.NewRequest(http.MethodPost, "/api/v1/predict", nil)
	req.Header.Set("X-API-Key", "wrong-key")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 正确密钥
	req = httptest.NewRequest(http.MethodPost, "/api/v1/predict", nil)
	req.Header.Set("X-API-Key", "secret-key")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestAuthWhitelist 测试白名单路径放行
func TestAuthWhitelist(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-key"), bcrypt.MinCost)
	require.NoError(t, err)
	handler := APIKeyAuth(string(hash))(okHandler())

	for _, path := range []string{"/health", "/ready", "/metrics", "/swagger/index.html"} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, "path=%s", path)
	}
}
