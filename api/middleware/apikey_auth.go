/*
 * @module api/middleware/apikey_auth
 * @description API Key鉴权中间件，对照bcrypt哈希校验X-API-Key请求头
 * @architecture 中间件模式 - 请求拦截鉴权
 * @documentReference ai_docs/anomaly_service_req.md
 * @stateFlow 请求拦截 -> 白名单放行 -> 哈希比对 -> 放行或401
 * @rules 未配置哈希时鉴权关闭；健康检查、指标和文档路径始终放行
 * @dependencies golang.org/x/crypto/bcrypt
 * @refs api/routes.go
 */

package middleware

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// 无需鉴权的路径前缀
var whitelistPrefixes = []string{
	"/health",
	"/ready",
	"/metrics",
	"/swagger",
}

// APIKeyAuth 创建API Key鉴权中间件
// keyHash为bcrypt哈希后的密钥，为空时鉴权关闭
func APIKeyAuth(keyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if keyHash == "" || isWhitelisted(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("X-API-Key")
			if key == "" {
				writeUnauthorized(w, "缺少X-API-Key请求头")
				return
			}
			if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
				writeUnauthorized(w, "API Key无效")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// isWhitelisted 判断路径是否在放行白名单内
func isWhitelisted(path string) bool {
	for _, prefix := range whitelistPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// writeUnauthorized 输出401响应
func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"status":401,"msg":"` + msg + `"}`))
}
