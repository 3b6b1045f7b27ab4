package handler

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// WeChatSignatureMiddleware admits only requests signed with the shared
// token: signature = hex(sha1(sorted(token, timestamp, nonce) joined)).
// An empty token rejects everything.
func WeChatSignatureMiddleware(token string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			signature := q.Get("signature")
			if token == "" || signature == "" {
				logger.Warn("wechat: missing signature or token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusForbidden, "invalid signature")
				return
			}

			expected := Signature(token, q.Get("timestamp"), q.Get("nonce"))
			if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(signature))) != 1 {
				logger.Warn("wechat: signature mismatch",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusForbidden, "invalid signature")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Signature computes the WeChat callback signature.
func Signature(token, timestamp, nonce string) string {
	parts := []string{token, timestamp, nonce}
	sort.Strings(parts)
	sum := sha1.Sum([]byte(strings.Join(parts, "")))
	return hex.EncodeToString(sum[:])
}
