// Package middleware disponibiliza middlewares HTTP específicos da aplicação.
package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/JeanGrijp/request-gate/internal/core/domain"
	"github.com/JeanGrijp/request-gate/internal/core/ports"
)

// UnknownCaller identifica requisições sem endereço utilizável.
const UnknownCaller = "unknown"

const (
	reasonForbiddenAgent = "forbidden_user_agent"
	reasonRateLimited    = "rate_limit_exceeded"
	reasonUnavailable    = "rate_limiter_unavailable"
)

type CallerFunc func(r *http.Request) string

// CallerExtractor prefere o IP dos cabeçalhos de proxy quando confiáveis,
// depois o host de RemoteAddr e, por fim, UnknownCaller.
func CallerExtractor(trustForwarded bool) CallerFunc {
	return func(r *http.Request) string {
		if trustForwarded {
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				first, _, _ := strings.Cut(xff, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return ip
				}
			}
			if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
				return realIP
			}
		}

		remote := strings.TrimSpace(r.RemoteAddr)
		if host, _, err := net.SplitHostPort(remote); err == nil && host != "" {
			return host
		}
		if remote != "" {
			return remote
		}
		return UnknownCaller
	}
}

// NewGateMiddleware roda o gate antes do próximo handler. O handler só é
// chamado em vereditos que permitem prosseguir; a resposta dele passa intacta.
func NewGateMiddleware(gate ports.Gatekeeper, caller CallerFunc) func(http.Handler) http.Handler {
	if caller == nil {
		caller = CallerExtractor(true)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if gate == nil {
				next.ServeHTTP(w, r)
				return
			}

			verdict := gate.Evaluate(r.Context(), domain.GateRequest{
				CallerID:  caller(r),
				UserAgent: r.UserAgent(),
			})
			if WriteVerdict(w, verdict) {
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WriteVerdict escreve cabeçalhos de rate limit e, quando o veredito rejeita
// a requisição, a resposta final. Devolve true se a resposta foi escrita.
func WriteVerdict(w http.ResponseWriter, v domain.Verdict) bool {
	if v.Outcome == domain.OutcomeAllowed || v.Outcome == domain.OutcomeRateLimited {
		setRateLimitHeaders(w, v.Decision)
	}

	switch v.Outcome {
	case domain.OutcomeBlockedAgent:
		writeJSON(w, http.StatusForbidden, map[string]any{"error": reasonForbiddenAgent})
		return true
	case domain.OutcomeRateLimited:
		w.Header().Set("Retry-After", strconv.Itoa(v.Decision.ResetSeconds))
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":       reasonRateLimited,
			"retry_after": v.Decision.ResetSeconds,
		})
		return true
	case domain.OutcomeStoreFailClosed:
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": reasonUnavailable})
		return true
	default:
		return false
	}
}

func setRateLimitHeaders(w http.ResponseWriter, d domain.Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(d.ResetSeconds))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
