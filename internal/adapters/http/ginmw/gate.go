// Package ginmw adapta o gate para rotas gin, no nível de handler.
package ginmw

import (
	"github.com/gin-gonic/gin"

	"github.com/JeanGrijp/request-gate/internal/adapters/http/middleware"
	"github.com/JeanGrijp/request-gate/internal/core/domain"
	"github.com/JeanGrijp/request-gate/internal/core/ports"
)

// Gate devolve um gin.HandlerFunc que aborta a cadeia em vereditos de rejeição.
// Sem gate, a requisição segue direto, como em middleware.NewGateMiddleware.
func Gate(gate ports.Gatekeeper, caller middleware.CallerFunc) gin.HandlerFunc {
	if caller == nil {
		caller = middleware.CallerExtractor(true)
	}

	return func(c *gin.Context) {
		if gate == nil {
			c.Next()
			return
		}

		verdict := gate.Evaluate(c.Request.Context(), domain.GateRequest{
			CallerID:  caller(c.Request),
			UserAgent: c.Request.UserAgent(),
		})
		if middleware.WriteVerdict(c.Writer, verdict) {
			c.Abort()
			return
		}
		c.Set("gate.verdict", verdict)
		c.Next()
	}
}
