// Package ports define contratos que conectam o domínio a implementações externas.
package ports

import (
	"context"

	"github.com/JeanGrijp/request-gate/internal/core/domain"
)

type RateLimiter interface {
	Check(ctx context.Context, callerID string) (domain.Decision, error)
	Config() domain.LimiterConfig
}

type Classifier interface {
	IsDisallowed(userAgent string) bool
}

// DecisionRecorder recebe cada veredito do gate. Erros são best-effort.
type DecisionRecorder interface {
	Record(ctx context.Context, v domain.Verdict)
}

type Gatekeeper interface {
	Evaluate(ctx context.Context, req domain.GateRequest) domain.Verdict
}
