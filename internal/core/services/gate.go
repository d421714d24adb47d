package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JeanGrijp/request-gate/internal/core/domain"
	"github.com/JeanGrijp/request-gate/internal/core/ports"
)

// Gate compõe classificador e limiter na frente de uma operação protegida.
// O classificador roda antes de qualquer I/O no CounterStore.
type Gate struct {
	classifier ports.Classifier
	limiter    ports.RateLimiter
	policy     domain.FailurePolicy
	recorder   ports.DecisionRecorder
	logger     *zap.Logger
}

var _ ports.Gatekeeper = (*Gate)(nil)

type GateOption func(*Gate)

func WithRecorder(r ports.DecisionRecorder) GateOption {
	return func(g *Gate) { g.recorder = r }
}

func WithLogger(l *zap.Logger) GateOption {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}

func NewGate(classifier ports.Classifier, limiter ports.RateLimiter, policy domain.FailurePolicy, opts ...GateOption) (*Gate, error) {
	if classifier == nil {
		return nil, fmt.Errorf("%w: classifier is required", domain.ErrInvalidConfig)
	}
	if limiter == nil {
		return nil, fmt.Errorf("%w: limiter is required", domain.ErrInvalidConfig)
	}
	if _, err := domain.ParseFailurePolicy(string(policy)); err != nil {
		return nil, err
	}

	g := &Gate{
		classifier: classifier,
		limiter:    limiter,
		policy:     policy,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *Gate) Resource() string {
	return g.limiter.Config().Prefix
}

// Evaluate roda classificador e limiter e devolve o veredito. Nunca executa
// a operação protegida.
func (g *Gate) Evaluate(ctx context.Context, req domain.GateRequest) domain.Verdict {
	v := g.evaluate(ctx, req)
	g.observe(ctx, req, v)
	return v
}

func (g *Gate) evaluate(ctx context.Context, req domain.GateRequest) domain.Verdict {
	v := domain.Verdict{Resource: g.Resource()}

	if g.classifier.IsDisallowed(req.UserAgent) {
		v.Outcome = domain.OutcomeBlockedAgent
		return v
	}

	decision, err := g.limiter.Check(ctx, req.CallerID)
	v.Decision = decision
	if err != nil {
		v.Err = err
		if g.policy == domain.FailOpen {
			v.Outcome = domain.OutcomeStoreFailOpen
		} else {
			v.Outcome = domain.OutcomeStoreFailClosed
		}
		return v
	}

	if !decision.Allowed {
		v.Outcome = domain.OutcomeRateLimited
		return v
	}
	v.Outcome = domain.OutcomeAllowed
	return v
}

func (g *Gate) observe(ctx context.Context, req domain.GateRequest, v domain.Verdict) {
	if g.recorder != nil {
		g.recorder.Record(ctx, v)
	}

	switch v.Outcome {
	case domain.OutcomeAllowed:
		return
	case domain.OutcomeStoreFailOpen, domain.OutcomeStoreFailClosed:
		g.logger.Error("counter store failed",
			zap.String("resource", v.Resource),
			zap.String("caller", req.CallerID),
			zap.String("outcome", string(v.Outcome)),
			zap.Error(v.Err),
		)
	default:
		g.logger.Warn("request rejected",
			zap.String("resource", v.Resource),
			zap.String("caller", req.CallerID),
			zap.String("user_agent", req.UserAgent),
			zap.String("outcome", string(v.Outcome)),
			zap.Int("reset_seconds", v.Decision.ResetSeconds),
		)
	}
}

// Protect executa op somente quando o gate libera a requisição e devolve o
// resultado de op sem alterações. Rejeições voltam como ErrDisallowedAgent,
// *domain.RateLimitedError ou o erro do store (política fail-closed).
func Protect[T any](ctx context.Context, g ports.Gatekeeper, req domain.GateRequest, op func(context.Context) (T, error)) (T, error) {
	v := g.Evaluate(ctx, req)
	if !v.Outcome.Proceed() {
		var zero T
		return zero, v.Error()
	}
	return op(ctx)
}
