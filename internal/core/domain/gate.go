package domain

import (
	"fmt"
	"strings"
)

// FailurePolicy decide o que o gate faz quando o CounterStore falha.
// Não existe valor padrão: a integração precisa escolher explicitamente.
type FailurePolicy string

const (
	FailOpen   FailurePolicy = "open"
	FailClosed FailurePolicy = "closed"
)

func ParseFailurePolicy(raw string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToLower(strings.TrimSpace(raw))); p {
	case FailOpen, FailClosed:
		return p, nil
	default:
		return "", fmt.Errorf("%w: failure policy must be %q or %q, got %q", ErrInvalidConfig, FailOpen, FailClosed, raw)
	}
}

type Outcome string

const (
	OutcomeAllowed         Outcome = "allowed"
	OutcomeBlockedAgent    Outcome = "blocked_agent"
	OutcomeRateLimited     Outcome = "rate_limited"
	OutcomeStoreFailOpen   Outcome = "store_fail_open"
	OutcomeStoreFailClosed Outcome = "store_fail_closed"
)

// Proceed indica se a operação protegida pode rodar.
func (o Outcome) Proceed() bool {
	return o == OutcomeAllowed || o == OutcomeStoreFailOpen
}

type GateRequest struct {
	CallerID  string
	UserAgent string
}

// Verdict é o resultado de uma passagem pelo gate.
// Decision só é preenchida quando o limiter respondeu; Err só em falhas do store.
type Verdict struct {
	Resource string
	Outcome  Outcome
	Decision Decision
	Err      error
}

// Error converte um veredito de rejeição no erro que Protect devolve.
func (v Verdict) Error() error {
	switch v.Outcome {
	case OutcomeBlockedAgent:
		return ErrDisallowedAgent
	case OutcomeRateLimited:
		return &RateLimitedError{Decision: v.Decision}
	case OutcomeStoreFailClosed:
		return v.Err
	default:
		return nil
	}
}
