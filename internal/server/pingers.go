package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/billshop/shopai-go/internal/logging"
	"github.com/billshop/shopai-go/internal/provider"
)

// LLMPinger probes the chat model backend for GET /api/ready.
type LLMPinger struct {
	// healthCheck is the zero-cost probe; nil for backends without one.
	healthCheck provider.HealthChecker
	// model is probed with a one-word Generate call when healthCheck is nil.
	model model.BaseChatModel
	name  string
}

// NewLLMPinger constructs an LLMPinger. hc may be nil.
func NewLLMPinger(m model.BaseChatModel, hc provider.HealthChecker, name string) *LLMPinger {
	return &LLMPinger{model: m, healthCheck: hc, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *LLMPinger) Name() string { return p.name }

// Ping uses the health check endpoint when the backend has one and falls
// back to a single Generate call, which spends tokens, otherwise.
func (p *LLMPinger) Ping(ctx context.Context) error {
	if p.healthCheck != nil {
		if err := p.healthCheck.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s health check failed: %w", p.name, err)
		}
		return nil
	}
	if p.model == nil {
		return errors.New("no model configured")
	}

	logging.FromContext(ctx).Debug("pinger: probing with Generate, tokens will be consumed",
		slog.String("backend", p.name),
	)
	resp, err := p.model.Generate(ctx, []*schema.Message{schema.UserMessage("ping")})
	if err != nil {
		return fmt.Errorf("generate failed: %w", err)
	}
	if resp == nil {
		return errors.New("generate returned nil response")
	}
	return nil
}
