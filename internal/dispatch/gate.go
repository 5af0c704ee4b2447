// Package dispatch gates a decided recovery action on customer
// addressability and hands it to a delivery provider. The core ships with a
// no-op provider; real delivery plugs in behind the Provider interface.
package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/recoverly/cart-recovery/internal/models"
)

const messageIDHexLen = 12

// Result is the dispatch verdict. MessageID and Channel are set only when
// the status is sent.
type Result struct {
	Status    models.DispatchStatus `json:"status"`
	MessageID string                `json:"message_id,omitempty"`
	Channel   models.Channel        `json:"channel,omitempty"`
}

// Provider delivers a recovery message on a channel. Implementations may
// call out to email/SMS/push services; the default does nothing.
type Provider interface {
	Deliver(ctx context.Context, customer models.CustomerProfile, action models.RecoveryAction, messageID string) error
}

// NoopProvider accepts every delivery without side effects.
type NoopProvider struct{}

// Deliver implements Provider.
func (NoopProvider) Deliver(context.Context, models.CustomerProfile, models.RecoveryAction, string) error {
	return nil
}

// Gate validates addressability before anything leaves the system.
type Gate struct {
	provider Provider
	limiter  *Limiter
	logger   *zap.Logger
}

// New creates a gate. A nil provider falls back to NoopProvider; a nil
// limiter means sends are not throttled.
func New(provider Provider, limiter *Limiter, logger *zap.Logger) *Gate {
	if provider == nil {
		provider = NoopProvider{}
	}
	return &Gate{provider: provider, limiter: limiter, logger: logger}
}

// Trigger dispatches the action if the customer is addressable on the
// action's channel. Missing addressability is a skip, not an error, and
// produces no message id; callers must not record skipped attempts.
func (g *Gate) Trigger(ctx context.Context, cart models.CartCandidate, customer models.CustomerProfile, action models.RecoveryAction) (Result, error) {
	if !addressable(customer, action.Channel) {
		g.logger.Info("Dispatch skipped, customer not addressable",
			zap.String("cart_id", cart.CartID),
			zap.String("customer_id", customer.CustomerID),
			zap.String("channel", string(action.Channel)))
		return Result{Status: models.DispatchSkipped}, nil
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return Result{Status: models.DispatchFailed}, fmt.Errorf("send throttled past deadline: %w", err)
		}
	}

	messageID := newMessageID()

	if err := g.provider.Deliver(ctx, customer, action, messageID); err != nil {
		g.logger.Error("Dispatch provider failed",
			zap.String("cart_id", cart.CartID),
			zap.String("channel", string(action.Channel)),
			zap.Error(err))
		return Result{Status: models.DispatchFailed}, fmt.Errorf("failed to deliver on %s: %w", action.Channel, err)
	}

	g.logger.Info("Recovery action dispatched",
		zap.String("cart_id", cart.CartID),
		zap.String("customer_id", customer.CustomerID),
		zap.String("action", string(action.Type)),
		zap.String("channel", string(action.Channel)),
		zap.String("message_id", messageID))

	return Result{Status: models.DispatchSent, MessageID: messageID, Channel: action.Channel}, nil
}

// addressable reports whether the customer owns the contact field the
// channel requires.
func addressable(customer models.CustomerProfile, channel models.Channel) bool {
	switch channel {
	case models.ChannelEmail:
		return customer.Email != ""
	case models.ChannelSMS:
		return customer.Phone != ""
	case models.ChannelPush:
		return customer.PushToken != ""
	default:
		return false
	}
}

func newMessageID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "msg_" + hex[:messageIDHexLen]
}
