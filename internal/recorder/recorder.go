// Package recorder persists recovery attempts for later outcome
// attribution.
package recorder

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/recoverly/cart-recovery/internal/models"
	"github.com/recoverly/cart-recovery/internal/store"
)

// Recorder writes pending recovery records. It is the pipeline's only
// writer and always runs last, so an aborted pass leaves no partial state.
type Recorder struct {
	store  *store.Gateway
	logger *zap.Logger
	now    func() time.Time
}

// New creates a recorder.
func New(gateway *store.Gateway, logger *zap.Logger) *Recorder {
	return &Recorder{store: gateway, logger: logger, now: time.Now}
}

// Record writes one recovery attempt with a fresh recovery id and a pending
// outcome, using the recovery id as the document id so a retried write of
// the same record is idempotent at the store. Each call generates a new id;
// callers must only record attempts the dispatch gate actually sent.
func (r *Recorder) Record(ctx context.Context, cart models.CartCandidate, customer models.CustomerProfile, diagnosis models.Diagnosis, action models.RecoveryAction, sentAt time.Time) (string, error) {
	recoveryID := newRecoveryID()

	record := models.RecoveryRecord{
		Timestamp:  r.now().UTC(),
		RecoveryID: recoveryID,
		CartID:     cart.CartID,
		CustomerID: customer.CustomerID,
		Segment:    customer.Segment,
		CartValue:  cart.CartValue,
		Currency:   cart.Currency,
		Diagnosis: models.RecordDiagnosis{
			RootCause: diagnosis.RootCause,
			Signals:   diagnosis.Signals,
		},
		Action: models.RecordAction{
			Type:            action.Type,
			Channel:         action.Channel,
			DiscountPercent: action.DiscountPercent,
			FreeShipping:    action.FreeShipping,
			Template:        action.Template,
		},
		SentAt: sentAt.UTC(),
		Outcome: models.RecoveryOutcome{
			Status: models.OutcomePending,
		},
	}

	if err := r.store.Index(ctx, store.IndexRecoveryHistory, recoveryID, record); err != nil {
		return "", err
	}

	r.logger.Info("Recovery attempt recorded",
		zap.String("recovery_id", recoveryID),
		zap.String("cart_id", cart.CartID),
		zap.String("action", string(action.Type)))

	return recoveryID, nil
}

func newRecoveryID() string {
	return "rec_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
