// Package profiles reads customer records from the document store.
package profiles

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/recoverly/cart-recovery/internal/models"
	"github.com/recoverly/cart-recovery/internal/store"
)

// Reader is a keyed lookup over the customer profile collection.
type Reader struct {
	store  *store.Gateway
	logger *zap.Logger
}

// New creates a profile reader.
func New(gateway *store.Gateway, logger *zap.Logger) *Reader {
	return &Reader{store: gateway, logger: logger}
}

// Get fetches a customer profile by id. A missing record surfaces
// store.ErrNotFound; missing fields inside an existing record get defaults.
// Email and phone come back exactly as stored, no normalization.
func (r *Reader) Get(ctx context.Context, customerID string) (models.CustomerProfile, error) {
	raw, err := r.store.GetByID(ctx, store.IndexCustomerProfiles, customerID)
	if err != nil {
		return models.CustomerProfile{}, err
	}

	var profile models.CustomerProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return models.CustomerProfile{}, fmt.Errorf("failed to decode profile %s: %w", customerID, err)
	}

	if profile.CustomerID == "" {
		profile.CustomerID = customerID
	}
	if profile.Segment == "" {
		profile.Segment = models.SegmentStandard
	}
	if profile.PreferredChannel == "" {
		profile.PreferredChannel = models.ChannelEmail
	}
	if profile.FraudRisk == "" {
		profile.FraudRisk = models.FraudRiskLow
	}

	return profile, nil
}
