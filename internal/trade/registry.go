package trade

import (
	"context"

	"go.uber.org/zap"
)

// ActiveChecker asks the server whether the caller holds an open transaction on a listing.
type ActiveChecker interface {
	HasActiveTransaction(ctx context.Context, productID string) (bool, error)
}

// Registry is the advisory, point-in-time view of the caller's open transactions. The server
// enforces uniqueness; this only keeps controls from flashing on incorrectly.
type Registry struct {
	identity string
	api      ActiveChecker
	log      *zap.Logger
}

func NewRegistry(identity string, api ActiveChecker, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{identity: identity, api: api, log: log}
}

// HasOpenTransaction answers for the registry's own identity only. Errors read as false.
func (r *Registry) HasOpenTransaction(ctx context.Context, listingID, requesterID string) bool {
	if listingID == "" || requesterID == "" || requesterID != r.identity {
		return false
	}
	active, err := r.api.HasActiveTransaction(ctx, listingID)
	if err != nil {
		r.log.Warn("active transaction check failed", zap.String("listing", listingID), zap.Error(err))
		return false
	}
	return active
}
