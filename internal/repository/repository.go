package repository

import (
	"context"
	"errors"

	"github.com/mooney/market-feed/internal/model"
)

// Errors
var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateRequest is returned by SaveOffer when an offer with the
	// same request id was already persisted (at-least-once redelivery).
	ErrDuplicateRequest = errors.New("duplicate offer request")

	// ErrOfferNotPending is returned by ApplyFill when the offer is no
	// longer PENDING. Concurrent or re-delivered ticks hit this instead of
	// double-filling.
	ErrOfferNotPending = errors.New("offer is not pending")
)

// Store is the narrow persistence interface the matching core depends on.
type Store interface {
	// PendingSymbols returns the distinct stock codes that have at least
	// one PENDING offer.
	PendingSymbols(ctx context.Context) ([]string, error)

	// FindPendingBySymbol returns all PENDING offers on a stock code.
	FindPendingBySymbol(ctx context.Context, code string) ([]model.Offer, error)

	// FindStockByCode looks up reference data for a stock code.
	FindStockByCode(ctx context.Context, code string) (model.Stock, error)

	// FindAccountForOffer returns the account owning an offer.
	FindAccountForOffer(ctx context.Context, offerID int64) (model.Account, error)

	// SaveOffer persists a new PENDING offer. The offer's RequestID is
	// unique; a redelivered request returns ErrDuplicateRequest and leaves
	// the stored row untouched. On success the offer's ID is populated.
	SaveOffer(ctx context.Context, offer *model.Offer) error

	// ApplyFill atomically transitions an offer PENDING -> FILLED, creates
	// its Trade record and adjusts the owning account's cash balance by
	// balanceDelta (negative for BUY, positive for SELL). The sequence is
	// a single transaction: either all three mutations apply or none do.
	ApplyFill(ctx context.Context, offerID int64, balanceDelta int64) (model.Trade, error)
}
