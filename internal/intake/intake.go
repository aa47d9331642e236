package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/mooney/market-feed/internal/model"
	"github.com/mooney/market-feed/internal/repository"
)

// ErrInvalidRequest marks a request rejected by validation.
var ErrInvalidRequest = errors.New("invalid offer request")

// Service consumes offer requests into the store.
type Service struct {
	store  repository.Store
	logger *slog.Logger
}

// New creates an intake service.
func New(store repository.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Consume validates and persists one offer request as a PENDING offer.
// Redelivery of an already-consumed request id returns nil without a
// second insert.
func (s *Service) Consume(ctx context.Context, req model.OfferRequest) error {
	if err := s.validate(ctx, req); err != nil {
		return err
	}

	side, _ := model.ParseSide(req.Side)
	offer := &model.Offer{
		RequestID: req.RequestID,
		StockCode: req.StockCode,
		AccountID: req.AccountID,
		Side:      side,
		Price:     req.Price,
		Quantity:  req.Quantity,
		Status:    model.StatusPending,
	}

	if err := s.store.SaveOffer(ctx, offer); err != nil {
		if errors.Is(err, repository.ErrDuplicateRequest) {
			s.logger.Info("duplicate offer request ignored", "request_id", req.RequestID)
			return nil
		}
		return err
	}

	s.logger.Info("offer accepted",
		"offer_id", offer.ID,
		"request_id", req.RequestID,
		"stock_code", req.StockCode,
		"side", side,
		"price", req.Price,
		"quantity", req.Quantity,
	)
	return nil
}

func (s *Service) validate(ctx context.Context, req model.OfferRequest) error {
	if req.RequestID == uuid.Nil {
		return fmt.Errorf("%w: missing request id", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.StockCode) == "" {
		return fmt.Errorf("%w: missing stock code", ErrInvalidRequest)
	}
	if req.Price <= 0 {
		return fmt.Errorf("%w: price %d must be positive", ErrInvalidRequest, req.Price)
	}
	if req.Quantity <= 0 {
		return fmt.Errorf("%w: quantity %d must be positive", ErrInvalidRequest, req.Quantity)
	}
	if _, err := model.ParseSide(req.Side); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if _, err := s.store.FindStockByCode(ctx, req.StockCode); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: unknown stock code %q", ErrInvalidRequest, req.StockCode)
		}
		return err
	}
	return nil
}
