package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mooney/market-feed/internal/model"
	"github.com/mooney/market-feed/internal/repository"
)

// Engine applies ticks to the pending order book.
type Engine struct {
	store  repository.Store
	logger *slog.Logger
}

// New creates a matching engine.
func New(store repository.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, logger: logger}
}

// MatchOrders fills every pending offer on symbol whose limit price equals
// price. Buys debit the account by price*quantity, sells credit it. An
// offer that fails to fill is logged and skipped; it does not affect the
// other candidates. Returns the fills that were committed.
func (e *Engine) MatchOrders(ctx context.Context, symbol string, price int64) ([]model.Fill, error) {
	offers, err := e.store.FindPendingBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}

	var fills []model.Fill
	for _, offer := range offers {
		if offer.Price != price {
			continue
		}

		delta := price * offer.Quantity
		if offer.Side == model.SideBuy {
			delta = -delta
		}

		trade, err := e.store.ApplyFill(ctx, offer.ID, delta)
		if err != nil {
			// Already filled elsewhere: benign on redelivered ticks.
			if errors.Is(err, repository.ErrOfferNotPending) {
				continue
			}
			e.logger.Error("fill failed",
				"offer_id", offer.ID,
				"symbol", symbol,
				"price", price,
				"error", err,
			)
			continue
		}

		e.logger.Info("offer filled",
			"offer_id", offer.ID,
			"trade_id", trade.ID,
			"symbol", symbol,
			"side", offer.Side,
			"price", price,
			"quantity", offer.Quantity,
		)

		fills = append(fills, model.Fill{
			OfferID:   offer.ID,
			TradeID:   trade.ID,
			AccountID: offer.AccountID,
			Symbol:    symbol,
			Side:      offer.Side,
			Price:     price,
			Quantity:  offer.Quantity,
		})
	}
	return fills, nil
}

// HandleTick adapts MatchOrders to the feed's tick handler contract.
func (e *Engine) HandleTick(ctx context.Context, tick model.Tick) {
	if _, err := e.MatchOrders(ctx, tick.Symbol, tick.Price); err != nil {
		e.logger.Error("match orders", "symbol", tick.Symbol, "price", tick.Price, "error", err)
	}
}
