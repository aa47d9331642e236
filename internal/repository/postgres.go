package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mooney/market-feed/internal/model"
)

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres creates a Postgres-backed store.
func NewPostgres(db *pgxpool.Pool, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{db: db, logger: logger}
}

// PendingSymbols returns distinct stock codes with PENDING offers.
func (p *Postgres) PendingSymbols(ctx context.Context) ([]string, error) {
	rows, err := p.db.Query(ctx, `
		SELECT DISTINCT stock_code FROM offers WHERE status = $1
	`, model.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("query pending symbols: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan pending symbol: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// FindPendingBySymbol returns all PENDING offers on a stock code.
func (p *Postgres) FindPendingBySymbol(ctx context.Context, code string) ([]model.Offer, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, request_id, stock_code, account_id, side, price, quantity, status
		FROM offers
		WHERE stock_code = $1 AND status = $2
		ORDER BY id
	`, code, model.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("query pending offers: %w", err)
	}
	defer rows.Close()

	var offers []model.Offer
	for rows.Next() {
		var o model.Offer
		if err := rows.Scan(&o.ID, &o.RequestID, &o.StockCode, &o.AccountID,
			&o.Side, &o.Price, &o.Quantity, &o.Status); err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

// FindStockByCode looks up a stock by its issue code.
func (p *Postgres) FindStockByCode(ctx context.Context, code string) (model.Stock, error) {
	var s model.Stock
	err := p.db.QueryRow(ctx, `
		SELECT id, code, name FROM stocks WHERE code = $1
	`, code).Scan(&s.ID, &s.Code, &s.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Stock{}, ErrNotFound
	}
	if err != nil {
		return model.Stock{}, fmt.Errorf("query stock: %w", err)
	}
	return s, nil
}

// FindAccountForOffer returns the account owning an offer.
func (p *Postgres) FindAccountForOffer(ctx context.Context, offerID int64) (model.Account, error) {
	var a model.Account
	err := p.db.QueryRow(ctx, `
		SELECT a.id, a.cash_balance
		FROM accounts a
		JOIN offers o ON o.account_id = a.id
		WHERE o.id = $1
	`, offerID).Scan(&a.ID, &a.CashBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Account{}, ErrNotFound
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("query account: %w", err)
	}
	return a, nil
}

// SaveOffer inserts a new PENDING offer, deduplicated on request_id.
func (p *Postgres) SaveOffer(ctx context.Context, offer *model.Offer) error {
	err := p.db.QueryRow(ctx, `
		INSERT INTO offers (request_id, stock_code, account_id, side, price, quantity, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (request_id) DO NOTHING
		RETURNING id
	`, offer.RequestID, offer.StockCode, offer.AccountID,
		offer.Side, offer.Price, offer.Quantity, offer.Status,
	).Scan(&offer.ID)

	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDuplicateRequest
	}
	if err != nil {
		return fmt.Errorf("insert offer: %w", err)
	}
	return nil
}

// ApplyFill runs the fill transaction: conditional status transition, trade
// insert, balance update. The conditional UPDATE is the serialization point
// for concurrent ticks on the same offer.
func (p *Postgres) ApplyFill(ctx context.Context, offerID int64, balanceDelta int64) (model.Trade, error) {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return model.Trade{}, fmt.Errorf("begin fill tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var accountID int64
	err = tx.QueryRow(ctx, `
		UPDATE offers SET status = $1
		WHERE id = $2 AND status = $3
		RETURNING account_id
	`, model.StatusFilled, offerID, model.StatusPending).Scan(&accountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Trade{}, ErrOfferNotPending
	}
	if err != nil {
		return model.Trade{}, fmt.Errorf("mark offer filled: %w", err)
	}

	var trade model.Trade
	trade.OfferID = offerID
	err = tx.QueryRow(ctx, `
		INSERT INTO trades (offer_id) VALUES ($1) RETURNING id
	`, offerID).Scan(&trade.ID)
	if err != nil {
		return model.Trade{}, fmt.Errorf("insert trade: %w", err)
	}

	ct, err := tx.Exec(ctx, `
		UPDATE accounts SET cash_balance = cash_balance + $1 WHERE id = $2
	`, balanceDelta, accountID)
	if err != nil {
		return model.Trade{}, fmt.Errorf("update balance: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return model.Trade{}, fmt.Errorf("update balance: account %d: %w", accountID, ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Trade{}, fmt.Errorf("commit fill tx: %w", err)
	}
	return trade, nil
}
