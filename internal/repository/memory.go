package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/mooney/market-feed/internal/model"
)

// Memory is a mutex-guarded in-memory Store for tests and local runs.
type Memory struct {
	mu       sync.Mutex
	stocks   map[string]model.Stock
	accounts map[int64]*model.Account
	offers   map[int64]*model.Offer
	trades   map[int64]model.Trade
	requests map[uuid.UUID]int64 // request id -> offer id

	nextOfferID int64
	nextTradeID int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		stocks:   make(map[string]model.Stock),
		accounts: make(map[int64]*model.Account),
		offers:   make(map[int64]*model.Offer),
		trades:   make(map[int64]model.Trade),
		requests: make(map[uuid.UUID]int64),
	}
}

// AddStock seeds reference data.
func (m *Memory) AddStock(s model.Stock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stocks[s.Code] = s
}

// AddAccount seeds an account.
func (m *Memory) AddAccount(a model.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct := a
	m.accounts[a.ID] = &acct
}

// Account returns a copy of the account's current state.
func (m *Memory) Account(id int64) (model.Account, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return model.Account{}, false
	}
	return *a, true
}

// Offer returns a copy of an offer's current state.
func (m *Memory) Offer(id int64) (model.Offer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offers[id]
	if !ok {
		return model.Offer{}, false
	}
	return *o, true
}

// Trades returns all trade records.
func (m *Memory) Trades() []model.Trade {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Trade, 0, len(m.trades))
	for _, t := range m.trades {
		out = append(out, t)
	}
	return out
}

// PendingSymbols returns distinct stock codes with PENDING offers.
func (m *Memory) PendingSymbols(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]struct{})
	var codes []string
	for _, o := range m.offers {
		if o.Status != model.StatusPending {
			continue
		}
		if _, ok := seen[o.StockCode]; ok {
			continue
		}
		seen[o.StockCode] = struct{}{}
		codes = append(codes, o.StockCode)
	}
	return codes, nil
}

// FindPendingBySymbol returns all PENDING offers on a stock code.
func (m *Memory) FindPendingBySymbol(ctx context.Context, code string) ([]model.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var offers []model.Offer
	for id := int64(1); id <= m.nextOfferID; id++ {
		o, ok := m.offers[id]
		if ok && o.StockCode == code && o.Status == model.StatusPending {
			offers = append(offers, *o)
		}
	}
	return offers, nil
}

// FindStockByCode looks up a stock by code.
func (m *Memory) FindStockByCode(ctx context.Context, code string) (model.Stock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stocks[code]
	if !ok {
		return model.Stock{}, ErrNotFound
	}
	return s, nil
}

// FindAccountForOffer returns the account owning an offer.
func (m *Memory) FindAccountForOffer(ctx context.Context, offerID int64) (model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offers[offerID]
	if !ok {
		return model.Account{}, ErrNotFound
	}
	a, ok := m.accounts[o.AccountID]
	if !ok {
		return model.Account{}, ErrNotFound
	}
	return *a, nil
}

// SaveOffer inserts a new PENDING offer, deduplicated on RequestID.
func (m *Memory) SaveOffer(ctx context.Context, offer *model.Offer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.requests[offer.RequestID]; ok {
		return ErrDuplicateRequest
	}

	m.nextOfferID++
	offer.ID = m.nextOfferID

	stored := *offer
	m.offers[offer.ID] = &stored
	m.requests[offer.RequestID] = offer.ID
	return nil
}

// ApplyFill atomically fills an offer, records its trade and adjusts the
// owning account's balance.
func (m *Memory) ApplyFill(ctx context.Context, offerID int64, balanceDelta int64) (model.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.offers[offerID]
	if !ok {
		return model.Trade{}, ErrNotFound
	}
	if o.Status != model.StatusPending {
		return model.Trade{}, ErrOfferNotPending
	}
	a, ok := m.accounts[o.AccountID]
	if !ok {
		return model.Trade{}, ErrNotFound
	}

	o.Status = model.StatusFilled
	m.nextTradeID++
	trade := model.Trade{ID: m.nextTradeID, OfferID: offerID}
	m.trades[trade.ID] = trade
	a.CashBalance += balanceDelta

	return trade, nil
}
