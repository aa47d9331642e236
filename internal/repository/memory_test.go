package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/mooney/market-feed/internal/model"
)

func seedOffer(t *testing.T, m *Memory, code string, side model.Side, price, qty int64) *model.Offer {
	t.Helper()
	offer := &model.Offer{
		RequestID: uuid.New(),
		StockCode: code,
		AccountID: 1,
		Side:      side,
		Price:     price,
		Quantity:  qty,
		Status:    model.StatusPending,
	}
	if err := m.SaveOffer(context.Background(), offer); err != nil {
		t.Fatalf("SaveOffer() error = %v", err)
	}
	return offer
}

func TestMemory_SaveOffer_Dedupe(t *testing.T) {
	m := NewMemory()
	m.AddAccount(model.Account{ID: 1, CashBalance: 1000})

	offer := seedOffer(t, m, "005930", model.SideBuy, 100, 10)
	if offer.ID == 0 {
		t.Fatal("SaveOffer did not assign an ID")
	}

	dup := &model.Offer{
		RequestID: offer.RequestID,
		StockCode: "005930",
		AccountID: 1,
		Side:      model.SideBuy,
		Price:     100,
		Quantity:  10,
		Status:    model.StatusPending,
	}
	err := m.SaveOffer(context.Background(), dup)
	if !errors.Is(err, ErrDuplicateRequest) {
		t.Fatalf("SaveOffer(dup) error = %v, want ErrDuplicateRequest", err)
	}
}

func TestMemory_PendingSymbols(t *testing.T) {
	m := NewMemory()
	m.AddAccount(model.Account{ID: 1})

	seedOffer(t, m, "005930", model.SideBuy, 100, 10)
	seedOffer(t, m, "005930", model.SideSell, 120, 5)
	seedOffer(t, m, "000660", model.SideBuy, 50, 1)

	codes, err := m.PendingSymbols(context.Background())
	if err != nil {
		t.Fatalf("PendingSymbols() error = %v", err)
	}
	if len(codes) != 2 {
		t.Fatalf("PendingSymbols() = %v, want 2 distinct codes", codes)
	}
}

func TestMemory_ApplyFill(t *testing.T) {
	m := NewMemory()
	m.AddAccount(model.Account{ID: 1, CashBalance: 1000})
	offer := seedOffer(t, m, "005930", model.SideBuy, 100, 10)

	trade, err := m.ApplyFill(context.Background(), offer.ID, -1000)
	if err != nil {
		t.Fatalf("ApplyFill() error = %v", err)
	}
	if trade.OfferID != offer.ID {
		t.Errorf("trade.OfferID = %d, want %d", trade.OfferID, offer.ID)
	}

	got, _ := m.Offer(offer.ID)
	if got.Status != model.StatusFilled {
		t.Errorf("offer status = %s, want FILLED", got.Status)
	}
	acct, _ := m.Account(1)
	if acct.CashBalance != 0 {
		t.Errorf("cash balance = %d, want 0", acct.CashBalance)
	}

	// Second fill attempt must not double-apply.
	_, err = m.ApplyFill(context.Background(), offer.ID, -1000)
	if !errors.Is(err, ErrOfferNotPending) {
		t.Fatalf("ApplyFill(filled offer) error = %v, want ErrOfferNotPending", err)
	}
	acct, _ = m.Account(1)
	if acct.CashBalance != 0 {
		t.Errorf("cash balance after redelivery = %d, want 0", acct.CashBalance)
	}
	if len(m.Trades()) != 1 {
		t.Errorf("trades = %d, want 1", len(m.Trades()))
	}
}

func TestMemory_FindPendingBySymbol_ExcludesFilled(t *testing.T) {
	m := NewMemory()
	m.AddAccount(model.Account{ID: 1})
	a := seedOffer(t, m, "005930", model.SideBuy, 100, 10)
	seedOffer(t, m, "005930", model.SideSell, 100, 3)

	if _, err := m.ApplyFill(context.Background(), a.ID, -1000); err != nil {
		t.Fatalf("ApplyFill() error = %v", err)
	}

	pending, err := m.FindPendingBySymbol(context.Background(), "005930")
	if err != nil {
		t.Fatalf("FindPendingBySymbol() error = %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d offers, want 1", len(pending))
	}
	if pending[0].Side != model.SideSell {
		t.Errorf("remaining pending side = %s, want SELL", pending[0].Side)
	}
}
