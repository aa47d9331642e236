package engine

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/mooney/market-feed/internal/model"
	"github.com/mooney/market-feed/internal/repository"
)

func seedOffer(t *testing.T, store *repository.Memory, code string, accountID int64, side model.Side, price, qty int64) int64 {
	t.Helper()
	offer := &model.Offer{
		RequestID: uuid.New(),
		StockCode: code,
		AccountID: accountID,
		Side:      side,
		Price:     price,
		Quantity:  qty,
		Status:    model.StatusPending,
	}
	if err := store.SaveOffer(context.Background(), offer); err != nil {
		t.Fatalf("seed offer: %v", err)
	}
	return offer.ID
}

func TestMatchOrdersBuyFill(t *testing.T) {
	store := repository.NewMemory()
	store.AddStock(model.Stock{ID: 1, Code: "005930", Name: "Samsung Electronics"})
	store.AddAccount(model.Account{ID: 1, CashBalance: 1000})
	offerID := seedOffer(t, store, "005930", 1, model.SideBuy, 100, 10)

	eng := New(store, nil)
	fills, err := eng.MatchOrders(context.Background(), "005930", 100)
	if err != nil {
		t.Fatalf("MatchOrders: %v", err)
	}
	if len(fills) != 1 {
		t.Fatalf("got %d fills, want 1", len(fills))
	}

	offer, _ := store.Offer(offerID)
	if offer.Status != model.StatusFilled {
		t.Errorf("offer status = %v, want FILLED", offer.Status)
	}
	if trades := store.Trades(); len(trades) != 1 || trades[0].OfferID != offerID {
		t.Errorf("trades = %+v, want one for offer %d", trades, offerID)
	}
	// Buy of 10 at 100 debits the full notional.
	if acct, _ := store.Account(1); acct.CashBalance != 0 {
		t.Errorf("balance = %d, want 0", acct.CashBalance)
	}
}

func TestMatchOrdersSellFill(t *testing.T) {
	store := repository.NewMemory()
	store.AddStock(model.Stock{ID: 1, Code: "005930"})
	store.AddAccount(model.Account{ID: 1, CashBalance: 500})
	seedOffer(t, store, "005930", 1, model.SideSell, 100, 3)

	eng := New(store, nil)
	fills, err := eng.MatchOrders(context.Background(), "005930", 100)
	if err != nil {
		t.Fatalf("MatchOrders: %v", err)
	}
	if len(fills) != 1 {
		t.Fatalf("got %d fills, want 1", len(fills))
	}
	if acct, _ := store.Account(1); acct.CashBalance != 800 {
		t.Errorf("balance = %d, want 800", acct.CashBalance)
	}
}

func TestMatchOrdersExactPriceOnly(t *testing.T) {
	store := repository.NewMemory()
	store.AddStock(model.Stock{ID: 1, Code: "005930"})
	store.AddAccount(model.Account{ID: 1, CashBalance: 10000})
	cheap := seedOffer(t, store, "005930", 1, model.SideBuy, 99, 1)
	exact := seedOffer(t, store, "005930", 1, model.SideBuy, 100, 1)
	rich := seedOffer(t, store, "005930", 1, model.SideBuy, 101, 1)

	eng := New(store, nil)
	fills, err := eng.MatchOrders(context.Background(), "005930", 100)
	if err != nil {
		t.Fatalf("MatchOrders: %v", err)
	}
	if len(fills) != 1 || fills[0].OfferID != exact {
		t.Fatalf("fills = %+v, want exactly offer %d", fills, exact)
	}

	for _, id := range []int64{cheap, rich} {
		if offer, _ := store.Offer(id); offer.Status != model.StatusPending {
			t.Errorf("offer %d status = %v, want PENDING", id, offer.Status)
		}
	}
}

func TestMatchOrdersOtherSymbolUntouched(t *testing.T) {
	store := repository.NewMemory()
	store.AddStock(model.Stock{ID: 1, Code: "005930"})
	store.AddStock(model.Stock{ID: 2, Code: "000660"})
	store.AddAccount(model.Account{ID: 1, CashBalance: 1000})
	other := seedOffer(t, store, "000660", 1, model.SideBuy, 100, 1)

	eng := New(store, nil)
	fills, err := eng.MatchOrders(context.Background(), "005930", 100)
	if err != nil {
		t.Fatalf("MatchOrders: %v", err)
	}
	if len(fills) != 0 {
		t.Errorf("got %d fills, want 0", len(fills))
	}
	if offer, _ := store.Offer(other); offer.Status != model.StatusPending {
		t.Errorf("offer on other symbol was filled")
	}
}

func TestMatchOrdersRedeliveryIdempotent(t *testing.T) {
	store := repository.NewMemory()
	store.AddStock(model.Stock{ID: 1, Code: "005930"})
	store.AddAccount(model.Account{ID: 1, CashBalance: 1000})
	seedOffer(t, store, "005930", 1, model.SideBuy, 100, 5)

	eng := New(store, nil)
	ctx := context.Background()

	first, err := eng.MatchOrders(ctx, "005930", 100)
	if err != nil {
		t.Fatalf("first MatchOrders: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("got %d fills, want 1", len(first))
	}

	// Same tick again: nothing left to fill, balance unchanged.
	second, err := eng.MatchOrders(ctx, "005930", 100)
	if err != nil {
		t.Fatalf("second MatchOrders: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("redelivery produced %d fills, want 0", len(second))
	}
	if trades := store.Trades(); len(trades) != 1 {
		t.Errorf("got %d trades, want 1", len(trades))
	}
	if acct, _ := store.Account(1); acct.CashBalance != 500 {
		t.Errorf("balance = %d, want 500", acct.CashBalance)
	}
}

func TestHandleTickMatchesAndLogsErrors(t *testing.T) {
	store := repository.NewMemory()
	store.AddStock(model.Stock{ID: 1, Code: "005930"})
	store.AddAccount(model.Account{ID: 1, CashBalance: 1000})
	offerID := seedOffer(t, store, "005930", 1, model.SideBuy, 100, 1)

	eng := New(store, nil)
	eng.HandleTick(context.Background(), model.Tick{Symbol: "005930", Price: 100})

	if offer, _ := store.Offer(offerID); offer.Status != model.StatusFilled {
		t.Errorf("offer status = %v, want FILLED", offer.Status)
	}
}
