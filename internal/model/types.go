package model

import (
	"fmt"

	"github.com/google/uuid"
)

// Side is the direction of an offer.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide validates and converts a raw side string.
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case SideBuy, SideSell:
		return Side(s), nil
	}
	return "", fmt.Errorf("unknown offer side %q", s)
}

// Status is the lifecycle state of an offer.
//
// StatusCanceled is modeled for completeness but no path in the core
// produces it.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusFilled   Status = "FILLED"
	StatusCanceled Status = "CANCELED"
)

// Stock is immutable reference data, looked up by code.
type Stock struct {
	ID   int64  // Primary key
	Code string // Upstream issue code (e.g. "005930")
	Name string // Display name
}

// Account holds a trading identity's cash balance.
// Mutated only inside a fill transaction.
type Account struct {
	ID          int64
	CashBalance int64 // Minor units
}

// Offer is a pending buy/sell order awaiting an exact-price match.
type Offer struct {
	ID        int64
	RequestID uuid.UUID // Intake dedupe key (unique)
	StockCode string
	AccountID int64
	Side      Side
	Price     int64
	Quantity  int64
	Status    Status
}

// Trade is the 1:1 fill record for an offer. It is created atomically with
// the offer's PENDING -> FILLED transition and exists iff the offer is FILLED.
type Trade struct {
	ID      int64
	OfferID int64
}

// OfferRequest is the payload carried by the external order-intake queue.
// Delivery is at-least-once; RequestID makes persistence idempotent.
type OfferRequest struct {
	RequestID uuid.UUID `json:"request_id"`
	StockCode string    `json:"stock_code"`
	AccountID int64     `json:"account_id"`
	Price     int64     `json:"price"`
	Quantity  int64     `json:"quantity"`
	Side      string    `json:"side"` // "BUY" or "SELL"
}

// Tick is a single (symbol, price) market event from the upstream feed.
type Tick struct {
	Symbol string
	Price  int64
}

// Fill is emitted when a pending offer's price matches an incoming tick.
type Fill struct {
	OfferID   int64
	TradeID   int64
	AccountID int64
	Symbol    string
	Side      Side
	Price     int64
	Quantity  int64
}
