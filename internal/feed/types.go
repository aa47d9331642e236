package feed

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected  = errors.New("not connected")
	ErrAlreadyClosed = errors.New("already closed")
	ErrNoCipherKey   = errors.New("no cipher key for subscription")
)

// State is the feed connection state.
type State string

const (
	StateDisconnected State = "DISCONNECTED"
	StateConnecting   State = "CONNECTING"
	StateConnected    State = "CONNECTED"
	StateReconnecting State = "RECONNECTING"
)

// Config holds feed session settings.
type Config struct {
	URL              string        // Upstream websocket URL
	Channel          string        // Data channel tr_id (e.g. "H0STCNT0")
	ProbeSymbol      string        // Always-on liquidity probe symbol
	SyncInterval     time.Duration // Subscription reconcile period
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	BufferSize       int // Inbound message channel capacity
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Channel:          "H0STCNT0",
		ProbeSymbol:      "005930",
		SyncInterval:     10 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       1000,
	}
}

// keepAliveID is the tr_id of upstream keep-alive frames.
const keepAliveID = "PINGPONG"

// subscribeEnvelope is the outbound subscribe message.
type subscribeEnvelope struct {
	Header subscribeHeader `json:"header"`
	Body   subscribeBody   `json:"body"`
}

type subscribeHeader struct {
	ApprovalKey string `json:"approval_key"`
	CustType    string `json:"custtype"`
	TrType      string `json:"tr_type"`
	ContentType string `json:"content-type"`
}

type subscribeBody struct {
	Input subscribeInput `json:"input"`
}

type subscribeInput struct {
	TrID  string `json:"tr_id"`
	TrKey string `json:"tr_key"`
}

// frameEnvelope is the inbound JSON frame shape. Control frames carry a
// tr_id header; subscribe acks carry body.output.{iv,key}; encrypted data
// frames carry body.content.
type frameEnvelope struct {
	Header frameHeader `json:"header"`
	Body   frameBody   `json:"body"`
}

type frameHeader struct {
	TrID  string `json:"tr_id"`
	TrKey string `json:"tr_key"`
}

type frameBody struct {
	Output  *frameOutput `json:"output"`
	Content string       `json:"content"`
}

type frameOutput struct {
	IV  string `json:"iv"`
	Key string `json:"key"`
}
