package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mooney/market-feed/internal/model"
)

// TickHandler receives extracted ticks.
type TickHandler interface {
	HandleTick(ctx context.Context, tick model.Tick)
}

// TickHandlerFunc is a function adapter for TickHandler.
type TickHandlerFunc func(ctx context.Context, tick model.Tick)

func (f TickHandlerFunc) HandleTick(ctx context.Context, tick model.Tick) {
	f(ctx, tick)
}

// KeyProvider supplies the upstream approval key for subscribe requests.
type KeyProvider interface {
	Key(ctx context.Context) (string, error)
}

// SymbolSource provides the symbols that currently have pending offers.
type SymbolSource interface {
	PendingSymbols(ctx context.Context) ([]string, error)
}

// Feed maintains the upstream connection, its subscriptions and the
// classification of inbound frames.
type Feed struct {
	cfg     Config
	client  Client
	keys    KeyProvider
	symbols SymbolSource
	handler TickHandler
	logger  *slog.Logger

	ciphers *CipherTable

	mu         sync.Mutex
	state      State
	subscribed map[string]struct{} // grows monotonically: no unsubscribe path

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a feed session.
func New(cfg Config, client Client, keys KeyProvider, symbols SymbolSource, handler TickHandler, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{
		cfg:        cfg,
		client:     client,
		keys:       keys,
		symbols:    symbols,
		handler:    handler,
		logger:     logger,
		ciphers:    NewCipherTable(),
		state:      StateDisconnected,
		subscribed: make(map[string]struct{}),
	}
}

// State returns the current connection state.
func (f *Feed) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// SubscribedCount returns the size of the subscription set.
func (f *Feed) SubscribedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribed)
}

func (f *Feed) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

// Start connects to the upstream, runs an immediate subscription sync and
// launches the dispatch and resync loops.
func (f *Feed) Start(ctx context.Context) error {
	f.ctx, f.cancel = context.WithCancel(ctx)

	f.setState(StateConnecting)
	if err := f.client.Connect(f.ctx); err != nil {
		f.setState(StateDisconnected)
		return err
	}
	f.setState(StateConnected)

	f.syncSubscriptions(f.ctx)

	f.wg.Add(2)
	go f.dispatchLoop()
	go f.syncLoop()

	f.logger.Info("feed started",
		"channel", f.cfg.Channel,
		"probe_symbol", f.cfg.ProbeSymbol,
		"sync_interval", f.cfg.SyncInterval,
	)
	return nil
}

// Stop shuts down the loops and closes the connection.
func (f *Feed) Stop(ctx context.Context) error {
	if f.cancel != nil {
		f.cancel()
	}

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		f.logger.Warn("feed stop timed out")
	}

	err := f.client.Close()
	f.setState(StateDisconnected)
	f.logger.Info("feed stopped")
	return err
}

// dispatchLoop handles inbound frames sequentially: each frame is processed
// to completion before the next is read.
func (f *Feed) dispatchLoop() {
	defer f.wg.Done()

	for {
		select {
		case <-f.ctx.Done():
			return

		case err := <-f.client.Errors():
			f.logger.Error("feed connection lost", "error", err)
			// TODO: reconnect with backoff and re-subscribe.
			f.setState(StateDisconnected)
			return

		case data, ok := <-f.client.Messages():
			if !ok {
				return
			}
			f.handleMessage(f.ctx, data)
		}
	}
}

// syncLoop re-runs the subscription sync for the life of the connection.
func (f *Feed) syncLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.cfg.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.ctx.Done():
			return
		case <-ticker.C:
			f.syncSubscriptions(f.ctx)
		}
	}
}

// syncSubscriptions reconciles the desired symbol set (pending offers plus
// the probe symbol) against the subscription set. Idempotent: an unchanged
// desired set produces no subscribe requests. Symbols no longer desired are
// not unsubscribed.
func (f *Feed) syncSubscriptions(ctx context.Context) {
	if !f.client.IsConnected() {
		return
	}

	codes, err := f.symbols.PendingSymbols(ctx)
	if err != nil {
		f.logger.Error("query pending symbols", "error", err)
		return
	}

	desired := codes
	if f.cfg.ProbeSymbol != "" {
		found := false
		for _, c := range codes {
			if c == f.cfg.ProbeSymbol {
				found = true
				break
			}
		}
		if !found {
			desired = append(desired, f.cfg.ProbeSymbol)
		}
	}

	for _, code := range desired {
		if strings.TrimSpace(code) == "" {
			continue
		}

		f.mu.Lock()
		_, already := f.subscribed[code]
		f.mu.Unlock()
		if already {
			continue
		}

		if err := f.subscribe(ctx, code); err != nil {
			f.logger.Warn("subscribe failed", "symbol", code, "error", err)
			continue
		}

		f.mu.Lock()
		f.subscribed[code] = struct{}{}
		f.mu.Unlock()
	}
}

// subscribe sends a subscribe request for one symbol on the data channel.
func (f *Feed) subscribe(ctx context.Context, symbol string) error {
	key, err := f.keys.Key(ctx)
	if err != nil {
		return err
	}

	env := subscribeEnvelope{
		Header: subscribeHeader{
			ApprovalKey: key,
			CustType:    "P",
			TrType:      "1",
			ContentType: "utf-8",
		},
		Body: subscribeBody{
			Input: subscribeInput{
				TrID:  f.cfg.Channel,
				TrKey: symbol,
			},
		},
	}

	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if err := f.client.Send(data); err != nil {
		return err
	}

	f.logger.Info("subscribe requested", "channel", f.cfg.Channel, "symbol", symbol)
	return nil
}

// handleMessage classifies and processes a single inbound frame. Any
// per-frame failure is logged and contained: it never terminates the
// connection or affects subsequent frames.
func (f *Feed) handleMessage(ctx context.Context, data []byte) {
	msg := string(data)

	if !looksLikeJSON(msg) {
		f.handlePipeFrame(ctx, msg)
		return
	}

	var env frameEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		f.logger.Warn("unparseable json frame", "error", err)
		return
	}

	trID := env.Header.TrID

	// Keep-alive: no-op, no response required.
	if strings.EqualFold(trID, keepAliveID) {
		return
	}

	// Subscription acknowledgment: store the negotiated iv/key pair.
	if env.Body.Output != nil && env.Body.Output.IV != "" && env.Body.Output.Key != "" {
		if err := f.ciphers.Put(trID, env.Header.TrKey, env.Body.Output.IV, env.Body.Output.Key); err != nil {
			f.logger.Warn("store cipher key", "channel", trID, "symbol", env.Header.TrKey, "error", err)
			return
		}
		f.logger.Info("subscription acknowledged", "channel", trID, "symbol", env.Header.TrKey)
		return
	}

	// Encrypted data frame: decrypt and fall through to the pipe path.
	if env.Body.Content != "" {
		plaintext, err := f.ciphers.Decrypt(trID, env.Header.TrKey, env.Body.Content)
		if err != nil {
			// A data frame can race its subscribe ack; dropping is benign.
			f.logger.Warn("drop encrypted frame", "channel", trID, "symbol", env.Header.TrKey, "error", err)
			return
		}
		f.handlePipeFrame(ctx, plaintext)
		return
	}

	f.logger.Debug("informational frame", "tr_id", trID, "frame", msg)
}

// handlePipeFrame parses a pipe-delimited frame and emits its ticks.
func (f *Feed) handlePipeFrame(ctx context.Context, frame string) {
	for _, tick := range parsePipeFrame(frame, f.cfg.Channel) {
		f.handler.HandleTick(ctx, tick)
	}
}
