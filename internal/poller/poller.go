// Package poller runs the signal pipeline on a fixed schedule in the
// background. It only observes and reports; it never places orders.
package poller

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"spotbot/internal/strategy"
)

// SignalSource produces a signal for a symbol/interval pair. Implemented
// by trading.Trader.
type SignalSource interface {
	EvaluateSignal(ctx context.Context, symbol, interval string) (strategy.Signal, error)
}

// Notifier pushes noteworthy signals somewhere a human will see them.
type Notifier interface {
	NotifySignal(symbol string, sig strategy.Signal)
}

// Config sets what the poller watches and how often.
type Config struct {
	Symbol   string
	Interval string
	Every    time.Duration
}

// Poller periodically evaluates the strategy for one symbol. Start is
// idempotent; Stop cancels the loop's context, which also wakes a loop
// waiting between iterations.
type Poller struct {
	source   SignalSource
	notifier Notifier
	cfg      Config
	started  atomic.Bool
	cancel   context.CancelFunc
	done     chan struct{}
	logger   zerolog.Logger
}

// New creates a stopped Poller. notifier may be nil.
func New(source SignalSource, notifier Notifier, cfg Config) *Poller {
	if cfg.Every <= 0 {
		cfg.Every = 30 * time.Second
	}
	return &Poller{
		source:   source,
		notifier: notifier,
		cfg:      cfg,
		logger:   log.With().Str("component", "poller").Logger(),
	}
}

// Start launches the background loop. Calling it while already running is
// a no-op, so at most one loop exists per Poller.
func (p *Poller) Start() {
	if !p.started.CompareAndSwap(false, true) {
		p.logger.Debug().Msg("poller already running")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	p.logger.Info().
		Str("symbol", p.cfg.Symbol).
		Str("interval", p.cfg.Interval).
		Dur("every", p.cfg.Every).
		Msg("poller started")

	go p.loop(ctx)
}

// Stop cancels the loop and waits for the current iteration to finish.
// Calling it while stopped is a no-op.
func (p *Poller) Stop() {
	if !p.started.CompareAndSwap(true, false) {
		return
	}
	p.cancel()
	<-p.done
	p.logger.Info().Msg("poller stopped")
}

// Running reports whether the loop is active.
func (p *Poller) Running() bool {
	return p.started.Load()
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.cfg.Every)
	defer ticker.Stop()

	p.iterate(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.iterate(ctx)
		}
	}
}

// iterate runs one fetch-and-evaluate cycle. Failures are logged and the
// loop carries on; there is no caller to hand the error to.
func (p *Poller) iterate(ctx context.Context) {
	sig, err := p.source.EvaluateSignal(ctx, p.cfg.Symbol, p.cfg.Interval)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.logger.Error().Err(err).Str("symbol", p.cfg.Symbol).Msg("poll iteration failed")
		return
	}

	evt := p.logger.Info().Str("symbol", p.cfg.Symbol).Str("signal", string(sig.Kind))
	if sig.Price != nil {
		evt = evt.Float64("price", *sig.Price)
	}
	if sig.RSI != nil {
		evt = evt.Float64("rsi", *sig.RSI)
	}
	evt.Msg("poll signal")

	if p.notifier != nil && (sig.Kind == strategy.Buy || sig.Kind == strategy.Sell) {
		p.notifier.NotifySignal(p.cfg.Symbol, sig)
	}
}
