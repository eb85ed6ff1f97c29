package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// TokenRefresher is the part of the upstream token lifecycle the keeper drives
type TokenRefresher interface {
	Valid() bool
	Refresh(ctx context.Context) (string, error)
}

// TokenKeeper periodically re-authenticates ahead of demand so user requests
// rarely wait on a credential exchange
type TokenKeeper struct {
	refresher TokenRefresher
	interval  time.Duration
	stopChan  chan struct{}
	stopOnce  sync.Once
	logger    *slog.Logger
}

// NewTokenKeeper creates a new token keeper
func NewTokenKeeper(refresher TokenRefresher, interval time.Duration, logger *slog.Logger) *TokenKeeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenKeeper{
		refresher: refresher,
		interval:  interval,
		stopChan:  make(chan struct{}),
		logger:    logger.With("component", "scheduler"),
	}
}

// Start runs the keeper loop until Stop is called. The first check happens immediately.
func (k *TokenKeeper) Start() {
	k.logger.Info("Token keeper started", "interval", k.interval)
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	k.tick()
	for {
		select {
		case <-ticker.C:
			k.tick()
		case <-k.stopChan:
			k.logger.Info("Token keeper stopped")
			return
		}
	}
}

// Stop stops the keeper
func (k *TokenKeeper) Stop() {
	k.stopOnce.Do(func() { close(k.stopChan) })
}

// tick refreshes the token when the cached one is missing or inside its refresh margin
func (k *TokenKeeper) tick() {
	if k.refresher.Valid() {
		k.logger.Debug("Cached token still valid")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-k.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	if _, err := k.refresher.Refresh(ctx); err != nil {
		k.logger.Error("Token pre-warm failed", "error", err)
		return
	}
	k.logger.Info("Token pre-warmed")
}
