package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"pemilihan-be/pkg/database"
	"pemilihan-be/pkg/logger"
)

// NotificationSource delivers Postgres NOTIFY payloads. *database.PostgresDB implements it.
type NotificationSource interface {
	Listen(ctx context.Context, channel string, handle func(payload string)) error
}

// ChangeListener refreshes the tally whenever the voters or candidates tables
// change, including writes made by other instances or by hand. Bursts of
// notifications collapse into a single pending refresh.
type ChangeListener struct {
	source     NotificationSource
	aggregator *TallyAggregator
	cache      *CacheService
	logger     *logger.Logger
	retryDelay time.Duration

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	pending   chan struct{}
	accepting atomic.Bool
}

func NewChangeListener(source NotificationSource, aggregator *TallyAggregator, cache *CacheService, log *logger.Logger) *ChangeListener {
	return &ChangeListener{
		source:     source,
		aggregator: aggregator,
		cache:      cache,
		logger:     log.Named("change_listener"),
		retryDelay: 5 * time.Second,
		pending:    make(chan struct{}, 1),
	}
}

// Start begins listening on the election changes channel
func (l *ChangeListener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.isRunning {
		return nil
	}

	l.logger.WithField("channel", database.ChangesChannel).Info("Starting change listener...")

	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel

	l.wg.Add(2)
	go l.listenRoutine(runCtx)
	go l.refreshRoutine(runCtx)

	l.isRunning = true
	l.accepting.Store(true)
	return nil
}

// Stop cancels the listener and waits for its goroutines, bounded by ctx
func (l *ChangeListener) Stop(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.isRunning {
		return nil
	}

	l.logger.Info("Stopping change listener...")
	l.accepting.Store(false)
	l.cancel()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	l.isRunning = false
	l.logger.Info("Change listener stopped")
	return nil
}

func (l *ChangeListener) listenRoutine(ctx context.Context) {
	defer l.wg.Done()

	for {
		err := l.source.Listen(ctx, database.ChangesChannel, l.notify)
		if ctx.Err() != nil {
			l.logger.Debug("Listen routine cancelled")
			return
		}
		if err != nil {
			l.logger.WithError(err).Warn("Change listener disconnected, retrying")
		}

		select {
		case <-time.After(l.retryDelay):
		case <-ctx.Done():
			return
		}
	}
}

// Request queues a refresh alongside pending notifications. It reports false
// when the listener is not running so the caller can refresh itself.
func (l *ChangeListener) Request(reason string) bool {
	if !l.accepting.Load() {
		return false
	}
	l.notify(reason)
	return true
}

func (l *ChangeListener) notify(table string) {
	l.logger.WithField("table", table).Debug("Change notification received")

	select {
	case l.pending <- struct{}{}:
	default:
		// A refresh is already queued and will see this change
	}
}

func (l *ChangeListener) refreshRoutine(ctx context.Context) {
	defer l.wg.Done()

	for {
		select {
		case <-l.pending:
			l.refresh(ctx)
		case <-ctx.Done():
			l.logger.Debug("Refresh routine cancelled")
			return
		}
	}
}

func (l *ChangeListener) refresh(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := l.cache.InvalidateStats(ctx); err != nil {
		l.logger.WithError(err).Warn("Failed to invalidate stats cache")
	}
	// Refresh logs its own failures
	_, _ = l.aggregator.Refresh(ctx)
}
