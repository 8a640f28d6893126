package engine

import (
	"context"
	"sync"
	"time"

	"github.com/offlinehq/tidesync/internal/logging"
)

// Orchestrator runs the periodic sync cycle (drain, then pull) and the
// connectivity watcher, and folds remote change notifications into
// coalesced pull requests. All triggers funnel through the same guards:
// no session or no connectivity means the cycle silently does nothing.
type Orchestrator struct {
	engine *Engine
	logger logging.Logger

	syncInterval  time.Duration
	checkInterval time.Duration

	// pullDue has capacity one: any burst of change notifications while
	// a pull is running collapses into a single follow-up pull.
	pullDue chan struct{}

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

func NewOrchestrator(e *Engine, syncInterval, checkInterval time.Duration, logger logging.Logger) *Orchestrator {
	return &Orchestrator{
		engine:        e,
		logger:        logger,
		syncInterval:  syncInterval,
		checkInterval: checkInterval,
		pullDue:       make(chan struct{}, 1),
	}
}

// Start launches the sync ticker, the connectivity watcher, the change
// feed listener, and the coalescing pull worker. Calling Start while the
// goroutines are already running is a no-op, and a stopped orchestrator
// may be started again, so each sign-in can reuse the same instance.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.running = true

	o.wg.Add(4)
	go o.runTicker(ctx)
	go o.runWatcher(ctx)
	go o.runListener(ctx)
	go o.runPullWorker(ctx)
}

// Stop cancels the background goroutines and waits for them to exit.
// Safe to call more than once or before Start.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running {
		return
	}
	o.running = false
	o.cancel()
	o.wg.Wait()
}

// SyncNow runs one push/pull cycle immediately. Without a session it is a
// no-op; when the engine believes it is offline it probes connectivity
// once first and gives up quietly if the probe fails. The returned error
// reflects local failures only.
func (o *Orchestrator) SyncNow(ctx context.Context) error {
	if !o.engine.session.Authenticated() {
		return nil
	}
	if !o.engine.Online() {
		if err := o.engine.remote.Ping(ctx); err != nil {
			return nil
		}
		o.engine.setOnline(true)
	}
	return o.runCycle(ctx)
}

// SignOut stops the orchestrator, then clears the store, the queue, and
// the session credentials, strictly in that order.
func (o *Orchestrator) SignOut(ctx context.Context) error {
	o.Stop()
	return o.engine.Reset(ctx)
}

func (o *Orchestrator) runCycle(ctx context.Context) error {
	if _, err := o.engine.Drain(ctx); err != nil {
		return err
	}
	o.engine.PullAll(ctx)
	return nil
}

func (o *Orchestrator) maybeCycle(ctx context.Context) {
	if !o.engine.session.Authenticated() || !o.engine.Online() {
		return
	}
	if err := o.runCycle(ctx); err != nil {
		o.logger.Warn(ctx, "sync cycle failed", "error", err)
	}
}

func (o *Orchestrator) runTicker(ctx context.Context) {
	defer o.wg.Done()

	ticker := time.NewTicker(o.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.maybeCycle(ctx)
		}
	}
}

// runWatcher pings the server on a short interval and flips the online
// flag. The offline to online transition kicks off an immediate cycle so
// queued mutations do not wait for the next tick.
func (o *Orchestrator) runWatcher(ctx context.Context) {
	defer o.wg.Done()

	ticker := time.NewTicker(o.checkInterval)
	defer ticker.Stop()

	o.checkOnline(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.checkOnline(ctx)
		}
	}
}

func (o *Orchestrator) checkOnline(ctx context.Context) {
	wasOnline := o.engine.Online()
	err := o.engine.remote.Ping(ctx)
	online := err == nil
	o.engine.setOnline(online)

	if online && !wasOnline {
		o.logger.Info(ctx, "connection restored")
		o.maybeCycle(ctx)
	}
	if !online && wasOnline {
		o.logger.Info(ctx, "connection lost", "error", err)
	}
}

// runListener keeps a change feed subscription open while signed in and
// online, marking a pull due for every event. Events carry no payload;
// the pull worker fetches the actual rows through the normal delta path.
func (o *Orchestrator) runListener(ctx context.Context) {
	defer o.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}
		if !o.engine.session.Authenticated() || !o.engine.Online() {
			if !sleep(ctx, o.checkInterval) {
				return
			}
			continue
		}

		events, err := o.engine.remote.Subscribe(ctx)
		if err != nil {
			o.logger.Debug(ctx, "change feed unavailable", "error", err)
			if !sleep(ctx, o.syncInterval) {
				return
			}
			continue
		}

	feed:
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					break feed
				}
				o.markPullDue()
			}
		}
	}
}

func (o *Orchestrator) markPullDue() {
	select {
	case o.pullDue <- struct{}{}:
	default:
	}
}

func (o *Orchestrator) runPullWorker(ctx context.Context) {
	defer o.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.pullDue:
			if !o.engine.session.Authenticated() || !o.engine.Online() {
				continue
			}
			o.engine.PullAll(ctx)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
