// FILE: lixenwraith/confclass/watch.go
package config

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const DefaultMaxWatchers = 100 // Prevent resource exhaustion

// Notices sent on Watch channels besides changed field names
const (
	NoticeReloadError   = "reload_error:"
	NoticeReloadTimeout = "reload_timeout"
)

// WatchOptions configures poll-triggered reloading
type WatchOptions struct {
	// PollInterval between reloads (minimum 100ms)
	PollInterval time.Duration

	// MaxWatchers limits concurrent watch channels
	MaxWatchers int

	// ReloadTimeout bounds a single poll-triggered reload
	ReloadTimeout time.Duration
}

// DefaultWatchOptions returns sensible defaults for auto reload
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		PollInterval:  DefaultPollInterval,
		MaxWatchers:   DefaultMaxWatchers,
		ReloadTimeout: DefaultReloadTimeout,
	}
}

// watcher polls one shape and fans change notifications out to subscribers
type watcher struct {
	mu               sync.RWMutex
	ctx              context.Context
	cancel           context.CancelFunc
	opts             WatchOptions
	key              string
	watching         atomic.Bool
	reloadInProgress atomic.Bool
	watchers         map[int64]chan string // subscriber channels
	watcherID        atomic.Int64
}

// AutoReload starts polling Reload for a loaded shape. Calling it again while
// a poller runs keeps the existing poller.
func (r *Registry) AutoReload(key string, opts WatchOptions) error {
	if opts.PollInterval < MinPollInterval {
		opts.PollInterval = MinPollInterval
	}
	if opts.MaxWatchers <= 0 {
		opts.MaxWatchers = DefaultMaxWatchers
	}
	if opts.ReloadTimeout <= 0 {
		opts.ReloadTimeout = DefaultReloadTimeout
	}

	e, err := r.lookupEntry(key)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e.watcher != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.watcher = &watcher{
		ctx:      ctx,
		cancel:   cancel,
		opts:     opts,
		key:      key,
		watchers: make(map[int64]chan string),
	}
	go e.watcher.watchLoop(r)

	r.logger.Debug("auto reload started", "shape", key, "interval", opts.PollInterval)
	return nil
}

// StopAutoReload stops polling for key and closes its watch channels
func (r *Registry) StopAutoReload(key string) {
	r.mu.Lock()
	var w *watcher
	if e, ok := r.entries[key]; ok {
		w = e.watcher
		e.watcher = nil
	}
	r.mu.Unlock()

	if w != nil {
		w.stop()
		r.logger.Debug("auto reload stopped", "shape", key)
	}
}

// Watch returns a channel receiving the names of fields changed by
// poll-triggered reloads, plus reload_error:<msg> and reload_timeout notices.
// Auto reload starts with default options if it is not running.
func (r *Registry) Watch(key string) (<-chan string, error) {
	if err := r.AutoReload(key, DefaultWatchOptions()); err != nil {
		return nil, err
	}

	r.mu.RLock()
	var w *watcher
	if e, ok := r.entries[key]; ok {
		w = e.watcher
	}
	r.mu.RUnlock()

	if w == nil {
		// Stopped between the two calls
		ch := make(chan string)
		close(ch)
		return ch, nil
	}
	return w.subscribe(), nil
}

// IsAutoReloading reports whether a poller runs for key
func (r *Registry) IsAutoReloading(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[key]
	return ok && e.watcher != nil && e.watcher.watching.Load()
}

// WatcherCount returns the number of active watch channels for key
func (r *Registry) WatcherCount(key string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[key]
	if !ok || e.watcher == nil {
		return 0
	}

	e.watcher.mu.RLock()
	defer e.watcher.mu.RUnlock()
	return len(e.watcher.watchers)
}

// watchLoop is the main polling loop
func (w *watcher) watchLoop(r *Registry) {
	if !w.watching.CompareAndSwap(false, true) {
		return // Already watching
	}
	defer w.watching.Store(false)

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.performReload(r)
		}
	}
}

// performReload reloads the shape and notifies subscribers of changed fields
func (w *watcher) performReload(r *Registry) {
	// Prevent overlapping polls
	if !w.reloadInProgress.CompareAndSwap(false, true) {
		return
	}
	defer w.reloadInProgress.Store(false)

	ctx, cancel := context.WithTimeout(w.ctx, w.opts.ReloadTimeout)
	defer cancel()

	old, cur, err := r.reload(ctx, w.key)
	if err != nil {
		if w.ctx.Err() != nil {
			return // Stopping
		}
		if errors.Is(err, context.DeadlineExceeded) {
			w.notifyWatchers(NoticeReloadTimeout)
			return
		}
		w.notifyWatchers(fmt.Sprintf("%s%v", NoticeReloadError, err))
		return
	}

	for _, name := range changedFields(old, cur) {
		w.notifyWatchers(name)
	}
}

// subscribe creates a new watcher channel
func (w *watcher) subscribe() <-chan string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.watchers) >= w.opts.MaxWatchers {
		// Closed channel signals the limit to the caller
		ch := make(chan string)
		close(ch)
		return ch
	}

	// Buffered so slow subscribers do not stall the poller
	ch := make(chan string, 10)
	id := w.watcherID.Add(1)
	w.watchers[id] = ch

	go func() {
		<-w.ctx.Done()
		w.mu.Lock()
		delete(w.watchers, id)
		close(ch)
		w.mu.Unlock()
	}()

	return ch
}

// notifyWatchers sends a notice to all subscribers, dropping it for full channels
func (w *watcher) notifyWatchers(notice string) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, ch := range w.watchers {
		select {
		case ch <- notice:
		default:
		}
	}
}

// stop terminates the poller
func (w *watcher) stop() {
	if w.cancel != nil {
		w.cancel()
	}

	// Wait for the loop to exit with timeout
	deadline := time.Now().Add(ShutdownTimeout)
	for w.watching.Load() && time.Now().Before(deadline) {
		time.Sleep(SpinWaitInterval)
	}
}
