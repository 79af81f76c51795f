package sync

import (
	"context"
	"log"
	stdsync "sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cmplx-xyttmt/personal-finance-tracker/auth"
	"github.com/cmplx-xyttmt/personal-finance-tracker/database"
)

// Coordinator states. Consumers use these to decide whether to render
// local data immediately (signed-out), hold for the first sync, or render.
const (
	StateSignedOut       = "signed-out"
	StateSessionChecking = "session-checking"
	StateSyncingInitial  = "syncing-initial"
	StateReady           = "ready"
)

// Listener is the realtime subscription component the coordinator opens on
// sign-in and closes, before any local wipe, on sign-out.
type Listener interface {
	Subscribe() error
	Unsubscribe()
}

// Coordinator decides when the Engine runs: on auth transitions, on a
// periodic timer, on connectivity regain, and on a debounced trigger after
// local writes. Only one sync cycle may be in flight; triggers landing
// while one runs are dropped, the next periodic or debounced trigger
// catches up.
type Coordinator struct {
	engine   *Engine
	listener Listener
	auth     *auth.Client

	debounce    time.Duration
	interval    time.Duration
	initialWait time.Duration

	syncing atomic.Bool

	mu            stdsync.Mutex
	state         string
	authGen       uint64
	debounceTimer *time.Timer
	cron          *cron.Cron
	lastSyncTime  time.Time
	lastSyncErr   error

	initialDone chan struct{}
	initialOnce stdsync.Once
}

func NewCoordinator(engine *Engine, listener Listener, authClient *auth.Client, debounce, interval, initialWait time.Duration) *Coordinator {
	return &Coordinator{
		engine:      engine,
		listener:    listener,
		auth:        authClient,
		debounce:    debounce,
		interval:    interval,
		initialWait: initialWait,
		state:       StateSessionChecking,
		initialDone: make(chan struct{}),
	}
}

// Start registers for auth events and rehydrates any persisted session.
// A restored session triggers the initial sync without wiping local data;
// no session at all resolves the initial-sync flag immediately so
// consumers can render offline data.
func (c *Coordinator) Start(ctx context.Context) {
	c.auth.OnAuthStateChange(c.handleAuthChange)

	if err := c.auth.Restore(ctx); err != nil {
		log.Printf("Warning: session restore failed: %v", err)
	}
	if c.auth.GetSession() == nil {
		c.setState(StateSignedOut)
		c.finishInitial()
	}
}

// Stop shuts down the timers and the realtime listener.
func (c *Coordinator) Stop() {
	c.stopPeriodic()
	c.stopDebounce()
	c.listener.Unsubscribe()
}

func (c *Coordinator) handleAuthChange(event string, _ *auth.Session) {
	// Every auth transition supersedes work started under the previous
	// one; an in-flight initial sync checks this before going ready.
	c.mu.Lock()
	c.authGen++
	c.mu.Unlock()

	switch event {
	case auth.EventSignedIn:
		// A fresh sign-in on this device: whatever offline data is here
		// belongs to the previous account (or to no account) and must not
		// leak into the new one.
		c.listener.Unsubscribe()
		if err := database.ClearData(); err != nil {
			log.Printf("Failed to clear local data on sign-in: %v", err)
		}
		if err := database.DeleteSyncState(database.WatermarkKey); err != nil {
			log.Printf("Failed to clear watermark on sign-in: %v", err)
		}
		c.beginInitialSync()
	case auth.EventInitialSession:
		c.beginInitialSync()
	case auth.EventSignedOut:
		// Unsubscribe before wiping so a straggling realtime event cannot
		// resurrect deleted rows.
		c.stopPeriodic()
		c.stopDebounce()
		c.listener.Unsubscribe()
		if err := database.ClearData(); err != nil {
			log.Printf("Failed to clear local data on sign-out: %v", err)
		}
		if err := database.DeleteSyncState(database.WatermarkKey); err != nil {
			log.Printf("Failed to clear watermark on sign-out: %v", err)
		}
		c.setState(StateSignedOut)
	}
}

// beginInitialSync runs the first post-login sync with a bounded wait. The
// sync itself is never cancelled; only the completion flag is forced after
// the timeout so consumers are not stuck behind a hung network call.
func (c *Coordinator) beginInitialSync() {
	c.mu.Lock()
	gen := c.authGen
	c.state = StateSyncingInitial
	c.mu.Unlock()

	go func() {
		done := make(chan error, 1)
		go func() { done <- c.SyncNow(context.Background()) }()

		select {
		case err := <-done:
			if err != nil {
				log.Printf("Initial sync failed: %v", err)
			}
		case <-time.After(c.initialWait):
			log.Printf("Initial sync still running after %v, releasing waiters", c.initialWait)
		}

		c.finishInitial()
		if c.superseded(gen) {
			// A sign-out or another sign-in landed while this cycle ran;
			// its handler owns the state from here.
			return
		}
		if err := c.listener.Subscribe(); err != nil {
			log.Printf("Failed to open realtime subscriptions: %v", err)
		}
		c.startPeriodic(gen)

		c.mu.Lock()
		if c.authGen == gen {
			c.state = StateReady
		}
		c.mu.Unlock()
		if c.superseded(gen) {
			// The transition raced the subscribe; undo it.
			c.listener.Unsubscribe()
			c.stopPeriodic()
		}
	}()
}

// RequestSync schedules a debounced sync after a local write. Repeated
// calls within the window coalesce into one cycle; a new call resets the
// timer.
func (c *Coordinator) RequestSync() {
	if c.auth.GetSession() == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
	}
	c.debounceTimer = time.AfterFunc(c.debounce, func() {
		if err := c.SyncNow(context.Background()); err != nil {
			log.Printf("Debounced sync failed: %v", err)
		}
	})
}

// NotifyOnline triggers an immediate sync after connectivity returns.
func (c *Coordinator) NotifyOnline() {
	if c.auth.GetSession() == nil {
		return
	}
	go func() {
		if err := c.SyncNow(context.Background()); err != nil {
			log.Printf("Sync after reconnect failed: %v", err)
		}
	}()
}

// SyncNow runs one cycle unless one is already in flight, in which case
// the trigger is dropped.
func (c *Coordinator) SyncNow(ctx context.Context) error {
	if !c.syncing.CompareAndSwap(false, true) {
		return nil
	}
	defer c.syncing.Store(false)

	err := c.engine.Sync(ctx)

	c.mu.Lock()
	c.lastSyncTime = time.Now()
	c.lastSyncErr = err
	c.mu.Unlock()

	return err
}

// WaitInitialSync blocks until the first sync resolves (success, failure
// or forced timeout) or the context is done.
func (c *Coordinator) WaitInitialSync(ctx context.Context) error {
	select {
	case <-c.initialDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the coordinator's auth/sync state.
func (c *Coordinator) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastSync returns when the last cycle finished and its error, if any.
func (c *Coordinator) LastSync() (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSyncTime, c.lastSyncErr
}

func (c *Coordinator) setState(state string) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

func (c *Coordinator) superseded(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authGen != gen
}

func (c *Coordinator) finishInitial() {
	c.initialOnce.Do(func() { close(c.initialDone) })
}

// startPeriodic runs the safety-net sync on a fixed interval while signed
// in, catching anything a missed realtime event left behind.
func (c *Coordinator) startPeriodic(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.authGen != gen || c.cron != nil {
		return
	}
	c.cron = cron.New()
	_, err := c.cron.AddFunc("@every "+c.interval.String(), func() {
		if err := c.SyncNow(context.Background()); err != nil {
			log.Printf("Periodic sync failed: %v", err)
		}
	})
	if err != nil {
		log.Printf("Failed to schedule periodic sync: %v", err)
		c.cron = nil
		return
	}
	c.cron.Start()
}

func (c *Coordinator) stopPeriodic() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		c.cron.Stop()
		c.cron = nil
	}
}

func (c *Coordinator) stopDebounce() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
		c.debounceTimer = nil
	}
}
