package loop

import (
	"context"
	"sync"
	"time"

	"github.com/justyntemme/filer/internal/debug"
)

// Loop is a real-time event loop. Run it on the goroutine that owns the
// state its tasks touch; other goroutines hand work over with Post.
type Loop struct {
	*sources

	postMu sync.Mutex
	posted []func()
	wake   chan struct{}
}

// New creates an idle loop. Nothing runs until Run is called.
func New() *Loop {
	return &Loop{
		sources: newSources(),
		wake:    make(chan struct{}, 1),
	}
}

// Idle implements Scheduler.
func (l *Loop) Idle(fn func() bool) Handle {
	h := l.add(&source{fn: fn, idle: true})
	debug.Log(debug.LOOP, "Idle: added source %d", h)
	l.signal()
	return h
}

// Timeout implements Scheduler.
func (l *Loop) Timeout(d time.Duration, fn func() bool) Handle {
	h := l.add(&source{fn: fn, interval: d, due: time.Now().Add(d)})
	debug.Log(debug.LOOP, "Timeout: added source %d (%v)", h, d)
	l.signal()
	return h
}

// Cancel implements Scheduler.
func (l *Loop) Cancel(h Handle) {
	if l.cancel(h) {
		debug.Log(debug.LOOP, "Cancel: removed source %d", h)
	}
}

// Post queues fn to run on the loop goroutine. Safe from any goroutine and
// never blocks.
func (l *Loop) Post(fn func()) {
	l.postMu.Lock()
	l.posted = append(l.posted, fn)
	l.postMu.Unlock()
	l.signal()
}

// Pending returns the number of scheduled idle tasks and timeouts.
func (l *Loop) Pending() (idle, timers int) {
	return l.counts()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) takePosted() []func() {
	l.postMu.Lock()
	defer l.postMu.Unlock()
	p := l.posted
	l.posted = nil
	return p
}

func (l *Loop) hasPosted() bool {
	l.postMu.Lock()
	defer l.postMu.Unlock()
	return len(l.posted) > 0
}

// Run dispatches sources until ctx is cancelled. Each iteration runs posted
// work, then expired timeouts, then at most one idle task.
func (l *Loop) Run(ctx context.Context) error {
	debug.Log(debug.LOOP, "Run: started")
	defer debug.Log(debug.LOOP, "Run: stopped")

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		for _, fn := range l.takePosted() {
			fn()
		}

		now := time.Now()
		for _, src := range l.due(now) {
			if !l.alive(src) {
				continue
			}
			l.finish(src, src.fn(), time.Now())
		}

		if l.hasPosted() {
			continue
		}
		if next, ok := l.next(); ok && !next.After(time.Now()) {
			continue
		}

		if src := l.popIdle(); src != nil {
			l.finish(src, src.fn(), time.Now())
			continue
		}

		var timeout <-chan time.Time
		if next, ok := l.next(); ok {
			d := time.Until(next)
			if timer == nil {
				timer = time.NewTimer(d)
			} else {
				timer.Reset(d)
			}
			timeout = timer.C
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		case <-timeout:
		}
	}
}
