// Package loop provides the single-threaded event loop that owns the
// directory cache.
//
// Work is scheduled as idle tasks or timeouts. A task function returns true
// to stay scheduled and false to be removed, and may cancel its own handle
// while running. Idle tasks run only when no posted work and no expired
// timeout is pending.
package loop

import (
	"sort"
	"sync"
	"time"
)

// Handle identifies a scheduled source. The zero Handle is never issued.
type Handle uint64

// Scheduler is the part of a loop the directory cache depends on.
type Scheduler interface {
	// Idle schedules fn to run when the loop has nothing more urgent to do.
	Idle(fn func() bool) Handle
	// Timeout schedules fn to run after d, then every d while it returns true.
	Timeout(d time.Duration, fn func() bool) Handle
	// Cancel removes a source. Unknown or already removed handles are ignored.
	Cancel(h Handle)
}

type source struct {
	id       Handle
	fn       func() bool
	idle     bool
	interval time.Duration
	due      time.Time
}

// sources is the bookkeeping shared by Loop and Manual.
type sources struct {
	mu     sync.Mutex
	nextID Handle
	byID   map[Handle]*source
	idles  []Handle // Round-robin order
}

func newSources() *sources {
	return &sources{byID: make(map[Handle]*source)}
}

func (s *sources) add(src *source) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	src.id = s.nextID
	s.byID[src.id] = src
	if src.idle {
		s.idles = append(s.idles, src.id)
	}
	return src.id
}

func (s *sources) cancel(h Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.byID[h]
	if !ok {
		return false
	}
	delete(s.byID, h)
	if src.idle {
		for i, id := range s.idles {
			if id == h {
				s.idles = append(s.idles[:i], s.idles[i+1:]...)
				break
			}
		}
	}
	return true
}

// popIdle removes the next idle source from the rotation. The caller must
// hand it back to finish after running it.
func (s *sources) popIdle() *source {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.idles) > 0 {
		id := s.idles[0]
		s.idles = s.idles[1:]
		if src, ok := s.byID[id]; ok {
			return src
		}
	}
	return nil
}

// due returns the timeouts expired at now, earliest first.
func (s *sources) due(now time.Time) []*source {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*source
	for _, src := range s.byID {
		if !src.idle && !src.due.After(now) {
			out = append(out, src)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].due.Equal(out[j].due) {
			return out[i].id < out[j].id
		}
		return out[i].due.Before(out[j].due)
	})
	return out
}

// alive reports whether src has not been cancelled.
func (s *sources) alive(src *source) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[src.id] == src
}

// finish reschedules or removes src after it ran. A source cancelled while
// running stays removed.
func (s *sources) finish(src *source, again bool, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byID[src.id] != src {
		return
	}
	if !again {
		delete(s.byID, src.id)
		return
	}
	if src.idle {
		s.idles = append(s.idles, src.id)
	} else {
		src.due = now.Add(src.interval)
	}
}

// next returns the earliest timeout deadline.
func (s *sources) next() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var earliest time.Time
	found := false
	for _, src := range s.byID {
		if src.idle {
			continue
		}
		if !found || src.due.Before(earliest) {
			earliest = src.due
			found = true
		}
	}
	return earliest, found
}

func (s *sources) counts() (idle, timers int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idle = len(s.idles)
	timers = len(s.byID) - idle
	return idle, timers
}
