package launch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Session is one launch attempt of a modpack.
type Session struct {
	ModpackID string

	mu      sync.Mutex
	state   State
	events  chan Event
	closed  bool
	proc    Process
	stopped bool
	notice  string
	staged  int
	code    int
	err     error

	dropped atomic.Int64
	cancel  context.CancelFunc
	done    chan struct{}
}

func newSession(modpackID string, buffer int, cancel context.CancelFunc) *Session {
	return &Session{
		ModpackID: modpackID,
		events:    make(chan Event, buffer),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Events is closed once the session reaches a terminal state.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Done is closed once the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session ends and returns the exit code. An aborted
// launch returns its cause.
func (s *Session) Wait() (int, error) {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code, s.err
}

// Stop kills the game if it is running, or abandons the launch if it is
// still being prepared.
func (s *Session) Stop() error {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	proc := s.proc
	s.mu.Unlock()

	s.cancel()
	if proc != nil {
		return proc.Kill()
	}
	return nil
}

// Notice is the loader fallback explanation, empty when the loader was provisioned.
func (s *Session) Notice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notice
}

// Staged is the number of mod files copied into the instance by this launch.
func (s *Session) Staged() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.staged
}

// Dropped counts events discarded because the subscriber fell behind.
func (s *Session) Dropped() int64 {
	return s.dropped.Load()
}

func (s *Session) transition(next State, msg string) {
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
	s.emit(Event{Kind: EventState, State: next, Message: msg})
}

// emit never blocks: when the buffer is full the event is dropped.
func (s *Session) emit(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if e.Kind != EventState {
		e.State = s.state
	}
	select {
	case s.events <- e:
	default:
		s.dropped.Add(1)
	}
}

func (s *Session) attach(p Process) {
	s.mu.Lock()
	s.proc = p
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		_ = p.Kill()
	}
}

func (s *Session) wasStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *Session) setNotice(n string) {
	s.mu.Lock()
	s.notice = n
	s.mu.Unlock()
}

func (s *Session) setStaged(n int) {
	s.mu.Lock()
	s.staged = n
	s.mu.Unlock()
}

func (s *Session) finish(state State, code int, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	s.transition(state, msg)
	if state == Closed {
		s.emit(Event{Kind: EventClose, Code: code})
	}

	s.mu.Lock()
	s.code = code
	s.err = err
	s.closed = true
	close(s.events)
	s.mu.Unlock()

	s.cancel()
	close(s.done)
}
