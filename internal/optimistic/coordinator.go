// Package optimistic flips like and bookmark state locally the moment a viewer
// taps, runs the authoritative toggle in the background, and reconciles the
// displayed state with whatever the server reports.
package optimistic

import (
	"context"
	"errors"
	"sync"
)

// Kind is the membership being toggled.
type Kind string

const (
	KindLike     Kind = "like"
	KindBookmark Kind = "bookmark"
)

// ErrClosed is reported by tickets issued after Close.
var ErrClosed = errors.New("optimistic: coordinator closed")

// Key identifies one toggle dimension of one quote for one viewer.
type Key struct {
	QuoteID  string
	ViewerID string
	Kind     Kind
}

// ServerState is an authoritative membership and count.
type ServerState struct {
	Member bool `json:"member"`
	Count  int  `json:"count"`
}

// DisplayState is what the viewer currently sees. Count is only tracked for
// likes; bookmark states always carry a zero count.
type DisplayState struct {
	Member  bool
	Count   int
	Pending bool
}

// Mutator performs the authoritative toggle for viewerID and reports the result.
type Mutator interface {
	Toggle(ctx context.Context, quoteID, viewerID string, kind Kind) (ServerState, error)
}

// Listener observes display changes. Calls are serialized in the order the
// changes happened and run with no coordinator lock held, so a listener may
// read State or issue another Toggle.
type Listener interface {
	// OnToggled fires on every optimistic flip and again on every reconciliation.
	OnToggled(key Key, state DisplayState)
	// OnMutationFailed fires when a failed toggle is rolled back.
	OnMutationFailed(key Key, restored bool, err error)
}

// Hooks adapts plain functions to Listener. Nil fields are skipped.
type Hooks struct {
	Toggled func(key Key, state DisplayState)
	Failed  func(key Key, restored bool, err error)
}

func (h Hooks) OnToggled(key Key, state DisplayState) {
	if h.Toggled != nil {
		h.Toggled(key, state)
	}
}

func (h Hooks) OnMutationFailed(key Key, restored bool, err error) {
	if h.Failed != nil {
		h.Failed(key, restored, err)
	}
}

// Ticket tracks one issued toggle.
type Ticket struct {
	Seq  uint64
	done chan struct{}
	err  error
}

// Done is closed once the toggle's completion has been processed or dropped.
func (t *Ticket) Done() <-chan struct{} {
	return t.done
}

// Err returns the mutation error after Done is closed.
func (t *Ticket) Err() error {
	<-t.done
	return t.err
}

type entry struct {
	key      Key
	base     ServerState
	display  DisplayState
	issued   uint64
	settled  uint64
	pending  map[uint64]struct{}
	detached bool
}

func (e *entry) flip(s DisplayState) DisplayState {
	s.Member = !s.Member
	if e.key.Kind != KindLike {
		return s
	}
	if s.Member {
		s.Count++
	} else if s.Count > 0 {
		s.Count--
	}
	return s
}

// recompute rebuilds the display from the last authoritative state plus one
// flip per toggle still in flight.
func (e *entry) recompute() {
	d := DisplayState{Member: e.base.Member, Count: e.base.Count}
	for range e.pending {
		d = e.flip(d)
	}
	d.Pending = len(e.pending) > 0
	e.display = d
}

func (e *entry) setBase(state ServerState) {
	if e.key.Kind != KindLike {
		state.Count = 0
	}
	e.base = state
}

func (e *entry) newerPending(seq uint64) bool {
	for s := range e.pending {
		if s > seq {
			return true
		}
	}
	return false
}

// Coordinator tracks display state per Key. It is safe for concurrent use.
type Coordinator struct {
	mutator  Mutator
	listener Listener

	mu      sync.Mutex
	entries map[Key]*entry
	closed  bool

	// queue holds listener calls and ticket releases in state order. Whichever
	// goroutine finds draining unset delivers them, outside mu.
	queue    []func()
	draining bool

	wg sync.WaitGroup
}

// New creates a coordinator. listener may be nil.
func New(mutator Mutator, listener Listener) *Coordinator {
	if listener == nil {
		listener = Hooks{}
	}
	return &Coordinator{
		mutator:  mutator,
		listener: listener,
		entries:  make(map[Key]*entry),
	}
}

// Seed records the server's state for key, as loaded with the quote.
// Seeding a key with toggles in flight only replaces the base they apply to.
func (c *Coordinator) Seed(key Key, state ServerState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entryLocked(key)
	e.setBase(state)
	e.recompute()
}

// State returns the displayed state for key and whether the key is tracked.
func (c *Coordinator) State(key Key) (DisplayState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return DisplayState{}, false
	}
	return e.display, true
}

func (c *Coordinator) entryLocked(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{key: key, pending: make(map[uint64]struct{})}
		c.entries[key] = e
	}
	return e
}

// Toggle flips the displayed state immediately and starts the authoritative
// mutation. The mutation is not cancelled when ctx is; it always runs to completion.
func (c *Coordinator) Toggle(ctx context.Context, quoteID, viewerID string, kind Kind) *Ticket {
	key := Key{QuoteID: quoteID, ViewerID: viewerID, Kind: kind}
	ticket := &Ticket{done: make(chan struct{})}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		ticket.err = ErrClosed
		close(ticket.done)
		return ticket
	}
	e := c.entryLocked(key)
	e.issued++
	seq := e.issued
	ticket.Seq = seq
	e.pending[seq] = struct{}{}
	e.display = e.flip(e.display)
	e.display.Pending = true
	state := e.display
	c.wg.Add(1)
	c.enqueueLocked(func() { c.listener.OnToggled(key, state) })
	c.unlockAndDispatch()

	go func() {
		defer c.wg.Done()
		result, err := c.mutator.Toggle(context.WithoutCancel(ctx), quoteID, viewerID, kind)
		ticket.err = err
		c.complete(e, seq, result, err, ticket)
	}()
	return ticket
}

// enqueueLocked queues fn for delivery. c.mu must be held.
func (c *Coordinator) enqueueLocked(fn func()) {
	c.wg.Add(1)
	c.queue = append(c.queue, fn)
}

// unlockAndDispatch releases c.mu and, unless another goroutine is already
// draining, delivers queued calls until the queue is empty.
func (c *Coordinator) unlockAndDispatch() {
	if c.draining {
		c.mu.Unlock()
		return
	}
	c.draining = true
	for len(c.queue) > 0 {
		fn := c.queue[0]
		c.queue[0] = nil
		c.queue = c.queue[1:]
		c.mu.Unlock()
		fn()
		c.wg.Done()
		c.mu.Lock()
	}
	c.draining = false
	c.mu.Unlock()
}

func (c *Coordinator) complete(e *entry, seq uint64, result ServerState, err error, ticket *Ticket) {
	c.mu.Lock()
	defer c.unlockAndDispatch()
	release := func() { close(ticket.done) }

	if e.detached {
		c.enqueueLocked(release)
		return
	}
	if seq <= e.settled {
		// a newer completion already settled this key
		delete(e.pending, seq)
		c.enqueueLocked(release)
		return
	}

	if err == nil {
		for s := range e.pending {
			if s <= seq {
				delete(e.pending, s)
			}
		}
		e.settled = seq
		e.setBase(result)
		e.recompute()
		key, state := e.key, e.display
		c.enqueueLocked(func() { c.listener.OnToggled(key, state) })
		c.enqueueLocked(release)
		return
	}

	delete(e.pending, seq)
	if e.newerPending(seq) {
		// the newer toggle's outcome decides what is shown
		c.enqueueLocked(release)
		return
	}
	e.recompute()
	key, restored := e.key, e.display.Member
	c.enqueueLocked(func() { c.listener.OnMutationFailed(key, restored, err) })
	c.enqueueLocked(release)
}

// Detach drops interest in a quote for a viewer, typically when its view goes
// away. Completions still in flight finish on the server but are ignored here.
func (c *Coordinator) Detach(quoteID, viewerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, kind := range []Kind{KindLike, KindBookmark} {
		key := Key{QuoteID: quoteID, ViewerID: viewerID, Kind: kind}
		if e, ok := c.entries[key]; ok {
			e.detached = true
			delete(c.entries, key)
		}
	}
}

// Close detaches every key and rejects further toggles.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for key, e := range c.entries {
		e.detached = true
		delete(c.entries, key)
	}
}

// Wait blocks until every issued mutation has returned and its listener calls
// have been delivered.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}
