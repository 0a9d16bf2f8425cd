package optimistic

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reply struct {
	state ServerState
	err   error
}

// gatedMutator holds every call until the test releases it, so completions can
// be delivered in any order.
type gatedMutator struct {
	mu    sync.Mutex
	calls []chan reply
	ready chan struct{}
}

func newGatedMutator() *gatedMutator {
	return &gatedMutator{ready: make(chan struct{}, 16)}
}

func (m *gatedMutator) Toggle(ctx context.Context, quoteID, viewerID string, kind Kind) (ServerState, error) {
	ch := make(chan reply, 1)
	m.mu.Lock()
	m.calls = append(m.calls, ch)
	m.mu.Unlock()
	m.ready <- struct{}{}
	r := <-ch
	return r.state, r.err
}

func (m *gatedMutator) awaitCalls(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-m.ready:
		case <-time.After(2 * time.Second):
			t.Fatalf("mutation %d never started", i+1)
		}
	}
}

func (m *gatedMutator) release(i int, r reply) {
	m.mu.Lock()
	ch := m.calls[i]
	m.mu.Unlock()
	ch <- r
}

type recorder struct {
	mu      sync.Mutex
	toggled []DisplayState
	failed  []bool
}

func (r *recorder) OnToggled(key Key, state DisplayState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toggled = append(r.toggled, state)
}

func (r *recorder) OnMutationFailed(key Key, restored bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, restored)
}

func waitTicket(t *testing.T, tk *Ticket) {
	t.Helper()
	select {
	case <-tk.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("ticket never completed")
	}
}

var likeKey = Key{QuoteID: "q1", ViewerID: "v1", Kind: KindLike}

func TestToggle_FlipsImmediatelyAndReconciles(t *testing.T) {
	m := newGatedMutator()
	rec := &recorder{}
	c := New(m, rec)
	c.Seed(likeKey, ServerState{Member: false, Count: 4})

	tk := c.Toggle(context.Background(), "q1", "v1", KindLike)
	state, ok := c.State(likeKey)
	require.True(t, ok)
	assert.Equal(t, DisplayState{Member: true, Count: 5, Pending: true}, state)

	m.awaitCalls(t, 1)
	// someone else liked in the meantime; the server's count wins
	m.release(0, reply{state: ServerState{Member: true, Count: 7}})
	waitTicket(t, tk)
	require.NoError(t, tk.Err())

	state, _ = c.State(likeKey)
	assert.Equal(t, DisplayState{Member: true, Count: 7}, state)
	assert.Equal(t, []DisplayState{
		{Member: true, Count: 5, Pending: true},
		{Member: true, Count: 7},
	}, rec.toggled)
	assert.Empty(t, rec.failed)
}

func TestToggle_FailureRestoresPreToggleState(t *testing.T) {
	m := newGatedMutator()
	rec := &recorder{}
	c := New(m, rec)
	c.Seed(likeKey, ServerState{Member: true, Count: 3})

	tk := c.Toggle(context.Background(), "q1", "v1", KindLike)
	state, _ := c.State(likeKey)
	assert.Equal(t, DisplayState{Member: false, Count: 2, Pending: true}, state)

	m.awaitCalls(t, 1)
	boom := errors.New("network down")
	m.release(0, reply{err: boom})
	waitTicket(t, tk)
	assert.ErrorIs(t, tk.Err(), boom)

	state, _ = c.State(likeKey)
	assert.Equal(t, DisplayState{Member: true, Count: 3}, state)
	assert.Equal(t, []bool{true}, rec.failed)
}

func TestToggle_StaleSuccessIsDiscarded(t *testing.T) {
	m := newGatedMutator()
	rec := &recorder{}
	c := New(m, rec)
	c.Seed(likeKey, ServerState{Member: false, Count: 0})

	first := c.Toggle(context.Background(), "q1", "v1", KindLike)
	m.awaitCalls(t, 1)
	second := c.Toggle(context.Background(), "q1", "v1", KindLike)
	m.awaitCalls(t, 1)

	state, _ := c.State(likeKey)
	assert.Equal(t, DisplayState{Member: false, Count: 0, Pending: true}, state)

	m.release(1, reply{state: ServerState{Member: false, Count: 0}})
	waitTicket(t, second)
	m.release(0, reply{state: ServerState{Member: true, Count: 1}})
	waitTicket(t, first)

	state, _ = c.State(likeKey)
	assert.Equal(t, DisplayState{Member: false, Count: 0}, state)
	assert.Len(t, rec.toggled, 3)
}

func TestToggle_EarlierSuccessKeepsNewerFlipVisible(t *testing.T) {
	m := newGatedMutator()
	c := New(m, nil)
	c.Seed(likeKey, ServerState{Member: false, Count: 2})

	first := c.Toggle(context.Background(), "q1", "v1", KindLike)
	m.awaitCalls(t, 1)
	second := c.Toggle(context.Background(), "q1", "v1", KindLike)
	m.awaitCalls(t, 1)

	m.release(0, reply{state: ServerState{Member: true, Count: 3}})
	waitTicket(t, first)
	state, _ := c.State(likeKey)
	assert.Equal(t, DisplayState{Member: false, Count: 2, Pending: true}, state)

	m.release(1, reply{state: ServerState{Member: false, Count: 2}})
	waitTicket(t, second)
	state, _ = c.State(likeKey)
	assert.Equal(t, DisplayState{Member: false, Count: 2}, state)
}

func TestToggle_OlderFailureWaitsForNewerOutcome(t *testing.T) {
	m := newGatedMutator()
	rec := &recorder{}
	c := New(m, rec)
	c.Seed(likeKey, ServerState{Member: false, Count: 0})

	first := c.Toggle(context.Background(), "q1", "v1", KindLike)
	m.awaitCalls(t, 1)
	second := c.Toggle(context.Background(), "q1", "v1", KindLike)
	m.awaitCalls(t, 1)

	m.release(0, reply{err: errors.New("timeout")})
	waitTicket(t, first)
	assert.Empty(t, rec.failed)

	m.release(1, reply{err: errors.New("timeout")})
	waitTicket(t, second)
	state, _ := c.State(likeKey)
	assert.Equal(t, DisplayState{Member: false, Count: 0}, state)
	assert.Equal(t, []bool{false}, rec.failed)
}

func TestToggle_NewerFailureThenOlderFailureRollsAllTheWayBack(t *testing.T) {
	m := newGatedMutator()
	rec := &recorder{}
	c := New(m, rec)
	c.Seed(likeKey, ServerState{Member: false, Count: 0})

	first := c.Toggle(context.Background(), "q1", "v1", KindLike)
	m.awaitCalls(t, 1)
	second := c.Toggle(context.Background(), "q1", "v1", KindLike)
	m.awaitCalls(t, 1)

	m.release(1, reply{err: errors.New("timeout")})
	waitTicket(t, second)
	state, _ := c.State(likeKey)
	assert.Equal(t, DisplayState{Member: true, Count: 1, Pending: true}, state)

	m.release(0, reply{err: errors.New("timeout")})
	waitTicket(t, first)
	state, _ = c.State(likeKey)
	assert.Equal(t, DisplayState{Member: false, Count: 0}, state)
	assert.Equal(t, []bool{true, false}, rec.failed)
}

func TestDetach_LateCompletionIsNoOp(t *testing.T) {
	m := newGatedMutator()
	rec := &recorder{}
	c := New(m, rec)
	c.Seed(likeKey, ServerState{Member: false, Count: 0})

	tk := c.Toggle(context.Background(), "q1", "v1", KindLike)
	m.awaitCalls(t, 1)
	c.Detach("q1", "v1")

	m.release(0, reply{err: errors.New("late")})
	waitTicket(t, tk)

	_, ok := c.State(likeKey)
	assert.False(t, ok)
	assert.Empty(t, rec.failed)
	assert.Len(t, rec.toggled, 1)
}

func TestClose_RejectsNewToggles(t *testing.T) {
	m := newGatedMutator()
	c := New(m, nil)
	c.Close()

	tk := c.Toggle(context.Background(), "q1", "v1", KindBookmark)
	waitTicket(t, tk)
	assert.ErrorIs(t, tk.Err(), ErrClosed)
	c.Wait()
}

func TestToggle_CancelledContextStillCompletes(t *testing.T) {
	m := newGatedMutator()
	c := New(m, nil)
	ctx, cancel := context.WithCancel(context.Background())

	tk := c.Toggle(ctx, "q1", "v1", KindBookmark)
	cancel()
	m.awaitCalls(t, 1)
	m.release(0, reply{state: ServerState{Member: true, Count: 1}})
	waitTicket(t, tk)

	state, _ := c.State(Key{QuoteID: "q1", ViewerID: "v1", Kind: KindBookmark})
	assert.True(t, state.Member)
	assert.False(t, state.Pending)
}

func TestHooks_NilFieldsAreSkipped(t *testing.T) {
	var h Hooks
	assert.NotPanics(t, func() {
		h.OnToggled(likeKey, DisplayState{})
		h.OnMutationFailed(likeKey, false, errors.New("x"))
	})
}

func TestListener_ReadsStateWhileAnotherKeyCompletes(t *testing.T) {
	m := newGatedMutator()
	ctx := context.Background()
	q1Key := Key{QuoteID: "q1", ViewerID: "v1", Kind: KindLike}

	entered := make(chan struct{})
	proceed := make(chan struct{})
	var (
		once sync.Once
		seen DisplayState
		c    *Coordinator
	)
	c = New(m, Hooks{Toggled: func(key Key, state DisplayState) {
		if key != q1Key || !state.Pending {
			return
		}
		once.Do(func() {
			close(entered)
			<-proceed
			seen, _ = c.State(key)
		})
	}})

	q2 := c.Toggle(ctx, "q2", "v1", KindLike)
	m.awaitCalls(t, 1)

	issued := make(chan *Ticket, 1)
	go func() { issued <- c.Toggle(ctx, "q1", "v1", KindLike) }()
	<-entered

	// q2 completes while the q1 listener call is still running
	m.release(0, reply{state: ServerState{Member: true, Count: 1}})
	time.Sleep(20 * time.Millisecond)
	close(proceed)

	var q1 *Ticket
	select {
	case q1 = <-issued:
	case <-time.After(2 * time.Second):
		t.Fatal("listener blocked reading state")
	}
	assert.Equal(t, DisplayState{Member: true, Count: 1, Pending: true}, seen)

	waitTicket(t, q2)
	state, _ := c.State(Key{QuoteID: "q2", ViewerID: "v1", Kind: KindLike})
	assert.Equal(t, DisplayState{Member: true, Count: 1}, state)

	m.awaitCalls(t, 1)
	m.release(1, reply{state: ServerState{Member: true, Count: 1}})
	waitTicket(t, q1)
	c.Wait()
}

func TestListener_MayToggleInline(t *testing.T) {
	m := newGatedMutator()
	var (
		c       *Coordinator
		retries []*Ticket
		mu      sync.Mutex
	)
	c = New(m, Hooks{Failed: func(key Key, _ bool, _ error) {
		mu.Lock()
		defer mu.Unlock()
		if len(retries) == 0 {
			retries = append(retries, c.Toggle(context.Background(), key.QuoteID, key.ViewerID, key.Kind))
		}
	}})
	c.Seed(likeKey, ServerState{Member: false, Count: 0})

	tk := c.Toggle(context.Background(), "q1", "v1", KindLike)
	m.awaitCalls(t, 1)
	m.release(0, reply{err: errors.New("timeout")})
	waitTicket(t, tk)

	m.awaitCalls(t, 1)
	m.release(1, reply{state: ServerState{Member: true, Count: 1}})
	mu.Lock()
	require.Len(t, retries, 1)
	retry := retries[0]
	mu.Unlock()
	waitTicket(t, retry)

	state, _ := c.State(likeKey)
	assert.Equal(t, DisplayState{Member: true, Count: 1}, state)
}

func TestToggle_BookmarkLeavesCountAlone(t *testing.T) {
	m := newGatedMutator()
	rec := &recorder{}
	c := New(m, rec)
	key := Key{QuoteID: "q1", ViewerID: "v1", Kind: KindBookmark}
	c.Seed(key, ServerState{Member: false, Count: 9})

	tk := c.Toggle(context.Background(), "q1", "v1", KindBookmark)
	state, _ := c.State(key)
	assert.Equal(t, DisplayState{Member: true, Pending: true}, state)

	m.awaitCalls(t, 1)
	m.release(0, reply{state: ServerState{Member: true, Count: 12}})
	waitTicket(t, tk)

	state, _ = c.State(key)
	assert.Equal(t, DisplayState{Member: true}, state)
	assert.Equal(t, []DisplayState{
		{Member: true, Pending: true},
		{Member: true},
	}, rec.toggled)
}
