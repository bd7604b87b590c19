package chat

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/qos-dashboard/internal/logging"
	"github.com/signalsfoundry/qos-dashboard/internal/sched"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/rng"
)

type fakeRecorder struct{ roles []string }

func (r *fakeRecorder) ChatMessage(role string) { r.roles = append(r.roles, role) }

func newResponder(t *testing.T, src rng.Source, opts ...Option) (*Responder, *sched.FakeScheduler) {
	t.Helper()
	s := sched.NewFakeScheduler(time.Unix(1_700_000_000, 0))
	r := New(s, src, opts...)
	r.Start()
	return r, s
}

func TestStart_Greets(t *testing.T) {
	r, _ := newResponder(t, rng.New(1))
	snap := r.Snapshot()

	require.Len(t, snap.Messages, 1)
	assert.Equal(t, RoleAssistant, snap.Messages[0].Role)
	assert.Equal(t, Greeting, snap.Messages[0].Content)
	assert.False(t, snap.Typing)
}

func TestSend_HelloGetsOneCannedReply(t *testing.T) {
	rec := &fakeRecorder{}
	r, s := newResponder(t, rng.New(2), WithMetricsRecorder(rec))

	require.True(t, r.Send("hello"))
	snap := r.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, RoleUser, snap.Messages[1].Role)
	assert.Equal(t, "hello", snap.Messages[1].Content)
	assert.True(t, snap.Typing)

	s.Advance(MaxReplyDelay)
	snap = r.Snapshot()
	require.Len(t, snap.Messages, 3)
	assert.Equal(t, RoleAssistant, snap.Messages[2].Role)
	assert.True(t, IsResponse(snap.Messages[2].Content))
	assert.False(t, snap.Typing)
	assert.Equal(t, []string{"user", "assistant"}, rec.roles)

	s.Advance(time.Minute)
	assert.Len(t, r.Snapshot().Messages, 3)
}

func TestSend_TrimsInput(t *testing.T) {
	r, _ := newResponder(t, rng.New(3))
	require.True(t, r.Send("  what about gaming?\n"))
	assert.Equal(t, "what about gaming?", r.Snapshot().Messages[1].Content)
}

func TestSend_EmptyIsNoop(t *testing.T) {
	src := rng.NewSequence(0.5)
	r, s := newResponder(t, src)
	before := src.Draws()

	for _, text := range []string{"", "   ", "\t\n"} {
		assert.False(t, r.Send(text))
	}
	assert.Len(t, r.Snapshot().Messages, 1)
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, before, src.Draws())
}

func TestSend_ReplyDelayWindow(t *testing.T) {
	// 0.5 draws a 2s delay and reply index 3.
	r, s := newResponder(t, rng.NewSequence(0.5))
	r.Send("hi")

	s.Advance(1999 * time.Millisecond)
	assert.Len(t, r.Snapshot().Messages, 2)
	assert.True(t, r.Snapshot().Typing)

	s.Advance(time.Millisecond)
	snap := r.Snapshot()
	require.Len(t, snap.Messages, 3)
	assert.Equal(t, Responses()[3], snap.Messages[2].Content)
	assert.True(t, snap.Messages[2].Timestamp.Equal(snap.Messages[1].Timestamp.Add(2*time.Second)))
}

func TestSend_OverlappingRepliesFireInTimerOrder(t *testing.T) {
	// first send: delay 2.4s; second send: delay 1.5s
	r, s := newResponder(t, rng.NewSequence(0.9, 0.0))

	r.Send("first")
	s.Advance(100 * time.Millisecond)
	r.Send("second")

	snap := r.Snapshot()
	assert.Equal(t, 2, snap.Pending)

	s.Advance(1600 * time.Millisecond)
	snap = r.Snapshot()
	require.Len(t, snap.Messages, 4)
	assert.Equal(t, RoleAssistant, snap.Messages[3].Role)
	assert.True(t, snap.Typing, "first reply is still outstanding")
	assert.Equal(t, 1, snap.Pending)

	s.Advance(time.Second)
	snap = r.Snapshot()
	require.Len(t, snap.Messages, 5)
	assert.False(t, snap.Typing)
	assert.Equal(t, 0, snap.Pending)
}

func TestStop_CancelsOutstandingReplies(t *testing.T) {
	r, s := newResponder(t, rng.New(4))
	r.Send("one")
	r.Send("two")
	require.Equal(t, 2, s.Pending())

	r.Stop()
	assert.Equal(t, 0, s.Pending())
	assert.False(t, r.Running())
	assert.False(t, r.Send("three"))

	s.Advance(time.Minute)
	assert.Len(t, r.Snapshot().Messages, 3)
}

func TestQuickActionsAreSendable(t *testing.T) {
	r, _ := newResponder(t, rng.New(5))
	actions := QuickActions()
	require.Len(t, actions, 4)
	for _, a := range actions {
		assert.True(t, r.Send(a))
	}
	assert.Len(t, r.Snapshot().Messages, 5)
}

func TestReplyDelayBounds(t *testing.T) {
	assert.Equal(t, MinReplyDelay, ReplyDelay(rng.NewSequence(0)))
	src := rng.New(9)
	for i := 0; i < 1000; i++ {
		d := ReplyDelay(src)
		assert.GreaterOrEqual(t, d, MinReplyDelay)
		assert.Less(t, d, MaxReplyDelay)
	}
	assert.Len(t, Responses(), 6)
}

// parkingLogger blocks the first "user message" debug line after arm is
// called, which holds a Send between its state change and its publish.
type parkingLogger struct {
	logging.Logger
	armed   atomic.Bool
	parked  chan struct{}
	release chan struct{}
}

func newParkingLogger() *parkingLogger {
	return &parkingLogger{
		Logger:  logging.Noop(),
		parked:  make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (l *parkingLogger) With(...logging.Field) logging.Logger { return l }

func (l *parkingLogger) Debug(_ context.Context, msg string, _ ...logging.Field) {
	if msg == "user message" && l.armed.CompareAndSwap(true, false) {
		close(l.parked)
		<-l.release
	}
}

func TestSend_ObserversEndOnLatestSnapshotWhenRepliesOverlap(t *testing.T) {
	log := newParkingLogger()
	r, s := newResponder(t, rng.New(11), WithLogger(log))

	var mu sync.Mutex
	var last Snapshot
	cancel := r.Subscribe(func(snap Snapshot) {
		mu.Lock()
		last = snap
		mu.Unlock()
	})
	defer cancel()

	require.True(t, r.Send("first"))
	log.armed.Store(true)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.Send("second")
	}()
	<-log.parked

	go func() {
		defer wg.Done()
		s.Advance(MaxReplyDelay)
	}()
	time.Sleep(20 * time.Millisecond)
	close(log.release)
	wg.Wait()

	final := r.Snapshot()
	require.Len(t, final.Messages, 5)
	require.False(t, final.Typing)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, last.Messages, len(final.Messages))
	assert.Equal(t, final.Pending, last.Pending)
	assert.False(t, last.Typing)
}
