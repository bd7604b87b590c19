package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/signalsfoundry/qos-dashboard/internal/logging"
	"github.com/signalsfoundry/qos-dashboard/internal/sched"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/notify"
	"github.com/signalsfoundry/qos-dashboard/internal/sim/rng"
)

// Panel is the name the chat reports under.
const Panel = "chat"

// Snapshot is an immutable view of the transcript.
type Snapshot struct {
	Messages []Message `json:"messages"`
	// Typing is true while at least one reply is outstanding.
	Typing    bool      `json:"typing"`
	Pending   int       `json:"pending"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MetricsRecorder counts transcript appends per role.
type MetricsRecorder interface {
	ChatMessage(role string)
}

// Option customises Responder construction.
type Option func(*Responder)

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Responder) {
		if l != nil {
			r.log = l
		}
	}
}

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(r *Responder) { r.metrics = m }
}

// WithIDs overrides message id generation.
func WithIDs(ids rng.IDFunc) Option {
	return func(r *Responder) {
		if ids != nil {
			r.ids = ids
		}
	}
}

// WithMiddleware wraps every reply timer.
func WithMiddleware(mw ...sched.Middleware) Option {
	return func(r *Responder) { r.mw = append(r.mw, mw...) }
}

// Responder owns the transcript and the outstanding reply timers. Every
// Send schedules its own reply; replies land in timer order, which may differ
// from send order when sends overlap.
type Responder struct {
	sched   sched.EventScheduler
	src     rng.Source
	ids     rng.IDFunc
	log     logging.Logger
	metrics MetricsRecorder
	mw      []sched.Middleware

	// pub is held from snapshot through Publish so observers see
	// snapshots in mutation order. Taken before mu.
	pub sync.Mutex

	mu        sync.RWMutex
	messages  []Message
	pending   int
	updatedAt time.Time
	timers    *sched.Group

	observers notify.Broadcaster[Snapshot]
}

// New constructs a stopped Responder.
func New(s sched.EventScheduler, src rng.Source, opts ...Option) *Responder {
	r := &Responder{
		sched: s,
		src:   src,
		ids:   rng.Counter("msg"),
		log:   logging.Noop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With(logging.Panel(Panel))
	return r
}

// Start resets the transcript to the greeting.
func (r *Responder) Start() {
	r.pub.Lock()
	defer r.pub.Unlock()
	r.mu.Lock()
	if r.timers != nil {
		r.mu.Unlock()
		return
	}
	now := r.sched.Now()
	r.messages = []Message{{ID: r.ids(), Role: RoleAssistant, Content: Greeting, Timestamp: now}}
	r.pending = 0
	r.updatedAt = now
	r.timers = sched.NewGroup(r.sched, Panel, r.mw...)
	snap := r.snapshotLocked()
	r.mu.Unlock()

	r.log.Info(context.Background(), "chat responder started")
	r.observers.Publish(snap)
}

// Stop cancels every outstanding reply.
func (r *Responder) Stop() {
	r.mu.Lock()
	timers := r.timers
	r.timers = nil
	dropped := r.pending
	r.pending = 0
	r.mu.Unlock()

	if timers == nil {
		return
	}
	timers.Stop()
	r.log.Info(context.Background(), "chat responder stopped", logging.Int("dropped_replies", dropped))
}

// Running reports whether the responder accepts messages.
func (r *Responder) Running() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.timers != nil
}

// Snapshot returns the current transcript.
func (r *Responder) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

// Subscribe registers fn for every new snapshot.
func (r *Responder) Subscribe(fn func(Snapshot)) (cancel func()) {
	return r.observers.Subscribe(fn)
}

// Send appends text as a user message and schedules one canned reply. Text
// that is empty after trimming is ignored, as is any Send on a stopped
// responder. It reports whether a message was appended.
func (r *Responder) Send(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	r.pub.Lock()
	defer r.pub.Unlock()
	r.mu.Lock()
	if r.timers == nil {
		r.mu.Unlock()
		return false
	}
	now := r.sched.Now()
	msg := Message{ID: r.ids(), Role: RoleUser, Content: text, Timestamp: now}
	r.messages = append(r.messages[:len(r.messages):len(r.messages)], msg)
	r.pending++
	r.updatedAt = now
	delay := ReplyDelay(r.src)
	r.timers.After("reply", delay, r.reply)
	snap := r.snapshotLocked()
	r.mu.Unlock()

	r.log.Debug(context.Background(), "user message",
		logging.String("id", msg.ID),
		logging.Duration("reply_in", delay),
		logging.Int("pending", snap.Pending),
	)
	r.record(RoleUser)
	r.observers.Publish(snap)
	return true
}

func (r *Responder) reply(at time.Time) {
	r.pub.Lock()
	defer r.pub.Unlock()
	r.mu.Lock()
	if r.timers == nil {
		r.mu.Unlock()
		return
	}
	msg := Message{ID: r.ids(), Role: RoleAssistant, Content: PickResponse(r.src), Timestamp: at}
	r.messages = append(r.messages[:len(r.messages):len(r.messages)], msg)
	if r.pending > 0 {
		r.pending--
	}
	r.updatedAt = at
	snap := r.snapshotLocked()
	r.mu.Unlock()

	r.log.Debug(context.Background(), "assistant reply",
		logging.String("id", msg.ID),
		logging.Int("pending", snap.Pending),
	)
	r.record(RoleAssistant)
	r.observers.Publish(snap)
}

func (r *Responder) record(role Role) {
	if r.metrics != nil {
		r.metrics.ChatMessage(string(role))
	}
}

func (r *Responder) snapshotLocked() Snapshot {
	return Snapshot{
		Messages:  append([]Message(nil), r.messages...),
		Typing:    r.pending > 0,
		Pending:   r.pending,
		UpdatedAt: r.updatedAt,
	}
}
