// Package autosave keeps a draft being edited persisted without the author
// asking. A Coordinator saves after a quiet period following the last edit
// (debounce), on a fixed interval as a safety net, and on demand. Every
// attempt passes the same guard: drafts missing a title or content are never
// sent, and a draft identical to the last one saved is skipped.
//
// One goroutine owns the session state. Requests to the draft endpoint run in
// their own goroutine so edits keep flowing while a save is in flight; at most
// one request is in flight and triggers that arrive meanwhile collapse into a
// single rerun against the newest snapshot.
package autosave

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/jsamuelsen/blogdraft/internal/domain"
	"github.com/jsamuelsen/blogdraft/internal/platform/logging"
	"github.com/jsamuelsen/blogdraft/internal/ports"
)

// Coordinator drives auto-save for one editing session.
type Coordinator struct {
	saver  ports.DraftSaver
	opts   options
	logger *slog.Logger

	updates   chan edit
	manual    chan chan Result
	completed chan completion
	results   chan Result
	done      chan struct{}
	stopped   chan struct{}

	// timerMu serializes Update and Close. It guards debounce and closed.
	timerMu  sync.Mutex
	debounce clock.Timer
	closed   bool

	idMu sync.RWMutex
	id   string
}

type edit struct {
	draft domain.Draft
	fire  <-chan time.Time
}

type completion struct {
	trigger     Trigger
	fingerprint string
	post        *domain.Post
	err         error
}

// pendingRun is a trigger that arrived while a request was in flight.
type pendingRun struct {
	trigger Trigger
	waiters []chan Result
}

// New creates a Coordinator and starts its session. The interval ticker
// starts immediately and is not affected by edits.
func New(saver ports.DraftSaver, opts ...Option) *Coordinator {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	c := &Coordinator{
		saver:     saver,
		opts:      o,
		logger:    o.logger.With(slog.String("component", "autosave")),
		updates:   make(chan edit),
		manual:    make(chan chan Result),
		completed: make(chan completion, 1),
		results:   make(chan Result, o.buffer),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
		id:        o.id,
	}

	ticker := o.clock.NewTicker(o.interval)

	go c.run(ticker)

	return c
}

// ID returns the identity of the document, empty until the first successful
// save of a new draft.
func (c *Coordinator) ID() string {
	c.idMu.RLock()
	defer c.idMu.RUnlock()

	return c.id
}

func (c *Coordinator) setID(id string) {
	c.idMu.Lock()
	defer c.idMu.Unlock()

	c.id = id
}

// Results delivers the outcome of every debounce and interval attempt that
// reached the draft endpoint. When the buffer is full the oldest unread
// result is discarded. The channel is closed by Close.
func (c *Coordinator) Results() <-chan Result {
	return c.results
}

// Update records the latest snapshot and restarts the debounce period.
// Updates after Close are ignored.
func (c *Coordinator) Update(draft domain.Draft) {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()

	if c.closed {
		return
	}

	if c.debounce != nil {
		c.debounce.Stop()
	}

	c.debounce = c.opts.clock.NewTimer(c.opts.debounce)
	draft.Tags = slices.Clone(draft.Tags)

	c.updates <- edit{draft: draft, fire: c.debounce.C()}
}

// Save runs the guard and, when it passes, saves immediately. It returns once
// the outcome is known or ctx is done. A save requested while another is in
// flight runs after it against the newest snapshot.
func (c *Coordinator) Save(ctx context.Context) Result {
	reply := make(chan Result, 1)

	select {
	case c.manual <- reply:
	case <-c.done:
		return Result{Outcome: Failed, Trigger: TriggerManual, Err: ErrClosed}
	case <-ctx.Done():
		return Result{Outcome: Failed, Trigger: TriggerManual, Err: ctx.Err()}
	}

	select {
	case res := <-reply:
		return res
	case <-ctx.Done():
		return Result{Outcome: Failed, Trigger: TriggerManual, Err: ctx.Err()}
	}
}

// Close ends the session. Pending timers are cancelled, the result of a
// request still in flight is ignored and Results is closed. Close may be
// called more than once.
func (c *Coordinator) Close() {
	c.timerMu.Lock()

	if c.closed {
		c.timerMu.Unlock()
		<-c.stopped

		return
	}

	c.closed = true

	if c.debounce != nil {
		c.debounce.Stop()
	}

	close(c.done)
	c.timerMu.Unlock()

	<-c.stopped
	close(c.results)
}

// session is the state owned by the run goroutine.
type session struct {
	draft       domain.Draft
	fingerprint string
	inFlight    bool
	waiters     []chan Result
	pending     *pendingRun
}

func (c *Coordinator) run(ticker clock.Ticker) {
	defer close(c.stopped)
	defer ticker.Stop()

	var (
		s         session
		debounceC <-chan time.Time
	)

	for {
		select {
		case <-c.done:
			c.abandon(&s)
			return

		case e := <-c.updates:
			s.draft = e.draft
			debounceC = e.fire

		case <-debounceC:
			debounceC = nil
			c.trigger(&s, TriggerDebounce, nil)

		case <-ticker.C():
			if s.draft.Blank() {
				continue
			}

			c.trigger(&s, TriggerInterval, nil)

		case reply := <-c.manual:
			c.trigger(&s, TriggerManual, reply)

		case done := <-c.completed:
			c.finish(&s, done)
		}
	}
}

func (c *Coordinator) trigger(s *session, trigger Trigger, reply chan Result) {
	if s.inFlight {
		if s.pending == nil {
			s.pending = &pendingRun{trigger: trigger}
		}

		if reply != nil {
			s.pending.trigger = TriggerManual
			s.pending.waiters = append(s.pending.waiters, reply)
		}

		return
	}

	var waiters []chan Result
	if reply != nil {
		waiters = append(waiters, reply)
	}

	c.attempt(s, trigger, waiters)
}

// attempt runs the guard and starts a request when it passes.
func (c *Coordinator) attempt(s *session, trigger Trigger, waiters []chan Result) {
	if !s.draft.Complete() {
		c.report(Result{Outcome: SkippedEmpty, Trigger: trigger}, waiters)
		return
	}

	fp := fingerprint(s.draft)
	if fp == s.fingerprint {
		c.report(Result{Outcome: SkippedUnchanged, Trigger: trigger}, waiters)
		return
	}

	s.inFlight = true
	s.waiters = waiters

	go c.send(trigger, s.draft, c.ID(), fp)
}

func (c *Coordinator) send(trigger Trigger, draft domain.Draft, id, fp string) {
	ctx := logging.WithContext(context.Background(), c.logger)

	if c.opts.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, c.opts.timeout)
		defer cancel()
	}

	post, err := c.saver.SaveDraft(ctx, draft, id)

	c.completed <- completion{trigger: trigger, fingerprint: fp, post: post, err: err}
}

func (c *Coordinator) finish(s *session, done completion) {
	s.inFlight = false

	res := Result{Trigger: done.trigger}

	if done.err != nil {
		res.Outcome = Failed
		res.Err = done.err
	} else {
		res.Outcome = Saved
		res.Post = done.post
		s.fingerprint = done.fingerprint

		if c.ID() == "" && done.post != nil && done.post.ID != "" {
			c.setID(done.post.ID)
		}
	}

	waiters := s.waiters
	s.waiters = nil

	c.report(res, waiters)

	if next := s.pending; next != nil {
		s.pending = nil
		c.attempt(s, next.trigger, next.waiters)
	}
}

func (c *Coordinator) report(res Result, waiters []chan Result) {
	attrs := []any{slog.String("trigger", string(res.Trigger)), slog.String("outcome", string(res.Outcome))}

	switch res.Outcome {
	case Saved:
		if res.Post != nil {
			attrs = append(attrs, slog.String("post_id", res.Post.ID))
		}

		c.logger.Info("draft saved", attrs...)
	case Failed:
		c.logger.Warn("draft save failed", append(attrs, slog.Any("error", res.Err))...)
	default:
		c.logger.Debug("draft save skipped", attrs...)
	}

	for _, w := range waiters {
		w <- res
	}

	if res.Trigger != TriggerManual && res.reachedEndpoint() {
		c.publish(res)
	}
}

// publish never blocks: when the buffer is full the oldest result is dropped.
func (c *Coordinator) publish(res Result) {
	for {
		select {
		case c.results <- res:
			return
		default:
		}

		select {
		case <-c.results:
		default:
		}
	}
}

// abandon fails every manual caller still waiting when the session closes.
func (c *Coordinator) abandon(s *session) {
	closed := Result{Outcome: Failed, Trigger: TriggerManual, Err: ErrClosed}

	for _, w := range s.waiters {
		w <- closed
	}

	if s.pending != nil {
		for _, w := range s.pending.waiters {
			w <- closed
		}
	}
}

// fingerprint is the serialization of the draft as it is sent to the draft
// endpoint.
func fingerprint(d domain.Draft) string {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}

	raw, err := json.Marshal(struct {
		Title   string   `json:"title"`
		Content string   `json:"content"`
		Tags    []string `json:"tags"`
		Status  string   `json:"status"`
	}{d.Title, d.Content, tags, string(domain.StatusDraft)})
	if err != nil {
		return ""
	}

	return string(raw)
}
