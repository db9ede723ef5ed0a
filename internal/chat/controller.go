// Package chat owns a conversation with the search backend: the transcript,
// the single in-flight request and the error banner shown to the user.
package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nexus-chat/internal/catalog"
	"nexus-chat/internal/tfidf"
)

const (
	DefaultContextWindow = 2
	DefaultResultLimit   = 3
	DefaultRecordTimeout = 5 * time.Second
)

// Backend answers a query with ranked snippets.
type Backend interface {
	Send(ctx context.Context, query string, resultLimit int) (*tfidf.Response, error)
}

// Recorder receives every settled exchange after the controller is idle
// again. Errors are logged and ignored.
type Recorder interface {
	Record(ctx context.Context, ex Exchange) error
}

type Option func(*Controller)

func WithContextWindow(n int) Option {
	return func(c *Controller) {
		if n >= 0 {
			c.contextWindow = n
		}
	}
}

func WithResultLimit(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.resultLimit = n
		}
	}
}

func WithMessages(s *catalog.Store) Option {
	return func(c *Controller) { c.messages = s }
}

func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithRecordTimeout bounds each Recorder call.
func WithRecordTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.recordTimeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithClock replaces time.Now for turn timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithIDs replaces the uuid generator for turn ids.
func WithIDs(newID func() string) Option {
	return func(c *Controller) { c.newID = newID }
}

// Controller is safe for concurrent use. Only its own methods mutate the
// transcript; views read it through State.
type Controller struct {
	backend       Backend
	messages      *catalog.Store
	recorder      Recorder
	recordTimeout time.Duration
	log           *zap.Logger
	now           func() time.Time
	newID         func() string
	contextWindow int
	resultLimit   int

	mu    sync.Mutex
	turns []Turn
	busy  bool
	err   string
	draft string
	// epoch changes on Clear and Reset so that a response to a request
	// issued before them is not applied to the new transcript.
	epoch uint64

	updates chan struct{}
}

// New returns an idle controller whose transcript holds the greeting.
func New(backend Backend, opts ...Option) *Controller {
	c := &Controller{
		backend:       backend,
		log:           zap.NewNop(),
		now:           time.Now,
		newID:         uuid.NewString,
		contextWindow: DefaultContextWindow,
		resultLimit:   DefaultResultLimit,
		recordTimeout: DefaultRecordTimeout,
		updates:       make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.messages == nil {
		c.messages = catalog.NewStore(catalog.Default())
	}
	c.turns = []Turn{c.newTurn(c.messages.Get().Greeting, true)}
	return c
}

// Submit sends text to the backend and blocks until the exchange settles.
// It returns false without doing anything when text is blank or another
// request is still outstanding. Cancelling ctx does not abort a request
// that has been sent.
func (c *Controller) Submit(ctx context.Context, text string) bool {
	c.mu.Lock()
	if strings.TrimSpace(text) == "" || c.busy {
		c.mu.Unlock()
		return false
	}
	recent := recentUserTexts(c.turns, c.contextWindow)
	c.err = ""
	c.turns = append(c.turns, c.newTurn(text, false))
	c.draft = ""
	c.busy = true
	epoch := c.epoch
	c.mu.Unlock()
	c.notify()

	query, usedContext := BuildQuery(recent, text)
	c.exchange(context.WithoutCancel(ctx), epoch, query, usedContext)
	return true
}

func (c *Controller) exchange(ctx context.Context, epoch uint64, query string, usedContext bool) {
	ex := c.settle(ctx, epoch, query, usedContext)
	if c.recorder == nil {
		return
	}
	rctx, cancel := context.WithTimeout(ctx, c.recordTimeout)
	defer cancel()
	if err := c.recorder.Record(rctx, ex); err != nil {
		c.log.Warn("recording exchange failed", zap.Error(err))
	}
}

// settle performs the backend call and applies its outcome. The controller
// is idle again by the time settle returns.
func (c *Controller) settle(ctx context.Context, epoch uint64, query string, usedContext bool) Exchange {
	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
		c.notify()
	}()

	started := c.now()
	resp, err := c.backend.Send(ctx, query, c.resultLimit)
	if err == nil && resp == nil {
		resp = &tfidf.Response{Query: query}
	}
	ex := Exchange{
		Query:       query,
		UsedContext: usedContext,
		StartedAt:   started,
		Duration:    c.now().Sub(started),
	}
	msgs := c.messages.Get()

	c.mu.Lock()
	stale := c.epoch != epoch
	switch {
	case stale:
	case err != nil:
		c.err = msgs.ErrorPrefix + err.Error()
		c.turns = append(c.turns, c.newTurn(msgs.Unreachable, true))
	default:
		turn := c.newTurn(msgs.Found(len(resp.Results)), true)
		turn.RankedResults = append([]tfidf.Result{}, resp.Results...)
		turn.UsedContext = usedContext
		c.turns = append(c.turns, turn)
	}
	c.mu.Unlock()

	if err != nil {
		ex.Failed = true
		ex.ErrorText = err.Error()
		c.log.Warn("backend call failed", zap.String("query", query), zap.Error(err))
	} else {
		ex.ResultCount = len(resp.Results)
		ex.BestScore = resp.BestScore
		c.log.Debug("backend answered", zap.String("query", query), zap.Int("results", ex.ResultCount))
	}
	if stale {
		c.log.Info("dropping response for a cleared transcript", zap.String("query", query))
	}
	return ex
}

// Clear replaces the transcript with the "chat cleared" turn.
func (c *Controller) Clear() {
	c.mu.Lock()
	c.turns = []Turn{c.newTurn(c.messages.Get().Cleared, true)}
	c.epoch++
	c.mu.Unlock()
	c.notify()
}

// Reset replaces the transcript with the "rebooted" turn and empties the draft.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.turns = []Turn{c.newTurn(c.messages.Get().Rebooted, true)}
	c.draft = ""
	c.epoch++
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) DismissError() {
	c.mu.Lock()
	c.err = ""
	c.mu.Unlock()
	c.notify()
}

// SetDraft stores the pending input so that Reset can discard it.
func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	c.draft = text
	c.mu.Unlock()
}

func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// State returns a copy of the current view state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	turns := make([]Turn, len(c.turns))
	for i, t := range c.turns {
		turns[i] = t.clone()
	}
	return State{Turns: turns, Busy: c.busy, Error: c.err, Draft: c.draft}
}

// Updates signals after every change. Signals coalesce: a reader that falls
// behind sees one pending signal, not one per change.
func (c *Controller) Updates() <-chan struct{} {
	return c.updates
}

func (c *Controller) notify() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}

func (c *Controller) newTurn(text string, fromAssistant bool) Turn {
	return Turn{
		ID:              c.newID(),
		Text:            text,
		IsFromAssistant: fromAssistant,
		CreatedAt:       c.now(),
	}
}
