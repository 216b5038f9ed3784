// Package search dispatches product searches from a text box and a voice
// recogniser. Typed input is debounced; voice input fires at once. Only the
// newest submission may update the results.
package search

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/aisle/internal/model"
	"github.com/dukerupert/aisle/internal/notify"
)

// DefaultDebounce is how long typing must pause before a request is sent.
const DefaultDebounce = 300 * time.Millisecond

type State int

const (
	Idle State = iota
	Debouncing
	InFlight
)

func (s State) String() string {
	switch s {
	case Debouncing:
		return "debouncing"
	case InFlight:
		return "in_flight"
	default:
		return "idle"
	}
}

// Func runs one search against the store.
type Func func(ctx context.Context, term string) ([]model.Product, error)

// Timer is a pending debounce that can be cancelled.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it.
type AfterFunc func(d time.Duration, f func()) Timer

// Result is delivered to the update callback each time the visible results
// change or a search fails.
type Result struct {
	Term     string          `json:"term"`
	Products []model.Product `json:"products"`
	Err      error           `json:"-"`
}

type Options struct {
	Debounce  time.Duration
	AfterFunc AfterFunc
	OnUpdate  func(Result)
	Notifier  notify.Notifier
	Logger    *slog.Logger
}

// Pipeline is one query stream (one search box).
type Pipeline struct {
	search    Func
	debounce  time.Duration
	afterFunc AfterFunc
	onUpdate  func(Result)
	notifier  notify.Notifier
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// emit serialises the check-and-deliver step so callbacks arrive in
	// submission order. It is always taken before mu.
	emit sync.Mutex

	mu       sync.Mutex
	gen      uint64
	timer    Timer
	awaiting bool
	term     string
	results  []model.Product
	closed   bool
}

func New(fn Func, opts Options) *Pipeline {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Discard
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pipeline{
		search:    fn,
		debounce:  opts.Debounce,
		afterFunc: opts.AfterFunc,
		onUpdate:  opts.OnUpdate,
		notifier:  opts.Notifier,
		logger:    opts.Logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// SubmitTyped restarts the debounce window for text. Only the last text
// submitted before the window elapses is searched.
func (p *Pipeline) SubmitTyped(text string) {
	term := strings.TrimSpace(text)
	if term == "" {
		p.Reset()
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.stopTimerLocked()
	p.gen++
	gen := p.gen
	p.timer = p.afterFunc(p.debounce, func() { p.fire(gen, term) })
}

// SubmitImmediate searches text now, cancelling any pending typed search.
func (p *Pipeline) SubmitImmediate(text string) {
	term := strings.TrimSpace(text)
	if term == "" {
		p.Reset()
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.stopTimerLocked()
	p.gen++
	p.startLocked(p.gen, term)
}

// Reset cancels pending work and clears the results synchronously. Any
// request already in flight is left to finish and its result discarded.
func (p *Pipeline) Reset() {
	p.emit.Lock()
	defer p.emit.Unlock()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.stopTimerLocked()
	p.gen++
	p.awaiting = false
	p.term = ""
	p.results = nil
	p.mu.Unlock()

	p.deliver(Result{})
}

// State reports where the newest submission is.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.timer != nil:
		return Debouncing
	case p.awaiting:
		return InFlight
	default:
		return Idle
	}
}

// Results returns the term and products currently shown.
func (p *Pipeline) Results() (string, []model.Product) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.term, p.results
}

// Close stops the pending timer and ignores any later completions. Once it
// returns no further OnUpdate calls are made.
func (p *Pipeline) Close() {
	p.emit.Lock()
	defer p.emit.Unlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopTimerLocked()
	p.closed = true
	p.cancel()
}

func (p *Pipeline) fire(gen uint64, term string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || gen != p.gen {
		return
	}
	p.timer = nil
	p.startLocked(gen, term)
}

func (p *Pipeline) startLocked(gen uint64, term string) {
	p.awaiting = true
	go p.run(gen, term)
}

func (p *Pipeline) run(gen uint64, term string) {
	products, err := p.search(p.ctx, term)

	p.emit.Lock()
	defer p.emit.Unlock()

	p.mu.Lock()
	if p.closed || gen != p.gen {
		p.mu.Unlock()
		p.logger.Debug("discard superseded search", "term", term)
		return
	}
	p.awaiting = false
	if err != nil {
		p.mu.Unlock()
		p.logger.Warn("search failed", "term", term, "error", err)
		p.notifier.Notify(p.ctx, notify.Failure("Error searching products", err))
		p.deliver(Result{Term: term, Err: err})
		return
	}
	p.term = term
	p.results = products
	p.mu.Unlock()

	p.deliver(Result{Term: term, Products: products})
}

func (p *Pipeline) deliver(r Result) {
	if p.onUpdate != nil {
		p.onUpdate(r)
	}
}

func (p *Pipeline) stopTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}
