package playback

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tejashwikalptaru/gotune-core/internal/metrics"
)

// Controller is what an action uses to hand control back to its chain.
//
// An action must call exactly one of Proceed or Terminate, exactly once, either
// before Execute returns or later from another goroutine.
type Controller interface {
	// Proceed continues with the next action, or completes the chain after the last one.
	Proceed(rc *RequestContext)

	// Terminate skips the remaining actions and ends the run with err.
	Terminate(rc *RequestContext, err error)
}

// Action is one step of a chain.
type Action interface {
	Name() string
	Execute(rc *RequestContext, ctl Controller)
}

// ActionFunc adapts a function to Action.
type ActionFunc struct {
	name string
	fn   func(rc *RequestContext, ctl Controller)
}

// NewAction returns an action named name that runs fn.
func NewAction(name string, fn func(rc *RequestContext, ctl Controller)) ActionFunc {
	return ActionFunc{name: name, fn: fn}
}

// Name returns the action name.
func (a ActionFunc) Name() string { return a.name }

// Execute runs the function.
func (a ActionFunc) Execute(rc *RequestContext, ctl Controller) { a.fn(rc, ctl) }

// Hooks customize a chain. Nil hooks are skipped.
type Hooks struct {
	// BeforeExecute runs before the context is registered as current
	BeforeExecute func(rc *RequestContext)

	// OnComplete runs after the last action proceeded, while rc may still be current
	OnComplete func(rc *RequestContext)

	// OnTerminate runs cleanup and notification for a terminated run, while rc may still be current
	OnTerminate func(rc *RequestContext, err error)
}

// Chain is an ordered list of actions run over a request context.
//
// A chain is built once and may execute many contexts, also concurrently;
// every Execute creates its own run with its own cursor.
type Chain struct {
	name    string
	actions []Action
	manager *ContextManager
	hooks   Hooks
	logger  *slog.Logger
	metrics *metrics.Recorder
}

// NewChain creates an empty chain.
func NewChain(name string, manager *ContextManager, logger *slog.Logger, hooks Hooks) *Chain {
	return &Chain{
		name:    name,
		manager: manager,
		hooks:   hooks,
		logger:  logger.With(slog.String("chain", name)),
	}
}

// WithAction appends an action. Call order is execution order.
func (c *Chain) WithAction(action Action) *Chain {
	c.actions = append(c.actions, action)
	return c
}

// WithMetrics attaches a metrics recorder.
func (c *Chain) WithMetrics(rec *metrics.Recorder) *Chain {
	c.metrics = rec
	return c
}

// Name returns the chain name.
func (c *Chain) Name() string {
	return c.name
}

// Actions returns the action names in execution order.
func (c *Chain) Actions() []string {
	names := make([]string, len(c.actions))
	for i, a := range c.actions {
		names[i] = a.Name()
	}
	return names
}

// Execute runs the chain over rc. It registers rc as the current request and
// invokes the first action. Execute returns when the actions hand control to
// background work or the run ended; wait on rc.Done() for the end of the run.
func (c *Chain) Execute(rc *RequestContext) {
	if !rc.claim() {
		c.logger.Warn("request context already executed", rc.logAttrs()...)
		return
	}

	r := &run{
		chain:  c,
		rc:     rc,
		cursor: -1,
		logger: c.logger.With(rc.logAttrs()...),
	}

	r.logger.Debug("chain started")

	if c.hooks.BeforeExecute != nil {
		c.hooks.BeforeExecute(rc)
	}
	c.manager.Begin(rc)

	r.advance()
}

// run is one execution of a chain.
type run struct {
	chain  *Chain
	rc     *RequestContext
	logger *slog.Logger

	mu     sync.Mutex
	cursor int
	ended  bool
}

// advance moves the cursor to the next action and invokes it, or completes the run.
func (r *run) advance() {
	r.mu.Lock()
	if r.ended {
		r.mu.Unlock()
		return
	}
	r.cursor++
	index := r.cursor
	r.mu.Unlock()

	if index >= len(r.chain.actions) {
		r.end(OutcomeCompleted, nil)
		return
	}

	r.invoke(index)
}

func (r *run) invoke(index int) {
	action := r.chain.actions[index]
	s := &step{run: r, index: index, action: action.Name(), started: time.Now()}

	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("action %s panicked: %v", action.Name(), p)
			r.logger.Error("action panicked", slog.String("action", action.Name()), slog.Any("panic", p))
			s.Terminate(r.rc, err)
		}
	}()

	r.logger.Debug("action invoked", slog.String("action", action.Name()), slog.Int("index", index))
	action.Execute(r.rc, s)
}

func (r *run) end(outcome Outcome, err error) {
	r.mu.Lock()
	if r.ended {
		r.mu.Unlock()
		return
	}
	r.ended = true
	r.mu.Unlock()

	c := r.chain
	rc := r.rc

	// slot is cleared before Done is closed
	defer rc.finish(outcome, err)
	defer c.manager.Complete(rc)

	switch outcome {
	case OutcomeCompleted:
		r.logger.Debug("chain completed")
		c.metrics.ChainFinished(c.name, metrics.OutcomeCompleted)
		r.runHook("complete", func() {
			if c.hooks.OnComplete != nil {
				c.hooks.OnComplete(rc)
			}
		})
	case OutcomeTerminated:
		r.logger.Info("chain terminated", slog.Any("error", err))
		c.metrics.ChainFinished(c.name, metrics.OutcomeTerminated)
		r.runHook("terminate", func() {
			if c.hooks.OnTerminate != nil {
				c.hooks.OnTerminate(rc, err)
			}
		})
	}
}

func (r *run) runHook(name string, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("chain hook panicked", slog.String("hook", name), slog.Any("panic", p))
		}
	}()
	fn()
}

// step is the Controller handed to one action invocation.
type step struct {
	run     *run
	index   int
	action  string
	started time.Time
	used    atomic.Bool
}

func (s *step) Proceed(rc *RequestContext) {
	if !s.accept(rc, "proceed") {
		return
	}
	s.run.advance()
}

func (s *step) Terminate(rc *RequestContext, err error) {
	if !s.accept(rc, "terminate") {
		return
	}
	s.run.end(OutcomeTerminated, err)
}

// accept reports whether this is the first terminal call of the step.
func (s *step) accept(rc *RequestContext, call string) bool {
	if rc != s.run.rc {
		s.run.logger.Error("action resumed chain with a foreign context",
			slog.String("action", s.action), slog.String("call", call))
	}

	if !s.used.CompareAndSwap(false, true) {
		s.run.logger.Warn("action resumed chain more than once; ignoring",
			slog.String("action", s.action), slog.String("call", call))
		return false
	}

	s.run.chain.metrics.ActionObserved(s.run.chain.name, s.action, time.Since(s.started))
	return true
}
