package playback

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/gotune-core/internal/logger"
	"github.com/tejashwikalptaru/gotune-core/internal/testutil"
)

const waitTimeout = 2 * time.Second

type hookCounter struct {
	mu         sync.Mutex
	completed  int
	terminated int
	lastErr    error
	order      []string
}

func (h *hookCounter) hooks(manager *ContextManager) Hooks {
	return Hooks{
		BeforeExecute: func(rc *RequestContext) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.order = append(h.order, fmt.Sprintf("before(current=%v)", manager.IsCurrent(rc)))
		},
		OnComplete: func(rc *RequestContext) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.completed++
			h.order = append(h.order, fmt.Sprintf("complete(current=%v)", manager.IsCurrent(rc)))
		},
		OnTerminate: func(rc *RequestContext, err error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.terminated++
			h.lastErr = err
			h.order = append(h.order, fmt.Sprintf("terminate(current=%v)", manager.IsCurrent(rc)))
		},
	}
}

func (h *hookCounter) snapshot() (int, int, []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.completed, h.terminated, append([]string(nil), h.order...)
}

func recordAction(name string, log *[]string, mu *sync.Mutex) Action {
	return NewAction(name, func(rc *RequestContext, ctl Controller) {
		mu.Lock()
		*log = append(*log, name)
		mu.Unlock()
		ctl.Proceed(rc)
	})
}

func TestChain_RunsActionsInOrder(t *testing.T) {
	manager := NewContextManager(logger.NewTestLogger())
	counter := &hookCounter{}

	var mu sync.Mutex
	var ran []string
	chain := NewChain("test", manager, logger.NewTestLogger(), counter.hooks(manager)).
		WithAction(recordAction("a", &ran, &mu)).
		WithAction(recordAction("b", &ran, &mu)).
		WithAction(recordAction("c", &ran, &mu))

	rc := newTestContext("/m/a.mp3")
	chain.Execute(rc)

	require.True(t, rc.Wait(waitTimeout))
	assert.Equal(t, []string{"a", "b", "c"}, ran)
	assert.Equal(t, OutcomeCompleted, rc.Outcome())
	assert.NoError(t, rc.Err())
	assert.Nil(t, manager.Current())

	_, _, order := counter.snapshot()
	assert.Equal(t, []string{"before(current=false)", "complete(current=true)"}, order)
	assert.Equal(t, []string{"a", "b", "c"}, chain.Actions())
}

func TestChain_TerminateSkipsRemaining(t *testing.T) {
	manager := NewContextManager(logger.NewTestLogger())
	counter := &hookCounter{}
	failure := errors.New("decoder error")

	var mu sync.Mutex
	var ran []string
	chain := NewChain("test", manager, logger.NewTestLogger(), counter.hooks(manager)).
		WithAction(recordAction("a", &ran, &mu)).
		WithAction(NewAction("fail", func(rc *RequestContext, ctl Controller) {
			ctl.Terminate(rc, failure)
		})).
		WithAction(recordAction("c", &ran, &mu))

	rc := newTestContext("/m/a.mp3")
	chain.Execute(rc)

	require.True(t, rc.Wait(waitTimeout))
	assert.Equal(t, []string{"a"}, ran)
	assert.Equal(t, OutcomeTerminated, rc.Outcome())
	assert.ErrorIs(t, rc.Err(), failure)
	assert.Nil(t, manager.Current())

	completed, terminated, order := counter.snapshot()
	assert.Equal(t, 0, completed)
	assert.Equal(t, 1, terminated)
	assert.ErrorIs(t, counter.lastErr, failure)
	assert.Equal(t, "terminate(current=true)", order[len(order)-1])
}

func TestChain_Totality(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	for n := 0; n <= 5; n++ {
		for terminateAt := -1; terminateAt < n; terminateAt++ {
			t.Run(fmt.Sprintf("n=%d/terminate=%d", n, terminateAt), func(t *testing.T) {
				manager := NewContextManager(logger.NewTestLogger())
				counter := &hookCounter{}
				chain := NewChain("totality", manager, logger.NewTestLogger(), counter.hooks(manager))

				var executed atomic.Int32
				for i := 0; i < n; i++ {
					async := i%2 == 1
					chain.WithAction(NewAction(fmt.Sprintf("a%d", i), func(rc *RequestContext, ctl Controller) {
						executed.Add(1)
						resume := func() {
							if i == terminateAt {
								ctl.Terminate(rc, fmt.Errorf("action %d failed", i))
								return
							}
							ctl.Proceed(rc)
						}
						if async {
							go resume()
							return
						}
						resume()
					}))
				}

				rc := newTestContext("/m/a.mp3")
				chain.Execute(rc)
				require.True(t, rc.Wait(waitTimeout), "run must end")

				completed, terminated, _ := counter.snapshot()
				assert.Equal(t, 1, completed+terminated, "exactly one terminal notification")

				if terminateAt < 0 {
					assert.Equal(t, OutcomeCompleted, rc.Outcome())
					assert.Equal(t, int32(n), executed.Load())
				} else {
					assert.Equal(t, OutcomeTerminated, rc.Outcome())
					assert.Equal(t, int32(terminateAt+1), executed.Load())
				}
				assert.Nil(t, manager.Current())
			})
		}
	}
}

func TestChain_ExtraCallsAreIgnored(t *testing.T) {
	manager := NewContextManager(logger.NewTestLogger())
	counter := &hookCounter{}

	var second atomic.Int32
	chain := NewChain("test", manager, logger.NewTestLogger(), counter.hooks(manager)).
		WithAction(NewAction("greedy", func(rc *RequestContext, ctl Controller) {
			ctl.Proceed(rc)
			ctl.Proceed(rc)
			ctl.Terminate(rc, errors.New("too late"))
		})).
		WithAction(NewAction("second", func(rc *RequestContext, ctl Controller) {
			second.Add(1)
			ctl.Proceed(rc)
		}))

	rc := newTestContext("/m/a.mp3")
	chain.Execute(rc)

	require.True(t, rc.Wait(waitTimeout))
	assert.Equal(t, int32(1), second.Load())
	assert.Equal(t, OutcomeCompleted, rc.Outcome())

	completed, terminated, _ := counter.snapshot()
	assert.Equal(t, 1, completed)
	assert.Equal(t, 0, terminated)
}

func TestChain_PanicTerminates(t *testing.T) {
	manager := NewContextManager(logger.NewTestLogger())
	counter := &hookCounter{}

	chain := NewChain("test", manager, logger.NewTestLogger(), counter.hooks(manager)).
		WithAction(NewAction("explode", func(*RequestContext, Controller) {
			panic("nil engine")
		}))

	rc := newTestContext("/m/a.mp3")
	chain.Execute(rc)

	require.True(t, rc.Wait(waitTimeout))
	assert.Equal(t, OutcomeTerminated, rc.Outcome())
	assert.ErrorContains(t, rc.Err(), "nil engine")
}

func TestChain_HookPanicStillEndsRun(t *testing.T) {
	manager := NewContextManager(logger.NewTestLogger())

	chain := NewChain("test", manager, logger.NewTestLogger(), Hooks{
		OnComplete: func(*RequestContext) { panic("presenter bug") },
	}).WithAction(NewAction("noop", func(rc *RequestContext, ctl Controller) { ctl.Proceed(rc) }))

	rc := newTestContext("/m/a.mp3")
	chain.Execute(rc)

	require.True(t, rc.Wait(waitTimeout))
	assert.Equal(t, OutcomeCompleted, rc.Outcome())
	assert.Nil(t, manager.Current())
}

func TestChain_ContextRunsOnce(t *testing.T) {
	manager := NewContextManager(logger.NewTestLogger())

	var runs atomic.Int32
	chain := NewChain("test", manager, logger.NewTestLogger(), Hooks{}).
		WithAction(NewAction("count", func(rc *RequestContext, ctl Controller) {
			runs.Add(1)
			ctl.Proceed(rc)
		}))

	rc := newTestContext("/m/a.mp3")
	chain.Execute(rc)
	chain.Execute(rc)

	require.True(t, rc.Wait(waitTimeout))
	assert.Equal(t, int32(1), runs.Load())
}

func TestChain_ConcurrentRunsHaveOwnCursor(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	manager := NewContextManager(logger.NewTestLogger())

	var steps atomic.Int32
	slow := NewAction("slow", func(rc *RequestContext, ctl Controller) {
		steps.Add(1)
		go func() {
			time.Sleep(time.Millisecond)
			ctl.Proceed(rc)
		}()
	})
	chain := NewChain("test", manager, logger.NewTestLogger(), Hooks{}).
		WithAction(slow).WithAction(slow).WithAction(slow)

	contexts := make([]*RequestContext, 10)
	for i := range contexts {
		contexts[i] = newTestContext(fmt.Sprintf("/m/%d.mp3", i))
		chain.Execute(contexts[i])
	}

	for _, rc := range contexts {
		require.True(t, rc.Wait(waitTimeout))
		assert.Equal(t, OutcomeCompleted, rc.Outcome())
	}
	assert.Equal(t, int32(30), steps.Load())
	assert.Nil(t, manager.Current())
}

func TestChain_StaleCompletionKeepsNewerRequest(t *testing.T) {
	manager := NewContextManager(logger.NewTestLogger())
	counter := &hookCounter{}

	release := make(chan struct{})
	chain := NewChain("test", manager, logger.NewTestLogger(), counter.hooks(manager)).
		WithAction(NewAction("gate", func(rc *RequestContext, ctl Controller) {
			if rc.RequestedTrack.Path() == "/m/old.mp3" {
				go func() {
					<-release
					ctl.Proceed(rc)
				}()
				return
			}
			ctl.Proceed(rc)
		}))

	old := newTestContext("/m/old.mp3")
	chain.Execute(old)

	newer := newTestContext("/m/new.mp3")
	manager.Begin(newer)

	close(release)
	require.True(t, old.Wait(waitTimeout))

	assert.Same(t, newer, manager.Current())
	_, _, order := counter.snapshot()
	assert.Equal(t, "complete(current=false)", order[len(order)-1])
}
