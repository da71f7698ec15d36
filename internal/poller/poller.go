package poller

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/kode4food/signwiz/pkg/log"
)

type (
	// Poller repeats a fetch until a predicate holds, keeping at most one
	// loop registered per key
	Poller[T any] struct {
		makeTimer TimerConstructor
		active    map[string]*registration
		mu        sync.Mutex
	}

	// FetchFunc retrieves the current value of the polled resource
	FetchFunc[T any] func(ctx context.Context) (T, error)

	// TickFunc receives every fetched value, in order
	TickFunc[T any] func(T)

	// DoneFunc reports whether a fetched value is terminal
	DoneFunc[T any] func(T) bool

	registration struct {
		cancel  context.CancelFunc
		stopped chan struct{}
		once    sync.Once
	}
)

// DefaultInterval is used when Start is called with a non-positive interval
const DefaultInterval = 3 * time.Second

// New creates a Poller. A nil constructor selects system timers
func New[T any](makeTimer TimerConstructor) *Poller[T] {
	if makeTimer == nil {
		makeTimer = NewTimer
	}
	return &Poller[T]{
		makeTimer: makeTimer,
		active:    map[string]*registration{},
	}
}

// Start fetches immediately and then once per interval until isDone holds,
// reporting every value to onTick. It returns the final value, the fetch
// error that ended the loop, or the last value with a nil error when Stop
// is called for the key. Context cancellation ends the loop with ctx.Err()
func (p *Poller[T]) Start(
	ctx context.Context, key string, onTick TickFunc[T], fetch FetchFunc[T],
	isDone DoneFunc[T], interval time.Duration,
) (T, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	res, err := fetch(ctx)
	if err != nil {
		return res, err
	}
	tick(onTick, res)
	if isDone(res) {
		return res, nil
	}

	pollCtx, reg := p.register(ctx, key)
	defer p.deregister(key, reg)

	timer := p.makeTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-reg.stopped:
			return res, nil
		case <-ctx.Done():
			return res, ctx.Err()
		case <-timer.Channel():
		}

		if reg.isStopped() {
			return res, nil
		}

		next, err := fetch(pollCtx)
		if err != nil {
			switch {
			case reg.isStopped():
				return res, nil
			case ctx.Err() != nil:
				return res, ctx.Err()
			}
			slog.Debug("Poll fetch failed",
				log.PollKey(key),
				log.Error(err))
			return next, err
		}

		res = next
		tick(onTick, res)
		if isDone(res) {
			return res, nil
		}
		timer.Reset(interval)
	}
}

// Stop cancels the loop registered for key. It reports whether a loop was
// registered
func (p *Poller[T]) Stop(key string) bool {
	p.mu.Lock()
	reg, ok := p.active[key]
	if ok {
		delete(p.active, key)
	}
	p.mu.Unlock()

	if ok {
		reg.stop()
	}
	return ok
}

// Close stops every registered loop
func (p *Poller[T]) Close() {
	p.mu.Lock()
	regs := p.active
	p.active = map[string]*registration{}
	p.mu.Unlock()

	for _, reg := range regs {
		reg.stop()
	}
}

// Active reports whether a loop is registered for key
func (p *Poller[T]) Active(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.active[key]
	return ok
}

// Keys returns the registered keys in sorted order
func (p *Poller[T]) Keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	res := make([]string, 0, len(p.active))
	for key := range p.active {
		res = append(res, key)
	}
	slices.Sort(res)
	return res
}

func (p *Poller[T]) register(
	ctx context.Context, key string,
) (context.Context, *registration) {
	pollCtx, cancel := context.WithCancel(ctx)
	reg := &registration{
		cancel:  cancel,
		stopped: make(chan struct{}),
	}

	p.mu.Lock()
	prev := p.active[key]
	p.active[key] = reg
	p.mu.Unlock()

	if prev != nil {
		prev.stop()
	}
	return pollCtx, reg
}

func (p *Poller[T]) deregister(key string, reg *registration) {
	p.mu.Lock()
	if p.active[key] == reg {
		delete(p.active, key)
	}
	p.mu.Unlock()
	reg.cancel()
}

func (r *registration) stop() {
	r.once.Do(func() {
		close(r.stopped)
		r.cancel()
	})
}

func (r *registration) isStopped() bool {
	select {
	case <-r.stopped:
		return true
	default:
		return false
	}
}

func tick[T any](onTick TickFunc[T], v T) {
	if onTick != nil {
		onTick(v)
	}
}
