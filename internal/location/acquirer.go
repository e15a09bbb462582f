// Package location acquires a user's current position from fixes their
// device reports, with bounded waits and reuse of recent fixes.
package location

import (
	"context"
	"errors"
	"sync"
	"time"
)

type Fix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"` // meters
	Timestamp time.Time `json:"timestamp"`
}

type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaxAge       time.Duration
	AutoFetch    bool
}

func DefaultOptions() Options {
	return Options{
		HighAccuracy: true,
		Timeout:      10 * time.Second,
		MaxAge:       60 * time.Second,
	}
}

// Locator produces a single fix for a subject. Implementations should honor
// ctx cancellation; the Acquirer bounds every call by Options.Timeout.
type Locator interface {
	Locate(ctx context.Context, subject string, opts Options) (Fix, error)
}

type State struct {
	Loading   bool   `json:"loading"`
	Fix       *Fix   `json:"fix,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode Code   `json:"errorCode,omitempty"`
}

type Acquirer struct {
	locator Locator
	subject string
	opts    Options
	now     func() time.Time

	mu      sync.Mutex
	loading bool
	fix     *Fix
	err     error
}

func NewAcquirer(locator Locator, subject string, opts Options) *Acquirer {
	return &Acquirer{
		locator: locator,
		subject: subject,
		opts:    opts,
		now:     time.Now,
	}
}

// Start kicks off a background fetch when AutoFetch is set.
func (a *Acquirer) Start(ctx context.Context) {
	if !a.opts.AutoFetch {
		return
	}
	go func() {
		_, _ = a.Acquire(ctx)
	}()
}

func (a *Acquirer) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	state := State{Loading: a.loading}
	if a.fix != nil {
		fix := *a.fix
		state.Fix = &fix
	}
	if a.err != nil {
		state.Error = a.err.Error()
		state.ErrorCode = CodeOf(a.err)
	}
	return state
}

// Acquire returns the cached fix when it is no older than MaxAge and asks
// the locator otherwise.
func (a *Acquirer) Acquire(ctx context.Context) (Fix, error) {
	a.mu.Lock()
	if a.fix != nil && a.opts.MaxAge > 0 && a.now().Sub(a.fix.Timestamp) <= a.opts.MaxAge {
		fix := *a.fix
		a.mu.Unlock()
		return fix, nil
	}
	a.mu.Unlock()

	return a.fetch(ctx)
}

// Refresh always asks the locator.
func (a *Acquirer) Refresh(ctx context.Context) (Fix, error) {
	return a.fetch(ctx)
}

func (a *Acquirer) fetch(ctx context.Context) (Fix, error) {
	if a.locator == nil {
		a.finish(nil, ErrUnsupported)
		return Fix{}, ErrUnsupported
	}

	a.mu.Lock()
	a.loading = true
	a.err = nil
	a.mu.Unlock()

	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	fix, err := a.locator.Locate(ctx, a.subject, a.opts)
	if err != nil {
		err = classify(err)
		a.finish(nil, err)
		return Fix{}, err
	}

	a.finish(&fix, nil)
	return fix, nil
}

func (a *Acquirer) finish(fix *Fix, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.loading = false
	a.err = err
	if fix != nil {
		a.fix = fix
	}
}

func classify(err error) error {
	if CodeOf(err) != "" {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ErrUnavailable
}

// Registry keeps one Acquirer per subject so cached fixes survive between
// requests.
type Registry struct {
	locator Locator
	opts    Options

	mu        sync.Mutex
	acquirers map[string]*Acquirer
}

func NewRegistry(locator Locator, opts Options) *Registry {
	return &Registry{
		locator:   locator,
		opts:      opts,
		acquirers: make(map[string]*Acquirer),
	}
}

func (r *Registry) For(ctx context.Context, subject string) *Acquirer {
	r.mu.Lock()
	defer r.mu.Unlock()

	acquirer, ok := r.acquirers[subject]
	if !ok {
		acquirer = NewAcquirer(r.locator, subject, r.opts)
		r.acquirers[subject] = acquirer
		acquirer.Start(context.WithoutCancel(ctx))
	}
	return acquirer
}

func (r *Registry) Forget(subject string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.acquirers, subject)
}
