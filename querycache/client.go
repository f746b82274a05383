package querycache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultStaleTime is how long a successful result is served without a
// background refetch.
const DefaultStaleTime = 30 * time.Second

// ErrNoFetcher is returned when an entry is refetched before any query
// registered a fetch function for it.
var ErrNoFetcher = errors.New("querycache: entry has no fetch function")

// Query describes a keyed read. Equal keys must describe the same read.
type Query[T any] struct {
	Key   string
	Tags  []string
	Fetch func(ctx context.Context) (T, error)
}

// Config tunes a Client.
type Config struct {
	// StaleTime is the age after which a Read starts a background refetch.
	// Zero makes every Read refetch; negative values are treated as zero.
	StaleTime time.Duration
	Logger    *zap.Logger
	Now       func() time.Time
}

// Client holds one entry per query key for the lifetime of the process.
type Client struct {
	entries   *xsync.MapOf[string, *entry]
	tags      *xsync.MapOf[string, *xsync.MapOf[string, struct{}]]
	staleTime time.Duration
	logger    *zap.Logger
	now       func() time.Time
	inflight  sync.WaitGroup
}

// New builds a Client.
func New(cfg Config) *Client {
	c := &Client{
		entries:   xsync.NewMapOf[string, *entry](),
		tags:      xsync.NewMapOf[string, *xsync.MapOf[string, struct{}]](),
		staleTime: max(cfg.StaleTime, 0),
		logger:    cfg.Logger,
		now:       cfg.Now,
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

type call struct {
	gen  uint64
	done chan struct{}
	val  any
	err  error
	// superseded is set when a newer fetch started before this one settled.
	superseded bool
}

type entry struct {
	key string

	mu          sync.Mutex
	fetch       func(context.Context) (any, error)
	data        any
	hasData     bool
	err         error
	updatedAt   time.Time
	invalidated bool
	gen         uint64
	current     *call
	subs        map[uint64]func(State[any])
	nextSub     uint64
}

func (e *entry) snapshot() State[any] {
	st := State[any]{
		Key:       e.key,
		Data:      e.data,
		HasData:   e.hasData,
		Err:       e.err,
		UpdatedAt: e.updatedAt,
		Fetching:  e.current != nil,
	}
	switch {
	case e.err != nil:
		st.Status = StatusError
	case e.hasData:
		st.Status = StatusSuccess
	case e.current != nil:
		st.Status = StatusLoading
	default:
		st.Status = StatusIdle
	}
	return st
}

func (e *entry) subscribers() []func(State[any]) {
	out := make([]func(State[any]), 0, len(e.subs))
	for _, fn := range e.subs {
		out = append(out, fn)
	}
	return out
}

func (c *Client) entry(key string) *entry {
	e, _ := c.entries.LoadOrCompute(key, func() *entry {
		return &entry{key: key, subs: map[uint64]func(State[any]){}}
	})
	return e
}

func (c *Client) register(ctx context.Context, key string, tags []string) {
	for _, tag := range dedupeStrings(append(tagsFromContext(ctx), tags...)) {
		keys, _ := c.tags.LoadOrCompute(tag, func() *xsync.MapOf[string, struct{}] {
			return xsync.NewMapOf[string, struct{}]()
		})
		keys.Store(key, struct{}{})
	}
}

// stale reports whether e needs a refetch. Callers hold e.mu.
func (c *Client) stale(e *entry) bool {
	if !e.hasData || e.invalidated {
		return true
	}
	return c.now().Sub(e.updatedAt) >= c.staleTime
}

// start launches a fetch that supersedes any fetch in flight. Callers hold
// e.mu.
func (c *Client) start(ctx context.Context, e *entry) *call {
	e.gen++
	if e.current != nil {
		e.current.superseded = true
	}
	cl := &call{gen: e.gen, done: make(chan struct{})}
	e.current = cl

	fetch := e.fetch
	bg := context.WithoutCancel(ctx)
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		val, err := fetch(bg)
		c.settle(e, cl, val, err)
	}()
	return cl
}

func (c *Client) settle(e *entry, cl *call, val any, err error) {
	e.mu.Lock()
	cl.val, cl.err = val, err
	if cl.gen != e.gen {
		// a newer fetch owns the entry
		cl.superseded = true
		e.mu.Unlock()
		close(cl.done)
		return
	}

	e.current = nil
	if err != nil {
		e.err = err
		c.logger.Warn("query fetch failed", zap.String("key", e.key), zap.Bool("stale_data", e.hasData), zap.Error(err))
	} else {
		e.data, e.hasData, e.err = val, true, nil
		e.updatedAt = c.now()
		e.invalidated = false
	}
	st, subs := e.snapshot(), e.subscribers()
	e.mu.Unlock()

	close(cl.done)
	notify(subs, st)
}

// wait blocks until cl settles, following newer fetches that superseded it.
func (c *Client) wait(ctx context.Context, e *entry, cl *call) (any, error) {
	for {
		select {
		case <-cl.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		e.mu.Lock()
		if !cl.superseded {
			e.mu.Unlock()
			return cl.val, cl.err
		}
		if e.current != nil {
			cl = e.current
			e.mu.Unlock()
			continue
		}
		val, err := e.data, e.err
		e.mu.Unlock()
		return val, err
	}
}

func notify(subs []func(State[any]), st State[any]) {
	for _, fn := range subs {
		fn(st)
	}
}

func wrap[T any](fetch func(context.Context) (T, error)) func(context.Context) (any, error) {
	return func(ctx context.Context) (any, error) {
		return fetch(ctx)
	}
}

// Read returns the current state of q immediately. A background fetch is
// started when the entry has no value, was invalidated or is older than
// the stale time, unless one is already in flight.
func Read[T any](ctx context.Context, c *Client, q Query[T]) State[T] {
	c.register(ctx, q.Key, q.Tags)
	e := c.entry(q.Key)

	e.mu.Lock()
	e.fetch = wrap(q.Fetch)
	if e.current == nil && c.stale(e) {
		c.start(ctx, e)
	}
	st := e.snapshot()
	e.mu.Unlock()

	return convert[T](st)
}

// Fetch returns a fresh value for q, waiting for the fetch in flight or
// starting one when the cached value is stale.
func Fetch[T any](ctx context.Context, c *Client, q Query[T]) (T, error) {
	var zero T
	c.register(ctx, q.Key, q.Tags)
	e := c.entry(q.Key)

	e.mu.Lock()
	e.fetch = wrap(q.Fetch)
	cl := e.current
	if cl == nil {
		if !c.stale(e) {
			v, _ := e.data.(T)
			e.mu.Unlock()
			return v, nil
		}
		cl = c.start(ctx, e)
	}
	e.mu.Unlock()

	val, err := c.wait(ctx, e, cl)
	if err != nil {
		return zero, err
	}
	v, _ := val.(T)
	return v, nil
}

// Get returns the typed state of key without triggering a fetch.
func Get[T any](c *Client, key string) State[T] {
	return convert[T](c.State(key))
}

// Watch is the typed form of Client.Subscribe.
func Watch[T any](c *Client, key string, fn func(State[T])) (unsubscribe func()) {
	return c.Subscribe(key, func(st State[any]) {
		fn(convert[T](st))
	})
}

// State returns the state of key without triggering a fetch. Unknown keys
// are idle.
func (c *Client) State(key string) State[any] {
	e, ok := c.entries.Load(key)
	if !ok {
		return State[any]{Key: key, Status: StatusIdle}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

// Subscribe calls fn with the new state every time the newest fetch for key
// settles. Superseded fetches are not reported.
func (c *Client) Subscribe(key string, fn func(State[any])) (unsubscribe func()) {
	e := c.entry(key)
	e.mu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, id)
			e.mu.Unlock()
		})
	}
}

// Invalidate marks key stale and refetches it, blocking until the fresh
// fetch settles. Unknown keys are ignored.
func (c *Client) Invalidate(ctx context.Context, key string) error {
	e, ok := c.entries.Load(key)
	if !ok {
		return nil
	}
	e.mu.Lock()
	e.invalidated = true
	hasFetcher := e.fetch != nil
	e.mu.Unlock()

	if !hasFetcher {
		return nil
	}
	return c.Refetch(ctx, key)
}

// Refetch starts a fetch for key that supersedes any fetch in flight and
// waits for it. A Read after Refetch returns observes every write committed
// before the call.
func (c *Client) Refetch(ctx context.Context, key string) error {
	e, ok := c.entries.Load(key)
	if !ok {
		return nil
	}

	e.mu.Lock()
	if e.fetch == nil {
		e.mu.Unlock()
		return ErrNoFetcher
	}
	cl := c.start(ctx, e)
	e.mu.Unlock()

	_, err := c.wait(ctx, e, cl)
	return err
}

// InvalidateTag invalidates every entry registered under tag. Entries are
// refetched concurrently; a failing key does not stop the others.
func (c *Client) InvalidateTag(ctx context.Context, tag string) error {
	keys, ok := c.tags.Load(tag)
	if !ok {
		return nil
	}

	var g errgroup.Group
	keys.Range(func(key string, _ struct{}) bool {
		g.Go(func() error {
			return c.Invalidate(ctx, key)
		})
		return true
	})
	return g.Wait()
}

// Keys returns the keys registered under tag.
func (c *Client) Keys(tag string) []string {
	keys, ok := c.tags.Load(tag)
	if !ok {
		return nil
	}
	var out []string
	keys.Range(func(key string, _ struct{}) bool {
		out = append(out, key)
		return true
	})
	return out
}

// Remove drops the entry for key. Fetches in flight settle into the
// dropped entry and are not observed.
func (c *Client) Remove(key string) {
	c.entries.Delete(key)
	c.tags.Range(func(_ string, keys *xsync.MapOf[string, struct{}]) bool {
		keys.Delete(key)
		return true
	})
}

// Reset drops every entry and tag.
func (c *Client) Reset() {
	c.entries.Clear()
	c.tags.Clear()
}

// Len reports the number of entries.
func (c *Client) Len() int {
	return c.entries.Size()
}

// Wait blocks until every background fetch started so far has settled.
func (c *Client) Wait() {
	c.inflight.Wait()
}
