// Package logofetch coordinates coin logo downloads: it deduplicates
// concurrent requests for the same URL onto a single fetch, bounds the
// number of simultaneous transport operations, supports low-priority
// prefetching with promotion to high priority, and ties cancellation to
// caller reuse.
package logofetch

import (
	"context"
	"image"
	"log"
	"log/slog"
	"net/url"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/coinviewapp/coinview-go/internal/logging"
	"github.com/coinviewapp/coinview-go/internal/observability/metrics"
)

// Package-level logger specific to the logo fetch service
var (
	logger          *slog.Logger
	serviceLevelVar = new(slog.LevelVar)
)

func init() {
	var err error
	logFilePath := filepath.Join("logs", "logofetch.log")
	serviceLevelVar.Set(slog.LevelInfo)

	logger, _, err = logging.NewFileLogger(logFilePath, "logofetch", serviceLevelVar)
	if err != nil {
		log.Printf("Failed to initialize logofetch file logger at %s: %v. Service logging disabled.", logFilePath, err)
		logger = logging.DiscardLogger("logofetch")
	}
}

// Priority is the scheduling intent of a request. High marks on-screen,
// user-visible content; Low marks anticipatory prefetch. Promotion goes
// low to high only, never the other way.
type Priority int32

const (
	PriorityLow Priority = iota
	PriorityHigh
)

// String returns the transport-facing name of the priority.
func (p Priority) String() string {
	if p == PriorityHigh {
		return "high"
	}
	return "low"
}

// Callback receives the outcome of a request exactly once. A nil image is
// the absence value: invalid input, transport failure, or decode failure.
// Cancelled requests never invoke their callbacks at all.
type Callback func(img image.Image)

// PriorityHint is the live scheduling hint shared between an in-flight
// entry and its transport operation. Promotion updates it in place; the
// transport reads it when issuing (or re-prioritizing) the request.
type PriorityHint struct {
	v atomic.Int32
}

// Store updates the hint.
func (h *PriorityHint) Store(p Priority) { h.v.Store(int32(p)) }

// Load reads the current hint value.
func (h *PriorityHint) Load() Priority { return Priority(h.v.Load()) }

// Transport performs one abortable byte fetch per URL. Implementations
// must honor context cancellation and may use the hint to bias scheduling.
type Transport interface {
	FetchBytes(ctx context.Context, url string, hint *PriorityHint) ([]byte, error)
}

// Cache is the decoded-image store consulted before any fetch and
// populated after a successful one. Implementations must be safe for
// concurrent use.
type Cache interface {
	Get(url string) (image.Image, bool)
	Put(url string, img image.Image)
}

// entry tracks one in-flight fetch. Exactly one entry exists per URL at
// any time; all fields other than hint are guarded by the fetcher mutex.
type entry struct {
	url       string
	prio      Priority
	callbacks []Callback
	hint      *PriorityHint
	ctx       context.Context
	cancel    context.CancelFunc
}

// Config holds the fetcher configuration.
type Config struct {
	// Concurrency caps simultaneous transport fetches (default 4).
	Concurrency int
	// MaxDimension bounds the decoded thumbnail's longest side (default 256).
	MaxDimension int
	// Logger overrides the package service logger when non-nil.
	Logger *slog.Logger
}

const (
	defaultConcurrency  = 4
	defaultMaxDimension = 256
)

// Fetcher is the logo fetch coordinator. Construct with New and release
// with Shutdown; instances are independent and safe for concurrent use.
type Fetcher struct {
	cfg       Config
	transport Transport
	cache     Cache
	exec      Executor
	ownedExec *serialExecutor // non-nil when the fetcher created its executor
	metrics   *metrics.LogoFetcherMetrics
	log       *slog.Logger

	sem     *semaphore.Weighted
	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]*entry
	closed   bool
}

// New creates a Fetcher. transport and cache are required; exec may be nil,
// in which case a serial executor goroutine (the UI-thread analog) delivers
// all callbacks in order. m may be nil to disable metrics.
func New(cfg Config, transport Transport, cache Cache, exec Executor, m *metrics.LogoFetcherMetrics) *Fetcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = defaultMaxDimension
	}
	log := cfg.Logger
	if log == nil {
		log = logger
	}

	var owned *serialExecutor
	if exec == nil {
		owned = newSerialExecutor()
		exec = owned
	}

	ctx, cancel := context.WithCancel(context.Background())
	f := &Fetcher{
		cfg:       cfg,
		transport: transport,
		cache:     cache,
		exec:      exec,
		ownedExec: owned,
		metrics:   m,
		log:       log,
		sem:       semaphore.NewWeighted(int64(cfg.Concurrency)),
		baseCtx:   ctx,
		stop:      cancel,
		inflight:  make(map[string]*entry),
	}
	log.Info("Logo fetcher initialized",
		"concurrency", cfg.Concurrency,
		"max_dimension", cfg.MaxDimension)
	return f
}

// Request asks for the image at rawURL. Invalid input and cache hits
// resolve synchronously; otherwise cb is registered for asynchronous
// delivery on the completion executor. For any URL, no matter how many
// callers request it before it resolves, exactly one transport fetch runs
// and every registered callback fires exactly once with the same outcome.
func (f *Fetcher) Request(rawURL string, prio Priority, cb Callback) {
	if cb == nil {
		cb = func(image.Image) {}
	}

	if !validRequestURL(rawURL) {
		cb(nil)
		return
	}

	if img, ok := f.cache.Get(rawURL); ok {
		f.metrics.IncrementCacheHits()
		cb(img)
		return
	}
	f.metrics.IncrementCacheMisses()

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		cb(nil)
		return
	}

	if e, ok := f.inflight[rawURL]; ok {
		e.callbacks = append(e.callbacks, cb)
		promoted := false
		if prio == PriorityHigh && e.prio == PriorityLow {
			e.prio = PriorityHigh
			e.hint.Store(PriorityHigh)
			promoted = true
		}
		f.mu.Unlock()
		f.metrics.IncrementCoalesced()
		if promoted {
			f.metrics.IncrementPromotions()
			f.log.Debug("Promoted in-flight fetch", "url", rawURL)
		}
		return
	}

	ctx, cancel := context.WithCancel(f.baseCtx)
	e := &entry{
		url:       rawURL,
		prio:      prio,
		callbacks: []Callback{cb},
		hint:      &PriorityHint{},
		ctx:       ctx,
		cancel:    cancel,
	}
	e.hint.Store(prio)
	f.inflight[rawURL] = e
	f.metrics.SetInFlight(len(f.inflight))
	f.mu.Unlock()

	f.submit(e)
}

// Prefetch requests every URL at low priority with a discard callback.
// Failures are silent; nothing is waiting on the result.
func (f *Fetcher) Prefetch(urls []string) {
	for _, u := range urls {
		f.Request(u, PriorityLow, nil)
	}
}

// CancelPrefetching aborts every in-flight entry still at low priority and
// discards its callbacks without invoking them. High-priority entries,
// including promoted ones, are untouched.
func (f *Fetcher) CancelPrefetching() {
	f.mu.Lock()
	var cancelled []*entry
	for u, e := range f.inflight {
		if e.prio == PriorityLow {
			delete(f.inflight, u)
			cancelled = append(cancelled, e)
		}
	}
	f.metrics.SetInFlight(len(f.inflight))
	f.mu.Unlock()

	for _, e := range cancelled {
		e.cancel()
		f.metrics.IncrementCancellations()
	}
	if len(cancelled) > 0 {
		f.log.Debug("Cancelled prefetching", "count", len(cancelled))
	}
}

// Cancel aborts the in-flight fetch for rawURL, if any, and discards its
// coalesced callbacks without invoking them. Intended for callers whose UI
// element is being reused for different content. No-op when nothing is in
// flight for the URL.
func (f *Fetcher) Cancel(rawURL string) {
	f.mu.Lock()
	e, ok := f.inflight[rawURL]
	if ok {
		delete(f.inflight, rawURL)
		f.metrics.SetInFlight(len(f.inflight))
	}
	f.mu.Unlock()

	if ok {
		e.cancel()
		f.metrics.IncrementCancellations()
		f.log.Debug("Cancelled in-flight fetch", "url", rawURL)
	}
}

// Shutdown aborts all in-flight work, waits for workers to drain, and
// stops the owned completion executor. The fetcher must not be used
// afterwards; requests arriving during shutdown resolve with absence.
func (f *Fetcher) Shutdown() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	for u := range f.inflight {
		delete(f.inflight, u)
	}
	f.metrics.SetInFlight(0)
	f.mu.Unlock()

	f.stop()
	f.wg.Wait()
	if f.ownedExec != nil {
		f.ownedExec.Close()
	}
	f.log.Info("Logo fetcher shut down")
}

// submit hands an entry to the bounded execution harness. Each entry waits
// for a concurrency slot; a cancellation while waiting prevents the fetch
// from ever starting.
func (f *Fetcher) submit(e *entry) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		if err := f.sem.Acquire(e.ctx, 1); err != nil {
			return
		}
		defer f.sem.Release(1)
		f.runFetch(e)
	}()
}

// runFetch performs the transport fetch and decode for one entry, then
// resolves it. The completion path re-checks that the entry is still the
// tracked one so a cancellation racing with completion silently discards
// the result.
func (f *Fetcher) runFetch(e *entry) {
	f.mu.Lock()
	if f.inflight[e.url] != e {
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()

	start := time.Now()
	data, err := f.transport.FetchBytes(e.ctx, e.url, e.hint)

	var img image.Image
	if err == nil {
		img, err = decodeThumbnail(data, f.cfg.MaxDimension)
	}

	f.mu.Lock()
	if f.inflight[e.url] != e {
		// Cancelled (or shut down) while fetching: discard the result
		// without populating the cache or notifying anyone.
		f.mu.Unlock()
		return
	}
	delete(f.inflight, e.url)
	f.metrics.SetInFlight(len(f.inflight))
	callbacks := e.callbacks
	f.mu.Unlock()

	e.cancel()

	if err != nil {
		f.metrics.IncrementDownloadErrors()
		f.log.Debug("Logo fetch failed", "url", e.url, "error", err)
		img = nil
	} else {
		f.metrics.IncrementDownloads()
		f.metrics.ObserveDownloadDuration(time.Since(start).Seconds())
		// Populate the cache before callbacks fire so a request racing in
		// right after untracking observes a hit instead of refetching.
		f.cache.Put(e.url, img)
	}

	result := img
	for _, cb := range callbacks {
		cb := cb
		f.exec.Do(func() { cb(result) })
	}
}

// validRequestURL accepts absolute http(s) URLs with a host.
func validRequestURL(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}
