package worker

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dealmungchi/freegameworker/helpers"
	"github.com/dealmungchi/freegameworker/internal/crawler"
	"github.com/dealmungchi/freegameworker/internal/offer"
	"github.com/dealmungchi/freegameworker/internal/render"
	"github.com/dealmungchi/freegameworker/logger"
	apperrors "github.com/dealmungchi/freegameworker/pkg/errors"
	"github.com/dealmungchi/freegameworker/services/dedup"
	"github.com/dealmungchi/freegameworker/services/publisher"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultFetchTimeout bounds a single storefront adapter
	DefaultFetchTimeout = 30 * time.Second
	// DefaultRunTimeout bounds the collection phase of a run
	DefaultRunTimeout = 120 * time.Second
	// DefaultCrawlInterval is the persistent-mode pause between runs
	DefaultCrawlInterval = time.Hour
	// CommitTimeout bounds recording announced ids after publishing
	CommitTimeout = 10 * time.Second
)

// Options tunes a Worker
type Options struct {
	FetchTimeout  time.Duration
	RunTimeout    time.Duration
	CrawlInterval time.Duration
	StorePriority []string
}

// Worker runs the aggregation pipeline: fetch every storefront, normalize,
// drop already announced offers, publish the rest and remember what was accepted.
type Worker struct {
	crawlers   []crawler.Crawler
	normalizer *offer.Normalizer
	store      dedup.Store
	renderer   *render.Renderer
	publisher  publisher.Publisher
	logger     helpers.LoggerInterface

	fetchTimeout  time.Duration
	runTimeout    time.Duration
	crawlInterval time.Duration
	priority      map[offer.Store]int

	group   singleflight.Group
	mu      sync.RWMutex
	lastRun *Result
}

// NewWorker creates a new worker
func NewWorker(
	crawlers []crawler.Crawler,
	normalizer *offer.Normalizer,
	store dedup.Store,
	renderer *render.Renderer,
	pub publisher.Publisher,
	logger helpers.LoggerInterface,
	opts Options,
) *Worker {
	w := &Worker{
		crawlers:      crawlers,
		normalizer:    normalizer,
		store:         store,
		renderer:      renderer,
		publisher:     pub,
		logger:        logger,
		fetchTimeout:  opts.FetchTimeout,
		runTimeout:    opts.RunTimeout,
		crawlInterval: opts.CrawlInterval,
		priority:      make(map[offer.Store]int),
	}
	if w.fetchTimeout <= 0 {
		w.fetchTimeout = DefaultFetchTimeout
	}
	if w.runTimeout <= 0 {
		w.runTimeout = DefaultRunTimeout
	}
	if w.crawlInterval <= 0 {
		w.crawlInterval = DefaultCrawlInterval
	}
	for i, name := range opts.StorePriority {
		s := offer.ParseStore(name)
		if _, ok := w.priority[s]; !ok {
			w.priority[s] = i
		}
	}
	return w
}

// Start runs immediately and then every crawl interval until ctx is cancelled
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.crawlInterval)
	defer ticker.Stop()

	for {
		result, _ := w.Trigger(ctx)
		if logger.IsDebugEnabled() {
			w.logger.LogInfo("Run %s took %s", result.RunID, result.Duration)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Trigger runs the pipeline unless a run is already in flight, in which case
// it waits for that run and returns its result. shared reports the latter.
func (w *Worker) Trigger(ctx context.Context) (result Result, shared bool) {
	v, _, shared := w.group.Do("run", func() (interface{}, error) {
		return w.Run(ctx), nil
	})
	return v.(Result), shared
}

// LastRun returns the most recent completed run, if any
func (w *Worker) LastRun() (Result, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.lastRun == nil {
		return Result{}, false
	}
	return *w.lastRun, true
}

// Run executes one pass of the pipeline. Storefront, publish and store
// failures are isolated and reported in the result; Run itself never fails.
func (w *Worker) Run(ctx context.Context) Result {
	result := Result{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	log := logger.ForWorker().WithField("run_id", result.RunID)
	log.Info().Int("sources", len(w.crawlers)).Msg("Run started")

	collectCtx, cancel := context.WithTimeout(ctx, w.runTimeout)
	raws := w.fetchAll(collectCtx, &result)
	cancel()

	offers := w.normalizeAll(raws, &result)
	unique := uniqueByID(offers)
	fresh := w.partition(ctx, unique, &result)
	result.New = len(fresh)

	if len(fresh) == 0 {
		log.Info().Int("offers", len(unique)).Msg("No new offers")
		return w.finish(result)
	}

	w.sortOffers(fresh)

	var accepted []string
	for _, n := range w.renderer.Render(fresh) {
		if err := w.publisher.Send(ctx, n); err != nil {
			w.logger.LogError("publisher", apperrors.NewPublish("publisher",
				fmt.Sprintf("failed to announce %s", strings.Join(n.OfferIDs, ", ")), err))
			result.Failed += len(n.OfferIDs)
			continue
		}
		accepted = append(accepted, n.OfferIDs...)
	}
	result.Announced = len(accepted)

	if len(accepted) > 0 {
		commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), CommitTimeout)
		if err := w.store.AddAll(commitCtx, accepted); err != nil {
			w.logger.LogError("dedup", err)
			result.Warnings = append(result.Warnings, "failed to record announced offers: "+err.Error())
		}
		cancel()
	}

	return w.finish(result)
}

type fetchOutcome struct {
	index  int
	offers []offer.RawOffer
	err    error
}

// fetchAll invokes every crawler concurrently. Each goroutine reports exactly
// once on a buffered channel and this collector is the only writer of the
// slots, so an abandoned crawler can never block or corrupt the run.
func (w *Worker) fetchAll(ctx context.Context, result *Result) [][]offer.RawOffer {
	slots := make([][]offer.RawOffer, len(w.crawlers))
	reports := make([]SourceReport, len(w.crawlers))
	answered := make([]bool, len(w.crawlers))
	outcomes := make(chan fetchOutcome, len(w.crawlers))

	for i, c := range w.crawlers {
		reports[i] = SourceReport{Name: c.GetName(), Store: c.GetStore()}
		go w.fetchOne(ctx, i, c, outcomes)
	}

collect:
	for remaining := len(w.crawlers); remaining > 0; remaining-- {
		select {
		case out := <-outcomes:
			answered[out.index] = true
			if out.err != nil {
				reports[out.index].Error = out.err.Error()
				w.logger.LogError(reports[out.index].Name,
					apperrors.NewSource(reports[out.index].Name, "fetch failed", out.err))
				continue
			}
			slots[out.index] = out.offers
			reports[out.index].Offers = len(out.offers)
		case <-ctx.Done():
			break collect
		}
	}

	for i, ok := range answered {
		if ok {
			continue
		}
		reports[i].TimedOut = true
		reports[i].Error = "abandoned at run deadline"
		w.logger.LogError(reports[i].Name,
			apperrors.NewSource(reports[i].Name, "abandoned at run deadline", ctx.Err()))
	}

	for i, r := range reports {
		if r.Error != "" {
			result.FailedSources = append(result.FailedSources, r.Name)
		}
		result.Fetched += len(slots[i])
	}
	result.Sources = reports
	return slots
}

func (w *Worker) fetchOne(ctx context.Context, index int, c crawler.Crawler, outcomes chan<- fetchOutcome) {
	out := fetchOutcome{index: index}
	defer func() {
		if r := recover(); r != nil {
			out.offers = nil
			out.err = fmt.Errorf("panic: %v", r)
		}
		outcomes <- out
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, w.fetchTimeout)
	defer cancel()

	out.offers, out.err = c.FetchOffers(fetchCtx)
	if out.err != nil {
		out.offers = nil
	}
}

// normalizeAll keeps crawler order so the first occurrence of an id is stable
func (w *Worker) normalizeAll(slots [][]offer.RawOffer, result *Result) []offer.Offer {
	var offers []offer.Offer
	for i, raws := range slots {
		store := w.crawlers[i].GetStore()
		for _, raw := range raws {
			if o, ok := w.normalizer.Normalize(raw, store); ok {
				offers = append(offers, o)
			}
		}
	}
	result.Normalized = len(offers)
	return offers
}

// uniqueByID drops repeated ids, keeping the first occurrence
func uniqueByID(offers []offer.Offer) []offer.Offer {
	seen := make(map[string]struct{}, len(offers))
	unique := make([]offer.Offer, 0, len(offers))
	for _, o := range offers {
		if _, ok := seen[o.ID]; ok {
			continue
		}
		seen[o.ID] = struct{}{}
		unique = append(unique, o)
	}
	return unique
}

// partition returns the offers the store has not seen. A lookup failure
// counts as not announced: a duplicate beats a missed offer.
func (w *Worker) partition(ctx context.Context, offers []offer.Offer, result *Result) []offer.Offer {
	var fresh []offer.Offer
	for _, o := range offers {
		known, err := w.store.Contains(ctx, o.ID)
		if err != nil {
			w.logger.LogError("dedup", err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("lookup of %s failed, treating as new", o.ID))
		}
		if !known || err != nil {
			fresh = append(fresh, o)
		}
	}
	return fresh
}

// sortOffers orders by configured store priority, then title, then id.
// Stores missing from the priority list follow, alphabetically.
func (w *Worker) sortOffers(offers []offer.Offer) {
	rank := func(s offer.Store) int {
		if r, ok := w.priority[s]; ok {
			return r
		}
		return len(w.priority)
	}
	sort.SliceStable(offers, func(i, j int) bool {
		a, b := offers[i], offers[j]
		if ra, rb := rank(a.Store), rank(b.Store); ra != rb {
			return ra < rb
		}
		if a.Store != b.Store {
			return a.Store < b.Store
		}
		if ta, tb := strings.ToLower(a.Title), strings.ToLower(b.Title); ta != tb {
			return ta < tb
		}
		return a.ID < b.ID
	})
}

func (w *Worker) finish(result Result) Result {
	result.Duration = time.Since(result.StartedAt)

	logger.ForWorker().Info().
		Str("run_id", result.RunID).
		Int("fetched", result.Fetched).
		Int("normalized", result.Normalized).
		Int("new", result.New).
		Int("announced", result.Announced).
		Int("failed", result.Failed).
		Strs("failed_sources", result.FailedSources).
		Dur("duration", result.Duration).
		Msg("Run finished")

	w.mu.Lock()
	w.lastRun = &result
	w.mu.Unlock()
	return result
}
