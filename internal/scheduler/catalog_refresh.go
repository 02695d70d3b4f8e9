package scheduler

import (
	"context"
	"sync"

	"github.com/MrSnakeDoc/shelf/internal/catalog"
	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/index"
	"github.com/MrSnakeDoc/shelf/internal/logger"
)

// SourceLister provides the sources a refresh resolves.
type SourceLister interface {
	List() []domain.Source
}

// Aggregator resolves sources into documents.
type Aggregator interface {
	Fetch(ctx context.Context, sources []domain.Source) catalog.Result
}

// CatalogRefresher rebuilds the document index on demand. There is no
// polling: a refresh runs once on start when sources exist, then only when
// triggered.
type CatalogRefresher struct {
	sources       SourceLister
	fetcher       Aggregator
	index         *index.MemoryIndex
	logger        logger.Logger
	stopCh        chan struct{}
	stopOnce      sync.Once
	manualTrigger chan struct{}
	done          chan struct{}
}

// NewCatalogRefresher creates a new catalog refresher
func NewCatalogRefresher(
	sources SourceLister,
	fetcher Aggregator,
	idx *index.MemoryIndex,
	log logger.Logger,
	manualTrigger chan struct{},
) *CatalogRefresher {
	if manualTrigger == nil {
		manualTrigger = make(chan struct{}, 1)
	}
	return &CatalogRefresher{
		sources:       sources,
		fetcher:       fetcher,
		index:         idx,
		logger:        log,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
		done:          make(chan struct{}),
	}
}

// Start runs the initial refresh if any source is registered and then waits
// for triggers in the background.
func (cr *CatalogRefresher) Start(ctx context.Context) {
	// Load immediately on start
	if len(cr.sources.List()) > 0 {
		cr.Refresh(ctx)
	} else {
		cr.logger.Info("no sources registered, skipping initial refresh")
	}

	go func() {
		defer close(cr.done)
		for {
			select {
			case <-cr.manualTrigger:
				cr.logger.Info("manual refresh triggered")
				cr.Refresh(ctx)
			case <-cr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Trigger queues a refresh without waiting for it. Triggers arriving while
// one is already queued are coalesced.
func (cr *CatalogRefresher) Trigger() {
	select {
	case cr.manualTrigger <- struct{}{}:
	default:
	}
}

// Stop stops the refresher and waits for the trigger loop to exit.
func (cr *CatalogRefresher) Stop() {
	cr.stopOnce.Do(func() { close(cr.stopCh) })
	<-cr.done
}

// Refresh resolves the current sources and commits the documents to the
// index. Refreshes may overlap; only the most recently started one commits.
// It reports whether this run's result was applied.
func (cr *CatalogRefresher) Refresh(ctx context.Context) (catalog.Result, bool) {
	token := cr.index.BeginRefresh()
	sources := cr.sources.List()

	cr.logger.Info("refreshing catalog",
		logger.Uint64("token", token),
		logger.Int("sources", len(sources)))

	res := cr.fetcher.Fetch(ctx, sources)

	// A cancelled run reports every fetch as failed; keep the current catalog.
	if ctx.Err() != nil {
		cr.index.Abandon(token)
		cr.logger.Debug("discarding cancelled catalog refresh",
			logger.Uint64("token", token),
			logger.Error(ctx.Err()))
		return res, false
	}

	if !cr.index.Commit(token, res.Documents, res.Failed, res.NoDocuments) {
		cr.logger.Debug("discarding superseded catalog refresh",
			logger.Uint64("token", token))
		return res, false
	}

	if res.NoDocuments {
		cr.logger.Info("no documents found in the registered sources")
	}
	return res, true
}
