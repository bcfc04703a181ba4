// Package core coordinates repository analysis: it schedules scans, shares
// in-flight work through the result cache, commits results to the index and
// answers search and similarity queries over it.
package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/huangsam/repolens/core/algo"
	"github.com/huangsam/repolens/core/cache"
	"github.com/huangsam/repolens/core/fingerprint"
	"github.com/huangsam/repolens/core/index"
	"github.com/huangsam/repolens/core/queue"
	"github.com/huangsam/repolens/core/search"
	"github.com/huangsam/repolens/internal/contract"
	"github.com/huangsam/repolens/internal/pathcheck"
	"github.com/huangsam/repolens/schema"
)

// archivedBatches bounds how many finished batches stay queryable.
const archivedBatches = 64

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithRegisterer registers the orchestrator metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *Orchestrator) { o.registerer = reg }
}

// WithStore persists committed analyses to store.
func WithStore(store contract.IndexStore) Option {
	return func(o *Orchestrator) { o.store = store }
}

// WithValidator replaces the default path validator.
func WithValidator(v contract.PathValidator) Option {
	return func(o *Orchestrator) { o.validator = v }
}

// WithGitClient sets the git client used for content fingerprints.
func WithGitClient(git contract.GitClient) Option {
	return func(o *Orchestrator) { o.git = git }
}

// WithInsightProviders registers insight providers by name.
func WithInsightProviders(providers ...contract.InsightProvider) Option {
	return func(o *Orchestrator) {
		for _, p := range providers {
			o.insights[p.Name()] = p
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Orchestrator owns the cache, queue and index of one repolens process.
// It is the only writer of the index.
type Orchestrator struct {
	cfg        *contract.Config
	scanner    contract.Scanner
	validator  contract.PathValidator
	git        contract.GitClient
	store      contract.IndexStore
	insights   map[string]contract.InsightProvider
	logger     *zap.Logger
	registerer prometheus.Registerer
	now        func() time.Time

	fingerprinter *fingerprint.Fingerprinter
	cache         *cache.ResultCache
	queue         *queue.Queue
	index         *index.Index
	writer        *index.Writer
	search        *search.Engine
	scorer        *algo.Scorer
	metrics       *Metrics
	events        *eventBus

	mu      sync.RWMutex // Guards closed and wg additions
	closed  bool
	wg      sync.WaitGroup
	baseCtx context.Context
	stop    context.CancelFunc

	batchMu sync.Mutex
	batches map[string]*batchRun
	archive *lru.Cache[string, *schema.BatchJob]
}

// New creates an Orchestrator from a validated config. The scanner is required.
func New(cfg *contract.Config, scanner contract.Scanner, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if scanner == nil {
		return nil, fmt.Errorf("scanner is required")
	}
	o := &Orchestrator{
		cfg:      cfg.Clone(),
		scanner:  scanner,
		insights: make(map[string]contract.InsightProvider),
		logger:   zap.NewNop(),
		now:      time.Now,
		batches:  make(map[string]*batchRun),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.validator == nil {
		o.validator = pathcheck.New(o.cfg.AllowedRoots)
	}
	if o.git == nil {
		o.git = contract.NewLocalGitClient()
	}

	archive, err := lru.New[string, *schema.BatchJob](archivedBatches)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch archive: %w", err)
	}
	o.archive = archive
	o.metrics = NewMetrics(o.registerer)
	o.events = newEventBus(o.metrics.EventsDropped.Inc)
	o.fingerprinter = fingerprint.New(o.git)
	o.cache = cache.New(o.cfg.CacheCapacity, o.cfg.CacheTTL)
	o.queue = queue.New(o.cfg.Workers, o.cfg.ScanTimeout,
		queue.WithLogger(o.logger.Named("queue")),
		queue.WithObserver(func(running, pending int) {
			o.metrics.QueueRunning.Set(float64(running))
			o.metrics.QueuePending.Set(float64(pending))
		}),
	)
	o.index, o.writer = index.New()
	o.search = search.New(o.index)
	o.scorer = algo.NewScorer(o.cfg.SimilarityWeights)
	o.baseCtx, o.stop = context.WithCancel(context.Background())
	return o, nil
}

// Start loads the durable index and seeds the result cache with fingerprints
// committed within the cache TTL.
func (o *Orchestrator) Start(ctx context.Context) error {
	if o.store == nil {
		return nil
	}
	records, err := o.store.LoadAll()
	if err != nil {
		return contract.Wrap(schema.StorageFailed, "", "failed to load index", err)
	}
	analyses := make([]*schema.RepositoryAnalysis, 0, len(records))
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		var a schema.RepositoryAnalysis
		if err := json.Unmarshal(rec.Payload, &a); err != nil {
			o.logger.Warn("skipping unreadable index record", zap.String("repo_id", rec.RepoID), zap.Error(err))
			continue
		}
		a.CreatedAt, a.UpdatedAt = rec.CreatedAt, rec.UpdatedAt
		analyses = append(analyses, &a)
	}
	if err := o.writer.Load(analyses); err != nil {
		return err
	}
	o.metrics.IndexSize.Set(float64(o.index.Len()))

	fingerprints, err := o.store.LoadFingerprints()
	if err != nil {
		return contract.Wrap(schema.StorageFailed, "", "failed to load fingerprints", err)
	}
	seeded := 0
	ttl := o.cache.TTL()
	for _, fp := range fingerprints {
		remaining := ttl - o.now().Sub(fp.CommittedAt)
		if ttl > 0 && remaining <= 0 {
			continue
		}
		a, ok := o.index.Get(fp.RepoID)
		if !ok || a.Fingerprint != fp.Fingerprint {
			continue
		}
		if o.cache.Seed(fp.Fingerprint, a, remaining) {
			seeded++
		}
	}
	o.logger.Info("warm start complete", zap.Int("repositories", len(analyses)), zap.Int("cache_seeded", seeded))
	return nil
}

// AnalyzeOne analyzes one repository and blocks until the result is committed
// or ctx ends. Concurrent calls for the same input share a single scan.
func (o *Orchestrator) AnalyzeOne(ctx context.Context, path string, opts schema.AnalysisOptions) (*schema.RepositoryAnalysis, error) {
	info, opts, err := o.prepare(ctx, path, opts)
	if err != nil {
		o.publishSingle(path, "", schema.PendingStatus, schema.FailedStatus, err)
		return nil, err
	}
	o.publishSingle(info.Path, "", schema.PendingStatus, schema.InProgressStatus, nil)
	result, _, err := o.execute(ctx, info, opts)
	if err != nil {
		o.publishSingle(info.Path, "", schema.InProgressStatus, schema.FailedStatus, err)
		return nil, err
	}
	o.publishSingle(info.Path, result.ID, schema.InProgressStatus, schema.CompletedStatus, nil)
	return result, nil
}

// publishSingle emits an event for an analysis outside any batch.
func (o *Orchestrator) publishSingle(path, repoID string, from, to schema.MemberStatus, err error) {
	member := schema.BatchMember{Index: -1, Path: path, RepoID: repoID, Status: to}
	event := schema.ProgressEvent{
		MemberIndex: -1,
		Path:        path,
		RepoID:      repoID,
		From:        from,
		To:          to,
		Counters:    schema.CountMembers([]schema.BatchMember{member}),
		Timestamp:   o.now(),
	}
	if err != nil {
		event.Error = contract.AsAnalysisError(err, path).MemberError()
	}
	o.events.publish(event)
}

// prepare validates the options and the path. Failures here never reach the queue.
func (o *Orchestrator) prepare(ctx context.Context, path string, opts schema.AnalysisOptions) (contract.PathInfo, schema.AnalysisOptions, error) {
	normalized, err := contract.NormalizeOptions(opts)
	if err != nil {
		return contract.PathInfo{}, opts, withPath(err, path)
	}
	info, err := o.validator.Validate(ctx, path)
	if err != nil {
		return contract.PathInfo{}, normalized, withPath(err, path)
	}
	return info, normalized, nil
}

// execute reserves the fingerprint and either schedules the scan or waits for
// the analysis already in flight. The boolean reports whether the result was shared.
func (o *Orchestrator) execute(ctx context.Context, info contract.PathInfo, opts schema.AnalysisOptions) (*schema.RepositoryAnalysis, bool, error) {
	fp := o.fingerprinter.Fingerprint(ctx, info.Path, opts)
	for {
		lease, owner := o.cache.Reserve(fp)
		switch {
		case owner:
			o.metrics.CacheRequests.WithLabelValues("miss").Inc()
			if err := o.schedule(ctx, lease, info, opts); err != nil {
				return nil, false, err
			}
		case isResolved(lease):
			o.metrics.CacheRequests.WithLabelValues("hit").Inc()
		default:
			o.metrics.CacheRequests.WithLabelValues("joined").Inc()
		}

		result, err := lease.Wait(ctx)
		if err == nil {
			return result, !owner, nil
		}
		if ctx.Err() != nil {
			return nil, false, contract.Wrap(contract.KindOf(ctx.Err()), info.Path, "analysis interrupted", ctx.Err())
		}
		if !owner && contract.IsKind(err, schema.ScanCancelled) {
			// The owner went away before committing; try to take over.
			continue
		}
		return nil, false, withPath(err, info.Path)
	}
}

func isResolved(lease *cache.Lease) bool {
	select {
	case <-lease.Done():
		return true
	default:
		return false
	}
}

// schedule submits the scan and resolves the lease once the job is terminal.
func (o *Orchestrator) schedule(ctx context.Context, lease *cache.Lease, info contract.PathInfo, opts schema.AnalysisOptions) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		err := contract.NewError(schema.ScanCancelled, info.Path, "orchestrator is closed")
		o.cache.Abort(lease, err)
		return err
	}

	gen := o.writer.Generation(fingerprint.RepoID(info.Path))
	var result *schema.RepositoryAnalysis
	h := o.queue.Submit(ctx, func(jctx context.Context) error {
		a, err := o.scan(jctx, info, opts, lease.Fingerprint())
		result = a
		return err
	})
	o.wg.Go(func() {
		<-h.Done()
		o.finalize(h, lease, result, gen, info.Path)
	})
	return nil
}

// scan runs the scanner and the optional insight provider for one job.
func (o *Orchestrator) scan(ctx context.Context, info contract.PathInfo, opts schema.AnalysisOptions, fp string) (*schema.RepositoryAnalysis, error) {
	logger := o.logger.With(zap.String("path", info.Path), zap.String("mode", string(opts.Mode)))
	if batchID, index, ok := batchMemberFrom(ctx); ok {
		logger = logger.With(zap.String("batch_id", batchID), zap.Int("member", index))
	}

	start := o.now()
	logger.Debug("scan started")
	a, err := o.scanner.Scan(ctx, info.Path, opts)
	o.metrics.ScanDuration.Observe(o.now().Sub(start).Seconds())
	if err != nil {
		logger.Warn("scan failed", zap.Error(err))
		return nil, contract.AsAnalysisError(err, info.Path)
	}
	if a == nil {
		return nil, contract.NewError(schema.ScanFailed, info.Path, "scanner returned no analysis")
	}

	a.ID = fingerprint.RepoID(info.Path)
	a.Path = info.Path
	if a.Name == "" {
		a.Name = info.Name
	}
	a.Fingerprint = fp
	a.Metadata.Options = opts.Clone()
	a.Metadata.AnalysisMode = opts.Mode
	a.Metadata.Provider = opts.LLMProvider
	if opts.IncludeLLMAnalysis {
		a.Insights = o.generateInsights(ctx, opts.LLMProvider, a)
		a.Metadata.TokenUsage = a.Insights.Usage
	}
	a.Metadata.ProcessingTimeMs = o.now().Sub(start).Milliseconds()
	logger.Debug("scan finished", zap.Int("files", a.FileCount), zap.Int64("elapsed_ms", a.Metadata.ProcessingTimeMs))
	return a, nil
}

// generateInsights never fails: provider errors degrade to unavailable insights.
func (o *Orchestrator) generateInsights(ctx context.Context, name string, a *schema.RepositoryAnalysis) *schema.Insights {
	provider, ok := o.insights[name]
	if !ok {
		return &schema.Insights{Provider: name, Reason: fmt.Sprintf("insight provider %q is not configured", name)}
	}
	insights, err := provider.Generate(ctx, a)
	if err != nil {
		o.logger.Warn("insight generation failed", zap.String("provider", name), zap.String("path", a.Path), zap.Error(err))
		return &schema.Insights{Provider: name, Reason: err.Error()}
	}
	if insights == nil {
		return &schema.Insights{Provider: name, Reason: "provider returned no insights"}
	}
	insights.Provider = name
	return insights
}

// finalize commits a completed job to the index and then the cache, or aborts
// the lease. A failed index write leaves both unchanged, and so does a Remove
// of the repository after the job was scheduled.
func (o *Orchestrator) finalize(h *queue.Handle, lease *cache.Lease, result *schema.RepositoryAnalysis, gen uint64, path string) {
	err := h.Err()
	if h.State() == schema.JobCompleted {
		stored, upsertErr := o.writer.UpsertFrom(gen, result, o.now(), o.persist)
		if upsertErr == nil {
			if commitErr := o.cache.Commit(lease, stored); commitErr != nil {
				o.logger.Error("cache commit failed", zap.String("path", path), zap.Error(commitErr))
			}
			o.metrics.JobsTotal.WithLabelValues(outcomeOf("")).Inc()
			o.metrics.IndexSize.Set(float64(o.index.Len()))
			return
		}
		err = upsertErr
	}

	ae := withPath(err, path)
	o.cache.Abort(lease, ae)
	o.metrics.JobsTotal.WithLabelValues(outcomeOf(ae.Kind)).Inc()
	if ae.Kind == schema.IndexInconsistency {
		o.logger.Error("index rejected analysis", zap.String("path", path), zap.Error(ae))
		return
	}
	o.logger.Info("analysis not committed", zap.String("path", path), zap.String("kind", string(ae.Kind)), zap.Error(ae))
}

// persist writes the record and its fingerprint before the index changes.
func (o *Orchestrator) persist(a *schema.RepositoryAnalysis) error {
	if o.store == nil {
		return nil
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return contract.Wrap(schema.StorageFailed, a.Path, "failed to encode analysis", err)
	}
	record := schema.RepositoryRecord{
		RepoID:      a.ID,
		RepoName:    a.Name,
		RepoPath:    a.Path,
		Fingerprint: a.Fingerprint,
		Payload:     payload,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
	if err := o.store.Save(record); err != nil {
		return contract.Wrap(schema.StorageFailed, a.Path, "failed to save analysis", err)
	}
	return nil
}

// withPath converts err to an AnalysisError that names path.
func withPath(err error, path string) *contract.AnalysisError {
	ae := contract.AsAnalysisError(err, path)
	if ae == nil {
		return contract.NewError(schema.ScanFailed, path, "analysis failed without an error")
	}
	if ae.Path == "" {
		clone := *ae
		clone.Path = path
		return &clone
	}
	return ae
}

// Remove deletes a repository from the store, the index and the cache.
func (o *Orchestrator) Remove(id string) error {
	removed, err := o.writer.Remove(id, func(id string) error {
		if o.store == nil {
			return nil
		}
		if err := o.store.Delete(id); err != nil {
			return contract.Wrap(schema.StorageFailed, "", "failed to delete "+id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if !removed {
		return contract.NewError(schema.RepositoryNotFound, "", "unknown repository id "+id)
	}
	invalidated := o.cache.InvalidateRepo(id)
	o.metrics.IndexSize.Set(float64(o.index.Len()))
	o.logger.Info("repository removed", zap.String("repo_id", id), zap.Int("cache_entries", invalidated))
	return nil
}

// SearchRepositories returns the indexed repositories matching q, newest first.
func (o *Orchestrator) SearchRepositories(q schema.SearchQuery) []*schema.RepositoryAnalysis {
	return o.search.Search(q)
}

// FindSimilar ranks every other indexed repository by similarity to id.
func (o *Orchestrator) FindSimilar(id string, limit int, minScore float64) (schema.SimilarityReport, error) {
	target, ok := o.index.Get(id)
	if !ok {
		return schema.SimilarityReport{}, contract.NewError(schema.RepositoryNotFound, "", "unknown repository id "+id)
	}
	return o.scorer.FindSimilar(target, o.index.All(), limit, minScore), nil
}

// SuggestCombinations ranks groups of the given repositories by synergy.
// No ids means the whole index; unknown ids are reported as failures.
// maxGroupSize <= 0 uses the configured size.
func (o *Orchestrator) SuggestCombinations(ids []string, maxGroupSize int) schema.CombinationReport {
	records, missing := o.selectRecords(ids)
	if maxGroupSize <= 0 {
		maxGroupSize = o.cfg.MaxGroupSize
	}
	report := algo.SuggestCombinations(records, algo.SynergyOptions{
		Weights:         o.cfg.SynergyWeights,
		MaxGroupSize:    maxGroupSize,
		MaxCombinations: o.cfg.MaxCombinations,
		Limit:           o.cfg.ResultLimit,
	})
	report.Failures = append(report.Failures, missing...)
	return report
}

// GetRelationshipGraph builds the similarity graph over the given repositories.
// No ids means the whole index; a negative threshold uses the configured one.
func (o *Orchestrator) GetRelationshipGraph(ctx context.Context, ids []string, threshold float64) (schema.RelationshipGraph, error) {
	records, missing := o.selectRecords(ids)
	if threshold < 0 {
		threshold = o.cfg.GraphThreshold
	}
	graph, err := o.scorer.BuildGraph(ctx, records, threshold, o.cfg.Workers)
	if err != nil {
		return schema.RelationshipGraph{}, contract.Wrap(contract.KindOf(err), "", "graph construction interrupted", err)
	}
	graph.Failures = append(graph.Failures, missing...)
	return graph, nil
}

// selectRecords snapshots the requested ids, or the whole index for none.
func (o *Orchestrator) selectRecords(ids []string) ([]*schema.RepositoryAnalysis, []schema.ScoringFailure) {
	if len(ids) == 0 {
		return o.index.All(), nil
	}
	found, missing := o.index.Subset(ids)
	var failures []schema.ScoringFailure
	for _, id := range missing {
		failures = append(failures, schema.ScoringFailure{RepoID: id, Reason: "repository is not indexed"})
	}
	return found, failures
}

// GetAllIndexed returns a snapshot of the index ordered by id.
func (o *Orchestrator) GetAllIndexed() []*schema.RepositoryAnalysis {
	return o.index.All()
}

// GetByID returns one indexed repository.
func (o *Orchestrator) GetByID(id string) (*schema.RepositoryAnalysis, error) {
	a, ok := o.index.Get(id)
	if !ok {
		return nil, contract.NewError(schema.RepositoryNotFound, "", "unknown repository id "+id)
	}
	return a, nil
}

// SetMaxConcurrency changes the global ceiling for newly scheduled jobs.
func (o *Orchestrator) SetMaxConcurrency(n int) {
	o.queue.SetMaxConcurrency(n)
}

// Observe registers a synchronous progress observer and returns its removal func.
func (o *Orchestrator) Observe(fn ProgressObserver) func() {
	return o.events.observe(fn)
}

// Subscribe returns a channel subscription to every progress event.
func (o *Orchestrator) Subscribe(buffer int) *Subscription {
	return o.events.subscribe(buffer)
}

// CacheStatus returns result cache statistics.
func (o *Orchestrator) CacheStatus() schema.CacheStatus {
	return o.cache.GetStatus()
}

// QueueStatus returns task queue statistics.
func (o *Orchestrator) QueueStatus() schema.QueueStatus {
	return o.queue.GetStatus()
}

// Close cancels pending work, waits for running jobs to resolve and closes subscriptions.
// The store is owned by the caller and stays open.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.mu.Unlock()

	o.stop()
	o.queue.Close()
	o.wg.Wait()
	o.events.closeAll()
}
