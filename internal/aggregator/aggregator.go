// Package aggregator builds the context around a chat message: recent channel
// history, extracted action items, relevant documents and a suggested reply.
//
// Results are cached per (channel, message). The NLP capabilities are
// failure-isolated: any error or timeout degrades to an empty result and
// never fails the aggregation. Only a missing message or an unreachable
// message store is reported to the caller.
package aggregator

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/eldtechnologies/contextstack/internal/cache"
	"github.com/eldtechnologies/contextstack/internal/metrics"
	"github.com/eldtechnologies/contextstack/internal/models"
	"github.com/eldtechnologies/contextstack/internal/nlp"
)

// Repository is the read side of the message store.
type Repository interface {
	// RecentMessages returns up to limit messages of a channel, newest first.
	RecentMessages(ctx context.Context, channelID string, limit int) ([]models.Message, error)
	// GetMessage returns (nil, nil) when the message does not exist.
	GetMessage(ctx context.Context, channelID, messageID string) (*models.Message, error)
}

// ActionExtractor finds action items in text.
type ActionExtractor interface {
	ExtractActions(ctx context.Context, text string) ([]models.Action, error)
}

// DocFinder ranks stored documents by relevance to text.
type DocFinder interface {
	SearchDocs(ctx context.Context, text string, topK int) ([]models.DocMatch, error)
}

// Config holds aggregation tunables. Zero values take the defaults.
type Config struct {
	CacheTTL          time.Duration // default 300s
	CapabilityTimeout time.Duration // per NLP call, default 5s
	RepositoryTimeout time.Duration // per store query, default 5s
	DocsTopK          int           // default 3
}

func (c Config) withDefaults() Config {
	if c.CacheTTL <= 0 {
		c.CacheTTL = cache.DefaultTTL
	}
	if c.CapabilityTimeout <= 0 {
		c.CapabilityTimeout = 5 * time.Second
	}
	if c.RepositoryTimeout <= 0 {
		c.RepositoryTimeout = 5 * time.Second
	}
	if c.DocsTopK <= 0 {
		c.DocsTopK = 3
	}
	return c
}

// Deps are the collaborators of an Aggregator.
type Deps struct {
	Repository Repository
	Cache      cache.Cache
	Actions    ActionExtractor
	Docs       DocFinder
	Events     EventSink // optional
	Logger     zerolog.Logger
	Now        func() time.Time // optional, defaults to time.Now
}

// Aggregator produces ContextResponses.
type Aggregator struct {
	repo    Repository
	cache   cache.Cache
	actions ActionExtractor
	docs    DocFinder
	events  EventSink
	logger  zerolog.Logger
	now     func() time.Time
	cfg     Config
}

// New creates an Aggregator.
func New(deps Deps, cfg Config) *Aggregator {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger.With().Str("component", "aggregator").Logger()
	events := deps.Events
	if events == nil {
		events = LogSink{Logger: logger}
	}
	return &Aggregator{
		repo:    deps.Repository,
		cache:   deps.Cache,
		actions: deps.Actions,
		docs:    deps.Docs,
		events:  events,
		logger:  logger,
		now:     now,
		cfg:     cfg.withDefaults(),
	}
}

// GetContext returns the context for req, from cache when possible.
//
// It fails only with ErrNotFound or ErrRepositoryUnavailable (both wrapped),
// or with the context's error when ctx is cancelled before the response is
// complete. Nothing is cached on failure.
func (a *Aggregator) GetContext(ctx context.Context, req models.ContextRequest) (*models.ContextResponse, error) {
	start := a.now()
	req = req.Normalize()
	key := cache.ContextKey(req.ChannelID, req.MessageID)

	if resp, ok := a.cached(ctx, key); ok {
		metrics.ContextRequests.WithLabelValues("hit").Inc()
		return resp, nil
	}

	target, err := a.fetchTarget(ctx, req)
	if err != nil {
		return nil, a.fail(ctx, err)
	}

	var (
		recent  []models.Message
		actions []models.Action
		docs    []models.DocMatch
	)

	// History and both capabilities only need the target text; a history
	// failure cancels the capability calls.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		msgs, err := a.recentMessages(gctx, req)
		if err != nil {
			return err
		}
		recent = msgs
		return nil
	})
	g.Go(func() error {
		actions = a.extractActions(gctx, req, target.Text)
		return nil
	})
	g.Go(func() error {
		docs = a.searchDocs(gctx, req, target.Text)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, a.fail(ctx, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, a.fail(ctx, err)
	}

	generatedAt := a.now()
	resp := &models.ContextResponse{
		Messages:       recent,
		Actions:        actions,
		RelevantDocs:   docs,
		SuggestedReply: SynthesizeReply(actions, target),
		Meta: models.ContextMeta{
			GeneratedAt: generatedAt.UTC(),
			LatencyMs:   generatedAt.Sub(start).Milliseconds(),
		},
		FromCache: false,
	}

	a.store(ctx, key, resp)

	metrics.ContextRequests.WithLabelValues("computed").Inc()
	metrics.AggregationDuration.Observe(generatedAt.Sub(start).Seconds())
	return resp, nil
}

// cached returns a decoded cache entry. An undecodable entry counts as a miss.
func (a *Aggregator) cached(ctx context.Context, key string) (*models.ContextResponse, bool) {
	data, ok := a.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}

	var resp models.ContextResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		a.logger.Warn().Str("key", key).Err(err).Msg("discarding undecodable cache entry")
		return nil, false
	}
	resp.FromCache = true
	return &resp, true
}

// store writes resp to the cache unless the caller has gone away.
func (a *Aggregator) store(ctx context.Context, key string, resp *models.ContextResponse) {
	if ctx.Err() != nil {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		a.logger.Error().Str("key", key).Err(err).Msg("failed to encode context for cache")
		return
	}
	a.cache.Set(ctx, key, data, a.cfg.CacheTTL)
}

func (a *Aggregator) fetchTarget(ctx context.Context, req models.ContextRequest) (*models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.RepositoryTimeout)
	defer cancel()

	msg, err := a.repo.GetMessage(ctx, req.ChannelID, req.MessageID)
	if err != nil {
		return nil, fmt.Errorf("%w: get message: %w", ErrRepositoryUnavailable, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, req.ChannelID, req.MessageID)
	}
	return msg, nil
}

// recentMessages returns the channel's latest req.Limit messages in
// chronological order, whatever order the repository used.
func (a *Aggregator) recentMessages(ctx context.Context, req models.ContextRequest) ([]models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.RepositoryTimeout)
	defer cancel()

	msgs, err := a.repo.RecentMessages(ctx, req.ChannelID, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("%w: recent messages: %w", ErrRepositoryUnavailable, err)
	}

	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	slices.SortStableFunc(out, newestFirst)
	if len(out) > req.Limit {
		out = out[:req.Limit]
	}
	slices.Reverse(out)
	return out, nil
}

func newestFirst(x, y models.Message) int {
	if c := y.CreatedAt.Compare(x.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(y.Seq, x.Seq)
}

func (a *Aggregator) extractActions(ctx context.Context, req models.ContextRequest, text string) []models.Action {
	callCtx, cancel := context.WithTimeout(ctx, a.cfg.CapabilityTimeout)
	defer cancel()

	start := time.Now()
	actions, err := a.actions.ExtractActions(callCtx, text)
	if err != nil {
		a.degrade(ctx, nlp.CapabilityExtractActions, req, err, time.Since(start))
		return []models.Action{}
	}
	if actions == nil {
		actions = []models.Action{}
	}
	return actions
}

func (a *Aggregator) searchDocs(ctx context.Context, req models.ContextRequest, text string) []models.DocMatch {
	callCtx, cancel := context.WithTimeout(ctx, a.cfg.CapabilityTimeout)
	defer cancel()

	start := time.Now()
	docs, err := a.docs.SearchDocs(callCtx, text, a.cfg.DocsTopK)
	if err != nil {
		a.degrade(ctx, nlp.CapabilitySearchDocs, req, err, time.Since(start))
		return []models.DocMatch{}
	}
	if docs == nil {
		docs = []models.DocMatch{}
	}
	return docs
}

// degrade records a failed capability call. Calls abandoned because the
// aggregation itself was cancelled are not degradations.
func (a *Aggregator) degrade(ctx context.Context, capability string, req models.ContextRequest, err error, d time.Duration) {
	if ctx.Err() != nil {
		a.logger.Debug().Str("capability", capability).Err(err).Msg("capability call abandoned")
		return
	}
	metrics.CapabilityDegraded.WithLabelValues(capability).Inc()
	a.events.CapabilityDegraded(DegradationEvent{
		Capability: capability,
		ChannelID:  req.ChannelID,
		MessageID:  req.MessageID,
		Err:        err,
		Duration:   d,
	})
}

func (a *Aggregator) fail(ctx context.Context, err error) error {
	outcome := "unavailable"
	switch {
	case ctx.Err() != nil:
		outcome = "cancelled"
	case isNotFound(err):
		outcome = "not_found"
	}
	metrics.ContextRequests.WithLabelValues(outcome).Inc()
	return err
}
