// Package orchestrator wires the five retrieval stages (Classification,
// Extraction, Routing, Strategy fan-out, Fusion) behind the Service
// interface that cmd/legalretrieval and any embedding application call
// into. It owns the corpus, every supporting index, the per-request
// deadline, and the Tracer sink.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/refrain2333/legal-retrieval/internal/config"
	"github.com/refrain2333/legal-retrieval/internal/document"
	"github.com/refrain2333/legal-retrieval/internal/embed"
	apperrors "github.com/refrain2333/legal-retrieval/internal/errors"
	"github.com/refrain2333/legal-retrieval/internal/fusion"
	"github.com/refrain2333/legal-retrieval/internal/kg"
	"github.com/refrain2333/legal-retrieval/internal/llm"
	"github.com/refrain2333/legal-retrieval/internal/query"
	"github.com/refrain2333/legal-retrieval/internal/router"
	"github.com/refrain2333/legal-retrieval/internal/store"
	"github.com/refrain2333/legal-retrieval/internal/strategy"
	"github.com/refrain2333/legal-retrieval/internal/trace"
)

// SearchRequest is the Go-level request shape for the Search RPC (§6).
type SearchRequest struct {
	Query string
}

// DocumentResult is one fused result entry returned by Search (§6): the
// underlying document plus its fusion annotations. SentenceSummary is only
// populated for case documents.
type DocumentResult struct {
	Document        *document.Document
	FusionScore     float64
	Sources         []string
	SourceCount     int
	Confidence      float64
	SentenceSummary string
}

// SearchResponse is the Go-level response shape for the Search RPC (§6):
// articles and cases are fused and ranked separately, final_answer is
// LLM-synthesized (or template-degraded), and Trace carries the full
// per-stage record for callers that want it alongside the live event
// stream from Subscribe.
type SearchResponse struct {
	RequestID        string
	Articles         []DocumentResult
	Cases            []DocumentResult
	FinalAnswer      string
	ProcessingTimeMs int64
	Trace            *trace.QueryTrace
}

// LoadMoreCasesResponse is the Go-level response shape for the
// Load-more-cases RPC (§6): a page of the cached fused case list.
type LoadMoreCasesResponse struct {
	Cases         []DocumentResult
	HasMore       bool
	ReturnedCount int
}

// Service is the external contract for the retrieval pipeline: Search runs
// the full five-stage pipeline, LoadMoreCases serves paginated case results
// from the TTL cache, Health probes readiness, and Subscribe streams trace
// events to observers.
type Service interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	LoadMoreCases(ctx context.Context, query string, offset, limit int) (*LoadMoreCasesResponse, error)
	Health(ctx context.Context) error
	Subscribe() (<-chan Event, func())
}

// Event is the union of trace/progress events the orchestrator publishes
// while running a Search; consumers (a future transport layer) drain these
// off the channel returned by Subscribe.
type Event struct {
	Stage   string
	Module  string
	Status  string
	At      time.Time
	Message string
}

// maxLoadMoreLimit bounds Load-more-cases' page size (§6: "limit <= 10").
const maxLoadMoreLimit = 10

// allStrategyNames is every strategy the Router can select from, in
// canonical order, used to mark the ones it didn't select as skipped in
// the trace (§4.10).
var allStrategyNames = []string{
	router.BasicSemantic, router.BM25Hybrid, router.Query2docEnhanced,
	router.HydeEnhanced, router.KnowledgeGraph, router.LLMEnhanced,
}

// orchestrator implements Service, holding every supporting index and
// client the five stages read from.
type orchestrator struct {
	cfg    *config.Config
	corpus *document.Corpus

	embedder embed.Embedder
	vectors  *store.FlatVectorStore
	bm25     *store.BleveBM25Index
	graph    *kg.Graph

	llmClient *llm.Client
	llmGen    strategy.Generator

	classifier *query.Classifier
	extractor  *query.Extractor
	router     *router.Router
	strategies map[string]strategy.Strategy
	fuser      *fusion.Fuser
	tracer     *trace.Tracer

	pagination  *paginationCache
	consistency store.CheckResult
}

// New constructs the orchestrator's Service implementation from a loaded
// configuration and corpus: it builds (or loads) every supporting index —
// embedder, vector store, BM25 index, knowledge graph, LLM client — and
// runs a consistency check Health later reports on. It does not build the
// vector store from raw text (that ingestion step is
// cmd/legalretrieval/cmd/reindex.go's explicit carve-out, §6 Non-goals):
// the vector store is loaded from persisted partitions under
// cfg.Paths.IndexDir, while the BM25 index (Bleve's in-memory-only API) is
// built fresh from the loaded corpus on every startup.
func New(ctx context.Context, cfg *config.Config, corpus *document.Corpus) (Service, error) {
	embedder, err := embed.NewEmbedder(ctx, embed.ParseProvider(cfg.Embeddings.Provider), cfg.Embeddings.Model)
	if err != nil {
		return nil, apperrors.Internal("create embedder", err)
	}

	vectors := store.NewFlatVectorStore(embedder.Dimensions())
	if err := vectors.LoadPartition(store.PartitionArticle,
		filepath.Join(cfg.Paths.IndexDir, "vectors", "articles.bin"),
		filepath.Join(cfg.Paths.IndexDir, "vectors", "articles.json")); err != nil {
		return nil, err
	}
	if err := vectors.LoadPartition(store.PartitionCase,
		filepath.Join(cfg.Paths.IndexDir, "vectors", "cases.bin"),
		filepath.Join(cfg.Paths.IndexDir, "vectors", "cases.json")); err != nil {
		return nil, err
	}

	bm25, err := store.NewBleveBM25Index()
	if err != nil {
		return nil, err
	}
	for _, a := range corpus.Articles {
		if err := bm25.Index(store.PartitionArticle, a.ID, a.Title, a.Content); err != nil {
			return nil, err
		}
	}
	for _, c := range corpus.Cases {
		if err := bm25.Index(store.PartitionCase, c.ID, c.Title, c.Content); err != nil {
			return nil, err
		}
	}

	consistency, err := store.QuickCheck(map[store.Partition][]string{
		store.PartitionArticle: idsOf(corpus.Articles, func(a *document.Article) string { return a.ID }),
		store.PartitionCase:    idsOf(corpus.Cases, func(c *document.Case) string { return c.ID }),
	}, vectors, bm25)
	if err != nil {
		return nil, err
	}

	graph, err := kg.LoadMapping(filepath.Join(cfg.Paths.IndexDir, "kg", "mapping.csv"))
	if err != nil {
		return nil, err
	}

	// The LLM is considered disabled at runtime when neither provider key is
	// present in the environment (§8 scenario 4: "query with LLM disabled at
	// runtime"); Query Understanding and the llm_enhanced/query2doc/hyde
	// strategies then degrade to their rule-based/empty fallbacks.
	var llmClient *llm.Client
	anthropicKey := os.Getenv("ANTHROPIC_API_KEY")
	openaiKey := os.Getenv("OPENAI_API_KEY")
	if anthropicKey != "" || openaiKey != "" {
		llmClient, err = llm.NewClient(cfg.LLM, anthropicKey, openaiKey)
		if err != nil {
			return nil, err
		}
	}
	queryGen, strategyGen, fusionGen := nilSafeGenerators(llmClient)

	classifier := query.NewClassifier(queryGen, graph)

	texts := make([]string, 0, len(corpus.Articles)+len(corpus.Cases))
	for _, a := range corpus.Articles {
		texts = append(texts, a.Title+"\n"+a.Content)
	}
	for _, c := range corpus.Cases {
		texts = append(texts, c.Title+"\n"+c.Content)
	}
	extractor := query.NewExtractor(queryGen, graph, query.ComputeCorpusStats(texts))

	strategies := []strategy.Strategy{
		strategy.BasicSemantic{}, strategy.BM25Hybrid{}, strategy.Query2docEnhanced{},
		strategy.HydeEnhanced{}, strategy.KnowledgeGraph{}, strategy.LLMEnhanced{},
	}
	byName := make(map[string]strategy.Strategy, len(strategies))
	for _, s := range strategies {
		byName[s.Name()] = s
	}

	ttl, err := time.ParseDuration(cfg.Pagination.TTL)
	if err != nil {
		return nil, apperrors.Internal(fmt.Sprintf("parse pagination.ttl %q", cfg.Pagination.TTL), err)
	}
	pagination, err := newPaginationCache(filepath.Join(cfg.Paths.IndexDir, "pagination.db"), ttl)
	if err != nil {
		return nil, err
	}

	return &orchestrator{
		cfg:    cfg,
		corpus: corpus,

		embedder: embedder,
		vectors:  vectors,
		bm25:     bm25,
		graph:    graph,

		llmClient: llmClient,
		llmGen:    strategyGen,

		classifier: classifier,
		extractor:  extractor,
		router:     router.New(cfg.Router),
		strategies: byName,
		fuser:      fusion.New(cfg.Fusion, fusionGen),
		tracer:     trace.NewTracer(),

		pagination:  pagination,
		consistency: consistency,
	}, nil
}

// nilSafeGenerators converts a possibly-nil *llm.Client into the three
// packages' local Generator interfaces, preserving a true nil interface
// (rather than a non-nil interface wrapping a nil pointer) when the LLM is
// disabled, so every "if gen != nil" fallback check downstream works.
func nilSafeGenerators(c *llm.Client) (query.Generator, strategy.Generator, fusion.Generator) {
	if c == nil {
		return nil, nil, nil
	}
	return c, c, c
}

func idsOf[T any](items []T, id func(T) string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = id(item)
	}
	return out
}

func (o *orchestrator) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, apperrors.InvalidInput("query must not be empty", nil)
	}
	deadline, err := time.ParseDuration(o.cfg.Performance.RequestDeadline)
	if err != nil {
		return nil, apperrors.Internal(fmt.Sprintf("invalid request deadline %q", o.cfg.Performance.RequestDeadline), err)
	}
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	start := time.Now()
	requestID := uuid.New().String()
	qt := trace.NewQueryTrace(requestID, req.Query)

	o.tracer.StageStarted(qt, 1, "classification")
	classification := o.classifier.Classify(ctx, req.Query)
	o.tracer.StageCompleted(qt, 1, "classification", trace.StatusSuccess, map[string]any{
		"is_criminal_law": classification.IsCriminalLaw,
		"confidence":      classification.Confidence,
	}, "")

	o.tracer.StageStarted(qt, 2, "extraction")
	extraction := o.extractor.Extract(ctx, req.Query)
	o.tracer.StageCompleted(qt, 2, "extraction", trace.StatusSuccess, map[string]any{
		"bm25_keywords":     len(extraction.BM25Keywords),
		"identified_crimes": len(extraction.IdentifiedCrimes),
	}, "")

	o.tracer.StageStarted(qt, 3, "routing")
	llmHealthy := o.llmClient != nil && o.llmClient.Health(ctx) == nil
	selection := o.router.Select(classification, extraction, llmHealthy)
	o.tracer.StageCompleted(qt, 3, "routing", trace.StatusSuccess, map[string]any{
		"strategies": selection.Strategies,
		"early_exit": selection.EarlyExit,
	}, "")
	for _, name := range allStrategyNames {
		if !containsString(selection.Strategies, name) {
			o.tracer.ModuleSkipped(qt, name)
		}
	}

	results := o.runStrategies(ctx, qt, req.Query, classification, extraction, selection.Strategies)

	o.tracer.StageStarted(qt, 5, "fusion")
	var articleSources, caseSources []fusion.SourceResult
	successCount := 0
	for name, result := range results {
		if result.Status != strategy.StatusSuccess {
			continue
		}
		successCount++
		weight := selection.Weights[name]
		articleSources = append(articleSources, fusion.SourceResult{Strategy: name, Weight: weight, Docs: result.Articles})
		caseSources = append(caseSources, fusion.SourceResult{Strategy: name, Weight: weight, Docs: result.Cases})
	}
	if successCount == 0 {
		o.tracer.StageCompleted(qt, 5, "fusion", trace.StatusError, nil, "all selected strategies failed")
		return nil, apperrors.StrategyFailure("all selected retrieval strategies failed", nil)
	}

	totalSelected := len(selection.Strategies)
	fusedArticles := o.fuser.Fuse(articleSources, totalSelected)
	fusedCases := o.fuser.Fuse(caseSources, totalSelected)
	o.tracer.StageCompleted(qt, 5, "fusion", trace.StatusSuccess, map[string]any{
		"articles": len(fusedArticles),
		"cases":    len(fusedCases),
	}, "")

	bundle := fusion.BuildGrounding(fusedArticles, fusedCases, o.corpus.ByID)
	finalAnswer := o.fuser.Answer(ctx, req.Query, bundle)

	if err := o.pagination.Put(req.Query, fusedCases); err != nil {
		// Load-more-cases degrades to a cache miss (NotReady, caller re-runs
		// Search) rather than failing the search itself.
		_ = err
	}

	elapsed := time.Since(start)
	o.tracer.SearchCompleted(elapsed.Milliseconds(), fmt.Sprintf("%d articles, %d cases", len(fusedArticles), len(fusedCases)))

	return &SearchResponse{
		RequestID:        requestID,
		Articles:         toDocumentResults(fusedArticles, o.corpus.ByID),
		Cases:            toDocumentResults(fusedCases, o.corpus.ByID),
		FinalAnswer:      finalAnswer,
		ProcessingTimeMs: elapsed.Milliseconds(),
		Trace:            qt,
	}, nil
}

// runStrategies fans the selected strategies out concurrently (Stage 4,
// §5), capped at cfg.Performance.MaxConcurrentStrategies, recording each
// one's trace slot. A strategy's own failure never aborts the request —
// Execute already converts it into a status=error Result — so the errgroup
// itself never returns an error.
func (o *orchestrator) runStrategies(ctx context.Context, qt *trace.QueryTrace, queryText string, classification query.Classification, extraction query.Extraction, selected []string) map[string]*strategy.Result {
	rc := &strategy.RunContext{
		Embedder:       o.embedder,
		Vectors:        o.vectors,
		BM25:           o.bm25,
		Graph:          o.graph,
		LLM:            o.llmGen,
		Classification: classification,
		Extraction:     extraction,
	}

	results := make(map[string]*strategy.Result, len(selected))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	limit := o.cfg.Performance.MaxConcurrentStrategies
	if limit > len(selected) {
		limit = len(selected)
	}
	if limit > 0 {
		g.SetLimit(limit)
	}

	for _, name := range selected {
		name := name
		strat, ok := o.strategies[name]
		if !ok {
			continue
		}
		g.Go(func() error {
			o.tracer.ModuleStarted(qt, name)
			result := strat.Execute(gctx, queryText, rc)

			status := trace.StatusSuccess
			if result.Status == strategy.StatusError {
				status = trace.StatusError
			}
			o.tracer.ModuleCompleted(qt, name, status, len(result.Articles)+len(result.Cases), result.ErrorMessage)

			mu.Lock()
			results[name] = result
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// toDocumentResults resolves fused doc_ids into full DocumentResult records
// via the corpus, filling SentenceSummary for case documents only.
func toDocumentResults(fused []fusion.Fused, lookup func(id string) (*document.Document, bool)) []DocumentResult {
	out := make([]DocumentResult, 0, len(fused))
	for _, f := range fused {
		doc, ok := lookup(f.DocID)
		if !ok {
			continue
		}
		summary := ""
		if doc.Type == document.TypeCase {
			summary = doc.Sentence.Summarize()
		}
		out = append(out, DocumentResult{
			Document:        doc,
			FusionScore:     f.Score,
			Sources:         f.Sources,
			SourceCount:     f.SourceCount,
			Confidence:      f.Confidence,
			SentenceSummary: summary,
		})
	}
	return out
}

// LoadMoreCases serves a page of the case list fused by the most recent
// Search for this query, from the TTL cache rather than rerunning the
// pipeline (§6). Returns NotReady if no cache entry exists: the caller must
// call Search first.
func (o *orchestrator) LoadMoreCases(ctx context.Context, queryText string, offset, limit int) (*LoadMoreCasesResponse, error) {
	if strings.TrimSpace(queryText) == "" {
		return nil, apperrors.InvalidInput("query must not be empty", nil)
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > maxLoadMoreLimit {
		limit = maxLoadMoreLimit
	}

	cases, ok, err := o.pagination.Get(queryText)
	if err != nil {
		return nil, apperrors.Internal("read pagination cache", err)
	}
	if !ok {
		return nil, apperrors.NotReady("no cached results for this query; call Search first", nil)
	}

	if offset >= len(cases) {
		return &LoadMoreCasesResponse{}, nil
	}
	end := offset + limit
	if end > len(cases) {
		end = len(cases)
	}
	page := cases[offset:end]

	return &LoadMoreCasesResponse{
		Cases:         toDocumentResults(page, o.corpus.ByID),
		HasMore:       end < len(cases),
		ReturnedCount: len(page),
	}, nil
}

// Health runs a QuickCheck-style readiness probe: the corpus loaded without
// duplicate or malformed IDs, every document reachable by ID, and the
// vector store/BM25 index cover the same ID sets as the corpus (the
// teacher's cross-store orphan/missing check, internal/index/consistency.go,
// generalized from chunks to documents). LLM reachability is advisory only:
// every LLM-dependent stage already degrades gracefully, so an unreachable
// LLM never fails readiness.
func (o *orchestrator) Health(ctx context.Context) error {
	if o.corpus == nil {
		return apperrors.NotReady("corpus not loaded", nil)
	}
	for _, id := range o.corpus.IDs() {
		if _, ok := o.corpus.ByID(id); !ok {
			return apperrors.ArtifactCorruption(fmt.Sprintf("corpus index missing entry for %q", id), nil)
		}
	}
	if len(o.consistency.Inconsistencies) > 0 {
		return apperrors.ArtifactCorruption(
			fmt.Sprintf("%d vector/bm25 index inconsistencies detected", len(o.consistency.Inconsistencies)), nil)
	}
	return nil
}

// Subscribe translates the Tracer's event stream into the orchestrator's
// public Event shape, one goroutine per subscriber for the lifetime of its
// subscription.
func (o *orchestrator) Subscribe() (<-chan Event, func()) {
	src, unsubscribe := o.tracer.Subscribe()
	out := make(chan Event)
	go func() {
		defer close(out)
		for e := range src {
			out <- translateEvent(e)
		}
	}()
	return out, unsubscribe
}

func translateEvent(e trace.Event) Event {
	var msg string
	switch e.Type {
	case trace.EventStageStarted:
		msg = fmt.Sprintf("stage %d (%s) started", e.StageNumber, e.StageName)
	case trace.EventStageCompleted:
		msg = fmt.Sprintf("stage %s completed: %s (%dms)", e.StageName, e.Status, e.ProcessingTimeMs)
	case trace.EventModuleStarted:
		msg = fmt.Sprintf("strategy %s started", e.ModuleName)
	case trace.EventModuleCompleted:
		msg = fmt.Sprintf("strategy %s completed: %s (%d results)", e.ModuleName, e.Status, e.ResultsCount)
	case trace.EventSearchCompleted:
		msg = fmt.Sprintf("search completed in %dms: %s", e.TotalTimeMs, e.Summary)
	}
	return Event{
		Stage:   e.StageName,
		Module:  e.ModuleName,
		Status:  e.Status,
		At:      e.At,
		Message: msg,
	}
}
