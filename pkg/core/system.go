package core

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/engram-labs/engram-go/pkg/analyzer"
	"github.com/engram-labs/engram-go/pkg/embedder"
	"github.com/engram-labs/engram-go/pkg/embedder/fallback"
	"github.com/engram-labs/engram-go/pkg/storage"
)

// reflectionWindow is how many recent memories Reflect synthesizes over.
const reflectionWindow = 10

const analyzePromptFormat = `Analyze this experience and provide insights about its importance, emotional significance, and relationships to different types of knowledge. Return as JSON with keys "importance", "emotional_significance", "relationships":

%s`

const reflectPromptFormat = `Analyze these recent memories and identify patterns, insights, and potential actions. Consider emotional patterns, recurring themes, and knowledge gaps. Return as JSON with keys "patterns", "insights", "actions":

%s`

// System is the memory orchestrator. It composes an embedding provider, a
// storage engine, and the in-process Index to expose record, recall,
// connect, and reflect operations.
//
// A System starts empty; Load populates the index from storage and may be
// called repeatedly. One logical mutation (Record/Connect/Load) is expected
// in flight at a time; the internal lock additionally guards the four index
// views as a unit so they are never mutated partially.
//
// Access statistics (last accessed, access count) are updated best-effort
// on recall and are not crash-consistent.
type System struct {
	// store is the persistence backend.
	store storage.Store

	// embedder produces embedding vectors; always wrapped in the
	// deterministic fallback so provider failures never surface here.
	embedder embedder.Provider

	// analyzer backs Analyze and Reflect (nil if not configured).
	analyzer analyzer.Provider

	// ranker orders memories against a query embedding.
	ranker Ranker

	// index holds the four retrieval views.
	index *Index

	// node generates unique ids for experiences.
	node *snowflake.Node

	logger *zap.Logger
	now    func() time.Time

	// mu protects the index views as a unit.
	mu sync.Mutex
}

// Option configures a System.
type Option func(*System)

// WithAnalyzer sets the text-analysis provider used by Analyze and Reflect.
func WithAnalyzer(p analyzer.Provider) Option {
	return func(s *System) {
		s.analyzer = p
	}
}

// WithRanker replaces the similarity ranker. The default LinearRanker scans
// the full store; a caller may substitute an approximate index without any
// other change.
func WithRanker(r Ranker) Option {
	return func(s *System) {
		s.ranker = r
	}
}

// WithLogger sets the logger (default zap.NewNop()).
func WithLogger(logger *zap.Logger) Option {
	return func(s *System) {
		s.logger = logger
	}
}

// WithClock replaces the time source, used by tests that need
// deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *System) {
		s.now = now
	}
}

// New creates a memory system over the given store and embedding provider.
//
// The provider is wrapped in the deterministic fallback, so embedding
// failures degrade to reproducible hash-derived vectors instead of failing
// Record.
func New(store storage.Store, provider embedder.Provider, opts ...Option) (*System, error) {
	if store == nil || provider == nil {
		return nil, NewMemoryError("New", ErrInvalidConfig)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, NewMemoryError("New", err)
	}

	s := &System{
		store:    store,
		embedder: fallback.New(provider),
		ranker:   LinearRanker{},
		index:    NewIndex(),
		node:     node,
		logger:   zap.NewNop(),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Load populates the index from a full storage snapshot.
//
// It is the only transition from empty to populated state and is
// idempotent: repeated calls rebuild the same index contents.
func (s *System) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.GetAll(ctx)
	if err != nil {
		return NewMemoryError("Load", fmt.Errorf("%w: %w", ErrPersistence, err))
	}

	memories := make([]*Memory, 0, len(records))
	for _, record := range records {
		memories = append(memories, fromStorageMemory(record))
	}

	s.index.Rebuild(memories)
	s.logger.Info("loaded memories", zap.Int("count", len(memories)))

	return nil
}

// Record constructs an Experience, embeds its canonical serialization,
// persists the wrapped Memory, and indexes it.
//
// Persistence happens before indexing: a storage failure returns
// ErrPersistence and leaves the index untouched, so index and storage
// never diverge.
func (s *System) Record(ctx context.Context, memoryType string, content map[string]interface{}, opts ...RecordOption) (*Experience, error) {
	options := applyRecordOptions(opts)

	s.mu.Lock()
	defer s.mu.Unlock()

	exp := &Experience{
		ID:            s.node.Generate().String(),
		Timestamp:     s.now(),
		Type:          memoryType,
		Content:       emptyIfNilMap(content),
		Metadata:      emptyIfNilMap(options.Metadata),
		Tags:          emptyIfNilSlice(options.Tags),
		Importance:    options.Importance,
		Context:       emptyIfNilMap(options.Context),
		Relationships: make(map[string][]string),
	}

	text, err := CanonicalText(exp)
	if err != nil {
		return nil, NewMemoryIDError("Record", exp.ID, fmt.Errorf("%w: %w", ErrInvalidInput, err))
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		// The fallback wrapper absorbs provider failures, so this only
		// fires with a custom unwrapped provider.
		return nil, NewMemoryIDError("Record", exp.ID, fmt.Errorf("%w: %w", ErrProvider, err))
	}

	memory := &Memory{
		Experience:   exp,
		Embedding:    vector,
		LastAccessed: exp.Timestamp,
		Confidence:   1.0,
	}

	if err := s.store.Put(ctx, toStorageMemory(memory)); err != nil {
		return nil, NewMemoryIDError("Record", exp.ID, fmt.Errorf("%w: %w", ErrPersistence, err))
	}

	if err := s.index.Insert(memory); err != nil {
		return nil, err
	}

	s.logger.Debug("recorded experience",
		zap.String("id", exp.ID),
		zap.String("type", exp.Type),
		zap.Float64("importance", exp.Importance))

	return exp, nil
}

// RecallSimilar embeds the query text and returns up to limit memories
// ranked by similarity, most similar first. Each surfaced memory receives
// exactly one access-stat update.
func (s *System) RecallSimilar(ctx context.Context, query string, limit int) ([]*Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, NewMemoryError("RecallSimilar", fmt.Errorf("%w: %w", ErrProvider, err))
	}

	ranked, err := s.ranker.Rank(vector, s.index.All(), limit)
	if err != nil {
		return nil, err
	}

	s.touchAll(ctx, ranked)
	return ranked, nil
}

// RecallRecent returns up to limit memories in recency order, optionally
// scoped to a type. An unknown type yields an empty result, not an error.
func (s *System) RecallRecent(ctx context.Context, limit int, memoryType string) ([]*Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	memories, err := s.resolve("RecallRecent", s.index.Recent(limit, memoryType))
	if err != nil {
		return nil, err
	}

	s.touchAll(ctx, memories)
	return memories, nil
}

// RecallImportant returns up to limit memories in importance order.
func (s *System) RecallImportant(ctx context.Context, limit int) ([]*Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	memories, err := s.resolve("RecallImportant", s.index.Important(limit))
	if err != nil {
		return nil, err
	}

	s.touchAll(ctx, memories)
	return memories, nil
}

// Connect links target under the named relationship on the source
// experience. The append is idempotent: a target already present under the
// relationship leaves the record unchanged.
//
// Both ids must be present in the index. On persistence failure the
// in-memory mutation is rolled back, so the caller always observes either
// a fully applied or a fully reverted link.
func (s *System) Connect(ctx context.Context, sourceID, targetID, relationship string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	source, err := s.index.Get(sourceID)
	if err != nil {
		return NewMemoryIDError("Connect", sourceID, ErrNotFound)
	}
	if _, err := s.index.Get(targetID); err != nil {
		return NewMemoryIDError("Connect", targetID, ErrNotFound)
	}

	exp := source.Experience
	if exp.Relationships == nil {
		exp.Relationships = make(map[string][]string)
	}
	for _, existing := range exp.Relationships[relationship] {
		if existing == targetID {
			return nil
		}
	}
	exp.Relationships[relationship] = append(exp.Relationships[relationship], targetID)

	if err := s.store.Put(ctx, toStorageMemory(source)); err != nil {
		targets := exp.Relationships[relationship]
		exp.Relationships[relationship] = targets[:len(targets)-1]
		if len(exp.Relationships[relationship]) == 0 {
			delete(exp.Relationships, relationship)
		}
		return NewMemoryIDError("Connect", sourceID, fmt.Errorf("%w: %w", ErrPersistence, err))
	}

	return nil
}

// Analyze asks the text-analysis provider to assess a single experience.
//
// Returns ErrInvalidConfig if no analyzer is configured and ErrProvider if
// the provider fails or returns undecodable output.
func (s *System) Analyze(ctx context.Context, exp *Experience) (*Analysis, error) {
	if s.analyzer == nil {
		return nil, NewMemoryError("Analyze", ErrInvalidConfig)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"type":    exp.Type,
		"content": exp.Content,
		"context": exp.Context,
	})
	if err != nil {
		return nil, NewMemoryIDError("Analyze", exp.ID, err)
	}

	text, err := s.analyzer.Complete(ctx, fmt.Sprintf(analyzePromptFormat, payload))
	if err != nil {
		return nil, NewMemoryIDError("Analyze", exp.ID, fmt.Errorf("%w: %w", ErrProvider, err))
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		return nil, NewMemoryIDError("Analyze", exp.ID, fmt.Errorf("%w: %w", ErrProvider, err))
	}

	return &analysis, nil
}

// Reflect synthesizes patterns, insights, and suggested actions over the
// most recent memories.
func (s *System) Reflect(ctx context.Context) (*Reflection, error) {
	if s.analyzer == nil {
		return nil, NewMemoryError("Reflect", ErrInvalidConfig)
	}

	recent, err := s.RecallRecent(ctx, reflectionWindow, "")
	if err != nil {
		return nil, err
	}

	summaries := make([]map[string]interface{}, 0, len(recent))
	for _, m := range recent {
		summaries = append(summaries, map[string]interface{}{
			"type":       m.Experience.Type,
			"content":    m.Experience.Content,
			"importance": m.Experience.Importance,
			"timestamp":  m.Experience.Timestamp,
		})
	}

	payload, err := json.Marshal(summaries)
	if err != nil {
		return nil, NewMemoryError("Reflect", err)
	}

	text, err := s.analyzer.Complete(ctx, fmt.Sprintf(reflectPromptFormat, payload))
	if err != nil {
		return nil, NewMemoryError("Reflect", fmt.Errorf("%w: %w", ErrProvider, err))
	}

	var reflection Reflection
	if err := json.Unmarshal([]byte(text), &reflection); err != nil {
		return nil, NewMemoryError("Reflect", fmt.Errorf("%w: %w", ErrProvider, err))
	}

	return &reflection, nil
}

// Len returns the number of memories currently indexed.
func (s *System) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Len()
}

// Close closes the store and providers, returning the first error
// encountered.
func (s *System) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.embedder != nil {
		if err := s.embedder.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.analyzer != nil {
		if err := s.analyzer.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// resolve maps index ids back to memories. A miss here means the four
// views diverged, which the Index encapsulation is meant to rule out, so
// it surfaces rather than silently shrinking the result.
func (s *System) resolve(op string, ids []string) ([]*Memory, error) {
	memories := make([]*Memory, 0, len(ids))
	for _, id := range ids {
		m, err := s.index.Get(id)
		if err != nil {
			return nil, NewMemoryIDError(op, id, ErrNotFound)
		}
		memories = append(memories, m)
	}
	return memories, nil
}

// touchAll applies exactly one access-stat update per surfaced memory:
// index-visible fields first, then the storage Touch. Touch failures are
// logged and do not fail the recall; access statistics are not
// crash-consistent.
func (s *System) touchAll(ctx context.Context, memories []*Memory) {
	at := s.now()
	for _, m := range memories {
		m.LastAccessed = at
		m.AccessCount++
		if err := s.store.Touch(ctx, m.Experience.ID, at); err != nil {
			s.logger.Warn("failed to persist access statistics",
				zap.String("id", m.Experience.ID),
				zap.Error(err))
		}
	}
}

func emptyIfNilMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return make(map[string]interface{})
	}
	return m
}

func emptyIfNilSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
