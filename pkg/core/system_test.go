package core_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engram "github.com/engram-labs/engram-go/pkg/core"
	"github.com/engram-labs/engram-go/pkg/storage"
	sqliteStore "github.com/engram-labs/engram-go/pkg/storage/sqlite"
)

// stubEmbedder maps keyword matches to fixed vectors so similarity results
// are fully predictable. Unmatched text gets the default vector.
type stubEmbedder struct {
	dims    int
	vectors map[string][]float64
	fail    bool
}

func (e *stubEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	if e.fail {
		return nil, errors.New("embedding service unavailable")
	}
	for keyword, vector := range e.vectors {
		if strings.Contains(text, keyword) {
			return vector, nil
		}
	}
	fallback := make([]float64, e.dims)
	fallback[e.dims-1] = 1
	return fallback, nil
}

func (e *stubEmbedder) Dimensions() int { return e.dims }
func (e *stubEmbedder) Close() error    { return nil }

// stubAnalyzer returns a canned completion.
type stubAnalyzer struct {
	response string
	err      error
	prompts  []string
}

func (a *stubAnalyzer) Complete(_ context.Context, prompt string) (string, error) {
	a.prompts = append(a.prompts, prompt)
	return a.response, a.err
}

func (a *stubAnalyzer) Close() error { return nil }

// flakyStore delegates to a real store until failPuts is flipped.
type flakyStore struct {
	storage.Store
	failPuts bool
}

func (s *flakyStore) Put(ctx context.Context, m *storage.Memory) error {
	if s.failPuts {
		return errors.New("disk full")
	}
	return s.Store.Put(ctx, m)
}

// tickingClock returns a clock that advances one second per call, so every
// recorded experience gets a distinct, strictly increasing timestamp.
func tickingClock() func() time.Time {
	t := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newTestStore(t *testing.T) *sqliteStore.Client {
	t.Helper()
	client, err := sqliteStore.NewClient(&sqliteStore.Config{
		DBPath: filepath.Join(t.TempDir(), "engram.db"),
	})
	require.NoError(t, err)
	return client
}

func newTestSystem(t *testing.T, store storage.Store, opts ...engram.Option) *engram.System {
	t.Helper()
	provider := &stubEmbedder{dims: 3, vectors: map[string][]float64{
		"apple":  {1, 0, 0},
		"banana": {0, 1, 0},
	}}
	opts = append([]engram.Option{engram.WithClock(tickingClock())}, opts...)
	sys, err := engram.New(store, provider, opts...)
	require.NoError(t, err)
	return sys
}

func TestRecordAndRecallRecent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sys := newTestSystem(t, store)
	defer sys.Close()

	for i := 0; i < 10; i++ {
		memoryType := "perception"
		if i%2 == 1 {
			memoryType = "action"
		}
		exp, err := sys.Record(ctx, memoryType, map[string]interface{}{"seq": i})
		require.NoError(t, err)
		assert.NotEmpty(t, exp.ID)
		assert.Equal(t, 1.0, exp.Importance)
	}
	assert.Equal(t, 10, sys.Len())

	recent, err := sys.RecallRecent(ctx, 3, "")
	require.NoError(t, err)
	require.Len(t, recent, 3)
	for j, m := range recent {
		assert.Equal(t, 9-j, m.Experience.Content["seq"])
	}

	actions, err := sys.RecallRecent(ctx, 4, "action")
	require.NoError(t, err)
	require.Len(t, actions, 4)
	for _, m := range actions {
		assert.Equal(t, "action", m.Experience.Type)
	}
	assert.Equal(t, 9, actions[0].Experience.Content["seq"])

	none, err := sys.RecallRecent(ctx, 5, "dream")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRecordOptions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sys := newTestSystem(t, store)
	defer sys.Close()

	exp, err := sys.Record(ctx, "action",
		map[string]interface{}{"did": "opened door"},
		engram.WithImportance(2.5),
		engram.WithTags("motor", "door"),
		engram.WithMetadata(map[string]interface{}{"source": "arm"}),
		engram.WithContext(map[string]interface{}{"room": "kitchen"}),
	)
	require.NoError(t, err)

	assert.Equal(t, 2.5, exp.Importance)
	assert.Equal(t, []string{"motor", "door"}, exp.Tags)
	assert.Equal(t, "arm", exp.Metadata["source"])
	assert.Equal(t, "kitchen", exp.Context["room"])
	assert.NotNil(t, exp.Relationships)
}

func TestRecallImportant(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sys := newTestSystem(t, store)
	defer sys.Close()

	ids := make([]string, 0, 4)
	for _, importance := range []float64{0.5, 2.0, 1.0, 2.0} {
		exp, err := sys.Record(ctx, "perception",
			map[string]interface{}{"w": importance},
			engram.WithImportance(importance))
		require.NoError(t, err)
		ids = append(ids, exp.ID)
	}

	important, err := sys.RecallImportant(ctx, 10)
	require.NoError(t, err)
	require.Len(t, important, 4)

	// Descending importance, equal weights in recording order.
	assert.Equal(t, ids[1], important[0].Experience.ID)
	assert.Equal(t, ids[3], important[1].Experience.ID)
	assert.Equal(t, ids[2], important[2].Experience.ID)
	assert.Equal(t, ids[0], important[3].Experience.ID)

	top, err := sys.RecallImportant(ctx, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, ids[1], top[0].Experience.ID)
}

func TestRecallSimilar(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sys := newTestSystem(t, store)
	defer sys.Close()

	apple, err := sys.Record(ctx, "perception", map[string]interface{}{"fruit": "apple"})
	require.NoError(t, err)
	_, err = sys.Record(ctx, "perception", map[string]interface{}{"fruit": "banana"})
	require.NoError(t, err)
	_, err = sys.Record(ctx, "perception", map[string]interface{}{"thing": "rock"})
	require.NoError(t, err)

	similar, err := sys.RecallSimilar(ctx, "a ripe apple", 2)
	require.NoError(t, err)
	require.Len(t, similar, 2)

	assert.Equal(t, apple.ID, similar[0].Experience.ID)
	assert.InDelta(t, 1.0, similar[0].Score, 1e-12)
	assert.Greater(t, similar[0].Score, similar[1].Score)
}

func TestRecallUpdatesAccessStats(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sys := newTestSystem(t, store)
	defer sys.Close()

	exp, err := sys.Record(ctx, "perception", map[string]interface{}{"seq": 0})
	require.NoError(t, err)

	recent, err := sys.RecallRecent(ctx, 1, "")
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, 1, recent[0].AccessCount)
	assert.True(t, recent[0].LastAccessed.After(exp.Timestamp))

	recent, err = sys.RecallRecent(ctx, 1, "")
	require.NoError(t, err)
	assert.Equal(t, 2, recent[0].AccessCount)

	// The update is persisted, not just index-local.
	persisted, err := store.Get(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, persisted.AccessCount)
}

func TestConnect(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sys := newTestSystem(t, store)
	defer sys.Close()

	cause, err := sys.Record(ctx, "perception", map[string]interface{}{"what": "rain"})
	require.NoError(t, err)
	effect, err := sys.Record(ctx, "perception", map[string]interface{}{"what": "wet street"})
	require.NoError(t, err)

	require.NoError(t, sys.Connect(ctx, cause.ID, effect.ID, "causes"))
	assert.Equal(t, []string{effect.ID}, cause.Relationships["causes"])

	// Idempotent: a second identical link changes nothing.
	require.NoError(t, sys.Connect(ctx, cause.ID, effect.ID, "causes"))
	assert.Equal(t, []string{effect.ID}, cause.Relationships["causes"])

	err = sys.Connect(ctx, cause.ID, "missing", "causes")
	assert.ErrorIs(t, err, engram.ErrNotFound)
	err = sys.Connect(ctx, "missing", effect.ID, "causes")
	assert.ErrorIs(t, err, engram.ErrNotFound)

	persisted, err := store.Get(ctx, cause.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{effect.ID}, persisted.Relationships["causes"])
}

func TestConnectRollbackOnPersistFailure(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyStore{Store: newTestStore(t)}
	sys := newTestSystem(t, flaky)
	defer sys.Close()

	source, err := sys.Record(ctx, "perception", map[string]interface{}{"seq": 0})
	require.NoError(t, err)
	target, err := sys.Record(ctx, "perception", map[string]interface{}{"seq": 1})
	require.NoError(t, err)

	flaky.failPuts = true
	err = sys.Connect(ctx, source.ID, target.ID, "causes")
	assert.ErrorIs(t, err, engram.ErrPersistence)
	assert.NotContains(t, source.Relationships, "causes")

	flaky.failPuts = false
	require.NoError(t, sys.Connect(ctx, source.ID, target.ID, "causes"))
	assert.Equal(t, []string{target.ID}, source.Relationships["causes"])
}

func TestRecordPersistFailureLeavesIndexUntouched(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyStore{Store: newTestStore(t), failPuts: true}
	sys := newTestSystem(t, flaky)
	defer sys.Close()

	_, err := sys.Record(ctx, "perception", map[string]interface{}{"seq": 0})
	assert.ErrorIs(t, err, engram.ErrPersistence)
	assert.Equal(t, 0, sys.Len())

	_, recallErr := sys.RecallRecent(ctx, 10, "")
	require.NoError(t, recallErr)
}

func TestLoadRebuildsFromStorage(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "engram.db")

	store, err := sqliteStore.NewClient(&sqliteStore.Config{DBPath: dbPath})
	require.NoError(t, err)
	sys := newTestSystem(t, store)

	recentIDs := make([]string, 0, 5)
	for i, importance := range []float64{1.0, 3.0, 2.0, 3.0, 0.5} {
		exp, err := sys.Record(ctx, "perception",
			map[string]interface{}{"seq": i},
			engram.WithImportance(importance))
		require.NoError(t, err)
		recentIDs = append([]string{exp.ID}, recentIDs...)
	}

	important, err := sys.RecallImportant(ctx, 10)
	require.NoError(t, err)
	importantIDs := make([]string, 0, len(important))
	for _, m := range important {
		importantIDs = append(importantIDs, m.Experience.ID)
	}
	require.NoError(t, sys.Close())

	reopened, err := sqliteStore.NewClient(&sqliteStore.Config{DBPath: dbPath})
	require.NoError(t, err)
	restored := newTestSystem(t, reopened)
	defer restored.Close()

	require.NoError(t, restored.Load(ctx))
	assert.Equal(t, 5, restored.Len())

	recent, err := restored.RecallRecent(ctx, 10, "")
	require.NoError(t, err)
	require.Len(t, recent, 5)
	for i, m := range recent {
		assert.Equal(t, recentIDs[i], m.Experience.ID)
	}

	reImportant, err := restored.RecallImportant(ctx, 10)
	require.NoError(t, err)
	require.Len(t, reImportant, len(importantIDs))
	for i, m := range reImportant {
		assert.Equal(t, importantIDs[i], m.Experience.ID)
	}

	// Load is idempotent.
	require.NoError(t, restored.Load(ctx))
	assert.Equal(t, 5, restored.Len())
}

func TestRecordSurvivesEmbedderFailure(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	provider := &stubEmbedder{dims: 4, fail: true}
	sys, err := engram.New(store, provider, engram.WithClock(tickingClock()))
	require.NoError(t, err)
	defer sys.Close()

	_, err = sys.Record(ctx, "perception", map[string]interface{}{"seq": 0})
	require.NoError(t, err)

	recent, err := sys.RecallRecent(ctx, 1, "")
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Len(t, recent[0].Embedding, 4)
}

func TestAnalyze(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	analyzer := &stubAnalyzer{
		response: `{"importance":2.5,"emotional_significance":0.7,"relationships":{"related_to":["navigation"]}}`,
	}
	sys := newTestSystem(t, store, engram.WithAnalyzer(analyzer))
	defer sys.Close()

	exp, err := sys.Record(ctx, "perception", map[string]interface{}{"what": "cliff edge"})
	require.NoError(t, err)

	analysis, err := sys.Analyze(ctx, exp)
	require.NoError(t, err)
	assert.Equal(t, 2.5, analysis.Importance)
	assert.Equal(t, 0.7, analysis.EmotionalSignificance)
	assert.Equal(t, []string{"navigation"}, analysis.Relationships["related_to"])
	require.Len(t, analyzer.prompts, 1)
	assert.Contains(t, analyzer.prompts[0], "cliff edge")
}

func TestAnalyzeRequiresAnalyzer(t *testing.T) {
	store := newTestStore(t)
	sys := newTestSystem(t, store)
	defer sys.Close()

	_, err := sys.Analyze(context.Background(), &engram.Experience{Type: "perception"})
	assert.ErrorIs(t, err, engram.ErrInvalidConfig)

	_, err = sys.Reflect(context.Background())
	assert.ErrorIs(t, err, engram.ErrInvalidConfig)
}

func TestReflect(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	analyzer := &stubAnalyzer{
		response: `{"patterns":["repeated retreats"],"insights":["the agent avoids edges"],"actions":["map the cliff"]}`,
	}
	sys := newTestSystem(t, store, engram.WithAnalyzer(analyzer))
	defer sys.Close()

	for i := 0; i < 3; i++ {
		_, err := sys.Record(ctx, "action", map[string]interface{}{"seq": i})
		require.NoError(t, err)
	}

	reflection, err := sys.Reflect(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"repeated retreats"}, reflection.Patterns)
	assert.Equal(t, []string{"the agent avoids edges"}, reflection.Insights)
	assert.Equal(t, []string{"map the cliff"}, reflection.Actions)
}

func TestReflectUndecodableOutput(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	analyzer := &stubAnalyzer{response: "not json"}
	sys := newTestSystem(t, store, engram.WithAnalyzer(analyzer))
	defer sys.Close()

	_, err := sys.Reflect(ctx)
	assert.ErrorIs(t, err, engram.ErrProvider)
}

func TestNewRejectsNilDependencies(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	_, err := engram.New(nil, &stubEmbedder{dims: 3})
	assert.ErrorIs(t, err, engram.ErrInvalidConfig)

	_, err = engram.New(store, nil)
	assert.ErrorIs(t, err, engram.ErrInvalidConfig)
}
