package core

import "sort"

// Index maintains four consistent views over the working set of memories:
// a semantic-by-id map, a temporal list (most recent first), an importance
// list (most important first, stable on ties), and per-type buckets that
// mirror the temporal ordering.
//
// The four views are redundant projections of one logical set. All fields
// are private so no caller can update one view without the others: any id
// present in one view is present in all of them.
//
// Index is not safe for concurrent use; the owning System serializes access.
type Index struct {
	semantic   map[string]*Memory
	temporal   []string
	importance []string
	types      map[string][]string
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		semantic: make(map[string]*Memory),
		types:    make(map[string][]string),
	}
}

// Insert adds a memory to all four views.
//
// The memory is assumed to be the newest record, so the temporal and type
// views are prepended. The importance view uses a stable descending insert:
// the id is placed before the first entry whose importance is strictly
// smaller, so equal-importance entries keep their insertion order. The scan
// is O(n) per insert, which is acceptable at expected memory-store scale.
//
// Returns ErrDuplicateID if the id is already indexed.
func (ix *Index) Insert(m *Memory) error {
	id := m.Experience.ID
	if _, ok := ix.semantic[id]; ok {
		return NewMemoryIDError("Insert", id, ErrDuplicateID)
	}

	ix.semantic[id] = m
	ix.temporal = prepend(ix.temporal, id)
	ix.insertByImportance(id)

	memoryType := m.Experience.Type
	ix.types[memoryType] = prepend(ix.types[memoryType], id)

	return nil
}

// Rebuild clears all four views and repopulates them from the given
// memories, which may arrive in arbitrary order.
//
// The temporal view and every type bucket are sorted by timestamp
// descending. Equal timestamps are broken by id descending: snowflake ids
// grow with creation time, so this reproduces the "most recently inserted
// first" ordering of live inserts and keeps the result deterministic.
// The importance view is reinserted oldest-first under the same stable
// descending rule as Insert, so equal importances keep chronological order.
func (ix *Index) Rebuild(memories []*Memory) {
	ix.semantic = make(map[string]*Memory, len(memories))
	ix.temporal = make([]string, 0, len(memories))
	ix.importance = ix.importance[:0]
	ix.types = make(map[string][]string)

	sorted := make([]*Memory, len(memories))
	copy(sorted, memories)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti := sorted[i].Experience.Timestamp
		tj := sorted[j].Experience.Timestamp
		if ti.Equal(tj) {
			return sorted[i].Experience.ID > sorted[j].Experience.ID
		}
		return ti.After(tj)
	})

	for _, m := range sorted {
		id := m.Experience.ID
		ix.semantic[id] = m
		ix.temporal = append(ix.temporal, id)

		memoryType := m.Experience.Type
		ix.types[memoryType] = append(ix.types[memoryType], id)
	}

	for i := len(ix.temporal) - 1; i >= 0; i-- {
		ix.insertByImportance(ix.temporal[i])
	}
}

// Recent returns up to n ids in recency order, optionally scoped to a type.
//
// A short store yields a short result, and an unknown type yields an empty
// one; neither is an error.
func (ix *Index) Recent(n int, memoryType string) []string {
	source := ix.temporal
	if memoryType != "" {
		source = ix.types[memoryType]
	}
	return head(source, n)
}

// Important returns up to n ids in importance order.
func (ix *Index) Important(n int) []string {
	return head(ix.importance, n)
}

// Get returns the memory for the given id.
//
// Returns ErrNotFound if the id is not indexed.
func (ix *Index) Get(id string) (*Memory, error) {
	m, ok := ix.semantic[id]
	if !ok {
		return nil, NewMemoryIDError("Get", id, ErrNotFound)
	}
	return m, nil
}

// Len returns the number of indexed memories.
func (ix *Index) Len() int {
	return len(ix.semantic)
}

// All returns every memory in insertion order, oldest first. This is the
// stable base order used to break ties in similarity ranking.
func (ix *Index) All() []*Memory {
	memories := make([]*Memory, 0, len(ix.temporal))
	for i := len(ix.temporal) - 1; i >= 0; i-- {
		memories = append(memories, ix.semantic[ix.temporal[i]])
	}
	return memories
}

// insertByImportance places id before the first entry whose importance is
// strictly smaller than its own.
func (ix *Index) insertByImportance(id string) {
	importance := ix.semantic[id].Experience.Importance

	for i, existing := range ix.importance {
		if importance > ix.semantic[existing].Experience.Importance {
			ix.importance = append(ix.importance, "")
			copy(ix.importance[i+1:], ix.importance[i:])
			ix.importance[i] = id
			return
		}
	}

	ix.importance = append(ix.importance, id)
}

func prepend(ids []string, id string) []string {
	ids = append(ids, "")
	copy(ids[1:], ids)
	ids[0] = id
	return ids
}

func head(ids []string, n int) []string {
	if n < 0 {
		n = 0
	}
	if n > len(ids) {
		n = len(ids)
	}
	out := make([]string, n)
	copy(out, ids[:n])
	return out
}
