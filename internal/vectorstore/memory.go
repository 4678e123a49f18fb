package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"docbuddy/internal/domain"
)

// MemoryStore is a brute-force cosine-similarity store held in process
// memory. It backs tests and the no-dependency mode.
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	docs      map[string][]entry
}

type entry struct {
	chunk  domain.Chunk
	vector []float32
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]entry)}
}

func (s *MemoryStore) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid vector dimension %d", dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	return nil
}

func (s *MemoryStore) ReplaceDocument(ctx context.Context, documentID string, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make([]entry, len(chunks))
	for i := range chunks {
		if len(vectors[i]) != s.dimension {
			return fmt.Errorf("vector %d has dimension %d, want %d", i, len(vectors[i]), s.dimension)
		}
		entries[i] = entry{chunk: chunks[i], vector: vectors[i]}
	}
	s.docs[documentID] = entries
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []domain.SearchResult
	for _, entries := range s.docs {
		for _, e := range entries {
			results = append(results, domain.SearchResult{
				Chunk: e.chunk,
				Score: cosine(e.vector, vector),
			})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK], nil
}

func (s *MemoryStore) Close() error { return nil }

func cosine(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
