package vectorstore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/philippgille/chromem-go"

	"docbuddy/internal/domain"
)

// ChromemStore keeps chunk vectors in an embedded, persistent chromem-go
// database. Useful when no Qdrant instance is available.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	name       string
	dimension  int
}

// ChromemStoreConfig configures the embedded store.
type ChromemStoreConfig struct {
	Path       string
	Collection string
}

func NewChromemStore(cfg ChromemStoreConfig) (*ChromemStore, error) {
	if cfg.Path == "" {
		cfg.Path = "./docbuddy.db"
	}
	if cfg.Collection == "" {
		cfg.Collection = "vector_db"
	}
	db, err := chromem.NewPersistentDB(cfg.Path, false)
	if err != nil {
		return nil, fmt.Errorf("%w: opening chromem db: %v", domain.ErrStoreUnavailable, err)
	}
	return &ChromemStore{db: db, name: cfg.Collection}, nil
}

// Init opens or creates the backing collection with cosine distance.
func (s *ChromemStore) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid vector dimension %d", dimension)
	}
	s.dimension = dimension
	collection, err := s.db.GetOrCreateCollection(s.name, map[string]string{"hnsw:space": "cosine"}, nil)
	if err != nil {
		return fmt.Errorf("%w: opening collection %s: %v", domain.ErrStoreUnavailable, s.name, err)
	}
	s.collection = collection
	return nil
}

// ReplaceDocument removes previously stored chunks of the document and adds
// the new ones.
func (s *ChromemStore) ReplaceDocument(ctx context.Context, documentID string, chunks []domain.Chunk, vectors [][]float32) error {
	if s.collection == nil {
		return fmt.Errorf("store not initialized")
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}

	if err := s.collection.Delete(ctx, map[string]string{"document_id": documentID}, nil); err != nil {
		return fmt.Errorf("%w: deleting stale chunks: %v", domain.ErrStoreUnavailable, err)
	}

	ids := make([]string, len(chunks))
	metadatas := make([]map[string]string, len(chunks))
	contents := make([]string, len(chunks))
	for i, chunk := range chunks {
		ids[i] = chunk.ChunkID
		metadatas[i] = map[string]string{
			"document_id": chunk.DocumentID,
			"chunk_index": strconv.Itoa(chunk.Index),
		}
		contents[i] = chunk.Text
	}
	if err := s.collection.Add(ctx, ids, vectors, metadatas, contents); err != nil {
		return fmt.Errorf("%w: adding chunks: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Search returns the topK most similar chunks for the query vector.
func (s *ChromemStore) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if s.collection == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	if topK <= 0 {
		topK = 5
	}
	// chromem rejects queries asking for more results than stored documents.
	if count := s.collection.Count(); topK > count {
		topK = count
	}
	if topK == 0 {
		return nil, nil
	}

	hits, err := s.collection.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: querying: %v", domain.ErrStoreUnavailable, err)
	}
	results := make([]domain.SearchResult, 0, len(hits))
	for _, hit := range hits {
		chunk := domain.Chunk{
			ChunkID: hit.ID,
			Text:    hit.Content,
		}
		if hit.Metadata != nil {
			chunk.DocumentID = hit.Metadata["document_id"]
			if idx, err := strconv.Atoi(hit.Metadata["chunk_index"]); err == nil {
				chunk.Index = idx
			}
		}
		results = append(results, domain.SearchResult{Chunk: chunk, Score: hit.Similarity})
	}
	return results, nil
}

// Close is a no-op; chromem persists on every write.
func (s *ChromemStore) Close() error { return nil }
