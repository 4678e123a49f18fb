package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"docbuddy/internal/domain"
)

// QdrantStore persists chunk vectors in a Qdrant collection over gRPC.
// Connection and RPC failures are wrapped in domain.ErrStoreUnavailable so
// the UI can report them as a reachability problem rather than crash.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

// QdrantStoreConfig contains connection details for Qdrant.
type QdrantStoreConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

func NewQdrantStore(cfg QdrantStoreConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = "vector_db"
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to qdrant: %v", domain.ErrStoreUnavailable, err)
	}
	return &QdrantStore{client: client, collection: cfg.Collection}, nil
}

// Init creates the collection with cosine distance if it does not exist yet.
func (s *QdrantStore) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid vector dimension %d", dimension)
	}
	s.dimension = dimension

	existing, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("%w: listing collections: %v", domain.ErrStoreUnavailable, err)
	}
	for _, name := range existing {
		if name == s.collection {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("%w: creating collection %s: %v", domain.ErrStoreUnavailable, s.collection, err)
	}
	return nil
}

// ReplaceDocument drops any points previously stored for the document and
// upserts the new chunks. Point IDs are derived from chunk IDs so repeated
// indexing of the same document overwrites rather than duplicates.
func (s *QdrantStore) ReplaceDocument(ctx context.Context, documentID string, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{
						qdrant.NewMatch("document_id", documentID),
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: deleting stale points: %v", domain.ErrStoreUnavailable, err)
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID(chunk.ChunkID)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]interface{}{
				"document_id": chunk.DocumentID,
				"chunk_id":    chunk.ChunkID,
				"chunk_index": int64(chunk.Index),
				"text":        chunk.Text,
			}),
		}
	}

	wait := true
	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
		Wait:           &wait,
	})
	if err != nil {
		return fmt.Errorf("%w: upserting points: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Search returns the topK most similar chunks for the query vector.
func (s *QdrantStore) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	limit := uint64(topK)
	hits, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: querying points: %v", domain.ErrStoreUnavailable, err)
	}

	results := make([]domain.SearchResult, 0, len(hits))
	for _, hit := range hits {
		payload := hit.GetPayload()
		if payload == nil {
			continue
		}
		chunk := domain.Chunk{}
		if v, ok := payload["document_id"]; ok {
			chunk.DocumentID = v.GetStringValue()
		}
		if v, ok := payload["chunk_id"]; ok {
			chunk.ChunkID = v.GetStringValue()
		}
		if v, ok := payload["chunk_index"]; ok {
			chunk.Index = int(v.GetIntegerValue())
		}
		if v, ok := payload["text"]; ok {
			chunk.Text = v.GetStringValue()
		}
		results = append(results, domain.SearchResult{Chunk: chunk, Score: hit.GetScore()})
	}
	return results, nil
}

// Close closes the gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// pointID maps a chunk ID to a stable UUID accepted by Qdrant.
func pointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}
