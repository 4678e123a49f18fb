package domain

import "context"

// Document is a single file loaded into the system.
type Document struct {
	ID      string
	Path    string
	Title   string
	Content string
	Pages   int
}

// Chunk is a retrievable slice of a document.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Index      int
	Text       string
}

// SearchResult is a matching chunk with a similarity score.
type SearchResult struct {
	Chunk Chunk
	Score float32
}

// Role tags a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation transcript.
type Message struct {
	Role    Role
	Content string
}

// Loader reads a document from disk and extracts its text.
type Loader interface {
	Load(ctx context.Context, path string) (Document, error)
	SupportedExtensions() []string
}

// Chunker splits a document into chunks suitable for indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Embedder converts free text into a vector representation.
// Dimension is known only after the first successful embedding.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// VectorStore persists chunk vectors and supports similarity search.
type VectorStore interface {
	// Init prepares the backing collection for vectors of the given dimension.
	Init(ctx context.Context, dimension int) error
	// ReplaceDocument removes any previously stored chunks of the document
	// and upserts the new ones. Chunks and vectors are index-aligned.
	ReplaceDocument(ctx context.Context, documentID string, chunks []Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error)
	Close() error
}

// ChatModel generates an assistant reply for a conversation.
// The system instruction is passed separately from the transcript.
type ChatModel interface {
	Chat(ctx context.Context, system string, messages []Message) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
