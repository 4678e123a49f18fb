package service

import (
	"context"
	"fmt"

	"docbuddy/internal/domain"
)

// Indexer runs the ingest pipeline: load, chunk, embed, replace-upsert.
type Indexer struct {
	loader     domain.Loader
	chunker    domain.Chunker
	embedder   domain.Embedder
	store      domain.VectorStore
	summarizer domain.Summarizer

	summaryMaxSentences int
}

// Result describes a completed indexing run.
type Result struct {
	Document domain.Document
	Chunks   int
	Summary  string
}

func NewIndexer(loader domain.Loader, chunker domain.Chunker, embedder domain.Embedder, store domain.VectorStore, summarizer domain.Summarizer, summaryMaxSentences int) *Indexer {
	if summaryMaxSentences <= 0 {
		summaryMaxSentences = 5
	}
	return &Indexer{
		loader:              loader,
		chunker:             chunker,
		embedder:            embedder,
		store:               store,
		summarizer:          summarizer,
		summaryMaxSentences: summaryMaxSentences,
	}
}

// Index ingests the document at path into the vector store. Re-indexing the
// same path replaces the document's chunks instead of duplicating them.
//
// The error ladder mirrors what the user sees: ErrFileNotFound for a bad
// path, ErrNoContent for an unparseable document, ErrNoChunks when splitting
// yields nothing, ErrStoreUnavailable for vector-store trouble.
func (ix *Indexer) Index(ctx context.Context, path string) (Result, error) {
	doc, err := ix.loader.Load(ctx, path)
	if err != nil {
		return Result{}, err
	}

	chunks, err := ix.chunker.Chunk(doc)
	if err != nil {
		return Result{}, fmt.Errorf("chunking %s: %w", doc.Path, err)
	}
	if len(chunks) == 0 {
		return Result{}, fmt.Errorf("%w: %s", domain.ErrNoChunks, doc.Path)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return Result{}, fmt.Errorf("embedding chunks: %w", err)
	}
	dim := ix.embedder.Dimension()
	for i, v := range vectors {
		if len(v) != dim {
			return Result{}, fmt.Errorf("chunk %d embedded with dimension %d, want %d", i, len(v), dim)
		}
	}

	if err := ix.store.Init(ctx, dim); err != nil {
		return Result{}, err
	}
	if err := ix.store.ReplaceDocument(ctx, doc.ID, chunks, vectors); err != nil {
		return Result{}, err
	}

	summary := ""
	if ix.summarizer != nil {
		summary, err = ix.summarizer.Summarize(doc.Content, ix.summaryMaxSentences)
		if err != nil {
			// The index is usable without a summary; don't fail the run.
			summary = ""
		}
	}

	return Result{Document: doc, Chunks: len(chunks), Summary: summary}, nil
}
