package domain

import "errors"

// Sentinel errors for the indexing error ladder. Callers match with errors.Is.
var (
	// ErrFileNotFound reports that the document path does not exist.
	ErrFileNotFound = errors.New("document file not found")
	// ErrNoContent reports that no text could be extracted from the document.
	ErrNoContent = errors.New("no text content extracted from document")
	// ErrNoChunks reports that chunking produced nothing to index.
	ErrNoChunks = errors.New("no chunks were created from the document")
	// ErrStoreUnavailable reports that the vector store could not be reached.
	ErrStoreUnavailable = errors.New("vector store unavailable")
)
