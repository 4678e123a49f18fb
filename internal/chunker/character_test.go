package chunker

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docbuddy/internal/domain"
)

func doc(content string) domain.Document {
	return domain.Document{ID: "doc1", Path: "doc1.txt", Content: content}
}

func TestCharacterChunkerEmptyDocument(t *testing.T) {
	c := NewCharacterChunker(1000, 250)
	chunks, err := c.Chunk(doc("   \n  "))
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestCharacterChunkerSmallDocumentSingleChunk(t *testing.T) {
	c := NewCharacterChunker(1000, 250)
	chunks, err := c.Chunk(doc("A short paragraph that fits comfortably."))
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, "doc1", chunks[0].DocumentID)
	assert.Equal(t, "doc1:0", chunks[0].ChunkID)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "A short paragraph that fits comfortably.", chunks[0].Text)
}

func TestCharacterChunkerSplitsLongText(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 120; i++ {
		b.WriteString("Sentence number with a handful of ordinary words inside it. ")
	}
	c := NewCharacterChunker(1000, 250)
	chunks, err := c.Chunk(doc(b.String()))
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, "doc1:"+strconv.Itoa(i), ch.ChunkID)
		assert.NotEmpty(t, ch.Text)
		// Each chunk stays near the configured size; the overlap seed plus
		// one unit is the worst case.
		assert.LessOrEqual(t, len([]rune(ch.Text)), 1000+250+100)
	}
}

func TestCharacterChunkerOverlapCarried(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 60; i++ {
		b.WriteString("Every marker sentence repeats the same recognizable words. ")
	}
	c := NewCharacterChunker(300, 100)
	chunks, err := c.Chunk(doc(b.String()))
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	// The head of each chunk after the first comes from the previous tail.
	for i := 1; i < len(chunks); i++ {
		head := []rune(chunks[i].Text)
		if len(head) > 40 {
			head = head[:40]
		}
		assert.Contains(t, chunks[i-1].Text, string(head),
			"chunk %d should start with text carried from chunk %d", i, i-1)
	}
}

func TestCharacterChunkerPathologicalWord(t *testing.T) {
	long := strings.Repeat("x", 2500)
	c := NewCharacterChunker(1000, 0)
	chunks, err := c.Chunk(doc(long))
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 3)
	for _, ch := range chunks {
		assert.LessOrEqual(t, len([]rune(ch.Text)), 1000)
	}
}

func TestCharacterChunkerDefaults(t *testing.T) {
	c := NewCharacterChunker(0, -1)
	assert.Equal(t, 1000, c.chunkSize)
	assert.Equal(t, 0, c.chunkOverlap)

	c = NewCharacterChunker(100, 100)
	assert.Equal(t, 25, c.chunkOverlap)
}

func TestOverlapTailWordBoundary(t *testing.T) {
	tail := overlapTail("alpha beta gamma delta", 11)
	// "amma delta" would start mid-word; the tail trims to the boundary.
	assert.Equal(t, "delta", tail)

	assert.Equal(t, "short", overlapTail("short", 50))
	assert.Equal(t, "", overlapTail("anything", 0))
}
