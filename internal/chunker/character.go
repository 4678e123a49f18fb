package chunker

import (
	"regexp"
	"strconv"
	"strings"

	"docbuddy/internal/domain"
)

// CharacterChunker splits text into chunks of roughly chunkSize runes with a
// trailing overlap carried into the next chunk. Boundaries prefer paragraph
// breaks, then sentence ends, then word gaps, so chunks stay readable.
type CharacterChunker struct {
	chunkSize    int
	chunkOverlap int
}

var sentenceEndRe = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?]+\s*)`)

func NewCharacterChunker(chunkSize, chunkOverlap int) *CharacterChunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 4
	}
	return &CharacterChunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

func (c *CharacterChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	text := strings.TrimSpace(document.Content)
	if text == "" {
		return nil, nil
	}

	units := c.splitUnits(text)
	var chunks []domain.Chunk
	var cur []string
	curLen := 0
	idx := 0
	onlySeed := false

	flush := func() {
		if curLen == 0 {
			return
		}
		chunkText := strings.TrimSpace(strings.Join(cur, " "))
		if chunkText == "" {
			cur = nil
			curLen = 0
			return
		}
		chunks = append(chunks, domain.Chunk{
			DocumentID: document.ID,
			ChunkID:    document.ID + ":" + strconv.Itoa(idx),
			Index:      idx,
			Text:       chunkText,
		})
		idx++
		// Seed the next chunk with the tail of this one.
		tail := overlapTail(chunkText, c.chunkOverlap)
		cur = cur[:0]
		curLen = 0
		onlySeed = false
		if tail != "" {
			cur = append(cur, tail)
			curLen = len([]rune(tail))
			onlySeed = true
		}
	}

	for _, u := range units {
		ulen := len([]rune(u))
		if curLen > 0 && curLen+ulen+1 > c.chunkSize {
			flush()
		}
		cur = append(cur, u)
		curLen += ulen
		onlySeed = false
		if curLen > 0 {
			curLen++ // joining space
		}
	}
	// Final chunk; skipped when the buffer holds nothing but the carried
	// overlap seed.
	if curLen > 0 && !onlySeed {
		chunkText := strings.TrimSpace(strings.Join(cur, " "))
		if chunkText != "" {
			chunks = append(chunks, domain.Chunk{
				DocumentID: document.ID,
				ChunkID:    document.ID + ":" + strconv.Itoa(idx),
				Index:      idx,
				Text:       chunkText,
			})
		}
	}
	return chunks, nil
}

// splitUnits breaks the text into pieces no larger than chunkSize, preferring
// paragraph, then sentence, then word boundaries.
func (c *CharacterChunker) splitUnits(text string) []string {
	var units []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(strings.ReplaceAll(para, "\n", " "))
		if para == "" {
			continue
		}
		if len([]rune(para)) <= c.chunkSize {
			units = append(units, para)
			continue
		}
		sentences := sentenceEndRe.FindAllString(para, -1)
		if len(sentences) == 0 {
			sentences = []string{para}
		}
		for _, sent := range sentences {
			sent = strings.TrimSpace(sent)
			if sent == "" {
				continue
			}
			if len([]rune(sent)) <= c.chunkSize {
				units = append(units, sent)
				continue
			}
			units = append(units, splitWords(sent, c.chunkSize)...)
		}
	}
	return units
}

// splitWords hard-splits an oversized sentence on word gaps, falling back to
// a rune split for pathological single words.
func splitWords(s string, limit int) []string {
	var out []string
	var cur []string
	curLen := 0
	for _, w := range strings.Fields(s) {
		wlen := len([]rune(w))
		if wlen > limit {
			if curLen > 0 {
				out = append(out, strings.Join(cur, " "))
				cur, curLen = nil, 0
			}
			runes := []rune(w)
			for len(runes) > limit {
				out = append(out, string(runes[:limit]))
				runes = runes[limit:]
			}
			if len(runes) > 0 {
				cur = append(cur, string(runes))
				curLen = len(runes)
			}
			continue
		}
		if curLen > 0 && curLen+wlen+1 > limit {
			out = append(out, strings.Join(cur, " "))
			cur, curLen = nil, 0
		}
		cur = append(cur, w)
		curLen += wlen + 1
	}
	if curLen > 0 {
		out = append(out, strings.Join(cur, " "))
	}
	return out
}

// overlapTail returns the last n runes of text extended left to a word
// boundary, so the carried overlap never starts mid-word.
func overlapTail(text string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	tail := string(runes[len(runes)-n:])
	if i := strings.IndexAny(tail, " \t"); i >= 0 {
		tail = tail[i+1:]
	}
	return strings.TrimSpace(tail)
}
