package chat

import (
	"fmt"
	"strings"

	"docbuddy/internal/domain"
)

const systemInstruction = "You are a helpful document assistant. Answer questions using the provided " +
	"document context. If the answer is not found in the context, clearly state that the document " +
	"does not contain the information. Keep answers concise and grounded in the context. Do not " +
	"make up information."

// packContext joins retrieved chunks, best score first, until the token
// budget is spent. At least one chunk is always admitted so the model never
// loses its only piece of grounding.
func packContext(results []domain.SearchResult, budget int, counter *TokenCounter) string {
	if len(results) == 0 {
		return ""
	}
	var parts []string
	used := 0
	for _, r := range results {
		text := strings.TrimSpace(r.Chunk.Text)
		if text == "" {
			continue
		}
		cost := counter.Count(text)
		if len(parts) > 0 && used+cost > budget {
			break
		}
		parts = append(parts, text)
		used += cost
	}
	return strings.Join(parts, "\n\n")
}

// buildQuestion composes the final user turn: retrieved context framed with
// explicit markers, followed by the actual question.
func buildQuestion(contextText, question string) string {
	if contextText == "" {
		return fmt.Sprintf("I could not find passages of the document relevant to my question. "+
			"If you cannot answer from the conversation so far, say the document does not cover it. "+
			"My question: %s", question)
	}
	return fmt.Sprintf("Use the following context from the document to answer my question.\n\n"+
		"--- CONTEXT START ---\n%s\n--- CONTEXT END ---\n\nMy question: %s", contextText, question)
}
