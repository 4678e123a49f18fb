package chat

import (
	"context"
	"fmt"
	"sync"

	"docbuddy/internal/domain"
)

// Engine owns the conversation transcript and the retrieval-augmented answer
// path: embed the question, search the store, pack context into the token
// budget, and ask the chat model.
//
// The transcript lives in process memory for the session and is appended in
// strict submission order: the user turn, then the assistant turn — also when
// answering fails, in which case the assistant turn carries the error text.
type Engine struct {
	embedder domain.Embedder
	store    domain.VectorStore
	model    domain.ChatModel
	counter  *TokenCounter
	opts     Options

	mu      sync.Mutex
	history []domain.Message
}

// Options tunes retrieval and prompt assembly.
type Options struct {
	TopK               int
	HistoryWindow      int
	ContextTokenBudget int
	MinScore           float32
}

func NewEngine(embedder domain.Embedder, store domain.VectorStore, model domain.ChatModel, opts Options) *Engine {
	if opts.TopK <= 0 {
		opts.TopK = 5
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = 6
	}
	if opts.ContextTokenBudget <= 0 {
		opts.ContextTokenBudget = 2048
	}
	return &Engine{
		embedder: embedder,
		store:    store,
		model:    model,
		counter:  NewTokenCounter(),
		opts:     opts,
	}
}

// Ask answers the question grounded in the indexed document. The returned
// message is the assistant turn already appended to the transcript. A non-nil
// error means answering failed; the assistant turn then explains the failure.
func (e *Engine) Ask(ctx context.Context, question string) (domain.Message, error) {
	e.mu.Lock()
	e.history = append(e.history, domain.Message{Role: domain.RoleUser, Content: question})
	window := e.historyWindowLocked()
	e.mu.Unlock()

	answer, err := e.answer(ctx, question, window)
	if err != nil {
		answer = fmt.Sprintf("Sorry, I ran into a problem answering that: %v", err)
	}

	msg := domain.Message{Role: domain.RoleAssistant, Content: answer}
	e.mu.Lock()
	e.history = append(e.history, msg)
	e.mu.Unlock()
	return msg, err
}

func (e *Engine) answer(ctx context.Context, question string, window []domain.Message) (string, error) {
	vec, err := e.embedder.Embed(ctx, question)
	if err != nil {
		return "", fmt.Errorf("embedding question: %w", err)
	}

	results, err := e.store.Search(ctx, vec, e.opts.TopK)
	if err != nil {
		return "", err
	}
	kept := results[:0]
	for _, r := range results {
		if r.Score >= e.opts.MinScore {
			kept = append(kept, r)
		}
	}

	contextText := packContext(kept, e.opts.ContextTokenBudget, e.counter)
	messages := append(window, domain.Message{
		Role:    domain.RoleUser,
		Content: buildQuestion(contextText, question),
	})

	reply, err := e.model.Chat(ctx, systemInstruction, messages)
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}
	if reply == "" {
		return "", fmt.Errorf("model returned an empty answer")
	}
	return reply, nil
}

// historyWindowLocked returns the most recent complete turns before the
// question that was just appended. Callers hold e.mu.
func (e *Engine) historyWindowLocked() []domain.Message {
	// Exclude the just-appended user question; it is re-sent composed with
	// the retrieved context.
	prior := e.history[:len(e.history)-1]
	start := len(prior) - e.opts.HistoryWindow
	if start < 0 {
		start = 0
	}
	window := make([]domain.Message, len(prior)-start)
	copy(window, prior[start:])
	return window
}

// History returns a copy of the transcript.
func (e *Engine) History() []domain.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Message, len(e.history))
	copy(out, e.history)
	return out
}

// Reset clears the transcript, e.g. after a different document is indexed.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = nil
}
