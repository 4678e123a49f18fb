package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docbuddy/internal/domain"
	"docbuddy/internal/service"
)

type fakeIndexer struct {
	res   service.Result
	err   error
	calls int
}

func (f *fakeIndexer) Index(ctx context.Context, path string) (service.Result, error) {
	f.calls++
	return f.res, f.err
}

type fakeEngine struct {
	history []domain.Message
	reply   string
	err     error
}

func (f *fakeEngine) Ask(ctx context.Context, question string) (domain.Message, error) {
	f.history = append(f.history, domain.Message{Role: domain.RoleUser, Content: question})
	content := f.reply
	if f.err != nil {
		content = "problem: " + f.err.Error()
	}
	msg := domain.Message{Role: domain.RoleAssistant, Content: content}
	f.history = append(f.history, msg)
	return msg, f.err
}

func (f *fakeEngine) History() []domain.Message { return f.history }
func (f *fakeEngine) Reset()                    { f.history = nil }

func sized(m Model) Model {
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model)
}

func TestStartsInPromptStateWithoutPath(t *testing.T) {
	m := New(&fakeIndexer{}, &fakeEngine{}, "", nil)
	assert.Equal(t, statePrompt, m.state)
}

func TestStartsIndexingWithPath(t *testing.T) {
	m := New(&fakeIndexer{}, &fakeEngine{}, "doc.pdf", nil)
	assert.Equal(t, stateIndexing, m.state)
	assert.NotNil(t, m.Init())
}

func TestIndexSuccessEntersChat(t *testing.T) {
	ix := &fakeIndexer{res: service.Result{
		Document: domain.Document{ID: "d1", Title: "report"},
		Chunks:   7,
		Summary:  "a short summary",
	}}
	m := sized(New(ix, &fakeEngine{}, "report.pdf", nil))

	updated, _ := m.Update(indexDoneMsg{res: ix.res})
	m = updated.(Model)

	assert.Equal(t, stateChat, m.state)
	assert.Equal(t, "report", m.docTitle)
	assert.Equal(t, 7, m.chunks)
	view := m.View()
	assert.Contains(t, view, "report")
	assert.Contains(t, view, "a short summary")
}

func TestIndexFailureReturnsToPrompt(t *testing.T) {
	m := sized(New(&fakeIndexer{}, &fakeEngine{}, "missing.pdf", nil))

	err := fmt.Errorf("%w: missing.pdf", domain.ErrFileNotFound)
	updated, _ := m.Update(indexDoneMsg{err: err})
	m = updated.(Model)

	assert.Equal(t, statePrompt, m.state)
	assert.Contains(t, m.View(), "does not exist")
}

func TestTranscriptRendersInOrder(t *testing.T) {
	engine := &fakeEngine{reply: "indexed answer"}
	m := sized(New(&fakeIndexer{}, engine, "doc.pdf", nil))
	updated, _ := m.Update(indexDoneMsg{res: service.Result{Document: domain.Document{Title: "doc"}, Chunks: 1}})
	m = updated.(Model)

	_, err := engine.Ask(context.Background(), "first question")
	require.NoError(t, err)
	_, err = engine.Ask(context.Background(), "second question")
	require.NoError(t, err)

	transcript := m.renderTranscript()
	i1 := strings.Index(transcript, "first question")
	i2 := strings.Index(transcript, "second question")
	require.GreaterOrEqual(t, i1, 0)
	require.GreaterOrEqual(t, i2, 0)
	assert.Less(t, i1, i2, "turns must appear in submission order")
	// Each question is followed by its answer.
	assert.Less(t, i1, strings.Index(transcript[i1:], "indexed answer")+i1)
}

func TestEnterSubmitsQuestion(t *testing.T) {
	engine := &fakeEngine{reply: "an answer"}
	m := sized(New(&fakeIndexer{}, engine, "doc.pdf", nil))
	updated, _ := m.Update(indexDoneMsg{res: service.Result{Chunks: 1}})
	m = updated.(Model)

	m.input.SetValue("why?")
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	assert.Equal(t, stateAnswering, m.state)
	assert.Empty(t, m.input.Value())
	require.NotNil(t, cmd)
}

func TestEnterIgnoresBlankInput(t *testing.T) {
	m := sized(New(&fakeIndexer{}, &fakeEngine{}, "doc.pdf", nil))
	updated, _ := m.Update(indexDoneMsg{res: service.Result{Chunks: 1}})
	m = updated.(Model)

	m.input.SetValue("   ")
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	assert.Equal(t, stateChat, m.state)
}

func TestAnswerErrorShownInStatus(t *testing.T) {
	engine := &fakeEngine{err: errors.New("llm offline")}
	m := sized(New(&fakeIndexer{}, engine, "doc.pdf", nil))
	updated, _ := m.Update(indexDoneMsg{res: service.Result{Chunks: 1}})
	m = updated.(Model)

	msg, err := engine.Ask(context.Background(), "q")
	updated, _ = m.Update(answerMsg{msg: msg, err: err})
	m = updated.(Model)

	assert.Equal(t, stateChat, m.state)
	assert.Contains(t, m.View(), "llm offline")
	// The failed turn still shows in the transcript.
	assert.Contains(t, m.renderTranscript(), "problem: llm offline")
}

func TestCtrlCQuits(t *testing.T) {
	m := sized(New(&fakeIndexer{}, &fakeEngine{}, "", nil))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestFileChangeTriggersReindex(t *testing.T) {
	changes := make(chan struct{}, 1)
	m := sized(New(&fakeIndexer{}, &fakeEngine{}, "doc.pdf", changes))
	updated, _ := m.Update(indexDoneMsg{res: service.Result{Chunks: 1}})
	m = updated.(Model)

	updated, cmd := m.Update(fileChangedMsg{})
	m = updated.(Model)

	assert.Equal(t, stateIndexing, m.state)
	require.NotNil(t, cmd)
}

// runCmds executes a command (unwrapping batches) and returns the produced
// messages.
func runCmds(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, c := range batch {
			msgs = append(msgs, runCmds(c)...)
		}
		return msgs
	}
	return []tea.Msg{msg}
}

func TestFileChangeDuringAnsweringDefersReindex(t *testing.T) {
	ix := &fakeIndexer{res: service.Result{Document: domain.Document{ID: "d1"}, Chunks: 1}}
	engine := &fakeEngine{reply: "ok"}
	changes := make(chan struct{}, 1)
	m := sized(New(ix, engine, "doc.pdf", changes))
	updated, _ := m.Update(indexDoneMsg{res: ix.res})
	m = updated.(Model)

	m.input.SetValue("q")
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	require.Equal(t, stateAnswering, m.state)

	// The file changes while the answer is in flight.
	updated, _ = m.Update(fileChangedMsg{})
	m = updated.(Model)
	assert.Equal(t, stateAnswering, m.state)

	before := ix.calls
	msg, err := engine.Ask(context.Background(), "q")
	require.NoError(t, err)
	updated, cmd := m.Update(answerMsg{msg: msg})
	m = updated.(Model)

	// The deferred re-index starts as soon as the answer lands.
	assert.Equal(t, stateIndexing, m.state)
	var reindexed bool
	for _, got := range runCmds(cmd) {
		if _, ok := got.(indexDoneMsg); ok {
			reindexed = true
		}
	}
	assert.True(t, reindexed, "expected an index run after the deferred change")
	assert.Equal(t, before+1, ix.calls)
}

func TestFileChangeDuringIndexingDefersReindex(t *testing.T) {
	ix := &fakeIndexer{res: service.Result{Document: domain.Document{ID: "d1"}, Chunks: 1}}
	changes := make(chan struct{}, 1)
	m := sized(New(ix, &fakeEngine{}, "doc.pdf", changes))
	require.Equal(t, stateIndexing, m.state)

	updated, _ := m.Update(fileChangedMsg{})
	m = updated.(Model)
	assert.Equal(t, stateIndexing, m.state)

	before := ix.calls
	updated, cmd := m.Update(indexDoneMsg{res: ix.res})
	m = updated.(Model)

	assert.Equal(t, stateIndexing, m.state)
	runCmds(cmd)
	assert.Equal(t, before+1, ix.calls)
}

func TestWatchRefreshKeepsTranscript(t *testing.T) {
	engine := &fakeEngine{reply: "ok"}
	m := sized(New(&fakeIndexer{}, engine, "doc.pdf", nil))
	res := service.Result{Document: domain.Document{ID: "d1", Title: "doc"}, Chunks: 1}
	updated, _ := m.Update(indexDoneMsg{res: res})
	m = updated.(Model)

	_, err := engine.Ask(context.Background(), "remembered question")
	require.NoError(t, err)

	// Re-indexing the same document (watch refresh) keeps the conversation.
	updated, _ = m.Update(indexDoneMsg{res: res})
	m = updated.(Model)
	assert.Contains(t, m.renderTranscript(), "remembered question")

	// A different document starts fresh.
	other := service.Result{Document: domain.Document{ID: "d2", Title: "other"}, Chunks: 1}
	updated, _ = m.Update(indexDoneMsg{res: other})
	m = updated.(Model)
	assert.Empty(t, engine.History())
}

func TestFriendlyIndexErrors(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: x", domain.ErrFileNotFound), "does not exist"},
		{fmt.Errorf("%w: x", domain.ErrNoContent), "No text could be extracted"},
		{fmt.Errorf("%w: x", domain.ErrNoChunks), "nothing to index"},
		{fmt.Errorf("%w: x", domain.ErrStoreUnavailable), "vector store"},
		{errors.New("boom"), "Indexing failed"},
	}
	for _, tc := range cases {
		assert.Contains(t, friendlyIndexError(tc.err), tc.want)
	}
}

func TestPromptEnterStartsIndexing(t *testing.T) {
	m := sized(New(&fakeIndexer{}, &fakeEngine{}, "", nil))
	m.input.SetValue("some/doc.pdf")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	assert.Equal(t, stateIndexing, m.state)
	assert.Equal(t, "some/doc.pdf", m.docPath)
	require.NotNil(t, cmd)
}
