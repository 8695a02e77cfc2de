package chatbot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tablechat-cli/internal/ai"
	"github.com/KaramelBytes/tablechat-cli/internal/dataset"
	"github.com/KaramelBytes/tablechat-cli/internal/history"
)

// fakeRuntime records requests and replies with a canned answer.
type fakeRuntime struct {
	lastReq ai.GenerateRequest
	answer  string
	err     error
}

func (f *fakeRuntime) Generate(ctx context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &ai.GenerateResponse{
		Choices: []ai.Choice{{Message: ai.Message{Role: "assistant", Content: f.answer}}},
	}, nil
}

// fakeStreamRuntime additionally delivers the answer in two chunks.
type fakeStreamRuntime struct {
	fakeRuntime
}

func (f *fakeStreamRuntime) GenerateStream(ctx context.Context, req ai.GenerateRequest, onDelta func(string)) error {
	f.lastReq = req
	if f.err != nil {
		return f.err
	}
	half := len(f.answer) / 2
	onDelta(f.answer[:half])
	onDelta(f.answer[half:])
	return nil
}

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "people.csv")
	csv := "name,age\nalice,30\nbob,40\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))
	return path
}

func TestAnalyzeRequiresDataset(t *testing.T) {
	bot := New(&fakeRuntime{answer: "x"}, Config{Model: "m"}, nil, nil)
	_, err := bot.Analyze(context.Background(), "")
	require.ErrorIs(t, err, ErrNoDataset)
	_, err = bot.Chat(context.Background(), "hi", nil)
	require.ErrorIs(t, err, ErrNoDataset)
}

func TestAnalyzeEmbedsDatasetContext(t *testing.T) {
	rt := &fakeRuntime{answer: "insightful"}
	bot := New(rt, Config{Model: "m"}, nil, nil)
	_, err := bot.LoadData(context.Background(), writeCSV(t), dataset.DefaultOptions())
	require.NoError(t, err)

	answer, err := bot.Analyze(context.Background(), "what is the mean age?")
	require.NoError(t, err)
	assert.Equal(t, "insightful", answer)

	require.Len(t, rt.lastReq.Messages, 2)
	assert.Equal(t, "system", rt.lastReq.Messages[0].Role)
	user := rt.lastReq.Messages[1].Content
	assert.Contains(t, user, "Dataset Summary:")
	assert.Contains(t, user, "age")
	assert.Contains(t, user, "User Question: what is the mean age?")
}

func TestAnalyzeWithoutQueryAsksForFullAnalysis(t *testing.T) {
	rt := &fakeRuntime{answer: "report"}
	bot := New(rt, Config{Model: "m"}, nil, nil)
	_, err := bot.LoadData(context.Background(), writeCSV(t), dataset.DefaultOptions())
	require.NoError(t, err)

	_, err = bot.Analyze(context.Background(), "")
	require.NoError(t, err)
	assert.Contains(t, rt.lastReq.Messages[1].Content, "comprehensive analysis")
}

func TestChatCarriesTranscript(t *testing.T) {
	rt := &fakeRuntime{answer: "sure"}
	bot := New(rt, Config{Model: "m", TranscriptTurns: 2}, nil, nil)
	_, err := bot.LoadData(context.Background(), writeCSV(t), dataset.DefaultOptions())
	require.NoError(t, err)

	_, err = bot.Chat(context.Background(), "first question", nil)
	require.NoError(t, err)
	_, err = bot.Chat(context.Background(), "second question", nil)
	require.NoError(t, err)

	// system + data context + prior exchange + new input
	msgs := rt.lastReq.Messages
	require.Len(t, msgs, 5)
	assert.Equal(t, "first question", msgs[2].Content)
	assert.Equal(t, "sure", msgs[3].Content)
	assert.Equal(t, "second question", msgs[4].Content)
}

func TestChatStreamsDeltas(t *testing.T) {
	rt := &fakeStreamRuntime{fakeRuntime{answer: "hello world"}}
	bot := New(rt, Config{Model: "m"}, nil, nil)
	_, err := bot.LoadData(context.Background(), writeCSV(t), dataset.DefaultOptions())
	require.NoError(t, err)

	var streamed strings.Builder
	answer, err := bot.Chat(context.Background(), "hi", func(d string) { streamed.WriteString(d) })
	require.NoError(t, err)
	assert.Equal(t, "hello world", answer)
	assert.Equal(t, "hello world", streamed.String())
}

func TestChatErrorsSurface(t *testing.T) {
	rt := &fakeRuntime{err: errors.New("boom")}
	bot := New(rt, Config{Model: "m"}, nil, nil)
	_, err := bot.LoadData(context.Background(), writeCSV(t), dataset.DefaultOptions())
	require.NoError(t, err)

	_, err = bot.Chat(context.Background(), "hi", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestHistoryRecordsTurns(t *testing.T) {
	store, err := history.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	rt := &fakeRuntime{answer: "forty"}
	bot := New(rt, Config{Model: "m"}, store, nil)
	ctx := context.Background()
	_, err = bot.LoadData(ctx, writeCSV(t), dataset.DefaultOptions())
	require.NoError(t, err)
	require.NotEmpty(t, bot.SessionID())

	_, err = bot.Chat(ctx, "what is bob's age?", nil)
	require.NoError(t, err)

	msgs, err := store.Messages(ctx, bot.SessionID())
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "what is bob's age?", msgs[0].Content)
	assert.Equal(t, "assistant", msgs[1].Role)
	assert.Equal(t, "forty", msgs[1].Content)
}

func TestAdoptResetsConversation(t *testing.T) {
	rt := &fakeRuntime{answer: "ok"}
	bot := New(rt, Config{Model: "m"}, nil, nil)
	require.ErrorIs(t, bot.Adopt(nil), ErrNoDataset)

	ds, err := dataset.Load(writeCSV(t), dataset.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, bot.Adopt(ds))
	assert.True(t, bot.Loaded())
	assert.Empty(t, bot.SessionID())
}
