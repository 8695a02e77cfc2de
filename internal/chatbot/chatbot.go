// Package chatbot ties the pieces together: it holds the loaded dataset,
// builds analyst prompts around its summary, and talks to the configured
// model runtime, recording the conversation as it goes.
package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/KaramelBytes/tablechat-cli/internal/ai"
	"github.com/KaramelBytes/tablechat-cli/internal/dataset"
	"github.com/KaramelBytes/tablechat-cli/internal/history"
	"github.com/KaramelBytes/tablechat-cli/internal/utils"
)

// ErrNoDataset is returned when analysis or chat is requested before load.
var ErrNoDataset = errors.New("no dataset loaded")

const analystSystemPrompt = `You are an expert data analyst. Your task is to analyze datasets and provide insightful, actionable observations. When analyzing data:
1. Identify key patterns, trends, and anomalies
2. Highlight important statistics and correlations
3. Point out data quality issues (missing values, outliers, etc.)
4. Suggest potential insights or business implications
5. Be concise but comprehensive
6. Use clear, professional language

You will be given a dataset summary. Analyze it thoroughly and provide your insights.`

const assistantSystemPrompt = `You are a helpful data analyst assistant. You have access to a dataset and can answer questions about it, provide insights, suggest analyses, and help interpret the data. Be conversational but professional.`

// Config carries the knobs the chatbot needs per session.
type Config struct {
	Model       string
	MaxTokens   int
	Temperature float64
	// ContextBudget caps the dataset context embedded in prompts, in tokens.
	ContextBudget int
	// TranscriptTurns caps how many prior exchanges ride along in chat prompts.
	TranscriptTurns int
}

// Chatbot answers questions about one loaded dataset.
type Chatbot struct {
	runtime ai.Runtime
	cfg     Config
	log     *zap.Logger

	store   *history.Store
	session *history.Session

	ds         *dataset.Dataset
	summary    string
	info       dataset.Info
	transcript []ai.Message
}

// New creates a Chatbot. The history store may be nil (no persistence) and
// the logger may be nil (no diagnostics).
func New(runtime ai.Runtime, cfg Config, store *history.Store, log *zap.Logger) *Chatbot {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.7
	}
	if cfg.ContextBudget <= 0 {
		cfg.ContextBudget = 6000
	}
	if cfg.TranscriptTurns <= 0 {
		cfg.TranscriptTurns = 10
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Chatbot{runtime: runtime, cfg: cfg, store: store, log: log}
}

// LoadData loads a CSV file and resets the conversation around it.
func (c *Chatbot) LoadData(ctx context.Context, path string, opt dataset.Options) (*dataset.Dataset, error) {
	ds, err := dataset.Load(path, opt)
	if err != nil {
		return nil, err
	}
	c.ds = ds
	c.summary = ds.Summary()
	c.info = ds.Info()
	c.transcript = nil
	c.session = nil
	if c.store != nil {
		sess, err := c.store.StartSession(ctx, ds.Name)
		if err != nil {
			// Persistence is best-effort; chatting must keep working.
			c.log.Debug("history session not started", zap.Error(err))
		} else {
			c.session = sess
		}
	}
	return ds, nil
}

// Adopt attaches an already-loaded dataset, resetting the conversation.
// No history session is started; callers that want persistence should use
// LoadData.
func (c *Chatbot) Adopt(ds *dataset.Dataset) error {
	if ds == nil {
		return ErrNoDataset
	}
	c.ds = ds
	c.summary = ds.Summary()
	c.info = ds.Info()
	c.transcript = nil
	c.session = nil
	return nil
}

// Dataset returns the loaded dataset, or nil.
func (c *Chatbot) Dataset() *dataset.Dataset { return c.ds }

// Loaded reports whether a dataset is ready.
func (c *Chatbot) Loaded() bool { return c.ds != nil }

// SessionID returns the persisted session id, if any.
func (c *Chatbot) SessionID() string {
	if c.session == nil {
		return ""
	}
	return c.session.ID
}

// dataContext renders the dataset summary plus structured info, truncated
// to the configured token budget.
func (c *Chatbot) dataContext() string {
	var b strings.Builder
	b.WriteString("Dataset Summary:\n")
	b.WriteString(c.summary)
	b.WriteString("\nDataset Information:\n")
	fmt.Fprintf(&b, "- Shape: %d rows, %d columns\n", c.info.Rows, c.info.Cols)
	fmt.Fprintf(&b, "- Columns: %s\n", strings.Join(c.info.Columns, ", "))
	fmt.Fprintf(&b, "- Numeric columns: %s\n", orNone(c.info.NumericColumns))
	fmt.Fprintf(&b, "- Categorical columns: %s\n", orNone(c.info.CategoricalColumns))
	return utils.TruncateToTokenLimit(b.String(), c.cfg.ContextBudget)
}

func orNone(cols []string) string {
	if len(cols) == 0 {
		return "None"
	}
	return strings.Join(cols, ", ")
}

// AnalysisPrompt renders the analyst prompt pair for the loaded dataset.
// Useful for previewing what would be sent without calling the model.
func (c *Chatbot) AnalysisPrompt(query string) (system, user string, err error) {
	if !c.Loaded() {
		return "", "", ErrNoDataset
	}
	if query != "" {
		user = fmt.Sprintf("%s\n\nUser Question: %s\n\nPlease answer the question based on the dataset.", c.dataContext(), query)
	} else {
		user = fmt.Sprintf("%s\n\nPlease provide a comprehensive analysis of this dataset, including key insights, patterns, and recommendations.", c.dataContext())
	}
	return analystSystemPrompt, user, nil
}

// Analyze asks the model for a full analysis of the dataset, or for an
// answer to a specific question when query is non-empty.
func (c *Chatbot) Analyze(ctx context.Context, query string) (string, error) {
	return c.AnalyzeStream(ctx, query, nil)
}

// AnalyzeStream is Analyze with optional streaming delivery: when onDelta
// is non-nil and the runtime supports it, partial content arrives through
// the callback. The full answer is returned either way.
func (c *Chatbot) AnalyzeStream(ctx context.Context, query string, onDelta func(string)) (string, error) {
	system, user, err := c.AnalysisPrompt(query)
	if err != nil {
		return "", err
	}
	req := ai.GenerateRequest{
		Model: c.cfg.Model,
		Messages: []ai.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}

	var answer string
	if sr, ok := c.runtime.(ai.StreamRuntime); ok && onDelta != nil {
		var b strings.Builder
		err := sr.GenerateStream(ctx, req, func(delta string) {
			b.WriteString(delta)
			onDelta(delta)
		})
		if err != nil {
			return "", fmt.Errorf("generate analysis: %w", err)
		}
		answer = b.String()
	} else {
		resp, err := c.runtime.Generate(ctx, req)
		if err != nil {
			return "", fmt.Errorf("generate analysis: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("no content returned from model")
		}
		answer = resp.Choices[0].Message.Content
	}
	c.record(ctx, "user", "analyze: "+query)
	c.record(ctx, "assistant", answer)
	return answer, nil
}

// Chat answers a free-text question about the dataset, carrying recent
// turns for continuity. When onDelta is non-nil and the runtime supports
// streaming, partial content is delivered through it as it arrives; the
// full answer is returned either way.
func (c *Chatbot) Chat(ctx context.Context, input string, onDelta func(string)) (string, error) {
	if !c.Loaded() {
		return "", ErrNoDataset
	}
	messages := []ai.Message{{Role: "system", Content: assistantSystemPrompt}}
	messages = append(messages, ai.Message{Role: "user", Content: c.dataContext()})
	messages = append(messages, c.recentTranscript()...)
	messages = append(messages, ai.Message{Role: "user", Content: input})

	req := ai.GenerateRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}

	var answer string
	if sr, ok := c.runtime.(ai.StreamRuntime); ok && onDelta != nil {
		var b strings.Builder
		err := sr.GenerateStream(ctx, req, func(delta string) {
			b.WriteString(delta)
			onDelta(delta)
		})
		if err != nil {
			return "", fmt.Errorf("generate chat: %w", err)
		}
		answer = b.String()
	} else {
		resp, err := c.runtime.Generate(ctx, req)
		if err != nil {
			return "", fmt.Errorf("generate chat: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("no content returned from model")
		}
		answer = resp.Choices[0].Message.Content
	}

	c.transcript = append(c.transcript,
		ai.Message{Role: "user", Content: input},
		ai.Message{Role: "assistant", Content: answer},
	)
	c.record(ctx, "user", input)
	c.record(ctx, "assistant", answer)
	return answer, nil
}

// recentTranscript returns the last N exchanges for prompt continuity.
func (c *Chatbot) recentTranscript() []ai.Message {
	max := c.cfg.TranscriptTurns * 2
	if len(c.transcript) <= max {
		return c.transcript
	}
	return c.transcript[len(c.transcript)-max:]
}

func (c *Chatbot) record(ctx context.Context, role, content string) {
	if c.store == nil || c.session == nil {
		return
	}
	if err := c.store.Append(ctx, c.session.ID, role, content); err != nil {
		c.log.Debug("history append failed", zap.Error(err))
	}
}
