package sqlagent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/billshop/shopai-go/internal/budget"
	"github.com/billshop/shopai-go/internal/catalog"
	"github.com/billshop/shopai-go/internal/logging"
	"github.com/billshop/shopai-go/internal/store"
)

const generatePrompt = `Given an input question, create a syntactically correct %s query to run.
Unless the user asks for a specific number of examples, limit the query to at most %d results.
Rules:
- Write exactly one SELECT statement. Never write UPDATE, DELETE, INSERT, ALTER, DROP, CREATE or any other statement that changes data.
- If the question asks to change data, reply with exactly %s and nothing else.
- Only query the columns needed to answer the question.
- Use only real tables and columns from this schema:
%s
Reply with the SQL only.`

const answerPrompt = `You are the assistant of a badminton equipment shop.
You answer shoppers using the result of a read-only SQL query.
You must never claim to have changed any data; access is read-only.
If the result is empty, say that no matching information was found.
Answers must be in Vietnamese.`

// defaultLimit is the row limit suggested to the SQL-writing model.
const defaultLimit = 5

// LLMGenerator writes SQL with a chat model.
type LLMGenerator struct {
	model   model.BaseChatModel
	dialect string
}

// NewLLMGenerator returns a generator for the given SQL dialect.
func NewLLMGenerator(m model.BaseChatModel, d catalog.Dialect) *LLMGenerator {
	return &LLMGenerator{model: m, dialect: d.DisplayName()}
}

// GenerateSQL implements Generator.
func (g *LLMGenerator) GenerateSQL(ctx context.Context, question, tableInfo string) (string, error) {
	msgs := []*schema.Message{
		schema.SystemMessage(fmt.Sprintf(generatePrompt, g.dialect, defaultLimit, Refusal, tableInfo)),
		schema.UserMessage("Question: " + question),
	}
	out, err := g.model.Generate(ctx, msgs)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Content), nil
}

// AnswererConfig wires an LLMAnswerer.
type AnswererConfig struct {
	Model model.BaseChatModel
	// History is optional; without it every question is answered alone.
	History store.ConversationStore
	// HistoryDepth is the number of prior turns replayed. Defaults to 5.
	HistoryDepth int
	// MaxContextTokens defaults to budget.DefaultMaxContextTokens.
	MaxContextTokens int
}

// LLMAnswerer phrases query results with a chat model, replaying earlier
// turns of the same session.
type LLMAnswerer struct {
	model            model.BaseChatModel
	history          store.ConversationStore
	historyDepth     int
	maxContextTokens int
}

// NewLLMAnswerer validates cfg and returns an LLMAnswerer.
func NewLLMAnswerer(cfg *AnswererConfig) (*LLMAnswerer, error) {
	if cfg.Model == nil {
		return nil, errors.New("sqlagent: answer model must not be nil")
	}
	depth := cfg.HistoryDepth
	if depth <= 0 {
		depth = 5
	}
	maxCtx := cfg.MaxContextTokens
	if maxCtx <= 0 {
		maxCtx = budget.DefaultMaxContextTokens
	}
	return &LLMAnswerer{
		model:            cfg.Model,
		history:          cfg.History,
		historyDepth:     depth,
		maxContextTokens: maxCtx,
	}, nil
}

// Answer implements Answerer. History failures are logged and ignored.
func (a *LLMAnswerer) Answer(ctx context.Context, session, question, query, result string) (string, error) {
	log := logging.FromContext(ctx)

	msgs := a.buildMessages(ctx, session, question, query, result)
	out, err := a.model.Generate(ctx, msgs)
	if err != nil {
		return "", err
	}
	answer := strings.TrimSpace(out.Content)

	if a.history != nil {
		if err := a.history.Append(ctx, session, store.RoleUser, question); err != nil {
			log.Warn("history: failed to persist question", slog.Any("error", err))
		}
		if err := a.history.Append(ctx, session, store.RoleAssistant, answer); err != nil {
			log.Warn("history: failed to persist answer", slog.Any("error", err))
		}
	}
	return answer, nil
}

// buildMessages orders the prompt as system, trimmed history, then the
// current question with its query and result.
func (a *LLMAnswerer) buildMessages(ctx context.Context, session, question, query, result string) []*schema.Message {
	log := logging.FromContext(ctx)

	system := schema.SystemMessage(answerPrompt)
	current := schema.UserMessage(fmt.Sprintf(
		"Given the user question, SQL query, and SQL result, answer the question.\n\nQuestion: %s\nSQL Query: %s\nSQL Result: %s",
		question, query, result))

	var history []*schema.Message
	if a.history != nil {
		prior, err := a.history.Recent(ctx, session, a.historyDepth*2)
		if err != nil {
			log.Warn("history: failed to load prior messages", slog.Any("error", err))
		}
		for _, m := range prior {
			switch m.Role {
			case store.RoleUser:
				history = append(history, schema.UserMessage(m.Content))
			case store.RoleAssistant:
				history = append(history, schema.AssistantMessage(m.Content, nil))
			}
		}
	}

	before := len(history)
	history = budget.TrimHistory([]*schema.Message{system, current}, history, a.maxContextTokens)
	if dropped := before - len(history); dropped > 0 {
		log.Warn("budget: dropped history messages to fit context window",
			slog.Int("dropped", dropped),
			slog.Int("retained", len(history)),
			slog.Int("max_tokens", a.maxContextTokens),
		)
	}

	msgs := make([]*schema.Message, 0, len(history)+2)
	msgs = append(msgs, system)
	msgs = append(msgs, history...)
	return append(msgs, current)
}
