package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/lexicon-id/putusan/internal/session"
)

// Model call actions.
const (
	actionRetrieve = "retrieve"
	actionAnswer   = "answer"
)

// decision is the routing output: retrieve from the case index, or answer
// directly without retrieval.
type decision struct {
	Action string `json:"action"` // "retrieve" or "answer"
	// Query is the search query when Action is "retrieve".
	Query string `json:"query,omitempty"`
	// Response is the final answer (Bahasa Indonesia) when Action is "answer".
	Response string `json:"response,omitempty"`
}

// relevanceGrade is the binary relevance score for retrieved context.
type relevanceGrade struct {
	// BinaryScore is 'yes' when the document is relevant to the question.
	BinaryScore string `json:"binary_score"`
}

// rewrittenQuestion is the output of the query rewriter.
type rewrittenQuestion struct {
	Question string `json:"question"`
}

// groundedAnswer is the final structured answer.
type groundedAnswer struct {
	// Response is the final answer in Bahasa Indonesia.
	Response string `json:"response"`
	// CourtDocumentSources lists the Nomor Dokumen Putusan cited by the
	// answer. Must exist in the given context.
	CourtDocumentSources []string `json:"court_document_sources"`
}

// llm abstracts the model calls of the workflow so Agent can be tested
// without a provider.
type llm interface {
	decide(ctx context.Context, history []session.Message, question string) (decision, error)
	grade(ctx context.Context, question, docs string) (bool, error)
	rewrite(ctx context.Context, question string) (string, error)
	generate(ctx context.Context, history []session.Message, question, docs string) (groundedAnswer, error)
}

// GenkitLLM implements llm on a Genkit instance with structured output.
type GenkitLLM struct {
	g           *genkit.Genkit
	modelName   string // provider-qualified, e.g. "openai/gpt-4o-mini"
	temperature float32
	retry       RetryConfig
	logger      *slog.Logger
}

// NewGenkitLLM wires the workflow's model calls to Genkit.
func NewGenkitLLM(g *genkit.Genkit, modelName string, temperature float32, retry RetryConfig, logger *slog.Logger) *GenkitLLM {
	if retry == (RetryConfig{}) {
		retry = DefaultRetryConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GenkitLLM{
		g:           g,
		modelName:   modelName,
		temperature: temperature,
		retry:       retry,
		logger:      logger,
	}
}

func (l *GenkitLLM) config() *ai.GenerationCommonConfig {
	return &ai.GenerationCommonConfig{Temperature: float64(l.temperature)}
}

// historyMessages converts stored chat turns to model messages.
func historyMessages(history []session.Message) []*ai.Message {
	messages := make([]*ai.Message, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case session.RoleAssistant:
			messages = append(messages, ai.NewModelMessage(ai.NewTextPart(m.Content)))
		default:
			messages = append(messages, ai.NewUserMessage(ai.NewTextPart(m.Content)))
		}
	}
	return messages
}

func (l *GenkitLLM) decide(ctx context.Context, history []session.Message, question string) (decision, error) {
	messages := append(historyMessages(history), ai.NewUserMessage(ai.NewTextPart(question)))

	resp, err := l.generateWithRetry(ctx, func() (*ai.ModelResponse, error) {
		return genkit.Generate(ctx, l.g,
			ai.WithModelName(l.modelName),
			ai.WithSystem(decidePrompt),
			ai.WithMessages(messages...),
			ai.WithConfig(l.config()),
			ai.WithOutputType(decision{}),
		)
	})
	if err != nil {
		return decision{}, fmt.Errorf("routing question: %w", err)
	}

	var out decision
	if err := resp.Output(&out); err != nil {
		return decision{}, fmt.Errorf("parsing routing decision: %w", err)
	}
	if out.Action != actionAnswer {
		// Unknown actions default to retrieval; the empty query falls back
		// to the question itself in the workflow.
		out.Action = actionRetrieve
	}
	return out, nil
}

func (l *GenkitLLM) grade(ctx context.Context, question, docs string) (bool, error) {
	prompt := fmt.Sprintf(gradePrompt, docs, question)

	resp, err := l.generateWithRetry(ctx, func() (*ai.ModelResponse, error) {
		return genkit.Generate(ctx, l.g,
			ai.WithModelName(l.modelName),
			ai.WithMessages(ai.NewUserMessage(ai.NewTextPart(prompt))),
			ai.WithConfig(l.config()),
			ai.WithOutputType(relevanceGrade{}),
		)
	})
	if err != nil {
		return false, fmt.Errorf("grading documents: %w", err)
	}

	var out relevanceGrade
	if err := resp.Output(&out); err != nil {
		return false, fmt.Errorf("parsing relevance grade: %w", err)
	}
	return strings.EqualFold(strings.TrimSpace(out.BinaryScore), "yes"), nil
}

func (l *GenkitLLM) rewrite(ctx context.Context, question string) (string, error) {
	prompt := fmt.Sprintf(rewritePrompt, question)

	resp, err := l.generateWithRetry(ctx, func() (*ai.ModelResponse, error) {
		return genkit.Generate(ctx, l.g,
			ai.WithModelName(l.modelName),
			ai.WithMessages(ai.NewUserMessage(ai.NewTextPart(prompt))),
			ai.WithConfig(l.config()),
			ai.WithOutputType(rewrittenQuestion{}),
		)
	})
	if err != nil {
		return "", fmt.Errorf("rewriting question: %w", err)
	}

	var out rewrittenQuestion
	if err := resp.Output(&out); err != nil {
		return "", fmt.Errorf("parsing rewritten question: %w", err)
	}
	if strings.TrimSpace(out.Question) == "" {
		return question, nil
	}
	return out.Question, nil
}

func (l *GenkitLLM) generate(ctx context.Context, history []session.Message, question, docs string) (groundedAnswer, error) {
	prompt := fmt.Sprintf(generatePrompt, question, docs)
	messages := append(historyMessages(history), ai.NewUserMessage(ai.NewTextPart(prompt)))

	resp, err := l.generateWithRetry(ctx, func() (*ai.ModelResponse, error) {
		return genkit.Generate(ctx, l.g,
			ai.WithModelName(l.modelName),
			ai.WithMessages(messages...),
			ai.WithConfig(l.config()),
			ai.WithOutputType(groundedAnswer{}),
		)
	})
	if err != nil {
		return groundedAnswer{}, fmt.Errorf("generating answer: %w", err)
	}

	var out groundedAnswer
	if err := resp.Output(&out); err != nil {
		return groundedAnswer{}, fmt.Errorf("parsing answer: %w", err)
	}
	return out, nil
}
