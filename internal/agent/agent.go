// Package agent implements the question-answering workflow over indexed
// Supreme Court decisions.
//
// A question first goes through a routing step: retrieval-worthy questions
// are searched against the case index, everything else (greetings, questions
// about the assistant) is answered directly. Retrieved context is graded for
// relevance; irrelevant context sends the question through a bounded
// rewrite-and-retry loop before the final grounded answer is generated in
// Bahasa Indonesia with its cited decision numbers.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lexicon-id/putusan/internal/rag"
	"github.com/lexicon-id/putusan/internal/session"
)

// DefaultMaxRewrites bounds the rewrite loop. After the budget is spent the
// answer is generated from the last retrieved context, relevant or not,
// rather than looping again.
const DefaultMaxRewrites = 2

// Sentinel errors for agent operations.
var (
	// ErrEmptyMessage indicates the user message was empty or whitespace.
	ErrEmptyMessage = errors.New("empty user message")

	// ErrExecutionFailed indicates the workflow failed.
	ErrExecutionFailed = errors.New("execution failed")
)

// Answer is the workflow result.
type Answer struct {
	// Response is the answer text, including the appended reference block
	// when court documents were cited.
	Response string
	// References lists the cited decision numbers, empty when the answer
	// did not use retrieved context.
	References []string
}

// Retriever is the retrieval dependency of the workflow.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]rag.RetrievedCase, error)
}

// Agent runs the workflow. It is safe for concurrent use.
type Agent struct {
	llm         llm
	retriever   Retriever
	sessions    *session.Store
	maxRewrites int
	logger      *slog.Logger
}

// Config contains the required parameters for New.
type Config struct {
	LLM         llm
	Retriever   Retriever
	Sessions    *session.Store
	MaxRewrites int // <0 means DefaultMaxRewrites; 0 disables rewriting
	Logger      *slog.Logger
}

// New creates an Agent.
func New(cfg Config) (*Agent, error) {
	if cfg.LLM == nil {
		return nil, errors.New("agent: LLM is required")
	}
	if cfg.Retriever == nil {
		return nil, errors.New("agent: retriever is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("agent: session store is required")
	}
	maxRewrites := cfg.MaxRewrites
	if maxRewrites < 0 {
		maxRewrites = DefaultMaxRewrites
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		llm:         cfg.LLM,
		retriever:   cfg.Retriever,
		sessions:    cfg.Sessions,
		maxRewrites: maxRewrites,
		logger:      logger,
	}, nil
}

// Ask answers userMessage within the given thread and records both turns in
// the thread history.
func (a *Agent) Ask(ctx context.Context, threadID, userMessage string) (*Answer, error) {
	userMessage = strings.TrimSpace(userMessage)
	if userMessage == "" {
		return nil, ErrEmptyMessage
	}

	start := time.Now()
	history := a.sessions.History(threadID)

	answer, err := a.run(ctx, history, userMessage)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutionFailed, err)
	}

	a.sessions.Append(threadID,
		session.Message{Role: session.RoleUser, Content: userMessage},
		session.Message{Role: session.RoleAssistant, Content: answer.Response},
	)

	a.logger.Info("answered question",
		"thread_id", threadID,
		"references", len(answer.References),
		"duration", time.Since(start).String())
	return answer, nil
}

func (a *Agent) run(ctx context.Context, history []session.Message, userMessage string) (*Answer, error) {
	dec, err := a.llm.decide(ctx, history, userMessage)
	if err != nil {
		return nil, err
	}

	if dec.Action == actionAnswer {
		a.logger.Debug("answering without retrieval")
		return &Answer{Response: dec.Response}, nil
	}

	question := dec.Query
	if strings.TrimSpace(question) == "" {
		question = userMessage
	}

	docs, err := a.retrieveRelevant(ctx, question)
	if err != nil {
		return nil, err
	}

	generated, err := a.llm.generate(ctx, history, userMessage, docs)
	if err != nil {
		return nil, err
	}

	return &Answer{
		Response:   appendReferences(generated.Response, generated.CourtDocumentSources),
		References: generated.CourtDocumentSources,
	}, nil
}

// retrieveRelevant retrieves context for question, rewriting the query up to
// maxRewrites times while the grader judges the context irrelevant. The last
// context is returned even when never graded relevant; generation handles
// "I don't know" from there.
func (a *Agent) retrieveRelevant(ctx context.Context, question string) (string, error) {
	var docs string
	for attempt := 0; ; attempt++ {
		cases, err := a.retriever.Retrieve(ctx, question)
		if err != nil {
			return "", err
		}
		docs = rag.FormatContext(cases)

		relevant, err := a.llm.grade(ctx, question, docs)
		if err != nil {
			return "", err
		}
		if relevant {
			a.logger.Debug("retrieved context graded relevant", "attempt", attempt+1)
			return docs, nil
		}
		if attempt >= a.maxRewrites {
			a.logger.Warn("rewrite budget exhausted, generating from last context",
				"attempts", attempt+1)
			return docs, nil
		}

		question, err = a.llm.rewrite(ctx, question)
		if err != nil {
			return "", err
		}
		a.logger.Debug("rewrote question", "attempt", attempt+1)
	}
}

// appendReferences appends the cited decision numbers to the response body,
// one per line under a "Referensi" heading.
func appendReferences(response string, references []string) string {
	if len(references) == 0 {
		return response
	}
	var b strings.Builder
	b.WriteString(response)
	b.WriteString("\n\nReferensi:\n")
	for _, ref := range references {
		b.WriteString("\n- ")
		b.WriteString(ref)
	}
	return b.String()
}
