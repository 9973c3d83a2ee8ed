// Package agent implements the four specialized agents that cooperate
// to produce a literature-review section: researcher, content editor,
// style editor and reviewer.
package agent

import (
	"context"
	"fmt"
	"strings"

	"marco/pkg/config"
	"marco/pkg/llms"
	"marco/pkg/rag"
	"marco/pkg/study"
)

// Retriever answers similarity queries against the bibliography.
// *rag.Library satisfies it.
type Retriever interface {
	QuerySection(ctx context.Context, sectionTitle string, variables []string, topK int) ([]rag.Passage, error)
	Query(ctx context.Context, query string, topK int) ([]rag.Passage, error)
}

// base carries what every agent needs: a model, its sampling budget and
// the study inputs that frame every prompt.
type base struct {
	name  string
	llm   llms.Provider
	cfg   config.AgentConfig
	study *study.Study
}

func newBase(name string, llm llms.Provider, cfg config.AgentConfig, st *study.Study) base {
	return base{name: name, llm: llm, cfg: cfg, study: st}
}

// generate runs a single completion with the agent's role as system
// message and the research context prepended to the prompt.
func (b *base) generate(ctx context.Context, prompt string) (string, error) {
	messages := []llms.Message{
		{Role: llms.RoleSystem, Content: "You are an " + b.cfg.Role + "."},
		{Role: llms.RoleUser, Content: b.study.ContextBlock() + prompt},
	}

	opts := llms.Options{
		Temperature: b.cfg.Temperature,
		MaxTokens:   b.cfg.MaxTokens,
	}

	text, _, err := b.llm.Generate(ctx, messages, opts)
	if err != nil {
		return "", fmt.Errorf("%s generation failed: %w", b.name, err)
	}
	return strings.TrimSpace(text), nil
}

// Name returns the agent's configured name.
func (b *base) Name() string { return b.name }
