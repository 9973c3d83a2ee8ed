package main

import (
	"context"
	"fmt"

	"marco/pkg/agent"
	"marco/pkg/config"
	"marco/pkg/embedders"
	"marco/pkg/generator"
	"marco/pkg/llms"
	"marco/pkg/outline"
	"marco/pkg/rag"
	"marco/pkg/study"
	"marco/pkg/vector"
	"marco/pkg/workflow"
)

// loadConfig resolves the config file path and loads it. A missing file
// yields the full default configuration.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.DefaultConfigFile
	}
	return config.LoadFile(path)
}

// app bundles the wired components commands operate on. Only what a
// command asks for is constructed.
type app struct {
	cfg      *config.Config
	llm      llms.Provider
	embedder embedders.Embedder
	store    vector.Provider
	library  *rag.Library
}

// newApp wires the RAG stack: embedder, vector store and library.
// The LLM provider is attached separately because most commands never
// generate anything.
func newApp(cfg *config.Config) (*app, error) {
	embedder, err := embedders.NewOllamaEmbedderFromConfig(&cfg.Embedder)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	store, err := vector.NewProvider(&cfg.VectorStore, cfg.Workspace.VectorsDir())
	if err != nil {
		embedder.Close()
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	chunker, err := rag.NewChunker(&cfg.Chunking)
	if err != nil {
		embedder.Close()
		store.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		embedder: embedder,
		store:    store,
		library:  rag.NewLibrary(store, embedder, chunker, cfg.VectorStore.Collection),
	}, nil
}

func (a *app) Close() {
	if a.llm != nil {
		a.llm.Close()
	}
	if a.embedder != nil {
		a.embedder.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}

// withLLM attaches the generation model.
func (a *app) withLLM() error {
	llm, err := llms.NewOllamaProviderFromConfig(&a.cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create LLM provider: %w", err)
	}
	a.llm = llm
	return nil
}

// loadStudy reads the study inputs, honoring the research-context
// toggle, and pulls in the optional style exemplar.
func (a *app) loadStudy(ctx context.Context) (*study.Study, error) {
	st, err := study.Load(&a.cfg.Workspace)
	if err != nil {
		return nil, err
	}
	if !a.cfg.Generation.IncludeContext() {
		st.ResearchContext = ""
	}
	if err := st.LoadStyleGuide(ctx, a.cfg.Workspace.StyleExample); err != nil {
		return nil, err
	}
	return st, nil
}

// newGenerator builds the full generation stack for one run.
func (a *app) newGenerator(o *outline.Outline, st *study.Study) *generator.Generator {
	pipeline := workflow.NewPipeline(
		agent.NewResearcher(a.llm, a.cfg.Agent(config.AgentResearcher), st, a.library),
		agent.NewContentEditor(a.llm, a.cfg.Agent(config.AgentContentEditor), st),
		agent.NewStyleEditor(a.llm, a.cfg.Agent(config.AgentStyleEditor), st),
		agent.NewReviewer(a.llm, a.cfg.Agent(config.AgentReviewer), st, a.cfg.Workflow.QualityThreshold),
		a.cfg.Workflow,
	)

	return generator.New(o, st, a.library, pipeline, &a.cfg.Workspace, a.cfg.Generation)
}
