package workflow

import (
	"context"
	"strings"
	"testing"

	"marco/pkg/agent"
	"marco/pkg/config"
	"marco/pkg/llms"
	"marco/pkg/outline"
	"marco/pkg/rag"
	"marco/pkg/study"
)

// scriptedLLM replays responses in call order, falling back to a
// default once the script runs out.
type scriptedLLM struct {
	responses []string
	fallback  string
	calls     int
}

func (s *scriptedLLM) Generate(ctx context.Context, messages []llms.Message, opts llms.Options) (string, int, error) {
	response := s.fallback
	if s.calls < len(s.responses) {
		response = s.responses[s.calls]
	}
	s.calls++
	return response, 10, nil
}

func (s *scriptedLLM) GenerateStreaming(ctx context.Context, messages []llms.Message, opts llms.Options) (<-chan llms.StreamChunk, error) {
	ch := make(chan llms.StreamChunk)
	close(ch)
	return ch, nil
}

func (s *scriptedLLM) ModelName() string { return "scripted" }
func (s *scriptedLLM) Close() error      { return nil }

type staticRetriever struct{}

func (staticRetriever) QuerySection(ctx context.Context, title string, variables []string, topK int) ([]rag.Passage, error) {
	return []rag.Passage{
		{Content: "burnout passage", Source: "Garcia 2022.pdf", Kind: rag.KindBibliography},
		{Content: "sleep passage", Source: "Lopez 2021.pdf", Kind: rag.KindBibliography},
	}, nil
}

func (staticRetriever) Query(ctx context.Context, query string, topK int) ([]rag.Passage, error) {
	return nil, nil
}

func newTestPipeline(llm llms.Provider, cfg config.WorkflowConfig) *Pipeline {
	st := &study.Study{
		CitationRules: "APA 7th edition.",
		Variables:     []string{"sleep quality"},
	}

	agentCfg := func(name string) config.AgentConfig {
		c := config.AgentConfig{}
		c.SetDefaults(name)
		return c
	}

	return NewPipeline(
		agent.NewResearcher(llm, agentCfg(config.AgentResearcher), st, staticRetriever{}),
		agent.NewContentEditor(llm, agentCfg(config.AgentContentEditor), st),
		agent.NewStyleEditor(llm, agentCfg(config.AgentStyleEditor), st),
		agent.NewReviewer(llm, agentCfg(config.AgentReviewer), st, 0.7),
		cfg,
	)
}

func workflowConfig() config.WorkflowConfig {
	cfg := config.WorkflowConfig{}
	cfg.SetDefaults()
	return cfg
}

func testSection() outline.Section {
	return outline.Section{Number: "2.1", Title: "Academic burnout", Level: 2}
}

var longDraft = strings.Repeat("Substantial academic prose about burnout. ", 40)

const approvedVerdict = "APPROVED: YES\nSCORE: 0.9\nPROBLEMS: NONE\nSUGGESTIONS: none"

func TestPipeline_ApprovesOnFirstPass(t *testing.T) {
	formatted := strings.TrimSpace(longDraft) + "\n\nReferences\nGarcia, M. (2022). Burnout in higher education."

	llm := &scriptedLLM{responses: []string{
		"requirements analysis", // research
		longDraft,               // draft: principal
		longDraft,               // draft: comparative
		longDraft,               // draft: variables
		longDraft,               // style: improve
		formatted,               // style: citations + references
		approvedVerdict,         // review
	}}

	p := newTestPipeline(llm, workflowConfig())
	result, err := p.Run(context.Background(), testSection())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !result.Approved {
		t.Error("result not approved")
	}
	if result.Score != 0.9 {
		t.Errorf("Score = %v, want 0.9", result.Score)
	}
	if result.Attempts != 4 {
		t.Errorf("Attempts = %d, want 4 (one per phase)", result.Attempts)
	}
	if result.Content != formatted {
		t.Error("Content is not the citation-formatted draft")
	}
	if len(result.Sources) != 2 {
		t.Errorf("Sources = %v, want both bibliography titles", result.Sources)
	}
}

func TestPipeline_RejectionReassignsToStyling(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		"requirements analysis",
		longDraft, longDraft, longDraft, // draft passes
		longDraft, longDraft, // style: improve + citations
		"APPROVED: NO\nSCORE: 0.5\nPROBLEMS: citation_format\nSUGGESTIONS: fix citations",
		longDraft,                     // restyle after reassignment
		longDraft + " (Garcia, 2022)", // reformat citations
		approvedVerdict,
	}}

	p := newTestPipeline(llm, workflowConfig())
	result, err := p.Run(context.Background(), testSection())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !result.Approved {
		t.Error("result not approved after rework")
	}
	// research, draft, style, review, style, review
	if result.Attempts != 6 {
		t.Errorf("Attempts = %d, want 6", result.Attempts)
	}
	if !strings.Contains(result.Content, "(Garcia, 2022)") {
		t.Error("Content is not the reworked draft")
	}
}

func TestPipeline_VariableProblemRestartsResearch(t *testing.T) {
	llm := &scriptedLLM{
		responses: []string{
			"requirements analysis",
			longDraft, longDraft, longDraft,
			longDraft, longDraft,
			"APPROVED: NO\nSCORE: 0.4\nPROBLEMS: variable_coverage\nSUGGESTIONS: cover variables",
			"second analysis",
			longDraft, longDraft, longDraft,
			longDraft, longDraft,
			approvedVerdict,
		},
	}

	p := newTestPipeline(llm, workflowConfig())
	result, err := p.Run(context.Background(), testSection())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.Approved {
		t.Error("result not approved after full rework")
	}
	if result.Attempts != 8 {
		t.Errorf("Attempts = %d, want 8", result.Attempts)
	}
}

func TestPipeline_KeepsSubstantialUnapprovedDraft(t *testing.T) {
	// Reviewer never approves; attempts run out with a long draft.
	llm := &scriptedLLM{
		fallback: longDraft,
		responses: []string{
			"requirements analysis",
			longDraft, longDraft, longDraft,
			longDraft, longDraft,
			"APPROVED: NO\nSCORE: 0.4\nPROBLEMS: narrative_coherence\nSUGGESTIONS: restructure",
		},
	}

	cfg := workflowConfig()
	cfg.MaxAttempts = 5

	p := newTestPipeline(llm, cfg)
	result, err := p.Run(context.Background(), testSection())
	if err != nil {
		t.Fatalf("Run() error = %v, want substantial draft kept", err)
	}
	if result.Approved {
		t.Error("unapproved draft reported as approved")
	}
	if len(result.Content) < 500 {
		t.Errorf("Content length = %d, want substantial", len(result.Content))
	}
}

func TestPipeline_FailsWithoutSubstantialContent(t *testing.T) {
	// Every generation is too short to keep or approve.
	llm := &scriptedLLM{fallback: "tiny"}

	cfg := workflowConfig()
	cfg.MaxAttempts = 4

	p := newTestPipeline(llm, cfg)
	if _, err := p.Run(context.Background(), testSection()); err == nil {
		t.Fatal("Run() should fail when no substantial content was produced")
	}
}

func TestReassign(t *testing.T) {
	tests := []struct {
		problems []string
		want     State
	}{
		{[]string{agent.ProblemCoherence}, StateDrafting},
		{[]string{agent.ProblemCitations}, StateStyling},
		{[]string{agent.ProblemVariables}, StateResearching},
		{[]string{agent.ProblemTooShort}, StateDrafting},
		{[]string{"something_else"}, StateDrafting},
		{nil, StateDrafting},
	}

	for _, tt := range tests {
		if got := reassign(tt.problems); got != tt.want {
			t.Errorf("reassign(%v) = %s, want %s", tt.problems, got, tt.want)
		}
	}
}
