package agent

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"marco/pkg/config"
	"marco/pkg/llms"
	"marco/pkg/outline"
	"marco/pkg/rag"
	"marco/pkg/study"
)

// fakeLLM returns scripted responses in order and records prompts.
type fakeLLM struct {
	responses []string
	calls     int
	prompts   []string
}

func (f *fakeLLM) Generate(ctx context.Context, messages []llms.Message, opts llms.Options) (string, int, error) {
	for _, m := range messages {
		if m.Role == llms.RoleUser {
			f.prompts = append(f.prompts, m.Content)
		}
	}
	response := "generated content"
	if f.calls < len(f.responses) {
		response = f.responses[f.calls]
	}
	f.calls++
	return response, 10, nil
}

func (f *fakeLLM) GenerateStreaming(ctx context.Context, messages []llms.Message, opts llms.Options) (<-chan llms.StreamChunk, error) {
	ch := make(chan llms.StreamChunk)
	close(ch)
	return ch, nil
}

func (f *fakeLLM) ModelName() string { return "fake" }
func (f *fakeLLM) Close() error      { return nil }

// fakeRetriever returns canned passages for every query.
type fakeRetriever struct {
	passages []rag.Passage
}

func (f *fakeRetriever) QuerySection(ctx context.Context, title string, variables []string, topK int) ([]rag.Passage, error) {
	return f.passages, nil
}

func (f *fakeRetriever) Query(ctx context.Context, query string, topK int) ([]rag.Passage, error) {
	return f.passages, nil
}

func testStudy() *study.Study {
	return &study.Study{
		CitationRules:   "Use APA 7th edition.",
		Variables:       []string{"sleep quality", "screen time"},
		ResearchContext: "Study on university students.",
	}
}

func agentConfig(name string) config.AgentConfig {
	cfg := config.AgentConfig{}
	cfg.SetDefaults(name)
	return cfg
}

func section() outline.Section {
	return outline.Section{Number: "2.1", Title: "Academic burnout", Level: 2}
}

func TestResearcher_Analyze(t *testing.T) {
	llm := &fakeLLM{responses: []string{"requirements analysis"}}
	retriever := &fakeRetriever{passages: []rag.Passage{
		{Content: strings.Repeat("burnout evidence ", 20), Source: "Garcia 2022.pdf", Kind: rag.KindBibliography},
		{Content: "prior section text", Source: "prior_context", Kind: rag.KindPriorContext},
		{Content: "more evidence", Source: "Garcia 2022.pdf", Kind: rag.KindBibliography},
	}}

	r := NewResearcher(llm, agentConfig(config.AgentResearcher), testStudy(), retriever)
	analysis, err := r.Analyze(context.Background(), section())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if analysis.Text != "requirements analysis" {
		t.Errorf("Text = %q", analysis.Text)
	}
	if len(analysis.Sources) != 3 {
		t.Errorf("Sources = %d, want 3", len(analysis.Sources))
	}
	// Prior-context passages are not citable, duplicates collapse
	if len(analysis.Citations) != 1 {
		t.Fatalf("Citations = %d, want 1", len(analysis.Citations))
	}
	if analysis.Citations[0].Title != "Garcia 2022.pdf" {
		t.Errorf("citation title = %q", analysis.Citations[0].Title)
	}

	prompt := llm.prompts[0]
	if !strings.Contains(prompt, "Academic burnout") {
		t.Error("prompt missing section title")
	}
	if !strings.Contains(prompt, "sleep quality") {
		t.Error("prompt missing research variables")
	}
	if !strings.Contains(prompt, "Study on university students") {
		t.Error("prompt missing research context")
	}
}

func TestExtractCitations_ExcerptKeepsRuneBoundary(t *testing.T) {
	passages := []rag.Passage{{
		Content: strings.Repeat("educación superior ", 20),
		Source:  "Fernandez 2023.pdf",
		Kind:    rag.KindBibliography,
	}}

	citations := extractCitations(passages)
	if len(citations) != 1 {
		t.Fatalf("got %d citations, want 1", len(citations))
	}
	if !utf8.ValidString(citations[0].Excerpt) {
		t.Errorf("excerpt is not valid UTF-8: %q", citations[0].Excerpt)
	}
	if len(citations[0].Excerpt) > 203 {
		t.Errorf("excerpt length = %d, want at most 200 plus ellipsis", len(citations[0].Excerpt))
	}
}

func TestResearcher_KeyConcepts(t *testing.T) {
	llm := &fakeLLM{responses: []string{"- burnout\n- emotional exhaustion\n\ncynicism"}}
	r := NewResearcher(llm, agentConfig(config.AgentResearcher), testStudy(), &fakeRetriever{})

	concepts, err := r.KeyConcepts(context.Background(), "some text")
	if err != nil {
		t.Fatalf("KeyConcepts() error = %v", err)
	}
	want := []string{"burnout", "emotional exhaustion", "cynicism"}
	if len(concepts) != len(want) {
		t.Fatalf("got %d concepts, want %d: %v", len(concepts), len(want), concepts)
	}
	for i := range want {
		if concepts[i] != want[i] {
			t.Errorf("concept %d = %q, want %q", i, concepts[i], want[i])
		}
	}
}

func TestContentEditor_Draft(t *testing.T) {
	llm := &fakeLLM{}
	e := NewContentEditor(llm, agentConfig(config.AgentContentEditor), testStudy())

	sources := []rag.Passage{{Content: "source passage", Source: "Lopez 2021.pdf", Kind: rag.KindBibliography}}
	citations := []Citation{{Title: "Lopez 2021.pdf"}}

	if _, err := e.Draft(context.Background(), section(), sources, citations, ModePrincipal); err != nil {
		t.Fatalf("Draft() error = %v", err)
	}

	prompt := llm.prompts[0]
	if !strings.Contains(prompt, "Lopez 2021.pdf") {
		t.Error("prompt missing source")
	}
	if !strings.Contains(prompt, "never invent") {
		t.Error("prompt missing citation whitelist instruction")
	}
	if !strings.Contains(prompt, "Use APA 7th edition.") {
		t.Error("prompt missing citation rules")
	}

	if _, err := e.Draft(context.Background(), section(), nil, nil, "expansive"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestContentEditor_DraftAll(t *testing.T) {
	llm := &fakeLLM{responses: []string{"principal part", "comparative part", "variables part"}}
	e := NewContentEditor(llm, agentConfig(config.AgentContentEditor), testStudy())

	content, err := e.DraftAll(context.Background(), section(), nil, nil)
	if err != nil {
		t.Fatalf("DraftAll() error = %v", err)
	}
	if content != "principal part\n\ncomparative part\n\nvariables part" {
		t.Errorf("DraftAll() = %q", content)
	}
	if llm.calls != 3 {
		t.Errorf("llm calls = %d, want 3", llm.calls)
	}
}

func TestStyleEditor_ImproveKeepsContentOnEmptyResponse(t *testing.T) {
	llm := &fakeLLM{responses: []string{"   "}}
	e := NewStyleEditor(llm, agentConfig(config.AgentStyleEditor), testStudy())

	improved, err := e.Improve(context.Background(), "original draft")
	if err != nil {
		t.Fatalf("Improve() error = %v", err)
	}
	if improved != "original draft" {
		t.Errorf("Improve() = %q, want original back", improved)
	}
}

func TestStyleEditor_ImproveUsesStyleGuide(t *testing.T) {
	st := testStudy()
	st.StyleGuide = "The evidence converges on a gradual decline in engagement."

	llm := &fakeLLM{}
	e := NewStyleEditor(llm, agentConfig(config.AgentStyleEditor), st)

	if _, err := e.Improve(context.Background(), "draft text"); err != nil {
		t.Fatalf("Improve() error = %v", err)
	}

	prompt := llm.prompts[0]
	if !strings.Contains(prompt, "STYLE EXAMPLE") {
		t.Error("prompt missing style example block")
	}
	if !strings.Contains(prompt, st.StyleGuide) {
		t.Error("prompt missing exemplar prose")
	}
}

func TestStyleEditor_FormatCitations(t *testing.T) {
	llm := &fakeLLM{responses: []string{"formatted text\n\nReferences"}}
	e := NewStyleEditor(llm, agentConfig(config.AgentStyleEditor), testStudy())

	formatted, err := e.FormatCitations(context.Background(), "draft text", []string{"Garcia 2022.pdf"})
	if err != nil {
		t.Fatalf("FormatCitations() error = %v", err)
	}
	if formatted != "formatted text\n\nReferences" {
		t.Errorf("FormatCitations() = %q", formatted)
	}

	prompt := llm.prompts[0]
	if !strings.Contains(prompt, "Garcia 2022.pdf") {
		t.Error("prompt missing source list")
	}
	if !strings.Contains(prompt, "Use APA 7th edition.") {
		t.Error("prompt missing citation rules")
	}

	// A blank model response keeps the draft, like Improve.
	blank := &fakeLLM{responses: []string{"  "}}
	e = NewStyleEditor(blank, agentConfig(config.AgentStyleEditor), testStudy())
	formatted, err = e.FormatCitations(context.Background(), "draft text", nil)
	if err != nil {
		t.Fatalf("FormatCitations() error = %v", err)
	}
	if formatted != "draft text" {
		t.Errorf("FormatCitations() = %q, want draft back", formatted)
	}
}

func TestResearcher_GapAnalysis(t *testing.T) {
	llm := &fakeLLM{responses: []string{"gap report"}}
	retriever := &fakeRetriever{passages: []rag.Passage{
		{Content: "sampled burnout passage", Source: "Garcia 2022.pdf", Kind: rag.KindBibliography},
	}}
	r := NewResearcher(llm, agentConfig(config.AgentResearcher), testStudy(), retriever)

	report, err := r.GapAnalysis(context.Background(), "academic burnout", []string{"Garcia 2022.pdf", "Lopez 2021.pdf"})
	if err != nil {
		t.Fatalf("GapAnalysis() error = %v", err)
	}
	if report != "gap report" {
		t.Errorf("GapAnalysis() = %q", report)
	}

	prompt := llm.prompts[0]
	if !strings.Contains(prompt, "- Lopez 2021.pdf") {
		t.Error("prompt missing source list")
	}
	if !strings.Contains(prompt, "sampled burnout passage") {
		t.Error("prompt missing sampled passage")
	}
}

func TestStyleEditor_ValidateFormatting(t *testing.T) {
	e := NewStyleEditor(&fakeLLM{}, agentConfig(config.AgentStyleEditor), testStudy())

	para := strings.Repeat("scholarly word ", 40)
	content := "According to recent work, burnout rises (Garcia, 2022). However, " +
		para + "Moreover, evidence differs (Lopez, 2021).\n\n" + para

	scores := e.ValidateFormatting(content)
	if scores.Citations != 1.0 {
		t.Errorf("Citations = %v, want 1.0", scores.Citations)
	}
	if scores.Tone < 0.9 {
		t.Errorf("Tone = %v, want high", scores.Tone)
	}
	if scores.References != 1.0 {
		t.Errorf("References = %v, want 1.0 for distinct years", scores.References)
	}
	if overall := scores.Overall(); overall <= 0 || overall > 1 {
		t.Errorf("Overall() = %v out of range", overall)
	}

	// No citations at all lands mid-range, not zero
	bare := e.ValidateFormatting("plain text without any citation")
	if bare.Citations != 0.5 {
		t.Errorf("Citations = %v for bare text, want 0.5", bare.Citations)
	}
}

func TestReviewer_RejectsShortContent(t *testing.T) {
	llm := &fakeLLM{}
	r := NewReviewer(llm, agentConfig(config.AgentReviewer), testStudy(), 0.7)

	review, err := r.Review(context.Background(), "too short", section())
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if review.Approved {
		t.Error("short content should not be approved")
	}
	if len(review.Problems) != 1 || review.Problems[0] != ProblemTooShort {
		t.Errorf("Problems = %v, want [%s]", review.Problems, ProblemTooShort)
	}
	if llm.calls != 0 {
		t.Error("short content should not reach the model")
	}
}

func TestReviewer_ParsesVerdict(t *testing.T) {
	content := strings.Repeat("substantial academic prose ", 50)

	tests := []struct {
		name         string
		response     string
		wantApproved bool
		wantProblems []string
	}{
		{
			name:         "approved",
			response:     "APPROVED: YES\nSCORE: 0.9\nPROBLEMS: NONE\nSUGGESTIONS: tighten the intro",
			wantApproved: true,
		},
		{
			name:         "rejected with tags",
			response:     "APPROVED: NO\nSCORE: 0.4\nPROBLEMS: narrative_coherence, citation_format\nSUGGESTIONS: restructure",
			wantApproved: false,
			wantProblems: []string{ProblemCoherence, ProblemCitations},
		},
		{
			name:         "approved verdict below threshold is overridden",
			response:     "APPROVED: YES\nSCORE: 0.5\nPROBLEMS: NONE\nSUGGESTIONS: none",
			wantApproved: false,
			wantProblems: []string{ProblemCoherence},
		},
		{
			name:         "unparseable approves substantial draft",
			response:     "This looks fine to me overall.",
			wantApproved: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeLLM{responses: []string{tt.response}}
			r := NewReviewer(llm, agentConfig(config.AgentReviewer), testStudy(), 0.7)

			review, err := r.Review(context.Background(), content, section())
			if err != nil {
				t.Fatalf("Review() error = %v", err)
			}
			if review.Approved != tt.wantApproved {
				t.Errorf("Approved = %v, want %v", review.Approved, tt.wantApproved)
			}
			if len(tt.wantProblems) > 0 {
				if len(review.Problems) != len(tt.wantProblems) {
					t.Fatalf("Problems = %v, want %v", review.Problems, tt.wantProblems)
				}
				for i := range tt.wantProblems {
					if review.Problems[i] != tt.wantProblems[i] {
						t.Errorf("problem %d = %q, want %q", i, review.Problems[i], tt.wantProblems[i])
					}
				}
			}
		})
	}
}
