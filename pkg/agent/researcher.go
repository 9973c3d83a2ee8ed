package agent

import (
	"context"
	"fmt"
	"strings"

	"marco/pkg/config"
	"marco/pkg/llms"
	"marco/pkg/outline"
	"marco/pkg/rag"
	"marco/pkg/study"
	"marco/pkg/utils"
)

// researchTopK is how many bibliography passages the researcher pulls
// per section.
const researchTopK = 15

// Citation is a verifiable reference extracted from an indexed source.
// Only citations derived from real passages are handed to the content
// editor, so the draft cannot invent references.
type Citation struct {
	Title   string
	Excerpt string
}

// Analysis is the researcher's output for a section.
type Analysis struct {
	Text      string
	Sources   []rag.Passage
	Citations []Citation
}

// Researcher analyzes section requirements and gathers source material
// from the bibliography.
type Researcher struct {
	base
	library Retriever
}

// NewResearcher creates the research agent.
func NewResearcher(llm llms.Provider, cfg config.AgentConfig, st *study.Study, library Retriever) *Researcher {
	return &Researcher{
		base:    newBase(config.AgentResearcher, llm, cfg, st),
		library: library,
	}
}

// Analyze studies what a section needs, retrieves the most relevant
// bibliography passages and extracts citable references from them.
func (r *Researcher) Analyze(ctx context.Context, section outline.Section) (*Analysis, error) {
	var sb strings.Builder
	sb.WriteString("Analyze the requirements for developing the following section of a theoretical framework:\n\n")
	fmt.Fprintf(&sb, "SECTION: %s\nLEVEL: %d\n", section.Title, section.Level)
	fmt.Fprintf(&sb, "RESEARCH VARIABLES: %s\n\n", r.study.VariablesLine())
	sb.WriteString(`Cover, in order:
1. Fundamental concepts that must be defined, with the theoretical debates around them.
2. The main theories and explanatory models the section should draw on.
3. Which research variables this section must ground and how.
4. Relevant research methodologies and validated instruments.
5. Gaps or contradictions in the literature worth noting.

Suggest specific search terms and key authors to look for.
Produce a thorough, structured analysis.`)

	text, err := r.generate(ctx, sb.String())
	if err != nil {
		return nil, err
	}

	sources, err := r.library.QuerySection(ctx, section.Title, r.study.Variables, researchTopK)
	if err != nil {
		return nil, fmt.Errorf("source retrieval failed: %w", err)
	}

	return &Analysis{
		Text:      text,
		Sources:   sources,
		Citations: extractCitations(sources),
	}, nil
}

// Search retrieves bibliography passages for an ad-hoc query.
func (r *Researcher) Search(ctx context.Context, query string, topK int) ([]rag.Passage, error) {
	return r.library.Query(ctx, query, topK)
}

// KeyConcepts asks the model to distill the central concepts of a text,
// one per line.
func (r *Researcher) KeyConcepts(ctx context.Context, text string) ([]string, error) {
	prompt := fmt.Sprintf(`Extract the key academic concepts from the following text.
Return one concept per line, no numbering, no commentary.

TEXT:
%s`, text)

	response, err := r.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var concepts []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-*• "))
		if line != "" {
			concepts = append(concepts, line)
		}
	}
	return concepts, nil
}

// gapSampleK is how many passages the gap analysis samples to judge the
// bibliography's actual coverage, not just its titles.
const gapSampleK = 8

// GapAnalysis reports what the current bibliography fails to cover for
// a topic, judging both the source list and a sample of indexed content.
func (r *Researcher) GapAnalysis(ctx context.Context, topic string, sources []string) (string, error) {
	passages, err := r.Search(ctx, topic, gapSampleK)
	if err != nil {
		return "", fmt.Errorf("coverage sampling failed: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Given the bibliography currently available for the topic %q:\n\n", topic)
	for _, source := range sources {
		fmt.Fprintf(&sb, "- %s\n", source)
	}

	if len(passages) > 0 {
		sb.WriteString("\nSAMPLE OF INDEXED CONTENT:\n")
		for _, p := range passages {
			fmt.Fprintf(&sb, "[%s] %s\n", p.Source, utils.Truncate(p.Content, 200))
		}
	}

	sb.WriteString(`
Identify the aspects of the topic these sources do not cover, contradictions
between them, and the kinds of additional sources that would close the gaps.`)

	return r.generate(ctx, sb.String())
}

// extractCitations maps retrieved passages to citations the content
// editor is allowed to use. Prior-context passages are not citable.
func extractCitations(passages []rag.Passage) []Citation {
	seen := make(map[string]bool)
	var citations []Citation
	for _, p := range passages {
		if p.Kind != rag.KindBibliography || seen[p.Source] {
			continue
		}
		seen[p.Source] = true

		excerpt := p.Content
		if len(excerpt) > 200 {
			excerpt = utils.Truncate(excerpt, 200) + "..."
		}
		citations = append(citations, Citation{Title: p.Source, Excerpt: excerpt})
	}
	return citations
}
