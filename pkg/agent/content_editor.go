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

// Draft modes. Each pass looks at the section from a different angle
// and the results are concatenated into one substantive draft.
const (
	ModePrincipal   = "principal"
	ModeComparative = "comparative"
	ModeVariables   = "variables"
)

// DraftModes lists the passes in generation order.
var DraftModes = []string{ModePrincipal, ModeComparative, ModeVariables}

// ContentEditor writes the substantive prose of a section from
// retrieved sources and authorized citations.
type ContentEditor struct {
	base
}

// NewContentEditor creates the drafting agent.
func NewContentEditor(llm llms.Provider, cfg config.AgentConfig, st *study.Study) *ContentEditor {
	return &ContentEditor{base: newBase(config.AgentContentEditor, llm, cfg, st)}
}

// Draft generates one pass of section content. Only the citations
// passed in may be referenced; the prompt states this explicitly so the
// model does not fabricate sources.
func (e *ContentEditor) Draft(ctx context.Context, section outline.Section, sources []rag.Passage, citations []Citation, mode string) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write academic content for the section %q of a theoretical framework.\n", section.Title)
	fmt.Fprintf(&sb, "RESEARCH VARIABLES: %s\n\n", e.study.VariablesLine())

	if len(sources) > 0 {
		sb.WriteString("SOURCE MATERIAL:\n")
		for i, source := range sources {
			if i >= 8 {
				break
			}
			excerpt := source.Content
			if len(excerpt) > 400 {
				excerpt = utils.Truncate(excerpt, 400) + "..."
			}
			fmt.Fprintf(&sb, "Source %d (%s): %s\n", i+1, source.Source, excerpt)
		}
		sb.WriteString("\n")
	}

	if len(citations) > 0 {
		sb.WriteString("AUTHORIZED CITATIONS (cite ONLY these works, never invent others):\n")
		for _, c := range citations {
			fmt.Fprintf(&sb, "- %s\n", c.Title)
		}
		sb.WriteString("\n")
	}

	switch mode {
	case ModePrincipal:
		sb.WriteString(`Produce the PRINCIPAL content (1200-1500 words):
1. Conceptual introduction with the main definitions.
2. Historical development of the concept.
3. Fundamental theories and current state of research.
4. Current debates and multiple disciplinary perspectives.
Structure it as an introductory paragraph, several development paragraphs,
critical analysis and a closing synthesis, grounded in the source material.`)

	case ModeComparative:
		sb.WriteString(`Produce a COMPARATIVE analysis (800-1000 words):
1. Contrast the main theoretical approaches.
2. Strengths and limitations of each.
3. Methodological contrasts and contemporary debates.
4. An integrative synthesis and identified research gaps.`)

	case ModeVariables:
		sb.WriteString(`Produce content connecting the section to the RESEARCH VARIABLES (600-800 words):
1. Operational definition of each variable in this section's context.
2. Validated measurement instruments.
3. Causal relations between the variables and supporting empirical evidence.
4. Theoretical models that incorporate them.`)

	default:
		return "", fmt.Errorf("unknown draft mode: %s", mode)
	}

	if e.study.CitationRules != "" {
		sb.WriteString("\n\nCITATION RULES:\n")
		sb.WriteString(e.study.CitationRules)
	}

	return e.generate(ctx, sb.String())
}

// DraftAll runs every pass and joins the non-empty results. A failing
// pass is skipped rather than aborting the draft, as long as at least
// one pass produced content.
func (e *ContentEditor) DraftAll(ctx context.Context, section outline.Section, sources []rag.Passage, citations []Citation) (string, error) {
	var parts []string
	var lastErr error

	for _, mode := range DraftModes {
		content, err := e.Draft(ctx, section, sources, citations, mode)
		if err != nil {
			lastErr = err
			continue
		}
		if strings.TrimSpace(content) != "" {
			parts = append(parts, content)
		}
	}

	if len(parts) == 0 {
		if lastErr != nil {
			return "", fmt.Errorf("all draft passes failed: %w", lastErr)
		}
		return "", fmt.Errorf("draft passes produced no content for section %s", section.Number)
	}

	return strings.Join(parts, "\n\n"), nil
}
