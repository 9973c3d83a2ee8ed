package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"marco/pkg/config"
	"marco/pkg/llms"
	"marco/pkg/study"
)

// StyleEditor rewrites drafts into polished academic prose and formats
// citations according to the study's citation rules.
type StyleEditor struct {
	base
}

// NewStyleEditor creates the styling agent.
func NewStyleEditor(llm llms.Provider, cfg config.AgentConfig, st *study.Study) *StyleEditor {
	return &StyleEditor{base: newBase(config.AgentStyleEditor, llm, cfg, st)}
}

// Improve rewrites the content for academic style without adding new
// information. The prompt insists on returning only the improved text
// because smaller models tend to echo instructions back.
func (e *StyleEditor) Improve(ctx context.Context, content string) (string, error) {
	var sb strings.Builder
	sb.WriteString(`Improve the academic style of the text below. Produce ONLY the improved
text, with no commentary on the editing process and none of these
instructions echoed back.

Guidelines:
- Formal academic vocabulary and smooth transitions between paragraphs.
- Remove duplications; consolidate repeated references.
- Keep ALL substantive content. Do NOT invent new information.
`)

	if e.study.CitationRules != "" {
		sb.WriteString("\nCITATION RULES:\n")
		sb.WriteString(e.study.CitationRules)
		sb.WriteString("\n")
	}

	if e.study.StyleGuide != "" {
		sb.WriteString("\nSTYLE EXAMPLE (match the register, transitions and paragraph flow of this excerpt):\n")
		sb.WriteString(e.study.StyleGuide)
		sb.WriteString("\n")
	}

	sb.WriteString("\nTEXT TO IMPROVE:\n")
	sb.WriteString(content)

	improved, err := e.generate(ctx, sb.String())
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(improved) == "" {
		return content, nil
	}
	return improved, nil
}

// FormatCitations applies the citation rules to every citation in the
// content and appends a reference list built from the given sources.
func (e *StyleEditor) FormatCitations(ctx context.Context, content string, sources []string) (string, error) {
	var sb strings.Builder
	sb.WriteString("Format every citation in the text below according to the citation rules,\n")
	sb.WriteString("and append a reference list for the sources actually cited.\n\n")

	if e.study.CitationRules != "" {
		sb.WriteString("CITATION RULES:\n")
		sb.WriteString(e.study.CitationRules)
		sb.WriteString("\n\n")
	}

	if len(sources) > 0 {
		sb.WriteString("AVAILABLE SOURCES:\n")
		for _, source := range sources {
			fmt.Fprintf(&sb, "- %s\n", source)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("TEXT:\n")
	sb.WriteString(content)

	formatted, err := e.generate(ctx, sb.String())
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(formatted) == "" {
		return content, nil
	}
	return formatted, nil
}

// FormatScores are heuristic per-aspect scores in [0, 1].
type FormatScores struct {
	Citations  float64
	Paragraphs float64
	Tone       float64
	References float64
}

// Overall averages the aspect scores.
func (s FormatScores) Overall() float64 {
	return (s.Citations + s.Paragraphs + s.Tone + s.References) / 4
}

var (
	parentheticalCite = regexp.MustCompile(`\([A-Z][^,)]*,\s*\d{4}\)`)
	narrativeCite     = regexp.MustCompile(`[A-Z][a-z]+\s*\(\d{4}\)`)
	citeYear          = regexp.MustCompile(`\d{4}`)
)

var informalPhrases = []string{
	"i think", "i believe", "obviously", "clearly", "everyone knows",
}

var academicConnectors = []string{
	"according to", "therefore", "however", "moreover", "furthermore",
	"consequently", "in contrast", "likewise",
}

// ValidateFormatting scores the content without calling the model. Used
// for quick diagnostics in status output and tests.
func (e *StyleEditor) ValidateFormatting(content string) FormatScores {
	return FormatScores{
		Citations:  checkCitations(content),
		Paragraphs: checkParagraphs(content),
		Tone:       checkTone(content),
		References: checkReferenceSpread(content),
	}
}

func checkCitations(content string) float64 {
	total := len(parentheticalCite.FindAllString(content, -1)) +
		len(narrativeCite.FindAllString(content, -1))
	if total == 0 {
		return 0.5
	}
	return 1.0
}

func checkParagraphs(content string) float64 {
	paragraphs := strings.Split(content, "\n\n")
	var nonEmpty, good int
	for _, p := range paragraphs {
		if strings.TrimSpace(p) == "" {
			continue
		}
		nonEmpty++
		words := len(strings.Fields(p))
		if words >= 50 && words <= 200 {
			good++
		}
	}
	if nonEmpty == 0 {
		return 0
	}
	return float64(good) / float64(nonEmpty)
}

func checkTone(content string) float64 {
	lower := strings.ToLower(content)

	var academic, informal int
	for _, phrase := range academicConnectors {
		if strings.Contains(lower, phrase) {
			academic++
		}
	}
	for _, phrase := range informalPhrases {
		if strings.Contains(lower, phrase) {
			informal++
		}
	}

	total := academic + informal
	if total == 0 {
		return 0.8
	}
	return float64(academic) / float64(total)
}

// checkReferenceSpread rewards temporal diversity in citations.
func checkReferenceSpread(content string) float64 {
	citations := parentheticalCite.FindAllString(content, -1)
	if len(citations) == 0 {
		return 0.5
	}

	years := make(map[string]bool)
	for _, c := range citations {
		if y := citeYear.FindString(c); y != "" {
			years[y] = true
		}
	}

	ratio := float64(len(years)) / float64(len(citations))
	if ratio > 1 {
		ratio = 1
	}
	return ratio
}
