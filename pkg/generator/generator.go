// Package generator orchestrates a generation run: prior-context
// loading, section-range resolution, per-section workflow execution and
// output assembly.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"marco/pkg/config"
	"marco/pkg/outline"
	"marco/pkg/rag"
	"marco/pkg/study"
	"marco/pkg/utils"
	"marco/pkg/workflow"
)

// sectionRunner runs the multi-agent pipeline for one section.
// *workflow.Pipeline satisfies it.
type sectionRunner interface {
	Run(ctx context.Context, section outline.Section) (workflow.Result, error)
}

// Generator drives the generation of outline sections into output files.
type Generator struct {
	outline  *outline.Outline
	study    *study.Study
	library  *rag.Library
	pipeline sectionRunner
	ws       *config.WorkspaceConfig
	cfg      config.GenerationConfig
	tokens   *utils.TokenCounter
}

// New creates a generator.
func New(o *outline.Outline, st *study.Study, library *rag.Library, pipeline sectionRunner, ws *config.WorkspaceConfig, cfg config.GenerationConfig) *Generator {
	// Token counting is best effort; EstimateTokens covers the gap.
	tokens, err := utils.NewTokenCounter("gpt-4")
	if err != nil {
		tokens = nil
	}

	return &Generator{
		outline:  o,
		study:    st,
		library:  library,
		pipeline: pipeline,
		ws:       ws,
		cfg:      cfg,
		tokens:   tokens,
	}
}

// LoadPriorContext reads the most recent output files and feeds them
// into the vector store so new sections stay consistent with what was
// already written. Returns the number of prior-context chunks indexed.
func (g *Generator) LoadPriorContext(ctx context.Context) (int, error) {
	content, err := g.collectPriorContent()
	if err != nil {
		return 0, err
	}
	if content == "" {
		slog.Info("No prior output to load as context")
		return 0, nil
	}

	chunks, err := g.library.SetPriorContext(ctx, content)
	if err != nil {
		return 0, fmt.Errorf("failed to load prior context: %w", err)
	}
	return chunks, nil
}

// collectPriorContent gathers up to PriorContextFiles of the most
// recent outputs, capped at PriorContextMaxChars overall. A file is
// truncated into the remaining budget only when meaningful room is
// left; otherwise it is dropped.
func (g *Generator) collectPriorContent() (string, error) {
	entries, err := os.ReadDir(g.ws.Outputs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read outputs folder: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".md" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	if len(names) > g.cfg.PriorContextFiles {
		names = names[len(names)-g.cfg.PriorContextFiles:]
	}

	const minRemaining = 500

	var sb strings.Builder
	total := 0
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(g.ws.Outputs, name))
		if err != nil {
			slog.Warn("Failed to read prior output", "file", name, "error", err)
			continue
		}

		content := string(data)
		if total+len(content) > g.cfg.PriorContextMaxChars {
			remaining := g.cfg.PriorContextMaxChars - total
			if remaining <= minRemaining {
				break
			}
			content = utils.Truncate(content, remaining) + "...[truncated]"
		}

		fmt.Fprintf(&sb, "\n\n--- Content of %s ---\n", name)
		sb.WriteString(content)
		total += len(content)

		if total >= g.cfg.PriorContextMaxChars {
			break
		}
	}

	return sb.String(), nil
}

// SectionOutput summarizes one generated section.
type SectionOutput struct {
	Section  outline.Section
	Approved bool
	Score    float64
	Words    int
	Failed   bool
}

// RunReport is the outcome of a generation run.
type RunReport struct {
	OutputPath string
	Sections   []SectionOutput
}

// Generate produces content for the target section and its subsections
// and writes the assembled document to the outputs folder. A failing
// section is recorded in place so one bad section does not lose the
// rest of the run.
func (g *Generator) Generate(ctx context.Context, target string) (*RunReport, error) {
	sections, err := g.outline.Range(target)
	if err != nil {
		return nil, err
	}

	slog.Info("Generating sections", "target", target, "count", len(sections))

	var body strings.Builder
	report := &RunReport{}

	for _, section := range sections {
		slog.Info("Processing section", "number", section.Number, "title", section.Title)

		result, err := g.pipeline.Run(ctx, section)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Error("Section generation failed", "section", section.Number, "error", err)
			fmt.Fprintf(&body, "\n\n## %s\n\nGeneration failed: %v\n", section.Heading(), err)
			report.Sections = append(report.Sections, SectionOutput{Section: section, Failed: true})
			continue
		}

		words := len(strings.Fields(result.Content))
		fmt.Fprintf(&body, "\n\n## %s\n\n%s\n", section.Heading(), result.Content)
		fmt.Fprintf(&body, "\n<!-- quality: %.2f, words: %d, tokens: %d, sources: %s -->\n",
			result.Score, words, g.countTokens(result.Content), strings.Join(result.Sources, "; "))

		report.Sections = append(report.Sections, SectionOutput{
			Section:  section,
			Approved: result.Approved,
			Score:    result.Score,
			Words:    words,
		})
	}

	path, err := g.save(target, sections, body.String())
	if err != nil {
		return nil, err
	}
	report.OutputPath = path
	return report, nil
}

// save writes the assembled document with its metadata header.
func (g *Generator) save(target string, sections []outline.Section, body string) (string, error) {
	if err := os.MkdirAll(g.ws.Outputs, 0755); err != nil {
		return "", fmt.Errorf("failed to create outputs folder: %w", err)
	}

	numbers := make([]string, len(sections))
	for i, s := range sections {
		numbers[i] = s.Number
	}

	header := fmt.Sprintf(`# Literature Review - Section %s

**Generated:** %s
**Sections:** %s
**Research variables:** %s

---
`,
		target,
		time.Now().Format("2006-01-02 15:04:05"),
		strings.Join(numbers, ", "),
		g.study.VariablesLine())

	filename := strings.ReplaceAll(target, ".", "_") + ".md"
	path := filepath.Join(g.ws.Outputs, filename)

	if err := os.WriteFile(path, []byte(header+body), 0644); err != nil {
		return "", fmt.Errorf("failed to write output %s: %w", path, err)
	}

	slog.Info("Output written", "path", path, "sections", len(sections))
	return path, nil
}

func (g *Generator) countTokens(text string) int {
	if g.tokens != nil {
		return g.tokens.Count(text)
	}
	return utils.EstimateTokens(text)
}

// CompletedSections scans the outputs folder and returns the section
// numbers that already have a generated file.
func CompletedSections(outputsDir string) (map[string]bool, error) {
	entries, err := os.ReadDir(outputsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, fmt.Errorf("failed to read outputs folder: %w", err)
	}

	done := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}
		base := strings.TrimSuffix(entry.Name(), ".md")
		number := strings.ReplaceAll(base, "_", ".")
		if outline.ValidNumber(number) {
			done[number] = true
		}
	}
	return done, nil
}

// ClearOutputs removes all generated output files.
func ClearOutputs(outputsDir string) (int, error) {
	entries, err := os.ReadDir(outputsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read outputs folder: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}
		if err := os.Remove(filepath.Join(outputsDir, entry.Name())); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
		removed++
	}
	return removed, nil
}
