// Package study loads the research study inputs: citation rules,
// research variables and the optional research context.
package study

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"marco/pkg/config"
	"marco/pkg/rag"
	"marco/pkg/utils"
)

// Study bundles the loaded research inputs.
type Study struct {
	// CitationRules is the citation policy prose given to the agents.
	CitationRules string

	// Variables are the research variables each section must address.
	Variables []string

	// ResearchContext is optional prose describing the study. Empty when
	// the context file does not exist.
	ResearchContext string

	// StyleGuide is an excerpt of an exemplar document the style editor
	// imitates. Empty when no style example is configured.
	StyleGuide string
}

// styleGuideMaxChars bounds the exemplar excerpt injected into prompts.
const styleGuideMaxChars = 3000

// Load reads the study inputs from the workspace.
//
// The citation rules file is required. The variables file is required
// but may contain only comments, which yields no variables. The research
// context file is optional.
func Load(ws *config.WorkspaceConfig) (*Study, error) {
	rules, err := os.ReadFile(ws.CitationRules)
	if err != nil {
		return nil, fmt.Errorf("failed to read citation rules %s: %w", ws.CitationRules, err)
	}

	variables, err := LoadVariables(ws.Variables)
	if err != nil {
		return nil, err
	}

	context, err := loadOptional(ws.ResearchContext)
	if err != nil {
		return nil, err
	}

	return &Study{
		CitationRules:   strings.TrimSpace(string(rules)),
		Variables:       variables,
		ResearchContext: context,
	}, nil
}

// LoadVariables reads the research variables file: one variable per
// line, blank lines and '#' comments ignored.
func LoadVariables(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read variables %s: %w", path, err)
	}
	defer f.Close()

	var variables []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		variables = append(variables, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read variables: %w", err)
	}

	return variables, nil
}

// LoadStyleGuide extracts prose from the exemplar document and keeps a
// bounded excerpt. A missing file leaves the guide empty; a file that
// exists but cannot be parsed is an error.
func (s *Study) LoadStyleGuide(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	text, err := rag.ExtractText(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to load style example %s: %w", path, err)
	}

	s.StyleGuide = utils.Truncate(strings.TrimSpace(text), styleGuideMaxChars)
	return nil
}

func loadOptional(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// ContextBlock formats the research context for injection into agent
// prompts. Empty when there is no context.
func (s *Study) ContextBlock() string {
	if s.ResearchContext == "" {
		return ""
	}
	return "\n\n# RESEARCH CONTEXT\n" + s.ResearchContext + "\n"
}

// VariablesLine joins the variables for use in prompts and file headers.
func (s *Study) VariablesLine() string {
	return strings.Join(s.Variables, ", ")
}
