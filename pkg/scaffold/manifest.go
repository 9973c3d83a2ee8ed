package scaffold

import (
	"context"
	"fmt"

	"marco/pkg/config"
	"marco/pkg/ollama"
)

const defaultOutline = `2 Theoretical framework
2.1 Background of the study
2.1.1 International background
2.1.2 National background
2.2 Theoretical bases
2.2.1 First research variable
2.2.2 Second research variable
2.3 Definition of terms
`

const defaultCitationRules = `Citation policy (APA 7th edition, author-date):

- In-text citations: (Author, year) or Author (year).
- Two authors: join with "&" inside parentheses, "and" in prose.
- Three or more authors: first author followed by "et al."
- Direct quotes require a page number: (Author, year, p. N).
- Every in-text citation must appear in the reference list and vice versa.
- Only cite works present in the bibliography folder. Never invent sources.
`

const defaultVariables = `# Research variables, one per line.
# Lines starting with '#' are ignored.
# Replace these placeholders with the variables of your study:
#social network usage
#academic performance
`

const defaultResearchContext = `# Optional: describe your study here (population, design, objectives).
# This text is prepended to every agent prompt when present.
`

const defaultConfigFile = `# marco configuration. Every field is optional; defaults shown.

llm:
  model: gemma2:27b
  host: http://localhost:11434
  temperature: 0.3
  max_tokens: 4096

embedder:
  model: nomic-embed-text
  dimension: 768

vector_store:
  type: chromem
  collection: bibliography

chunking:
  strategy: overlapping
  chunk_size: 1000
  overlap: 200

workflow:
  max_attempts: 8
  quality_threshold: 0.7
`

// DefaultManifest builds the provisioning manifest for a workspace:
// daemon and model checks, workspace directories, and default config
// files written only when absent.
func DefaultManifest(cfg *config.Config, client *ollama.Client) *Manifest {
	ws := &cfg.Workspace

	return &Manifest{
		Checks: []Check{
			{
				Name:     "ollama daemon",
				Required: true,
				Probe: func(ctx context.Context) error {
					return client.Ping(ctx)
				},
			},
			{
				Name: "model " + cfg.LLM.Model,
				Probe: func(ctx context.Context) error {
					return probeModel(ctx, client, cfg.LLM.Model)
				},
			},
			{
				Name: "model " + cfg.Embedder.Model,
				Probe: func(ctx context.Context) error {
					return probeModel(ctx, client, cfg.Embedder.Model)
				},
			},
		},
		Dirs: []Dir{
			{Path: ws.Bibliography},
			{Path: ws.Outputs},
			{Path: ws.VectorsDir()},
		},
		Files: []File{
			{Path: ws.Outline, Content: defaultOutline},
			{Path: ws.CitationRules, Content: defaultCitationRules},
			{Path: ws.Variables, Content: defaultVariables},
			{Path: ws.ResearchContext, Content: defaultResearchContext},
			{Path: config.DefaultConfigFile, Content: defaultConfigFile},
		},
	}
}

func probeModel(ctx context.Context, client *ollama.Client, model string) error {
	ok, err := client.HasModel(ctx, model)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("model %s not found, run: ollama pull %s", model, model)
	}
	return nil
}
