package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"marco/pkg/config"
	"marco/pkg/llms"
	"marco/pkg/outline"
	"marco/pkg/study"
	"marco/pkg/utils"
)

// Problem tags the reviewer can raise. The workflow reassigns the draft
// to the phase that owns the problem.
const (
	ProblemCoherence = "narrative_coherence"
	ProblemCitations = "citation_format"
	ProblemVariables = "variable_coverage"
	ProblemTooShort  = "insufficient_length"
)

// minReviewableChars is the length below which content is rejected
// without consulting the model.
const minReviewableChars = 800

// reviewExcerptChars caps how much content goes into the review prompt.
const reviewExcerptChars = 2000

// Review is the reviewer's verdict on a draft.
type Review struct {
	Approved    bool
	Score       float64
	Problems    []string
	Suggestions []string
}

// Reviewer evaluates draft quality and decides whether a section is
// ready or which agent must rework it.
type Reviewer struct {
	base
	threshold float64
}

// NewReviewer creates the review agent. Drafts scoring below threshold
// are rejected.
func NewReviewer(llm llms.Provider, cfg config.AgentConfig, st *study.Study, threshold float64) *Reviewer {
	return &Reviewer{
		base:      newBase(config.AgentReviewer, llm, cfg, st),
		threshold: threshold,
	}
}

// Review evaluates the content of a section draft.
//
// Very short drafts are rejected outright. Otherwise the model is asked
// for a structured verdict; if the response cannot be parsed the draft
// is approved on length alone, since a substantial draft is worth more
// than a lost parse.
func (r *Reviewer) Review(ctx context.Context, content string, section outline.Section) (Review, error) {
	if len(content) < minReviewableChars {
		return Review{
			Approved:    false,
			Score:       0.3,
			Problems:    []string{ProblemTooShort},
			Suggestions: []string{"expand the analysis", "add more sources", "develop the concepts further"},
		}, nil
	}

	excerpt := content
	if len(excerpt) > reviewExcerptChars {
		excerpt = utils.Truncate(excerpt, reviewExcerptChars) + "..."
	}

	prompt := fmt.Sprintf(`Review the following draft for the section %q of a theoretical framework.

RESEARCH VARIABLES: %s

DRAFT:
%s

Evaluate: academic rigor and conceptual depth, narrative coherence and
logical structure, relevance to the research variables, citation quality,
and clarity of academic style.

RESPOND EXACTLY IN THIS FORMAT:
APPROVED: [YES/NO]
SCORE: [0.0-1.0]
PROBLEMS: [comma-separated from: %s, %s, %s; or NONE]
SUGGESTIONS: [comma-separated list]`,
		section.Title, r.study.VariablesLine(), excerpt,
		ProblemCoherence, ProblemCitations, ProblemVariables)

	response, err := r.generate(ctx, prompt)
	if err != nil {
		return Review{}, err
	}

	review, ok := parseReview(response)
	if !ok {
		// Unparseable verdict on a substantial draft: approve.
		return Review{Approved: true, Score: 0.7}, nil
	}

	if review.Score < r.threshold {
		review.Approved = false
		if len(review.Problems) == 0 {
			review.Problems = []string{ProblemCoherence}
		}
	}

	return review, nil
}

// parseReview extracts the structured verdict from the model response.
func parseReview(response string) (Review, bool) {
	var review Review
	var sawApproved, sawScore bool

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "APPROVED":
			review.Approved = strings.EqualFold(value, "yes") || strings.EqualFold(value, "sí")
			sawApproved = true
		case "SCORE":
			if score, err := strconv.ParseFloat(value, 64); err == nil && score >= 0 && score <= 1 {
				review.Score = score
				sawScore = true
			}
		case "PROBLEMS":
			review.Problems = splitList(value)
		case "SUGGESTIONS":
			review.Suggestions = splitList(value)
		}
	}

	return review, sawApproved && sawScore
}

func splitList(value string) []string {
	if strings.EqualFold(strings.TrimSpace(value), "none") {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(strings.Trim(item, "[]"))
		if item != "" && !strings.EqualFold(item, "none") {
			items = append(items, item)
		}
	}
	return items
}
