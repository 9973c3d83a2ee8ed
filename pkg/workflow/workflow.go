// Package workflow runs the multi-agent pipeline that turns an outline
// section into reviewed academic content.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"marco/pkg/agent"
	"marco/pkg/config"
	"marco/pkg/outline"
	"marco/pkg/rag"
)

// State is a pipeline phase.
type State string

const (
	StateResearching State = "researching"
	StateDrafting    State = "drafting"
	StateStyling     State = "styling"
	StateReviewing   State = "reviewing"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Result is the outcome of processing one section.
type Result struct {
	// Content is the final draft text.
	Content string

	// Approved reports whether the reviewer signed off. Substantial
	// content may be returned unapproved when attempts run out.
	Approved bool

	// Score is the reviewer's last quality score.
	Score float64

	// Sources lists the distinct bibliography titles consulted.
	Sources []string

	// Attempts is how many phase executions the section took.
	Attempts int
}

// Pipeline coordinates the four agents for one section at a time.
type Pipeline struct {
	researcher *agent.Researcher
	editor     *agent.ContentEditor
	styler     *agent.StyleEditor
	reviewer   *agent.Reviewer
	cfg        config.WorkflowConfig
}

// NewPipeline creates the section pipeline.
func NewPipeline(researcher *agent.Researcher, editor *agent.ContentEditor, styler *agent.StyleEditor, reviewer *agent.Reviewer, cfg config.WorkflowConfig) *Pipeline {
	return &Pipeline{
		researcher: researcher,
		editor:     editor,
		styler:     styler,
		reviewer:   reviewer,
		cfg:        cfg,
	}
}

// run-local shared state, reset per section.
type run struct {
	section   outline.Section
	state     State
	sources   []rag.Passage
	citations []agent.Citation
	drafts    []string
	review    agent.Review
	attempts  int
}

func (r *run) lastDraft() string {
	if len(r.drafts) == 0 {
		return ""
	}
	return r.drafts[len(r.drafts)-1]
}

// Run processes a section through research, drafting, styling and
// review. A reviewer rejection sends the draft back to the phase that
// owns the reported problem. When a phase fails but the current draft
// is already substantial, the pipeline moves on instead of retrying.
func (p *Pipeline) Run(ctx context.Context, section outline.Section) (Result, error) {
	r := &run{section: section, state: StateResearching}

	for r.state != StateDone && r.state != StateFailed && r.attempts < p.cfg.MaxAttempts {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		slog.Info("Workflow phase",
			"section", section.Number,
			"state", r.state,
			"attempt", r.attempts+1,
			"max_attempts", p.cfg.MaxAttempts)

		if err := p.step(ctx, r); err != nil {
			if len(r.lastDraft()) > p.cfg.MinPartialChars {
				slog.Warn("Phase failed with substantial draft, advancing",
					"section", section.Number, "state", r.state, "error", err)
				r.state = nextState(r.state)
			} else {
				slog.Warn("Phase failed, retrying",
					"section", section.Number, "state", r.state, "error", err)
			}
		}

		r.attempts++
	}

	return p.finish(r)
}

func (p *Pipeline) step(ctx context.Context, r *run) error {
	switch r.state {
	case StateResearching:
		analysis, err := p.researcher.Analyze(ctx, r.section)
		if err != nil {
			return err
		}
		r.sources = analysis.Sources
		r.citations = analysis.Citations
		slog.Info("Research complete",
			"section", r.section.Number,
			"sources", len(r.sources),
			"citations", len(r.citations))
		r.state = StateDrafting

	case StateDrafting:
		draft, err := p.editor.DraftAll(ctx, r.section, r.sources, r.citations)
		if err != nil {
			return err
		}
		r.drafts = append(r.drafts, draft)
		slog.Info("Draft complete", "section", r.section.Number, "chars", len(draft))
		r.state = StateStyling

	case StateStyling:
		styled, err := p.styler.Improve(ctx, r.lastDraft())
		if err != nil {
			return err
		}
		r.drafts = append(r.drafts, styled)

		formatted, err := p.styler.FormatCitations(ctx, styled, sourceTitles(r.sources))
		if err != nil {
			return err
		}
		r.drafts = append(r.drafts, formatted)
		r.state = StateReviewing

	case StateReviewing:
		review, err := p.reviewer.Review(ctx, r.lastDraft(), r.section)
		if err != nil {
			return err
		}
		r.review = review

		if review.Approved {
			slog.Info("Draft approved",
				"section", r.section.Number, "score", review.Score)
			r.state = StateDone
			return nil
		}

		slog.Warn("Draft rejected",
			"section", r.section.Number,
			"score", review.Score,
			"problems", strings.Join(review.Problems, ","))
		r.state = reassign(review.Problems)

	default:
		return fmt.Errorf("unexpected workflow state %q", r.state)
	}

	return nil
}

// reassign maps the first recognized problem tag to the phase that owns
// it. Unknown problems restart from drafting.
func reassign(problems []string) State {
	for _, problem := range problems {
		switch problem {
		case agent.ProblemCoherence, agent.ProblemTooShort:
			return StateDrafting
		case agent.ProblemCitations:
			return StateStyling
		case agent.ProblemVariables:
			return StateResearching
		}
	}
	return StateDrafting
}

func nextState(s State) State {
	switch s {
	case StateResearching:
		return StateDrafting
	case StateDrafting:
		return StateStyling
	case StateStyling:
		return StateReviewing
	default:
		return s
	}
}

func (p *Pipeline) finish(r *run) (Result, error) {
	result := Result{
		Content:  r.lastDraft(),
		Score:    r.review.Score,
		Sources:  sourceTitles(r.sources),
		Attempts: r.attempts,
	}

	switch {
	case r.state == StateDone:
		result.Approved = true
		return result, nil

	case len(result.Content) > p.cfg.MinPartialChars:
		// Attempts exhausted on substantial content: keep it.
		slog.Warn("Section not approved, keeping substantial draft",
			"section", r.section.Number,
			"chars", len(result.Content),
			"attempts", r.attempts)
		return result, nil

	default:
		return Result{}, fmt.Errorf("section %s not completed after %d attempts (state %s)",
			r.section.Number, r.attempts, r.state)
	}
}

func sourceTitles(passages []rag.Passage) []string {
	seen := make(map[string]bool)
	var titles []string
	for _, p := range passages {
		if p.Kind != rag.KindBibliography || seen[p.Source] {
			continue
		}
		seen[p.Source] = true
		titles = append(titles, p.Source)
	}
	return titles
}
