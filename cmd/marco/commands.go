package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"marco/pkg/agent"
	"marco/pkg/config"
	"marco/pkg/generator"
	"marco/pkg/ollama"
	"marco/pkg/outline"
	"marco/pkg/rag"
	"marco/pkg/scaffold"
)

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("marco version %s\n", version)
	return nil
}

// InitCmd provisions the workspace.
type InitCmd struct{}

func (c *InitCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}

	client := ollama.NewClient(cfg.LLM.Host)
	manifest := scaffold.DefaultManifest(cfg, client)

	report, err := manifest.Apply(ctx)
	fmt.Println("Workspace provisioning:")
	fmt.Print(report.Summary())
	if err != nil {
		return err
	}

	fmt.Println("\nWorkspace ready. Put your bibliography in", cfg.Workspace.Bibliography,
		"and edit the files under config/, then run: marco index")
	return nil
}

// GenerateCmd generates a section and its subsections.
type GenerateCmd struct {
	Section      string `arg:"" help:"Section number from the outline (e.g. 2.1)."`
	ForceReindex bool   `name:"force-reindex" help:"Re-process the bibliography even if already indexed."`
}

func (c *GenerateCmd) Run(cli *CLI) error {
	if !outline.ValidNumber(c.Section) {
		return fmt.Errorf("invalid section number %q, expected a form like 2 or 2.1.3", c.Section)
	}

	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.withLLM(); err != nil {
		return err
	}

	o, err := outline.ParseFile(cfg.Workspace.Outline)
	if err != nil {
		return err
	}

	st, err := a.loadStudy(ctx)
	if err != nil {
		return err
	}
	if len(st.Variables) == 0 {
		fmt.Println("Note: no research variables configured in", cfg.Workspace.Variables)
	}

	if err := ensureIndex(ctx, a, c.ForceReindex); err != nil {
		return err
	}

	gen := a.newGenerator(o, st)
	if chunks, err := gen.LoadPriorContext(ctx); err != nil {
		return err
	} else if chunks > 0 {
		fmt.Printf("Loaded prior context (%d chunks)\n", chunks)
	}

	report, err := gen.Generate(ctx, c.Section)
	if err != nil {
		return err
	}

	fmt.Printf("\nGenerated %d section(s):\n", len(report.Sections))
	for _, s := range report.Sections {
		switch {
		case s.Failed:
			fmt.Printf("  %-8s %-40s FAILED\n", s.Section.Number, s.Section.Title)
		case s.Approved:
			fmt.Printf("  %-8s %-40s quality %.2f, %d words\n", s.Section.Number, s.Section.Title, s.Score, s.Words)
		default:
			fmt.Printf("  %-8s %-40s quality %.2f, %d words (not approved)\n", s.Section.Number, s.Section.Title, s.Score, s.Words)
		}
	}
	fmt.Println("\nOutput:", report.OutputPath)
	return nil
}

// ensureIndex indexes the bibliography if the collection is empty or a
// re-index was forced.
func ensureIndex(ctx context.Context, a *app, force bool) error {
	stats, err := a.library.Stats(ctx)
	if err == nil && stats.TotalChunks > 0 && !force {
		fmt.Printf("Using existing index (%d chunks)\n", stats.TotalChunks)
		return nil
	}

	if force && err == nil && stats.TotalChunks > 0 {
		fmt.Println("Forcing bibliography re-index...")
		if err := a.library.Clear(ctx); err != nil {
			return err
		}
	}

	return indexBibliography(ctx, a)
}

func indexBibliography(ctx context.Context, a *app) error {
	fmt.Println("Indexing bibliography from", a.cfg.Workspace.Bibliography)

	stats, err := a.library.IndexFolder(ctx, a.cfg.Workspace.Bibliography)
	if err != nil {
		return err
	}

	fmt.Printf("Indexed %d document(s), %d chunks\n", stats.Files, stats.Chunks)
	if len(stats.Skipped) > 0 {
		fmt.Println("Skipped:", strings.Join(stats.Skipped, ", "))
	}
	if stats.Files == 0 {
		return fmt.Errorf("no indexable documents in %s", a.cfg.Workspace.Bibliography)
	}
	return nil
}

// ListCmd lists the outline sections.
type ListCmd struct{}

func (c *ListCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}

	o, err := outline.ParseFile(cfg.Workspace.Outline)
	if err != nil {
		return err
	}

	done, err := generator.CompletedSections(cfg.Workspace.Outputs)
	if err != nil {
		return err
	}

	for _, s := range o.Sections() {
		mark := " "
		if done[s.Number] {
			mark = "*"
		}
		fmt.Printf("%s %s%s %s\n", mark, strings.Repeat("  ", s.Level-1), s.Number, s.Title)
	}
	fmt.Println("\n* = already generated")
	return nil
}

// StatusCmd shows workspace and index status.
type StatusCmd struct{}

func (c *StatusCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}

	client := ollama.NewClient(cfg.LLM.Host)
	if err := client.Ping(ctx); err != nil {
		fmt.Printf("Ollama daemon:  UNREACHABLE (%v)\n", err)
	} else {
		fmt.Printf("Ollama daemon:  ok (%s)\n", cfg.LLM.Host)
		for _, model := range []string{cfg.LLM.Model, cfg.Embedder.Model} {
			if ok, err := client.HasModel(ctx, model); err == nil && !ok {
				fmt.Printf("Model %s: MISSING (run: ollama pull %s)\n", model, model)
			}
		}
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if stats, err := a.library.Stats(ctx); err == nil {
		fmt.Printf("Vector store:   %s, collection %q, %d chunks\n", cfg.VectorStore.Type, stats.Collection, stats.TotalChunks)
	} else {
		fmt.Printf("Vector store:   error: %v\n", err)
	}

	done, err := generator.CompletedSections(cfg.Workspace.Outputs)
	if err != nil {
		return err
	}
	fmt.Printf("Outputs:        %d generated file(s) in %s\n", len(done), cfg.Workspace.Outputs)
	return nil
}

// StatsCmd shows generation progress and collection statistics.
type StatsCmd struct {
	Gaps bool `help:"Ask the model what the indexed bibliography fails to cover."`
}

func (c *StatsCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}

	o, err := outline.ParseFile(cfg.Workspace.Outline)
	if err != nil {
		return err
	}

	done, err := generator.CompletedSections(cfg.Workspace.Outputs)
	if err != nil {
		return err
	}

	progress := o.Progress(done)
	fmt.Printf("Sections: %d/%d generated\n", progress.Done, progress.Total)
	if len(progress.Remaining) > 0 {
		fmt.Println("Remaining:")
		for _, s := range progress.Remaining {
			fmt.Printf("  %s %s\n", s.Number, s.Title)
		}
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if stats, err := a.library.Stats(ctx); err == nil {
		fmt.Printf("Index: %d chunks in collection %q\n", stats.TotalChunks, stats.Collection)
	}

	if c.Gaps {
		return printGapAnalysis(ctx, a)
	}
	return nil
}

// printGapAnalysis asks the research agent what the indexed bibliography
// fails to cover for the configured research variables.
func printGapAnalysis(ctx context.Context, a *app) error {
	if err := a.withLLM(); err != nil {
		return err
	}

	st, err := a.loadStudy(ctx)
	if err != nil {
		return err
	}

	topic := st.VariablesLine()
	if topic == "" {
		topic = "the theoretical framework"
	}

	sources, err := a.library.Sources(ctx, topic, 50)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("no indexed bibliography to analyze, run: marco index")
	}

	researcher := agent.NewResearcher(a.llm, a.cfg.Agent(config.AgentResearcher), st, a.library)
	report, err := researcher.GapAnalysis(ctx, topic, sources)
	if err != nil {
		return err
	}

	fmt.Printf("\nBibliography gap analysis (%d sources):\n\n%s\n", len(sources), report)
	return nil
}

// IndexCmd indexes or re-indexes the bibliography.
type IndexCmd struct {
	Force bool `help:"Clear the collection before indexing."`
}

func (c *IndexCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if c.Force {
		if err := a.library.Clear(ctx); err != nil {
			return err
		}
	}

	return indexBibliography(ctx, a)
}

// WatchCmd watches the bibliography folder and re-indexes on changes.
type WatchCmd struct{}

func (c *WatchCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// Revalidate the config file on every edit while watching; a broken
	// marco.yaml is reported immediately.
	go func() {
		if err := config.Watch(ctx, cli.Config, nil); err != nil && ctx.Err() == nil {
			slog.Warn("Config watch stopped", "error", err)
		}
	}()

	fmt.Println("Watching", cfg.Workspace.Bibliography, "(Ctrl-C to stop)")
	watcher := rag.NewWatcher(a.library, cfg.Workspace.Bibliography)
	if err := watcher.Watch(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// CleanCmd removes derived data.
type CleanCmd struct {
	Context bool `help:"Remove prior-context chunks from the vector store."`
	Outputs bool `help:"Remove generated output files."`
	Index   bool `help:"Remove the whole vector collection."`
	All     bool `help:"Remove everything derived (context, outputs, index)."`
}

func (c *CleanCmd) Run(cli *CLI) error {
	if c.All {
		c.Context, c.Outputs, c.Index = true, true, true
	}
	if !c.Context && !c.Outputs && !c.Index {
		return fmt.Errorf("nothing to clean: pass --context, --outputs, --index or --all")
	}

	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}

	if c.Outputs {
		removed, err := generator.ClearOutputs(cfg.Workspace.Outputs)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d output file(s)\n", removed)
	}

	if c.Context || c.Index {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if c.Index {
			if err := a.library.Clear(ctx); err != nil {
				return err
			}
			fmt.Println("Vector collection removed")
		} else if c.Context {
			if err := a.library.ClearPriorContext(ctx); err != nil {
				return err
			}
			fmt.Println("Prior-context chunks removed")
		}
	}

	return nil
}
