// Command marco scaffolds a research workspace, indexes a bibliography
// into a local vector store and generates literature-review sections
// through a multi-agent pipeline over a local Ollama daemon.
//
// Usage:
//
//	marco init
//	marco generate 2.1
//	marco status
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"marco/pkg/config"
	"marco/pkg/logger"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Init     InitCmd     `cmd:"" help:"Provision the workspace (directories, default config, daemon checks)."`
	Generate GenerateCmd `cmd:"" help:"Generate a section and its subsections."`
	List     ListCmd     `cmd:"" help:"List the outline sections."`
	Status   StatusCmd   `cmd:"" help:"Show workspace and index status."`
	Stats    StatsCmd    `cmd:"" help:"Show generation progress and collection statistics."`
	Index    IndexCmd    `cmd:"" help:"Index or re-index the bibliography."`
	Watch    WatchCmd    `cmd:"" help:"Watch the bibliography folder and re-index on changes."`
	Clean    CleanCmd    `cmd:"" help:"Remove derived data (prior context, outputs, index)."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple or verbose)." default:"simple"`
}

// initLoggerFromCLI initializes logging before any command runs.
// Priority: CLI flags > environment > defaults.
func initLoggerFromCLI(cliLevel, cliFile, cliFormat string) (func(), error) {
	logLevel := cliLevel
	if logLevel == "" {
		logLevel = os.Getenv("LOG_LEVEL")
	}
	if logLevel == "" {
		logLevel = "info"
	}

	logFile := cliFile
	if logFile == "" {
		logFile = os.Getenv("LOG_FILE")
	}

	logFormat := cliFormat
	if logFormat == "" {
		logFormat = os.Getenv("LOG_FORMAT")
	}
	if logFormat == "" {
		logFormat = "simple"
	}

	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	output := os.Stderr
	var cleanup func()
	if logFile != "" {
		file, cleanupFn, err := logger.OpenLogFile(logFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = file
		cleanup = cleanupFn
	}

	logger.Init(level, output, logFormat)
	return cleanup, nil
}

func main() {
	_ = config.LoadEnvFiles()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("marco"),
		kong.Description("marco - academic literature-review assistant over a local Ollama daemon"),
		kong.UsageOnError(),
	)

	cleanup, err := initLoggerFromCLI(cli.LogLevel, cli.LogFile, cli.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	err = ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
