// Package scaffold provisions a research workspace from a declarative
// manifest: prerequisite checks followed by directory and file
// scaffolds. Applying the manifest twice is a no-op.
package scaffold

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Status of one manifest step after Apply.
type Status string

const (
	StatusOK      Status = "ok"
	StatusCreated Status = "created"
	StatusExists  Status = "exists"
	StatusWarning Status = "warning"
	StatusFailed  Status = "failed"
)

// Check is a prerequisite probe. Required checks abort provisioning
// when they fail; optional ones only mark a warning.
type Check struct {
	Name     string
	Required bool
	Probe    func(ctx context.Context) error
}

// Dir declares a directory that must exist.
type Dir struct {
	Path string
}

// File declares a file created with default content ONLY if absent.
// Existing files are never overwritten.
type File struct {
	Path    string
	Content string
}

// Manifest is the desired state of a workspace.
type Manifest struct {
	Checks []Check
	Dirs   []Dir
	Files  []File
}

// StepResult reports the outcome of one step.
type StepResult struct {
	Name   string
	Status Status
	Detail string
}

// Report collects all step results of an Apply run.
type Report struct {
	Results []StepResult
}

func (r *Report) add(name string, status Status, detail string) {
	r.Results = append(r.Results, StepResult{Name: name, Status: status, Detail: detail})
}

// Failed reports whether any step failed.
func (r *Report) Failed() bool {
	for _, result := range r.Results {
		if result.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Summary renders the report for terminal output.
func (r *Report) Summary() string {
	var sb strings.Builder
	for _, result := range r.Results {
		mark := map[Status]string{
			StatusOK:      "ok",
			StatusCreated: "created",
			StatusExists:  "exists",
			StatusWarning: "warning",
			StatusFailed:  "FAILED",
		}[result.Status]

		fmt.Fprintf(&sb, "  %-10s %s", mark, result.Name)
		if result.Detail != "" {
			fmt.Fprintf(&sb, " (%s)", result.Detail)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Apply runs the manifest: checks first, then directories, then files.
// A failing required check stops before any file content is written;
// directories are not created either in that case.
func (m *Manifest) Apply(ctx context.Context) (*Report, error) {
	report := &Report{}

	for _, check := range m.Checks {
		err := check.Probe(ctx)
		switch {
		case err == nil:
			report.add(check.Name, StatusOK, "")
		case check.Required:
			report.add(check.Name, StatusFailed, err.Error())
			return report, fmt.Errorf("required check %q failed: %w", check.Name, err)
		default:
			report.add(check.Name, StatusWarning, err.Error())
			slog.Warn("Optional check failed", "check", check.Name, "error", err)
		}
	}

	for _, dir := range m.Dirs {
		if info, err := os.Stat(dir.Path); err == nil && info.IsDir() {
			report.add(dir.Path, StatusExists, "")
			continue
		}
		if err := os.MkdirAll(dir.Path, 0755); err != nil {
			report.add(dir.Path, StatusFailed, err.Error())
			return report, fmt.Errorf("failed to create directory %s: %w", dir.Path, err)
		}
		report.add(dir.Path, StatusCreated, "")
	}

	for _, file := range m.Files {
		if _, err := os.Stat(file.Path); err == nil {
			report.add(file.Path, StatusExists, "")
			continue
		}
		if err := os.MkdirAll(filepath.Dir(file.Path), 0755); err != nil {
			report.add(file.Path, StatusFailed, err.Error())
			return report, fmt.Errorf("failed to create directory for %s: %w", file.Path, err)
		}
		if err := os.WriteFile(file.Path, []byte(file.Content), 0644); err != nil {
			report.add(file.Path, StatusFailed, err.Error())
			return report, fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
		report.add(file.Path, StatusCreated, "")
	}

	return report, nil
}
