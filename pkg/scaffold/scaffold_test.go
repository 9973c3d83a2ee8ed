package scaffold

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testManifest(dir string, checks []Check) *Manifest {
	return &Manifest{
		Checks: checks,
		Dirs: []Dir{
			{Path: filepath.Join(dir, "bibliography")},
			{Path: filepath.Join(dir, "outputs")},
		},
		Files: []File{
			{Path: filepath.Join(dir, "config", "outline.txt"), Content: "2 Framework\n"},
			{Path: filepath.Join(dir, "config", "variables.txt"), Content: "#placeholder\n"},
		},
	}
}

func TestApply_CreatesWorkspace(t *testing.T) {
	dir := t.TempDir()
	m := testManifest(dir, nil)

	report, err := m.Apply(context.Background())
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if report.Failed() {
		t.Fatalf("report has failures:\n%s", report.Summary())
	}

	for _, result := range report.Results {
		if result.Status != StatusCreated {
			t.Errorf("%s status = %s, want created", result.Name, result.Status)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, "config", "outline.txt"))
	if err != nil {
		t.Fatalf("outline not written: %v", err)
	}
	if string(data) != "2 Framework\n" {
		t.Errorf("outline content = %q", data)
	}
}

func TestApply_Idempotent(t *testing.T) {
	dir := t.TempDir()
	m := testManifest(dir, nil)

	if _, err := m.Apply(context.Background()); err != nil {
		t.Fatalf("first Apply() error = %v", err)
	}

	// Edit a scaffolded file; the second run must not overwrite it.
	outlinePath := filepath.Join(dir, "config", "outline.txt")
	if err := os.WriteFile(outlinePath, []byte("2 Edited by user\n"), 0644); err != nil {
		t.Fatal(err)
	}

	report, err := m.Apply(context.Background())
	if err != nil {
		t.Fatalf("second Apply() error = %v", err)
	}

	for _, result := range report.Results {
		if result.Status != StatusExists {
			t.Errorf("%s status = %s on re-run, want exists", result.Name, result.Status)
		}
	}

	data, _ := os.ReadFile(outlinePath)
	if string(data) != "2 Edited by user\n" {
		t.Error("re-run overwrote a user-edited file")
	}
}

func TestApply_RequiredCheckAborts(t *testing.T) {
	dir := t.TempDir()
	m := testManifest(dir, []Check{
		{
			Name:     "daemon",
			Required: true,
			Probe: func(ctx context.Context) error {
				return fmt.Errorf("connection refused")
			},
		},
	})

	report, err := m.Apply(context.Background())
	if err == nil {
		t.Fatal("Apply() should fail when a required check fails")
	}
	if !report.Failed() {
		t.Error("report should record the failure")
	}

	// Nothing was scaffolded
	if _, statErr := os.Stat(filepath.Join(dir, "bibliography")); !os.IsNotExist(statErr) {
		t.Error("directories were created despite failed required check")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "config", "outline.txt")); !os.IsNotExist(statErr) {
		t.Error("files were written despite failed required check")
	}
}

func TestApply_OptionalCheckWarns(t *testing.T) {
	dir := t.TempDir()
	m := testManifest(dir, []Check{
		{
			Name: "model gemma2:27b",
			Probe: func(ctx context.Context) error {
				return fmt.Errorf("model not found")
			},
		},
	})

	report, err := m.Apply(context.Background())
	if err != nil {
		t.Fatalf("Apply() error = %v, optional check must not abort", err)
	}

	if report.Results[0].Status != StatusWarning {
		t.Errorf("check status = %s, want warning", report.Results[0].Status)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "bibliography")); statErr != nil {
		t.Error("scaffolding should proceed past an optional check failure")
	}

	if !strings.Contains(report.Summary(), "warning") {
		t.Errorf("summary missing warning line:\n%s", report.Summary())
	}
}

func TestDefaultOutlineIsWellFormed(t *testing.T) {
	for i, line := range strings.Split(strings.TrimSpace(defaultOutline), "\n") {
		number, _, found := strings.Cut(line, " ")
		if !found {
			t.Errorf("line %d has no title: %q", i+1, line)
			continue
		}
		for _, part := range strings.Split(number, ".") {
			if part == "" {
				t.Errorf("line %d has malformed number %q", i+1, number)
			}
		}
	}
}
