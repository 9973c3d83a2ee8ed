package outline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleOutline = `
2 Theoretical framework
2.1 Social networks
2.1.1 Usage patterns
2.1.2 Platform comparison
2.2 Academic performance
2.2.1 Measurement instruments
3 Methodology
`

func writeOutline(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "outline.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write outline: %v", err)
	}
	return path
}

func TestParseFile(t *testing.T) {
	o, err := ParseFile(writeOutline(t, sampleOutline))
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}

	sections := o.Sections()
	if len(sections) != 7 {
		t.Fatalf("parsed %d sections, want 7", len(sections))
	}

	first := sections[0]
	if first.Number != "2" || first.Title != "Theoretical framework" || first.Level != 1 {
		t.Errorf("first section = %+v", first)
	}

	sub, ok := o.Find("2.1.1")
	if !ok {
		t.Fatal("section 2.1.1 not found")
	}
	if sub.Level != 3 {
		t.Errorf("2.1.1 level = %d, want 3", sub.Level)
	}
	if sub.Heading() != "2.1.1 Usage patterns" {
		t.Errorf("Heading() = %q", sub.Heading())
	}
	if sub.ID() != "section_2_1_1" {
		t.Errorf("ID() = %q", sub.ID())
	}
}

func TestParseFile_SkipsBlanksAndComments(t *testing.T) {
	o, err := ParseFile(writeOutline(t, "# chapter two\n\n2.1 Social networks\n"))
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if len(o.Sections()) != 1 {
		t.Errorf("parsed %d sections, want 1", len(o.Sections()))
	}
}

func TestParseFile_RejectsMalformedLines(t *testing.T) {
	tests := []struct {
		name    string
		content string
		line    string
	}{
		{"number glued to title", "2 Theoretical framework\n2.1Social networks\n2.2 Theoretical bases\n", "line 2"},
		{"number without title", "2 Theoretical framework\n2.1\n", "line 2"},
		{"stray prose", "Preamble text\n2.1 Social networks\n", "line 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFile(writeOutline(t, tt.content))
			if err == nil {
				t.Fatal("expected error for malformed line")
			}
			if !strings.Contains(err.Error(), tt.line) {
				t.Errorf("error %q does not name %s", err, tt.line)
			}
		})
	}
}

func TestParseFile_Duplicate(t *testing.T) {
	_, err := ParseFile(writeOutline(t, "2.1 First\n2.1 Duplicate\n"))
	if err == nil {
		t.Fatal("expected error for duplicate section number")
	}
}

func TestParseFile_Empty(t *testing.T) {
	if _, err := ParseFile(writeOutline(t, "\n\n")); err == nil {
		t.Fatal("expected error for outline with no sections")
	}
}

func TestRange(t *testing.T) {
	o, err := ParseFile(writeOutline(t, sampleOutline))
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}

	tests := []struct {
		target string
		want   []string
	}{
		{"2.1", []string{"2.1", "2.1.1", "2.1.2"}},
		{"2.1.1", []string{"2.1.1"}},
		{"2.2", []string{"2.2", "2.2.1"}},
		{"2", []string{"2", "2.1", "2.1.1", "2.1.2", "2.2", "2.2.1"}},
		{"3", []string{"3"}},
	}

	for _, tt := range tests {
		sections, err := o.Range(tt.target)
		if err != nil {
			t.Fatalf("Range(%s) error = %v", tt.target, err)
		}
		if len(sections) != len(tt.want) {
			t.Fatalf("Range(%s) = %d sections, want %d", tt.target, len(sections), len(tt.want))
		}
		for i, s := range sections {
			if s.Number != tt.want[i] {
				t.Errorf("Range(%s)[%d] = %s, want %s", tt.target, i, s.Number, tt.want[i])
			}
		}
	}
}

func TestRange_NotFound(t *testing.T) {
	o, _ := ParseFile(writeOutline(t, sampleOutline))
	if _, err := o.Range("9.9"); err == nil {
		t.Fatal("expected error for unknown section")
	}
}

func TestValidNumber(t *testing.T) {
	valid := []string{"2", "2.1", "2.1.1", "10.20.30"}
	invalid := []string{"", "2.", ".1", "2..1", "a.1", "2.1a"}

	for _, s := range valid {
		if !ValidNumber(s) {
			t.Errorf("ValidNumber(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if ValidNumber(s) {
			t.Errorf("ValidNumber(%q) = true, want false", s)
		}
	}
}

func TestProgress(t *testing.T) {
	o, _ := ParseFile(writeOutline(t, sampleOutline))

	p := o.Progress(map[string]bool{"2.1": true, "2.1.1": true})
	if p.Total != 7 {
		t.Errorf("Total = %d, want 7", p.Total)
	}
	if p.Done != 2 {
		t.Errorf("Done = %d, want 2", p.Done)
	}
	if len(p.Remaining) != 5 {
		t.Errorf("Remaining = %d, want 5", len(p.Remaining))
	}
}
