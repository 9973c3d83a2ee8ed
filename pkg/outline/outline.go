// Package outline parses the document outline and resolves which
// sections a generation run covers.
//
// The outline is a plain text file with one section per line:
//
//	2 Theoretical framework
//	2.1 Social networks
//	2.1.1 Usage patterns
//
// The hierarchy level of a section is the number of dots in its number
// plus one. Blank lines and '#' comment lines are ignored; any other
// line that does not parse as "number title" is rejected with its line
// number, so a typo cannot silently drop a section from the run.
package outline

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Section is one entry of the outline.
type Section struct {
	// Number is the hierarchical section number, e.g. "2.1.3".
	Number string

	// Title is the section title.
	Title string

	// Level is the hierarchy depth (1 for "2", 2 for "2.1", ...).
	Level int

	// Line is the zero-based line number in the outline file.
	Line int
}

// ID returns a stable identifier derived from the section number.
func (s Section) ID() string {
	return "section_" + strings.ReplaceAll(s.Number, ".", "_")
}

// Heading returns the "number title" form used in generated documents.
func (s Section) Heading() string {
	return s.Number + " " + s.Title
}

// Outline is a parsed outline file.
type Outline struct {
	sections []Section
	byNumber map[string]int
}

var (
	numberPattern = regexp.MustCompile(`^(\d+(?:\.\d+)*)\s+(.+)$`)
	validNumber   = regexp.MustCompile(`^\d+(\.\d+)*$`)
)

// ValidNumber reports whether s is a well-formed section number.
func ValidNumber(s string) bool {
	return validNumber.MatchString(s)
}

// Level returns the hierarchy depth of a section number.
func Level(number string) int {
	return strings.Count(number, ".") + 1
}

// ParseFile reads and parses an outline file.
func ParseFile(path string) (*Outline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open outline %s: %w", path, err)
	}
	defer f.Close()

	sections := make([]Section, 0, 32)
	byNumber := make(map[string]int)

	scanner := bufio.NewScanner(f)
	lineNum := -1
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		match := numberPattern.FindStringSubmatch(line)
		if match == nil {
			return nil, fmt.Errorf("malformed outline line %d: %q (expected \"number title\", e.g. \"2.1 Social networks\")", lineNum+1, line)
		}

		number := match[1]
		title := strings.TrimSpace(match[2])

		if prev, dup := byNumber[number]; dup {
			return nil, fmt.Errorf("duplicate section %s at lines %d and %d", number, sections[prev].Line+1, lineNum+1)
		}

		byNumber[number] = len(sections)
		sections = append(sections, Section{
			Number: number,
			Title:  title,
			Level:  Level(number),
			Line:   lineNum,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read outline: %w", err)
	}

	if len(sections) == 0 {
		return nil, fmt.Errorf("outline %s contains no sections", path)
	}

	return &Outline{sections: sections, byNumber: byNumber}, nil
}

// Sections returns all sections in file order.
func (o *Outline) Sections() []Section {
	return o.sections
}

// Find returns the section with the given number.
func (o *Outline) Find(number string) (Section, bool) {
	idx, ok := o.byNumber[number]
	if !ok {
		return Section{}, false
	}
	return o.sections[idx], true
}

// Range returns the target section together with all of its deeper
// subsections, up to the next section at the same or a higher level.
func (o *Outline) Range(target string) ([]Section, error) {
	startIdx, ok := o.byNumber[target]
	if !ok {
		return nil, fmt.Errorf("section %s not found in outline", target)
	}

	targetLevel := Level(target)
	endIdx := len(o.sections)
	for i := startIdx + 1; i < len(o.sections); i++ {
		if o.sections[i].Level <= targetLevel {
			endIdx = i
			break
		}
	}

	return o.sections[startIdx:endIdx], nil
}

// Progress describes how much of the outline has been generated.
type Progress struct {
	Total     int
	Done      int
	Remaining []Section
}

// Progress reports outline completion given the set of section numbers
// that already have generated output.
func (o *Outline) Progress(done map[string]bool) Progress {
	p := Progress{Total: len(o.sections)}
	for _, s := range o.sections {
		if done[s.Number] {
			p.Done++
		} else {
			p.Remaining = append(p.Remaining, s)
		}
	}
	return p
}
