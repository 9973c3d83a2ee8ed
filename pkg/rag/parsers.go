package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"
)

// ParseResult is the outcome of extracting text from a source document.
type ParseResult struct {
	Success          bool
	Content          string
	Title            string
	Metadata         map[string]string
	Error            string
	ProcessingTimeMs int64
}

// ParserRegistry manages native document parsers for the bibliography
// formats: PDF, DOCX, XLSX and plain text.
type ParserRegistry struct {
	parsers []documentParser
}

type documentParser interface {
	CanParse(filePath string) bool
	Parse(ctx context.Context, filePath string, fileSize int64) (*ParseResult, error)
	SupportedExtensions() []string
}

// NewParserRegistry creates a registry with the built-in parsers.
func NewParserRegistry() *ParserRegistry {
	return &ParserRegistry{
		parsers: []documentParser{
			&pdfParser{},
			&officeParser{},
			&textParser{},
		},
	}
}

// ParseDocument finds the appropriate parser and extracts content.
func (r *ParserRegistry) ParseDocument(ctx context.Context, filePath string, fileSize int64) (*ParseResult, error) {
	for _, parser := range r.parsers {
		if parser.CanParse(filePath) {
			return parser.Parse(ctx, filePath, fileSize)
		}
	}
	return &ParseResult{
		Success: false,
		Error:   fmt.Sprintf("no parser available for file: %s", filepath.Ext(filePath)),
	}, nil
}

// SupportedExtensions returns all supported file extensions.
func (r *ParserRegistry) SupportedExtensions() []string {
	seen := make(map[string]bool)
	var result []string
	for _, parser := range r.parsers {
		for _, ext := range parser.SupportedExtensions() {
			if !seen[ext] {
				seen[ext] = true
				result = append(result, ext)
			}
		}
	}
	return result
}

// ExtractText parses a single document and returns its text content.
func ExtractText(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}

	result, err := NewParserRegistry().ParseDocument(ctx, path, info.Size())
	if err != nil {
		return "", err
	}
	if !result.Success {
		return "", fmt.Errorf("failed to extract text from %s: %s", path, result.Error)
	}
	return result.Content, nil
}

// CanParse reports whether any registered parser handles the file.
func (r *ParserRegistry) CanParse(filePath string) bool {
	for _, parser := range r.parsers {
		if parser.CanParse(filePath) {
			return true
		}
	}
	return false
}

// pdfParser handles PDF document extraction.
type pdfParser struct{}

func (p *pdfParser) CanParse(filePath string) bool {
	return strings.ToLower(filepath.Ext(filePath)) == ".pdf"
}

func (p *pdfParser) SupportedExtensions() []string {
	return []string{".pdf"}
}

func (p *pdfParser) Parse(ctx context.Context, filePath string, fileSize int64) (*ParseResult, error) {
	startTime := time.Now()

	file, err := os.Open(filePath)
	if err != nil {
		return &ParseResult{
			Success:          false,
			Error:            fmt.Sprintf("failed to open PDF file: %v", err),
			ProcessingTimeMs: time.Since(startTime).Milliseconds(),
		}, nil
	}
	defer file.Close()

	reader, err := pdf.NewReader(file, fileSize)
	if err != nil {
		return &ParseResult{
			Success:          false,
			Error:            fmt.Sprintf("failed to parse PDF: %v", err),
			ProcessingTimeMs: time.Since(startTime).Milliseconds(),
		}, nil
	}

	var contentParts []string
	totalPages := reader.NumPage()

	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		select {
		case <-ctx.Done():
			return &ParseResult{
				Success:          false,
				Error:            "context cancelled",
				ProcessingTimeMs: time.Since(startTime).Milliseconds(),
			}, ctx.Err()
		default:
		}

		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			contentParts = append(contentParts, fmt.Sprintf("--- Page %d (extraction failed: %v) ---", pageNum, err))
			continue
		}

		if strings.TrimSpace(text) != "" {
			contentParts = append(contentParts, fmt.Sprintf("--- Page %d ---\n%s", pageNum, text))
		}
	}

	content := strings.Join(contentParts, "\n\n")
	metadata := map[string]string{
		"pages": fmt.Sprintf("%d", totalPages),
		"type":  "PDF Document",
		"title": filepath.Base(filePath),
	}
	metadata["word_count"] = fmt.Sprintf("%d", len(strings.Fields(content)))

	return &ParseResult{
		Success:          true,
		Content:          content,
		Title:            metadata["title"],
		Metadata:         metadata,
		ProcessingTimeMs: time.Since(startTime).Milliseconds(),
	}, nil
}

// officeParser handles Word and Excel documents.
type officeParser struct{}

func (p *officeParser) CanParse(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	return ext == ".docx" || ext == ".xlsx"
}

func (p *officeParser) SupportedExtensions() []string {
	return []string{".docx", ".xlsx"}
}

func (p *officeParser) Parse(ctx context.Context, filePath string, fileSize int64) (*ParseResult, error) {
	startTime := time.Now()
	ext := strings.ToLower(filepath.Ext(filePath))

	var content, title string
	var metadata map[string]string

	switch ext {
	case ".docx":
		content, title, metadata = p.parseWordDocument(filePath)
	case ".xlsx":
		content, title, metadata = p.parseExcelDocument(ctx, filePath)
	default:
		return &ParseResult{
			Success:          false,
			Error:            fmt.Sprintf("unsupported Office format: %s", ext),
			ProcessingTimeMs: time.Since(startTime).Milliseconds(),
		}, nil
	}

	return &ParseResult{
		Success:          true,
		Content:          content,
		Title:            title,
		Metadata:         metadata,
		ProcessingTimeMs: time.Since(startTime).Milliseconds(),
	}, nil
}

func (p *officeParser) parseWordDocument(filePath string) (string, string, map[string]string) {
	title := filepath.Base(filePath)

	doc, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return fmt.Sprintf("Error parsing Word document: %v", err), title, map[string]string{}
	}
	defer doc.Close()

	content := doc.Editable().GetContent()
	metadata := map[string]string{
		"title":      title,
		"type":       "Word Document",
		"paragraphs": fmt.Sprintf("%d", len(strings.Split(content, "\n\n"))),
	}

	return content, title, metadata
}

func (p *officeParser) parseExcelDocument(ctx context.Context, filePath string) (string, string, map[string]string) {
	title := filepath.Base(filePath)

	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return fmt.Sprintf("Error parsing Excel document: %v", err), title, map[string]string{}
	}
	defer f.Close()

	var contentParts []string
	sheets := f.GetSheetList()
	metadata := map[string]string{
		"sheets": fmt.Sprintf("%d", len(sheets)),
		"title":  title,
		"type":   "Excel Spreadsheet",
	}

	for _, sheetName := range sheets {
		select {
		case <-ctx.Done():
			return strings.Join(contentParts, "\n\n"), title, metadata
		default:
		}

		var sheetText strings.Builder
		sheetText.WriteString(fmt.Sprintf("--- Sheet: %s ---\n", sheetName))

		rows, err := f.GetRows(sheetName)
		if err != nil {
			sheetText.WriteString(fmt.Sprintf("Error reading sheet: %v\n", err))
			continue
		}

		cellCount := 0
		maxCells := 1000 // cap per sheet to avoid huge outputs

		for rowIndex, row := range rows {
			if cellCount >= maxCells {
				sheetText.WriteString("... (truncated)\n")
				break
			}
			for colIndex, cell := range row {
				if cellCount >= maxCells {
					break
				}
				if text := strings.TrimSpace(cell); text != "" {
					cellRef := fmt.Sprintf("%s%d", columnLetter(colIndex), rowIndex+1)
					sheetText.WriteString(fmt.Sprintf("%s: %s\n", cellRef, text))
					cellCount++
				}
			}
		}

		if text := strings.TrimSpace(sheetText.String()); text != "" {
			contentParts = append(contentParts, text)
		}
	}

	return strings.Join(contentParts, "\n\n"), title, metadata
}

// columnLetter converts a 0-based column index to an Excel column letter.
func columnLetter(index int) string {
	result := ""
	for {
		result = string(rune('A'+index%26)) + result
		index = index/26 - 1
		if index < 0 {
			break
		}
	}
	return result
}

// textParser handles plain text and markdown sources.
type textParser struct{}

func (p *textParser) CanParse(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	return ext == ".txt" || ext == ".md"
}

func (p *textParser) SupportedExtensions() []string {
	return []string{".txt", ".md"}
}

func (p *textParser) Parse(ctx context.Context, filePath string, fileSize int64) (*ParseResult, error) {
	startTime := time.Now()

	data, err := os.ReadFile(filePath)
	if err != nil {
		return &ParseResult{
			Success:          false,
			Error:            fmt.Sprintf("failed to read text file: %v", err),
			ProcessingTimeMs: time.Since(startTime).Milliseconds(),
		}, nil
	}

	title := filepath.Base(filePath)
	content := string(data)

	return &ParseResult{
		Success: true,
		Content: content,
		Title:   title,
		Metadata: map[string]string{
			"title":      title,
			"type":       "Text Document",
			"word_count": fmt.Sprintf("%d", len(strings.Fields(content))),
		},
		ProcessingTimeMs: time.Since(startTime).Milliseconds(),
	}, nil
}
