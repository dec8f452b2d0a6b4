package ingestion

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// Payload is a raw document read from disk or an upload.
type Payload struct {
	Path string
	Data []byte
}

// Parsed holds the extracted plain text plus a display title.
type Parsed struct {
	Title string
	Text  string
}

// Parse extracts text from the payload according to its detected format.
// An unsupported or unreadable payload returns an error; callers treat that
// as "unreadable document" and keep going with the rest of the batch.
func Parse(payload Payload) (*Parsed, error) {
	switch DetectFormat(payload.Path) {
	case FormatMarkdown:
		return parseMarkdown(payload)
	case FormatPDF:
		return parsePDF(payload)
	case FormatCSV:
		return parseCSV(payload)
	case FormatText:
		return parseText(payload)
	default:
		return nil, fmt.Errorf("unsupported document format: %s", filepath.Ext(payload.Path))
	}
}

func parseMarkdown(payload Payload) (*Parsed, error) {
	content := normalizePlainText(string(payload.Data))
	title := extractMarkdownTitle(content, filepath.Base(payload.Path))
	return &Parsed{Title: title, Text: content}, nil
}

func parsePDF(payload Payload) (*Parsed, error) {
	reader, err := pdf.NewReader(bytes.NewReader(payload.Data), int64(len(payload.Data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, plain); err != nil {
		return nil, fmt.Errorf("read pdf text: %w", err)
	}

	content := normalizePlainText(buf.String())
	title := firstNonEmptyLine(content)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(payload.Path), filepath.Ext(payload.Path))
	}

	return &Parsed{Title: title, Text: content}, nil
}

func parseCSV(payload Payload) (*Parsed, error) {
	reader := csv.NewReader(bytes.NewReader(payload.Data))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	title := strings.TrimSuffix(filepath.Base(payload.Path), filepath.Ext(payload.Path))
	if len(records) == 0 {
		return &Parsed{Title: title, Text: ""}, nil
	}

	headers := records[0]
	var sb strings.Builder
	for idx, row := range records[1:] {
		sb.WriteString(formatCSVRow(headers, row, idx))
		sb.WriteString("\n\n")
	}

	return &Parsed{Title: title, Text: strings.TrimSpace(sb.String())}, nil
}

func parseText(payload Payload) (*Parsed, error) {
	content := normalizePlainText(string(payload.Data))
	title := firstNonEmptyLine(content)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(payload.Path), filepath.Ext(payload.Path))
	}
	return &Parsed{Title: title, Text: content}, nil
}

func extractMarkdownTitle(content, fallback string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			return strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		}
	}
	return fallback
}

func normalizePlainText(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

func firstNonEmptyLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func formatCSVRow(headers, row []string, idx int) string {
	builder := &strings.Builder{}
	builder.WriteString(fmt.Sprintf("Row %d", idx+1))

	limit := len(headers)
	if len(row) < limit {
		limit = len(row)
	}

	for i := 0; i < limit; i++ {
		header := strings.TrimSpace(headers[i])
		if header == "" {
			header = fmt.Sprintf("Column %d", i+1)
		}
		builder.WriteString("\n")
		builder.WriteString(header)
		builder.WriteString(": ")
		builder.WriteString(strings.TrimSpace(row[i]))
	}

	for i := len(headers); i < len(row); i++ {
		builder.WriteString(fmt.Sprintf("\nExtra %d: %s", i+1, strings.TrimSpace(row[i])))
	}

	return builder.String()
}
