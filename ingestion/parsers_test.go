package ingestion

import (
	"strings"
	"testing"
)

func TestDetectFormat(t *testing.T) {
	cases := map[string]DocumentFormat{
		"docs/faq.md":       FormatMarkdown,
		"docs/guide.MD":     FormatMarkdown,
		"docs/policy.pdf":   FormatPDF,
		"docs/prices.csv":   FormatCSV,
		"docs/notes.txt":    FormatText,
		"docs/image.png":    FormatUnknown,
		"docs/no-extension": FormatUnknown,
	}
	for path, want := range cases {
		if got := DetectFormat(path); got != want {
			t.Errorf("%s: expected %q, got %q", path, want, got)
		}
	}
}

func TestParseMarkdownTitleFromHeading(t *testing.T) {
	parsed, err := Parse(Payload{Path: "faq.md", Data: []byte("intro line\n\n## Clinic FAQ\n\nWe open at nine.")})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Title != "Clinic FAQ" {
		t.Fatalf("expected heading title, got %q", parsed.Title)
	}
	if !strings.Contains(parsed.Text, "We open at nine.") {
		t.Fatalf("content lost: %q", parsed.Text)
	}
}

func TestParseMarkdownFallsBackToFilename(t *testing.T) {
	parsed, err := Parse(Payload{Path: "docs/services.md", Data: []byte("no headings here")})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Title != "services.md" {
		t.Fatalf("expected filename title, got %q", parsed.Title)
	}
}

func TestParseCSVRowsBecomeLabelledText(t *testing.T) {
	data := "service,price\ncheckup,50\ndermatology,80\n"
	parsed, err := Parse(Payload{Path: "prices.csv", Data: []byte(data)})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Title != "prices" {
		t.Fatalf("unexpected title: %q", parsed.Title)
	}
	if !strings.Contains(parsed.Text, "Row 1\nservice: checkup\nprice: 50") {
		t.Fatalf("row not formatted: %q", parsed.Text)
	}
	if !strings.Contains(parsed.Text, "Row 2\nservice: dermatology") {
		t.Fatalf("second row missing: %q", parsed.Text)
	}
}

func TestParseCSVRaggedRows(t *testing.T) {
	data := "a,b\n1\n2,3,4\n"
	parsed, err := Parse(Payload{Path: "ragged.csv", Data: []byte(data)})
	if err != nil {
		t.Fatalf("ragged rows should parse: %v", err)
	}
	if !strings.Contains(parsed.Text, "Extra 3: 4") {
		t.Fatalf("extra column not labelled: %q", parsed.Text)
	}
}

func TestParseTextTitleFromFirstLine(t *testing.T) {
	parsed, err := Parse(Payload{Path: "notes.txt", Data: []byte("\n\nOpening Hours\nMonday to Friday")})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Title != "Opening Hours" {
		t.Fatalf("unexpected title: %q", parsed.Title)
	}
}

func TestParseUnsupportedFormat(t *testing.T) {
	if _, err := Parse(Payload{Path: "logo.png", Data: []byte{0x89}}); err == nil {
		t.Fatal("expected an error for unsupported formats")
	}
}

func TestParseBrokenPDF(t *testing.T) {
	if _, err := Parse(Payload{Path: "broken.pdf", Data: []byte("not a pdf")}); err == nil {
		t.Fatal("expected an error for a malformed pdf")
	}
}
