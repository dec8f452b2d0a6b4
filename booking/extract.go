package booking

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/clinicdesk/booking-agent/llm"
)

// Candidates maps fields to raw extracted values. Values are unvalidated;
// validation decides whether a candidate is accepted or reported back.
type Candidates map[Field]string

var (
	emailCandidateRe = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+`)
	dateCandidateRe  = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	timeCandidateRe  = regexp.MustCompile(`\b\d{1,2}:\d{2}\b`)
	phoneCandidateRe = regexp.MustCompile(`\+?\d[\d\s().-]{5,}\d`)

	nameStatementRe    = regexp.MustCompile(`(?i)\bmy name(?:'s| is)\s+([A-Za-z][A-Za-z .'-]{1,60})`)
	servicePhraseRe    = regexp.MustCompile(`(?i)\bbook(?:ing)?\s+(?:a|an|the)?\s*([A-Za-z][A-Za-z -]{2,40}?)\s+(?:for|on|at)\b`)
	serviceStatementRe = regexp.MustCompile(`(?i)\bneed\s+(?:a|an|the)?\s*([A-Za-z][A-Za-z -]{2,40}?)(?:\s+appointment|\s+for|\s+on|\s+at|[.,!]|$)`)

	correctionRe = regexp.MustCompile(`(?i)\b(?:change|update|correct|fix|set)\s+(?:my\s+|the\s+)?(name|full name|e-?mail(?:\s+address)?|phone(?:\s+number)?|service(?:\s+type)?|date|time)\s*(?:to|is|:)?\s+(.+)`)
	statementRe  = regexp.MustCompile(`(?i)\bmy\s+(e-?mail(?:\s+address)?|phone(?:\s+number)?|full name)\s+is\s+(\S+[^.,!?]*)`)
)

// Extractor finds candidate values in free text. The rule layer is pure and
// deterministic; an optional completion-service fallback handles phrasings
// the rules miss for the field currently being requested.
type Extractor struct {
	llm    llm.Client
	logger zerolog.Logger
}

func NewExtractor(client llm.Client, logger zerolog.Logger) *Extractor {
	return &Extractor{llm: client, logger: logger}
}

// Extract scans the message for the requested field and, opportunistically,
// for every other still-missing field, so a single sentence can fill several
// slots. When the rules find nothing for the requested field the completion
// service is consulted once; its failure just means no candidate.
func (e *Extractor) Extract(ctx context.Context, message string, requested Field, missing []Field, history []llm.Message) Candidates {
	cands := ScanMessage(message, requested, missing)

	if requested != "" && cands[requested] == "" && e.llm != nil {
		if value := e.extractWithLLM(ctx, message, requested, history); value != "" {
			cands[requested] = value
		}
	}

	return cands
}

// ScanMessage is the deterministic rule layer of extraction. Structured
// fields are masked out as they match so the looser patterns (phone, name)
// cannot re-claim their characters.
func ScanMessage(message string, requested Field, missing []Field) Candidates {
	wanted := make(map[Field]bool, len(missing)+1)
	for _, f := range missing {
		wanted[f] = true
	}
	if requested != "" {
		wanted[requested] = true
	}

	cands := Candidates{}
	masked := message

	take := func(f Field, re *regexp.Regexp) {
		if !wanted[f] || cands[f] != "" {
			return
		}
		if m := re.FindString(masked); m != "" {
			cands[f] = strings.TrimSpace(m)
			masked = strings.Replace(masked, m, " ", 1)
		}
	}

	take(FieldEmail, emailCandidateRe)
	take(FieldDate, dateCandidateRe)
	take(FieldTime, timeCandidateRe)
	take(FieldPhone, phoneCandidateRe)

	if wanted[FieldService] && cands[FieldService] == "" {
		if m := servicePhraseRe.FindStringSubmatch(message); m != nil {
			cands[FieldService] = cleanValue(m[1])
		} else if m := serviceStatementRe.FindStringSubmatch(message); m != nil {
			cands[FieldService] = cleanValue(m[1])
		}
	}

	if wanted[FieldName] && cands[FieldName] == "" {
		if m := nameStatementRe.FindStringSubmatch(masked); m != nil {
			cands[FieldName] = cleanValue(m[1])
		}
	}

	// When a specific field was requested and nothing else matched, a short
	// non-question reply is taken as the answer to that request. Validators
	// decide whether it survives; a bad value surfaces as a field error
	// instead of being dropped.
	if requested != "" && len(cands) == 0 {
		if value := wholeMessageCandidate(message, requested); value != "" {
			cands[requested] = value
		}
	}

	return cands
}

// Corrections finds explicit, field-named restatements ("change my email to
// x@y.com", "my phone number is ..."). Only these may overwrite an
// already-filled field.
func Corrections(message string) Candidates {
	cands := Candidates{}

	for _, m := range correctionRe.FindAllStringSubmatch(message, -1) {
		if field, ok := ParseFieldName(m[1]); ok {
			if value := correctionValue(field, m[2]); value != "" {
				cands[field] = value
			}
		}
	}

	for _, m := range statementRe.FindAllStringSubmatch(message, -1) {
		if field, ok := ParseFieldName(m[1]); ok {
			if _, exists := cands[field]; !exists {
				if value := correctionValue(field, m[2]); value != "" {
					cands[field] = value
				}
			}
		}
	}

	return cands
}

// correctionValue narrows the free text after a correction to the shape the
// field expects, falling back to the cleaned remainder.
func correctionValue(field Field, raw string) string {
	switch field {
	case FieldEmail:
		if m := emailCandidateRe.FindString(raw); m != "" {
			return m
		}
	case FieldDate:
		if m := dateCandidateRe.FindString(raw); m != "" {
			return m
		}
	case FieldTime:
		if m := timeCandidateRe.FindString(raw); m != "" {
			return m
		}
	case FieldPhone:
		if m := phoneCandidateRe.FindString(raw); m != "" {
			return strings.TrimSpace(m)
		}
	}
	return cleanValue(raw)
}

func wholeMessageCandidate(message string, requested Field) string {
	value := strings.TrimSpace(message)
	if value == "" || strings.ContainsAny(value, "?") {
		return ""
	}

	switch requested {
	case FieldEmail, FieldDate, FieldTime:
		// These formats never contain spaces; a multi-word reply is
		// conversation, not a value.
		if strings.ContainsAny(value, " \t\n") {
			return ""
		}
		return value
	case FieldPhone:
		if strings.IndexFunc(value, func(r rune) bool {
			return !(r >= '0' && r <= '9') && !strings.ContainsRune("+-(). \t", r)
		}) >= 0 {
			return ""
		}
		return value
	case FieldName, FieldService:
		if len(value) > 80 {
			return ""
		}
		return cleanValue(value)
	}
	return ""
}

func cleanValue(s string) string {
	return strings.Trim(strings.TrimSpace(s), ".,!:;")
}

const notFoundMarker = "NOT_FOUND"

func (e *Extractor) extractWithLLM(ctx context.Context, message string, field Field, history []llm.Message) string {
	var sb strings.Builder
	for _, msg := range history {
		role := "User"
		if msg.Role == llm.RoleAssistant {
			role = "Assistant"
		}
		sb.WriteString(role + ": " + msg.Content + "\n")
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: "You extract appointment booking information from user messages. Extract the " + string(field) + " from the user's message. If the user provides it, return ONLY the value, nothing else. If not, return \"" + notFoundMarker + "\"."},
		{Role: llm.RoleUser, Content: "Conversation:\n" + sb.String() + "\nUser message: " + message + "\n\nExtract the " + string(field) + ". Return only the value or \"" + notFoundMarker + "\"."},
	}

	response, err := e.llm.Generate(ctx, messages)
	if err != nil {
		e.logger.Warn().Err(err).Str("field", string(field)).Msg("llm extraction failed")
		return ""
	}

	value := strings.TrimSpace(response)
	if value == "" || strings.Contains(strings.ToUpper(value), notFoundMarker) {
		return ""
	}
	return cleanValue(value)
}
