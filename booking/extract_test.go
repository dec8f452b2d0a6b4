package booking

import (
	"testing"
)

var allFields = []Field{FieldName, FieldEmail, FieldPhone, FieldService, FieldDate, FieldTime}

func TestScanMessageFillsMultipleFieldsFromOneSentence(t *testing.T) {
	msg := "I want to book a checkup for 2025-12-01 at 10:00, my email is jane@example.com"

	cands := ScanMessage(msg, FieldName, allFields)

	if cands[FieldService] != "checkup" {
		t.Errorf("service: got %q", cands[FieldService])
	}
	if cands[FieldDate] != "2025-12-01" {
		t.Errorf("date: got %q", cands[FieldDate])
	}
	if cands[FieldTime] != "10:00" {
		t.Errorf("time: got %q", cands[FieldTime])
	}
	if cands[FieldEmail] != "jane@example.com" {
		t.Errorf("email: got %q", cands[FieldEmail])
	}
	if _, ok := cands[FieldName]; ok {
		t.Errorf("name should not be extracted from this sentence, got %q", cands[FieldName])
	}
}

func TestScanMessageOnlyConsidersMissingFields(t *testing.T) {
	msg := "my email is jane@example.com and the date is 2025-12-01"

	cands := ScanMessage(msg, FieldDate, []Field{FieldDate})
	if _, ok := cands[FieldEmail]; ok {
		t.Error("email is not missing and must not be extracted")
	}
	if cands[FieldDate] != "2025-12-01" {
		t.Errorf("date: got %q", cands[FieldDate])
	}
}

func TestScanMessagePhoneDoesNotEatDateOrTime(t *testing.T) {
	msg := "2025-12-01 at 10:00, phone 555-123-4567"

	cands := ScanMessage(msg, FieldPhone, allFields)
	if cands[FieldDate] != "2025-12-01" {
		t.Errorf("date: got %q", cands[FieldDate])
	}
	if cands[FieldTime] != "10:00" {
		t.Errorf("time: got %q", cands[FieldTime])
	}
	if cands[FieldPhone] != "555-123-4567" {
		t.Errorf("phone: got %q", cands[FieldPhone])
	}
}

func TestScanMessageNameStatement(t *testing.T) {
	cands := ScanMessage("Hi, my name is Jane Doe", FieldName, allFields)
	if cands[FieldName] != "Jane Doe" {
		t.Fatalf("name: got %q", cands[FieldName])
	}
}

func TestWholeMessageAnswersTheRequestedField(t *testing.T) {
	cands := ScanMessage("Jane Doe", FieldName, []Field{FieldName})
	if cands[FieldName] != "Jane Doe" {
		t.Fatalf("expected the bare reply to answer the requested field, got %q", cands[FieldName])
	}

	// A question is conversation, not an answer.
	cands = ScanMessage("why do you need that?", FieldName, []Field{FieldName})
	if _, ok := cands[FieldName]; ok {
		t.Fatal("questions must not be taken as field values")
	}

	// Email never contains spaces; a sentence is not a candidate.
	cands = ScanMessage("I will look it up later", FieldEmail, []Field{FieldEmail})
	if _, ok := cands[FieldEmail]; ok {
		t.Fatal("multi-word reply must not become an email candidate")
	}
}

func TestWholeMessageInvalidValueStillSurfaces(t *testing.T) {
	// A malformed date is still captured so validation can explain the
	// format instead of silently re-asking.
	cands := ScanMessage("15/06/2025", FieldDate, []Field{FieldDate})
	if cands[FieldDate] != "15/06/2025" {
		t.Fatalf("expected the raw candidate, got %q", cands[FieldDate])
	}
}

func TestCorrectionsNameTheField(t *testing.T) {
	cands := Corrections("please change the date to 2025-12-20")
	if cands[FieldDate] != "2025-12-20" {
		t.Fatalf("date correction: got %q", cands[FieldDate])
	}

	cands = Corrections("change my email to new@example.com")
	if cands[FieldEmail] != "new@example.com" {
		t.Fatalf("email correction: got %q", cands[FieldEmail])
	}

	cands = Corrections("my phone number is 555 987 6543")
	if cands[FieldPhone] == "" {
		t.Fatal("statement-style correction should be detected")
	}
}

func TestCorrectionsIgnorePlainMessages(t *testing.T) {
	if cands := Corrections("what services do you offer?"); len(cands) != 0 {
		t.Fatalf("expected no corrections, got %v", cands)
	}
	if cands := Corrections("2025-12-01"); len(cands) != 0 {
		t.Fatalf("a bare value names no field, got %v", cands)
	}
}
