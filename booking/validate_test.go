package booking

import (
	"strings"
	"testing"
	"time"
)

var testToday = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func TestValidateEmail(t *testing.T) {
	rules := DefaultRules()

	valid := []string{"jane@example.com", "j.doe+test@mail.co.uk", "a_b%c@sub.domain.org"}
	for _, v := range valid {
		if _, err := rules.Validate(FieldEmail, v, testToday); err != nil {
			t.Errorf("expected %q to be valid: %v", v, err)
		}
	}

	invalid := []string{"not-an-email", "missing@domain", "@example.com", "a b@example.com", ""}
	for _, v := range invalid {
		_, err := rules.Validate(FieldEmail, v, testToday)
		if err == nil {
			t.Errorf("expected %q to be rejected", v)
			continue
		}
		if !strings.Contains(err.Hint, "example@email.com") {
			t.Errorf("hint should show the expected format, got %q", err.Hint)
		}
	}
}

func TestValidatePhone(t *testing.T) {
	rules := DefaultRules()

	if v, err := rules.Validate(FieldPhone, "+1 (555) 123-4567", testToday); err != nil {
		t.Fatalf("separators should be accepted: %v", err)
	} else if v == "" {
		t.Fatal("expected a normalized value")
	}

	if _, err := rules.Validate(FieldPhone, "12345", testToday); err == nil {
		t.Fatal("expected too-short number to be rejected")
	}
	if _, err := rules.Validate(FieldPhone, "12345678901234567890", testToday); err == nil {
		t.Fatal("expected too-long number to be rejected")
	}
	if _, err := rules.Validate(FieldPhone, "call me maybe", testToday); err == nil {
		t.Fatal("expected letters to be rejected")
	}
}

func TestValidateDate(t *testing.T) {
	rules := DefaultRules()

	if v, err := rules.Validate(FieldDate, "2025-12-01", testToday); err != nil {
		t.Fatalf("future date rejected: %v", err)
	} else if v != "2025-12-01" {
		t.Fatalf("unexpected normalized date: %q", v)
	}

	// The reference day itself is accepted.
	if _, err := rules.Validate(FieldDate, "2025-06-15", testToday); err != nil {
		t.Fatalf("today rejected: %v", err)
	}

	if _, err := rules.Validate(FieldDate, "2025-06-14", testToday); err == nil {
		t.Fatal("expected past date to be rejected")
	}

	_, err := rules.Validate(FieldDate, "15/06/2025", testToday)
	if err == nil {
		t.Fatal("expected malformed date to be rejected")
	}
	if !strings.Contains(err.Hint, "YYYY-MM-DD") {
		t.Fatalf("hint should name the format, got %q", err.Hint)
	}
}

func TestValidateTime(t *testing.T) {
	rules := DefaultRules()

	if v, err := rules.Validate(FieldTime, "14:30", testToday); err != nil {
		t.Fatalf("valid time rejected: %v", err)
	} else if v != "14:30" {
		t.Fatalf("unexpected normalized time: %q", v)
	}

	_, err := rules.Validate(FieldTime, "25:99", testToday)
	if err == nil {
		t.Fatal("expected out-of-range time to be rejected")
	}
	if !strings.Contains(err.Hint, "HH:MM") {
		t.Fatalf("hint should name the format, got %q", err.Hint)
	}
}

func TestValidateNameAndService(t *testing.T) {
	rules := DefaultRules()

	if _, err := rules.Validate(FieldName, "Jane Doe", testToday); err != nil {
		t.Fatalf("name rejected: %v", err)
	}
	if _, err := rules.Validate(FieldName, "   ", testToday); err == nil {
		t.Fatal("expected blank name to be rejected")
	}
	if _, err := rules.Validate(FieldService, "cardiology consultation", testToday); err != nil {
		t.Fatalf("service rejected: %v", err)
	}
}

func TestKnownServiceSoftCheck(t *testing.T) {
	rules := Rules{KnownServices: []string{"general checkup", "dermatology"}}

	if !rules.KnownService("General Checkup") {
		t.Fatal("case-insensitive match expected")
	}
	if !rules.KnownService("checkup") {
		t.Fatal("partial match expected")
	}
	if rules.KnownService("quantum healing") {
		t.Fatal("unknown service should not match")
	}

	open := Rules{}
	if !open.KnownService("anything") {
		t.Fatal("an empty list accepts every service")
	}
}
