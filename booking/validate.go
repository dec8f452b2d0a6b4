package booking

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

var phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", "+", "", ".", "")

// ValidationError is a recoverable, field-level rejection. Its message names
// the expected format so the user can correct the value in the next turn.
type ValidationError struct {
	Field Field
	Hint  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Hint)
}

// Rules bundles the tunable acceptance thresholds.
type Rules struct {
	PhoneMinDigits int
	PhoneMaxDigits int
	KnownServices  []string
}

func DefaultRules() Rules {
	return Rules{PhoneMinDigits: 7, PhoneMaxDigits: 15}
}

// Validate checks and normalizes a candidate value for a field. today is the
// reference date for the past-date check.
func (r Rules) Validate(f Field, raw string, today time.Time) (string, *ValidationError) {
	value := strings.TrimSpace(raw)

	switch f {
	case FieldName:
		if value == "" {
			return "", &ValidationError{Field: f, Hint: "a name cannot be empty"}
		}
		return value, nil

	case FieldEmail:
		if !emailPattern.MatchString(value) {
			return "", &ValidationError{Field: f, Hint: "please provide a valid email address (e.g. example@email.com)"}
		}
		return value, nil

	case FieldPhone:
		digits := phoneSeparators.Replace(value)
		if digits == "" || strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
			return "", &ValidationError{Field: f, Hint: "a phone number may only contain digits and separators"}
		}
		if len(digits) < r.PhoneMinDigits || len(digits) > r.PhoneMaxDigits {
			return "", &ValidationError{Field: f, Hint: fmt.Sprintf("please provide a phone number with %d to %d digits", r.PhoneMinDigits, r.PhoneMaxDigits)}
		}
		return value, nil

	case FieldService:
		if value == "" {
			return "", &ValidationError{Field: f, Hint: "please name the service or consultation you need"}
		}
		return value, nil

	case FieldDate:
		parsed, err := time.Parse(dateLayout, value)
		if err != nil {
			return "", &ValidationError{Field: f, Hint: "please use date format YYYY-MM-DD (e.g. 2025-12-15)"}
		}
		// ISO dates compare lexically, which sidesteps timezone skew
		// between the parsed value and the caller's clock.
		if parsed.Format(dateLayout) < today.Format(dateLayout) {
			return "", &ValidationError{Field: f, Hint: "please choose today or a future date (format: YYYY-MM-DD)"}
		}
		return parsed.Format(dateLayout), nil

	case FieldTime:
		parsed, err := time.Parse(timeLayout, value)
		if err != nil {
			return "", &ValidationError{Field: f, Hint: "please use time format HH:MM, 24-hour (e.g. 14:30)"}
		}
		return parsed.Format(timeLayout), nil
	}

	return "", &ValidationError{Field: f, Hint: "unknown field"}
}

// KnownService reports whether the service matches the configured offering
// list. This is a soft check: an unknown service is flagged, not rejected.
func (r Rules) KnownService(value string) bool {
	if len(r.KnownServices) == 0 {
		return true
	}
	lower := strings.ToLower(value)
	for _, svc := range r.KnownServices {
		svc = strings.ToLower(strings.TrimSpace(svc))
		if svc == "" {
			continue
		}
		if strings.Contains(lower, svc) || strings.Contains(svc, lower) {
			return true
		}
	}
	return false
}
