// Package booking implements the slot-filling dialogue for appointment
// bookings: field extraction, validation, and the multi-turn state machine.
package booking

import "strings"

// Field names one of the six booking slots.
type Field string

const (
	FieldName    Field = "name"
	FieldEmail   Field = "email"
	FieldPhone   Field = "phone"
	FieldService Field = "service"
	FieldDate    Field = "date"
	FieldTime    Field = "time"
)

// FieldOrder is the fixed priority in which missing fields are requested.
// The order itself is a design choice; what matters is that it is total and
// applied consistently.
var FieldOrder = []Field{FieldName, FieldEmail, FieldPhone, FieldService, FieldDate, FieldTime}

var fieldPrompts = map[Field]string{
	FieldName:    "What is your full name?",
	FieldEmail:   "What is your email address?",
	FieldPhone:   "What is your phone number?",
	FieldService: "What type of service or consultation do you need? (e.g. cardiology consultation, general checkup)",
	FieldDate:    "What is your preferred date? Please use format YYYY-MM-DD (e.g. 2025-12-15).",
	FieldTime:    "What time would you prefer? Please use format HH:MM, 24-hour (e.g. 14:30).",
}

// Prompt returns the question asked when this field is the next one missing.
func (f Field) Prompt() string {
	if p, ok := fieldPrompts[f]; ok {
		return p
	}
	return "Please provide your " + string(f) + "."
}

// Label returns the display name used in summaries.
func (f Field) Label() string {
	switch f {
	case FieldService:
		return "Service"
	case FieldName:
		return "Name"
	case FieldEmail:
		return "Email"
	case FieldPhone:
		return "Phone"
	case FieldDate:
		return "Date"
	case FieldTime:
		return "Time"
	}
	return string(f)
}

// ParseFieldName maps user-facing spellings ("e-mail", "phone number",
// "service type") to a Field. Used when a correction names its target.
func ParseFieldName(s string) (Field, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "name", "full name":
		return FieldName, true
	case "email", "e-mail", "email address", "e-mail address":
		return FieldEmail, true
	case "phone", "phone number", "telephone":
		return FieldPhone, true
	case "service", "service type", "appointment type":
		return FieldService, true
	case "date", "appointment date":
		return FieldDate, true
	case "time", "appointment time":
		return FieldTime, true
	}
	return "", false
}
