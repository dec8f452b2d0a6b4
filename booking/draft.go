package booking

import (
	"fmt"
	"strings"
)

// Phase is the dialogue state of a conversation's booking flow.
type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseCollecting           Phase = "collecting"
	PhaseAwaitingConfirmation Phase = "awaiting_confirmation"
	PhaseConfirmed            Phase = "confirmed"
	PhaseCancelled            Phase = "cancelled"
)

// Draft accumulates validated booking fields across turns. A filled field is
// never overwritten except through an explicit, field-named correction or by
// discarding the whole draft.
type Draft struct {
	values map[Field]string
}

func NewDraft() *Draft {
	return &Draft{values: make(map[Field]string, len(FieldOrder))}
}

func (d *Draft) Value(f Field) string { return d.values[f] }

func (d *Draft) Filled(f Field) bool { return d.values[f] != "" }

// Set stores a validated, normalized value.
func (d *Draft) Set(f Field, v string) { d.values[f] = v }

// Missing lists unfilled fields in the fixed priority order.
func (d *Draft) Missing() []Field {
	missing := make([]Field, 0, len(FieldOrder))
	for _, f := range FieldOrder {
		if !d.Filled(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

func (d *Draft) Complete() bool { return len(d.Missing()) == 0 }

// Summary formats the collected details for the confirmation prompt.
func (d *Draft) Summary() string {
	var sb strings.Builder
	sb.WriteString("Please confirm your booking details:\n\n")
	for _, f := range FieldOrder {
		sb.WriteString(fmt.Sprintf("%s: %s\n", f.Label(), d.Value(f)))
	}
	sb.WriteString("\nIs this information correct? Please confirm (yes/no).")
	return sb.String()
}
