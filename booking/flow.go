package booking

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicdesk/booking-agent/llm"
)

// Action names the single downstream tool a turn may require.
type Action int

const (
	ActionNone Action = iota
	// ActionPersist asks the router to save the booking and send the
	// confirmation email. Only a confirmed draft ever carries it.
	ActionPersist
)

// Result is the machine's verdict for one turn.
type Result struct {
	Phase   Phase
	Reply   string
	Action  Action
	Warning string
}

// Machine drives the slot-filling dialogue. It owns no conversation state
// itself; the caller passes the draft in and applies the returned phase.
type Machine struct {
	extractor *Extractor
	rules     Rules
	logger    zerolog.Logger

	// Now supplies the reference date for past-date validation.
	// Overridable in tests.
	Now func() time.Time
}

func NewMachine(extractor *Extractor, rules Rules, logger zerolog.Logger) *Machine {
	return &Machine{
		extractor: extractor,
		rules:     rules,
		logger:    logger,
		Now:       time.Now,
	}
}

// Start begins a fresh draft and immediately collects from the triggering
// message, so an opening like "book a checkup for 2025-12-01" already fills
// several fields. No field has been prompted for yet, so the trigger phrase
// itself is never mistaken for a field value.
// A validation error in the trigger message suppresses the greeting; the
// reply is the field hint alone.
func (m *Machine) Start(ctx context.Context, draft *Draft, message string, history []llm.Message) Result {
	result, invalid := m.collect(ctx, draft, message, history, "", true)
	if !invalid && result.Phase == PhaseCollecting && result.Action == ActionNone {
		result.Reply = "I can help you book an appointment. " + result.Reply
	}
	return result
}

// Collect runs extraction and validation for one user turn while the draft
// is being filled (or corrected after a DENY). Valid candidates for unfilled
// fields are stored; filled fields change only via an explicit correction.
func (m *Machine) Collect(ctx context.Context, draft *Draft, message string, history []llm.Message) Result {
	missing := draft.Missing()
	var requested Field
	if len(missing) > 0 {
		requested = missing[0]
	}
	result, _ := m.collect(ctx, draft, message, history, requested, false)
	return result
}

// collect reports, alongside the result, whether the turn tripped a
// validation error.
func (m *Machine) collect(ctx context.Context, draft *Draft, message string, history []llm.Message, requested Field, opening bool) (Result, bool) {
	missing := draft.Missing()

	candidates := m.extract(ctx, message, requested, missing, history)
	corrections := Corrections(message)
	for f, v := range corrections {
		candidates[f] = v
	}

	var firstErr *ValidationError
	accepted := 0
	today := m.Now()
	for _, f := range FieldOrder {
		raw, ok := candidates[f]
		if !ok {
			continue
		}
		if draft.Filled(f) {
			if _, corrected := corrections[f]; !corrected {
				// Opportunistic matches never overwrite accepted values.
				continue
			}
		}

		value, vErr := m.rules.Validate(f, raw, today)
		if vErr != nil {
			if firstErr == nil {
				firstErr = vErr
			}
			continue
		}
		draft.Set(f, value)
		accepted++
	}

	if firstErr != nil {
		return Result{Phase: PhaseCollecting, Reply: firstErr.Hint + " " + firstErr.Field.Prompt()}, true
	}

	if draft.Complete() {
		result := Result{Phase: PhaseAwaitingConfirmation, Reply: draft.Summary()}
		if !m.rules.KnownService(draft.Value(FieldService)) {
			result.Warning = "the requested service is not on our published list; the clinic will confirm availability"
		}
		return result, false
	}

	next := draft.Missing()[0]
	if accepted == 0 && !opening {
		// Nothing usable in the message: re-ask with the format hint.
		return Result{Phase: PhaseCollecting, Reply: "Sorry, I didn't catch that. " + next.Prompt()}, false
	}
	return Result{Phase: PhaseCollecting, Reply: next.Prompt()}, false
}

// Confirm accepts a complete draft. The caller routes the persist action;
// the machine never talks to storage or email itself.
func (m *Machine) Confirm(draft *Draft) Result {
	if draft == nil || !draft.Complete() {
		return Result{Phase: PhaseCollecting, Reply: "Some details are still missing before I can confirm. " + nextPrompt(draft)}
	}
	return Result{Phase: PhaseConfirmed, Action: ActionPersist}
}

// Deny returns to collecting with every filled field retained; the user may
// restate any subset by name.
func (m *Machine) Deny() Result {
	return Result{
		Phase: PhaseCollecting,
		Reply: "What would you like to change? Please name the field and the correct value (e.g. \"change the date to 2025-12-20\").",
	}
}

// Cancel discards the draft.
func (m *Machine) Cancel() Result {
	return Result{Phase: PhaseCancelled, Reply: "No problem, I've cancelled this booking. Let me know if you'd like to start again or have any questions."}
}

// ReissueConfirmation repeats the pending summary after a deferred message.
func (m *Machine) ReissueConfirmation(draft *Draft) string {
	return "Let's finish your booking first.\n\n" + draft.Summary()
}

func (m *Machine) extract(ctx context.Context, message string, requested Field, missing []Field, history []llm.Message) Candidates {
	if m.extractor == nil {
		return ScanMessage(message, requested, missing)
	}
	return m.extractor.Extract(ctx, message, requested, missing, history)
}

func nextPrompt(draft *Draft) string {
	if draft == nil {
		return FieldName.Prompt()
	}
	missing := draft.Missing()
	if len(missing) == 0 {
		return ""
	}
	return missing[0].Prompt()
}
