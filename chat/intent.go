package chat

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/clinicdesk/booking-agent/booking"
	"github.com/clinicdesk/booking-agent/llm"
)

// Intent is the closed set of turn classifications. Every turn maps to
// exactly one of these; anything unrecognized falls back to Query.
type Intent string

const (
	IntentBookingStart    Intent = "booking_start"
	IntentBookingContinue Intent = "booking_continue"
	IntentQuery           Intent = "query"
	IntentCancel          Intent = "cancel"
	IntentConfirm         Intent = "confirm"
	IntentDeny            Intent = "deny"
)

var (
	confirmWords = []string{"yes", "yep", "yeah", "confirm", "correct", "sure", "ok", "okay", "right"}
	// "not" catches negated agreement ("that's not right", "not correct")
	// which would otherwise match a confirm word.
	denyWords    = []string{"no", "nope", "not", "wrong", "incorrect"}
	cancelWords  = []string{"cancel", "nevermind", "never mind", "stop", "forget it", "quit"}
	bookingWords = []string{"book", "booking", "appointment", "schedule", "reserve", "reservation"}
)

// Classifier decides the intent of one turn. Phase rules come first; the
// completion service only breaks the booking/question tie on idle turns.
type Classifier struct {
	llm    llm.Client
	logger zerolog.Logger
}

func NewClassifier(client llm.Client, logger zerolog.Logger) *Classifier {
	return &Classifier{llm: client, logger: logger}
}

func (c *Classifier) Classify(ctx context.Context, message string, phase booking.Phase) Intent {
	lower := strings.ToLower(message)

	switch phase {
	case booking.PhaseAwaitingConfirmation:
		// Order matters. "no, cancel it" is a cancel, not a deny;
		// "correct the date to ..." is a correction even though "correct"
		// is also an agreement word; "no, that's not right" is a denial
		// even though "right" alone would agree. Confirm is therefore the
		// last resort, only reached once the others have been ruled out.
		if containsAnyWord(lower, cancelWords) {
			return IntentCancel
		}
		if len(booking.Corrections(message)) > 0 {
			return IntentBookingContinue
		}
		if containsAnyWord(lower, denyWords) {
			return IntentDeny
		}
		if containsAnyWord(lower, confirmWords) {
			return IntentConfirm
		}
		return IntentQuery

	case booking.PhaseCollecting:
		if containsAnyWord(lower, cancelWords) {
			return IntentCancel
		}
		return IntentBookingContinue
	}

	if containsAnyWord(lower, bookingWords) {
		return IntentBookingStart
	}
	return c.classifyWithLLM(ctx, message)
}

// containsAnyWord matches on word boundaries so "no" does not fire inside
// "now" or "notice".
func containsAnyWord(text string, words []string) bool {
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '\''
	})
	for _, w := range words {
		if strings.Contains(w, " ") {
			if strings.Contains(text, w) {
				return true
			}
			continue
		}
		for _, tok := range tokens {
			if tok == w {
				return true
			}
		}
	}
	return false
}

func (c *Classifier) classifyWithLLM(ctx context.Context, message string) Intent {
	if c.llm == nil {
		return IntentQuery
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: `You classify user messages for a clinic assistant. Reply with exactly one word: BOOKING if the user wants to book, schedule or arrange an appointment, or QUERY for anything else.`},
		{Role: llm.RoleUser, Content: message},
	}

	response, err := c.llm.Generate(ctx, messages)
	if err != nil {
		c.logger.Warn().Err(err).Msg("intent classification failed")
		return IntentQuery
	}
	if strings.Contains(strings.ToUpper(response), "BOOKING") {
		return IntentBookingStart
	}
	return IntentQuery
}
