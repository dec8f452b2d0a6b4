package chat

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/clinicdesk/booking-agent/booking"
)

func newRuleClassifier() *Classifier {
	// No completion service: only the deterministic rules run.
	return NewClassifier(nil, zerolog.Nop())
}

func TestClassifyIdleBookingKeywords(t *testing.T) {
	c := newRuleClassifier()
	ctx := context.Background()

	for _, msg := range []string{
		"I want to book an appointment",
		"can I schedule a visit?",
		"booking please",
	} {
		if intent := c.Classify(ctx, msg, booking.PhaseIdle); intent != IntentBookingStart {
			t.Errorf("%q: expected booking_start, got %s", msg, intent)
		}
	}
}

func TestClassifyIdleFallsBackToQuery(t *testing.T) {
	c := newRuleClassifier()
	if intent := c.Classify(context.Background(), "what are your opening hours?", booking.PhaseIdle); intent != IntentQuery {
		t.Fatalf("expected query, got %s", intent)
	}
}

func TestClassifyCollectingContinuesBooking(t *testing.T) {
	c := newRuleClassifier()
	ctx := context.Background()

	if intent := c.Classify(ctx, "jane@example.com", booking.PhaseCollecting); intent != IntentBookingContinue {
		t.Fatalf("expected booking_continue, got %s", intent)
	}
	if intent := c.Classify(ctx, "actually, cancel that", booking.PhaseCollecting); intent != IntentCancel {
		t.Fatalf("expected cancel, got %s", intent)
	}
}

func TestClassifyAwaitingConfirmation(t *testing.T) {
	c := newRuleClassifier()
	ctx := context.Background()
	phase := booking.PhaseAwaitingConfirmation

	if intent := c.Classify(ctx, "yes, that's correct", phase); intent != IntentConfirm {
		t.Fatalf("expected confirm, got %s", intent)
	}
	if intent := c.Classify(ctx, "no, that's wrong", phase); intent != IntentDeny {
		t.Fatalf("expected deny, got %s", intent)
	}
	if intent := c.Classify(ctx, "cancel the whole thing", phase); intent != IntentCancel {
		t.Fatalf("expected cancel, got %s", intent)
	}
	// A field-named correction continues the dialogue directly, even when
	// the correction verb doubles as an agreement word.
	if intent := c.Classify(ctx, "change the date to 2030-12-20", phase); intent != IntentBookingContinue {
		t.Fatalf("expected booking_continue, got %s", intent)
	}
	if intent := c.Classify(ctx, "correct the date to 2030-12-20", phase); intent != IntentBookingContinue {
		t.Fatalf("expected booking_continue, got %s", intent)
	}
	// Negated agreement is a denial, not a confirmation.
	if intent := c.Classify(ctx, "no, that's not right", phase); intent != IntentDeny {
		t.Fatalf("expected deny, got %s", intent)
	}
	if intent := c.Classify(ctx, "that's not correct", phase); intent != IntentDeny {
		t.Fatalf("expected deny, got %s", intent)
	}
	// Anything else is a deferred question.
	if intent := c.Classify(ctx, "how long does a checkup take?", phase); intent != IntentQuery {
		t.Fatalf("expected query, got %s", intent)
	}
}

func TestClassifyMatchesWholeWordsOnly(t *testing.T) {
	c := newRuleClassifier()
	phase := booking.PhaseAwaitingConfirmation

	// "now" must not trigger the deny word "no".
	if intent := c.Classify(context.Background(), "now what happens?", phase); intent == IntentDeny {
		t.Fatal("substring must not match a deny word")
	}
}
