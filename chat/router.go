package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicdesk/booking-agent/booking"
	"github.com/clinicdesk/booking-agent/llm"
	"github.com/clinicdesk/booking-agent/mail"
	"github.com/clinicdesk/booking-agent/retrieval"
	"github.com/clinicdesk/booking-agent/storage"
)

// QueryAnswerer is the retrieval collaborator a turn may call.
type QueryAnswerer interface {
	Answer(ctx context.Context, query string, history []llm.Message) (retrieval.Answer, error)
}

// PersistOutcome reports a completed persist action.
type PersistOutcome struct {
	BookingID int64
	// EmailWarning is set when the booking was stored but the confirmation
	// email could not be sent.
	EmailWarning string
}

// Router executes at most one downstream action per turn against the
// retrieval, storage and email collaborators. Each call gets a bounded
// timeout; only idempotent calls get the single retry.
type Router struct {
	retriever QueryAnswerer
	store     storage.BookingStore
	mailer    mail.Mailer
	timeout   time.Duration
	logger    zerolog.Logger
}

func NewRouter(retriever QueryAnswerer, store storage.BookingStore, mailer mail.Mailer, timeout time.Duration, logger zerolog.Logger) *Router {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Router{
		retriever: retriever,
		store:     store,
		mailer:    mailer,
		timeout:   timeout,
		logger:    logger,
	}
}

// AnswerQuery runs the retrieval pipeline. Retrieval is read-only, so a
// failed attempt is retried once.
func (r *Router) AnswerQuery(ctx context.Context, query string, history []llm.Message) (retrieval.Answer, error) {
	if r.retriever == nil {
		return retrieval.Answer{}, fmt.Errorf("retrieval is not configured")
	}

	var answer retrieval.Answer
	err := r.withRetry(ctx, func(ctx context.Context) error {
		var err error
		answer, err = r.retriever.Answer(ctx, query, history)
		return err
	})
	if err != nil {
		return retrieval.Answer{}, err
	}
	return answer, nil
}

// PersistBooking stores the confirmed draft and sends the confirmation
// email. Customer lookup is idempotent by email and may be retried;
// CreateBooking and Send each get exactly one attempt so a timeout can
// never double-book or double-mail.
func (r *Router) PersistBooking(ctx context.Context, draft *booking.Draft) (PersistOutcome, error) {
	if r.store == nil {
		return PersistOutcome{}, fmt.Errorf("booking storage is not configured")
	}

	name := draft.Value(booking.FieldName)
	email := draft.Value(booking.FieldEmail)
	phone := draft.Value(booking.FieldPhone)
	service := draft.Value(booking.FieldService)
	date := draft.Value(booking.FieldDate)
	timeOfDay := draft.Value(booking.FieldTime)

	var customerID int64
	err := r.withRetry(ctx, func(ctx context.Context) error {
		var err error
		customerID, err = r.store.GetOrCreateCustomer(ctx, name, email, phone)
		return err
	})
	if err != nil {
		return PersistOutcome{}, fmt.Errorf("resolve customer: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	bookingID, err := r.store.CreateBooking(callCtx, customerID, service, date, timeOfDay)
	cancel()
	if err != nil {
		return PersistOutcome{}, fmt.Errorf("create booking: %w", err)
	}

	outcome := PersistOutcome{BookingID: bookingID}

	if r.mailer == nil {
		outcome.EmailWarning = "email delivery is not configured, so no confirmation email was sent"
		return outcome, nil
	}

	callCtx, cancel = context.WithTimeout(ctx, r.timeout)
	sendErr := r.mailer.Send(callCtx, email,
		mail.ConfirmationSubject(bookingID),
		mail.ConfirmationBody(name, bookingID, service, date, timeOfDay))
	cancel()
	if sendErr != nil {
		r.logger.Warn().Err(sendErr).Int64("booking_id", bookingID).Msg("confirmation email failed")
		outcome.EmailWarning = "the confirmation email could not be sent; your booking is still confirmed"
	}

	return outcome, nil
}

// withRetry runs fn with the call timeout and retries once on failure.
// Only use for idempotent calls.
func (r *Router) withRetry(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		lastErr = fn(callCtx)
		cancel()
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		r.logger.Warn().Err(lastErr).Int("attempt", attempt+1).Msg("collaborator call failed")
	}
	return lastErr
}
