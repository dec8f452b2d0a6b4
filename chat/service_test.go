package chat

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicdesk/booking-agent/booking"
	"github.com/clinicdesk/booking-agent/llm"
	"github.com/clinicdesk/booking-agent/retrieval"
	"github.com/clinicdesk/booking-agent/storage"
)

type stubAnswerer struct {
	calls  int
	answer retrieval.Answer
	err    error
	// failOnce makes only the first call fail.
	failOnce bool
}

func (s *stubAnswerer) Answer(_ context.Context, _ string, _ []llm.Message) (retrieval.Answer, error) {
	s.calls++
	if s.failOnce && s.calls == 1 {
		return retrieval.Answer{}, fmt.Errorf("transient failure")
	}
	if s.err != nil {
		return retrieval.Answer{}, s.err
	}
	return s.answer, nil
}

type stubStore struct {
	customers        map[string]int64
	nextCustomerID   int64
	customerCalls    int
	bookingCalls     int
	nextBookingID    int64
	createBookingErr error
}

func newStubStore() *stubStore {
	return &stubStore{customers: map[string]int64{}, nextCustomerID: 1, nextBookingID: 100}
}

func (s *stubStore) GetOrCreateCustomer(_ context.Context, _, email, _ string) (int64, error) {
	s.customerCalls++
	if id, ok := s.customers[email]; ok {
		return id, nil
	}
	id := s.nextCustomerID
	s.nextCustomerID++
	s.customers[email] = id
	return id, nil
}

func (s *stubStore) CreateBooking(_ context.Context, _ int64, _, _, _ string) (int64, error) {
	s.bookingCalls++
	if s.createBookingErr != nil {
		return 0, s.createBookingErr
	}
	id := s.nextBookingID
	s.nextBookingID++
	return id, nil
}

func (s *stubStore) ListBookings(context.Context, storage.Filter) ([]storage.Booking, error) {
	return nil, nil
}

func (s *stubStore) BookingByID(context.Context, int64) (*storage.Booking, error) { return nil, nil }

func (s *stubStore) UpdateBooking(context.Context, int64, storage.Update) error { return nil }

func (s *stubStore) CancelBooking(context.Context, int64) error { return nil }

var _ storage.BookingStore = (*stubStore)(nil)

type stubMailer struct {
	calls int
	err   error
	to    string
}

func (s *stubMailer) Send(_ context.Context, to, _, _ string) error {
	s.calls++
	s.to = to
	return s.err
}

type serviceFixture struct {
	svc     *Service
	store   *stubStore
	mailer  *stubMailer
	answers *stubAnswerer
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	store := newStubStore()
	mailer := &stubMailer{}
	answers := &stubAnswerer{answer: retrieval.Answer{Text: "We open at nine.", ChunkIDs: []string{"c1"}}}

	machine := booking.NewMachine(nil, booking.DefaultRules(), zerolog.Nop())
	machine.Now = func() time.Time { return time.Date(2030, 6, 15, 10, 0, 0, 0, time.UTC) }

	router := NewRouter(answers, store, mailer, time.Second, zerolog.Nop())
	svc := NewService(NewManager(25), NewClassifier(nil, zerolog.Nop()), machine, router, 25, zerolog.Nop())

	return &serviceFixture{svc: svc, store: store, mailer: mailer, answers: answers}
}

// runBookingToConfirmation walks a conversation up to the pending summary.
func runBookingToConfirmation(t *testing.T, f *serviceFixture) string {
	t.Helper()
	ctx := context.Background()

	resp, err := f.svc.HandleMessage(ctx, "", "I want to book a checkup for 2030-12-01 at 10:00, my email is jane@example.com")
	require.NoError(t, err)
	id := resp.ConversationID
	require.Equal(t, string(booking.PhaseCollecting), resp.Hints.Phase)
	assert.Contains(t, resp.Reply, "full name")

	resp, err = f.svc.HandleMessage(ctx, id, "Jane Doe")
	require.NoError(t, err)
	assert.Contains(t, resp.Reply, "phone")

	resp, err = f.svc.HandleMessage(ctx, id, "5551234567")
	require.NoError(t, err)
	require.Equal(t, string(booking.PhaseAwaitingConfirmation), resp.Hints.Phase)
	assert.Contains(t, resp.Reply, "Jane Doe")
	assert.Contains(t, resp.Reply, "2030-12-01")

	return id
}

func TestBookingFlowPersistsExactlyOnce(t *testing.T) {
	f := newServiceFixture(t)
	id := runBookingToConfirmation(t, f)

	resp, err := f.svc.HandleMessage(context.Background(), id, "yes")
	require.NoError(t, err)

	assert.Equal(t, 1, f.store.bookingCalls, "exactly one persistence call")
	assert.Equal(t, 1, f.mailer.calls, "exactly one email attempt")
	assert.Equal(t, "jane@example.com", f.mailer.to)
	assert.Contains(t, resp.Reply, "100", "reply carries the booking id")
	assert.Equal(t, int64(100), resp.Hints.BookingID)
	assert.Equal(t, string(booking.PhaseIdle), resp.Hints.Phase)
}

func TestEmailFailureKeepsBookingConfirmed(t *testing.T) {
	f := newServiceFixture(t)
	f.mailer.err = fmt.Errorf("smtp down")
	id := runBookingToConfirmation(t, f)

	resp, err := f.svc.HandleMessage(context.Background(), id, "yes")
	require.NoError(t, err)

	assert.Equal(t, 1, f.store.bookingCalls)
	assert.Equal(t, 1, f.mailer.calls, "a failed send is not retried")
	assert.Contains(t, resp.Reply, "100", "booking survives the email failure")
	assert.NotEmpty(t, resp.Hints.Warning)
	assert.Equal(t, string(booking.PhaseIdle), resp.Hints.Phase)
}

func TestStorageFailureKeepsDraftForRetry(t *testing.T) {
	f := newServiceFixture(t)
	f.store.createBookingErr = fmt.Errorf("db down")
	id := runBookingToConfirmation(t, f)
	ctx := context.Background()

	resp, err := f.svc.HandleMessage(ctx, id, "yes")
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.bookingCalls, "a failed insert is not retried")
	assert.Equal(t, 0, f.mailer.calls, "no email without a stored booking")
	assert.Equal(t, string(booking.PhaseAwaitingConfirmation), resp.Hints.Phase)

	// The draft is intact, so saying yes again just retries.
	f.store.createBookingErr = nil
	resp, err = f.svc.HandleMessage(ctx, id, "yes")
	require.NoError(t, err)
	assert.Contains(t, resp.Reply, "100")
	assert.Equal(t, 2, f.store.bookingCalls)
}

func TestSameEmailReusesCustomer(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	id := runBookingToConfirmation(t, f)
	_, err := f.svc.HandleMessage(ctx, id, "yes")
	require.NoError(t, err)

	// Second booking with the same email in a fresh conversation.
	id2 := runBookingToConfirmation(t, f)
	_, err = f.svc.HandleMessage(ctx, id2, "yes")
	require.NoError(t, err)

	assert.Len(t, f.store.customers, 1, "one customer per unique email")
	assert.Equal(t, 2, f.store.bookingCalls)
}

func TestDenyRetainsFieldsAndAcceptsCorrection(t *testing.T) {
	f := newServiceFixture(t)
	id := runBookingToConfirmation(t, f)
	ctx := context.Background()

	resp, err := f.svc.HandleMessage(ctx, id, "no")
	require.NoError(t, err)
	assert.Equal(t, string(booking.PhaseCollecting), resp.Hints.Phase)
	assert.Empty(t, resp.Hints.MissingFields, "deny must not clear collected fields")

	resp, err = f.svc.HandleMessage(ctx, id, "change the date to 2030-12-20")
	require.NoError(t, err)
	assert.Equal(t, string(booking.PhaseAwaitingConfirmation), resp.Hints.Phase)
	assert.Contains(t, resp.Reply, "2030-12-20")
}

func TestCancelDiscardsDraft(t *testing.T) {
	f := newServiceFixture(t)
	id := runBookingToConfirmation(t, f)
	ctx := context.Background()

	resp, err := f.svc.HandleMessage(ctx, id, "cancel")
	require.NoError(t, err)
	assert.Equal(t, string(booking.PhaseIdle), resp.Hints.Phase)
	assert.Equal(t, 0, f.store.bookingCalls)

	// A later booking starts from scratch.
	resp, err = f.svc.HandleMessage(ctx, id, "book an appointment")
	require.NoError(t, err)
	assert.Equal(t, string(booking.PhaseCollecting), resp.Hints.Phase)
	assert.Contains(t, resp.Reply, "full name")
}

func TestQueryDuringConfirmationReissuesSummary(t *testing.T) {
	f := newServiceFixture(t)
	id := runBookingToConfirmation(t, f)

	resp, err := f.svc.HandleMessage(context.Background(), id, "how long does a checkup usually take?")
	require.NoError(t, err)

	assert.Equal(t, string(booking.PhaseAwaitingConfirmation), resp.Hints.Phase)
	assert.Contains(t, resp.Reply, "finish your booking")
	assert.Contains(t, resp.Reply, "Jane Doe")
	assert.Equal(t, 0, f.answers.calls, "the pending confirmation defers retrieval")
}

func TestQueryAnswersWithSources(t *testing.T) {
	f := newServiceFixture(t)

	resp, err := f.svc.HandleMessage(context.Background(), "", "what time do you open?")
	require.NoError(t, err)

	assert.Equal(t, "We open at nine.", resp.Reply)
	assert.Equal(t, []string{"c1"}, resp.Hints.SourceChunkIDs)
}

func TestQueryRetriesOnceOnTransientFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.answers.failOnce = true

	resp, err := f.svc.HandleMessage(context.Background(), "", "what time do you open?")
	require.NoError(t, err)

	assert.Equal(t, 2, f.answers.calls)
	assert.Equal(t, "We open at nine.", resp.Reply)
}

func TestQueryFailureGetsConversationalReply(t *testing.T) {
	f := newServiceFixture(t)
	f.answers.err = fmt.Errorf("llm unavailable")

	resp, err := f.svc.HandleMessage(context.Background(), "", "what time do you open?")
	require.NoError(t, err)

	assert.Equal(t, unavailableReply, resp.Reply)
	assert.Equal(t, 2, f.answers.calls, "read-only retrieval gets the single retry")
}

func TestEmptyMessageRejected(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.HandleMessage(context.Background(), "", "   ")
	require.Error(t, err)
}

func TestConfirmWithoutPendingBooking(t *testing.T) {
	f := newServiceFixture(t)

	resp, err := f.svc.HandleMessage(context.Background(), "", "what are your hours?")
	require.NoError(t, err)
	id := resp.ConversationID

	// Idle "yes" classifies as a query, not a stray confirmation.
	resp, err = f.svc.HandleMessage(context.Background(), id, "yes")
	require.NoError(t, err)
	assert.Equal(t, string(booking.PhaseIdle), resp.Hints.Phase)
	assert.Equal(t, 0, f.store.bookingCalls)
}
