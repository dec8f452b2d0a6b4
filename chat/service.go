package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/clinicdesk/booking-agent/booking"
	"github.com/clinicdesk/booking-agent/llm"
)

const unavailableReply = "Sorry, I'm having trouble reaching the assistant right now. Please try again in a moment."

// Service ties a conversation turn together: classify, run the state
// machine or retrieval, execute at most one action, record the exchange.
type Service struct {
	manager    *Manager
	classifier *Classifier
	machine    *booking.Machine
	router     *Router
	logger     zerolog.Logger

	historyLimit int
}

func NewService(manager *Manager, classifier *Classifier, machine *booking.Machine, router *Router, historyLimit int, logger zerolog.Logger) *Service {
	if historyLimit <= 0 {
		historyLimit = 25
	}
	return &Service{
		manager:      manager,
		classifier:   classifier,
		machine:      machine,
		router:       router,
		logger:       logger,
		historyLimit: historyLimit,
	}
}

// HandleMessage processes one user turn and returns the assistant reply.
func (s *Service) HandleMessage(ctx context.Context, conversationID, text string) (Response, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Response{}, fmt.Errorf("message cannot be empty")
	}

	conv := s.manager.Get(conversationID)
	conv.mu.Lock()
	defer conv.mu.Unlock()

	history := conv.historyWindow(s.historyLimit)
	conv.append(llm.RoleUser, text)

	intent := s.classifier.Classify(ctx, text, conv.Phase)
	s.logger.Debug().Str("conversation_id", conv.ID).Str("intent", string(intent)).Str("phase", string(conv.Phase)).Msg("classified turn")

	resp := s.dispatch(ctx, conv, intent, text, history)
	resp.ConversationID = conv.ID
	resp.Hints.Phase = string(conv.Phase)
	if conv.Phase == booking.PhaseCollecting {
		resp.Hints.MissingFields = missingFieldNames(conv.Draft)
	}

	conv.append(llm.RoleAssistant, resp.Reply)
	return resp, nil
}

func (s *Service) dispatch(ctx context.Context, conv *Conversation, intent Intent, text string, history []llm.Message) Response {
	switch intent {
	case IntentBookingStart:
		conv.Draft = booking.NewDraft()
		result := s.machine.Start(ctx, conv.Draft, text, history)
		conv.Phase = result.Phase
		return Response{Reply: result.Reply, Hints: UIHints{Warning: result.Warning}}

	case IntentBookingContinue:
		if conv.Draft == nil {
			conv.Draft = booking.NewDraft()
		}
		result := s.machine.Collect(ctx, conv.Draft, text, history)
		conv.Phase = result.Phase
		return Response{Reply: result.Reply, Hints: UIHints{Warning: result.Warning}}

	case IntentConfirm:
		return s.confirm(ctx, conv)

	case IntentDeny:
		result := s.machine.Deny()
		conv.Phase = result.Phase
		return Response{Reply: result.Reply}

	case IntentCancel:
		result := s.machine.Cancel()
		conv.Phase = booking.PhaseIdle
		conv.Draft = nil
		return Response{Reply: result.Reply}
	}

	return s.answerQuery(ctx, conv, text, history)
}

// confirm runs the only turn that touches storage and email. A storage
// failure keeps the draft and the pending confirmation so the user can
// simply say yes again.
func (s *Service) confirm(ctx context.Context, conv *Conversation) Response {
	if conv.Phase != booking.PhaseAwaitingConfirmation || conv.Draft == nil {
		return Response{Reply: "There's nothing to confirm yet. Would you like to book an appointment?"}
	}

	result := s.machine.Confirm(conv.Draft)
	if result.Action != booking.ActionPersist {
		conv.Phase = result.Phase
		return Response{Reply: result.Reply}
	}

	outcome, err := s.router.PersistBooking(ctx, conv.Draft)
	if err != nil {
		s.logger.Error().Err(err).Str("conversation_id", conv.ID).Msg("booking persistence failed")
		return Response{Reply: "Sorry, I couldn't save your booking just now. Your details are kept; please say \"yes\" to try again, or \"cancel\" to stop."}
	}

	conv.Phase = booking.PhaseIdle
	conv.Draft = nil

	reply := fmt.Sprintf("Your appointment is confirmed! Your booking ID is %d.", outcome.BookingID)
	if outcome.EmailWarning == "" {
		reply += " A confirmation email is on its way."
	} else {
		reply += " Note: " + outcome.EmailWarning + "."
	}
	return Response{Reply: reply, Hints: UIHints{BookingID: outcome.BookingID, Warning: outcome.EmailWarning}}
}

func (s *Service) answerQuery(ctx context.Context, conv *Conversation, text string, history []llm.Message) Response {
	// A pending confirmation survives an interleaved question; the summary
	// is re-issued after the answer would otherwise derail the dialogue.
	if conv.Phase == booking.PhaseAwaitingConfirmation && conv.Draft != nil {
		return Response{Reply: s.machine.ReissueConfirmation(conv.Draft)}
	}

	answer, err := s.router.AnswerQuery(ctx, text, history)
	if err != nil {
		s.logger.Error().Err(err).Str("conversation_id", conv.ID).Msg("query answering failed")
		return Response{Reply: unavailableReply}
	}
	return Response{Reply: answer.Text, Hints: UIHints{SourceChunkIDs: answer.ChunkIDs}}
}

// Reset forgets the conversation entirely.
func (s *Service) Reset(conversationID string) {
	s.manager.Reset(conversationID)
}
