// Package api exposes the HTTP surface: the chat endpoint, document
// uploads, and the booking admin listing.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/clinicdesk/booking-agent/chat"
	"github.com/clinicdesk/booking-agent/ingestion"
	"github.com/clinicdesk/booking-agent/storage"
)

// ChatService handles one conversation turn.
type ChatService interface {
	HandleMessage(ctx context.Context, conversationID, text string) (chat.Response, error)
	Reset(conversationID string)
}

// Ingestor indexes uploaded documents.
type Ingestor interface {
	IngestPayloads(ctx context.Context, payloads []ingestion.Payload) (ingestion.Report, error)
}

// Server exposes the HTTP handlers over the injected collaborators.
type Server struct {
	chat     ChatService
	ingestor Ingestor
	bookings storage.BookingStore
	logger   zerolog.Logger
	handler  http.Handler
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

type resetRequest struct {
	ConversationID string `json:"conversation_id"`
}

type documentUpload struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type documentsRequest struct {
	Documents []documentUpload `json:"documents"`
}

type documentsResponse struct {
	Documents int      `json:"documents"`
	Chunks    int      `json:"chunks"`
	Skipped   []string `json:"skipped,omitempty"`
}

type bookingUpdateRequest struct {
	Service *string `json:"service"`
	Date    *string `json:"date"`
	Time    *string `json:"time"`
	Status  *string `json:"status"`
}

type bookingResponse struct {
	ID       int64  `json:"id"`
	Customer string `json:"customer"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Service  string `json:"service"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Status   string `json:"status"`
	Created  string `json:"created_at"`
}

func New(chatSvc ChatService, ingestor Ingestor, bookings storage.BookingStore, logger zerolog.Logger) *Server {
	s := &Server{chat: chatSvc, ingestor: ingestor, bookings: bookings, logger: logger}
	s.handler = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/messages", s.handleMessages)
	mux.HandleFunc("/v1/conversations/reset", s.handleReset)
	mux.HandleFunc("/v1/documents", s.handleDocuments)
	mux.HandleFunc("/v1/bookings", s.handleBookings)
	mux.HandleFunc("/v1/bookings/", s.handleBookingByID)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}

	s.writeJSON(w, http.StatusOK, messageResponse{Message: "ok"})
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("message is required"))
		return
	}

	resp, err := s.chat.HandleMessage(r.Context(), req.ConversationID, req.Message)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("handle message: %w", err))
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	var req resetRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.ConversationID == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("conversation_id is required"))
		return
	}

	s.chat.Reset(req.ConversationID)
	s.writeJSON(w, http.StatusOK, messageResponse{Message: "conversation reset"})
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	var req documentsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if len(req.Documents) == 0 {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("at least one document is required"))
		return
	}

	payloads := make([]ingestion.Payload, 0, len(req.Documents))
	for _, doc := range req.Documents {
		if doc.Name == "" || doc.Content == "" {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("each document needs a name and content"))
			return
		}
		payloads = append(payloads, ingestion.Payload{Path: doc.Name, Data: []byte(doc.Content)})
	}

	report, err := s.ingestor.IngestPayloads(r.Context(), payloads)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, fmt.Errorf("ingest documents: %w", err))
		return
	}

	s.writeJSON(w, http.StatusOK, documentsResponse{
		Documents: report.Documents,
		Chunks:    report.Chunks,
		Skipped:   report.Skipped,
	})
}

func (s *Server) handleBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	if s.bookings == nil {
		s.writeError(w, http.StatusServiceUnavailable, fmt.Errorf("booking storage is not configured"))
		return
	}

	filter := storage.Filter{
		Search: r.URL.Query().Get("q"),
		Email:  r.URL.Query().Get("email"),
		Phone:  r.URL.Query().Get("phone"),
	}

	bookings, err := s.bookings.ListBookings(r.Context(), filter)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("list bookings: %w", err))
		return
	}

	out := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResponse(b))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	if s.bookings == nil {
		s.writeError(w, http.StatusServiceUnavailable, fmt.Errorf("booking storage is not configured"))
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/v1/bookings/")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid booking id %q", raw))
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getBooking(w, r, id)
	case http.MethodPatch:
		s.updateBooking(w, r, id)
	case http.MethodDelete:
		s.cancelBooking(w, r, id)
	default:
		s.methodNotAllowed(w, strings.Join([]string{http.MethodGet, http.MethodPatch, http.MethodDelete}, ", "))
	}
}

func (s *Server) getBooking(w http.ResponseWriter, r *http.Request, id int64) {
	booking, err := s.bookings.BookingByID(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("load booking: %w", err))
		return
	}
	if booking == nil {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("booking %d not found", id))
		return
	}

	s.writeJSON(w, http.StatusOK, toBookingResponse(*booking))
}

func (s *Server) updateBooking(w http.ResponseWriter, r *http.Request, id int64) {
	var req bookingUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	update := storage.Update{Service: req.Service, Date: req.Date, Time: req.Time, Status: req.Status}
	if update.Service == nil && update.Date == nil && update.Time == nil && update.Status == nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("no booking fields to update"))
		return
	}

	if err := s.bookings.UpdateBooking(r.Context(), id, update); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, fmt.Errorf("update booking: %w", err))
		return
	}
	s.getBooking(w, r, id)
}

func (s *Server) cancelBooking(w http.ResponseWriter, r *http.Request, id int64) {
	if err := s.bookings.CancelBooking(r.Context(), id); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, fmt.Errorf("cancel booking: %w", err))
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf("booking %d cancelled", id)})
}

func toBookingResponse(b storage.Booking) bookingResponse {
	return bookingResponse{
		ID:       b.ID,
		Customer: b.CustomerName,
		Email:    b.Email,
		Phone:    b.Phone,
		Service:  b.Service,
		Date:     b.Date,
		Time:     b.Time,
		Status:   b.Status,
		Created:  b.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	s.writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed, use %s", allowed))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Warn().Int("status", status).Err(err).Msg("api error")
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}

	if dec.More() {
		return fmt.Errorf("request body must contain a single JSON object")
	}

	return nil
}
