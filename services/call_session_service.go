package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"DineLine/models"
	"DineLine/utils"

	"github.com/google/uuid"
)

// RestaurantDirectory resolves the restaurant a call is for.
type RestaurantDirectory interface {
	GetRestaurant(ctx context.Context, restaurantID string) (models.Restaurant, error)
}

type StartCallRequest struct {
	CallID        string          `json:"call_id"`
	RestaurantID  string          `json:"restaurant_id" binding:"required"`
	CustomerPhone string          `json:"customer_phone"`
	Language      models.Language `json:"language"`
}

// TurnResponse is what the telephony layer speaks back after a turn.
type TurnResponse struct {
	CallID     string             `json:"call_id"`
	Response   string             `json:"response"`
	State      models.DialogState `json:"state"`
	Language   models.Language    `json:"language"`
	Items      []models.OrderItem `json:"items"`
	Subtotal   float64            `json:"subtotal"`
	Ended      bool               `json:"ended"`
	Transcript string             `json:"transcript,omitempty"`
	PaymentURL string             `json:"payment_url,omitempty"`
	Audio      []byte             `json:"audio,omitempty"`
}

type session struct {
	mu        sync.Mutex
	dctx      models.DialogContext
	startedAt time.Time
	ended     bool
	order     *models.Order
}

type SessionDeps struct {
	Dialog      *DialogEngine
	AI          AIEngine
	Calls       CallStore
	Orders      OrderStore
	Payments    *PaymentService
	Restaurants RestaurantDirectory
	Now         func() time.Time
	Logger      *slog.Logger
}

// CallSessionService runs live calls. Turns of one call are serialized by the
// call's own lock; separate calls proceed in parallel.
type CallSessionService struct {
	deps SessionDeps
	now  func() time.Time
	log  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

func NewCallSessionService(deps SessionDeps) *CallSessionService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CallSessionService{deps: deps, now: now, log: logger, sessions: make(map[string]*session)}
}

func (s *CallSessionService) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *CallSessionService) lookup(callID string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[callID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", utils.ErrCallNotFound, callID)
	}
	return sess, nil
}

func (s *CallSessionService) drop(callID string) {
	s.mu.Lock()
	delete(s.sessions, callID)
	s.mu.Unlock()
}

func toResponse(dctx models.DialogContext, text string) TurnResponse {
	return TurnResponse{
		CallID:   dctx.CallID,
		Response: text,
		State:    dctx.State,
		Language: dctx.Language,
		Items:    dctx.Items,
		Subtotal: dctx.Subtotal,
		Ended:    dctx.State.Terminal(),
	}
}

// StartCall opens a session and returns the greeting.
func (s *CallSessionService) StartCall(ctx context.Context, req StartCallRequest) (TurnResponse, error) {
	restaurant, err := s.deps.Restaurants.GetRestaurant(ctx, req.RestaurantID)
	if err != nil {
		return TurnResponse{}, err
	}
	if req.CallID == "" {
		req.CallID = uuid.NewString()
	}
	lang, ok := models.ParseLanguage(string(req.Language))
	if !ok {
		lang = models.English
	}

	dctx := models.NewDialogContext(req.CallID, req.RestaurantID, lang, req.CustomerPhone)
	dctx.Metadata[MetaRestaurantName] = restaurant.Name
	if restaurant.Jurisdiction != "" {
		dctx.Metadata[MetaJurisdiction] = restaurant.Jurisdiction
	}
	result := s.deps.Dialog.Start(dctx)

	started := s.now().UTC()
	sess := &session{dctx: result.Context, startedAt: started}
	s.mu.Lock()
	if _, exists := s.sessions[req.CallID]; exists {
		s.mu.Unlock()
		return TurnResponse{}, utils.NewCustomError(http.StatusConflict, "call already in progress")
	}
	s.sessions[req.CallID] = sess
	s.mu.Unlock()

	if err := s.deps.Calls.InitializeCall(ctx, models.Call{
		CallID:        req.CallID,
		RestaurantID:  req.RestaurantID,
		CustomerPhone: req.CustomerPhone,
		Language:      lang,
		Status:        models.CallInProgress,
		DialogState:   result.NextState,
		StartedAt:     started,
	}); err != nil {
		s.log.Error("call initialization not persisted", "call_id", req.CallID, "error", err)
	}
	s.appendTranscript(ctx, req.CallID, models.SpeakerAssistant, result.Response, result.NextState)

	s.log.Info("call started", "call_id", req.CallID, "restaurant_id", req.RestaurantID, "language", lang)
	return toResponse(result.Context, result.Response), nil
}

// HandleTurn classifies text and advances the call by one turn.
func (s *CallSessionService) HandleTurn(ctx context.Context, callID, text string) (TurnResponse, error) {
	sess, err := s.lookup(callID)
	if err != nil {
		return TurnResponse{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.turn(ctx, sess, text)
}

// HandleAudioTurn transcribes audio, runs the turn and voices the reply.
// Synthesis failure still returns the text reply.
func (s *CallSessionService) HandleAudioTurn(ctx context.Context, callID string, audio []byte) (TurnResponse, error) {
	sess, err := s.lookup(callID)
	if err != nil {
		return TurnResponse{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.ended {
		return TurnResponse{}, fmt.Errorf("%w: %s", utils.ErrCallNotFound, callID)
	}
	transcription, err := s.deps.AI.Transcribe(ctx, audio, sess.dctx.Language)
	if err != nil {
		return TurnResponse{}, fmt.Errorf("transcription failed: %w", err)
	}
	resp, err := s.turn(ctx, sess, transcription.Text)
	if err != nil {
		return TurnResponse{}, err
	}
	resp.Transcript = transcription.Text

	speech, err := s.deps.AI.Synthesize(ctx, resp.Response, resp.Language)
	if err != nil {
		s.log.Error("speech synthesis failed", "call_id", callID, "error", err)
	} else {
		resp.Audio = speech
	}
	return resp, nil
}

// turn runs with sess.mu held.
func (s *CallSessionService) turn(ctx context.Context, sess *session, text string) (TurnResponse, error) {
	callID := sess.dctx.CallID
	if sess.ended {
		return TurnResponse{}, fmt.Errorf("%w: %s", utils.ErrCallNotFound, callID)
	}

	intent, err := s.deps.AI.AnalyzeIntent(ctx, text, sess.dctx)
	if err != nil {
		s.log.Warn("intent analysis failed, treating turn as not understood", "call_id", callID, "error", err)
		intent = models.IntentResult{Intent: models.IntentUnknown}
	}
	if intent.RawText == "" {
		intent.RawText = text
	}

	previous := sess.dctx.State
	result := s.deps.Dialog.ProcessInput(sess.dctx, intent)
	sess.dctx = result.Context

	s.appendTranscript(ctx, callID, models.SpeakerCustomer, intent.RawText, previous)
	s.appendTranscript(ctx, callID, models.SpeakerAssistant, result.Response, result.NextState)
	if result.NextState != previous {
		if err := s.deps.Calls.UpdateStatus(ctx, callID, models.CallInProgress, result.NextState); err != nil {
			s.log.Error("dialog state not persisted", "call_id", callID, "error", err)
		}
	}

	resp := toResponse(result.Context, result.Response)
	if result.NextState == models.StateConfirmation && previous != models.StateConfirmation {
		s.completeOrder(ctx, sess)
	}
	if sess.order != nil {
		resp.PaymentURL = sess.order.PaymentURL
	}

	if result.NextState.Terminal() {
		s.finalize(ctx, sess, terminalStatus(result.NextState))
	}
	return resp, nil
}

func terminalStatus(state models.DialogState) models.CallStatus {
	switch state {
	case models.StateClosing:
		return models.CallCompleted
	case models.StateTransferToHuman:
		return models.CallTransferred
	}
	return models.CallAbandoned
}

// completeOrder prices the confirmed order, records it and sends the
// payment link. Every step after pricing is best effort.
func (s *CallSessionService) completeOrder(ctx context.Context, sess *session) {
	dctx := sess.dctx
	logger := s.log.With("call_id", dctx.CallID, "restaurant_id", dctx.RestaurantID)

	totals, err := s.deps.Payments.CalculateOrderTotal(ctx, dctx.Items, dctx.Metadata[MetaJurisdiction])
	if err != nil {
		if !errors.Is(err, ErrPriceUnavailable) {
			logger.Error("order pricing failed", "error", err)
			return
		}
		logger.Warn("settlement amount unavailable, issuing fiat-only link", "error", err)
	}

	builder := s.deps.Dialog.OrderBuilder(dctx)
	order := builder.ToOrder(OrderParams{
		CallID:        dctx.CallID,
		RestaurantID:  dctx.RestaurantID,
		CustomerPhone: dctx.CustomerPhone,
		Tax:           totals.Tax,
		ExchangeRate:  totals.ExchangeRate,
		CreatedAt:     s.now().UTC(),
	})

	saved, err := s.deps.Orders.SaveOrder(ctx, order)
	if err != nil {
		logger.Error("order not persisted", "error", err)
	}
	sess.order = &order

	restaurantName := dctx.Metadata[MetaRestaurantName]
	link, err := s.deps.Payments.GeneratePaymentLink(BuildPaymentPayload(restaurantName, order))
	if err != nil {
		logger.Error("payment link not issued", "error", err)
		return
	}
	order.PaymentURL = link.URL
	if err := s.deps.Payments.SendPaymentNotice(ctx, dctx.CustomerPhone, dctx.Language, restaurantName, order.Total, link.URL); err == nil {
		order.PaymentStatus = models.PaymentLinked
	}
	if saved {
		if err := s.deps.Orders.UpdatePaymentStatus(ctx, order.CallID, order.PaymentStatus, order.PaymentURL); err != nil {
			logger.Error("payment status not persisted", "error", err)
		}
	}
	logger.Info("order completed", "total", order.Total, "payment_status", order.PaymentStatus)
}

func (s *CallSessionService) finalize(ctx context.Context, sess *session, status models.CallStatus) models.Call {
	sess.ended = true
	s.drop(sess.dctx.CallID)

	ended := s.now().UTC()
	call, err := s.deps.Calls.FinalizeCall(ctx, sess.dctx.CallID, status, sess.dctx, ended)
	if err != nil {
		s.log.Error("call finalization not persisted", "call_id", sess.dctx.CallID, "error", err)
		call = models.Call{
			CallID:          sess.dctx.CallID,
			RestaurantID:    sess.dctx.RestaurantID,
			CustomerPhone:   sess.dctx.CustomerPhone,
			Language:        sess.dctx.Language,
			Status:          status,
			DialogState:     sess.dctx.State,
			Items:           sess.dctx.Items,
			Subtotal:        sess.dctx.Subtotal,
			StartedAt:       sess.startedAt,
			EndedAt:         &ended,
			DurationSeconds: callDuration(sess.startedAt, ended),
		}
	}
	s.log.Info("call ended", "call_id", sess.dctx.CallID, "status", status, "state", sess.dctx.State)
	return call
}

// Hangup ends the call wherever it is, keeping the partial order on record.
func (s *CallSessionService) Hangup(ctx context.Context, callID string) (models.Call, error) {
	sess, err := s.lookup(callID)
	if err != nil {
		return models.Call{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.ended {
		return models.Call{}, fmt.Errorf("%w: %s", utils.ErrCallNotFound, callID)
	}
	status := terminalStatus(sess.dctx.State)
	if sess.order != nil && !sess.dctx.State.Terminal() {
		status = models.CallCompleted
	}
	return s.finalize(ctx, sess, status), nil
}

// Context returns a copy of the live dialog context of a call.
func (s *CallSessionService) Context(callID string) (models.DialogContext, error) {
	sess, err := s.lookup(callID)
	if err != nil {
		return models.DialogContext{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.dctx.Clone(), nil
}

func (s *CallSessionService) ListCalls(ctx context.Context, filter models.CallFilter) (models.CallPage, error) {
	return s.deps.Calls.ListCalls(ctx, filter)
}

func (s *CallSessionService) Stats(ctx context.Context, restaurantID string) (models.CallStats, error) {
	return s.deps.Calls.Stats(ctx, restaurantID)
}

func (s *CallSessionService) appendTranscript(ctx context.Context, callID string, speaker models.Speaker, text string, state models.DialogState) {
	if strings.TrimSpace(text) == "" {
		return
	}
	err := s.deps.Calls.AppendTranscript(ctx, callID, models.TranscriptEntry{
		Speaker:   speaker,
		Text:      text,
		State:     state,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		s.log.Error("transcript entry not persisted", "call_id", callID, "speaker", speaker, "error", err)
	}
}
