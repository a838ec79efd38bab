// README: Websocket chat channel; one read loop and one sequential event worker per connection.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"parcel/internal/infra"
	"parcel/internal/modules/quote"
	"parcel/internal/modules/transcript"
	"parcel/internal/protocol"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 54 * time.Second
	maxFrameSize = 64 << 10
	eventBuffer  = 16
)

type Quoter interface {
	Resolve(ctx context.Context, sessionID string, req quote.Request) (quote.OrderResult, error)
}

type Answerer interface {
	Answer(ctx context.Context, sessionID, question string) (string, error)
}

type Recorder interface {
	AppendAll(ctx context.Context, conversationID string, msgs []transcript.Message) ([]string, error)
}

type ChannelHandler struct {
	quotes     Quoter
	assistant  Answerer
	transcript Recorder
	upgrader   websocket.Upgrader
	logger     *zap.Logger
	metrics    *infra.Metrics
}

func NewChannelHandler(quotes Quoter, answerer Answerer, recorder Recorder, allowedOrigin string, logger *zap.Logger, metrics *infra.Metrics) *ChannelHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChannelHandler{
		quotes:     quotes,
		assistant:  answerer,
		transcript: recorder,
		upgrader: websocket.Upgrader{
			CheckOrigin:     originChecker(allowedOrigin),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// originChecker allows every origin when allowed is empty. Requests without
// an Origin header (non-browser clients) are always accepted.
func originChecker(allowed string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return allowed == "" || origin == "" || origin == allowed
	}
}

// Serve upgrades GET /ws?conversation=<id> and runs the session until the
// client goes away.
func (h *ChannelHandler) Serve(c *gin.Context) {
	sessionID := c.Query("conversation")
	if sessionID == "" {
		sessionID = uuid.NewString()
	} else if !isValidID(sessionID) {
		writeError(c, http.StatusBadRequest, "invalid conversation id")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	s := &session{
		id:      sessionID,
		conn:    conn,
		h:       h,
		logger:  h.logger.With(zap.String("session", sessionID)),
		metrics: h.metrics,
	}
	h.metrics.ConnectionOpened()
	defer h.metrics.ConnectionClosed()

	s.run(context.Background())
}

type session struct {
	id      string
	conn    *websocket.Conn
	h       *ChannelHandler
	logger  *zap.Logger
	metrics *infra.Metrics

	writeMu sync.Mutex
}

func (s *session) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	defer s.conn.Close()

	s.logger.Info("channel connected")

	s.conn.SetReadLimit(maxFrameSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(readTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	events := make(chan protocol.Envelope, eventBuffer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for env := range events {
			s.dispatch(ctx, env)
		}
	}()
	go s.pingLoop(ctx)

	s.readLoop(ctx, events)
	close(events)
	cancel()
	<-done
	s.logger.Info("channel disconnected")
}

func (s *session) readLoop(ctx context.Context, events chan<- protocol.Envelope) {
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("channel read error", zap.Error(err))
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(readTimeout))

		var env protocol.Envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
			s.send(protocol.EventError, "malformed message")
			continue
		}
		s.metrics.EventReceived(metricEvent(env.Event))

		select {
		case events <- env:
		case <-ctx.Done():
			return
		}
	}
}

// dispatch handles one event. A panic is logged and the session keeps going.
func (s *session) dispatch(ctx context.Context, env protocol.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("event handler panic", zap.String("event", env.Event), zap.Any("panic", r))
			s.send(protocol.EventError, "internal error")
		}
	}()

	switch env.Event {
	case protocol.EventSendMessage:
		s.handleSendMessage(ctx, env)
	case protocol.EventParcelData:
		s.handleParcelData(ctx, env)
	case protocol.EventChatgptQuestion:
		s.handleQuestion(ctx, env)
	default:
		s.send(protocol.EventError, "unknown event "+env.Event)
	}
}

func (s *session) handleSendMessage(ctx context.Context, env protocol.Envelope) {
	var msgs []transcript.Message
	if err := env.Decode(&msgs); err != nil {
		s.send(protocol.EventMessageError, transcriptErrorText(transcript.ErrInvalidMessage))
		return
	}
	if _, err := s.h.transcript.AppendAll(ctx, s.id, msgs); err != nil {
		s.send(protocol.EventMessageError, transcriptErrorText(err))
		return
	}
	s.send(protocol.EventMessageSaved, protocol.SaveAck{Success: true})
}

func (s *session) handleParcelData(ctx context.Context, env protocol.Envelope) {
	var data protocol.ParcelData
	if err := env.Decode(&data); err != nil {
		s.send(protocol.EventCalculationError, calculationErrorText(quote.ErrInvalidRequest))
		return
	}
	weight, _ := data.WeightKg()
	result, err := s.h.quotes.Resolve(ctx, s.id, quote.Request{
		Source:      data.Source,
		Destination: data.Destination,
		WeightKg:    weight,
	})
	if err != nil {
		s.send(protocol.EventCalculationError, calculationErrorText(err))
		return
	}
	s.send(protocol.EventCalculationResult, result)
}

func (s *session) handleQuestion(ctx context.Context, env protocol.Envelope) {
	var question string
	if err := env.Decode(&question); err != nil {
		s.send(protocol.EventChatgptError, "Invalid question")
		return
	}
	reply, err := s.h.assistant.Answer(ctx, s.id, question)
	if err != nil {
		s.send(protocol.EventChatgptError, assistantErrorText(err))
		return
	}
	s.send(protocol.EventChatgptAnswer, reply)
}

func (s *session) send(event string, payload any) {
	env, err := protocol.NewEnvelope(event, payload)
	if err != nil {
		s.logger.Error("encode event", zap.String("event", event), zap.Error(err))
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteJSON(env); err != nil {
		s.logger.Warn("channel write failed", zap.String("event", event), zap.Error(err))
		return
	}
	s.metrics.EventSent(event)
}

// metricEvent bounds the label set to known event names.
func metricEvent(event string) string {
	switch event {
	case protocol.EventSendMessage, protocol.EventParcelData, protocol.EventChatgptQuestion:
		return event
	default:
		return "unknown"
	}
}

func (s *session) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
