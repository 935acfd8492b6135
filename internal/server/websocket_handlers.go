package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/bubbleocr/internal/bubble"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WebSocketOCRResponse is sent for every binary image frame received.
type WebSocketOCRResponse struct {
	Type      string          `json:"type"`
	Status    string          `json:"status"` // "completed" or "error"
	RequestID string          `json:"request_id,omitempty"`
	Engine    string          `json:"engine,omitempty"`
	Bubbles   []bubble.Bubble `json:"bubbles"`
	Error     string          `json:"error,omitempty"`
	ErrorType string          `json:"error_type,omitempty"`
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.corsOrigin == "*" || origin == s.corsOrigin
		},
	}
}

// ocrWebSocketHandler streams OCR: each binary frame is one encoded image,
// each reply is one JSON text frame.
func (s *Server) ocrWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	s.http.wsConnections.Inc()
	defer s.http.wsConnections.Dec()

	s.logger.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)
	s.handleWebSocketConnection(conn, getClientIP(r))
}

func (s *Server) handleWebSocketConnection(conn *websocket.Conn, client string) {
	conn.SetReadLimit(s.maxUploadBytes)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("WebSocket error", "error", err)
			}
			return
		}
		s.http.wsMessages.WithLabelValues("received").Inc()
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		s.handleWebSocketMessage(conn, client, messageType, data)
	}
}

// handleWebSocketMessage answers one frame. Each image frame is charged
// against client's request limit and daily quota like a POST /ocr. The
// recognition runs under a background context bounded by the server timeout.
func (s *Server) handleWebSocketMessage(conn WebSocketConnWriter, client string, messageType int, data []byte) {
	requestID := uuid.NewString()
	if messageType != websocket.BinaryMessage {
		s.sendWebSocketError(conn, requestID, "invalid_request", "expected a binary image frame")
		return
	}
	if s.limiter != nil {
		if err := s.limiter.Allow(client, int64(len(data))); err != nil {
			s.countRateLimitHit(err)
			s.sendWebSocketError(conn, requestID, "rate_limited", err.Error())
			return
		}
	}

	bubbles, err := s.recognize(context.Background(), data)
	if err != nil {
		errType := "processing_error"
		if statusForError(err) == http.StatusBadRequest {
			errType = "invalid_request"
		}
		s.sendWebSocketError(conn, requestID, errType, err.Error())
		return
	}

	s.sendWebSocketResponse(conn, WebSocketOCRResponse{
		Type:      "ocr_response",
		Status:    "completed",
		RequestID: requestID,
		Engine:    s.engine.Name(),
		Bubbles:   bubbles,
	})
}

func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketOCRResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		s.logger.Error("Failed to marshal WebSocket response", "error", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Error("Failed to send WebSocket message", "error", err)
		return
	}
	s.http.wsMessages.WithLabelValues("sent").Inc()
}

func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID, errorType, message string) {
	s.sendWebSocketResponse(conn, WebSocketOCRResponse{
		Type:      "error",
		Status:    "error",
		RequestID: requestID,
		Error:     message,
		ErrorType: errorType,
	})
}
