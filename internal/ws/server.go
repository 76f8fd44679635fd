package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"

	"csms/internal/metrics"
	"csms/internal/ocpp"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Dispatcher routes one decoded CALL to business logic.
type Dispatcher interface {
	Dispatch(ctx context.Context, chargePointID, action string, payload json.RawMessage) (any, *ocpp.CallFault)
}

// Server terminates OCPP WebSocket connections on /v1/ocpp/{chargePointId}.
type Server struct {
	dispatcher Dispatcher
	metrics    *metrics.Metrics
	logger     *zap.Logger
	upgrader   websocket.Upgrader

	mu    sync.RWMutex
	conns map[string]*conn
}

func NewServer(d Dispatcher, m *metrics.Metrics, logger *zap.Logger) *Server {
	return &Server{
		dispatcher: d,
		metrics:    m,
		logger:     logger,
		upgrader: websocket.Upgrader{
			// Charge points are embedded clients; browser origin checks do
			// not apply.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[string]*conn),
	}
}

// ServeOCPP upgrades a charge point connection. The charge point identity is
// the path segment, never generated server-side.
func (s *Server) ServeOCPP(w http.ResponseWriter, r *http.Request) {
	chargePointID := chi.URLParam(r, "chargePointId")
	if chargePointID == "" {
		s.RejectUpgrade(w, r)
		return
	}

	// Informational only.
	ocppVersion := r.URL.Query().Get("ocppVersion")
	if ocppVersion == "" {
		ocppVersion = "1.6"
	}
	rfidTag := r.URL.Query().Get("rfidTag")

	wsc, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", zap.String("charge_point_id", chargePointID), zap.Error(err))
		return
	}

	s.logger.Info("charge point connected",
		zap.String("charge_point_id", chargePointID),
		zap.String("ocpp_version", ocppVersion),
		zap.String("rfid_tag", rfidTag),
	)

	c := newConn(s, wsc, chargePointID)
	s.register(c)
	defer func() {
		s.unregister(c)
		wsc.Close()
		s.logger.Info("charge point disconnected", zap.String("charge_point_id", chargePointID))
	}()

	c.readLoop(r.Context())
}

// RejectUpgrade answers any WebSocket upgrade outside the OCPP path shape by
// completing the handshake and closing with policy violation (1008) before
// any frame is processed.
func (s *Server) RejectUpgrade(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		http.NotFound(w, r)
		return
	}
	wsc, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.logger.Warn("invalid ocpp path", zap.String("path", r.URL.Path))
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Invalid OCPP path")
	_ = wsc.WriteMessage(websocket.CloseMessage, msg)
	wsc.Close()
}

// Connected lists the charge point ids with an open connection.
func (s *Server) Connected() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.conns))
	for id := range s.conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Server) register(c *conn) {
	s.mu.Lock()
	s.conns[c.chargePointID] = c
	s.mu.Unlock()
	s.metrics.ConnectionsActive.Inc()
}

func (s *Server) unregister(c *conn) {
	s.mu.Lock()
	if s.conns[c.chargePointID] == c {
		delete(s.conns, c.chargePointID)
	}
	s.mu.Unlock()
	s.metrics.ConnectionsActive.Dec()
}
