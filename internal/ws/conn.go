package ws

import (
	"context"
	"sync"
	"time"

	"csms/internal/ocpp"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 120 * time.Second
	pingPeriod     = 108 * time.Second // 90% of pongWait
	maxMessageSize = 65536
)

// conn is one charge point connection. Frames are handled to completion
// inside readLoop before the next one is read, so messages from the same
// charge point never race each other.
type conn struct {
	server        *Server
	ws            *websocket.Conn
	chargePointID string
	logger        *zap.Logger

	writeMu sync.Mutex
	done    chan struct{}
}

func newConn(s *Server, wsc *websocket.Conn, chargePointID string) *conn {
	return &conn{
		server:        s,
		ws:            wsc,
		chargePointID: chargePointID,
		logger:        s.logger.With(zap.String("charge_point_id", chargePointID)),
		done:          make(chan struct{}),
	}
}

func (c *conn) readLoop(ctx context.Context) {
	defer close(c.done)

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	go c.pingLoop()

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("unexpected close", zap.Error(err))
			}
			return
		}
		c.handleFrame(ctx, raw)
	}
}

func (c *conn) handleFrame(ctx context.Context, raw []byte) {
	frame, err := ocpp.Decode(raw)
	if err != nil {
		// No reliable uniqueId exists, so no response frame is emitted.
		c.server.metrics.FramesDropped.Inc()
		c.logger.Warn("dropping malformed frame", zap.Error(err))
		return
	}

	switch frame.Type {
	case ocpp.Call:
		c.handleCall(ctx, frame)
	case ocpp.CallResult, ocpp.CallError:
		// Responses to server-initiated calls. None are pending in the
		// current scope; log and move on.
		c.logger.Info("response frame from charge point",
			zap.String("unique_id", frame.UniqueID),
			zap.Int("message_type_id", int(frame.Type)),
		)
	}
}

// handleCall produces exactly one outbound frame carrying the call's
// uniqueId, whatever the handler outcome.
func (c *conn) handleCall(ctx context.Context, frame *ocpp.Frame) {
	m := c.server.metrics
	m.MessagesTotal.WithLabelValues(frame.Action).Inc()
	start := time.Now()

	res, fault := c.server.dispatcher.Dispatch(ctx, c.chargePointID, frame.Action, frame.Payload)
	m.HandleDuration.WithLabelValues(frame.Action).Observe(time.Since(start).Seconds())

	var (
		out []byte
		err error
	)
	if fault != nil {
		m.CallErrorsTotal.WithLabelValues(string(fault.Code)).Inc()
		out, err = ocpp.EncodeCallError(frame.UniqueID, fault.Code, fault.Description, fault.Details)
	} else {
		out, err = ocpp.EncodeCallResult(frame.UniqueID, res)
	}
	if err != nil {
		c.logger.Error("encoding response frame failed",
			zap.String("unique_id", frame.UniqueID),
			zap.String("action", frame.Action),
			zap.Error(err),
		)
		return
	}
	if err := c.write(out); err != nil {
		c.logger.Warn("writing response frame failed",
			zap.String("unique_id", frame.UniqueID),
			zap.Error(err),
		)
	}
}

func (c *conn) write(msg []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, msg)
}

func (c *conn) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.writeMu.Lock()
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.ws.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
