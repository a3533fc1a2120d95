package api

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yangwenmai/storyverse/internal/metrics"
	"github.com/yangwenmai/storyverse/internal/notify"
)

const (
	// Time allowed to write a frame to the client.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong from the client.
	pongWait = 60 * time.Second
	// Ping period; must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Clients never send anything but control frames.
	maxMessageSize = 512
	// Frames buffered per connection before new ones are dropped.
	sendBuffer = 32
)

type eventClient struct {
	conn   *websocket.Conn
	send   chan notify.Event
	done   chan struct{}
	logger *zap.Logger
}

// GET /api/events?topic=characters&topic=storyboards
//
// Streams a frame for every change notification on the requested topics
// (all topics when none is given) until the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	topics, err := parseTopics(r.URL.Query()["topic"])
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.Notifier == nil {
		w.Header().Set("Content-Type", "application/json")
		writeError(w, http.StatusServiceUnavailable, "notifications are disabled")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &eventClient{
		conn:   conn,
		send:   make(chan notify.Event, sendBuffer),
		done:   make(chan struct{}),
		logger: s.logger.With(zap.String("remote", r.RemoteAddr)),
	}
	unsubscribe := s.Notifier.SubscribeAll(func(ev notify.Event) {
		if len(topics) > 0 && !slices.Contains(topics, ev.Topic) {
			return
		}
		select {
		case c.send <- ev:
		case <-c.done:
		default:
			c.logger.Warn("event dropped, client too slow", zap.String("topic", string(ev.Topic)))
		}
	})
	metrics.EventSubscribers.Inc()
	c.logger.Debug("event stream opened", zap.Int("topics", len(topics)))

	go c.writePump()
	c.readPump()

	unsubscribe()
	close(c.done)
	metrics.EventSubscribers.Dec()
	c.logger.Debug("event stream closed")
}

func parseTopics(raw []string) ([]notify.Topic, error) {
	var topics []notify.Topic
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			t, err := notify.ParseTopic(strings.TrimSpace(part))
			if err != nil {
				return nil, err
			}
			topics = append(topics, t)
		}
	}
	return topics, nil
}

// readPump drains the connection until it closes.
func (c *eventClient) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
	}
}

// writePump sends queued frames and keepalive pings until done is closed.
func (c *eventClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(frame); err != nil {
				c.logger.Debug("websocket write failed", zap.Error(err))
				c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}
