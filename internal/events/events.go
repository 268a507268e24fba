// Package events streams interview progress to websocket subscribers.
package events

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	InterviewStarted   = "interview.started"
	QuestionAsked      = "question.asked"
	AnswerEvaluated    = "answer.evaluated"
	BlockCompleted     = "block.completed"
	InterviewCompleted = "interview.completed"
	InterviewCancelled = "interview.cancelled"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 32
)

type Event struct {
	Type        string    `json:"type"`
	InterviewID string    `json:"interview_id"`
	Data        any       `json:"data,omitempty"`
	Time        time.Time `json:"time"`
}

// Publisher is what the API uses to emit events; Hub implements it.
type Publisher interface {
	Publish(interviewID string, ev Event)
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.send) })
}

// Hub fans events out to the subscribers of each interview.
type Hub struct {
	mu       sync.Mutex
	rooms    map[string]map[*subscriber]struct{}
	upgrader websocket.Upgrader
	logger   *zap.Logger
	closed   bool
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		rooms: make(map[string]map[*subscriber]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: log,
	}
}

// Publish delivers ev to everyone watching interviewID. Subscribers that
// cannot keep up are disconnected.
func (h *Hub) Publish(interviewID string, ev Event) {
	ev.InterviewID = interviewID
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to encode event", zap.String("type", ev.Type), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.rooms[interviewID] {
		select {
		case sub.send <- data:
		default:
			h.logger.Warn("dropping slow event subscriber", zap.String("interview_id", interviewID))
			h.removeLocked(interviewID, sub)
		}
	}
}

// Subscribers reports how many connections watch interviewID.
func (h *Hub) Subscribers(interviewID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[interviewID])
}

// ServeWS upgrades the request and streams events of interviewID until the
// peer goes away. Authorization is the caller's job.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, interviewID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sub := &subscriber{conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.add(interviewID, sub) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	h.logger.Debug("event subscriber connected", zap.String("interview_id", interviewID))

	go h.writePump(sub)
	h.readPump(interviewID, sub)
}

func (h *Hub) add(interviewID string, sub *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	room, ok := h.rooms[interviewID]
	if !ok {
		room = make(map[*subscriber]struct{})
		h.rooms[interviewID] = room
	}
	room[sub] = struct{}{}
	return true
}

func (h *Hub) remove(interviewID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(interviewID, sub)
}

func (h *Hub) removeLocked(interviewID string, sub *subscriber) {
	room := h.rooms[interviewID]
	if _, ok := room[sub]; !ok {
		return
	}
	delete(room, sub)
	if len(room) == 0 {
		delete(h.rooms, interviewID)
	}
	sub.close()
}

// readPump discards client messages and notices disconnects.
func (h *Hub) readPump(interviewID string, sub *subscriber) {
	defer func() {
		h.remove(interviewID, sub)
		_ = sub.conn.Close()
	}()

	sub.conn.SetReadLimit(maxMessageSize)
	_ = sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("event subscriber read failed", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = sub.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-sub.send:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = sub.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every subscriber and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, room := range h.rooms {
		for sub := range room {
			sub.close()
		}
		delete(h.rooms, id)
	}
}
