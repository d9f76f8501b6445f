package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Message is the envelope sent to websocket clients.
type Message struct {
	Type    string      `json:"type"`
	Content string      `json:"content"`
	Data    interface{} `json:"data,omitempty"`
}

// Request is a message received from a websocket client. Content holds the
// URL for summarize requests.
type Request struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	Sentences int    `json:"sentences,omitempty"`
	MinChars  int    `json:"min_chars,omitempty"`
}

// wsConn serializes writes; gorilla connections allow one concurrent writer.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) send(msgType, content string, data interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := Message{
		Type:    msgType,
		Content: content,
		Data:    data,
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		log.Debug().Err(err).Str("type", msgType).Msg("failed to send message")
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &wsConn{conn: conn}
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("websocket closed")
			}
			cancel()
			return
		}

		var req Request
		if err := json.Unmarshal(message, &req); err != nil {
			c.send("error", "invalid message", nil)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleMessage(ctx, c, req)
		}()
	}
}

func (s *Server) handleMessage(ctx context.Context, c *wsConn, req Request) {
	switch req.Type {
	case "ping":
		c.send("pong", "", nil)

	case "summarize", "":
		url := strings.TrimSpace(req.Content)
		if url == "" {
			c.send("error", "Please enter a valid URL.", nil)
			return
		}

		c.send("status", fmt.Sprintf("Processing URL: %s", url), nil)

		sentences, minChars := s.withDefaults(req.Sentences, req.MinChars)
		summary, err := s.pipeline.Run(ctx, url, sentences, minChars)
		if err != nil {
			c.send("error", err.Error(), nil)
			return
		}
		c.send("summary", summary.Title, toResponse(summary))

	case "recent":
		if !s.pipeline.HasStore() {
			c.send("error", "summary history is not enabled", nil)
			return
		}
		summaries, err := s.pipeline.Recent(ctx, 10)
		if err != nil {
			c.send("error", fmt.Sprintf("Failed to list summaries: %v", err), nil)
			return
		}
		resp := make([]summaryResponse, 0, len(summaries))
		for _, summary := range summaries {
			resp = append(resp, toResponse(summary))
		}
		c.send("recent", fmt.Sprintf("%d summaries", len(resp)), resp)

	default:
		c.send("error", fmt.Sprintf("unknown message type %q", req.Type), nil)
	}
}
