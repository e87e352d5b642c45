package bridge

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Config for the remote-access agent
type Config struct {
	PublicWS   string // ws://relay-host/agent
	LocalURL   string // host:port of the local HTTP API
	AgentID    string
	RetryDelay time.Duration
}

type requestMsg struct {
	Type   string          `json:"type"`
	ReqID  string          `json:"reqId"`
	Method string          `json:"method"`
	Path   string          `json:"path"`
	Body   json.RawMessage `json:"body"`
}

type responseMsg struct {
	Type   string `json:"type"`
	ReqID  string `json:"reqId"`
	Status int    `json:"status"`
	Body   any    `json:"body"`
}

// Start connects to the public relay and proxies its requests to the
// local HTTP API, reconnecting forever. Blocks; run in a goroutine.
func Start(cfg Config) {
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	for {
		run(cfg)
		slog.Info("remote-access agent disconnected, reconnecting", "delay", cfg.RetryDelay)
		time.Sleep(cfg.RetryDelay)
	}
}

func run(cfg Config) {
	ws, _, err := websocket.DefaultDialer.Dial(cfg.PublicWS, nil)
	if err != nil {
		slog.Warn("remote-access relay dial failed", "relay", cfg.PublicWS, "error", err)
		return
	}
	defer ws.Close()

	if err := ws.WriteJSON(map[string]any{"type": "register", "id": cfg.AgentID}); err != nil {
		slog.Warn("remote-access registration failed", "error", err)
		return
	}

	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var req requestMsg
		if err := json.Unmarshal(msg, &req); err != nil || req.Type != "request" {
			continue
		}

		body, status := doLocalRequest(cfg.LocalURL, req)
		if err := ws.WriteJSON(responseMsg{Type: "response", ReqID: req.ReqID, Status: status, Body: body}); err != nil {
			return
		}
	}
}

func doLocalRequest(base string, req requestMsg) (any, int) {
	httpReq, err := http.NewRequest(req.Method, "http://"+base+req.Path, bytes.NewReader(req.Body))
	if err != nil {
		return map[string]string{"error": err.Error()}, http.StatusInternalServerError
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return map[string]string{"error": err.Error()}, http.StatusBadGateway
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		body = string(raw)
	}
	return body, resp.StatusCode
}
