// Package server is the dashboard edge: an HTTP server exposing the
// WebSocket push channel plus a small REST surface, and the fan-out of
// every fleet message family to connected dashboards.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/fakesalmon/minefleet/internal/bot"
	"github.com/fakesalmon/minefleet/internal/mcstatus"
	"github.com/fakesalmon/minefleet/internal/scheduler"
)

type HttpServer struct {
	logger   *slog.Logger
	server   *http.Server
	wsServer *WebSocketServer

	mu         sync.RWMutex
	manager    *bot.Manager
	lastStatus *mcstatus.Status
}

func New(logger *slog.Logger) *HttpServer {
	s := &HttpServer{
		logger:   logger,
		wsServer: NewWebSocketServer(logger),
	}
	s.wsServer.onConnect = s.initialFrames
	s.wsServer.onCommand = s.handleCommand
	return s
}

// AttachManager wires the fleet supervisor in. The server is constructed
// first because the supervisor publishes through it.
func (s *HttpServer) AttachManager(m *bot.Manager) {
	s.mu.Lock()
	s.manager = m
	s.mu.Unlock()
}

func (s *HttpServer) fleet() *bot.Manager {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.manager
}

// Listen serves until Stop. Run the hub alongside.
func (s *HttpServer) Listen(port int) error {
	go s.wsServer.Run()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.wsServer.HandleWebSocket)
	mux.HandleFunc("GET /api/bots", s.handleAPIBots)
	mux.HandleFunc("GET /api/server", s.handleAPIServer)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	s.logger.Info("dashboard listening", slog.Int("port", port))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HttpServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *HttpServer) handleAPIBots(w http.ResponseWriter, r *http.Request) {
	m := s.fleet()
	views := []bot.View{}
	if m != nil {
		views = m.Views()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(views)
}

func (s *HttpServer) handleAPIServer(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	st := s.lastStatus
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if st == nil {
		json.NewEncoder(w).Encode(mcstatus.Status{Online: false})
		return
	}
	json.NewEncoder(w).Encode(st)
}

// initialFrames is what a dashboard gets the moment it connects: the
// current registry and the latest known game-server status.
func (s *HttpServer) initialFrames() [][]byte {
	frames := [][]byte{}
	if m := s.fleet(); m != nil {
		if frame, err := marshalFrame("bot:list", m.Views()); err == nil {
			frames = append(frames, frame)
		}
	}
	s.mu.RLock()
	st := s.lastStatus
	s.mu.RUnlock()
	if st != nil {
		if frame, err := marshalFrame("server:status", st); err == nil {
			frames = append(frames, frame)
		}
	}
	return frames
}

func (s *HttpServer) push(msgType string, payload any) {
	frame, err := marshalFrame(msgType, payload)
	if err != nil {
		s.logger.Error("failed to marshal frame", slog.String("type", msgType), slog.Any("error", err))
		return
	}
	s.wsServer.Broadcast(frame)
}

// bot.Publisher implementation. Payload shapes are part of the dashboard
// protocol; the id always rides inside the payload.

type idLine struct {
	ID   string `json:"id"`
	Line string `json:"line"`
}

func (s *HttpServer) BotList(entries []bot.View) {
	s.push("bot:list", entries)
}

func (s *HttpServer) BotAdded(v bot.View) {
	s.push("bot:added", v)
}

func (s *HttpServer) BotRemoved(id string) {
	s.push("bot:removed", map[string]string{"id": id})
}

func (s *HttpServer) BotStatus(id, status string) {
	s.push("bot:status", struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}{ID: id, Status: status})
}

func (s *HttpServer) Telemetry(id string, snap bot.TelemetrySnapshot) {
	s.push("bot:telemetry", struct {
		ID        string `json:"id"`
		bot.TelemetrySnapshot
	}{ID: id, TelemetrySnapshot: snap})
}

func (s *HttpServer) ActiveActions(id string, actions []scheduler.ActiveAction) {
	s.push("bot:activeActions", struct {
		ID      string                   `json:"id"`
		Actions []scheduler.ActiveAction `json:"actions"`
	}{ID: id, Actions: actions})
}

func (s *HttpServer) LogLine(id, line string) {
	s.push("bot:log", idLine{ID: id, Line: line})
}

func (s *HttpServer) ChatLine(id, line string) {
	s.push("bot:chat", idLine{ID: id, Line: line})
}

func (s *HttpServer) Description(id, text string) {
	s.push("bot:description", struct {
		ID          string `json:"id"`
		Description string `json:"description"`
	}{ID: id, Description: text})
}

// ServerStatus receives the poller's probe results.
func (s *HttpServer) ServerStatus(st mcstatus.Status) {
	s.mu.Lock()
	s.lastStatus = &st
	s.mu.Unlock()
	s.push("server:status", st)
}
