package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"crashround/internal/amount"
	"crashround/internal/display"
	"crashround/internal/history"
	"crashround/internal/round"
	"crashround/internal/stats"
	"crashround/internal/wshub"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// handleWS upgrades to a participant session. The id query parameter pins
// the participant identity; without it a fresh one is issued.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		id = uuid.NewString()
	}
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		name = id[:min(8, len(id))]
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.Log.Debug("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	s.Hub.Serve(r.Context(), conn, id, name)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	msgChan := s.Broadcaster.Subscribe()
	defer s.Broadcaster.Unsubscribe(msgChan)

	if frame, err := json.Marshal(s.Display.Latest()); err == nil {
		fmt.Fprintf(w, "event: frame\ndata: %s\n\n", frame)
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-msgChan:
			fmt.Fprintf(w, "event: %s\n", msg.Event)
			for _, line := range strings.Split(msg.Data, "\n") {
				fmt.Fprintf(w, "data: %s\n", line)
			}
			fmt.Fprint(w, "\n")
			flusher.Flush()
		}
	}
}

type stateResponse struct {
	round.Snapshot
	Lines   []string         `json:"lines"`
	Markers []display.Marker `json:"markers"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap := s.Engine().Snapshot()
	writeJSON(w, http.StatusOK, stateResponse{
		Snapshot: snap,
		Lines:    display.Lines(s.Config().Display.Lines, snap),
		Markers:  s.Display.Markers(),
	})
}

type crashEntry struct {
	Multiplier float64      `json:"multiplier"`
	Label      string       `json:"label"`
	Band       history.Band `json:"band"`
}

// handleHistory lists the last games, oldest first. n defaults to the
// configured display count and is capped by the stored history.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	n := s.Config().LastGamesDisplayCount
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "n must be a positive integer"})
			return
		}
		n = parsed
	}
	recent := s.History.Recent(n)
	out := make([]crashEntry, len(recent))
	for i, m := range recent {
		out[i] = crashEntry{Multiplier: m, Label: amount.Multiplier(m) + "x", Band: history.BandFor(m)}
	}
	writeJSON(w, http.StatusOK, map[string]any{"crashes": out, "capacity": s.History.MaxSize()})
}

type statsResponse struct {
	stats.Record
	WinRate float64 `json:"winRate"`
	NetText string  `json:"netText"`
	Online  *bool   `json:"online,omitempty"`
}

func newStatsResponse(rec stats.Record) statsResponse {
	return statsResponse{Record: rec, WinRate: rec.WinRate(), NetText: amount.Compact(rec.Net)}
}

func (s *Server) handleServerStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newStatsResponse(s.Stats.Totals()))
}

func (s *Server) handlePlayerStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	resp := newStatsResponse(s.Stats.Get(id))
	online := s.Hub.Connected(id)
	resp.Online = &online
	writeJSON(w, http.StatusOK, resp)
}

type topEntry struct {
	stats.Entry
	NetText string `json:"netText"`
}

func (s *Server) handleTopStats(w http.ResponseWriter, r *http.Request) {
	n := 10
	if v, err := strconv.Atoi(r.URL.Query().Get("n")); err == nil && v > 0 {
		n = min(v, 100)
	}
	top := s.Stats.Top(n)
	out := make([]topEntry, len(top))
	for i, e := range top {
		out[i] = topEntry{Entry: e, NetText: amount.Compact(e.Net)}
	}
	writeJSON(w, http.StatusOK, out)
}

type rigRequest struct {
	Multiplier float64 `json:"multiplier"`
}

func (s *Server) handleRig(w http.ResponseWriter, r *http.Request) {
	msgs := s.Config().Messages
	var req rigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgs.InvalidAmount})
		return
	}

	engine := s.Engine()
	stored, err := engine.Rig(req.Multiplier)
	switch {
	case errors.Is(err, round.ErrTooLate):
		writeJSON(w, http.StatusConflict, map[string]string{"error": msgs.RigTooLate})
		return
	case errors.Is(err, round.ErrTooLow):
		text := strings.ReplaceAll(msgs.RigTooLow, "{min}", amount.Multiplier(engine.Config.MinCrash))
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": text})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"multiplier": stored,
		"message":    strings.ReplaceAll(msgs.RigSet, "{multiplier}", amount.Multiplier(stored)),
	})
}

type summaryResponse struct {
	round.Summary
	SecondsToStart int64        `json:"secondsToStart"`
	Server         stats.Record `json:"server"`
	HistorySize    int          `json:"historySize"`
	EconomyEnabled bool         `json:"economyEnabled"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum := s.Engine().Summary()
	writeJSON(w, http.StatusOK, summaryResponse{
		Summary:        sum,
		SecondsToStart: sum.SecondsToStart(),
		Server:         s.Stats.Totals(),
		HistorySize:    s.History.Len(),
		EconomyEnabled: s.Economy.Enabled(),
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	cfg := s.Reload()
	writeJSON(w, http.StatusOK, map[string]string{"message": cfg.Messages.Reloaded})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if s.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.DB.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "db_error", "error": err.Error()})
			return
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Ping(r.Context()).Err(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "redis_error", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status, "phase": string(s.Engine().Phase())})
}

var _ wshub.Game = (*round.Engine)(nil)
