package wshub

import (
	"context"
	"encoding/json"
	"sync"

	"crashround/internal/config"
	"crashround/internal/round"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// ClientMessage is the JSON structure received from clients.
type ClientMessage struct {
	Type   string `json:"t"`           // bet, cashout, cancel or balance
	Amount string `json:"a,omitempty"` // bet amount, suffixes k/m/b allowed
}

// ServerMessage is the JSON structure sent to clients.
type ServerMessage struct {
	Type    string  `json:"t"`
	Text    string  `json:"m,omitempty"`
	Amount  float64 `json:"a,omitempty"`
	Payout  float64 `json:"p,omitempty"`
	Mult    float64 `json:"x,omitempty"`
	RoundID string  `json:"r,omitempty"`
}

// Client represents a single WebSocket connection in the hub. Several
// clients may share a participant id.
type Client struct {
	ParticipantID string
	Name          string
	Conn          *websocket.Conn
	Send          chan []byte
}

// WritePump reads from the Send channel and writes to the WebSocket connection.
func (c *Client) WritePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.Send:
			if !ok {
				return
			}
			if err := c.Conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}
}

// Game is the round surface participants act on.
type Game interface {
	PlaceBet(participantID, name string, amount float64) (round.BetResult, error)
	CancelBet(participantID string) (float64, error)
	Cashout(participantID string) (round.CashoutResult, error)
	HandleDisconnect(participantID string)
	BetLimits() (float64, float64)
}

type Wallet interface {
	Enabled() bool
	Balance(participantID string) (float64, error)
}

// Hub tracks participant sessions, routes their commands to the current
// game and delivers notices back to them.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*Client]struct{}
	game     Game
	wallet   Wallet
	messages config.Messages
	log      *zap.Logger
}

func NewHub(game Game, wallet Wallet, messages config.Messages, log *zap.Logger) *Hub {
	return &Hub{
		sessions: make(map[string]map[*Client]struct{}),
		game:     game,
		wallet:   wallet,
		messages: messages,
		log:      log,
	}
}

// SetGame swaps the game and message set, as done on reload. Open sessions
// keep their connections.
func (h *Hub) SetGame(game Game, messages config.Messages) {
	h.mu.Lock()
	h.game = game
	h.messages = messages
	h.mu.Unlock()
}

func (h *Hub) current() (Game, config.Messages) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.game, h.messages
}

// Register adds a client session.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.sessions[c.ParticipantID]
	if !ok {
		set = make(map[*Client]struct{})
		h.sessions[c.ParticipantID] = set
	}
	set[c] = struct{}{}
}

// Unregister removes a client session and closes its Send channel. When it
// was the participant's last session the game is told they disconnected.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	set, ok := h.sessions[c.ParticipantID]
	if ok {
		if _, present := set[c]; present {
			close(c.Send)
			delete(set, c)
		} else {
			ok = false
		}
	}
	last := ok && len(set) == 0
	if last {
		delete(h.sessions, c.ParticipantID)
	}
	game := h.game
	h.mu.Unlock()

	if last && game != nil {
		game.HandleDisconnect(c.ParticipantID)
		h.log.Debug("participant disconnected", zap.String("participant", c.ParticipantID))
	}
}

// Connected reports whether the participant has at least one session.
func (h *Hub) Connected(participantID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[participantID]) > 0
}

// SendTo delivers msg to every session of the participant. Non-blocking:
// drops if a channel is full.
func (h *Hub) SendTo(participantID string, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("marshal error", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.sessions[participantID] {
		select {
		case c.Send <- data:
		default:
			// Drop message if channel full
		}
	}
}

// Notify implements round.Notifier.
func (h *Hub) Notify(participantID string, n round.Notice) {
	_, msgs := h.current()
	switch n.Kind {
	case round.NoticeLoss:
		h.SendTo(participantID, ServerMessage{
			Type:    "loss",
			Text:    lossText(msgs, n),
			Amount:  n.Amount,
			Mult:    n.Multiplier,
			RoundID: n.RoundID,
		})
	}
}
