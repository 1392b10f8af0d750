package wshub

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"crashround/internal/amount"
	"crashround/internal/config"
	"crashround/internal/round"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// Serve registers a session for conn and processes its commands until the
// connection closes or ctx is done.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, participantID, name string) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := &Client{
		ParticipantID: participantID,
		Name:          name,
		Conn:          conn,
		Send:          make(chan []byte, 16),
	}
	h.Register(c)
	defer h.Unregister(c)
	go c.WritePump(ctx)

	h.reply(c, ServerMessage{Type: "welcome", Text: participantID})
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.log.Debug("bad client message", zap.String("participant", participantID), zap.Error(err))
			continue
		}
		if out, ok := h.Handle(c, msg); ok {
			h.reply(c, out)
		}
	}
}

func (h *Hub) reply(c *Client, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

// Handle runs one participant command and returns the reply for the
// issuing session. A false result means nothing is sent back.
func (h *Hub) Handle(c *Client, msg ClientMessage) (ServerMessage, bool) {
	game, msgs := h.current()
	if game == nil {
		return ServerMessage{Type: "error", Text: msgs.LedgerUnavailable}, true
	}
	id := c.ParticipantID

	switch strings.ToLower(msg.Type) {
	case "bet":
		v, err := amount.Parse(msg.Amount)
		if err != nil {
			return ServerMessage{Type: "error", Text: msgs.InvalidAmount}, true
		}
		res, err := game.PlaceBet(id, c.Name, v)
		if err != nil {
			return h.failure(game, msgs, err)
		}
		tmpl := msgs.BetPlaced
		if res.Updated {
			tmpl = msgs.BetUpdated
		}
		return ServerMessage{Type: "bet", Text: fill(tmpl, "{amount}", amount.Format(res.Amount)), Amount: res.Amount}, true

	case "cancel":
		refund, err := game.CancelBet(id)
		if err != nil {
			return h.failure(game, msgs, err)
		}
		return ServerMessage{Type: "cancel", Text: fill(msgs.BetCancelled, "{amount}", amount.Format(refund)), Amount: refund}, true

	case "cashout":
		res, err := game.Cashout(id)
		if err != nil {
			return h.failure(game, msgs, err)
		}
		text := fill(msgs.CashoutSuccess,
			"{multiplier}", amount.Multiplier(res.Multiplier),
			"{payout}", amount.Format(res.Payout),
			"{amount}", amount.Format(res.Amount))
		return ServerMessage{Type: "cashout", Text: text, Amount: res.Amount, Payout: res.Payout, Mult: res.Multiplier}, true

	case "balance":
		if h.wallet == nil || !h.wallet.Enabled() {
			return ServerMessage{Type: "balance"}, true
		}
		bal, err := h.wallet.Balance(id)
		if err != nil {
			return ServerMessage{Type: "error", Text: msgs.LedgerUnavailable}, true
		}
		return ServerMessage{Type: "balance", Text: amount.Format(bal), Amount: bal}, true
	}
	return ServerMessage{Type: "error", Text: "unknown command " + msg.Type}, true
}

func (h *Hub) failure(game Game, msgs config.Messages, err error) (ServerMessage, bool) {
	if errors.Is(err, round.ErrRateLimited) {
		return ServerMessage{}, false
	}
	minBet, maxBet := game.BetLimits()
	return ServerMessage{Type: "error", Text: ErrorText(msgs, err, minBet, maxBet)}, true
}

// ErrorText maps a round error to its participant-facing message.
func ErrorText(msgs config.Messages, err error, minBet, maxBet float64) string {
	switch {
	case errors.Is(err, round.ErrRateLimited):
		return msgs.RateLimited
	case errors.Is(err, round.ErrRoundNotWaiting):
		return msgs.NotWaiting
	case errors.Is(err, round.ErrRoundNotRunning):
		return msgs.NotRunning
	case errors.Is(err, round.ErrNoBet):
		return msgs.NoBet
	case errors.Is(err, round.ErrBetTooLow):
		return fill(msgs.BetTooLow, "{min}", amount.Format(minBet))
	case errors.Is(err, round.ErrBetTooHigh):
		return fill(msgs.BetTooHigh, "{max}", amount.Format(maxBet))
	case errors.Is(err, round.ErrInsufficientFunds):
		return msgs.InsufficientFunds
	case errors.Is(err, round.ErrLedgerUnavailable):
		return msgs.LedgerUnavailable
	case errors.Is(err, round.ErrTooLate):
		return msgs.RigTooLate
	case errors.Is(err, round.ErrTooLow):
		return msgs.RigTooLow
	}
	return err.Error()
}

func lossText(msgs config.Messages, n round.Notice) string {
	return fill(msgs.Loss,
		"{multiplier}", amount.Multiplier(n.Multiplier),
		"{amount}", amount.Format(n.Amount))
}

func fill(tmpl string, oldnew ...string) string {
	return strings.NewReplacer(oldnew...).Replace(tmpl)
}
