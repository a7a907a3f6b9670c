// Package ws is the standalone websocket transport for parties.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/app"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/codec"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/domain"

	"github.com/heroiclabs/nakama-common/runtime"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
)

// Inbound command types.
const (
	CmdJoin       = "join"
	CmdPlaceShips = "place_ships"
	CmdFire       = "fire"
	CmdCancel     = "cancel"
	CmdState      = "state"
)

// ErrUnknownCommand is returned for command types the gateway does not route.
var ErrUnknownCommand = errors.New("unknown command")

const (
	sendBuffer   = 64
	pingInterval = 15 * time.Second
)

// Lobby is the pending-join surface the gateway drives.
type Lobby interface {
	RequestJoin(ctx context.Context, partyID, identity string, bet int64) (*app.PendingJoin, *app.Match, error)
	CancelPendingJoin(invoiceID, reason string) error
	Pending(partyID string) (app.PendingJoin, bool)
	Disconnect(partyID string)
}

// Matches routes in-match commands.
type Matches interface {
	PlaceShips(matchID, partyID string, placements []domain.Placement) error
	Fire(matchID, partyID string, pos int) (domain.ShotOutcome, error)
	Cancel(matchID, partyID string) error
	Snapshot(matchID, partyID string) (app.MatchView, error)
}

type client struct {
	partyID string
	conn    *websocket.Conn
	send    chan []byte
	binary  bool
	limiter *rate.Limiter
}

// Gateway accepts party connections and delivers match events to them.
type Gateway struct {
	verifier *TokenVerifier
	origins  []string
	limit    rate.Limit
	burst    int
	logger   runtime.Logger

	mu      sync.RWMutex
	clients map[string]*client

	lobby   Lobby
	matches Matches
}

var _ app.Emitter = (*Gateway)(nil)

func NewGateway(verifier *TokenVerifier, origins []string, perSecond float64, burst int, logger runtime.Logger) *Gateway {
	return &Gateway{
		verifier: verifier,
		origins:  origins,
		limit:    rate.Limit(perSecond),
		burst:    burst,
		logger:   logger,
		clients:  make(map[string]*client),
	}
}

// Attach wires the engine. It must be called before serving.
func (g *Gateway) Attach(lobby Lobby, matches Matches) {
	g.lobby = lobby
	g.matches = matches
}

// Connected reports whether a party has a live connection.
func (g *Gateway) Connected(partyID string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.clients[partyID]
	return ok
}

// Emit queues events on recipients' connections. Slow clients drop frames.
func (g *Gateway) Emit(_ context.Context, events []app.Event) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, ev := range events {
		for _, id := range ev.Recipients {
			c, ok := g.clients[id]
			if !ok {
				continue
			}
			g.queue(c, string(ev.Kind), ev.MatchID, ev.Payload)
		}
	}
	return nil
}

func (g *Gateway) queue(c *client, kind, matchID string, payload any) {
	var (
		frame []byte
		err   error
	)
	if c.binary {
		frame, err = codec.EncodeEnvelopeBinary(kind, matchID, payload)
	} else {
		frame, err = codec.EncodeEnvelope(kind, matchID, payload)
	}
	if err != nil {
		g.logger.Error("Gateway: failed to encode %s for %s: %v", kind, c.partyID, err)
		return
	}
	select {
	case c.send <- frame:
	default:
		g.logger.Warn("Gateway: send buffer full for %s, dropping %s", c.partyID, kind)
	}
}

// ServeHTTP authenticates the party and runs the connection until it closes.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	partyID, err := g.verifier.Verify(token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: g.origins})
	if err != nil {
		g.logger.Warn("Gateway: accept failed for %s: %v", partyID, err)
		return
	}
	c := &client{
		partyID: partyID,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		binary:  r.URL.Query().Get("format") == "binary",
		limiter: rate.NewLimiter(g.limit, g.burst),
	}

	g.mu.Lock()
	if old, ok := g.clients[partyID]; ok {
		close(old.send)
	}
	g.clients[partyID] = c
	g.mu.Unlock()
	g.logger.Info("Gateway: party %s connected", partyID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go g.writeLoop(ctx, c)
	g.readLoop(ctx, c)

	g.mu.Lock()
	current := g.clients[partyID] == c
	if current {
		delete(g.clients, partyID)
		close(c.send)
	}
	g.mu.Unlock()

	if current {
		g.lobby.Disconnect(partyID)
	}
	g.logger.Info("Gateway: party %s disconnected", partyID)
}

func (g *Gateway) writeLoop(ctx context.Context, c *client) {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		_ = c.conn.Close(websocket.StatusNormalClosure, "bye")
	}()
	typ := websocket.MessageText
	if c.binary {
		typ = websocket.MessageBinary
	}
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, typ, msg); err != nil {
				return
			}
		case <-ping.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (g *Gateway) readLoop(ctx context.Context, c *client) {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		if !c.limiter.Allow() {
			g.reply(c, "", string(app.EventErrorNotice), app.ErrorNoticePayload{Message: "Too many messages, slow down."})
			continue
		}

		var cmd codec.Command
		if typ == websocket.MessageBinary {
			cmd, err = codec.DecodeCommandBinary(data)
		} else {
			cmd, err = codec.DecodeCommand(data)
		}
		if err != nil {
			g.reply(c, "", string(app.EventErrorNotice), app.ErrorNoticePayload{Message: err.Error()})
			continue
		}
		if err := g.dispatch(ctx, c, cmd); err != nil {
			g.reply(c, cmd.MatchID, string(app.EventErrorNotice), app.ErrorNoticePayload{Message: userMessage(err)})
		}
	}
}

func (g *Gateway) dispatch(ctx context.Context, c *client, cmd codec.Command) error {
	switch cmd.Type {
	case CmdJoin:
		bet, err := cmd.Int("bet")
		if err != nil {
			return err
		}
		_, _, err = g.lobby.RequestJoin(ctx, c.partyID, c.partyID, bet)
		return err
	case CmdPlaceShips:
		placements, err := cmd.Placements()
		if err != nil {
			return err
		}
		return g.matches.PlaceShips(cmd.MatchID, c.partyID, placements)
	case CmdFire:
		pos, err := cmd.Int("position")
		if err != nil {
			return err
		}
		_, err = g.matches.Fire(cmd.MatchID, c.partyID, int(pos))
		return err
	case CmdCancel:
		if pj, ok := g.lobby.Pending(c.partyID); ok {
			return g.lobby.CancelPendingJoin(pj.InvoiceID, app.CancelByParty)
		}
		return g.matches.Cancel(cmd.MatchID, c.partyID)
	case CmdState:
		view, err := g.matches.Snapshot(cmd.MatchID, c.partyID)
		if err != nil {
			return err
		}
		g.reply(c, cmd.MatchID, CmdState, view)
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
}

func (g *Gateway) reply(c *client, matchID, kind string, payload any) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.clients[c.partyID] != c {
		return
	}
	g.queue(c, kind, matchID, payload)
}

// userMessage hides internal failures from parties.
func userMessage(err error) string {
	if app.IsValidation(err) || app.IsNotFound(err) || errors.Is(err, codec.ErrMalformedCommand) {
		return err.Error()
	}
	if errors.Is(err, ErrUnknownCommand) {
		return err.Error()
	}
	return "Something went wrong, please try again."
}
