package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/app"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/codec"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/config"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"nhooyr.io/websocket"
)

type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

type invoiceStakes struct{}

func (invoiceStakes) RequestStake(_ context.Context, req ports.StakeRequest) (ports.Invoice, error) {
	return ports.Invoice{ID: "inv-" + req.PartyID, PaymentRequest: "lnbc"}, nil
}

type fixture struct {
	verifier *TokenVerifier
	gateway  *Gateway
	lobby    *app.Lobby
	registry *app.Registry
	server   *httptest.Server
}

func newFixture(t *testing.T, perSecond float64, burst int) *fixture {
	t.Helper()
	cfg := config.DefaultGameConfig()
	clock := clockwork.NewFakeClock()
	verifier := NewTokenVerifier("secret")
	gw := NewGateway(verifier, nil, perSecond, burst, noopLogger{})
	registry := app.NewRegistry(cfg, gw, nil, noopLogger{}, app.WithClock(clock), app.WithBots(false))
	lobby := app.NewLobby(registry, invoiceStakes{}, gw, cfg, noopLogger{}, clock)
	gw.Attach(lobby, registry)

	srv := httptest.NewServer(gw)
	t.Cleanup(srv.Close)
	return &fixture{verifier: verifier, gateway: gw, lobby: lobby, registry: registry, server: srv}
}

func (f *fixture) dial(t *testing.T, party string) *websocket.Conn {
	t.Helper()
	token, err := f.verifier.Issue(party, time.Minute)
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/?token=" + token
	conn, _, err := websocket.Dial(testContext(t), url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.CloseNow() })
	require.Eventually(t, func() bool { return f.gateway.Connected(party) }, time.Second, 5*time.Millisecond)
	return conn
}

func send(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	require.NoError(t, conn.Write(testContext(t), websocket.MessageText, []byte(frame)))
}

// next reads frames until one of the given type arrives.
func next(t *testing.T, conn *websocket.Conn, kind string) map[string]interface{} {
	t.Helper()
	ctx, cancel := context.WithTimeout(testContext(t), 2*time.Second)
	defer cancel()
	for {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		var s structpb.Struct
		require.NoError(t, protojson.Unmarshal(data, &s))
		frame := s.AsMap()
		if frame["type"] == kind {
			return frame
		}
	}
}

func TestGatewayRejectsMissingToken(t *testing.T) {
	f := newFixture(t, 10, 10)
	resp, err := http.Get(f.server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGatewayJoinAwaitsPayment(t *testing.T) {
	f := newFixture(t, 10, 10)
	conn := f.dial(t, "alice")

	send(t, conn, `{"type":"join","payload":{"bet":300}}`)
	frame := next(t, conn, string(app.EventPaymentRequired))
	payload := frame["payload"].(map[string]interface{})
	require.Equal(t, "inv-alice", payload["invoiceId"])

	_, ok := f.lobby.Pending("alice")
	require.True(t, ok)

	send(t, conn, `{"type":"cancel"}`)
	frame = next(t, conn, string(app.EventJoinCancelled))
	require.Equal(t, app.CancelByParty, frame["payload"].(map[string]interface{})["reason"])
	require.Zero(t, f.lobby.Len())
}

func TestGatewayRoutesMatchCommands(t *testing.T) {
	f := newFixture(t, 10, 10)
	alice := f.dial(t, "alice")

	m, err := f.registry.Join("alice", "alice", 300)
	require.NoError(t, err)

	send(t, alice, `{"type":"state","matchId":"`+m.ID()+`"}`)
	frame := next(t, alice, CmdState)
	require.Equal(t, m.ID(), frame["matchId"])
	require.Equal(t, "waiting", frame["payload"].(map[string]interface{})["phase"])

	send(t, alice, `{"type":"fire","matchId":"`+m.ID()+`","payload":{"position":3}}`)
	frame = next(t, alice, string(app.EventErrorNotice))
	require.Contains(t, frame["payload"].(map[string]interface{})["message"], app.ErrNotInProgress.Error())
}

func TestGatewayReportsBadCommands(t *testing.T) {
	f := newFixture(t, 10, 10)
	conn := f.dial(t, "alice")

	send(t, conn, `not json`)
	frame := next(t, conn, string(app.EventErrorNotice))
	require.Contains(t, frame["payload"].(map[string]interface{})["message"], codec.ErrMalformedCommand.Error())

	send(t, conn, `{"type":"dance"}`)
	frame = next(t, conn, string(app.EventErrorNotice))
	require.Contains(t, frame["payload"].(map[string]interface{})["message"], ErrUnknownCommand.Error())
}

func TestGatewayRateLimits(t *testing.T) {
	f := newFixture(t, 0.001, 1)
	conn := f.dial(t, "alice")

	send(t, conn, `{"type":"join","payload":{"bet":300}}`)
	next(t, conn, string(app.EventPaymentRequired))

	send(t, conn, `{"type":"cancel"}`)
	frame := next(t, conn, string(app.EventErrorNotice))
	require.Equal(t, "Too many messages, slow down.", frame["payload"].(map[string]interface{})["message"])
	require.Equal(t, 1, f.lobby.Len())
}

func TestGatewayDisconnectCancelsPendingJoin(t *testing.T) {
	f := newFixture(t, 10, 10)
	conn := f.dial(t, "alice")

	send(t, conn, `{"type":"join","payload":{"bet":300}}`)
	next(t, conn, string(app.EventPaymentRequired))
	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))

	require.Eventually(t, func() bool {
		return !f.gateway.Connected("alice") && f.lobby.Len() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEmitSkipsUnknownRecipients(t *testing.T) {
	f := newFixture(t, 10, 10)
	err := f.gateway.Emit(testContext(t), []app.Event{{
		Kind:       app.EventMatchClosed,
		MatchID:    "m1",
		Payload:    app.MatchClosedPayload{Reason: app.ReasonShutdown},
		Recipients: []string{"ghost"},
	}})
	require.NoError(t, err)
}
