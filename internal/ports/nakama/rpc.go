package nakama

import (
	"context"
	"database/sql"
	"errors"

	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/app"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/codec"

	"github.com/heroiclabs/nakama-common/runtime"
)

// gRPC status codes used by Nakama runtime errors.
const (
	codeInvalidArgument  = 3
	codeNotFound         = 5
	codePermissionDenied = 7
	codeInternal         = 13
	codeUnauthenticated  = 16
)

var (
	errNoSession    = runtime.NewError("authentication required", codeUnauthenticated)
	errServerOnly   = runtime.NewError("server to server call only", codePermissionDenied)
	errInternalCall = runtime.NewError("internal error", codeInternal)
)

// FireResponse reports the caller's shot.
type FireResponse struct {
	Position int    `json:"position"`
	Hit      bool   `json:"hit"`
	Sunk     bool   `json:"sunk"`
	Ship     string `json:"ship,omitempty"`
}

type ackResponse struct {
	OK bool `json:"ok"`
}

// rpcPlaceShips submits the caller's fleet.
//
// Payload: {"matchId": "...", "ships": [{"name": "Carrier", "positions": [0,1,2,3,4]}, ...]}
func (m *Module) rpcPlaceShips(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, cmd, err := m.parse(ctx, logger, RpcPlaceShips, payload)
	if err != nil {
		return "", err
	}
	placements, err := cmd.Placements()
	if err != nil {
		return "", rpcError(logger, RpcPlaceShips, err)
	}
	if err := m.registry.PlaceShips(cmd.MatchID, userID, placements); err != nil {
		return "", rpcError(logger, RpcPlaceShips, err)
	}
	return respond(ackResponse{OK: true})
}

// rpcFire shoots at a cell of the opponent's board.
//
// Payload: {"matchId": "...", "position": 12}
func (m *Module) rpcFire(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, cmd, err := m.parse(ctx, logger, RpcFire, payload)
	if err != nil {
		return "", err
	}
	pos, err := cmd.Int("position")
	if err != nil {
		return "", rpcError(logger, RpcFire, err)
	}
	out, err := m.registry.Fire(cmd.MatchID, userID, int(pos))
	if err != nil {
		return "", rpcError(logger, RpcFire, err)
	}
	resp := FireResponse{Position: int(pos), Hit: out.Hit, Sunk: out.Sunk}
	if out.Sunk && out.Ship != nil {
		resp.Ship = out.Ship.Name
	}
	return respond(resp)
}

// rpcCancel withdraws a pending join, or leaves the match named in the payload.
//
// Payload: {"matchId": "..."} or {}
func (m *Module) rpcCancel(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, cmd, err := m.parse(ctx, logger, RpcCancel, payload)
	if err != nil {
		return "", err
	}
	if pj, ok := m.lobby.Pending(userID); ok {
		err = m.lobby.CancelPendingJoin(pj.InvoiceID, app.CancelByParty)
	} else {
		err = m.registry.Cancel(cmd.MatchID, userID)
	}
	if err != nil {
		return "", rpcError(logger, RpcCancel, err)
	}
	return respond(ackResponse{OK: true})
}

// rpcState returns the caller's view of a match.
//
// Payload: {"matchId": "..."}
func (m *Module) rpcState(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, cmd, err := m.parse(ctx, logger, RpcState, payload)
	if err != nil {
		return "", err
	}
	view, err := m.registry.Snapshot(cmd.MatchID, userID)
	if err != nil {
		return "", rpcError(logger, RpcState, err)
	}
	return respond(view)
}

// rpcStats reports live matches per phase and tier.
func (m *Module) rpcStats(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	return respond(m.registry.Stats())
}

// rpcInvoicePaid is called by the payment provider once a stake invoice is paid.
//
// Payload: {"invoiceId": "..."}
func (m *Module) rpcInvoicePaid(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	if _, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string); ok {
		return "", errServerOnly
	}
	cmd, err := codec.DecodeArgs(RpcInvoicePaid, []byte(payload))
	if err != nil {
		return "", rpcError(logger, RpcInvoicePaid, err)
	}
	match, err := m.lobby.ResolvePendingJoin(ctx, cmd.String("invoiceId"))
	if err != nil {
		return "", rpcError(logger, RpcInvoicePaid, err)
	}
	return respond(QuickMatchResponse{MatchID: match.ID()})
}

// rpcInvoiceFailed is called by the payment provider when an invoice cannot be paid.
//
// Payload: {"invoiceId": "...", "reason": "payment_failed"}
func (m *Module) rpcInvoiceFailed(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	if _, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string); ok {
		return "", errServerOnly
	}
	cmd, err := codec.DecodeArgs(RpcInvoiceFailed, []byte(payload))
	if err != nil {
		return "", rpcError(logger, RpcInvoiceFailed, err)
	}
	reason := cmd.String("reason")
	if reason == "" {
		reason = app.CancelPaymentFailed
	}
	if err := m.lobby.CancelPendingJoin(cmd.String("invoiceId"), reason); err != nil {
		return "", rpcError(logger, RpcInvoiceFailed, err)
	}
	return respond(ackResponse{OK: true})
}

func (m *Module) parse(ctx context.Context, logger runtime.Logger, rpc, payload string) (string, codec.Command, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return "", codec.Command{}, err
	}
	cmd, err := codec.DecodeArgs(rpc, []byte(payload))
	if err != nil {
		return "", codec.Command{}, rpcError(logger, rpc, err)
	}
	return userID, cmd, nil
}

func callerID(ctx context.Context) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		return "", errNoSession
	}
	return userID, nil
}

// rpcError maps engine errors onto runtime errors with gRPC codes.
func rpcError(logger runtime.Logger, rpc string, err error) error {
	switch {
	case app.IsNotFound(err):
		return runtime.NewError(err.Error(), codeNotFound)
	case app.IsValidation(err), errors.Is(err, codec.ErrMalformedCommand), errors.Is(err, ErrInsufficientFunds):
		return runtime.NewError(err.Error(), codeInvalidArgument)
	default:
		logger.Error("%s: %v", rpc, err)
		return errInternalCall
	}
}

func respond(v any) (string, error) {
	out, err := codec.MarshalJSON(v)
	if err != nil {
		return "", errInternalCall
	}
	return out, nil
}
